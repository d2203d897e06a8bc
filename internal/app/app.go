package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jgivc/harvestoverview/internal/adapter/execadapter"
	"github.com/jgivc/harvestoverview/internal/adapter/listadapter"
	"github.com/jgivc/harvestoverview/internal/adapter/report"
	"github.com/jgivc/harvestoverview/internal/common"
	"github.com/jgivc/harvestoverview/internal/config"
	httphandler "github.com/jgivc/harvestoverview/internal/handler/http"
	repooverview "github.com/jgivc/harvestoverview/internal/repository/overview"
	"github.com/jgivc/harvestoverview/internal/service/cycle"
	"github.com/jgivc/harvestoverview/internal/service/overview"
	"github.com/jgivc/harvestoverview/internal/service/status"
	storeoverview "github.com/jgivc/harvestoverview/internal/storage/overview"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
)

const (
	openTimeout  = 10 * time.Second
	saveTimeout  = 10 * time.Second
	cycleTimeout = 24 * time.Hour
	stopTimeout  = 5 * time.Second
)

type App struct {
	cfgPath string
	cfg     *config.Config
	srv     *http.Server
	store   *overview.Store
	status  *status.StatusService
	runner  *cycle.Runner
	rdb     *redis.Client
	log     *slog.Logger
}

func New(cfgPath string) *App {
	return &App{
		cfgPath: cfgPath,
	}
}

func (a *App) Start() {
	a.cfg = config.MustLoad(a.cfgPath)

	lo := &slog.HandlerOptions{}
	switch a.cfg.LogLevel {
	case config.LogLevelInfo:
		lo.Level = slog.LevelInfo
	case config.LogLevelWarn:
		lo.Level = slog.LevelWarn
	case config.LogLevelError:
		lo.Level = slog.LevelError
	case config.LogLevelDebug:
		lo.Level = slog.LevelDebug
	default:
		panic("unknown log level")
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, lo))
	a.log = log

	backend, err := a.newBackend()
	if err != nil {
		panic(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), openTimeout)
	defer cancel()

	// A record that cannot be read stops the service before any harvest
	// decision is made on lost history.
	a.store, err = overview.Open(ctx, backend, log)
	if err != nil {
		panic(err)
	}

	fromDate, err := a.cfg.HarvestFromDate()
	if err != nil {
		panic(err)
	}
	if fromDate != nil {
		a.store.SetHarvestFromDate(fromDate)
	}

	if err := a.registerEndpoints(ctx); err != nil {
		panic(err)
	}

	recorder := cycle.NewRecorder(cycle.NewClock(a.cfg.CycleConfig.Timezone), log)
	a.runner = cycle.NewRunner(a.store, recorder, a.cfg.CycleConfig.Workers, log)
	a.status = status.NewStatusService(a.store, recorder, report.NewRenderer(log), log)

	mux := http.NewServeMux()
	mux.Handle("GET /endpoint/{$}", httphandler.NewEndpointHandler(a.status, log))
	mux.Handle("GET /endpoint/{id}/{$}", httphandler.NewEndpointIDHandler(a.status, log))
	mux.Handle("GET /plan/{$}", httphandler.NewPlanHandler(a.status, log))
	mux.Handle("GET /report/{$}", httphandler.NewReportHandler(a.status, log))
	mux.Handle("POST /completion/{$}", httphandler.NewCompletionHandler(a.status, log))
	mux.Handle("POST /save/{$}", httphandler.NewSaveHandler(a.status, log))

	a.srv = &http.Server{
		Addr:    a.cfg.Listen,
		Handler: mux,
	}

	go func() {
		log.Info("Start listen", slog.String("addr", a.cfg.Listen))

		if err := a.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Could not serve", slog.String("listen_addr", a.cfg.Listen), slog.Any("error", err))
			os.Exit(2)
		}
	}()
}

func (a *App) newBackend() (overview.Backend, error) {
	switch a.cfg.StoreConfig.Backend {
	case config.BackendFile:
		return storeoverview.NewFileStorage(a.cfg.StoreConfig.Path, a.log), nil
	case config.BackendRedis:
		opt, err := redis.ParseURL(a.cfg.StoreConfig.RedisURL)
		if err != nil {
			return nil, err
		}

		a.rdb = redis.NewClient(opt)
		if _, err := a.rdb.Ping(context.Background()).Result(); err != nil {
			return nil, err
		}

		return repooverview.NewOverviewRepository(a.rdb, a.cfg.StoreConfig.Key, a.log), nil
	}

	return nil, common.ErrUnknownBackend
}

func (a *App) endpoints() ([]string, error) {
	if a.cfg.CycleConfig.EndpointsFile == "" {
		return nil, nil
	}

	return listadapter.Read(afero.NewOsFs(), a.cfg.CycleConfig.EndpointsFile)
}

// registerEndpoints makes sure every listed endpoint has a state.
func (a *App) registerEndpoints(ctx context.Context) error {
	uris, err := a.endpoints()
	if err != nil || len(uris) == 0 {
		return err
	}

	before := a.store.Len()
	for _, uri := range uris {
		a.store.FindOrCreate(uri)
	}

	a.log.Info("Endpoints registered", slog.Int("listed", len(uris)), slog.Int("new", a.store.Len()-before))

	return a.store.Save(ctx)
}

// Save persists the overview.
func (a *App) Save() {
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	if err := a.status.Save(ctx); err != nil {
		a.log.Error("Cannot save overview", slog.Any("error", err))
	}
}

// Check logs endpoints stored more than once.
func (a *App) Check() {
	anomalies := a.status.Check(context.Background())
	a.log.Info("Consistency check done", slog.Int("duplicates", len(anomalies)))
}

// Cycle harvests the listed endpoints with the configured command.
func (a *App) Cycle(ctx context.Context) {
	harvester, err := execadapter.NewCommandHarvester(a.cfg.CycleConfig.Command, a.log)
	if err != nil {
		a.log.Error("Cannot start cycle", slog.Any("error", err))

		return
	}

	uris, err := a.endpoints()
	if err != nil {
		a.log.Error("Cannot read endpoint list", slog.Any("error", err))

		return
	}

	ctx, cancel := context.WithTimeout(ctx, cycleTimeout)
	defer cancel()

	rep, err := a.runner.Run(ctx, uris, harvester)
	if err != nil {
		a.log.Error("Cycle failed", slog.Any("error", err))

		return
	}

	a.log.Info("Cycle report", slog.String("run_id", rep.RunID), slog.Int("endpoints", len(rep.Outcomes)))
}

func (a *App) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()

	a.srv.Shutdown(ctx)

	// best effort, a lost last batch is accepted
	a.Save()

	if a.rdb != nil {
		a.rdb.Close()
	}
}
