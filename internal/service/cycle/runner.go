package cycle

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jgivc/harvestoverview/internal/common"
	"github.com/jgivc/harvestoverview/internal/service/overview"
)

const (
	defaultWorkers = 1
	saveTimeout    = 10 * time.Second
)

// Job is handed to the harvester for one endpoint.
type Job struct {
	RunID    string
	URI      string
	Scenario string
	Retry    bool
	Plan     Plan
}

// Result is what the harvester observed during an attempt.
type Result struct {
	Success   bool
	Count     int64
	Increment int64
}

func (r Result) validate() error {
	if r.Count < 0 || r.Increment < 0 {
		return fmt.Errorf("%w: negative counter, count %d increment %d", common.ErrInvalidResult, r.Count, r.Increment)
	}

	return nil
}

type Harvester interface {
	Harvest(ctx context.Context, job Job) (Result, error)
}

type EndpointStore interface {
	FindOrCreate(uri string) *overview.Endpoint
	Save(ctx context.Context) error
}

type Outcome struct {
	URI      string `json:"uri"`
	Plan     Plan   `json:"plan"`
	Success  bool   `json:"success"`
	Stamped  bool   `json:"stamped"`
	ErrorMsg string `json:"error,omitempty"`
}

type Report struct {
	RunID      string     `json:"run_id"`
	Outcomes   []*Outcome `json:"outcomes"`
	Duplicates int        `json:"duplicates"`
	Aborted    bool       `json:"aborted"`
}

// Count returns the number of outcomes harvested with mode.
func (r *Report) Count(mode Mode) int {
	var n int
	for _, o := range r.Outcomes {
		if o.Plan.Mode == mode {
			n++
		}
	}

	return n
}

type Runner struct {
	running  atomic.Bool
	store    EndpointStore
	recorder *Recorder
	workers  int
	log      *slog.Logger
}

func NewRunner(store EndpointStore, recorder *Recorder, workers int, log *slog.Logger) *Runner {
	if workers < 1 {
		workers = defaultWorkers
	}

	return &Runner{
		store:    store,
		recorder: recorder,
		workers:  workers,
		log:      log.With(slog.String("item", "CycleRunner")),
	}
}

// Run harvests every distinct uri once and saves the overview at the end,
// also when ctx is cancelled half way. Endpoints stamped before an abort keep
// their state.
func (r *Runner) Run(ctx context.Context, uris []string, harvester Harvester) (*Report, error) {
	if !r.running.CompareAndSwap(false, true) {
		return nil, common.ErrCycleAlreadyRunning
	}
	defer r.running.Store(false)

	report := &Report{RunID: uuid.NewString()}
	log := r.log.With(slog.String("run_id", report.RunID))

	seen := make(map[string]struct{}, len(uris))
	in := make(chan string, len(uris))
	for _, uri := range uris {
		if _, ok := seen[uri]; ok {
			log.Warn("Endpoint listed twice, dispatch once", slog.String("uri", uri))
			report.Duplicates++

			continue
		}
		seen[uri] = struct{}{}
		in <- uri
	}
	close(in)

	log.Info("Start cycle", slog.Int("endpoints", len(seen)), slog.Int("workers", r.workers))

	out := make(chan *Outcome, len(seen))

	var wg sync.WaitGroup
	wg.Add(r.workers)
	for n := 0; n < r.workers; n++ {
		go r.worker(ctx, n, report.RunID, harvester, in, out, &wg)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	for outcome := range out {
		report.Outcomes = append(report.Outcomes, outcome)
	}

	report.Aborted = ctx.Err() != nil

	saveCtx := ctx
	if report.Aborted {
		log.Warn("Cycle aborted, save partial progress", slog.Int("done", len(report.Outcomes)))

		var cancel context.CancelFunc
		saveCtx, cancel = context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
	}

	if err := r.store.Save(saveCtx); err != nil {
		log.Error("Cannot save overview after cycle", slog.Any("error", err))

		return report, fmt.Errorf("cannot save overview after cycle: %w", err)
	}

	log.Info("Cycle done",
		slog.Int("skip", report.Count(ModeSkip)),
		slog.Int("full", report.Count(ModeFull)),
		slog.Int("incremental", report.Count(ModeIncremental)),
		slog.Bool("aborted", report.Aborted))

	if report.Aborted {
		return report, ctx.Err()
	}

	return report, nil
}

func (r *Runner) worker(ctx context.Context, n int, runID string, harvester Harvester, in chan string, out chan *Outcome, wg *sync.WaitGroup) {
	defer wg.Done()

	log := r.log.With(slog.String("run_id", runID), slog.Int("worker_id", n))
	log.Debug("Started")

	for uri := range in {
		if ctx.Err() != nil {
			log.Info("Interrupted")

			return
		}

		// out holds every endpoint, this never blocks.
		out <- r.harvest(ctx, log, runID, harvester, uri)
	}

	log.Debug("Done")
}

func (r *Runner) harvest(ctx context.Context, log *slog.Logger, runID string, harvester Harvester, uri string) *Outcome {
	ep := r.store.FindOrCreate(uri)
	plan := Decide(ep)
	outcome := &Outcome{URI: uri, Plan: plan}

	if plan.Mode == ModeSkip {
		log.Info("Endpoint blocked, skip", slog.String("uri", uri))

		return outcome
	}

	res, err := harvester.Harvest(ctx, Job{
		RunID:    runID,
		URI:      uri,
		Scenario: ep.Scenario(),
		Retry:    ep.Retry(),
		Plan:     plan,
	})
	if err == nil {
		err = res.validate()
	}
	if err != nil {
		log.Error("Cannot harvest endpoint", slog.String("uri", uri), slog.String("mode", plan.Mode.String()),
			slog.Any("error", err))
		outcome.ErrorMsg = err.Error()
	}

	outcome.Success = err == nil && res.Success

	ep.SetCount(res.Count)
	ep.SetIncrement(res.Increment)
	ep.SetRetry(!outcome.Success)

	if err := r.recorder.RecordCompletion(ep, outcome.Success); err != nil {
		outcome.ErrorMsg = joinMsg(outcome.ErrorMsg, err)

		return outcome
	}
	outcome.Stamped = true

	return outcome
}

func joinMsg(msg string, err error) string {
	if msg == "" {
		return err.Error()
	}

	return msg + "; " + err.Error()
}
