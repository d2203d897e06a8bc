package status

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jgivc/harvestoverview/internal/adapter/report"
	"github.com/jgivc/harvestoverview/internal/common"
	"github.com/jgivc/harvestoverview/internal/entity"
	"github.com/jgivc/harvestoverview/internal/service/cycle"
	"github.com/jgivc/harvestoverview/internal/service/overview"
	"github.com/jgivc/harvestoverview/internal/util"
)

const (
	serviceName = "status"
)

type OverviewStore interface {
	Find(uri string) (*overview.Endpoint, error)
	FindOrCreate(uri string) *overview.Endpoint
	Endpoints() []*overview.Endpoint
	HarvestFromDate() *entity.Date
	Save(ctx context.Context) error
	Check() []common.DuplicateKeyAnomaly
}

type ReportRenderer interface {
	HTML(fromDate *entity.Date, rows []report.Row) ([]byte, error)
}

// StatusService answers the harvest pipeline and operators over HTTP.
type StatusService struct {
	store    OverviewStore
	recorder *cycle.Recorder
	renderer ReportRenderer
	log      *slog.Logger
}

func NewStatusService(store OverviewStore, recorder *cycle.Recorder, renderer ReportRenderer, log *slog.Logger) *StatusService {
	return &StatusService{
		store:    store,
		recorder: recorder,
		renderer: renderer,
		log:      log.With(slog.String("service", serviceName)),
	}
}

func (s *StatusService) Endpoint(_ context.Context, uri string) (*entity.EndpointView, error) {
	ep, err := s.store.Find(uri)
	if err != nil {
		return nil, err
	}

	return view(ep), nil
}

// EndpointByID looks an endpoint up by the id derived from its uri.
func (s *StatusService) EndpointByID(_ context.Context, id string) (*entity.EndpointView, error) {
	for _, ep := range s.store.Endpoints() {
		if util.EndpointID(ep.URI()) == id {
			return view(ep), nil
		}
	}

	return nil, fmt.Errorf("%w: id %s", common.ErrEndpointNotFound, id)
}

func (s *StatusService) Plan(_ context.Context) ([]*entity.EndpointView, error) {
	eps := s.store.Endpoints()
	views := make([]*entity.EndpointView, 0, len(eps))
	for _, ep := range eps {
		views = append(views, view(ep))
	}

	return views, nil
}

func (s *StatusService) Report(_ context.Context) ([]byte, error) {
	eps := s.store.Endpoints()
	rows := make([]report.Row, 0, len(eps))
	for _, ep := range eps {
		rows = append(rows, report.Row{State: ep.State(), Mode: cycle.Decide(ep).Mode.String()})
	}

	return s.renderer.HTML(s.store.HarvestFromDate(), rows)
}

// Complete applies an attempt outcome sent by the pipeline. The endpoint is
// created when unknown. Nothing is saved.
func (s *StatusService) Complete(_ context.Context, c *entity.Completion) (*entity.EndpointView, error) {
	ep := s.store.FindOrCreate(c.URI)
	ep.SetCount(c.Count)
	ep.SetIncrement(c.Increment)
	ep.SetRetry(!c.Success)

	if err := s.recorder.RecordCompletion(ep, c.Success); err != nil {
		return nil, fmt.Errorf("cannot complete %s: %w", c.URI, err)
	}

	return view(ep), nil
}

func (s *StatusService) Save(ctx context.Context) error {
	return s.store.Save(ctx)
}

func (s *StatusService) Check(_ context.Context) []common.DuplicateKeyAnomaly {
	anomalies := s.store.Check()
	for _, a := range anomalies {
		s.log.Warn("Duplicate endpoint", slog.String("uri", a.URI), slog.Any("positions", a.Positions))
	}

	return anomalies
}

func view(ep *overview.Endpoint) *entity.EndpointView {
	st := ep.State()
	plan := cycle.Decide(ep)

	return &entity.EndpointView{
		ID:          util.EndpointID(st.URI),
		URI:         st.URI,
		Group:       st.Group,
		Blocked:     st.Blocked,
		Retry:       st.Retry,
		Incremental: st.Incremental,
		Scenario:    st.Scenario,
		Attempted:   st.Attempted,
		Harvested:   st.Harvested,
		Count:       st.Count,
		Increment:   st.Increment,
		Mode:        plan.Mode.String(),
		From:        plan.From,
	}
}
