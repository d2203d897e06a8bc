package overview

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jgivc/harvestoverview/internal/common"
	"github.com/jgivc/harvestoverview/internal/entity"
)

// Backend is the durable storage of the overview record.
type Backend interface {
	Load(ctx context.Context) (*entity.Overview, error)
	Save(ctx context.Context, o *entity.Overview) error
}

// Store owns the overview record of a harvester deployment. Endpoints are
// only created through FindOrCreate and are never removed.
type Store struct {
	mu        sync.RWMutex
	saveMu    sync.Mutex
	endpoints []*Endpoint
	fromDate  *entity.Date
	backend   Backend
	log       *slog.Logger
}

// Open loads the overview from backend. Corrupt data is returned as
// common.ErrCorruptRecord and nothing is repaired.
func Open(ctx context.Context, backend Backend, log *slog.Logger) (*Store, error) {
	o, err := backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot load overview: %w", err)
	}

	s := &Store{
		fromDate: o.HarvestFromDate,
		backend:  backend,
		log:      log.With(slog.String("item", "OverviewStore")),
	}

	s.endpoints = make([]*Endpoint, 0, len(o.Endpoints))
	for _, state := range o.Endpoints {
		s.endpoints = append(s.endpoints, newEndpoint(s, state))
	}

	for _, a := range s.Check() {
		s.log.Warn("Duplicate endpoint", slog.String("uri", a.URI), slog.Any("positions", a.Positions))
	}

	return s, nil
}

// FindOrCreate returns the first endpoint stored under uri. An unknown uri
// gets a new endpoint with default values appended to the overview. The
// overview is not saved.
func (s *Store) FindOrCreate(uri string) *Endpoint {
	s.mu.RLock()
	ep := s.find(uri)
	s.mu.RUnlock()

	if ep != nil {
		return ep
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if ep := s.find(uri); ep != nil {
		return ep
	}

	ep = newEndpoint(s, entity.NewEndpointState(uri))
	s.endpoints = append(s.endpoints, ep)

	s.log.Debug("Endpoint created", slog.String("uri", uri))

	return ep
}

// Find is FindOrCreate without the create.
func (s *Store) Find(uri string) (*Endpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if ep := s.find(uri); ep != nil {
		return ep, nil
	}

	return nil, fmt.Errorf("%w: %s", common.ErrEndpointNotFound, uri)
}

func (s *Store) find(uri string) *Endpoint {
	for _, ep := range s.endpoints {
		if ep.URI() == uri {
			return ep
		}
	}

	return nil
}

// Endpoints returns the endpoints in insertion order.
func (s *Store) Endpoints() []*Endpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()

	eps := make([]*Endpoint, len(s.endpoints))
	copy(eps, s.endpoints)

	return eps
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.endpoints)
}

func (s *Store) HarvestFromDate() *entity.Date {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.fromDate == nil {
		return nil
	}
	d := *s.fromDate

	return &d
}

func (s *Store) SetHarvestFromDate(d *entity.Date) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d == nil {
		s.fromDate = nil

		return
	}
	v := *d
	s.fromDate = &v
}

// Snapshot copies the overview, locking each endpoint while it is copied.
func (s *Store) Snapshot() *entity.Overview {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o := &entity.Overview{
		Endpoints: make([]*entity.EndpointState, 0, len(s.endpoints)),
	}
	if s.fromDate != nil {
		d := *s.fromDate
		o.HarvestFromDate = &d
	}

	for _, ep := range s.endpoints {
		o.Endpoints = append(o.Endpoints, ep.State())
	}

	return o
}

// Save persists the whole overview. Callers save after a batch of
// mutations, nothing is flushed on its own.
func (s *Store) Save(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	o := s.Snapshot()

	if err := s.backend.Save(ctx, o); err != nil {
		s.log.Error("Cannot save overview", slog.Any("error", err))

		return fmt.Errorf("cannot save overview: %w", err)
	}

	return nil
}

// Check reports URIs stored more than once.
func (s *Store) Check() []common.DuplicateKeyAnomaly {
	s.mu.RLock()
	defer s.mu.RUnlock()

	positions := make(map[string][]int)
	var order []string
	for i, ep := range s.endpoints {
		uri := ep.URI()
		if _, ok := positions[uri]; !ok {
			order = append(order, uri)
		}
		positions[uri] = append(positions[uri], i)
	}

	var anomalies []common.DuplicateKeyAnomaly
	for _, uri := range order {
		if len(positions[uri]) > 1 {
			anomalies = append(anomalies, common.DuplicateKeyAnomaly{URI: uri, Positions: positions[uri]})
		}
	}

	return anomalies
}
