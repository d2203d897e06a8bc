package overview

import (
	"log/slog"
	"sync"

	"github.com/jgivc/harvestoverview/internal/entity"
)

// Endpoint gives the harvest pipeline access to the state of one endpoint.
// All calls on the same endpoint are serialized.
type Endpoint struct {
	mu    sync.Mutex
	state *entity.EndpointState
	store *Store
}

func newEndpoint(store *Store, state *entity.EndpointState) *Endpoint {
	return &Endpoint{
		state: state,
		store: store,
	}
}

func (e *Endpoint) URI() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state.URI
}

// SetURI renames the endpoint. Nothing is re-indexed: a later FindOrCreate
// with the old uri creates a new endpoint.
func (e *Endpoint) SetURI(uri string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state.URI = uri
}

func (e *Endpoint) Group() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state.Group
}

func (e *Endpoint) SetGroup(group string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state.Group = group
}

func (e *Endpoint) Blocked() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state.Blocked
}

func (e *Endpoint) SetBlocked(blocked bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state.Blocked = blocked
}

func (e *Endpoint) Retry() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state.Retry
}

// SetRetry stores the retry flag. It is maintained by the pipeline, nothing
// here derives it.
func (e *Endpoint) SetRetry(retry bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state.Retry = retry
}

func (e *Endpoint) Incremental() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state.Incremental
}

func (e *Endpoint) SetIncremental(incremental bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state.Incremental = incremental
}

func (e *Endpoint) Scenario() string {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state.Scenario
}

func (e *Endpoint) SetScenario(scenario string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.state.Scenario = scenario
}

func (e *Endpoint) Count() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state.Count
}

// SetCount stores the counter, a negative value is stored as 0.
func (e *Endpoint) SetCount(count int64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if count < 0 {
		e.store.log.Warn("Negative count, store 0", slog.String("uri", e.state.URI), slog.Int64("count", count))
		count = 0
	}
	e.state.Count = count
}

func (e *Endpoint) Increment() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state.Increment
}

// SetIncrement stores the counter, a negative value is stored as 0.
func (e *Endpoint) SetIncrement(increment int64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if increment < 0 {
		e.store.log.Warn("Negative increment, store 0", slog.String("uri", e.state.URI), slog.Int64("increment", increment))
		increment = 0
	}
	e.state.Increment = increment
}

func (e *Endpoint) Attempted() *entity.Date {
	e.mu.Lock()
	defer e.mu.Unlock()

	return copyDate(e.state.Attempted)
}

func (e *Endpoint) Harvested() *entity.Date {
	e.mu.Lock()
	defer e.mu.Unlock()

	return copyDate(e.state.Harvested)
}

// RecentHarvestDate renders the cycle wide harvest from date of the overview,
// not the Harvested date of this endpoint. Empty when the overview has none.
//
// The asymmetry with Done, which stamps the endpoint itself, is kept as is:
// existing callers display this value.
func (e *Endpoint) RecentHarvestDate() string {
	d := e.store.HarvestFromDate()
	if d == nil {
		return ""
	}

	return d.String()
}

// Done stamps the end of a harvest attempt made on day. Attempted always
// moves, Harvested only on success. A day before the stored Harvested, seen
// when the clock steps back, is replaced by Harvested so that Harvested never
// gets after Attempted.
func (e *Endpoint) Done(day entity.Date, success bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if h := e.state.Harvested; h != nil && day.Before(*h) {
		e.store.log.Warn("Attempt day before last harvest, stamp last harvest day",
			slog.String("uri", e.state.URI), slog.String("day", day.String()), slog.String("harvested", h.String()))
		day = *h
	}

	attempted := day
	e.state.Attempted = &attempted

	if success {
		harvested := day
		e.state.Harvested = &harvested
	}
}

// State returns a copy of the endpoint state.
func (e *Endpoint) State() *entity.EndpointState {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.state.Clone()
}

func copyDate(d *entity.Date) *entity.Date {
	if d == nil {
		return nil
	}
	c := *d

	return &c
}
