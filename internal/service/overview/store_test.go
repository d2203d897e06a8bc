package overview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jgivc/harvestoverview/internal/common"
	"github.com/jgivc/harvestoverview/internal/entity"
	"github.com/stretchr/testify/require"
)

type memBackend struct {
	mu      sync.Mutex
	loaded  *entity.Overview
	loadErr error
	saved   []*entity.Overview
	saveErr error
}

func (b *memBackend) Load(_ context.Context) (*entity.Overview, error) {
	if b.loadErr != nil {
		return nil, b.loadErr
	}

	if b.loaded == nil {
		return &entity.Overview{}, nil
	}

	return b.loaded, nil
}

func (b *memBackend) Save(_ context.Context, o *entity.Overview) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.saveErr != nil {
		return b.saveErr
	}
	b.saved = append(b.saved, o)

	return nil
}

func testLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

func openStore(t *testing.T, b *memBackend) *Store {
	t.Helper()

	s, err := Open(context.Background(), b, testLog())
	require.NoError(t, err)

	return s
}

func TestFindOrCreateDefaults(t *testing.T) {
	s := openStore(t, &memBackend{})

	ep := s.FindOrCreate("http://example.org/oai")

	require.Equal(t, "http://example.org/oai", ep.URI())
	require.False(t, ep.Blocked())
	require.True(t, ep.Incremental())
	require.False(t, ep.Retry())
	require.Equal(t, int64(0), ep.Count())
	require.Equal(t, int64(0), ep.Increment())
	require.Nil(t, ep.Attempted())
	require.Nil(t, ep.Harvested())
	require.Empty(t, ep.Group())
	require.Empty(t, ep.Scenario())
}

func TestFindOrCreateIdempotent(t *testing.T) {
	s := openStore(t, &memBackend{})

	first := s.FindOrCreate("http://example.org/oai")
	second := s.FindOrCreate("http://example.org/oai")

	require.Same(t, first, second)
	require.Equal(t, 1, s.Len())

	s.FindOrCreate("http://example.com/oai")
	require.Equal(t, 2, s.Len())
}

func TestFindOrCreateKeepsInsertionOrder(t *testing.T) {
	s := openStore(t, &memBackend{})

	uris := []string{"http://c.org/oai", "http://a.org/oai", "http://b.org/oai"}
	for _, uri := range uris {
		s.FindOrCreate(uri)
	}

	eps := s.Endpoints()
	require.Len(t, eps, len(uris))
	for i, ep := range eps {
		require.Equal(t, uris[i], ep.URI())
	}
}

func TestFindOrCreateConcurrent(t *testing.T) {
	const k = 64

	s := openStore(t, &memBackend{})

	start := make(chan struct{})
	got := make([]*Endpoint, k)

	var wg sync.WaitGroup
	wg.Add(k)
	for i := 0; i < k; i++ {
		go func(i int) {
			defer wg.Done()
			<-start
			got[i] = s.FindOrCreate("http://example.org/oai")
		}(i)
	}
	close(start)
	wg.Wait()

	require.Equal(t, 1, s.Len())
	for _, ep := range got {
		require.Same(t, got[0], ep)
	}
}

func TestFindOrCreateConcurrentDistinct(t *testing.T) {
	const k = 50

	s := openStore(t, &memBackend{})

	var wg sync.WaitGroup
	wg.Add(k * 2)
	for i := 0; i < k; i++ {
		for j := 0; j < 2; j++ {
			go func(i int) {
				defer wg.Done()
				s.FindOrCreate(fmt.Sprintf("http://example.org/%d/oai", i))
			}(i)
		}
	}
	wg.Wait()

	require.Equal(t, k, s.Len())
	require.Empty(t, s.Check())
}

func TestDuplicateFirstMatchWins(t *testing.T) {
	first := entity.NewEndpointState("http://example.org/oai")
	first.Group = "first"
	second := entity.NewEndpointState("http://example.org/oai")
	second.Group = "second"
	other := entity.NewEndpointState("http://example.com/oai")

	s := openStore(t, &memBackend{loaded: &entity.Overview{
		Endpoints: []*entity.EndpointState{first, other, second},
	}})

	ep := s.FindOrCreate("http://example.org/oai")
	require.Equal(t, "first", ep.Group())
	require.Equal(t, 3, s.Len())

	anomalies := s.Check()
	require.Equal(t, []common.DuplicateKeyAnomaly{
		{URI: "http://example.org/oai", Positions: []int{0, 2}},
	}, anomalies)
}

func TestSetURIDoesNotReindex(t *testing.T) {
	s := openStore(t, &memBackend{})

	ep := s.FindOrCreate("http://old.org/oai")
	ep.SetURI("http://new.org/oai")

	require.Same(t, ep, s.FindOrCreate("http://new.org/oai"))

	fresh := s.FindOrCreate("http://old.org/oai")
	require.NotSame(t, ep, fresh)
	require.Equal(t, 2, s.Len())
}

func TestFind(t *testing.T) {
	s := openStore(t, &memBackend{})

	_, err := s.Find("http://example.org/oai")
	require.ErrorIs(t, err, common.ErrEndpointNotFound)
	require.Equal(t, 0, s.Len())

	created := s.FindOrCreate("http://example.org/oai")
	found, err := s.Find("http://example.org/oai")
	require.NoError(t, err)
	require.Same(t, created, found)
}

func TestRecentHarvestDateReadsCycleDate(t *testing.T) {
	s := openStore(t, &memBackend{})

	ep := s.FindOrCreate("http://example.org/oai")
	require.Empty(t, ep.RecentHarvestDate())

	ep.Done(entity.NewDate(2026, time.October, 19), true)
	require.Empty(t, ep.RecentHarvestDate())

	from := entity.NewDate(2024, time.January, 2)
	s.SetHarvestFromDate(&from)
	require.Equal(t, "2024-01-02", ep.RecentHarvestDate())
	require.Equal(t, "2026-10-19", ep.Harvested().String())
}

func TestDone(t *testing.T) {
	s := openStore(t, &memBackend{})
	ep := s.FindOrCreate("http://example.org/oai")

	day1 := entity.NewDate(2026, time.October, 17)
	day2 := entity.NewDate(2026, time.October, 18)
	day3 := entity.NewDate(2026, time.October, 19)

	ep.Done(day1, false)
	require.True(t, ep.Attempted().Equal(day1))
	require.Nil(t, ep.Harvested())

	ep.Done(day2, true)
	require.True(t, ep.Attempted().Equal(day2))
	require.True(t, ep.Harvested().Equal(day2))

	ep.Done(day3, false)
	require.True(t, ep.Attempted().Equal(day3))
	require.True(t, ep.Harvested().Equal(day2))
}

func TestAccessorsReturnCopies(t *testing.T) {
	s := openStore(t, &memBackend{})
	ep := s.FindOrCreate("http://example.org/oai")
	ep.Done(entity.NewDate(2026, time.October, 19), true)

	d := ep.Harvested()
	*d = entity.NewDate(2000, time.January, 1)

	require.Equal(t, "2026-10-19", ep.Harvested().String())

	st := ep.State()
	st.Count = 42
	require.Equal(t, int64(0), ep.Count())
}

func TestSave(t *testing.T) {
	b := &memBackend{}
	s := openStore(t, b)

	ep := s.FindOrCreate("http://example.org/oai")
	ep.SetGroup("clarin")
	ep.SetCount(10)
	ep.SetIncrement(3)
	ep.SetScenario("ListIdentifiers")
	from := entity.NewDate(2026, time.January, 1)
	s.SetHarvestFromDate(&from)

	require.Empty(t, b.saved)
	require.NoError(t, s.Save(context.Background()))
	require.Len(t, b.saved, 1)

	saved := b.saved[0]
	require.Equal(t, "2026-01-01", saved.HarvestFromDate.String())
	require.Len(t, saved.Endpoints, 1)
	require.Equal(t, "clarin", saved.Endpoints[0].Group)
	require.Equal(t, int64(10), saved.Endpoints[0].Count)
	require.Equal(t, int64(3), saved.Endpoints[0].Increment)
	require.Equal(t, "ListIdentifiers", saved.Endpoints[0].Scenario)

	// the saved snapshot does not follow later mutations
	ep.SetCount(11)
	require.Equal(t, int64(10), saved.Endpoints[0].Count)
}

func TestSaveError(t *testing.T) {
	saveErr := errors.New("disk full")
	s := openStore(t, &memBackend{saveErr: saveErr})
	s.FindOrCreate("http://example.org/oai")

	err := s.Save(context.Background())
	require.ErrorIs(t, err, saveErr)
}

func TestOpenError(t *testing.T) {
	_, err := Open(context.Background(), &memBackend{loadErr: fmt.Errorf("%w: bad yaml", common.ErrCorruptRecord)}, testLog())
	require.ErrorIs(t, err, common.ErrCorruptRecord)
}
