package cycle

import (
	"fmt"
	"log/slog"

	"github.com/jgivc/harvestoverview/internal/entity"
)

type CompletionTarget interface {
	URI() string
	Done(day entity.Date, success bool)
}

// Recorder stamps the outcome of harvest attempts.
type Recorder struct {
	clock Clock
	log   *slog.Logger
}

func NewRecorder(clock Clock, log *slog.Logger) *Recorder {
	return &Recorder{
		clock: clock,
		log:   log.With(slog.String("item", "CompletionRecorder")),
	}
}

// RecordCompletion is called once at the end of every attempt. If the clock
// fails the endpoint keeps its previous dates and the error is returned.
func (r *Recorder) RecordCompletion(ep CompletionTarget, success bool) error {
	day, err := r.clock.Today()
	if err != nil {
		r.log.Error("Cannot stamp harvest attempt", slog.String("uri", ep.URI()), slog.Bool("success", success),
			slog.Any("error", err))

		return fmt.Errorf("cannot record completion of %s: %w", ep.URI(), err)
	}

	ep.Done(day, success)

	r.log.Debug("Harvest attempt stamped", slog.String("uri", ep.URI()), slog.Bool("success", success),
		slog.String("date", day.String()))

	return nil
}
