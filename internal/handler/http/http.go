package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"regexp"

	"github.com/jgivc/harvestoverview/internal/common"
	"github.com/jgivc/harvestoverview/internal/entity"
)

var (
	idRegexp = regexp.MustCompile(`^[a-f\d]{40}$`)
)

const (
	maxCompletionBody = 1 << 16
	contentTypeJSON   = "application/json"
	contentTypeHTML   = "text/html; charset=utf-8"
)

type EndpointService interface {
	Endpoint(ctx context.Context, uri string) (*entity.EndpointView, error)
	EndpointByID(ctx context.Context, id string) (*entity.EndpointView, error)
	Plan(ctx context.Context) ([]*entity.EndpointView, error)
}

type ReportService interface {
	Report(ctx context.Context) ([]byte, error)
}

type CompletionService interface {
	Complete(ctx context.Context, c *entity.Completion) (*entity.EndpointView, error)
}

type SaveService interface {
	Save(ctx context.Context) error
}

func NewEndpointHandler(srv EndpointService, log *slog.Logger) http.HandlerFunc {
	log = log.With(slog.String("handler", "EndpointHandler"))

	return func(w http.ResponseWriter, r *http.Request) {
		uri := r.URL.Query().Get("uri")
		if uri == "" {
			http.Error(w, "Bad request", http.StatusBadRequest)

			return
		}

		v, err := srv.Endpoint(r.Context(), uri)
		if err != nil {
			switch {
			case errors.Is(err, common.ErrEndpointNotFound):
				http.Error(w, "Endpoint not found", http.StatusNotFound)
			default:
				log.Error("Cannot get endpoint", slog.String("uri", uri), slog.Any("error", err))
				http.Error(w, "Cannot get endpoint", http.StatusInternalServerError)
			}

			return
		}

		writeJSON(w, log, v)
	}
}

func NewEndpointIDHandler(srv EndpointService, log *slog.Logger) http.HandlerFunc {
	log = log.With(slog.String("handler", "EndpointIDHandler"))

	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if !idRegexp.MatchString(id) {
			http.Error(w, "Bad request", http.StatusBadRequest)

			return
		}

		v, err := srv.EndpointByID(r.Context(), id)
		if err != nil {
			switch {
			case errors.Is(err, common.ErrEndpointNotFound):
				http.Error(w, "Endpoint not found", http.StatusNotFound)
			default:
				log.Error("Cannot get endpoint", slog.String("id", id), slog.Any("error", err))
				http.Error(w, "Cannot get endpoint", http.StatusInternalServerError)
			}

			return
		}

		writeJSON(w, log, v)
	}
}

func NewPlanHandler(srv EndpointService, log *slog.Logger) http.HandlerFunc {
	log = log.With(slog.String("handler", "PlanHandler"))

	return func(w http.ResponseWriter, r *http.Request) {
		views, err := srv.Plan(r.Context())
		if err != nil {
			log.Error("Cannot get plan", slog.Any("error", err))
			http.Error(w, "Cannot get plan", http.StatusInternalServerError)

			return
		}

		writeJSON(w, log, views)
	}
}

func NewReportHandler(srv ReportService, log *slog.Logger) http.HandlerFunc {
	log = log.With(slog.String("handler", "ReportHandler"))

	return func(w http.ResponseWriter, r *http.Request) {
		content, err := srv.Report(r.Context())
		if err != nil {
			log.Error("Cannot build report", slog.Any("error", err))
			http.Error(w, "Cannot build report", http.StatusInternalServerError)

			return
		}

		w.Header().Set("Content-Type", contentTypeHTML)
		w.Write(content)
	}
}

func NewCompletionHandler(srv CompletionService, log *slog.Logger) http.HandlerFunc {
	log = log.With(slog.String("handler", "CompletionHandler"))

	return func(w http.ResponseWriter, r *http.Request) {
		var c entity.Completion
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCompletionBody)).Decode(&c); err != nil {
			http.Error(w, "Bad request", http.StatusBadRequest)

			return
		}

		if c.URI == "" || c.Count < 0 || c.Increment < 0 {
			http.Error(w, "Bad request", http.StatusBadRequest)

			return
		}

		v, err := srv.Complete(r.Context(), &c)
		if err != nil {
			switch {
			case errors.Is(err, common.ErrClockUnavailable):
				http.Error(w, "Cannot stamp attempt", http.StatusServiceUnavailable)
			default:
				http.Error(w, "Cannot record completion", http.StatusInternalServerError)
			}
			log.Error("Cannot record completion", slog.String("uri", c.URI), slog.Any("error", err))

			return
		}

		writeJSON(w, log, v)
	}
}

func NewSaveHandler(srv SaveService, log *slog.Logger) http.HandlerFunc {
	log = log.With(slog.String("handler", "SaveHandler"))

	return func(w http.ResponseWriter, r *http.Request) {
		if err := srv.Save(r.Context()); err != nil {
			log.Error("Cannot save overview", slog.Any("error", err))
			http.Error(w, "Cannot save overview", http.StatusInternalServerError)

			return
		}

		w.Write([]byte("done"))
	}
}

func writeJSON(w http.ResponseWriter, log *slog.Logger, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Cannot encode response", slog.Any("error", err))
	}
}
