package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"painel/internal/core"
	"painel/internal/filter"
	"painel/internal/log"
	"painel/internal/middleware/ratelimit"
	"painel/internal/middleware/trace"
	"painel/internal/services"
)

// Response wraps every report with the active filter description.
type Response struct {
	Filters []string `json:"filters"`
	Data    any      `json:"data"`
}

// ReloadResult reports the freshly loaded dataset.
type ReloadResult struct {
	LoadedAt time.Time         `json:"loaded_at"`
	Rows     map[core.Kind]int `json:"rows"`
}

// MetricsResponse exposes request and rate limiter counters.
type MetricsResponse struct {
	Requests  trace.Metrics     `json:"requests"`
	RateLimit ratelimit.Metrics `json:"rate_limit"`
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady answers 200 once the dataset can be loaded.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.dashboard.Ready(r.Context()); err != nil {
		log.FromContext(r.Context()).Warn("Readiness check failed", log.FieldError, err)
		ErrorResponse(http.StatusServiceUnavailable, "not ready", err.Error()).Write(w)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := s.dashboard.Options(r.Context(), r.URL.Query().Get(paramGroup))
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(opts).Write(w)
}

// serveReport adapts a selection-driven dashboard query to a handler.
func serveReport[T any](build func(context.Context, filter.Selection) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sel, err := ParseSelection(r.URL.Query())
		if err != nil {
			BadRequestError(err.Error()).Write(w)
			return
		}
		report, err := build(r.Context(), sel)
		if err != nil {
			writeError(w, r, err)
			return
		}
		NewJSONResponse().Body(Response{Filters: describe(sel), Data: report}).Write(w)
	}
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	kind, err := core.ParseKind(r.PathValue("dataset"))
	if err != nil {
		NotFoundError("unknown dataset " + r.PathValue("dataset")).Write(w)
		return
	}
	sel, err := ParseSelection(r.URL.Query())
	if err != nil {
		BadRequestError(err.Error()).Write(w)
		return
	}
	records, err := s.dashboard.Records(r.Context(), kind, sel)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(Response{Filters: describe(sel), Data: records}).Write(w)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	ds, err := s.reloader.Reload(r.Context())
	if err != nil {
		writeError(w, r, errors.Join(services.ErrLoad, err))
		return
	}
	log.FromContext(r.Context()).Info("Dataset reloaded", log.FieldOperation, log.OpInvalidate)
	NewJSONResponse().Body(ReloadResult{
		LoadedAt: ds.LoadedAt,
		Rows: map[core.Kind]int{
			core.KindRealized:    ds.Realized.Len(),
			core.KindReceivables: ds.Receivables.Len(),
			core.KindScheduled:   ds.Scheduled.Len(),
			core.KindForecast:    ds.Forecast.Len(),
		},
	}).Write(w)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(MetricsResponse{
		Requests:  s.tracer.GetMetrics(),
		RateLimit: s.limiter.GetMetrics(),
	}).Write(w)
}

// writeError maps domain errors to status codes. Load failures are checked
// first: a reader can fail with ErrUnknownDataset and that is still a 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrLoad):
		log.NewStructuredLogger(log.FromContext(r.Context())).
			LogError(r.Context(), "Failed to load data", err, log.OpLoad, nil)
		InternalServerError(services.ErrLoad.Error(), loadDetail(err)).Write(w)
	case errors.Is(err, core.ErrUnknownDataset):
		NotFoundError(err.Error()).Write(w)
	default:
		log.FromContext(r.Context()).Error("Request failed", log.FieldError, err)
		InternalServerError("internal error", "").Write(w)
	}
}

// loadDetail strips the generic prefix so detail carries only the cause.
func loadDetail(err error) string {
	msg := err.Error()
	for _, sep := range []string{": ", "\n"} {
		if rest, ok := strings.CutPrefix(msg, services.ErrLoad.Error()+sep); ok {
			return rest
		}
	}
	return msg
}

func describe(sel filter.Selection) []string {
	if d := sel.Describe(); d != nil {
		return d
	}
	return []string{}
}
