package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/leavedesk/leavedesk/internal/leave"
	"github.com/leavedesk/leavedesk/internal/metrics"
	"github.com/leavedesk/leavedesk/internal/requestctx"
)

type Options struct {
	Logger       *slog.Logger
	Metrics      *metrics.Recorder // nil disables instrumentation and /metrics
	MaxBodyBytes int64
}

func NewRouter(svc *leave.Service, opt Options) http.Handler {
	logger := opt.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := chi.NewRouter()
	router.Use(RequestID)
	router.Use(Logger(logger))
	router.Use(Recoverer(logger))
	if opt.Metrics != nil {
		router.Use(Instrument(opt.Metrics))
	}
	router.Use(BodyLimit(opt.MaxBodyBytes))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Ready(r.Context()); err != nil {
			logger.LogAttrs(r.Context(), slog.LevelWarn, "store not ready", slog.Any("err", err))
			http.Error(w, "store not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if opt.Metrics != nil {
		router.Method(http.MethodGet, "/metrics", opt.Metrics.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		NewHandler(svc).RegisterRoutes(r)
	})

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		Fail(w, http.StatusNotFound, "not_found", "route not found", requestctx.GetRequestID(r.Context()))
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		Fail(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed", requestctx.GetRequestID(r.Context()))
	})
	return router
}
