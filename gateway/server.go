package gateway

import (
	"log/slog"
	"net/http"
	"time"

	"rewardhub/factory"
	"rewardhub/observability"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const requestBodyLimit = 1 << 20 // 1 MiB

// Server exposes the reward pool lifecycle, query and relayed-claim surface
// over HTTP.
// The daemon's operator identity backs every operator-gated entrypoint.
type Server struct {
	factory  *factory.Factory
	operator [20]byte
	log      *slog.Logger
	metrics  *observability.GatewayMetrics
}

// NewServer wires the HTTP surface over a factory.
func NewServer(f *factory.Factory, operator [20]byte, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		factory:  f,
		operator: operator,
		log:      log,
		metrics:  observability.Gateway(),
	}
}

// Router builds the chi handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/pools", s.handleCreatePool)
		r.Get("/creators/{creator}/pools", s.handlePoolsByCreator)
		r.Route("/pools/{pool}", func(r chi.Router) {
			r.Get("/", s.handlePoolSummary)
			r.Post("/activate", s.handleActivate)
			r.Post("/deactivate", s.handleDeactivate)
			r.Post("/snapshot", s.handleSnapshot)
			r.Post("/allocations", s.handleAddAllocations)
			r.Put("/allocations", s.handleUpdateAllocations)
			r.Delete("/allocations", s.handleRemoveAllocations)
			r.Get("/allocations/{participant}", s.handleAllocation)
			r.Post("/penalties", s.handlePenalize)
			r.Post("/withdraw", s.handleWithdraw)
			r.Post("/signers", s.handleAddSigner)
			r.Delete("/signers/{signer}", s.handleRemoveSigner)
			r.Put("/fee-recipient", s.handleSetFeeRecipient)
			r.Get("/eligibility/{participant}", s.handleEligibility)
			r.Get("/claimed/{participant}", s.handleClaimed)
			r.Get("/nonce/{participant}", s.handleNonce)
			r.Get("/capacity", s.handleCapacity)
			r.Post("/claims", s.handleRelayedClaim)
		})
	})
	return r
}

// requestLogger tags each request with a correlation id and records latency.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		elapsed := time.Since(start)
		route := chi.RouteContext(r.Context()).RoutePattern()
		s.metrics.Latency.WithLabelValues(route).Observe(elapsed.Seconds())
		outcome := "ok"
		if ww.Status() >= 400 {
			outcome = "error"
		}
		s.metrics.Requests.WithLabelValues(route, outcome).Inc()
		s.log.Info("request",
			"id", requestID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"elapsed", elapsed.String(),
		)
	})
}
