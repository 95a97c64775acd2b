// Package api provides the HTTP boundary for soko. It decodes requests,
// applies the actor role policy and maps domain errors to status codes.
// All business rules live in the app packages.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sokohub/soko/internal/app/accounts"
	"github.com/sokohub/soko/internal/app/ledger"
	"github.com/sokohub/soko/internal/app/orders"
	"github.com/sokohub/soko/internal/app/stats"
	"github.com/sokohub/soko/internal/domain"
)

// maxBodyBytes caps every request body.
const maxBodyBytes = 1 << 20

// Services are the application services the server exposes.
type Services struct {
	Store    domain.Store
	Ledger   *ledger.Engine
	Accounts *accounts.Registry
	Orders   *orders.Service
	Stats    *stats.Cache
	Currency string // currency of accounts created through the API
}

// Server is the soko HTTP API server.
type Server struct {
	svc            Services
	log            *slog.Logger
	metricsEnabled bool
	webhookSecret  []byte
}

// NewServer creates a new API server.
func NewServer(svc Services, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	if svc.Currency == "" {
		svc.Currency = "KES"
	}
	return &Server{svc: svc, log: log.With("component", "api")}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetWebhookSecret enables the payment webhook, signed with secret.
func (s *Server) SetWebhookSecret(secret string) { s.webhookSecret = []byte(secret) }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		r.Post("/users", s.handleCreateUser)
		r.Get("/users/{id}/notifications", s.handleListNotifications)
		r.Post("/users/{id}/cart/items", s.handleAddToCart)
		r.Post("/users/{id}/checkout", s.handleCheckout)
		r.Post("/users/{id}/orders", s.handlePlaceOrder)

		r.Post("/transactions", s.handlePostTransaction)
		r.Get("/transactions/{reference}", s.handleGetTransaction)
		r.Get("/accounts/{id}/balance", s.handleBalance)
		r.Get("/accounts/{id}/entries", s.handleEntries)

		r.Get("/orders", s.handleListOrders)
		r.Get("/orders/{id}", s.handleGetOrder)
		r.Post("/orders/{id}/transitions", s.handleTransition)
		r.Post("/orders/{id}/refund", s.handleRefund)
		r.Post("/orders/{id}/close-dispute", s.handleCloseDispute)

		r.Get("/admin/stats", s.handleStats)
		r.Get("/admin/audit-logs", s.handleAuditLogs)

		if len(s.webhookSecret) > 0 {
			r.Post("/webhooks/payments", s.handlePaymentWebhook)
		}
	})

	return r
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    kind,
		},
	})
}

// fail maps a domain error to its status code and writes it.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := statusFor(err)
	if status >= 500 {
		s.log.Error("request failed", "method", r.Method, "path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()), "error", err)
	}
	msg := err.Error()
	if kind == "internal" {
		msg = "internal error"
	}
	writeError(w, status, kind, msg)
}

// statusFor returns the HTTP status and error type for err.
func statusFor(err error) (int, string) {
	switch domain.KindOf(err) {
	case domain.ErrValidation:
		return http.StatusBadRequest, "validation"
	case domain.ErrNotFound:
		return http.StatusNotFound, "not_found"
	case domain.ErrInvalidTransition:
		return http.StatusUnprocessableEntity, "invalid_transition"
	case domain.ErrConflict:
		return http.StatusConflict, "conflict"
	case domain.ErrForbidden:
		return http.StatusForbidden, "forbidden"
	case domain.ErrLedgerConfiguration:
		return http.StatusInternalServerError, "ledger_configuration"
	case domain.ErrExternalService:
		return http.StatusBadGateway, "external_service"
	}
	return http.StatusInternalServerError, "internal"
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.Errorf(domain.ErrValidation, "decode request", "request body is empty")
		}
		return domain.Wrap(domain.ErrValidation, "decode request", err)
	}
	return nil
}

// pathID parses the {id} URL parameter.
func pathID(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.Errorf(domain.ErrValidation, "parse id", "invalid id %q", raw)
	}
	return id, nil
}

// queryLimit parses the optional ?limit= parameter.
func queryLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, domain.Errorf(domain.ErrValidation, "parse limit", "invalid limit %q", raw)
	}
	return n, nil
}

// corsMiddleware adds CORS headers for local development.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+actorRoleHeader)
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
