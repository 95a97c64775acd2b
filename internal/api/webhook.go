package api

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/sokohub/soko/internal/domain"
)

// ─── Payment Webhook ────────────────────────────────────────────────────────
// POST /v1/webhooks/payments
//
// The gateway signs the raw body with HMAC-SHA256 and sends the hex digest in
// X-Soko-Signature. Events only drive order transitions; no ledger entry is
// posted here. Gateways retry, so a repeated event that finds the order
// already moved answers 200 with duplicate=true.

const signatureHeader = "X-Soko-Signature"

const (
	eventPaymentSucceeded = "payment.succeeded"
	eventPaymentFailed    = "payment.failed"
)

type paymentEvent struct {
	Event     string    `json:"event"`
	OrderID   uuid.UUID `json:"order_id"`
	Reference string    `json:"reference,omitempty"`
}

// Sign returns the signature the webhook expects for body.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (s *Server) verifySignature(body []byte, sig string) bool {
	got, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, s.webhookSecret)
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}

func (s *Server) handlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.fail(w, r, domain.Wrap(domain.ErrValidation, "payment webhook", err))
		return
	}
	if !s.verifySignature(body, r.Header.Get(signatureHeader)) {
		writeError(w, http.StatusUnauthorized, "unauthorized", "invalid signature")
		return
	}

	var ev paymentEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		s.fail(w, r, domain.Wrap(domain.ErrValidation, "payment webhook", err))
		return
	}
	var target domain.OrderStatus
	switch ev.Event {
	case eventPaymentSucceeded:
		target = domain.StatusProcessing
	case eventPaymentFailed:
		target = domain.StatusCancelled
	default:
		// Unknown events are acknowledged so the gateway stops retrying.
		writeJSON(w, http.StatusOK, map[string]any{"ignored": true, "event": ev.Event})
		return
	}
	if ev.OrderID == uuid.Nil {
		s.fail(w, r, domain.Errorf(domain.ErrValidation, "payment webhook", "order_id is required"))
		return
	}

	o, err := s.svc.Orders.TransitionOrder(r.Context(), ev.OrderID, target, domain.RoleSystem)
	if errors.Is(err, domain.ErrConflict) {
		s.log.Info("duplicate payment event", "event", ev.Event, "order_id", ev.OrderID, "reference", ev.Reference)
		writeJSON(w, http.StatusOK, map[string]any{"duplicate": true, "order_id": ev.OrderID})
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.log.Info("payment event applied", "event", ev.Event, "order_id", o.ID, "status", o.Status, "reference", ev.Reference)
	writeJSON(w, http.StatusOK, map[string]any{"duplicate": false, "order": o})
}
