package api

import (
	"net/http"
	"strings"

	"github.com/sokohub/soko/internal/domain"
)

// ─── Orders API ─────────────────────────────────────────────────────────────
// Callers identify their role with the X-Actor-Role header. Authentication is
// handled in front of this service; the header is trusted as given.
//
// POST /v1/users/{id}/cart/items      add a product line to the buyer's cart
// POST /v1/users/{id}/checkout        cart → pending
// POST /v1/users/{id}/orders          place a pending order directly
// GET  /v1/orders?status=disputed     orders in one status
// GET  /v1/orders/{id}                an order with its items
// POST /v1/orders/{id}/transitions    request a status change
// POST /v1/orders/{id}/refund         admin refund of a disputed order
// POST /v1/orders/{id}/close-dispute  admin resolution in the seller's favour
// GET  /v1/admin/stats                cached marketplace statistics

const actorRoleHeader = "X-Actor-Role"

// actorRole reads the caller's role. The system role is reserved for
// internal callers and cannot be claimed over HTTP.
func actorRole(r *http.Request) (domain.Role, error) {
	raw := strings.ToLower(strings.TrimSpace(r.Header.Get(actorRoleHeader)))
	if raw == "" {
		return "", domain.Errorf(domain.ErrForbidden, "authorize", "%s header is required", actorRoleHeader)
	}
	role := domain.Role(raw)
	if !role.Valid() || role == domain.RoleSystem {
		return "", domain.Errorf(domain.ErrForbidden, "authorize", "role %q is not allowed", raw)
	}
	return role, nil
}

func requireAdmin(r *http.Request) error {
	role, err := actorRole(r)
	if err != nil {
		return err
	}
	if role != domain.RoleAdmin {
		return domain.Errorf(domain.ErrForbidden, "authorize", "admin role required")
	}
	return nil
}

func (s *Server) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	buyer, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var line domain.ProductLine
	if err := decodeJSON(w, r, &line); err != nil {
		s.fail(w, r, err)
		return
	}
	cart, err := s.svc.Orders.AddToCart(r.Context(), buyer, line)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	buyer, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	o, err := s.svc.Orders.Checkout(r.Context(), buyer)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

type placeOrderRequest struct {
	Items []domain.ProductLine `json:"items"`
}

func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	buyer, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req placeOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	o, err := s.svc.Orders.PlaceOrder(r.Context(), buyer, req.Items)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	status, err := domain.ParseStatus(r.URL.Query().Get("status"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	limit, err := queryLimit(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	list, err := s.svc.Orders.ListByStatus(r.Context(), status, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if list == nil {
		list = []domain.Order{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": list})
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	o, err := s.svc.Orders.GetOrder(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

type transitionRequest struct {
	Status string `json:"status"`
}

func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	role, err := actorRole(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req transitionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	target, err := domain.ParseStatus(req.Status)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	// The role check reads the current status outside the unit of work.
	// TransitionOrder re-validates the edge under lock, so a stale read can
	// only turn into InvalidTransition or Conflict, never an illegal edge.
	cur, err := s.svc.Orders.GetOrder(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if cur.Status != target && domain.CanTransition(cur.Status, target) && !domain.CanRequest(role, cur.Status, target) {
		s.fail(w, r, domain.Errorf(domain.ErrForbidden, "transition order",
			"%s may not move an order from %s to %s", role, cur.Status, target))
		return
	}

	o, err := s.svc.Orders.TransitionOrder(r.Context(), id, target, role)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) handleRefund(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := requireAdmin(r); err != nil {
		s.fail(w, r, err)
		return
	}
	tx, err := s.svc.Orders.RefundOrder(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	o, err := s.svc.Orders.GetOrder(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": o, "transaction": tx})
}

func (s *Server) handleCloseDispute(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := requireAdmin(r); err != nil {
		s.fail(w, r, err)
		return
	}
	o, err := s.svc.Orders.CloseDispute(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if err := requireAdmin(r); err != nil {
		s.fail(w, r, err)
		return
	}
	st, err := s.svc.Stats.Get(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	if err := requireAdmin(r); err != nil {
		s.fail(w, r, err)
		return
	}
	limit, err := queryLimit(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if limit == 0 || limit > 500 {
		limit = 100
	}
	logs, err := s.svc.Store.ListAuditLogs(r.Context(), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if logs == nil {
		logs = []domain.AuditLog{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"audit_logs": logs})
}
