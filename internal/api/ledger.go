package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sokohub/soko/internal/app/accounts"
	"github.com/sokohub/soko/internal/app/ledger"
	"github.com/sokohub/soko/internal/domain"
)

// ─── Ledger API ─────────────────────────────────────────────────────────────
//
// POST /v1/users                      register a user with its ledger account
// GET  /v1/users/{id}/notifications   newest notifications first
// POST /v1/transactions               post a balanced transaction
// GET  /v1/transactions/{reference}   a transaction with its entries
// GET  /v1/accounts/{id}/balance      current balance
// GET  /v1/accounts/{id}/entries      entries, newest first, cursor paged

type createUserRequest struct {
	accounts.NewUser
	Currency string `json:"currency,omitempty"`
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	currency := req.Currency
	if currency == "" {
		currency = s.svc.Currency
	}
	u, acct, err := s.svc.Accounts.CreateUser(r.Context(), req.NewUser, currency)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": u, "account": acct})
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	limit, err := queryLimit(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if limit == 0 || limit > 200 {
		limit = 50
	}
	ns, err := s.svc.Store.ListNotifications(r.Context(), id, limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if ns == nil {
		ns = []domain.Notification{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"notifications": ns})
}

type postTransactionRequest struct {
	Reference   string             `json:"reference"`
	Description string             `json:"description"`
	Entries     []domain.EntryLine `json:"entries"`
}

func (s *Server) handlePostTransaction(w http.ResponseWriter, r *http.Request) {
	var req postTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	tx, err := s.svc.Ledger.PostTransaction(r.Context(), req.Reference, req.Description, req.Entries)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.svc.Ledger.GetTransaction(r.Context(), chi.URLParam(r, "reference"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	bal, err := s.svc.Ledger.GetBalance(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"account_id": id, "balance": bal})
}

func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	limit, err := queryLimit(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	page, err := s.svc.Ledger.ListEntries(r.Context(), id, ledger.Page{
		Cursor: r.URL.Query().Get("cursor"),
		Limit:  limit,
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if page.Entries == nil {
		page.Entries = []domain.Entry{}
	}
	writeJSON(w, http.StatusOK, page)
}
