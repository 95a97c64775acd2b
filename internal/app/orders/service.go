// Package orders runs the order state machine. Every transition is one unit
// of work: load and lock the order, validate the edge, post any ledger effect,
// write the new status and its audit record. Notifications go out only after commit.
package orders

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sokohub/soko/internal/app/ledger"
	"github.com/sokohub/soko/internal/domain"
	"github.com/sokohub/soko/internal/infra/observability"
)

// Config controls order economics.
type Config struct {
	Currency       string          // currency of new orders (default: KES)
	CommissionRate decimal.Decimal // platform share of each seller's gross
}

// DefaultConfig returns a 10% commission over KES.
func DefaultConfig() Config {
	return Config{Currency: "KES", CommissionRate: decimal.RequireFromString("0.10")}
}

// Service applies order transitions and their ledger effects.
type Service struct {
	store    domain.Store
	ledger   *ledger.Engine
	notifier domain.Notifier
	cfg      Config
	log      *slog.Logger
	hooks    []func()
}

// New creates an order service. notifier may be nil.
func New(store domain.Store, eng *ledger.Engine, notifier domain.Notifier, cfg Config, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	if cfg.Currency == "" {
		cfg.Currency = DefaultConfig().Currency
	}
	return &Service{
		store:    store,
		ledger:   eng,
		notifier: notifier,
		cfg:      cfg,
		log:      log.With("component", "orders"),
	}
}

// AfterCommit registers fn to run after every committed order change,
// whether or not it posted to the ledger. Not safe to call concurrently
// with order operations.
func (s *Service) AfterCommit(fn func()) {
	s.hooks = append(s.hooks, fn)
}

// outcome is what a unit of work hands to the after-commit phase.
type outcome struct {
	from   domain.OrderStatus
	order  domain.Order
	tx     *domain.Transaction
	split  *domain.OrderSplit
	payout domain.PayoutStatus // payout status before the change
}

// GetOrder returns an order with its items.
func (s *Service) GetOrder(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	return s.store.GetOrder(ctx, id, false)
}

// ListByStatus returns up to limit orders in status, oldest first.
func (s *Service) ListByStatus(ctx context.Context, status domain.OrderStatus, limit int) ([]domain.Order, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.store.ListOrdersByStatus(ctx, status, limit)
}

// TransitionOrder moves an order to target. The transition table applies to
// every actor; role policy is enforced by the caller. Returns ErrConflict
// when the order already has the target status, which is how a racing
// duplicate request loses.
func (s *Service) TransitionOrder(ctx context.Context, orderID uuid.UUID, target domain.OrderStatus, actor domain.Role) (domain.Order, error) {
	const op = "transition order"
	var out outcome
	err := s.store.WithTx(ctx, func(q domain.Queries) error {
		o, err := q.GetOrder(ctx, orderID, true)
		if err != nil {
			return err
		}
		out.from, out.payout = o.Status, o.PayoutStatus
		if o.Status == target {
			return domain.Errorf(domain.ErrConflict, op, "order %s is already %s", o.ID, target)
		}
		if err := domain.CheckTransition(o.Status, target); err != nil {
			return err
		}

		switch {
		case o.Status == domain.StatusCart && target == domain.StatusPending:
			if err := checkPlaceable(o); err != nil {
				return err
			}
		case o.Status == domain.StatusShipped && target == domain.StatusCompleted:
			if out.tx, out.split, err = s.payout(ctx, q, &o); err != nil {
				return err
			}
		case target == domain.StatusRefunded:
			if out.tx, err = s.refund(ctx, q, &o); err != nil {
				return err
			}
		}

		o.Status = target
		if err := q.UpdateOrder(ctx, &o); err != nil {
			return err
		}
		out.order = o
		return q.InsertAuditLog(ctx, transitionAudit(actor, out))
	})
	s.record(out.from, target, err)
	if err != nil {
		s.log.Warn("transition rejected", "order_id", orderID, "to", target, "actor", actor, "error", err)
		return domain.Order{}, err
	}
	s.log.Info("order transitioned", "order_id", orderID, "from", out.from, "to", target, "actor", actor)
	s.afterCommit(ctx, out)
	return out.order, nil
}

// RefundOrder reverses a disputed order. When the sellers were paid, their
// gross is debited and the buyer is credited the order total under
// REFUND-<id>; when they were never paid nothing is posted and the returned
// transaction is nil. The order ends refunded either way.
func (s *Service) RefundOrder(ctx context.Context, orderID uuid.UUID) (*domain.Transaction, error) {
	const op = "refund order"
	var out outcome
	err := s.store.WithTx(ctx, func(q domain.Queries) error {
		o, err := q.GetOrder(ctx, orderID, true)
		if err != nil {
			return err
		}
		out.from, out.payout = o.Status, o.PayoutStatus
		if o.Status != domain.StatusDisputed {
			return domain.Errorf(domain.ErrInvalidTransition, op,
				"only disputed orders can be refunded, order %s is %s", o.ID, o.Status)
		}
		if out.tx, err = s.refund(ctx, q, &o); err != nil {
			return err
		}
		o.Status = domain.StatusRefunded
		if err := q.UpdateOrder(ctx, &o); err != nil {
			return err
		}
		out.order = o
		return q.InsertAuditLog(ctx, transitionAudit(domain.RoleAdmin, out))
	})
	s.record(out.from, domain.StatusRefunded, err)
	if err != nil {
		s.log.Warn("refund rejected", "order_id", orderID, "error", err)
		return nil, err
	}
	s.log.Info("order refunded", "order_id", orderID, "posted", out.tx != nil)
	s.afterCommit(ctx, out)
	return out.tx, nil
}

// CloseDispute resolves a dispute in the seller's favour: disputed → completed
// with no ledger effect. A payout made before the dispute stands.
func (s *Service) CloseDispute(ctx context.Context, orderID uuid.UUID) (domain.Order, error) {
	o, err := s.store.GetOrder(ctx, orderID, false)
	if err != nil {
		return domain.Order{}, err
	}
	if o.Status != domain.StatusDisputed {
		return domain.Order{}, domain.Errorf(domain.ErrInvalidTransition, "close dispute",
			"order %s is %s, not disputed", o.ID, o.Status)
	}
	return s.TransitionOrder(ctx, orderID, domain.StatusCompleted, domain.RoleAdmin)
}

func (s *Service) record(from, to domain.OrderStatus, err error) {
	f := string(from)
	if f == "" {
		f = "unknown"
	}
	observability.OrderTransitions.WithLabelValues(f, string(to), observability.ResultLabel(err)).Inc()
}

// transitionAudit describes a status change. Refunds get their own action.
func transitionAudit(actor domain.Role, out outcome) domain.AuditLog {
	action := domain.AuditOrderStatusUpdated
	if out.order.Status == domain.StatusRefunded {
		action = domain.AuditOrderRefunded
	}
	meta := map[string]string{
		"order_id": out.order.ID.String(),
		"from":     string(out.from),
		"status":   string(out.order.Status),
	}
	if out.tx != nil {
		meta["reference"] = out.tx.Reference
	}
	return domain.NewAuditLog(nil, actor, action, meta)
}

// ─── After Commit ───────────────────────────────────────────────────────────

func (s *Service) committed() {
	for _, fn := range s.hooks {
		fn()
	}
}

func (s *Service) afterCommit(ctx context.Context, out outcome) {
	o := out.order
	if out.tx != nil && s.ledger != nil {
		s.ledger.Committed()
	}
	s.committed()
	if out.split != nil && out.split.Commission > 0 {
		observability.CommissionCollected.WithLabelValues(o.Currency).Add(float64(out.split.Commission))
	}
	if o.Status == domain.StatusRefunded {
		observability.Refunds.WithLabelValues(string(out.payout)).Inc()
	}
	if s.notifier == nil {
		return
	}

	switch o.Status {
	case domain.StatusRefunded:
		s.notify(ctx, o.BuyerID, "Refund issued",
			fmt.Sprintf("Order %s was refunded: %s.", o.ID, formatAmount(o.Total, o.Currency)))
	default:
		s.notify(ctx, o.BuyerID, "Order "+string(o.Status),
			fmt.Sprintf("Order %s is now %s.", o.ID, o.Status))
	}
	if out.split != nil {
		for _, sh := range out.split.Sellers {
			s.notify(ctx, sh.SellerID, "Payout received",
				fmt.Sprintf("Order %s paid out %s after %s commission.", o.ID,
					formatAmount(sh.Net, o.Currency), formatAmount(sh.Commission, o.Currency)))
		}
	}
}

func (s *Service) notify(ctx context.Context, userID uuid.UUID, title, msg string) {
	s.notifier.Notify(ctx, domain.Notification{UserID: userID, Title: title, Message: msg})
}

// formatAmount renders minor units as "KES 12.50".
func formatAmount(minor int64, currency string) string {
	return currency + " " + decimal.New(minor, -2).StringFixed(2)
}
