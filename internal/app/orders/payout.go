package orders

import (
	"context"
	"fmt"

	"github.com/sokohub/soko/internal/app/accounts"
	"github.com/sokohub/soko/internal/app/ledger"
	"github.com/sokohub/soko/internal/domain"
)

// ─── Ledger Effects ─────────────────────────────────────────────────────────
// Both run on the caller's unit of work and mutate o in place; the caller
// persists o afterwards.

// payout posts ORDER-<id>: the buyer is debited the total, each seller is
// credited its gross less commission, the platform the summed commission.
func (s *Service) payout(ctx context.Context, q domain.Queries, o *domain.Order) (*domain.Transaction, *domain.OrderSplit, error) {
	const op = "order payout"
	if o.PayoutStatus != domain.PayoutNone {
		return nil, nil, domain.Errorf(domain.ErrConflict, op, "order %s payout is already %s", o.ID, o.PayoutStatus)
	}
	split, err := domain.SplitOrder(o.Items, o.Total, s.cfg.CommissionRate)
	if err != nil {
		return nil, nil, err
	}
	o.PayoutStatus = domain.PayoutPaid
	if o.Total == 0 {
		return nil, &split, nil
	}

	buyer, err := q.FindAccount(ctx, domain.OwnerUser, &o.BuyerID, o.Currency)
	if err != nil {
		return nil, nil, err
	}
	lines := []domain.EntryLine{{AccountID: buyer.ID, Amount: -o.Total}}
	for _, sh := range split.Sellers {
		if sh.Net == 0 {
			continue
		}
		seller, err := q.FindAccount(ctx, domain.OwnerUser, &sh.SellerID, o.Currency)
		if err != nil {
			return nil, nil, err
		}
		lines = append(lines, domain.EntryLine{AccountID: seller.ID, Amount: sh.Net})
	}
	if split.Commission > 0 {
		platform, err := accounts.Platform(ctx, q, o.Currency)
		if err != nil {
			return nil, nil, err
		}
		lines = append(lines, domain.EntryLine{AccountID: platform.ID, Amount: split.Commission})
	}

	tx, err := ledger.Post(ctx, q, domain.OrderReference(o.ID),
		fmt.Sprintf("payout for order %s", o.ID), lines)
	if err != nil {
		return nil, nil, err
	}
	return &tx, &split, nil
}

// refund posts REFUND-<id> when the sellers were paid: each seller is debited
// its gross subtotal and the buyer is credited the total. The platform keeps
// its commission. An unpaid order has nothing to claw back.
func (s *Service) refund(ctx context.Context, q domain.Queries, o *domain.Order) (*domain.Transaction, error) {
	if o.PayoutStatus != domain.PayoutPaid || o.Total == 0 {
		return nil, nil
	}
	if sum := domain.ItemsTotal(o.Items); sum != o.Total {
		return nil, domain.Errorf(domain.ErrValidation, "refund order",
			"order total %d does not match item subtotals %d", o.Total, sum)
	}

	var lines []domain.EntryLine
	for _, sa := range domain.SellerTotals(o.Items) {
		if sa.Amount == 0 {
			continue
		}
		seller, err := q.FindAccount(ctx, domain.OwnerUser, &sa.SellerID, o.Currency)
		if err != nil {
			return nil, err
		}
		lines = append(lines, domain.EntryLine{AccountID: seller.ID, Amount: -sa.Amount})
	}
	buyer, err := q.FindAccount(ctx, domain.OwnerUser, &o.BuyerID, o.Currency)
	if err != nil {
		return nil, err
	}
	lines = append(lines, domain.EntryLine{AccountID: buyer.ID, Amount: o.Total})

	tx, err := ledger.Post(ctx, q, domain.RefundReference(o.ID),
		fmt.Sprintf("refund for order %s", o.ID), lines)
	if err != nil {
		return nil, err
	}
	o.PayoutStatus = domain.PayoutReversed
	return &tx, nil
}
