package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ─── Commission Calculator ──────────────────────────────────────────────────
// Pure arithmetic. No float ever touches an amount: the rate is a decimal and
// the platform share is rounded half-up to a whole minor unit.

// Split is the division of an amount between the seller and the platform.
type Split struct {
	Seller   int64 `json:"seller"`
	Platform int64 `json:"platform"`
}

var one = decimal.NewFromInt(1)

// ParseRate parses a commission rate such as "0.10".
func ParseRate(s string) (decimal.Decimal, error) {
	r, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, Wrap(ErrValidation, "parse commission rate", err)
	}
	if err := checkRate(r); err != nil {
		return decimal.Zero, err
	}
	return r, nil
}

func checkRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(one) {
		return Errorf(ErrValidation, "commission", "rate %s outside [0, 1]", rate)
	}
	return nil
}

// ComputeSplit divides total into seller and platform shares.
// Seller + Platform == total for every valid input.
func ComputeSplit(total int64, rate decimal.Decimal) (Split, error) {
	if total < 0 {
		return Split{}, Errorf(ErrValidation, "commission", "total must not be negative, got %d", total)
	}
	if err := checkRate(rate); err != nil {
		return Split{}, err
	}
	platform := decimal.NewFromInt(total).Mul(rate).Round(0).IntPart()
	return Split{Seller: total - platform, Platform: platform}, nil
}

// SellerShare is one seller's part of an order payout.
type SellerShare struct {
	SellerID   uuid.UUID `json:"seller_id"`
	Gross      int64     `json:"gross"`
	Commission int64     `json:"commission"`
	Net        int64     `json:"net"`
}

// OrderSplit is the full payout plan of an order.
type OrderSplit struct {
	Sellers    []SellerShare `json:"sellers"`
	Commission int64         `json:"commission"`
}

// SplitOrder computes the commission per seller from item attribution.
// The net shares plus the total commission always add back up to total.
func SplitOrder(items []OrderItem, total int64, rate decimal.Decimal) (OrderSplit, error) {
	if len(items) == 0 {
		return OrderSplit{}, Errorf(ErrValidation, "split order", "order has no items")
	}
	if sum := ItemsTotal(items); sum != total {
		return OrderSplit{}, Errorf(ErrValidation, "split order", "order total %d does not match item subtotals %d", total, sum)
	}
	var out OrderSplit
	for _, sa := range SellerTotals(items) {
		s, err := ComputeSplit(sa.Amount, rate)
		if err != nil {
			return OrderSplit{}, err
		}
		out.Sellers = append(out.Sellers, SellerShare{
			SellerID:   sa.SellerID,
			Gross:      sa.Amount,
			Commission: s.Platform,
			Net:        s.Seller,
		})
		out.Commission += s.Platform
	}
	return out, nil
}
