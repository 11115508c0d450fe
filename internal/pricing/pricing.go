// Package pricing holds the money math for offers, orders and refunds. All
// functions are pure; callers supply "today" so results are deterministic.
package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)

	DefaultPlatformFeeRate = decimal.RequireFromString("0.05")
	DefaultGSTRate         = decimal.RequireFromString("0.18")
	DefaultTokenRate       = decimal.RequireFromString("0.25")
)

// Rates are the fractions applied on top of an agreed price.
type Rates struct {
	PlatformFee decimal.Decimal
	GST         decimal.Decimal
	Token       decimal.Decimal
}

// DefaultRates returns 5% platform fee, 18% GST and a 25% token.
func DefaultRates() Rates {
	return Rates{
		PlatformFee: DefaultPlatformFeeRate,
		GST:         DefaultGSTRate,
		Token:       DefaultTokenRate,
	}
}

// Totals is the price breakdown written onto an order at creation.
type Totals struct {
	Subtotal    decimal.Decimal
	Discount    decimal.Decimal
	PlatformFee decimal.Decimal
	GST         decimal.Decimal
	Total       decimal.Decimal
	Token       decimal.Decimal
}

// Round2 rounds half away from zero to two decimals.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Round0 rounds half away from zero to a whole amount.
func Round0(d decimal.Decimal) decimal.Decimal {
	return d.Round(0)
}

// Breakdown computes order totals for an agreed price. The discount is
// informational and never subtracted again: the agreed price already reflects it.
func (r Rates) Breakdown(agreed, original decimal.Decimal) Totals {
	subtotal := Round2(agreed)
	discount := Round2(original.Sub(agreed))
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	fee := Round2(subtotal.Mul(r.PlatformFee))
	gst := Round2(subtotal.Mul(r.GST))
	total := subtotal.Add(fee).Add(gst)
	return Totals{
		Subtotal:    subtotal,
		Discount:    discount,
		PlatformFee: fee,
		GST:         gst,
		Total:       total,
		Token:       r.TokenAmount(total),
	}
}

// TokenAmount is the up-front share of the total, rounded to a whole unit.
func (r Rates) TokenAmount(total decimal.Decimal) decimal.Decimal {
	return Round0(total.Mul(r.Token))
}

// BalanceDue is total minus paid, floored at zero.
func BalanceDue(total, paid decimal.Decimal) decimal.Decimal {
	due := total.Sub(paid)
	if due.IsNegative() {
		return decimal.Zero
	}
	return due
}

// Today truncates now to a calendar date in loc, expressed as midnight UTC so
// it compares cleanly with DATE columns.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := now.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateOnly normalises a stored event date to midnight UTC.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysUntil counts whole calendar days from today to eventDate.
func DaysUntil(eventDate, today time.Time) int {
	return int(DateOnly(eventDate).Sub(DateOnly(today)).Hours() / 24)
}

// Refund policy labels surfaced to customers.
const (
	PolicyNoEventDate = "Full refund (no event date)"
	PolicyFull        = "Full refund (more than 30 days before event)"
	PolicyHalf        = "50% refund (15-30 days before event)"
	PolicyNone        = "No refund (less than 15 days before event)"
)

// Refund is the outcome of applying the cancellation tiers to a token amount.
type Refund struct {
	OriginalAmount decimal.Decimal
	RefundAmount   decimal.Decimal
	Percentage     int
	Policy         string
	DaysUntilEvent *int
}

// RefundFor applies the tiered refund policy:
// no date or more than 30 days out refunds 100%, 15 to 30 days refunds 50%,
// anything closer refunds nothing.
func RefundFor(amount decimal.Decimal, eventDate *time.Time, today time.Time) Refund {
	refund := Refund{OriginalAmount: amount}
	if eventDate == nil {
		refund.Percentage = 100
		refund.RefundAmount = amount
		refund.Policy = PolicyNoEventDate
		return refund
	}

	days := DaysUntil(*eventDate, today)
	refund.DaysUntilEvent = &days
	switch {
	case days > 30:
		refund.Percentage = 100
		refund.Policy = PolicyFull
	case days >= 15:
		refund.Percentage = 50
		refund.Policy = PolicyHalf
	default:
		refund.Percentage = 0
		refund.Policy = PolicyNone
	}
	refund.RefundAmount = Round2(amount.Mul(decimal.NewFromInt(int64(refund.Percentage))).Div(hundred))
	return refund
}
