package exchange

import (
	"math"

	"github.com/luizaugustom/montshop-desktop-sub000/internal/domain"
	"github.com/luizaugustom/montshop-desktop-sub000/internal/money"
)

type Direction string

const (
	DirectionReceive Direction = "receive"
	DirectionRefund  Direction = "refund"
	DirectionNeutral Direction = "neutral"
)

// DirectionOf classifies a valuation difference. Anything within one cent of
// zero is neutral.
func DirectionOf(difference float64) Direction {
	d := money.Round(difference)
	switch {
	case d > money.Tolerance:
		return DirectionReceive
	case d < -money.Tolerance:
		return DirectionRefund
	default:
		return DirectionNeutral
	}
}

type SettlementInput struct {
	Difference       float64
	Payments         []domain.PaymentEntry
	Refunds          []domain.RefundEntry
	IssueStoreCredit bool
}

type Settlement struct {
	Direction        Direction `json:"direction"`
	AmountToReceive  float64   `json:"amount_to_receive"`
	AmountToRefund   float64   `json:"amount_to_refund"`
	PaymentsTotal    float64   `json:"payments_total"`
	RefundsTotal     float64   `json:"refunds_total"`
	StoreCredit      float64   `json:"store_credit"`
	IssueStoreCredit bool      `json:"issue_store_credit"`
}

// Settle checks the instruments against the difference and returns the
// resulting settlement. The returned Settlement is filled in even when the
// error is non-nil so callers can show a preview.
func Settle(in SettlementInput) (Settlement, error) {
	s := Settlement{
		Direction:     DirectionOf(in.Difference),
		PaymentsTotal: totalOf(in.Payments),
		RefundsTotal:  totalOf(in.Refunds),
	}

	switch s.Direction {
	case DirectionReceive:
		s.AmountToReceive = money.Round(in.Difference)
		if err := checkEntries(in.Payments, "payment"); err != nil {
			return s, err
		}
		if len(in.Payments) == 0 {
			return s, domain.NewValidationError(domain.CodePaymentsRequired,
				"the customer must pay %s; add at least one payment", money.Format(s.AmountToReceive))
		}
		if !money.Equal(s.PaymentsTotal, s.AmountToReceive) {
			return s, domain.NewValidationError(domain.CodePaymentsMismatch,
				"payments total %s but %s is required", money.Format(s.PaymentsTotal), money.Format(s.AmountToReceive))
		}
		return s, nil

	case DirectionRefund:
		s.AmountToRefund = money.Round(-in.Difference)
		s.IssueStoreCredit = in.IssueStoreCredit
		if err := checkEntries(in.Refunds, "refund"); err != nil {
			return s, err
		}
		if in.IssueStoreCredit {
			if s.RefundsTotal > s.AmountToRefund {
				return s, domain.NewValidationError(domain.CodeRefundsExceedCredit,
					"refunds total %s, more than the %s owed to the customer", money.Format(s.RefundsTotal), money.Format(s.AmountToRefund))
			}
			s.StoreCredit = money.Round(math.Max(0, money.Sub(s.AmountToRefund, s.RefundsTotal)))
			return s, nil
		}
		if len(in.Refunds) == 0 {
			return s, domain.NewValidationError(domain.CodeRefundsRequired,
				"%s must be refunded; add at least one refund or issue store credit", money.Format(s.AmountToRefund))
		}
		if !money.Equal(s.RefundsTotal, s.AmountToRefund) {
			return s, domain.NewValidationError(domain.CodeRefundsMismatch,
				"refunds total %s but %s is required", money.Format(s.RefundsTotal), money.Format(s.AmountToRefund))
		}
		return s, nil

	default:
		return s, nil
	}
}

func totalOf(entries []domain.PaymentEntry) float64 {
	amounts := make([]float64, len(entries))
	for i, e := range entries {
		amounts[i] = e.Amount
	}
	return money.Sum(amounts...)
}

func checkEntries(entries []domain.PaymentEntry, kind string) error {
	for _, e := range entries {
		if !e.Method.Valid() {
			return domain.NewValidationError(domain.CodeInvalidEntry, "%s method %q is not supported", kind, e.Method)
		}
		if e.Amount < 0 || math.IsNaN(e.Amount) || math.IsInf(e.Amount, 0) {
			return domain.NewValidationError(domain.CodeInvalidEntry, "%s amount must not be negative", kind)
		}
	}
	return nil
}
