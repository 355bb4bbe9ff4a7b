package installment

import (
	"strings"

	"github.com/luizaugustom/montshop-desktop-sub000/internal/domain"
	"github.com/luizaugustom/montshop-desktop-sub000/internal/money"
)

// Allocations lists the selected entries with a positive amount, in the
// order the installments were seeded.
func (s Selection) Allocations() []domain.InstallmentAllocation {
	out := []domain.InstallmentAllocation{}
	for _, id := range s.order {
		e := s.entries[id]
		if e.Selected && e.Amount > 0 {
			out = append(out, domain.InstallmentAllocation{InstallmentID: id, Amount: e.Amount})
		}
	}
	return out
}

func checkMethod(method domain.PaymentMethod) error {
	if !method.SettlesInstallments() {
		return domain.NewValidationError(domain.CodeInvalidPaymentMethod, "payment method %q cannot be used to pay installments", method)
	}
	return nil
}

// BuildPayload assembles an itemized bulk payment. It fails when nothing is
// selected or the selected total is not positive.
func (s Selection) BuildPayload(method domain.PaymentMethod, notes string) (domain.BulkPaymentRequest, error) {
	if err := checkMethod(method); err != nil {
		return domain.BulkPaymentRequest{}, err
	}
	allocations := s.Allocations()
	if len(allocations) == 0 {
		return domain.BulkPaymentRequest{}, domain.NewValidationError(domain.CodeEmptySelection, "select at least one installment with an amount to pay")
	}
	if total := s.Totals().TotalToPay; total <= 0 {
		return domain.BulkPaymentRequest{}, domain.NewValidationError(domain.CodeNonPositiveTotal, "the total to pay must be greater than zero")
	}
	return domain.BulkPaymentRequest{
		PaymentMethod: method,
		Notes:         strings.TrimSpace(notes),
		Installments:  allocations,
	}, nil
}

// PayAll builds the shortcut payment that settles every open installment.
// The shop service computes the amounts.
func (s Selection) PayAll(method domain.PaymentMethod, notes string) (domain.BulkPaymentRequest, error) {
	if err := checkMethod(method); err != nil {
		return domain.BulkPaymentRequest{}, err
	}
	if s.Len() == 0 {
		return domain.BulkPaymentRequest{}, domain.NewValidationError(domain.CodeNoOpenInstallments, "the customer has no open installments")
	}
	return domain.BulkPaymentRequest{
		PaymentMethod: method,
		Notes:         strings.TrimSpace(notes),
		PayAll:        true,
	}, nil
}

// SinglePayment validates a payment against one installment. The remaining
// balance is checked by the shop service.
func SinglePayment(amount float64, method domain.PaymentMethod, notes string) (domain.InstallmentPaymentRequest, error) {
	if err := checkMethod(method); err != nil {
		return domain.InstallmentPaymentRequest{}, err
	}
	if !money.Positive(amount) {
		return domain.InstallmentPaymentRequest{}, domain.NewValidationError(domain.CodeInvalidAmount, "the amount must be greater than zero")
	}
	return domain.InstallmentPaymentRequest{
		Amount:        money.Round(amount),
		PaymentMethod: method,
		Notes:         strings.TrimSpace(notes),
	}, nil
}
