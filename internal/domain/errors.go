package domain

import (
	"errors"
	"fmt"
)

// Validation codes reported by the local checks that run before any request
// reaches the shop service.
const (
	CodeNoItemsReturned       = "no_items_returned"
	CodeReasonTooShort        = "reason_too_short"
	CodePaymentsRequired      = "payments_required"
	CodePaymentsMismatch      = "payments_mismatch"
	CodeRefundsRequired       = "refunds_required"
	CodeRefundsMismatch       = "refunds_mismatch"
	CodeRefundsExceedCredit   = "refunds_exceed_credit"
	CodeInvalidEntry          = "invalid_payment_entry"
	CodeEmptySelection        = "empty_selection"
	CodeNonPositiveTotal      = "non_positive_total"
	CodeInvalidPaymentMethod  = "invalid_payment_method"
	CodeInvalidAmount         = "invalid_amount"
	CodeNoOpenInstallments    = "no_open_installments"
	CodeManagerPINRequired    = "manager_pin_required"
	CodeUnknownSaleItem       = "unknown_sale_item"
	CodeUnknownInstallment    = "unknown_installment"
	CodeInvalidNewItem        = "invalid_new_item"
	CodeMissingIdentifier     = "missing_identifier"
	GenericBusinessRuleReason = "the operation was rejected by the shop service"
	GenericNetworkReason      = "shop service unavailable, try again"
)

// ValidationError is a client-local rejection. It blocks submission and is
// never sent to the network.
type ValidationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(code string, format string, args ...any) *ValidationError {
	return &ValidationError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NetworkError means the request to the shop service could not complete.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// BusinessRuleError is a rejection decided by the shop service after the
// request was delivered.
type BusinessRuleError struct {
	Status  int
	Message string
}

func (e *BusinessRuleError) Error() string {
	if e.Message == "" {
		return GenericBusinessRuleReason
	}
	return e.Message
}

func AsValidation(err error) (*ValidationError, bool) {
	var target *ValidationError
	ok := errors.As(err, &target)
	return target, ok
}

func AsNetwork(err error) (*NetworkError, bool) {
	var target *NetworkError
	ok := errors.As(err, &target)
	return target, ok
}

func AsBusinessRule(err error) (*BusinessRuleError, bool) {
	var target *BusinessRuleError
	ok := errors.As(err, &target)
	return target, ok
}
