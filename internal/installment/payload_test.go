package installment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luizaugustom/montshop-desktop-sub000/internal/domain"
)

func TestBuildPayload(t *testing.T) {
	s, err := New(installments()).SetAmount("i-2", 0)
	require.NoError(t, err)

	req, err := s.BuildPayload(domain.MethodPix, "  balcão ")
	require.NoError(t, err)
	assert.Equal(t, domain.MethodPix, req.PaymentMethod)
	assert.Equal(t, "balcão", req.Notes)
	assert.False(t, req.PayAll)
	assert.Equal(t, []domain.InstallmentAllocation{{InstallmentID: "i-1", Amount: 30}}, req.Installments)
}

func TestBuildPayloadRejectsEmptySelection(t *testing.T) {
	s := New(installments()).Clear()
	assert.Empty(t, s.Allocations())
	_, err := s.BuildPayload(domain.MethodCash, "")
	requireCode(t, err, domain.CodeEmptySelection)
}

func TestBuildPayloadRejectsMethod(t *testing.T) {
	for _, m := range []domain.PaymentMethod{domain.MethodInstallment, domain.MethodStoreCredit, "boleto"} {
		_, err := New(installments()).BuildPayload(m, "")
		requireCode(t, err, domain.CodeInvalidPaymentMethod)
	}
}

func TestPayAll(t *testing.T) {
	req, err := New(installments()).Clear().PayAll(domain.MethodCash, "")
	require.NoError(t, err)
	assert.True(t, req.PayAll)
	assert.Empty(t, req.Installments)

	_, err = New(nil).PayAll(domain.MethodCash, "")
	requireCode(t, err, domain.CodeNoOpenInstallments)
}

func TestSinglePayment(t *testing.T) {
	req, err := SinglePayment(12.499, domain.MethodDebitCard, "")
	require.NoError(t, err)
	assert.Equal(t, 12.5, req.Amount)

	_, err = SinglePayment(0.004, domain.MethodCash, "")
	requireCode(t, err, domain.CodeInvalidAmount)
}
