package session_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/luizaugustom/montshop-desktop-sub000/internal/domain"
	"github.com/luizaugustom/montshop-desktop-sub000/internal/exchange"
	"github.com/luizaugustom/montshop-desktop-sub000/internal/session"
	"github.com/luizaugustom/montshop-desktop-sub000/internal/session/mocks"
)

func sale() domain.Sale {
	return domain.Sale{
		ID: "s-1",
		Items: []domain.SaleItem{
			{ID: "si-1", ProductID: "p-1", Quantity: 2, UnitPrice: 50},
		},
	}
}

func debtSummary() domain.CustomerDebtSummary {
	return domain.CustomerDebtSummary{
		CustomerID: "c-1",
		TotalDebt:  75.5,
		Installments: []domain.Installment{
			{ID: "i-1", Amount: 30, RemainingAmount: 30, InstallmentNumber: 1, TotalInstallments: 2},
			{ID: "i-2", Amount: 50, RemainingAmount: 45.5, InstallmentNumber: 2, TotalInstallments: 2},
		},
	}
}

func strPtr(s string) *string { return &s }
func boolPtr(b bool) *bool    { return &b }

func openExchange(t *testing.T, api *mocks.MockShopAPI) (*session.Registry, *session.ExchangeSession) {
	t.Helper()
	api.EXPECT().GetSale(gomock.Any(), "s-1").Return(sale(), nil)
	reg := session.NewRegistry(api, time.Minute, zap.NewNop())
	s, err := reg.OpenExchange(context.Background(), "ana", "s-1")
	require.NoError(t, err)
	_, err = s.Apply(session.ExchangeEdit{
		ReturnQuantities: map[string]int{"si-1": 1},
		Reason:           strPtr("wrong size"),
		IssueStoreCredit: boolPtr(true),
	})
	require.NoError(t, err)
	return reg, s
}

func TestExchangeSubmitSuccess(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	api := mocks.NewMockShopAPI(ctrl)
	_, s := openExchange(t, api)

	api.EXPECT().SubmitExchange(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req domain.ExchangeRequest) (domain.ExchangeResult, error) {
			assert.Equal(t, "s-1", req.OriginalSaleID)
			require.NotNil(t, req.IssueStoreCredit)
			return domain.ExchangeResult{ID: "ex-1", StoreCreditAmount: 50}, nil
		})

	var seen exchange.Settlement
	res, settlement, err := s.Submit(context.Background(), func(st exchange.Settlement) error {
		seen = st
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ex-1", res.ID)
	assert.Equal(t, 50.0, settlement.StoreCredit)
	assert.Equal(t, exchange.DirectionRefund, seen.Direction)

	_, _, err = s.Submit(context.Background(), nil)
	assert.ErrorIs(t, err, session.ErrCompleted)
}

func TestExchangeValidationNeverReachesNetwork(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	api := mocks.NewMockShopAPI(ctrl)
	_, s := openExchange(t, api)

	_, err := s.Apply(session.ExchangeEdit{Reason: strPtr("no")})
	require.NoError(t, err)
	_, _, err = s.Submit(context.Background(), nil)
	verr, ok := domain.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeReasonTooShort, verr.Code)
}

func TestExchangeAuthorizerBlocks(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	api := mocks.NewMockShopAPI(ctrl)
	_, s := openExchange(t, api)

	denied := errors.New("denied")
	_, _, err := s.Submit(context.Background(), func(exchange.Settlement) error { return denied })
	assert.ErrorIs(t, err, denied)
	assert.False(t, s.View().Submitting)
}

func TestExchangeApplyIsAtomic(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	api := mocks.NewMockShopAPI(ctrl)
	_, s := openExchange(t, api)

	_, err := s.Apply(session.ExchangeEdit{
		Note:              strPtr("changed"),
		NewItemQuantities: map[string]int{"p-missing": 2},
	})
	require.Error(t, err)
	assert.Empty(t, s.View().Note)
}

func TestExchangeViewReportsPreview(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	api := mocks.NewMockShopAPI(ctrl)
	_, s := openExchange(t, api)

	view, err := s.Apply(session.ExchangeEdit{
		IssueStoreCredit: boolPtr(false),
		AddItems:         []session.NewItemInput{{Product: domain.Product{ID: "p-9", Price: 20}, Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, 50.0, view.Valuation.ReturnedTotal)
	assert.Equal(t, -30.0, view.Valuation.Difference)
	require.NotNil(t, view.Validation)
	assert.Equal(t, domain.CodeRefundsRequired, view.Validation.Code)
	assert.Equal(t, 2, view.Items[0].Available)
	assert.Equal(t, 1, view.Items[0].ReturnQuantity)
}

func TestExchangeInFlightGuardAndClose(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	api := mocks.NewMockShopAPI(ctrl)
	reg, s := openExchange(t, api)

	started := make(chan struct{})
	release := make(chan struct{})
	api.EXPECT().SubmitExchange(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, domain.ExchangeRequest) (domain.ExchangeResult, error) {
			close(started)
			<-release
			return domain.ExchangeResult{ID: "ex-late"}, nil
		})

	done := make(chan error, 1)
	go func() {
		_, _, err := s.Submit(context.Background(), nil)
		done <- err
	}()
	<-started

	_, _, err := s.Submit(context.Background(), nil)
	assert.ErrorIs(t, err, session.ErrSubmissionInFlight)
	_, err = s.Apply(session.ExchangeEdit{Note: strPtr("x")})
	assert.ErrorIs(t, err, session.ErrSubmissionInFlight)
	assert.True(t, s.View().Submitting)

	require.NoError(t, reg.CloseExchange(s.ID()))
	close(release)
	assert.ErrorIs(t, <-done, session.ErrResponseDiscarded)
	assert.Nil(t, s.View().Result)

	_, err = reg.Exchange(s.ID())
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestExchangeSubmitAfterCloseSkipsNetwork(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	api := mocks.NewMockShopAPI(ctrl)
	reg, s := openExchange(t, api)

	require.NoError(t, reg.CloseExchange(s.ID()))
	_, _, err := s.Submit(context.Background(), nil)
	assert.ErrorIs(t, err, session.ErrClosed)
	assert.NotErrorIs(t, err, session.ErrResponseDiscarded)
}

func TestExchangeRejectionReseeds(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	api := mocks.NewMockShopAPI(ctrl)
	_, s := openExchange(t, api)

	fresh := sale()
	fresh.Exchanges = []domain.SaleExchange{{ID: "ex-other", ReturnedItems: []domain.ReturnedItem{{SaleItemID: "si-1", Quantity: 2}}}}
	gomock.InOrder(
		api.EXPECT().SubmitExchange(gomock.Any(), gomock.Any()).
			Return(domain.ExchangeResult{}, &domain.BusinessRuleError{Status: 400, Message: "item already returned"}),
		api.EXPECT().GetSale(gomock.Any(), "s-1").Return(fresh, nil),
	)

	_, _, err := s.Submit(context.Background(), nil)
	brErr, ok := domain.AsBusinessRule(err)
	require.True(t, ok)
	assert.Equal(t, "item already returned", brErr.Message)

	view := s.View()
	assert.Equal(t, 0, view.Items[0].Available)
	assert.Equal(t, 0, view.Items[0].ReturnQuantity)
	assert.False(t, view.Submitting)
	assert.Equal(t, "wrong size", view.Reason)
}

func TestExchangeNetworkErrorKeepsState(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	api := mocks.NewMockShopAPI(ctrl)
	_, s := openExchange(t, api)

	api.EXPECT().SubmitExchange(gomock.Any(), gomock.Any()).
		Return(domain.ExchangeResult{}, &domain.NetworkError{Op: "POST /sale/exchange", Err: errors.New("connection refused")})

	_, _, err := s.Submit(context.Background(), nil)
	_, ok := domain.AsNetwork(err)
	require.True(t, ok)
	assert.Equal(t, 1, s.View().Items[0].ReturnQuantity)

	_, err = s.Apply(session.ExchangeEdit{Note: strPtr("retry")})
	assert.NoError(t, err)
}

func openDebt(t *testing.T, api *mocks.MockShopAPI) (*session.Registry, *session.DebtSession) {
	t.Helper()
	api.EXPECT().DebtSummary(gomock.Any(), "c-1").Return(debtSummary(), nil)
	reg := session.NewRegistry(api, time.Minute, zap.NewNop())
	s, err := reg.OpenDebt(context.Background(), "ana", "c-1")
	require.NoError(t, err)
	return reg, s
}

func TestDebtTransitions(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	api := mocks.NewMockShopAPI(ctrl)
	_, s := openDebt(t, api)

	view := s.View()
	assert.Equal(t, 75.5, view.Totals.TotalToPay)
	assert.Len(t, view.Installments, 2)

	view, err := s.Toggle("i-1")
	require.NoError(t, err)
	assert.Equal(t, 45.5, view.Totals.TotalToPay)

	view, err = s.SetAmount("i-2", 999)
	require.NoError(t, err)
	assert.Equal(t, 45.5, view.Installments[1].ToPay)

	view, err = s.Clear()
	require.NoError(t, err)
	assert.Zero(t, view.Totals.TotalToPay)
	assert.Zero(t, view.Totals.SelectedCount)

	view, err = s.SelectAll()
	require.NoError(t, err)
	assert.Equal(t, 75.5, view.Totals.TotalToPay)
}

func TestDebtSubmitItemized(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	api := mocks.NewMockShopAPI(ctrl)
	_, s := openDebt(t, api)

	_, err := s.SetAmount("i-2", 10)
	require.NoError(t, err)

	api.EXPECT().PayBulk(gomock.Any(), "c-1", domain.BulkPaymentRequest{
		PaymentMethod: domain.MethodCash,
		Installments: []domain.InstallmentAllocation{
			{InstallmentID: "i-1", Amount: 30},
			{InstallmentID: "i-2", Amount: 10},
		},
	}).Return(domain.BulkPaymentResult{PaidInstallments: 2, TotalPaid: 40}, nil)

	res, _, err := s.Submit(context.Background(), session.DebtSubmission{PaymentMethod: domain.MethodCash})
	require.NoError(t, err)
	assert.Equal(t, 40.0, res.TotalPaid)
	assert.NotNil(t, s.View().Result)
}

func TestDebtSubmitEmptySelection(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	api := mocks.NewMockShopAPI(ctrl)
	_, s := openDebt(t, api)

	_, err := s.Clear()
	require.NoError(t, err)
	_, _, err = s.Submit(context.Background(), session.DebtSubmission{PaymentMethod: domain.MethodPix})
	verr, ok := domain.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeEmptySelection, verr.Code)

	api.EXPECT().PayBulk(gomock.Any(), "c-1", domain.BulkPaymentRequest{PaymentMethod: domain.MethodPix, PayAll: true}).
		Return(domain.BulkPaymentResult{PaidInstallments: 2}, nil)
	_, req, err := s.Submit(context.Background(), session.DebtSubmission{PaymentMethod: domain.MethodPix, PayAll: true})
	require.NoError(t, err)
	assert.True(t, req.PayAll)
}

func TestDebtRejectionReconciles(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	api := mocks.NewMockShopAPI(ctrl)
	_, s := openDebt(t, api)

	fresh := debtSummary()
	fresh.Installments[0].RemainingAmount = 0
	fresh.Installments[1].RemainingAmount = 20
	gomock.InOrder(
		api.EXPECT().PayBulk(gomock.Any(), "c-1", gomock.Any()).
			Return(domain.BulkPaymentResult{}, &domain.BusinessRuleError{Status: 400, Message: "Valor excede o saldo"}),
		api.EXPECT().DebtSummary(gomock.Any(), "c-1").Return(fresh, nil),
	)

	_, _, err := s.Submit(context.Background(), session.DebtSubmission{PaymentMethod: domain.MethodCash})
	require.Error(t, err)

	view := s.View()
	require.Len(t, view.Installments, 1)
	assert.Equal(t, 20.0, view.Totals.TotalToPay)
	assert.False(t, view.Submitting)
}

func TestOpenRequiresIdentifier(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	reg := session.NewRegistry(mocks.NewMockShopAPI(ctrl), time.Minute, nil)

	_, err := reg.OpenExchange(context.Background(), "ana", "  ")
	_, ok := domain.AsValidation(err)
	assert.True(t, ok)
	_, err = reg.OpenDebt(context.Background(), "ana", "")
	_, ok = domain.AsValidation(err)
	assert.True(t, ok)
}
