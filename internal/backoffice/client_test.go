package backoffice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/luizaugustom/montshop-desktop-sub000/internal/domain"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL, 2*time.Second, zap.NewNop())
}

func TestGetSaleNormalizesMoney(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sale/s-1", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{
			"id": "s-1",
			"total": "100,50",
			"items": [
				{"id": "si-1", "productId": "p-1", "quantity": 2, "unitPrice": "25.25", "product": {"name": "Shirt"}},
				{"id": "si-2", "productId": "p-2", "quantity": 1, "unitPrice": {"$numberDecimal": "50"}}
			],
			"exchanges": [{"id": "ex-1", "returnedItems": [{"saleItemId": "si-1", "productId": "p-1", "quantity": 1}]}]
		}`))
	})

	sale, err := c.GetSale(WithToken(context.Background(), "tok"), "s-1")
	require.NoError(t, err)
	assert.Equal(t, 100.5, sale.Total)
	require.Len(t, sale.Items, 2)
	assert.Equal(t, 25.25, sale.Items[0].UnitPrice)
	assert.Equal(t, "Shirt", sale.Items[0].ProductName)
	assert.Equal(t, 50.0, sale.Items[1].UnitPrice)
	require.Len(t, sale.Exchanges, 1)
	assert.Equal(t, 1, sale.Exchanges[0].ReturnedItems[0].Quantity)
}

func TestMalformedMoneyIsLoggedAndZeroed(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"s-1","items":[{"id":"si-1","productId":"p","quantity":1,"unitPrice":"abc"}]}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, zap.New(core))
	sale, err := c.GetSale(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Zero(t, sale.Items[0].UnitPrice)
	assert.Equal(t, 1, logs.FilterMessage("malformed monetary value, using zero").Len())
}

func TestSearchProductsAcceptsBothShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"paged", `{"products":[{"id":"p-1","name":"Hat","price":15.5,"stockQuantity":4}],"total":9,"page":2,"limit":1}`},
		{"data", `{"data":[{"id":"p-1","name":"Hat","price":"15.50","stockQuantity":"4"}],"total":9,"page":2,"limit":1}`},
		{"array", `[{"id":"p-1","name":"Hat","price":15.5,"stockQuantity":4}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "hat", r.URL.Query().Get("search"))
				assert.Equal(t, "2", r.URL.Query().Get("page"))
				_, _ = w.Write([]byte(tt.body))
			})
			page, err := c.SearchProducts(context.Background(), domain.ProductQuery{Search: " hat ", Page: 2, Limit: 1})
			require.NoError(t, err)
			require.Len(t, page.Products, 1)
			assert.Equal(t, domain.Product{ID: "p-1", Name: "Hat", Price: 15.5, StockQuantity: 4}, page.Products[0])
			assert.Equal(t, 2, page.Page)
		})
	}
}

func TestSubmitExchangeSendsCamelCase(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/sale/exchange", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "s-1", body["originalSaleId"])
		assert.Equal(t, true, body["issueStoreCredit"])
		assert.NotContains(t, body, "payments")
		refunds := body["refunds"].([]any)
		assert.Equal(t, "cash", refunds[0].(map[string]any)["method"])
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"ex-9","storeCreditAmount":"40.00"}`))
	})

	issue := true
	res, err := c.SubmitExchange(context.Background(), domain.ExchangeRequest{
		OriginalSaleID:   "s-1",
		Reason:           "defeito",
		ReturnedItems:    []domain.ReturnedItem{{SaleItemID: "si-1", ProductID: "p-1", Quantity: 1}},
		Refunds:          []domain.RefundEntry{{ID: "ref-1", Method: domain.MethodCash, Amount: 20}},
		IssueStoreCredit: &issue,
	})
	require.NoError(t, err)
	assert.Equal(t, "ex-9", res.ID)
	assert.Equal(t, 40.0, res.StoreCreditAmount)
}

func TestRejectionBecomesBusinessRuleError(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"string message", http.StatusBadRequest, `{"message":"Valor excede o saldo da parcela"}`, "Valor excede o saldo da parcela"},
		{"list message", http.StatusBadRequest, `{"message":["id must be a UUID","amount must be positive"]}`, "id must be a UUID; amount must be positive"},
		{"no body", http.StatusConflict, ``, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.PayInstallment(context.Background(), "i-1", domain.InstallmentPaymentRequest{Amount: 10, PaymentMethod: domain.MethodCash})
			brErr, ok := domain.AsBusinessRule(err)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, tt.status, brErr.Status)
			assert.Equal(t, tt.message, brErr.Message)
			if tt.message == "" {
				assert.Equal(t, domain.GenericBusinessRuleReason, brErr.Error())
			}
		})
	}
}

func TestServerFailureIsNetworkError(t *testing.T) {
	for _, status := range []int{http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
				_, _ = w.Write([]byte(`{"message":"upstream exploded"}`))
			})
			_, err := c.PayInstallment(context.Background(), "i-1", domain.InstallmentPaymentRequest{Amount: 10, PaymentMethod: domain.MethodCash})
			netErr, ok := domain.AsNetwork(err)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, "POST /installment/i-1/pay", netErr.Op)
			_, rejected := domain.AsBusinessRule(err)
			assert.False(t, rejected)
		})
	}
}

func TestUnreachableServerIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(url, time.Second, nil)
	_, err := c.DebtSummary(context.Background(), "c-1")
	netErr, ok := domain.AsNetwork(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, "GET /customer/c-1/debt-summary", netErr.Op)
}

func TestDebtSummaryAndBulkPayment(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/customer/c-1/debt-summary":
			_, _ = w.Write([]byte(`{"totalDebt":"75.5","totalInstallments":2,"overdueInstallments":1,"overdueAmount":30,
				"installments":[
					{"id":"i-1","amount":30,"remainingAmount":"30.00","dueDate":"2026-01-10","installmentNumber":1,"totalInstallments":2},
					{"id":"i-2","amount":50,"remainingAmount":45.5,"dueDate":"2026-02-10T00:00:00.000Z","installmentNumber":2,"totalInstallments":2}
				]}`))
		case "/installment/customer/c-1/pay-bulk":
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "pix", body["paymentMethod"])
			assert.Equal(t, true, body["payAll"])
			_, _ = w.Write([]byte(`{"paidInstallments":2,"totalPaid":"75.50"}`))
		default:
			http.NotFound(w, r)
		}
	})

	summary, err := c.DebtSummary(context.Background(), "c-1")
	require.NoError(t, err)
	assert.Equal(t, "c-1", summary.CustomerID)
	assert.Equal(t, 75.5, summary.TotalDebt)
	require.Len(t, summary.Installments, 2)
	assert.Equal(t, 30.0, summary.Installments[0].RemainingAmount)
	assert.Equal(t, 2026, summary.Installments[1].DueDate.Year())

	res, err := c.PayBulk(context.Background(), "c-1", domain.BulkPaymentRequest{PaymentMethod: domain.MethodPix, PayAll: true})
	require.NoError(t, err)
	assert.Equal(t, 2, res.PaidInstallments)
	assert.Equal(t, 75.5, res.TotalPaid)
}

func TestStoreCreditVoucher(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sale/exchange/ex-1/store-credit-voucher", r.URL.Path)
		_, _ = w.Write([]byte(`{"content":"VALE TROCA","storeCreditAmount":"40.00"}`))
	})
	v, err := c.StoreCreditVoucher(context.Background(), "ex-1")
	require.NoError(t, err)
	assert.Equal(t, "ex-1", v.ExchangeID)
	assert.Equal(t, "VALE TROCA", v.Content)
	assert.Equal(t, 40.0, v.StoreCreditAmount)
}

func TestMalformedBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"content": 12`))
	})
	_, err := c.StoreCreditVoucher(context.Background(), "ex-1")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}
