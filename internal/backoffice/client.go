// Package backoffice is the HTTP client for the remote shop API that owns
// sales, products and installments.
package backoffice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/luizaugustom/montshop-desktop-sub000/internal/domain"
)

var ErrMalformedResponse = errors.New("malformed response from shop api")

const maxResponseBytes = 4 << 20

type tokenKey struct{}

// WithToken attaches the operator's bearer token to ctx. Every request made
// with that context forwards it.
func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey{}, token)
}

func tokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey{}).(string)
	return token
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger
}

func New(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger.Named("backoffice"),
	}
}

func (c *Client) GetSale(ctx context.Context, saleID string) (domain.Sale, error) {
	var w saleWire
	if err := c.do(ctx, http.MethodGet, "/sale/"+url.PathEscape(saleID), nil, &w); err != nil {
		return domain.Sale{}, err
	}
	return c.toSale(w), nil
}

func (c *Client) SearchProducts(ctx context.Context, q domain.ProductQuery) (domain.ProductPage, error) {
	params := url.Values{}
	if s := strings.TrimSpace(q.Search); s != "" {
		params.Set("search", s)
	}
	if q.Page > 0 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	path := "/product"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return domain.ProductPage{}, err
	}

	var page productPageWire
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := decode(trimmed, &page.Products); err != nil {
			return domain.ProductPage{}, err
		}
	} else if err := decode(trimmed, &page); err != nil {
		return domain.ProductPage{}, err
	}
	items := page.Products
	if len(items) == 0 {
		items = page.Data
	}

	out := domain.ProductPage{
		Products: make([]domain.Product, 0, len(items)),
		Page:     page.Page,
		Limit:    page.Limit,
		Total:    page.Total,
	}
	for _, p := range items {
		out.Products = append(out.Products, c.toProduct(p))
	}
	if out.Page == 0 {
		out.Page = max(q.Page, 1)
	}
	if out.Limit == 0 {
		out.Limit = q.Limit
	}
	if out.Total == 0 {
		out.Total = len(out.Products)
	}
	return out, nil
}

func (c *Client) SubmitExchange(ctx context.Context, req domain.ExchangeRequest) (domain.ExchangeResult, error) {
	var w exchangeResultWire
	if err := c.do(ctx, http.MethodPost, "/sale/exchange", fromExchangeRequest(req), &w); err != nil {
		return domain.ExchangeResult{}, err
	}
	return domain.ExchangeResult{
		ID:                w.ID,
		Status:            w.Status,
		StoreCreditAmount: c.amount("exchange.storeCreditAmount", w.StoreCreditAmount),
	}, nil
}

func (c *Client) StoreCreditVoucher(ctx context.Context, exchangeID string) (domain.StoreCreditVoucher, error) {
	var w voucherWire
	path := "/sale/exchange/" + url.PathEscape(exchangeID) + "/store-credit-voucher"
	if err := c.do(ctx, http.MethodGet, path, nil, &w); err != nil {
		return domain.StoreCreditVoucher{}, err
	}
	v := domain.StoreCreditVoucher{ExchangeID: exchangeID, Content: w.Content}
	if w.StoreCreditAmount != nil {
		v.StoreCreditAmount = c.amount("voucher.storeCreditAmount", w.StoreCreditAmount)
	}
	return v, nil
}

func (c *Client) DebtSummary(ctx context.Context, customerID string) (domain.CustomerDebtSummary, error) {
	var w debtSummaryWire
	if err := c.do(ctx, http.MethodGet, "/customer/"+url.PathEscape(customerID)+"/debt-summary", nil, &w); err != nil {
		return domain.CustomerDebtSummary{}, err
	}
	return c.toDebtSummary(customerID, w), nil
}

func (c *Client) PayBulk(ctx context.Context, customerID string, req domain.BulkPaymentRequest) (domain.BulkPaymentResult, error) {
	var w bulkResultWire
	path := "/installment/customer/" + url.PathEscape(customerID) + "/pay-bulk"
	if err := c.do(ctx, http.MethodPost, path, fromBulkPayment(req), &w); err != nil {
		return domain.BulkPaymentResult{}, err
	}
	return domain.BulkPaymentResult{
		PaidInstallments: w.PaidInstallments,
		TotalPaid:        c.amount("bulk.totalPaid", w.TotalPaid),
		Message:          w.Message,
	}, nil
}

func (c *Client) PayInstallment(ctx context.Context, installmentID string, req domain.InstallmentPaymentRequest) (domain.InstallmentPaymentResult, error) {
	var w installmentPaymentWire
	body := installmentPayWire{Amount: req.Amount, PaymentMethod: string(req.PaymentMethod), Notes: req.Notes}
	if err := c.do(ctx, http.MethodPost, "/installment/"+url.PathEscape(installmentID)+"/pay", body, &w); err != nil {
		return domain.InstallmentPaymentResult{}, err
	}
	remaining := w.RemainingAmount
	if w.Installment != nil {
		remaining = w.Installment.RemainingAmount
	}
	return domain.InstallmentPaymentResult{
		InstallmentID:   installmentID,
		AmountPaid:      req.Amount,
		RemainingAmount: c.amount("installment.remainingAmount", remaining),
	}, nil
}

// do sends one request. Transport failures come back as *domain.NetworkError,
// non-2xx answers as *domain.BusinessRuleError.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	op := method + " " + strings.SplitN(path, "?", 2)[0]

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("error marshalling request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := tokenFrom(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("shop api unreachable", zap.String("op", op), zap.Error(err))
		return &domain.NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &domain.NetworkError{Op: op, Err: fmt.Errorf("error reading response: %w", err)}
	}
	c.logger.Debug("shop api call",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(started)),
	)

	if resp.StatusCode >= 500 {
		c.logger.Warn("shop api failed", zap.String("op", op), zap.Int("status", resp.StatusCode))
		return &domain.NetworkError{Op: op, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := remoteMessage(raw)
		c.logger.Info("shop api rejected request", zap.String("op", op), zap.Int("status", resp.StatusCode), zap.String("message", msg))
		return &domain.BusinessRuleError{Status: resp.StatusCode, Message: msg}
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	return decode(raw, out)
}

func decode(raw []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return nil
}
