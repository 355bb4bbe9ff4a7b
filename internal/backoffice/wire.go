package backoffice

import (
	"encoding/json"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/luizaugustom/montshop-desktop-sub000/internal/domain"
	"github.com/luizaugustom/montshop-desktop-sub000/internal/money"
)

// Response bodies from the shop API. Monetary fields are decoded as any
// because the service sends numbers, numeric strings or decimal objects.

type saleItemWire struct {
	ID        string `json:"id"`
	ProductID string `json:"productId"`
	Product   *struct {
		Name string `json:"name"`
	} `json:"product,omitempty"`
	Quantity  int `json:"quantity"`
	UnitPrice any `json:"unitPrice"`
}

type returnedItemWire struct {
	SaleItemID string `json:"saleItemId"`
	ProductID  string `json:"productId"`
	Quantity   int    `json:"quantity"`
}

type saleWire struct {
	ID         string         `json:"id"`
	CustomerID string         `json:"customerId"`
	Total      any            `json:"total"`
	Items      []saleItemWire `json:"items"`
	Exchanges  []struct {
		ID            string             `json:"id"`
		ReturnedItems []returnedItemWire `json:"returnedItems"`
	} `json:"exchanges"`
}

type productWire struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Price         any    `json:"price"`
	StockQuantity any    `json:"stockQuantity"`
}

type productPageWire struct {
	Products []productWire `json:"products"`
	Data     []productWire `json:"data"`
	Total    int           `json:"total"`
	Page     int           `json:"page"`
	Limit    int           `json:"limit"`
}

type exchangeResultWire struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	StoreCreditAmount any    `json:"storeCreditAmount"`
}

type voucherWire struct {
	Content           string `json:"content"`
	StoreCreditAmount any    `json:"storeCreditAmount,omitempty"`
}

type installmentWire struct {
	ID                string `json:"id"`
	SaleID            string `json:"saleId"`
	Amount            any    `json:"amount"`
	RemainingAmount   any    `json:"remainingAmount"`
	DueDate           string `json:"dueDate"`
	InstallmentNumber int    `json:"installmentNumber"`
	TotalInstallments int    `json:"totalInstallments"`
}

type debtSummaryWire struct {
	CustomerID          string            `json:"customerId"`
	TotalDebt           any               `json:"totalDebt"`
	TotalInstallments   int               `json:"totalInstallments"`
	OverdueInstallments int               `json:"overdueInstallments"`
	OverdueAmount       any               `json:"overdueAmount"`
	Installments        []installmentWire `json:"installments"`
}

type bulkResultWire struct {
	PaidInstallments int    `json:"paidInstallments"`
	TotalPaid        any    `json:"totalPaid"`
	Message          string `json:"message"`
}

type installmentPaymentWire struct {
	ID              string `json:"id"`
	RemainingAmount any    `json:"remainingAmount"`
	Installment     *struct {
		ID              string `json:"id"`
		RemainingAmount any    `json:"remainingAmount"`
	} `json:"installment,omitempty"`
}

// Request bodies.

type exchangeRequestWire struct {
	OriginalSaleID   string                `json:"originalSaleId"`
	Reason           string                `json:"reason"`
	Note             string                `json:"note,omitempty"`
	ReturnedItems    []returnedItemWire    `json:"returnedItems"`
	NewItems         []exchangeNewItemWire `json:"newItems,omitempty"`
	Payments         []paymentEntryWire    `json:"payments,omitempty"`
	Refunds          []paymentEntryWire    `json:"refunds,omitempty"`
	IssueStoreCredit *bool                 `json:"issueStoreCredit,omitempty"`
}

type exchangeNewItemWire struct {
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unitPrice"`
}

type paymentEntryWire struct {
	Method string  `json:"method"`
	Amount float64 `json:"amount"`
	Note   string  `json:"note,omitempty"`
}

type allocationWire struct {
	InstallmentID string  `json:"installmentId"`
	Amount        float64 `json:"amount"`
}

type bulkPaymentWire struct {
	PaymentMethod string           `json:"paymentMethod"`
	Notes         string           `json:"notes,omitempty"`
	Installments  []allocationWire `json:"installments,omitempty"`
	PayAll        bool             `json:"payAll,omitempty"`
}

type installmentPayWire struct {
	Amount        float64 `json:"amount"`
	PaymentMethod string  `json:"paymentMethod"`
	Notes         string  `json:"notes,omitempty"`
}

type errorWire struct {
	Message json.RawMessage `json:"message"`
	Error   string          `json:"error"`
}

func (c *Client) amount(field string, v any) float64 {
	return money.Round(money.Normalize(c.logger, field, v))
}

func (c *Client) toSale(w saleWire) domain.Sale {
	sale := domain.Sale{
		ID:         w.ID,
		CustomerID: w.CustomerID,
		Total:      c.amount("sale.total", w.Total),
		Items:      make([]domain.SaleItem, 0, len(w.Items)),
		Exchanges:  make([]domain.SaleExchange, 0, len(w.Exchanges)),
	}
	for _, it := range w.Items {
		item := domain.SaleItem{
			ID:        it.ID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: c.amount("sale.items.unitPrice", it.UnitPrice),
		}
		if it.Product != nil {
			item.ProductName = it.Product.Name
		}
		sale.Items = append(sale.Items, item)
	}
	for _, ex := range w.Exchanges {
		out := domain.SaleExchange{ID: ex.ID}
		for _, r := range ex.ReturnedItems {
			out.ReturnedItems = append(out.ReturnedItems, domain.ReturnedItem(r))
		}
		sale.Exchanges = append(sale.Exchanges, out)
	}
	return sale
}

func (c *Client) toProduct(w productWire) domain.Product {
	stock, _ := money.ToNumber(w.StockQuantity)
	if stock < 0 {
		stock = 0
	}
	return domain.Product{
		ID:            w.ID,
		Name:          w.Name,
		Price:         c.amount("product.price", w.Price),
		StockQuantity: int(stock),
	}
}

func (c *Client) toDebtSummary(customerID string, w debtSummaryWire) domain.CustomerDebtSummary {
	out := domain.CustomerDebtSummary{
		CustomerID:          w.CustomerID,
		TotalDebt:           c.amount("debt.totalDebt", w.TotalDebt),
		TotalInstallments:   w.TotalInstallments,
		OverdueInstallments: w.OverdueInstallments,
		OverdueAmount:       c.amount("debt.overdueAmount", w.OverdueAmount),
		Installments:        make([]domain.Installment, 0, len(w.Installments)),
	}
	if out.CustomerID == "" {
		out.CustomerID = customerID
	}
	for _, inst := range w.Installments {
		out.Installments = append(out.Installments, domain.Installment{
			ID:                inst.ID,
			SaleID:            inst.SaleID,
			Amount:            c.amount("installment.amount", inst.Amount),
			RemainingAmount:   c.amount("installment.remainingAmount", inst.RemainingAmount),
			DueDate:           c.parseDate(inst.DueDate),
			InstallmentNumber: inst.InstallmentNumber,
			TotalInstallments: inst.TotalInstallments,
		})
	}
	return out
}

var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

func (c *Client) parseDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	c.logger.Warn("unparseable due date", zap.String("value", raw))
	return time.Time{}
}

func fromExchangeRequest(req domain.ExchangeRequest) exchangeRequestWire {
	w := exchangeRequestWire{
		OriginalSaleID:   req.OriginalSaleID,
		Reason:           req.Reason,
		Note:             req.Note,
		ReturnedItems:    make([]returnedItemWire, 0, len(req.ReturnedItems)),
		IssueStoreCredit: req.IssueStoreCredit,
	}
	for _, r := range req.ReturnedItems {
		w.ReturnedItems = append(w.ReturnedItems, returnedItemWire(r))
	}
	for _, n := range req.NewItems {
		w.NewItems = append(w.NewItems, exchangeNewItemWire(n))
	}
	w.Payments = fromEntries(req.Payments)
	w.Refunds = fromEntries(req.Refunds)
	return w
}

func fromEntries(entries []domain.PaymentEntry) []paymentEntryWire {
	if len(entries) == 0 {
		return nil
	}
	out := make([]paymentEntryWire, 0, len(entries))
	for _, e := range entries {
		out = append(out, paymentEntryWire{Method: string(e.Method), Amount: e.Amount, Note: e.Note})
	}
	return out
}

func fromBulkPayment(req domain.BulkPaymentRequest) bulkPaymentWire {
	w := bulkPaymentWire{PaymentMethod: string(req.PaymentMethod), Notes: req.Notes, PayAll: req.PayAll}
	for _, a := range req.Installments {
		w.Installments = append(w.Installments, allocationWire(a))
	}
	return w
}

// remoteMessage extracts the rejection reason. The service sends either a
// string or a list of strings.
func remoteMessage(body []byte) string {
	var w errorWire
	if err := json.Unmarshal(body, &w); err != nil {
		return ""
	}
	if len(w.Message) > 0 {
		var single string
		if err := json.Unmarshal(w.Message, &single); err == nil && strings.TrimSpace(single) != "" {
			return strings.TrimSpace(single)
		}
		var many []string
		if err := json.Unmarshal(w.Message, &many); err == nil {
			parts := make([]string, 0, len(many))
			for _, m := range many {
				if m = strings.TrimSpace(m); m != "" {
					parts = append(parts, m)
				}
			}
			if len(parts) > 0 {
				return strings.Join(parts, "; ")
			}
		}
	}
	return strings.TrimSpace(w.Error)
}
