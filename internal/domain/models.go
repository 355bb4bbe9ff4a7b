package domain

import (
	"strings"
	"time"
)

type PaymentMethod string

const (
	MethodCash        PaymentMethod = "cash"
	MethodPix         PaymentMethod = "pix"
	MethodDebitCard   PaymentMethod = "debit_card"
	MethodCreditCard  PaymentMethod = "credit_card"
	MethodInstallment PaymentMethod = "installment"
	MethodStoreCredit PaymentMethod = "store_credit"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodPix, MethodDebitCard, MethodCreditCard, MethodInstallment, MethodStoreCredit:
		return true
	default:
		return false
	}
}

// SettlesInstallments reports whether the method can be used to pay an
// installment. Paying debt with new debt or with store credit is not allowed.
func (m PaymentMethod) SettlesInstallments() bool {
	switch m {
	case MethodCash, MethodPix, MethodDebitCard, MethodCreditCard:
		return true
	default:
		return false
	}
}

func ParsePaymentMethod(raw string) (PaymentMethod, bool) {
	method := PaymentMethod(strings.ToLower(strings.TrimSpace(raw)))
	return method, method.Valid()
}

type Actor struct {
	Username string
	Role     string
	Token    string
}

const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleSeller  = "seller"
)

type SaleItem struct {
	ID          string  `json:"id"`
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name,omitempty"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
}

type ReturnedItem struct {
	SaleItemID string `json:"sale_item_id"`
	ProductID  string `json:"product_id"`
	Quantity   int    `json:"quantity"`
}

type SaleExchange struct {
	ID            string         `json:"id"`
	ReturnedItems []ReturnedItem `json:"returned_items"`
}

type Sale struct {
	ID         string         `json:"id"`
	CustomerID string         `json:"customer_id,omitempty"`
	Total      float64        `json:"total"`
	Items      []SaleItem     `json:"items"`
	Exchanges  []SaleExchange `json:"exchanges"`
}

type Product struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	StockQuantity int     `json:"stock_quantity"`
}

type ProductQuery struct {
	Search string
	Page   int
	Limit  int
}

type ProductPage struct {
	Products []Product `json:"products"`
	Page     int       `json:"page"`
	Limit    int       `json:"limit"`
	Total    int       `json:"total"`
}

// NewItem is a product delivered to the customer as part of an exchange.
type NewItem struct {
	ProductID     string  `json:"product_id"`
	ProductName   string  `json:"product_name,omitempty"`
	Quantity      int     `json:"quantity"`
	UnitPrice     float64 `json:"unit_price"`
	StockQuantity int     `json:"stock_quantity"`
}

type PaymentEntry struct {
	ID     string        `json:"id"`
	Method PaymentMethod `json:"method"`
	Amount float64       `json:"amount"`
	Note   string        `json:"note,omitempty"`
}

type RefundEntry = PaymentEntry

type ExchangeNewItem struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
}

type ExchangeRequest struct {
	OriginalSaleID   string            `json:"original_sale_id"`
	Reason           string            `json:"reason"`
	Note             string            `json:"note,omitempty"`
	ReturnedItems    []ReturnedItem    `json:"returned_items"`
	NewItems         []ExchangeNewItem `json:"new_items,omitempty"`
	Payments         []PaymentEntry    `json:"payments,omitempty"`
	Refunds          []RefundEntry     `json:"refunds,omitempty"`
	IssueStoreCredit *bool             `json:"issue_store_credit,omitempty"`
}

type ExchangeResult struct {
	ID                string  `json:"id"`
	Status            string  `json:"status,omitempty"`
	StoreCreditAmount float64 `json:"store_credit_amount"`
}

type StoreCreditVoucher struct {
	ExchangeID        string  `json:"exchange_id"`
	Content           string  `json:"content"`
	StoreCreditAmount float64 `json:"store_credit_amount,omitempty"`
}

type Installment struct {
	ID                string    `json:"id"`
	SaleID            string    `json:"sale_id,omitempty"`
	Amount            float64   `json:"amount"`
	RemainingAmount   float64   `json:"remaining_amount"`
	DueDate           time.Time `json:"due_date"`
	InstallmentNumber int       `json:"installment_number"`
	TotalInstallments int       `json:"total_installments"`
}

func (i Installment) Overdue(now time.Time) bool {
	return i.RemainingAmount > 0 && !i.DueDate.IsZero() && i.DueDate.Before(now)
}

type CustomerDebtSummary struct {
	CustomerID          string        `json:"customer_id"`
	TotalDebt           float64       `json:"total_debt"`
	TotalInstallments   int           `json:"total_installments"`
	OverdueInstallments int           `json:"overdue_installments"`
	OverdueAmount       float64       `json:"overdue_amount"`
	Installments        []Installment `json:"installments"`
}

type InstallmentAllocation struct {
	InstallmentID string  `json:"installment_id"`
	Amount        float64 `json:"amount"`
}

type BulkPaymentRequest struct {
	PaymentMethod PaymentMethod           `json:"payment_method"`
	Notes         string                  `json:"notes,omitempty"`
	Installments  []InstallmentAllocation `json:"installments,omitempty"`
	PayAll        bool                    `json:"pay_all,omitempty"`
}

type BulkPaymentResult struct {
	PaidInstallments int     `json:"paid_installments"`
	TotalPaid        float64 `json:"total_paid"`
	Message          string  `json:"message,omitempty"`
}

type InstallmentPaymentRequest struct {
	Amount        float64       `json:"amount"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	Notes         string        `json:"notes,omitempty"`
}

type InstallmentPaymentResult struct {
	InstallmentID   string  `json:"installment_id"`
	AmountPaid      float64 `json:"amount_paid"`
	RemainingAmount float64 `json:"remaining_amount"`
}

type AuditLog struct {
	ID            string    `json:"id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Outcome       string    `json:"outcome"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

const (
	AuditActionExchangeSubmit    = "exchange_submit"
	AuditActionBulkPaymentSubmit = "bulk_payment_submit"
	AuditActionInstallmentPay    = "installment_payment_submit"
)

const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
	OutcomeIgnored  = "ignored"
)
