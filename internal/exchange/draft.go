package exchange

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/luizaugustom/montshop-desktop-sub000/internal/domain"
	"github.com/luizaugustom/montshop-desktop-sub000/internal/money"
	"github.com/luizaugustom/montshop-desktop-sub000/internal/xid"
)

const MinReasonLength = 3

// Draft is the editable state of one exchange dialog. Every setter returns a
// new Draft and leaves the receiver untouched.
type Draft struct {
	sale             domain.Sale
	already          map[string]int
	returned         map[string]int
	newItems         []domain.NewItem
	payments         []domain.PaymentEntry
	refunds          []domain.RefundEntry
	issueStoreCredit bool
	reason           string
	note             string
}

func NewDraft(sale domain.Sale) Draft {
	return Draft{
		sale:     sale,
		already:  AlreadyReturned(sale),
		returned: map[string]int{},
	}
}

func (d Draft) clone() Draft {
	out := d
	out.returned = make(map[string]int, len(d.returned))
	for k, v := range d.returned {
		out.returned[k] = v
	}
	out.newItems = append([]domain.NewItem(nil), d.newItems...)
	out.payments = append([]domain.PaymentEntry(nil), d.payments...)
	out.refunds = append([]domain.RefundEntry(nil), d.refunds...)
	return out
}

func (d Draft) Sale() domain.Sale                    { return d.sale }
func (d Draft) NewItems() []domain.NewItem           { return append([]domain.NewItem(nil), d.newItems...) }
func (d Draft) Payments() []domain.PaymentEntry      { return append([]domain.PaymentEntry(nil), d.payments...) }
func (d Draft) Refunds() []domain.RefundEntry        { return append([]domain.RefundEntry(nil), d.refunds...) }
func (d Draft) IssueStoreCredit() bool               { return d.issueStoreCredit }
func (d Draft) Reason() string                       { return d.reason }
func (d Draft) Note() string                         { return d.note }
func (d Draft) ReturnQuantity(saleItemID string) int { return d.returned[saleItemID] }

func (d Draft) AlreadyReturned(saleItemID string) int {
	return d.already[saleItemID]
}

// Available is how many units of item can still be selected for return.
func (d Draft) Available(item domain.SaleItem) int {
	return Available(item, d.already)
}

func (d Draft) saleItem(id string) (domain.SaleItem, bool) {
	for _, item := range d.sale.Items {
		if item.ID == id {
			return item, true
		}
	}
	return domain.SaleItem{}, false
}

// SetReturnQuantity selects q units of a sale item for return, clamped to
// [0, available].
func (d Draft) SetReturnQuantity(saleItemID string, q int) (Draft, error) {
	item, ok := d.saleItem(saleItemID)
	if !ok {
		return d, domain.NewValidationError(domain.CodeUnknownSaleItem, "sale item %s is not part of sale %s", saleItemID, d.sale.ID)
	}
	out := d.clone()
	q = clampQuantity(q, Available(item, d.already))
	if q == 0 {
		delete(out.returned, saleItemID)
	} else {
		out.returned[saleItemID] = q
	}
	return out, nil
}

func clampNewQuantity(q, stock int) int {
	if q < 1 {
		q = 1
	}
	if stock > 0 && q > stock {
		q = stock
	}
	return q
}

// AddNewItem adds qty units of p to the delivered goods. Adding a product that
// is already present merges the quantities.
func (d Draft) AddNewItem(p domain.Product, qty int) (Draft, error) {
	if strings.TrimSpace(p.ID) == "" {
		return d, domain.NewValidationError(domain.CodeInvalidNewItem, "product id is required")
	}
	if p.Price < 0 || math.IsNaN(p.Price) || math.IsInf(p.Price, 0) {
		return d, domain.NewValidationError(domain.CodeInvalidNewItem, "product %s has an invalid price", p.ID)
	}
	out := d.clone()
	for i, item := range out.newItems {
		if item.ProductID == p.ID {
			out.newItems[i].Quantity = clampNewQuantity(item.Quantity+qty, item.StockQuantity)
			return out, nil
		}
	}
	out.newItems = append(out.newItems, domain.NewItem{
		ProductID:     p.ID,
		ProductName:   p.Name,
		Quantity:      clampNewQuantity(qty, p.StockQuantity),
		UnitPrice:     money.Round(p.Price),
		StockQuantity: p.StockQuantity,
	})
	return out, nil
}

func (d Draft) SetNewItemQuantity(productID string, qty int) (Draft, error) {
	out := d.clone()
	for i, item := range out.newItems {
		if item.ProductID == productID {
			out.newItems[i].Quantity = clampNewQuantity(qty, item.StockQuantity)
			return out, nil
		}
	}
	return d, domain.NewValidationError(domain.CodeInvalidNewItem, "product %s is not in the exchange", productID)
}

func (d Draft) RemoveNewItem(productID string) Draft {
	out := d.clone()
	kept := out.newItems[:0]
	for _, item := range out.newItems {
		if item.ProductID != productID {
			kept = append(kept, item)
		}
	}
	out.newItems = kept
	return out
}

func normalizeEntries(entries []domain.PaymentEntry, prefix string) []domain.PaymentEntry {
	out := make([]domain.PaymentEntry, 0, len(entries))
	for _, e := range entries {
		if strings.TrimSpace(e.ID) == "" {
			e.ID = xid.New(prefix)
		}
		e.Amount = money.Round(e.Amount)
		e.Note = strings.TrimSpace(e.Note)
		out = append(out, e)
	}
	return out
}

func (d Draft) SetPayments(entries []domain.PaymentEntry) Draft {
	out := d.clone()
	out.payments = normalizeEntries(entries, "pay")
	return out
}

func (d Draft) SetRefunds(entries []domain.RefundEntry) Draft {
	out := d.clone()
	out.refunds = normalizeEntries(entries, "ref")
	return out
}

func (d Draft) SetIssueStoreCredit(v bool) Draft {
	out := d.clone()
	out.issueStoreCredit = v
	return out
}

func (d Draft) SetReason(reason string) Draft {
	out := d.clone()
	out.reason = reason
	return out
}

func (d Draft) SetNote(note string) Draft {
	out := d.clone()
	out.note = note
	return out
}

// Reseed rebinds the draft to a freshly fetched copy of the sale. Selected
// quantities are clamped again against the new availability.
func (d Draft) Reseed(sale domain.Sale) Draft {
	out := d.clone()
	out.sale = sale
	out.already = AlreadyReturned(sale)
	out.returned = map[string]int{}
	for _, item := range sale.Items {
		if q := clampQuantity(d.returned[item.ID], Available(item, out.already)); q > 0 {
			out.returned[item.ID] = q
		}
	}
	return out
}

func (d Draft) Valuation() Valuation {
	return Valuate(d.sale, d.returned, d.newItems)
}

func (d Draft) settlementInput(v Valuation) SettlementInput {
	return SettlementInput{
		Difference:       v.Difference,
		Payments:         d.payments,
		Refunds:          d.refunds,
		IssueStoreCredit: d.issueStoreCredit,
	}
}

// Preview settles the current selection without the reason check.
func (d Draft) Preview() (Valuation, Settlement, error) {
	v := d.Valuation()
	s, err := Settle(d.settlementInput(v))
	return v, s, err
}

// Validate runs the submission checks in order and stops at the first one
// that fails: a returned item, then the reason, then the money.
func (d Draft) Validate() (Valuation, Settlement, error) {
	v := d.Valuation()
	if !v.HasReturnedItems() {
		return v, Settlement{Direction: DirectionOf(v.Difference)}, domain.NewValidationError(domain.CodeNoItemsReturned, "select at least one item to return")
	}
	if utf8.RuneCountInString(strings.TrimSpace(d.reason)) < MinReasonLength {
		return v, Settlement{Direction: DirectionOf(v.Difference)}, domain.NewValidationError(domain.CodeReasonTooShort, "the reason must have at least %d characters", MinReasonLength)
	}
	s, err := Settle(d.settlementInput(v))
	return v, s, err
}
