// Package exchange values a merchandise return/exchange and checks that the
// payment or refund instruments attached to it settle the difference.
package exchange

import (
	"github.com/luizaugustom/montshop-desktop-sub000/internal/domain"
	"github.com/luizaugustom/montshop-desktop-sub000/internal/money"
)

type ReturnedLine struct {
	SaleItemID string  `json:"sale_item_id"`
	ProductID  string  `json:"product_id"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	Total      float64 `json:"total"`
}

type DeliveredLine struct {
	ProductID string  `json:"product_id"`
	Quantity  int     `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	Total     float64 `json:"total"`
}

// Valuation is the priced result of an exchange selection. Difference is
// positive when the customer owes money and negative when the shop does.
type Valuation struct {
	ReturnedTotal  float64         `json:"returned_total"`
	DeliveredTotal float64         `json:"delivered_total"`
	Difference     float64         `json:"difference"`
	Returned       []ReturnedLine  `json:"returned"`
	Delivered      []DeliveredLine `json:"delivered"`
}

func (v Valuation) HasReturnedItems() bool {
	return len(v.Returned) > 0
}

// AlreadyReturned sums, per sale item, the quantities returned by earlier
// exchanges on the same sale.
func AlreadyReturned(sale domain.Sale) map[string]int {
	out := make(map[string]int)
	for _, ex := range sale.Exchanges {
		for _, item := range ex.ReturnedItems {
			if item.Quantity > 0 {
				out[item.SaleItemID] += item.Quantity
			}
		}
	}
	return out
}

// Available is the quantity of item that can still be returned.
func Available(item domain.SaleItem, alreadyReturned map[string]int) int {
	left := item.Quantity - alreadyReturned[item.ID]
	if left < 0 {
		return 0
	}
	return left
}

func clampQuantity(q, max int) int {
	if q < 0 {
		return 0
	}
	if q > max {
		return max
	}
	return q
}

// Valuate prices the returned quantities against the sale and the new items
// delivered in exchange. Requested quantities are clamped to what is still
// returnable; lines with zero quantity do not appear in the result.
func Valuate(sale domain.Sale, returned map[string]int, newItems []domain.NewItem) Valuation {
	already := AlreadyReturned(sale)
	v := Valuation{Returned: []ReturnedLine{}, Delivered: []DeliveredLine{}}

	returnedTotals := make([]float64, 0, len(sale.Items))
	for _, item := range sale.Items {
		q := clampQuantity(returned[item.ID], Available(item, already))
		if q == 0 {
			continue
		}
		total := money.Mul(item.UnitPrice, q)
		returnedTotals = append(returnedTotals, total)
		v.Returned = append(v.Returned, ReturnedLine{
			SaleItemID: item.ID,
			ProductID:  item.ProductID,
			Quantity:   q,
			UnitPrice:  money.Round(item.UnitPrice),
			Total:      total,
		})
	}

	deliveredTotals := make([]float64, 0, len(newItems))
	for _, item := range newItems {
		if item.Quantity <= 0 {
			continue
		}
		total := money.Mul(item.UnitPrice, item.Quantity)
		deliveredTotals = append(deliveredTotals, total)
		v.Delivered = append(v.Delivered, DeliveredLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			UnitPrice: money.Round(item.UnitPrice),
			Total:     total,
		})
	}

	v.ReturnedTotal = money.Sum(returnedTotals...)
	v.DeliveredTotal = money.Sum(deliveredTotals...)
	v.Difference = money.Sub(v.DeliveredTotal, v.ReturnedTotal)
	return v
}
