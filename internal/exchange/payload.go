package exchange

import (
	"strings"

	"github.com/luizaugustom/montshop-desktop-sub000/internal/domain"
)

// BuildRequest validates the draft and assembles the submission body. Only
// the instruments that match the settlement direction are sent.
func (d Draft) BuildRequest() (domain.ExchangeRequest, Settlement, error) {
	v, s, err := d.Validate()
	if err != nil {
		return domain.ExchangeRequest{}, s, err
	}

	req := domain.ExchangeRequest{
		OriginalSaleID: d.sale.ID,
		Reason:         strings.TrimSpace(d.reason),
		Note:           strings.TrimSpace(d.note),
		ReturnedItems:  make([]domain.ReturnedItem, 0, len(v.Returned)),
	}
	for _, line := range v.Returned {
		req.ReturnedItems = append(req.ReturnedItems, domain.ReturnedItem{
			SaleItemID: line.SaleItemID,
			ProductID:  line.ProductID,
			Quantity:   line.Quantity,
		})
	}
	for _, line := range v.Delivered {
		req.NewItems = append(req.NewItems, domain.ExchangeNewItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}

	switch s.Direction {
	case DirectionReceive:
		req.Payments = nonZero(d.payments)
	case DirectionRefund:
		req.Refunds = nonZero(d.refunds)
		issue := d.issueStoreCredit
		req.IssueStoreCredit = &issue
	}
	return req, s, nil
}

func nonZero(entries []domain.PaymentEntry) []domain.PaymentEntry {
	var out []domain.PaymentEntry
	for _, e := range entries {
		if e.Amount > 0 {
			out = append(out, e)
		}
	}
	return out
}
