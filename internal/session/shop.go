package session

import (
	"context"

	"github.com/luizaugustom/montshop-desktop-sub000/internal/domain"
)

// ShopAPI is the part of the remote shop service the dialogs depend on.
//
//go:generate mockgen -destination=mocks/mock_shop.go -package=mocks -source=shop.go
type ShopAPI interface {
	GetSale(ctx context.Context, saleID string) (domain.Sale, error)
	SubmitExchange(ctx context.Context, req domain.ExchangeRequest) (domain.ExchangeResult, error)
	DebtSummary(ctx context.Context, customerID string) (domain.CustomerDebtSummary, error)
	PayBulk(ctx context.Context, customerID string, req domain.BulkPaymentRequest) (domain.BulkPaymentResult, error)
}
