// Package session hosts the in-memory dialog state of exchanges and bulk
// installment payments between opening and submission.
package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/luizaugustom/montshop-desktop-sub000/internal/domain"
	"github.com/luizaugustom/montshop-desktop-sub000/internal/exchange"
)

type ExchangeItemView struct {
	domain.SaleItem
	AlreadyReturned int `json:"already_returned"`
	Available       int `json:"available"`
	ReturnQuantity  int `json:"return_quantity"`
}

type ExchangeView struct {
	ID               string                  `json:"id"`
	SaleID           string                  `json:"sale_id"`
	Items            []ExchangeItemView      `json:"items"`
	NewItems         []domain.NewItem        `json:"new_items"`
	Payments         []domain.PaymentEntry   `json:"payments"`
	Refunds          []domain.RefundEntry    `json:"refunds"`
	IssueStoreCredit bool                    `json:"issue_store_credit"`
	Reason           string                  `json:"reason"`
	Note             string                  `json:"note"`
	Valuation        exchange.Valuation      `json:"valuation"`
	Settlement       exchange.Settlement     `json:"settlement"`
	Validation       *domain.ValidationError `json:"validation,omitempty"`
	Submitting       bool                    `json:"submitting"`
	Result           *domain.ExchangeResult  `json:"result,omitempty"`
}

type NewItemInput struct {
	Product  domain.Product `json:"product"`
	Quantity int            `json:"quantity"`
}

// ExchangeEdit is a batch of draft changes. Nil fields are left alone. The
// batch is applied in full or not at all.
type ExchangeEdit struct {
	ReturnQuantities  map[string]int         `json:"return_quantities,omitempty"`
	AddItems          []NewItemInput         `json:"add_items,omitempty"`
	NewItemQuantities map[string]int         `json:"new_item_quantities,omitempty"`
	RemoveItems       []string               `json:"remove_items,omitempty"`
	Payments          *[]domain.PaymentEntry `json:"payments,omitempty"`
	Refunds           *[]domain.RefundEntry  `json:"refunds,omitempty"`
	IssueStoreCredit  *bool                  `json:"issue_store_credit,omitempty"`
	Reason            *string                `json:"reason,omitempty"`
	Note              *string                `json:"note,omitempty"`
}

// Authorizer is consulted after local validation and before the exchange is
// sent. A non-nil error aborts the submission.
type Authorizer func(exchange.Settlement) error

type ExchangeSession struct {
	id     string
	owner  string
	api    ShopAPI
	logger *zap.Logger

	mu         sync.Mutex
	draft      exchange.Draft
	submitting bool
	closed     bool
	result     *domain.ExchangeResult
	lastActive time.Time
	now        func() time.Time
}

func newExchangeSession(id, owner string, sale domain.Sale, api ShopAPI, logger *zap.Logger, now func() time.Time) *ExchangeSession {
	return &ExchangeSession{
		id:         id,
		owner:      owner,
		api:        api,
		logger:     logger.With(zap.String("session", id), zap.String("sale", sale.ID)),
		draft:      exchange.NewDraft(sale),
		lastActive: now(),
		now:        now,
	}
}

func (s *ExchangeSession) ID() string    { return s.id }
func (s *ExchangeSession) Owner() string { return s.owner }

func (s *ExchangeSession) SaleID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Sale().ID
}

// guardLocked reports why the session cannot be changed right now.
func (s *ExchangeSession) guardLocked() error {
	switch {
	case s.closed:
		return ErrClosed
	case s.result != nil:
		return ErrCompleted
	case s.submitting:
		return ErrSubmissionInFlight
	}
	return nil
}

func (s *ExchangeSession) View() ExchangeView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *ExchangeSession) viewLocked() ExchangeView {
	d := s.draft
	sale := d.Sale()
	valuation, settlement, err := d.Preview()
	view := ExchangeView{
		ID:               s.id,
		SaleID:           sale.ID,
		Items:            make([]ExchangeItemView, 0, len(sale.Items)),
		NewItems:         d.NewItems(),
		Payments:         d.Payments(),
		Refunds:          d.Refunds(),
		IssueStoreCredit: d.IssueStoreCredit(),
		Reason:           d.Reason(),
		Note:             d.Note(),
		Valuation:        valuation,
		Settlement:       settlement,
		Submitting:       s.submitting,
		Result:           s.result,
	}
	if verr, ok := domain.AsValidation(err); ok {
		view.Validation = verr
	}
	for _, item := range sale.Items {
		view.Items = append(view.Items, ExchangeItemView{
			SaleItem:        item,
			AlreadyReturned: d.AlreadyReturned(item.ID),
			Available:       d.Available(item),
			ReturnQuantity:  d.ReturnQuantity(item.ID),
		})
	}
	return view
}

func (s *ExchangeSession) Apply(edit ExchangeEdit) (ExchangeView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardLocked(); err != nil {
		return ExchangeView{}, err
	}

	d := s.draft
	var err error
	for saleItemID, q := range edit.ReturnQuantities {
		if d, err = d.SetReturnQuantity(saleItemID, q); err != nil {
			return ExchangeView{}, err
		}
	}
	for _, productID := range edit.RemoveItems {
		d = d.RemoveNewItem(productID)
	}
	for _, add := range edit.AddItems {
		if d, err = d.AddNewItem(add.Product, add.Quantity); err != nil {
			return ExchangeView{}, err
		}
	}
	for productID, q := range edit.NewItemQuantities {
		if d, err = d.SetNewItemQuantity(productID, q); err != nil {
			return ExchangeView{}, err
		}
	}
	if edit.Payments != nil {
		d = d.SetPayments(*edit.Payments)
	}
	if edit.Refunds != nil {
		d = d.SetRefunds(*edit.Refunds)
	}
	if edit.IssueStoreCredit != nil {
		d = d.SetIssueStoreCredit(*edit.IssueStoreCredit)
	}
	if edit.Reason != nil {
		d = d.SetReason(*edit.Reason)
	}
	if edit.Note != nil {
		d = d.SetNote(*edit.Note)
	}

	s.draft = d
	s.lastActive = s.now()
	return s.viewLocked(), nil
}

// Submit validates the draft and sends it. Only one submission runs at a
// time. A response that arrives after Close is discarded and ErrClosed is
// returned. When the shop service rejects the exchange the sale is fetched
// again and the draft rebound to it.
func (s *ExchangeSession) Submit(ctx context.Context, authorize Authorizer) (domain.ExchangeResult, exchange.Settlement, error) {
	s.mu.Lock()
	if err := s.guardLocked(); err != nil {
		s.mu.Unlock()
		return domain.ExchangeResult{}, exchange.Settlement{}, err
	}
	req, settlement, err := s.draft.BuildRequest()
	if err != nil {
		s.mu.Unlock()
		return domain.ExchangeResult{}, settlement, err
	}
	if authorize != nil {
		if err := authorize(settlement); err != nil {
			s.mu.Unlock()
			return domain.ExchangeResult{}, settlement, err
		}
	}
	s.submitting = true
	s.lastActive = s.now()
	s.mu.Unlock()

	res, err := s.api.SubmitExchange(ctx, req)

	if _, rejected := domain.AsBusinessRule(err); rejected && !s.isClosed() {
		s.refresh(ctx, req.OriginalSaleID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting = false
	s.lastActive = s.now()
	if s.closed {
		s.logger.Info("exchange response ignored, session closed", zap.Bool("failed", err != nil))
		return domain.ExchangeResult{}, settlement, ErrResponseDiscarded
	}
	if err != nil {
		return domain.ExchangeResult{}, settlement, err
	}
	s.result = &res
	return res, settlement, nil
}

func (s *ExchangeSession) refresh(ctx context.Context, saleID string) {
	sale, err := s.api.GetSale(ctx, saleID)
	if err != nil {
		s.logger.Warn("refetch after rejection failed", zap.Error(err))
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.draft = s.draft.Reseed(sale)
	}
}

func (s *ExchangeSession) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *ExchangeSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *ExchangeSession) idleSince() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive, s.submitting
}
