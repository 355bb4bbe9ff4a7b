package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/luizaugustom/montshop-desktop-sub000/internal/domain"
	"github.com/luizaugustom/montshop-desktop-sub000/internal/installment"
)

type InstallmentView struct {
	domain.Installment
	Selected bool    `json:"selected"`
	ToPay    float64 `json:"to_pay"`
	Overdue  bool    `json:"overdue"`
}

type DebtView struct {
	ID                  string                    `json:"id"`
	CustomerID          string                    `json:"customer_id"`
	TotalDebt           float64                   `json:"total_debt"`
	TotalInstallments   int                       `json:"total_installments"`
	OverdueInstallments int                       `json:"overdue_installments"`
	OverdueAmount       float64                   `json:"overdue_amount"`
	Installments        []InstallmentView         `json:"installments"`
	Totals              installment.Totals        `json:"totals"`
	Submitting          bool                      `json:"submitting"`
	Result              *domain.BulkPaymentResult `json:"result,omitempty"`
}

type DebtSession struct {
	id         string
	owner      string
	customerID string
	api        ShopAPI
	logger     *zap.Logger

	mu         sync.Mutex
	summary    domain.CustomerDebtSummary
	selection  installment.Selection
	submitting bool
	closed     bool
	result     *domain.BulkPaymentResult
	lastActive time.Time
	now        func() time.Time
}

func newDebtSession(id, owner, customerID string, summary domain.CustomerDebtSummary, api ShopAPI, logger *zap.Logger, now func() time.Time) *DebtSession {
	summary.Installments = installment.Sorted(summary.Installments)
	return &DebtSession{
		id:         id,
		owner:      owner,
		customerID: customerID,
		api:        api,
		logger:     logger.With(zap.String("session", id), zap.String("customer", customerID)),
		summary:    summary,
		selection:  installment.New(summary.Installments),
		lastActive: now(),
		now:        now,
	}
}

func (s *DebtSession) ID() string         { return s.id }
func (s *DebtSession) Owner() string      { return s.owner }
func (s *DebtSession) CustomerID() string { return s.customerID }

func (s *DebtSession) guardLocked() error {
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

func (s *DebtSession) View() DebtView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

func (s *DebtSession) viewLocked() DebtView {
	now := s.now()
	view := DebtView{
		ID:                  s.id,
		CustomerID:          s.customerID,
		TotalDebt:           s.summary.TotalDebt,
		TotalInstallments:   s.summary.TotalInstallments,
		OverdueInstallments: s.summary.OverdueInstallments,
		OverdueAmount:       s.summary.OverdueAmount,
		Installments:        make([]InstallmentView, 0, s.selection.Len()),
		Totals:              s.selection.Totals(),
		Submitting:          s.submitting,
		Result:              s.result,
	}
	for _, inst := range s.summary.Installments {
		entry, ok := s.selection.Get(inst.ID)
		if !ok {
			continue
		}
		view.Installments = append(view.Installments, InstallmentView{
			Installment: inst,
			Selected:    entry.Selected,
			ToPay:       entry.Amount,
			Overdue:     inst.Overdue(now),
		})
	}
	return view
}

func (s *DebtSession) transition(fn func(installment.Selection) (installment.Selection, error)) (DebtView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardLocked(); err != nil {
		return DebtView{}, err
	}
	next, err := fn(s.selection)
	if err != nil {
		return DebtView{}, err
	}
	s.selection = next
	s.lastActive = s.now()
	return s.viewLocked(), nil
}

func (s *DebtSession) Toggle(installmentID string) (DebtView, error) {
	return s.transition(func(sel installment.Selection) (installment.Selection, error) {
		return sel.Toggle(installmentID)
	})
}

func (s *DebtSession) SetAmount(installmentID string, amount float64) (DebtView, error) {
	return s.transition(func(sel installment.Selection) (installment.Selection, error) {
		return sel.SetAmount(installmentID, amount)
	})
}

func (s *DebtSession) SelectAll() (DebtView, error) {
	return s.transition(func(sel installment.Selection) (installment.Selection, error) {
		return sel.SelectAll(), nil
	})
}

func (s *DebtSession) Clear() (DebtView, error) {
	return s.transition(func(sel installment.Selection) (installment.Selection, error) {
		return sel.Clear(), nil
	})
}

type DebtSubmission struct {
	PaymentMethod domain.PaymentMethod
	Notes         string
	PayAll        bool
}

// Submit sends the selected allocations, or the pay-all shortcut. After a
// rejection by the shop service the debt summary is fetched again and the
// selection reconciled with it.
func (s *DebtSession) Submit(ctx context.Context, sub DebtSubmission) (domain.BulkPaymentResult, domain.BulkPaymentRequest, error) {
	s.mu.Lock()
	if err := s.guardLocked(); err != nil {
		s.mu.Unlock()
		return domain.BulkPaymentResult{}, domain.BulkPaymentRequest{}, err
	}
	var (
		req domain.BulkPaymentRequest
		err error
	)
	if sub.PayAll {
		req, err = s.selection.PayAll(sub.PaymentMethod, sub.Notes)
	} else {
		req, err = s.selection.BuildPayload(sub.PaymentMethod, sub.Notes)
	}
	if err != nil {
		s.mu.Unlock()
		return domain.BulkPaymentResult{}, req, err
	}
	s.submitting = true
	s.lastActive = s.now()
	s.mu.Unlock()

	res, err := s.api.PayBulk(ctx, s.customerID, req)

	if _, rejected := domain.AsBusinessRule(err); rejected && !s.isClosed() {
		s.refresh(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitting = false
	s.lastActive = s.now()
	if s.closed {
		s.logger.Info("bulk payment response ignored, session closed", zap.Bool("failed", err != nil))
		return domain.BulkPaymentResult{}, req, ErrResponseDiscarded
	}
	if err != nil {
		return domain.BulkPaymentResult{}, req, err
	}
	s.result = &res
	return res, req, nil
}

func (s *DebtSession) refresh(ctx context.Context) {
	summary, err := s.api.DebtSummary(ctx, s.customerID)
	if err != nil {
		s.logger.Warn("refetch after rejection failed", zap.Error(err))
		return
	}
	summary.Installments = installment.Sorted(summary.Installments)
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.summary = summary
		s.selection = s.selection.Reconcile(summary.Installments)
	}
}

func (s *DebtSession) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *DebtSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *DebtSession) idleSince() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive, s.submitting
}
