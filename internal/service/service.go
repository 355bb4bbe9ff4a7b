package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/luizaugustom/montshop-desktop-sub000/internal/catalog"
	"github.com/luizaugustom/montshop-desktop-sub000/internal/domain"
	"github.com/luizaugustom/montshop-desktop-sub000/internal/exchange"
	"github.com/luizaugustom/montshop-desktop-sub000/internal/installment"
	"github.com/luizaugustom/montshop-desktop-sub000/internal/metrics"
	"github.com/luizaugustom/montshop-desktop-sub000/internal/money"
	"github.com/luizaugustom/montshop-desktop-sub000/internal/session"
	"github.com/luizaugustom/montshop-desktop-sub000/internal/store"
	"github.com/luizaugustom/montshop-desktop-sub000/internal/voucher"
	"github.com/luizaugustom/montshop-desktop-sub000/internal/xid"
)

var (
	ErrForbidden          = errors.New("forbidden")
	ErrManagerPINRequired = errors.New("manager pin required for direct refunds")
	ErrManagerPINInvalid  = errors.New("invalid manager pin")
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// ShopAPI is everything the service needs from the remote shop service.
type ShopAPI interface {
	session.ShopAPI
	catalog.ProductSource
	StoreCreditVoucher(ctx context.Context, exchangeID string) (domain.StoreCreditVoucher, error)
	PayInstallment(ctx context.Context, installmentID string, req domain.InstallmentPaymentRequest) (domain.InstallmentPaymentResult, error)
}

// ManagerApproval validates the PIN a manager types to release a direct
// refund.
type ManagerApproval interface {
	ManagerPINEnabled() bool
	ValidateManagerPIN(pin string) bool
}

type Options struct {
	SearchDebounce time.Duration
	Logger         *zap.Logger
	Metrics        *metrics.Recorder
	Approval       ManagerApproval
	Now            func() time.Time
}

type Service struct {
	shop     ShopAPI
	sessions *session.Registry
	catalog  *catalog.Catalog
	repo     store.Repository
	metrics  *metrics.Recorder
	approval ManagerApproval
	logger   *zap.Logger
	debounce time.Duration
	now      func() time.Time

	creditMu    sync.Mutex
	credits     map[string]float64
	creditOrder []string
}

// maxRememberedCredits bounds the table of store credit issued by this
// process. The oldest exchange is forgotten first.
const maxRememberedCredits = 1024

func New(shop ShopAPI, sessions *session.Registry, products *catalog.Catalog, repo store.Repository, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.SearchDebounce <= 0 {
		opts.SearchDebounce = 3 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		shop:     shop,
		sessions: sessions,
		catalog:  products,
		repo:     repo,
		metrics:  opts.Metrics,
		approval: opts.Approval,
		logger:   opts.Logger.Named("service"),
		debounce: opts.SearchDebounce,
		now:      opts.Now,
		credits:  make(map[string]float64),
	}
}

type UIConfig struct {
	SearchDebounceMS   int64                  `json:"search_debounce_ms"`
	Tolerance          float64                `json:"tolerance"`
	MinReasonLength    int                    `json:"min_reason_length"`
	PaymentMethods     []domain.PaymentMethod `json:"payment_methods"`
	InstallmentMethods []domain.PaymentMethod `json:"installment_methods"`
	ManagerPINEnabled  bool                   `json:"manager_pin_enabled"`
}

func (s *Service) UIConfig() UIConfig {
	return UIConfig{
		SearchDebounceMS: s.debounce.Milliseconds(),
		Tolerance:        money.Tolerance,
		MinReasonLength:  exchange.MinReasonLength,
		PaymentMethods: []domain.PaymentMethod{
			domain.MethodCash, domain.MethodPix, domain.MethodDebitCard,
			domain.MethodCreditCard, domain.MethodInstallment, domain.MethodStoreCredit,
		},
		InstallmentMethods: []domain.PaymentMethod{
			domain.MethodCash, domain.MethodPix, domain.MethodDebitCard, domain.MethodCreditCard,
		},
		ManagerPINEnabled: s.approval != nil && s.approval.ManagerPINEnabled(),
	}
}

func (s *Service) SearchProducts(ctx context.Context, q domain.ProductQuery) (domain.ProductPage, error) {
	actor, _ := ActorFromContext(ctx)
	return s.catalog.Search(ctx, actor.Username, q)
}

// Exchange dialog

func (s *Service) exchangeSession(ctx context.Context, id string) (*session.ExchangeSession, error) {
	sess, err := s.sessions.Exchange(id)
	if err != nil {
		return nil, err
	}
	if !ownedBy(ctx, sess.Owner()) {
		return nil, session.ErrNotFound
	}
	return sess, nil
}

func ownedBy(ctx context.Context, owner string) bool {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		return false
	}
	return actor.Role == domain.RoleAdmin || actor.Username == owner
}

func (s *Service) OpenExchange(ctx context.Context, saleID string) (session.ExchangeView, error) {
	actor, _ := ActorFromContext(ctx)
	sess, err := s.sessions.OpenExchange(ctx, actor.Username, saleID)
	if err != nil {
		return session.ExchangeView{}, err
	}
	return sess.View(), nil
}

func (s *Service) ExchangeView(ctx context.Context, id string) (session.ExchangeView, error) {
	sess, err := s.exchangeSession(ctx, id)
	if err != nil {
		return session.ExchangeView{}, err
	}
	return sess.View(), nil
}

func (s *Service) EditExchange(ctx context.Context, id string, edit session.ExchangeEdit) (session.ExchangeView, error) {
	sess, err := s.exchangeSession(ctx, id)
	if err != nil {
		return session.ExchangeView{}, err
	}
	return sess.Apply(edit)
}

func (s *Service) CloseExchange(ctx context.Context, id string) error {
	if _, err := s.exchangeSession(ctx, id); err != nil {
		return err
	}
	return s.sessions.CloseExchange(id)
}

type ExchangeOutcome struct {
	Result     domain.ExchangeResult `json:"result"`
	Settlement exchange.Settlement   `json:"settlement"`
}

// SubmitExchange validates and sends the exchange. A seller refunding money
// directly needs the manager PIN when one is configured.
func (s *Service) SubmitExchange(ctx context.Context, id string, managerPIN string) (ExchangeOutcome, error) {
	sess, err := s.exchangeSession(ctx, id)
	if err != nil {
		return ExchangeOutcome{}, err
	}
	saleID := sess.SaleID()

	res, settlement, err := sess.Submit(ctx, s.refundAuthorizer(ctx, managerPIN))
	if verr, ok := domain.AsValidation(err); ok {
		s.metrics.ValidationRejected(metrics.KindExchange, verr.Code)
		return ExchangeOutcome{}, err
	}
	if errors.Is(err, ErrManagerPINRequired) || errors.Is(err, ErrManagerPINInvalid) || notSent(err) {
		return ExchangeOutcome{}, err
	}

	outcome := outcomeOf(err)
	s.metrics.Submission(metrics.KindExchange, outcome)
	s.logAudit(ctx, domain.AuditActionExchangeSubmit, "sale", saleID, outcome, exchangeDetail(settlement, res, err))
	if err != nil {
		return ExchangeOutcome{}, err
	}

	s.rememberCredit(res.ID, res.StoreCreditAmount)
	if err := s.sessions.CloseExchange(id); err != nil && !errors.Is(err, session.ErrNotFound) {
		s.logger.Warn("failed to close exchange session", zap.String("session", id), zap.Error(err))
	}
	return ExchangeOutcome{Result: res, Settlement: settlement}, nil
}

func (s *Service) refundAuthorizer(ctx context.Context, pin string) session.Authorizer {
	return func(st exchange.Settlement) error {
		if s.approval == nil || !s.approval.ManagerPINEnabled() {
			return nil
		}
		actor, _ := ActorFromContext(ctx)
		if actor.Role != domain.RoleSeller {
			return nil
		}
		if st.Direction != exchange.DirectionRefund || st.RefundsTotal <= 0 {
			return nil
		}
		if strings.TrimSpace(pin) == "" {
			return ErrManagerPINRequired
		}
		if !s.approval.ValidateManagerPIN(pin) {
			return ErrManagerPINInvalid
		}
		return nil
	}
}

func exchangeDetail(st exchange.Settlement, res domain.ExchangeResult, err error) string {
	detail := fmt.Sprintf("direction=%s", st.Direction)
	switch st.Direction {
	case exchange.DirectionReceive:
		detail += " receive=" + money.Format(st.AmountToReceive)
	case exchange.DirectionRefund:
		detail += " refund=" + money.Format(st.RefundsTotal) + " store_credit=" + money.Format(st.StoreCredit)
	}
	if res.ID != "" {
		detail += " exchange=" + res.ID
	}
	if err != nil {
		detail += " error=" + err.Error()
	}
	return detail
}

func (s *Service) rememberCredit(exchangeID string, amount float64) {
	if exchangeID == "" {
		return
	}
	s.creditMu.Lock()
	defer s.creditMu.Unlock()
	if _, ok := s.credits[exchangeID]; !ok {
		s.creditOrder = append(s.creditOrder, exchangeID)
	}
	s.credits[exchangeID] = amount
	for len(s.creditOrder) > maxRememberedCredits {
		delete(s.credits, s.creditOrder[0])
		s.creditOrder = s.creditOrder[1:]
	}
}

func (s *Service) creditFor(exchangeID string) float64 {
	s.creditMu.Lock()
	defer s.creditMu.Unlock()
	return s.credits[exchangeID]
}

type VoucherOutput struct {
	ExchangeID  string  `json:"exchange_id"`
	Content     string  `json:"content"`
	StoreCredit float64 `json:"store_credit,omitempty"`
	Text        string  `json:"text"`
	ESCPOS      string  `json:"escpos_base64"`
	QRCode      string  `json:"qr_png_base64"`
}

func (s *Service) ExchangeVoucher(ctx context.Context, exchangeID string) (VoucherOutput, error) {
	exchangeID = strings.TrimSpace(exchangeID)
	if exchangeID == "" {
		return VoucherOutput{}, domain.NewValidationError(domain.CodeMissingIdentifier, "exchange id is required")
	}
	remote, err := s.shop.StoreCreditVoucher(ctx, exchangeID)
	if err != nil {
		return VoucherOutput{}, err
	}
	credit := remote.StoreCreditAmount
	if credit == 0 {
		credit = s.creditFor(exchangeID)
	}
	rendered, err := voucher.Render(voucher.Voucher{
		ExchangeID:  exchangeID,
		Content:     remote.Content,
		StoreCredit: credit,
		IssuedAt:    s.now(),
	})
	if err != nil {
		return VoucherOutput{}, err
	}
	return VoucherOutput{
		ExchangeID:  exchangeID,
		Content:     remote.Content,
		StoreCredit: credit,
		Text:        rendered.Text,
		ESCPOS:      base64.StdEncoding.EncodeToString(rendered.ESCPOS),
		QRCode:      base64.StdEncoding.EncodeToString(rendered.QRCode),
	}, nil
}

// Bulk payment dialog

func (s *Service) debtSession(ctx context.Context, id string) (*session.DebtSession, error) {
	sess, err := s.sessions.Debt(id)
	if err != nil {
		return nil, err
	}
	if !ownedBy(ctx, sess.Owner()) {
		return nil, session.ErrNotFound
	}
	return sess, nil
}

func (s *Service) OpenDebt(ctx context.Context, customerID string) (session.DebtView, error) {
	actor, _ := ActorFromContext(ctx)
	sess, err := s.sessions.OpenDebt(ctx, actor.Username, customerID)
	if err != nil {
		return session.DebtView{}, err
	}
	return sess.View(), nil
}

func (s *Service) DebtView(ctx context.Context, id string) (session.DebtView, error) {
	sess, err := s.debtSession(ctx, id)
	if err != nil {
		return session.DebtView{}, err
	}
	return sess.View(), nil
}

func (s *Service) ToggleInstallment(ctx context.Context, id, installmentID string) (session.DebtView, error) {
	sess, err := s.debtSession(ctx, id)
	if err != nil {
		return session.DebtView{}, err
	}
	return sess.Toggle(installmentID)
}

func (s *Service) SetInstallmentAmount(ctx context.Context, id, installmentID string, amount float64) (session.DebtView, error) {
	sess, err := s.debtSession(ctx, id)
	if err != nil {
		return session.DebtView{}, err
	}
	return sess.SetAmount(installmentID, amount)
}

func (s *Service) SelectAllInstallments(ctx context.Context, id string) (session.DebtView, error) {
	sess, err := s.debtSession(ctx, id)
	if err != nil {
		return session.DebtView{}, err
	}
	return sess.SelectAll()
}

func (s *Service) ClearInstallments(ctx context.Context, id string) (session.DebtView, error) {
	sess, err := s.debtSession(ctx, id)
	if err != nil {
		return session.DebtView{}, err
	}
	return sess.Clear()
}

func (s *Service) CloseDebt(ctx context.Context, id string) error {
	if _, err := s.debtSession(ctx, id); err != nil {
		return err
	}
	return s.sessions.CloseDebt(id)
}

type DebtPaymentInput struct {
	PaymentMethod string `json:"payment_method"`
	Notes         string `json:"notes,omitempty"`
	PayAll        bool   `json:"pay_all,omitempty"`
}

func (s *Service) SubmitDebt(ctx context.Context, id string, in DebtPaymentInput) (domain.BulkPaymentResult, error) {
	sess, err := s.debtSession(ctx, id)
	if err != nil {
		return domain.BulkPaymentResult{}, err
	}
	method, _ := domain.ParsePaymentMethod(in.PaymentMethod)

	res, req, err := sess.Submit(ctx, session.DebtSubmission{PaymentMethod: method, Notes: in.Notes, PayAll: in.PayAll})
	if verr, ok := domain.AsValidation(err); ok {
		s.metrics.ValidationRejected(metrics.KindBulkPayment, verr.Code)
		return domain.BulkPaymentResult{}, err
	}
	if notSent(err) {
		return domain.BulkPaymentResult{}, err
	}

	outcome := outcomeOf(err)
	s.metrics.Submission(metrics.KindBulkPayment, outcome)
	s.logAudit(ctx, domain.AuditActionBulkPaymentSubmit, "customer", sess.CustomerID(), outcome, bulkDetail(req, err))
	if err != nil {
		return domain.BulkPaymentResult{}, err
	}

	if err := s.sessions.CloseDebt(id); err != nil && !errors.Is(err, session.ErrNotFound) {
		s.logger.Warn("failed to close debt session", zap.String("session", id), zap.Error(err))
	}
	return res, nil
}

func bulkDetail(req domain.BulkPaymentRequest, err error) string {
	detail := fmt.Sprintf("method=%s", req.PaymentMethod)
	if req.PayAll {
		detail += " pay_all=true"
	} else {
		amounts := make([]float64, 0, len(req.Installments))
		for _, a := range req.Installments {
			amounts = append(amounts, a.Amount)
		}
		detail += fmt.Sprintf(" installments=%d total=%s", len(req.Installments), money.Format(money.Sum(amounts...)))
	}
	if err != nil {
		detail += " error=" + err.Error()
	}
	return detail
}

// Single installment payment

type InstallmentPaymentInput struct {
	Amount        any    `json:"amount"`
	PaymentMethod string `json:"payment_method"`
	Notes         string `json:"notes,omitempty"`
}

func (s *Service) PayInstallment(ctx context.Context, installmentID string, in InstallmentPaymentInput) (domain.InstallmentPaymentResult, error) {
	installmentID = strings.TrimSpace(installmentID)
	if installmentID == "" {
		return domain.InstallmentPaymentResult{}, domain.NewValidationError(domain.CodeMissingIdentifier, "installment id is required")
	}
	method, _ := domain.ParsePaymentMethod(in.PaymentMethod)
	amount := money.Normalize(s.logger, "installment_payment.amount", in.Amount)

	req, err := installment.SinglePayment(amount, method, in.Notes)
	if verr, ok := domain.AsValidation(err); ok {
		s.metrics.ValidationRejected(metrics.KindInstallmentPayment, verr.Code)
		return domain.InstallmentPaymentResult{}, err
	}

	res, err := s.shop.PayInstallment(ctx, installmentID, req)
	outcome := outcomeOf(err)
	s.metrics.Submission(metrics.KindInstallmentPayment, outcome)

	detail := fmt.Sprintf("method=%s amount=%s", req.PaymentMethod, money.Format(req.Amount))
	if err != nil {
		detail += " error=" + err.Error()
	}
	s.logAudit(ctx, domain.AuditActionInstallmentPay, "installment", installmentID, outcome, detail)
	return res, err
}

// Audit

func (s *Service) ListAuditLogs(ctx context.Context, filter store.AuditFilter) ([]domain.AuditLog, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != domain.RoleAdmin {
		return nil, ErrForbidden
	}
	return s.repo.ListAuditLogs(ctx, filter)
}

// notSent reports whether a session refused the submission before any
// request reached the shop API.
func notSent(err error) bool {
	switch {
	case errors.Is(err, session.ErrSubmissionInFlight), errors.Is(err, session.ErrCompleted):
		return true
	case errors.Is(err, session.ErrClosed):
		return !errors.Is(err, session.ErrResponseDiscarded)
	}
	return false
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return domain.OutcomeAccepted
	case errors.Is(err, session.ErrClosed):
		return domain.OutcomeIgnored
	}
	if _, ok := domain.AsBusinessRule(err); ok {
		return domain.OutcomeRejected
	}
	return domain.OutcomeFailed
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, outcome string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("audit"),
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Outcome:       outcome,
		Detail:        detail,
		CreatedAt:     s.now().UTC(),
	}); err != nil {
		s.logger.Warn("failed to write audit log",
			zap.String("action", action),
			zap.String("entity", entityType+"/"+entityID),
			zap.Error(err),
		)
	}
}
