package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/luizaugustom/montshop-desktop-sub000/internal/domain"
	"github.com/luizaugustom/montshop-desktop-sub000/internal/xid"
)

type Registry struct {
	api    ShopAPI
	idle   time.Duration
	logger *zap.Logger
	now    func() time.Time

	mu        sync.Mutex
	exchanges map[string]*ExchangeSession
	debts     map[string]*DebtSession
}

func NewRegistry(api ShopAPI, idle time.Duration, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		api:       api,
		idle:      idle,
		logger:    logger.Named("session"),
		now:       time.Now,
		exchanges: make(map[string]*ExchangeSession),
		debts:     make(map[string]*DebtSession),
	}
}

func requireID(kind, id string) error {
	if strings.TrimSpace(id) == "" {
		return domain.NewValidationError(domain.CodeMissingIdentifier, "%s id is required", kind)
	}
	return nil
}

// OpenExchange fetches the sale and starts an exchange dialog for it.
func (r *Registry) OpenExchange(ctx context.Context, owner, saleID string) (*ExchangeSession, error) {
	saleID = strings.TrimSpace(saleID)
	if err := requireID("sale", saleID); err != nil {
		return nil, err
	}
	sale, err := r.api.GetSale(ctx, saleID)
	if err != nil {
		return nil, err
	}
	s := newExchangeSession(xid.New("exs"), owner, sale, r.api, r.logger, r.now)
	r.mu.Lock()
	r.exchanges[s.id] = s
	r.mu.Unlock()
	r.logger.Debug("exchange session opened", zap.String("session", s.id), zap.String("sale", saleID))
	return s, nil
}

func (r *Registry) Exchange(id string) (*ExchangeSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.exchanges[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

// CloseExchange discards the dialog. An in-flight submission keeps running
// but its result is dropped.
func (r *Registry) CloseExchange(id string) error {
	r.mu.Lock()
	s, ok := r.exchanges[id]
	delete(r.exchanges, id)
	r.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	s.Close()
	return nil
}

func (r *Registry) OpenDebt(ctx context.Context, owner, customerID string) (*DebtSession, error) {
	customerID = strings.TrimSpace(customerID)
	if err := requireID("customer", customerID); err != nil {
		return nil, err
	}
	summary, err := r.api.DebtSummary(ctx, customerID)
	if err != nil {
		return nil, err
	}
	s := newDebtSession(xid.New("dbs"), owner, customerID, summary, r.api, r.logger, r.now)
	r.mu.Lock()
	r.debts[s.id] = s
	r.mu.Unlock()
	r.logger.Debug("debt session opened", zap.String("session", s.id), zap.String("customer", customerID))
	return s, nil
}

func (r *Registry) Debt(id string) (*DebtSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.debts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

func (r *Registry) CloseDebt(id string) error {
	r.mu.Lock()
	s, ok := r.debts[id]
	delete(r.debts, id)
	r.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	s.Close()
	return nil
}

// Sweep closes sessions idle for longer than the configured duration.
// Sessions with a submission in flight are kept.
func (r *Registry) Sweep() int {
	if r.idle <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idle)

	r.mu.Lock()
	var stale []interface{ Close() }
	for id, s := range r.exchanges {
		if last, busy := s.idleSince(); !busy && last.Before(cutoff) {
			delete(r.exchanges, id)
			stale = append(stale, s)
		}
	}
	for id, s := range r.debts {
		if last, busy := s.idleSince(); !busy && last.Before(cutoff) {
			delete(r.debts, id)
			stale = append(stale, s)
		}
	}
	r.mu.Unlock()

	for _, s := range stale {
		s.Close()
	}
	if len(stale) > 0 {
		r.logger.Info("idle sessions closed", zap.Int("count", len(stale)))
	}
	return len(stale)
}

// Run sweeps on every tick until ctx is done.
func (r *Registry) Run(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

func (r *Registry) Counts() (exchanges, debts int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.exchanges), len(r.debts)
}
