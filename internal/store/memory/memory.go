package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/luizaugustom/montshop-desktop-sub000/internal/domain"
	"github.com/luizaugustom/montshop-desktop-sub000/internal/store"
	"github.com/luizaugustom/montshop-desktop-sub000/internal/xid"
)

// Store keeps audit rows in process memory. Used when DATABASE_URL is unset.
type Store struct {
	mu        sync.RWMutex
	auditLogs []domain.AuditLog
}

func New() *Store {
	return &Store{auditLogs: make([]domain.AuditLog, 0, 128)}
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	if err := store.ValidateAuditLog(entry); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, filter store.AuditFilter) ([]domain.AuditLog, error) {
	filter = filter.Normalize(time.Now().UTC())

	s.mu.RLock()
	defer s.mu.RUnlock()

	logs := make([]domain.AuditLog, 0, min(filter.Limit, len(s.auditLogs)))
	for _, entry := range s.auditLogs {
		if filter.Actor != "" && entry.ActorUsername != filter.Actor {
			continue
		}
		if filter.Action != "" && entry.Action != filter.Action {
			continue
		}
		if entry.CreatedAt.Before(filter.From) || !entry.CreatedAt.Before(filter.To) {
			continue
		}
		logs = append(logs, entry)
	}

	slices.SortStableFunc(logs, func(a, b domain.AuditLog) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if len(logs) > filter.Limit {
		logs = logs[:filter.Limit]
	}
	return logs, nil
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }
