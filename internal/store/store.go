package store

import (
	"context"
	"errors"
	"time"

	"github.com/luizaugustom/montshop-desktop-sub000/internal/domain"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidRecord = errors.New("invalid record")
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 500
)

type AuditFilter struct {
	Actor  string
	Action string
	From   time.Time
	To     time.Time
	Limit  int
}

// Normalize fills in the limit and the open end of the time window.
func (f AuditFilter) Normalize(now time.Time) AuditFilter {
	if f.Limit < 1 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.To.IsZero() {
		f.To = now.Add(time.Second)
	}
	return f
}

// Repository keeps the audit trail of submissions sent to the shop service.
type Repository interface {
	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, filter AuditFilter) ([]domain.AuditLog, error)
	Ping(ctx context.Context) error
	Close() error
}

func ValidateAuditLog(entry domain.AuditLog) error {
	if entry.Action == "" || entry.EntityType == "" || entry.Outcome == "" {
		return ErrInvalidRecord
	}
	return nil
}
