// Package domain contains the append-only cost ledger model.
package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// CostEntry is one immutable billing fact derived from exactly one session
// completion. The unique index on session_id is the idempotency backstop:
// retried completions cannot double-record, regardless of interleaving.
type CostEntry struct {
	ID           snowflake.ID  `gorm:"primaryKey" json:"id"`
	OrgID        snowflake.ID  `gorm:"not null;index:idx_cost_entries_org_month,priority:1" json:"org_id"`
	SessionID    snowflake.ID  `gorm:"not null;uniqueIndex:ux_cost_entries_session" json:"session_id"`
	DeskID       snowflake.ID  `gorm:"not null;index" json:"desk_id"`
	TaskID       *snowflake.ID `gorm:"index" json:"task_id"`
	Provider     string        `gorm:"type:text;not null" json:"provider"`
	Model        string        `gorm:"type:text;not null" json:"model"`
	InputTokens  int64         `gorm:"not null;default:0" json:"input_tokens"`
	OutputTokens int64         `gorm:"not null;default:0" json:"output_tokens"`
	TotalTokens  int64         `gorm:"not null;default:0" json:"total_tokens"`
	TotalCost    float64       `gorm:"not null;default:0" json:"total_cost"`
	BillingMonth string        `gorm:"type:text;not null;index:idx_cost_entries_org_month,priority:2" json:"billing_month"`
	CreatedAt    time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (CostEntry) TableName() string { return "cost_entries" }

// TenantScoped opts cost entries into tenant guard filtering.
func (CostEntry) TenantScoped() {}

// BillingMonth derives the YYYY-MM billing period key from a completion
// timestamp.
func BillingMonth(t time.Time) string {
	return t.UTC().Format("2006-01")
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *CostEntry) error
	FindBySessionID(ctx context.Context, sessionID snowflake.ID) (*CostEntry, error)
	ListByMonth(ctx context.Context, billingMonth string) ([]CostEntry, error)
}
