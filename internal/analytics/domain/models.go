// Package domain contains the reporting snapshot models.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// OrgUsageSnapshot is one aggregated ledger row per org, billing month,
// provider and model. The table is rebuilt wholesale on every refresh, so
// rows carry a natural composite key instead of a generated id.
type OrgUsageSnapshot struct {
	OrgID             snowflake.ID `gorm:"primaryKey" json:"org_id"`
	BillingMonth      string       `gorm:"primaryKey;size:7" json:"billing_month"`
	Provider          string       `gorm:"primaryKey;type:text" json:"provider"`
	Model             string       `gorm:"primaryKey;type:text" json:"model"`
	SessionCount      int64        `gorm:"not null;default:0" json:"session_count"`
	TotalInputTokens  int64        `gorm:"not null;default:0" json:"total_input_tokens"`
	TotalOutputTokens int64        `gorm:"not null;default:0" json:"total_output_tokens"`
	TotalTokens       int64        `gorm:"not null;default:0" json:"total_tokens"`
	TotalCost         float64      `gorm:"not null;default:0" json:"total_cost"`
	RefreshedAt       time.Time    `gorm:"not null" json:"refreshed_at"`
}

// TableName sets the database table name.
func (OrgUsageSnapshot) TableName() string { return "org_usage_snapshots" }

// TenantScoped opts usage snapshots into tenant guard filtering. The
// refresher rebuilds the table with raw SQL under system scope; reads go
// through the guard like every other tenant-scoped row.
func (OrgUsageSnapshot) TenantScoped() {}

// DeskActivitySnapshot is one aggregated activity row per desk.
type DeskActivitySnapshot struct {
	OrgID          snowflake.ID `gorm:"primaryKey" json:"org_id"`
	DeskID         snowflake.ID `gorm:"primaryKey" json:"desk_id"`
	ActiveTasks    int64        `gorm:"not null;default:0" json:"active_tasks"`
	CompletedTasks int64        `gorm:"not null;default:0" json:"completed_tasks"`
	SessionCount   int64        `gorm:"not null;default:0" json:"session_count"`
	TotalCost      float64      `gorm:"not null;default:0" json:"total_cost"`
	RefreshedAt    time.Time    `gorm:"not null" json:"refreshed_at"`
}

// TableName sets the database table name.
func (DeskActivitySnapshot) TableName() string { return "desk_activity_snapshots" }

// TenantScoped opts activity snapshots into tenant guard filtering.
func (DeskActivitySnapshot) TenantScoped() {}

// OrganizationSummary is computed from the live tables for one tenant.
type OrganizationSummary struct {
	TotalDesks           int64   `json:"total_desks"`
	ActiveDesks          int64   `json:"active_desks"`
	TotalTasks           int64   `json:"total_tasks"`
	ActiveTasks          int64   `json:"active_tasks"`
	CompletedTasks       int64   `json:"completed_tasks"`
	CostThisBillingMonth float64 `json:"cost_this_billing_month"`
}
