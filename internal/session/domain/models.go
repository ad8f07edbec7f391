// Package domain contains persistence models for agent sessions.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// SessionStatus tracks the coarse session state.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
)

// AgentSession is one execution run bound to a desk and optionally a task.
// DurationSeconds is derived: present iff CompletedAt is set, equal to the
// whole-second difference from StartedAt.
type AgentSession struct {
	ID              snowflake.ID  `gorm:"primaryKey" json:"id"`
	OrgID           snowflake.ID  `gorm:"not null;index" json:"org_id"`
	DeskID          snowflake.ID  `gorm:"not null;index" json:"desk_id"`
	TaskID          *snowflake.ID `gorm:"index" json:"task_id"`
	Status          SessionStatus `gorm:"type:text;not null;default:'active'" json:"status"`
	InputTokens     int64         `gorm:"not null;default:0" json:"input_tokens"`
	OutputTokens    int64         `gorm:"not null;default:0" json:"output_tokens"`
	TotalCost       float64       `gorm:"not null;default:0" json:"total_cost"`
	StartedAt       time.Time     `gorm:"not null" json:"started_at"`
	CompletedAt     *time.Time    `json:"completed_at"`
	DurationSeconds *int64        `json:"duration_seconds"`
	Error           string        `gorm:"type:text" json:"error"`
	CreatedAt       time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (AgentSession) TableName() string { return "agent_sessions" }

// TenantScoped opts sessions into tenant guard filtering.
func (AgentSession) TenantScoped() {}

// Duration derives the session duration in whole seconds.
func Duration(startedAt, completedAt time.Time) int64 {
	return int64(completedAt.Sub(startedAt) / time.Second)
}
