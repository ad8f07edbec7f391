// Package domain contains persistence models for work items.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// TaskStatus is the finite task lifecycle.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusAssigned   TaskStatus = "assigned"
	StatusInProgress TaskStatus = "in_progress"
	StatusBlocked    TaskStatus = "blocked"
	StatusInReview   TaskStatus = "in_review"
	StatusApproved   TaskStatus = "approved"
	StatusRejected   TaskStatus = "rejected"
	StatusCompleted  TaskStatus = "completed"
	StatusCancelled  TaskStatus = "cancelled"
)

// TaskPriority ranks tasks for assignment.
type TaskPriority string

const (
	PriorityCritical TaskPriority = "critical"
	PriorityHigh     TaskPriority = "high"
	PriorityMedium   TaskPriority = "medium"
	PriorityLow      TaskPriority = "low"
)

// Task is a tenant-scoped unit of work, optionally assigned to a desk.
type Task struct {
	ID           snowflake.ID  `gorm:"primaryKey" json:"id"`
	OrgID        snowflake.ID  `gorm:"not null;index" json:"org_id"`
	Title        string        `gorm:"type:text;not null" json:"title"`
	Description  string        `gorm:"type:text" json:"description"`
	AssignedToID *snowflake.ID `gorm:"index" json:"assigned_to_id"`
	Status       TaskStatus    `gorm:"type:text;not null;default:'pending';index" json:"status"`
	Priority     TaskPriority  `gorm:"type:text;not null;default:'medium'" json:"priority"`
	StartedAt    *time.Time    `json:"started_at"`
	CompletedAt  *time.Time    `json:"completed_at"`
	CreatedAt    time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt    time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Task) TableName() string { return "tasks" }

// TenantScoped opts tasks into tenant guard filtering.
func (Task) TenantScoped() {}

// ActiveStatuses are the states counted as in-flight by reporting.
var ActiveStatuses = []TaskStatus{
	StatusPending,
	StatusAssigned,
	StatusInProgress,
	StatusBlocked,
	StatusInReview,
}

var transitions = map[TaskStatus][]TaskStatus{
	StatusPending:    {StatusAssigned, StatusCancelled},
	StatusAssigned:   {StatusInProgress, StatusPending, StatusCancelled},
	StatusInProgress: {StatusBlocked, StatusInReview, StatusCompleted, StatusCancelled},
	StatusBlocked:    {StatusInProgress, StatusCancelled},
	StatusInReview:   {StatusApproved, StatusRejected, StatusCompleted},
	StatusApproved:   {StatusCompleted},
	StatusRejected:   {StatusInProgress, StatusCancelled},
}

// CanTransition reports whether the lifecycle permits from -> to.
func CanTransition(from, to TaskStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}
