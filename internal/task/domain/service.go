package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type CreateTaskRequest struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Priority    TaskPriority `json:"priority"`
}

type Service interface {
	Create(ctx context.Context, req CreateTaskRequest) (*Task, error)
	Get(ctx context.Context, id snowflake.ID) (*Task, error)
	Assign(ctx context.Context, id, deskID snowflake.ID) (*Task, error)
	Transition(ctx context.Context, id snowflake.ID, to TaskStatus) (*Task, error)
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, task *Task) error
	FindByID(ctx context.Context, id snowflake.ID) (*Task, error)
	// UpdateStatus applies updates only while the task is still in the
	// observed status; zero rows means a competing writer moved it first.
	UpdateStatus(ctx context.Context, id snowflake.ID, from TaskStatus, updates map[string]any) (int64, error)
}

var (
	ErrInvalidTitle      = errors.New("invalid_title")
	ErrInvalidPriority   = errors.New("invalid_priority")
	ErrTaskNotFound      = errors.New("task_not_found")
	ErrInvalidTransition = errors.New("invalid_transition")
)
