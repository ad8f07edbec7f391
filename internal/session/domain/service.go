package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type StartSessionRequest struct {
	DeskID snowflake.ID  `json:"desk_id"`
	TaskID *snowflake.ID `json:"task_id"`
}

type CompleteSessionRequest struct {
	SessionID    snowflake.ID `json:"session_id"`
	InputTokens  int64        `json:"input_tokens"`
	OutputTokens int64        `json:"output_tokens"`
	TotalCost    float64      `json:"total_cost"`
	CompletedAt  time.Time    `json:"completed_at"`
	Error        string       `json:"error"`
}

type Service interface {
	Start(ctx context.Context, req StartSessionRequest) (*AgentSession, error)
	Get(ctx context.Context, id snowflake.ID) (*AgentSession, error)
	// Complete marks the session done and records its cost ledger entry in
	// the same transaction. Completing an already-completed session is a
	// terminal no-op error; the ledger never gains a second entry.
	Complete(ctx context.Context, req CompleteSessionRequest) (*AgentSession, error)
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, session *AgentSession) error
	FindByID(ctx context.Context, id snowflake.ID) (*AgentSession, error)
	// CompleteOnce applies the completion update only while completed_at is
	// still unset, closing the race between concurrent completions.
	CompleteOnce(ctx context.Context, id snowflake.ID, updates map[string]any) (int64, error)
}

var (
	ErrSessionNotFound         = errors.New("session_not_found")
	ErrSessionAlreadyCompleted = errors.New("session_already_completed")
	ErrDanglingDeskReference   = errors.New("dangling_desk_reference")
	ErrInvalidTokens           = errors.New("invalid_tokens")
	ErrInvalidCost             = errors.New("invalid_cost")
	ErrInvalidCompletedAt      = errors.New("invalid_completed_at")
)
