package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type CreateDeskRequest struct {
	Title       string        `json:"title"`
	Role        string        `json:"role"`
	LLMProvider string        `json:"llm_provider"`
	LLMModel    string        `json:"llm_model"`
	ReportsTo   *snowflake.ID `json:"reports_to"`
}

type Service interface {
	Create(ctx context.Context, req CreateDeskRequest) (*Desk, error)
	Get(ctx context.Context, id snowflake.ID) (*Desk, error)
	List(ctx context.Context) ([]Desk, error)
	Reparent(ctx context.Context, id snowflake.ID, newParent *snowflake.ID) (*Desk, error)
	Deactivate(ctx context.Context, id snowflake.ID) error
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, desk *Desk) error
	FindByID(ctx context.Context, id snowflake.ID) (*Desk, error)
	List(ctx context.Context) ([]Desk, error)
	Count(ctx context.Context) (int64, error)
	// UpdateHierarchy rewrites the derived fields of one desk, guarded by
	// the path the caller observed. Zero rows affected means a competing
	// transaction moved the desk first.
	UpdateHierarchy(ctx context.Context, id snowflake.ID, expectedPath string, reportsTo *snowflake.ID, newPath string, newLevel int) (int64, error)
	// TouchHierarchy bumps updated_at on a desk only while its path still
	// matches what the caller observed. A move that placed a desk under a
	// parent touches that parent, so two moves that would otherwise have
	// disjoint write sets conflict on the shared row. Zero rows affected
	// means the parent moved first.
	TouchHierarchy(ctx context.Context, id snowflake.ID, expectedPath string, now time.Time) (int64, error)
	// ShiftSubtree rewrites the path prefix and level of every descendant
	// of oldPrefix in the same transaction as the triggering move.
	ShiftSubtree(ctx context.Context, orgID snowflake.ID, oldPrefix, newPrefix string, levelDelta int, now time.Time) error
	SetActive(ctx context.Context, id snowflake.ID, active bool) (int64, error)
}

var (
	ErrInvalidTitle     = errors.New("invalid_title")
	ErrInvalidRole      = errors.New("invalid_role")
	ErrInvalidProvider  = errors.New("invalid_provider")
	ErrDeskNotFound     = errors.New("desk_not_found")
	ErrParentNotFound   = errors.New("parent_desk_not_found")
	ErrCycleDetected    = errors.New("cycle_detected")
	ErrDeskLimitReached = errors.New("desk_limit_reached")
)
