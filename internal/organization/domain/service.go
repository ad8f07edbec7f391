package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type ProvisionRequest struct {
	Name     string           `json:"name"`
	Tier     SubscriptionTier `json:"tier"`
	Settings map[string]any   `json:"settings"`
}

type Service interface {
	Provision(ctx context.Context, req ProvisionRequest) (*Organization, error)
	Get(ctx context.Context) (*Organization, error)
	UpdateSubscription(ctx context.Context, tier SubscriptionTier) error
	SoftDelete(ctx context.Context) error
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, org Organization) error
	FindByID(ctx context.Context, id snowflake.ID) (*Organization, error)
	UpdateSubscription(ctx context.Context, id snowflake.ID, org Organization) error
	SoftDelete(ctx context.Context, id snowflake.ID) error
}

var (
	ErrInvalidName          = errors.New("invalid_name")
	ErrInvalidTier          = errors.New("invalid_tier")
	ErrOrganizationNotFound = errors.New("organization_not_found")
	ErrSlugTaken            = errors.New("slug_taken")
)
