package domain

import (
	"context"

	"gorm.io/gorm"
)

type Service interface {
	// Refresh rebuilds both snapshot tables for every tenant. It runs under
	// system scope and never takes a tenant parameter; two consecutive
	// refreshes with no intervening writes produce identical rows.
	Refresh(ctx context.Context) error
	// OrganizationSummary answers from the live tables for the tenant bound
	// to ctx. It never reads the snapshot tables.
	OrganizationSummary(ctx context.Context) (*OrganizationSummary, error)
}

// Repository reads snapshot rows for the tenant bound to ctx. The guard
// supplies the org filter, so callers never pass an org id of their own.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ListOrgUsage(ctx context.Context) ([]OrgUsageSnapshot, error)
	ListDeskActivity(ctx context.Context) ([]DeskActivitySnapshot, error)
}
