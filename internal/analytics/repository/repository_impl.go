package repository

import (
	"context"

	"github.com/smallbiznis/agentdesk/internal/analytics/domain"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

func (r *repository) ListOrgUsage(ctx context.Context) ([]domain.OrgUsageSnapshot, error) {
	var rows []domain.OrgUsageSnapshot
	err := r.db.WithContext(ctx).
		Order("billing_month, provider, model").
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListDeskActivity(ctx context.Context) ([]domain.DeskActivitySnapshot, error) {
	var rows []domain.DeskActivitySnapshot
	err := r.db.WithContext(ctx).
		Order("desk_id").
		Find(&rows).Error
	return rows, err
}
