package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/agentdesk/internal/costledger/domain"
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

func (r *repository) Create(ctx context.Context, entry *domain.CostEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) FindBySessionID(ctx context.Context, sessionID snowflake.ID) (*domain.CostEntry, error) {
	var entry domain.CostEntry
	err := r.db.WithContext(ctx).First(&entry, "session_id = ?", sessionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

func (r *repository) ListByMonth(ctx context.Context, billingMonth string) ([]domain.CostEntry, error) {
	var entries []domain.CostEntry
	err := r.db.WithContext(ctx).
		Where("billing_month = ?", billingMonth).
		Order("created_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
