package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/agentdesk/internal/session/domain"
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

func (r *repository) Create(ctx context.Context, session *domain.AgentSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *repository) FindByID(ctx context.Context, id snowflake.ID) (*domain.AgentSession, error) {
	var session domain.AgentSession
	err := r.db.WithContext(ctx).First(&session, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &session, nil
}

func (r *repository) CompleteOnce(ctx context.Context, id snowflake.ID, updates map[string]any) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.AgentSession{}).
		Where("id = ? AND completed_at IS NULL", id).
		Updates(updates)
	return result.RowsAffected, result.Error
}
