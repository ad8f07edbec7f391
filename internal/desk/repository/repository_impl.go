package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/agentdesk/internal/desk/domain"
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

func (r *repository) Create(ctx context.Context, desk *domain.Desk) error {
	return r.db.WithContext(ctx).Create(desk).Error
}

func (r *repository) FindByID(ctx context.Context, id snowflake.ID) (*domain.Desk, error) {
	var desk domain.Desk
	err := r.db.WithContext(ctx).First(&desk, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &desk, nil
}

func (r *repository) List(ctx context.Context) ([]domain.Desk, error) {
	var desks []domain.Desk
	err := r.db.WithContext(ctx).
		Order("hierarchy_path ASC").
		Find(&desks).Error
	if err != nil {
		return nil, err
	}
	return desks, nil
}

func (r *repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Desk{}).Count(&count).Error
	return count, err
}

func (r *repository) UpdateHierarchy(ctx context.Context, id snowflake.ID, expectedPath string, reportsTo *snowflake.ID, newPath string, newLevel int) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.Desk{}).
		Where("id = ? AND hierarchy_path = ?", id, expectedPath).
		Updates(map[string]any{
			"reports_to_id":   reportsTo,
			"hierarchy_path":  newPath,
			"hierarchy_level": newLevel,
		})
	return result.RowsAffected, result.Error
}

func (r *repository) TouchHierarchy(ctx context.Context, id snowflake.ID, expectedPath string, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.Desk{}).
		Where("id = ? AND hierarchy_path = ?", id, expectedPath).
		Update("updated_at", now)
	return result.RowsAffected, result.Error
}

func (r *repository) ShiftSubtree(ctx context.Context, orgID snowflake.ID, oldPrefix, newPrefix string, levelDelta int, now time.Time) error {
	// Raw statement: the tenant guard only sees gorm statements, so the
	// org filter is explicit here.
	query := `UPDATE desks
		 SET hierarchy_path = ? || substr(hierarchy_path, ?),
		     hierarchy_level = hierarchy_level + ?,
		     updated_at = ?
		 WHERE org_id = ? AND hierarchy_path LIKE ? AND deleted_at IS NULL`
	if strings.EqualFold(r.db.Dialector.Name(), "mysql") {
		query = `UPDATE desks
		 SET hierarchy_path = CONCAT(?, SUBSTRING(hierarchy_path, ?)),
		     hierarchy_level = hierarchy_level + ?,
		     updated_at = ?
		 WHERE org_id = ? AND hierarchy_path LIKE ? AND deleted_at IS NULL`
	}
	return r.db.WithContext(ctx).Exec(
		query,
		newPrefix,
		len(oldPrefix)+1,
		levelDelta,
		now,
		orgID,
		oldPrefix+"/%",
	).Error
}

func (r *repository) SetActive(ctx context.Context, id snowflake.ID, active bool) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.Desk{}).
		Where("id = ?", id).
		Update("is_active", active)
	return result.RowsAffected, result.Error
}
