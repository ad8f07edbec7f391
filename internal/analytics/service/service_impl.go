package service

import (
	"context"
	"time"

	"github.com/smallbiznis/agentdesk/internal/analytics/domain"
	"github.com/smallbiznis/agentdesk/internal/clock"
	costdomain "github.com/smallbiznis/agentdesk/internal/costledger/domain"
	deskdomain "github.com/smallbiznis/agentdesk/internal/desk/domain"
	obsmetrics "github.com/smallbiznis/agentdesk/internal/observability/metrics"
	"github.com/smallbiznis/agentdesk/internal/orgcontext"
	taskdomain "github.com/smallbiznis/agentdesk/internal/task/domain"
	"github.com/smallbiznis/agentdesk/pkg/tenantguard"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	Metrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	metrics *obsmetrics.Metrics
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:      p.DB,
		log:     p.Log.Named("analytics.service"),
		clock:   p.Clock,
		metrics: p.Metrics,
	}
}

// Refresh rebuilds the snapshot tables from the live tables in one
// transaction per table, delete-then-insert-select. Grouping keys order the
// inserts so repeated refreshes over unchanged data write identical rows.
func (s *Service) Refresh(parentCtx context.Context) error {
	ctx := orgcontext.WithSystemScope(parentCtx)
	started := time.Now()
	refreshedAt := s.clock.Now().UTC()

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.refreshOrgUsage(ctx, tx, refreshedAt); err != nil {
			return err
		}
		return s.refreshDeskActivity(ctx, tx, refreshedAt)
	})
	if err != nil {
		return err
	}

	if s.metrics != nil {
		s.metrics.RecordSnapshotRefresh(time.Since(started))
	}
	s.log.Debug("snapshots refreshed", zap.Time("refreshed_at", refreshedAt))
	return nil
}

func (s *Service) refreshOrgUsage(ctx context.Context, tx *gorm.DB, refreshedAt time.Time) error {
	if err := tx.WithContext(ctx).Exec(`DELETE FROM org_usage_snapshots`).Error; err != nil {
		return err
	}
	return tx.WithContext(ctx).Exec(`
		INSERT INTO org_usage_snapshots
			(org_id, billing_month, provider, model, session_count,
			 total_input_tokens, total_output_tokens, total_tokens,
			 total_cost, refreshed_at)
		SELECT
			org_id, billing_month, provider, model, COUNT(*),
			SUM(input_tokens), SUM(output_tokens), SUM(total_tokens),
			SUM(total_cost), ?
		FROM cost_entries
		GROUP BY org_id, billing_month, provider, model
		ORDER BY org_id, billing_month, provider, model`,
		refreshedAt,
	).Error
}

func (s *Service) refreshDeskActivity(ctx context.Context, tx *gorm.DB, refreshedAt time.Time) error {
	if err := tx.WithContext(ctx).Exec(`DELETE FROM desk_activity_snapshots`).Error; err != nil {
		return err
	}
	return tx.WithContext(ctx).Exec(`
		INSERT INTO desk_activity_snapshots
			(org_id, desk_id, active_tasks, completed_tasks, session_count,
			 total_cost, refreshed_at)
		SELECT
			d.org_id, d.id,
			(SELECT COUNT(*) FROM tasks t
				WHERE t.org_id = d.org_id AND t.assigned_to_id = d.id
				  AND t.status IN (?, ?, ?, ?, ?)),
			(SELECT COUNT(*) FROM tasks t
				WHERE t.org_id = d.org_id AND t.assigned_to_id = d.id
				  AND t.status = ?),
			(SELECT COUNT(*) FROM agent_sessions s
				WHERE s.org_id = d.org_id AND s.desk_id = d.id),
			COALESCE((SELECT SUM(c.total_cost) FROM cost_entries c
				WHERE c.org_id = d.org_id AND c.desk_id = d.id), 0),
			?
		FROM desks d
		WHERE d.deleted_at IS NULL
		ORDER BY d.org_id, d.id`,
		taskdomain.StatusPending, taskdomain.StatusAssigned, taskdomain.StatusInProgress,
		taskdomain.StatusBlocked, taskdomain.StatusInReview,
		taskdomain.StatusCompleted,
		refreshedAt,
	).Error
}

func (s *Service) OrganizationSummary(ctx context.Context) (*domain.OrganizationSummary, error) {
	if _, ok := orgcontext.OrgIDFromContext(ctx); !ok {
		return nil, tenantguard.ErrNoTenantBound
	}

	var summary domain.OrganizationSummary
	month := costdomain.BillingMonth(s.clock.Now())

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).Model(&deskdomain.Desk{}).
			Count(&summary.TotalDesks).Error; err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Model(&deskdomain.Desk{}).
			Where("is_active = ?", true).
			Count(&summary.ActiveDesks).Error; err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Model(&taskdomain.Task{}).
			Count(&summary.TotalTasks).Error; err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Model(&taskdomain.Task{}).
			Where("status IN ?", taskdomain.ActiveStatuses).
			Count(&summary.ActiveTasks).Error; err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Model(&taskdomain.Task{}).
			Where("status = ?", taskdomain.StatusCompleted).
			Count(&summary.CompletedTasks).Error; err != nil {
			return err
		}

		var cost struct{ Total float64 }
		if err := tx.WithContext(ctx).Model(&costdomain.CostEntry{}).
			Select("COALESCE(SUM(total_cost), 0) AS total").
			Where("billing_month = ?", month).
			Scan(&cost).Error; err != nil {
			return err
		}
		summary.CostThisBillingMonth = cost.Total
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &summary, nil
}
