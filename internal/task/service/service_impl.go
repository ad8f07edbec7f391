package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/agentdesk/internal/clock"
	deskdomain "github.com/smallbiznis/agentdesk/internal/desk/domain"
	"github.com/smallbiznis/agentdesk/internal/task/domain"
	pkgdb "github.com/smallbiznis/agentdesk/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type service struct {
	db       *gorm.DB
	log      *zap.Logger
	repo     domain.Repository
	deskRepo deskdomain.Repository
	genID    *snowflake.Node
	clock    clock.Clock
}

func NewService(
	db *gorm.DB,
	log *zap.Logger,
	repo domain.Repository,
	deskRepo deskdomain.Repository,
	genID *snowflake.Node,
	clk clock.Clock,
) domain.Service {
	return &service{
		db:       db,
		log:      log.Named("task.service"),
		repo:     repo,
		deskRepo: deskRepo,
		genID:    genID,
		clock:    clk,
	}
}

func (s *service) Create(ctx context.Context, req domain.CreateTaskRequest) (*domain.Task, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.ErrInvalidTitle
	}

	priority := req.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	switch priority {
	case domain.PriorityCritical, domain.PriorityHigh, domain.PriorityMedium, domain.PriorityLow:
	default:
		return nil, domain.ErrInvalidPriority
	}

	task := &domain.Task{
		ID:          s.genID.Generate(),
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Status:      domain.StatusPending,
		Priority:    priority,
	}
	if err := s.repo.Create(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

func (s *service) Get(ctx context.Context, id snowflake.ID) (*domain.Task, error) {
	task, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, domain.ErrTaskNotFound
	}
	return task, nil
}

func (s *service) Assign(ctx context.Context, id, deskID snowflake.ID) (*domain.Task, error) {
	var assigned *domain.Task

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		task, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if task == nil {
			return domain.ErrTaskNotFound
		}
		if !domain.CanTransition(task.Status, domain.StatusAssigned) {
			return domain.ErrInvalidTransition
		}

		desk, err := s.deskRepo.WithTx(tx).FindByID(ctx, deskID)
		if err != nil {
			return err
		}
		if desk == nil {
			return deskdomain.ErrDeskNotFound
		}

		rows, err := repo.UpdateStatus(ctx, id, task.Status, map[string]any{
			"status":         domain.StatusAssigned,
			"assigned_to_id": deskID,
		})
		if err != nil {
			return err
		}
		if rows == 0 {
			return pkgdb.ErrConcurrentModification
		}

		task.Status = domain.StatusAssigned
		task.AssignedToID = &deskID
		assigned = task
		return nil
	})
	if err != nil {
		return nil, err
	}
	return assigned, nil
}

// Transition moves a task through its lifecycle, stamping started_at and
// completed_at on the transitions that define them.
func (s *service) Transition(ctx context.Context, id snowflake.ID, to domain.TaskStatus) (*domain.Task, error) {
	task, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(task.Status, to) {
		return nil, domain.ErrInvalidTransition
	}

	updates := map[string]any{"status": to}
	now := s.clock.Now().UTC()
	if to == domain.StatusInProgress && task.StartedAt == nil {
		updates["started_at"] = now
		task.StartedAt = &now
	}
	if to == domain.StatusCompleted {
		updates["completed_at"] = now
		task.CompletedAt = &now
	}

	rows, err := s.repo.UpdateStatus(ctx, id, task.Status, updates)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, pkgdb.ErrConcurrentModification
	}

	task.Status = to
	return task, nil
}
