package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/agentdesk/internal/clock"
	costdomain "github.com/smallbiznis/agentdesk/internal/costledger/domain"
	deskdomain "github.com/smallbiznis/agentdesk/internal/desk/domain"
	obsmetrics "github.com/smallbiznis/agentdesk/internal/observability/metrics"
	"github.com/smallbiznis/agentdesk/internal/session/domain"
	pkgdb "github.com/smallbiznis/agentdesk/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	DeskRepo deskdomain.Repository
	CostRepo costdomain.Repository
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	deskRepo deskdomain.Repository
	costRepo costdomain.Repository
	metrics  *obsmetrics.Metrics
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("session.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		deskRepo: p.DeskRepo,
		costRepo: p.CostRepo,
		metrics:  p.Metrics,
	}
}

func (s *Service) Start(ctx context.Context, req domain.StartSessionRequest) (*domain.AgentSession, error) {
	desk, err := s.deskRepo.FindByID(ctx, req.DeskID)
	if err != nil {
		return nil, err
	}
	if desk == nil {
		return nil, deskdomain.ErrDeskNotFound
	}

	session := &domain.AgentSession{
		ID:        s.genID.Generate(),
		DeskID:    req.DeskID,
		TaskID:    req.TaskID,
		Status:    domain.SessionActive,
		StartedAt: s.clock.Now().UTC(),
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*domain.AgentSession, error) {
	session, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Complete transitions completed_at from unset to set and appends the cost
// ledger entry, atomically. A retry after the transition already happened
// surfaces ErrSessionAlreadyCompleted and leaves exactly one entry behind.
func (s *Service) Complete(ctx context.Context, req domain.CompleteSessionRequest) (*domain.AgentSession, error) {
	if req.InputTokens < 0 || req.OutputTokens < 0 {
		return nil, domain.ErrInvalidTokens
	}
	if req.TotalCost < 0 {
		return nil, domain.ErrInvalidCost
	}

	var (
		completed *domain.AgentSession
		provider  string
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		session, err := repo.FindByID(ctx, req.SessionID)
		if err != nil {
			return err
		}
		if session == nil {
			return domain.ErrSessionNotFound
		}
		if session.CompletedAt != nil {
			return domain.ErrSessionAlreadyCompleted
		}

		completedAt := req.CompletedAt
		if completedAt.IsZero() {
			completedAt = s.clock.Now()
		}
		completedAt = completedAt.UTC()
		if completedAt.Before(session.StartedAt) {
			return domain.ErrInvalidCompletedAt
		}
		duration := domain.Duration(session.StartedAt, completedAt)

		status := domain.SessionCompleted
		if req.Error != "" {
			status = domain.SessionFailed
		}

		rows, err := repo.CompleteOnce(ctx, session.ID, map[string]any{
			"status":           status,
			"completed_at":     completedAt,
			"duration_seconds": duration,
			"input_tokens":     req.InputTokens,
			"output_tokens":    req.OutputTokens,
			"total_cost":       req.TotalCost,
			"error":            req.Error,
		})
		if err != nil {
			return err
		}
		if rows == 0 {
			// Lost the race between our read and the conditional update.
			return pkgdb.ErrConcurrentModification
		}

		desk, err := s.deskRepo.WithTx(tx).FindByID(ctx, session.DeskID)
		if err != nil {
			return err
		}
		if desk == nil {
			return domain.ErrDanglingDeskReference
		}
		provider = desk.LLMProvider

		entry := &costdomain.CostEntry{
			ID:           s.genID.Generate(),
			SessionID:    session.ID,
			DeskID:       desk.ID,
			TaskID:       session.TaskID,
			Provider:     desk.LLMProvider,
			Model:        desk.LLMModel,
			InputTokens:  req.InputTokens,
			OutputTokens: req.OutputTokens,
			TotalTokens:  req.InputTokens + req.OutputTokens,
			TotalCost:    req.TotalCost,
			BillingMonth: costdomain.BillingMonth(completedAt),
		}
		if err := s.costRepo.WithTx(tx).Create(ctx, entry); err != nil {
			if pkgdb.IsDuplicateKeyErr(err) {
				return pkgdb.ErrConcurrentModification
			}
			return err
		}

		session.Status = status
		session.CompletedAt = &completedAt
		session.DurationSeconds = &duration
		session.InputTokens = req.InputTokens
		session.OutputTokens = req.OutputTokens
		session.TotalCost = req.TotalCost
		session.Error = req.Error
		completed = session
		return nil
	})
	if err != nil {
		if pkgdb.IsSerializationErr(err) {
			return nil, pkgdb.ErrConcurrentModification
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordLedgerEntry(provider)
	}

	s.log.Info("session completed",
		zap.String("session_id", completed.ID.String()),
		zap.Int64("total_tokens", completed.InputTokens+completed.OutputTokens),
	)
	return completed, nil
}
