package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/agentdesk/internal/clock"
	"github.com/smallbiznis/agentdesk/internal/desk/domain"
	orgdomain "github.com/smallbiznis/agentdesk/internal/organization/domain"
	"github.com/smallbiznis/agentdesk/internal/orgcontext"
	pkgdb "github.com/smallbiznis/agentdesk/pkg/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type service struct {
	db      *gorm.DB
	log     *zap.Logger
	repo    domain.Repository
	orgRepo orgdomain.Repository
	genID   *snowflake.Node
	clock   clock.Clock
}

func NewService(
	db *gorm.DB,
	log *zap.Logger,
	repo domain.Repository,
	orgRepo orgdomain.Repository,
	genID *snowflake.Node,
	clk clock.Clock,
) domain.Service {
	return &service{
		db:      db,
		log:     log.Named("desk.service"),
		repo:    repo,
		orgRepo: orgRepo,
		genID:   genID,
		clock:   clk,
	}
}

func (s *service) Create(ctx context.Context, req domain.CreateDeskRequest) (*domain.Desk, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, domain.ErrInvalidTitle
	}
	role := strings.TrimSpace(req.Role)
	if role == "" {
		return nil, domain.ErrInvalidRole
	}
	if strings.TrimSpace(req.LLMProvider) == "" || strings.TrimSpace(req.LLMModel) == "" {
		return nil, domain.ErrInvalidProvider
	}

	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, orgdomain.ErrOrganizationNotFound
	}

	desk := &domain.Desk{
		ID:          s.genID.Generate(),
		Title:       title,
		Role:        role,
		LLMProvider: strings.TrimSpace(req.LLMProvider),
		LLMModel:    strings.TrimSpace(req.LLMModel),
		IsActive:    true,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		org, err := s.orgRepo.WithTx(tx).FindByID(ctx, orgID)
		if err != nil {
			return err
		}
		if org == nil {
			return orgdomain.ErrOrganizationNotFound
		}

		count, err := repo.Count(ctx)
		if err != nil {
			return err
		}
		if org.MaxDesks > 0 && count >= int64(org.MaxDesks) {
			return domain.ErrDeskLimitReached
		}

		parent, level, path, err := s.placement(ctx, repo, desk.ID, req.ReportsTo)
		if err != nil {
			return err
		}
		if err := s.anchorParent(ctx, repo, parent); err != nil {
			return err
		}
		desk.ReportsToID = req.ReportsTo
		desk.HierarchyLevel = level
		desk.HierarchyPath = path

		return repo.Create(ctx, desk)
	})
	if err != nil {
		if pkgdb.IsSerializationErr(err) {
			return nil, pkgdb.ErrConcurrentModification
		}
		return nil, err
	}

	return desk, nil
}

func (s *service) Get(ctx context.Context, id snowflake.ID) (*domain.Desk, error) {
	desk, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if desk == nil {
		return nil, domain.ErrDeskNotFound
	}
	return desk, nil
}

func (s *service) List(ctx context.Context) ([]domain.Desk, error) {
	return s.repo.List(ctx)
}

// Reparent moves a desk under a new parent. The derived path and level of
// the desk and its whole subtree are rewritten in the same transaction, so
// no reader ever observes a stale ancestry chain.
func (s *service) Reparent(ctx context.Context, id snowflake.ID, newParent *snowflake.ID) (*domain.Desk, error) {
	var moved *domain.Desk

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		desk, err := repo.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if desk == nil {
			return domain.ErrDeskNotFound
		}

		if newParent != nil && *newParent == id {
			return domain.ErrCycleDetected
		}

		parent, level, path, err := s.placement(ctx, repo, id, newParent)
		if err != nil {
			return err
		}
		if err := s.anchorParent(ctx, repo, parent); err != nil {
			return err
		}

		oldPath := desk.HierarchyPath
		oldLevel := desk.HierarchyLevel

		rows, err := repo.UpdateHierarchy(ctx, id, oldPath, newParent, path, level)
		if err != nil {
			return err
		}
		if rows == 0 {
			return pkgdb.ErrConcurrentModification
		}

		if oldPath != path {
			if err := repo.ShiftSubtree(ctx, desk.OrgID, oldPath, path, level-oldLevel, s.clock.Now().UTC()); err != nil {
				return err
			}
		}

		desk.ReportsToID = newParent
		desk.HierarchyPath = path
		desk.HierarchyLevel = level
		moved = desk
		return nil
	})
	if err != nil {
		if pkgdb.IsSerializationErr(err) {
			return nil, pkgdb.ErrConcurrentModification
		}
		return nil, err
	}

	s.log.Info("desk reparented",
		zap.String("desk_id", id.String()),
		zap.String("path", moved.HierarchyPath),
	)
	return moved, nil
}

func (s *service) Deactivate(ctx context.Context, id snowflake.ID) error {
	rows, err := s.repo.SetActive(ctx, id, false)
	if err != nil {
		return err
	}
	if rows == 0 {
		return domain.ErrDeskNotFound
	}
	return nil
}

// placement derives level and path for a desk under the given parent link
// and returns the parent as observed, nil for roots. It must run inside the
// transaction that performs the write, and the caller must anchor the
// returned parent with a guarded touch before committing.
func (s *service) placement(ctx context.Context, repo domain.Repository, id snowflake.ID, reportsTo *snowflake.ID) (*domain.Desk, int, string, error) {
	if reportsTo == nil {
		path := domain.ChildPath("", id)
		return nil, domain.PathLevel(path), path, nil
	}

	parent, err := repo.FindByID(ctx, *reportsTo)
	if err != nil {
		return nil, 0, "", err
	}
	if parent == nil {
		return nil, 0, "", domain.ErrParentNotFound
	}
	if parent.ID == id || domain.PathContains(parent.HierarchyPath, id) {
		return nil, 0, "", domain.ErrCycleDetected
	}

	path := domain.ChildPath(parent.HierarchyPath, id)
	return parent, domain.PathLevel(path), path, nil
}

// anchorParent forces a write on the observed parent row, conditioned on the
// path used to derive the placement. Without it, two moves that read each
// other's subtree before writing could both commit and close a cycle.
func (s *service) anchorParent(ctx context.Context, repo domain.Repository, parent *domain.Desk) error {
	if parent == nil {
		return nil
	}
	rows, err := repo.TouchHierarchy(ctx, parent.ID, parent.HierarchyPath, s.clock.Now().UTC())
	if err != nil {
		return err
	}
	if rows == 0 {
		return pkgdb.ErrConcurrentModification
	}
	return nil
}
