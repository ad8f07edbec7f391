package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/agentdesk/internal/organization/domain"
	"github.com/smallbiznis/agentdesk/internal/orgcontext"
	pkgdb "github.com/smallbiznis/agentdesk/pkg/db"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  domain.Repository
	genID *snowflake.Node
}

func NewService(db *gorm.DB, log *zap.Logger, repo domain.Repository, genID *snowflake.Node) domain.Service {
	return &service{
		db:    db,
		log:   log.Named("organization.service"),
		repo:  repo,
		genID: genID,
	}
}

func (s *service) Provision(ctx context.Context, req domain.ProvisionRequest) (*domain.Organization, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	tier := req.Tier
	if tier == "" {
		tier = domain.TierFree
	}
	switch tier {
	case domain.TierFree, domain.TierStarter, domain.TierProfessional, domain.TierEnterprise:
	default:
		return nil, domain.ErrInvalidTier
	}

	maxDesks, maxTasks, maxCost := domain.TierLimits(tier)
	org := domain.Organization{
		ID:                 s.genID.Generate(),
		Name:               name,
		Slug:               slug.Make(name),
		SubscriptionTier:   tier,
		SubscriptionStatus: "active",
		MaxDesks:           maxDesks,
		MaxTasksPerMonth:   maxTasks,
		MaxMonthlyCost:     maxCost,
	}
	if req.Settings != nil {
		org.Settings = datatypes.JSONMap(req.Settings)
	}

	if err := s.repo.Create(ctx, org); err != nil {
		if pkgdb.IsDuplicateKeyErr(err) {
			return nil, domain.ErrSlugTaken
		}
		return nil, err
	}

	s.log.Info("organization provisioned",
		zap.String("org_id", org.ID.String()),
		zap.String("tier", string(tier)),
	)

	return &org, nil
}

func (s *service) Get(ctx context.Context) (*domain.Organization, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok {
		return nil, domain.ErrOrganizationNotFound
	}

	org, err := s.repo.FindByID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, domain.ErrOrganizationNotFound
	}
	return org, nil
}

func (s *service) UpdateSubscription(ctx context.Context, tier domain.SubscriptionTier) error {
	switch tier {
	case domain.TierFree, domain.TierStarter, domain.TierProfessional, domain.TierEnterprise:
	default:
		return domain.ErrInvalidTier
	}

	org, err := s.Get(ctx)
	if err != nil {
		return err
	}

	maxDesks, maxTasks, maxCost := domain.TierLimits(tier)
	org.SubscriptionTier = tier
	org.MaxDesks = maxDesks
	org.MaxTasksPerMonth = maxTasks
	org.MaxMonthlyCost = maxCost

	return s.repo.UpdateSubscription(ctx, org.ID, *org)
}

func (s *service) SoftDelete(ctx context.Context) error {
	org, err := s.Get(ctx)
	if err != nil {
		return err
	}
	return s.repo.SoftDelete(ctx, org.ID)
}
