// Package domain contains persistence models for organizations.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SubscriptionTier is the billing plan of an organization.
type SubscriptionTier string

const (
	TierFree         SubscriptionTier = "free"
	TierStarter      SubscriptionTier = "starter"
	TierProfessional SubscriptionTier = "professional"
	TierEnterprise   SubscriptionTier = "enterprise"
)

// Organization represents a tenant. Every other row in the schema belongs
// to exactly one organization.
type Organization struct {
	ID                 snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name               string            `gorm:"type:text;not null" json:"name"`
	Slug               string            `gorm:"type:text;not null;uniqueIndex:ux_organizations_slug" json:"slug"`
	SubscriptionTier   SubscriptionTier  `gorm:"type:text;not null;default:'free'" json:"subscription_tier"`
	SubscriptionStatus string            `gorm:"type:text;not null;default:'active'" json:"subscription_status"`
	MaxDesks           int               `gorm:"not null;default:10" json:"max_desks"`
	MaxTasksPerMonth   int               `gorm:"not null;default:1000" json:"max_tasks_per_month"`
	MaxMonthlyCost     float64           `gorm:"not null;default:100" json:"max_monthly_cost"`
	Settings           datatypes.JSONMap `gorm:"type:jsonb" json:"settings"`
	CreatedAt          time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt          gorm.DeletedAt    `gorm:"index" json:"-"`
}

// TableName sets the database table name.
func (Organization) TableName() string { return "organizations" }

// TierLimits returns the resource limits granted by a subscription tier.
func TierLimits(tier SubscriptionTier) (maxDesks, maxTasksPerMonth int, maxMonthlyCost float64) {
	switch tier {
	case TierStarter:
		return 25, 5_000, 500
	case TierProfessional:
		return 100, 20_000, 2_500
	case TierEnterprise:
		return 1_000, 100_000, 25_000
	default:
		return 10, 1_000, 100
	}
}
