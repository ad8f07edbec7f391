// Package domain contains persistence models for the desk hierarchy.
package domain

import (
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Desk is a node in an organization's reporting tree. HierarchyPath and
// HierarchyLevel are derived fields: they are recomputed whenever the
// reports_to link changes and are never accepted from callers.
type Desk struct {
	ID             snowflake.ID   `gorm:"primaryKey" json:"id"`
	OrgID          snowflake.ID   `gorm:"not null;index" json:"org_id"`
	Title          string         `gorm:"type:text;not null" json:"title"`
	Role           string         `gorm:"type:text;not null" json:"role"`
	LLMProvider    string         `gorm:"column:llm_provider;type:text;not null" json:"llm_provider"`
	LLMModel       string         `gorm:"column:llm_model;type:text;not null" json:"llm_model"`
	ReportsToID    *snowflake.ID  `gorm:"index" json:"reports_to_id"`
	HierarchyLevel int            `gorm:"not null;default:1" json:"hierarchy_level"`
	HierarchyPath  string         `gorm:"type:text;not null;index" json:"hierarchy_path"`
	IsActive       bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName sets the database table name.
func (Desk) TableName() string { return "desks" }

// TenantScoped opts desks into tenant guard filtering.
func (Desk) TenantScoped() {}

// ChildPath returns the materialized path of a child of parentPath.
func ChildPath(parentPath string, id snowflake.ID) string {
	if parentPath == "" {
		return id.String()
	}
	return parentPath + "/" + id.String()
}

// PathContains reports whether path includes id as a segment.
func PathContains(path string, id snowflake.ID) bool {
	for _, other := range PathIDs(path) {
		if other == id {
			return true
		}
	}
	return false
}

// PathLevel returns the depth implied by a materialized path, 1 for roots.
func PathLevel(path string) int {
	if path == "" {
		return 0
	}
	return strings.Count(path, "/") + 1
}

// PathIDs returns the ancestor chain encoded in a path, root first.
func PathIDs(path string) []snowflake.ID {
	if path == "" {
		return nil
	}
	segments := strings.Split(path, "/")
	ids := make([]snowflake.ID, 0, len(segments))
	for _, segment := range segments {
		parsed, err := strconv.ParseInt(segment, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, snowflake.ID(parsed))
	}
	return ids
}
