// Package orgcontext binds the active tenant to a unit of work.
//
// Every tenant-scoped read or write resolves its organization from the
// request context; nothing in this layer is process-global.
package orgcontext

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// OrgContextKey is the request context key for the active organization ID.
type OrgContextKey struct{}

type systemScopeKey struct{}

// WithOrgID stores the org ID in the context.
func WithOrgID(ctx context.Context, orgID snowflake.ID) context.Context {
	return context.WithValue(ctx, OrgContextKey{}, orgID)
}

// OrgIDFromContext returns the org ID from context, if set.
func OrgIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	if ctx == nil {
		return 0, false
	}

	value := ctx.Value(OrgContextKey{})
	if value == nil {
		return 0, false
	}
	switch typed := value.(type) {
	case snowflake.ID:
		if typed == 0 {
			return 0, false
		}
		return typed, true
	case int64:
		if typed == 0 {
			return 0, false
		}
		return snowflake.ID(typed), true
	}
	return 0, false
}

// WithSystemScope marks the context as a cross-tenant system scope.
//
// System scope is honored for reads only. Out-of-band jobs such as the
// analytics refresher use it to scan every tenant in one pass; tenant-scoped
// writes still require a bound org ID.
func WithSystemScope(ctx context.Context) context.Context {
	return context.WithValue(ctx, systemScopeKey{}, true)
}

// HasSystemScope reports whether the context carries the system scope.
func HasSystemScope(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	scoped, _ := ctx.Value(systemScopeKey{}).(bool)
	return scoped
}
