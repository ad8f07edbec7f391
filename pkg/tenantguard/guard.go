// Package tenantguard enforces per-tenant row visibility on every gorm
// statement, the application-level equivalent of row-level security.
//
// Models opt in by implementing Scoped. Reads without a bound tenant fail
// closed; writes that would touch another tenant's rows fail with
// ErrTenantMismatch. The plugin also stamps updated_at from the layer's
// clock so callers cannot forge modification times.
package tenantguard

import (
	"errors"
	"reflect"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/agentdesk/internal/clock"
	"github.com/smallbiznis/agentdesk/internal/orgcontext"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

var (
	ErrNoTenantBound  = errors.New("no_tenant_bound")
	ErrTenantMismatch = errors.New("tenant_mismatch")
)

// Scoped marks a model as belonging to exactly one tenant. Scoped models
// must carry an org_id column.
type Scoped interface {
	TenantScoped()
}

type Plugin struct {
	clock clock.Clock
}

func New(c clock.Clock) *Plugin {
	if c == nil {
		c = clock.System()
	}
	return &Plugin{clock: c}
}

func (p *Plugin) Name() string { return "tenantguard" }

func (p *Plugin) Initialize(db *gorm.DB) error {
	if err := db.Callback().Query().Before("gorm:query").Register("tenantguard:query", p.scopeRead); err != nil {
		return err
	}
	if err := db.Callback().Row().Before("gorm:row").Register("tenantguard:row", p.scopeRead); err != nil {
		return err
	}
	if err := db.Callback().Create().Before("gorm:create").Register("tenantguard:create", p.scopeCreate); err != nil {
		return err
	}
	if err := db.Callback().Update().Before("gorm:update").Register("tenantguard:update", p.scopeUpdate); err != nil {
		return err
	}
	return db.Callback().Delete().Before("gorm:delete").Register("tenantguard:delete", p.scopeWrite)
}

// scopeRead appends org_id filtering to guarded queries, or aborts the
// statement when no tenant is bound and the caller is not a system job.
func (p *Plugin) scopeRead(db *gorm.DB) {
	if _, ok := scopedField(db.Statement); !ok {
		return
	}

	ctx := db.Statement.Context
	if orgcontext.HasSystemScope(ctx) {
		return
	}

	orgID, bound := orgcontext.OrgIDFromContext(ctx)
	if !bound {
		_ = db.AddError(ErrNoTenantBound)
		return
	}
	addOrgCondition(db, orgID)
}

// scopeCreate fills the org ID from context on new rows and rejects rows
// addressed to a different tenant.
func (p *Plugin) scopeCreate(db *gorm.DB) {
	field, ok := scopedField(db.Statement)
	if !ok {
		return
	}

	orgID, bound := orgcontext.OrgIDFromContext(db.Statement.Context)
	if !bound {
		_ = db.AddError(ErrNoTenantBound)
		return
	}

	switch db.Statement.ReflectValue.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < db.Statement.ReflectValue.Len(); i++ {
			p.applyOrgID(db, field, db.Statement.ReflectValue.Index(i), orgID)
		}
	case reflect.Struct:
		p.applyOrgID(db, field, db.Statement.ReflectValue, orgID)
	}
}

func (p *Plugin) applyOrgID(db *gorm.DB, field *schema.Field, rv reflect.Value, orgID snowflake.ID) {
	for rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	value, zero := field.ValueOf(db.Statement.Context, rv)
	if zero {
		_ = field.Set(db.Statement.Context, rv, int64(orgID))
		return
	}
	if asOrgID(value) != orgID {
		_ = db.AddError(ErrTenantMismatch)
	}
}

// scopeUpdate guards updates and stamps updated_at from the clock.
func (p *Plugin) scopeUpdate(db *gorm.DB) {
	p.touch(db)
	p.scopeWrite(db)
}

func (p *Plugin) scopeWrite(db *gorm.DB) {
	if db.Error != nil {
		return
	}
	field, ok := scopedField(db.Statement)
	if !ok {
		return
	}

	orgID, bound := orgcontext.OrgIDFromContext(db.Statement.Context)
	if !bound {
		_ = db.AddError(ErrNoTenantBound)
		return
	}

	if err := checkDestTenant(db, field, orgID); err != nil {
		_ = db.AddError(err)
		return
	}
	addOrgCondition(db, orgID)
}

// touch overrides any caller-supplied updated_at with the transaction-time
// clock. Forged or skewed client timestamps never reach the row.
func (p *Plugin) touch(db *gorm.DB) {
	stmt := db.Statement
	if stmt.Schema == nil {
		return
	}
	if f := stmt.Schema.LookUpField("updated_at"); f != nil {
		stmt.SetColumn("updated_at", p.clock.Now().UTC(), true)
	}
}

// checkDestTenant rejects update payloads that explicitly address another
// tenant's rows.
func checkDestTenant(db *gorm.DB, field *schema.Field, orgID snowflake.ID) error {
	switch dest := db.Statement.Dest.(type) {
	case map[string]any:
		raw, ok := dest["org_id"]
		if !ok {
			return nil
		}
		if asOrgID(raw) != orgID {
			return ErrTenantMismatch
		}
	default:
		rv := reflect.ValueOf(db.Statement.Dest)
		for rv.Kind() == reflect.Ptr {
			rv = rv.Elem()
		}
		if rv.Kind() != reflect.Struct || rv.Type() != db.Statement.Schema.ModelType {
			return nil
		}
		value, zero := field.ValueOf(db.Statement.Context, rv)
		if !zero && asOrgID(value) != orgID {
			return ErrTenantMismatch
		}
	}
	return nil
}

func addOrgCondition(db *gorm.DB, orgID snowflake.ID) {
	db.Statement.AddClause(clause.Where{Exprs: []clause.Expression{
		clause.Eq{
			Column: clause.Column{Table: clause.CurrentTable, Name: "org_id"},
			Value:  int64(orgID),
		},
	}})
}

// scopedField returns the org_id field when the statement's model opted in
// to tenant scoping.
func scopedField(stmt *gorm.Statement) (*schema.Field, bool) {
	if stmt.Schema == nil {
		return nil, false
	}
	if _, ok := reflect.New(stmt.Schema.ModelType).Interface().(Scoped); !ok {
		return nil, false
	}
	field := stmt.Schema.LookUpField("org_id")
	if field == nil {
		return nil, false
	}
	return field, true
}

func asOrgID(value any) snowflake.ID {
	switch typed := value.(type) {
	case snowflake.ID:
		return typed
	case int64:
		return snowflake.ID(typed)
	case int:
		return snowflake.ID(typed)
	}
	return 0
}
