package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/agentdesk/internal/clock"
	"github.com/smallbiznis/agentdesk/internal/desk/domain"
	deskrepository "github.com/smallbiznis/agentdesk/internal/desk/repository"
	orgdomain "github.com/smallbiznis/agentdesk/internal/organization/domain"
	orgrepository "github.com/smallbiznis/agentdesk/internal/organization/repository"
	"github.com/smallbiznis/agentdesk/internal/orgcontext"
	pkgdb "github.com/smallbiznis/agentdesk/pkg/db"
	"github.com/smallbiznis/agentdesk/pkg/tenantguard"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T, clk clock.Clock) *gorm.DB {
	t.Helper()

	conn, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		NowFunc: func() time.Time { return clk.Now().UTC() },
	})
	if err != nil {
		t.Fatal(err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatal(err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := conn.Use(tenantguard.New(clk)); err != nil {
		t.Fatal(err)
	}
	if err := conn.AutoMigrate(&orgdomain.Organization{}, &domain.Desk{}); err != nil {
		t.Fatal(err)
	}
	return conn
}

func newDeskService(t *testing.T, db *gorm.DB, clk clock.Clock) domain.Service {
	t.Helper()
	node, _ := snowflake.NewNode(1)
	return NewService(
		db,
		zap.NewNop(),
		deskrepository.NewRepository(db),
		orgrepository.NewRepository(db),
		node,
		clk,
	)
}

var orgNode, _ = snowflake.NewNode(7)

func seedOrg(t *testing.T, db *gorm.DB, maxDesks int) (snowflake.ID, context.Context) {
	t.Helper()
	org := orgdomain.Organization{
		ID:               orgNode.Generate(),
		Name:             "Acme",
		Slug:             "acme-" + orgNode.Generate().String(),
		SubscriptionTier: orgdomain.TierFree,
		MaxDesks:         maxDesks,
	}
	if err := db.Create(&org).Error; err != nil {
		t.Fatal(err)
	}
	return org.ID, orgcontext.WithOrgID(context.Background(), org.ID)
}

func createDesk(t *testing.T, svc domain.Service, ctx context.Context, title string, reportsTo *snowflake.ID) *domain.Desk {
	t.Helper()
	desk, err := svc.Create(ctx, domain.CreateDeskRequest{
		Title:       title,
		Role:        "engineer",
		LLMProvider: "anthropic",
		LLMModel:    "claude-sonnet-4",
		ReportsTo:   reportsTo,
	})
	if err != nil {
		t.Fatalf("create desk %q: %v", title, err)
	}
	return desk
}

func TestCreate_RootAndChildPlacement(t *testing.T) {
	clk := clock.System()
	db := newTestDB(t, clk)
	svc := newDeskService(t, db, clk)
	_, ctx := seedOrg(t, db, 10)

	root := createDesk(t, svc, ctx, "CEO", nil)
	assert.Equal(t, 1, root.HierarchyLevel)
	assert.Equal(t, root.ID.String(), root.HierarchyPath)
	assert.Nil(t, root.ReportsToID)

	child := createDesk(t, svc, ctx, "Engineer", &root.ID)
	assert.Equal(t, 2, child.HierarchyLevel)
	assert.Equal(t, root.ID.String()+"/"+child.ID.String(), child.HierarchyPath)

	grandchild := createDesk(t, svc, ctx, "Intern", &child.ID)
	assert.Equal(t, 3, grandchild.HierarchyLevel)
	assert.Equal(t, child.HierarchyPath+"/"+grandchild.ID.String(), grandchild.HierarchyPath)
}

func TestCreate_EnforcesDeskLimit(t *testing.T) {
	clk := clock.System()
	db := newTestDB(t, clk)
	svc := newDeskService(t, db, clk)
	_, ctx := seedOrg(t, db, 1)

	createDesk(t, svc, ctx, "Only", nil)

	_, err := svc.Create(ctx, domain.CreateDeskRequest{
		Title:       "Overflow",
		Role:        "engineer",
		LLMProvider: "anthropic",
		LLMModel:    "claude-sonnet-4",
	})
	if !errors.Is(err, domain.ErrDeskLimitReached) {
		t.Fatalf("expected ErrDeskLimitReached, got %v", err)
	}
}

func TestCreate_ParentFromAnotherTenantNotVisible(t *testing.T) {
	clk := clock.System()
	db := newTestDB(t, clk)
	svc := newDeskService(t, db, clk)
	_, ctx1 := seedOrg(t, db, 10)
	_, ctx2 := seedOrg(t, db, 10)

	foreign := createDesk(t, svc, ctx1, "Foreign", nil)

	_, err := svc.Create(ctx2, domain.CreateDeskRequest{
		Title:       "Orphan",
		Role:        "engineer",
		LLMProvider: "anthropic",
		LLMModel:    "claude-sonnet-4",
		ReportsTo:   &foreign.ID,
	})
	if !errors.Is(err, domain.ErrParentNotFound) {
		t.Fatalf("expected ErrParentNotFound, got %v", err)
	}
}

func TestReparent_RejectsCyclesAndLeavesTreeUnchanged(t *testing.T) {
	clk := clock.System()
	db := newTestDB(t, clk)
	svc := newDeskService(t, db, clk)
	_, ctx := seedOrg(t, db, 10)

	root := createDesk(t, svc, ctx, "Root", nil)
	child := createDesk(t, svc, ctx, "Child", &root.ID)

	_, err := svc.Reparent(ctx, root.ID, &child.ID)
	if !errors.Is(err, domain.ErrCycleDetected) {
		t.Fatalf("expected ErrCycleDetected, got %v", err)
	}

	_, err = svc.Reparent(ctx, root.ID, &root.ID)
	if !errors.Is(err, domain.ErrCycleDetected) {
		t.Fatalf("expected ErrCycleDetected for self-parent, got %v", err)
	}

	got, err := svc.Get(ctx, root.ID)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 1, got.HierarchyLevel)
	assert.Equal(t, root.ID.String(), got.HierarchyPath)
	assert.Nil(t, got.ReportsToID)
}

func TestReparent_CascadesSubtreePaths(t *testing.T) {
	clk := clock.System()
	db := newTestDB(t, clk)
	svc := newDeskService(t, db, clk)
	_, ctx := seedOrg(t, db, 10)

	oldRoot := createDesk(t, svc, ctx, "Old Root", nil)
	mid := createDesk(t, svc, ctx, "Mid", &oldRoot.ID)
	leaf := createDesk(t, svc, ctx, "Leaf", &mid.ID)
	newRoot := createDesk(t, svc, ctx, "New Root", nil)

	moved, err := svc.Reparent(ctx, mid.ID, &newRoot.ID)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 2, moved.HierarchyLevel)
	assert.Equal(t, newRoot.ID.String()+"/"+mid.ID.String(), moved.HierarchyPath)

	gotLeaf, err := svc.Get(ctx, leaf.ID)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 3, gotLeaf.HierarchyLevel)
	assert.Equal(t, moved.HierarchyPath+"/"+leaf.ID.String(), gotLeaf.HierarchyPath)
}

func TestReparent_ToRootFlattensSubtree(t *testing.T) {
	clk := clock.System()
	db := newTestDB(t, clk)
	svc := newDeskService(t, db, clk)
	_, ctx := seedOrg(t, db, 10)

	root := createDesk(t, svc, ctx, "Root", nil)
	mid := createDesk(t, svc, ctx, "Mid", &root.ID)
	leaf := createDesk(t, svc, ctx, "Leaf", &mid.ID)

	moved, err := svc.Reparent(ctx, mid.ID, nil)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 1, moved.HierarchyLevel)
	assert.Equal(t, mid.ID.String(), moved.HierarchyPath)

	gotLeaf, err := svc.Get(ctx, leaf.ID)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, 2, gotLeaf.HierarchyLevel)
	assert.Equal(t, mid.ID.String()+"/"+leaf.ID.String(), gotLeaf.HierarchyPath)
}

func TestUpdateHierarchy_StalePathAffectsNoRows(t *testing.T) {
	clk := clock.System()
	db := newTestDB(t, clk)
	svc := newDeskService(t, db, clk)
	_, ctx := seedOrg(t, db, 10)

	desk := createDesk(t, svc, ctx, "Desk", nil)

	repo := deskrepository.NewRepository(db)
	rows, err := repo.UpdateHierarchy(ctx, desk.ID, "stale/path", nil, desk.ID.String(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if rows != 0 {
		t.Fatalf("stale guard matched %d rows, want 0", rows)
	}
}

// lostRaceRepo reports zero affected rows from the hierarchy guard, the
// observable shape of a concurrent move between read and write.
type lostRaceRepo struct {
	domain.Repository
}

func (r lostRaceRepo) WithTx(tx *gorm.DB) domain.Repository {
	return lostRaceRepo{Repository: r.Repository.WithTx(tx)}
}

func (lostRaceRepo) UpdateHierarchy(context.Context, snowflake.ID, string, *snowflake.ID, string, int) (int64, error) {
	return 0, nil
}

func TestReparent_LostRaceSurfacesConcurrentModification(t *testing.T) {
	clk := clock.System()
	db := newTestDB(t, clk)
	svc := newDeskService(t, db, clk)
	_, ctx := seedOrg(t, db, 10)

	desk := createDesk(t, svc, ctx, "Desk", nil)
	other := createDesk(t, svc, ctx, "Other", nil)

	node, _ := snowflake.NewNode(1)
	racing := NewService(
		db,
		zap.NewNop(),
		lostRaceRepo{Repository: deskrepository.NewRepository(db)},
		orgrepository.NewRepository(db),
		node,
		clk,
	)

	_, err := racing.Reparent(ctx, desk.ID, &other.ID)
	if !errors.Is(err, pkgdb.ErrConcurrentModification) {
		t.Fatalf("expected ErrConcurrentModification, got %v", err)
	}
}

// crossedMoveRepo lets a competing move of the observed parent commit
// between the placement read and the anchoring touch.
type crossedMoveRepo struct {
	domain.Repository
	db      *gorm.DB
	under   snowflake.ID
	newPath string
	level   int
}

func (r *crossedMoveRepo) WithTx(tx *gorm.DB) domain.Repository {
	return &crossedMoveRepo{
		Repository: r.Repository.WithTx(tx),
		db:         tx,
		under:      r.under,
		newPath:    r.newPath,
		level:      r.level,
	}
}

func (r *crossedMoveRepo) TouchHierarchy(ctx context.Context, id snowflake.ID, expectedPath string, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Model(&domain.Desk{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"reports_to_id":   r.under,
			"hierarchy_path":  r.newPath,
			"hierarchy_level": r.level,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return r.Repository.TouchHierarchy(ctx, id, expectedPath, now)
}

func TestReparent_CrossingMovesDoNotCloseCycle(t *testing.T) {
	clk := clock.System()
	db := newTestDB(t, clk)
	svc := newDeskService(t, db, clk)
	_, ctx := seedOrg(t, db, 10)

	a := createDesk(t, svc, ctx, "A", nil)
	p := createDesk(t, svc, ctx, "P", nil)

	node, _ := snowflake.NewNode(1)
	racing := NewService(
		db,
		zap.NewNop(),
		&crossedMoveRepo{
			Repository: deskrepository.NewRepository(db),
			db:         db,
			under:      a.ID,
			newPath:    a.ID.String() + "/" + p.ID.String(),
			level:      2,
		},
		orgrepository.NewRepository(db),
		node,
		clk,
	)

	// This transaction moves A under P while a competing one moves P under
	// A. Their write sets would be disjoint without the parent anchor, so
	// both would commit and close a two-node cycle.
	_, err := racing.Reparent(ctx, a.ID, &p.ID)
	if !errors.Is(err, pkgdb.ErrConcurrentModification) {
		t.Fatalf("expected ErrConcurrentModification, got %v", err)
	}

	gotA, err := svc.Get(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	gotP, err := svc.Get(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	assert.False(t, domain.PathContains(gotA.HierarchyPath, p.ID))
	assert.False(t, domain.PathContains(gotP.HierarchyPath, a.ID))
}

func TestReparent_AnchorsNewParent(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC))
	db := newTestDB(t, clk)
	svc := newDeskService(t, db, clk)
	_, ctx := seedOrg(t, db, 10)

	parent := createDesk(t, svc, ctx, "Parent", nil)
	child := createDesk(t, svc, ctx, "Child", nil)

	clk.Advance(time.Minute)
	if _, err := svc.Reparent(ctx, child.ID, &parent.ID); err != nil {
		t.Fatal(err)
	}

	// The move writes the parent row too, stamped at the time of the move.
	got, err := svc.Get(ctx, parent.ID)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, clk.Now().UTC(), got.UpdatedAt.UTC())
}

// contentionRepo surfaces the driver's lock error from the hierarchy write.
type contentionRepo struct {
	domain.Repository
}

func (r contentionRepo) WithTx(tx *gorm.DB) domain.Repository {
	return contentionRepo{Repository: r.Repository.WithTx(tx)}
}

func (contentionRepo) UpdateHierarchy(context.Context, snowflake.ID, string, *snowflake.ID, string, int) (int64, error) {
	return 0, errors.New("database is locked (5) (SQLITE_BUSY)")
}

func TestReparent_MapsLockContentionToConcurrentModification(t *testing.T) {
	clk := clock.System()
	db := newTestDB(t, clk)
	svc := newDeskService(t, db, clk)
	_, ctx := seedOrg(t, db, 10)

	desk := createDesk(t, svc, ctx, "Desk", nil)
	other := createDesk(t, svc, ctx, "Other", nil)

	node, _ := snowflake.NewNode(1)
	racing := NewService(
		db,
		zap.NewNop(),
		contentionRepo{Repository: deskrepository.NewRepository(db)},
		orgrepository.NewRepository(db),
		node,
		clk,
	)

	_, err := racing.Reparent(ctx, desk.ID, &other.ID)
	if !errors.Is(err, pkgdb.ErrConcurrentModification) {
		t.Fatalf("expected ErrConcurrentModification, got %v", err)
	}
}

func TestDeactivate(t *testing.T) {
	clk := clock.System()
	db := newTestDB(t, clk)
	svc := newDeskService(t, db, clk)
	_, ctx := seedOrg(t, db, 10)

	desk := createDesk(t, svc, ctx, "Desk", nil)

	if err := svc.Deactivate(ctx, desk.ID); err != nil {
		t.Fatal(err)
	}
	got, err := svc.Get(ctx, desk.ID)
	if err != nil {
		t.Fatal(err)
	}
	assert.False(t, got.IsActive)

	node, _ := snowflake.NewNode(3)
	err = svc.Deactivate(ctx, node.Generate())
	if !errors.Is(err, domain.ErrDeskNotFound) {
		t.Fatalf("expected ErrDeskNotFound, got %v", err)
	}
}
