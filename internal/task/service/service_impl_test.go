package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/agentdesk/internal/clock"
	deskdomain "github.com/smallbiznis/agentdesk/internal/desk/domain"
	deskrepository "github.com/smallbiznis/agentdesk/internal/desk/repository"
	orgdomain "github.com/smallbiznis/agentdesk/internal/organization/domain"
	"github.com/smallbiznis/agentdesk/internal/orgcontext"
	"github.com/smallbiznis/agentdesk/internal/task/domain"
	"github.com/smallbiznis/agentdesk/internal/task/repository"
	"github.com/smallbiznis/agentdesk/pkg/tenantguard"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testNode, _ = snowflake.NewNode(13)

func newTestService(t *testing.T, clk clock.Clock) (domain.Service, *gorm.DB) {
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
	if err := conn.AutoMigrate(&orgdomain.Organization{}, &deskdomain.Desk{}, &domain.Task{}); err != nil {
		t.Fatal(err)
	}

	svc := NewService(
		conn,
		zap.NewNop(),
		repository.NewRepository(conn),
		deskrepository.NewRepository(conn),
		testNode,
		clk,
	)
	return svc, conn
}

func seedTenant(t *testing.T, db *gorm.DB) (context.Context, *deskdomain.Desk) {
	t.Helper()

	org := orgdomain.Organization{
		ID:   testNode.Generate(),
		Name: "Acme",
		Slug: "acme-" + testNode.Generate().String(),
	}
	if err := db.Create(&org).Error; err != nil {
		t.Fatal(err)
	}
	ctx := orgcontext.WithOrgID(context.Background(), org.ID)

	desk := deskdomain.Desk{
		ID:             testNode.Generate(),
		Title:          "Engineer",
		Role:           "engineer",
		LLMProvider:    "anthropic",
		LLMModel:       "claude-sonnet-4",
		HierarchyLevel: 1,
		IsActive:       true,
	}
	desk.HierarchyPath = desk.ID.String()
	if err := db.WithContext(ctx).Create(&desk).Error; err != nil {
		t.Fatal(err)
	}
	return ctx, &desk
}

func TestCreateTask(t *testing.T) {
	svc, db := newTestService(t, clock.System())
	ctx, _ := seedTenant(t, db)

	task, err := svc.Create(ctx, domain.CreateTaskRequest{Title: "Write report"})
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, domain.StatusPending, task.Status)
	assert.Equal(t, domain.PriorityMedium, task.Priority)

	_, err = svc.Create(ctx, domain.CreateTaskRequest{Title: " "})
	if !errors.Is(err, domain.ErrInvalidTitle) {
		t.Fatalf("expected ErrInvalidTitle, got %v", err)
	}

	_, err = svc.Create(ctx, domain.CreateTaskRequest{Title: "x", Priority: "urgent"})
	if !errors.Is(err, domain.ErrInvalidPriority) {
		t.Fatalf("expected ErrInvalidPriority, got %v", err)
	}
}

func TestAssign(t *testing.T) {
	svc, db := newTestService(t, clock.System())
	ctx, desk := seedTenant(t, db)

	task, err := svc.Create(ctx, domain.CreateTaskRequest{Title: "Write report"})
	if err != nil {
		t.Fatal(err)
	}

	assigned, err := svc.Assign(ctx, task.ID, desk.ID)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, domain.StatusAssigned, assigned.Status)
	if assigned.AssignedToID == nil || *assigned.AssignedToID != desk.ID {
		t.Fatalf("assigned_to_id = %v, want %v", assigned.AssignedToID, desk.ID)
	}

	_, err = svc.Assign(ctx, task.ID, testNode.Generate())
	if !errors.Is(err, deskdomain.ErrDeskNotFound) {
		t.Fatalf("expected ErrDeskNotFound, got %v", err)
	}
}

func TestTransition_LifecycleStamps(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC))
	svc, db := newTestService(t, clk)
	ctx, desk := seedTenant(t, db)

	task, err := svc.Create(ctx, domain.CreateTaskRequest{Title: "Write report"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Assign(ctx, task.ID, desk.ID); err != nil {
		t.Fatal(err)
	}

	clk.Advance(time.Minute)
	started, err := svc.Transition(ctx, task.ID, domain.StatusInProgress)
	if err != nil {
		t.Fatal(err)
	}
	if started.StartedAt == nil || !started.StartedAt.Equal(clk.Now()) {
		t.Fatalf("started_at = %v, want %v", started.StartedAt, clk.Now())
	}

	clk.Advance(time.Hour)
	completed, err := svc.Transition(ctx, task.ID, domain.StatusCompleted)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, domain.StatusCompleted, completed.Status)
	if completed.CompletedAt == nil || !completed.CompletedAt.Equal(clk.Now()) {
		t.Fatalf("completed_at = %v, want %v", completed.CompletedAt, clk.Now())
	}
}

func TestTransition_RejectsInvalidMoves(t *testing.T) {
	svc, db := newTestService(t, clock.System())
	ctx, _ := seedTenant(t, db)

	task, err := svc.Create(ctx, domain.CreateTaskRequest{Title: "Write report"})
	if err != nil {
		t.Fatal(err)
	}

	_, err = svc.Transition(ctx, task.ID, domain.StatusCompleted)
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	got, err := svc.Get(ctx, task.ID)
	if err != nil {
		t.Fatal(err)
	}
	assert.Equal(t, domain.StatusPending, got.Status)
}

func TestTransition_StatusGuardCatchesRacingWriter(t *testing.T) {
	svc, db := newTestService(t, clock.System())
	ctx, _ := seedTenant(t, db)

	task, err := svc.Create(ctx, domain.CreateTaskRequest{Title: "Write report"})
	if err != nil {
		t.Fatal(err)
	}

	// A competing writer moves the task after our read.
	repo := repository.NewRepository(db)
	rows, err := repo.UpdateStatus(ctx, task.ID, domain.StatusPending, map[string]any{
		"status": domain.StatusCancelled,
	})
	if err != nil {
		t.Fatal(err)
	}
	if rows != 1 {
		t.Fatalf("setup update affected %d rows", rows)
	}

	// Replaying the pending -> cancelled move now matches nothing.
	rows, err = repo.UpdateStatus(ctx, task.ID, domain.StatusPending, map[string]any{
		"status": domain.StatusCancelled,
	})
	if err != nil {
		t.Fatal(err)
	}
	if rows != 0 {
		t.Fatalf("stale status guard matched %d rows, want 0", rows)
	}
}
