package kanban

import (
	"errors"
	"reflect"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/zapcrmio/zapcrm/internal/domain"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(domain.Tables...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedBoard(t *testing.T, db *gorm.DB, svc *Service, userId int64) *domain.Workspace {
	t.Helper()
	ws, err := svc.EnsureDefaultWorkspace(userId)
	if err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}
	if _, err := svc.EnsureDefaultColumn(userId, ws.ID); err != nil {
		t.Fatalf("ensure column: %v", err)
	}
	db.Create(&domain.KanbanColumn{
		ID: 100, UserId: userId, WorkspaceId: ws.ID,
		ColumnId: "negociacao", Label: "Negociacao", Position: 1, IsVisible: true,
	})
	return ws
}

func TestEnsureDefaultWorkspaceIdempotent(t *testing.T) {
	db := testDB(t)
	svc := NewService(db)

	first, err := svc.EnsureDefaultWorkspace(1)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := svc.EnsureDefaultWorkspace(1)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("second call created another workspace")
	}
	var count int64
	db.Model(&domain.Workspace{}).Where("user_id = ?", 1).Count(&count)
	if count != 1 {
		t.Errorf("workspaces = %d, want 1", count)
	}
}

func TestColumnsSynthesizeDefault(t *testing.T) {
	db := testDB(t)
	svc := NewService(db)
	ws, _ := svc.EnsureDefaultWorkspace(1)

	cols, err := svc.Columns(1, ws.ID)
	if err != nil {
		t.Fatalf("columns: %v", err)
	}
	if len(cols) != 1 {
		t.Fatalf("columns = %d, want the synthesized default", len(cols))
	}
	if !cols[0].IsDefault || cols[0].ColumnId != domain.DefaultColumnId {
		t.Errorf("default column invariant broken: %+v", cols[0])
	}
}

func TestMoveLead(t *testing.T) {
	db := testDB(t)
	svc := NewService(db)
	ws := seedBoard(t, db, svc, 1)

	lead := domain.Lead{ID: 10, UserId: 1, WorkspaceId: ws.ID, Phone: "5511999999999", ColumnId: domain.DefaultColumnId}
	db.Create(&lead)

	res, err := svc.MoveLead(1, 10, "negociacao")
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if !res.Moved || res.PreviousColumn != domain.DefaultColumnId {
		t.Fatalf("unexpected result: %+v", res)
	}

	var after domain.Lead
	db.First(&after, 10)
	if after.ColumnId != "negociacao" {
		t.Errorf("column_id = %s, want negociacao", after.ColumnId)
	}

	// revert is the exact compensation
	if err := svc.RevertMove(1, 10, res.PreviousColumn); err != nil {
		t.Fatalf("revert: %v", err)
	}
	db.First(&after, 10)
	if after.ColumnId != domain.DefaultColumnId {
		t.Errorf("revert did not restore the previous column")
	}
}

func TestMoveLeadIdempotentNoop(t *testing.T) {
	db := testDB(t)
	svc := NewService(db)
	ws := seedBoard(t, db, svc, 1)

	db.Create(&domain.Lead{ID: 10, UserId: 1, WorkspaceId: ws.ID, Phone: "5511999999999", ColumnId: domain.DefaultColumnId})

	var before []domain.Lead
	db.Order("id").Find(&before)

	res, err := svc.MoveLead(1, 10, domain.DefaultColumnId)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if res.Moved {
		t.Error("same-column move reported as a mutation")
	}

	var after []domain.Lead
	db.Order("id").Find(&after)
	if !reflect.DeepEqual(before, after) {
		t.Error("no-op move changed stored leads")
	}
}

func TestMoveLeadGuards(t *testing.T) {
	db := testDB(t)
	svc := NewService(db)
	ws := seedBoard(t, db, svc, 1)
	db.Create(&domain.Lead{ID: 10, UserId: 1, WorkspaceId: ws.ID, Phone: "55", ColumnId: domain.DefaultColumnId})

	if _, err := svc.MoveLead(1, 10, "ghost"); !errors.Is(err, ErrColumnNotFound) {
		t.Errorf("expected ErrColumnNotFound, got %v", err)
	}
	if _, err := svc.MoveLead(2, 10, "negociacao"); !errors.Is(err, ErrLeadNotFound) {
		t.Errorf("cross-tenant move: expected ErrLeadNotFound, got %v", err)
	}
}

func TestReorderColumns(t *testing.T) {
	db := testDB(t)
	svc := NewService(db)
	ws := seedBoard(t, db, svc, 1)
	db.Create(&domain.KanbanColumn{
		ID: 101, UserId: 1, WorkspaceId: ws.ID,
		ColumnId: "fechado", Label: "Fechado", Position: 2, IsVisible: true,
	})

	if err := svc.ReorderColumns(1, ws.ID, []string{"fechado", domain.DefaultColumnId, "negociacao"}); err != nil {
		t.Fatalf("reorder: %v", err)
	}

	cols, _ := svc.Columns(1, ws.ID)
	got := make([]string, len(cols))
	for i, c := range cols {
		got[i] = c.ColumnId
	}
	want := []string{"fechado", domain.DefaultColumnId, "negociacao"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("order = %v, want %v", got, want)
	}
}

func TestDeleteColumn(t *testing.T) {
	db := testDB(t)
	svc := NewService(db)
	ws := seedBoard(t, db, svc, 1)
	db.Create(&domain.Lead{ID: 10, UserId: 1, WorkspaceId: ws.ID, Phone: "55", ColumnId: "negociacao"})

	if err := svc.DeleteColumn(1, ws.ID, domain.DefaultColumnId); !errors.Is(err, ErrDefaultProtected) {
		t.Fatalf("expected ErrDefaultProtected, got %v", err)
	}

	if err := svc.DeleteColumn(1, ws.ID, "negociacao"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var lead domain.Lead
	db.First(&lead, 10)
	if lead.ColumnId != domain.DefaultColumnId {
		t.Errorf("lead not rehomed to default column: %s", lead.ColumnId)
	}
	var count int64
	db.Model(&domain.KanbanColumn{}).Where("workspace_id = ? AND column_id = ?", ws.ID, "negociacao").Count(&count)
	if count != 0 {
		t.Error("column row survived delete")
	}
}
