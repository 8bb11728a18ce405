package remarketing

import (
	"errors"
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

func TestRemoveStepContiguity(t *testing.T) {
	inputs := []StepInput{
		{FlowId: 11}, {FlowId: 22}, {FlowId: 33}, {FlowId: 44},
	}
	out, err := RemoveStep(inputs, 1) // remove flow 22
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	steps := NormalizeSteps(1, out)
	if len(steps) != 3 {
		t.Fatalf("steps = %d, want 3", len(steps))
	}
	wantFlows := []int64{11, 33, 44}
	for i, step := range steps {
		if step.StepOrder != i+1 {
			t.Errorf("step %d order = %d, want %d", i, step.StepOrder, i+1)
		}
		if step.FlowId != wantFlows[i] {
			t.Errorf("step %d flow = %d, want %d", i, step.FlowId, wantFlows[i])
		}
	}
}

func TestRemoveLastStepRejected(t *testing.T) {
	if _, err := RemoveStep([]StepInput{{FlowId: 1}}, 0); !errors.Is(err, ErrLastStep) {
		t.Fatalf("expected ErrLastStep, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	db := testDB(t)
	svc := NewService(db)

	// missing flow blocks save
	err := svc.Validate(1, "", []StepInput{{FlowId: 5}, {}})
	if !errors.Is(err, ErrStepMissingFlow) {
		t.Errorf("expected ErrStepMissingFlow, got %v", err)
	}

	// no instances exist: empty instance name is fine
	if err := svc.Validate(1, "", []StepInput{{FlowId: 5}}); err != nil {
		t.Errorf("validate without instances: %v", err)
	}

	// with one instance configured the sequence must pick one
	db.Create(&domain.WhatsappInstance{ID: 1, UserId: 1, Name: "principal"})
	if err := svc.Validate(1, "", []StepInput{{FlowId: 5}}); !errors.Is(err, ErrInstanceRequired) {
		t.Errorf("expected ErrInstanceRequired, got %v", err)
	}
	if err := svc.Validate(1, "principal", []StepInput{{FlowId: 5}}); err != nil {
		t.Errorf("validate with instance: %v", err)
	}
}

func TestSaveReplacesSteps(t *testing.T) {
	db := testDB(t)
	svc := NewService(db)

	seq := &domain.RemarketingSequence{Name: "Pos-venda", Status: domain.SequenceStatusDraft}
	err := svc.Save(1, seq, []StepInput{{FlowId: 11}, {FlowId: 22, DelayDays: 2}})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if seq.ID == 0 {
		t.Fatal("sequence id not assigned")
	}

	// edit: drop the first step, append another
	err = svc.Save(1, seq, []StepInput{{FlowId: 22, DelayDays: 2}, {FlowId: 33, DelayHours: 6}})
	if err != nil {
		t.Fatalf("resave: %v", err)
	}

	got, err := svc.Get(1, seq.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Steps) != 2 {
		t.Fatalf("steps = %d, want 2", len(got.Steps))
	}
	if got.Steps[0].FlowId != 22 || got.Steps[0].StepOrder != 1 {
		t.Errorf("first step = %+v", got.Steps[0])
	}
	if got.Steps[1].FlowId != 33 || got.Steps[1].StepOrder != 2 {
		t.Errorf("second step = %+v", got.Steps[1])
	}
}

func TestGetScopedByOwner(t *testing.T) {
	db := testDB(t)
	svc := NewService(db)

	seq := &domain.RemarketingSequence{Name: "Pos-venda"}
	if err := svc.Save(1, seq, []StepInput{{FlowId: 11}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := svc.Get(2, seq.ID); !errors.Is(err, ErrSequenceNotFound) {
		t.Errorf("cross-tenant get: expected ErrSequenceNotFound, got %v", err)
	}
}
