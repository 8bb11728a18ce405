package billing

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/zapcrmio/zapcrm/internal/domain"
	"github.com/zapcrmio/zapcrm/internal/webhook"
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

func fixedNow() time.Time {
	return time.Date(2026, 8, 15, 12, 0, 0, 0, time.UTC)
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	db := testDB(t)
	svc := NewService(db, nil)
	svc.now = fixedNow
	return svc, db
}

func TestDeriveStatus(t *testing.T) {
	today := fixedNow()
	pastDue := &domain.Bill{Status: domain.BillStatusPending, DueDate: today.AddDate(0, 0, -1)}
	if DeriveStatus(pastDue, today) != domain.BillStatusOverdue {
		t.Error("pending past due should read overdue")
	}
	dueToday := &domain.Bill{Status: domain.BillStatusPending, DueDate: today}
	if DeriveStatus(dueToday, today) != domain.BillStatusPending {
		t.Error("due today is not overdue yet")
	}
	paid := &domain.Bill{Status: domain.BillStatusPaid, DueDate: today.AddDate(0, 0, -30)}
	if DeriveStatus(paid, today) != domain.BillStatusPaid {
		t.Error("paid bill must stay paid")
	}
}

func TestSweepOverdue(t *testing.T) {
	svc, db := newTestService(t)
	db.Create(&domain.Bill{ID: 1, UserId: 1, Title: "Aluguel", Status: domain.BillStatusPending, DueDate: fixedNow().AddDate(0, 0, -2)})
	db.Create(&domain.Bill{ID: 2, UserId: 1, Title: "Luz", Status: domain.BillStatusPending, DueDate: fixedNow().AddDate(0, 0, 2)})

	n, err := svc.SweepOverdue()
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("swept %d, want 1", n)
	}
	var bill domain.Bill
	db.First(&bill, 1)
	if bill.Status != domain.BillStatusOverdue {
		t.Errorf("bill 1 status = %s, want overdue", bill.Status)
	}
}

func TestPayRecurringSpawnsNextInstallment(t *testing.T) {
	svc, db := newTestService(t)
	due := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)
	db.Create(&domain.Bill{
		ID: 1, UserId: 1, Title: "Parcela maquina", Amount: 500,
		DueDate: due, Status: domain.BillStatusPending,
		Type: domain.BillTypeRecurring, CurrentInstallment: 2, TotalInstallments: 3,
	})

	res, err := svc.Pay(1, 1, "")
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if res.SequenceCompleted {
		t.Fatal("sequence reported complete at installment 2 of 3")
	}
	if res.Next == nil {
		t.Fatal("next installment not created")
	}
	if res.Next.CurrentInstallment != 3 {
		t.Errorf("next installment = %d, want 3", res.Next.CurrentInstallment)
	}
	wantDue := due.AddDate(0, 1, 0)
	if !res.Next.DueDate.Equal(wantDue) {
		t.Errorf("next due = %v, want %v", res.Next.DueDate, wantDue)
	}

	var count int64
	db.Model(&domain.Bill{}).Count(&count)
	if count != 2 {
		t.Errorf("bill rows = %d, want 2", count)
	}
}

func TestPayRecurringTerminatesAtCap(t *testing.T) {
	svc, db := newTestService(t)
	db.Create(&domain.Bill{
		ID: 1, UserId: 1, Title: "Parcela maquina", Amount: 500,
		DueDate: fixedNow(), Status: domain.BillStatusPending,
		Type: domain.BillTypeRecurring, CurrentInstallment: 3, TotalInstallments: 3,
	})

	res, err := svc.Pay(1, 1, "")
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if !res.SequenceCompleted {
		t.Error("sequence not reported complete at the cap")
	}
	if res.Next != nil {
		t.Error("installment beyond the cap was created")
	}
	var count int64
	db.Model(&domain.Bill{}).Count(&count)
	if count != 1 {
		t.Errorf("bill rows = %d, want 1", count)
	}
}

func TestPayGuards(t *testing.T) {
	svc, db := newTestService(t)
	db.Create(&domain.Bill{ID: 1, UserId: 1, Title: "Luz", Status: domain.BillStatusPaid, DueDate: fixedNow(), Type: domain.BillTypeOneTime})

	if _, err := svc.Pay(1, 1, ""); !errors.Is(err, ErrAlreadyPaid) {
		t.Errorf("expected ErrAlreadyPaid, got %v", err)
	}
	if _, err := svc.Pay(1, 99, ""); !errors.Is(err, ErrBillNotFound) {
		t.Errorf("expected ErrBillNotFound, got %v", err)
	}
	// cross-tenant
	if _, err := svc.Pay(2, 1, ""); !errors.Is(err, ErrBillNotFound) {
		t.Errorf("expected ErrBillNotFound for another tenant, got %v", err)
	}
}

func TestSummarizeMonth(t *testing.T) {
	svc, db := newTestService(t)
	aug := func(day int) time.Time { return time.Date(2026, 8, day, 0, 0, 0, 0, time.UTC) }
	db.Create(&domain.Bill{ID: 1, UserId: 1, Title: "Aluguel", Amount: 1000, Status: domain.BillStatusPaid, DueDate: aug(5)})
	db.Create(&domain.Bill{ID: 2, UserId: 1, Title: "Luz", Amount: 200, Status: domain.BillStatusPending, DueDate: aug(10)})
	db.Create(&domain.Bill{ID: 3, UserId: 1, Title: "Agua", Amount: 100, Status: domain.BillStatusPending, DueDate: aug(20)})
	// outside the month
	db.Create(&domain.Bill{ID: 4, UserId: 1, Title: "Setembro", Amount: 999, Status: domain.BillStatusPending, DueDate: time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)})
	// other tenant
	db.Create(&domain.Bill{ID: 5, UserId: 2, Title: "Outro", Amount: 999, Status: domain.BillStatusPending, DueDate: aug(10)})

	summary, err := svc.SummarizeMonth(1, aug(1))
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if len(summary.Bills) != 3 {
		t.Fatalf("bills in month = %d, want 3", len(summary.Bills))
	}
	if summary.TotalAmount != 1300 {
		t.Errorf("total = %v, want 1300", summary.TotalAmount)
	}
	if summary.TotalPaid != 1000 {
		t.Errorf("paid = %v, want 1000", summary.TotalPaid)
	}
	// bill 2 due Aug 10 is overdue on the fixed Aug 15 clock
	if summary.TotalOverdue != 200 {
		t.Errorf("overdue = %v, want 200", summary.TotalOverdue)
	}
	if summary.TotalPending != 100 {
		t.Errorf("pending = %v, want 100", summary.TotalPending)
	}
}

func TestNotifyDuePostsPerDueBill(t *testing.T) {
	var payloads []webhook.BillDuePayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p webhook.BillDuePayload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		payloads = append(payloads, p)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	db := testDB(t)
	db.Create(&domain.Integration{
		ID: 1, UserId: 1, Kind: webhook.KindBillNotify,
		Name: "runner", WebhookUrl: srv.URL, Enabled: true,
	})
	due := fixedNow().AddDate(0, 0, -2)
	db.Create(&domain.Bill{ID: 1, UserId: 1, Title: "Aluguel", Amount: 1200,
		DueDate: due, Status: domain.BillStatusOverdue, Type: domain.BillTypeOneTime})
	db.Create(&domain.Bill{ID: 2, UserId: 1, Title: "Internet", Amount: 99.9,
		DueDate: fixedNow(), Status: domain.BillStatusPending, Type: domain.BillTypeOneTime})
	// paid and future bills stay quiet
	db.Create(&domain.Bill{ID: 3, UserId: 1, Title: "Luz", Amount: 300,
		DueDate: due, Status: domain.BillStatusPaid, Type: domain.BillTypeOneTime})
	db.Create(&domain.Bill{ID: 4, UserId: 1, Title: "Seguro", Amount: 80,
		DueDate: fixedNow().AddDate(0, 0, 10), Status: domain.BillStatusPending, Type: domain.BillTypeOneTime})

	svc := NewService(db, webhook.NewNotifier(db, webhook.NewClient(5*time.Second)))
	svc.now = fixedNow
	err := svc.NotifyDue(context.Background(), 1, "5511988887777", "Maria", 42, "vendas01")
	if err != nil {
		t.Fatalf("NotifyDue: %v", err)
	}
	if len(payloads) != 2 {
		t.Fatalf("payloads = %d, want 2", len(payloads))
	}
	for _, p := range payloads {
		if p.Phone != "5511988887777" || p.Name != "Maria" {
			t.Errorf("recipient = %+v", p)
		}
		if p.FlowId != 42 || p.Instance != "vendas01" || p.Step != 1 {
			t.Errorf("routing = %+v", p)
		}
		if !strings.Contains(p.Params.Message, "R$") {
			t.Errorf("message = %q", p.Params.Message)
		}
	}
}

func TestNotifyDueWithoutIntegrationIsSilent(t *testing.T) {
	db := testDB(t)
	db.Create(&domain.Bill{ID: 1, UserId: 1, Title: "Aluguel", Amount: 1200,
		DueDate: fixedNow().AddDate(0, 0, -2), Status: domain.BillStatusOverdue, Type: domain.BillTypeOneTime})

	svc := NewService(db, webhook.NewNotifier(db, webhook.NewClient(time.Second)))
	svc.now = fixedNow
	if err := svc.NotifyDue(context.Background(), 1, "5511988887777", "Maria", 42, "vendas01"); err != nil {
		t.Fatalf("NotifyDue without integration: %v", err)
	}
}
