package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/zapcrmio/zapcrm/config"
	"github.com/zapcrmio/zapcrm/internal/domain"
	"github.com/zapcrmio/zapcrm/internal/webhook"
)

// testApplication builds an Application over in-memory sqlite. Settings must
// be seeded up front: the config manager caches sys_config on first read.
func testApplication(t *testing.T, settings map[string]string) *Application {
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
	for key, value := range settings {
		parts := strings.SplitN(key, ".", 2)
		db.Create(&domain.SysConfig{Type: parts[0], Name: parts[1], Value: value})
	}
	a := NewApplication(&config.AppConfig{})
	a.OverrideDB(db)
	a.configManager = NewConfigManager(a)
	a.initServices()
	return a
}

func TestCheckSchedulersSeedsBillDueNotify(t *testing.T) {
	a := testApplication(t, nil)
	a.checkSchedulers()

	var sched domain.SysScheduler
	if err := a.gormDB.Where("task_type = ?", TaskBillDueNotify).First(&sched).Error; err != nil {
		t.Fatalf("bill due notify scheduler not seeded: %v", err)
	}
	if sched.Interval != 86400 {
		t.Errorf("interval = %d, want 86400", sched.Interval)
	}
	if sched.Status != "enabled" {
		t.Errorf("status = %q", sched.Status)
	}
}

func TestNotifyDueBillsTask(t *testing.T) {
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

	a := testApplication(t, map[string]string{
		"billing.notify_flow_id":  "42",
		"billing.notify_instance": "vendas01",
	})

	a.gormDB.Create(&domain.SysOpr{ID: 9, Username: "maria", Realname: "Maria",
		Mobile: "5511988887777", Level: "opr", Status: "enabled"})
	a.gormDB.Create(&domain.Integration{ID: 1, UserId: 9, Kind: webhook.KindBillNotify,
		Name: "runner", WebhookUrl: srv.URL, Enabled: true})
	a.gormDB.Create(&domain.Bill{ID: 1, UserId: 9, Title: "Aluguel", Amount: 1200,
		Status: domain.BillStatusOverdue, Type: domain.BillTypeOneTime})

	n, err := a.notifyDueBills(context.Background())
	if err != nil {
		t.Fatalf("notifyDueBills: %v", err)
	}
	if n != 1 {
		t.Fatalf("notified = %d, want 1", n)
	}
	if len(payloads) != 1 {
		t.Fatalf("payloads = %d, want 1", len(payloads))
	}
	p := payloads[0]
	if p.Phone != "5511988887777" || p.Name != "Maria" {
		t.Errorf("recipient = %+v", p)
	}
	if p.FlowId != 42 || p.Instance != "vendas01" {
		t.Errorf("routing = %+v", p)
	}
}

func TestNotifyDueBillsSkipsWhenUnconfigured(t *testing.T) {
	a := testApplication(t, nil)
	a.gormDB.Create(&domain.Bill{ID: 1, UserId: 9, Title: "Aluguel", Amount: 1200,
		Status: domain.BillStatusOverdue, Type: domain.BillTypeOneTime})

	// notify_flow_id absent reads as 0, which disables the task
	n, err := a.notifyDueBills(context.Background())
	if err != nil {
		t.Fatalf("notifyDueBills: %v", err)
	}
	if n != 0 {
		t.Errorf("notified = %d, want 0", n)
	}
}

func TestDispatchPoolSizeSetting(t *testing.T) {
	a := testApplication(t, map[string]string{"campaign.dispatch_pool_size": "4"})

	if got := a.configManager.GetInt("campaign", "dispatch_pool_size"); got != 4 {
		t.Errorf("pool size = %d, want 4", got)
	}
}
