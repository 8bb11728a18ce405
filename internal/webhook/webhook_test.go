package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

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

func TestClientPost(t *testing.T) {
	var got CampaignTriggerPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("content type = %q", r.Header.Get("Content-Type"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewClient(5 * time.Second)
	if err := client.TriggerCampaign(context.Background(), srv.URL, 42, 7); err != nil {
		t.Fatalf("TriggerCampaign: %v", err)
	}
	if got.CampaignId != 42 || got.UserId != 7 {
		t.Errorf("payload = %+v", got)
	}
}

func TestClientPostNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "queue full", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(5 * time.Second)
	err := client.Post(context.Background(), srv.URL, map[string]string{"k": "v"})
	if err == nil {
		t.Fatal("expected error for 503 response")
	}
}

func TestNotifierResolvesEnabledIntegration(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	db := testDB(t)
	db.Create(&domain.Integration{
		ID: 1, UserId: 10, Kind: KindCampaignTrigger,
		Name: "disabled", WebhookUrl: "http://127.0.0.1:1/nope", Enabled: false,
	})
	db.Create(&domain.Integration{
		ID: 2, UserId: 10, Kind: KindCampaignTrigger,
		Name: "runner", WebhookUrl: srv.URL, Enabled: true,
	})

	n := NewNotifier(db, NewClient(5*time.Second))
	if err := n.CampaignTrigger(context.Background(), 10, 99); err != nil {
		t.Fatalf("CampaignTrigger: %v", err)
	}
	if hits != 1 {
		t.Errorf("hits = %d, want 1", hits)
	}
}

func TestNotifierNoIntegration(t *testing.T) {
	db := testDB(t)
	n := NewNotifier(db, NewClient(time.Second))

	err := n.CampaignTrigger(context.Background(), 10, 99)
	if !errors.Is(err, ErrNoIntegration) {
		t.Fatalf("err = %v, want ErrNoIntegration", err)
	}
	err = n.BillDue(context.Background(), 10, BillDuePayload{Phone: "5511999"})
	if !errors.Is(err, ErrNoIntegration) {
		t.Fatalf("err = %v, want ErrNoIntegration", err)
	}
}
