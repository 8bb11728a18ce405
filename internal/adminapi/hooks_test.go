package adminapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/zapcrmio/zapcrm/config"
	"github.com/zapcrmio/zapcrm/internal/app"
	"github.com/zapcrmio/zapcrm/internal/domain"
	"github.com/zapcrmio/zapcrm/internal/webhook"
	"github.com/zapcrmio/zapcrm/internal/webserver"
)

type testValidator struct {
	v *validator.Validate
}

func (t *testValidator) Validate(i interface{}) error {
	return t.v.Struct(i)
}

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

func newHookContext(t *testing.T, db *gorm.DB, token, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	application := app.NewApplication(&config.AppConfig{})
	application.OverrideDB(db)

	e := echo.New()
	e.Validator = &testValidator{v: validator.New()}
	req := httptest.NewRequest(http.MethodPost, "/hooks/leads/"+token, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(webserver.ContextKeyApp, application)
	c.SetParamNames("token")
	c.SetParamValues(token)
	return c, rec
}

func TestIntakeLeadLandsOnDefaultColumn(t *testing.T) {
	db := testDB(t)
	db.Create(&domain.Integration{
		ID: 1, UserId: 77, Kind: webhook.KindLeadIntake,
		Name: "hotmart", Token: "tok-abc", Enabled: true,
	})

	c, rec := newHookContext(t, db, "tok-abc",
		`{"name":"João da Silva","phone":"5511988887777","person_type":"pj"}`)
	if err := intakeLead(c); err != nil {
		t.Fatalf("intakeLead: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var lead domain.Lead
	if err := db.Where("user_id = ?", 77).First(&lead).Error; err != nil {
		t.Fatalf("lead not created: %v", err)
	}
	if lead.ColumnId != domain.DefaultColumnId {
		t.Errorf("column = %q, want %q", lead.ColumnId, domain.DefaultColumnId)
	}
	if lead.Source != "webhook" {
		t.Errorf("source = %q", lead.Source)
	}
	if lead.PersonType != domain.PersonTypePJ {
		t.Errorf("person type = %q", lead.PersonType)
	}
	if lead.WorkspaceId == 0 {
		t.Error("lead not attached to a workspace")
	}
}

func TestIntakeLeadRejectsUnknownToken(t *testing.T) {
	db := testDB(t)
	db.Create(&domain.Integration{
		ID: 1, UserId: 77, Kind: webhook.KindLeadIntake,
		Name: "hotmart", Token: "tok-abc", Enabled: false,
	})

	// disabled token answers exactly like a missing one
	c, rec := newHookContext(t, db, "tok-abc", `{"phone":"5511988887777"}`)
	if err := intakeLead(c); err != nil {
		t.Fatalf("intakeLead: %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	var count int64
	db.Model(&domain.Lead{}).Count(&count)
	if count != 0 {
		t.Errorf("lead count = %d, want 0", count)
	}
}

func TestIntakeLeadRequiresPhone(t *testing.T) {
	db := testDB(t)
	db.Create(&domain.Integration{
		ID: 1, UserId: 77, Kind: webhook.KindLeadIntake,
		Name: "hotmart", Token: "tok-abc", Enabled: true,
	})

	c, rec := newHookContext(t, db, "tok-abc", `{"name":"sem telefone"}`)
	if err := intakeLead(c); err != nil {
		t.Fatalf("intakeLead: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
