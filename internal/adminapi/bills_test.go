package adminapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/zapcrmio/zapcrm/config"
	"github.com/zapcrmio/zapcrm/internal/app"
	"github.com/zapcrmio/zapcrm/internal/webserver"
)

func TestEmailReportRequiresSmtp(t *testing.T) {
	db := testDB(t)
	application := app.NewApplication(&config.AppConfig{})
	application.OverrideDB(db)

	e := echo.New()
	e.Validator = &testValidator{v: validator.New()}
	req := httptest.NewRequest(http.MethodGet, "/crm/bills/report?email=true", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(webserver.ContextKeyApp, application)

	// mailer is nil until services are initialized with SMTP settings
	if err := emailReport(c, "relatorio_2026_08.pdf", []byte("%PDF-1.4")); err != nil {
		t.Fatalf("emailReport: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
