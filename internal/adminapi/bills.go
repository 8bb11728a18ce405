package adminapi

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"
	"github.com/zapcrmio/zapcrm/internal/app"
	"github.com/zapcrmio/zapcrm/internal/billing"
	"github.com/zapcrmio/zapcrm/internal/docgen"
	"github.com/zapcrmio/zapcrm/internal/domain"
	"github.com/zapcrmio/zapcrm/internal/webhook"
	"github.com/zapcrmio/zapcrm/internal/webserver"
	"github.com/zapcrmio/zapcrm/pkg/common"
)

type billPayload struct {
	Title             string  `json:"title" validate:"required,min=1,max=200"`
	Amount            float64 `json:"amount" validate:"required,gt=0"`
	DueDate           string  `json:"due_date" validate:"required"`
	Type              string  `json:"type" validate:"omitempty,oneof=one_time recurring"`
	TotalInstallments int     `json:"total_installments" validate:"omitempty,min=0"`
}

type payBillPayload struct {
	ProofUrl string `json:"proof_url"`
}

func registerBillRoutes() {
	webserver.ApiGET("/crm/bills", listBills)
	webserver.ApiGET("/crm/bills/summary", billsSummary)
	webserver.ApiGET("/crm/bills/report", billsReport)
	webserver.ApiGET("/crm/bills/:id", getBill)
	webserver.ApiPOST("/crm/bills", createBill)
	webserver.ApiPOST("/crm/bills/:id/pay", payBill)
	webserver.ApiDELETE("/crm/bills/:id", deleteBill)
}

func billingService(c echo.Context) *billing.Service {
	notifier := webhook.NewNotifier(GetDB(c), webhook.NewClient(15*time.Second))
	return billing.NewService(GetDB(c), notifier)
}

func listBills(c echo.Context) error {
	page, perPage := parsePagination(c)

	db := GetDB(c).Model(&domain.Bill{}).Where("user_id = ?", currentOprId(c))
	if status := strings.TrimSpace(c.QueryParam("status")); status != "" {
		db = db.Where("status = ?", status)
	}
	if month := strings.TrimSpace(c.QueryParam("month")); month != "" {
		if ref, err := time.Parse("2006-01", month); err == nil {
			start := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.Local)
			db = db.Where("due_date >= ? AND due_date < ?", start, start.AddDate(0, 1, 0))
		}
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query bills", err.Error())
	}
	var rows []domain.Bill
	if err := db.Order("due_date ASC").Offset((page - 1) * perPage).Limit(perPage).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query bills", err.Error())
	}
	// present derived statuses without waiting for the hourly sweep
	now := time.Now()
	for i := range rows {
		rows[i].Status = billing.DeriveStatus(&rows[i], now)
	}
	return paged(c, rows, total, page, perPage)
}

func getBill(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid bill ID", nil)
	}
	var bill domain.Bill
	if err := GetDB(c).Where("id = ? AND user_id = ?", id, currentOprId(c)).First(&bill).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Bill not found", nil)
	}
	bill.Status = billing.DeriveStatus(&bill, time.Now())
	return ok(c, bill)
}

func createBill(c echo.Context) error {
	var payload billPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse bill", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Title, amount and due date are required", nil)
	}

	due, err := time.Parse("2006-01-02", payload.DueDate)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "due_date must be YYYY-MM-DD", nil)
	}

	billType := payload.Type
	if billType == "" {
		billType = domain.BillTypeOneTime
	}
	current := 0
	if billType == domain.BillTypeRecurring {
		current = 1
	}

	bill := domain.Bill{
		ID:                 common.UUIDint64(),
		UserId:             currentOprId(c),
		Title:              strings.TrimSpace(payload.Title),
		Amount:             payload.Amount,
		DueDate:            due,
		Status:             domain.BillStatusPending,
		Type:               billType,
		CurrentInstallment: current,
		TotalInstallments:  payload.TotalInstallments,
	}
	if err := GetDB(c).Create(&bill).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create bill", err.Error())
	}
	return ok(c, bill)
}

func payBill(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid bill ID", nil)
	}
	var payload payBillPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse payment", err.Error())
	}

	userId := currentOprId(c)
	result, err := billingService(c).Pay(userId, id, payload.ProofUrl)
	switch err {
	case nil:
	case billing.ErrBillNotFound:
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Bill not found", nil)
	case billing.ErrAlreadyPaid:
		return fail(c, http.StatusConflict, "ALREADY_PAID", "Bill is already paid", nil)
	default:
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to pay bill", err.Error())
	}
	app.PublishBillPaid(userId, id)
	return ok(c, result)
}

func deleteBill(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid bill ID", nil)
	}
	result := GetDB(c).Where("id = ? AND user_id = ?", id, currentOprId(c)).Delete(&domain.Bill{})
	if result.Error != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete bill", result.Error.Error())
	}
	if result.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Bill not found", nil)
	}
	writeOprLog(c, "bill_delete", "bill removed")
	return ok(c, map[string]interface{}{"id": id})
}

func parseMonthParam(c echo.Context) (time.Time, bool) {
	raw := strings.TrimSpace(c.QueryParam("month"))
	if raw == "" {
		now := time.Now()
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.Local), true
	}
	ref, err := time.Parse("2006-01", raw)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.Local), true
}

func billsSummary(c echo.Context) error {
	month, valid := parseMonthParam(c)
	if !valid {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "month must be YYYY-MM", nil)
	}
	summary, err := billingService(c).SummarizeMonth(currentOprId(c), month)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to summarize bills", err.Error())
	}
	return ok(c, summary)
}

// billsReport streams the monthly report as PDF (default) or XLSX, or mails
// it to the operator when email=true.
func billsReport(c echo.Context) error {
	month, valid := parseMonthParam(c)
	if !valid {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "month must be YYYY-MM", nil)
	}
	summary, err := billingService(c).SummarizeMonth(currentOprId(c), month)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to summarize bills", err.Error())
	}

	appCtx := GetAppContext(c)
	gen := docgen.NewGenerator(docgen.CompanyHeader{
		Name:    appCtx.GetSettingsStringValue("company", "name"),
		TaxId:   appCtx.GetSettingsStringValue("company", "tax_id"),
		Address: appCtx.GetSettingsStringValue("company", "address"),
		Phone:   appCtx.GetSettingsStringValue("company", "phone"),
	})

	var (
		buf      bytes.Buffer
		filename string
		mime     string
	)
	if c.QueryParam("format") == "xlsx" {
		if err := gen.ReportXLSX(&buf, summary); err != nil {
			return fail(c, http.StatusInternalServerError, "REPORT_ERROR", "Failed to render report", err.Error())
		}
		filename = docgen.ReportXLSXName(month)
		mime = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	} else {
		if err := gen.ReportPDF(&buf, summary); err != nil {
			return fail(c, http.StatusInternalServerError, "REPORT_ERROR", "Failed to render report", err.Error())
		}
		filename = docgen.ReportPDFName(month)
		mime = "application/pdf"
	}

	if cast.ToBool(c.QueryParam("email")) {
		return emailReport(c, filename, buf.Bytes())
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		`attachment; filename="`+filename+`"`)
	return c.Blob(http.StatusOK, mime, buf.Bytes())
}

// emailReport mails the rendered report to the operator's account address.
func emailReport(c echo.Context, filename string, content []byte) error {
	m := GetAppContext(c).Mailer()
	if m == nil || !m.Enabled() {
		return fail(c, http.StatusBadRequest, "SMTP_DISABLED", "SMTP is not configured", nil)
	}
	var opr domain.SysOpr
	if err := GetDB(c).First(&opr, currentOprId(c)).Error; err != nil || opr.Email == "" {
		return fail(c, http.StatusBadRequest, "NO_EMAIL", "Operator has no email address", nil)
	}
	if err := m.SendMonthlyReport(opr.Email, filename, content); err != nil {
		return fail(c, http.StatusBadGateway, "MAIL_ERROR", "Failed to send report", err.Error())
	}
	return ok(c, map[string]interface{}{"sent": true, "to": opr.Email, "filename": filename})
}
