package adminapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/zapcrmio/zapcrm/internal/app"
	"github.com/zapcrmio/zapcrm/internal/domain"
	"github.com/zapcrmio/zapcrm/internal/importer"
	"github.com/zapcrmio/zapcrm/internal/kanban"
	"github.com/zapcrmio/zapcrm/internal/webserver"
	"github.com/zapcrmio/zapcrm/pkg/common"
)

type leadPayload struct {
	Name       string `json:"name"`
	Phone      string `json:"phone" validate:"required"`
	Email      string `json:"email" validate:"omitempty,email"`
	PersonType string `json:"person_type" validate:"omitempty,oneof=PF PJ"`
	Cpf        string `json:"cpf"`
	Cnpj       string `json:"cnpj"`
	BirthDate  string `json:"birth_date"`
	Cep        string `json:"cep"`
	Street     string `json:"street"`
	Number     string `json:"number"`
	District   string `json:"district"`
	City       string `json:"city"`
	State      string `json:"state"`
	Notes      string `json:"notes"`
}

type moveLeadPayload struct {
	ColumnId string `json:"column_id" validate:"required"`
}

func registerLeadRoutes() {
	webserver.ApiGET("/crm/leads", listLeads)
	webserver.ApiGET("/crm/leads/:id", getLead)
	webserver.ApiPOST("/crm/leads", createLead)
	webserver.ApiPUT("/crm/leads/:id", updateLead)
	webserver.ApiDELETE("/crm/leads/:id", deleteLead)
	webserver.ApiPUT("/crm/leads/:id/move", moveLead)
	webserver.ApiPOST("/crm/leads/import", importLeads)
}

func listLeads(c echo.Context) error {
	page, perPage := parsePagination(c)

	db := GetDB(c).Model(&domain.Lead{}).Where("user_id = ?", currentOprId(c))
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		db = db.Where("LOWER(name) LIKE ? OR phone LIKE ?", like, "%"+q+"%")
	}
	if col := strings.TrimSpace(c.QueryParam("column_id")); col != "" {
		db = db.Where("column_id = ?", col)
	}
	if src := strings.TrimSpace(c.QueryParam("source")); src != "" {
		db = db.Where("source = ?", src)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query leads", err.Error())
	}
	var rows []domain.Lead
	if err := db.Order("created_at DESC").Offset((page - 1) * perPage).Limit(perPage).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query leads", err.Error())
	}
	return paged(c, rows, total, page, perPage)
}

func getLead(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid lead ID", nil)
	}
	var lead domain.Lead
	if err := GetDB(c).Where("id = ? AND user_id = ?", id, currentOprId(c)).First(&lead).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Lead not found", nil)
	}
	return ok(c, lead)
}

func applyLeadPayload(lead *domain.Lead, payload *leadPayload) {
	lead.Name = strings.TrimSpace(payload.Name)
	lead.Phone = strings.TrimSpace(payload.Phone)
	lead.Email = strings.TrimSpace(payload.Email)
	lead.PersonType = payload.PersonType
	if lead.PersonType == "" {
		lead.PersonType = domain.PersonTypePF
	}
	lead.Cpf = strings.TrimSpace(payload.Cpf)
	lead.Cnpj = strings.TrimSpace(payload.Cnpj)
	lead.Cep = strings.TrimSpace(payload.Cep)
	lead.Street = strings.TrimSpace(payload.Street)
	lead.Number = strings.TrimSpace(payload.Number)
	lead.District = strings.TrimSpace(payload.District)
	lead.City = strings.TrimSpace(payload.City)
	lead.State = strings.ToUpper(strings.TrimSpace(payload.State))
	lead.Notes = payload.Notes
	if raw := strings.TrimSpace(payload.BirthDate); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			lead.BirthDate = &t
		}
	}
}

// leadLimitReached enforces the plan's MaxLeads cap (0 = unlimited).
func leadLimitReached(c echo.Context, userId int64) bool {
	var opr domain.SysOpr
	if err := GetDB(c).Where("id = ?", userId).First(&opr).Error; err != nil || opr.PlanId == 0 {
		return false
	}
	var plan domain.Plan
	if err := GetDB(c).Where("id = ?", opr.PlanId).First(&plan).Error; err != nil || plan.MaxLeads <= 0 {
		return false
	}
	var count int64
	GetDB(c).Model(&domain.Lead{}).Where("user_id = ?", userId).Count(&count)
	return count >= int64(plan.MaxLeads)
}

func createLead(c echo.Context) error {
	var payload leadPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse lead", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Phone is required", nil)
	}

	userId := currentOprId(c)
	if leadLimitReached(c, userId) {
		return fail(c, http.StatusForbidden, "PLAN_LIMIT", "Lead limit of the current plan reached", nil)
	}

	kb := kanban.NewService(GetDB(c))
	workspace, err := kb.EnsureDefaultWorkspace(userId)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to resolve workspace", err.Error())
	}
	column, err := kb.EnsureDefaultColumn(userId, workspace.ID)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to resolve default column", err.Error())
	}

	lead := domain.Lead{
		ID:          common.UUIDint64(),
		UserId:      userId,
		WorkspaceId: workspace.ID,
		ColumnId:    column.ColumnId,
		Source:      "manual",
	}
	applyLeadPayload(&lead, &payload)
	if err := GetDB(c).Create(&lead).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create lead", err.Error())
	}
	app.PublishLeadCreated(userId, lead.ID, lead.Source)
	return ok(c, lead)
}

func updateLead(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid lead ID", nil)
	}
	var lead domain.Lead
	if err := GetDB(c).Where("id = ? AND user_id = ?", id, currentOprId(c)).First(&lead).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Lead not found", nil)
	}

	var payload leadPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse lead", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Phone is required", nil)
	}

	applyLeadPayload(&lead, &payload)
	lead.UpdatedAt = time.Now()
	if err := GetDB(c).Save(&lead).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update lead", err.Error())
	}
	return ok(c, lead)
}

func deleteLead(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid lead ID", nil)
	}
	result := GetDB(c).Where("id = ? AND user_id = ?", id, currentOprId(c)).Delete(&domain.Lead{})
	if result.Error != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete lead", result.Error.Error())
	}
	if result.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Lead not found", nil)
	}
	writeOprLog(c, "lead_delete", "lead removed")
	return ok(c, map[string]interface{}{"id": id})
}

func moveLead(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid lead ID", nil)
	}
	var payload moveLeadPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse move", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "column_id is required", nil)
	}

	userId := currentOprId(c)
	kb := kanban.NewService(GetDB(c))
	result, err := kb.MoveLead(userId, id, payload.ColumnId)
	switch {
	case err == kanban.ErrLeadNotFound:
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Lead not found", nil)
	case err == kanban.ErrColumnNotFound:
		return fail(c, http.StatusBadRequest, "INVALID_COLUMN", "Target column does not exist", nil)
	case err != nil:
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to move lead", err.Error())
	}

	if result.Moved {
		// the move is reverted if the audit record cannot be written, so the
		// board never disagrees with the trail
		if dberr := GetDB(c).Create(&domain.SysOprLog{
			ID:        common.UUIDint64(),
			OprName:   currentOprName(c),
			OprIp:     c.RealIP(),
			OptAction: "lead_move",
			OptDesc:   "lead moved to " + payload.ColumnId,
			OptTime:   time.Now(),
		}).Error; dberr != nil {
			_ = kb.RevertMove(userId, id, result.PreviousColumn)
			return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Move rolled back", dberr.Error())
		}
	}
	return ok(c, result)
}

func importLeads(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "CSV file is required", nil)
	}
	src, err := fileHeader.Open()
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to open uploaded file", err.Error())
	}
	defer src.Close()

	imp := importer.NewImporter(GetDB(c), kanban.NewService(GetDB(c)))
	result, err := imp.ImportLeads(currentOprId(c), src)
	if err != nil {
		return fail(c, http.StatusBadRequest, "IMPORT_FAILED", "CSV import failed", err.Error())
	}
	writeOprLog(c, "lead_import", "csv import")
	return ok(c, result)
}
