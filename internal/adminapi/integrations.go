package adminapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/zapcrmio/zapcrm/internal/domain"
	"github.com/zapcrmio/zapcrm/internal/webhook"
	"github.com/zapcrmio/zapcrm/internal/webserver"
	"github.com/zapcrmio/zapcrm/pkg/common"
)

type integrationPayload struct {
	Kind       string `json:"kind" validate:"required,oneof=campaign_trigger bill_notify lead_intake"`
	Name       string `json:"name" validate:"required,min=1,max=200"`
	WebhookUrl string `json:"webhook_url" validate:"omitempty,url,max=1024"`
	Enabled    *bool  `json:"enabled"`
}

func registerIntegrationRoutes() {
	webserver.ApiGET("/crm/integrations", listIntegrations)
	webserver.ApiGET("/crm/integrations/:id", getIntegration)
	webserver.ApiPOST("/crm/integrations", createIntegration)
	webserver.ApiPUT("/crm/integrations/:id", updateIntegration)
	webserver.ApiPOST("/crm/integrations/:id/rotate-token", rotateIntegrationToken)
	webserver.ApiDELETE("/crm/integrations/:id", deleteIntegration)
}

func listIntegrations(c echo.Context) error {
	page, perPage := parsePagination(c)

	db := GetDB(c).Model(&domain.Integration{}).Where("user_id = ?", currentOprId(c))
	if kind := strings.TrimSpace(c.QueryParam("kind")); kind != "" {
		db = db.Where("kind = ?", kind)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query integrations", err.Error())
	}
	var rows []domain.Integration
	if err := db.Order("created_at DESC").Offset((page - 1) * perPage).Limit(perPage).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query integrations", err.Error())
	}
	return paged(c, rows, total, page, perPage)
}

func getIntegration(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid integration ID", nil)
	}
	var integration domain.Integration
	if err := GetDB(c).Where("id = ? AND user_id = ?", id, currentOprId(c)).First(&integration).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Integration not found", nil)
	}
	return ok(c, integration)
}

func createIntegration(c echo.Context) error {
	var payload integrationPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse integration", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST",
			"Kind must be campaign_trigger, bill_notify or lead_intake", nil)
	}
	if payload.Kind != webhook.KindLeadIntake && payload.WebhookUrl == "" {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "webhook_url is required for outbound integrations", nil)
	}

	enabled := true
	if payload.Enabled != nil {
		enabled = *payload.Enabled
	}
	integration := domain.Integration{
		ID:         common.UUIDint64(),
		UserId:     currentOprId(c),
		Kind:       payload.Kind,
		Name:       strings.TrimSpace(payload.Name),
		WebhookUrl: payload.WebhookUrl,
		Token:      common.UUID(),
		Enabled:    enabled,
	}
	if err := GetDB(c).Create(&integration).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create integration", err.Error())
	}
	writeOprLog(c, "integration_create", "integration "+integration.Name+" created")
	return ok(c, integration)
}

func updateIntegration(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid integration ID", nil)
	}
	var payload integrationPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse integration", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST",
			"Kind must be campaign_trigger, bill_notify or lead_intake", nil)
	}
	var integration domain.Integration
	if err := GetDB(c).Where("id = ? AND user_id = ?", id, currentOprId(c)).First(&integration).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Integration not found", nil)
	}
	integration.Kind = payload.Kind
	integration.Name = strings.TrimSpace(payload.Name)
	integration.WebhookUrl = payload.WebhookUrl
	if payload.Enabled != nil {
		integration.Enabled = *payload.Enabled
	}
	if err := GetDB(c).Save(&integration).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update integration", err.Error())
	}
	return ok(c, integration)
}

// rotateIntegrationToken invalidates the current intake token. Callers must
// update any external forms pointing at the hook URL.
func rotateIntegrationToken(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid integration ID", nil)
	}
	var integration domain.Integration
	if err := GetDB(c).Where("id = ? AND user_id = ?", id, currentOprId(c)).First(&integration).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Integration not found", nil)
	}
	integration.Token = common.UUID()
	if err := GetDB(c).Save(&integration).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to rotate token", err.Error())
	}
	writeOprLog(c, "integration_rotate", "token rotated for "+integration.Name)
	return ok(c, integration)
}

func deleteIntegration(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid integration ID", nil)
	}
	result := GetDB(c).Where("id = ? AND user_id = ?", id, currentOprId(c)).Delete(&domain.Integration{})
	if result.Error != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete integration", result.Error.Error())
	}
	if result.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Integration not found", nil)
	}
	return ok(c, map[string]interface{}{"id": id})
}
