package adminapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/zapcrmio/zapcrm/internal/app"
	"github.com/zapcrmio/zapcrm/internal/domain"
	"github.com/zapcrmio/zapcrm/internal/kanban"
	"github.com/zapcrmio/zapcrm/internal/webhook"
	"github.com/zapcrmio/zapcrm/internal/webserver"
	"github.com/zapcrmio/zapcrm/pkg/common"
)

// intakePayload is what sales platforms post to the public hook. Only phone
// is mandatory, mirroring manual lead creation.
type intakePayload struct {
	Name       string `json:"name"`
	Phone      string `json:"phone" validate:"required"`
	Email      string `json:"email" validate:"omitempty,email"`
	PersonType string `json:"person_type"`
	City       string `json:"city"`
	State      string `json:"state"`
	Notes      string `json:"notes"`
}

func registerHookRoutes() {
	webserver.PubPOST("/hooks/leads/:token", intakeLead)
}

// intakeLead accepts a lead from an external platform authenticated by the
// integration token in the URL. It lands the lead on the owner's default
// column like any other capture source.
func intakeLead(c echo.Context) error {
	token := c.Param("token")
	var integration domain.Integration
	err := GetDB(c).
		Where("token = ? AND kind = ? AND enabled = ?", token, webhook.KindLeadIntake, true).
		First(&integration).Error
	if err != nil {
		// same answer for unknown and disabled tokens
		return fail(c, http.StatusUnauthorized, "INVALID_TOKEN", "Unknown intake token", nil)
	}

	var payload intakePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse lead", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Phone is required", nil)
	}

	userId := integration.UserId
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

	personType := strings.ToUpper(strings.TrimSpace(payload.PersonType))
	if personType != domain.PersonTypePJ {
		personType = domain.PersonTypePF
	}

	lead := domain.Lead{
		ID:          common.UUIDint64(),
		UserId:      userId,
		WorkspaceId: workspace.ID,
		ColumnId:    column.ColumnId,
		Name:        strings.TrimSpace(payload.Name),
		Phone:       strings.TrimSpace(payload.Phone),
		Email:       strings.TrimSpace(payload.Email),
		PersonType:  personType,
		City:        payload.City,
		State:       strings.ToUpper(payload.State),
		Notes:       payload.Notes,
		Source:      "webhook",
	}
	if err := GetDB(c).Create(&lead).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create lead", err.Error())
	}

	app.PublishLeadCreated(userId, lead.ID, lead.Source)
	zap.L().Info("lead intake",
		zap.String("integration", integration.Name),
		zap.Int64("user", userId),
		zap.Int64("lead", lead.ID))
	return ok(c, map[string]interface{}{"id": lead.ID, "column_id": lead.ColumnId})
}
