package adminapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/zapcrmio/zapcrm/internal/app"
	"github.com/zapcrmio/zapcrm/internal/campaigns"
	"github.com/zapcrmio/zapcrm/internal/domain"
	"github.com/zapcrmio/zapcrm/internal/webhook"
	"github.com/zapcrmio/zapcrm/internal/webserver"
	"github.com/zapcrmio/zapcrm/pkg/common"
)

type campaignPayload struct {
	Name         string `json:"name" validate:"required,min=1,max=200"`
	FlowId       int64  `json:"flow_id,string" validate:"required"`
	ColumnId     string `json:"column_id" validate:"required"`
	InstanceName string `json:"instance_name" validate:"required"`
	ScheduledAt  string `json:"scheduled_at"` // RFC3339, empty = immediate
}

type campaignStatsPayload struct {
	Total     int    `json:"total"`
	Sent      int    `json:"sent"`
	Delivered int    `json:"delivered"`
	Read      int    `json:"read"`
	Status    string `json:"status" validate:"omitempty,oneof=em_andamento pausada concluida"`
}

func registerCampaignRoutes() {
	webserver.ApiGET("/crm/campaigns", listCampaigns)
	webserver.ApiGET("/crm/campaigns/:id", getCampaign)
	webserver.ApiPOST("/crm/campaigns", createCampaign)
	webserver.ApiPUT("/crm/campaigns/:id", updateCampaign)
	webserver.ApiDELETE("/crm/campaigns/:id", deleteCampaign)
	webserver.ApiPOST("/crm/campaigns/:id/start", startCampaign)
	webserver.ApiPOST("/crm/campaigns/:id/toggle", toggleCampaign)
	webserver.ApiPOST("/crm/campaigns/:id/stats", applyCampaignStats)
}

func newDispatcher(c echo.Context) (*campaigns.Dispatcher, error) {
	notifier := webhook.NewNotifier(GetDB(c), webhook.NewClient(15*time.Second))
	return campaigns.NewDispatcher(GetDB(c), notifier, 0)
}

func listCampaigns(c echo.Context) error {
	page, perPage := parsePagination(c)

	db := GetDB(c).Model(&domain.Campaign{}).Where("user_id = ?", currentOprId(c))
	if status := strings.TrimSpace(c.QueryParam("status")); status != "" {
		db = db.Where("status = ?", status)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query campaigns", err.Error())
	}
	var rows []domain.Campaign
	if err := db.Order("created_at DESC").Offset((page - 1) * perPage).Limit(perPage).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query campaigns", err.Error())
	}
	return paged(c, rows, total, page, perPage)
}

func getCampaign(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid campaign ID", nil)
	}
	var campaign domain.Campaign
	if err := GetDB(c).Where("id = ? AND user_id = ?", id, currentOprId(c)).First(&campaign).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Campaign not found", nil)
	}
	return ok(c, campaign)
}

func validateCampaignRefs(c echo.Context, userId int64, payload *campaignPayload) error {
	var count int64
	GetDB(c).Model(&domain.Flow{}).
		Where("id = ? AND user_id = ? AND status = ?", payload.FlowId, userId, domain.FlowStatusActive).
		Count(&count)
	if count == 0 {
		return fail(c, http.StatusBadRequest, "INVALID_FLOW", "Flow must exist and be active", nil)
	}
	GetDB(c).Model(&domain.WhatsappInstance{}).
		Where("user_id = ? AND name = ?", userId, payload.InstanceName).
		Count(&count)
	if count == 0 {
		return fail(c, http.StatusBadRequest, "INVALID_INSTANCE", "WhatsApp instance not found", nil)
	}
	return nil
}

func createCampaign(c echo.Context) error {
	var payload campaignPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse campaign", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Name, flow, column and instance are required", nil)
	}

	userId := currentOprId(c)
	if err := validateCampaignRefs(c, userId, &payload); err != nil {
		return err
	}

	campaign := domain.Campaign{
		ID:           common.UUIDint64(),
		UserId:       userId,
		Name:         strings.TrimSpace(payload.Name),
		FlowId:       payload.FlowId,
		ColumnId:     payload.ColumnId,
		InstanceName: payload.InstanceName,
		Status:       domain.CampaignStatusDraft,
		Stats:        domain.JSONB{"total": 0, "sent": 0, "delivered": 0, "read": 0},
	}
	if raw := strings.TrimSpace(payload.ScheduledAt); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "scheduled_at must be RFC3339", nil)
		}
		campaign.ScheduledAt = &t
		campaign.Status = domain.CampaignStatusScheduled
	}

	if err := GetDB(c).Create(&campaign).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create campaign", err.Error())
	}
	return ok(c, campaign)
}

func updateCampaign(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid campaign ID", nil)
	}
	var campaign domain.Campaign
	if err := GetDB(c).Where("id = ? AND user_id = ?", id, currentOprId(c)).First(&campaign).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Campaign not found", nil)
	}
	if campaign.Status == domain.CampaignStatusRunning {
		return fail(c, http.StatusConflict, "CAMPAIGN_RUNNING", "Pause the campaign before editing it", nil)
	}

	var payload campaignPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse campaign", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Name, flow, column and instance are required", nil)
	}
	if err := validateCampaignRefs(c, campaign.UserId, &payload); err != nil {
		return err
	}

	updates := map[string]interface{}{
		"name":          strings.TrimSpace(payload.Name),
		"flow_id":       payload.FlowId,
		"column_id":     payload.ColumnId,
		"instance_name": payload.InstanceName,
		"updated_at":    time.Now(),
	}
	if raw := strings.TrimSpace(payload.ScheduledAt); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "scheduled_at must be RFC3339", nil)
		}
		updates["scheduled_at"] = t
		updates["status"] = domain.CampaignStatusScheduled
	}
	if err := GetDB(c).Model(&domain.Campaign{}).Where("id = ?", campaign.ID).Updates(updates).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update campaign", err.Error())
	}
	return ok(c, map[string]interface{}{"updated": true})
}

func deleteCampaign(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid campaign ID", nil)
	}
	result := GetDB(c).Where("id = ? AND user_id = ?", id, currentOprId(c)).Delete(&domain.Campaign{})
	if result.Error != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete campaign", result.Error.Error())
	}
	if result.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Campaign not found", nil)
	}
	writeOprLog(c, "campaign_delete", "campaign removed")
	return ok(c, map[string]interface{}{"id": id})
}

func startCampaign(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid campaign ID", nil)
	}
	d, err := newDispatcher(c)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DISPATCH_ERROR", "Dispatcher unavailable", err.Error())
	}
	defer d.Release()

	userId := currentOprId(c)
	if err := d.StartNow(c.Request().Context(), userId, id); err != nil {
		switch err {
		case campaigns.ErrCampaignNotFound:
			return fail(c, http.StatusNotFound, "NOT_FOUND", "Campaign not found", nil)
		case webhook.ErrNoIntegration:
			return fail(c, http.StatusBadRequest, "NO_INTEGRATION", "No enabled campaign trigger integration", nil)
		default:
			return fail(c, http.StatusBadGateway, "TRIGGER_FAILED", "Automation runner trigger failed", err.Error())
		}
	}
	app.PublishCampaignStatus(userId, id, domain.CampaignStatusRunning)
	return ok(c, map[string]interface{}{"started": true})
}

func toggleCampaign(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid campaign ID", nil)
	}
	d, err := newDispatcher(c)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DISPATCH_ERROR", "Dispatcher unavailable", err.Error())
	}
	defer d.Release()

	userId := currentOprId(c)
	campaign, err := d.Toggle(userId, id)
	switch err {
	case nil:
	case campaigns.ErrCampaignNotFound:
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Campaign not found", nil)
	case campaigns.ErrNotToggleable:
		return fail(c, http.StatusConflict, "NOT_TOGGLEABLE", "Only running and paused campaigns can be toggled", nil)
	default:
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to toggle campaign", err.Error())
	}
	app.PublishCampaignStatus(userId, id, campaign.Status)
	return ok(c, campaign)
}

// applyCampaignStats is the callback the automation runner posts progress to.
func applyCampaignStats(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid campaign ID", nil)
	}
	var payload campaignStatsPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse stats", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid status value", nil)
	}

	d, err := newDispatcher(c)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DISPATCH_ERROR", "Dispatcher unavailable", err.Error())
	}
	defer d.Release()

	stats := domain.CampaignStats{
		Total:     payload.Total,
		Sent:      payload.Sent,
		Delivered: payload.Delivered,
		Read:      payload.Read,
	}
	userId := currentOprId(c)
	if err := d.ApplyStats(userId, id, stats, payload.Status); err != nil {
		if err == campaigns.ErrCampaignNotFound {
			return fail(c, http.StatusNotFound, "NOT_FOUND", "Campaign not found", nil)
		}
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to apply stats", err.Error())
	}
	if payload.Status != "" {
		app.PublishCampaignStatus(userId, id, payload.Status)
	}
	return ok(c, map[string]interface{}{"applied": true})
}
