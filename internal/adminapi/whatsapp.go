package adminapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/zapcrmio/zapcrm/internal/domain"
	"github.com/zapcrmio/zapcrm/internal/webserver"
	"github.com/zapcrmio/zapcrm/internal/whatsgw"
	"github.com/zapcrmio/zapcrm/pkg/common"
)

type instancePayload struct {
	Name string `json:"name" validate:"required,min=3,max=128,alphanum"`
}

func registerWhatsappRoutes() {
	webserver.ApiGET("/whatsapp/instances", listInstances)
	webserver.ApiPOST("/whatsapp/instances", createInstance)
	webserver.ApiGET("/whatsapp/instances/:id", getInstance)
	webserver.ApiPOST("/whatsapp/instances/:id/connect", connectInstance)
	webserver.ApiGET("/whatsapp/instances/:id/state", instanceState)
	webserver.ApiPOST("/whatsapp/instances/:id/wait", waitInstance)
	webserver.ApiPOST("/whatsapp/instances/:id/restart", restartInstance)
	webserver.ApiPOST("/whatsapp/instances/:id/logout", logoutInstance)
	webserver.ApiDELETE("/whatsapp/instances/:id", deleteInstance)
}

func loadOwnedInstance(c echo.Context) *domain.WhatsappInstance {
	id, err := parseIDParam(c, "id")
	if err != nil {
		fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid instance ID", nil)
		return nil
	}
	var instance domain.WhatsappInstance
	if err := GetDB(c).Where("id = ? AND user_id = ?", id, currentOprId(c)).First(&instance).Error; err != nil {
		fail(c, http.StatusNotFound, "NOT_FOUND", "Instance not found", nil)
		return nil
	}
	return &instance
}

func listInstances(c echo.Context) error {
	var instances []domain.WhatsappInstance
	if err := GetDB(c).Where("user_id = ?", currentOprId(c)).
		Order("created_at ASC").Find(&instances).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query instances", err.Error())
	}
	return ok(c, instances)
}

// instanceLimitReached enforces the plan's MaxInstances cap (0 = unlimited).
func instanceLimitReached(c echo.Context, userId int64) bool {
	var opr domain.SysOpr
	if err := GetDB(c).Where("id = ?", userId).First(&opr).Error; err != nil || opr.PlanId == 0 {
		return false
	}
	var plan domain.Plan
	if err := GetDB(c).Where("id = ?", opr.PlanId).First(&plan).Error; err != nil || plan.MaxInstances <= 0 {
		return false
	}
	var count int64
	GetDB(c).Model(&domain.WhatsappInstance{}).Where("user_id = ?", userId).Count(&count)
	return count >= int64(plan.MaxInstances)
}

func createInstance(c echo.Context) error {
	var payload instancePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse instance", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Instance name must be alphanumeric, 3-128 chars", nil)
	}

	userId := currentOprId(c)
	if instanceLimitReached(c, userId) {
		return fail(c, http.StatusForbidden, "PLAN_LIMIT", "Instance limit of the current plan reached", nil)
	}

	name := strings.TrimSpace(payload.Name)
	var dup int64
	GetDB(c).Model(&domain.WhatsappInstance{}).
		Where("user_id = ? AND name = ?", userId, name).Count(&dup)
	if dup > 0 {
		return fail(c, http.StatusConflict, "DUPLICATE_NAME", "Instance name already in use", nil)
	}

	appCtx := GetAppContext(c)
	if err := appCtx.WhatsClient().CreateInstance(c.Request().Context(), name); err != nil {
		return fail(c, http.StatusBadGateway, "GATEWAY_ERROR", "Gateway refused to create instance", err.Error())
	}

	instance := domain.WhatsappInstance{
		ID:     common.UUIDint64(),
		UserId: userId,
		Name:   name,
		State:  whatsgw.StateClose,
	}
	if err := GetDB(c).Create(&instance).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to save instance", err.Error())
	}
	writeOprLog(c, "instance_create", "whatsapp instance "+name+" created")
	return ok(c, instance)
}

func getInstance(c echo.Context) error {
	instance := loadOwnedInstance(c)
	if instance == nil {
		return nil
	}
	return ok(c, instance)
}

// connectInstance asks the gateway for fresh pairing material (QR code image
// and numeric pairing code) and flips the stored state to connecting.
func connectInstance(c echo.Context) error {
	instance := loadOwnedInstance(c)
	if instance == nil {
		return nil
	}
	result, err := GetAppContext(c).WhatsClient().Connect(c.Request().Context(), instance.Name)
	if err != nil {
		return fail(c, http.StatusBadGateway, "GATEWAY_ERROR", "Gateway connect failed", err.Error())
	}
	GetDB(c).Model(instance).Updates(map[string]interface{}{
		"state":         whatsgw.StateConnecting,
		"last_check_at": time.Now(),
	})
	return ok(c, map[string]interface{}{
		"instance":     instance.Name,
		"pairing_code": result.PairingCode,
		"code":         result.Code,
		"qr_base64":    result.Base64,
	})
}

// instanceState refreshes the state straight from the gateway, persisting it
// through the application so the scheduler and the UI see the same row.
func instanceState(c echo.Context) error {
	instance := loadOwnedInstance(c)
	if instance == nil {
		return nil
	}
	if err := GetAppContext(c).RunInstanceRefresh(instance.ID); err != nil {
		return fail(c, http.StatusBadGateway, "GATEWAY_ERROR", "State probe failed", err.Error())
	}
	var refreshed domain.WhatsappInstance
	if err := GetDB(c).First(&refreshed, instance.ID).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to reload instance", err.Error())
	}
	return ok(c, refreshed)
}

// waitInstance blocks until the instance reaches the open state or the
// configured window expires. The frontend calls it right after showing the
// pairing dialog; closing the dialog aborts the request and the poll.
func waitInstance(c echo.Context) error {
	instance := loadOwnedInstance(c)
	if instance == nil {
		return nil
	}
	appCtx := GetAppContext(c)
	interval := time.Duration(appCtx.ConfigMgr().GetInt("instance", "poll_interval_seconds")) * time.Second
	if interval <= 0 {
		interval = 3 * time.Second
	}
	maxWait := time.Duration(appCtx.ConfigMgr().GetInt("instance", "poll_max_wait_seconds")) * time.Second
	if maxWait <= 0 {
		maxWait = 2 * time.Minute
	}

	poller := whatsgw.NewPoller(appCtx.WhatsClient(), instance.Name, interval, maxWait)
	outcome := poller.Run(c.Request().Context())

	if outcome == whatsgw.OutcomeConnected {
		GetDB(c).Model(instance).Updates(map[string]interface{}{
			"state":         whatsgw.StateOpen,
			"last_check_at": time.Now(),
		})
	}
	return ok(c, map[string]interface{}{
		"instance": instance.Name,
		"outcome":  string(outcome),
	})
}

func restartInstance(c echo.Context) error {
	instance := loadOwnedInstance(c)
	if instance == nil {
		return nil
	}
	if err := GetAppContext(c).WhatsClient().Restart(c.Request().Context(), instance.Name); err != nil {
		return fail(c, http.StatusBadGateway, "GATEWAY_ERROR", "Gateway restart failed", err.Error())
	}
	GetDB(c).Model(instance).Updates(map[string]interface{}{
		"state":         whatsgw.StateConnecting,
		"last_check_at": time.Now(),
	})
	return ok(c, map[string]interface{}{"instance": instance.Name, "state": whatsgw.StateConnecting})
}

func logoutInstance(c echo.Context) error {
	instance := loadOwnedInstance(c)
	if instance == nil {
		return nil
	}
	if err := GetAppContext(c).WhatsClient().Logout(c.Request().Context(), instance.Name); err != nil {
		return fail(c, http.StatusBadGateway, "GATEWAY_ERROR", "Gateway logout failed", err.Error())
	}
	GetDB(c).Model(instance).Updates(map[string]interface{}{
		"state":         whatsgw.StateClose,
		"last_check_at": time.Now(),
	})
	return ok(c, map[string]interface{}{"instance": instance.Name, "state": whatsgw.StateClose})
}

func deleteInstance(c echo.Context) error {
	instance := loadOwnedInstance(c)
	if instance == nil {
		return nil
	}
	// best effort on the gateway side, the local row always goes
	if err := GetAppContext(c).WhatsClient().DeleteInstance(c.Request().Context(), instance.Name); err != nil {
		zap.L().Warn("gateway delete failed", zap.String("instance", instance.Name), zap.Error(err))
	}
	if err := GetDB(c).Delete(instance).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete instance", err.Error())
	}
	writeOprLog(c, "instance_delete", "whatsapp instance "+instance.Name+" removed")
	return ok(c, map[string]interface{}{"id": instance.ID})
}
