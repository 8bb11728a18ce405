package adminapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/zapcrmio/zapcrm/internal/domain"
	"github.com/zapcrmio/zapcrm/internal/webserver"
	"github.com/zapcrmio/zapcrm/pkg/common"
)

type schedulerPayload struct {
	Name     string `json:"name" validate:"required,min=1,max=100"`
	TaskType string `json:"task_type" validate:"required,oneof=campaign_dispatch bill_overdue_sweep bill_due_notify instance_state_refresh"`
	Interval int    `json:"interval" validate:"required,min=10"`
	Status   string `json:"status" validate:"omitempty,oneof=enabled disabled"`
	Remark   string `json:"remark"`
}

func registerSchedulerRoutes() {
	webserver.ApiGET("/system/schedulers", listSchedulers)
	webserver.ApiPOST("/system/schedulers", createScheduler)
	webserver.ApiPUT("/system/schedulers/:id", updateScheduler)
	webserver.ApiPOST("/system/schedulers/:id/run", runScheduler)
	webserver.ApiDELETE("/system/schedulers/:id", deleteScheduler)
}

func requireSuper(c echo.Context) bool {
	if currentOprLevel(c) != "super" {
		fail(c, http.StatusForbidden, "FORBIDDEN", "Scheduler management requires super operator", nil)
		return false
	}
	return true
}

func listSchedulers(c echo.Context) error {
	if !requireSuper(c) {
		return nil
	}
	var schedulers []domain.SysScheduler
	if err := GetDB(c).Order("id ASC").Find(&schedulers).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query schedulers", err.Error())
	}
	return ok(c, schedulers)
}

func createScheduler(c echo.Context) error {
	if !requireSuper(c) {
		return nil
	}
	var payload schedulerPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse scheduler", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Name, task type and an interval of at least 10s are required", nil)
	}
	scheduler := domain.SysScheduler{
		Name:      strings.TrimSpace(payload.Name),
		TaskType:  payload.TaskType,
		Interval:  payload.Interval,
		Status:    common.ENABLED,
		NextRunAt: time.Now().Add(time.Duration(payload.Interval) * time.Second),
		Remark:    payload.Remark,
	}
	if payload.Status != "" {
		scheduler.Status = payload.Status
	}
	if err := GetDB(c).Create(&scheduler).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create scheduler", err.Error())
	}
	writeOprLog(c, "scheduler_create", "scheduler "+scheduler.Name+" created")
	return ok(c, scheduler)
}

func updateScheduler(c echo.Context) error {
	if !requireSuper(c) {
		return nil
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid scheduler ID", nil)
	}
	var payload schedulerPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse scheduler", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Name, task type and an interval of at least 10s are required", nil)
	}
	var scheduler domain.SysScheduler
	if err := GetDB(c).First(&scheduler, id).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Scheduler not found", nil)
	}
	scheduler.Name = strings.TrimSpace(payload.Name)
	scheduler.TaskType = payload.TaskType
	if scheduler.Interval != payload.Interval {
		scheduler.Interval = payload.Interval
		scheduler.NextRunAt = time.Now().Add(time.Duration(payload.Interval) * time.Second)
	}
	if payload.Status != "" {
		scheduler.Status = payload.Status
	}
	scheduler.Remark = payload.Remark
	if err := GetDB(c).Save(&scheduler).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update scheduler", err.Error())
	}
	return ok(c, scheduler)
}

// runScheduler fires the task immediately regardless of next_run_at.
func runScheduler(c echo.Context) error {
	if !requireSuper(c) {
		return nil
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid scheduler ID", nil)
	}
	if err := GetAppContext(c).RunSchedulerNow(id); err != nil {
		return fail(c, http.StatusInternalServerError, "TASK_FAILED", "Scheduler execution failed", err.Error())
	}
	var scheduler domain.SysScheduler
	if err := GetDB(c).First(&scheduler, id).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Scheduler not found", nil)
	}
	writeOprLog(c, "scheduler_run", "scheduler "+scheduler.Name+" triggered manually")
	return ok(c, scheduler)
}

func deleteScheduler(c echo.Context) error {
	if !requireSuper(c) {
		return nil
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid scheduler ID", nil)
	}
	result := GetDB(c).Delete(&domain.SysScheduler{}, id)
	if result.Error != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete scheduler", result.Error.Error())
	}
	if result.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Scheduler not found", nil)
	}
	return ok(c, map[string]interface{}{"id": id})
}
