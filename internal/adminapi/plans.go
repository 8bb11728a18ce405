package adminapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/zapcrmio/zapcrm/internal/domain"
	"github.com/zapcrmio/zapcrm/internal/webserver"
	"github.com/zapcrmio/zapcrm/pkg/common"
)

type planPayload struct {
	Name         string                 `json:"name" validate:"required,min=1,max=100"`
	Price        float64                `json:"price" validate:"min=0"`
	MaxInstances int                    `json:"max_instances" validate:"min=0"`
	MaxLeads     int                    `json:"max_leads" validate:"min=0"`
	Features     map[string]interface{} `json:"features"`
	Status       string                 `json:"status" validate:"omitempty,oneof=enabled disabled"`
}

func registerPlanRoutes() {
	webserver.ApiGET("/crm/plans", listPlans)
	webserver.ApiPOST("/crm/plans", createPlan)
	webserver.ApiPUT("/crm/plans/:id", updatePlan)
	webserver.ApiDELETE("/crm/plans/:id", deletePlan)
	webserver.ApiPUT("/crm/oprs/:id/plan", assignPlan)
}

func listPlans(c echo.Context) error {
	var plans []domain.Plan
	if err := GetDB(c).Order("price ASC").Find(&plans).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query plans", err.Error())
	}
	return ok(c, plans)
}

func createPlan(c echo.Context) error {
	if currentOprLevel(c) != "super" {
		return fail(c, http.StatusForbidden, "FORBIDDEN", "Plan management requires super operator", nil)
	}
	var payload planPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse plan", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Plan name is required", nil)
	}
	status := payload.Status
	if status == "" {
		status = common.ENABLED
	}
	plan := domain.Plan{
		ID:           common.UUIDint64(),
		Name:         strings.TrimSpace(payload.Name),
		Price:        payload.Price,
		MaxInstances: payload.MaxInstances,
		MaxLeads:     payload.MaxLeads,
		Features:     domain.JSONB(payload.Features),
		Status:       status,
	}
	if err := GetDB(c).Create(&plan).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create plan", err.Error())
	}
	writeOprLog(c, "plan_create", "plan "+plan.Name+" created")
	return ok(c, plan)
}

func updatePlan(c echo.Context) error {
	if currentOprLevel(c) != "super" {
		return fail(c, http.StatusForbidden, "FORBIDDEN", "Plan management requires super operator", nil)
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid plan ID", nil)
	}
	var payload planPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse plan", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Plan name is required", nil)
	}
	var plan domain.Plan
	if err := GetDB(c).First(&plan, id).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Plan not found", nil)
	}
	plan.Name = strings.TrimSpace(payload.Name)
	plan.Price = payload.Price
	plan.MaxInstances = payload.MaxInstances
	plan.MaxLeads = payload.MaxLeads
	if payload.Features != nil {
		plan.Features = domain.JSONB(payload.Features)
	}
	if payload.Status != "" {
		plan.Status = payload.Status
	}
	if err := GetDB(c).Save(&plan).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update plan", err.Error())
	}
	return ok(c, plan)
}

func deletePlan(c echo.Context) error {
	if currentOprLevel(c) != "super" {
		return fail(c, http.StatusForbidden, "FORBIDDEN", "Plan management requires super operator", nil)
	}
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid plan ID", nil)
	}
	var subscribers int64
	GetDB(c).Model(&domain.SysOpr{}).Where("plan_id = ?", id).Count(&subscribers)
	if subscribers > 0 {
		return fail(c, http.StatusConflict, "PLAN_IN_USE", "Plan has subscribed operators", nil)
	}
	result := GetDB(c).Delete(&domain.Plan{}, id)
	if result.Error != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete plan", result.Error.Error())
	}
	if result.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Plan not found", nil)
	}
	return ok(c, map[string]interface{}{"id": id})
}

// assignPlan moves an operator to another plan. Existing data above the new
// plan's caps is kept; the caps only gate new creations.
func assignPlan(c echo.Context) error {
	if currentOprLevel(c) != "super" {
		return fail(c, http.StatusForbidden, "FORBIDDEN", "Plan assignment requires super operator", nil)
	}
	oprId, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid operator ID", nil)
	}
	var payload struct {
		PlanId int64 `json:"plan_id,string" validate:"required"`
	}
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse assignment", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "plan_id is required", nil)
	}
	var plan domain.Plan
	if err := GetDB(c).First(&plan, payload.PlanId).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Plan not found", nil)
	}
	result := GetDB(c).Model(&domain.SysOpr{}).Where("id = ?", oprId).Update("plan_id", plan.ID)
	if result.Error != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to assign plan", result.Error.Error())
	}
	if result.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Operator not found", nil)
	}
	writeOprLog(c, "plan_assign", "operator moved to plan "+plan.Name)
	return ok(c, map[string]interface{}{"opr_id": oprId, "plan_id": plan.ID})
}
