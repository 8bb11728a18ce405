package adminapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/zapcrmio/zapcrm/internal/domain"
	"github.com/zapcrmio/zapcrm/internal/flowgraph"
	"github.com/zapcrmio/zapcrm/internal/webserver"
	"github.com/zapcrmio/zapcrm/pkg/common"
)

type flowPayload struct {
	Name   string `json:"name" validate:"required,min=1,max=200"`
	Status string `json:"status" validate:"omitempty,oneof=rascunho ativo inativo"`
}

type flowGraphPayload struct {
	Nodes domain.FlowNodeList `json:"nodes"`
	Edges domain.FlowEdgeList `json:"edges"`
}

func registerFlowRoutes() {
	webserver.ApiGET("/crm/flows", listFlows)
	webserver.ApiGET("/crm/flows/:id", getFlow)
	webserver.ApiPOST("/crm/flows", createFlow)
	webserver.ApiPUT("/crm/flows/:id", updateFlow)
	webserver.ApiPUT("/crm/flows/:id/graph", saveFlowGraph)
	webserver.ApiPOST("/crm/flows/:id/duplicate", duplicateFlow)
	webserver.ApiDELETE("/crm/flows/:id", deleteFlow)
}

func listFlows(c echo.Context) error {
	page, perPage := parsePagination(c)

	db := GetDB(c).Model(&domain.Flow{}).Where("user_id = ?", currentOprId(c))
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		db = db.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(q)+"%")
	}
	if status := strings.TrimSpace(c.QueryParam("status")); status != "" {
		db = db.Where("status = ?", status)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query flows", err.Error())
	}
	var rows []domain.Flow
	if err := db.Order("updated_at DESC").Offset((page - 1) * perPage).Limit(perPage).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query flows", err.Error())
	}
	return paged(c, rows, total, page, perPage)
}

// loadOwnedFlow resolves the :id flow scoped to the operator. On failure the
// response is already written and nil is returned.
func loadOwnedFlow(c echo.Context) *domain.Flow {
	id, err := parseIDParam(c, "id")
	if err != nil {
		_ = fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid flow ID", nil)
		return nil
	}
	var flow domain.Flow
	if err := GetDB(c).Where("id = ? AND user_id = ?", id, currentOprId(c)).First(&flow).Error; err != nil {
		_ = fail(c, http.StatusNotFound, "NOT_FOUND", "Flow not found", nil)
		return nil
	}
	return &flow
}

func getFlow(c echo.Context) error {
	flow := loadOwnedFlow(c)
	if flow == nil {
		return nil
	}
	return ok(c, flow)
}

func createFlow(c echo.Context) error {
	var payload flowPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse flow", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Name is required", nil)
	}

	status := payload.Status
	if status == "" {
		status = domain.FlowStatusDraft
	}

	// every new flow opens with a start node already on the canvas
	graph := flowgraph.New()
	if _, err := graph.AddNode(domain.NodeTypeStart, domain.NodePosition{X: 100, Y: 200}); err != nil {
		return fail(c, http.StatusInternalServerError, "GRAPH_ERROR", "Failed to initialize graph", err.Error())
	}

	flow := domain.Flow{
		ID:     common.UUIDint64(),
		UserId: currentOprId(c),
		Name:   strings.TrimSpace(payload.Name),
		Status: status,
	}
	graph.ApplyTo(&flow)
	if err := GetDB(c).Create(&flow).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create flow", err.Error())
	}
	return ok(c, flow)
}

func updateFlow(c echo.Context) error {
	flow := loadOwnedFlow(c)
	if flow == nil {
		return nil
	}

	var payload flowPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse flow", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Name is required", nil)
	}

	updates := map[string]interface{}{
		"name":       strings.TrimSpace(payload.Name),
		"updated_at": time.Now(),
	}
	if payload.Status != "" {
		updates["status"] = payload.Status
	}
	if err := GetDB(c).Model(&domain.Flow{}).Where("id = ?", flow.ID).Updates(updates).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update flow", err.Error())
	}
	return ok(c, map[string]interface{}{"updated": true})
}

// saveFlowGraph replaces the stored graph with the editor state. Loading
// through the graph validates start-node uniqueness and silently drops
// edges that reference deleted nodes.
func saveFlowGraph(c echo.Context) error {
	flow := loadOwnedFlow(c)
	if flow == nil {
		return nil
	}

	var payload flowGraphPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse graph", err.Error())
	}

	graph, err := flowgraph.Load(payload.Nodes, payload.Edges)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_GRAPH", "Graph rejected", err.Error())
	}

	graph.ApplyTo(flow)
	flow.UpdatedAt = time.Now()
	if err := GetDB(c).Model(&domain.Flow{}).Where("id = ?", flow.ID).Updates(map[string]interface{}{
		"nodes":       flow.Nodes,
		"edges":       flow.Edges,
		"nodes_count": flow.NodesCount,
		"updated_at":  flow.UpdatedAt,
	}).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to save graph", err.Error())
	}

	return ok(c, map[string]interface{}{
		"nodes_count": flow.NodesCount,
		"has_cycle":   graph.DetectCycle(),
	})
}

func duplicateFlow(c echo.Context) error {
	flow := loadOwnedFlow(c)
	if flow == nil {
		return nil
	}

	copyFlow := domain.Flow{
		ID:         common.UUIDint64(),
		UserId:     flow.UserId,
		Name:       flow.Name + " (cópia)",
		Status:     domain.FlowStatusDraft,
		Nodes:      flow.Nodes,
		Edges:      flow.Edges,
		NodesCount: flow.NodesCount,
	}
	if err := GetDB(c).Create(&copyFlow).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to duplicate flow", err.Error())
	}
	return ok(c, copyFlow)
}

func deleteFlow(c echo.Context) error {
	flow := loadOwnedFlow(c)
	if flow == nil {
		return nil
	}

	// a flow wired into campaigns or remarketing steps must not disappear
	// under them
	var inUse int64
	GetDB(c).Model(&domain.Campaign{}).Where("flow_id = ?", flow.ID).Count(&inUse)
	if inUse > 0 {
		return fail(c, http.StatusConflict, "FLOW_IN_USE", "Flow is referenced by campaigns", nil)
	}
	GetDB(c).Model(&domain.RemarketingStep{}).Where("flow_id = ?", flow.ID).Count(&inUse)
	if inUse > 0 {
		return fail(c, http.StatusConflict, "FLOW_IN_USE", "Flow is referenced by remarketing steps", nil)
	}

	if err := GetDB(c).Where("id = ?", flow.ID).Delete(&domain.Flow{}).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete flow", err.Error())
	}
	writeOprLog(c, "flow_delete", "flow "+flow.Name+" removed")
	return ok(c, map[string]interface{}{"id": flow.ID})
}
