package adminapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/zapcrmio/zapcrm/internal/domain"
	"github.com/zapcrmio/zapcrm/internal/kanban"
	"github.com/zapcrmio/zapcrm/internal/webserver"
	"github.com/zapcrmio/zapcrm/pkg/common"
)

type workspacePayload struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

type columnPayload struct {
	ColumnId  string `json:"column_id" validate:"required,min=1,max=64"`
	Label     string `json:"label" validate:"required,min=1,max=100"`
	Color     string `json:"color"`
	IsVisible *bool  `json:"is_visible"`
}

type reorderPayload struct {
	ColumnIds []string `json:"column_ids" validate:"required,min=1"`
}

func registerWorkspaceRoutes() {
	webserver.ApiGET("/crm/workspaces", listWorkspaces)
	webserver.ApiPOST("/crm/workspaces", createWorkspace)
	webserver.ApiDELETE("/crm/workspaces/:id", deleteWorkspace)
	webserver.ApiGET("/crm/workspaces/:id/columns", listColumns)
	webserver.ApiPOST("/crm/workspaces/:id/columns", createColumn)
	webserver.ApiPUT("/crm/workspaces/:id/columns/reorder", reorderColumns)
	webserver.ApiPUT("/crm/workspaces/:id/columns/:column", updateColumn)
	webserver.ApiDELETE("/crm/workspaces/:id/columns/:column", deleteColumn)
}

func listWorkspaces(c echo.Context) error {
	userId := currentOprId(c)
	kb := kanban.NewService(GetDB(c))
	// a fresh account gets its default workspace on first load
	if _, err := kb.EnsureDefaultWorkspace(userId); err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to resolve workspace", err.Error())
	}
	var rows []domain.Workspace
	if err := GetDB(c).Where("user_id = ?", userId).Order("is_default DESC, created_at ASC").Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query workspaces", err.Error())
	}
	return ok(c, rows)
}

func createWorkspace(c echo.Context) error {
	var payload workspacePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse workspace", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Name is required", nil)
	}

	ws := domain.Workspace{
		ID:     common.UUIDint64(),
		UserId: currentOprId(c),
		Name:   strings.TrimSpace(payload.Name),
	}
	if err := GetDB(c).Create(&ws).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create workspace", err.Error())
	}
	return ok(c, ws)
}

func deleteWorkspace(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid workspace ID", nil)
	}
	var ws domain.Workspace
	if err := GetDB(c).Where("id = ? AND user_id = ?", id, currentOprId(c)).First(&ws).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Workspace not found", nil)
	}
	if ws.IsDefault {
		return fail(c, http.StatusBadRequest, "DEFAULT_PROTECTED", "The default workspace cannot be deleted", nil)
	}
	if err := GetDB(c).Where("id = ?", ws.ID).Delete(&domain.Workspace{}).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete workspace", err.Error())
	}
	writeOprLog(c, "workspace_delete", "workspace "+ws.Name+" removed")
	return ok(c, map[string]interface{}{"id": id})
}

func listColumns(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid workspace ID", nil)
	}
	kb := kanban.NewService(GetDB(c))
	cols, err := kb.Columns(currentOprId(c), id)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query columns", err.Error())
	}
	return ok(c, cols)
}

func createColumn(c echo.Context) error {
	workspaceId, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid workspace ID", nil)
	}
	var payload columnPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse column", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "column_id and label are required", nil)
	}

	userId := currentOprId(c)
	var count int64
	GetDB(c).Model(&domain.KanbanColumn{}).
		Where("workspace_id = ? AND column_id = ?", workspaceId, payload.ColumnId).
		Count(&count)
	if count > 0 {
		return fail(c, http.StatusConflict, "DUPLICATE", "A column with this id already exists", nil)
	}

	var maxPos int
	row := GetDB(c).Model(&domain.KanbanColumn{}).
		Where("workspace_id = ?", workspaceId).
		Select("COALESCE(MAX(position), 0)").Row()
	_ = row.Scan(&maxPos)

	visible := true
	if payload.IsVisible != nil {
		visible = *payload.IsVisible
	}
	col := domain.KanbanColumn{
		ID:          common.UUIDint64(),
		UserId:      userId,
		WorkspaceId: workspaceId,
		ColumnId:    strings.TrimSpace(payload.ColumnId),
		Label:       strings.TrimSpace(payload.Label),
		Color:       payload.Color,
		Position:    maxPos + 1,
		IsVisible:   visible,
	}
	if err := GetDB(c).Create(&col).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create column", err.Error())
	}
	return ok(c, col)
}

func updateColumn(c echo.Context) error {
	workspaceId, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid workspace ID", nil)
	}
	columnId := c.Param("column")

	var col domain.KanbanColumn
	if err := GetDB(c).Where("workspace_id = ? AND column_id = ? AND user_id = ?",
		workspaceId, columnId, currentOprId(c)).First(&col).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Column not found", nil)
	}

	var payload columnPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse column", err.Error())
	}

	updates := map[string]interface{}{"updated_at": time.Now()}
	if v := strings.TrimSpace(payload.Label); v != "" {
		updates["label"] = v
	}
	if payload.Color != "" {
		updates["color"] = payload.Color
	}
	if payload.IsVisible != nil {
		updates["is_visible"] = *payload.IsVisible
	}
	if err := GetDB(c).Model(&domain.KanbanColumn{}).Where("id = ?", col.ID).Updates(updates).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update column", err.Error())
	}
	return ok(c, map[string]interface{}{"updated": true})
}

func reorderColumns(c echo.Context) error {
	workspaceId, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid workspace ID", nil)
	}
	var payload reorderPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse order", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "column_ids is required", nil)
	}

	kb := kanban.NewService(GetDB(c))
	if err := kb.ReorderColumns(currentOprId(c), workspaceId, payload.ColumnIds); err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to reorder columns", err.Error())
	}
	return ok(c, map[string]interface{}{"reordered": true})
}

func deleteColumn(c echo.Context) error {
	workspaceId, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid workspace ID", nil)
	}
	columnId := c.Param("column")

	kb := kanban.NewService(GetDB(c))
	err = kb.DeleteColumn(currentOprId(c), workspaceId, columnId)
	switch {
	case err == kanban.ErrDefaultProtected:
		return fail(c, http.StatusBadRequest, "DEFAULT_PROTECTED", "The default column cannot be deleted", nil)
	case err == kanban.ErrColumnNotFound:
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Column not found", nil)
	case err != nil:
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete column", err.Error())
	}
	writeOprLog(c, "column_delete", "column "+columnId+" removed, leads moved to default")
	return ok(c, map[string]interface{}{"column_id": columnId})
}
