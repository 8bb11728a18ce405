// Package adminapi implements the REST handlers of the admin API. Every
// CRM row is scoped to the authenticated operator; handlers resolve the
// operator id from the JWT and never trust ids in the payload.
package adminapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"
	"github.com/zapcrmio/zapcrm/internal/app"
	"github.com/zapcrmio/zapcrm/internal/domain"
	"github.com/zapcrmio/zapcrm/internal/webserver"
	"github.com/zapcrmio/zapcrm/pkg/common"
	"gorm.io/gorm"
)

// ListResponse is the paged list envelope.
type ListResponse struct {
	Data    interface{} `json:"data"`
	Total   int64       `json:"total"`
	Page    int         `json:"page"`
	PerPage int         `json:"perPage"`
}

func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, map[string]interface{}{"data": data})
}

func fail(c echo.Context, status int, code, message string, detail interface{}) error {
	return c.JSON(status, map[string]interface{}{
		"code":    code,
		"message": message,
		"detail":  detail,
	})
}

func paged(c echo.Context, rows interface{}, total int64, page, perPage int) error {
	return c.JSON(http.StatusOK, ListResponse{Data: rows, Total: total, Page: page, PerPage: perPage})
}

func parsePagination(c echo.Context) (page, perPage int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ = strconv.Atoi(c.QueryParam("perPage"))
	if perPage < 1 || perPage > 500 {
		perPage = 20
	}
	return page, perPage
}

func parseIDParam(c echo.Context, name string) (int64, error) {
	return strconv.ParseInt(c.Param(name), 10, 64)
}

// GetAppContext returns the application context injected by the web server.
func GetAppContext(c echo.Context) app.AppContext {
	return c.Get(webserver.ContextKeyApp).(app.AppContext)
}

// GetDB returns the request-scoped database handle.
func GetDB(c echo.Context) *gorm.DB {
	return GetAppContext(c).DB()
}

// currentOprId extracts the operator id from the JWT claims.
func currentOprId(c echo.Context) int64 {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok {
		return 0
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0
	}
	return cast.ToInt64(claims["uid"])
}

func currentOprLevel(c echo.Context) string {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok {
		return ""
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ""
	}
	return cast.ToString(claims["lvl"])
}

func currentOprName(c echo.Context) string {
	token, ok := c.Get("user").(*jwt.Token)
	if !ok {
		return ""
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return ""
	}
	return cast.ToString(claims["usr"])
}

// writeOprLog records an operator action for the audit trail.
func writeOprLog(c echo.Context, action, desc string) {
	GetDB(c).Create(&domain.SysOprLog{
		ID:        common.UUIDint64(),
		OprName:   currentOprName(c),
		OprIp:     c.RealIP(),
		OptAction: action,
		OptDesc:   desc,
		OptTime:   time.Now(),
	})
}

// RegisterAll mounts every handler group onto the web server route registry.
// Must run before webserver.Init.
func RegisterAll() {
	registerAuthRoutes()
	registerLeadRoutes()
	registerWorkspaceRoutes()
	registerFlowRoutes()
	registerCampaignRoutes()
	registerSequenceRoutes()
	registerOrderRoutes()
	registerBillRoutes()
	registerCatalogRoutes()
	registerIntegrationRoutes()
	registerPlanRoutes()
	registerWhatsappRoutes()
	registerDashboardRoutes()
	registerSchedulerRoutes()
	registerHookRoutes()
}
