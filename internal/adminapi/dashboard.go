package adminapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/zapcrmio/zapcrm/internal/billing"
	"github.com/zapcrmio/zapcrm/internal/domain"
	"github.com/zapcrmio/zapcrm/internal/webserver"
)

func registerDashboardRoutes() {
	webserver.ApiGET("/crm/dashboard", dashboardOverview)
}

type countRow struct {
	Key   string `json:"key" gorm:"column:k"`
	Count int64  `json:"count" gorm:"column:n"`
}

type dashboardResponse struct {
	LeadsTotal        int64                 `json:"leads_total"`
	LeadsByColumn     []countRow            `json:"leads_by_column"`
	CampaignsByStatus []countRow            `json:"campaigns_by_status"`
	Orders            dashboardOrderTotals  `json:"orders"`
	Bills             *billing.MonthSummary `json:"bills"`
}

type dashboardOrderTotals struct {
	Total   int64   `json:"total"`
	Open    int64   `json:"open"`
	Paid    int64   `json:"paid"`
	Revenue float64 `json:"revenue"` // sum of paid order totals
}

// dashboardOverview aggregates the operator's workspace in one round trip:
// board distribution, campaign funnel, order revenue and this month's bills.
func dashboardOverview(c echo.Context) error {
	db := GetDB(c)
	userId := currentOprId(c)
	resp := dashboardResponse{}

	if err := db.Model(&domain.Lead{}).Where("user_id = ?", userId).Count(&resp.LeadsTotal).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to count leads", err.Error())
	}
	if err := db.Model(&domain.Lead{}).Select("column_id AS k, COUNT(*) AS n").
		Where("user_id = ?", userId).Group("column_id").
		Scan(&resp.LeadsByColumn).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to group leads", err.Error())
	}
	if err := db.Model(&domain.Campaign{}).Select("status AS k, COUNT(*) AS n").
		Where("user_id = ?", userId).Group("status").
		Scan(&resp.CampaignsByStatus).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to group campaigns", err.Error())
	}

	if err := db.Model(&domain.Order{}).Where("user_id = ?", userId).Count(&resp.Orders.Total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to count orders", err.Error())
	}
	db.Model(&domain.Order{}).
		Where("user_id = ? AND status IN ?", userId,
			[]string{domain.OrderStatusQuote, domain.OrderStatusAwaiting}).
		Count(&resp.Orders.Open)
	db.Model(&domain.Order{}).
		Where("user_id = ? AND status = ?", userId, domain.OrderStatusPaid).
		Count(&resp.Orders.Paid)
	db.Model(&domain.Order{}).Select("COALESCE(SUM(total_amount), 0)").
		Where("user_id = ? AND status = ?", userId, domain.OrderStatusPaid).
		Scan(&resp.Orders.Revenue)

	month := time.Date(time.Now().Year(), time.Now().Month(), 1, 0, 0, 0, 0, time.Local)
	summary, err := billingService(c).SummarizeMonth(userId, month)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to summarize bills", err.Error())
	}
	resp.Bills = summary

	return ok(c, resp)
}
