package adminapi

import (
	"bytes"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/zapcrmio/zapcrm/internal/docgen"
	"github.com/zapcrmio/zapcrm/internal/domain"
	"github.com/zapcrmio/zapcrm/internal/ordering"
	"github.com/zapcrmio/zapcrm/internal/webserver"
	"gorm.io/gorm"
)

type orderPayload struct {
	LeadId     int64                `json:"lead_id,string"`
	ClientName string               `json:"client_name" validate:"required,min=1,max=200"`
	Discount   float64              `json:"discount"`
	Notes      string               `json:"notes"`
	Items      []ordering.ItemInput `json:"items" validate:"required,min=1"`
}

type orderStatusPayload struct {
	Status string `json:"status" validate:"required"`
}

func registerOrderRoutes() {
	webserver.ApiGET("/crm/orders", listOrders)
	webserver.ApiGET("/crm/orders/:id", getOrder)
	webserver.ApiPOST("/crm/orders", createOrder)
	webserver.ApiPUT("/crm/orders/:id/status", updateOrderStatus)
	webserver.ApiDELETE("/crm/orders/:id", deleteOrder)
	webserver.ApiGET("/crm/orders/:id/pdf", downloadOrderPDF)
}

func listOrders(c echo.Context) error {
	page, perPage := parsePagination(c)

	db := GetDB(c).Model(&domain.Order{}).Where("user_id = ?", currentOprId(c))
	if status := strings.TrimSpace(c.QueryParam("status")); status != "" {
		db = db.Where("status = ?", ordering.NormalizeStatus(status))
	}
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		db = db.Where("LOWER(client_name) LIKE ?", "%"+strings.ToLower(q)+"%")
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query orders", err.Error())
	}
	var rows []domain.Order
	if err := db.Order("created_at DESC").Offset((page - 1) * perPage).Limit(perPage).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query orders", err.Error())
	}
	for i := range rows {
		rows[i].Status = ordering.NormalizeStatus(rows[i].Status)
	}
	return paged(c, rows, total, page, perPage)
}

func loadOwnedOrder(c echo.Context, withItems bool) *domain.Order {
	id, err := parseIDParam(c, "id")
	if err != nil {
		_ = fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid order ID", nil)
		return nil
	}
	db := GetDB(c)
	if withItems {
		db = db.Preload("Items")
	}
	var order domain.Order
	if err := db.Where("id = ? AND user_id = ?", id, currentOprId(c)).First(&order).Error; err != nil {
		_ = fail(c, http.StatusNotFound, "NOT_FOUND", "Order not found", nil)
		return nil
	}
	order.Status = ordering.NormalizeStatus(order.Status)
	return &order
}

func getOrder(c echo.Context) error {
	order := loadOwnedOrder(c, true)
	if order == nil {
		return nil
	}
	return ok(c, order)
}

func createOrder(c echo.Context) error {
	var payload orderPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse order", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Client name and at least one item are required", nil)
	}

	order := &domain.Order{
		LeadId:     payload.LeadId,
		ClientName: strings.TrimSpace(payload.ClientName),
		Status:     domain.OrderStatusQuote,
		Discount:   payload.Discount,
		Notes:      payload.Notes,
	}
	svc := ordering.NewService(GetDB(c))
	err := svc.CreateOrder(currentOprId(c), order, payload.Items)
	switch err {
	case nil:
	case ordering.ErrBadDiscount:
		return fail(c, http.StatusBadRequest, "INVALID_DISCOUNT", "Discount must be between 0 and 100", nil)
	case ordering.ErrZeroArea:
		return fail(c, http.StatusBadRequest, "INVALID_ITEM", "Area-priced items need width and height", nil)
	case ordering.ErrBadQuantity:
		return fail(c, http.StatusBadRequest, "INVALID_ITEM", "Quantity must be at least 1", nil)
	case ordering.ErrProductNotFound:
		return fail(c, http.StatusBadRequest, "INVALID_ITEM", "Item references an unknown product", nil)
	case ordering.ErrNoItems:
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "At least one item is required", nil)
	default:
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create order", err.Error())
	}
	return ok(c, order)
}

func updateOrderStatus(c echo.Context) error {
	order := loadOwnedOrder(c, false)
	if order == nil {
		return nil
	}
	var payload orderStatusPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse status", err.Error())
	}

	status := ordering.NormalizeStatus(payload.Status)
	switch status {
	case domain.OrderStatusQuote, domain.OrderStatusAwaiting, domain.OrderStatusPaid, domain.OrderStatusLate:
	default:
		return fail(c, http.StatusBadRequest, "INVALID_STATUS", "Unknown order status", nil)
	}

	if err := GetDB(c).Model(&domain.Order{}).Where("id = ?", order.ID).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()}).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update order", err.Error())
	}
	return ok(c, map[string]interface{}{"status": status})
}

func deleteOrder(c echo.Context) error {
	order := loadOwnedOrder(c, false)
	if order == nil {
		return nil
	}
	err := GetDB(c).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", order.ID).Delete(&domain.OrderItem{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", order.ID).Delete(&domain.Order{}).Error
	})
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete order", err.Error())
	}
	writeOprLog(c, "order_delete", "order removed")
	return ok(c, map[string]interface{}{"id": order.ID})
}

func downloadOrderPDF(c echo.Context) error {
	order := loadOwnedOrder(c, true)
	if order == nil {
		return nil
	}

	appCtx := GetAppContext(c)
	gen := docgen.NewGenerator(docgen.CompanyHeader{
		Name:    appCtx.GetSettingsStringValue("company", "name"),
		TaxId:   appCtx.GetSettingsStringValue("company", "tax_id"),
		Address: appCtx.GetSettingsStringValue("company", "address"),
		Phone:   appCtx.GetSettingsStringValue("company", "phone"),
	})

	var buf bytes.Buffer
	if err := gen.OrderPDF(&buf, order); err != nil {
		return fail(c, http.StatusInternalServerError, "PDF_ERROR", "Failed to render order PDF", err.Error())
	}

	filename := docgen.OrderPDFName(order.ClientName, time.Now())
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	return c.Blob(http.StatusOK, "application/pdf", buf.Bytes())
}
