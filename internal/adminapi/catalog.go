package adminapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/zapcrmio/zapcrm/internal/domain"
	"github.com/zapcrmio/zapcrm/internal/webserver"
	"github.com/zapcrmio/zapcrm/pkg/common"
)

type productPayload struct {
	Name        string  `json:"name" validate:"required,min=1,max=200"`
	Price       float64 `json:"price" validate:"required,gt=0"`
	PricingMode string  `json:"pricing_mode" validate:"omitempty,oneof=unit area"`
	Unit        string  `json:"unit" validate:"omitempty,max=16"`
	Image       string  `json:"image" validate:"omitempty,max=1024"`
	SupplierId  int64   `json:"supplier_id,string"`
}

type supplierPayload struct {
	Name     string `json:"name" validate:"required,min=1,max=200"`
	Cnpj     string `json:"cnpj" validate:"omitempty,max=18"`
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone"`
	Cep      string `json:"cep" validate:"omitempty,max=9"`
	Street   string `json:"street"`
	Number   string `json:"number" validate:"omitempty,max=20"`
	District string `json:"district"`
	City     string `json:"city"`
	State    string `json:"state" validate:"omitempty,len=2"`
	Notes    string `json:"notes"`
}

func registerCatalogRoutes() {
	webserver.ApiGET("/crm/products", listProducts)
	webserver.ApiGET("/crm/products/:id", getProduct)
	webserver.ApiPOST("/crm/products", createProduct)
	webserver.ApiPUT("/crm/products/:id", updateProduct)
	webserver.ApiDELETE("/crm/products/:id", deleteProduct)

	webserver.ApiGET("/crm/suppliers", listSuppliers)
	webserver.ApiGET("/crm/suppliers/:id", getSupplier)
	webserver.ApiPOST("/crm/suppliers", createSupplier)
	webserver.ApiPUT("/crm/suppliers/:id", updateSupplier)
	webserver.ApiDELETE("/crm/suppliers/:id", deleteSupplier)
}

var productSortColumns = map[string]string{
	"name":       "name",
	"price":      "price",
	"created_at": "created_at",
}

func listProducts(c echo.Context) error {
	page, perPage := parsePagination(c)

	db := GetDB(c).Model(&domain.Product{}).Where("user_id = ?", currentOprId(c))
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		db = db.Where("name LIKE ?", "%"+q+"%")
	}
	if mode := c.QueryParam("pricing_mode"); mode == domain.PricingUnit || mode == domain.PricingArea {
		db = db.Where("pricing_mode = ?", mode)
	}
	if supplier := c.QueryParam("supplier_id"); supplier != "" {
		db = db.Where("supplier_id = ?", supplier)
	}

	order := "name ASC"
	if col, found := productSortColumns[c.QueryParam("sort")]; found {
		order = col + " ASC"
		if c.QueryParam("dir") == "desc" {
			order = col + " DESC"
		}
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", err.Error())
	}
	var rows []domain.Product
	if err := db.Order(order).Offset((page - 1) * perPage).Limit(perPage).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", err.Error())
	}
	return paged(c, rows, total, page, perPage)
}

func getProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	var product domain.Product
	if err := GetDB(c).Where("id = ? AND user_id = ?", id, currentOprId(c)).First(&product).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
	}
	return ok(c, product)
}

func bindProductPayload(c echo.Context) (*productPayload, error) {
	var payload productPayload
	if err := c.Bind(&payload); err != nil {
		return nil, fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return nil, fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Name and a positive price are required", nil)
	}
	return &payload, nil
}

func applyProductPayload(product *domain.Product, payload *productPayload) {
	product.Name = strings.TrimSpace(payload.Name)
	product.Price = payload.Price
	product.PricingMode = payload.PricingMode
	if product.PricingMode == "" {
		product.PricingMode = domain.PricingUnit
	}
	product.Unit = payload.Unit
	if product.Unit == "" {
		if product.PricingMode == domain.PricingArea {
			product.Unit = "m2"
		} else {
			product.Unit = "un"
		}
	}
	product.Image = payload.Image
	product.SupplierId = payload.SupplierId
}

func createProduct(c echo.Context) error {
	payload, err := bindProductPayload(c)
	if payload == nil {
		return err
	}
	product := domain.Product{
		ID:     common.UUIDint64(),
		UserId: currentOprId(c),
	}
	applyProductPayload(&product, payload)
	if product.SupplierId != 0 {
		var count int64
		GetDB(c).Model(&domain.Supplier{}).
			Where("id = ? AND user_id = ?", product.SupplierId, product.UserId).Count(&count)
		if count == 0 {
			return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Supplier not found", nil)
		}
	}
	if err := GetDB(c).Create(&product).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create product", err.Error())
	}
	return ok(c, product)
}

func updateProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	payload, perr := bindProductPayload(c)
	if payload == nil {
		return perr
	}
	var product domain.Product
	if err := GetDB(c).Where("id = ? AND user_id = ?", id, currentOprId(c)).First(&product).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
	}
	applyProductPayload(&product, payload)
	if err := GetDB(c).Save(&product).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update product", err.Error())
	}
	return ok(c, product)
}

func deleteProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}
	userId := currentOprId(c)
	var refs int64
	GetDB(c).Model(&domain.OrderItem{}).Where("product_id = ?", id).Count(&refs)
	if refs > 0 {
		return fail(c, http.StatusConflict, "PRODUCT_IN_USE", "Product is referenced by orders", nil)
	}
	result := GetDB(c).Where("id = ? AND user_id = ?", id, userId).Delete(&domain.Product{})
	if result.Error != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete product", result.Error.Error())
	}
	if result.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Product not found", nil)
	}
	return ok(c, map[string]interface{}{"id": id})
}

func listSuppliers(c echo.Context) error {
	page, perPage := parsePagination(c)

	db := GetDB(c).Model(&domain.Supplier{}).Where("user_id = ?", currentOprId(c))
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		db = db.Where("name LIKE ? OR cnpj LIKE ?", "%"+q+"%", "%"+q+"%")
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query suppliers", err.Error())
	}
	var rows []domain.Supplier
	if err := db.Order("name ASC").Offset((page - 1) * perPage).Limit(perPage).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query suppliers", err.Error())
	}
	return paged(c, rows, total, page, perPage)
}

func getSupplier(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid supplier ID", nil)
	}
	var supplier domain.Supplier
	if err := GetDB(c).Where("id = ? AND user_id = ?", id, currentOprId(c)).First(&supplier).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Supplier not found", nil)
	}
	return ok(c, supplier)
}

func applySupplierPayload(supplier *domain.Supplier, payload *supplierPayload) {
	supplier.Name = strings.TrimSpace(payload.Name)
	supplier.Cnpj = payload.Cnpj
	supplier.Email = payload.Email
	supplier.Phone = payload.Phone
	supplier.Cep = payload.Cep
	supplier.Street = payload.Street
	supplier.Number = payload.Number
	supplier.District = payload.District
	supplier.City = payload.City
	supplier.State = strings.ToUpper(payload.State)
	supplier.Notes = payload.Notes
}

func createSupplier(c echo.Context) error {
	var payload supplierPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse supplier", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Supplier name is required", nil)
	}
	supplier := domain.Supplier{
		ID:     common.UUIDint64(),
		UserId: currentOprId(c),
	}
	applySupplierPayload(&supplier, &payload)
	if err := GetDB(c).Create(&supplier).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create supplier", err.Error())
	}
	return ok(c, supplier)
}

func updateSupplier(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid supplier ID", nil)
	}
	var payload supplierPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse supplier", err.Error())
	}
	if err := c.Validate(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Supplier name is required", nil)
	}
	var supplier domain.Supplier
	if err := GetDB(c).Where("id = ? AND user_id = ?", id, currentOprId(c)).First(&supplier).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Supplier not found", nil)
	}
	applySupplierPayload(&supplier, &payload)
	if err := GetDB(c).Save(&supplier).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update supplier", err.Error())
	}
	return ok(c, supplier)
}

func deleteSupplier(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid supplier ID", nil)
	}
	userId := currentOprId(c)
	// detach products first so the catalog keeps working
	if err := GetDB(c).Model(&domain.Product{}).
		Where("supplier_id = ? AND user_id = ?", id, userId).
		Update("supplier_id", 0).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to detach products", err.Error())
	}
	result := GetDB(c).Where("id = ? AND user_id = ?", id, userId).Delete(&domain.Supplier{})
	if result.Error != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete supplier", result.Error.Error())
	}
	if result.RowsAffected == 0 {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "Supplier not found", nil)
	}
	return ok(c, map[string]interface{}{"id": id})
}
