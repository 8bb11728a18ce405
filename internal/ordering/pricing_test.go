package ordering

import (
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/zapcrmio/zapcrm/internal/domain"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(domain.Tables...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestItemSubtotal(t *testing.T) {
	tests := []struct {
		name     string
		price    float64
		quantity int
		width    float64
		height   float64
		want     float64
	}{
		{"unit priced", 10, 3, 0, 0, 30},
		{"area priced", 10, 1, 2, 3, 60},
		{"area priced with quantity", 10, 2, 2, 3, 120},
		{"only width set falls back to unit", 10, 2, 2, 0, 20},
		{"rounding", 0.1, 3, 0, 0, 0.3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ItemSubtotal(tt.price, tt.quantity, tt.width, tt.height); got != tt.want {
				t.Errorf("ItemSubtotal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOrderTotal(t *testing.T) {
	// price R$10/m2, 2x3m, qty 1 => 60.00; 10% discount => 54.00
	items := []domain.OrderItem{
		{Subtotal: ItemSubtotal(10, 1, 2, 3)},
	}
	if got := OrderTotal(items, 10); got != 54 {
		t.Fatalf("OrderTotal() = %v, want 54", got)
	}
	if got := OrderTotal(items, 0); got != 60 {
		t.Fatalf("OrderTotal() no discount = %v, want 60", got)
	}
}

func TestCreateOrder(t *testing.T) {
	db := testDB(t)
	svc := NewService(db)

	const userId = int64(7)
	banner := domain.Product{ID: 1, UserId: userId, Name: "Lona", Price: 10, PricingMode: domain.PricingArea}
	card := domain.Product{ID: 2, UserId: userId, Name: "Cartao", Price: 2.5, PricingMode: domain.PricingUnit}
	if err := db.Create(&banner).Error; err != nil {
		t.Fatal(err)
	}
	if err := db.Create(&card).Error; err != nil {
		t.Fatal(err)
	}

	order := &domain.Order{ClientName: "Maria", Discount: 10}
	err := svc.CreateOrder(userId, order, []ItemInput{
		{ProductId: 1, Quantity: 1, Width: 2, Height: 3},
		{ProductId: 2, Quantity: 4},
	})
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	// 60 + 10 = 70, minus 10% = 63
	if order.TotalAmount != 63 {
		t.Errorf("total = %v, want 63", order.TotalAmount)
	}
	if order.Status != domain.OrderStatusQuote {
		t.Errorf("status = %s, want orcamento", order.Status)
	}

	var count int64
	db.Model(&domain.OrderItem{}).Where("order_id = ?", order.ID).Count(&count)
	if count != 2 {
		t.Errorf("persisted items = %d, want 2", count)
	}

	// snapshot: changing the catalog price must not touch the stored item
	db.Model(&domain.Product{}).Where("id = ?", 2).Update("price", 99)
	var item domain.OrderItem
	db.Where("order_id = ? AND product_id = ?", order.ID, 2).First(&item)
	if item.Price != 2.5 {
		t.Errorf("item price = %v, want snapshot 2.5", item.Price)
	}
}

func TestCreateOrderValidation(t *testing.T) {
	db := testDB(t)
	svc := NewService(db)

	const userId = int64(7)
	db.Create(&domain.Product{ID: 1, UserId: userId, Name: "Lona", Price: 10, PricingMode: domain.PricingArea})

	err := svc.CreateOrder(userId, &domain.Order{}, []ItemInput{{ProductId: 1, Quantity: 1}})
	if !errors.Is(err, ErrZeroArea) {
		t.Errorf("expected ErrZeroArea, got %v", err)
	}

	err = svc.CreateOrder(userId, &domain.Order{Discount: 120}, []ItemInput{{ProductId: 1, Quantity: 1, Width: 1, Height: 1}})
	if !errors.Is(err, ErrBadDiscount) {
		t.Errorf("expected ErrBadDiscount, got %v", err)
	}

	err = svc.CreateOrder(userId, &domain.Order{}, nil)
	if !errors.Is(err, ErrNoItems) {
		t.Errorf("expected ErrNoItems, got %v", err)
	}

	// cross-tenant product is invisible
	err = svc.CreateOrder(99, &domain.Order{}, []ItemInput{{ProductId: 1, Quantity: 1, Width: 1, Height: 1}})
	if !errors.Is(err, ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound, got %v", err)
	}
}

func TestNormalizeStatus(t *testing.T) {
	if NormalizeStatus("pending") != domain.OrderStatusAwaiting {
		t.Error("pending alias not normalized")
	}
	if NormalizeStatus("completed") != domain.OrderStatusPaid {
		t.Error("completed alias not normalized")
	}
	if NormalizeStatus(domain.OrderStatusPaid) != domain.OrderStatusPaid {
		t.Error("current status mangled")
	}
}
