// Package ordering implements order pricing and atomic order persistence.
// Line items snapshot catalog name and price at creation; totals are never
// re-derived from current product records.
package ordering

import (
	"math"

	"github.com/pkg/errors"
	"github.com/zapcrmio/zapcrm/internal/domain"
	"gorm.io/gorm"
)

var (
	ErrZeroArea        = errors.New("area-priced item requires width and height")
	ErrBadQuantity     = errors.New("quantity must be positive")
	ErrBadDiscount     = errors.New("discount must be between 0 and 100")
	ErrProductNotFound = errors.New("product not found")
	ErrNoItems         = errors.New("order requires at least one item")
)

// round2 keeps monetary values at two decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ItemSubtotal prices one line: price*quantity for unit pricing, or
// price*width*height*quantity when both dimensions are set.
func ItemSubtotal(price float64, quantity int, width, height float64) float64 {
	if width > 0 && height > 0 {
		return round2(price * width * height * float64(quantity))
	}
	return round2(price * float64(quantity))
}

// OrderTotal applies the aggregate discount percent over the item subtotals.
func OrderTotal(items []domain.OrderItem, discount float64) float64 {
	var sum float64
	for _, it := range items {
		sum += it.Subtotal
	}
	return round2(sum * (1 - discount/100))
}

// ItemInput is one requested line before pricing.
type ItemInput struct {
	ProductId int64
	Quantity  int
	Width     float64
	Height    float64
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// BuildItem resolves the product, validates quantity and area, and returns a
// priced line item snapshotting the product's current name and price.
func (s *Service) BuildItem(userId int64, in ItemInput) (*domain.OrderItem, error) {
	if in.Quantity <= 0 {
		return nil, ErrBadQuantity
	}
	var product domain.Product
	err := s.db.Where("id = ? AND user_id = ?", in.ProductId, userId).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	if product.PricingMode == domain.PricingArea && (in.Width <= 0 || in.Height <= 0) {
		return nil, ErrZeroArea
	}

	item := &domain.OrderItem{
		ProductId: product.ID,
		Name:      product.Name,
		Quantity:  in.Quantity,
		Price:     product.Price,
	}
	if product.PricingMode == domain.PricingArea {
		item.Width = in.Width
		item.Height = in.Height
	}
	item.Subtotal = ItemSubtotal(item.Price, item.Quantity, item.Width, item.Height)
	return item, nil
}

// CreateOrder prices the requested items and inserts the order plus its
// items in one transaction.
func (s *Service) CreateOrder(userId int64, order *domain.Order, inputs []ItemInput) error {
	if len(inputs) == 0 {
		return ErrNoItems
	}
	if order.Discount < 0 || order.Discount > 100 {
		return ErrBadDiscount
	}

	items := make([]domain.OrderItem, 0, len(inputs))
	for _, in := range inputs {
		item, err := s.BuildItem(userId, in)
		if err != nil {
			return err
		}
		items = append(items, *item)
	}

	order.UserId = userId
	order.TotalAmount = OrderTotal(items, order.Discount)
	if order.Status == "" {
		order.Status = domain.OrderStatusQuote
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		for i := range items {
			items[i].OrderId = order.ID
		}
		if err := tx.Create(&items).Error; err != nil {
			return err
		}
		order.Items = items
		return nil
	})
}

// NormalizeStatus maps legacy status aliases onto the current set.
func NormalizeStatus(status string) string {
	switch status {
	case "pending":
		return domain.OrderStatusAwaiting
	case "completed":
		return domain.OrderStatusPaid
	case "cancelled":
		return domain.OrderStatusQuote
	default:
		return status
	}
}
