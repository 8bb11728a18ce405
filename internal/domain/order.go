package domain

import "time"

// Order statuses. Legacy aliases (pending/completed/cancelled) from older
// records are normalized on read by the ordering service.
const (
	OrderStatusQuote    = "orcamento"
	OrderStatusAwaiting = "aguardando_pagamento"
	OrderStatusPaid     = "pago"
	OrderStatusLate     = "atrasado"
)

// Order is a sales document: line items snapshot product name and price at
// creation time and are never re-derived from the catalog.
type Order struct {
	ID          int64     `json:"id,string" gorm:"primaryKey"`
	UserId      int64     `gorm:"index" json:"user_id,string"`
	LeadId      int64     `gorm:"index" json:"lead_id,string"`
	ClientName  string    `json:"client_name"`
	Status      string    `gorm:"size:32" json:"status"`
	Discount    float64   `json:"discount"` // percent, 0..100
	TotalAmount float64   `json:"total_amount"`
	Notes       string    `gorm:"type:text" json:"notes"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Items []OrderItem `gorm:"foreignKey:OrderId" json:"items,omitempty"`
}

func (Order) TableName() string {
	return "crm_order"
}

// OrderItem is one priced line. Width/Height are set only for area-priced
// products, in which case Subtotal = Price*Width*Height*Quantity.
type OrderItem struct {
	ID        int64     `json:"id,string" gorm:"primaryKey"`
	OrderId   int64     `gorm:"index" json:"order_id,string"`
	ProductId int64     `json:"product_id,string"`
	Name      string    `json:"name"` // snapshot at order time
	Quantity  int       `json:"quantity"`
	Price     float64   `json:"price"` // snapshot unit (or per-m2) price
	Width     float64   `json:"width,omitempty"`
	Height    float64   `json:"height,omitempty"`
	Subtotal  float64   `json:"subtotal"`
	CreatedAt time.Time `json:"created_at"`
}

func (OrderItem) TableName() string {
	return "crm_order_item"
}
