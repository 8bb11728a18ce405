package domain

import "time"

// Product pricing modes: unit-priced or area-priced (price per m2, line
// items must carry width/height).
const (
	PricingUnit = "unit"
	PricingArea = "area"
)

type Product struct {
	ID          int64     `json:"id,string" gorm:"primaryKey"`
	UserId      int64     `gorm:"index" json:"user_id,string"`
	Name        string    `gorm:"index" json:"name"`
	Price       float64   `json:"price"`
	PricingMode string    `gorm:"size:16" json:"pricing_mode"`
	Unit        string    `gorm:"size:16" json:"unit"` // un, m2, kg...
	Image       string    `gorm:"size:1024" json:"image"`
	SupplierId  int64     `json:"supplier_id,string"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Product) TableName() string {
	return "crm_product"
}

type Supplier struct {
	ID        int64     `json:"id,string" gorm:"primaryKey"`
	UserId    int64     `gorm:"index" json:"user_id,string"`
	Name      string    `gorm:"index" json:"name"`
	Cnpj      string    `gorm:"size:18" json:"cnpj"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Cep       string    `gorm:"size:9" json:"cep"`
	Street    string    `json:"street"`
	Number    string    `gorm:"size:20" json:"number"`
	District  string    `json:"district"`
	City      string    `json:"city"`
	State     string    `gorm:"size:2" json:"state"`
	Notes     string    `gorm:"type:text" json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Supplier) TableName() string {
	return "crm_supplier"
}
