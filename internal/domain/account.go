package domain

import "time"

// Integration is a user-configured inbound/outbound hook (sales platform
// webhook intake, automation runner trigger URL and the like).
type Integration struct {
	ID         int64     `json:"id,string" gorm:"primaryKey"`
	UserId     int64     `gorm:"index" json:"user_id,string"`
	Kind       string    `gorm:"size:32" json:"kind"` // campaign_trigger, bill_notify, lead_intake
	Name       string    `json:"name"`
	WebhookUrl string    `gorm:"size:1024" json:"webhook_url"`
	Token      string    `gorm:"size:256" json:"token"`
	Enabled    bool      `json:"enabled"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Integration) TableName() string {
	return "crm_integration"
}

// Plan gates per-operator feature limits. MaxInstances bounds how many
// WhatsApp connections an operator may create.
type Plan struct {
	ID           int64     `json:"id,string" gorm:"primaryKey"`
	Name         string    `gorm:"index" json:"name"`
	Price        float64   `json:"price"`
	MaxInstances int       `json:"max_instances"`
	MaxLeads     int       `json:"max_leads"` // 0 = unlimited
	Features     JSONB     `gorm:"type:text" json:"features"`
	Status       string    `gorm:"size:16" json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Plan) TableName() string {
	return "crm_plan"
}

// WhatsappInstance mirrors one named connection managed by the external
// gateway; State is refreshed from connectionState polling.
type WhatsappInstance struct {
	ID          int64     `json:"id,string" gorm:"primaryKey"`
	UserId      int64     `gorm:"index" json:"user_id,string"`
	Name        string    `gorm:"index;size:128" json:"name"`
	Phone       string    `json:"phone"`
	State       string    `gorm:"size:16" json:"state"` // open, connecting, close
	LastCheckAt time.Time `json:"last_check_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (WhatsappInstance) TableName() string {
	return "crm_whatsapp_instance"
}
