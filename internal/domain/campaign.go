package domain

import "time"

// Campaign statuses. Draft/scheduled/running/paused are managed here;
// concluida arrives from the automation runner's stats callback.
const (
	CampaignStatusDraft     = "rascunho"
	CampaignStatusScheduled = "agendada"
	CampaignStatusRunning   = "em_andamento"
	CampaignStatusPaused    = "pausada"
	CampaignStatusDone      = "concluida"
)

// CampaignStats is the denormalized delivery counter block, refreshed by the
// automation runner callback.
type CampaignStats struct {
	Total     int `json:"total"`
	Sent      int `json:"sent"`
	Delivered int `json:"delivered"`
	Read      int `json:"read"`
}

// Campaign is a one-shot or scheduled broadcast of a flow to the leads of a
// kanban category, sent through one WhatsApp instance.
type Campaign struct {
	ID           int64      `json:"id,string" gorm:"primaryKey"`
	UserId       int64      `gorm:"index" json:"user_id,string"`
	Name         string     `json:"name"`
	FlowId       int64      `gorm:"index" json:"flow_id,string"`
	ColumnId     string     `gorm:"size:64" json:"column_id"`
	InstanceName string     `gorm:"size:128" json:"instance_name"`
	Status       string     `gorm:"index;size:16" json:"status"`
	ScheduledAt  *time.Time `json:"scheduled_at,omitempty"` // nil = immediate
	Stats        JSONB      `gorm:"type:text" json:"stats"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (Campaign) TableName() string {
	return "crm_campaign"
}
