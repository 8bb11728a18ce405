package domain

import "time"

// Remarketing sequence statuses.
const (
	SequenceStatusActive   = "ativo"
	SequenceStatusInactive = "inativo"
	SequenceStatusDraft    = "rascunho"
)

// RemarketingSequence is a named ordered list of timed flow triggers applied
// to a lead after enrollment. Execution happens in the external automation
// runner; this side owns the definition.
type RemarketingSequence struct {
	ID              int64     `json:"id,string" gorm:"primaryKey"`
	UserId          int64     `gorm:"index" json:"user_id,string"`
	Name            string    `json:"name"`
	InstanceName    string    `gorm:"size:128" json:"instance_name"`
	Status          string    `gorm:"size:16" json:"status"`
	LeadsVinculados int       `json:"leads_vinculados"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	Steps []RemarketingStep `gorm:"foreignKey:SequenceId" json:"steps,omitempty"`
}

func (RemarketingSequence) TableName() string {
	return "crm_remarketing_sequence"
}

// RemarketingStep references a flow and a wait offset relative to enrollment
// (step 1) or to completion of the previous step. StepOrder values are kept
// contiguous starting at 1.
type RemarketingStep struct {
	ID         int64     `json:"id,string" gorm:"primaryKey"`
	SequenceId int64     `gorm:"index" json:"sequence_id,string"`
	StepOrder  int       `json:"step_order"`
	FlowId     int64     `json:"flow_id,string"`
	DelayDays  int       `json:"delay_days"`
	DelayHours int       `json:"delay_hours"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (RemarketingStep) TableName() string {
	return "crm_remarketing_step"
}
