package domain

import "time"

// Bill statuses and types.
const (
	BillStatusPending = "pending"
	BillStatusPaid    = "paid"
	BillStatusOverdue = "overdue"

	BillTypeOneTime   = "one_time"
	BillTypeRecurring = "recurring"
)

// Bill is a payable expense. Recurring bills with an installment cap spawn
// the next month's bill on payment until CurrentInstallment reaches
// TotalInstallments.
type Bill struct {
	ID                 int64      `json:"id,string" gorm:"primaryKey"`
	UserId             int64      `gorm:"index" json:"user_id,string"`
	Title              string     `json:"title"`
	Amount             float64    `json:"amount"`
	DueDate            time.Time  `gorm:"index" json:"due_date"`
	Status             string     `gorm:"index;size:16" json:"status"`
	Type               string     `gorm:"size:16" json:"type"`
	CurrentInstallment int        `json:"current_installment"`
	TotalInstallments  int        `json:"total_installments"` // 0 = uncapped
	PaidAt             *time.Time `json:"paid_at,omitempty"`
	ProofUrl           string     `json:"proof_url"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (Bill) TableName() string {
	return "crm_bill"
}
