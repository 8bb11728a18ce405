package domain

import "time"

// Person types for the lead tax id (CPF for PF, CNPJ for PJ).
const (
	PersonTypePF = "PF"
	PersonTypePJ = "PJ"
)

// Lead is a contact captured from a form, CSV import or inbound webhook.
// Phone is the only required identity field; the lead sits in exactly one
// kanban column of one workspace at any time.
type Lead struct {
	ID          int64      `json:"id,string" gorm:"primaryKey"`
	UserId      int64      `gorm:"index" json:"user_id,string"`
	WorkspaceId int64      `gorm:"index" json:"workspace_id,string"`
	ColumnId    string     `gorm:"index;size:64" json:"column_id"`
	Name        string     `json:"name"`
	Phone       string     `gorm:"index" json:"phone"`
	Email       string     `json:"email"`
	PersonType  string     `gorm:"size:2" json:"person_type"` // PF or PJ
	Cpf         string     `gorm:"size:14" json:"cpf"`
	Cnpj        string     `gorm:"size:18" json:"cnpj"`
	BirthDate   *time.Time `json:"birth_date,omitempty"`
	Cep         string     `gorm:"size:9" json:"cep"`
	Street      string     `json:"street"`
	Number      string     `gorm:"size:20" json:"number"`
	District    string     `json:"district"`
	City        string     `json:"city"`
	State       string     `gorm:"size:2" json:"state"`
	Notes       string     `gorm:"type:text" json:"notes"`
	Source      string     `gorm:"size:32" json:"source"` // manual, csv, webhook
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (Lead) TableName() string {
	return "crm_lead"
}

// TaxId returns the field selected by PersonType.
func (l *Lead) TaxId() string {
	if l.PersonType == PersonTypePJ {
		return l.Cnpj
	}
	return l.Cpf
}
