package domain

import "time"

// DefaultColumnId is the protected "leads" column every workspace must have.
const DefaultColumnId = "leads"

// Workspace is a named partition of kanban boards for one operator. Exactly
// one workspace per operator is marked default and auto-selected on load.
type Workspace struct {
	ID        int64     `json:"id,string" gorm:"primaryKey"`
	UserId    int64     `gorm:"index" json:"user_id,string"`
	Name      string    `json:"name"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Workspace) TableName() string {
	return "crm_workspace"
}

// KanbanColumn is a named, colored, positioned bucket scoped to a workspace.
// ColumnId is a stable slug referenced by Lead.ColumnId.
type KanbanColumn struct {
	ID          int64     `json:"id,string" gorm:"primaryKey"`
	UserId      int64     `gorm:"index" json:"user_id,string"`
	WorkspaceId int64     `gorm:"index" json:"workspace_id,string"`
	ColumnId    string    `gorm:"index;size:64" json:"column_id"`
	Label       string    `json:"label"`
	Color       string    `gorm:"size:64" json:"color"` // hex or gradient token
	Position    int       `json:"position"`
	IsVisible   bool      `json:"is_visible"`
	IsDefault   bool      `json:"is_default"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (KanbanColumn) TableName() string {
	return "crm_kanban_column"
}
