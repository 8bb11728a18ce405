package domain

import "time"

// Flow statuses.
const (
	FlowStatusDraft    = "rascunho"
	FlowStatusActive   = "ativo"
	FlowStatusInactive = "inativo"
)

// Flow node types. Media kinds carry a media_url in Data; delay carries
// delay_seconds; text carries content with {{variable}} placeholders that are
// resolved by the external automation runner.
const (
	NodeTypeStart = "start"
	NodeTypeText  = "text"
	NodeTypeImage = "image"
	NodeTypeAudio = "audio"
	NodeTypeVideo = "video"
	NodeTypePdf   = "pdf"
	NodeTypeDelay = "delay"
)

// FlowNode is one node of the persisted graph wire format.
type FlowNode struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Position NodePosition `json:"position"`
	Data     JSONB        `json:"data"`
}

type NodePosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// FlowEdge is a directed connection between two node ids.
type FlowEdge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// Flow is a saved chatbot script: the node/edge graph is stored as two JSON
// array columns, executed by the external automation runner.
type Flow struct {
	ID         int64        `json:"id,string" gorm:"primaryKey"`
	UserId     int64        `gorm:"index" json:"user_id,string"`
	Name       string       `json:"name"`
	Status     string       `gorm:"size:16" json:"status"`
	Nodes      FlowNodeList `gorm:"type:text" json:"nodes"`
	Edges      FlowEdgeList `gorm:"type:text" json:"edges"`
	NodesCount int          `json:"nodes_count"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

func (Flow) TableName() string {
	return "crm_flow"
}
