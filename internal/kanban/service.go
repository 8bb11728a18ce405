// Package kanban manages workspaces, their columns and lead placement.
// Moves are applied as a single targeted update; on failure the caller gets
// the previous column id back so it can revert exactly the mutated record
// instead of reloading the whole board.
package kanban

import (
	"github.com/pkg/errors"
	"github.com/zapcrmio/zapcrm/internal/domain"
	"github.com/zapcrmio/zapcrm/pkg/common"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrLeadNotFound      = errors.New("lead not found")
	ErrColumnNotFound    = errors.New("column not found")
	ErrWorkspaceNotFound = errors.New("workspace not found")
	ErrDefaultProtected  = errors.New("default column cannot be deleted")
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// EnsureDefaultWorkspace returns the operator's default workspace, creating
// it (named "Geral") on first touch.
func (s *Service) EnsureDefaultWorkspace(userId int64) (*domain.Workspace, error) {
	var ws domain.Workspace
	err := s.db.Where("user_id = ? AND is_default = ?", userId, true).First(&ws).Error
	if err == nil {
		return &ws, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	ws = domain.Workspace{
		ID:        common.UUIDint64(),
		UserId:    userId,
		Name:      "Geral",
		IsDefault: true,
	}
	if err := s.db.Create(&ws).Error; err != nil {
		return nil, err
	}
	zap.L().Info("default workspace created", zap.Int64("user_id", userId))
	return &ws, nil
}

// EnsureDefaultColumn guarantees the protected "leads" column exists in the
// workspace so boards never render an empty default state.
func (s *Service) EnsureDefaultColumn(userId, workspaceId int64) (*domain.KanbanColumn, error) {
	var col domain.KanbanColumn
	err := s.db.Where("workspace_id = ? AND is_default = ?", workspaceId, true).First(&col).Error
	if err == nil {
		return &col, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	col = domain.KanbanColumn{
		ID:          common.UUIDint64(),
		UserId:      userId,
		WorkspaceId: workspaceId,
		ColumnId:    domain.DefaultColumnId,
		Label:       "Leads",
		Color:       "#3b82f6",
		Position:    0,
		IsVisible:   true,
		IsDefault:   true,
	}
	if err := s.db.Create(&col).Error; err != nil {
		return nil, err
	}
	zap.L().Info("default kanban column created",
		zap.Int64("user_id", userId), zap.Int64("workspace_id", workspaceId))
	return &col, nil
}

// Columns returns the workspace's columns sorted by position, lazily
// creating the default column first.
func (s *Service) Columns(userId, workspaceId int64) ([]domain.KanbanColumn, error) {
	if _, err := s.EnsureDefaultColumn(userId, workspaceId); err != nil {
		return nil, err
	}
	var cols []domain.KanbanColumn
	err := s.db.Where("workspace_id = ?", workspaceId).
		Order("position ASC, id ASC").Find(&cols).Error
	return cols, err
}

// MoveResult tells the caller what a move did. PreviousColumn is the exact
// compensation target if a later step of the caller's workflow fails.
type MoveResult struct {
	Moved          bool
	PreviousColumn string
}

// MoveLead reassigns a lead to a column of the same workspace. Moving onto
// the current column is a structural no-op.
func (s *Service) MoveLead(userId int64, leadId int64, columnId string) (*MoveResult, error) {
	var lead domain.Lead
	err := s.db.Where("id = ? AND user_id = ?", leadId, userId).First(&lead).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrLeadNotFound
	}
	if err != nil {
		return nil, err
	}

	if lead.ColumnId == columnId {
		return &MoveResult{Moved: false, PreviousColumn: columnId}, nil
	}

	var count int64
	if err := s.db.Model(&domain.KanbanColumn{}).
		Where("workspace_id = ? AND column_id = ?", lead.WorkspaceId, columnId).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrColumnNotFound
	}

	if err := s.db.Model(&domain.Lead{}).Where("id = ?", lead.ID).
		Update("column_id", columnId).Error; err != nil {
		return nil, err
	}
	return &MoveResult{Moved: true, PreviousColumn: lead.ColumnId}, nil
}

// RevertMove is the compensating action for a failed optimistic move: it
// puts exactly the mutated lead back.
func (s *Service) RevertMove(userId, leadId int64, previousColumn string) error {
	return s.db.Model(&domain.Lead{}).
		Where("id = ? AND user_id = ?", leadId, userId).
		Update("column_id", previousColumn).Error
}

// ReorderColumns rewrites positions to match the given column-id order.
// Columns not named keep their rows but are pushed after the named ones.
func (s *Service) ReorderColumns(userId, workspaceId int64, orderedIds []string) error {
	cols, err := s.Columns(userId, workspaceId)
	if err != nil {
		return err
	}
	rank := make(map[string]int, len(orderedIds))
	for i, id := range orderedIds {
		rank[id] = i
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		next := len(orderedIds)
		for _, col := range cols {
			pos, ok := rank[col.ColumnId]
			if !ok {
				pos = next
				next++
			}
			if col.Position == pos {
				continue
			}
			if err := tx.Model(&domain.KanbanColumn{}).Where("id = ?", col.ID).
				Update("position", pos).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteColumn removes a non-default column and moves its leads into the
// workspace default so no lead is ever orphaned.
func (s *Service) DeleteColumn(userId, workspaceId int64, columnId string) error {
	var col domain.KanbanColumn
	err := s.db.Where("workspace_id = ? AND column_id = ?", workspaceId, columnId).First(&col).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrColumnNotFound
	}
	if err != nil {
		return err
	}
	if col.IsDefault {
		return ErrDefaultProtected
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&domain.Lead{}).
			Where("workspace_id = ? AND column_id = ?", workspaceId, columnId).
			Update("column_id", domain.DefaultColumnId).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.KanbanColumn{}, col.ID).Error
	})
}
