// Package remarketing manages timed flow-trigger sequences. Steps are an
// append/remove-only ordered list; order is always re-derived from array
// position before save so step_order stays contiguous from 1.
package remarketing

import (
	"github.com/pkg/errors"
	"github.com/zapcrmio/zapcrm/internal/domain"
	"gorm.io/gorm"
)

var (
	ErrSequenceNotFound = errors.New("sequence not found")
	ErrLastStep         = errors.New("a sequence must keep at least one step")
	ErrStepMissingFlow  = errors.New("every step must reference a flow")
	ErrInstanceRequired = errors.New("a sending instance is required")
)

// StepInput is one step as edited, before order normalization.
type StepInput struct {
	FlowId     int64 `json:"flow_id,string"`
	DelayDays  int   `json:"delay_days"`
	DelayHours int   `json:"delay_hours"`
}

// DefaultStep is the blank step appended by "add step": no flow yet, a
// one-hour offset.
func DefaultStep() StepInput {
	return StepInput{DelayHours: 1}
}

// NormalizeSteps converts inputs to step rows with contiguous 1-based order.
func NormalizeSteps(sequenceId int64, inputs []StepInput) []domain.RemarketingStep {
	steps := make([]domain.RemarketingStep, 0, len(inputs))
	for i, in := range inputs {
		steps = append(steps, domain.RemarketingStep{
			SequenceId: sequenceId,
			StepOrder:  i + 1,
			FlowId:     in.FlowId,
			DelayDays:  in.DelayDays,
			DelayHours: in.DelayHours,
		})
	}
	return steps
}

// RemoveStep drops the step at index (0-based); remaining steps keep their
// relative order. Removing the last remaining step is rejected.
func RemoveStep(inputs []StepInput, index int) ([]StepInput, error) {
	if len(inputs) <= 1 {
		return nil, ErrLastStep
	}
	if index < 0 || index >= len(inputs) {
		return inputs, nil
	}
	out := make([]StepInput, 0, len(inputs)-1)
	out = append(out, inputs[:index]...)
	out = append(out, inputs[index+1:]...)
	return out, nil
}

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Validate enforces the pre-save rules: every step references a flow, and an
// instance is chosen whenever the operator has at least one instance.
func (s *Service) Validate(userId int64, instanceName string, inputs []StepInput) error {
	for _, in := range inputs {
		if in.FlowId == 0 {
			return ErrStepMissingFlow
		}
	}
	if instanceName == "" {
		var count int64
		if err := s.db.Model(&domain.WhatsappInstance{}).
			Where("user_id = ?", userId).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrInstanceRequired
		}
	}
	return nil
}

// Save validates and replaces the sequence's steps atomically.
func (s *Service) Save(userId int64, seq *domain.RemarketingSequence, inputs []StepInput) error {
	if err := s.Validate(userId, seq.InstanceName, inputs); err != nil {
		return err
	}
	seq.UserId = userId
	if seq.Status == "" {
		seq.Status = domain.SequenceStatusDraft
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if seq.ID == 0 {
			if err := tx.Create(seq).Error; err != nil {
				return err
			}
		} else {
			var existing domain.RemarketingSequence
			err := tx.Where("id = ? AND user_id = ?", seq.ID, userId).First(&existing).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSequenceNotFound
			}
			if err != nil {
				return err
			}
			if err := tx.Save(seq).Error; err != nil {
				return err
			}
			if err := tx.Where("sequence_id = ?", seq.ID).
				Delete(&domain.RemarketingStep{}).Error; err != nil {
				return err
			}
		}

		steps := NormalizeSteps(seq.ID, inputs)
		if len(steps) > 0 {
			if err := tx.Create(&steps).Error; err != nil {
				return err
			}
		}
		seq.Steps = steps
		return nil
	})
}

// Get loads a sequence with ordered steps.
func (s *Service) Get(userId, sequenceId int64) (*domain.RemarketingSequence, error) {
	var seq domain.RemarketingSequence
	err := s.db.Where("id = ? AND user_id = ?", sequenceId, userId).First(&seq).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSequenceNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := s.db.Where("sequence_id = ?", seq.ID).
		Order("step_order ASC").Find(&seq.Steps).Error; err != nil {
		return nil, err
	}
	return &seq, nil
}
