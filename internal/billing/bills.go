// Package billing owns payable bills: overdue derivation, payment with
// recurring-installment advance, and the monthly summary feeding reports.
package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/zapcrmio/zapcrm/internal/domain"
	"github.com/zapcrmio/zapcrm/internal/webhook"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrBillNotFound = errors.New("bill not found")
	ErrAlreadyPaid  = errors.New("bill already paid")
)

type Service struct {
	db       *gorm.DB
	notifier *webhook.Notifier
	now      func() time.Time
}

func NewService(db *gorm.DB, notifier *webhook.Notifier) *Service {
	return &Service{db: db, notifier: notifier, now: time.Now}
}

// DeriveStatus returns the effective status: a pending bill past its due
// date reads as overdue.
func DeriveStatus(bill *domain.Bill, today time.Time) string {
	if bill.Status == domain.BillStatusPending && bill.DueDate.Before(truncateDay(today)) {
		return domain.BillStatusOverdue
	}
	return bill.Status
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SweepOverdue persists the overdue status for every pending bill whose due
// date has passed. Run daily by the scheduler.
func (s *Service) SweepOverdue() (int64, error) {
	res := s.db.Model(&domain.Bill{}).
		Where("status = ? AND due_date < ?", domain.BillStatusPending, truncateDay(s.now())).
		Update("status", domain.BillStatusOverdue)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		zap.L().Info("bills marked overdue", zap.Int64("count", res.RowsAffected))
	}
	return res.RowsAffected, nil
}

// PayResult reports what Pay did, including the spawned next installment if
// any and whether a capped recurring sequence just finished.
type PayResult struct {
	Bill              *domain.Bill
	Next              *domain.Bill
	SequenceCompleted bool
}

// Pay marks a bill paid. A recurring bill spawns next month's installment
// unless the current installment already equals the cap, in which case the
// sequence terminates and no further row is created.
func (s *Service) Pay(userId, billId int64, proofUrl string) (*PayResult, error) {
	var bill domain.Bill
	err := s.db.Where("id = ? AND user_id = ?", billId, userId).First(&bill).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrBillNotFound
	}
	if err != nil {
		return nil, err
	}
	if bill.Status == domain.BillStatusPaid {
		return nil, ErrAlreadyPaid
	}

	now := s.now()
	result := &PayResult{Bill: &bill}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":  domain.BillStatusPaid,
			"paid_at": now,
		}
		if proofUrl != "" {
			updates["proof_url"] = proofUrl
		}
		if err := tx.Model(&domain.Bill{}).Where("id = ?", bill.ID).Updates(updates).Error; err != nil {
			return err
		}
		bill.Status = domain.BillStatusPaid
		bill.PaidAt = &now

		if bill.Type != domain.BillTypeRecurring {
			return nil
		}
		capped := bill.TotalInstallments > 0
		if capped && bill.CurrentInstallment >= bill.TotalInstallments {
			result.SequenceCompleted = true
			return nil
		}

		next := domain.Bill{
			UserId:             bill.UserId,
			Title:              bill.Title,
			Amount:             bill.Amount,
			DueDate:            bill.DueDate.AddDate(0, 1, 0),
			Status:             domain.BillStatusPending,
			Type:               domain.BillTypeRecurring,
			CurrentInstallment: bill.CurrentInstallment + 1,
			TotalInstallments:  bill.TotalInstallments,
		}
		if err := tx.Create(&next).Error; err != nil {
			return err
		}
		result.Next = &next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// NotifyDue posts the bill-due webhook for every bill of the operator due
// today or overdue and not yet paid. Used by the daily scheduler task.
func (s *Service) NotifyDue(ctx context.Context, userId int64, phone, name string, flowId int64, instance string) error {
	if s.notifier == nil {
		return nil
	}
	var bills []domain.Bill
	if err := s.db.Where("user_id = ? AND status IN ? AND due_date <= ?",
		userId, []string{domain.BillStatusPending, domain.BillStatusOverdue}, truncateDay(s.now())).
		Find(&bills).Error; err != nil {
		return err
	}
	for _, bill := range bills {
		payload := webhook.BillDuePayload{
			Phone:    phone,
			Name:     name,
			FlowId:   flowId,
			Instance: instance,
			Step:     1,
			Params: webhook.BillDueMessage{
				Message: fmt.Sprintf("Conta %q no valor de R$ %.2f vence em %s",
					bill.Title, bill.Amount, bill.DueDate.Format("02/01/2006")),
			},
		}
		if err := s.notifier.BillDue(ctx, userId, payload); err != nil {
			if errors.Is(err, webhook.ErrNoIntegration) {
				return nil
			}
			zap.L().Warn("bill due webhook failed",
				zap.Int64("bill_id", bill.ID), zap.Error(err))
		}
	}
	return nil
}

// MonthSummary aggregates one calendar month of bills for the report.
type MonthSummary struct {
	Month        time.Time
	Bills        []domain.Bill
	TotalAmount  float64
	TotalPaid    float64
	TotalPending float64
	TotalOverdue float64
}

// SummarizeMonth loads the operator's bills due inside the month of ref.
func (s *Service) SummarizeMonth(userId int64, ref time.Time) (*MonthSummary, error) {
	start := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
	end := start.AddDate(0, 1, 0)

	var bills []domain.Bill
	if err := s.db.Where("user_id = ? AND due_date >= ? AND due_date < ?", userId, start, end).
		Order("due_date ASC").Find(&bills).Error; err != nil {
		return nil, err
	}

	summary := &MonthSummary{Month: start, Bills: bills}
	today := s.now()
	for i := range bills {
		summary.TotalAmount += bills[i].Amount
		switch DeriveStatus(&bills[i], today) {
		case domain.BillStatusPaid:
			summary.TotalPaid += bills[i].Amount
		case domain.BillStatusOverdue:
			summary.TotalOverdue += bills[i].Amount
		default:
			summary.TotalPending += bills[i].Amount
		}
	}
	return summary, nil
}
