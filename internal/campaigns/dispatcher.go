// Package campaigns moves broadcast campaigns through their lifecycle. The
// actual sending lives in the external automation runner; dispatch here
// means posting the trigger webhook and flipping the status.
package campaigns

import (
	"context"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/pkg/errors"
	"github.com/zapcrmio/zapcrm/internal/domain"
	"github.com/zapcrmio/zapcrm/internal/webhook"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrCampaignNotFound = errors.New("campaign not found")
	ErrNotToggleable    = errors.New("only running and paused campaigns can be toggled")
)

const defaultPoolSize = 16

type Dispatcher struct {
	db       *gorm.DB
	notifier *webhook.Notifier
	pool     *ants.Pool
	now      func() time.Time
}

func NewDispatcher(db *gorm.DB, notifier *webhook.Notifier, poolSize int) (*Dispatcher, error) {
	if poolSize <= 0 {
		poolSize = defaultPoolSize
	}
	pool, err := ants.NewPool(poolSize, ants.WithNonblocking(false))
	if err != nil {
		return nil, err
	}
	return &Dispatcher{db: db, notifier: notifier, pool: pool, now: time.Now}, nil
}

func (d *Dispatcher) Release() {
	if d.pool != nil {
		d.pool.Release()
	}
}

// DispatchDue triggers every scheduled campaign whose scheduled_at has
// passed (or was never set). Triggers fan out on the worker pool; a failed
// webhook leaves the campaign scheduled so the next sweep retries it.
func (d *Dispatcher) DispatchDue(ctx context.Context) (int, error) {
	var due []domain.Campaign
	err := d.db.Where("status = ?", domain.CampaignStatusScheduled).
		Where(d.db.Where("scheduled_at IS NULL").Or("scheduled_at <= ?", d.now())).
		Find(&due).Error
	if err != nil {
		return 0, err
	}
	if len(due) == 0 {
		return 0, nil
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		triggered int
	)
	for i := range due {
		campaign := due[i]
		wg.Add(1)
		submitErr := d.pool.Submit(func() {
			defer wg.Done()
			if err := d.trigger(ctx, &campaign); err != nil {
				zap.L().Warn("campaign trigger failed",
					zap.Int64("campaign_id", campaign.ID), zap.Error(err))
				return
			}
			mu.Lock()
			triggered++
			mu.Unlock()
		})
		if submitErr != nil {
			wg.Done()
			zap.L().Error("dispatch pool submit failed", zap.Error(submitErr))
		}
	}
	wg.Wait()
	return triggered, nil
}

func (d *Dispatcher) trigger(ctx context.Context, campaign *domain.Campaign) error {
	if err := d.notifier.CampaignTrigger(ctx, campaign.UserId, campaign.ID); err != nil {
		return err
	}

	var total int64
	d.db.Model(&domain.Lead{}).
		Where("user_id = ? AND column_id = ?", campaign.UserId, campaign.ColumnId).
		Count(&total)

	return d.db.Model(&domain.Campaign{}).Where("id = ?", campaign.ID).
		Updates(map[string]interface{}{
			"status": domain.CampaignStatusRunning,
			"stats":  domain.JSONB{"total": total, "sent": 0, "delivered": 0, "read": 0},
		}).Error
}

// StartNow schedules the campaign for immediate dispatch and triggers it in
// place, covering the "start campaign" button.
func (d *Dispatcher) StartNow(ctx context.Context, userId, campaignId int64) error {
	campaign, err := d.get(userId, campaignId)
	if err != nil {
		return err
	}
	campaign.Status = domain.CampaignStatusScheduled
	campaign.ScheduledAt = nil
	if err := d.db.Model(&domain.Campaign{}).Where("id = ?", campaign.ID).
		Updates(map[string]interface{}{"status": campaign.Status, "scheduled_at": nil}).Error; err != nil {
		return err
	}
	return d.trigger(ctx, campaign)
}

// Toggle switches between em_andamento and pausada, the only transition the
// operator drives directly.
func (d *Dispatcher) Toggle(userId, campaignId int64) (*domain.Campaign, error) {
	campaign, err := d.get(userId, campaignId)
	if err != nil {
		return nil, err
	}

	var next string
	switch campaign.Status {
	case domain.CampaignStatusRunning:
		next = domain.CampaignStatusPaused
	case domain.CampaignStatusPaused:
		next = domain.CampaignStatusRunning
	default:
		return nil, ErrNotToggleable
	}

	if err := d.db.Model(&domain.Campaign{}).Where("id = ?", campaign.ID).
		Update("status", next).Error; err != nil {
		return nil, err
	}
	campaign.Status = next
	return campaign, nil
}

// ApplyStats records the delivery counters reported by the automation
// runner's callback, optionally moving the campaign to a new status.
func (d *Dispatcher) ApplyStats(userId, campaignId int64, stats domain.CampaignStats, status string) error {
	campaign, err := d.get(userId, campaignId)
	if err != nil {
		return err
	}
	updates := map[string]interface{}{
		"stats": domain.JSONB{
			"total":     stats.Total,
			"sent":      stats.Sent,
			"delivered": stats.Delivered,
			"read":      stats.Read,
		},
	}
	if status != "" {
		updates["status"] = status
	}
	return d.db.Model(&domain.Campaign{}).Where("id = ?", campaign.ID).
		Updates(updates).Error
}

func (d *Dispatcher) get(userId, campaignId int64) (*domain.Campaign, error) {
	var campaign domain.Campaign
	err := d.db.Where("id = ? AND user_id = ?", campaignId, userId).First(&campaign).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCampaignNotFound
	}
	if err != nil {
		return nil, err
	}
	return &campaign, nil
}
