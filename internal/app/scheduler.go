package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zapcrmio/zapcrm/internal/domain"
	"github.com/zapcrmio/zapcrm/internal/whatsgw"
	"github.com/zapcrmio/zapcrm/pkg/common"
	"go.uber.org/zap"
)

// Scheduler task types stored in sys_scheduler rows.
const (
	TaskCampaignDispatch = "campaign_dispatch"
	TaskBillOverdueSweep = "bill_overdue_sweep"
	TaskBillDueNotify    = "bill_due_notify"
	TaskInstanceRefresh  = "instance_state_refresh"
)

// StartSchedulerService runs enabled schedulers periodically
func (a *Application) StartSchedulerService(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				a.runSchedulers(ctx)
			}
		}
	}()
}

// runSchedulers executes enabled schedulers whose next_run_at has passed
func (a *Application) runSchedulers(ctx context.Context) {
	var schedulers []domain.SysScheduler
	a.gormDB.Where("status = ?", common.ENABLED).Find(&schedulers)
	now := time.Now()
	for i := range schedulers {
		sched := &schedulers[i]
		if sched.NextRunAt.IsZero() || !now.Before(sched.NextRunAt) {
			a.runSchedulerTask(ctx, sched)
			a.gormDB.Model(&domain.SysScheduler{}).Where("id = ?", sched.ID).
				Update("next_run_at", now.Add(time.Duration(sched.Interval)*time.Second))
		}
	}
}

func (a *Application) runSchedulerTask(ctx context.Context, sched *domain.SysScheduler) {
	var (
		result  = "success"
		message string
	)
	switch sched.TaskType {
	case TaskCampaignDispatch:
		n, err := a.dispatcher.DispatchDue(ctx)
		if err != nil {
			result, message = "failed", err.Error()
		} else {
			message = fmt.Sprintf("%d campaigns triggered", n)
		}
	case TaskBillOverdueSweep:
		n, err := a.billing.SweepOverdue()
		if err != nil {
			result, message = "failed", err.Error()
		} else {
			message = fmt.Sprintf("%d bills marked overdue", n)
		}
	case TaskBillDueNotify:
		n, err := a.notifyDueBills(ctx)
		if err != nil {
			result, message = "failed", err.Error()
		} else {
			message = fmt.Sprintf("%d operators notified", n)
		}
	case TaskInstanceRefresh:
		n, failed := a.refreshInstanceStates(ctx)
		message = fmt.Sprintf("%d instances refreshed, %d unreachable", n, failed)
	default:
		result, message = "skipped", "unsupported task type"
	}

	a.gormDB.Model(&domain.SysScheduler{}).Where("id = ?", sched.ID).Updates(map[string]interface{}{
		"last_run_at":  time.Now(),
		"last_result":  result,
		"last_message": message,
	})
	zap.L().Info("scheduler task finished",
		zap.String("task_type", sched.TaskType),
		zap.String("result", result),
		zap.String("message", message))
}

// notifyDueBills posts the bill-due webhook for every operator holding
// unpaid bills due today or earlier. The flow and instance the automation
// runner should use come from the billing.* settings; a zero flow id means
// the feature is not configured and the task is a no-op.
func (a *Application) notifyDueBills(ctx context.Context) (int, error) {
	flowId := a.configManager.GetInt64("billing", "notify_flow_id")
	if flowId == 0 {
		return 0, nil
	}
	instance := a.configManager.GetString("billing", "notify_instance")

	var userIds []int64
	err := a.gormDB.Model(&domain.Bill{}).Distinct("user_id").
		Where("status IN ? AND due_date <= ?",
			[]string{domain.BillStatusPending, domain.BillStatusOverdue}, time.Now()).
		Pluck("user_id", &userIds).Error
	if err != nil {
		return 0, err
	}

	notified := 0
	for _, userId := range userIds {
		var opr domain.SysOpr
		if err := a.gormDB.First(&opr, userId).Error; err != nil || opr.Mobile == "" {
			continue
		}
		if err := a.billing.NotifyDue(ctx, userId, opr.Mobile, opr.Realname, flowId, instance); err != nil {
			zap.L().Warn("due bill notify failed",
				zap.Int64("user_id", userId), zap.Error(err))
			continue
		}
		notified++
	}
	return notified, nil
}

// refreshInstanceStates asks the gateway for the connection state of every
// known instance and persists the answer. Probes run concurrently, bounded
// by the scheduler.max_workers setting.
func (a *Application) refreshInstanceStates(ctx context.Context) (refreshed, failed int) {
	var instances []domain.WhatsappInstance
	a.gormDB.Find(&instances)
	now := time.Now()

	maxWorkers := a.configManager.GetInt("scheduler", "max_workers")
	if maxWorkers <= 0 {
		maxWorkers = 25
	}
	sem := make(chan struct{}, maxWorkers)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for i := range instances {
		inst := &instances[i]
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			state, err := a.whatsClient.ConnectionState(ctx, inst.Name)
			if err != nil {
				mu.Lock()
				failed++
				mu.Unlock()
				zap.L().Warn("instance state probe failed",
					zap.String("instance", inst.Name), zap.Error(err))
				return
			}
			a.gormDB.Model(&domain.WhatsappInstance{}).Where("id = ?", inst.ID).
				Updates(map[string]interface{}{
					"state":         state,
					"last_check_at": now,
				})
			if state != inst.State {
				a.publishInstanceState(inst.UserId, inst.Name, state)
			}
			mu.Lock()
			refreshed++
			mu.Unlock()
		}()
	}
	wg.Wait()
	return refreshed, failed
}

// RunSchedulerNow triggers a scheduler execution immediately by ID
func (a *Application) RunSchedulerNow(id int64) error {
	var sched domain.SysScheduler
	if err := a.gormDB.First(&sched, id).Error; err != nil {
		return err
	}

	a.runSchedulerTask(context.Background(), &sched)

	now := time.Now()
	a.gormDB.Model(&domain.SysScheduler{}).Where("id = ?", sched.ID).Updates(map[string]interface{}{
		"last_run_at": now,
		"next_run_at": now.Add(time.Duration(sched.Interval) * time.Second),
	})
	return nil
}

// RunInstanceRefresh probes a single instance immediately by ID
func (a *Application) RunInstanceRefresh(instanceId int64) error {
	var inst domain.WhatsappInstance
	if err := a.gormDB.First(&inst, instanceId).Error; err != nil {
		return err
	}

	now := time.Now()
	state, err := a.whatsClient.ConnectionState(context.Background(), inst.Name)
	if err != nil {
		_ = a.gormDB.Model(&domain.WhatsappInstance{}).Where("id = ?", inst.ID).
			Updates(map[string]interface{}{
				"state":         whatsgw.StateClose,
				"last_check_at": now,
			}).Error
		return err
	}

	if err := a.gormDB.Model(&domain.WhatsappInstance{}).Where("id = ?", inst.ID).
		Updates(map[string]interface{}{
			"state":         state,
			"last_check_at": now,
		}).Error; err != nil {
		return err
	}
	if state != inst.State {
		a.publishInstanceState(inst.UserId, inst.Name, state)
	}
	return nil
}
