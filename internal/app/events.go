package app

import (
	"github.com/asaskevich/EventBus"
	"github.com/zapcrmio/zapcrm/internal/domain"
	"go.uber.org/zap"
)

// Event topics published on the in-process bus. Handlers publish, background
// subscribers react without coupling the HTTP layer to side effects.
const (
	EvtLeadCreated    = "lead.created"
	EvtBillPaid       = "bill.paid"
	EvtCampaignStatus = "campaign.status"
	EvtInstanceState  = "instance.state"
)

var bus = EventBus.New()

// Bus exposes the process-wide event bus.
func Bus() EventBus.Bus {
	return bus
}

func (a *Application) initEvents() {
	_ = bus.SubscribeAsync(EvtLeadCreated, func(userId, leadId int64, source string) {
		zap.L().Info("lead created",
			zap.Int64("user_id", userId),
			zap.Int64("lead_id", leadId),
			zap.String("source", source))
	}, false)

	_ = bus.SubscribeAsync(EvtBillPaid, func(userId, billId int64) {
		zap.L().Info("bill paid",
			zap.Int64("user_id", userId),
			zap.Int64("bill_id", billId))
		a.sendBillReceipt(userId, billId)
	}, false)

	_ = bus.SubscribeAsync(EvtCampaignStatus, func(userId, campaignId int64, status string) {
		zap.L().Info("campaign status changed",
			zap.Int64("user_id", userId),
			zap.Int64("campaign_id", campaignId),
			zap.String("status", status))
	}, false)

	_ = bus.SubscribeAsync(EvtInstanceState, func(userId int64, instance, state string) {
		zap.L().Info("instance state changed",
			zap.Int64("user_id", userId),
			zap.String("instance", instance),
			zap.String("state", state))
	}, false)
}

// sendBillReceipt mails a payment confirmation to the operator. Skipped
// silently when SMTP is not configured or the operator has no email.
func (a *Application) sendBillReceipt(userId, billId int64) {
	if a.mailer == nil || !a.mailer.Enabled() {
		return
	}
	var opr domain.SysOpr
	if err := a.gormDB.First(&opr, userId).Error; err != nil || opr.Email == "" {
		return
	}
	var bill domain.Bill
	if err := a.gormDB.First(&bill, billId).Error; err != nil {
		return
	}
	if err := a.mailer.SendBillReceipt(opr.Email, opr.Realname, bill.Title, bill.Amount); err != nil {
		zap.L().Warn("bill receipt mail failed",
			zap.Int64("bill_id", billId),
			zap.Error(err))
	}
}

func (a *Application) publishInstanceState(userId int64, instance, state string) {
	bus.Publish(EvtInstanceState, userId, instance, state)
}

// PublishLeadCreated is called by the API layer and the webhook intake.
func PublishLeadCreated(userId, leadId int64, source string) {
	bus.Publish(EvtLeadCreated, userId, leadId, source)
}

func PublishBillPaid(userId, billId int64) {
	bus.Publish(EvtBillPaid, userId, billId)
}

func PublishCampaignStatus(userId, campaignId int64, status string) {
	bus.Publish(EvtCampaignStatus, userId, campaignId, status)
}
