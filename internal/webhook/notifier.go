package webhook

import (
	"context"

	"github.com/pkg/errors"
	"github.com/zapcrmio/zapcrm/internal/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Integration kinds routed by the notifier.
const (
	KindCampaignTrigger = "campaign_trigger"
	KindBillNotify      = "bill_notify"
	KindLeadIntake      = "lead_intake"
)

var ErrNoIntegration = errors.New("no enabled integration for this purpose")

// Notifier resolves the operator's configured webhook URL for a purpose and
// posts the corresponding payload.
type Notifier struct {
	db     *gorm.DB
	client *Client
}

func NewNotifier(db *gorm.DB, client *Client) *Notifier {
	return &Notifier{db: db, client: client}
}

func (n *Notifier) resolveURL(userId int64, kind string) (string, error) {
	var integ domain.Integration
	err := n.db.Where("user_id = ? AND kind = ? AND enabled = ?", userId, kind, true).
		Order("id ASC").First(&integ).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNoIntegration
	}
	if err != nil {
		return "", err
	}
	return integ.WebhookUrl, nil
}

// CampaignTrigger posts {campaign_id, user_id} to the operator's campaign
// trigger endpoint.
func (n *Notifier) CampaignTrigger(ctx context.Context, userId, campaignId int64) error {
	url, err := n.resolveURL(userId, KindCampaignTrigger)
	if err != nil {
		return err
	}
	if err := n.client.TriggerCampaign(ctx, url, campaignId, userId); err != nil {
		return err
	}
	zap.L().Info("campaign trigger webhook sent",
		zap.Int64("user_id", userId), zap.Int64("campaign_id", campaignId))
	return nil
}

// BillDue posts the bill-due payload to the operator's bill notification
// endpoint.
func (n *Notifier) BillDue(ctx context.Context, userId int64, payload BillDuePayload) error {
	url, err := n.resolveURL(userId, KindBillNotify)
	if err != nil {
		return err
	}
	return n.client.NotifyBillDue(ctx, url, payload)
}
