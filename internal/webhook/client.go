// Package webhook posts the fixed JSON payloads of the automation contract
// to user-configured HTTPS endpoints. Success is judged by the immediate
// response status only; there is no signature or redelivery.
package webhook

import (
	"context"
	"fmt"
	"time"

	"github.com/guonaihong/gout"
	"go.uber.org/zap"
)

const bodySnippetLimit = 256

// CampaignTriggerPayload starts a campaign in the automation runner.
type CampaignTriggerPayload struct {
	CampaignId int64 `json:"campaign_id,string"`
	UserId     int64 `json:"user_id,string"`
}

// BillDuePayload asks the runner to message the operator about a due bill.
type BillDuePayload struct {
	Phone    string         `json:"phone"`
	Name     string         `json:"name"`
	FlowId   int64          `json:"flow_id,string"`
	Instance string         `json:"instance"`
	Step     int            `json:"step"`
	Params   BillDueMessage `json:"params"`
}

type BillDueMessage struct {
	Message string `json:"message"`
}

type Client struct {
	timeout time.Duration
}

func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{timeout: timeout}
}

// Post sends payload as JSON to url and returns an error for any non-2xx
// response, carrying the status code and a truncated response body.
func (c *Client) Post(ctx context.Context, url string, payload interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var (
		code int
		body string
	)
	err := gout.POST(url).
		WithContext(ctx).
		SetJSON(payload).
		Code(&code).
		BindBody(&body).
		Do()
	if err != nil {
		return fmt.Errorf("webhook post %s: %w", url, err)
	}
	if code < 200 || code > 299 {
		if len(body) > bodySnippetLimit {
			body = body[:bodySnippetLimit]
		}
		zap.L().Warn("webhook rejected",
			zap.String("url", url),
			zap.Int("status", code),
			zap.String("body", body))
		return fmt.Errorf("webhook post %s: status %d: %s", url, code, body)
	}
	return nil
}

// TriggerCampaign posts the campaign start payload.
func (c *Client) TriggerCampaign(ctx context.Context, url string, campaignId, userId int64) error {
	return c.Post(ctx, url, CampaignTriggerPayload{CampaignId: campaignId, UserId: userId})
}

// NotifyBillDue posts the bill-due notification payload.
func (c *Client) NotifyBillDue(ctx context.Context, url string, payload BillDuePayload) error {
	return c.Post(ctx, url, payload)
}
