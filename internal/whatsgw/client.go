// Package whatsgw is the client for the external WhatsApp connection
// gateway: instance lifecycle, QR pairing and connection-state polling. The
// gateway owns sessions and delivery; this side only configures and asks.
package whatsgw

import (
	"context"
	"fmt"
	"time"

	"github.com/guonaihong/gout"
	"github.com/zapcrmio/zapcrm/config"
)

// Connection states reported by the gateway.
const (
	StateOpen       = "open"
	StateConnecting = "connecting"
	StateClose      = "close"
)

// ConnectResult carries the QR payload or pairing code returned by a
// connect call. Either may be empty depending on gateway mode.
type ConnectResult struct {
	PairingCode string `json:"pairingCode"`
	Code        string `json:"code"`
	Base64      string `json:"base64"`
}

type instanceEnvelope struct {
	Instance struct {
		InstanceName string `json:"instanceName"`
		State        string `json:"state"`
	} `json:"instance"`
}

type Client struct {
	baseURL string
	apiKey  string
	timeout time.Duration
}

func NewClient(cfg config.WhatsappConfig) *Client {
	return &Client{
		baseURL: cfg.ApiURL,
		apiKey:  cfg.ApiKey,
		timeout: 15 * time.Second,
	}
}

func (c *Client) headers() gout.H {
	return gout.H{"apikey": c.apiKey}
}

func (c *Client) checkStatus(code int, op string) error {
	if code < 200 || code > 299 {
		return fmt.Errorf("whatsapp gateway %s: status %d", op, code)
	}
	return nil
}

// CreateInstance registers a named instance with the gateway.
func (c *Client) CreateInstance(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var code int
	err := gout.POST(c.baseURL + "/instance/create").
		WithContext(ctx).
		SetHeader(c.headers()).
		SetJSON(gout.H{"instanceName": name, "qrcode": true}).
		Code(&code).
		Do()
	if err != nil {
		return fmt.Errorf("whatsapp gateway create: %w", err)
	}
	return c.checkStatus(code, "create")
}

// Connect asks the gateway for a QR payload or pairing code for the
// instance.
func (c *Client) Connect(ctx context.Context, name string) (*ConnectResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var (
		code int
		res  ConnectResult
	)
	err := gout.GET(c.baseURL + "/instance/connect/" + name).
		WithContext(ctx).
		SetHeader(c.headers()).
		Code(&code).
		BindJSON(&res).
		Do()
	if err != nil {
		return nil, fmt.Errorf("whatsapp gateway connect: %w", err)
	}
	if err := c.checkStatus(code, "connect"); err != nil {
		return nil, err
	}
	return &res, nil
}

// ConnectionState returns the current state: open, connecting or close.
func (c *Client) ConnectionState(ctx context.Context, name string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var (
		code int
		env  instanceEnvelope
	)
	err := gout.GET(c.baseURL + "/instance/connectionState/" + name).
		WithContext(ctx).
		SetHeader(c.headers()).
		Code(&code).
		BindJSON(&env).
		Do()
	if err != nil {
		return "", fmt.Errorf("whatsapp gateway connectionState: %w", err)
	}
	if err := c.checkStatus(code, "connectionState"); err != nil {
		return "", err
	}
	return env.Instance.State, nil
}

// Restart restarts the instance session on the gateway.
func (c *Client) Restart(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var code int
	err := gout.PUT(c.baseURL + "/instance/restart/" + name).
		WithContext(ctx).
		SetHeader(c.headers()).
		Code(&code).
		Do()
	if err != nil {
		return fmt.Errorf("whatsapp gateway restart: %w", err)
	}
	return c.checkStatus(code, "restart")
}

// Logout drops the instance's paired session but keeps the instance.
func (c *Client) Logout(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var code int
	err := gout.DELETE(c.baseURL + "/instance/logout/" + name).
		WithContext(ctx).
		SetHeader(c.headers()).
		Code(&code).
		Do()
	if err != nil {
		return fmt.Errorf("whatsapp gateway logout: %w", err)
	}
	return c.checkStatus(code, "logout")
}

// DeleteInstance removes the instance from the gateway entirely.
func (c *Client) DeleteInstance(ctx context.Context, name string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var code int
	err := gout.DELETE(c.baseURL + "/instance/delete/" + name).
		WithContext(ctx).
		SetHeader(c.headers()).
		Code(&code).
		Do()
	if err != nil {
		return fmt.Errorf("whatsapp gateway delete: %w", err)
	}
	return c.checkStatus(code, "delete")
}
