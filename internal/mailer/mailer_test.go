package mailer

import (
	"errors"
	"testing"

	"github.com/zapcrmio/zapcrm/config"
)

func TestDisabledWithoutHost(t *testing.T) {
	m := New(config.SmtpConfig{})
	if m.Enabled() {
		t.Fatal("mailer with empty host reports enabled")
	}
	err := m.SendBillReceipt("maria@example.com", "Maria", "Aluguel", 1200)
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("SendBillReceipt err = %v, want ErrNotConfigured", err)
	}
	err = m.SendMonthlyReport("maria@example.com", "relatorio_2026_08.pdf", []byte("%PDF-1.4"))
	if !errors.Is(err, ErrNotConfigured) {
		t.Errorf("SendMonthlyReport err = %v, want ErrNotConfigured", err)
	}
}

func TestEnabledWithHost(t *testing.T) {
	m := New(config.SmtpConfig{Host: "smtp.example.com", Port: 587, From: "crm@example.com"})
	if !m.Enabled() {
		t.Fatal("mailer with host reports disabled")
	}
}
