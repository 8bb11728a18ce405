package mailer

import (
	"errors"
	"fmt"
	"io"

	"github.com/zapcrmio/zapcrm/config"
	"gopkg.in/gomail.v2"
)

var ErrNotConfigured = errors.New("smtp not configured")

// Mailer sends transactional mail through the configured SMTP relay. A zero
// host disables sending without making callers special-case it.
type Mailer struct {
	cfg config.SmtpConfig
}

func New(cfg config.SmtpConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

func (m *Mailer) Enabled() bool {
	return m.cfg.Host != ""
}

func (m *Mailer) send(msg *gomail.Message) error {
	if !m.Enabled() {
		return ErrNotConfigured
	}
	dialer := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.Username, m.cfg.Password)
	return dialer.DialAndSend(msg)
}

// SendBillReceipt mails the operator a short payment confirmation.
func (m *Mailer) SendBillReceipt(to, name, billTitle string, amount float64) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", fmt.Sprintf("Pagamento confirmado: %s", billTitle))
	msg.SetBody("text/plain", fmt.Sprintf(
		"Olá %s,\n\nO pagamento da conta %q no valor de R$ %.2f foi registrado.\n\n-- zapcrm",
		name, billTitle, amount))
	return m.send(msg)
}

// SendMonthlyReport mails the rendered report as an attachment.
func (m *Mailer) SendMonthlyReport(to, filename string, content []byte) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", "Relatório mensal de contas")
	msg.SetBody("text/plain", "Segue em anexo o relatório mensal de contas.\n\n-- zapcrm")
	msg.Attach(filename, gomail.SetCopyFunc(func(w io.Writer) error {
		_, err := w.Write(content)
		return err
	}))
	return m.send(msg)
}
