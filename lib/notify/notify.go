// Package notify alerts a human operator about run events that need
// eyes: a challenge waiting on a manual solve, a run that died. Long
// harvests are usually left unattended, so "print it to the terminal"
// is not enough.
package notify

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("lib/notify")

type Notifier interface {
	Notify(ctx context.Context, subject string, body string) error
}

type Nop struct{}

func (Nop) Notify(ctx context.Context, subject string, body string) error {
	return nil
}

type SmtpConfig struct {
	Server       string `json:"server"`
	Port         int    `json:"port"`
	EmailAddress string `json:"email_address"`
	Password     string `json:"password"`
	// where alerts go, usually the operator's own inbox
	NotifyAddress string `json:"notify_address"`
}

type Email struct {
	config SmtpConfig
}

func NewEmail(config SmtpConfig) Email {
	return Email{config: config}
}

func (e Email) Notify(ctx context.Context, subject string, body string) error {
	ctx, span := tracer.Start(ctx, "Notify")
	defer span.End()

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("Case Harvest <%s>", e.config.EmailAddress)
	mail.To = []string{e.config.NotifyAddress}
	mail.Subject = subject
	mail.Text = []byte(body)

	addr := fmt.Sprintf("%s:%d", e.config.Server, e.config.Port)
	err := mail.Send(
		addr,
		smtp.PlainAuth("", e.config.EmailAddress, e.config.Password, e.config.Server),
	)
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(addr, nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send email")
		return err
	}
	return nil
}
