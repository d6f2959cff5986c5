// Package notify emails the finished brief.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"github.com/sells-group/pjm-brief/internal/failure"
)

// Settings holds the delivery configuration.
type Settings struct {
	From     string
	Password string
	To       string
	Host     string
	Port     int
}

// Validate reports the first missing field as a configuration failure.
func (s Settings) Validate() error {
	var missing []string
	if strings.TrimSpace(s.From) == "" {
		missing = append(missing, "mail.from")
	}
	if s.Password == "" {
		missing = append(missing, "mail.password")
	}
	if strings.TrimSpace(s.To) == "" {
		missing = append(missing, "mail.to")
	}
	if strings.TrimSpace(s.Host) == "" {
		missing = append(missing, "mail.smtp_host")
	}
	if s.Port <= 0 {
		missing = append(missing, "mail.smtp_port")
	}
	if len(missing) > 0 {
		return failure.New(failure.Configuration, "notify: missing "+strings.Join(missing, ", "))
	}
	return nil
}

// Sender delivers composed messages. *mail.Client satisfies it.
type Sender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// Mailer composes the brief email and hands it to a Sender.
type Mailer struct {
	settings  Settings
	newSender func(Settings) (Sender, error)
}

// NewMailer creates a Mailer that sends over SMTP with mandatory STARTTLS
// and PLAIN auth.
func NewMailer(settings Settings) *Mailer {
	return &Mailer{settings: settings, newSender: dialSMTP}
}

func dialSMTP(s Settings) (Sender, error) {
	return mail.NewClient(s.Host,
		mail.WithPort(s.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.From),
		mail.WithPassword(s.Password),
	)
}

// Subject returns the email subject for date.
func Subject(date time.Time) string {
	return "PJM Market Brief - " + date.Format("January 2, 2006")
}

// Body returns the plain-text email body.
func Body(narrative, attachment string, date time.Time) string {
	return fmt.Sprintf(`Good morning,

Here's your automated PJM Market Intelligence Brief for %s.

%s

---
This report was automatically generated by your PJM Daily Agent.
Report file attached: %s

Best regards,
PJM Market Intelligence Agent
`, date.Format("January 2, 2006"), narrative, attachment)
}

// Compose builds the message: narrative in the body, report as attachment.
func (m *Mailer) Compose(reportPath, narrative string, date time.Time) (*mail.Msg, error) {
	data, err := os.ReadFile(reportPath)
	if err != nil {
		return nil, eris.Wrapf(err, "notify: read report %s", reportPath)
	}
	name := filepath.Base(reportPath)

	msg := mail.NewMsg()
	if err := msg.From(m.settings.From); err != nil {
		return nil, failure.Wrap(err, failure.Configuration, "notify: invalid sender")
	}
	if err := msg.To(m.settings.To); err != nil {
		return nil, failure.Wrap(err, failure.Configuration, "notify: invalid recipient")
	}
	msg.Subject(Subject(date))
	msg.SetBodyString(mail.TypeTextPlain, Body(narrative, name, date))
	if err := msg.AttachReader(name, bytes.NewReader(data), mail.WithFileContentType(mail.TypeAppOctetStream)); err != nil {
		return nil, eris.Wrap(err, "notify: attach report")
	}
	return msg, nil
}

// Send validates settings, composes the message, and delivers it in a single
// SMTP session. Nothing touches the network when validation fails.
func (m *Mailer) Send(ctx context.Context, reportPath, narrative string, date time.Time) error {
	if err := m.settings.Validate(); err != nil {
		return err
	}

	msg, err := m.Compose(reportPath, narrative, date)
	if err != nil {
		if failure.KindOf(err) == "" {
			return failure.Wrap(err, failure.Delivery, "notify: compose")
		}
		return err
	}

	log := zap.L().With(
		zap.String("component", "notify"),
		zap.String("smtp_host", m.settings.Host),
		zap.Int("smtp_port", m.settings.Port),
	)

	sender, err := m.newSender(m.settings)
	if err != nil {
		return failure.Wrap(err, failure.Delivery, "notify: create smtp client")
	}

	log.Info("notify: sending brief", zap.String("to", m.settings.To))
	if err := sender.DialAndSendWithContext(ctx, msg); err != nil {
		return failure.Wrap(err, failure.Delivery, "notify: send")
	}
	log.Info("notify: brief sent", zap.String("to", m.settings.To))
	return nil
}
