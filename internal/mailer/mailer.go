package mailer

import (
	"fmt"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/huddlehq/huddle/pkg/config"
	"github.com/huddlehq/huddle/pkg/logging"
)

// Mailer sends best-effort transactional mail. Failures are logged and
// never fail the triggering mutation. A nil *Mailer is valid and drops
// everything.
type Mailer struct {
	cfg    config.MailConfig
	logger *zap.Logger
}

// New creates a mailer, nil when SMTP is not configured
func New(cfg *config.MailConfig) *Mailer {
	if !cfg.Enabled {
		logging.GetLogger().Info("Mail disabled")
		return nil
	}
	return &Mailer{
		cfg:    *cfg,
		logger: logging.WithComponent("mailer"),
	}
}

// SendWelcome sends the post-registration welcome mail in the background
func (m *Mailer) SendWelcome(to, name string) {
	body := fmt.Sprintf("<p>Hi %s,</p><p>Welcome to Huddle. Your account is ready.</p>", name)
	m.send(to, "Welcome to Huddle", body)
}

// SendOrgInvite sends an org invitation mail in the background
func (m *Mailer) SendOrgInvite(to, orgName string) {
	body := fmt.Sprintf("<p>You have been added to the organization <b>%s</b> on Huddle.</p>", orgName)
	m.send(to, "You've been added to "+orgName, body)
}

func (m *Mailer) send(to, subject, htmlBody string) {
	if m == nil {
		return
	}
	go func() {
		msg := gomail.NewMessage()
		msg.SetHeader("From", m.cfg.From)
		msg.SetHeader("To", to)
		msg.SetHeader("Subject", subject)
		msg.SetBody("text/html", htmlBody)

		dialer := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.Username, m.cfg.Password)
		if err := dialer.DialAndSend(msg); err != nil {
			m.logger.Warn("Failed to send mail",
				zap.String("to", to),
				zap.String("subject", subject),
				zap.Error(err))
		}
	}()
}
