package mailer

import (
	"fmt"
	"net/smtp"

	"github.com/stationhub/internal/config"
	"github.com/stationhub/internal/domain/repository"
	"go.uber.org/zap"
)

// SMTP delivers moderation outcome mails. When no host is configured the
// mailer logs instead of sending, which keeps local setups working.
type SMTP struct {
	cfg    config.MailConfig
	logger *zap.Logger
}

var _ repository.Mailer = (*SMTP)(nil)

func NewSMTP(cfg config.MailConfig, logger *zap.Logger) *SMTP {
	return &SMTP{
		cfg:    cfg,
		logger: logger,
	}
}

func (m *SMTP) Send(to, subject, body string) error {
	if m.cfg.Host == "" {
		m.logger.Info("Mail delivery skipped, no SMTP host configured",
			zap.String("to", to),
			zap.String("subject", subject))
		return nil
	}

	msg := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		m.cfg.From, to, subject, body,
	)

	addr := fmt.Sprintf("%s:%d", m.cfg.Host, m.cfg.Port)
	var auth smtp.Auth
	if m.cfg.User != "" {
		auth = smtp.PlainAuth("", m.cfg.User, m.cfg.Password, m.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, m.cfg.From, []string{to}, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}

	m.logger.Info("Mail sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}
