package mailer

import (
	"fmt"
	"net/smtp"

	"github.com/rs/zerolog"

	"ecotrack/internal/dto"
)

// Config holds SMTP settings. An empty Host disables delivery.
type Config struct {
	Host     string
	Port     string
	From     string
	Password string
}

func (c Config) Enabled() bool { return c.Host != "" }

// SendVerificationEmail mails the submitter about an approve/reject outcome.
func SendVerificationEmail(log *zerolog.Logger, cfg Config, recipient, name string, msg dto.LogVerifiedMessage) error {
	if !cfg.Enabled() {
		log.Warn().Str("email", recipient).Msg("mailer not configured, skipping delivery")
		return nil
	}

	var subject, body string
	switch msg.Kind {
	case dto.VerificationApproved:
		subject = "Your recycling log was approved"
		body = fmt.Sprintf("Hi %s,\n\nYour recycling log was verified and you earned %d eco-points. Keep it up!", name, msg.Points)
	case dto.VerificationRejected:
		subject = "Your recycling log was rejected"
		body = fmt.Sprintf("Hi %s,\n\nYour recycling log was rejected.\nReason: %s\n\nYou can submit a new log at any time.", name, msg.Reason)
	default:
		return fmt.Errorf("unknown verification kind %q", msg.Kind)
	}

	payload := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		cfg.From, recipient, subject, body,
	)

	addr := cfg.Host + ":" + cfg.Port
	auth := smtp.PlainAuth("", cfg.From, cfg.Password, cfg.Host)

	if err := smtp.SendMail(addr, auth, cfg.From, []string{recipient}, []byte(payload)); err != nil {
		log.Warn().Msgf("failed to send email to %s: %v", recipient, err)
		return fmt.Errorf("send email: %w", err)
	}

	log.Info().Msgf("email sent to %s (kind: %s)", recipient, msg.Kind)
	return nil
}
