package email

import (
	"context"
	"fmt"
	"strings"

	"gopkg.in/gomail.v2"

	"github.com/reviewboost/review-api/internal/config"
	"github.com/reviewboost/review-api/internal/model"
	"github.com/reviewboost/review-api/pkg/logger"
)

type smtpService struct {
	dialer *gomail.Dialer
	from   string
	logger *logger.Logger
}

func NewSMTPService(cfg config.SMTPConfig, log *logger.Logger) Service {
	if log == nil {
		log = logger.Nop()
	}
	return &smtpService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Password),
		from:   cfg.From,
		logger: log,
	}
}

func (s *smtpService) SendReviewNotification(ctx context.Context, to string, client *model.Client) error {
	subject := fmt.Sprintf("Nowa opinia: %d/5 gwiazdek", client.Stars)

	var b strings.Builder
	fmt.Fprintf(&b, "Klient %s wystawił opinię.\n\n", client.FullName())
	fmt.Fprintf(&b, "Ocena: %d/5\n", client.Stars)
	if client.Review != "" {
		fmt.Fprintf(&b, "Treść:\n%s\n", client.Review)
	}

	return s.SendCustom(ctx, to, subject, b.String())
}

func (s *smtpService) SendCustom(ctx context.Context, to, subject, body string) error {
	if to == "" {
		return fmt.Errorf("recipient address is empty")
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	if err := s.dialer.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Debug("email sent", "to", to, "subject", subject)
	return nil
}
