package email

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"

	"github.com/uniusa/verify-bot/internal/domain"
)

// Sender delivers a verification code to a member.
type Sender interface {
	Send(ctx context.Context, member *domain.MemberRecord, code string) error
}

// LogSender logs codes instead of sending them. Used in ENV=local.
type LogSender struct {
	logger *slog.Logger
}

func (s *LogSender) Send(_ context.Context, member *domain.MemberRecord, code string) error {
	s.logger.Info("verification code (local dev)", "to", member.Email, "code", code)
	return nil
}

// ResendSender sends codes via the Resend API, an alternate transactional
// provider for accounts whose membership-API email quota is exhausted.
type ResendSender struct {
	client    *resend.Client
	from      string
	inviteURL string
}

func (s *ResendSender) Send(ctx context.Context, member *domain.MemberRecord, code string) error {
	if !member.Complete() {
		return domain.ErrIncompleteMember
	}

	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{member.Email},
		Subject: "USA Discord Verification Code",
		Html: fmt.Sprintf(
			`<h2>Welcome to the USA Discord Server!</h2>`+
				`<p>Here is your verification code:</p><br><p>%s</p><br>`+
				`<p>Invite your friends to the Discord: <a href=%q>%s</a></p>`+
				`<p>If you were not expecting this email, you may safely ignore it.</p>`,
			code, s.inviteURL, s.inviteURL,
		),
	}
	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

// NewSender selects the provider: "log" for local dev, "resend" for the
// Resend API, anything else falls through to the membership API client.
func NewSender(provider, apiKey, from, inviteURL string, directory Sender, logger *slog.Logger) Sender {
	switch provider {
	case "log":
		return &LogSender{logger: logger}
	case "resend":
		return &ResendSender{
			client:    resend.NewClient(apiKey),
			from:      from,
			inviteURL: inviteURL,
		}
	default:
		return directory
	}
}
