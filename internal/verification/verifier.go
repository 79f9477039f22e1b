// Package verification implements the member-verification state machine:
// email submitted, directory lookup, code issued, code submitted, role
// granted. Per-user state lives in the registry; "verified" itself is
// never tracked here, since possession of the access role is the durable
// marker.
package verification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/uniusa/verify-bot/internal/domain"
	"github.com/uniusa/verify-bot/internal/email"
	"github.com/uniusa/verify-bot/internal/metrics"
	"github.com/uniusa/verify-bot/internal/registry"
)

// Outcome tells the interaction surface which single user-visible action
// to take. The zero value is returned only alongside an error.
type Outcome int

const (
	// OutcomeAlreadyVerified short-circuits any event from a user who
	// already holds the access role.
	OutcomeAlreadyVerified Outcome = iota + 1
	// OutcomeEmailForm asks the surface to open the email-entry form.
	OutcomeEmailForm
	// OutcomeReenterChoice offers the reenter button instead of reshowing
	// the email form, since a code is already outstanding.
	OutcomeReenterChoice
	// OutcomeCodeForm asks the surface to open the code-entry form.
	OutcomeCodeForm
	// OutcomeEnterEmailFirst tells the user to do the email step first.
	OutcomeEnterEmailFirst
	// OutcomeCodeSent confirms a code was generated and emailed.
	OutcomeCodeSent
	// OutcomeNotMember reports that no active member matched the email.
	OutcomeNotMember
	// OutcomeEmailFailed reports that the member was found but the
	// verification email could not be delivered.
	OutcomeEmailFailed
	// OutcomeVerified reports a code match and a granted role.
	OutcomeVerified
	// OutcomeCodeMismatch reports a wrong code; the entry is retained.
	OutcomeCodeMismatch
	// OutcomeNoPendingCode reports a code submission with nothing issued.
	OutcomeNoPendingCode
)

// Directory is the subset of the membership API client the verifier needs.
type Directory interface {
	FindActiveMember(ctx context.Context, email string) (*domain.MemberRecord, error)
}

// Roles checks and grants the access role on the interaction surface.
type Roles interface {
	HasVerifiedRole(ctx context.Context, userID string) (bool, error)
	GrantVerifiedRole(ctx context.Context, userID string) error
}

// Verifier orchestrates the verification flow. It is safe for concurrent
// use: the registry provides the per-user atomicity, and everything else
// here is read-only after construction.
type Verifier struct {
	directory Directory
	sender    email.Sender
	roles     Roles
	codes     *registry.Registry
	logger    *slog.Logger
}

func NewVerifier(directory Directory, sender email.Sender, roles Roles, codes *registry.Registry, logger *slog.Logger) *Verifier {
	return &Verifier{
		directory: directory,
		sender:    sender,
		roles:     roles,
		codes:     codes,
		logger:    logger.With("component", "verifier"),
	}
}

// StartEmail handles the email button. A user with a code outstanding is
// offered the reenter choice rather than the form.
func (v *Verifier) StartEmail(ctx context.Context, userID string) (Outcome, error) {
	verified, err := v.alreadyVerified(ctx, userID)
	if err != nil {
		return 0, err
	}
	if verified {
		return OutcomeAlreadyVerified, nil
	}
	if v.codes.Has(userID) {
		return OutcomeReenterChoice, nil
	}
	return OutcomeEmailForm, nil
}

// Reenter handles the reenter button: the user restarts the email step,
// invalidating their outstanding code once a new one is issued.
func (v *Verifier) Reenter(ctx context.Context, userID string) (Outcome, error) {
	verified, err := v.alreadyVerified(ctx, userID)
	if err != nil {
		return 0, err
	}
	if verified {
		return OutcomeAlreadyVerified, nil
	}
	return OutcomeEmailForm, nil
}

// StartCode handles the code button. Without an outstanding code there is
// nothing to enter, so the user is pointed at the email step.
func (v *Verifier) StartCode(ctx context.Context, userID string) (Outcome, error) {
	verified, err := v.alreadyVerified(ctx, userID)
	if err != nil {
		return 0, err
	}
	if verified {
		return OutcomeAlreadyVerified, nil
	}
	if v.codes.Has(userID) {
		return OutcomeCodeForm, nil
	}
	return OutcomeEnterEmailFirst, nil
}

// SubmitEmail handles the email form: looks the member up, and on a hit
// issues a fresh 6-digit code and emails it. A dispatch failure is
// surfaced to the user; the code stays issued so a reenter can retry.
func (v *Verifier) SubmitEmail(ctx context.Context, userID, emailAddr string) (Outcome, error) {
	verified, err := v.alreadyVerified(ctx, userID)
	if err != nil {
		return 0, err
	}
	if verified {
		return OutcomeAlreadyVerified, nil
	}

	member, err := v.directory.FindActiveMember(ctx, emailAddr)
	if err != nil {
		return 0, fmt.Errorf("member lookup: %w", err)
	}
	if member == nil {
		return OutcomeNotMember, nil
	}

	code := GenerateCode()
	v.codes.Issue(userID, code)

	if err := v.sender.Send(ctx, member, code); err != nil {
		metrics.EmailsSentTotal.WithLabelValues("failure").Inc()
		v.logger.Error("send verification email", "user_id", userID, "error", err)
		return OutcomeEmailFailed, nil
	}
	metrics.EmailsSentTotal.WithLabelValues("success").Inc()

	v.logger.Info("verification code issued", "user_id", userID)
	return OutcomeCodeSent, nil
}

// SubmitCode handles the code form: an atomic match-and-consume against
// the registry, then the role grant.
func (v *Verifier) SubmitCode(ctx context.Context, userID, code string) (Outcome, error) {
	verified, err := v.alreadyVerified(ctx, userID)
	if err != nil {
		return 0, err
	}
	if verified {
		return OutcomeAlreadyVerified, nil
	}

	switch v.codes.Redeem(userID, code) {
	case registry.RedeemMatched:
		if err := v.roles.GrantVerifiedRole(ctx, userID); err != nil {
			metrics.VerificationsTotal.WithLabelValues("grant_failed").Inc()
			return 0, fmt.Errorf("grant role: %w", err)
		}
		metrics.VerificationsTotal.WithLabelValues("verified").Inc()
		v.logger.Info("user verified", "user_id", userID)
		return OutcomeVerified, nil
	case registry.RedeemMismatch:
		metrics.VerificationsTotal.WithLabelValues("mismatch").Inc()
		return OutcomeCodeMismatch, nil
	default:
		metrics.VerificationsTotal.WithLabelValues("no_pending").Inc()
		return OutcomeNoPendingCode, nil
	}
}

func (v *Verifier) alreadyVerified(ctx context.Context, userID string) (bool, error) {
	has, err := v.roles.HasVerifiedRole(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("check verified role: %w", err)
	}
	return has, nil
}
