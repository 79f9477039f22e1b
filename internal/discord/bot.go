// Package discord adapts the chat platform's interaction events to the
// verification state machine and its decisions back to UI actions. It is
// presentation glue: no verification state lives here.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/bwmarrin/discordgo"

	"github.com/uniusa/verify-bot/internal/eventid"
	"github.com/uniusa/verify-bot/internal/metrics"
	"github.com/uniusa/verify-bot/internal/verification"
)

// Component custom IDs and modal field IDs. The announcement publisher
// wires up the same button IDs; nothing else is shared with it.
const (
	customIDEmailButton   = "email"
	customIDReenterButton = "email_reenter"
	customIDCodeButton    = "code"
	customIDEmailModal    = "email_modal"
	customIDCodeModal     = "code_modal"

	fieldEmail = "email_field"
	fieldCode  = "code_field"
)

// verifier is the subset of verification.Verifier the bot needs.
// Defined here (point of use) so tests can inject a fake.
type verifier interface {
	StartEmail(ctx context.Context, userID string) (verification.Outcome, error)
	Reenter(ctx context.Context, userID string) (verification.Outcome, error)
	StartCode(ctx context.Context, userID string) (verification.Outcome, error)
	SubmitEmail(ctx context.Context, userID, email string) (verification.Outcome, error)
	SubmitCode(ctx context.Context, userID, code string) (verification.Outcome, error)
}

// Bot routes interaction events into the verifier and renders the outcome
// as exactly one ephemeral reply or form per event. No failure is allowed
// to propagate into the discordgo runtime.
type Bot struct {
	session  *discordgo.Session
	verifier verifier
	joinURL  string
	logger   *slog.Logger
}

func NewBot(session *discordgo.Session, v verifier, joinURL string, logger *slog.Logger) *Bot {
	return &Bot{
		session:  session,
		verifier: v,
		joinURL:  joinURL,
		logger:   logger.With("component", "bot"),
	}
}

// Start registers the event handlers and opens the gateway connection.
func (b *Bot) Start() error {
	b.session.Identify.Intents = discordgo.IntentsGuilds
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onInteraction)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	return nil
}

func (b *Bot) Close() error {
	return b.session.Close()
}

func (b *Bot) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	b.logger.Info("logged in", "user", r.User.Username+"#"+r.User.Discriminator)
}

func (b *Bot) onInteraction(_ *discordgo.Session, ic *discordgo.InteractionCreate) {
	ctx := eventid.WithEventID(context.Background(), eventid.New())

	defer func() {
		if r := recover(); r != nil {
			b.logger.ErrorContext(ctx, "interaction handler panic", "panic", r)
			b.reply(ctx, ic, msgGenericError)
		}
	}()

	switch ic.Type {
	case discordgo.InteractionMessageComponent:
		b.handleButton(ctx, ic)
	case discordgo.InteractionModalSubmit:
		b.handleModal(ctx, ic)
	}
}

func (b *Bot) handleButton(ctx context.Context, ic *discordgo.InteractionCreate) {
	userID := interactionUserID(ic)
	customID := ic.MessageComponentData().CustomID
	metrics.InteractionsTotal.WithLabelValues(interactionKind(customID)).Inc()

	switch customID {
	case customIDEmailButton:
		b.dispatch(ctx, ic, func() (verification.Outcome, error) {
			return b.verifier.StartEmail(ctx, userID)
		})
	case customIDReenterButton:
		b.dispatch(ctx, ic, func() (verification.Outcome, error) {
			return b.verifier.Reenter(ctx, userID)
		})
	case customIDCodeButton:
		b.dispatch(ctx, ic, func() (verification.Outcome, error) {
			return b.verifier.StartCode(ctx, userID)
		})
	default:
		b.reply(ctx, ic, msgUnknown)
	}
}

func (b *Bot) handleModal(ctx context.Context, ic *discordgo.InteractionCreate) {
	userID := interactionUserID(ic)
	data := ic.ModalSubmitData()
	metrics.InteractionsTotal.WithLabelValues(interactionKind(data.CustomID)).Inc()

	switch data.CustomID {
	case customIDEmailModal:
		b.dispatch(ctx, ic, func() (verification.Outcome, error) {
			return b.verifier.SubmitEmail(ctx, userID, modalValue(data, fieldEmail))
		})
	case customIDCodeModal:
		b.dispatch(ctx, ic, func() (verification.Outcome, error) {
			return b.verifier.SubmitCode(ctx, userID, modalValue(data, fieldCode))
		})
	default:
		b.reply(ctx, ic, msgUnknown)
	}
}

// dispatch runs one state-machine call and renders its outcome. Any error
// becomes the generic reply plus a server log line.
func (b *Bot) dispatch(ctx context.Context, ic *discordgo.InteractionCreate, op func() (verification.Outcome, error)) {
	outcome, err := op()
	if err != nil {
		b.logger.ErrorContext(ctx, "handle interaction", "user_id", interactionUserID(ic), "error", err)
		b.reply(ctx, ic, msgGenericError)
		return
	}

	switch outcome {
	case verification.OutcomeEmailForm:
		b.showModal(ctx, ic, emailModal())
	case verification.OutcomeCodeForm:
		b.showModal(ctx, ic, codeModal())
	case verification.OutcomeReenterChoice:
		b.replyWithComponents(ctx, ic, msgReenterChoice, reenterRow())
	case verification.OutcomeNotMember:
		b.reply(ctx, ic, fmt.Sprintf("You are not a USA member! Visit %s to become a member before you verify!", b.joinURL))
	default:
		if msg, ok := replyFor(outcome); ok {
			b.reply(ctx, ic, msg)
		} else {
			b.logger.ErrorContext(ctx, "unmapped outcome", "outcome", outcome)
			b.reply(ctx, ic, msgGenericError)
		}
	}
}

// replyFor maps the outcomes answered with plain text to their message.
func replyFor(o verification.Outcome) (string, bool) {
	switch o {
	case verification.OutcomeAlreadyVerified:
		return msgAlreadyVerified, true
	case verification.OutcomeEnterEmailFirst:
		return msgEnterEmailFirst, true
	case verification.OutcomeCodeSent:
		return msgCodeSent, true
	case verification.OutcomeEmailFailed:
		return msgEmailFailed, true
	case verification.OutcomeVerified:
		return msgVerified, true
	case verification.OutcomeCodeMismatch:
		return msgCodeMismatch, true
	case verification.OutcomeNoPendingCode:
		return msgNoPendingCode, true
	default:
		return "", false
	}
}

// interactionKind classifies a custom ID for the metrics label, keeping
// the label set bounded for unrecognized IDs.
func interactionKind(customID string) string {
	switch customID {
	case customIDEmailButton, customIDReenterButton, customIDCodeButton,
		customIDEmailModal, customIDCodeModal:
		return customID
	default:
		return "unknown"
	}
}

func interactionUserID(ic *discordgo.InteractionCreate) string {
	if ic.Member != nil && ic.Member.User != nil {
		return ic.Member.User.ID
	}
	if ic.User != nil {
		return ic.User.ID
	}
	return ""
}

func modalValue(data discordgo.ModalSubmitInteractionData, fieldID string) string {
	for _, row := range data.Components {
		actionRow, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, comp := range actionRow.Components {
			if input, ok := comp.(*discordgo.TextInput); ok && input.CustomID == fieldID {
				return input.Value
			}
		}
	}
	return ""
}

// reply sends an ephemeral text reply. Best-effort: a failed send is
// logged and swallowed, never retried.
func (b *Bot) reply(ctx context.Context, ic *discordgo.InteractionCreate, content string) {
	b.respond(ctx, ic, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

func (b *Bot) replyWithComponents(ctx context.Context, ic *discordgo.InteractionCreate, content string, components []discordgo.MessageComponent) {
	b.respond(ctx, ic, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:    content,
			Components: components,
			Flags:      discordgo.MessageFlagsEphemeral,
		},
	})
}

func (b *Bot) showModal(ctx context.Context, ic *discordgo.InteractionCreate, data *discordgo.InteractionResponseData) {
	b.respond(ctx, ic, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: data,
	})
}

func (b *Bot) respond(ctx context.Context, ic *discordgo.InteractionCreate, resp *discordgo.InteractionResponse) {
	if err := b.session.InteractionRespond(ic.Interaction, resp); err != nil {
		b.logger.ErrorContext(ctx, "send interaction response", "error", err)
	}
}

// GuildRoles implements the verifier's Roles port against a guild.
type GuildRoles struct {
	session *discordgo.Session
	guildID string
	roleID  string
}

func NewGuildRoles(session *discordgo.Session, guildID, roleID string) *GuildRoles {
	return &GuildRoles{session: session, guildID: guildID, roleID: roleID}
}

// HasVerifiedRole reports whether the user already holds the access role.
// The state cache answers most lookups; a miss falls back to the REST API.
func (r *GuildRoles) HasVerifiedRole(_ context.Context, userID string) (bool, error) {
	member, err := r.session.State.Member(r.guildID, userID)
	if err != nil {
		member, err = r.session.GuildMember(r.guildID, userID)
		if err != nil {
			return false, fmt.Errorf("fetch guild member: %w", err)
		}
	}
	return slices.Contains(member.Roles, r.roleID), nil
}

// GrantVerifiedRole adds the access role. Granting an already-held role is
// a no-op on the platform side.
func (r *GuildRoles) GrantVerifiedRole(_ context.Context, userID string) error {
	if err := r.session.GuildMemberRoleAdd(r.guildID, userID, r.roleID); err != nil {
		return fmt.Errorf("add role: %w", err)
	}
	return nil
}
