package discord

import (
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// Announcer posts the verification instructions message with the two entry
// buttons to the verification channel. It is a one-shot publisher with no
// shared state with the bot beyond the button custom IDs.
type Announcer struct {
	session   *discordgo.Session
	channelID string
	joinURL   string
	logger    *slog.Logger
}

func NewAnnouncer(session *discordgo.Session, channelID, joinURL string, logger *slog.Logger) *Announcer {
	return &Announcer{
		session:   session,
		channelID: channelID,
		joinURL:   joinURL,
		logger:    logger.With("component", "announcer"),
	}
}

// Publish opens the session, sends the message, and disconnects.
func (a *Announcer) Publish() error {
	a.session.Identify.Intents = discordgo.IntentsGuilds

	if err := a.session.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	defer func() { _ = a.session.Close() }()

	msg := &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{a.embed()},
		Components: entryRow(),
	}
	if _, err := a.session.ChannelMessageSendComplex(a.channelID, msg); err != nil {
		return fmt.Errorf("send announcement: %w", err)
	}

	a.logger.Info("announcement published", "channel_id", a.channelID)
	return nil
}

func (a *Announcer) embed() *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title: "Welcome to the Unicycling Society of America Discord Server",
		Description: fmt.Sprintf(
			"If you have a USA membership, please follow the steps below to gain access to the members-only channels! [Click here](%s) to become a member!",
			a.joinURL,
		),
		Color: 0xFF0000,
		Fields: []*discordgo.MessageEmbedField{
			{
				Name:  "Step 1",
				Value: "Click the green button labeled `Enter Email` and enter the email associated with your USA account. If your email goes through, continue to step 2.",
			},
			{
				Name:  "Step 2",
				Value: "Once you've received an email, click the gray button labeled `Enter Verification Code` and enter the 6 digit verification code included in the email.",
			},
			{
				Name:  "That's it!",
				Value: "We hope you enjoy chatting with other USA members here on Discord! If you need help verifying, send a message in the help channel.",
			},
		},
	}
}
