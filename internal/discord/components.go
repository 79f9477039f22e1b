package discord

import "github.com/bwmarrin/discordgo"

// emailModal is the single-field form for entering the membership email.
func emailModal() *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		CustomID: customIDEmailModal,
		Title:    "Enter Your Email Address",
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.TextInput{
						CustomID:    fieldEmail,
						Label:       "Email",
						Style:       discordgo.TextInputShort,
						Placeholder: "Enter the email address associated with your USA account",
						Required:    true,
						MinLength:   6,
					},
				},
			},
		},
	}
}

// codeModal is the single-field form for entering the 6-digit code.
func codeModal() *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		CustomID: customIDCodeModal,
		Title:    "Enter Your Verification Code",
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{
				Components: []discordgo.MessageComponent{
					discordgo.TextInput{
						CustomID:    fieldCode,
						Label:       "Code",
						Style:       discordgo.TextInputShort,
						Placeholder: "Enter the verification code sent to your email",
						Required:    true,
						MinLength:   6,
						MaxLength:   6,
					},
				},
			},
		},
	}
}

// reenterRow is the single green button offered when a code is already
// outstanding.
func reenterRow() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Reenter Email",
					Style:    discordgo.SuccessButton,
					CustomID: customIDReenterButton,
				},
			},
		},
	}
}

// entryRow holds the two buttons the announcement message wires up.
func entryRow() []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Enter Email",
					Style:    discordgo.SuccessButton,
					CustomID: customIDEmailButton,
				},
				discordgo.Button{
					Label:    "Enter Verification Code",
					Style:    discordgo.SecondaryButton,
					CustomID: customIDCodeButton,
				},
			},
		},
	}
}
