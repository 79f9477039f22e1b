package discord

// User-visible reply text. All replies are ephemeral.
const (
	msgAlreadyVerified = "Error: You are already verified!"
	msgReenterChoice   = "You've already entered your email. Would you like to reenter your email and get a new code?"
	msgEnterEmailFirst = "Please press the other button to enter your email first."
	msgCodeSent        = "Please check your email for your verification code. Then press the gray button above to enter your code."
	msgEmailFailed     = "We found your membership but couldn't send your verification email. Please contact an admin."
	msgVerified        = "Your account has successfully been verified! Enjoy the server!"
	msgCodeMismatch    = "Error: Incorrect verification code entered"
	msgNoPendingCode   = "Error: Verification code not found, please enter your email again"
	msgUnknown         = "Error: Unknown interaction"
	msgGenericError    = "There was an error while executing this command!"
)

// msgNotMember needs the join link, so it is built in the bot.
