package bot

// Reply markers. System notices and generated replies carry distinct
// prefixes so users can tell them apart at a glance.
const (
	systemMarker = "⚙️"
	aiMarker     = "🤖"
)

// Canned replies for outcomes that are normal, not errors.
const (
	replyGroupNoAccount   = "Nope, only individual users can create an account — groups don't qualify."
	replyAlreadyHasAcc    = "You already have an account here. Embrace it."
	replyAccountCreated   = "Account ready; you can now shape the bot's behavior!"
	replyNeedAccount      = "You need to register first!"
	replyNoAccountToDrop  = "You don't even have an account. A great reason to create one!"
	replyAccountDeleted   = "Done... but why?"
	replyNoPublicMoods    = "There are no public moods yet!"
	replyNoOwnMoods       = "Surprisingly, you haven't created a mood of your own yet!"
	replyNotYourMood      = "That's not your mood! Make a copy of it and edit that as you like."
	replyMoodUnavailable  = "No mood with that id exists, or it is private!"
	replyQuotaExceeded    = "You can't create more than %d moods!"
	replyUnknownParameter = "Hm... What? No such parameter, sorry!\nAvailable parameters: name, description, visibility, instructions"
	replyBadEditInput     = "That doesn't parse! Usage: mood <parameter> <id> [value]"
	replyNothingToCount   = "Umm... Count tokens of what, exactly?"
)

const helpMessage = systemMarker + ` Commands:
• start — create an account
• help — this message
• settings — show your current mood
• moods — list public moods
• mymoods — list moods you created
• mood <id> — select a mood
• moodinfo <id> — show a mood's details
• newmood <instructions> — create a mood
• mood <parameter> <id> [value] — edit your mood (name, description, visibility, instructions)
• tokenize <text> — estimate token count
• delete — delete your account
Anything else is sent to the assistant.`
