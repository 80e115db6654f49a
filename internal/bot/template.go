package bot

import (
	"strconv"
	"strings"

	"github.com/Nekoplex/VkGPTBot/internal/convo"
)

// expandInstructions substitutes recognized placeholders in persona
// instruction text with the acting user's and chat's metadata. user and
// chat may be nil; their placeholders then resolve to neutral values.
//
// Recognized placeholders: {fullname}, {user_id}, {chat_title}, {chat_id}.
func expandInstructions(instructions string, user *UserInfo, chat *ChatInfo) string {
	fullName := convo.AnonymousName
	userID := ""
	if user != nil {
		if user.FullName != "" {
			fullName = user.FullName
		}
		userID = strconv.FormatInt(user.ID, 10)
	}

	chatTitle := ""
	chatID := ""
	if chat != nil {
		chatTitle = chat.Title
		chatID = strconv.FormatInt(chat.ID, 10)
	}

	return strings.NewReplacer(
		"{fullname}", fullName,
		"{user_id}", userID,
		"{chat_title}", chatTitle,
		"{chat_id}", chatID,
	).Replace(instructions)
}
