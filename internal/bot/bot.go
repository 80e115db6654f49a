// Package bot is the request-handling core: the conversation pipeline
// that turns a platform message into a moderated generated reply, and
// the thin command handlers around accounts and personas. Everything it
// returns to the user is a plain string; only backend transport failures
// surface as errors.
package bot

import (
	"github.com/rs/zerolog"

	"github.com/Nekoplex/VkGPTBot/internal/ai"
	"github.com/Nekoplex/VkGPTBot/internal/persona"
	"github.com/Nekoplex/VkGPTBot/internal/store"
)

// Bot holds the collaborators shared by all handlers.
type Bot struct {
	store     store.DataStore
	personas  *persona.Manager
	moderator ai.Moderator
	generator ai.Generator
	prefix    string
	log       zerolog.Logger
}

// New creates a Bot. prefix is the command prefix shown in usage strings.
func New(st store.DataStore, personas *persona.Manager, moderator ai.Moderator, generator ai.Generator, prefix string, log zerolog.Logger) *Bot {
	if prefix == "" {
		prefix = "!"
	}
	return &Bot{
		store:     st,
		personas:  personas,
		moderator: moderator,
		generator: generator,
		prefix:    prefix,
		log:       log,
	}
}

// UserInfo identifies the acting platform user. FullName may be empty
// (platform anonymity).
type UserInfo struct {
	ID       int64
	FullName string
}

// ChatInfo identifies the chat a message arrived from.
type ChatInfo struct {
	ID    int64
	Title string
}
