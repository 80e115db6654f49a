// Package convo holds the value types for a single generation request:
// a message, an ordered conversation and a composed prompt. Pure data,
// no I/O.
package convo

import "strings"

// AnonymousName is interpolated at render time for messages whose author
// has no display name. The empty name itself is preserved on the Message
// so callers can still tell the difference.
const AnonymousName = "Anonymous"

// Message is one conversation turn. Immutable once constructed.
type Message struct {
	Text        string
	AuthorID    string
	DisplayName string
}

// Conversation is an ordered sequence of messages; insertion order is
// chronological turn order.
type Conversation struct {
	messages []Message
}

// New creates a conversation from the given messages, oldest first.
func New(messages ...Message) *Conversation {
	return &Conversation{messages: messages}
}

// Prepend inserts m before all existing messages. Used to place a
// quoted/replied-to message ahead of the triggering one.
func (c *Conversation) Prepend(m Message) {
	c.messages = append([]Message{m}, c.messages...)
}

// Len returns the number of messages.
func (c *Conversation) Len() int { return len(c.messages) }

// Messages returns the turns in order. Callers must not mutate the slice.
func (c *Conversation) Messages() []Message { return c.messages }

// Render materializes the conversation as one text block, one line per
// message in sequence order. With includeDisplayName the author's display
// name (or the anonymity placeholder) prefixes each line; without it only
// the raw texts are joined, which is what the generation backend sees.
func (c *Conversation) Render(includeDisplayName bool) string {
	var b strings.Builder
	for i, m := range c.messages {
		if i > 0 {
			b.WriteString("\n")
		}
		if includeDisplayName {
			name := m.DisplayName
			if name == "" {
				name = AnonymousName
			}
			b.WriteString(name)
			b.WriteString(": ")
		}
		b.WriteString(m.Text)
	}
	return b.String()
}

// Prompt is a composed generation request: an optional system directive
// plus the conversation. Built per request by the orchestrator and never
// shared across requests.
type Prompt struct {
	Header *Message
	Convo  *Conversation
}
