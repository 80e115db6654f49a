package bot

import (
	"context"
	"strconv"

	"github.com/oklog/ulid/v2"

	"github.com/Nekoplex/VkGPTBot/internal/ai"
	"github.com/Nekoplex/VkGPTBot/internal/convo"
	"github.com/Nekoplex/VkGPTBot/internal/metrics"
	"github.com/Nekoplex/VkGPTBot/internal/persona"
)

// Request carries one triggering message plus, optionally, the message
// it replied to and the chat it arrived from.
type Request struct {
	User      UserInfo
	Text      string
	ReplyUser *UserInfo
	ReplyText string
	Chat      *ChatInfo
}

// Respond runs the conversation pipeline for one request: compose,
// moderate input, resolve persona, generate, moderate output. Moderation
// blocks come back as the gateway's reason text; only backend transport
// failures return an error. No retries, no state across requests.
func (b *Bot) Respond(ctx context.Context, req Request) (string, error) {
	log := b.log.With().
		Str("request_id", ulid.Make().String()).
		Int64("user_id", req.User.ID).
		Logger()

	conv := convo.New(convo.Message{
		Text:        req.Text,
		AuthorID:    strconv.FormatInt(req.User.ID, 10),
		DisplayName: req.User.FullName,
	})
	if req.ReplyUser != nil {
		conv.Prepend(convo.Message{
			Text:        req.ReplyText,
			AuthorID:    strconv.FormatInt(req.ReplyUser.ID, 10),
			DisplayName: req.ReplyUser.FullName,
		})
	}

	// The backend sees raw text without display names.
	rendered := conv.Render(false)

	verdict, err := b.moderator.Check(ctx, rendered, ai.StageInput)
	if err != nil {
		metrics.MessagesHandled.WithLabelValues("failed").Inc()
		return "", err
	}
	if verdict.Flagged {
		metrics.MessagesHandled.WithLabelValues("blocked_input").Inc()
		metrics.ModerationBlocked.WithLabelValues(string(ai.StageInput)).Inc()
		log.Info().Msg("input blocked by moderation")
		return verdict.Reason, nil
	}

	active, source := b.personas.ResolveActive(ctx, req.User.ID)

	// With a quoted message present it is ambiguous whose context the
	// placeholders should resolve to, so contextualization is skipped.
	instructions := active.Instructions
	if req.ReplyUser == nil {
		instructions = expandInstructions(instructions, &req.User, req.Chat)
	}

	prompt := convo.Prompt{
		Header: &convo.Message{Text: instructions},
		Convo:  conv,
	}

	response, err := b.generator.Generate(ctx, prompt)
	if err != nil {
		metrics.MessagesHandled.WithLabelValues("failed").Inc()
		return "", err
	}

	verdict, err = b.moderator.Check(ctx, response, ai.StageOutput)
	if err != nil {
		metrics.MessagesHandled.WithLabelValues("failed").Inc()
		return "", err
	}
	if verdict.Flagged {
		metrics.MessagesHandled.WithLabelValues("blocked_output").Inc()
		metrics.ModerationBlocked.WithLabelValues(string(ai.StageOutput)).Inc()
		log.Info().Msg("output blocked by moderation")
		return verdict.Reason, nil
	}

	metrics.MessagesHandled.WithLabelValues("replied").Inc()
	log.Info().
		Int64("persona_id", active.ID).
		Bool("default_persona", source == persona.SourceDefault).
		Int("reply_len", len(response)).
		Msg("request completed")

	return aiMarker + " " + response, nil
}
