package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Nekoplex/VkGPTBot/internal/ai"
	"github.com/Nekoplex/VkGPTBot/internal/metrics"
	"github.com/Nekoplex/VkGPTBot/internal/models"
	"github.com/Nekoplex/VkGPTBot/internal/persona"
)

// Start creates an account for the user. Group identities (negative ids)
// and already-registered users get informative refusals, not errors.
func (b *Bot) Start(ctx context.Context, userID int64) (string, error) {
	if userID < 0 {
		return systemMarker + " " + replyGroupNoAccount, nil
	}

	registered, err := b.store.IsRegistered(ctx, userID)
	if err != nil {
		return "", err
	}
	if registered {
		return systemMarker + " " + replyAlreadyHasAcc, nil
	}

	if err := b.store.CreateAccount(ctx, userID); err != nil {
		return "", err
	}
	metrics.AccountsCreated.Inc()
	b.log.Info().Int64("user_id", userID).Msg("account created")
	return systemMarker + " " + replyAccountCreated, nil
}

// Help returns the command overview.
func (b *Bot) Help() string {
	return helpMessage
}

// Tokenize estimates the token count and cost of a text.
func (b *Bot) Tokenize(query string) string {
	if strings.TrimSpace(query) == "" {
		return systemMarker + " " + replyNothingToCount
	}
	tokens := ai.EstimateTokens(query)
	return fmt.Sprintf("%s The message is about %d token(s) ($%.5f)!", systemMarker, tokens, ai.EstimateCost(tokens))
}

// Settings shows the user's currently selected mood.
func (b *Bot) Settings(ctx context.Context, userID int64) (string, error) {
	registered, err := b.store.IsRegistered(ctx, userID)
	if err != nil {
		return "", err
	}
	if !registered {
		return systemMarker + " " + replyNeedAccount, nil
	}

	active, _ := b.personas.ResolveActive(ctx, userID)
	return fmt.Sprintf("%s Current mood: %s (id: %d)", systemMarker, active.Name, active.ID), nil
}

// MoodList lists all public moods.
func (b *Bot) MoodList(ctx context.Context) (string, error) {
	moods, err := b.personas.ListPublic(ctx)
	if err != nil {
		return "", err
	}
	if len(moods) == 0 {
		return systemMarker + " " + replyNoPublicMoods, nil
	}

	var sb strings.Builder
	sb.WriteString(systemMarker + " All current public moods:")
	for _, m := range moods {
		fmt.Fprintf(&sb, "\n• %s (id: %d)", m.Name, m.ID)
	}
	return sb.String(), nil
}

// MoodInfo shows a mood's details when it is visible to the requester.
// Private moods of other users are reported as nonexistent.
func (b *Bot) MoodInfo(ctx context.Context, requesterID, moodID int64) (string, error) {
	m, err := b.personas.Get(ctx, requesterID, moodID)
	if err != nil {
		if errors.Is(err, persona.ErrNotFoundOrPrivate) {
			return systemMarker + " " + replyMoodUnavailable, nil
		}
		return "", err
	}

	desc := m.Description
	if desc == "" {
		desc = "<none>"
	}
	return fmt.Sprintf(
		"%s Mood by user %d — id: %d\n👤 | Name: %s\n🗒 | Description: %s\n🤖 | Instructions: %s",
		systemMarker, m.CreatorID, m.ID, m.Name, desc, m.Instructions,
	), nil
}

// SetMood selects a mood for the user.
func (b *Bot) SetMood(ctx context.Context, userID, moodID int64) (string, error) {
	registered, err := b.store.IsRegistered(ctx, userID)
	if err != nil {
		return "", err
	}
	if !registered {
		return systemMarker + " " + replyNeedAccount, nil
	}

	m, err := b.personas.Select(ctx, userID, moodID)
	if err != nil {
		if errors.Is(err, persona.ErrNotFoundOrPrivate) {
			return systemMarker + " " + replyMoodUnavailable, nil
		}
		return "", err
	}
	return fmt.Sprintf("%s You selected the mood %q (id: %d)", systemMarker, m.Name, m.ID), nil
}

// CreateMoodUsage explains how to create a mood.
func (b *Bot) CreateMoodUsage() string {
	return fmt.Sprintf(
		"%s To create a new mood, write %q."+
			"\nFor example: You are now a pirate. Answer every question like one.",
		systemMarker, b.prefix+"newmood <instructions>",
	)
}

// CreateMood creates a new private mood from the given instructions. The
// instructions pass input moderation before anything is persisted.
func (b *Bot) CreateMood(ctx context.Context, userID int64, instructions string) (string, error) {
	registered, err := b.store.IsRegistered(ctx, userID)
	if err != nil {
		return "", err
	}
	if !registered {
		return fmt.Sprintf("%s To create a mood you first need an account. Use %q.", systemMarker, b.prefix+"start"), nil
	}

	verdict, err := b.moderator.Check(ctx, instructions, ai.StageInput)
	if err != nil {
		return "", err
	}
	if verdict.Flagged {
		return verdict.Reason, nil
	}

	id, err := b.personas.Create(ctx, userID, instructions)
	if err != nil {
		if errors.Is(err, persona.ErrQuotaExceeded) {
			return fmt.Sprintf(systemMarker+" "+replyQuotaExceeded, b.personas.Quota()), nil
		}
		return "", err
	}

	return fmt.Sprintf(
		"%s You created a new mood! Its id: %d"+
			"\nNow you can:"+
			"\n1. Rename it: %q"+
			"\n2. Describe it: %q"+
			"\n3. Make it public: %q"+
			"\n4. Change its instructions: %q",
		systemMarker, id,
		fmt.Sprintf("%smood name %d <new name>", b.prefix, id),
		fmt.Sprintf("%smood description %d <description>", b.prefix, id),
		fmt.Sprintf("%smood visibility %d", b.prefix, id),
		fmt.Sprintf("%smood instructions %d <instructions>", b.prefix, id),
	), nil
}

// EditMood parses a whitespace-delimited parameter list
// [field, id, ...value] and applies the edit. Free-text values pass input
// moderation before persisting; visibility takes no value and toggles.
func (b *Bot) EditMood(ctx context.Context, userID int64, params string) (string, error) {
	registered, err := b.store.IsRegistered(ctx, userID)
	if err != nil {
		return "", err
	}
	if !registered {
		return fmt.Sprintf(
			"%s What is there for you to edit? You don't even have an account!"+
				"\n... You can fix that with %q.",
			systemMarker, b.prefix+"start",
		), nil
	}

	parts := strings.Fields(params)
	if len(parts) < 2 {
		return systemMarker + " " + replyBadEditInput, nil
	}

	var field models.PersonaField
	toggleVisibility := false
	switch parts[0] {
	case "name":
		field = models.FieldName
	case "description":
		field = models.FieldDescription
	case "instructions":
		field = models.FieldInstructions
	case "visibility":
		toggleVisibility = true
	default:
		return systemMarker + " " + replyUnknownParameter, nil
	}

	moodID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return systemMarker + " " + replyBadEditInput, nil
	}

	if toggleVisibility {
		public, err := b.personas.ToggleVisibility(ctx, userID, moodID)
		if err != nil {
			if errors.Is(err, persona.ErrForbidden) {
				return systemMarker + " " + replyNotYourMood, nil
			}
			return "", err
		}
		status := "private"
		if public {
			status = "public"
		}
		return fmt.Sprintf("%s The mood's visibility is now %q", systemMarker, status), nil
	}

	// Ownership first: strangers get the same refusal whatever value
	// they submitted, and their text never reaches the moderator.
	if err := b.personas.RequireCreator(ctx, userID, moodID); err != nil {
		if errors.Is(err, persona.ErrForbidden) {
			return systemMarker + " " + replyNotYourMood, nil
		}
		return "", err
	}

	value := strings.Join(parts[2:], " ")
	verdict, err := b.moderator.Check(ctx, value, ai.StageInput)
	if err != nil {
		return "", err
	}
	if verdict.Flagged {
		return verdict.Reason, nil
	}

	if err := b.personas.SetField(ctx, userID, moodID, field, value); err != nil {
		if errors.Is(err, persona.ErrForbidden) {
			return systemMarker + " " + replyNotYourMood, nil
		}
		return "", err
	}
	return fmt.Sprintf("%s You changed the mood's %s!", systemMarker, field), nil
}

// MyMoods lists the moods the user created.
func (b *Bot) MyMoods(ctx context.Context, userID int64) (string, error) {
	registered, err := b.store.IsRegistered(ctx, userID)
	if err != nil {
		return "", err
	}
	if !registered {
		return fmt.Sprintf("%s To make a mood you first need an account. Use %q.", systemMarker, b.prefix+"start"), nil
	}

	moods, err := b.personas.ListCreated(ctx, userID)
	if err != nil {
		return "", err
	}
	if len(moods) == 0 {
		return fmt.Sprintf("%s %s\nCreate one with %q.", systemMarker, replyNoOwnMoods, b.prefix+"newmood <instructions>"), nil
	}

	var sb strings.Builder
	sb.WriteString(systemMarker + " Your moods:")
	for _, m := range moods {
		fmt.Fprintf(&sb, "\n• %s (id: %d)", m.Name, m.ID)
	}
	return sb.String(), nil
}

// DeleteAccount removes the user's account. Created moods survive.
func (b *Bot) DeleteAccount(ctx context.Context, userID int64) (string, error) {
	registered, err := b.store.IsRegistered(ctx, userID)
	if err != nil {
		return "", err
	}
	if !registered {
		return systemMarker + " " + replyNoAccountToDrop, nil
	}

	if err := b.store.DeleteAccount(ctx, userID); err != nil {
		return "", err
	}
	b.log.Info().Int64("user_id", userID).Msg("account deleted")
	return systemMarker + " " + replyAccountDeleted, nil
}
