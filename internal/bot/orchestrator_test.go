package bot

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nekoplex/VkGPTBot/internal/ai"
	"github.com/Nekoplex/VkGPTBot/internal/convo"
	"github.com/Nekoplex/VkGPTBot/internal/persona"
	"github.com/Nekoplex/VkGPTBot/internal/store"
)

// fakeModerator records checks and blocks texts listed in blocked.
type fakeModerator struct {
	blocked map[string]string // text -> reason
	calls   []ai.Stage
	err     error
}

func (f *fakeModerator) Check(ctx context.Context, text string, stage ai.Stage) (ai.Verdict, error) {
	f.calls = append(f.calls, stage)
	if f.err != nil {
		return ai.Verdict{}, f.err
	}
	if reason, ok := f.blocked[text]; ok {
		return ai.Verdict{Flagged: true, Reason: reason}, nil
	}
	return ai.Verdict{}, nil
}

// fakeGenerator records prompts and returns a fixed reply.
type fakeGenerator struct {
	reply string
	err   error
	calls int
	last  convo.Prompt
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt convo.Prompt) (string, error) {
	f.calls++
	f.last = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type fixture struct {
	bot   *Bot
	store *store.MemoryStore
	mod   *fakeModerator
	gen   *fakeGenerator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.NewMemoryStore()
	mod := &fakeModerator{blocked: map[string]string{}}
	gen := &fakeGenerator{reply: "Hello."}
	personas := persona.NewManager(st, 5, nil, zerolog.Nop())
	return &fixture{
		bot:   New(st, personas, mod, gen, "!", zerolog.Nop()),
		store: st,
		mod:   mod,
		gen:   gen,
	}
}

func TestRespondHappyPath(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.store.CreateAccount(ctx, 2))

	// User 2 selects a public persona with terse instructions.
	id, err := f.store.InsertPersona(ctx, 2, "Terse", "Be terse.", 0)
	require.NoError(t, err)
	require.NoError(t, f.store.SetPersonaVisibility(ctx, id, true))
	require.NoError(t, f.store.SetSelectedPersona(ctx, 2, id))

	reply, err := f.bot.Respond(ctx, Request{
		User: UserInfo{ID: 2, FullName: "Eve"},
		Text: "hi",
	})
	require.NoError(t, err)
	assert.Equal(t, aiMarker+" Hello.", reply)

	require.NotNil(t, f.gen.last.Header)
	assert.Equal(t, "Be terse.", f.gen.last.Header.Text)
	assert.Equal(t, []ai.Stage{ai.StageInput, ai.StageOutput}, f.mod.calls)
}

func TestRespondInputBlockedShortCircuits(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.mod.blocked["bad words"] = "blocked: profanity"

	reply, err := f.bot.Respond(ctx, Request{
		User: UserInfo{ID: 1},
		Text: "bad words",
	})
	require.NoError(t, err)

	// The gateway's reason comes back verbatim and generation never runs.
	assert.Equal(t, "blocked: profanity", reply)
	assert.Equal(t, 0, f.gen.calls)
	assert.Equal(t, []ai.Stage{ai.StageInput}, f.mod.calls)
}

func TestRespondOutputBlocked(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.gen.reply = "something rude"
	f.mod.blocked["something rude"] = "blocked: harassment"

	reply, err := f.bot.Respond(ctx, Request{
		User: UserInfo{ID: 1},
		Text: "hi",
	})
	require.NoError(t, err)
	assert.Equal(t, "blocked: harassment", reply)
}

func TestRespondPrependsQuotedMessage(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.bot.Respond(ctx, Request{
		User:      UserInfo{ID: 1, FullName: "Alice"},
		Text:      "what do you think?",
		ReplyUser: &UserInfo{ID: 2, FullName: "Bob"},
		ReplyText: "the earth is flat",
	})
	require.NoError(t, err)

	msgs := f.gen.last.Convo.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "the earth is flat", msgs[0].Text)
	assert.Equal(t, "what do you think?", msgs[1].Text)
}

func TestRespondContextualizesWithoutReply(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.store.CreateAccount(ctx, 1))

	id, err := f.store.InsertPersona(ctx, 1, "Greeter", "Greet {fullname} warmly.", 0)
	require.NoError(t, err)
	require.NoError(t, f.store.SetSelectedPersona(ctx, 1, id))

	_, err = f.bot.Respond(ctx, Request{
		User: UserInfo{ID: 1, FullName: "Alice"},
		Text: "hi",
	})
	require.NoError(t, err)
	assert.Equal(t, "Greet Alice warmly.", f.gen.last.Header.Text)
}

func TestRespondSkipsContextualizationWithReply(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.store.CreateAccount(ctx, 1))

	id, err := f.store.InsertPersona(ctx, 1, "Greeter", "Greet {fullname} warmly.", 0)
	require.NoError(t, err)
	require.NoError(t, f.store.SetSelectedPersona(ctx, 1, id))

	// Ambiguous whose context applies, so the placeholder stays raw.
	_, err = f.bot.Respond(ctx, Request{
		User:      UserInfo{ID: 1, FullName: "Alice"},
		Text:      "hi",
		ReplyUser: &UserInfo{ID: 2, FullName: "Bob"},
		ReplyText: "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, "Greet {fullname} warmly.", f.gen.last.Header.Text)
}

func TestRespondDefaultsToSystemPersona(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// Unregistered user still gets a reply, under the system persona.
	_, err := f.bot.Respond(ctx, Request{
		User: UserInfo{ID: 404},
		Text: "hi",
	})
	require.NoError(t, err)
	require.NotNil(t, f.gen.last.Header)
	assert.Contains(t, f.gen.last.Header.Text, "helpful assistant")
}

func TestRespondPropagatesBackendFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.gen.err = errors.New("connection refused")

	_, err := f.bot.Respond(ctx, Request{User: UserInfo{ID: 1}, Text: "hi"})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "connection refused"))
}

func TestRespondPropagatesModerationFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.mod.err = errors.New("moderation down")

	_, err := f.bot.Respond(ctx, Request{User: UserInfo{ID: 1}, Text: "hi"})
	require.Error(t, err)
	assert.Equal(t, 0, f.gen.calls)
}
