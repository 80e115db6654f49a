package convo

import (
	"strings"
	"testing"
)

func TestRenderWithoutNames(t *testing.T) {
	c := New(
		Message{Text: "first", AuthorID: "1", DisplayName: "Alice"},
		Message{Text: "second", AuthorID: "2", DisplayName: "Bob"},
	)

	got := c.Render(false)
	if got != "first\nsecond" {
		t.Fatalf("expected raw texts only, got %q", got)
	}
}

func TestRenderWithNames(t *testing.T) {
	c := New(
		Message{Text: "hi", AuthorID: "1", DisplayName: "Alice"},
	)

	got := c.Render(true)
	if got != "Alice: hi" {
		t.Fatalf("expected name prefix, got %q", got)
	}
}

func TestRenderAnonymousFallback(t *testing.T) {
	c := New(Message{Text: "who am I", AuthorID: "1"})

	got := c.Render(true)
	if got != AnonymousName+": who am I" {
		t.Fatalf("expected anonymity placeholder, got %q", got)
	}

	// The raw absence is preserved on the message itself.
	if c.Messages()[0].DisplayName != "" {
		t.Fatal("render must not mutate the message")
	}
}

func TestPrependOrdersBeforeExisting(t *testing.T) {
	c := New(Message{Text: "trigger", AuthorID: "1"})
	c.Prepend(Message{Text: "quoted", AuthorID: "2"})

	got := c.Render(false)
	if !strings.HasPrefix(got, "quoted") {
		t.Fatalf("prepended text must come first, got %q", got)
	}
	quotedAt := strings.Index(got, "quoted")
	triggerAt := strings.Index(got, "trigger")
	if quotedAt > triggerAt {
		t.Fatalf("expected quoted before trigger, got %q", got)
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 messages, got %d", c.Len())
	}
}

func TestRenderEmptyConversation(t *testing.T) {
	c := New()
	if got := c.Render(true); got != "" {
		t.Fatalf("expected empty render, got %q", got)
	}
}
