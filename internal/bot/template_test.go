package bot

import "testing"

func TestExpandInstructions(t *testing.T) {
	user := &UserInfo{ID: 7, FullName: "Alice"}
	chat := &ChatInfo{ID: 12, Title: "lounge"}

	got := expandInstructions("Greet {fullname} (id {user_id}) in {chat_title}/{chat_id}.", user, chat)
	want := "Greet Alice (id 7) in lounge/12."
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestExpandInstructionsAnonymousUser(t *testing.T) {
	got := expandInstructions("Hello {fullname}", &UserInfo{ID: 7}, nil)
	if got != "Hello Anonymous" {
		t.Fatalf("expected anonymity placeholder, got %q", got)
	}
}

func TestExpandInstructionsNilMetadata(t *testing.T) {
	got := expandInstructions("{fullname}|{user_id}|{chat_title}|{chat_id}", nil, nil)
	if got != "Anonymous|||" {
		t.Fatalf("expected neutral values, got %q", got)
	}
}

func TestExpandInstructionsNoPlaceholders(t *testing.T) {
	got := expandInstructions("Be terse.", &UserInfo{ID: 1, FullName: "A"}, nil)
	if got != "Be terse." {
		t.Fatalf("plain instructions must pass through, got %q", got)
	}
}
