// Package ai holds the boundaries to the moderation and text-generation
// backends. The rest of the system treats both as opaque: moderation is a
// pass/fail oracle, generation returns text or a backend error.
package ai

import (
	"context"

	"github.com/Nekoplex/VkGPTBot/internal/convo"
)

// Stage tags a moderation call. User-submitted and generated text may be
// held to different policy, so the two passes are distinguished.
type Stage string

const (
	StageInput  Stage = "input"
	StageOutput Stage = "output"
)

// Verdict is a moderation decision. Reason is set only when Flagged and
// is returned to the end user verbatim.
type Verdict struct {
	Flagged bool
	Reason  string
}

// Moderator classifies text as allowed or blocked.
type Moderator interface {
	Check(ctx context.Context, text string, stage Stage) (Verdict, error)
}

// Generator produces text for a composed prompt.
type Generator interface {
	Generate(ctx context.Context, prompt convo.Prompt) (string, error)
}
