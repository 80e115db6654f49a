package ai

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

type countingModerator struct {
	verdict Verdict
	calls   int
}

func (m *countingModerator) Check(ctx context.Context, text string, stage Stage) (Verdict, error) {
	m.calls++
	return m.verdict, nil
}

type mapCache struct {
	entries map[string]Verdict
}

func (c *mapCache) GetVerdict(ctx context.Context, stage, text string) (bool, bool, string, error) {
	v, ok := c.entries[stage+"|"+text]
	if !ok {
		return false, false, "", nil
	}
	return true, v.Flagged, v.Reason, nil
}

func (c *mapCache) SetVerdict(ctx context.Context, stage, text string, flagged bool, reason string) error {
	c.entries[stage+"|"+text] = Verdict{Flagged: flagged, Reason: reason}
	return nil
}

func TestCachedModeratorHitSkipsBackend(t *testing.T) {
	ctx := context.Background()
	inner := &countingModerator{verdict: Verdict{Flagged: true, Reason: "blocked: spam"}}
	m := NewCachedModerator(inner, &mapCache{entries: map[string]Verdict{}}, zerolog.Nop())

	v1, err := m.Check(ctx, "spammy", StageInput)
	if err != nil {
		t.Fatal(err)
	}
	v2, err := m.Check(ctx, "spammy", StageInput)
	if err != nil {
		t.Fatal(err)
	}

	if inner.calls != 1 {
		t.Fatalf("expected one backend call, got %d", inner.calls)
	}
	if v1 != v2 {
		t.Fatalf("cached verdict differs: %+v vs %+v", v1, v2)
	}
}

func TestCachedModeratorStagesAreDistinct(t *testing.T) {
	ctx := context.Background()
	inner := &countingModerator{}
	m := NewCachedModerator(inner, &mapCache{entries: map[string]Verdict{}}, zerolog.Nop())

	if _, err := m.Check(ctx, "text", StageInput); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Check(ctx, "text", StageOutput); err != nil {
		t.Fatal(err)
	}

	if inner.calls != 2 {
		t.Fatalf("input and output verdicts must be cached separately, got %d calls", inner.calls)
	}
}
