package ai

import (
	"context"

	"github.com/rs/zerolog"
)

// VerdictCache stores moderation verdicts keyed by stage and text.
// *store.RedisStore implements it.
type VerdictCache interface {
	GetVerdict(ctx context.Context, stage, text string) (found, flagged bool, reason string, err error)
	SetVerdict(ctx context.Context, stage, text string, flagged bool, reason string) error
}

// CachedModerator wraps a Moderator with a verdict cache. Cache failures
// are logged and ignored: the moderation backend remains authoritative.
type CachedModerator struct {
	inner Moderator
	cache VerdictCache
	log   zerolog.Logger
}

// NewCachedModerator wraps inner with cache.
func NewCachedModerator(inner Moderator, cache VerdictCache, log zerolog.Logger) *CachedModerator {
	return &CachedModerator{inner: inner, cache: cache, log: log}
}

// Check returns a cached verdict when available, otherwise consults the
// wrapped moderator and caches its answer.
func (m *CachedModerator) Check(ctx context.Context, text string, stage Stage) (Verdict, error) {
	found, flagged, reason, err := m.cache.GetVerdict(ctx, string(stage), text)
	if err != nil {
		m.log.Warn().Err(err).Msg("verdict cache read failed")
	} else if found {
		return Verdict{Flagged: flagged, Reason: reason}, nil
	}

	verdict, err := m.inner.Check(ctx, text, stage)
	if err != nil {
		return Verdict{}, err
	}

	if err := m.cache.SetVerdict(ctx, string(stage), text, verdict.Flagged, verdict.Reason); err != nil {
		m.log.Warn().Err(err).Msg("verdict cache write failed")
	}
	return verdict, nil
}
