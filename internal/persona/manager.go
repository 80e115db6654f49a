// Package persona implements the persona state machine: the system
// default, user-owned personas, visibility, ownership checks, per-field
// mutation and quota enforcement.
package persona

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/Nekoplex/VkGPTBot/internal/metrics"
	"github.com/Nekoplex/VkGPTBot/internal/models"
	"github.com/Nekoplex/VkGPTBot/internal/store"
)

var (
	// ErrForbidden is returned when a caller mutates a persona it does
	// not own.
	ErrForbidden = errors.New("persona: not the creator")

	// ErrNotFoundOrPrivate is returned when a persona does not exist or
	// is private and the caller is not its creator. The two cases are
	// deliberately indistinguishable so private personas never leak.
	ErrNotFoundOrPrivate = errors.New("persona: not found or private")

	// ErrQuotaExceeded is returned when a creation would exceed the
	// per-user persona cap.
	ErrQuotaExceeded = errors.New("persona: creation quota exceeded")
)

// DefaultName is given to newly created personas until renamed.
const DefaultName = "My mood"

// Source tells how ResolveActive arrived at a persona.
type Source int

const (
	// SourceSelected means the user's own selection was found.
	SourceSelected Source = iota
	// SourceDefault means the system persona was used because the user
	// has no account, no reachable selection, or the lookup failed.
	SourceDefault
)

// Manager enforces the persona rules on top of a DataStore.
type Manager struct {
	store  store.DataStore
	quota  int
	exempt map[int64]struct{}
	log    zerolog.Logger
}

// NewManager creates a Manager. quota is the per-user creation cap;
// exemptIDs lists users exempt from it (normally empty).
func NewManager(st store.DataStore, quota int, exemptIDs []int64, log zerolog.Logger) *Manager {
	exempt := make(map[int64]struct{}, len(exemptIDs))
	for _, id := range exemptIDs {
		exempt[id] = struct{}{}
	}
	return &Manager{store: st, quota: quota, exempt: exempt, log: log}
}

// Quota returns the per-user persona creation cap.
func (m *Manager) Quota() int { return m.quota }

// ResolveActive returns the persona to use for the user's next request.
// It never fails: when the user has no account, no selection, or the
// lookup errors, it falls back to the system persona. The Source reports
// which branch was taken.
func (m *Manager) ResolveActive(ctx context.Context, userID int64) (models.Persona, Source) {
	selected, err := m.store.GetSelectedPersona(ctx, userID)
	if err != nil {
		m.log.Warn().Err(err).Int64("user_id", userID).Msg("selected persona lookup failed, using default")
	}
	if err == nil && selected != nil {
		return *selected, SourceSelected
	}

	system, err := m.store.GetPersona(ctx, models.SystemPersonaID)
	if err != nil || system == nil {
		if err != nil {
			m.log.Warn().Err(err).Msg("system persona lookup failed, using built-in copy")
		}
		return models.SystemPersona, SourceDefault
	}
	return *system, SourceDefault
}

// Get returns the persona when it is visible to the requester: public
// personas and the requester's own. Anything else is ErrNotFoundOrPrivate.
func (m *Manager) Get(ctx context.Context, requesterID, id int64) (models.Persona, error) {
	p, err := m.store.GetPersona(ctx, id)
	if err != nil {
		return models.Persona{}, err
	}
	if p == nil || (!p.IsPublic && p.CreatorID != requesterID) {
		return models.Persona{}, ErrNotFoundOrPrivate
	}
	return *p, nil
}

// ListPublic returns all public personas in creation order.
func (m *Manager) ListPublic(ctx context.Context) ([]models.Persona, error) {
	return m.store.ListPublicPersonas(ctx)
}

// ListCreated returns the personas the user has created, oldest first.
func (m *Manager) ListCreated(ctx context.Context, userID int64) ([]models.Persona, error) {
	ids, err := m.store.GetCreatedPersonaIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	personas := make([]models.Persona, 0, len(ids))
	for _, id := range ids {
		p, err := m.store.GetPersona(ctx, id)
		if err != nil {
			return nil, err
		}
		if p != nil {
			personas = append(personas, *p)
		}
	}
	return personas, nil
}

// Create makes a new private persona owned by creatorID. It fails with
// ErrQuotaExceeded when the creator already owns quota personas, leaving
// state unchanged; exempt users bypass the cap. The count is enforced by
// the store inside its insert transaction, so concurrent creations by
// one user cannot overshoot the cap.
func (m *Manager) Create(ctx context.Context, creatorID int64, instructions string) (int64, error) {
	maxOwned := m.quota
	if _, ok := m.exempt[creatorID]; ok {
		maxOwned = 0
	}

	id, err := m.store.InsertPersona(ctx, creatorID, DefaultName, instructions, maxOwned)
	if err != nil {
		if errors.Is(err, store.ErrQuotaExceeded) {
			return 0, ErrQuotaExceeded
		}
		return 0, err
	}
	metrics.PersonasCreated.Inc()
	m.log.Info().Int64("persona_id", id).Int64("creator_id", creatorID).Msg("persona created")
	return id, nil
}

// SetField updates one free-text field of a persona owned by callerID.
func (m *Manager) SetField(ctx context.Context, callerID, id int64, field models.PersonaField, value string) error {
	if err := m.RequireCreator(ctx, callerID, id); err != nil {
		return err
	}
	return m.store.UpdatePersonaField(ctx, id, field, value)
}

// ToggleVisibility flips the persona between public and private and
// returns the new visibility. Only the creator may toggle.
func (m *Manager) ToggleVisibility(ctx context.Context, callerID, id int64) (bool, error) {
	p, err := m.store.GetPersona(ctx, id)
	if err != nil {
		return false, err
	}
	if p == nil || p.CreatorID != callerID {
		return false, ErrForbidden
	}
	newPublic := !p.IsPublic
	if err := m.store.SetPersonaVisibility(ctx, id, newPublic); err != nil {
		return false, err
	}
	return newPublic, nil
}

// Select sets the user's active persona. The persona must exist and be
// public or owned by the user; otherwise ErrNotFoundOrPrivate.
func (m *Manager) Select(ctx context.Context, userID, id int64) (models.Persona, error) {
	p, err := m.store.GetPersona(ctx, id)
	if err != nil {
		return models.Persona{}, err
	}
	if p == nil || (!p.IsPublic && p.CreatorID != userID) {
		return models.Persona{}, ErrNotFoundOrPrivate
	}
	if err := m.store.SetSelectedPersona(ctx, userID, p.ID); err != nil {
		return models.Persona{}, err
	}
	return *p, nil
}

// RequireCreator checks strict identity against the persona's creator
// and returns ErrForbidden on any mismatch, missing personas included.
func (m *Manager) RequireCreator(ctx context.Context, callerID, id int64) error {
	p, err := m.store.GetPersona(ctx, id)
	if err != nil {
		return err
	}
	if p == nil || p.CreatorID != callerID {
		return ErrForbidden
	}
	return nil
}
