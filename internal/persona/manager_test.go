package persona

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nekoplex/VkGPTBot/internal/models"
	"github.com/Nekoplex/VkGPTBot/internal/store"
)

func newTestManager(t *testing.T, exempt ...int64) (*Manager, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	return NewManager(st, 5, exempt, zerolog.Nop()), st
}

func register(t *testing.T, st *store.MemoryStore, userID int64) {
	t.Helper()
	require.NoError(t, st.CreateAccount(context.Background(), userID))
}

func TestResolveActiveDefaultsWithoutAccount(t *testing.T) {
	m, _ := newTestManager(t)

	p, source := m.ResolveActive(context.Background(), 42)
	assert.Equal(t, models.SystemPersonaID, p.ID)
	assert.Equal(t, SourceDefault, source)
}

func TestResolveActiveReturnsSelection(t *testing.T) {
	ctx := context.Background()
	m, st := newTestManager(t)
	register(t, st, 1)

	id, err := m.Create(ctx, 1, "Be terse.")
	require.NoError(t, err)
	_, err = m.Select(ctx, 1, id)
	require.NoError(t, err)

	p, source := m.ResolveActive(ctx, 1)
	assert.Equal(t, id, p.ID)
	assert.Equal(t, SourceSelected, source)
}

func TestCreateAssignsDefaults(t *testing.T) {
	ctx := context.Background()
	m, st := newTestManager(t)
	register(t, st, 1)

	id, err := m.Create(ctx, 1, "Be a pirate.")
	require.NoError(t, err)

	p, err := st.GetPersona(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, int64(1), p.CreatorID)
	assert.Equal(t, DefaultName, p.Name)
	assert.False(t, p.IsPublic)
	assert.Empty(t, p.Description)

	ids, err := st.GetCreatedPersonaIDs(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{id}, ids)
}

func TestCreateQuotaExceeded(t *testing.T) {
	ctx := context.Background()
	m, st := newTestManager(t)
	register(t, st, 1)

	for i := 0; i < 5; i++ {
		_, err := m.Create(ctx, 1, "x")
		require.NoError(t, err)
	}

	_, err := m.Create(ctx, 1, "x")
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	// The rejected call leaves state unchanged.
	ids, err := st.GetCreatedPersonaIDs(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, ids, 5)
}

func TestCreateConcurrentNeverOvershootsQuota(t *testing.T) {
	ctx := context.Background()
	m, st := newTestManager(t)
	register(t, st, 1)

	for i := 0; i < 4; i++ {
		_, err := m.Create(ctx, 1, "x")
		require.NoError(t, err)
	}

	// One slot left. Racing creations must fill it exactly once.
	const racers = 8
	start := make(chan struct{})
	errs := make(chan error, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := m.Create(ctx, 1, "x")
			errs <- err
		}()
	}
	close(start)
	wg.Wait()
	close(errs)

	var created, rejected int
	for err := range errs {
		if err == nil {
			created++
			continue
		}
		require.ErrorIs(t, err, ErrQuotaExceeded)
		rejected++
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, racers-1, rejected)

	ids, err := st.GetCreatedPersonaIDs(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, ids, 5)
}

func TestCreateExemptUserBypassesQuota(t *testing.T) {
	ctx := context.Background()
	m, st := newTestManager(t, 1)
	register(t, st, 1)

	for i := 0; i < 7; i++ {
		_, err := m.Create(ctx, 1, "x")
		require.NoError(t, err)
	}

	ids, err := st.GetCreatedPersonaIDs(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, ids, 7)
}

func TestSelectPrivatePersonaOnlyByCreator(t *testing.T) {
	ctx := context.Background()
	m, st := newTestManager(t)
	register(t, st, 9)
	register(t, st, 5)

	id, err := m.Create(ctx, 9, "secret sauce")
	require.NoError(t, err)

	_, err = m.Select(ctx, 5, id)
	assert.ErrorIs(t, err, ErrNotFoundOrPrivate)

	_, err = m.Select(ctx, 9, id)
	assert.NoError(t, err)
}

func TestSelectMissingPersona(t *testing.T) {
	ctx := context.Background()
	m, st := newTestManager(t)
	register(t, st, 1)

	_, err := m.Select(ctx, 1, 9999)
	assert.ErrorIs(t, err, ErrNotFoundOrPrivate)
}

func TestSystemPersonaAlwaysSelectable(t *testing.T) {
	ctx := context.Background()
	m, st := newTestManager(t)
	register(t, st, 1)

	p, err := m.Select(ctx, 1, models.SystemPersonaID)
	require.NoError(t, err)
	assert.True(t, p.IsPublic)
}

func TestGetHidesPrivatePersonas(t *testing.T) {
	ctx := context.Background()
	m, st := newTestManager(t)
	register(t, st, 9)

	id, err := m.Create(ctx, 9, "hidden")
	require.NoError(t, err)

	// Unregistered requester: existence must not leak.
	_, err = m.Get(ctx, 5, id)
	assert.ErrorIs(t, err, ErrNotFoundOrPrivate)

	p, err := m.Get(ctx, 9, id)
	require.NoError(t, err)
	assert.Equal(t, "hidden", p.Instructions)
}

func TestToggleVisibilityIsAPureFlip(t *testing.T) {
	ctx := context.Background()
	m, st := newTestManager(t)
	register(t, st, 1)

	id, err := m.Create(ctx, 1, "x")
	require.NoError(t, err)

	public, err := m.ToggleVisibility(ctx, 1, id)
	require.NoError(t, err)
	assert.True(t, public)

	public, err = m.ToggleVisibility(ctx, 1, id)
	require.NoError(t, err)
	assert.False(t, public)
}

func TestToggleVisibilityForbiddenForNonCreator(t *testing.T) {
	ctx := context.Background()
	m, st := newTestManager(t)
	register(t, st, 1)
	register(t, st, 2)

	id, err := m.Create(ctx, 1, "x")
	require.NoError(t, err)

	_, err = m.ToggleVisibility(ctx, 2, id)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestSetFieldForbiddenForNonCreator(t *testing.T) {
	ctx := context.Background()
	m, st := newTestManager(t)
	register(t, st, 1)
	register(t, st, 2)

	id, err := m.Create(ctx, 1, "x")
	require.NoError(t, err)

	err = m.SetField(ctx, 2, id, models.FieldName, "stolen")
	assert.ErrorIs(t, err, ErrForbidden)

	err = m.SetField(ctx, 1, id, models.FieldName, "renamed")
	require.NoError(t, err)

	p, err := st.GetPersona(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "renamed", p.Name)
}

func TestListPublicInCreationOrder(t *testing.T) {
	ctx := context.Background()
	m, st := newTestManager(t)
	register(t, st, 1)

	first, err := m.Create(ctx, 1, "a")
	require.NoError(t, err)
	second, err := m.Create(ctx, 1, "b")
	require.NoError(t, err)

	_, err = m.ToggleVisibility(ctx, 1, second)
	require.NoError(t, err)
	_, err = m.ToggleVisibility(ctx, 1, first)
	require.NoError(t, err)

	list, err := m.ListPublic(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3) // system persona + two

	assert.Equal(t, models.SystemPersonaID, list[0].ID)
	assert.Equal(t, first, list[1].ID)
	assert.Equal(t, second, list[2].ID)
}
