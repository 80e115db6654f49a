package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/Nekoplex/VkGPTBot/internal/models"
)

// MemoryStore is an in-memory DataStore used by tests and local
// experiments. It applies the same seeding and atomicity rules as the
// SQL stores.
type MemoryStore struct {
	mu       sync.Mutex
	nextID   int64
	personas map[int64]models.Persona
	users    map[int64]*models.UserAccount
}

// NewMemoryStore creates a MemoryStore seeded with the system persona.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID:   1,
		personas: map[int64]models.Persona{models.SystemPersonaID: models.SystemPersona},
		users:    make(map[int64]*models.UserAccount),
	}
}

func (s *MemoryStore) Close() {}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) GetPersona(ctx context.Context, id int64) (*models.Persona, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.personas[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *MemoryStore) ListPublicPersonas(ctx context.Context) ([]models.Persona, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Persona
	for id := models.SystemPersonaID; id < s.nextID; id++ {
		if p, ok := s.personas[id]; ok && p.IsPublic {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *MemoryStore) InsertPersona(ctx context.Context, creatorID int64, name, instructions string, maxOwned int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[creatorID]
	if !ok {
		return 0, fmt.Errorf("user %d has no account", creatorID)
	}
	if maxOwned > 0 && len(u.CreatedPersonaIDs) >= maxOwned {
		return 0, ErrQuotaExceeded
	}
	id := s.nextID
	s.nextID++
	s.personas[id] = models.Persona{
		ID:           id,
		CreatorID:    creatorID,
		IsPublic:     false,
		Name:         name,
		Instructions: instructions,
	}
	u.CreatedPersonaIDs = append(u.CreatedPersonaIDs, id)
	return id, nil
}

func (s *MemoryStore) UpdatePersonaField(ctx context.Context, id int64, field models.PersonaField, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.personas[id]
	if !ok {
		return fmt.Errorf("persona %d not found", id)
	}
	switch field {
	case models.FieldName:
		p.Name = value
	case models.FieldDescription:
		p.Description = value
	case models.FieldInstructions:
		p.Instructions = value
	default:
		return fmt.Errorf("unknown persona field %d", field)
	}
	s.personas[id] = p
	return nil
}

func (s *MemoryStore) SetPersonaVisibility(ctx context.Context, id int64, public bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.personas[id]
	if !ok {
		return fmt.Errorf("persona %d not found", id)
	}
	p.IsPublic = public
	s.personas[id] = p
	return nil
}

func (s *MemoryStore) IsRegistered(ctx context.Context, userID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[userID]
	return ok, nil
}

func (s *MemoryStore) CreateAccount(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; ok {
		return fmt.Errorf("user %d already registered", userID)
	}
	s.users[userID] = &models.UserAccount{
		UserID:            userID,
		SelectedPersonaID: models.SystemPersonaID,
	}
	return nil
}

func (s *MemoryStore) DeleteAccount(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, userID)
	return nil
}

func (s *MemoryStore) GetSelectedPersona(ctx context.Context, userID int64) (*models.Persona, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	p, ok := s.personas[u.SelectedPersonaID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *MemoryStore) SetSelectedPersona(ctx context.Context, userID, personaID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return fmt.Errorf("user %d has no account", userID)
	}
	u.SelectedPersonaID = personaID
	return nil
}

func (s *MemoryStore) GetCreatedPersonaIDs(ctx context.Context, userID int64) ([]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	out := make([]int64, len(u.CreatedPersonaIDs))
	copy(out, u.CreatedPersonaIDs)
	return out, nil
}
