package store

import (
	"context"
	"errors"

	"github.com/Nekoplex/VkGPTBot/internal/models"
)

// ErrQuotaExceeded is returned by InsertPersona when the creator already
// owns maxOwned personas.
var ErrQuotaExceeded = errors.New("persona quota exceeded")

// DataStore defines the interface for persistent storage of personas and
// user accounts. SQLiteStore, PostgresStore and MemoryStore implement it.
//
// Lookups return (nil, nil) for absent records; errors are transport
// failures only. InsertPersona counts the creator's owned personas,
// inserts the row and appends its id to created_persona_ids inside a
// single critical section, so concurrent creations by one user can never
// push the count past maxOwned. A maxOwned of zero or less means no cap.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// Persona operations
	GetPersona(ctx context.Context, id int64) (*models.Persona, error)
	ListPublicPersonas(ctx context.Context) ([]models.Persona, error)
	InsertPersona(ctx context.Context, creatorID int64, name, instructions string, maxOwned int) (int64, error)
	UpdatePersonaField(ctx context.Context, id int64, field models.PersonaField, value string) error
	SetPersonaVisibility(ctx context.Context, id int64, public bool) error

	// Account operations
	IsRegistered(ctx context.Context, userID int64) (bool, error)
	CreateAccount(ctx context.Context, userID int64) error
	DeleteAccount(ctx context.Context, userID int64) error
	GetSelectedPersona(ctx context.Context, userID int64) (*models.Persona, error)
	SetSelectedPersona(ctx context.Context, userID, personaID int64) error
	GetCreatedPersonaIDs(ctx context.Context, userID int64) ([]int64, error)
}
