package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Nekoplex/VkGPTBot/internal/models"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	store := &PostgresStore{pool: pool}

	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist and seeds the system persona.
func (s *PostgresStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS personas (
		id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
		creator_id BIGINT NOT NULL,
		is_public BOOLEAN DEFAULT FALSE,
		name TEXT NOT NULL,
		description TEXT DEFAULT '',
		instructions TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS users (
		user_id BIGINT PRIMARY KEY,
		selected_persona_id BIGINT DEFAULT 0,
		created_persona_ids TEXT DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_personas_is_public ON personas(is_public);
	CREATE INDEX IF NOT EXISTS idx_personas_creator ON personas(creator_id);
	`

	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return err
	}

	sp := models.SystemPersona
	_, err := s.pool.Exec(ctx, `
		INSERT INTO personas (id, creator_id, is_public, name, description, instructions)
		VALUES ($1, $2, TRUE, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`, sp.ID, sp.CreatorID, sp.Name, sp.Description, sp.Instructions)
	return err
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// GetPersona retrieves a persona by id.
func (s *PostgresStore) GetPersona(ctx context.Context, id int64) (*models.Persona, error) {
	p := &models.Persona{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, creator_id, is_public, name, description, instructions
		FROM personas WHERE id = $1
	`, id).Scan(
		&p.ID,
		&p.CreatorID,
		&p.IsPublic,
		&p.Name,
		&p.Description,
		&p.Instructions,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// ListPublicPersonas retrieves all public personas in insertion order.
func (s *PostgresStore) ListPublicPersonas(ctx context.Context) ([]models.Persona, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, creator_id, is_public, name, description, instructions
		FROM personas
		WHERE is_public
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var personas []models.Persona
	for rows.Next() {
		var p models.Persona
		err := rows.Scan(
			&p.ID,
			&p.CreatorID,
			&p.IsPublic,
			&p.Name,
			&p.Description,
			&p.Instructions,
		)
		if err != nil {
			return nil, err
		}
		personas = append(personas, p)
	}
	return personas, rows.Err()
}

// InsertPersona counts the creator's personas, inserts a private persona
// and appends its id to created_persona_ids in one transaction. The user
// row is locked for the duration so concurrent creations serialize and
// the count can never pass maxOwned.
func (s *PostgresStore) InsertPersona(ctx context.Context, creatorID int64, name, instructions string, maxOwned int) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var raw string
	err = tx.QueryRow(ctx, `
		SELECT created_persona_ids FROM users WHERE user_id = $1 FOR UPDATE
	`, creatorID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("user %d has no account", creatorID)
		}
		return 0, err
	}
	owned := splitIDs(raw)
	if maxOwned > 0 && len(owned) >= maxOwned {
		return 0, ErrQuotaExceeded
	}

	var id int64
	err = tx.QueryRow(ctx, `
		INSERT INTO personas (creator_id, is_public, name, description, instructions)
		VALUES ($1, FALSE, $2, '', $3)
		RETURNING id
	`, creatorID, name, instructions).Scan(&id)
	if err != nil {
		return 0, err
	}

	_, err = tx.Exec(ctx, `
		UPDATE users SET created_persona_ids = $1 WHERE user_id = $2
	`, joinIDs(append(owned, id)), creatorID)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return id, nil
}

// UpdatePersonaField updates one free-text persona column.
func (s *PostgresStore) UpdatePersonaField(ctx context.Context, id int64, field models.PersonaField, value string) error {
	col := field.Column()
	if col == "" {
		return fmt.Errorf("unknown persona field %d", field)
	}
	_, err := s.pool.Exec(ctx, fmt.Sprintf(`
		UPDATE personas SET %s = $1 WHERE id = $2
	`, col), value, id)
	return err
}

// SetPersonaVisibility sets the persona's public flag.
func (s *PostgresStore) SetPersonaVisibility(ctx context.Context, id int64, public bool) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE personas SET is_public = $1 WHERE id = $2
	`, public, id)
	return err
}

// IsRegistered reports whether the user has an account.
func (s *PostgresStore) IsRegistered(ctx context.Context, userID int64) (bool, error) {
	var one int
	err := s.pool.QueryRow(ctx, `
		SELECT 1 FROM users WHERE user_id = $1
	`, userID).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CreateAccount creates an account with the default persona selected.
func (s *PostgresStore) CreateAccount(ctx context.Context, userID int64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (user_id, selected_persona_id, created_persona_ids)
		VALUES ($1, $2, '')
	`, userID, models.SystemPersonaID)
	return err
}

// DeleteAccount removes the user's account. Created personas survive.
func (s *PostgresStore) DeleteAccount(ctx context.Context, userID int64) error {
	_, err := s.pool.Exec(ctx, `
		DELETE FROM users WHERE user_id = $1
	`, userID)
	return err
}

// GetSelectedPersona retrieves the persona currently selected by the user,
// or nil when the user has no account.
func (s *PostgresStore) GetSelectedPersona(ctx context.Context, userID int64) (*models.Persona, error) {
	p := &models.Persona{}
	err := s.pool.QueryRow(ctx, `
		SELECT p.id, p.creator_id, p.is_public, p.name, p.description, p.instructions
		FROM users u
		JOIN personas p ON p.id = u.selected_persona_id
		WHERE u.user_id = $1
	`, userID).Scan(
		&p.ID,
		&p.CreatorID,
		&p.IsPublic,
		&p.Name,
		&p.Description,
		&p.Instructions,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// SetSelectedPersona updates the user's selected persona.
func (s *PostgresStore) SetSelectedPersona(ctx context.Context, userID, personaID int64) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE users SET selected_persona_id = $1 WHERE user_id = $2
	`, personaID, userID)
	return err
}

// GetCreatedPersonaIDs returns the ids of personas created by the user,
// oldest first.
func (s *PostgresStore) GetCreatedPersonaIDs(ctx context.Context, userID int64) ([]int64, error) {
	var raw string
	err := s.pool.QueryRow(ctx, `
		SELECT created_persona_ids FROM users WHERE user_id = $1
	`, userID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return splitIDs(raw), nil
}
