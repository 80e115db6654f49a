package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Nekoplex/VkGPTBot/internal/models"
)

// SQLiteStore handles SQLite database operations.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/bot.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/bot.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	// Initialize schema
	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist and seeds the system persona.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS personas (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		creator_id INTEGER NOT NULL,
		is_public INTEGER DEFAULT 0,
		name TEXT NOT NULL,
		description TEXT DEFAULT '',
		instructions TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS users (
		user_id INTEGER PRIMARY KEY,
		selected_persona_id INTEGER DEFAULT 0,
		created_persona_ids TEXT DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_personas_is_public ON personas(is_public);
	CREATE INDEX IF NOT EXISTS idx_personas_creator ON personas(creator_id);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return err
	}

	// Seed the system persona if not exists
	sp := models.SystemPersona
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO personas (id, creator_id, is_public, name, description, instructions)
		VALUES (?, ?, 1, ?, ?, ?)
	`, sp.ID, sp.CreatorID, sp.Name, sp.Description, sp.Instructions)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetPersona retrieves a persona by id.
func (s *SQLiteStore) GetPersona(ctx context.Context, id int64) (*models.Persona, error) {
	p := &models.Persona{}
	var isPublicInt int
	err := s.db.QueryRowContext(ctx, `
		SELECT id, creator_id, is_public, name, description, instructions
		FROM personas WHERE id = ?
	`, id).Scan(
		&p.ID,
		&p.CreatorID,
		&isPublicInt,
		&p.Name,
		&p.Description,
		&p.Instructions,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	p.IsPublic = isPublicInt == 1
	return p, nil
}

// ListPublicPersonas retrieves all public personas in insertion order.
func (s *SQLiteStore) ListPublicPersonas(ctx context.Context) ([]models.Persona, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, creator_id, is_public, name, description, instructions
		FROM personas
		WHERE is_public = 1
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var personas []models.Persona
	for rows.Next() {
		var p models.Persona
		var isPublicInt int
		err := rows.Scan(
			&p.ID,
			&p.CreatorID,
			&isPublicInt,
			&p.Name,
			&p.Description,
			&p.Instructions,
		)
		if err != nil {
			return nil, err
		}
		p.IsPublic = isPublicInt == 1
		personas = append(personas, p)
	}
	return personas, rows.Err()
}

// InsertPersona counts the creator's personas, inserts a private persona
// and appends its id to created_persona_ids in one transaction. The count
// and the append share the transaction so a concurrent insert by the same
// user cannot slip past maxOwned.
func (s *SQLiteStore) InsertPersona(ctx context.Context, creatorID int64, name, instructions string, maxOwned int) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var raw string
	err = tx.QueryRowContext(ctx, `
		SELECT created_persona_ids FROM users WHERE user_id = ?
	`, creatorID).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("user %d has no account", creatorID)
		}
		return 0, err
	}
	owned := splitIDs(raw)
	if maxOwned > 0 && len(owned) >= maxOwned {
		return 0, ErrQuotaExceeded
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO personas (creator_id, is_public, name, description, instructions)
		VALUES (?, 0, ?, '', ?)
	`, creatorID, name, instructions)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE users SET created_persona_ids = ? WHERE user_id = ?
	`, joinIDs(append(owned, id)), creatorID)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// UpdatePersonaField updates one free-text persona column.
func (s *SQLiteStore) UpdatePersonaField(ctx context.Context, id int64, field models.PersonaField, value string) error {
	col := field.Column()
	if col == "" {
		return fmt.Errorf("unknown persona field %d", field)
	}
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE personas SET %s = ? WHERE id = ?
	`, col), value, id)
	return err
}

// SetPersonaVisibility sets the persona's public flag.
func (s *SQLiteStore) SetPersonaVisibility(ctx context.Context, id int64, public bool) error {
	isPublicInt := 0
	if public {
		isPublicInt = 1
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE personas SET is_public = ? WHERE id = ?
	`, isPublicInt, id)
	return err
}

// IsRegistered reports whether the user has an account.
func (s *SQLiteStore) IsRegistered(ctx context.Context, userID int64) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM users WHERE user_id = ?
	`, userID).Scan(&one)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CreateAccount creates an account with the default persona selected.
func (s *SQLiteStore) CreateAccount(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (user_id, selected_persona_id, created_persona_ids)
		VALUES (?, ?, '')
	`, userID, models.SystemPersonaID)
	return err
}

// DeleteAccount removes the user's account. Created personas survive.
func (s *SQLiteStore) DeleteAccount(ctx context.Context, userID int64) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM users WHERE user_id = ?
	`, userID)
	return err
}

// GetSelectedPersona retrieves the persona currently selected by the user,
// or nil when the user has no account.
func (s *SQLiteStore) GetSelectedPersona(ctx context.Context, userID int64) (*models.Persona, error) {
	p := &models.Persona{}
	var isPublicInt int
	err := s.db.QueryRowContext(ctx, `
		SELECT p.id, p.creator_id, p.is_public, p.name, p.description, p.instructions
		FROM users u
		JOIN personas p ON p.id = u.selected_persona_id
		WHERE u.user_id = ?
	`, userID).Scan(
		&p.ID,
		&p.CreatorID,
		&isPublicInt,
		&p.Name,
		&p.Description,
		&p.Instructions,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	p.IsPublic = isPublicInt == 1
	return p, nil
}

// SetSelectedPersona updates the user's selected persona.
func (s *SQLiteStore) SetSelectedPersona(ctx context.Context, userID, personaID int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET selected_persona_id = ? WHERE user_id = ?
	`, personaID, userID)
	return err
}

// GetCreatedPersonaIDs returns the ids of personas created by the user,
// oldest first.
func (s *SQLiteStore) GetCreatedPersonaIDs(ctx context.Context, userID int64) ([]int64, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `
		SELECT created_persona_ids FROM users WHERE user_id = ?
	`, userID).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return splitIDs(raw), nil
}
