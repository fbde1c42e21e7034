package repository

import (
	"database/sql"
	"fmt"

	"choreking/internal/database"
	"choreking/internal/models"
)

// SessionRepository handles database operations for sessions
type SessionRepository struct {
	db *database.DB
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new session row
func (r *SessionRepository) Create(session *models.Session) error {
	query := `
		INSERT INTO sessions (id, family_id, token, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query,
		session.ID, session.FamilyID, session.Token, session.ExpiresAt, session.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetByToken retrieves a session by token. Returns nil, nil when absent.
func (r *SessionRepository) GetByToken(token string) (*models.Session, error) {
	query := "SELECT id, family_id, token, expires_at, created_at FROM sessions WHERE token = ?"
	session := &models.Session{}
	err := r.db.QueryRow(query, token).Scan(
		&session.ID, &session.FamilyID, &session.Token, &session.ExpiresAt, &session.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

// DeleteByToken removes a session by token
func (r *SessionRepository) DeleteByToken(token string) error {
	if _, err := r.db.Exec("DELETE FROM sessions WHERE token = ?", token); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteByFamily removes every session belonging to a family
func (r *SessionRepository) DeleteByFamily(familyID string) error {
	if _, err := r.db.Exec("DELETE FROM sessions WHERE family_id = ?", familyID); err != nil {
		return fmt.Errorf("failed to delete family sessions: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions whose expiry has passed and returns how many
func (r *SessionRepository) DeleteExpired() (int64, error) {
	result, err := r.db.Exec("DELETE FROM sessions WHERE expires_at < CURRENT_TIMESTAMP")
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}
