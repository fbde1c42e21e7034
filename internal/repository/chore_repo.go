package repository

import (
	"database/sql"
	"fmt"
	"time"

	"choreking/internal/database"
	"choreking/internal/models"
)

// ChoreRepository handles database operations for chores and their assignments
type ChoreRepository struct {
	db *database.DB
}

// NewChoreRepository creates a new chore repository
func NewChoreRepository(db *database.DB) *ChoreRepository {
	return &ChoreRepository{db: db}
}

const choreColumns = "id, family_id, name, points, status, submitted_by_child_id, submitted_at, emotion, photo_url, created_at"

func scanChore(row interface{ Scan(...interface{}) error }) (*models.Chore, error) {
	chore := &models.Chore{}
	var submittedAt sql.NullTime
	err := row.Scan(
		&chore.ID, &chore.FamilyID, &chore.Name, &chore.Points, &chore.Status,
		&chore.SubmittedByChildID, &submittedAt, &chore.Emotion, &chore.PhotoURL,
		&chore.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if submittedAt.Valid {
		chore.SubmittedAt = &submittedAt.Time
	}
	return chore, nil
}

// GetByID retrieves a chore scoped to a family. Returns nil, nil when absent.
func (r *ChoreRepository) GetByID(familyID, choreID string) (*models.Chore, error) {
	query := "SELECT " + choreColumns + " FROM chores WHERE id = ? AND family_id = ?"
	chore, err := scanChore(r.db.QueryRow(query, choreID, familyID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get chore: %w", err)
	}
	return chore, nil
}

// ListByFamily returns the family's chores ordered by creation time
func (r *ChoreRepository) ListByFamily(familyID string) ([]models.Chore, error) {
	query := "SELECT " + choreColumns + " FROM chores WHERE family_id = ? ORDER BY created_at"
	rows, err := r.db.Query(query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chores: %w", err)
	}
	defer rows.Close()

	var chores []models.Chore
	for rows.Next() {
		chore, err := scanChore(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chore: %w", err)
		}
		chores = append(chores, *chore)
	}
	return chores, rows.Err()
}

// ListAssignments returns child IDs per chore for a whole family
func (r *ChoreRepository) ListAssignments(familyID string) (map[string][]string, error) {
	query := `
		SELECT ca.chore_id, ca.child_id
		FROM chore_assignments ca
		JOIN chores c ON c.id = ca.chore_id
		WHERE c.family_id = ?
		ORDER BY ca.chore_id, ca.child_id
	`
	rows, err := r.db.Query(query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chore assignments: %w", err)
	}
	defer rows.Close()

	assignments := make(map[string][]string)
	for rows.Next() {
		var choreID, childID string
		if err := rows.Scan(&choreID, &childID); err != nil {
			return nil, fmt.Errorf("failed to scan chore assignment: %w", err)
		}
		assignments[choreID] = append(assignments[choreID], childID)
	}
	return assignments, rows.Err()
}

// Save upserts a chore and replaces its assignment set wholesale in one
// transaction. Duplicate child IDs in assignedTo are collapsed.
func (r *ChoreRepository) Save(chore *models.Chore, assignedTo []string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRow("SELECT COUNT(*) FROM chores WHERE id = ? AND family_id = ?",
		chore.ID, chore.FamilyID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check chore existence: %w", err)
	}

	if exists > 0 {
		_, err = tx.Exec("UPDATE chores SET name = ?, points = ? WHERE id = ? AND family_id = ?",
			chore.Name, chore.Points, chore.ID, chore.FamilyID)
	} else {
		_, err = tx.Exec(`
			INSERT INTO chores (id, family_id, name, points, status, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			chore.ID, chore.FamilyID, chore.Name, chore.Points, models.ChoreAvailable, chore.CreatedAt)
	}
	if err != nil {
		return fmt.Errorf("failed to save chore: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM chore_assignments WHERE chore_id = ?", chore.ID); err != nil {
		return fmt.Errorf("failed to clear chore assignments: %w", err)
	}
	seen := make(map[string]bool)
	for _, childID := range assignedTo {
		if seen[childID] {
			continue
		}
		seen[childID] = true
		_, err := tx.Exec("INSERT INTO chore_assignments (chore_id, child_id) VALUES (?, ?)",
			chore.ID, childID)
		if err != nil {
			return fmt.Errorf("failed to insert chore assignment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit chore save: %w", err)
	}
	return nil
}

// Delete removes a chore and its assignments
func (r *ChoreRepository) Delete(familyID, choreID string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM chore_assignments WHERE chore_id = ?", choreID); err != nil {
		return fmt.Errorf("failed to delete chore assignments: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM chores WHERE id = ? AND family_id = ?", choreID, familyID); err != nil {
		return fmt.Errorf("failed to delete chore: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit chore deletion: %w", err)
	}
	return nil
}

// MarkSubmitted records a child's completion claim. A later submission
// overwrites an earlier one; the chore holds a single submission slot.
func (r *ChoreRepository) MarkSubmitted(familyID, choreID, childID string, submittedAt time.Time, emotion, photoURL *string) error {
	query := `
		UPDATE chores
		SET status = ?, submitted_by_child_id = ?, submitted_at = ?, emotion = ?, photo_url = ?
		WHERE id = ? AND family_id = ?
	`
	_, err := r.db.Exec(query,
		models.ChoreSubmitted, childID, submittedAt, emotion, photoURL, choreID, familyID)
	if err != nil {
		return fmt.Errorf("failed to submit chore: %w", err)
	}
	return nil
}

// MarkApproved flips a chore to approved, keeping the submission fields as a
// record of who earned it.
func (r *ChoreRepository) MarkApproved(q database.DBTX, familyID, choreID string) error {
	query := "UPDATE chores SET status = ? WHERE id = ? AND family_id = ?"
	if _, err := q.Exec(query, models.ChoreApproved, choreID, familyID); err != nil {
		return fmt.Errorf("failed to approve chore: %w", err)
	}
	return nil
}

// ResetToAvailable returns a chore to the available state and clears all
// submission fields. Safe to call regardless of current state.
func (r *ChoreRepository) ResetToAvailable(familyID, choreID string) error {
	query := `
		UPDATE chores
		SET status = ?, submitted_by_child_id = NULL, submitted_at = NULL, emotion = NULL, photo_url = NULL
		WHERE id = ? AND family_id = ?
	`
	if _, err := r.db.Exec(query, models.ChoreAvailable, choreID, familyID); err != nil {
		return fmt.Errorf("failed to reset chore: %w", err)
	}
	return nil
}
