package repository

import (
	"database/sql"
	"fmt"

	"choreking/internal/database"
	"choreking/internal/models"
)

// ChildRepository handles database operations for children
type ChildRepository struct {
	db *database.DB
}

// NewChildRepository creates a new child repository
func NewChildRepository(db *database.DB) *ChildRepository {
	return &ChildRepository{db: db}
}

const childColumns = "id, family_id, name, pin, points, total_points_ever, avatar, created_at"

func scanChild(row interface{ Scan(...interface{}) error }) (*models.Child, error) {
	child := &models.Child{}
	err := row.Scan(
		&child.ID, &child.FamilyID, &child.Name, &child.PIN,
		&child.Points, &child.TotalPointsEver, &child.Avatar, &child.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return child, nil
}

// Create inserts a new child row
func (r *ChildRepository) Create(child *models.Child) error {
	query := `
		INSERT INTO children (id, family_id, name, pin, points, total_points_ever, avatar, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query,
		child.ID, child.FamilyID, child.Name, child.PIN,
		child.Points, child.TotalPointsEver, child.Avatar, child.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create child: %w", err)
	}
	return nil
}

// GetByID retrieves a child scoped to a family. Returns nil, nil when absent.
func (r *ChildRepository) GetByID(familyID, childID string) (*models.Child, error) {
	query := "SELECT " + childColumns + " FROM children WHERE id = ? AND family_id = ?"
	child, err := scanChild(r.db.QueryRow(query, childID, familyID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get child: %w", err)
	}
	return child, nil
}

// ListByFamily returns the family's children ordered by creation time
func (r *ChildRepository) ListByFamily(familyID string) ([]models.Child, error) {
	query := "SELECT " + childColumns + " FROM children WHERE family_id = ? ORDER BY created_at"
	rows, err := r.db.Query(query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query children: %w", err)
	}
	defer rows.Close()

	var children []models.Child
	for rows.Next() {
		child, err := scanChild(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan child: %w", err)
		}
		children = append(children, *child)
	}
	return children, rows.Err()
}

// Update replaces the child's editable profile fields
func (r *ChildRepository) Update(familyID, childID, name, pin, avatar string) error {
	query := "UPDATE children SET name = ?, pin = ?, avatar = ? WHERE id = ? AND family_id = ?"
	if _, err := r.db.Exec(query, name, pin, avatar, childID, familyID); err != nil {
		return fmt.Errorf("failed to update child: %w", err)
	}
	return nil
}

// AddPoints applies a point delta atomically on the database side. The
// spendable balance moves by delta in either direction; the lifetime total
// only grows, so negative deltas leave it untouched.
func (r *ChildRepository) AddPoints(q database.DBTX, childID string, delta int) error {
	lifetime := delta
	if lifetime < 0 {
		lifetime = 0
	}
	query := "UPDATE children SET points = points + ?, total_points_ever = total_points_ever + ? WHERE id = ?"
	if _, err := q.Exec(query, delta, lifetime, childID); err != nil {
		return fmt.Errorf("failed to update child points: %w", err)
	}
	return nil
}

// DebitPoints subtracts cost from the child's balance only if it covers the
// cost, and reports whether the debit happened. Lifetime total is untouched.
func (r *ChildRepository) DebitPoints(q database.DBTX, childID string, cost int) (bool, error) {
	query := "UPDATE children SET points = points - ? WHERE id = ? AND points >= ?"
	result, err := q.Exec(query, cost, childID, cost)
	if err != nil {
		return false, fmt.Errorf("failed to debit child points: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read debit result: %w", err)
	}
	return affected > 0, nil
}

// DeleteCascade removes a child and everything that references it: chore and
// reward assignments, pending rewards, and any in-flight chore submissions by
// this child (those chores revert to available). Runs in one transaction.
func (r *ChildRepository) DeleteCascade(familyID, childID string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	statements := []struct {
		query string
		args  []interface{}
	}{
		{"DELETE FROM chore_assignments WHERE child_id = ?", []interface{}{childID}},
		{"DELETE FROM reward_assignments WHERE child_id = ?", []interface{}{childID}},
		{"DELETE FROM pending_rewards WHERE child_id = ?", []interface{}{childID}},
		{`UPDATE chores
			SET status = ?, submitted_by_child_id = NULL, submitted_at = NULL, emotion = NULL, photo_url = NULL
			WHERE submitted_by_child_id = ?`, []interface{}{models.ChoreAvailable, childID}},
		{"DELETE FROM children WHERE id = ? AND family_id = ?", []interface{}{childID, familyID}},
	}
	for _, stmt := range statements {
		if _, err := tx.Exec(stmt.query, stmt.args...); err != nil {
			return fmt.Errorf("failed to delete child: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit child deletion: %w", err)
	}
	return nil
}

// Totals returns the number of children and the sum of lifetime points across
// all families, for the admin dashboard.
func (r *ChildRepository) Totals() (count int, lifetimePoints int, err error) {
	query := "SELECT COUNT(*), COALESCE(SUM(total_points_ever), 0) FROM children"
	if err := r.db.QueryRow(query).Scan(&count, &lifetimePoints); err != nil {
		return 0, 0, fmt.Errorf("failed to total children: %w", err)
	}
	return count, lifetimePoints, nil
}
