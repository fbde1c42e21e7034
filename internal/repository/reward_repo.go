package repository

import (
	"database/sql"
	"fmt"

	"choreking/internal/database"
	"choreking/internal/models"
)

// RewardRepository handles database operations for rewards, their assignments
// and the pending-reward queue.
type RewardRepository struct {
	db *database.DB
}

// NewRewardRepository creates a new reward repository
func NewRewardRepository(db *database.DB) *RewardRepository {
	return &RewardRepository{db: db}
}

const rewardColumns = "id, family_id, name, points, type, created_at"

func scanReward(row interface{ Scan(...interface{}) error }) (*models.Reward, error) {
	reward := &models.Reward{}
	err := row.Scan(&reward.ID, &reward.FamilyID, &reward.Name, &reward.Points,
		&reward.Type, &reward.CreatedAt)
	if err != nil {
		return nil, err
	}
	return reward, nil
}

// GetByID retrieves a reward scoped to a family. Returns nil, nil when absent.
func (r *RewardRepository) GetByID(familyID, rewardID string) (*models.Reward, error) {
	query := "SELECT " + rewardColumns + " FROM rewards WHERE id = ? AND family_id = ?"
	reward, err := scanReward(r.db.QueryRow(query, rewardID, familyID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reward: %w", err)
	}
	return reward, nil
}

// ListByFamily returns the family's rewards ordered by creation time
func (r *RewardRepository) ListByFamily(familyID string) ([]models.Reward, error) {
	query := "SELECT " + rewardColumns + " FROM rewards WHERE family_id = ? ORDER BY created_at"
	rows, err := r.db.Query(query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query rewards: %w", err)
	}
	defer rows.Close()

	var rewards []models.Reward
	for rows.Next() {
		reward, err := scanReward(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reward: %w", err)
		}
		rewards = append(rewards, *reward)
	}
	return rewards, rows.Err()
}

// ListAssignments returns child IDs per reward for a whole family
func (r *RewardRepository) ListAssignments(familyID string) (map[string][]string, error) {
	query := `
		SELECT ra.reward_id, ra.child_id
		FROM reward_assignments ra
		JOIN rewards rw ON rw.id = ra.reward_id
		WHERE rw.family_id = ?
		ORDER BY ra.reward_id, ra.child_id
	`
	rows, err := r.db.Query(query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query reward assignments: %w", err)
	}
	defer rows.Close()

	assignments := make(map[string][]string)
	for rows.Next() {
		var rewardID, childID string
		if err := rows.Scan(&rewardID, &childID); err != nil {
			return nil, fmt.Errorf("failed to scan reward assignment: %w", err)
		}
		assignments[rewardID] = append(assignments[rewardID], childID)
	}
	return assignments, rows.Err()
}

// Save upserts a reward and replaces its assignment set wholesale in one
// transaction. Duplicate child IDs in assignedTo are collapsed.
func (r *RewardRepository) Save(reward *models.Reward, assignedTo []string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRow("SELECT COUNT(*) FROM rewards WHERE id = ? AND family_id = ?",
		reward.ID, reward.FamilyID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check reward existence: %w", err)
	}

	if exists > 0 {
		_, err = tx.Exec("UPDATE rewards SET name = ?, points = ?, type = ? WHERE id = ? AND family_id = ?",
			reward.Name, reward.Points, reward.Type, reward.ID, reward.FamilyID)
	} else {
		_, err = tx.Exec(`
			INSERT INTO rewards (id, family_id, name, points, type, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			reward.ID, reward.FamilyID, reward.Name, reward.Points, reward.Type, reward.CreatedAt)
	}
	if err != nil {
		return fmt.Errorf("failed to save reward: %w", err)
	}

	if _, err := tx.Exec("DELETE FROM reward_assignments WHERE reward_id = ?", reward.ID); err != nil {
		return fmt.Errorf("failed to clear reward assignments: %w", err)
	}
	seen := make(map[string]bool)
	for _, childID := range assignedTo {
		if seen[childID] {
			continue
		}
		seen[childID] = true
		_, err := tx.Exec("INSERT INTO reward_assignments (reward_id, child_id) VALUES (?, ?)",
			reward.ID, childID)
		if err != nil {
			return fmt.Errorf("failed to insert reward assignment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reward save: %w", err)
	}
	return nil
}

// Delete removes a reward, its assignments and any pending redemptions of it
func (r *RewardRepository) Delete(familyID, rewardID string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM reward_assignments WHERE reward_id = ?", rewardID); err != nil {
		return fmt.Errorf("failed to delete reward assignments: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM pending_rewards WHERE reward_id = ?", rewardID); err != nil {
		return fmt.Errorf("failed to delete pending rewards: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM rewards WHERE id = ? AND family_id = ?", rewardID, familyID); err != nil {
		return fmt.Errorf("failed to delete reward: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reward deletion: %w", err)
	}
	return nil
}

// CreatePending inserts a pending-reward row inside the caller's transaction
func (r *RewardRepository) CreatePending(q database.DBTX, pending *models.PendingReward) error {
	query := `
		INSERT INTO pending_rewards (id, family_id, child_id, reward_id, points, redeemed_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := q.Exec(query,
		pending.ID, pending.FamilyID, pending.ChildID, pending.RewardID,
		pending.Points, pending.RedeemedAt)
	if err != nil {
		return fmt.Errorf("failed to create pending reward: %w", err)
	}
	return nil
}

// ListPendingByFamily returns the family's pending rewards, oldest first
func (r *RewardRepository) ListPendingByFamily(familyID string) ([]models.PendingReward, error) {
	query := `
		SELECT id, family_id, child_id, reward_id, points, redeemed_at
		FROM pending_rewards
		WHERE family_id = ?
		ORDER BY redeemed_at
	`
	rows, err := r.db.Query(query, familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending rewards: %w", err)
	}
	defer rows.Close()

	var pending []models.PendingReward
	for rows.Next() {
		var p models.PendingReward
		if err := rows.Scan(&p.ID, &p.FamilyID, &p.ChildID, &p.RewardID, &p.Points, &p.RedeemedAt); err != nil {
			return nil, fmt.Errorf("failed to scan pending reward: %w", err)
		}
		pending = append(pending, p)
	}
	return pending, rows.Err()
}

// DeletePending removes a pending reward. Deleting an ID that is already gone
// is not an error.
func (r *RewardRepository) DeletePending(familyID, pendingID string) error {
	query := "DELETE FROM pending_rewards WHERE id = ? AND family_id = ?"
	if _, err := r.db.Exec(query, pendingID, familyID); err != nil {
		return fmt.Errorf("failed to delete pending reward: %w", err)
	}
	return nil
}

// SumDonationPoints totals the captured points of pending redemptions of
// donation-type rewards across all families.
func (r *RewardRepository) SumDonationPoints() (int, error) {
	query := `
		SELECT COALESCE(SUM(pr.points), 0)
		FROM pending_rewards pr
		JOIN rewards rw ON rw.id = pr.reward_id
		WHERE rw.type = ?
	`
	var total int
	if err := r.db.QueryRow(query, models.RewardDonation).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to sum donation points: %w", err)
	}
	return total, nil
}
