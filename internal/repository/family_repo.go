package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"choreking/internal/database"
	"choreking/internal/models"
)

// FamilyRepository handles database operations for families
type FamilyRepository struct {
	db *database.DB
}

// NewFamilyRepository creates a new family repository
func NewFamilyRepository(db *database.DB) *FamilyRepository {
	return &FamilyRepository{db: db}
}

const familyColumns = `id, family_code, family_name, city, email, password_hash,
	recovery_email, is_admin, subscription_plan, subscription_status,
	subscription_interval, subscription_renewal_date, subscription_last_payment_at,
	subscription_order_id, created_at`

func scanFamily(row interface{ Scan(...interface{}) error }) (*models.Family, error) {
	family := &models.Family{}
	var renewal, lastPayment sql.NullTime
	err := row.Scan(
		&family.ID,
		&family.FamilyCode,
		&family.FamilyName,
		&family.City,
		&family.Email,
		&family.PasswordHash,
		&family.RecoveryEmail,
		&family.IsAdmin,
		&family.SubscriptionPlan,
		&family.SubscriptionStatus,
		&family.SubscriptionInterval,
		&renewal,
		&lastPayment,
		&family.SubscriptionOrderID,
		&family.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if renewal.Valid {
		family.SubscriptionRenewalDate = &renewal.Time
	}
	if lastPayment.Valid {
		family.SubscriptionLastPaymentAt = &lastPayment.Time
	}
	return family, nil
}

// Create inserts a new family row. ID, code and password hash are set by the caller.
func (r *FamilyRepository) Create(family *models.Family) error {
	query := `
		INSERT INTO families (id, family_code, family_name, city, email, password_hash, is_admin, subscription_status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.Exec(query,
		family.ID, family.FamilyCode, family.FamilyName, family.City,
		family.Email, family.PasswordHash, family.IsAdmin,
		models.SubscriptionInactive, family.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create family: %w", err)
	}
	return nil
}

// GetByID retrieves a family by ID. Returns nil, nil when absent.
func (r *FamilyRepository) GetByID(familyID string) (*models.Family, error) {
	query := "SELECT " + familyColumns + " FROM families WHERE id = ?"
	family, err := scanFamily(r.db.QueryRow(query, familyID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family: %w", err)
	}
	return family, nil
}

// GetByEmail retrieves a family by email. Returns nil, nil when absent.
func (r *FamilyRepository) GetByEmail(email string) (*models.Family, error) {
	query := "SELECT " + familyColumns + " FROM families WHERE email = ?"
	family, err := scanFamily(r.db.QueryRow(query, email))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family by email: %w", err)
	}
	return family, nil
}

// GetByCode retrieves a family by its share code. Returns nil, nil when absent.
func (r *FamilyRepository) GetByCode(code string) (*models.Family, error) {
	query := "SELECT " + familyColumns + " FROM families WHERE family_code = ?"
	family, err := scanFamily(r.db.QueryRow(query, code))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get family by code: %w", err)
	}
	return family, nil
}

// ProfileUpdate carries optional admin-editable family fields; nil means keep.
type ProfileUpdate struct {
	FamilyName *string
	City       *string
	Email      *string
	FamilyCode *string
}

// UpdateProfile applies the non-nil fields of update to the family row
func (r *FamilyRepository) UpdateProfile(familyID string, update ProfileUpdate) error {
	var sets []string
	var args []interface{}

	if update.FamilyName != nil {
		sets = append(sets, "family_name = ?")
		args = append(args, *update.FamilyName)
	}
	if update.City != nil {
		sets = append(sets, "city = ?")
		args = append(args, *update.City)
	}
	if update.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, *update.Email)
	}
	if update.FamilyCode != nil {
		sets = append(sets, "family_code = ?")
		args = append(args, strings.ToUpper(*update.FamilyCode))
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, familyID)
	query := "UPDATE families SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	if _, err := r.db.Exec(query, args...); err != nil {
		return fmt.Errorf("failed to update family: %w", err)
	}
	return nil
}

// UpdatePassword replaces the family's password hash
func (r *FamilyRepository) UpdatePassword(familyID, passwordHash string) error {
	query := "UPDATE families SET password_hash = ? WHERE id = ?"
	if _, err := r.db.Exec(query, passwordHash, familyID); err != nil {
		return fmt.Errorf("failed to update family password: %w", err)
	}
	return nil
}

// UpdateRecoveryEmail sets the family's recovery email address
func (r *FamilyRepository) UpdateRecoveryEmail(familyID, recoveryEmail string) error {
	query := "UPDATE families SET recovery_email = ? WHERE id = ?"
	if _, err := r.db.Exec(query, recoveryEmail, familyID); err != nil {
		return fmt.Errorf("failed to update recovery email: %w", err)
	}
	return nil
}

// SetAdmin flags or unflags a family as back-office administrator
func (r *FamilyRepository) SetAdmin(familyID string, isAdmin bool) error {
	query := "UPDATE families SET is_admin = ? WHERE id = ?"
	if _, err := r.db.Exec(query, isAdmin, familyID); err != nil {
		return fmt.Errorf("failed to set admin flag: %w", err)
	}
	return nil
}

// SubscriptionUpdate carries the full replacement subscription state
type SubscriptionUpdate struct {
	Plan          *string
	Status        string
	Interval      *string
	RenewalDate   *time.Time
	LastPaymentAt *time.Time
	OrderID       *string
}

// UpdateSubscription replaces the family's subscription columns wholesale
func (r *FamilyRepository) UpdateSubscription(familyID string, update SubscriptionUpdate) error {
	query := `
		UPDATE families
		SET subscription_plan = ?, subscription_status = ?, subscription_interval = ?,
		    subscription_renewal_date = ?, subscription_last_payment_at = ?, subscription_order_id = ?
		WHERE id = ?
	`
	_, err := r.db.Exec(query,
		update.Plan, update.Status, update.Interval,
		update.RenewalDate, update.LastPaymentAt, update.OrderID, familyID)
	if err != nil {
		return fmt.Errorf("failed to update subscription: %w", err)
	}
	return nil
}

// Delete removes a family. Children, chores, rewards, pending rewards and
// sessions go with it via foreign-key cascade.
func (r *FamilyRepository) Delete(familyID string) error {
	if _, err := r.db.Exec("DELETE FROM families WHERE id = ?", familyID); err != nil {
		return fmt.Errorf("failed to delete family: %w", err)
	}
	return nil
}

// ListSummaries returns every family with its child count, newest first
func (r *FamilyRepository) ListSummaries() ([]models.FamilySummary, error) {
	query := `
		SELECT f.id, f.family_name, f.city, f.email, f.family_code, f.created_at,
		       COUNT(c.id), f.subscription_status, f.subscription_plan, f.subscription_interval
		FROM families f
		LEFT JOIN children c ON c.family_id = f.id
		GROUP BY f.id, f.family_name, f.city, f.email, f.family_code, f.created_at,
		         f.subscription_status, f.subscription_plan, f.subscription_interval
		ORDER BY f.created_at DESC
	`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list families: %w", err)
	}
	defer rows.Close()

	var summaries []models.FamilySummary
	for rows.Next() {
		var s models.FamilySummary
		if err := rows.Scan(
			&s.ID, &s.FamilyName, &s.City, &s.Email, &s.FamilyCode, &s.CreatedAt,
			&s.ChildrenCount, &s.SubscriptionStatus, &s.SubscriptionPlan, &s.SubscriptionInterval,
		); err != nil {
			return nil, fmt.Errorf("failed to scan family summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// ListAll returns every family ordered by creation time descending
func (r *FamilyRepository) ListAll() ([]models.Family, error) {
	query := "SELECT " + familyColumns + " FROM families ORDER BY created_at DESC"
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query families: %w", err)
	}
	defer rows.Close()

	var families []models.Family
	for rows.Next() {
		family, err := scanFamily(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan family: %w", err)
		}
		families = append(families, *family)
	}
	return families, rows.Err()
}

// Count returns the total number of families
func (r *FamilyRepository) Count() (int, error) {
	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM families").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count families: %w", err)
	}
	return count, nil
}
