package service

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"choreking/internal/database"
	"choreking/internal/models"
	"choreking/internal/notify"
	"choreking/internal/repository"
	"choreking/internal/security"
	"choreking/internal/validation"
)

var (
	ErrFamilyNotFound     = errors.New("family not found")
	ErrChildNotFound      = errors.New("child not found")
	ErrChoreNotFound      = errors.New("chore not found")
	ErrChoreNotSubmitted  = errors.New("chore has not been submitted")
	ErrRewardNotFound     = errors.New("reward not found")
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrInvalidPIN         = errors.New("invalid pin")
	ErrCodeInUse          = errors.New("family code already in use")
)

// FamilyService owns the family-scoped business logic: the nested state
// snapshot, child profiles, the chore approval workflow and the reward
// point accounting.
type FamilyService struct {
	db         *database.DB
	familyRepo *repository.FamilyRepository
	childRepo  *repository.ChildRepository
	choreRepo  *repository.ChoreRepository
	rewardRepo *repository.RewardRepository
	notifier   *notify.Notifier
}

// NewFamilyService creates a new family service
func NewFamilyService(
	db *database.DB,
	familyRepo *repository.FamilyRepository,
	childRepo *repository.ChildRepository,
	choreRepo *repository.ChoreRepository,
	rewardRepo *repository.RewardRepository,
	notifier *notify.Notifier,
) *FamilyService {
	return &FamilyService{
		db:         db,
		familyRepo: familyRepo,
		childRepo:  childRepo,
		choreRepo:  choreRepo,
		rewardRepo: rewardRepo,
		notifier:   notifier,
	}
}

// GetFamilyState loads the complete nested snapshot for a family
func (s *FamilyService) GetFamilyState(familyID string) (*FamilyState, error) {
	family, err := s.familyRepo.GetByID(familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load family: %w", err)
	}
	if family == nil {
		return nil, ErrFamilyNotFound
	}

	children, err := s.childRepo.ListByFamily(familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load children: %w", err)
	}
	chores, err := s.choreRepo.ListByFamily(familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load chores: %w", err)
	}
	choreAssignments, err := s.choreRepo.ListAssignments(familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load chore assignments: %w", err)
	}
	rewards, err := s.rewardRepo.ListByFamily(familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rewards: %w", err)
	}
	rewardAssignments, err := s.rewardRepo.ListAssignments(familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load reward assignments: %w", err)
	}
	pending, err := s.rewardRepo.ListPendingByFamily(familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending rewards: %w", err)
	}

	return serializeFamilyState(family, children, chores, choreAssignments,
		rewards, rewardAssignments, pending), nil
}

// FamilyPreview is the child-login picker view: family identity plus
// children without their PINs or balances.
type FamilyPreview struct {
	ID         string         `json:"id"`
	FamilyName string         `json:"familyName"`
	Children   []ChildPreview `json:"children"`
}

// ChildPreview is a child as shown on the login picker
type ChildPreview struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// LookupFamilyByCode resolves a share code to the login picker view
func (s *FamilyService) LookupFamilyByCode(code string) (*FamilyPreview, error) {
	if err := validation.ValidateFamilyCode(code); err != nil {
		return nil, err
	}
	family, err := s.familyRepo.GetByCode(code)
	if err != nil {
		return nil, fmt.Errorf("failed to look up family code: %w", err)
	}
	if family == nil {
		return nil, ErrFamilyNotFound
	}

	children, err := s.childRepo.ListByFamily(family.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load children: %w", err)
	}

	preview := &FamilyPreview{
		ID:         family.ID,
		FamilyName: family.FamilyName,
		Children:   []ChildPreview{},
	}
	for _, child := range children {
		preview.Children = append(preview.Children, ChildPreview{
			ID:     child.ID,
			Name:   child.Name,
			Avatar: child.Avatar,
		})
	}
	return preview, nil
}

// ChildLogin verifies a child's PIN within the family resolved by share code
func (s *FamilyService) ChildLogin(code, childID, pin string) (*models.Child, error) {
	family, err := s.familyRepo.GetByCode(code)
	if err != nil {
		return nil, fmt.Errorf("failed to look up family code: %w", err)
	}
	if family == nil {
		return nil, ErrFamilyNotFound
	}

	child, err := s.childRepo.GetByID(family.ID, childID)
	if err != nil {
		return nil, fmt.Errorf("failed to load child: %w", err)
	}
	if child == nil {
		return nil, ErrChildNotFound
	}
	if child.PIN != pin {
		return nil, ErrInvalidPIN
	}
	return child, nil
}

// AddChild creates a child profile in the family
func (s *FamilyService) AddChild(familyID, name, pin, avatar string) (*models.Child, error) {
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}
	if err := validation.ValidatePIN(pin); err != nil {
		return nil, err
	}

	child := &models.Child{
		ID:        uuid.New().String(),
		FamilyID:  familyID,
		Name:      name,
		PIN:       pin,
		Avatar:    avatar,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.childRepo.Create(child); err != nil {
		return nil, err
	}
	return child, nil
}

// UpdateChild replaces a child's profile fields
func (s *FamilyService) UpdateChild(familyID, childID, name, pin, avatar string) error {
	if err := validation.ValidateName(name); err != nil {
		return err
	}
	if err := validation.ValidatePIN(pin); err != nil {
		return err
	}

	child, err := s.childRepo.GetByID(familyID, childID)
	if err != nil {
		return fmt.Errorf("failed to load child: %w", err)
	}
	if child == nil {
		return ErrChildNotFound
	}
	return s.childRepo.Update(familyID, childID, name, pin, avatar)
}

// RemoveChild deletes a child and every row that references it. Chores the
// child had submitted revert to available.
func (s *FamilyService) RemoveChild(familyID, childID string) error {
	child, err := s.childRepo.GetByID(familyID, childID)
	if err != nil {
		return fmt.Errorf("failed to load child: %w", err)
	}
	if child == nil {
		return ErrChildNotFound
	}
	return s.childRepo.DeleteCascade(familyID, childID)
}

// AdjustChildPoints applies a manual point correction. The balance moves by
// delta; the lifetime total only grows on positive deltas.
func (s *FamilyService) AdjustChildPoints(familyID, childID string, delta int) error {
	child, err := s.childRepo.GetByID(familyID, childID)
	if err != nil {
		return fmt.Errorf("failed to load child: %w", err)
	}
	if child == nil {
		return ErrChildNotFound
	}
	return s.childRepo.AddPoints(s.db, childID, delta)
}

// SaveChore creates or updates a chore and replaces its assignment list.
// An empty choreID means create.
func (s *FamilyService) SaveChore(familyID, choreID, name string, points int, assignedTo []string) (*models.Chore, error) {
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}
	if err := validation.ValidatePoints(points); err != nil {
		return nil, err
	}

	if choreID == "" {
		choreID = uuid.New().String()
	}
	chore := &models.Chore{
		ID:        choreID,
		FamilyID:  familyID,
		Name:      name,
		Points:    points,
		Status:    models.ChoreAvailable,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.choreRepo.Save(chore, assignedTo); err != nil {
		return nil, err
	}
	return chore, nil
}

// UpdateChore merges an edit into an existing chore. Nil fields keep their
// current values and a nil assignedTo keeps the assignment set; an empty
// non-nil list clears it.
func (s *FamilyService) UpdateChore(familyID, choreID string, name *string, points *int, assignedTo []string) (*models.Chore, error) {
	chore, err := s.choreRepo.GetByID(familyID, choreID)
	if err != nil {
		return nil, fmt.Errorf("failed to load chore: %w", err)
	}
	if chore == nil {
		return nil, ErrChoreNotFound
	}

	if name == nil {
		name = &chore.Name
	}
	if points == nil {
		points = &chore.Points
	}
	if assignedTo == nil {
		assignments, err := s.choreRepo.ListAssignments(familyID)
		if err != nil {
			return nil, fmt.Errorf("failed to load chore assignments: %w", err)
		}
		assignedTo = assignments[choreID]
	}
	return s.SaveChore(familyID, choreID, *name, *points, assignedTo)
}

// RemoveChore deletes a chore and its assignments
func (s *FamilyService) RemoveChore(familyID, choreID string) error {
	chore, err := s.choreRepo.GetByID(familyID, choreID)
	if err != nil {
		return fmt.Errorf("failed to load chore: %w", err)
	}
	if chore == nil {
		return ErrChoreNotFound
	}
	return s.choreRepo.Delete(familyID, choreID)
}

// SubmitChore records a child's claim that a chore is done. A chore holds a
// single submission slot, so a second child submitting overwrites the first.
// A nil submittedAt stamps the server clock; clients that queued the
// submission offline may pass the original moment. The parent is notified
// best-effort.
func (s *FamilyService) SubmitChore(familyID, choreID, childID string, emotion, photoURL *string, submittedAt *time.Time) error {
	family, err := s.familyRepo.GetByID(familyID)
	if err != nil {
		return fmt.Errorf("failed to load family: %w", err)
	}
	if family == nil {
		return ErrFamilyNotFound
	}
	chore, err := s.choreRepo.GetByID(familyID, choreID)
	if err != nil {
		return fmt.Errorf("failed to load chore: %w", err)
	}
	if chore == nil {
		return ErrChoreNotFound
	}
	child, err := s.childRepo.GetByID(familyID, childID)
	if err != nil {
		return fmt.Errorf("failed to load child: %w", err)
	}
	if child == nil {
		return ErrChildNotFound
	}

	when := time.Now().UTC()
	if submittedAt != nil {
		when = submittedAt.UTC()
	}
	if err := s.choreRepo.MarkSubmitted(familyID, choreID, childID, when, emotion, photoURL); err != nil {
		return err
	}

	s.notifier.Notify(notify.Event{
		Kind: notify.EventChoreSubmitted,
		To:   family.Email,
		Fields: map[string]string{
			"parentName": family.FamilyName,
			"childName":  child.Name,
			"choreName":  chore.Name,
			"points":     strconv.Itoa(chore.Points),
		},
	})
	return nil
}

// ApproveChore accepts a pending submission and credits the submitting child.
// The status flip and the point credit commit together.
func (s *FamilyService) ApproveChore(familyID, choreID string) error {
	chore, err := s.choreRepo.GetByID(familyID, choreID)
	if err != nil {
		return fmt.Errorf("failed to load chore: %w", err)
	}
	if chore == nil {
		return ErrChoreNotFound
	}
	if !chore.IsSubmitted() {
		return ErrChoreNotSubmitted
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.choreRepo.MarkApproved(tx, familyID, choreID); err != nil {
		return err
	}
	if err := s.childRepo.AddPoints(tx, *chore.SubmittedByChildID, chore.Points); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit approval: %w", err)
	}
	return nil
}

// RejectChore sends a chore back to available and clears the submission
// fields. Rejecting a chore that was never submitted is a no-op reset.
func (s *FamilyService) RejectChore(familyID, choreID string) error {
	chore, err := s.choreRepo.GetByID(familyID, choreID)
	if err != nil {
		return fmt.Errorf("failed to load chore: %w", err)
	}
	if chore == nil {
		return ErrChoreNotFound
	}
	return s.choreRepo.ResetToAvailable(familyID, choreID)
}

// SaveReward creates or updates a reward and replaces its assignment list.
// An empty rewardID means create.
func (s *FamilyService) SaveReward(familyID, rewardID, name string, points int, rewardType string, assignedTo []string) (*models.Reward, error) {
	if err := validation.ValidateName(name); err != nil {
		return nil, err
	}
	if err := validation.ValidatePoints(points); err != nil {
		return nil, err
	}
	if err := validation.ValidateRewardType(rewardType); err != nil {
		return nil, err
	}

	if rewardID == "" {
		rewardID = uuid.New().String()
	}
	reward := &models.Reward{
		ID:        rewardID,
		FamilyID:  familyID,
		Name:      name,
		Points:    points,
		Type:      rewardType,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.rewardRepo.Save(reward, assignedTo); err != nil {
		return nil, err
	}
	return reward, nil
}

// UpdateReward merges an edit into an existing reward. Nil fields keep their
// current values and a nil assignedTo keeps the assignment set; an empty
// non-nil list clears it.
func (s *FamilyService) UpdateReward(familyID, rewardID string, name *string, points *int, rewardType *string, assignedTo []string) (*models.Reward, error) {
	reward, err := s.rewardRepo.GetByID(familyID, rewardID)
	if err != nil {
		return nil, fmt.Errorf("failed to load reward: %w", err)
	}
	if reward == nil {
		return nil, ErrRewardNotFound
	}

	if name == nil {
		name = &reward.Name
	}
	if points == nil {
		points = &reward.Points
	}
	if rewardType == nil {
		rewardType = &reward.Type
	}
	if assignedTo == nil {
		assignments, err := s.rewardRepo.ListAssignments(familyID)
		if err != nil {
			return nil, fmt.Errorf("failed to load reward assignments: %w", err)
		}
		assignedTo = assignments[rewardID]
	}
	return s.SaveReward(familyID, rewardID, *name, *points, *rewardType, assignedTo)
}

// RemoveReward deletes a reward, its assignments and any pending redemptions
func (s *FamilyService) RemoveReward(familyID, rewardID string) error {
	reward, err := s.rewardRepo.GetByID(familyID, rewardID)
	if err != nil {
		return fmt.Errorf("failed to load reward: %w", err)
	}
	if reward == nil {
		return ErrRewardNotFound
	}
	return s.rewardRepo.Delete(familyID, rewardID)
}

// RedeemReward debits a child's balance and queues the reward for parent
// fulfilment. The debit and the queue insert commit together; the queued row
// captures the cost at redemption time. The parent is notified best-effort.
func (s *FamilyService) RedeemReward(familyID, rewardID, childID string) (*models.PendingReward, error) {
	family, err := s.familyRepo.GetByID(familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load family: %w", err)
	}
	if family == nil {
		return nil, ErrFamilyNotFound
	}
	reward, err := s.rewardRepo.GetByID(familyID, rewardID)
	if err != nil {
		return nil, fmt.Errorf("failed to load reward: %w", err)
	}
	if reward == nil {
		return nil, ErrRewardNotFound
	}
	child, err := s.childRepo.GetByID(familyID, childID)
	if err != nil {
		return nil, fmt.Errorf("failed to load child: %w", err)
	}
	if child == nil {
		return nil, ErrChildNotFound
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	debited, err := s.childRepo.DebitPoints(tx, childID, reward.Points)
	if err != nil {
		return nil, err
	}
	if !debited {
		return nil, ErrInsufficientPoints
	}

	pending := &models.PendingReward{
		ID:         uuid.New().String(),
		FamilyID:   familyID,
		ChildID:    childID,
		RewardID:   rewardID,
		Points:     reward.Points,
		RedeemedAt: time.Now().UTC(),
	}
	if err := s.rewardRepo.CreatePending(tx, pending); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit redemption: %w", err)
	}

	s.notifier.Notify(notify.Event{
		Kind: notify.EventRewardRedeemed,
		To:   family.Email,
		Fields: map[string]string{
			"parentName": family.FamilyName,
			"childName":  child.Name,
			"rewardName": reward.Name,
			"points":     strconv.Itoa(reward.Points),
		},
	})
	return pending, nil
}

// ClearPendingReward marks a queued redemption as delivered by removing it.
// Clearing an ID that is already gone succeeds, so double-clicks are safe.
func (s *FamilyService) ClearPendingReward(familyID, pendingID string) error {
	return s.rewardRepo.DeletePending(familyID, pendingID)
}

// UpdateProfile applies admin edits to a family's identity fields
func (s *FamilyService) UpdateProfile(familyID string, update repository.ProfileUpdate) error {
	family, err := s.familyRepo.GetByID(familyID)
	if err != nil {
		return fmt.Errorf("failed to load family: %w", err)
	}
	if family == nil {
		return ErrFamilyNotFound
	}
	if update.Email != nil {
		if err := validation.ValidateEmail(*update.Email); err != nil {
			return err
		}
		existing, err := s.familyRepo.GetByEmail(*update.Email)
		if err != nil {
			return fmt.Errorf("failed to check email: %w", err)
		}
		if existing != nil && existing.ID != familyID {
			return ErrEmailInUse
		}
	}
	if update.FamilyName != nil {
		if err := validation.ValidateName(*update.FamilyName); err != nil {
			return err
		}
	}
	if update.FamilyCode != nil {
		if err := validation.ValidateFamilyCode(*update.FamilyCode); err != nil {
			return err
		}
		existing, err := s.familyRepo.GetByCode(*update.FamilyCode)
		if err != nil {
			return fmt.Errorf("failed to check family code: %w", err)
		}
		if existing != nil && existing.ID != familyID {
			return ErrCodeInUse
		}
	}
	return s.familyRepo.UpdateProfile(familyID, update)
}

// ChangePassword verifies the current password before setting a new one
func (s *FamilyService) ChangePassword(familyID, currentPassword, newPassword string) error {
	family, err := s.familyRepo.GetByID(familyID)
	if err != nil {
		return fmt.Errorf("failed to load family: %w", err)
	}
	if family == nil {
		return ErrFamilyNotFound
	}
	if !security.CheckPassword(currentPassword, family.PasswordHash) {
		return ErrInvalidCredentials
	}
	if err := validation.ValidatePassword(newPassword); err != nil {
		return err
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.familyRepo.UpdatePassword(familyID, hash)
}

// SetPassword overwrites a family's password without checking the current
// one. This is the admin reset path; self-service goes through
// ChangePassword.
func (s *FamilyService) SetPassword(familyID, newPassword string) error {
	family, err := s.familyRepo.GetByID(familyID)
	if err != nil {
		return fmt.Errorf("failed to load family: %w", err)
	}
	if family == nil {
		return ErrFamilyNotFound
	}
	if err := validation.ValidatePassword(newPassword); err != nil {
		return err
	}

	hash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.familyRepo.UpdatePassword(familyID, hash)
}

// UpdateRecoveryEmail sets the address used for family-code recovery
func (s *FamilyService) UpdateRecoveryEmail(familyID, recoveryEmail string) error {
	if err := validation.ValidateEmail(recoveryEmail); err != nil {
		return err
	}
	family, err := s.familyRepo.GetByID(familyID)
	if err != nil {
		return fmt.Errorf("failed to load family: %w", err)
	}
	if family == nil {
		return ErrFamilyNotFound
	}
	return s.familyRepo.UpdateRecoveryEmail(familyID, recoveryEmail)
}
