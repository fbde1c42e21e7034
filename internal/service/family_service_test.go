package service

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"choreking/internal/database"
	"choreking/internal/models"
	"choreking/internal/notify"
	"choreking/internal/repository"
	"choreking/internal/security"
)

type testEnv struct {
	db         *database.DB
	familyRepo *repository.FamilyRepository
	childRepo  *repository.ChildRepository
	choreRepo  *repository.ChoreRepository
	rewardRepo *repository.RewardRepository
	svc        *FamilyService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db, err := database.Initialize(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations("../../migrations"); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	familyRepo := repository.NewFamilyRepository(db)
	childRepo := repository.NewChildRepository(db)
	choreRepo := repository.NewChoreRepository(db)
	rewardRepo := repository.NewRewardRepository(db)
	notifier := notify.NewNotifier("", "", nil, "")
	return &testEnv{
		db:         db,
		familyRepo: familyRepo,
		childRepo:  childRepo,
		choreRepo:  choreRepo,
		rewardRepo: rewardRepo,
		svc:        NewFamilyService(db, familyRepo, childRepo, choreRepo, rewardRepo, notifier),
	}
}

// withWebhook rebuilds the service around a notifier posting to url
func (e *testEnv) withWebhook(url string) *FamilyService {
	notifier := notify.NewNotifier(url, "", nil, "")
	return NewFamilyService(e.db, e.familyRepo, e.childRepo, e.choreRepo, e.rewardRepo, notifier)
}

func (e *testEnv) createFamily(t *testing.T, code string) *models.Family {
	t.Helper()
	family := &models.Family{
		ID:                 uuid.New().String(),
		FamilyCode:         code,
		FamilyName:         "Test Family",
		City:               "Utrecht",
		Email:              code + "@example.com",
		PasswordHash:       "hash",
		SubscriptionStatus: models.SubscriptionInactive,
		CreatedAt:          time.Now().UTC(),
	}
	if err := e.familyRepo.Create(family); err != nil {
		t.Fatalf("Failed to create family: %v", err)
	}
	return family
}

func (e *testEnv) createChild(t *testing.T, familyID, name string, points int) *models.Child {
	t.Helper()
	child := &models.Child{
		ID:              uuid.New().String(),
		FamilyID:        familyID,
		Name:            name,
		PIN:             "1234",
		Points:          points,
		TotalPointsEver: points,
		Avatar:          "bear",
		CreatedAt:       time.Now().UTC(),
	}
	if err := e.childRepo.Create(child); err != nil {
		t.Fatalf("Failed to create child: %v", err)
	}
	return child
}

func (e *testEnv) mustChild(t *testing.T, familyID, childID string) *models.Child {
	t.Helper()
	child, err := e.childRepo.GetByID(familyID, childID)
	if err != nil {
		t.Fatalf("Failed to load child: %v", err)
	}
	if child == nil {
		t.Fatal("Child not found")
	}
	return child
}

func (e *testEnv) mustChore(t *testing.T, familyID, choreID string) *models.Chore {
	t.Helper()
	chore, err := e.choreRepo.GetByID(familyID, choreID)
	if err != nil {
		t.Fatalf("Failed to load chore: %v", err)
	}
	if chore == nil {
		t.Fatal("Chore not found")
	}
	return chore
}

func TestRedeemReward(t *testing.T) {
	env := newTestEnv(t)
	family := env.createFamily(t, "AAAAAA")
	child := env.createChild(t, family.ID, "Emma", 10)

	reward, err := env.svc.SaveReward(family.ID, "", "Cinema trip", 30, models.RewardExperience, nil)
	if err != nil {
		t.Fatalf("SaveReward() error = %v", err)
	}

	// Too expensive: balance must stay untouched
	_, err = env.svc.RedeemReward(family.ID, reward.ID, child.ID)
	if !errors.Is(err, ErrInsufficientPoints) {
		t.Fatalf("RedeemReward() error = %v, want ErrInsufficientPoints", err)
	}
	if got := env.mustChild(t, family.ID, child.ID); got.Points != 10 {
		t.Errorf("points after failed redeem = %d, want 10", got.Points)
	}
	pending, err := env.rewardRepo.ListPendingByFamily(family.ID)
	if err != nil {
		t.Fatalf("ListPendingByFamily() error = %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending rewards after failed redeem = %d, want 0", len(pending))
	}

	// Affordable: debit balance, keep lifetime total, capture the price
	cheap, err := env.svc.SaveReward(family.ID, "", "Extra story", 10, models.RewardPrivilege, nil)
	if err != nil {
		t.Fatalf("SaveReward() error = %v", err)
	}
	queued, err := env.svc.RedeemReward(family.ID, cheap.ID, child.ID)
	if err != nil {
		t.Fatalf("RedeemReward() error = %v", err)
	}
	if queued.Points != 10 {
		t.Errorf("captured points = %d, want 10", queued.Points)
	}
	got := env.mustChild(t, family.ID, child.ID)
	if got.Points != 0 {
		t.Errorf("points after redeem = %d, want 0", got.Points)
	}
	if got.TotalPointsEver != 10 {
		t.Errorf("lifetime points after redeem = %d, want 10", got.TotalPointsEver)
	}

	// A later price change must not rewrite the captured cost
	if _, err := env.svc.SaveReward(family.ID, cheap.ID, "Extra story", 99, models.RewardPrivilege, nil); err != nil {
		t.Fatalf("SaveReward() update error = %v", err)
	}
	pending, err = env.rewardRepo.ListPendingByFamily(family.ID)
	if err != nil {
		t.Fatalf("ListPendingByFamily() error = %v", err)
	}
	if len(pending) != 1 || pending[0].Points != 10 {
		t.Errorf("pending after price change = %+v, want one entry with 10 points", pending)
	}
}

func TestRedeemRewardCheckOrder(t *testing.T) {
	env := newTestEnv(t)
	family := env.createFamily(t, "AAAAAA")
	child := env.createChild(t, family.ID, "Emma", 100)

	// Missing reward wins over missing child
	_, err := env.svc.RedeemReward(family.ID, uuid.New().String(), uuid.New().String())
	if !errors.Is(err, ErrRewardNotFound) {
		t.Errorf("RedeemReward() error = %v, want ErrRewardNotFound", err)
	}

	reward, err := env.svc.SaveReward(family.ID, "", "Cinema trip", 10, models.RewardExperience, nil)
	if err != nil {
		t.Fatalf("SaveReward() error = %v", err)
	}
	_, err = env.svc.RedeemReward(family.ID, reward.ID, uuid.New().String())
	if !errors.Is(err, ErrChildNotFound) {
		t.Errorf("RedeemReward() error = %v, want ErrChildNotFound", err)
	}

	// A reward from another family must not be redeemable
	other := env.createFamily(t, "BBBBBB")
	otherReward, err := env.svc.SaveReward(other.ID, "", "Other", 1, models.RewardMoney, nil)
	if err != nil {
		t.Fatalf("SaveReward() error = %v", err)
	}
	_, err = env.svc.RedeemReward(family.ID, otherReward.ID, child.ID)
	if !errors.Is(err, ErrRewardNotFound) {
		t.Errorf("cross-family RedeemReward() error = %v, want ErrRewardNotFound", err)
	}
}

func TestApproveChore(t *testing.T) {
	env := newTestEnv(t)
	family := env.createFamily(t, "AAAAAA")
	child := env.createChild(t, family.ID, "Emma", 5)

	chore, err := env.svc.SaveChore(family.ID, "", "Dishes", 7, []string{child.ID})
	if err != nil {
		t.Fatalf("SaveChore() error = %v", err)
	}

	// Approving before any submission must fail without crediting
	if err := env.svc.ApproveChore(family.ID, chore.ID); !errors.Is(err, ErrChoreNotSubmitted) {
		t.Fatalf("ApproveChore() error = %v, want ErrChoreNotSubmitted", err)
	}
	if got := env.mustChild(t, family.ID, child.ID); got.Points != 5 {
		t.Errorf("points after invalid approval = %d, want 5", got.Points)
	}

	emotion := "proud"
	if err := env.svc.SubmitChore(family.ID, chore.ID, child.ID, &emotion, nil, nil); err != nil {
		t.Fatalf("SubmitChore() error = %v", err)
	}
	if err := env.svc.ApproveChore(family.ID, chore.ID); err != nil {
		t.Fatalf("ApproveChore() error = %v", err)
	}

	got := env.mustChild(t, family.ID, child.ID)
	if got.Points != 12 {
		t.Errorf("points after approval = %d, want 12", got.Points)
	}
	if got.TotalPointsEver != 12 {
		t.Errorf("lifetime points after approval = %d, want 12", got.TotalPointsEver)
	}
	approved := env.mustChore(t, family.ID, chore.ID)
	if approved.Status != models.ChoreApproved {
		t.Errorf("chore status = %q, want approved", approved.Status)
	}
	if approved.SubmittedByChildID == nil || *approved.SubmittedByChildID != child.ID {
		t.Error("approval should keep the submitter on record")
	}
}

func TestApproveChoreCreditsOnlyOnce(t *testing.T) {
	env := newTestEnv(t)
	family := env.createFamily(t, "AAAAAA")
	child := env.createChild(t, family.ID, "Emma", 0)

	chore, err := env.svc.SaveChore(family.ID, "", "Dishes", 15, []string{child.ID})
	if err != nil {
		t.Fatalf("SaveChore() error = %v", err)
	}
	if err := env.svc.SubmitChore(family.ID, chore.ID, child.ID, nil, nil, nil); err != nil {
		t.Fatalf("SubmitChore() error = %v", err)
	}
	if err := env.svc.ApproveChore(family.ID, chore.ID); err != nil {
		t.Fatalf("ApproveChore() error = %v", err)
	}

	// A repeated approval of an already-approved chore must not pay again
	if err := env.svc.ApproveChore(family.ID, chore.ID); !errors.Is(err, ErrChoreNotSubmitted) {
		t.Fatalf("second ApproveChore() error = %v, want ErrChoreNotSubmitted", err)
	}
	got := env.mustChild(t, family.ID, child.ID)
	if got.Points != 15 || got.TotalPointsEver != 15 {
		t.Errorf("after double approval: points=%d lifetime=%d, want 15/15", got.Points, got.TotalPointsEver)
	}
}

func TestRejectChoreClearsSubmission(t *testing.T) {
	env := newTestEnv(t)
	family := env.createFamily(t, "AAAAAA")
	child := env.createChild(t, family.ID, "Emma", 0)

	chore, err := env.svc.SaveChore(family.ID, "", "Dishes", 7, []string{child.ID})
	if err != nil {
		t.Fatalf("SaveChore() error = %v", err)
	}
	emotion := "tired"
	photo := "https://example.com/p.jpg"
	if err := env.svc.SubmitChore(family.ID, chore.ID, child.ID, &emotion, &photo, nil); err != nil {
		t.Fatalf("SubmitChore() error = %v", err)
	}

	if err := env.svc.RejectChore(family.ID, chore.ID); err != nil {
		t.Fatalf("RejectChore() error = %v", err)
	}

	got := env.mustChore(t, family.ID, chore.ID)
	if got.Status != models.ChoreAvailable {
		t.Errorf("chore status = %q, want available", got.Status)
	}
	if got.SubmittedByChildID != nil || got.SubmittedAt != nil || got.Emotion != nil || got.PhotoURL != nil {
		t.Errorf("submission fields not cleared: %+v", got)
	}
	if child := env.mustChild(t, family.ID, child.ID); child.Points != 0 {
		t.Errorf("points after rejection = %d, want 0", child.Points)
	}

	// Rejecting again is a harmless reset
	if err := env.svc.RejectChore(family.ID, chore.ID); err != nil {
		t.Errorf("second RejectChore() error = %v", err)
	}
}

func TestSubmitChoreOverwrites(t *testing.T) {
	env := newTestEnv(t)
	family := env.createFamily(t, "AAAAAA")
	first := env.createChild(t, family.ID, "Emma", 0)
	second := env.createChild(t, family.ID, "Noah", 0)

	chore, err := env.svc.SaveChore(family.ID, "", "Dishes", 3, []string{first.ID, second.ID})
	if err != nil {
		t.Fatalf("SaveChore() error = %v", err)
	}

	if err := env.svc.SubmitChore(family.ID, chore.ID, first.ID, nil, nil, nil); err != nil {
		t.Fatalf("SubmitChore() error = %v", err)
	}
	if err := env.svc.SubmitChore(family.ID, chore.ID, second.ID, nil, nil, nil); err != nil {
		t.Fatalf("second SubmitChore() error = %v", err)
	}

	got := env.mustChore(t, family.ID, chore.ID)
	if got.SubmittedByChildID == nil || *got.SubmittedByChildID != second.ID {
		t.Error("second submission should overwrite the first")
	}
}

func TestRemoveChildCascade(t *testing.T) {
	env := newTestEnv(t)
	family := env.createFamily(t, "AAAAAA")
	child := env.createChild(t, family.ID, "Emma", 50)
	sibling := env.createChild(t, family.ID, "Noah", 0)

	chore, err := env.svc.SaveChore(family.ID, "", "Dishes", 3, []string{child.ID, sibling.ID})
	if err != nil {
		t.Fatalf("SaveChore() error = %v", err)
	}
	reward, err := env.svc.SaveReward(family.ID, "", "Cinema trip", 10, models.RewardExperience, []string{child.ID})
	if err != nil {
		t.Fatalf("SaveReward() error = %v", err)
	}
	if _, err := env.svc.RedeemReward(family.ID, reward.ID, child.ID); err != nil {
		t.Fatalf("RedeemReward() error = %v", err)
	}
	if err := env.svc.SubmitChore(family.ID, chore.ID, child.ID, nil, nil, nil); err != nil {
		t.Fatalf("SubmitChore() error = %v", err)
	}

	if err := env.svc.RemoveChild(family.ID, child.ID); err != nil {
		t.Fatalf("RemoveChild() error = %v", err)
	}

	if got, err := env.childRepo.GetByID(family.ID, child.ID); err != nil || got != nil {
		t.Errorf("child still present after removal: %v, %v", got, err)
	}
	pending, err := env.rewardRepo.ListPendingByFamily(family.ID)
	if err != nil {
		t.Fatalf("ListPendingByFamily() error = %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending rewards after removal = %d, want 0", len(pending))
	}
	// The submitted chore reverts to available with a clean slate
	got := env.mustChore(t, family.ID, chore.ID)
	if got.Status != models.ChoreAvailable || got.SubmittedByChildID != nil {
		t.Errorf("chore not reverted after child removal: %+v", got)
	}
	// The sibling keeps its assignment
	assignments, err := env.choreRepo.ListAssignments(family.ID)
	if err != nil {
		t.Fatalf("ListAssignments() error = %v", err)
	}
	if len(assignments[chore.ID]) != 1 || assignments[chore.ID][0] != sibling.ID {
		t.Errorf("chore assignments after removal = %v, want only sibling", assignments[chore.ID])
	}
}

func TestAdjustChildPoints(t *testing.T) {
	env := newTestEnv(t)
	family := env.createFamily(t, "AAAAAA")
	child := env.createChild(t, family.ID, "Emma", 10)

	if err := env.svc.AdjustChildPoints(family.ID, child.ID, 5); err != nil {
		t.Fatalf("AdjustChildPoints(+5) error = %v", err)
	}
	got := env.mustChild(t, family.ID, child.ID)
	if got.Points != 15 || got.TotalPointsEver != 15 {
		t.Errorf("after +5: points=%d lifetime=%d, want 15/15", got.Points, got.TotalPointsEver)
	}

	// Negative corrections lower the balance but never the lifetime total
	if err := env.svc.AdjustChildPoints(family.ID, child.ID, -3); err != nil {
		t.Fatalf("AdjustChildPoints(-3) error = %v", err)
	}
	got = env.mustChild(t, family.ID, child.ID)
	if got.Points != 12 || got.TotalPointsEver != 15 {
		t.Errorf("after -3: points=%d lifetime=%d, want 12/15", got.Points, got.TotalPointsEver)
	}

	if err := env.svc.AdjustChildPoints(family.ID, uuid.New().String(), 1); !errors.Is(err, ErrChildNotFound) {
		t.Errorf("AdjustChildPoints(unknown) error = %v, want ErrChildNotFound", err)
	}
}

func TestSaveChoreReplacesAssignments(t *testing.T) {
	env := newTestEnv(t)
	family := env.createFamily(t, "AAAAAA")
	first := env.createChild(t, family.ID, "Emma", 0)
	second := env.createChild(t, family.ID, "Noah", 0)

	// Duplicates collapse on insert
	chore, err := env.svc.SaveChore(family.ID, "", "Dishes", 3, []string{first.ID, first.ID, second.ID})
	if err != nil {
		t.Fatalf("SaveChore() error = %v", err)
	}
	assignments, err := env.choreRepo.ListAssignments(family.ID)
	if err != nil {
		t.Fatalf("ListAssignments() error = %v", err)
	}
	if len(assignments[chore.ID]) != 2 {
		t.Errorf("assignments = %v, want 2 distinct children", assignments[chore.ID])
	}

	// Saving again replaces the set wholesale
	if _, err := env.svc.SaveChore(family.ID, chore.ID, "Dishes", 3, []string{second.ID}); err != nil {
		t.Fatalf("SaveChore() update error = %v", err)
	}
	assignments, err = env.choreRepo.ListAssignments(family.ID)
	if err != nil {
		t.Fatalf("ListAssignments() error = %v", err)
	}
	if len(assignments[chore.ID]) != 1 || assignments[chore.ID][0] != second.ID {
		t.Errorf("assignments after replace = %v, want only second child", assignments[chore.ID])
	}
}

func TestClearPendingRewardIdempotent(t *testing.T) {
	env := newTestEnv(t)
	family := env.createFamily(t, "AAAAAA")
	child := env.createChild(t, family.ID, "Emma", 10)

	reward, err := env.svc.SaveReward(family.ID, "", "Extra story", 10, models.RewardPrivilege, nil)
	if err != nil {
		t.Fatalf("SaveReward() error = %v", err)
	}
	queued, err := env.svc.RedeemReward(family.ID, reward.ID, child.ID)
	if err != nil {
		t.Fatalf("RedeemReward() error = %v", err)
	}

	if err := env.svc.ClearPendingReward(family.ID, queued.ID); err != nil {
		t.Fatalf("ClearPendingReward() error = %v", err)
	}
	if err := env.svc.ClearPendingReward(family.ID, queued.ID); err != nil {
		t.Errorf("second ClearPendingReward() error = %v, want nil", err)
	}
}

func TestGetFamilyState(t *testing.T) {
	env := newTestEnv(t)
	family := env.createFamily(t, "AAAAAA")
	child := env.createChild(t, family.ID, "Emma", 10)

	chore, err := env.svc.SaveChore(family.ID, "", "Dishes", 3, []string{child.ID})
	if err != nil {
		t.Fatalf("SaveChore() error = %v", err)
	}
	reward, err := env.svc.SaveReward(family.ID, "", "Extra story", 10, models.RewardPrivilege, []string{child.ID})
	if err != nil {
		t.Fatalf("SaveReward() error = %v", err)
	}
	if _, err := env.svc.RedeemReward(family.ID, reward.ID, child.ID); err != nil {
		t.Fatalf("RedeemReward() error = %v", err)
	}

	state, err := env.svc.GetFamilyState(family.ID)
	if err != nil {
		t.Fatalf("GetFamilyState() error = %v", err)
	}
	if state.FamilyCode != "AAAAAA" {
		t.Errorf("familyCode = %q", state.FamilyCode)
	}
	if len(state.Children) != 1 || state.Children[0].Name != "Emma" {
		t.Errorf("children = %+v", state.Children)
	}
	if len(state.Chores) != 1 || len(state.Chores[0].AssignedTo) != 1 || state.Chores[0].AssignedTo[0] != child.ID {
		t.Errorf("chores = %+v", state.Chores)
	}
	if state.Chores[0].ID != chore.ID || state.Chores[0].Status != models.ChoreAvailable {
		t.Errorf("chore state = %+v", state.Chores[0])
	}
	if len(state.PendingRewards) != 1 {
		t.Fatalf("pendingRewards = %+v", state.PendingRewards)
	}
	p := state.PendingRewards[0]
	if p.ChildName != "Emma" || p.RewardName != "Extra story" || p.Points != 10 {
		t.Errorf("pending reward = %+v", p)
	}
	if _, err := time.Parse(time.RFC3339, p.RedeemedAt); err != nil {
		t.Errorf("redeemedAt %q is not RFC3339: %v", p.RedeemedAt, err)
	}

	if _, err := env.svc.GetFamilyState(uuid.New().String()); !errors.Is(err, ErrFamilyNotFound) {
		t.Errorf("GetFamilyState(unknown) error = %v, want ErrFamilyNotFound", err)
	}
}

func TestLookupFamilyByCodeAndChildLogin(t *testing.T) {
	env := newTestEnv(t)
	family := env.createFamily(t, "XYZ123")
	child := env.createChild(t, family.ID, "Emma", 0)

	preview, err := env.svc.LookupFamilyByCode("XYZ123")
	if err != nil {
		t.Fatalf("LookupFamilyByCode() error = %v", err)
	}
	if preview.ID != family.ID || len(preview.Children) != 1 {
		t.Errorf("preview = %+v", preview)
	}

	if _, err := env.svc.LookupFamilyByCode("NOPE99"); !errors.Is(err, ErrFamilyNotFound) {
		t.Errorf("LookupFamilyByCode(unknown) error = %v, want ErrFamilyNotFound", err)
	}

	if _, err := env.svc.ChildLogin("XYZ123", child.ID, "1234"); err != nil {
		t.Errorf("ChildLogin() error = %v", err)
	}
	if _, err := env.svc.ChildLogin("XYZ123", child.ID, "9999"); !errors.Is(err, ErrInvalidPIN) {
		t.Errorf("ChildLogin(wrong pin) error = %v, want ErrInvalidPIN", err)
	}
}

func TestSubmitChoreClientTimestamp(t *testing.T) {
	env := newTestEnv(t)
	family := env.createFamily(t, "AAAAAA")
	child := env.createChild(t, family.ID, "Emma", 0)

	chore, err := env.svc.SaveChore(family.ID, "", "Dishes", 3, []string{child.ID})
	if err != nil {
		t.Fatalf("SaveChore() error = %v", err)
	}

	// A client that queued the submission offline supplies its own moment
	when := time.Date(2026, 8, 30, 17, 30, 0, 0, time.UTC)
	if err := env.svc.SubmitChore(family.ID, chore.ID, child.ID, nil, nil, &when); err != nil {
		t.Fatalf("SubmitChore() error = %v", err)
	}
	got := env.mustChore(t, family.ID, chore.ID)
	if got.SubmittedAt == nil || !got.SubmittedAt.Equal(when) {
		t.Errorf("submittedAt = %v, want %v", got.SubmittedAt, when)
	}

	// Without one the server clock is used
	if err := env.svc.RejectChore(family.ID, chore.ID); err != nil {
		t.Fatalf("RejectChore() error = %v", err)
	}
	before := time.Now().UTC().Add(-time.Minute)
	if err := env.svc.SubmitChore(family.ID, chore.ID, child.ID, nil, nil, nil); err != nil {
		t.Fatalf("SubmitChore() error = %v", err)
	}
	got = env.mustChore(t, family.ID, chore.ID)
	if got.SubmittedAt == nil || got.SubmittedAt.Before(before) {
		t.Errorf("submittedAt = %v, want recent server time", got.SubmittedAt)
	}
}

func TestUpdateChoreMergesOmittedFields(t *testing.T) {
	env := newTestEnv(t)
	family := env.createFamily(t, "AAAAAA")
	first := env.createChild(t, family.ID, "Emma", 0)
	second := env.createChild(t, family.ID, "Noah", 0)

	chore, err := env.svc.SaveChore(family.ID, "", "Dishes", 7, []string{first.ID, second.ID})
	if err != nil {
		t.Fatalf("SaveChore() error = %v", err)
	}

	// Renaming alone must not touch points or assignments
	name := "Wash dishes"
	if _, err := env.svc.UpdateChore(family.ID, chore.ID, &name, nil, nil); err != nil {
		t.Fatalf("UpdateChore() error = %v", err)
	}
	got := env.mustChore(t, family.ID, chore.ID)
	if got.Name != "Wash dishes" || got.Points != 7 {
		t.Errorf("after rename: name=%q points=%d, want Wash dishes/7", got.Name, got.Points)
	}
	assignments, err := env.choreRepo.ListAssignments(family.ID)
	if err != nil {
		t.Fatalf("ListAssignments() error = %v", err)
	}
	if len(assignments[chore.ID]) != 2 {
		t.Errorf("assignments after rename = %v, want both children kept", assignments[chore.ID])
	}

	// An explicit empty list clears the assignments
	if _, err := env.svc.UpdateChore(family.ID, chore.ID, nil, nil, []string{}); err != nil {
		t.Fatalf("UpdateChore(clear) error = %v", err)
	}
	assignments, err = env.choreRepo.ListAssignments(family.ID)
	if err != nil {
		t.Fatalf("ListAssignments() error = %v", err)
	}
	if len(assignments[chore.ID]) != 0 {
		t.Errorf("assignments after clear = %v, want none", assignments[chore.ID])
	}

	if _, err := env.svc.UpdateChore(family.ID, uuid.New().String(), &name, nil, nil); !errors.Is(err, ErrChoreNotFound) {
		t.Errorf("UpdateChore(unknown) error = %v, want ErrChoreNotFound", err)
	}
}

func TestUpdateRewardMergesOmittedFields(t *testing.T) {
	env := newTestEnv(t)
	family := env.createFamily(t, "AAAAAA")
	child := env.createChild(t, family.ID, "Emma", 0)

	reward, err := env.svc.SaveReward(family.ID, "", "Cinema trip", 30, models.RewardExperience, []string{child.ID})
	if err != nil {
		t.Fatalf("SaveReward() error = %v", err)
	}

	points := 25
	if _, err := env.svc.UpdateReward(family.ID, reward.ID, nil, &points, nil, nil); err != nil {
		t.Fatalf("UpdateReward() error = %v", err)
	}
	got, err := env.rewardRepo.GetByID(family.ID, reward.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID() = %v, %v", got, err)
	}
	if got.Name != "Cinema trip" || got.Points != 25 || got.Type != models.RewardExperience {
		t.Errorf("after price change: %+v, want name and type preserved", got)
	}
	assignments, err := env.rewardRepo.ListAssignments(family.ID)
	if err != nil {
		t.Fatalf("ListAssignments() error = %v", err)
	}
	if len(assignments[reward.ID]) != 1 || assignments[reward.ID][0] != child.ID {
		t.Errorf("assignments after price change = %v, want kept", assignments[reward.ID])
	}

	if _, err := env.svc.UpdateReward(family.ID, uuid.New().String(), nil, &points, nil, nil); !errors.Is(err, ErrRewardNotFound) {
		t.Errorf("UpdateReward(unknown) error = %v, want ErrRewardNotFound", err)
	}
}

func TestSetPassword(t *testing.T) {
	env := newTestEnv(t)
	family := env.createFamily(t, "AAAAAA")

	if err := env.svc.SetPassword(family.ID, "fresh-password"); err != nil {
		t.Fatalf("SetPassword() error = %v", err)
	}
	updated, err := env.familyRepo.GetByID(family.ID)
	if err != nil || updated == nil {
		t.Fatalf("GetByID() = %v, %v", updated, err)
	}
	if !security.CheckPassword("fresh-password", updated.PasswordHash) {
		t.Error("new password does not verify against the stored hash")
	}

	if err := env.svc.SetPassword(family.ID, "short"); err == nil {
		t.Error("SetPassword(short) expected validation error, got nil")
	}
	if err := env.svc.SetPassword(uuid.New().String(), "fresh-password"); !errors.Is(err, ErrFamilyNotFound) {
		t.Errorf("SetPassword(unknown) error = %v, want ErrFamilyNotFound", err)
	}
}

func waitEvent(t *testing.T, events <-chan notify.Event) notify.Event {
	t.Helper()
	select {
	case event := <-events:
		return event
	case <-time.After(2 * time.Second):
		t.Fatal("notification was never delivered")
		return notify.Event{}
	}
}

func TestChoreAndRewardFlowsNotifyParent(t *testing.T) {
	env := newTestEnv(t)
	events := make(chan notify.Event, 4)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var event notify.Event
		if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
			t.Errorf("failed to decode event: %v", err)
		}
		events <- event
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()
	svc := env.withWebhook(server.URL)

	family := env.createFamily(t, "AAAAAA")
	child := env.createChild(t, family.ID, "Emma", 20)

	chore, err := svc.SaveChore(family.ID, "", "Dishes", 7, []string{child.ID})
	if err != nil {
		t.Fatalf("SaveChore() error = %v", err)
	}
	if err := svc.SubmitChore(family.ID, chore.ID, child.ID, nil, nil, nil); err != nil {
		t.Fatalf("SubmitChore() error = %v", err)
	}
	event := waitEvent(t, events)
	if event.Kind != notify.EventChoreSubmitted {
		t.Errorf("event kind = %q, want %q", event.Kind, notify.EventChoreSubmitted)
	}
	if event.To != family.Email {
		t.Errorf("event recipient = %q, want %q", event.To, family.Email)
	}
	if event.Fields["childName"] != "Emma" || event.Fields["choreName"] != "Dishes" {
		t.Errorf("event fields = %v", event.Fields)
	}

	reward, err := svc.SaveReward(family.ID, "", "Cinema trip", 10, models.RewardExperience, nil)
	if err != nil {
		t.Fatalf("SaveReward() error = %v", err)
	}
	if _, err := svc.RedeemReward(family.ID, reward.ID, child.ID); err != nil {
		t.Fatalf("RedeemReward() error = %v", err)
	}
	event = waitEvent(t, events)
	if event.Kind != notify.EventRewardRedeemed {
		t.Errorf("event kind = %q, want %q", event.Kind, notify.EventRewardRedeemed)
	}
	if event.To != family.Email {
		t.Errorf("event recipient = %q, want %q", event.To, family.Email)
	}
	if event.Fields["rewardName"] != "Cinema trip" {
		t.Errorf("event fields = %v", event.Fields)
	}
}
