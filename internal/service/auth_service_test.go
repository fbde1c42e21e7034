package service

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"

	"choreking/internal/database"
	"choreking/internal/models"
	"choreking/internal/notify"
	"choreking/internal/repository"
)

func newAuthEnv(t *testing.T) (*AuthService, *repository.SessionRepository) {
	return newAuthEnvWithNotifier(t, notify.NewNotifier("", "", nil, ""))
}

func newAuthEnvWithNotifier(t *testing.T, notifier *notify.Notifier) (*AuthService, *repository.SessionRepository) {
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

	mailer, err := notify.NewEmailSender("", "", "")
	if err != nil {
		t.Fatalf("Failed to create email sender: %v", err)
	}

	familyRepo := repository.NewFamilyRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	svc := NewAuthService(familyRepo, sessionRepo, notifier, mailer,
		14*24*time.Hour, "admin@example.com", "admin-secret-pw")
	return svc, sessionRepo
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newAuthEnv(t)

	family, session, err := svc.Register("The Smiths", "Utrecht", "smiths@example.com", "password123")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if !regexp.MustCompile(`^[A-Z0-9]{6}$`).MatchString(family.FamilyCode) {
		t.Errorf("family code = %q, want 6 uppercase alphanumerics", family.FamilyCode)
	}
	if session.Token == "" || session.IsExpired() {
		t.Errorf("bad session: %+v", session)
	}
	if family.PasswordHash == "password123" {
		t.Error("password stored in plaintext")
	}

	// Duplicate email is refused
	if _, _, err := svc.Register("Other", "", "smiths@example.com", "password123"); !errors.Is(err, ErrEmailInUse) {
		t.Errorf("duplicate Register() error = %v, want ErrEmailInUse", err)
	}

	// Login roundtrip
	if _, _, err := svc.Login("smiths@example.com", "password123"); err != nil {
		t.Errorf("Login() error = %v", err)
	}
	if _, _, err := svc.Login("smiths@example.com", "wrong-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login(wrong) error = %v, want ErrInvalidCredentials", err)
	}
	if _, _, err := svc.Login("nobody@example.com", "password123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Login(unknown) error = %v, want ErrInvalidCredentials", err)
	}
}

func TestAdminLoginBootstrap(t *testing.T) {
	svc, _ := newAuthEnv(t)

	family, _, err := svc.AdminLogin("admin@example.com", "admin-secret-pw")
	if err != nil {
		t.Fatalf("AdminLogin() error = %v", err)
	}
	if !family.IsAdmin {
		t.Error("bootstrapped admin family not flagged is_admin")
	}

	// Second login reuses the same account
	again, _, err := svc.AdminLogin("admin@example.com", "admin-secret-pw")
	if err != nil {
		t.Fatalf("second AdminLogin() error = %v", err)
	}
	if again.ID != family.ID {
		t.Errorf("admin family recreated: %s != %s", again.ID, family.ID)
	}

	if _, _, err := svc.AdminLogin("admin@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("AdminLogin(wrong) error = %v, want ErrInvalidCredentials", err)
	}
	if _, _, err := svc.AdminLogin("other@example.com", "admin-secret-pw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("AdminLogin(wrong email) error = %v, want ErrInvalidCredentials", err)
	}
}

func TestRegisterNotifiesFamilyAndOperator(t *testing.T) {
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
	svc, _ := newAuthEnvWithNotifier(t, notify.NewNotifier(server.URL, "", nil, ""))

	family, _, err := svc.Register("The Smiths", "Utrecht", "smiths@example.com", "password123")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	// Delivery is asynchronous, so the two events may arrive in any order
	got := make(map[string]notify.Event)
	for i := 0; i < 2; i++ {
		select {
		case event := <-events:
			got[event.Kind] = event
		case <-time.After(2 * time.Second):
			t.Fatalf("only %d of 2 notifications delivered", len(got))
		}
	}

	welcome, ok := got[notify.EventFamilyWelcome]
	if !ok {
		t.Fatal("no welcome event for the new family")
	}
	if welcome.To != "smiths@example.com" {
		t.Errorf("welcome recipient = %q, want the parent address", welcome.To)
	}
	if welcome.Fields["familyCode"] != family.FamilyCode {
		t.Errorf("welcome fields = %v, want the share code included", welcome.Fields)
	}

	registered, ok := got[notify.EventFamilyRegistered]
	if !ok {
		t.Fatal("no registration event for the operator")
	}
	if registered.To != "" {
		t.Errorf("operator event recipient = %q, want empty", registered.To)
	}
}

func TestSessionLifecycle(t *testing.T) {
	svc, sessionRepo := newAuthEnv(t)

	_, session, err := svc.Register("The Smiths", "", "smiths@example.com", "password123")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	got, err := svc.GetSession(session.Token)
	if err != nil {
		t.Fatalf("GetSession() error = %v", err)
	}
	if got.FamilyID != session.FamilyID {
		t.Errorf("session familyID = %q, want %q", got.FamilyID, session.FamilyID)
	}

	if _, err := svc.GetSession("no-such-token"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("GetSession(unknown) error = %v, want ErrSessionNotFound", err)
	}

	// An expired session is rejected and removed
	expired := &models.Session{
		ID:        uuid.New().String(),
		FamilyID:  session.FamilyID,
		Token:     uuid.New().String(),
		ExpiresAt: time.Now().Add(-time.Hour),
		CreatedAt: time.Now().Add(-2 * time.Hour),
	}
	if err := sessionRepo.Create(expired); err != nil {
		t.Fatalf("Create(expired) error = %v", err)
	}
	if _, err := svc.GetSession(expired.Token); !errors.Is(err, ErrSessionExpired) {
		t.Errorf("GetSession(expired) error = %v, want ErrSessionExpired", err)
	}
	if stale, err := sessionRepo.GetByToken(expired.Token); err != nil || stale != nil {
		t.Errorf("expired session not removed: %v, %v", stale, err)
	}

	// Logout invalidates the token
	if err := svc.Logout(session.Token); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if _, err := svc.GetSession(session.Token); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("GetSession after logout error = %v, want ErrSessionNotFound", err)
	}
}

func TestDeleteFamilyCascades(t *testing.T) {
	svc, sessionRepo := newAuthEnv(t)

	family, session, err := svc.Register("The Smiths", "", "smiths@example.com", "password123")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if err := svc.DeleteFamily(family.ID); err != nil {
		t.Fatalf("DeleteFamily() error = %v", err)
	}
	if _, err := svc.GetFamily(family.ID); !errors.Is(err, ErrFamilyNotFound) {
		t.Errorf("GetFamily after delete error = %v, want ErrFamilyNotFound", err)
	}
	if stale, err := sessionRepo.GetByToken(session.Token); err != nil || stale != nil {
		t.Errorf("session survived family deletion: %v, %v", stale, err)
	}

	if err := svc.DeleteFamily(family.ID); !errors.Is(err, ErrFamilyNotFound) {
		t.Errorf("second DeleteFamily() error = %v, want ErrFamilyNotFound", err)
	}
}
