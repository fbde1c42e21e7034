package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"choreking/internal/models"
	"choreking/internal/notify"
	"choreking/internal/repository"
	"choreking/internal/security"
	"choreking/internal/validation"
)

var (
	ErrEmailInUse         = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
	ErrCodeExhausted      = errors.New("could not generate a unique family code")
)

const familyCodeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const familyCodeLength = 6
const familyCodeAttempts = 10

// AuthService handles registration, login and session lifecycle for parent
// accounts, plus the admin bootstrap account.
type AuthService struct {
	familyRepo      *repository.FamilyRepository
	sessionRepo     *repository.SessionRepository
	notifier        *notify.Notifier
	mailer          *notify.EmailSender
	sessionDuration time.Duration
	adminEmail      string
	adminPassword   string
}

// NewAuthService creates a new auth service
func NewAuthService(
	familyRepo *repository.FamilyRepository,
	sessionRepo *repository.SessionRepository,
	notifier *notify.Notifier,
	mailer *notify.EmailSender,
	sessionDuration time.Duration,
	adminEmail, adminPassword string,
) *AuthService {
	return &AuthService{
		familyRepo:      familyRepo,
		sessionRepo:     sessionRepo,
		notifier:        notifier,
		mailer:          mailer,
		sessionDuration: sessionDuration,
		adminEmail:      adminEmail,
		adminPassword:   adminPassword,
	}
}

// CreateFamily provisions a family account with a fresh unique share code.
// No session is opened; admins use this to create accounts on behalf of
// customers.
func (s *AuthService) CreateFamily(familyName, city, email, password string) (*models.Family, error) {
	if err := validation.ValidateName(familyName); err != nil {
		return nil, err
	}
	if err := validation.ValidateEmail(email); err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, err
	}

	existing, err := s.familyRepo.GetByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing email: %w", err)
	}
	if existing != nil {
		return nil, ErrEmailInUse
	}

	code, err := s.uniqueFamilyCode()
	if err != nil {
		return nil, err
	}
	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	family := &models.Family{
		ID:                 uuid.New().String(),
		FamilyCode:         code,
		FamilyName:         familyName,
		City:               city,
		Email:              email,
		PasswordHash:       passwordHash,
		SubscriptionStatus: models.SubscriptionInactive,
		CreatedAt:          time.Now().UTC(),
	}
	if err := s.familyRepo.Create(family); err != nil {
		return nil, err
	}
	return family, nil
}

// Register creates a family account and opens its first session. The new
// family gets a welcome message with its share code; the operator channel is
// told about the registration.
func (s *AuthService) Register(familyName, city, email, password string) (*models.Family, *models.Session, error) {
	family, err := s.CreateFamily(familyName, city, email, password)
	if err != nil {
		return nil, nil, err
	}

	session, err := s.createSession(family.ID)
	if err != nil {
		return nil, nil, err
	}

	s.notifier.Notify(notify.Event{
		Kind: notify.EventFamilyWelcome,
		To:   family.Email,
		Fields: map[string]string{
			"familyName": family.FamilyName,
			"familyCode": family.FamilyCode,
		},
	})
	s.notifier.Notify(notify.Event{
		Kind: notify.EventFamilyRegistered,
		Fields: map[string]string{
			"familyName": family.FamilyName,
			"city":       family.City,
			"email":      family.Email,
			"familyCode": family.FamilyCode,
		},
	})
	return family, session, nil
}

// GetFamily loads a family account by ID
func (s *AuthService) GetFamily(familyID string) (*models.Family, error) {
	family, err := s.familyRepo.GetByID(familyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load family: %w", err)
	}
	if family == nil {
		return nil, ErrFamilyNotFound
	}
	return family, nil
}

// Login authenticates a parent account and opens a session
func (s *AuthService) Login(email, password string) (*models.Family, *models.Session, error) {
	family, err := s.familyRepo.GetByEmail(email)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load family: %w", err)
	}
	if family == nil || !security.CheckPassword(password, family.PasswordHash) {
		return nil, nil, ErrInvalidCredentials
	}

	session, err := s.createSession(family.ID)
	if err != nil {
		return nil, nil, err
	}
	return family, session, nil
}

// AdminLogin authenticates against the configured admin credentials and
// bootstraps the admin family row on first use. A pre-existing row with the
// admin email is promoted if it lost its flag.
func (s *AuthService) AdminLogin(email, password string) (*models.Family, *models.Session, error) {
	if s.adminPassword == "" {
		return nil, nil, ErrInvalidCredentials
	}
	if email != s.adminEmail || password != s.adminPassword {
		return nil, nil, ErrInvalidCredentials
	}

	family, err := s.familyRepo.GetByEmail(s.adminEmail)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load admin family: %w", err)
	}
	if family == nil {
		code, err := s.uniqueFamilyCode()
		if err != nil {
			return nil, nil, err
		}
		passwordHash, err := security.HashPassword(password)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to hash password: %w", err)
		}
		family = &models.Family{
			ID:                 uuid.New().String(),
			FamilyCode:         code,
			FamilyName:         "Admin",
			Email:              s.adminEmail,
			PasswordHash:       passwordHash,
			IsAdmin:            true,
			SubscriptionStatus: models.SubscriptionInactive,
			CreatedAt:          time.Now().UTC(),
		}
		if err := s.familyRepo.Create(family); err != nil {
			return nil, nil, err
		}
		log.Printf("Bootstrapped admin account %s", s.adminEmail)
	} else if !family.IsAdmin {
		if err := s.familyRepo.SetAdmin(family.ID, true); err != nil {
			return nil, nil, err
		}
		family.IsAdmin = true
	}

	session, err := s.createSession(family.ID)
	if err != nil {
		return nil, nil, err
	}
	return family, session, nil
}

// GetSession resolves a token to a live session. Expired sessions are
// deleted on sight.
func (s *AuthService) GetSession(token string) (*models.Session, error) {
	session, err := s.sessionRepo.GetByToken(token)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	if session.IsExpired() {
		if err := s.sessionRepo.DeleteByToken(token); err != nil {
			log.Printf("Failed to delete expired session: %v", err)
		}
		return nil, ErrSessionExpired
	}
	return session, nil
}

// Logout ends the session behind a token
func (s *AuthService) Logout(token string) error {
	return s.sessionRepo.DeleteByToken(token)
}

// DeleteFamily removes the account, all its data and its sessions
func (s *AuthService) DeleteFamily(familyID string) error {
	family, err := s.familyRepo.GetByID(familyID)
	if err != nil {
		return fmt.Errorf("failed to load family: %w", err)
	}
	if family == nil {
		return ErrFamilyNotFound
	}

	if err := s.sessionRepo.DeleteByFamily(familyID); err != nil {
		return err
	}
	if err := s.familyRepo.Delete(familyID); err != nil {
		return err
	}

	s.notifier.Notify(notify.Event{
		Kind: notify.EventFamilyDeleted,
		Fields: map[string]string{
			"familyName": family.FamilyName,
			"email":      family.Email,
		},
	})
	return nil
}

// RecoverFamilyCode emails the share code to the account or recovery address.
// The response is the same whether or not the email matched, so the endpoint
// cannot be used to probe for accounts.
func (s *AuthService) RecoverFamilyCode(ctx context.Context, email string) error {
	if err := validation.ValidateEmail(email); err != nil {
		return err
	}

	family, err := s.familyRepo.GetByEmail(email)
	if err != nil {
		return fmt.Errorf("failed to look up email: %w", err)
	}
	if family == nil {
		log.Printf("Family code recovery requested for unknown email")
		return nil
	}

	target := family.Email
	if family.RecoveryEmail != nil && *family.RecoveryEmail != "" {
		target = *family.RecoveryEmail
	}
	body := fmt.Sprintf("Hi %s,\n\nYour family code is: %s\n\nUse it on the child login screen.\n",
		family.FamilyName, family.FamilyCode)
	if err := s.mailer.Send(ctx, target, "Your family code", body); err != nil {
		log.Printf("Failed to send family code recovery email: %v", err)
	}

	s.notifier.Notify(notify.Event{
		Kind:   notify.EventCodeRecovery,
		Fields: map[string]string{"email": email},
	})
	return nil
}

// CleanupExpiredSessions removes sessions past their expiry
func (s *AuthService) CleanupExpiredSessions() {
	deleted, err := s.sessionRepo.DeleteExpired()
	if err != nil {
		log.Printf("Session cleanup failed: %v", err)
		return
	}
	if deleted > 0 {
		log.Printf("Cleaned up %d expired sessions", deleted)
	}
}

func (s *AuthService) createSession(familyID string) (*models.Session, error) {
	now := time.Now().UTC()
	session := &models.Session{
		ID:        uuid.New().String(),
		FamilyID:  familyID,
		Token:     security.GenerateSessionToken(),
		ExpiresAt: now.Add(s.sessionDuration),
		CreatedAt: now,
	}
	if err := s.sessionRepo.Create(session); err != nil {
		return nil, err
	}
	return session, nil
}

// uniqueFamilyCode draws random share codes until one is unused
func (s *AuthService) uniqueFamilyCode() (string, error) {
	for attempt := 0; attempt < familyCodeAttempts; attempt++ {
		code, err := randomFamilyCode()
		if err != nil {
			return "", err
		}
		existing, err := s.familyRepo.GetByCode(code)
		if err != nil {
			return "", fmt.Errorf("failed to check family code: %w", err)
		}
		if existing == nil {
			return code, nil
		}
	}
	return "", ErrCodeExhausted
}

func randomFamilyCode() (string, error) {
	buf := make([]byte, familyCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	var b strings.Builder
	for _, c := range buf {
		b.WriteByte(familyCodeCharset[int(c)%len(familyCodeCharset)])
	}
	return b.String(), nil
}
