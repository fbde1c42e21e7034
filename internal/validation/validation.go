package validation

import (
	"fmt"
	"regexp"
	"strings"

	"choreking/internal/models"
)

// Error marks an input-validation failure so handlers can answer 400 instead
// of treating it as an internal fault.
type Error struct {
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func fail(message string) error {
	return &Error{Message: message}
}

var (
	emailRegexp      = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	familyCodeRegexp = regexp.MustCompile(`^[A-Z0-9]{6}$`)
	pinRegexp        = regexp.MustCompile(`^[0-9]{4}$`)
	slugRegexp       = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// ValidateEmail checks that an email address looks deliverable
func ValidateEmail(email string) error {
	if email == "" {
		return fail("email is required")
	}
	if !emailRegexp.MatchString(email) {
		return fail("invalid email address")
	}
	return nil
}

// ValidateName checks a display name (family or child)
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return fail("name is required")
	}
	if len(trimmed) < 2 {
		return fail("name must be at least 2 characters")
	}
	if len(trimmed) > 100 {
		return fail("name must be at most 100 characters")
	}
	return nil
}

// ValidatePassword enforces the minimum password length
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return fail("password must be at least 8 characters")
	}
	return nil
}

// ValidateFamilyCode checks the 6-character share code format
func ValidateFamilyCode(code string) error {
	if !familyCodeRegexp.MatchString(code) {
		return fail("family code must be 6 uppercase letters or digits")
	}
	return nil
}

// ValidatePIN checks a child's 4-digit PIN
func ValidatePIN(pin string) error {
	if !pinRegexp.MatchString(pin) {
		return fail("pin must be exactly 4 digits")
	}
	return nil
}

// ValidatePoints checks a chore or reward point value
func ValidatePoints(points int) error {
	if points < 0 {
		return fail("points must not be negative")
	}
	if points > 100000 {
		return fail("points value is too large")
	}
	return nil
}

// ValidateRewardType checks the reward type against the known set
func ValidateRewardType(rewardType string) error {
	switch rewardType {
	case models.RewardPrivilege, models.RewardExperience, models.RewardDonation, models.RewardMoney:
		return nil
	}
	return fail(fmt.Sprintf("unknown reward type %q", rewardType))
}

// ValidateContentStatus checks a publish status against the known set
func ValidateContentStatus(status string) error {
	switch status {
	case models.StatusDraft, models.StatusPublished:
		return nil
	}
	return fail(fmt.Sprintf("unknown status %q", status))
}

// ValidateSlug checks a URL slug (lowercase words joined by hyphens)
func ValidateSlug(slug string) error {
	if !slugRegexp.MatchString(slug) {
		return fail("slug must be lowercase letters, digits and hyphens")
	}
	return nil
}

// ValidateRating checks a review rating is within the 1-5 star range
func ValidateRating(rating int) error {
	if rating < 1 || rating > 5 {
		return fail("rating must be between 1 and 5")
	}
	return nil
}
