package models

import "time"

// Subscription plan tiers
const (
	PlanStarter = "starter"
	PlanPremium = "premium"
)

// Subscription statuses
const (
	SubscriptionInactive = "inactive"
	SubscriptionActive   = "active"
	SubscriptionPastDue  = "past_due"
	SubscriptionCanceled = "canceled"
)

// Billing intervals
const (
	IntervalMonthly = "monthly"
	IntervalYearly  = "yearly"
)

// Family represents a parent account owning children, chores and rewards.
// The family code is the short human-shareable code children use to locate
// their family without a password.
type Family struct {
	ID            string
	FamilyCode    string
	FamilyName    string
	City          string
	Email         string
	PasswordHash  string
	RecoveryEmail *string
	IsAdmin       bool
	CreatedAt     time.Time

	SubscriptionPlan          *string
	SubscriptionStatus        string
	SubscriptionInterval      *string
	SubscriptionRenewalDate   *time.Time
	SubscriptionLastPaymentAt *time.Time
	SubscriptionOrderID       *string
}

// HasActiveSubscription reports whether the family currently pays for a plan
func (f *Family) HasActiveSubscription() bool {
	return f.SubscriptionStatus == SubscriptionActive
}

// Session represents an authenticated family session
type Session struct {
	ID        string
	FamilyID  string
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}

// IsExpired checks if the session has expired
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// FamilySummary is the admin listing row: family plus its child count
type FamilySummary struct {
	ID                   string
	FamilyName           string
	City                 string
	Email                string
	FamilyCode           string
	CreatedAt            time.Time
	ChildrenCount        int
	SubscriptionStatus   string
	SubscriptionPlan     *string
	SubscriptionInterval *string
}
