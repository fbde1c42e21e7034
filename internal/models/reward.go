package models

import "time"

// Reward types
const (
	RewardPrivilege  = "privilege"
	RewardExperience = "experience"
	RewardDonation   = "donation"
	RewardMoney      = "money"
)

// Reward represents something a child can spend points on. Which children may
// redeem it lives in reward_assignments.
type Reward struct {
	ID        string
	FamilyID  string
	Name      string
	Points    int
	Type      string
	CreatedAt time.Time
}

// PendingReward is a redeemed-but-not-yet-delivered reward awaiting parent
// fulfilment. Points captures the cost at redemption time, so later price
// edits don't rewrite history.
type PendingReward struct {
	ID         string
	FamilyID   string
	ChildID    string
	RewardID   string
	Points     int
	RedeemedAt time.Time
}
