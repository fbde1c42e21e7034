package service

import (
	"time"

	"choreking/internal/models"
)

// FamilyState is the full nested family snapshot the client renders from.
// Field names follow the wire format the web app expects.
type FamilyState struct {
	ID             string               `json:"id"`
	FamilyCode     string               `json:"familyCode"`
	FamilyName     string               `json:"familyName"`
	City           string               `json:"city"`
	Email          string               `json:"email"`
	RecoveryEmail  *string              `json:"recoveryEmail"`
	Subscription   SubscriptionState    `json:"subscription"`
	Children       []ChildState         `json:"children"`
	Chores         []ChoreState         `json:"chores"`
	Rewards        []RewardState        `json:"rewards"`
	PendingRewards []PendingRewardState `json:"pendingRewards"`
	CreatedAt      string               `json:"createdAt"`
}

// SubscriptionState is the family's billing state on the wire
type SubscriptionState struct {
	Plan        *string `json:"plan"`
	Status      string  `json:"status"`
	Interval    *string `json:"interval"`
	RenewalDate *string `json:"renewalDate"`
}

// ChildState is a child on the wire. The PIN is included so parents can view
// and change it from the settings screen.
type ChildState struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	PIN             string `json:"pin"`
	Points          int    `json:"points"`
	TotalPointsEver int    `json:"totalPointsEver"`
	Avatar          string `json:"avatar"`
}

// ChoreState is a chore on the wire, with its assignment list inlined
type ChoreState struct {
	ID                 string   `json:"id"`
	Name               string   `json:"name"`
	Points             int      `json:"points"`
	Status             string   `json:"status"`
	AssignedTo         []string `json:"assignedTo"`
	SubmittedByChildID *string  `json:"submittedByChildId"`
	SubmittedAt        *string  `json:"submittedAt"`
	Emotion            *string  `json:"emotion"`
	PhotoURL           *string  `json:"photoUrl"`
}

// RewardState is a reward on the wire, with its assignment list inlined
type RewardState struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Points     int      `json:"points"`
	Type       string   `json:"type"`
	AssignedTo []string `json:"assignedTo"`
}

// PendingRewardState is a queued redemption on the wire. Child and reward
// names are denormalised for display and degrade to "" when the referenced
// row no longer exists.
type PendingRewardState struct {
	ID         string `json:"id"`
	ChildID    string `json:"childId"`
	ChildName  string `json:"childName"`
	RewardID   string `json:"rewardId"`
	RewardName string `json:"rewardName"`
	Points     int    `json:"points"`
	RedeemedAt string `json:"redeemedAt"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

// serializeFamilyState assembles the wire snapshot from loaded rows
func serializeFamilyState(
	family *models.Family,
	children []models.Child,
	chores []models.Chore,
	choreAssignments map[string][]string,
	rewards []models.Reward,
	rewardAssignments map[string][]string,
	pending []models.PendingReward,
) *FamilyState {
	state := &FamilyState{
		ID:            family.ID,
		FamilyCode:    family.FamilyCode,
		FamilyName:    family.FamilyName,
		City:          family.City,
		Email:         family.Email,
		RecoveryEmail: family.RecoveryEmail,
		Subscription: SubscriptionState{
			Plan:        family.SubscriptionPlan,
			Status:      family.SubscriptionStatus,
			Interval:    family.SubscriptionInterval,
			RenewalDate: formatTimePtr(family.SubscriptionRenewalDate),
		},
		Children:       []ChildState{},
		Chores:         []ChoreState{},
		Rewards:        []RewardState{},
		PendingRewards: []PendingRewardState{},
		CreatedAt:      formatTime(family.CreatedAt),
	}

	childNames := make(map[string]string, len(children))
	for _, child := range children {
		childNames[child.ID] = child.Name
		state.Children = append(state.Children, ChildState{
			ID:              child.ID,
			Name:            child.Name,
			PIN:             child.PIN,
			Points:          child.Points,
			TotalPointsEver: child.TotalPointsEver,
			Avatar:          child.Avatar,
		})
	}

	for _, chore := range chores {
		assigned := choreAssignments[chore.ID]
		if assigned == nil {
			assigned = []string{}
		}
		state.Chores = append(state.Chores, ChoreState{
			ID:                 chore.ID,
			Name:               chore.Name,
			Points:             chore.Points,
			Status:             chore.Status,
			AssignedTo:         assigned,
			SubmittedByChildID: chore.SubmittedByChildID,
			SubmittedAt:        formatTimePtr(chore.SubmittedAt),
			Emotion:            chore.Emotion,
			PhotoURL:           chore.PhotoURL,
		})
	}

	rewardNames := make(map[string]string, len(rewards))
	for _, reward := range rewards {
		rewardNames[reward.ID] = reward.Name
		assigned := rewardAssignments[reward.ID]
		if assigned == nil {
			assigned = []string{}
		}
		state.Rewards = append(state.Rewards, RewardState{
			ID:         reward.ID,
			Name:       reward.Name,
			Points:     reward.Points,
			Type:       reward.Type,
			AssignedTo: assigned,
		})
	}

	for _, p := range pending {
		state.PendingRewards = append(state.PendingRewards, PendingRewardState{
			ID:         p.ID,
			ChildID:    p.ChildID,
			ChildName:  childNames[p.ChildID],
			RewardID:   p.RewardID,
			RewardName: rewardNames[p.RewardID],
			Points:     p.Points,
			RedeemedAt: formatTime(p.RedeemedAt),
		})
	}

	return state
}
