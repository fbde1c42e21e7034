package models

import "time"

// Chore statuses. A chore moves available -> submitted -> approved, or back
// to available on rejection. The submission fields (SubmittedByChildID,
// SubmittedAt, Emotion, PhotoURL) are set together and cleared together.
const (
	ChoreAvailable = "available"
	ChoreSubmitted = "submitted"
	ChoreApproved  = "approved"
)

// Chore represents a task definition carrying a point value and an approval
// workflow. Which children may perform it lives in chore_assignments.
type Chore struct {
	ID                 string
	FamilyID           string
	Name               string
	Points             int
	Status             string
	SubmittedByChildID *string
	SubmittedAt        *time.Time
	Emotion            *string
	PhotoURL           *string
	CreatedAt          time.Time
}

// IsSubmitted reports whether the chore is awaiting parent approval. An
// approved chore keeps its submission fields, so the status is what counts.
func (c *Chore) IsSubmitted() bool {
	return c.Status == ChoreSubmitted
}
