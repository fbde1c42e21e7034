package models

import "testing"

func TestChoreIsSubmitted(t *testing.T) {
	childID := "child-1"
	tests := []struct {
		name  string
		chore Chore
		want  bool
	}{
		{name: "available", chore: Chore{Status: ChoreAvailable}, want: false},
		{name: "submitted", chore: Chore{Status: ChoreSubmitted, SubmittedByChildID: &childID}, want: true},
		// Approval keeps the submitter on record but the chore is no longer pending
		{name: "approved with submitter", chore: Chore{Status: ChoreApproved, SubmittedByChildID: &childID}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.chore.IsSubmitted(); got != tt.want {
				t.Errorf("IsSubmitted() = %v, want %v", got, tt.want)
			}
		})
	}
}
