package models

import "time"

// Child represents a child profile within a family. Points is the spendable
// balance; TotalPointsEver only ever grows and tracks lifetime earnings.
type Child struct {
	ID              string
	FamilyID        string
	Name            string
	PIN             string
	Points          int
	TotalPointsEver int
	Avatar          string
	CreatedAt       time.Time
}
