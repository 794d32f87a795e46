package models

import "time"

// Education level cohorts used for leaderboard scoping.
const (
	EducationLevelPrimary   = "primary"
	EducationLevelSecondary = "secondary"
	EducationLevelTertiary  = "tertiary"
)

// Student represents a learner accumulating EcoPoints.
//
// TotalPoints is a denormalized cache of the sum over the student's ledger
// entries. It is only ever written inside the same transaction that appends a
// ledger entry, so it must always match a full re-sum of the ledger.
type Student struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	Name           string     `gorm:"size:255;not null" json:"name"`
	Email          string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	EducationLevel string     `gorm:"size:32;index" json:"education_level"`
	GradeBand      string     `gorm:"size:32;index" json:"grade_band"`
	TotalPoints    int        `gorm:"not null;default:0" json:"total_points"`
	LastAwardAt    *time.Time `gorm:"index" json:"last_award_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
