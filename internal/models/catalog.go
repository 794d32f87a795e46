package models

import (
	"fmt"
	"time"
)

// Difficulty levels for learning paths and eco tasks.
const (
	DifficultyBeginner     = "beginner"
	DifficultyIntermediate = "intermediate"
	DifficultyAdvanced     = "advanced"
)

// LearningPath is a static ordered sequence of learning modules. Point values
// live here, server side, so clients can never forge them.
type LearningPath struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Slug            string    `gorm:"size:160;uniqueIndex" json:"slug"`
	Title           string    `gorm:"size:255;not null" json:"title"`
	Description     string    `gorm:"type:text" json:"description"`
	Difficulty      string    `gorm:"size:32;not null" json:"difficulty"`
	ModuleCount     int       `gorm:"not null" json:"module_count"`
	PointsPerModule int       `gorm:"not null" json:"points_per_module"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// ValidModuleIndex reports whether index addresses a module on this path.
// Module indices are zero-based.
func (p LearningPath) ValidModuleIndex(index int) bool {
	return index >= 0 && index < p.ModuleCount
}

// ModuleActivityID is the ledger activity id for one module of this path.
func (p LearningPath) ModuleActivityID(index int) string {
	return fmt.Sprintf("path:%d:module:%d", p.ID, index)
}

// BonusActivityID is the ledger activity id for the one-time path completion
// bonus. Distinct from every module activity id so the idempotency constraint
// covers the bonus independently.
func (p LearningPath) BonusActivityID() string {
	return fmt.Sprintf("path:%d:completion-bonus", p.ID)
}

// BonusPoints is the difficulty-scaled completion bonus: half of the total
// module points at beginner level, scaled up for harder paths.
func (p LearningPath) BonusPoints() int {
	base := p.ModuleCount * p.PointsPerModule / 2
	return int(float64(base) * difficultyMultiplier(p.Difficulty))
}

// Quiz is a static quiz definition with a per-correct-answer point value.
type Quiz struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	Title            string    `gorm:"size:255;not null" json:"title"`
	QuestionCount    int       `gorm:"not null" json:"question_count"`
	PointsPerCorrect int       `gorm:"not null" json:"points_per_correct"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Points computes the award for a number of correct answers.
func (q Quiz) Points(correct int) int {
	return correct * q.PointsPerCorrect
}

// EcoTask is a static structured task definition with a fixed point value.
type EcoTask struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `gorm:"type:text" json:"description"`
	Difficulty  string    `gorm:"size:32;not null" json:"difficulty"`
	Points      int       `gorm:"not null" json:"points"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func difficultyMultiplier(difficulty string) float64 {
	switch difficulty {
	case DifficultyAdvanced:
		return 2.0
	case DifficultyIntermediate:
		return 1.5
	default:
		return 1.0
	}
}
