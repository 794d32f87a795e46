package models

import (
	"time"

	"gorm.io/datatypes"
)

// ActivityKind classifies the source of an EcoPoints award.
type ActivityKind string

const (
	// ActivityKindModule is a completed learning module.
	ActivityKindModule ActivityKind = "module"
	// ActivityKindQuiz is a completed quiz.
	ActivityKindQuiz ActivityKind = "quiz"
	// ActivityKindTask is a completed structured eco task.
	ActivityKindTask ActivityKind = "task"
	// ActivityKindAction is an approved free-form action submission.
	ActivityKindAction ActivityKind = "action"
	// ActivityKindBonus is a one-time learning path completion bonus.
	ActivityKindBonus ActivityKind = "bonus"
)

// Valid reports whether the kind is one of the closed set of award sources.
func (k ActivityKind) Valid() bool {
	switch k {
	case ActivityKindModule, ActivityKindQuiz, ActivityKindTask, ActivityKindAction, ActivityKindBonus:
		return true
	}
	return false
}

// LedgerEntry is one immutable EcoPoints award record.
//
// The composite unique index over (student_id, activity_kind, activity_id) is
// what makes Award idempotent: a retried request hits the constraint instead of
// double counting. Entries are never updated or deleted; corrections are
// appended as new entries with an "adjustment:" prefixed activity id.
type LedgerEntry struct {
	ID            uint              `gorm:"primaryKey" json:"id"`
	StudentID     uint              `gorm:"not null;uniqueIndex:idx_ledger_award,priority:1;index:idx_ledger_student_time,priority:1" json:"student_id"`
	ActivityKind  ActivityKind      `gorm:"size:16;not null;uniqueIndex:idx_ledger_award,priority:2" json:"activity_kind"`
	ActivityID    string            `gorm:"size:160;not null;uniqueIndex:idx_ledger_award,priority:3" json:"activity_id"`
	PointsAwarded int               `gorm:"not null" json:"points_awarded"`
	OccurredAt    time.Time         `gorm:"not null;index:idx_ledger_student_time,priority:2;index" json:"occurred_at"`
	Metadata      datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt     time.Time         `json:"created_at"`
}
