package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SubmissionStatus is the closed set of review states for an action submission.
type SubmissionStatus string

const (
	// SubmissionStatusPendingReview is the initial state awaiting a decision.
	SubmissionStatusPendingReview SubmissionStatus = "pending_review"
	// SubmissionStatusAIFlagged means the assessor raised issues or could not verify.
	SubmissionStatusAIFlagged SubmissionStatus = "ai_flagged"
	// SubmissionStatusApproved is terminal; exactly one ledger entry exists for it.
	SubmissionStatusApproved SubmissionStatus = "approved"
	// SubmissionStatusRejected is terminal; no ledger entry exists for it.
	SubmissionStatusRejected SubmissionStatus = "rejected"
)

// Valid reports whether the status belongs to the closed state set.
func (s SubmissionStatus) Valid() bool {
	switch s {
	case SubmissionStatusPendingReview, SubmissionStatusAIFlagged, SubmissionStatusApproved, SubmissionStatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are permitted.
func (s SubmissionStatus) Terminal() bool {
	return s == SubmissionStatusApproved || s == SubmissionStatusRejected
}

// ActionSubmission is a free-form environmental action reported by a student,
// kept forever for audit. FinalPoints and ResolvedAt are set iff the status is
// terminal.
type ActionSubmission struct {
	ID              uint              `gorm:"primaryKey" json:"id"`
	StudentID       uint              `gorm:"not null;index" json:"student_id"`
	Description     string            `gorm:"type:text;not null" json:"description"`
	EvidenceRaw     string            `gorm:"column:evidence;type:text" json:"-"`
	DeclaredKind    ActivityKind      `gorm:"size:16;not null" json:"declared_kind"`
	Status          SubmissionStatus  `gorm:"size:32;not null;index" json:"status"`
	AutoApproved    bool              `gorm:"not null;default:false" json:"auto_approved"`
	Confidence      *float64          `json:"confidence"`
	Verified        *bool             `json:"verified"`
	SuggestedPoints *int              `json:"suggested_points"`
	Assessment      datatypes.JSONMap `gorm:"type:json" json:"assessment"`
	FinalPoints     *int              `json:"final_points"`
	ReviewerID      *uint             `json:"reviewer_id"`
	ReviewNotes     string            `gorm:"type:text" json:"review_notes"`
	SubmittedAt     time.Time         `gorm:"not null" json:"submitted_at"`
	ResolvedAt      *time.Time        `json:"resolved_at"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
	Evidence        []string          `gorm:"-" json:"evidence"`
	Student         Student           `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"student"`
}

// BeforeSave encodes the evidence references into the storage column.
func (s *ActionSubmission) BeforeSave(tx *gorm.DB) error {
	s.EvidenceRaw = encodeEvidence(s.Evidence)
	return nil
}

// AfterFind hydrates evidence references after loading from DB.
func (s *ActionSubmission) AfterFind(tx *gorm.DB) error {
	s.Evidence = decodeEvidence(s.EvidenceRaw)
	return nil
}

func encodeEvidence(refs []string) string {
	if len(refs) == 0 {
		return ""
	}
	cleaned := make([]string, 0, len(refs))
	for _, ref := range refs {
		trimmed := strings.TrimSpace(ref)
		if trimmed == "" {
			continue
		}
		cleaned = append(cleaned, trimmed)
	}
	if len(cleaned) == 0 {
		return ""
	}
	return "|" + strings.Join(cleaned, "|") + "|"
}

func decodeEvidence(raw string) []string {
	raw = strings.Trim(raw, "|")
	if raw == "" {
		return []string{}
	}
	parts := strings.Split(raw, "|")
	refs := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		refs = append(refs, trimmed)
	}
	return refs
}
