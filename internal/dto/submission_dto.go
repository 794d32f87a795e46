package dto

import (
	"time"

	"github.com/noah-isme/ecolearn-go-api/internal/models"
)

// SubmissionCreateRequest describes a free-form action report.
type SubmissionCreateRequest struct {
	Description  string   `json:"description" validate:"required,min=10"`
	Evidence     []string `json:"evidence" validate:"omitempty,dive,url"`
	DeclaredKind string   `json:"declared_kind" validate:"omitempty,oneof=action task"`
}

// ResolveRequest carries a reviewer decision for a pending submission.
type ResolveRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approve reject"`
	Points   *int   `json:"points" validate:"omitempty,gte=0"`
	Notes    string `json:"notes" validate:"omitempty,max=2000"`
}

// SubmissionFilter describes query string filters for listing submissions.
type SubmissionFilter struct {
	StudentID *uint   `query:"student_id"`
	Status    *string `query:"status" validate:"omitempty,oneof=pending_review ai_flagged approved rejected"`
	Limit     int     `query:"limit" validate:"omitempty,gte=1,lte=100"`
	Offset    int     `query:"offset" validate:"omitempty,gte=0"`
}

// SubmissionResponse is returned to API clients when viewing submissions.
type SubmissionResponse struct {
	ID              uint         `json:"id"`
	StudentID       uint         `json:"student_id"`
	Description     string       `json:"description"`
	Evidence        []string     `json:"evidence"`
	DeclaredKind    string       `json:"declared_kind"`
	Status          string       `json:"status"`
	AutoApproved    bool         `json:"auto_approved"`
	Confidence      *float64     `json:"confidence"`
	Verified        *bool        `json:"verified"`
	SuggestedPoints *int         `json:"suggested_points"`
	FinalPoints     *int         `json:"final_points"`
	ReviewerID      *uint        `json:"reviewer_id"`
	ReviewNotes     string       `json:"review_notes"`
	SubmittedAt     time.Time    `json:"submitted_at"`
	ResolvedAt      *time.Time   `json:"resolved_at"`
	Student         *StudentLite `json:"student,omitempty"`
}

// StudentLite summarizes a student without exposing full profile data.
type StudentLite struct {
	ID             uint   `json:"id"`
	Name           string `json:"name"`
	EducationLevel string `json:"education_level"`
}

// NewSubmissionResponse converts an ActionSubmission model into a DTO.
func NewSubmissionResponse(model models.ActionSubmission) SubmissionResponse {
	response := SubmissionResponse{
		ID:              model.ID,
		StudentID:       model.StudentID,
		Description:     model.Description,
		Evidence:        model.Evidence,
		DeclaredKind:    string(model.DeclaredKind),
		Status:          string(model.Status),
		AutoApproved:    model.AutoApproved,
		Confidence:      model.Confidence,
		Verified:        model.Verified,
		SuggestedPoints: model.SuggestedPoints,
		FinalPoints:     model.FinalPoints,
		ReviewerID:      model.ReviewerID,
		ReviewNotes:     model.ReviewNotes,
		SubmittedAt:     model.SubmittedAt,
		ResolvedAt:      model.ResolvedAt,
	}

	if model.Student.ID != 0 {
		response.Student = &StudentLite{
			ID:             model.Student.ID,
			Name:           model.Student.Name,
			EducationLevel: model.Student.EducationLevel,
		}
	}

	return response
}

// NewSubmissionResponseSlice converts a slice of models into DTOs.
func NewSubmissionResponseSlice(submissions []models.ActionSubmission) []SubmissionResponse {
	responses := make([]SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		responses = append(responses, NewSubmissionResponse(submission))
	}
	return responses
}
