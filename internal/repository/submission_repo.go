package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/ecolearn-go-api/internal/models"
)

// SubmissionFilter narrows action submission queries.
type SubmissionFilter struct {
	StudentID *uint
	Status    *models.SubmissionStatus
	Limit     int
	Offset    int
}

// ResolveUpdate carries the fields written when a submission reaches a
// terminal state.
type ResolveUpdate struct {
	Status       models.SubmissionStatus
	FinalPoints  *int
	ReviewerID   *uint
	ReviewNotes  string
	AutoApproved bool
	ResolvedAt   time.Time
}

// SubmissionRepository defines data operations for action submissions.
// Submissions are never deleted; every state they pass through stays
// queryable for audit.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *models.ActionSubmission) error
	GetByID(ctx context.Context, id uint) (models.ActionSubmission, error)
	List(ctx context.Context, filter SubmissionFilter) ([]models.ActionSubmission, error)
	// AttachAssessment stores the assessor verdict on a non-terminal
	// submission and moves it between the two non-terminal states.
	AttachAssessment(ctx context.Context, submission *models.ActionSubmission) error
	// Resolve performs a compare-and-set transition into a terminal state.
	// It reports false when the submission was already terminal, which is how
	// two simultaneous reviewers are serialized without application locks.
	Resolve(ctx context.Context, id uint, update ResolveUpdate) (bool, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.ActionSubmission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.ActionSubmission, error) {
	var submission models.ActionSubmission
	err := r.db.WithContext(ctx).
		Preload("Student").
		First(&submission, id).Error
	if err != nil {
		return models.ActionSubmission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) ([]models.ActionSubmission, error) {
	query := r.db.WithContext(ctx).Model(&models.ActionSubmission{}).Preload("Student")

	if filter.StudentID != nil {
		query = query.Where("student_id = ?", *filter.StudentID)
	}

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var submissions []models.ActionSubmission
	if err := query.Order("submitted_at ASC").Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) AttachAssessment(ctx context.Context, submission *models.ActionSubmission) error {
	return r.db.WithContext(ctx).
		Model(&models.ActionSubmission{}).
		Where("id = ?", submission.ID).
		Where("status IN ?", nonTerminalStatuses()).
		Updates(map[string]interface{}{
			"status":           submission.Status,
			"confidence":       submission.Confidence,
			"verified":         submission.Verified,
			"suggested_points": submission.SuggestedPoints,
			"assessment":       submission.Assessment,
		}).Error
}

func (r *submissionRepository) Resolve(ctx context.Context, id uint, update ResolveUpdate) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ActionSubmission{}).
		Where("id = ?", id).
		Where("status IN ?", nonTerminalStatuses()).
		Updates(map[string]interface{}{
			"status":        update.Status,
			"final_points":  update.FinalPoints,
			"reviewer_id":   update.ReviewerID,
			"review_notes":  update.ReviewNotes,
			"auto_approved": update.AutoApproved,
			"resolved_at":   update.ResolvedAt,
		})
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

func nonTerminalStatuses() []models.SubmissionStatus {
	return []models.SubmissionStatus{
		models.SubmissionStatusPendingReview,
		models.SubmissionStatusAIFlagged,
	}
}
