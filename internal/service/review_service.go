package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/ecolearn-go-api/internal/dto"
	"github.com/noah-isme/ecolearn-go-api/internal/models"
	"github.com/noah-isme/ecolearn-go-api/internal/observability"
	"github.com/noah-isme/ecolearn-go-api/internal/repository"
	"github.com/noah-isme/ecolearn-go-api/pkg/assessor"
)

// ErrSubmissionNotFound indicates a submission could not be found.
var ErrSubmissionNotFound = errors.New("submission not found")

// ErrAlreadyResolved indicates a resolve attempt on a terminal submission.
var ErrAlreadyResolved = errors.New("submission already resolved")

// ErrPointsRequired indicates an approval with neither reviewer-supplied nor
// assessor-suggested points.
var ErrPointsRequired = errors.New("points required to approve this submission")

// ReviewConfig tunes the review state machine policy.
type ReviewConfig struct {
	// AutoApproveThreshold is the minimum assessor confidence for bypassing
	// human review. Confidence alone never suffices; the assessor must also
	// report verified.
	AutoApproveThreshold float64
	// MaxAutoPoints caps what an auto-approval may award.
	MaxAutoPoints int
}

// ReviewService is the state machine governing free-form action submissions:
// pending_review -> ai_flagged | approved | rejected, with approved and
// rejected terminal. It is the only caller of the ledger for action awards,
// and calls it exactly once, at the moment a submission enters approved.
type ReviewService interface {
	Submit(ctx context.Context, studentID uint, payload dto.SubmissionCreateRequest) (dto.SubmissionResponse, error)
	Get(ctx context.Context, id uint) (dto.SubmissionResponse, error)
	List(ctx context.Context, filter dto.SubmissionFilter) ([]dto.SubmissionResponse, error)
	PendingQueue(ctx context.Context, limit, offset int) ([]dto.SubmissionResponse, error)
	Resolve(ctx context.Context, id, reviewerID uint, payload dto.ResolveRequest) (dto.SubmissionResponse, error)
}

type reviewService struct {
	submissions repository.SubmissionRepository
	students    repository.StudentRepository
	awards      LedgerService
	assessor    assessor.Assessor
	cfg         ReviewConfig
	validator   *validator.Validate
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewReviewService constructs a ReviewService. assess may be nil; submissions
// then always wait for a human reviewer.
func NewReviewService(submissions repository.SubmissionRepository, students repository.StudentRepository, awards LedgerService, assess assessor.Assessor, cfg ReviewConfig, validate *validator.Validate, logger zerolog.Logger) ReviewService {
	if cfg.AutoApproveThreshold <= 0 || cfg.AutoApproveThreshold > 1 {
		cfg.AutoApproveThreshold = 0.85
	}
	if cfg.MaxAutoPoints <= 0 {
		cfg.MaxAutoPoints = 100
	}

	return &reviewService{
		submissions: submissions,
		students:    students,
		awards:      awards,
		assessor:    assess,
		cfg:         cfg,
		validator:   validate,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "review_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/ecolearn-go-api/internal/service/review"),
		now:         time.Now,
	}
}

func (s *reviewService) Submit(parent context.Context, studentID uint, payload dto.SubmissionCreateRequest) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(parent, "review.submit", trace.WithAttributes(
		attribute.Int("student_id", int(studentID)),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	student, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrStudentNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	kind := models.ActivityKindAction
	if payload.DeclaredKind != "" {
		kind = models.ActivityKind(payload.DeclaredKind)
	}

	submission := models.ActionSubmission{
		StudentID:    studentID,
		Description:  s.sanitizer.Sanitize(payload.Description),
		Evidence:     payload.Evidence,
		DeclaredKind: kind,
		Status:       models.SubmissionStatusPendingReview,
		SubmittedAt:  s.now().UTC(),
	}

	if err := s.submissions.Create(ctx, &submission); err != nil {
		return dto.SubmissionResponse{}, fmt.Errorf("create submission: %w", err)
	}

	s.assess(ctx, &submission, student)

	return dto.NewSubmissionResponse(submission), nil
}

// assess runs the automated confidence assessment and applies the decision
// policy. An unavailable assessor leaves the submission pending_review so a
// human reviewer is never blocked by a missing automated opinion.
func (s *reviewService) assess(ctx context.Context, submission *models.ActionSubmission, student models.Student) {
	if s.assessor == nil {
		return
	}

	verdict, err := s.assessor.Assess(ctx, assessor.Input{
		Description:  submission.Description,
		Evidence:     submission.Evidence,
		DeclaredKind: string(submission.DeclaredKind),
		StudentLevel: student.EducationLevel,
	})
	if err != nil {
		s.logger.Warn().Err(err).Uint("submission_id", submission.ID).Msg("assessor unavailable, holding submission for human review")
		return
	}

	suggested := verdict.SuggestedPoints
	if suggested > s.cfg.MaxAutoPoints {
		suggested = s.cfg.MaxAutoPoints
	}

	submission.Confidence = &verdict.Confidence
	submission.Verified = &verdict.Verified
	submission.SuggestedPoints = &suggested
	submission.Assessment = datatypes.JSONMap{
		"reasoning": verdict.Reasoning,
		"issues":    verdict.Issues,
	}

	// The assessor is advisory input; the policy decides.
	switch {
	case verdict.Confidence >= s.cfg.AutoApproveThreshold && verdict.Verified:
		if err := s.submissions.AttachAssessment(ctx, submission); err != nil {
			s.logger.Error().Err(err).Uint("submission_id", submission.ID).Msg("failed to store assessment")
			return
		}
		s.autoApprove(ctx, submission, suggested)
	case !verdict.Verified || len(verdict.Issues) > 0:
		submission.Status = models.SubmissionStatusAIFlagged
		if err := s.submissions.AttachAssessment(ctx, submission); err != nil {
			s.logger.Error().Err(err).Uint("submission_id", submission.ID).Msg("failed to store assessment")
			submission.Status = models.SubmissionStatusPendingReview
			return
		}
		observability.ReviewTransitions().WithLabelValues(string(models.SubmissionStatusAIFlagged), "auto").Inc()
	default:
		if err := s.submissions.AttachAssessment(ctx, submission); err != nil {
			s.logger.Error().Err(err).Uint("submission_id", submission.ID).Msg("failed to store assessment")
		}
	}
}

func (s *reviewService) autoApprove(ctx context.Context, submission *models.ActionSubmission, points int) {
	resolvedAt := s.now().UTC()
	won, err := s.submissions.Resolve(ctx, submission.ID, repository.ResolveUpdate{
		Status:       models.SubmissionStatusApproved,
		FinalPoints:  &points,
		AutoApproved: true,
		ResolvedAt:   resolvedAt,
	})
	if err != nil {
		s.logger.Error().Err(err).Uint("submission_id", submission.ID).Msg("auto-approval transition failed")
		return
	}
	if !won {
		// Somebody resolved it between intake and assessment; their decision stands.
		return
	}

	submission.Status = models.SubmissionStatusApproved
	submission.AutoApproved = true
	submission.FinalPoints = &points
	submission.ResolvedAt = &resolvedAt
	observability.ReviewTransitions().WithLabelValues(string(models.SubmissionStatusApproved), "auto").Inc()

	s.awardApproved(ctx, submission, points)
}

// awardApproved performs the single ledger call for an approved submission.
// The award key is derived from the submission id, so a failed attempt can be
// retried safely during reconciliation without risking a double count.
func (s *reviewService) awardApproved(ctx context.Context, submission *models.ActionSubmission, points int) {
	metadata := map[string]interface{}{
		"submission_id": submission.ID,
		"auto_approved": submission.AutoApproved,
	}

	_, err := s.awards.AwardActivity(ctx, submission.StudentID, models.ActivityKindAction, fmt.Sprintf("submission:%d", submission.ID), points, metadata)
	if err != nil {
		s.logger.Error().Err(err).
			Uint("submission_id", submission.ID).
			Uint("student_id", submission.StudentID).
			Msg("approved submission missing its ledger entry, reconciliation required")
	}
}

func (s *reviewService) Get(ctx context.Context, id uint) (dto.SubmissionResponse, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	return dto.NewSubmissionResponse(submission), nil
}

func (s *reviewService) List(ctx context.Context, filter dto.SubmissionFilter) ([]dto.SubmissionResponse, error) {
	if err := s.validator.Struct(filter); err != nil {
		return nil, err
	}

	repoFilter := repository.SubmissionFilter{
		StudentID: filter.StudentID,
		Limit:     filter.Limit,
		Offset:    filter.Offset,
	}
	if filter.Status != nil {
		status := models.SubmissionStatus(*filter.Status)
		repoFilter.Status = &status
	}

	submissions, err := s.submissions.List(ctx, repoFilter)
	if err != nil {
		return nil, err
	}

	return dto.NewSubmissionResponseSlice(submissions), nil
}

func (s *reviewService) PendingQueue(ctx context.Context, limit, offset int) ([]dto.SubmissionResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	pending := models.SubmissionStatusPendingReview
	waiting, err := s.submissions.List(ctx, repository.SubmissionFilter{Status: &pending, Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}

	flagged := models.SubmissionStatusAIFlagged
	flaggedRows, err := s.submissions.List(ctx, repository.SubmissionFilter{Status: &flagged, Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}

	return dto.NewSubmissionResponseSlice(append(waiting, flaggedRows...)), nil
}

func (s *reviewService) Resolve(parent context.Context, id, reviewerID uint, payload dto.ResolveRequest) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(parent, "review.resolve", trace.WithAttributes(
		attribute.Int("submission_id", int(id)),
		attribute.String("decision", payload.Decision),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, err
	}

	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionResponse{}, ErrSubmissionNotFound
		}
		return dto.SubmissionResponse{}, err
	}

	if submission.Status.Terminal() {
		return dto.SubmissionResponse{}, ErrAlreadyResolved
	}

	notes := s.sanitizer.Sanitize(payload.Notes)

	if payload.Decision == "reject" {
		won, err := s.submissions.Resolve(ctx, id, repository.ResolveUpdate{
			Status:      models.SubmissionStatusRejected,
			ReviewerID:  &reviewerID,
			ReviewNotes: notes,
			ResolvedAt:  s.now().UTC(),
		})
		if err != nil {
			return dto.SubmissionResponse{}, err
		}
		if !won {
			return dto.SubmissionResponse{}, ErrAlreadyResolved
		}

		observability.ReviewTransitions().WithLabelValues(string(models.SubmissionStatusRejected), "manual").Inc()
		return s.Get(ctx, id)
	}

	points := submission.SuggestedPoints
	if payload.Points != nil {
		points = payload.Points
	}
	if points == nil {
		return dto.SubmissionResponse{}, ErrPointsRequired
	}

	won, err := s.submissions.Resolve(ctx, id, repository.ResolveUpdate{
		Status:      models.SubmissionStatusApproved,
		FinalPoints: points,
		ReviewerID:  &reviewerID,
		ReviewNotes: notes,
		ResolvedAt:  s.now().UTC(),
	})
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	if !won {
		// A concurrent reviewer got there first.
		return dto.SubmissionResponse{}, ErrAlreadyResolved
	}

	observability.ReviewTransitions().WithLabelValues(string(models.SubmissionStatusApproved), "manual").Inc()
	s.awardApproved(ctx, &submission, *points)

	return s.Get(ctx, id)
}
