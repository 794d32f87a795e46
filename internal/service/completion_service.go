package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/ecolearn-go-api/internal/dto"
	"github.com/noah-isme/ecolearn-go-api/internal/impact"
	"github.com/noah-isme/ecolearn-go-api/internal/models"
	"github.com/noah-isme/ecolearn-go-api/internal/repository"
)

// ErrActivityNotFound indicates the referenced catalog activity does not exist.
var ErrActivityNotFound = errors.New("activity not found")

// ErrIndexOutOfRange indicates a module index outside the path's range.
var ErrIndexOutOfRange = errors.New("module index out of range")

// ErrAnswersOutOfRange indicates a correct-answer count above the question count.
var ErrAnswersOutOfRange = errors.New("correct answers exceed question count")

// CompletionService records finished structured activities. Point values come
// exclusively from static catalog definitions; client-supplied values are
// never trusted.
type CompletionService interface {
	CompleteModule(ctx context.Context, studentID uint, payload dto.ModuleCompletionRequest) (dto.ModuleCompletionResponse, error)
	CompleteQuiz(ctx context.Context, studentID uint, payload dto.QuizCompletionRequest) (dto.CompletionResponse, error)
	CompleteTask(ctx context.Context, studentID uint, payload dto.TaskCompletionRequest) (dto.CompletionResponse, error)
}

type completionService struct {
	catalog   repository.CatalogRepository
	ledger    repository.LedgerRepository
	awards    LedgerService
	converter impact.Converter
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewCompletionService constructs a CompletionService instance.
func NewCompletionService(catalog repository.CatalogRepository, ledger repository.LedgerRepository, awards LedgerService, converter impact.Converter, validate *validator.Validate, logger zerolog.Logger) CompletionService {
	return &completionService{
		catalog:   catalog,
		ledger:    ledger,
		awards:    awards,
		converter: converter,
		validator: validate,
		logger:    logger.With().Str("component", "completion_service").Logger(),
	}
}

func (s *completionService) CompleteModule(ctx context.Context, studentID uint, payload dto.ModuleCompletionRequest) (dto.ModuleCompletionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ModuleCompletionResponse{}, err
	}

	path, err := s.catalog.GetPath(ctx, payload.PathID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ModuleCompletionResponse{}, ErrActivityNotFound
		}
		return dto.ModuleCompletionResponse{}, err
	}

	if !path.ValidModuleIndex(payload.ModuleIndex) {
		return dto.ModuleCompletionResponse{}, ErrIndexOutOfRange
	}

	metadata := map[string]interface{}{
		"path_id":      path.ID,
		"module_index": payload.ModuleIndex,
	}
	award, err := s.awards.AwardActivity(ctx, studentID, models.ActivityKindModule, path.ModuleActivityID(payload.ModuleIndex), path.PointsPerModule, metadata)
	if err != nil {
		return dto.ModuleCompletionResponse{}, err
	}

	response := dto.ModuleCompletionResponse{
		CompletionResponse: dto.CompletionResponse{
			Accepted:      award.Accepted,
			PointsAwarded: path.PointsPerModule,
			NewTotal:      award.NewTotal,
		},
	}

	if award.Accepted {
		delta := s.converter.ImpactOf(models.ActivityKindModule, path.PointsPerModule)
		response.Impact = &delta
	}

	// Progress is derived from the ledger. Failures here degrade the
	// response; the award above already stands.
	completed, err := s.completedModules(ctx, studentID, path)
	if err != nil {
		s.logger.Warn().Err(err).Uint("student_id", studentID).Uint("path_id", path.ID).Msg("module progress lookup degraded")
		return response, nil
	}

	progress := float64(len(completed)) / float64(path.ModuleCount) * 100
	complete := len(completed) == path.ModuleCount
	response.CompletedModules = completed
	response.ProgressPercentage = &progress
	response.IsPathComplete = &complete

	if complete {
		bonus, err := s.awards.AwardPathBonus(ctx, studentID, path)
		if err != nil {
			s.logger.Error().Err(err).Uint("student_id", studentID).Uint("path_id", path.ID).Msg("path bonus award failed")
			return response, nil
		}
		response.BonusAwarded = bonus.Accepted
		if bonus.Accepted {
			response.BonusPoints = path.BonusPoints()
			response.NewTotal = bonus.NewTotal
		}
	}

	return response, nil
}

func (s *completionService) CompleteQuiz(ctx context.Context, studentID uint, payload dto.QuizCompletionRequest) (dto.CompletionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CompletionResponse{}, err
	}

	quiz, err := s.catalog.GetQuiz(ctx, payload.QuizID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CompletionResponse{}, ErrActivityNotFound
		}
		return dto.CompletionResponse{}, err
	}

	if payload.CorrectAnswers > quiz.QuestionCount {
		return dto.CompletionResponse{}, ErrAnswersOutOfRange
	}

	points := quiz.Points(payload.CorrectAnswers)
	metadata := map[string]interface{}{
		"quiz_id":         quiz.ID,
		"correct_answers": payload.CorrectAnswers,
		"question_count":  quiz.QuestionCount,
	}

	award, err := s.awards.AwardActivity(ctx, studentID, models.ActivityKindQuiz, fmt.Sprintf("quiz:%d", quiz.ID), points, metadata)
	if err != nil {
		return dto.CompletionResponse{}, err
	}

	return s.buildResponse(models.ActivityKindQuiz, points, award), nil
}

func (s *completionService) CompleteTask(ctx context.Context, studentID uint, payload dto.TaskCompletionRequest) (dto.CompletionResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.CompletionResponse{}, err
	}

	task, err := s.catalog.GetTask(ctx, payload.TaskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.CompletionResponse{}, ErrActivityNotFound
		}
		return dto.CompletionResponse{}, err
	}

	metadata := map[string]interface{}{
		"task_id":    task.ID,
		"difficulty": task.Difficulty,
	}

	award, err := s.awards.AwardActivity(ctx, studentID, models.ActivityKindTask, fmt.Sprintf("task:%d", task.ID), task.Points, metadata)
	if err != nil {
		return dto.CompletionResponse{}, err
	}

	return s.buildResponse(models.ActivityKindTask, task.Points, award), nil
}

func (s *completionService) buildResponse(kind models.ActivityKind, points int, award dto.AwardResult) dto.CompletionResponse {
	response := dto.CompletionResponse{
		Accepted:      award.Accepted,
		PointsAwarded: points,
		NewTotal:      award.NewTotal,
	}

	if award.Accepted {
		delta := s.converter.ImpactOf(kind, points)
		response.Impact = &delta
	}

	return response
}

func (s *completionService) completedModules(ctx context.Context, studentID uint, path models.LearningPath) ([]int, error) {
	prefix := fmt.Sprintf("path:%d:module:", path.ID)
	ids, err := s.ledger.ListActivityIDs(ctx, studentID, models.ActivityKindModule, prefix)
	if err != nil {
		return nil, err
	}

	indices := make([]int, 0, len(ids))
	for _, id := range ids {
		raw := strings.TrimPrefix(id, prefix)
		index, err := strconv.Atoi(raw)
		if err != nil {
			continue
		}
		indices = append(indices, index)
	}
	sort.Ints(indices)
	return indices, nil
}
