package service

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/ecolearn-go-api/internal/models"
	"github.com/noah-isme/ecolearn-go-api/internal/repository"
	"github.com/noah-isme/ecolearn-go-api/pkg/assessor"
)

type stubLedgerRepo struct {
	entries []models.LedgerEntry
	totals  map[uint]int
	cohorts map[uint]string
	err     error
	nextID  uint
}

func newStubLedgerRepo() *stubLedgerRepo {
	return &stubLedgerRepo{totals: map[uint]int{}, cohorts: map[uint]string{}}
}

func (s *stubLedgerRepo) Append(ctx context.Context, entry *models.LedgerEntry) (repository.AppendOutcome, int, error) {
	if s.err != nil {
		return repository.AppendDuplicate, 0, s.err
	}

	for _, existing := range s.entries {
		if existing.StudentID == entry.StudentID && existing.ActivityKind == entry.ActivityKind && existing.ActivityID == entry.ActivityID {
			return repository.AppendDuplicate, s.totals[entry.StudentID], nil
		}
	}

	s.nextID++
	entry.ID = s.nextID
	s.entries = append(s.entries, *entry)
	s.totals[entry.StudentID] += entry.PointsAwarded
	return repository.AppendAccepted, s.totals[entry.StudentID], nil
}

func (s *stubLedgerRepo) ListByStudent(ctx context.Context, studentID uint) ([]models.LedgerEntry, error) {
	if s.err != nil {
		return nil, s.err
	}
	var entries []models.LedgerEntry
	for _, entry := range s.entries {
		if entry.StudentID == studentID {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (s *stubLedgerRepo) ListActivityIDs(ctx context.Context, studentID uint, kind models.ActivityKind, prefix string) ([]string, error) {
	if s.err != nil {
		return nil, s.err
	}
	var ids []string
	for _, entry := range s.entries {
		if entry.StudentID == studentID && entry.ActivityKind == kind && strings.HasPrefix(entry.ActivityID, prefix) {
			ids = append(ids, entry.ActivityID)
		}
	}
	return ids, nil
}

func (s *stubLedgerRepo) SumByStudent(ctx context.Context, studentID uint) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	sum := 0
	for _, entry := range s.entries {
		if entry.StudentID == studentID {
			sum += entry.PointsAwarded
		}
	}
	return sum, nil
}

func (s *stubLedgerRepo) AllTimeTotals(ctx context.Context, educationLevel string) ([]repository.StudentTotal, error) {
	return s.totalRows(educationLevel, nil)
}

func (s *stubLedgerRepo) WindowTotals(ctx context.Context, since time.Time, educationLevel string) ([]repository.StudentTotal, error) {
	return s.totalRows(educationLevel, &since)
}

func (s *stubLedgerRepo) totalRows(educationLevel string, since *time.Time) ([]repository.StudentTotal, error) {
	if s.err != nil {
		return nil, s.err
	}

	points := map[uint]int{}
	lastAward := map[uint]time.Time{}
	for _, entry := range s.entries {
		if since != nil && entry.OccurredAt.Before(*since) {
			continue
		}
		points[entry.StudentID] += entry.PointsAwarded
		if entry.OccurredAt.After(lastAward[entry.StudentID]) {
			lastAward[entry.StudentID] = entry.OccurredAt
		}
	}

	var rows []repository.StudentTotal
	for studentID, total := range points {
		if educationLevel != "" && s.cohorts[studentID] != educationLevel {
			continue
		}
		at := lastAward[studentID]
		rows = append(rows, repository.StudentTotal{StudentID: studentID, Points: total, LastAwardAt: &at, EducationLevel: s.cohorts[studentID]})
	}
	return rows, nil
}

type stubStudentRepo struct {
	students map[uint]models.Student
	err      error
}

func (s *stubStudentRepo) GetByID(ctx context.Context, id uint) (models.Student, error) {
	if s.err != nil {
		return models.Student{}, s.err
	}
	student, ok := s.students[id]
	if !ok {
		return models.Student{}, gorm.ErrRecordNotFound
	}
	return student, nil
}

type stubSubmissionRepo struct {
	submissions map[uint]*models.ActionSubmission
	nextID      uint
	err         error
	attachErr   error
}

func newStubSubmissionRepo() *stubSubmissionRepo {
	return &stubSubmissionRepo{submissions: map[uint]*models.ActionSubmission{}}
}

func (s *stubSubmissionRepo) Create(ctx context.Context, submission *models.ActionSubmission) error {
	if s.err != nil {
		return s.err
	}
	s.nextID++
	submission.ID = s.nextID
	clone := *submission
	s.submissions[submission.ID] = &clone
	return nil
}

func (s *stubSubmissionRepo) GetByID(ctx context.Context, id uint) (models.ActionSubmission, error) {
	if s.err != nil {
		return models.ActionSubmission{}, s.err
	}
	stored, ok := s.submissions[id]
	if !ok {
		return models.ActionSubmission{}, gorm.ErrRecordNotFound
	}
	return *stored, nil
}

func (s *stubSubmissionRepo) List(ctx context.Context, filter repository.SubmissionFilter) ([]models.ActionSubmission, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []models.ActionSubmission
	for _, stored := range s.submissions {
		if filter.StudentID != nil && stored.StudentID != *filter.StudentID {
			continue
		}
		if filter.Status != nil && stored.Status != *filter.Status {
			continue
		}
		out = append(out, *stored)
	}
	return out, nil
}

func (s *stubSubmissionRepo) AttachAssessment(ctx context.Context, submission *models.ActionSubmission) error {
	if s.attachErr != nil {
		return s.attachErr
	}
	stored, ok := s.submissions[submission.ID]
	if !ok || stored.Status.Terminal() {
		return nil
	}
	stored.Status = submission.Status
	stored.Confidence = submission.Confidence
	stored.Verified = submission.Verified
	stored.SuggestedPoints = submission.SuggestedPoints
	stored.Assessment = submission.Assessment
	return nil
}

func (s *stubSubmissionRepo) Resolve(ctx context.Context, id uint, update repository.ResolveUpdate) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	stored, ok := s.submissions[id]
	if !ok || stored.Status.Terminal() {
		return false, nil
	}
	stored.Status = update.Status
	stored.FinalPoints = update.FinalPoints
	stored.ReviewerID = update.ReviewerID
	stored.ReviewNotes = update.ReviewNotes
	stored.AutoApproved = update.AutoApproved
	resolvedAt := update.ResolvedAt
	stored.ResolvedAt = &resolvedAt
	return true, nil
}

type stubCatalogRepo struct {
	path models.LearningPath
	quiz models.Quiz
	task models.EcoTask
	err  error
}

func (s *stubCatalogRepo) GetPath(ctx context.Context, id uint) (models.LearningPath, error) {
	if s.err != nil {
		return models.LearningPath{}, s.err
	}
	if s.path.ID == 0 || s.path.ID != id {
		return models.LearningPath{}, gorm.ErrRecordNotFound
	}
	return s.path, nil
}

func (s *stubCatalogRepo) GetQuiz(ctx context.Context, id uint) (models.Quiz, error) {
	if s.err != nil {
		return models.Quiz{}, s.err
	}
	if s.quiz.ID == 0 || s.quiz.ID != id {
		return models.Quiz{}, gorm.ErrRecordNotFound
	}
	return s.quiz, nil
}

func (s *stubCatalogRepo) GetTask(ctx context.Context, id uint) (models.EcoTask, error) {
	if s.err != nil {
		return models.EcoTask{}, s.err
	}
	if s.task.ID == 0 || s.task.ID != id {
		return models.EcoTask{}, gorm.ErrRecordNotFound
	}
	return s.task, nil
}

type stubAssessor struct {
	result assessor.Assessment
	err    error
	calls  int
}

func (s *stubAssessor) Assess(ctx context.Context, input assessor.Input) (assessor.Assessment, error) {
	s.calls++
	if s.err != nil {
		return assessor.Assessment{}, s.err
	}
	return s.result, nil
}

type stubPublisher struct {
	events []AwardEvent
}

func (s *stubPublisher) PublishAward(ctx context.Context, event AwardEvent) {
	s.events = append(s.events, event)
}
