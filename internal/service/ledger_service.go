package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/ecolearn-go-api/internal/dto"
	"github.com/noah-isme/ecolearn-go-api/internal/models"
	"github.com/noah-isme/ecolearn-go-api/internal/observability"
	"github.com/noah-isme/ecolearn-go-api/internal/repository"
)

// ErrInvalidPoints indicates a negative point value on a regular award.
var ErrInvalidPoints = errors.New("points must not be negative")

// ErrInvalidActivityKind indicates an unknown activity kind.
var ErrInvalidActivityKind = errors.New("invalid activity kind")

// ErrStudentNotFound indicates the referenced student does not exist.
var ErrStudentNotFound = errors.New("student not found")

// ErrStorageTimeout indicates a storage call exceeded its deadline. The
// outcome is unknown; awards are idempotent, so callers retry safely.
var ErrStorageTimeout = errors.New("storage timeout, retry safely")

const defaultStorageTimeout = 5 * time.Second

// LedgerService owns every write into the EcoPoints ledger. One ledger call
// per semantic event: regular activity awards, path completion bonuses and
// manual adjustments are separate operations sharing the same idempotent
// append primitive.
type LedgerService interface {
	// AwardActivity idempotently awards points for one completed activity.
	// A repeated call for the same (student, kind, activity) reports
	// Accepted=false and the unchanged total.
	AwardActivity(ctx context.Context, studentID uint, kind models.ActivityKind, activityID string, points int, metadata map[string]interface{}) (dto.AwardResult, error)
	// AwardPathBonus awards the one-time difficulty-scaled completion bonus
	// for a learning path, keyed independently of the module awards.
	AwardPathBonus(ctx context.Context, studentID uint, path models.LearningPath) (dto.AwardResult, error)
	// AwardAdjustment appends a signed correction entry. The original entry
	// stays untouched; audit reads both. referenceID is the idempotency key:
	// a retried adjustment for the same reference is ignored.
	AwardAdjustment(ctx context.Context, studentID uint, kind models.ActivityKind, referenceID string, delta int, reason string) (dto.AwardResult, error)
	// Reconcile re-sums the full ledger and compares it against the cached
	// total. Mismatches are reported loudly, never silently patched.
	Reconcile(ctx context.Context, studentID uint) (dto.ReconciliationReport, error)
}

type ledgerService struct {
	ledger         repository.LedgerRepository
	students       repository.StudentRepository
	publisher      AwardPublisher
	logger         zerolog.Logger
	storageTimeout time.Duration
	now            func() time.Time
}

// NewLedgerService constructs a LedgerService instance. publisher may be nil
// when no event fanout is configured.
func NewLedgerService(ledger repository.LedgerRepository, students repository.StudentRepository, publisher AwardPublisher, storageTimeout time.Duration, logger zerolog.Logger) LedgerService {
	if storageTimeout <= 0 {
		storageTimeout = defaultStorageTimeout
	}

	return &ledgerService{
		ledger:         ledger,
		students:       students,
		publisher:      publisher,
		logger:         logger.With().Str("component", "ledger_service").Logger(),
		storageTimeout: storageTimeout,
		now:            time.Now,
	}
}

func (s *ledgerService) AwardActivity(ctx context.Context, studentID uint, kind models.ActivityKind, activityID string, points int, metadata map[string]interface{}) (dto.AwardResult, error) {
	if points < 0 {
		return dto.AwardResult{}, ErrInvalidPoints
	}

	return s.append(ctx, studentID, kind, activityID, points, metadata)
}

func (s *ledgerService) AwardPathBonus(ctx context.Context, studentID uint, path models.LearningPath) (dto.AwardResult, error) {
	metadata := map[string]interface{}{
		"path_id":    path.ID,
		"difficulty": path.Difficulty,
	}

	return s.append(ctx, studentID, models.ActivityKindBonus, path.BonusActivityID(), path.BonusPoints(), metadata)
}

func (s *ledgerService) AwardAdjustment(ctx context.Context, studentID uint, kind models.ActivityKind, referenceID string, delta int, reason string) (dto.AwardResult, error) {
	metadata := map[string]interface{}{
		"reference_id": referenceID,
		"reason":       reason,
	}

	activityID := fmt.Sprintf("adjustment:%s", referenceID)
	return s.append(ctx, studentID, kind, activityID, delta, metadata)
}

func (s *ledgerService) append(ctx context.Context, studentID uint, kind models.ActivityKind, activityID string, points int, metadata map[string]interface{}) (dto.AwardResult, error) {
	if !kind.Valid() {
		return dto.AwardResult{}, ErrInvalidActivityKind
	}

	if activityID == "" {
		return dto.AwardResult{}, fmt.Errorf("activity id must not be empty")
	}

	occurredAt := s.now().UTC()
	entry := models.LedgerEntry{
		StudentID:     studentID,
		ActivityKind:  kind,
		ActivityID:    activityID,
		PointsAwarded: points,
		OccurredAt:    occurredAt,
		Metadata:      datatypes.JSONMap(metadata),
	}

	callCtx, cancel := context.WithTimeout(ctx, s.storageTimeout)
	defer cancel()

	outcome, total, err := s.ledger.Append(callCtx, &entry)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.logger.Warn().
				Uint("student_id", studentID).
				Str("activity_id", activityID).
				Msg("ledger append timed out, outcome unknown")
			return dto.AwardResult{}, ErrStorageTimeout
		}
		return dto.AwardResult{}, fmt.Errorf("append ledger entry: %w", err)
	}

	accepted := outcome == repository.AppendAccepted
	outcomeLabel := "duplicate"
	if accepted {
		outcomeLabel = "accepted"
	}
	observability.Awards().WithLabelValues(string(kind), outcomeLabel).Inc()

	if accepted {
		s.logger.Info().
			Uint("student_id", studentID).
			Str("kind", string(kind)).
			Str("activity_id", activityID).
			Int("points", points).
			Int("new_total", total).
			Msg("points awarded")

		if s.publisher != nil {
			s.publisher.PublishAward(ctx, AwardEvent{
				StudentID:    studentID,
				ActivityKind: string(kind),
				ActivityID:   activityID,
				Points:       points,
				NewTotal:     total,
				OccurredAt:   occurredAt,
			})
		}
	} else {
		s.logger.Debug().
			Uint("student_id", studentID).
			Str("activity_id", activityID).
			Msg("duplicate award ignored")
	}

	return dto.AwardResult{Accepted: accepted, NewTotal: total}, nil
}

func (s *ledgerService) Reconcile(ctx context.Context, studentID uint) (dto.ReconciliationReport, error) {
	student, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ReconciliationReport{}, ErrStudentNotFound
		}
		return dto.ReconciliationReport{}, err
	}

	entries, err := s.ledger.ListByStudent(ctx, studentID)
	if err != nil {
		return dto.ReconciliationReport{}, err
	}

	sum := 0
	for _, entry := range entries {
		sum += entry.PointsAwarded
	}

	report := dto.ReconciliationReport{
		StudentID:   studentID,
		CachedTotal: student.TotalPoints,
		LedgerSum:   sum,
		Consistent:  student.TotalPoints == sum,
		EntryCount:  len(entries),
	}

	if !report.Consistent {
		observability.LedgerInconsistencies().Inc()
		s.logger.Error().
			Uint("student_id", studentID).
			Int("cached_total", student.TotalPoints).
			Int("ledger_sum", sum).
			Msg("partial write detected: cached total diverges from ledger")
	}

	return report, nil
}
