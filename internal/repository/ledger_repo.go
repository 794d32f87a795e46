package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/ecolearn-go-api/internal/models"
)

// AppendOutcome tags the result of an idempotent ledger append so callers
// never have to interpret driver-specific duplicate-key errors.
type AppendOutcome int

const (
	// AppendAccepted means a new entry was written and the total updated.
	AppendAccepted AppendOutcome = iota
	// AppendDuplicate means an entry already existed for the award key and
	// nothing changed.
	AppendDuplicate
)

// StudentTotal is one row of a leaderboard projection.
type StudentTotal struct {
	StudentID      uint       `json:"student_id"`
	Name           string     `json:"name"`
	EducationLevel string     `json:"education_level"`
	Points         int        `json:"points"`
	LastAwardAt    *time.Time `json:"last_award_at"`
}

// LedgerRepository persists immutable EcoPoints award entries.
type LedgerRepository interface {
	// Append writes the entry and bumps the student's cached total in a
	// single transaction. A duplicate award key leaves everything untouched
	// and reports AppendDuplicate. The returned total is the cached total
	// after the call either way.
	Append(ctx context.Context, entry *models.LedgerEntry) (AppendOutcome, int, error)
	ListByStudent(ctx context.Context, studentID uint) ([]models.LedgerEntry, error)
	// ListActivityIDs returns the activity ids a student has ledger entries
	// for, filtered by kind and id prefix. Used to derive path progress from
	// the ledger instead of a separate progress table that could drift.
	ListActivityIDs(ctx context.Context, studentID uint, kind models.ActivityKind, prefix string) ([]string, error)
	// SumByStudent re-sums the full ledger. Audit/reconciliation only; the
	// award hot path must use the cached total instead.
	SumByStudent(ctx context.Context, studentID uint) (int, error)
	// AllTimeTotals projects cached student totals, optionally filtered by
	// education-level cohort.
	AllTimeTotals(ctx context.Context, educationLevel string) ([]StudentTotal, error)
	// WindowTotals sums ledger entries with occurred_at >= since per student,
	// optionally filtered by education-level cohort. Cached totals are
	// all-time only, so windowed views always come from entry timestamps.
	WindowTotals(ctx context.Context, since time.Time, educationLevel string) ([]StudentTotal, error)
}

type ledgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository instantiates the repository.
func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) Append(ctx context.Context, entry *models.LedgerEntry) (AppendOutcome, int, error) {
	outcome := AppendDuplicate
	total := 0

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "student_id"},
				{Name: "activity_kind"},
				{Name: "activity_id"},
			},
			DoNothing: true,
		}).Create(entry)
		if result.Error != nil {
			return result.Error
		}

		if result.RowsAffected == 0 {
			outcome = AppendDuplicate
		} else {
			outcome = AppendAccepted

			update := tx.Model(&models.Student{}).
				Where("id = ?", entry.StudentID).
				Updates(map[string]interface{}{
					"total_points":  gorm.Expr("total_points + ?", entry.PointsAwarded),
					"last_award_at": entry.OccurredAt,
				})
			if update.Error != nil {
				return update.Error
			}
			if update.RowsAffected == 0 {
				return fmt.Errorf("student %d not found for total update", entry.StudentID)
			}
		}

		var student models.Student
		if err := tx.Select("total_points").First(&student, entry.StudentID).Error; err != nil {
			return err
		}
		total = student.TotalPoints

		return nil
	})
	if err != nil {
		return AppendDuplicate, 0, err
	}

	return outcome, total, nil
}

func (r *ledgerRepository) ListByStudent(ctx context.Context, studentID uint) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("occurred_at ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *ledgerRepository) ListActivityIDs(ctx context.Context, studentID uint, kind models.ActivityKind, prefix string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("student_id = ?", studentID).
		Where("activity_kind = ?", kind).
		Where("activity_id LIKE ?", prefix+"%").
		Order("activity_id ASC").
		Pluck("activity_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *ledgerRepository) SumByStudent(ctx context.Context, studentID uint) (int, error) {
	var sum *int
	err := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("student_id = ?", studentID).
		Select("SUM(points_awarded)").
		Scan(&sum).Error
	if err != nil {
		return 0, err
	}
	if sum == nil {
		return 0, nil
	}
	return *sum, nil
}

func (r *ledgerRepository) AllTimeTotals(ctx context.Context, educationLevel string) ([]StudentTotal, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Student{}).
		Select("id AS student_id, name, education_level, total_points AS points, last_award_at")

	if educationLevel != "" {
		query = query.Where("education_level = ?", educationLevel)
	}

	var totals []StudentTotal
	if err := query.Scan(&totals).Error; err != nil {
		return nil, err
	}
	return totals, nil
}

func (r *ledgerRepository) WindowTotals(ctx context.Context, since time.Time, educationLevel string) ([]StudentTotal, error) {
	query := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Select("students.id AS student_id, students.name, students.education_level, SUM(ledger_entries.points_awarded) AS points, MAX(ledger_entries.occurred_at) AS last_award_at").
		Joins("JOIN students ON students.id = ledger_entries.student_id").
		Where("ledger_entries.occurred_at >= ?", since).
		Group("students.id, students.name, students.education_level")

	if educationLevel != "" {
		query = query.Where("students.education_level = ?", educationLevel)
	}

	var totals []StudentTotal
	if err := query.Scan(&totals).Error; err != nil {
		return nil, err
	}
	return totals, nil
}
