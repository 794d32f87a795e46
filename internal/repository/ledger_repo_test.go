package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/ecolearn-go-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Student{}, &models.LedgerEntry{}, &models.ActionSubmission{}, &models.LearningPath{}, &models.Quiz{}, &models.EcoTask{}))
	return db
}

func createStudent(t *testing.T, db *gorm.DB, name, level string) models.Student {
	t.Helper()
	student := models.Student{Name: name, Email: name + "@example.com", EducationLevel: level}
	require.NoError(t, db.Create(&student).Error)
	return student
}

func TestLedgerAppendIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLedgerRepository(db)
	student := createStudent(t, db, "aruzhan", models.EducationLevelSecondary)

	entry := models.LedgerEntry{
		StudentID:     student.ID,
		ActivityKind:  models.ActivityKindModule,
		ActivityID:    "path:1:module:2",
		PointsAwarded: 50,
		OccurredAt:    time.Now().UTC(),
	}

	outcome, total, err := repo.Append(context.Background(), &entry)
	require.NoError(t, err)
	require.Equal(t, AppendAccepted, outcome)
	require.Equal(t, 50, total)

	retry := models.LedgerEntry{
		StudentID:     student.ID,
		ActivityKind:  models.ActivityKindModule,
		ActivityID:    "path:1:module:2",
		PointsAwarded: 50,
		OccurredAt:    time.Now().UTC(),
	}

	outcome, total, err = repo.Append(context.Background(), &retry)
	require.NoError(t, err)
	require.Equal(t, AppendDuplicate, outcome)
	require.Equal(t, 50, total, "duplicate must not change the total")

	var count int64
	require.NoError(t, db.Model(&models.LedgerEntry{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestLedgerAppendKeepsCachedTotalConsistent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLedgerRepository(db)
	student := createStudent(t, db, "bekzat", models.EducationLevelPrimary)

	for i := 0; i < 5; i++ {
		entry := models.LedgerEntry{
			StudentID:     student.ID,
			ActivityKind:  models.ActivityKindQuiz,
			ActivityID:    fmt.Sprintf("quiz:%d", i),
			PointsAwarded: 10 + i,
			OccurredAt:    time.Now().UTC(),
		}
		_, _, err := repo.Append(context.Background(), &entry)
		require.NoError(t, err)
	}

	sum, err := repo.SumByStudent(context.Background(), student.ID)
	require.NoError(t, err)

	var reloaded models.Student
	require.NoError(t, db.First(&reloaded, student.ID).Error)
	require.Equal(t, sum, reloaded.TotalPoints, "cached total must equal the ledger sum")
	require.NotNil(t, reloaded.LastAwardAt)
}

func TestLedgerAppendUnknownStudentWritesNothing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLedgerRepository(db)

	entry := models.LedgerEntry{
		StudentID:     999,
		ActivityKind:  models.ActivityKindTask,
		ActivityID:    "task:1",
		PointsAwarded: 10,
		OccurredAt:    time.Now().UTC(),
	}

	_, _, err := repo.Append(context.Background(), &entry)
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&models.LedgerEntry{}).Count(&count).Error)
	require.Equal(t, int64(0), count, "transaction must roll the entry back")
}

func TestLedgerWindowTotals(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLedgerRepository(db)
	recent := createStudent(t, db, "camila", models.EducationLevelSecondary)
	stale := createStudent(t, db, "dastan", models.EducationLevelPrimary)

	now := time.Now().UTC()
	entries := []models.LedgerEntry{
		{StudentID: recent.ID, ActivityKind: models.ActivityKindTask, ActivityID: "task:1", PointsAwarded: 30, OccurredAt: now.Add(-time.Hour)},
		{StudentID: recent.ID, ActivityKind: models.ActivityKindTask, ActivityID: "task:2", PointsAwarded: 20, OccurredAt: now.Add(-30 * 24 * time.Hour)},
		{StudentID: stale.ID, ActivityKind: models.ActivityKindTask, ActivityID: "task:1", PointsAwarded: 90, OccurredAt: now.Add(-30 * 24 * time.Hour)},
	}
	for i := range entries {
		_, _, err := repo.Append(context.Background(), &entries[i])
		require.NoError(t, err)
	}

	totals, err := repo.WindowTotals(context.Background(), now.Add(-7*24*time.Hour), "")
	require.NoError(t, err)
	require.Len(t, totals, 1)
	require.Equal(t, recent.ID, totals[0].StudentID)
	require.Equal(t, 30, totals[0].Points)

	cohort, err := repo.WindowTotals(context.Background(), now.Add(-60*24*time.Hour), models.EducationLevelPrimary)
	require.NoError(t, err)
	require.Len(t, cohort, 1)
	require.Equal(t, stale.ID, cohort[0].StudentID)
	require.Equal(t, 90, cohort[0].Points)
}

func TestLedgerAllTimeTotalsUsesCachedValues(t *testing.T) {
	db := setupTestDB(t)
	repo := NewLedgerRepository(db)
	student := createStudent(t, db, "erasyl", models.EducationLevelTertiary)

	entry := models.LedgerEntry{
		StudentID:     student.ID,
		ActivityKind:  models.ActivityKindAction,
		ActivityID:    "submission:41",
		PointsAwarded: 75,
		OccurredAt:    time.Now().UTC(),
	}
	_, _, err := repo.Append(context.Background(), &entry)
	require.NoError(t, err)

	totals, err := repo.AllTimeTotals(context.Background(), models.EducationLevelTertiary)
	require.NoError(t, err)
	require.Len(t, totals, 1)
	require.Equal(t, 75, totals[0].Points)
	require.Equal(t, models.EducationLevelTertiary, totals[0].EducationLevel)
}
