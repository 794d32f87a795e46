package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ecolearn-go-api/internal/models"
)

func seedAward(repo *stubLedgerRepo, studentID uint, level string, activityID string, points int, at time.Time) {
	repo.entries = append(repo.entries, models.LedgerEntry{
		StudentID:     studentID,
		ActivityKind:  models.ActivityKindModule,
		ActivityID:    activityID,
		PointsAwarded: points,
		OccurredAt:    at,
	})
	repo.totals[studentID] += points
	repo.cohorts[studentID] = level
}

func rankFixture(students ...uint) (*stubLedgerRepo, *stubStudentRepo) {
	ledger := newStubLedgerRepo()
	known := map[uint]models.Student{}
	for _, id := range students {
		known[id] = models.Student{}
	}
	return ledger, &stubStudentRepo{students: known}
}

func TestRankTiesShareRank(t *testing.T) {
	ledger, students := rankFixture(1, 2, 3)
	now := time.Now().UTC()
	seedAward(ledger, 1, models.EducationLevelSecondary, "path:1:module:0", 100, now.Add(-2*time.Hour))
	seedAward(ledger, 2, models.EducationLevelSecondary, "path:1:module:0", 100, now.Add(-time.Hour))
	seedAward(ledger, 3, models.EducationLevelSecondary, "path:1:module:0", 50, now)

	svc := NewRankService(ledger, students, nil, time.Minute, zerolog.Nop())

	for _, id := range []uint{1, 2} {
		rank, err := svc.Rank(context.Background(), id, Scope{})
		require.NoError(t, err)
		require.Equal(t, 1, rank.Rank)
		require.Equal(t, 100, rank.Points)
		require.Equal(t, 3, rank.CohortSize)
		require.InDelta(t, 100.0/3.0, rank.Percentile, 1e-9)
	}

	rank, err := svc.Rank(context.Background(), 3, Scope{})
	require.NoError(t, err)
	require.Equal(t, 3, rank.Rank)
	require.InDelta(t, 0.0, rank.Percentile, 1e-9)
}

func TestRankStudentWithoutEntries(t *testing.T) {
	ledger, students := rankFixture(1, 2, 9)
	now := time.Now().UTC()
	seedAward(ledger, 1, models.EducationLevelPrimary, "quiz:1", 30, now)
	seedAward(ledger, 2, models.EducationLevelPrimary, "quiz:1", 10, now)

	svc := NewRankService(ledger, students, nil, time.Minute, zerolog.Nop())

	rank, err := svc.Rank(context.Background(), 9, Scope{})
	require.NoError(t, err)
	require.Equal(t, 3, rank.Rank, "ranked behind everyone who scored")
	require.Equal(t, 0, rank.Points)
	require.Equal(t, 3, rank.CohortSize)
}

func TestRankWeeklyWindowExcludesOldEntries(t *testing.T) {
	ledger, students := rankFixture(1, 2)
	now := time.Now().UTC()
	seedAward(ledger, 1, models.EducationLevelSecondary, "task:1", 200, now.Add(-10*24*time.Hour))
	seedAward(ledger, 1, models.EducationLevelSecondary, "task:2", 20, now.Add(-time.Hour))
	seedAward(ledger, 2, models.EducationLevelSecondary, "task:3", 50, now.Add(-2*time.Hour))

	svc := NewRankService(ledger, students, nil, time.Minute, zerolog.Nop())

	rank, err := svc.Rank(context.Background(), 1, Scope{Window: WindowWeekly})
	require.NoError(t, err)
	require.Equal(t, 20, rank.Points, "the 10-day-old award is outside the window")
	require.Equal(t, 2, rank.Rank)

	allTime, err := svc.Rank(context.Background(), 1, Scope{Window: WindowAllTime})
	require.NoError(t, err)
	require.Equal(t, 220, allTime.Points)
	require.Equal(t, 1, allTime.Rank)
}

func TestRankInvalidScope(t *testing.T) {
	ledger, students := rankFixture(1)
	svc := NewRankService(ledger, students, nil, time.Minute, zerolog.Nop())

	_, err := svc.Rank(context.Background(), 1, Scope{Window: "yearly"})
	require.ErrorIs(t, err, ErrInvalidScope)

	_, err = svc.Rank(context.Background(), 1, Scope{EducationLevel: "kindergarten"})
	require.ErrorIs(t, err, ErrInvalidScope)
}

func TestRankUnknownStudent(t *testing.T) {
	ledger, students := rankFixture(1)
	svc := NewRankService(ledger, students, nil, time.Minute, zerolog.Nop())

	_, err := svc.Rank(context.Background(), 42, Scope{})
	require.ErrorIs(t, err, ErrStudentNotFound)
}

func TestLeaderboardDeterministicTieOrder(t *testing.T) {
	ledger, students := rankFixture(1, 2, 3)
	now := time.Now().UTC()
	// Students 2 and 3 tie on points; 3 got there first, so 3 lists first.
	seedAward(ledger, 1, models.EducationLevelTertiary, "task:1", 80, now.Add(-time.Hour))
	seedAward(ledger, 2, models.EducationLevelTertiary, "task:1", 60, now.Add(-time.Hour))
	seedAward(ledger, 3, models.EducationLevelTertiary, "task:1", 60, now.Add(-3*time.Hour))

	svc := NewRankService(ledger, students, nil, time.Minute, zerolog.Nop())

	board, err := svc.Leaderboard(context.Background(), Scope{}, 10)
	require.NoError(t, err)
	require.Len(t, board.Entries, 3)
	require.Equal(t, uint(1), board.Entries[0].StudentID)
	require.Equal(t, 1, board.Entries[0].Rank)
	require.Equal(t, uint(3), board.Entries[1].StudentID)
	require.Equal(t, uint(2), board.Entries[2].StudentID)
	require.Equal(t, 2, board.Entries[1].Rank)
	require.Equal(t, 2, board.Entries[2].Rank, "tied students share a rank")
}

func TestLeaderboardCohortFilter(t *testing.T) {
	ledger, students := rankFixture(1, 2)
	now := time.Now().UTC()
	seedAward(ledger, 1, models.EducationLevelPrimary, "quiz:1", 40, now)
	seedAward(ledger, 2, models.EducationLevelSecondary, "quiz:1", 90, now)

	svc := NewRankService(ledger, students, nil, time.Minute, zerolog.Nop())

	board, err := svc.Leaderboard(context.Background(), Scope{EducationLevel: models.EducationLevelPrimary}, 10)
	require.NoError(t, err)
	require.Len(t, board.Entries, 1)
	require.Equal(t, uint(1), board.Entries[0].StudentID)
	require.Equal(t, models.EducationLevelPrimary, board.Cohort)
}

func TestLeaderboardServedFromCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	ledger, students := rankFixture(1, 2)
	now := time.Now().UTC()
	seedAward(ledger, 1, models.EducationLevelSecondary, "task:1", 70, now)

	svc := NewRankService(ledger, students, cache, time.Minute, zerolog.Nop())

	first, err := svc.Leaderboard(context.Background(), Scope{Window: WindowAllTime}, 10)
	require.NoError(t, err)
	require.Len(t, first.Entries, 1)

	// New awards are invisible until the cache entry expires.
	seedAward(ledger, 2, models.EducationLevelSecondary, "task:1", 500, now)

	second, err := svc.Leaderboard(context.Background(), Scope{Window: WindowAllTime}, 10)
	require.NoError(t, err)
	require.Equal(t, first, second)

	mr.FastForward(2 * time.Minute)

	third, err := svc.Leaderboard(context.Background(), Scope{Window: WindowAllTime}, 10)
	require.NoError(t, err)
	require.Len(t, third.Entries, 2)
	require.Equal(t, uint(2), third.Entries[0].StudentID)
}

func TestLeaderboardLimitDefaults(t *testing.T) {
	ledger, students := rankFixture(1, 2, 3)
	now := time.Now().UTC()
	for id := uint(1); id <= 3; id++ {
		seedAward(ledger, id, models.EducationLevelPrimary, "task:1", int(id)*10, now)
	}

	svc := NewRankService(ledger, students, nil, time.Minute, zerolog.Nop())

	board, err := svc.Leaderboard(context.Background(), Scope{}, 2)
	require.NoError(t, err)
	require.Len(t, board.Entries, 2)
	require.Equal(t, 3, board.Total)

	board, err = svc.Leaderboard(context.Background(), Scope{}, -1)
	require.NoError(t, err)
	require.Len(t, board.Entries, 3, "invalid limit falls back to the default of 10")
}
