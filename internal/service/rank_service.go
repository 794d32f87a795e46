package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/ecolearn-go-api/internal/dto"
	"github.com/noah-isme/ecolearn-go-api/internal/models"
	"github.com/noah-isme/ecolearn-go-api/internal/repository"
)

// Leaderboard time windows. Windowed views are computed from ledger entry
// timestamps; the cached student total is all-time only.
const (
	WindowAllTime = "all"
	WindowMonthly = "monthly"
	WindowWeekly  = "weekly"
)

const (
	weeklyWindow  = 7 * 24 * time.Hour
	monthlyWindow = 30 * 24 * time.Hour
)

// ErrInvalidScope indicates an unknown window or cohort value.
var ErrInvalidScope = errors.New("invalid leaderboard scope")

// Scope filters a leaderboard computation.
type Scope struct {
	// EducationLevel narrows to one cohort; empty means global.
	EducationLevel string
	// Window is one of WindowAllTime, WindowMonthly, WindowWeekly.
	Window string
}

// RankService derives leaderboard views from the ledger. Views are
// recomputed per query (the redis cache only shortens the window between
// recomputes), so they can never drift from the ledger.
type RankService interface {
	Rank(ctx context.Context, studentID uint, scope Scope) (dto.RankResponse, error)
	Leaderboard(ctx context.Context, scope Scope, limit int) (dto.LeaderboardResponse, error)
}

type rankService struct {
	ledger   repository.LedgerRepository
	students repository.StudentRepository
	cache    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// NewRankService builds the leaderboard calculator. cache may be nil.
func NewRankService(ledger repository.LedgerRepository, students repository.StudentRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) RankService {
	return &rankService{
		ledger:   ledger,
		students: students,
		cache:    cache,
		cacheTTL: ttl,
		logger:   logger.With().Str("component", "rank_service").Logger(),
		now:      time.Now,
	}
}

func (s *rankService) Rank(ctx context.Context, studentID uint, scope Scope) (dto.RankResponse, error) {
	if err := validateScope(scope); err != nil {
		return dto.RankResponse{}, err
	}

	if _, err := s.students.GetByID(ctx, studentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.RankResponse{}, ErrStudentNotFound
		}
		return dto.RankResponse{}, err
	}

	totals, err := s.totalsFor(ctx, scope)
	if err != nil {
		return dto.RankResponse{}, err
	}

	points := 0
	present := false
	for _, row := range totals {
		if row.StudentID == studentID {
			points = row.Points
			present = true
			break
		}
	}

	cohortSize := len(totals)
	if !present {
		// A student with no entries in the window still has a rank: behind
		// everyone who scored.
		cohortSize++
	}

	greater := 0
	lower := 0
	for _, row := range totals {
		if row.Points > points {
			greater++
		}
		if row.StudentID != studentID && row.Points < points {
			lower++
		}
	}

	// Ties share a rank number: rank = 1 + count(strictly greater). Appending
	// entries for unrelated students never reorders a tied group.
	rank := 1 + greater
	percentile := 0.0
	if cohortSize > 0 {
		percentile = float64(lower) / float64(cohortSize) * 100
	}

	return dto.RankResponse{
		StudentID:  studentID,
		Rank:       rank,
		Percentile: percentile,
		CohortSize: cohortSize,
		Points:     points,
	}, nil
}

func (s *rankService) Leaderboard(ctx context.Context, scope Scope, limit int) (dto.LeaderboardResponse, error) {
	if err := validateScope(scope); err != nil {
		return dto.LeaderboardResponse{}, err
	}

	if limit <= 0 || limit > 100 {
		limit = 10
	}

	cacheKey := fmt.Sprintf("leaderboard:%s:%s:%d", scope.Window, scope.EducationLevel, limit)
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.LeaderboardResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Str("key", cacheKey).Msg("leaderboard cache hit")
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read leaderboard cache")
		}
	}

	totals, err := s.totalsFor(ctx, scope)
	if err != nil {
		return dto.LeaderboardResponse{}, err
	}

	sortTotals(totals)

	entries := make([]dto.LeaderboardEntry, 0, limit)
	for i, row := range totals {
		if i >= limit {
			break
		}

		rank := 1
		for _, other := range totals {
			if other.Points > row.Points {
				rank++
			}
		}

		entries = append(entries, dto.LeaderboardEntry{
			Rank:      rank,
			StudentID: row.StudentID,
			Name:      row.Name,
			Points:    row.Points,
		})
	}

	response := dto.LeaderboardResponse{
		Cohort:  scope.EducationLevel,
		Window:  scope.Window,
		Entries: entries,
		Total:   len(totals),
	}

	if s.cache != nil {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store leaderboard cache")
			}
		}
	}

	return response, nil
}

func (s *rankService) totalsFor(ctx context.Context, scope Scope) ([]repository.StudentTotal, error) {
	switch scope.Window {
	case WindowAllTime, "":
		return s.ledger.AllTimeTotals(ctx, scope.EducationLevel)
	case WindowWeekly:
		return s.ledger.WindowTotals(ctx, s.now().UTC().Add(-weeklyWindow), scope.EducationLevel)
	case WindowMonthly:
		return s.ledger.WindowTotals(ctx, s.now().UTC().Add(-monthlyWindow), scope.EducationLevel)
	default:
		return nil, ErrInvalidScope
	}
}

// sortTotals orders rows by points descending; ties order by earliest last
// award, then by id, so listings stay deterministic.
func sortTotals(totals []repository.StudentTotal) {
	sort.SliceStable(totals, func(i, j int) bool {
		if totals[i].Points != totals[j].Points {
			return totals[i].Points > totals[j].Points
		}
		a, b := totals[i].LastAwardAt, totals[j].LastAwardAt
		switch {
		case a != nil && b != nil && !a.Equal(*b):
			return a.Before(*b)
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return totals[i].StudentID < totals[j].StudentID
	})
}

func validateScope(scope Scope) error {
	switch scope.Window {
	case "", WindowAllTime, WindowMonthly, WindowWeekly:
	default:
		return ErrInvalidScope
	}

	switch scope.EducationLevel {
	case "", models.EducationLevelPrimary, models.EducationLevelSecondary, models.EducationLevelTertiary:
	default:
		return ErrInvalidScope
	}

	return nil
}
