package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/ecolearn-go-api/internal/dto"
	"github.com/noah-isme/ecolearn-go-api/internal/impact"
	"github.com/noah-isme/ecolearn-go-api/internal/repository"
)

// ImpactService folds a student's ledger through the impact converter. The
// snapshot is derived on demand, never stored, so it cannot drift from the
// ledger.
type ImpactService interface {
	ImpactFor(ctx context.Context, studentID uint, groupByKind bool) (dto.ImpactResponse, error)
}

type impactService struct {
	ledger    repository.LedgerRepository
	students  repository.StudentRepository
	converter impact.Converter
	logger    zerolog.Logger
}

// NewImpactService builds the impact aggregator.
func NewImpactService(ledger repository.LedgerRepository, students repository.StudentRepository, converter impact.Converter, logger zerolog.Logger) ImpactService {
	return &impactService{
		ledger:    ledger,
		students:  students,
		converter: converter,
		logger:    logger.With().Str("component", "impact_service").Logger(),
	}
}

func (s *impactService) ImpactFor(ctx context.Context, studentID uint, groupByKind bool) (dto.ImpactResponse, error) {
	student, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ImpactResponse{}, ErrStudentNotFound
		}
		return dto.ImpactResponse{}, err
	}

	entries, err := s.ledger.ListByStudent(ctx, studentID)
	if err != nil {
		return dto.ImpactResponse{}, err
	}

	total := impact.Impact{}
	var byKind map[string]impact.Impact
	if groupByKind {
		byKind = make(map[string]impact.Impact)
	}

	for _, entry := range entries {
		delta := s.converter.ImpactOf(entry.ActivityKind, entry.PointsAwarded)
		total = total.Add(delta)
		if byKind != nil {
			kind := string(entry.ActivityKind)
			byKind[kind] = byKind[kind].Add(delta)
		}
	}

	return dto.ImpactResponse{
		StudentID:   studentID,
		TotalPoints: student.TotalPoints,
		Total:       total,
		ByKind:      byKind,
		Comparisons: impact.Compare(total),
	}, nil
}
