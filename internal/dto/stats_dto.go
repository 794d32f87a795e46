package dto

import "github.com/noah-isme/ecolearn-go-api/internal/impact"

// AwardResult reports the outcome of an idempotent ledger award.
type AwardResult struct {
	Accepted bool `json:"accepted"`
	NewTotal int  `json:"new_total"`
}

// AdjustmentRequest describes a manual signed correction to a past award.
// The original ledger entry stays untouched; the correction is appended as
// its own entry referencing it.
type AdjustmentRequest struct {
	StudentID   uint   `json:"student_id" validate:"required,gt=0"`
	Kind        string `json:"kind" validate:"required,oneof=module quiz task action bonus"`
	ReferenceID string `json:"reference_id" validate:"required"`
	Delta       int    `json:"delta" validate:"required"`
	Reason      string `json:"reason" validate:"required,min=5,max=500"`
}

// ReconciliationReport compares the cached student total against a full
// re-sum of the ledger.
type ReconciliationReport struct {
	StudentID   uint `json:"student_id"`
	CachedTotal int  `json:"cached_total"`
	LedgerSum   int  `json:"ledger_sum"`
	Consistent  bool `json:"consistent"`
	EntryCount  int  `json:"entry_count"`
}

// ImpactResponse aggregates a student's environmental impact.
type ImpactResponse struct {
	StudentID   uint                     `json:"student_id"`
	TotalPoints int                      `json:"total_points"`
	Total       impact.Impact            `json:"total"`
	ByKind      map[string]impact.Impact `json:"by_kind,omitempty"`
	Comparisons impact.Comparisons       `json:"comparisons"`
}

// RankResponse locates one student on a leaderboard scope. Students with
// equal points share a rank number.
type RankResponse struct {
	StudentID  uint    `json:"student_id"`
	Rank       int     `json:"rank"`
	Percentile float64 `json:"percentile"`
	CohortSize int     `json:"cohort_size"`
	Points     int     `json:"points"`
}

// LeaderboardEntry is one ranked row of a leaderboard listing.
type LeaderboardEntry struct {
	Rank      int    `json:"rank"`
	StudentID uint   `json:"student_id"`
	Name      string `json:"name"`
	Points    int    `json:"points"`
}

// LeaderboardResponse is an ordered leaderboard projection for a scope.
type LeaderboardResponse struct {
	Cohort  string             `json:"cohort,omitempty"`
	Window  string             `json:"window"`
	Entries []LeaderboardEntry `json:"entries"`
	Total   int                `json:"total"`
}
