package dto

import "github.com/noah-isme/ecolearn-go-api/internal/impact"

// ModuleCompletionRequest records one finished module of a learning path.
// Module indices are zero-based.
type ModuleCompletionRequest struct {
	PathID      uint `json:"path_id" validate:"required,gt=0"`
	ModuleIndex int  `json:"module_index" validate:"gte=0"`
}

// QuizCompletionRequest records a finished quiz attempt. The award is derived
// from the quiz definition server side, never from a client-supplied score.
type QuizCompletionRequest struct {
	QuizID         uint `json:"quiz_id" validate:"required,gt=0"`
	CorrectAnswers int  `json:"correct_answers" validate:"gte=0"`
}

// TaskCompletionRequest records a finished structured eco task.
type TaskCompletionRequest struct {
	TaskID uint `json:"task_id" validate:"required,gt=0"`
}

// CompletionResponse is the immediate outcome of recording an activity.
// Accepted is false when the same activity was already recorded; the total is
// unchanged in that case. Impact is omitted when the derived-metrics
// computation degraded; the award itself still stands.
type CompletionResponse struct {
	Accepted      bool           `json:"accepted"`
	PointsAwarded int            `json:"points_awarded"`
	NewTotal      int            `json:"new_total"`
	Impact        *impact.Impact `json:"impact,omitempty"`
}

// ModuleCompletionResponse extends the completion outcome with path progress.
// Progress fields are omitted when the progress lookup degraded.
type ModuleCompletionResponse struct {
	CompletionResponse
	CompletedModules   []int    `json:"completed_modules,omitempty"`
	ProgressPercentage *float64 `json:"progress_percentage,omitempty"`
	IsPathComplete     *bool    `json:"is_path_complete,omitempty"`
	BonusAwarded       bool     `json:"bonus_awarded"`
	BonusPoints        int      `json:"bonus_points,omitempty"`
}
