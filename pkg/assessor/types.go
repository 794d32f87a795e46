package assessor

import "context"

// Input contains the artefacts needed to assess a free-form action submission.
type Input struct {
	Description  string
	Evidence     []string
	DeclaredKind string
	StudentLevel string
}

// Assessment is the structured verdict returned by the confidence assessor.
// It is advisory input: the review policy re-checks every field and never
// trusts verified/confidence on their own.
type Assessment struct {
	Confidence      float64                `json:"confidence"`
	Verified        bool                   `json:"verified"`
	Reasoning       string                 `json:"reasoning"`
	SuggestedPoints int                    `json:"suggested_points"`
	Issues          []string               `json:"issues,omitempty"`
	Raw             map[string]interface{} `json:"raw,omitempty"`
}

// Assessor describes an automated model able to judge action submissions.
type Assessor interface {
	Assess(ctx context.Context, input Input) (Assessment, error)
}
