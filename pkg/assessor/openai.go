package assessor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	assessDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "ecolearn",
		Subsystem: "assessor",
		Name:      "assessment_duration_seconds",
		Help:      "Duration of confidence assessment requests",
	}, []string{"model"})

	assessFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ecolearn",
		Subsystem: "assessor",
		Name:      "assessment_failures_total",
		Help:      "Number of confidence assessment failures",
	}, []string{"model"})
)

// OpenAIConfig defines configuration options for the OpenAI assessor.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	MaxPoints   int
	Logger      zerolog.Logger
}

// OpenAIAssessor implements Assessor against the OpenAI chat completion API.
type OpenAIAssessor struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIAssessor builds a new assessor using the provided configuration.
func NewOpenAIAssessor(cfg OpenAIConfig) (*OpenAIAssessor, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 512
	}

	if cfg.MaxPoints <= 0 {
		cfg.MaxPoints = 100
	}

	tracer := otel.Tracer("github.com/noah-isme/ecolearn-go-api/pkg/assessor/openai")
	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	client := openai.NewClientWithConfig(config)

	return &OpenAIAssessor{
		client: client,
		cfg:    cfg,
		tracer: tracer,
		logger: logger,
	}, nil
}

// Assess sends the submission to OpenAI and parses the structured verdict.
func (a *OpenAIAssessor) Assess(parent context.Context, input Input) (Assessment, error) {
	ctx, span := a.tracer.Start(parent, "openai.assess", trace.WithAttributes(
		attribute.String("model", a.cfg.Model),
	))
	defer span.End()

	start := time.Now()
	request := openai.ChatCompletionRequest{
		Model:       a.cfg.Model,
		MaxTokens:   a.cfg.MaxTokens,
		Temperature: a.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: assessorSystemPrompt(a.cfg.MaxPoints),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildUserPrompt(input),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	resp, err := a.client.CreateChatCompletion(ctx, request)
	duration := time.Since(start)
	assessDuration.WithLabelValues(a.cfg.Model).Observe(duration.Seconds())
	if err != nil {
		assessFailures.WithLabelValues(a.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Assessment{}, fmt.Errorf("openai assess: %w", err)
	}

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("no choices returned from openai")
		assessFailures.WithLabelValues(a.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Assessment{}, err
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	assessment, err := parseAssessmentResponse(content, a.cfg.MaxPoints)
	if err != nil {
		assessFailures.WithLabelValues(a.cfg.Model).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Assessment{}, err
	}

	assessment.Raw = map[string]interface{}{
		"usage": resp.Usage,
	}

	return assessment, nil
}

func assessorSystemPrompt(maxPoints int) string {
	return fmt.Sprintf("You are an environmental action verifier for a student program. Given a described action and its evide"+
		"nce references, respond with a JSON object containing confidence (0-1), verified (boolean), reasoning, suggested_poin"+
		"ts (0-%d), and an issues array listing anything doubtful. Be skeptical of unverifiable or exaggerated claims.", maxPoints)
}

func buildUserPrompt(input Input) string {
	builder := strings.Builder{}
	builder.WriteString("# Reported Action\n")
	builder.WriteString(input.Description)
	builder.WriteString("\n\n## Declared Kind\n")
	builder.WriteString(input.DeclaredKind)
	if input.StudentLevel != "" {
		builder.WriteString("\n\n## Student Level\n")
		builder.WriteString(input.StudentLevel)
	}
	if len(input.Evidence) > 0 {
		builder.WriteString("\n\n## Evidence References\n")
		for _, ref := range input.Evidence {
			builder.WriteString("- ")
			builder.WriteString(ref)
			builder.WriteString("\n")
		}
	}
	builder.WriteString("\nReturn JSON.")
	return builder.String()
}

func parseAssessmentResponse(content string, maxPoints int) (Assessment, error) {
	type payload struct {
		Confidence      float64  `json:"confidence"`
		Verified        bool     `json:"verified"`
		Reasoning       string   `json:"reasoning"`
		SuggestedPoints int      `json:"suggested_points"`
		Issues          []string `json:"issues"`
	}

	var data payload
	if err := json.Unmarshal([]byte(content), &data); err != nil {
		return Assessment{}, fmt.Errorf("parse assessment json: %w", err)
	}

	if data.Confidence < 0 {
		data.Confidence = 0
	}
	if data.Confidence > 1 {
		data.Confidence = 1
	}
	if data.SuggestedPoints < 0 {
		data.SuggestedPoints = 0
	}
	if data.SuggestedPoints > maxPoints {
		data.SuggestedPoints = maxPoints
	}

	return Assessment{
		Confidence:      data.Confidence,
		Verified:        data.Verified,
		Reasoning:       data.Reasoning,
		SuggestedPoints: data.SuggestedPoints,
		Issues:          data.Issues,
	}, nil
}
