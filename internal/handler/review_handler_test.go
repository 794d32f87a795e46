package handler_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ecolearn-go-api/internal/dto"
	"github.com/noah-isme/ecolearn-go-api/internal/handler"
	"github.com/noah-isme/ecolearn-go-api/internal/service"
)

type mockReviewService struct {
	lastStudentID  uint
	lastFilter     dto.SubmissionFilter
	lastReviewerID uint
	lastResolveID  uint
	lastResolve    dto.ResolveRequest
	submission     dto.SubmissionResponse
	queue          []dto.SubmissionResponse
	err            error
}

func (m *mockReviewService) Submit(_ context.Context, studentID uint, _ dto.SubmissionCreateRequest) (dto.SubmissionResponse, error) {
	m.lastStudentID = studentID
	if m.err != nil {
		return dto.SubmissionResponse{}, m.err
	}
	return m.submission, nil
}

func (m *mockReviewService) Get(_ context.Context, id uint) (dto.SubmissionResponse, error) {
	if m.err != nil {
		return dto.SubmissionResponse{}, m.err
	}
	return m.submission, nil
}

func (m *mockReviewService) List(_ context.Context, filter dto.SubmissionFilter) ([]dto.SubmissionResponse, error) {
	m.lastFilter = filter
	if m.err != nil {
		return nil, m.err
	}
	return m.queue, nil
}

func (m *mockReviewService) PendingQueue(_ context.Context, _, _ int) ([]dto.SubmissionResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.queue, nil
}

func (m *mockReviewService) Resolve(_ context.Context, id, reviewerID uint, payload dto.ResolveRequest) (dto.SubmissionResponse, error) {
	m.lastResolveID = id
	m.lastReviewerID = reviewerID
	m.lastResolve = payload
	if m.err != nil {
		return dto.SubmissionResponse{}, m.err
	}
	return m.submission, nil
}

func newReviewApp(svc service.ReviewService, reviewerID uint) *fiber.App {
	app := fiber.New()
	group := app.Group("/api/v2/review", func(c *fiber.Ctx) error {
		if reviewerID != 0 {
			c.Locals("user_id", reviewerID)
			c.Locals("user_role", "reviewer")
		}
		return c.Next()
	})
	handler.NewReviewHandler(svc, zerolog.New(io.Discard)).Register(group)
	return app
}

func TestReviewHandler_ResolveApprove(t *testing.T) {
	points := 40
	svc := &mockReviewService{submission: dto.SubmissionResponse{ID: 9, Status: "approved", FinalPoints: &points}}
	app := newReviewApp(svc, 3)

	resp := postJSON(t, app, "/api/v2/review/9/resolve", dto.ResolveRequest{Decision: "approve", Points: &points})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var response struct {
		Success bool                   `json:"success"`
		Data    dto.SubmissionResponse `json:"data"`
	}
	decodeResponse(t, resp, &response)

	require.True(t, response.Success)
	require.Equal(t, "approved", response.Data.Status)
	require.Equal(t, uint(9), svc.lastResolveID)
	require.Equal(t, uint(3), svc.lastReviewerID)
	require.Equal(t, "approve", svc.lastResolve.Decision)
}

func TestReviewHandler_ResolveErrors(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		statusCode int
	}{
		{name: "not found", err: service.ErrSubmissionNotFound, statusCode: fiber.StatusNotFound},
		{name: "already resolved", err: service.ErrAlreadyResolved, statusCode: fiber.StatusConflict},
		{name: "points required", err: service.ErrPointsRequired, statusCode: fiber.StatusBadRequest},
		{name: "storage timeout", err: service.ErrStorageTimeout, statusCode: fiber.StatusServiceUnavailable},
		{name: "generic", err: errors.New("boom"), statusCode: fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newReviewApp(&mockReviewService{err: tc.err}, 3)

			resp := postJSON(t, app, "/api/v2/review/9/resolve", dto.ResolveRequest{Decision: "reject"})
			require.Equal(t, tc.statusCode, resp.StatusCode)
		})
	}
}

func TestReviewHandler_ResolveInvalidID(t *testing.T) {
	app := newReviewApp(&mockReviewService{}, 3)

	resp := postJSON(t, app, "/api/v2/review/not-a-number/resolve", dto.ResolveRequest{Decision: "reject"})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestReviewHandler_PendingQueueMeta(t *testing.T) {
	svc := &mockReviewService{queue: []dto.SubmissionResponse{{ID: 1, Status: "pending_review"}, {ID: 2, Status: "ai_flagged"}}}
	app := newReviewApp(svc, 3)

	req := httptest.NewRequest(http.MethodGet, "/api/v2/review/pending?limit=20", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var response struct {
		Success bool                     `json:"success"`
		Data    []dto.SubmissionResponse `json:"data"`
		Meta    map[string]int           `json:"meta"`
	}
	decodeResponse(t, resp, &response)

	require.True(t, response.Success)
	require.Len(t, response.Data, 2)
	require.Equal(t, 2, response.Meta["count"])
	require.Equal(t, 20, response.Meta["limit"])
}
