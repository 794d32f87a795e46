package handler_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ecolearn-go-api/internal/dto"
	"github.com/noah-isme/ecolearn-go-api/internal/handler"
	"github.com/noah-isme/ecolearn-go-api/internal/models"
	"github.com/noah-isme/ecolearn-go-api/internal/service"
)

type mockLedgerService struct {
	lastAdjustment struct {
		studentID   uint
		kind        models.ActivityKind
		referenceID string
		delta       int
	}
	result dto.AwardResult
	report dto.ReconciliationReport
	err    error
}

func (m *mockLedgerService) AwardActivity(_ context.Context, studentID uint, kind models.ActivityKind, activityID string, points int, _ map[string]interface{}) (dto.AwardResult, error) {
	if m.err != nil {
		return dto.AwardResult{}, m.err
	}
	return m.result, nil
}

func (m *mockLedgerService) AwardPathBonus(_ context.Context, _ uint, _ models.LearningPath) (dto.AwardResult, error) {
	if m.err != nil {
		return dto.AwardResult{}, m.err
	}
	return m.result, nil
}

func (m *mockLedgerService) AwardAdjustment(_ context.Context, studentID uint, kind models.ActivityKind, referenceID string, delta int, _ string) (dto.AwardResult, error) {
	m.lastAdjustment.studentID = studentID
	m.lastAdjustment.kind = kind
	m.lastAdjustment.referenceID = referenceID
	m.lastAdjustment.delta = delta
	if m.err != nil {
		return dto.AwardResult{}, m.err
	}
	return m.result, nil
}

func (m *mockLedgerService) Reconcile(_ context.Context, studentID uint) (dto.ReconciliationReport, error) {
	if m.err != nil {
		return dto.ReconciliationReport{}, m.err
	}
	return m.report, nil
}

func newAdminApp(svc service.LedgerService) *fiber.App {
	app := fiber.New()
	group := app.Group("/api/v2/admin", func(c *fiber.Ctx) error {
		c.Locals("user_id", uint(1))
		c.Locals("user_role", "admin")
		return c.Next()
	})
	validate := validator.New(validator.WithRequiredStructEnabled())
	handler.NewAdminHandler(svc, validate, zerolog.New(io.Discard)).Register(group)
	return app
}

func TestAdminHandler_Adjustment(t *testing.T) {
	svc := &mockLedgerService{result: dto.AwardResult{Accepted: true, NewTotal: 25}}
	app := newAdminApp(svc)

	payload := dto.AdjustmentRequest{StudentID: 7, Kind: "quiz", ReferenceID: "quiz:3", Delta: -15, Reason: "scoring error on question 4"}
	resp := postJSON(t, app, "/api/v2/admin/adjustments", payload)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.Equal(t, uint(7), svc.lastAdjustment.studentID)
	require.Equal(t, models.ActivityKindQuiz, svc.lastAdjustment.kind)
	require.Equal(t, -15, svc.lastAdjustment.delta)
}

func TestAdminHandler_AdjustmentValidation(t *testing.T) {
	svc := &mockLedgerService{}
	app := newAdminApp(svc)

	// Missing reason and unknown kind must be rejected before the ledger.
	payload := dto.AdjustmentRequest{StudentID: 7, Kind: "bogus", ReferenceID: "quiz:3", Delta: -15}
	resp := postJSON(t, app, "/api/v2/admin/adjustments", payload)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	require.Zero(t, svc.lastAdjustment.studentID)
}

func TestAdminHandler_Reconcile(t *testing.T) {
	svc := &mockLedgerService{report: dto.ReconciliationReport{StudentID: 7, CachedTotal: 120, LedgerSum: 50, Consistent: false, EntryCount: 2}}
	app := newAdminApp(svc)

	req := httptest.NewRequest(http.MethodPost, "/api/v2/admin/reconcile/7", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var response struct {
		Success bool                     `json:"success"`
		Data    dto.ReconciliationReport `json:"data"`
	}
	decodeResponse(t, resp, &response)
	require.False(t, response.Data.Consistent)
	require.Equal(t, 50, response.Data.LedgerSum)
}

func TestAdminHandler_ReconcileUnknownStudent(t *testing.T) {
	app := newAdminApp(&mockLedgerService{err: service.ErrStudentNotFound})

	req := httptest.NewRequest(http.MethodPost, "/api/v2/admin/reconcile/42", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}
