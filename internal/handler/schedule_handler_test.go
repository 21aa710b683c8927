package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-scheduler-api/internal/dto"
	internalmiddleware "github.com/noah-isme/campus-scheduler-api/internal/middleware"
	"github.com/noah-isme/campus-scheduler-api/internal/models"
	"github.com/noah-isme/campus-scheduler-api/internal/service"
	appErrors "github.com/noah-isme/campus-scheduler-api/pkg/errors"
)

type scheduleServiceMock struct {
	generated dto.GenerateScheduleRequest
	queried   dto.ScheduleQuery
	err       error
}

func (m *scheduleServiceMock) Generate(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.GenerateScheduleResponse, error) {
	m.generated = req
	if m.err != nil {
		return nil, m.err
	}
	return &dto.GenerateScheduleResponse{
		Schedule: []dto.ScheduleEntry{{SectionID: "sec-1", Day: "Monday", StartTime: "09:00", EndTime: "11:00"}},
		Metadata: dto.ScheduleMetadata{TotalSections: 1, ScheduledSections: 1, HardConstraintsSatisfied: true},
	}, nil
}

func (m *scheduleServiceMock) GetSchedule(ctx context.Context, query dto.ScheduleQuery) (*dto.TermSchedule, error) {
	m.queried = query
	return &dto.TermSchedule{Semester: query.Semester, Year: query.Year, Entries: []dto.ScheduleEntry{{SectionID: "sec-1"}}}, nil
}

func (m *scheduleServiceMock) Export(ctx context.Context, query dto.ScheduleQuery) (*service.ExportedSchedule, error) {
	m.queried = query
	return &service.ExportedSchedule{Filename: "schedule_FALL_2025.csv", ContentType: "text/csv", Payload: []byte("Day\nMonday\n")}, nil
}

func newTestContext(method, target string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	req, _ := http.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	return c, w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	var envelope map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope
}

func TestScheduleHandlerGenerate(t *testing.T) {
	mockSvc := &scheduleServiceMock{}
	handler := &ScheduleHandler{service: mockSvc}
	c, w := newTestContext(http.MethodPost, "/schedules/generate", []byte(`{"semester":"FALL","year":2025}`))

	handler.Generate(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dto.GenerateScheduleRequest{Semester: "FALL", Year: 2025}, mockSvc.generated)
	var data dto.GenerateScheduleResponse
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w)["data"], &data))
	assert.True(t, data.Metadata.HardConstraintsSatisfied)
	require.Len(t, data.Schedule, 1)
	assert.Equal(t, "sec-1", data.Schedule[0].SectionID)
}

func TestScheduleHandlerGenerateErrors(t *testing.T) {
	handler := &ScheduleHandler{service: &scheduleServiceMock{}}
	c, w := newTestContext(http.MethodPost, "/schedules/generate", []byte(`{"semester":`))
	handler.Generate(c)
	require.Equal(t, http.StatusBadRequest, w.Code)

	failing := &ScheduleHandler{service: &scheduleServiceMock{err: appErrors.WithDetails(appErrors.ErrUnsatisfiable, "", map[string]interface{}{"unplaceableSections": []string{"sec-3"}})}}
	c, w = newTestContext(http.MethodPost, "/schedules/generate", []byte(`{"semester":"FALL","year":2025}`))
	failing.Generate(c)
	require.Equal(t, http.StatusConflict, w.Code)
	var apiErr appErrors.Error
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, w)["error"], &apiErr))
	assert.Equal(t, "UNSATISFIABLE_CONSTRAINTS", apiErr.Code)

	budget := &ScheduleHandler{service: &scheduleServiceMock{err: appErrors.ErrSearchBudgetExceeded}}
	c, w = newTestContext(http.MethodPost, "/schedules/generate", []byte(`{"semester":"FALL","year":2025}`))
	budget.Generate(c)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestScheduleHandlerGenerateRequiresAdmin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := &ScheduleHandler{service: &scheduleServiceMock{}}
	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{UserID: "stu-1", Role: models.RoleStudent})
		c.Next()
	})
	router.POST("/schedules/generate", internalmiddleware.RequireRoles(models.RoleAdmin), handler.Generate)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/schedules/generate", bytes.NewReader([]byte(`{"semester":"FALL","year":2025}`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)
}

func TestScheduleHandlerListAndExport(t *testing.T) {
	mockSvc := &scheduleServiceMock{}
	handler := &ScheduleHandler{service: mockSvc}

	c, w := newTestContext(http.MethodGet, "/schedules?semester=FALL&year=2025", nil)
	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, dto.ScheduleQuery{Semester: "FALL", Year: 2025}, mockSvc.queried)
	assert.JSONEq(t, `{"total":1}`, string(decodeEnvelope(t, w)["meta"]))

	c, w = newTestContext(http.MethodGet, "/schedules?semester=FALL&year=twenty", nil)
	handler.List(c)
	require.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newTestContext(http.MethodGet, "/schedules/export?semester=FALL&year=2025&format=csv", nil)
	handler.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "csv", mockSvc.queried.Format)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="schedule_FALL_2025.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "Day\nMonday\n", w.Body.String())
}
