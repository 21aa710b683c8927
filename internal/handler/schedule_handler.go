package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-scheduler-api/internal/dto"
	"github.com/noah-isme/campus-scheduler-api/internal/service"
	appErrors "github.com/noah-isme/campus-scheduler-api/pkg/errors"
	"github.com/noah-isme/campus-scheduler-api/pkg/response"
)

type scheduleService interface {
	Generate(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.GenerateScheduleResponse, error)
	GetSchedule(ctx context.Context, query dto.ScheduleQuery) (*dto.TermSchedule, error)
	Export(ctx context.Context, query dto.ScheduleQuery) (*service.ExportedSchedule, error)
}

// ScheduleHandler exposes timetable generation and retrieval endpoints.
type ScheduleHandler struct {
	service scheduleService
}

// NewScheduleHandler constructs the handler.
func NewScheduleHandler(svc *service.SchedulerService) *ScheduleHandler {
	return &ScheduleHandler{service: svc}
}

// Generate godoc
// @Summary Generate the term timetable
// @Description Places every active section of the term into a classroom and weekly slot, replacing the term's stored timetable.
// @Tags Scheduling
// @Accept json
// @Produce json
// @Param payload body dto.GenerateScheduleRequest true "Term to schedule"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /schedules/generate [post]
func (h *ScheduleHandler) Generate(c *gin.Context) {
	var req dto.GenerateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	result, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// List godoc
// @Summary Get the stored timetable of a term
// @Tags Scheduling
// @Produce json
// @Param semester query string true "Semester"
// @Param year query int true "Year"
// @Success 200 {object} response.Envelope
// @Router /schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	query, err := scheduleQueryFrom(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.service.GetSchedule(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, map[string]interface{}{"total": len(result.Entries)})
}

// Export godoc
// @Summary Download the stored timetable of a term
// @Tags Scheduling
// @Produce text/csv
// @Produce application/pdf
// @Param semester query string true "Semester"
// @Param year query int true "Year"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /schedules/export [get]
func (h *ScheduleHandler) Export(c *gin.Context) {
	query, err := scheduleQueryFrom(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	exported, err := h.service.Export(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, exported.Filename, exported.ContentType, exported.Payload)
}

func scheduleQueryFrom(c *gin.Context) (dto.ScheduleQuery, error) {
	query := dto.ScheduleQuery{
		Semester: c.Query("semester"),
		Format:   c.Query("format"),
	}
	if raw := c.Query("year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			return query, appErrors.Clone(appErrors.ErrValidation, "year must be a number")
		}
		query.Year = year
	}
	return query, nil
}
