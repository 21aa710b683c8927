package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/campus-scheduler-api/internal/dto"
	"github.com/noah-isme/campus-scheduler-api/internal/models"
	"github.com/noah-isme/campus-scheduler-api/internal/service"
	appErrors "github.com/noah-isme/campus-scheduler-api/pkg/errors"
	"github.com/noah-isme/campus-scheduler-api/pkg/response"
)

type enrollmentService interface {
	Enroll(ctx context.Context, req dto.EnrollRequest) (*models.Enrollment, error)
	Drop(ctx context.Context, req dto.DropRequest) (*models.Enrollment, error)
	AutoEnrollByDepartment(ctx context.Context, req dto.AutoEnrollRequest) (*dto.AutoEnrollResult, error)
}

type conflictChecker interface {
	CheckSection(ctx context.Context, req dto.ConflictCheckRequest) (*dto.StudentConflictResult, error)
}

// EnrollmentHandler exposes student enrollment endpoints.
type EnrollmentHandler struct {
	enrollments enrollmentService
	conflicts   conflictChecker
}

// NewEnrollmentHandler constructs the handler.
func NewEnrollmentHandler(enrollments *service.EnrollmentService, conflicts *service.ScheduleConflictService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollments: enrollments, conflicts: conflicts}
}

// Enroll godoc
// @Summary Enroll a student in a section
// @Description Students enroll themselves; admins may pass student_id to enroll anyone.
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body dto.EnrollRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Enroll(c *gin.Context) {
	var req dto.EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid enrollment payload"))
		return
	}
	studentID, err := resolveStudentID(c, req.StudentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	req.StudentID = studentID

	enrollment, err := h.enrollments.Enroll(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// Drop godoc
// @Summary Drop an enrollment
// @Description Only the enrolled student may drop, within the drop window.
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /enrollments/{id}/drop [post]
func (h *EnrollmentHandler) Drop(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	enrollment, err := h.enrollments.Drop(c.Request.Context(), dto.DropRequest{
		EnrollmentID: c.Param("id"),
		StudentID:    claims.UserID,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, enrollment)
}

// AutoEnroll godoc
// @Summary Enroll a student in every eligible section of a department
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body dto.AutoEnrollRequest true "Auto-enrollment payload"
// @Success 200 {object} response.Envelope
// @Router /enrollments/auto [post]
func (h *EnrollmentHandler) AutoEnroll(c *gin.Context) {
	var req dto.AutoEnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid auto-enrollment payload"))
		return
	}
	studentID, err := resolveStudentID(c, req.StudentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	req.StudentID = studentID

	result, err := h.enrollments.AutoEnrollByDepartment(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, map[string]interface{}{
		"enrolled": len(result.Enrolled),
		"skipped":  len(result.Skipped),
	})
}

// CheckConflicts godoc
// @Summary Check a section against a student's timetable
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body dto.ConflictCheckRequest true "Conflict check payload"
// @Success 200 {object} response.Envelope
// @Router /enrollments/conflicts [post]
func (h *EnrollmentHandler) CheckConflicts(c *gin.Context) {
	var req dto.ConflictCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid conflict check payload"))
		return
	}
	studentID, err := resolveStudentID(c, req.StudentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	req.StudentID = studentID

	result, err := h.conflicts.CheckSection(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}
