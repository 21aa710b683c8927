package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-scheduler-api/internal/dto"
	"github.com/noah-isme/campus-scheduler-api/internal/models"
	"github.com/noah-isme/campus-scheduler-api/internal/scheduling"
	appErrors "github.com/noah-isme/campus-scheduler-api/pkg/errors"
)

type enrolledScheduleReader interface {
	ListActiveSchedules(ctx context.Context, studentID, semester string, year int) ([]models.EnrolledSectionSchedule, error)
}

type sectionDetailReader interface {
	FindDetailByID(ctx context.Context, id string) (*models.SectionDetail, error)
}

// ScheduleConflictService checks a candidate meeting pattern against a student's
// enrolled sections in the same term.
type ScheduleConflictService struct {
	enrollments enrolledScheduleReader
	sections    sectionDetailReader
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewScheduleConflictService constructs the service.
func NewScheduleConflictService(enrollments enrolledScheduleReader, sections sectionDetailReader, validate *validator.Validate, logger *zap.Logger) *ScheduleConflictService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleConflictService{enrollments: enrollments, sections: sections, validator: validate, logger: logger}
}

// CheckStudentConflict returns every enrolled section of the term whose schedule overlaps
// candidate, oldest enrollment first. excludeSectionID, when set, is never reported.
func (s *ScheduleConflictService) CheckStudentConflict(ctx context.Context, studentID, excludeSectionID string, candidate scheduling.Window, semester string, year int) (*dto.StudentConflictResult, error) {
	enrolled, err := s.enrollments.ListActiveSchedules(ctx, studentID, semester, year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student schedule")
	}

	result := &dto.StudentConflictResult{ConflictingSections: []dto.ConflictingSection{}}
	for _, entry := range enrolled {
		if excludeSectionID != "" && entry.SectionID == excludeSectionID {
			continue
		}
		window, err := models.ParseSchedule(entry.Schedule)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInvalidTimeFormat.Code, appErrors.ErrInvalidTimeFormat.Status, "stored section schedule is malformed")
		}
		if window == nil {
			continue
		}
		clash, err := scheduling.Overlaps(candidate, *window)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInvalidTimeFormat.Code, appErrors.ErrInvalidTimeFormat.Status, appErrors.ErrInvalidTimeFormat.Message)
		}
		if clash {
			result.ConflictingSections = append(result.ConflictingSections, dto.ConflictingSection{
				SectionID:  entry.SectionID,
				CourseCode: entry.CourseCode,
				Schedule:   *window,
			})
		}
	}
	result.HasConflict = len(result.ConflictingSections) > 0
	return result, nil
}

// CheckSection reports whether enrolling the student in a section would clash with
// the student's timetable. Unscheduled sections never clash.
func (s *ScheduleConflictService) CheckSection(ctx context.Context, req dto.ConflictCheckRequest) (*dto.StudentConflictResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid conflict check payload")
	}
	section, err := s.sections.FindDetailByID(ctx, req.SectionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrSectionNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	window, err := section.ParsedSchedule()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvalidTimeFormat.Code, appErrors.ErrInvalidTimeFormat.Status, "stored section schedule is malformed")
	}
	if window == nil {
		return &dto.StudentConflictResult{ConflictingSections: []dto.ConflictingSection{}}, nil
	}
	return s.CheckStudentConflict(ctx, req.StudentID, section.ID, *window, section.Semester, section.Year)
}
