package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-scheduler-api/internal/dto"
	"github.com/noah-isme/campus-scheduler-api/internal/models"
	"github.com/noah-isme/campus-scheduler-api/internal/repository"
	"github.com/noah-isme/campus-scheduler-api/internal/scheduling"
	appErrors "github.com/noah-isme/campus-scheduler-api/pkg/errors"
)

// Enrollment metric labels.
const (
	enrollOperation     = "enroll"
	dropOperation       = "drop"
	autoEnrollOperation = "auto_enroll"
)

type enrollmentStore interface {
	FindByID(ctx context.Context, id string) (*models.Enrollment, error)
	ExistsActive(ctx context.Context, studentID, sectionID string) (bool, error)
	CreateWithSeat(ctx context.Context, enrollment *models.Enrollment) error
	DropWithSeat(ctx context.Context, id string) (*models.Enrollment, error)
	ListActiveSchedules(ctx context.Context, studentID, semester string, year int) ([]models.EnrolledSectionSchedule, error)
	ListPassedCourseIDs(ctx context.Context, studentID string) ([]string, error)
}

type enrollmentSectionReader interface {
	FindDetailByID(ctx context.Context, id string) (*models.SectionDetail, error)
	ListActiveByDepartment(ctx context.Context, departmentID, semester string, year int) ([]models.SectionDetail, error)
}

type prerequisiteChecker interface {
	Missing(ctx context.Context, courseID string, passed map[string]struct{}) ([]models.CoursePrerequisite, error)
}

type studentConflictChecker interface {
	CheckStudentConflict(ctx context.Context, studentID, excludeSectionID string, candidate scheduling.Window, semester string, year int) (*dto.StudentConflictResult, error)
}

// EnrollmentConfig carries enrollment policy.
type EnrollmentConfig struct {
	// EnforcePrerequisites rejects enrollments with unmet prerequisites; otherwise they
	// are logged and allowed.
	EnforcePrerequisites bool
	DropWindow           time.Duration
	CurrentSemester      string
	CurrentYear          int
	Now                  func() time.Time
}

// EnrollmentService enrolls students into sections while keeping seat counts exact.
type EnrollmentService struct {
	enrollments enrollmentStore
	sections    enrollmentSectionReader
	prereqs     prerequisiteChecker
	conflicts   studentConflictChecker
	cache       *CacheService
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	cfg         EnrollmentConfig
}

// NewEnrollmentService wires enrollment dependencies.
func NewEnrollmentService(
	enrollments enrollmentStore,
	sections enrollmentSectionReader,
	prereqs prerequisiteChecker,
	conflicts studentConflictChecker,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg EnrollmentConfig,
) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DropWindow <= 0 {
		cfg.DropWindow = 28 * 24 * time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.CurrentSemester = normalizeSemester(cfg.CurrentSemester)
	return &EnrollmentService{
		enrollments: enrollments,
		sections:    sections,
		prereqs:     prereqs,
		conflicts:   conflicts,
		cache:       cache,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		cfg:         cfg,
	}
}

// Enroll registers a student in a section. Checks run in order: section exists, not
// already enrolled, seats left, prerequisites, schedule conflicts. The seat is then
// taken atomically, so a section that filled up meanwhile still fails with SECTION_FULL.
func (s *EnrollmentService) Enroll(ctx context.Context, req dto.EnrollRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid enrollment payload")
	}

	section, err := s.loadSection(ctx, req.SectionID)
	if err != nil {
		s.metrics.RecordEnrollment(enrollOperation, outcomeOf(err))
		return nil, err
	}
	if err := s.checkEligibility(ctx, req.StudentID, section); err != nil {
		s.metrics.RecordEnrollment(enrollOperation, outcomeOf(err))
		return nil, err
	}

	enrollment := &models.Enrollment{
		StudentID:      req.StudentID,
		SectionID:      section.ID,
		Status:         models.EnrollmentStatusEnrolled,
		EnrollmentDate: s.cfg.Now().UTC(),
	}
	if err := s.createWithSeat(ctx, enrollment); err != nil {
		s.metrics.RecordEnrollment(enrollOperation, outcomeOf(err))
		return nil, err
	}

	s.metrics.RecordEnrollment(enrollOperation, "enrolled")
	s.invalidateTimetable(ctx, section.Semester, section.Year)
	s.logger.Info("student enrolled",
		zap.String("student_id", req.StudentID),
		zap.String("section_id", section.ID),
		zap.String("course_code", section.CourseCode),
	)
	return enrollment, nil
}

// Drop withdraws the owning student from an enrollment and releases the seat.
func (s *EnrollmentService) Drop(ctx context.Context, req dto.DropRequest) (*models.Enrollment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid drop payload")
	}

	enrollment, err := s.enrollments.FindByID(ctx, req.EnrollmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.RecordEnrollment(dropOperation, "not_found")
			return nil, appErrors.ErrEnrollmentNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.StudentID != req.StudentID {
		s.metrics.RecordEnrollment(dropOperation, "not_owner")
		return nil, appErrors.ErrNotEnrollmentOwner
	}
	if enrollment.Status != models.EnrollmentStatusEnrolled {
		s.metrics.RecordEnrollment(dropOperation, "invalid_status")
		return nil, appErrors.Clone(appErrors.ErrInvalidStatus, fmt.Sprintf("cannot drop an enrollment with status %s", enrollment.Status))
	}
	if s.cfg.Now().Sub(enrollment.EnrollmentDate) > s.cfg.DropWindow {
		s.metrics.RecordEnrollment(dropOperation, "drop_period_ended")
		return nil, appErrors.ErrDropPeriodEnded
	}

	dropped, err := s.enrollments.DropWithSeat(ctx, enrollment.ID)
	if err != nil {
		if errors.Is(err, repository.ErrEnrollmentStateChanged) {
			s.metrics.RecordEnrollment(dropOperation, "invalid_status")
			return nil, appErrors.Clone(appErrors.ErrInvalidStatus, "enrollment is no longer active")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to drop enrollment")
	}

	s.metrics.RecordEnrollment(dropOperation, "dropped")
	s.invalidateSectionTimetable(ctx, dropped.SectionID)
	s.logger.Info("enrollment dropped", zap.String("enrollment_id", dropped.ID), zap.String("section_id", dropped.SectionID))
	return dropped, nil
}

// AutoEnrollByDepartment enrolls the student in every active section of the department's
// courses for the term. Sections that are already enrolled, full, unscheduled or that
// clash with the student's timetable (including sections picked earlier in the same
// batch) are skipped rather than failing the batch. Prerequisites are not checked.
func (s *EnrollmentService) AutoEnrollByDepartment(ctx context.Context, req dto.AutoEnrollRequest) (*dto.AutoEnrollResult, error) {
	if strings.TrimSpace(req.Semester) == "" {
		req.Semester = s.cfg.CurrentSemester
	}
	if req.Year == 0 {
		req.Year = s.cfg.CurrentYear
	}
	req.Semester = normalizeSemester(req.Semester)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid auto-enrollment payload")
	}

	sections, err := s.sections.ListActiveByDepartment(ctx, req.DepartmentID, req.Semester, req.Year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load department sections")
	}
	existing, err := s.enrollments.ListActiveSchedules(ctx, req.StudentID, req.Semester, req.Year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student schedule")
	}

	taken := make([]scheduling.Window, 0, len(existing)+len(sections))
	for _, entry := range existing {
		window, err := models.ParseSchedule(entry.Schedule)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInvalidTimeFormat.Code, appErrors.ErrInvalidTimeFormat.Status, "stored section schedule is malformed")
		}
		if window != nil {
			taken = append(taken, *window)
		}
	}

	result := &dto.AutoEnrollResult{Enrolled: []models.Enrollment{}, Skipped: []dto.SkippedSection{}}
	skip := func(section models.SectionDetail, reason string) {
		result.Skipped = append(result.Skipped, dto.SkippedSection{SectionID: section.ID, CourseCode: section.CourseCode, Reason: reason})
		s.metrics.RecordEnrollment(autoEnrollOperation, reason)
		s.logger.Debug("auto-enroll skipped section", zap.String("section_id", section.ID), zap.String("reason", reason))
	}

	for _, section := range sections {
		enrolled, err := s.enrollments.ExistsActive(ctx, req.StudentID, section.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing enrollment")
		}
		if enrolled {
			skip(section, dto.SkipReasonAlreadyEnrolled)
			continue
		}
		if section.IsFull() {
			skip(section, dto.SkipReasonFull)
			continue
		}
		window, err := section.ParsedSchedule()
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInvalidTimeFormat.Code, appErrors.ErrInvalidTimeFormat.Status, "stored section schedule is malformed")
		}
		if window == nil {
			skip(section, dto.SkipReasonUnscheduled)
			continue
		}
		clash, err := overlapsAny(*window, taken)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInvalidTimeFormat.Code, appErrors.ErrInvalidTimeFormat.Status, appErrors.ErrInvalidTimeFormat.Message)
		}
		if clash {
			skip(section, dto.SkipReasonConflict)
			continue
		}

		enrollment := &models.Enrollment{
			StudentID:      req.StudentID,
			SectionID:      section.ID,
			Status:         models.EnrollmentStatusEnrolled,
			EnrollmentDate: s.cfg.Now().UTC(),
		}
		if err := s.createWithSeat(ctx, enrollment); err != nil {
			switch {
			case errors.Is(err, appErrors.ErrSectionFull):
				skip(section, dto.SkipReasonFull)
				continue
			case errors.Is(err, appErrors.ErrAlreadyEnrolled):
				skip(section, dto.SkipReasonAlreadyEnrolled)
				continue
			}
			s.logger.Error("auto-enroll aborted", zap.String("section_id", section.ID), zap.Int("enrolled", len(result.Enrolled)), zap.Error(err))
			return nil, err
		}
		taken = append(taken, *window)
		result.Enrolled = append(result.Enrolled, *enrollment)
		s.metrics.RecordEnrollment(autoEnrollOperation, "enrolled")
	}

	if len(result.Enrolled) > 0 {
		s.invalidateTimetable(ctx, req.Semester, req.Year)
	}
	s.logger.Info("auto-enrollment finished",
		zap.String("student_id", req.StudentID),
		zap.String("department_id", req.DepartmentID),
		zap.Int("enrolled", len(result.Enrolled)),
		zap.Int("skipped", len(result.Skipped)),
	)
	return result, nil
}

func (s *EnrollmentService) loadSection(ctx context.Context, id string) (*models.SectionDetail, error) {
	section, err := s.sections.FindDetailByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrSectionNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load section")
	}
	if !section.IsActive {
		return nil, appErrors.ErrSectionInactive
	}
	return section, nil
}

func (s *EnrollmentService) checkEligibility(ctx context.Context, studentID string, section *models.SectionDetail) error {
	exists, err := s.enrollments.ExistsActive(ctx, studentID, section.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing enrollment")
	}
	if exists {
		return appErrors.ErrAlreadyEnrolled
	}
	if section.IsFull() {
		return appErrors.ErrSectionFull
	}
	if err := s.checkPrerequisites(ctx, studentID, section); err != nil {
		return err
	}

	window, err := section.ParsedSchedule()
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInvalidTimeFormat.Code, appErrors.ErrInvalidTimeFormat.Status, "stored section schedule is malformed")
	}
	if window == nil || s.conflicts == nil {
		return nil
	}
	conflicts, err := s.conflicts.CheckStudentConflict(ctx, studentID, section.ID, *window, section.Semester, section.Year)
	if err != nil {
		return err
	}
	if conflicts.HasConflict {
		codes := conflicts.CourseCodes()
		return appErrors.WithDetails(appErrors.ErrScheduleConflict,
			fmt.Sprintf("schedule conflicts with %s", strings.Join(codes, ", ")),
			map[string]interface{}{"conflictingSections": conflicts.ConflictingSections},
		)
	}
	return nil
}

func (s *EnrollmentService) checkPrerequisites(ctx context.Context, studentID string, section *models.SectionDetail) error {
	if s.prereqs == nil {
		return nil
	}
	passedIDs, err := s.enrollments.ListPassedCourseIDs(ctx, studentID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load completed courses")
	}
	passed := make(map[string]struct{}, len(passedIDs))
	for _, id := range passedIDs {
		passed[id] = struct{}{}
	}
	missing, err := s.prereqs.Missing(ctx, section.CourseID, passed)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve prerequisites")
	}
	if len(missing) == 0 {
		return nil
	}

	codes := make([]string, 0, len(missing))
	for _, edge := range missing {
		codes = append(codes, edge.PrerequisiteCode)
	}
	if !s.cfg.EnforcePrerequisites {
		s.logger.Warn("enrolling despite missing prerequisites",
			zap.String("student_id", studentID),
			zap.String("course_code", section.CourseCode),
			zap.Strings("missing", codes),
		)
		return nil
	}
	return appErrors.WithDetails(appErrors.ErrPrerequisitesNotMet,
		fmt.Sprintf("missing prerequisites: %s", strings.Join(codes, ", ")),
		map[string]interface{}{"missingPrerequisites": codes},
	)
}

func (s *EnrollmentService) createWithSeat(ctx context.Context, enrollment *models.Enrollment) error {
	err := s.enrollments.CreateWithSeat(ctx, enrollment)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrSeatUnavailable):
		return appErrors.ErrSectionFull
	case errors.Is(err, repository.ErrDuplicateEnrollment):
		return appErrors.ErrAlreadyEnrolled
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create enrollment")
	}
}

// invalidateTimetable drops the cached term timetable, whose entries carry seat counts.
func (s *EnrollmentService) invalidateTimetable(ctx context.Context, semester string, year int) {
	if err := s.cache.Invalidate(ctx, ScheduleCacheKey(semester, year)); err != nil {
		s.logger.Warn("failed to invalidate cached schedule", zap.String("semester", semester), zap.Int("year", year), zap.Error(err))
	}
}

func (s *EnrollmentService) invalidateSectionTimetable(ctx context.Context, sectionID string) {
	if !s.cache.Enabled() {
		return
	}
	section, err := s.sections.FindDetailByID(ctx, sectionID)
	if err != nil {
		s.logger.Warn("failed to resolve term of dropped section", zap.String("section_id", sectionID), zap.Error(err))
		return
	}
	s.invalidateTimetable(ctx, section.Semester, section.Year)
}

func overlapsAny(candidate scheduling.Window, taken []scheduling.Window) (bool, error) {
	for _, window := range taken {
		clash, err := scheduling.Overlaps(candidate, window)
		if err != nil {
			return false, err
		}
		if clash {
			return true, nil
		}
	}
	return false, nil
}

func outcomeOf(err error) string {
	appErr := appErrors.FromError(err)
	if appErr == nil {
		return "ok"
	}
	return strings.ToLower(appErr.Code)
}

func normalizeSemester(semester string) string {
	return strings.ToUpper(strings.TrimSpace(semester))
}
