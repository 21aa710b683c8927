package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-scheduler-api/internal/dto"
	"github.com/noah-isme/campus-scheduler-api/internal/models"
	"github.com/noah-isme/campus-scheduler-api/internal/scheduling"
	appErrors "github.com/noah-isme/campus-scheduler-api/pkg/errors"
)

type schedulerSectionRepository interface {
	ListActiveByTerm(ctx context.Context, semester string, year int) ([]models.SectionDetail, error)
	AssignPlacement(ctx context.Context, exec sqlx.ExtContext, sectionID, classroomID string, schedule types.JSONText) error
}

type schedulerClassroomRepository interface {
	ListActive(ctx context.Context) ([]models.Classroom, error)
}

type scheduleAssignmentRepository interface {
	ReplaceForTerm(ctx context.Context, exec sqlx.ExtContext, semester string, year int, assignments []models.ScheduleAssignment) error
	ListByTerm(ctx context.Context, semester string, year int) ([]models.ScheduleAssignmentDetail, error)
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// SchedulerConfig bounds solver runs and caching of persisted timetables.
type SchedulerConfig struct {
	MaxSteps int
	Timeout  time.Duration
	CacheTTL time.Duration
	// Catalog overrides the default weekly slot grid.
	Catalog scheduling.Catalog
}

// SchedulerService generates, persists and serves term timetables.
type SchedulerService struct {
	sections   schedulerSectionRepository
	classrooms schedulerClassroomRepository
	schedules  scheduleAssignmentRepository
	tx         txProvider
	cache      *CacheService
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	solver     *scheduling.Solver
	cfg        SchedulerConfig
	locks      *termLocks
	renderers  map[string]datasetRenderer
	now        func() time.Time
}

// NewSchedulerService wires scheduler dependencies.
func NewSchedulerService(
	sections schedulerSectionRepository,
	classrooms schedulerClassroomRepository,
	schedules scheduleAssignmentRepository,
	tx txProvider,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg SchedulerConfig,
) *SchedulerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchedulerService{
		sections:   sections,
		classrooms: classrooms,
		schedules:  schedules,
		tx:         tx,
		cache:      cache,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		solver:     scheduling.NewSolver(scheduling.Options{Catalog: cfg.Catalog, MaxSteps: cfg.MaxSteps}),
		cfg:        cfg,
		locks:      newTermLocks(),
		renderers:  defaultRenderers(),
		now:        time.Now,
	}
}

// Generate solves the term's sections onto classrooms and slots, then atomically
// replaces the term's persisted assignments. Runs for the same term are serialised.
func (s *SchedulerService) Generate(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.GenerateScheduleResponse, error) {
	req.Semester = normalizeSemester(req.Semester)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule generation payload")
	}

	release, err := s.locks.acquire(ctx, termKey(req.Semester, req.Year))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrScheduleGenerationBusy.Code, appErrors.ErrScheduleGenerationBusy.Status, appErrors.ErrScheduleGenerationBusy.Message)
	}
	defer release()

	start := time.Now()
	resp, steps, err := s.generate(ctx, req)
	outcome := schedulerOutcome(err)
	s.metrics.ObserveSchedulerRun(outcome, steps, time.Since(start))
	if err != nil {
		s.logger.Warn("schedule generation failed",
			zap.String("semester", req.Semester),
			zap.Int("year", req.Year),
			zap.String("outcome", outcome),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return nil, err
	}
	s.logger.Info("schedule generated",
		zap.String("semester", req.Semester),
		zap.Int("year", req.Year),
		zap.Int("sections", resp.Metadata.TotalSections),
		zap.Int("slots", s.solver.Catalog().Len()),
		zap.Int("steps", steps),
		zap.Int("score", resp.Metadata.SoftConstraintsScore),
		zap.Duration("duration", time.Since(start)),
	)
	return resp, nil
}

func (s *SchedulerService) generate(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.GenerateScheduleResponse, int, error) {
	sections, err := s.sections.ListActiveByTerm(ctx, req.Semester, req.Year)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load sections")
	}
	if len(sections) == 0 {
		return nil, 0, appErrors.Clone(appErrors.ErrNoSections, fmt.Sprintf("no active sections found for %s %d", req.Semester, req.Year))
	}
	rooms, err := s.classrooms.ListActive(ctx)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classrooms")
	}
	if len(rooms) == 0 {
		return nil, 0, appErrors.ErrNoClassrooms
	}

	vars := make([]scheduling.Section, len(sections))
	for i, sec := range sections {
		vars[i] = scheduling.Section{ID: sec.ID, InstructorID: sec.InstructorID, EnrolledCount: sec.EnrolledCount}
	}
	domain := make([]scheduling.Classroom, len(rooms))
	for i, room := range rooms {
		domain[i] = scheduling.Classroom{ID: room.ID, Capacity: room.Capacity}
	}

	solveCtx := ctx
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		solveCtx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	result, err := s.solver.Solve(solveCtx, vars, domain)
	if err != nil {
		return nil, 0, mapSolverError(err)
	}

	if err := s.persist(ctx, req, result); err != nil {
		return nil, result.Steps, err
	}
	if err := s.cache.Invalidate(ctx, ScheduleCacheKey(req.Semester, req.Year)); err != nil {
		s.logger.Warn("failed to invalidate cached schedule", zap.Error(err))
	}

	entries := buildEntries(sections, rooms, result.Assignment, req)
	sortEntries(entries)
	return &dto.GenerateScheduleResponse{
		Schedule: entries,
		Metadata: dto.ScheduleMetadata{
			TotalSections:            len(sections),
			ScheduledSections:        len(result.Assignment),
			UnscheduledSections:      len(sections) - len(result.Assignment),
			HardConstraintsSatisfied: true,
			SoftConstraintsScore:     result.Score,
			SearchSteps:              result.Steps,
			GeneratedAt:              s.now().UTC(),
		},
	}, result.Steps, nil
}

func (s *SchedulerService) persist(ctx context.Context, req dto.GenerateScheduleRequest, result *scheduling.Result) error {
	if s.tx == nil {
		return appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	start := time.Now()
	defer func() { s.metrics.ObserveDBQuery("replace_term_schedule", time.Since(start)) }()

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	assignments := make([]models.ScheduleAssignment, 0, len(result.Placements))
	for _, p := range result.Placements {
		assignments = append(assignments, models.ScheduleAssignment{
			SectionID:   p.SectionID,
			ClassroomID: p.ClassroomID,
			Day:         p.Slot.Day.String(),
			StartTime:   p.Slot.Start,
			EndTime:     p.Slot.End,
		})
	}
	if err = s.schedules.ReplaceForTerm(ctx, tx, req.Semester, req.Year, assignments); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist schedule assignments")
	}

	for _, p := range result.Placements {
		var schedule types.JSONText
		schedule, err = models.EncodeSchedule(p.Slot.Window())
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode section schedule")
		}
		if err = s.sections.AssignPlacement(ctx, tx, p.SectionID, p.ClassroomID, schedule); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update section placement")
		}
	}

	if err = tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit schedule transaction")
	}
	return nil
}

// GetSchedule returns the persisted timetable of a term, served from cache when possible.
func (s *SchedulerService) GetSchedule(ctx context.Context, query dto.ScheduleQuery) (*dto.TermSchedule, error) {
	query.Semester = normalizeSemester(query.Semester)
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule query")
	}

	key := ScheduleCacheKey(query.Semester, query.Year)
	var cached dto.TermSchedule
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	rows, err := s.schedules.ListByTerm(ctx, query.Semester, query.Year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	entries := make([]dto.ScheduleEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, dto.ScheduleEntry{
			SectionID:      row.SectionID,
			CourseCode:     row.CourseCode,
			CourseName:     row.CourseName,
			SectionNumber:  row.SectionNumber,
			InstructorName: models.SectionDetail{InstructorFirstName: row.InstructorFirstName, InstructorLastName: row.InstructorLastName}.InstructorName(),
			ClassroomID:    row.ClassroomID,
			Building:       row.Building,
			RoomNumber:     row.RoomNumber,
			Day:            row.Day,
			StartTime:      row.StartTime,
			EndTime:        row.EndTime,
			EnrolledCount:  row.EnrolledCount,
			Capacity:       row.Capacity,
			Semester:       row.Semester,
			Year:           row.Year,
		})
	}
	sortEntries(entries)

	schedule := &dto.TermSchedule{Semester: query.Semester, Year: query.Year, Entries: entries}
	_ = s.cache.Set(ctx, key, schedule, s.cfg.CacheTTL)
	return schedule, nil
}

func buildEntries(sections []models.SectionDetail, rooms []models.Classroom, assignment scheduling.Assignment, req dto.GenerateScheduleRequest) []dto.ScheduleEntry {
	roomByID := make(map[string]models.Classroom, len(rooms))
	for _, room := range rooms {
		roomByID[room.ID] = room
	}
	entries := make([]dto.ScheduleEntry, 0, len(assignment))
	for _, sec := range sections {
		p, ok := assignment[sec.ID]
		if !ok {
			continue
		}
		room := roomByID[p.ClassroomID]
		entries = append(entries, dto.ScheduleEntry{
			SectionID:      sec.ID,
			CourseCode:     sec.CourseCode,
			CourseName:     sec.CourseName,
			SectionNumber:  sec.SectionNumber,
			InstructorName: sec.InstructorName(),
			ClassroomID:    p.ClassroomID,
			Building:       room.Building,
			RoomNumber:     room.RoomNumber,
			Day:            p.Slot.Day.String(),
			StartTime:      p.Slot.Start,
			EndTime:        p.Slot.End,
			EnrolledCount:  sec.EnrolledCount,
			Capacity:       sec.Capacity,
			Semester:       req.Semester,
			Year:           req.Year,
		})
	}
	return entries
}

// sortEntries orders entries by day (Monday first) then start time. Unparseable values
// sort last; remaining ties fall back to course code and section id.
func sortEntries(entries []dto.ScheduleEntry) {
	type sortKey struct {
		day   int
		start int
	}
	keys := make(map[string]sortKey, len(entries))
	keyOf := func(e dto.ScheduleEntry) sortKey {
		id := e.SectionID + "|" + e.Day + "|" + e.StartTime
		if k, ok := keys[id]; ok {
			return k
		}
		k := sortKey{day: 99, start: 24 * 60}
		if day, err := scheduling.ParseDay(e.Day); err == nil {
			k.day = int(day)
		}
		if minutes, err := scheduling.ToMinutes(e.StartTime); err == nil {
			k.start = minutes
		}
		keys[id] = k
		return k
	}
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := keyOf(entries[i]), keyOf(entries[j])
		if a.day != b.day {
			return a.day < b.day
		}
		if a.start != b.start {
			return a.start < b.start
		}
		if entries[i].CourseCode != entries[j].CourseCode {
			return entries[i].CourseCode < entries[j].CourseCode
		}
		return entries[i].SectionID < entries[j].SectionID
	})
}

func mapSolverError(err error) error {
	var unplaceable *scheduling.UnplaceableError
	var over *scheduling.OversubscribedError
	var budget *scheduling.BudgetError
	switch {
	case errors.As(err, &unplaceable):
		return appErrors.WithDetails(appErrors.ErrUnsatisfiable, "",
			map[string]interface{}{"unplaceableSections": unplaceable.SectionIDs})
	case errors.As(err, &over):
		details := map[string]interface{}{}
		if len(over.InstructorIDs) > 0 {
			details["oversubscribedInstructors"] = over.InstructorIDs
		}
		if over.Sections > 0 {
			details["competingSections"] = over.Sections
			details["availableRoomSlots"] = over.Available
		}
		return appErrors.WithDetails(appErrors.ErrUnsatisfiable, "", details)
	case errors.Is(err, scheduling.ErrUnsatisfiable):
		return appErrors.ErrUnsatisfiable
	case errors.As(err, &budget):
		return appErrors.WithDetails(appErrors.ErrSearchBudgetExceeded, "",
			map[string]interface{}{"steps": budget.Steps, "placedSections": budget.Placed})
	case errors.Is(err, scheduling.ErrNoSections):
		return appErrors.ErrNoSections
	case errors.Is(err, scheduling.ErrNoClassrooms):
		return appErrors.ErrNoClassrooms
	case errors.Is(err, scheduling.ErrInvalidTimeFormat):
		return appErrors.Wrap(err, appErrors.ErrInvalidTimeFormat.Code, appErrors.ErrInvalidTimeFormat.Status, appErrors.ErrInvalidTimeFormat.Message)
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "schedule generation failed")
	}
}

func schedulerOutcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, appErrors.ErrUnsatisfiable):
		return OutcomeUnsatisfiable
	case errors.Is(err, appErrors.ErrSearchBudgetExceeded):
		return OutcomeBudget
	case errors.Is(err, appErrors.ErrNoSections), errors.Is(err, appErrors.ErrNoClassrooms):
		return OutcomeInvalidInput
	default:
		return OutcomeError
	}
}

func termKey(semester string, year int) string {
	return fmt.Sprintf("%s:%d", semester, year)
}

// termLocks hands out one single-slot semaphore per term.
type termLocks struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func newTermLocks() *termLocks {
	return &termLocks{slots: make(map[string]chan struct{})}
}

// acquire blocks until the term is free or ctx ends.
func (l *termLocks) acquire(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	slot, ok := l.slots[key]
	if !ok {
		slot = make(chan struct{}, 1)
		l.slots[key] = slot
	}
	l.mu.Unlock()

	select {
	case slot <- struct{}{}:
		return func() { <-slot }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
