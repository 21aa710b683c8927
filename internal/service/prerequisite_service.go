package service

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/noah-isme/campus-scheduler-api/internal/models"
)

type prerequisiteReader interface {
	ListPrerequisites(ctx context.Context, courseID string) ([]models.CoursePrerequisite, error)
}

// PrerequisiteService walks the course prerequisite graph. Edges are cached in process
// since the catalog rarely changes within a term.
type PrerequisiteService struct {
	courses prerequisiteReader
	edges   *gocache.Cache
	logger  *zap.Logger
}

// NewPrerequisiteService constructs the service. A non-positive ttl defaults to 15 minutes.
func NewPrerequisiteService(courses prerequisiteReader, ttl time.Duration, logger *zap.Logger) *PrerequisiteService {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PrerequisiteService{
		courses: courses,
		edges:   gocache.New(ttl, 2*ttl),
		logger:  logger,
	}
}

// Missing returns the prerequisites of courseID that the student has not passed,
// following the graph transitively. A passed course is taken as proof its own
// prerequisites were met, so the walk does not descend below it. Cycles are tolerated.
func (s *PrerequisiteService) Missing(ctx context.Context, courseID string, passed map[string]struct{}) ([]models.CoursePrerequisite, error) {
	visited := map[string]struct{}{courseID: {}}
	stack := []string{courseID}
	var missing []models.CoursePrerequisite

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		edges, err := s.prerequisitesOf(ctx, current)
		if err != nil {
			return nil, err
		}
		var next []string
		for _, edge := range edges {
			if _, seen := visited[edge.PrerequisiteCourseID]; seen {
				continue
			}
			visited[edge.PrerequisiteCourseID] = struct{}{}
			if _, ok := passed[edge.PrerequisiteCourseID]; ok {
				continue
			}
			missing = append(missing, edge)
			next = append(next, edge.PrerequisiteCourseID)
		}
		for i := len(next) - 1; i >= 0; i-- {
			stack = append(stack, next[i])
		}
	}
	return missing, nil
}

func (s *PrerequisiteService) prerequisitesOf(ctx context.Context, courseID string) ([]models.CoursePrerequisite, error) {
	if cached, ok := s.edges.Get(courseID); ok {
		return cached.([]models.CoursePrerequisite), nil
	}
	edges, err := s.courses.ListPrerequisites(ctx, courseID)
	if err != nil {
		return nil, err
	}
	s.edges.SetDefault(courseID, edges)
	s.logger.Debug("cached course prerequisites", zap.String("course_id", courseID), zap.Int("edges", len(edges)))
	return edges, nil
}
