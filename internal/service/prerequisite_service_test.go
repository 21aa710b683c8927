package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-scheduler-api/internal/models"
)

type prerequisiteGraph struct {
	edges map[string][]string
	calls map[string]int
	err   error
}

func (g *prerequisiteGraph) ListPrerequisites(ctx context.Context, courseID string) ([]models.CoursePrerequisite, error) {
	if g.err != nil {
		return nil, g.err
	}
	if g.calls == nil {
		g.calls = map[string]int{}
	}
	g.calls[courseID]++
	out := make([]models.CoursePrerequisite, 0, len(g.edges[courseID]))
	for _, prereq := range g.edges[courseID] {
		out = append(out, models.CoursePrerequisite{CourseID: courseID, PrerequisiteCourseID: prereq, PrerequisiteCode: prereq})
	}
	return out, nil
}

func missingCodes(edges []models.CoursePrerequisite) []string {
	codes := make([]string, 0, len(edges))
	for _, e := range edges {
		codes = append(codes, e.PrerequisiteCode)
	}
	return codes
}

func TestPrerequisiteServiceMissing(t *testing.T) {
	graph := &prerequisiteGraph{edges: map[string][]string{
		"CS301": {"CS201", "MA201"},
		"CS201": {"CS101"},
		"MA201": {"MA101"},
	}}
	svc := NewPrerequisiteService(graph, time.Minute, nil)

	tests := []struct {
		name   string
		passed []string
		want   []string
	}{
		{name: "nothing passed", want: []string{"CS201", "MA201", "CS101", "MA101"}},
		{name: "passed course covers its own prerequisites", passed: []string{"CS201"}, want: []string{"MA201", "MA101"}},
		{name: "all passed", passed: []string{"CS201", "MA201"}, want: []string{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			passed := map[string]struct{}{}
			for _, id := range tc.passed {
				passed[id] = struct{}{}
			}
			missing, err := svc.Missing(context.Background(), "CS301", passed)
			require.NoError(t, err)
			assert.Equal(t, tc.want, missingCodes(missing))
		})
	}
}

func TestPrerequisiteServiceToleratesCycles(t *testing.T) {
	graph := &prerequisiteGraph{edges: map[string][]string{
		"A": {"B"},
		"B": {"C"},
		"C": {"A", "B"},
	}}
	svc := NewPrerequisiteService(graph, time.Minute, nil)

	missing, err := svc.Missing(context.Background(), "A", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C"}, missingCodes(missing))
}

func TestPrerequisiteServiceCachesEdges(t *testing.T) {
	graph := &prerequisiteGraph{edges: map[string][]string{"CS201": {"CS101"}}}
	svc := NewPrerequisiteService(graph, time.Minute, nil)

	for i := 0; i < 3; i++ {
		_, err := svc.Missing(context.Background(), "CS201", nil)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, graph.calls["CS201"])
	assert.Equal(t, 1, graph.calls["CS101"])

	svc.edges.Delete("CS201")
	_, err := svc.Missing(context.Background(), "CS201", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, graph.calls["CS201"])
}

func TestPrerequisiteServicePropagatesErrors(t *testing.T) {
	boom := errors.New("db down")
	svc := NewPrerequisiteService(&prerequisiteGraph{err: boom}, 0, nil)
	_, err := svc.Missing(context.Background(), "CS201", nil)
	assert.ErrorIs(t, err, boom)
}
