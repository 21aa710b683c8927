package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/noah-isme/campus-scheduler-api/internal/dto"
	"github.com/noah-isme/campus-scheduler-api/pkg/export"
	appErrors "github.com/noah-isme/campus-scheduler-api/pkg/errors"
)

type datasetRenderer interface {
	ContentType() string
	Extension() string
	Render(data export.Dataset) ([]byte, error)
}

// ExportedSchedule is a rendered timetable ready to be sent as an attachment.
type ExportedSchedule struct {
	Filename    string
	ContentType string
	Payload     []byte
}

var timetableColumns = []export.Column{
	{Key: "day", Title: "Day", Width: 1.2},
	{Key: "time", Title: "Time", Width: 1.4},
	{Key: "course", Title: "Course", Width: 1},
	{Key: "name", Title: "Course Name", Width: 2.6},
	{Key: "section", Title: "Section", Width: 0.8},
	{Key: "instructor", Title: "Instructor", Width: 2},
	{Key: "room", Title: "Room", Width: 1.4},
	{Key: "enrolled", Title: "Enrolled", Width: 0.9},
}

func defaultRenderers() map[string]datasetRenderer {
	return map[string]datasetRenderer{
		"csv": export.NewCSVExporter(),
		"pdf": export.NewPDFExporter(),
	}
}

// Export renders the persisted timetable of a term in the requested format (csv or pdf).
func (s *SchedulerService) Export(ctx context.Context, query dto.ScheduleQuery) (*ExportedSchedule, error) {
	format := strings.ToLower(strings.TrimSpace(query.Format))
	if format == "" {
		format = "csv"
	}
	renderer, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnsupportedExportFmt, fmt.Sprintf("unsupported export format %q", query.Format))
	}

	schedule, err := s.GetSchedule(ctx, query)
	if err != nil {
		return nil, err
	}

	payload, err := renderer.Render(timetableDataset(schedule))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render schedule export")
	}
	return &ExportedSchedule{
		Filename:    fmt.Sprintf("schedule_%s_%d.%s", sanitizeFilename(schedule.Semester), schedule.Year, renderer.Extension()),
		ContentType: renderer.ContentType(),
		Payload:     payload,
	}, nil
}

func timetableDataset(schedule *dto.TermSchedule) export.Dataset {
	rows := make([]map[string]string, 0, len(schedule.Entries))
	for _, entry := range schedule.Entries {
		room := entry.Building
		if entry.RoomNumber != "" {
			room = strings.TrimSpace(room + " " + entry.RoomNumber)
		}
		if room == "" {
			room = entry.ClassroomID
		}
		rows = append(rows, map[string]string{
			"day":        entry.Day,
			"time":       entry.StartTime + "-" + entry.EndTime,
			"course":     entry.CourseCode,
			"name":       entry.CourseName,
			"section":    entry.SectionNumber,
			"instructor": entry.InstructorName,
			"room":       room,
			"enrolled":   strconv.Itoa(entry.EnrolledCount) + "/" + strconv.Itoa(entry.Capacity),
		})
	}
	return export.Dataset{
		Title:   fmt.Sprintf("Course Schedule %s %d", schedule.Semester, schedule.Year),
		Columns: timetableColumns,
		Rows:    rows,
	}
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".")
	result := replacer.Replace(raw)
	if len(result) > 64 {
		return result[:64]
	}
	return result
}
