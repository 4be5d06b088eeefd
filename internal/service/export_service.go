package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/tutoring-schedule-api/internal/models"
	"github.com/noah-isme/tutoring-schedule-api/internal/schedule"
	appErrors "github.com/noah-isme/tutoring-schedule-api/pkg/errors"
	"github.com/noah-isme/tutoring-schedule-api/pkg/export"
)

// Export formats supported by ExportService.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

var rosterHeaders = []string{"Date", "Day", "Time", "Tutor", "Category", "Student", "Topic", "Status"}

type weekSource interface {
	Week(ctx context.Context, date string) (*models.WeekView, bool, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportFile is a rendered roster ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders a week's roster as CSV or PDF.
type ExportService struct {
	weeks  weekSource
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(weeks weekSource, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{weeks: weeks, csv: csv, pdf: pdf, logger: logger}
}

// ExportWeek renders one row per enrollment of the week containing date.
func (s *ExportService) ExportWeek(ctx context.Context, date, format string) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	view, _, err := s.weeks.Week(ctx, date)
	if err != nil {
		return nil, err
	}
	dataset := BuildRoster(view)
	title := fmt.Sprintf("Tutoring roster, week of %s", view.WeekStart)

	var payload []byte
	var contentType string
	switch format {
	case ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
		contentType = "application/pdf"
	default:
		payload, err = s.csv.Render(dataset)
		contentType = "text/csv"
	}
	if err != nil {
		s.logger.Error("failed to render roster", zap.String("week_start", view.WeekStart), zap.String("format", format), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
	}

	return &ExportFile{
		Filename:    fmt.Sprintf("roster-%s.%s", view.WeekStart, format),
		ContentType: contentType,
		Data:        payload,
	}, nil
}

// BuildRoster flattens a week view into one row per enrollment, in session order.
func BuildRoster(view *models.WeekView) export.Dataset {
	tutors := make(map[string]models.Tutor, len(view.Tutors))
	for _, tutor := range view.Tutors {
		tutors[tutor.ID] = tutor
	}

	rows := make([]map[string]string, 0)
	for _, session := range view.Sessions {
		day := ""
		if n, err := schedule.WeekdayNumber(session.Date); err == nil {
			day = schedule.DayNames[n]
		}
		tutor := tutors[session.TutorID]
		for _, enrollment := range session.Students {
			rows = append(rows, map[string]string{
				"Date":     session.Date,
				"Day":      day,
				"Time":     session.Time,
				"Tutor":    tutor.Name,
				"Category": tutor.Category,
				"Student":  enrollment.Name,
				"Topic":    enrollment.Topic,
				"Status":   string(enrollment.Status),
			})
		}
	}
	return export.Dataset{Headers: rosterHeaders, Rows: rows}
}
