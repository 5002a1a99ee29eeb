package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/virtulab/virtulab-api/internal/dto"
	"github.com/virtulab/virtulab-api/internal/models"
	appErrors "github.com/virtulab/virtulab-api/pkg/errors"
	"github.com/virtulab/virtulab-api/pkg/export"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// StatsService reads aggregate game statistics and renders guardian progress
// reports for download.
type StatsService struct {
	stats  statsReader
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
}

// NewStatsService constructs StatsService. Nil renderers fall back to the
// default exporters.
func NewStatsService(stats statsReader, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *StatsService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsService{stats: stats, csv: csv, pdf: pdf, logger: logger}
}

// ForStudent returns the student's aggregate stats, zeroed when the student
// has not completed a simulation yet.
func (s *StatsService) ForStudent(ctx context.Context, studentID string) (*models.StudentGameStats, error) {
	stats, err := s.stats.GetByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load game stats")
	}
	return stats, nil
}

// RenderProgressReport renders the guardian roll-up as a downloadable file.
// Supported formats are csv and pdf; the returned string is the content type.
func (s *StatsService) RenderProgressReport(progress []dto.ChildProgress, format string) ([]byte, string, error) {
	dataset := buildProgressDataset(progress)
	switch strings.ToLower(format) {
	case "csv":
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv report")
		}
		return payload, "text/csv", nil
	case "pdf":
		payload, err := s.pdf.Render(dataset, "Learning Progress Report")
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf report")
		}
		return payload, "application/pdf", nil
	}
	return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported report format %q", format))
}

func buildProgressDataset(progress []dto.ChildProgress) export.Dataset {
	headers := []string{"Student", "Not Started", "In Progress", "Paused", "Completed",
		"Total Score", "Average Score", "Favorite Subject", "Current Streak", "Last Played"}
	rows := make([]map[string]string, 0, len(progress))
	for _, child := range progress {
		row := map[string]string{
			"Student":     child.StudentName,
			"Not Started": strconv.Itoa(child.Simulations.NotStarted),
			"In Progress": strconv.Itoa(child.Simulations.InProgress),
			"Paused":      strconv.Itoa(child.Simulations.Paused),
			"Completed":   strconv.Itoa(child.Simulations.Completed),
		}
		if child.Stats != nil {
			row["Total Score"] = strconv.Itoa(child.Stats.TotalScore)
			row["Average Score"] = strconv.Itoa(child.Stats.AverageScore)
			row["Favorite Subject"] = string(child.Stats.FavoriteSubject)
			row["Current Streak"] = strconv.Itoa(child.Stats.CurrentStreak)
			if child.Stats.LastPlayedAt != nil {
				row["Last Played"] = child.Stats.LastPlayedAt.Format(time.DateOnly)
			}
		}
		rows = append(rows, row)
	}
	return export.Dataset{Headers: headers, Rows: rows}
}
