package service

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/virtulab/virtulab-api/internal/dto"
	"github.com/virtulab/virtulab-api/internal/models"
	appErrors "github.com/virtulab/virtulab-api/pkg/errors"
)

func sampleProgress() []dto.ChildProgress {
	lastPlayed := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	return []dto.ChildProgress{
		{
			StudentID:   "student-1",
			StudentName: "Ada Lovelace",
			Simulations: models.StatusBreakdown{NotStarted: 1, InProgress: 2, Completed: 4},
			Stats: &models.StudentGameStats{
				TotalScore:      420,
				AverageScore:    84,
				FavoriteSubject: models.SubjectChemistry,
				CurrentStreak:   3,
				LastPlayedAt:    &lastPlayed,
			},
		},
		{
			StudentID:   "student-2",
			StudentName: "Charles Babbage",
			Simulations: models.StatusBreakdown{NotStarted: 3},
		},
	}
}

func TestRenderProgressReportCSV(t *testing.T) {
	svc := NewStatsService(nil, nil, nil, nil)

	payload, contentType, err := svc.RenderProgressReport(sampleProgress(), "csv")
	require.NoError(t, err)
	require.Equal(t, "text/csv", contentType)

	body := string(payload)
	require.Contains(t, body, "Student,Not Started,In Progress,Paused,Completed")
	require.Contains(t, body, "Ada Lovelace")
	require.Contains(t, body, "2026-03-14")
	// The child without stats still renders a complete row.
	require.Contains(t, body, "Charles Babbage")
	require.Equal(t, 3, strings.Count(body, "\n"))
}

func TestRenderProgressReportPDF(t *testing.T) {
	svc := NewStatsService(nil, nil, nil, nil)

	payload, contentType, err := svc.RenderProgressReport(sampleProgress(), "pdf")
	require.NoError(t, err)
	require.Equal(t, "application/pdf", contentType)
	require.True(t, strings.HasPrefix(string(payload), "%PDF"))
}

func TestRenderProgressReportRejectsUnknownFormat(t *testing.T) {
	svc := NewStatsService(nil, nil, nil, nil)

	_, _, err := svc.RenderProgressReport(sampleProgress(), "xlsx")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}

func TestBuildProgressDataset(t *testing.T) {
	dataset := buildProgressDataset(sampleProgress())
	require.Len(t, dataset.Headers, 10)
	require.Len(t, dataset.Rows, 2)
	require.Equal(t, "420", dataset.Rows[0]["Total Score"])
	require.Equal(t, "chemistry", dataset.Rows[0]["Favorite Subject"])
	require.Equal(t, "3", dataset.Rows[1]["Not Started"])
	_, ok := dataset.Rows[1]["Total Score"]
	require.False(t, ok)
}
