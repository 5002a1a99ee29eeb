package dto

import "github.com/virtulab/virtulab-api/internal/models"

// ChildProgress is one row of the guardian roll-up: a linked student's
// simulation status breakdown plus their aggregate game stats.
type ChildProgress struct {
	StudentID   string                   `json:"student_id"`
	StudentName string                   `json:"student_name"`
	Simulations models.StatusBreakdown   `json:"simulations"`
	Stats       *models.StudentGameStats `json:"stats,omitempty"`
}
