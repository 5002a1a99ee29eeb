package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// SubjectScores tracks one integer value per tracked subject. A struct rather
// than a map so that favorite-subject resolution iterates in a fixed order
// (chemistry, physics, biology).
type SubjectScores struct {
	Chemistry int `json:"chemistry"`
	Physics   int `json:"physics"`
	Biology   int `json:"biology"`
}

// Get returns the value for a subject; non-tracked subjects read as zero.
func (s SubjectScores) Get(subject Subject) int {
	switch subject {
	case SubjectChemistry:
		return s.Chemistry
	case SubjectPhysics:
		return s.Physics
	case SubjectBiology:
		return s.Biology
	}
	return 0
}

// Set stores the value for a subject; non-tracked subjects are ignored.
func (s *SubjectScores) Set(subject Subject, value int) {
	switch subject {
	case SubjectChemistry:
		s.Chemistry = value
	case SubjectPhysics:
		s.Physics = value
	case SubjectBiology:
		s.Biology = value
	}
}

// Favorite returns the tracked subject with the highest value. Ties resolve
// to the earlier subject in chemistry, physics, biology order.
func (s SubjectScores) Favorite() Subject {
	favorite := SubjectChemistry
	best := s.Chemistry
	if s.Physics > best {
		favorite, best = SubjectPhysics, s.Physics
	}
	if s.Biology > best {
		favorite = SubjectBiology
	}
	return favorite
}

func (s SubjectScores) Value() (driver.Value, error) { return json.Marshal(s) }
func (s *SubjectScores) Scan(src interface{}) error  { return scanJSON(src, s) }

// StringList is a JSONB-backed string slice column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal(l)
}
func (l *StringList) Scan(src interface{}) error { return scanJSON(src, l) }

// Contains reports whether the list holds the given value.
func (l StringList) Contains(v string) bool {
	for _, item := range l {
		if item == v {
			return true
		}
	}
	return false
}

// StudentGameStats is the per-student aggregate across all simulations.
// Mutated only by the completion engine inside a serialized read-modify-write.
type StudentGameStats struct {
	StudentID            string        `db:"student_id" json:"student_id"`
	TotalGamesPlayed     int           `db:"total_games_played" json:"total_games_played"`
	TotalScore           int           `db:"total_score" json:"total_score"`
	AverageScore         int           `db:"average_score" json:"average_score"`
	ExperimentsCompleted int           `db:"experiments_completed" json:"experiments_completed"`
	Achievements         StringList    `db:"achievements" json:"achievements"`
	Skills               SubjectScores `db:"skills" json:"skills"`
	BestScores           SubjectScores `db:"best_scores" json:"best_scores"`
	FavoriteSubject      Subject       `db:"favorite_subject" json:"favorite_subject"`
	CurrentStreak        int           `db:"current_streak" json:"current_streak"`
	LongestStreak        int           `db:"longest_streak" json:"longest_streak"`
	LastPlayedAt         *time.Time    `db:"last_played_at" json:"last_played_at,omitempty"`
	UpdatedAt            time.Time     `db:"updated_at" json:"updated_at"`
}

// LeaderboardEntry is one ranked row joined with the student's name.
type LeaderboardEntry struct {
	Rank            int     `db:"-" json:"rank"`
	StudentID       string  `db:"student_id" json:"student_id"`
	StudentName     string  `db:"student_name" json:"student_name"`
	TotalScore      int     `db:"total_score" json:"total_score"`
	AverageScore    int     `db:"average_score" json:"average_score"`
	GamesPlayed     int     `db:"total_games_played" json:"games_played"`
	LongestStreak   int     `db:"longest_streak" json:"longest_streak"`
	FavoriteSubject Subject `db:"favorite_subject" json:"favorite_subject"`
}
