package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/virtulab/virtulab-api/internal/models"
	appErrors "github.com/virtulab/virtulab-api/pkg/errors"
)

// Performance tiers derived from the final score ratio.
const (
	PerformanceExcellent        = "excellent"
	PerformanceGood             = "good"
	PerformanceFair             = "fair"
	PerformanceNeedsImprovement = "needs_improvement"
)

// Success threshold for the streak counter.
const streakThreshold = 70

type statsUpdater interface {
	// ApplyCompletion runs the update inside a transaction that serializes
	// concurrent completions for the same student.
	ApplyCompletion(ctx context.Context, studentID string, update func(*models.StudentGameStats) error) (*models.StudentGameStats, error)
}

type guardianReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	GuardiansOf(ctx context.Context, studentID string) ([]models.User, error)
}

// CompletionSummary is the outcome of finalizing one simulation.
type CompletionSummary struct {
	FinalScore       int                  `json:"final_score"`
	MaxScore         int                  `json:"max_score"`
	Performance      string               `json:"performance"`
	Badges           []models.Achievement `json:"badges"`
	ActionsCompleted int                  `json:"actions_completed"`
	ObservationsMade int                  `json:"observations_made"`
	HintsUsed        int                  `json:"hints_used"`
}

// CompletionService derives the performance tier and badge set for a
// completed simulation and folds the outcome into the per-student aggregate.
type CompletionService struct {
	stats     statsUpdater
	guardians guardianReader
	notifier  notifier
	logger    *zap.Logger
	now       func() time.Time
}

// NewCompletionService constructs CompletionService.
func NewCompletionService(stats statsUpdater, guardians guardianReader, notifications notifier, logger *zap.Logger) *CompletionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CompletionService{
		stats:     stats,
		guardians: guardians,
		notifier:  notifications,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Evaluate computes the performance tier and badge set for a simulation whose
// final results have already been merged. It performs no persistence.
func (s *CompletionService) Evaluate(sim *models.Simulation) *CompletionSummary {
	summary := &CompletionSummary{
		FinalScore:       intResult(sim.State.Results, "gameScore", sim.State.Game.Score),
		MaxScore:         sim.Config.MaxScore,
		ActionsCompleted: intResult(sim.State.Results, "actionsCompleted", sim.State.Game.ActionsCompleted),
		ObservationsMade: intResult(sim.State.Results, "observationsMade", len(sim.State.Game.Observations)),
		HintsUsed:        intResult(sim.State.Results, "hintsUsed", len(sim.State.Game.Hints)),
	}
	summary.Performance = performanceTier(summary.FinalScore, summary.MaxScore)
	summary.Badges = deriveBadges(summary, s.now())
	return summary
}

// Commit updates the per-student aggregate and fans notifications out to the
// student and linked guardians. The aggregate update is serialized per
// student by the stats repository.
func (s *CompletionService) Commit(ctx context.Context, sim *models.Simulation, summary *CompletionSummary) error {
	now := s.now()
	_, err := s.stats.ApplyCompletion(ctx, sim.StudentID, func(stats *models.StudentGameStats) error {
		applyCompletionToStats(stats, sim.Subject, summary, now)
		return nil
	})
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update game stats")
	}

	s.fanOutNotifications(ctx, sim, summary)
	return nil
}

// applyCompletionToStats folds one completion into the aggregate. Kept as a
// plain function so the aggregation rules are testable without persistence.
func applyCompletionToStats(stats *models.StudentGameStats, subject models.Subject, summary *CompletionSummary, now time.Time) {
	stats.TotalGamesPlayed++
	stats.ExperimentsCompleted++
	stats.TotalScore += summary.FinalScore
	stats.AverageScore = stats.TotalScore / stats.TotalGamesPlayed

	gain := summary.FinalScore / 20
	if gain > 5 {
		gain = 5
	}
	skill := stats.Skills.Get(subject) + gain
	if skill > 100 {
		skill = 100
	}
	if skill < 0 {
		skill = 0
	}
	stats.Skills.Set(subject, skill)

	if summary.FinalScore > stats.BestScores.Get(subject) {
		stats.BestScores.Set(subject, summary.FinalScore)
	}
	stats.FavoriteSubject = stats.Skills.Favorite()

	if summary.FinalScore >= streakThreshold {
		stats.CurrentStreak++
		if stats.CurrentStreak > stats.LongestStreak {
			stats.LongestStreak = stats.CurrentStreak
		}
	} else {
		stats.CurrentStreak = 0
	}

	for _, badge := range summary.Badges {
		if !stats.Achievements.Contains(badge.ID) {
			stats.Achievements = append(stats.Achievements, badge.ID)
		}
	}
	stats.LastPlayedAt = &now
}

func (s *CompletionService) fanOutNotifications(ctx context.Context, sim *models.Simulation, summary *CompletionSummary) {
	if s.notifier == nil {
		return
	}
	data := models.JSONMap{
		"simulation_id": sim.ID,
		"final_score":   summary.FinalScore,
		"max_score":     summary.MaxScore,
		"performance":   summary.Performance,
	}
	badgeNames := make([]string, 0, len(summary.Badges))
	for _, badge := range summary.Badges {
		badgeNames = append(badgeNames, badge.Name)
	}
	if len(badgeNames) > 0 {
		data["badges"] = badgeNames
	}

	s.notifier.Send(ctx, sim.StudentID, models.NotificationSimulationCompleted,
		"Experiment completed",
		fmt.Sprintf("You finished %q with %d of %d points (%s).", sim.Title, summary.FinalScore, summary.MaxScore, summary.Performance),
		data, "/simulations/"+sim.ID)

	guardians, err := s.guardians.GuardiansOf(ctx, sim.StudentID)
	if err != nil {
		s.logger.Warn("failed to load guardians for fan-out", zap.String("student_id", sim.StudentID), zap.Error(err))
		return
	}
	if len(guardians) == 0 {
		return
	}

	studentName := "Your child"
	if student, err := s.guardians.FindByID(ctx, sim.StudentID); err == nil && student.FullName != "" {
		studentName = student.FullName
	}
	for _, guardian := range guardians {
		s.notifier.Send(ctx, guardian.ID, models.NotificationChildProgress,
			"Experiment completed",
			fmt.Sprintf("%s finished the experiment %q with a %s result.", studentName, sim.Title, summary.Performance),
			data, "/simulations/"+sim.ID)
	}
}

// performanceTier applies the threshold ladder to the score ratio.
func performanceTier(score, maxScore int) string {
	if maxScore <= 0 {
		return PerformanceNeedsImprovement
	}
	percent := score * 100 / maxScore
	switch {
	case percent >= 90:
		return PerformanceExcellent
	case percent >= 75:
		return PerformanceGood
	case percent >= 60:
		return PerformanceFair
	default:
		return PerformanceNeedsImprovement
	}
}

// deriveBadges evaluates every badge rule independently; all qualifying
// badges are awarded at once.
func deriveBadges(summary *CompletionSummary, now time.Time) []models.Achievement {
	var badges []models.Achievement
	if summary.Performance == PerformanceExcellent {
		badges = append(badges, models.Achievement{
			ID: "perfect_scientist", Name: "Perfect Scientist",
			Description: "Finished an experiment with an excellent score", UnlockedAt: now,
		})
	}
	if summary.Performance == PerformanceGood {
		badges = append(badges, models.Achievement{
			ID: "skilled_researcher", Name: "Skilled Researcher",
			Description: "Finished an experiment with a good score", UnlockedAt: now,
		})
	}
	if summary.ObservationsMade >= 5 {
		badges = append(badges, models.Achievement{
			ID: "keen_observer", Name: "Keen Observer",
			Description: "Recorded five or more observations in one experiment", UnlockedAt: now,
		})
	}
	if summary.ActionsCompleted >= 10 {
		badges = append(badges, models.Achievement{
			ID: "active_experimenter", Name: "Active Experimenter",
			Description: "Performed ten or more actions in one experiment", UnlockedAt: now,
		})
	}
	if summary.FinalScore > 0 {
		badges = append(badges, models.Achievement{
			ID: "first_completion", Name: "Lab Finisher",
			Description: "Completed an experiment with a positive score", UnlockedAt: now,
		})
	}
	return badges
}

// intResult reads an integer from the results bag, tolerating the float64
// values JSON decoding produces, with a fallback when the key is absent.
func intResult(results map[string]interface{}, key string, fallback int) int {
	if results == nil {
		return fallback
	}
	switch v := results[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return fallback
	}
}
