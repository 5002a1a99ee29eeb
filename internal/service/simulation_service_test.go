package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/virtulab/virtulab-api/internal/models"
	appErrors "github.com/virtulab/virtulab-api/pkg/errors"
)

type fakeUserReader struct {
	users    map[string]*models.User
	children map[string][]models.User
}

func (r *fakeUserReader) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (r *fakeUserReader) ChildrenOf(ctx context.Context, guardianID string) ([]models.User, error) {
	return r.children[guardianID], nil
}

type fakeStatsReader struct {
	stats map[string]*models.StudentGameStats
}

func (r *fakeStatsReader) GetByStudent(ctx context.Context, studentID string) (*models.StudentGameStats, error) {
	if stats, ok := r.stats[studentID]; ok {
		return stats, nil
	}
	return &models.StudentGameStats{StudentID: studentID}, nil
}

type fakeLimiter struct {
	genAllowed bool
	genErr     error
	updAllowed bool
	updErr     error
}

func (l *fakeLimiter) AllowGeneration(ctx context.Context, studentID string) (bool, error) {
	return l.genAllowed, l.genErr
}

func (l *fakeLimiter) AllowStateUpdate(ctx context.Context, simulationID string) (bool, error) {
	return l.updAllowed, l.updErr
}

type sentNotification struct {
	UserID string
	Kind   models.NotificationType
	Title  string
}

type recordingNotifier struct {
	sent []sentNotification
}

func (n *recordingNotifier) Send(ctx context.Context, userID string, kind models.NotificationType, title, message string, data models.JSONMap, link string) {
	n.sent = append(n.sent, sentNotification{UserID: userID, Kind: kind, Title: title})
}

type stubGenerator struct {
	fallback bool
}

func (g stubGenerator) Generate(ctx context.Context, prompt string, subject models.Subject, level int) *GeneratedContent {
	content := fallbackContent(prompt, subject, level)
	content.Config = deriveGameConfig(subject, level, content.Config.Objectives)
	content.Lab.RepairDefaults(subject)
	content.AI = models.AIMetadata{Model: "stub", Fallback: g.fallback}
	return content
}

type stubCompletion struct {
	summary   *CompletionSummary
	committed int
	commitErr error
}

func (c *stubCompletion) Evaluate(sim *models.Simulation) *CompletionSummary {
	if c.summary != nil {
		return c.summary
	}
	summary := &CompletionSummary{
		FinalScore: intResult(sim.State.Results, "gameScore", sim.State.Game.Score),
		MaxScore:   sim.Config.MaxScore,
	}
	summary.Performance = performanceTier(summary.FinalScore, summary.MaxScore)
	return summary
}

func (c *stubCompletion) Commit(ctx context.Context, sim *models.Simulation, summary *CompletionSummary) error {
	if c.commitErr != nil {
		return c.commitErr
	}
	c.committed++
	return nil
}

func newSimulationServiceForTest(sims *fakeSimulationRepo, users *fakeUserReader, limiter *fakeLimiter, completion *stubCompletion, notes *recordingNotifier) *SimulationService {
	if users == nil {
		users = &fakeUserReader{users: map[string]*models.User{
			"student-1": {ID: "student-1", Role: models.RoleStudent, FullName: "Ada Lovelace", Active: true},
		}}
	}
	if completion == nil {
		completion = &stubCompletion{}
	}
	var limiterIface RateLimiter
	if limiter != nil {
		limiterIface = limiter
	}
	var notifierIface notifier
	if notes != nil {
		notifierIface = notes
	}
	return NewSimulationService(sims, users, &fakeStatsReader{}, limiterIface, stubGenerator{}, completion, notifierIface, nil, nil, nil, 5)
}

func TestGenerateCreatesSimulation(t *testing.T) {
	sims := newFakeSimulationRepo()
	notes := &recordingNotifier{}
	svc := newSimulationServiceForTest(sims, nil, &fakeLimiter{genAllowed: true}, nil, notes)

	sim, err := svc.Generate(context.Background(), studentClaims("student-1"), GenerateSimulationRequest{
		Prompt:  "acid base titration",
		Subject: models.SubjectChemistry,
		Level:   3,
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusNotStarted, sim.State.Status)
	require.Equal(t, 160, sim.Config.MaxScore)
	require.NotEmpty(t, sim.Lab.Equipment)
	require.NotEmpty(t, sim.Lab.Procedure)
	require.NotEmpty(t, sim.Lab.SafetyNotes)
	require.Len(t, sims.sims, 1)
	require.Len(t, notes.sent, 1)
	require.Equal(t, models.NotificationSimulationReady, notes.sent[0].Kind)
}

func TestGenerateRejectsNonStudents(t *testing.T) {
	users := &fakeUserReader{users: map[string]*models.User{
		"teacher-1": {ID: "teacher-1", Role: models.RoleTeacher, Active: true},
	}}
	svc := newSimulationServiceForTest(newFakeSimulationRepo(), users, &fakeLimiter{genAllowed: true}, nil, nil)

	_, err := svc.Generate(context.Background(), &models.JWTClaims{UserID: "teacher-1", Role: models.RoleTeacher}, GenerateSimulationRequest{
		Prompt:  "anything",
		Subject: models.SubjectPhysics,
		Level:   1,
	})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestGenerateEnforcesHourlyQuota(t *testing.T) {
	svc := newSimulationServiceForTest(newFakeSimulationRepo(), nil, &fakeLimiter{genAllowed: false}, nil, nil)

	_, err := svc.Generate(context.Background(), studentClaims("student-1"), GenerateSimulationRequest{
		Prompt:  "one more experiment",
		Subject: models.SubjectBiology,
		Level:   2,
	})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrRateLimited.Code, appErr.Code)
}

func TestGenerateQuotaFallsBackToCountQuery(t *testing.T) {
	sims := newFakeSimulationRepo()
	for i := 0; i < 5; i++ {
		sim := playableSimulation("sim-"+string(rune('a'+i)), "student-1")
		sim.CreatedAt = time.Now().UTC()
		sims.sims[sim.ID] = sim
	}
	svc := newSimulationServiceForTest(sims, nil, &fakeLimiter{genErr: errors.New("redis down")}, nil, nil)

	_, err := svc.Generate(context.Background(), studentClaims("student-1"), GenerateSimulationRequest{
		Prompt:  "a sixth experiment",
		Subject: models.SubjectChemistry,
		Level:   1,
	})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrRateLimited.Code, appErr.Code)
}

func TestLifecycleTransitionTable(t *testing.T) {
	cases := []struct {
		from    models.Status
		to      models.Status
		allowed bool
	}{
		{models.StatusNotStarted, models.StatusInProgress, true},
		{models.StatusNotStarted, models.StatusPaused, false},
		{models.StatusNotStarted, models.StatusCompleted, false},
		{models.StatusInProgress, models.StatusPaused, true},
		{models.StatusInProgress, models.StatusCompleted, true},
		{models.StatusInProgress, models.StatusNotStarted, false},
		{models.StatusPaused, models.StatusInProgress, true},
		{models.StatusPaused, models.StatusCompleted, true},
		{models.StatusPaused, models.StatusNotStarted, false},
		{models.StatusCompleted, models.StatusInProgress, false},
		{models.StatusCompleted, models.StatusPaused, false},
		{models.StatusCompleted, models.StatusNotStarted, false},
	}
	for _, tc := range cases {
		require.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestStartStampsStartedAtOnce(t *testing.T) {
	sim := playableSimulation("sim-1", "student-1")
	sim.State.Status = models.StatusNotStarted
	sims := newFakeSimulationRepo(sim)
	svc := newSimulationServiceForTest(sims, nil, nil, nil, nil)

	started, err := svc.Start(context.Background(), studentClaims("student-1"), "sim-1")
	require.NoError(t, err)
	require.Equal(t, models.StatusInProgress, started.State.Status)
	require.NotNil(t, started.State.StartedAt)
	first := *started.State.StartedAt

	_, err = svc.Pause(context.Background(), studentClaims("student-1"), "sim-1")
	require.NoError(t, err)
	resumed, err := svc.Resume(context.Background(), studentClaims("student-1"), "sim-1")
	require.NoError(t, err)
	require.Equal(t, first, *resumed.State.StartedAt)
}

func TestStartRejectsRunningSimulation(t *testing.T) {
	sim := playableSimulation("sim-1", "student-1")
	svc := newSimulationServiceForTest(newFakeSimulationRepo(sim), nil, nil, nil, nil)

	_, err := svc.Start(context.Background(), studentClaims("student-1"), "sim-1")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrInvalidTransition.Code, appErr.Code)
	require.Contains(t, appErr.Message, "in_progress")
}

func TestStartRejectsPausedSimulation(t *testing.T) {
	sim := playableSimulation("sim-1", "student-1")
	sim.State.Status = models.StatusPaused
	sims := newFakeSimulationRepo(sim)
	svc := newSimulationServiceForTest(sims, nil, nil, nil, nil)

	_, err := svc.Start(context.Background(), studentClaims("student-1"), "sim-1")
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrInvalidTransition.Code, appErr.Code)
	require.Contains(t, appErr.Message, "paused")
	require.Equal(t, models.StatusPaused, sims.sims["sim-1"].State.Status)

	resumed, err := svc.Resume(context.Background(), studentClaims("student-1"), "sim-1")
	require.NoError(t, err)
	require.Equal(t, models.StatusInProgress, resumed.State.Status)
}

func TestCompletedIsTerminal(t *testing.T) {
	sim := playableSimulation("sim-1", "student-1")
	sim.State.Status = models.StatusCompleted
	svc := newSimulationServiceForTest(newFakeSimulationRepo(sim), nil, nil, nil, nil)

	_, err := svc.Start(context.Background(), studentClaims("student-1"), "sim-1")
	require.Error(t, err)

	_, err = svc.UpdateState(context.Background(), studentClaims("student-1"), "sim-1", StateUpdateRequest{})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestUpdateStateMergesPatch(t *testing.T) {
	sim := playableSimulation("sim-1", "student-1")
	sims := newFakeSimulationRepo(sim)
	svc := newSimulationServiceForTest(sims, nil, &fakeLimiter{updAllowed: true}, nil, nil)

	step := 3
	progress := 40
	updated, err := svc.UpdateState(context.Background(), studentClaims("student-1"), "sim-1", StateUpdateRequest{
		CurrentStep: &step,
		Progress:    &progress,
		UserInputs:  map[string]interface{}{"volume": 25.0},
		Observations: []models.StepObservation{
			{Step: 3, Text: "solution turned pink"},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 3, updated.State.CurrentStep)
	require.Equal(t, 40, updated.State.Progress)
	require.Equal(t, 25.0, updated.State.UserInputs["volume"])
	require.Len(t, updated.State.Observations, 1)
	require.NotNil(t, updated.State.LastActiveAt)
}

func TestUpdateStateEnforcesFloor(t *testing.T) {
	sim := playableSimulation("sim-1", "student-1")
	svc := newSimulationServiceForTest(newFakeSimulationRepo(sim), nil, &fakeLimiter{updAllowed: false}, nil, nil)

	progress := 10
	_, err := svc.UpdateState(context.Background(), studentClaims("student-1"), "sim-1", StateUpdateRequest{Progress: &progress})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrRateLimited.Code, appErr.Code)
}

func TestUpdateStateDropsSameStatus(t *testing.T) {
	sim := playableSimulation("sim-1", "student-1")
	svc := newSimulationServiceForTest(newFakeSimulationRepo(sim), nil, &fakeLimiter{updAllowed: true}, nil, nil)

	status := models.StatusInProgress
	updated, err := svc.UpdateState(context.Background(), studentClaims("student-1"), "sim-1", StateUpdateRequest{Status: &status})
	require.NoError(t, err)
	require.Equal(t, models.StatusInProgress, updated.State.Status)
}

func TestUpdateStateRejectsIllegalTransition(t *testing.T) {
	sim := playableSimulation("sim-1", "student-1")
	sim.State.Status = models.StatusNotStarted
	svc := newSimulationServiceForTest(newFakeSimulationRepo(sim), nil, &fakeLimiter{updAllowed: true}, nil, nil)

	status := models.StatusPaused
	_, err := svc.UpdateState(context.Background(), studentClaims("student-1"), "sim-1", StateUpdateRequest{Status: &status})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrInvalidTransition.Code, appErr.Code)
}

func TestCompleteDerivesPerformanceFromResults(t *testing.T) {
	sim := playableSimulation("sim-1", "student-1")
	sim.Config.MaxScore = 100
	sims := newFakeSimulationRepo(sim)
	completion := &stubCompletion{}
	svc := newSimulationServiceForTest(sims, nil, nil, completion, nil)

	completed, summary, err := svc.Complete(context.Background(), studentClaims("student-1"), "sim-1", CompleteSimulationRequest{
		Results: map[string]interface{}{"gameScore": 80},
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusCompleted, completed.State.Status)
	require.Equal(t, 100, completed.State.Progress)
	require.NotNil(t, completed.State.CompletedAt)
	require.Equal(t, 80, summary.FinalScore)
	require.Equal(t, PerformanceGood, summary.Performance)
	require.Equal(t, PerformanceGood, completed.State.Results["performance"])
	require.Equal(t, 1, completion.committed)
}

func TestCompleteSurvivesCommitFailure(t *testing.T) {
	sim := playableSimulation("sim-1", "student-1")
	sim.Config.MaxScore = 100
	sims := newFakeSimulationRepo(sim)
	completion := &stubCompletion{commitErr: errors.New("stats store down")}
	svc := newSimulationServiceForTest(sims, nil, nil, completion, nil)

	completed, summary, err := svc.Complete(context.Background(), studentClaims("student-1"), "sim-1", CompleteSimulationRequest{
		Results: map[string]interface{}{"gameScore": 80},
	})
	require.NoError(t, err)
	require.NotNil(t, summary)
	require.Equal(t, models.StatusCompleted, completed.State.Status)
	require.Equal(t, models.StatusCompleted, sims.sims["sim-1"].State.Status)
}

func TestCompleteAwardsBadgesThroughEngine(t *testing.T) {
	sim := playableSimulation("sim-1", "student-1")
	sim.Config.MaxScore = 100
	sim.State.Game.Score = 80
	sims := newFakeSimulationRepo(sim)
	engine := NewCompletionService(&fakeStatsUpdater{}, &fakeGuardianReader{}, nil, nil)
	svc := NewSimulationService(sims, &fakeUserReader{users: map[string]*models.User{
		"student-1": {ID: "student-1", Role: models.RoleStudent, Active: true},
	}}, &fakeStatsReader{}, nil, stubGenerator{}, engine, nil, nil, nil, nil, 5)

	completed, summary, err := svc.Complete(context.Background(), studentClaims("student-1"), "sim-1", CompleteSimulationRequest{})
	require.NoError(t, err)
	require.Equal(t, 80, summary.FinalScore)
	require.Equal(t, PerformanceGood, summary.Performance)
	require.True(t, hasAchievement(completed.State.Game.Achievements, "skilled_researcher"))
	require.False(t, hasAchievement(completed.State.Game.Achievements, "perfect_scientist"))
}

func TestCompleteBackfillsGameResults(t *testing.T) {
	sim := playableSimulation("sim-1", "student-1")
	sim.State.Game.Score = 120
	sim.State.Game.ActionsCompleted = 7
	sims := newFakeSimulationRepo(sim)
	svc := newSimulationServiceForTest(sims, nil, nil, nil, nil)

	completed, _, err := svc.Complete(context.Background(), studentClaims("student-1"), "sim-1", CompleteSimulationRequest{})
	require.NoError(t, err)
	require.Equal(t, 120, completed.State.Results["gameScore"])
	require.Equal(t, 7, completed.State.Results["actionsCompleted"])
}

func TestCompleteRejectsNotStarted(t *testing.T) {
	sim := playableSimulation("sim-1", "student-1")
	sim.State.Status = models.StatusNotStarted
	svc := newSimulationServiceForTest(newFakeSimulationRepo(sim), nil, nil, nil, nil)

	_, _, err := svc.Complete(context.Background(), studentClaims("student-1"), "sim-1", CompleteSimulationRequest{})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrInvalidTransition.Code, appErr.Code)
}

func TestGetVisibilityByRole(t *testing.T) {
	sim := playableSimulation("sim-1", "student-1")
	users := &fakeUserReader{
		users: map[string]*models.User{
			"student-1": {ID: "student-1", Role: models.RoleStudent, Active: true},
		},
		children: map[string][]models.User{
			"parent-1": {{ID: "student-1"}},
		},
	}
	svc := newSimulationServiceForTest(newFakeSimulationRepo(sim), users, nil, nil, nil)

	_, err := svc.Get(context.Background(), studentClaims("student-1"), "sim-1")
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), &models.JWTClaims{UserID: "teacher-1", Role: models.RoleTeacher}, "sim-1")
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), &models.JWTClaims{UserID: "parent-1", Role: models.RoleParent}, "sim-1")
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), studentClaims("student-2"), "sim-1")
	require.Error(t, err)

	_, err = svc.Get(context.Background(), &models.JWTClaims{UserID: "parent-2", Role: models.RoleParent}, "sim-1")
	require.Error(t, err)
}

func TestChildrenProgress(t *testing.T) {
	sim := playableSimulation("sim-1", "student-1")
	sim.State.Status = models.StatusCompleted
	users := &fakeUserReader{
		users: map[string]*models.User{},
		children: map[string][]models.User{
			"parent-1": {{ID: "student-1", FullName: "Ada Lovelace"}},
		},
	}
	svc := newSimulationServiceForTest(newFakeSimulationRepo(sim), users, nil, nil, nil)

	progress, err := svc.ChildrenProgress(context.Background(), "parent-1")
	require.NoError(t, err)
	require.Len(t, progress, 1)
	require.Equal(t, "Ada Lovelace", progress[0].StudentName)
	require.Equal(t, 1, progress[0].Simulations.Completed)
	require.NotNil(t, progress[0].Stats)
}
