package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/virtulab/virtulab-api/internal/ai"
	"github.com/virtulab/virtulab-api/internal/models"
	appErrors "github.com/virtulab/virtulab-api/pkg/errors"
)

type fakeSimulationRepo struct {
	sims    map[string]*models.Simulation
	saveErr error
	saved   int
}

func newFakeSimulationRepo(sims ...*models.Simulation) *fakeSimulationRepo {
	repo := &fakeSimulationRepo{sims: map[string]*models.Simulation{}}
	for _, sim := range sims {
		repo.sims[sim.ID] = sim
	}
	return repo
}

func (r *fakeSimulationRepo) Create(ctx context.Context, sim *models.Simulation) error {
	r.sims[sim.ID] = sim
	return nil
}

func (r *fakeSimulationRepo) FindByID(ctx context.Context, id string) (*models.Simulation, error) {
	sim, ok := r.sims[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return sim, nil
}

func (r *fakeSimulationRepo) Save(ctx context.Context, sim *models.Simulation) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saved++
	r.sims[sim.ID] = sim
	return nil
}

func (r *fakeSimulationRepo) ListByStudent(ctx context.Context, filter models.SimulationFilter) ([]models.Simulation, int, error) {
	var out []models.Simulation
	for _, sim := range r.sims {
		if sim.StudentID == filter.StudentID {
			out = append(out, *sim)
		}
	}
	return out, len(out), nil
}

func (r *fakeSimulationRepo) StatusCounts(ctx context.Context, studentID string) (*models.StatusBreakdown, error) {
	breakdown := &models.StatusBreakdown{}
	for _, sim := range r.sims {
		if sim.StudentID != studentID {
			continue
		}
		switch sim.State.Status {
		case models.StatusNotStarted:
			breakdown.NotStarted++
		case models.StatusInProgress:
			breakdown.InProgress++
		case models.StatusPaused:
			breakdown.Paused++
		case models.StatusCompleted:
			breakdown.Completed++
		}
	}
	return breakdown, nil
}

func (r *fakeSimulationRepo) CountCreatedSince(ctx context.Context, studentID string, since time.Time) (int, error) {
	count := 0
	for _, sim := range r.sims {
		if sim.StudentID == studentID && !sim.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

type fakeActionRepo struct {
	appended []*models.GameAction
}

func (r *fakeActionRepo) Append(ctx context.Context, action *models.GameAction) error {
	r.appended = append(r.appended, action)
	return nil
}

func (r *fakeActionRepo) ListBySimulation(ctx context.Context, simulationID string) ([]models.GameAction, error) {
	var out []models.GameAction
	for _, action := range r.appended {
		if action.SimulationID == simulationID {
			out = append(out, *action)
		}
	}
	return out, nil
}

type scriptedAI struct {
	action *ai.ActionInterpretation
	mixing *ai.MixingInterpretation
	hint   *ai.HintResult
	err    error
}

func (s scriptedAI) GenerateLabContent(ctx context.Context, prompt string) (string, error) {
	return "", errors.New("not implemented")
}

func (s scriptedAI) InterpretAction(ctx context.Context, req ai.ActionRequest) (*ai.ActionInterpretation, error) {
	return s.action, s.err
}

func (s scriptedAI) InterpretMixing(ctx context.Context, req ai.MixingRequest) (*ai.MixingInterpretation, error) {
	return s.mixing, s.err
}

func (s scriptedAI) GenerateHint(ctx context.Context, req ai.HintRequest) (*ai.HintResult, error) {
	return s.hint, s.err
}

func playableSimulation(id, studentID string) *models.Simulation {
	return &models.Simulation{
		ID:        id,
		StudentID: studentID,
		Title:     "Acid-Base Titration Experiment",
		Subject:   models.SubjectChemistry,
		Level:     3,
		Config: models.GameConfig{
			Scoring:  models.ScoringCriteria{CorrectAction: 10, Observation: 5, CompletionBonus: 20},
			MaxScore: 160,
		},
		State: models.SimulationState{
			Status: models.StatusInProgress,
			Game: models.GameState{
				SelectedEquipment: []models.SelectedEquipment{},
				MixedSolutions:    []models.MixedSolution{},
				Observations:      []models.GameObservation{},
				Hints:             []models.Hint{},
				Achievements:      []models.Achievement{},
				Workspace:         map[models.PlacementLocation][]string{},
			},
		},
	}
}

func studentClaims(userID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: userID, Role: models.RoleStudent}
}

func TestCalculateScoreGain(t *testing.T) {
	scoring := models.ScoringCriteria{CorrectAction: 10, Observation: 5}

	cases := []struct {
		name   string
		interp ai.ActionInterpretation
		want   int
	}{
		{"correct with observation, safe", ai.ActionInterpretation{Correct: true, Observation: "color change", Safety: ai.SafetySafe}, 25},
		{"correct without observation", ai.ActionInterpretation{Correct: true, Safety: ai.SafetySafe}, 20},
		{"incorrect but safe", ai.ActionInterpretation{Correct: false, Safety: ai.SafetySafe}, 10},
		{"correct with observation, dangerous", ai.ActionInterpretation{Correct: true, Observation: "smoke", Safety: ai.SafetyDangerous}, 10},
		{"incorrect and dangerous", ai.ActionInterpretation{Correct: false, Safety: ai.SafetyDangerous}, 0},
		{"correct with caution", ai.ActionInterpretation{Correct: true, Safety: ai.SafetyCaution}, 15},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, calculateScoreGain(scoring, &tc.interp))
		})
	}
}

func TestCalculateScoreGainNeverNegativeAndCapped(t *testing.T) {
	scoring := models.ScoringCriteria{CorrectAction: 2, Observation: 1}
	require.Equal(t, 0, calculateScoreGain(scoring, &ai.ActionInterpretation{Safety: ai.SafetyDangerous}))

	big := models.ScoringCriteria{CorrectAction: 100, Observation: 100}
	require.Equal(t, maxActionScore, calculateScoreGain(big, &ai.ActionInterpretation{Correct: true, Observation: "x", Safety: ai.SafetySafe}))
}

func TestCalculateMixingScore(t *testing.T) {
	scoring := models.ScoringCriteria{CorrectAction: 10, Observation: 5}

	require.Equal(t, 25, calculateMixingScore(scoring, &ai.MixingInterpretation{Safety: ai.SafetySafe, Educational: true}))
	require.Equal(t, 20, calculateMixingScore(scoring, &ai.MixingInterpretation{Safety: ai.SafetySafe}))
	require.Equal(t, 15, calculateMixingScore(scoring, &ai.MixingInterpretation{Safety: ai.SafetyCaution}))
	require.Equal(t, 10, calculateMixingScore(scoring, &ai.MixingInterpretation{Safety: ai.SafetyDangerous}))
}

func TestProcessActionFoldsScoreAndState(t *testing.T) {
	sim := playableSimulation("sim-1", "student-1")
	sims := newFakeSimulationRepo(sim)
	actions := &fakeActionRepo{}
	client := scriptedAI{action: &ai.ActionInterpretation{
		Description: "You titrated carefully",
		Explanation: "The base neutralizes the acid",
		Correct:     true,
		Safety:      ai.SafetySafe,
		Observation: "The indicator turned pale pink",
	}}
	svc := NewGameService(sims, actions, client, nil, nil, nil)

	result, err := svc.ProcessAction(context.Background(), studentClaims("student-1"), "sim-1", ProcessActionRequest{
		Kind:      models.ActionUseEquipment,
		Equipment: "Burette",
		Target:    models.LocationBurette,
	})
	require.NoError(t, err)

	require.Equal(t, 25, result.ScoreDelta)
	require.Equal(t, 25, result.TotalScore)
	require.Equal(t, 25, sim.State.Game.Score)
	require.Equal(t, 1, sim.State.Game.ActionsCompleted)
	require.Len(t, sim.State.Game.SelectedEquipment, 1)
	require.Len(t, sim.State.Game.Observations, 1)
	require.Equal(t, []string{"Burette"}, sim.State.Game.Workspace[models.LocationBurette])
	require.NotNil(t, sim.State.LastActiveAt)

	require.Len(t, actions.appended, 1)
	logged := actions.appended[0]
	require.Equal(t, "sim-1", logged.SimulationID)
	require.Equal(t, models.ActionUseEquipment, logged.Kind)
	require.Equal(t, 25, logged.ScoreDelta)
	require.Equal(t, 1, sims.saved)
}

func TestProcessActionFallsBackWhenCapabilityFails(t *testing.T) {
	sim := playableSimulation("sim-1", "student-1")
	sims := newFakeSimulationRepo(sim)
	actions := &fakeActionRepo{}
	svc := NewGameService(sims, actions, scriptedAI{err: errors.New("timeout")}, nil, nil, nil)

	result, err := svc.ProcessAction(context.Background(), studentClaims("student-1"), "sim-1", ProcessActionRequest{
		Kind:      models.ActionObserve,
		Equipment: "Conical Flask",
		Target:    models.LocationObservation,
	})
	require.NoError(t, err)
	require.Equal(t, ai.SafetySafe, result.Safety)
	require.True(t, result.Correct)
	require.Greater(t, result.ScoreDelta, 0)
}

func TestProcessActionRequiresInProgress(t *testing.T) {
	sim := playableSimulation("sim-1", "student-1")
	sim.State.Status = models.StatusPaused
	svc := NewGameService(newFakeSimulationRepo(sim), &fakeActionRepo{}, nil, nil, nil, nil)

	_, err := svc.ProcessAction(context.Background(), studentClaims("student-1"), "sim-1", ProcessActionRequest{
		Kind:      models.ActionObserve,
		Equipment: "Flask",
		Target:    models.LocationObservation,
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrConflict.Code, appErr.Code)
}

func TestProcessActionHidesForeignSimulations(t *testing.T) {
	sim := playableSimulation("sim-1", "student-1")
	svc := NewGameService(newFakeSimulationRepo(sim), &fakeActionRepo{}, nil, nil, nil, nil)

	_, err := svc.ProcessAction(context.Background(), studentClaims("student-2"), "sim-1", ProcessActionRequest{
		Kind:      models.ActionObserve,
		Equipment: "Flask",
		Target:    models.LocationObservation,
	})
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestMixChemicalsRecordsSolutionAndObservation(t *testing.T) {
	sim := playableSimulation("sim-1", "student-1")
	sims := newFakeSimulationRepo(sim)
	actions := &fakeActionRepo{}
	client := scriptedAI{mixing: &ai.MixingInterpretation{
		Result:            "Neutralization",
		Explanation:       "Acid and base form salt and water",
		VisualEffect:      "solution turns pink then clears",
		ResultingSolution: "sodium chloride solution",
		Safety:            ai.SafetySafe,
		Educational:       true,
	}}
	svc := NewGameService(sims, actions, client, nil, nil, nil)

	result, err := svc.MixChemicals(context.Background(), studentClaims("student-1"), "sim-1", MixChemicalsRequest{
		ChemicalA: "Hydrochloric Acid",
		ChemicalB: "Sodium Hydroxide",
	})
	require.NoError(t, err)
	require.Equal(t, 25, result.ScoreDelta)
	require.Len(t, sim.State.Game.MixedSolutions, 1)
	require.Equal(t, []string{"Hydrochloric Acid", "Sodium Hydroxide"}, sim.State.Game.MixedSolutions[0].Components)
	require.Len(t, sim.State.Game.Observations, 1)
	require.Len(t, actions.appended, 1)
	require.Equal(t, models.ActionMixChemicals, actions.appended[0].Kind)
}

func TestRequestHintDoesNotScore(t *testing.T) {
	sim := playableSimulation("sim-1", "student-1")
	sims := newFakeSimulationRepo(sim)
	svc := NewGameService(sims, &fakeActionRepo{}, scriptedAI{err: errors.New("down")}, nil, nil, nil)

	hint, err := svc.RequestHint(context.Background(), studentClaims("student-1"), "sim-1", HintRequestPayload{StrugglingArea: "titration"})
	require.NoError(t, err)
	require.NotEmpty(t, hint.Text)
	require.Equal(t, 0, sim.State.Game.Score)
	require.Len(t, sim.State.Game.Hints, 1)
}

func TestRemoveItemClearsWorkspaceSlot(t *testing.T) {
	sim := playableSimulation("sim-1", "student-1")
	sim.State.Game.Workspace[models.LocationBeaker] = []string{"Beaker"}
	sims := newFakeSimulationRepo(sim)
	client := scriptedAI{action: &ai.ActionInterpretation{Correct: true, Safety: ai.SafetySafe}}
	svc := NewGameService(sims, &fakeActionRepo{}, client, nil, nil, nil)

	_, err := svc.ProcessAction(context.Background(), studentClaims("student-1"), "sim-1", ProcessActionRequest{
		Kind:      models.ActionRemoveItem,
		Equipment: "Beaker",
		Target:    models.LocationBeaker,
	})
	require.NoError(t, err)
	require.Empty(t, sim.State.Game.Workspace[models.LocationBeaker])
}
