package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/virtulab/virtulab-api/internal/ai"
	"github.com/virtulab/virtulab-api/internal/models"
	appErrors "github.com/virtulab/virtulab-api/pkg/errors"
)

const (
	maxActionScore = 25
	maxMixingScore = 30

	dangerousPenalty = 15
	cautionPenalty   = 5

	safeMixBonus    = 10
	cautionMixBonus = 5
)

type actionRepo interface {
	Append(ctx context.Context, action *models.GameAction) error
	ListBySimulation(ctx context.Context, simulationID string) ([]models.GameAction, error)
}

// ProcessActionRequest is the payload for one gamified action.
type ProcessActionRequest struct {
	Kind      models.ActionKind        `json:"action" validate:"required"`
	Equipment string                   `json:"equipment" validate:"required"`
	Target    models.PlacementLocation `json:"target" validate:"required"`
	Context   string                   `json:"context,omitempty"`
}

// MixChemicalsRequest is the payload for mixing two chemicals.
type MixChemicalsRequest struct {
	ChemicalA string `json:"chemical_a" validate:"required"`
	ChemicalB string `json:"chemical_b" validate:"required"`
}

// HintRequestPayload asks for one hint, optionally naming a struggling area.
type HintRequestPayload struct {
	StrugglingArea string `json:"struggling_area,omitempty"`
}

// ActionResult is the narrative plus score feedback returned per action.
type ActionResult struct {
	Description    string          `json:"description"`
	Explanation    string          `json:"explanation"`
	Correct        bool            `json:"correct"`
	Safety         ai.SafetyRating `json:"safety"`
	Observation    string          `json:"observation,omitempty"`
	ScoreDelta     int             `json:"score_delta"`
	TotalScore     int             `json:"total_score"`
	Achievements   []string        `json:"achievements,omitempty"`
	Hints          []string        `json:"hints,omitempty"`
	NextSuggestion string          `json:"next_suggestion,omitempty"`
}

// MixingResult is the narrative plus score feedback for a chemical mix.
type MixingResult struct {
	Result            string          `json:"result"`
	Explanation       string          `json:"explanation"`
	VisualEffect      string          `json:"visual_effect"`
	ResultingSolution string          `json:"resulting_solution"`
	Safety            ai.SafetyRating `json:"safety"`
	Educational       bool            `json:"educational"`
	ScoreDelta        int             `json:"score_delta"`
	TotalScore        int             `json:"total_score"`
}

// GameService interprets gamified actions against the external capability
// (or its deterministic fallback), scores them, and folds the outcome into
// the simulation's game sub-state plus the append-only action log.
type GameService struct {
	sims      simulationRepo
	actions   actionRepo
	ai        ai.Client
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewGameService constructs GameService.
func NewGameService(sims simulationRepo, actions actionRepo, client ai.Client, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *GameService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GameService{
		sims:      sims,
		actions:   actions,
		ai:        client,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ProcessAction interprets and scores one gamified action for an in_progress
// simulation, appending the result to the game sub-state and the action log.
func (s *GameService) ProcessAction(ctx context.Context, actor *models.JWTClaims, simulationID string, req ProcessActionRequest) (*ActionResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid action payload")
	}
	if !req.Kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown action kind")
	}
	if !req.Target.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown target location")
	}

	sim, err := s.loadPlayable(ctx, actor, simulationID)
	if err != nil {
		return nil, err
	}

	interp := s.interpretAction(ctx, sim, req)
	delta := calculateScoreGain(sim.Config.Scoring, interp)
	now := s.now()

	game := &sim.State.Game
	game.CurrentAction = string(req.Kind)
	game.Score += delta
	game.ActionsCompleted++
	game.SelectedEquipment = append(game.SelectedEquipment, models.SelectedEquipment{
		Name:      req.Equipment,
		Location:  req.Target,
		Timestamp: now,
	})
	if interp.Observation != "" {
		game.Observations = append(game.Observations, models.GameObservation{
			Action:      string(req.Kind),
			Result:      interp.Observation,
			Explanation: interp.Explanation,
			Timestamp:   now,
		})
	}
	for _, id := range interp.Achievements {
		if !hasAchievement(game.Achievements, id) {
			game.Achievements = append(game.Achievements, models.Achievement{ID: id, Name: id, UnlockedAt: now})
		}
	}
	s.placeInWorkspace(game, req)
	sim.State.LastActiveAt = &now

	action := &models.GameAction{
		ID:           uuid.NewString(),
		SimulationID: sim.ID,
		StudentID:    sim.StudentID,
		Kind:         req.Kind,
		Equipment:    req.Equipment,
		Target:       req.Target,
		Result: models.JSONMap{
			"description": interp.Description,
			"explanation": interp.Explanation,
			"correct":     interp.Correct,
			"safety":      interp.Safety,
		},
		ScoreDelta: delta,
		CreatedAt:  now,
	}
	if err := s.actions.Append(ctx, action); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record action")
	}
	if err := s.sims.Save(ctx, sim); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist game state")
	}
	if s.metrics != nil {
		s.metrics.RecordActionProcessed(string(req.Kind))
	}

	return &ActionResult{
		Description:    interp.Description,
		Explanation:    interp.Explanation,
		Correct:        interp.Correct,
		Safety:         interp.Safety,
		Observation:    interp.Observation,
		ScoreDelta:     delta,
		TotalScore:     game.Score,
		Achievements:   interp.Achievements,
		Hints:          interp.Hints,
		NextSuggestion: interp.NextSuggestion,
	}, nil
}

// MixChemicals interprets and scores a chemical mix.
func (s *GameService) MixChemicals(ctx context.Context, actor *models.JWTClaims, simulationID string, req MixChemicalsRequest) (*MixingResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid mixing payload")
	}

	sim, err := s.loadPlayable(ctx, actor, simulationID)
	if err != nil {
		return nil, err
	}

	interp := s.interpretMixing(ctx, sim, req)
	delta := calculateMixingScore(sim.Config.Scoring, interp)
	now := s.now()

	game := &sim.State.Game
	game.CurrentAction = string(models.ActionMixChemicals)
	game.Score += delta
	game.ActionsCompleted++
	game.MixedSolutions = append(game.MixedSolutions, models.MixedSolution{
		Components:   []string{req.ChemicalA, req.ChemicalB},
		Result:       interp.ResultingSolution,
		VisualEffect: interp.VisualEffect,
		Timestamp:    now,
	})
	if interp.Educational {
		game.Observations = append(game.Observations, models.GameObservation{
			Action:       string(models.ActionMixChemicals),
			Result:       interp.Result,
			Explanation:  interp.Explanation,
			VisualEffect: interp.VisualEffect,
			Timestamp:    now,
		})
	}
	sim.State.LastActiveAt = &now

	action := &models.GameAction{
		ID:           uuid.NewString(),
		SimulationID: sim.ID,
		StudentID:    sim.StudentID,
		Kind:         models.ActionMixChemicals,
		Equipment:    req.ChemicalA + " + " + req.ChemicalB,
		Target:       models.LocationBeaker,
		Result: models.JSONMap{
			"result":       interp.Result,
			"explanation":  interp.Explanation,
			"visualEffect": interp.VisualEffect,
			"safety":       interp.Safety,
			"educational":  interp.Educational,
		},
		ScoreDelta: delta,
		CreatedAt:  now,
	}
	if err := s.actions.Append(ctx, action); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record action")
	}
	if err := s.sims.Save(ctx, sim); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist game state")
	}
	if s.metrics != nil {
		s.metrics.RecordActionProcessed(string(models.ActionMixChemicals))
	}

	return &MixingResult{
		Result:            interp.Result,
		Explanation:       interp.Explanation,
		VisualEffect:      interp.VisualEffect,
		ResultingSolution: interp.ResultingSolution,
		Safety:            interp.Safety,
		Educational:       interp.Educational,
		ScoreDelta:        delta,
		TotalScore:        game.Score,
	}, nil
}

// RequestHint produces a single hint and appends it to the hint log. Hints
// never affect the score.
func (s *GameService) RequestHint(ctx context.Context, actor *models.JWTClaims, simulationID string, req HintRequestPayload) (*models.Hint, error) {
	sim, err := s.loadPlayable(ctx, actor, simulationID)
	if err != nil {
		return nil, err
	}

	result := s.generateHint(ctx, sim, req.StrugglingArea)
	hint := models.Hint{
		Text:        result.Text,
		Type:        result.Type,
		Specificity: result.Specificity,
		Timestamp:   s.now(),
	}
	sim.State.Game.Hints = append(sim.State.Game.Hints, hint)

	if err := s.sims.Save(ctx, sim); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist hint")
	}
	return &hint, nil
}

// ListActions returns the append-only action log for a simulation.
func (s *GameService) ListActions(ctx context.Context, actor *models.JWTClaims, simulationID string) ([]models.GameAction, error) {
	sim, err := s.loadPlayableAny(ctx, actor, simulationID)
	if err != nil {
		return nil, err
	}
	actions, err := s.actions.ListBySimulation(ctx, sim.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list actions")
	}
	return actions, nil
}

func (s *GameService) loadPlayable(ctx context.Context, actor *models.JWTClaims, id string) (*models.Simulation, error) {
	sim, err := s.loadPlayableAny(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if sim.State.Status != models.StatusInProgress {
		return nil, appErrors.Clone(appErrors.ErrConflict, "simulation is not in progress")
	}
	return sim, nil
}

func (s *GameService) loadPlayableAny(ctx context.Context, actor *models.JWTClaims, id string) (*models.Simulation, error) {
	sim, err := s.sims.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "simulation not found")
	}
	if actor == nil || actor.Role != models.RoleStudent || sim.StudentID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "simulation not found")
	}
	return sim, nil
}

func (s *GameService) placeInWorkspace(game *models.GameState, req ProcessActionRequest) {
	if game.Workspace == nil {
		game.Workspace = map[models.PlacementLocation][]string{}
	}
	switch req.Kind {
	case models.ActionPlaceItem, models.ActionUseEquipment:
		game.Workspace[req.Target] = append(game.Workspace[req.Target], req.Equipment)
	case models.ActionRemoveItem:
		items := game.Workspace[req.Target]
		for i, item := range items {
			if item == req.Equipment {
				game.Workspace[req.Target] = append(items[:i], items[i+1:]...)
				break
			}
		}
	}
}

// interpretAction consults the capability, substituting the deterministic
// per-kind fallback on any failure so the student's action is never dropped.
func (s *GameService) interpretAction(ctx context.Context, sim *models.Simulation, req ProcessActionRequest) *ai.ActionInterpretation {
	if s.ai != nil {
		interp, err := s.ai.InterpretAction(ctx, ai.ActionRequest{
			Kind:      req.Kind,
			Equipment: req.Equipment,
			Target:    req.Target,
			GameState: sim.State.Game,
			Context:   simulationContext(sim),
		})
		if err == nil {
			return interp
		}
		s.logger.Warn("action interpretation fell back", zap.String("simulation_id", sim.ID), zap.Error(err))
		if s.metrics != nil {
			s.metrics.RecordCapabilityFailure("interpret_action")
		}
	}
	return fallbackActionInterpretation(req.Kind, req.Equipment)
}

func (s *GameService) interpretMixing(ctx context.Context, sim *models.Simulation, req MixChemicalsRequest) *ai.MixingInterpretation {
	if s.ai != nil {
		interp, err := s.ai.InterpretMixing(ctx, ai.MixingRequest{
			ChemicalA: req.ChemicalA,
			ChemicalB: req.ChemicalB,
			GameState: sim.State.Game,
			Context:   simulationContext(sim),
		})
		if err == nil {
			return interp
		}
		s.logger.Warn("mixing interpretation fell back", zap.String("simulation_id", sim.ID), zap.Error(err))
		if s.metrics != nil {
			s.metrics.RecordCapabilityFailure("interpret_mixing")
		}
	}
	return fallbackMixingInterpretation(req.ChemicalA, req.ChemicalB)
}

func (s *GameService) generateHint(ctx context.Context, sim *models.Simulation, strugglingArea string) *ai.HintResult {
	if s.ai != nil {
		hint, err := s.ai.GenerateHint(ctx, ai.HintRequest{
			GameState:      sim.State.Game,
			StrugglingArea: strugglingArea,
			Context:        simulationContext(sim),
		})
		if err == nil {
			return hint
		}
		s.logger.Warn("hint generation fell back", zap.String("simulation_id", sim.ID), zap.Error(err))
		if s.metrics != nil {
			s.metrics.RecordCapabilityFailure("generate_hint")
		}
	}
	return fallbackHint(sim, strugglingArea)
}

func simulationContext(sim *models.Simulation) ai.SimulationContext {
	return ai.SimulationContext{Title: sim.Title, Subject: sim.Subject, Level: sim.Level}
}

// calculateScoreGain derives the per-action score delta: the correct-action
// weight as base, doubled when the action is judged correct, plus the
// observation weight when an observation was produced, minus safety
// penalties. The delta is floored at zero and capped at maxActionScore.
func calculateScoreGain(scoring models.ScoringCriteria, interp *ai.ActionInterpretation) int {
	gain := scoring.CorrectAction
	if interp.Correct {
		gain += scoring.CorrectAction
	}
	if interp.Observation != "" {
		gain += scoring.Observation
	}
	switch interp.Safety {
	case ai.SafetyDangerous:
		gain -= dangerousPenalty
	case ai.SafetyCaution:
		gain -= cautionPenalty
	}
	if gain < 0 {
		gain = 0
	}
	if gain > maxActionScore {
		gain = maxActionScore
	}
	return gain
}

// calculateMixingScore derives the chemical-mixing score delta: base weight,
// plus a safety bonus, plus the observation weight for educationally valuable
// reactions, capped at maxMixingScore.
func calculateMixingScore(scoring models.ScoringCriteria, interp *ai.MixingInterpretation) int {
	score := scoring.CorrectAction
	switch interp.Safety {
	case ai.SafetySafe:
		score += safeMixBonus
	case ai.SafetyCaution:
		score += cautionMixBonus
	}
	if interp.Educational {
		score += scoring.Observation
	}
	if score < 0 {
		score = 0
	}
	if score > maxMixingScore {
		score = maxMixingScore
	}
	return score
}
