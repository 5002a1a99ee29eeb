package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/virtulab/virtulab-api/internal/dto"
	"github.com/virtulab/virtulab-api/internal/models"
	appErrors "github.com/virtulab/virtulab-api/pkg/errors"
)

type simulationRepo interface {
	Create(ctx context.Context, sim *models.Simulation) error
	FindByID(ctx context.Context, id string) (*models.Simulation, error)
	Save(ctx context.Context, sim *models.Simulation) error
	ListByStudent(ctx context.Context, filter models.SimulationFilter) ([]models.Simulation, int, error)
	StatusCounts(ctx context.Context, studentID string) (*models.StatusBreakdown, error)
	CountCreatedSince(ctx context.Context, studentID string, since time.Time) (int, error)
}

type userReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	ChildrenOf(ctx context.Context, guardianID string) ([]models.User, error)
}

type statsReader interface {
	GetByStudent(ctx context.Context, studentID string) (*models.StudentGameStats, error)
}

// RateLimiter guards the write-heavy simulation endpoints. Exported so the
// composition root can pass an untyped nil when Redis is disabled.
type RateLimiter interface {
	// AllowGeneration reports whether the student may generate another
	// simulation within the rolling window.
	AllowGeneration(ctx context.Context, studentID string) (bool, error)
	// AllowStateUpdate reports whether the per-simulation update floor has
	// elapsed since the last accepted update.
	AllowStateUpdate(ctx context.Context, simulationID string) (bool, error)
}

type notifier interface {
	Send(ctx context.Context, userID string, kind models.NotificationType, title, message string, data models.JSONMap, link string)
}

type contentGenerator interface {
	Generate(ctx context.Context, prompt string, subject models.Subject, level int) *GeneratedContent
}

type completionEngine interface {
	Evaluate(sim *models.Simulation) *CompletionSummary
	Commit(ctx context.Context, sim *models.Simulation, summary *CompletionSummary) error
}

// GenerateSimulationRequest is the payload for creating a simulation.
type GenerateSimulationRequest struct {
	Prompt  string         `json:"prompt" validate:"required,max=500"`
	Subject models.Subject `json:"subject" validate:"required"`
	Level   int            `json:"level" validate:"required,min=1,max=5"`
}

// StateUpdateRequest is a partial patch of the lifecycle state, used for
// incremental client-driven persistence.
type StateUpdateRequest struct {
	Status       *models.Status           `json:"status,omitempty"`
	CurrentStep  *int                     `json:"currentStep,omitempty" validate:"omitempty,min=0"`
	Progress     *int                     `json:"progress,omitempty" validate:"omitempty,min=0,max=100"`
	UserInputs   map[string]interface{}   `json:"userInputs,omitempty"`
	Observations []models.StepObservation `json:"observations,omitempty"`
	Results      map[string]interface{}   `json:"results,omitempty"`
}

// CompleteSimulationRequest carries caller-supplied final results.
type CompleteSimulationRequest struct {
	Results map[string]interface{} `json:"results,omitempty"`
}

// SimulationService owns the simulation lifecycle: generation, state
// transitions, incremental updates, and completion hand-off.
type SimulationService struct {
	sims          simulationRepo
	users         userReader
	stats         statsReader
	limiter       RateLimiter
	generator     contentGenerator
	completion    completionEngine
	notifications notifier
	metrics       *MetricsService
	validator     *validator.Validate
	logger        *zap.Logger
	hourlyCap     int
	now           func() time.Time
}

// NewSimulationService constructs SimulationService.
func NewSimulationService(
	sims simulationRepo,
	users userReader,
	stats statsReader,
	limiter RateLimiter,
	generator contentGenerator,
	completion completionEngine,
	notifications notifier,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	hourlyCap int,
) *SimulationService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if hourlyCap <= 0 {
		hourlyCap = 5
	}
	return &SimulationService{
		sims:          sims,
		users:         users,
		stats:         stats,
		limiter:       limiter,
		generator:     generator,
		completion:    completion,
		notifications: notifications,
		metrics:       metrics,
		validator:     validate,
		logger:        logger,
		hourlyCap:     hourlyCap,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Generate validates the request, enforces the generation quota, invokes the
// content generator, and persists the new simulation.
func (s *SimulationService) Generate(ctx context.Context, actor *models.JWTClaims, req GenerateSimulationRequest) (*models.Simulation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generation payload")
	}
	if !req.Subject.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown subject")
	}

	student, err := s.users.FindByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if student.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
	}

	if err := s.checkGenerationQuota(ctx, student.ID); err != nil {
		return nil, err
	}

	content := s.generator.Generate(ctx, req.Prompt, req.Subject, req.Level)

	now := s.now()
	sim := &models.Simulation{
		ID:                uuid.NewString(),
		StudentID:         student.ID,
		Title:             content.Title,
		Description:       content.Description,
		Prompt:            req.Prompt,
		Subject:           req.Subject,
		Level:             req.Level,
		ExperimentType:    content.ExperimentType,
		EstimatedDuration: content.EstimatedDuration,
		DifficultyTier:    content.DifficultyTier,
		Lab:               content.Lab,
		Config:            content.Config,
		State: models.SimulationState{
			Status: models.StatusNotStarted,
			Game: models.GameState{
				SelectedEquipment: []models.SelectedEquipment{},
				MixedSolutions:    []models.MixedSolution{},
				Observations:      []models.GameObservation{},
				Hints:             []models.Hint{},
				Achievements:      []models.Achievement{},
				Workspace:         map[models.PlacementLocation][]string{},
			},
			Observations: []models.StepObservation{},
		},
		AI:        content.AI,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.sims.Create(ctx, sim); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist simulation")
	}

	if s.metrics != nil {
		s.metrics.RecordSimulationGenerated(content.AI.Fallback)
	}
	if s.notifications != nil {
		s.notifications.Send(ctx, student.ID, models.NotificationSimulationReady,
			"Your experiment is ready",
			"The virtual lab \""+sim.Title+"\" has been generated and is ready to start.",
			models.JSONMap{"simulation_id": sim.ID, "subject": sim.Subject},
			"/simulations/"+sim.ID)
	}

	return sim, nil
}

func (s *SimulationService) checkGenerationQuota(ctx context.Context, studentID string) error {
	if s.limiter != nil {
		allowed, err := s.limiter.AllowGeneration(ctx, studentID)
		if err == nil {
			if !allowed {
				return appErrors.Clone(appErrors.ErrRateLimited, "generation quota reached, try again in an hour")
			}
			return nil
		}
		s.logger.Warn("generation limiter unavailable, falling back to count query", zap.Error(err))
	}
	count, err := s.sims.CountCreatedSince(ctx, studentID, s.now().Add(-time.Hour))
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check generation quota")
	}
	if count >= s.hourlyCap {
		return appErrors.Clone(appErrors.ErrRateLimited, "generation quota reached, try again in an hour")
	}
	return nil
}

// List returns a student's simulations with pagination and a status breakdown.
func (s *SimulationService) List(ctx context.Context, actor *models.JWTClaims, filter models.SimulationFilter) ([]models.Simulation, *models.Pagination, *models.StatusBreakdown, error) {
	if actor.Role == models.RoleStudent {
		filter.StudentID = actor.UserID
	}
	if filter.StudentID == "" {
		return nil, nil, nil, appErrors.Clone(appErrors.ErrValidation, "student id required")
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > 100 {
		filter.PageSize = 20
	}

	sims, total, err := s.sims.ListByStudent(ctx, filter)
	if err != nil {
		return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list simulations")
	}
	counts, err := s.sims.StatusCounts(ctx, filter.StudentID)
	if err != nil {
		return nil, nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count simulations")
	}
	pagination := &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: total}
	return sims, pagination, counts, nil
}

// Get loads one simulation, enforcing role/ownership visibility.
func (s *SimulationService) Get(ctx context.Context, actor *models.JWTClaims, id string) (*models.Simulation, error) {
	return s.loadVisible(ctx, actor, id)
}

// Start moves a not_started simulation to in_progress and stamps the start
// timestamp. Paused simulations go back through Resume, not Start.
func (s *SimulationService) Start(ctx context.Context, actor *models.JWTClaims, id string) (*models.Simulation, error) {
	sim, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if sim.State.Status != models.StatusNotStarted {
		return nil, appErrors.InvalidTransition(string(sim.State.Status), string(models.StatusInProgress))
	}
	now := s.now()
	sim.State.Status = models.StatusInProgress
	sim.State.LastActiveAt = &now
	sim.State.StartedAt = &now
	if err := s.save(ctx, sim); err != nil {
		return nil, err
	}
	return sim, nil
}

// Pause moves an in_progress simulation to paused.
func (s *SimulationService) Pause(ctx context.Context, actor *models.JWTClaims, id string) (*models.Simulation, error) {
	sim, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if sim.State.Status != models.StatusInProgress {
		return nil, appErrors.InvalidTransition(string(sim.State.Status), string(models.StatusPaused))
	}
	now := s.now()
	sim.State.Status = models.StatusPaused
	sim.State.LastActiveAt = &now
	if err := s.save(ctx, sim); err != nil {
		return nil, err
	}
	return sim, nil
}

// Resume moves a paused simulation back to in_progress.
func (s *SimulationService) Resume(ctx context.Context, actor *models.JWTClaims, id string) (*models.Simulation, error) {
	sim, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if sim.State.Status != models.StatusPaused {
		return nil, appErrors.InvalidTransition(string(sim.State.Status), string(models.StatusInProgress))
	}
	now := s.now()
	sim.State.Status = models.StatusInProgress
	sim.State.LastActiveAt = &now
	if err := s.save(ctx, sim); err != nil {
		return nil, err
	}
	return sim, nil
}

// Complete finalizes the simulation: transition check, result merging with
// game sub-state backfill, badge derivation, aggregate stats update, and
// notification fan-out.
func (s *SimulationService) Complete(ctx context.Context, actor *models.JWTClaims, id string, req CompleteSimulationRequest) (*models.Simulation, *CompletionSummary, error) {
	sim, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, nil, err
	}
	if !sim.State.Status.CanTransitionTo(models.StatusCompleted) {
		return nil, nil, appErrors.InvalidTransition(string(sim.State.Status), string(models.StatusCompleted))
	}

	now := s.now()
	sim.State.Status = models.StatusCompleted
	sim.State.Progress = 100
	sim.State.CompletedAt = &now
	sim.State.LastActiveAt = &now

	if sim.State.Results == nil {
		sim.State.Results = map[string]interface{}{}
	}
	for k, v := range req.Results {
		sim.State.Results[k] = v
	}
	backfillResult(sim.State.Results, "gameScore", sim.State.Game.Score)
	backfillResult(sim.State.Results, "actionsCompleted", sim.State.Game.ActionsCompleted)
	backfillResult(sim.State.Results, "observationsMade", len(sim.State.Game.Observations))
	backfillResult(sim.State.Results, "hintsUsed", len(sim.State.Game.Hints))

	summary := s.completion.Evaluate(sim)
	sim.State.Results["performance"] = summary.Performance
	for _, badge := range summary.Badges {
		if !hasAchievement(sim.State.Game.Achievements, badge.ID) {
			sim.State.Game.Achievements = append(sim.State.Game.Achievements, badge)
		}
	}

	if err := s.save(ctx, sim); err != nil {
		return nil, nil, err
	}

	// The simulation is terminal once saved; a failed stats or notification
	// commit must not surface as a failed completion.
	if err := s.completion.Commit(ctx, sim, summary); err != nil {
		s.logger.Error("completion commit failed after save",
			zap.String("simulation_id", sim.ID),
			zap.String("student_id", sim.StudentID),
			zap.Error(err))
	}
	if s.metrics != nil {
		s.metrics.RecordSimulationCompleted(string(sim.Subject))
	}
	return sim, summary, nil
}

func backfillResult(results map[string]interface{}, key string, value int) {
	if _, ok := results[key]; !ok {
		results[key] = value
	}
}

func hasAchievement(list []models.Achievement, id string) bool {
	for _, a := range list {
		if a.ID == id {
			return true
		}
	}
	return false
}

// UpdateState applies a partial state patch, subject to the one-accepted
// update-per-second floor and the lifecycle transition table.
func (s *SimulationService) UpdateState(ctx context.Context, actor *models.JWTClaims, id string, req StateUpdateRequest) (*models.Simulation, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid state patch")
	}

	sim, err := s.loadOwned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if sim.State.Status == models.StatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrConflict, "completed simulation can no longer be updated")
	}

	if s.limiter != nil {
		allowed, limitErr := s.limiter.AllowStateUpdate(ctx, sim.ID)
		if limitErr != nil {
			s.logger.Warn("update limiter unavailable, accepting update", zap.Error(limitErr))
		} else if !allowed {
			return nil, appErrors.Clone(appErrors.ErrRateLimited, "state updates are limited to one per second, retry shortly")
		}
	}

	now := s.now()
	if req.Status != nil && *req.Status != sim.State.Status {
		target := *req.Status
		if !sim.State.Status.CanTransitionTo(target) {
			return nil, appErrors.InvalidTransition(string(sim.State.Status), string(target))
		}
		sim.State.Status = target
		switch target {
		case models.StatusInProgress:
			if sim.State.StartedAt == nil {
				sim.State.StartedAt = &now
			}
		case models.StatusCompleted:
			sim.State.Progress = 100
			sim.State.CompletedAt = &now
		}
	}
	// A status equal to the current one is dropped from the patch.

	if req.CurrentStep != nil {
		sim.State.CurrentStep = *req.CurrentStep
	}
	if req.Progress != nil {
		sim.State.Progress = *req.Progress
	}
	if len(req.UserInputs) > 0 {
		if sim.State.UserInputs == nil {
			sim.State.UserInputs = map[string]interface{}{}
		}
		for k, v := range req.UserInputs {
			sim.State.UserInputs[k] = v
		}
	}
	if len(req.Observations) > 0 {
		sim.State.Observations = append(sim.State.Observations, req.Observations...)
	}
	if len(req.Results) > 0 {
		if sim.State.Results == nil {
			sim.State.Results = map[string]interface{}{}
		}
		for k, v := range req.Results {
			sim.State.Results[k] = v
		}
	}
	sim.State.LastActiveAt = &now

	if err := s.save(ctx, sim); err != nil {
		return nil, err
	}
	return sim, nil
}

// ChildrenProgress builds the guardian roll-up: per linked child, the
// simulation status breakdown and the aggregate game stats.
func (s *SimulationService) ChildrenProgress(ctx context.Context, guardianID string) ([]dto.ChildProgress, error) {
	children, err := s.users.ChildrenOf(ctx, guardianID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load linked students")
	}
	progress := make([]dto.ChildProgress, 0, len(children))
	for _, child := range children {
		counts, err := s.sims.StatusCounts(ctx, child.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count simulations")
		}
		entry := dto.ChildProgress{
			StudentID:   child.ID,
			StudentName: child.FullName,
			Simulations: *counts,
		}
		if s.stats != nil {
			stats, err := s.stats.GetByStudent(ctx, child.ID)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load game stats")
			}
			entry.Stats = stats
		}
		progress = append(progress, entry)
	}
	return progress, nil
}

// loadOwned loads a simulation and requires the actor to be its owning student.
func (s *SimulationService) loadOwned(ctx context.Context, actor *models.JWTClaims, id string) (*models.Simulation, error) {
	sim, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor == nil || actor.Role != models.RoleStudent || sim.StudentID != actor.UserID {
		// Ownership failures surface as not-found so simulation ids are not
		// enumerable across students.
		return nil, appErrors.Clone(appErrors.ErrNotFound, "simulation not found")
	}
	return sim, nil
}

// loadVisible loads a simulation readable by the actor: the owning student,
// a linked guardian, or staff.
func (s *SimulationService) loadVisible(ctx context.Context, actor *models.JWTClaims, id string) (*models.Simulation, error) {
	sim, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "simulation not found")
	}
	switch actor.Role {
	case models.RoleAdmin, models.RoleTeacher:
		return sim, nil
	case models.RoleStudent:
		if sim.StudentID == actor.UserID {
			return sim, nil
		}
	case models.RoleParent:
		children, err := s.users.ChildrenOf(ctx, actor.UserID)
		if err == nil {
			for _, child := range children {
				if child.ID == sim.StudentID {
					return sim, nil
				}
			}
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "simulation not found")
}

func (s *SimulationService) load(ctx context.Context, id string) (*models.Simulation, error) {
	sim, err := s.sims.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "simulation not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load simulation")
	}
	return sim, nil
}

func (s *SimulationService) save(ctx context.Context, sim *models.Simulation) error {
	if err := s.sims.Save(ctx, sim); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return appErr
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist simulation")
	}
	sim.UpdatedAt = s.now()
	return nil
}
