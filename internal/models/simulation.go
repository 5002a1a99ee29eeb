package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Subject enumerates the supported science subjects.
type Subject string

const (
	SubjectChemistry Subject = "chemistry"
	SubjectPhysics   Subject = "physics"
	SubjectBiology   Subject = "biology"
	SubjectGeneral   Subject = "general"
)

// Valid reports whether the subject belongs to the fixed enumeration.
func (s Subject) Valid() bool {
	switch s {
	case SubjectChemistry, SubjectPhysics, SubjectBiology, SubjectGeneral:
		return true
	}
	return false
}

// Status represents the simulation lifecycle state.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusInProgress Status = "in_progress"
	StatusPaused     Status = "paused"
	StatusCompleted  Status = "completed"
)

// transitions is the full lifecycle table. Completed is terminal.
var transitions = map[Status][]Status{
	StatusNotStarted: {StatusInProgress},
	StatusInProgress: {StatusPaused, StatusCompleted},
	StatusPaused:     {StatusInProgress, StatusCompleted},
	StatusCompleted:  {},
}

// CanTransitionTo reports whether moving from s to target is allowed.
func (s Status) CanTransitionTo(target Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// EquipmentCategory buckets equipment for workspace placement and icons.
type EquipmentCategory string

const (
	CategoryGlassware   EquipmentCategory = "glassware"
	CategoryMeasurement EquipmentCategory = "measurement"
	CategoryHeating     EquipmentCategory = "heating"
	CategoryOptics      EquipmentCategory = "optics"
	CategorySafety      EquipmentCategory = "safety"
	CategoryGeneric     EquipmentCategory = "general"
)

// Equipment is one item of lab apparatus.
type Equipment struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Icon        string            `json:"icon"`
	Category    EquipmentCategory `json:"category"`
}

// Chemical is one reagent available in the virtual lab.
type Chemical struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Formula       string `json:"formula,omitempty"`
	Color         string `json:"color,omitempty"`
	Concentration string `json:"concentration,omitempty"`
	Hazard        string `json:"hazard,omitempty"`
}

// VirtualLab is the generated description of an experiment.
type VirtualLab struct {
	Equipment   []Equipment `json:"equipment"`
	Chemicals   []Chemical  `json:"chemicals"`
	Procedure   []string    `json:"procedure"`
	SafetyNotes []string    `json:"safetyNotes"`
}

// ScoringCriteria holds per-action point weights.
type ScoringCriteria struct {
	CorrectAction   int `json:"correctAction"`
	Observation     int `json:"observation"`
	CompletionBonus int `json:"completionBonus"`
}

// GameConfig is the derived gamification configuration.
type GameConfig struct {
	Objectives       []string        `json:"objectives"`
	Scoring          ScoringCriteria `json:"scoring"`
	MaxScore         int             `json:"maxScore"`
	TimeLimitMinutes int             `json:"timeLimitMinutes,omitempty"`
}

// PlacementLocation is a workspace slot for equipment and items.
type PlacementLocation string

const (
	LocationBeaker      PlacementLocation = "beaker"
	LocationBurette     PlacementLocation = "burette"
	LocationMeasuring   PlacementLocation = "measuring"
	LocationObservation PlacementLocation = "observation"
)

// Valid reports whether the location is one of the fixed workspace slots.
func (l PlacementLocation) Valid() bool {
	switch l {
	case LocationBeaker, LocationBurette, LocationMeasuring, LocationObservation:
		return true
	}
	return false
}

// StepObservation is one entry in the ordered lifecycle observation log.
type StepObservation struct {
	Step      int       `json:"step"`
	Timestamp time.Time `json:"timestamp"`
	Text      string    `json:"text"`
}

// SelectedEquipment records a piece of equipment placed in the workspace.
type SelectedEquipment struct {
	Name      string            `json:"name"`
	Location  PlacementLocation `json:"location"`
	Timestamp time.Time         `json:"timestamp"`
}

// MixedSolution records the outcome of mixing two chemicals.
type MixedSolution struct {
	Components   []string  `json:"components"`
	Result       string    `json:"result"`
	VisualEffect string    `json:"visualEffect"`
	Timestamp    time.Time `json:"timestamp"`
}

// GameObservation is a detailed gamified observation entry.
type GameObservation struct {
	Action       string    `json:"action"`
	Result       string    `json:"result"`
	Explanation  string    `json:"explanation"`
	VisualEffect string    `json:"visualEffect,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// HintType classifies generated hints.
type HintType string

const (
	HintTip           HintType = "tip"
	HintEncouragement HintType = "encouragement"
	HintDirection     HintType = "direction"
	HintSafety        HintType = "safety"
)

// Hint is one entry in the hint log.
type Hint struct {
	Text        string    `json:"text"`
	Type        HintType  `json:"type"`
	Specificity string    `json:"specificity,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Achievement is one unlocked badge.
type Achievement struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	UnlockedAt  time.Time `json:"unlockedAt"`
}

// GameState is the mutable gamified sub-state of a simulation.
type GameState struct {
	CurrentAction     string                         `json:"currentAction,omitempty"`
	SelectedEquipment []SelectedEquipment            `json:"selectedEquipment"`
	MixedSolutions    []MixedSolution                `json:"mixedSolutions"`
	Observations      []GameObservation              `json:"observations"`
	Score             int                            `json:"score"`
	ActionsCompleted  int                            `json:"actionsCompleted"`
	Hints             []Hint                         `json:"hints"`
	Achievements      []Achievement                  `json:"achievements"`
	Workspace         map[PlacementLocation][]string `json:"workspace,omitempty"`
}

// SimulationState is the lifecycle state plus the game sub-state.
type SimulationState struct {
	Status       Status                 `json:"status"`
	CurrentStep  int                    `json:"currentStep"`
	Progress     int                    `json:"progress"`
	UserInputs   map[string]interface{} `json:"userInputs,omitempty"`
	Observations []StepObservation      `json:"observations"`
	Results      map[string]interface{} `json:"results,omitempty"`
	Game         GameState              `json:"gameState"`
	StartedAt    *time.Time             `json:"startedAt,omitempty"`
	LastActiveAt *time.Time             `json:"lastActiveAt,omitempty"`
	CompletedAt  *time.Time             `json:"completedAt,omitempty"`
}

// AIMetadata captures write-once generation provenance.
type AIMetadata struct {
	Model        string    `json:"model"`
	GeneratedAt  time.Time `json:"generatedAt"`
	ProcessingMs int64     `json:"processingMs"`
	APIVersion   string    `json:"apiVersion"`
	Fallback     bool      `json:"fallback"`
}

// Simulation is one student's instance of a generated virtual experiment.
type Simulation struct {
	ID                string          `db:"id" json:"id"`
	StudentID         string          `db:"student_id" json:"student_id"`
	Title             string          `db:"title" json:"title"`
	Description       string          `db:"description" json:"description"`
	Prompt            string          `db:"prompt" json:"prompt"`
	Subject           Subject         `db:"subject" json:"subject"`
	Level             int             `db:"level" json:"level"`
	ExperimentType    string          `db:"experiment_type" json:"experiment_type"`
	EstimatedDuration string          `db:"estimated_duration" json:"estimated_duration"`
	DifficultyTier    string          `db:"difficulty_tier" json:"difficulty_tier"`
	Lab               VirtualLab      `db:"lab" json:"virtualLab"`
	Config            GameConfig      `db:"game_config" json:"gameConfig"`
	State             SimulationState `db:"state" json:"state"`
	AI                AIMetadata      `db:"ai_meta" json:"ai_metadata"`
	Version           int             `db:"version" json:"-"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

// SimulationFilter scopes paginated simulation queries.
type SimulationFilter struct {
	StudentID string
	Status    Status
	Subject   Subject
	Page      int
	PageSize  int
}

// StatusBreakdown is the aggregate status count returned alongside listings.
type StatusBreakdown struct {
	NotStarted int `json:"not_started"`
	InProgress int `json:"in_progress"`
	Paused     int `json:"paused"`
	Completed  int `json:"completed"`
}

// Value implements driver.Valuer for JSONB storage.
func (v VirtualLab) Value() (driver.Value, error) { return json.Marshal(v) }

// Scan implements sql.Scanner for JSONB storage.
func (v *VirtualLab) Scan(src interface{}) error { return scanJSON(src, v) }

func (g GameConfig) Value() (driver.Value, error) { return json.Marshal(g) }
func (g *GameConfig) Scan(src interface{}) error  { return scanJSON(src, g) }

func (s SimulationState) Value() (driver.Value, error) { return json.Marshal(s) }
func (s *SimulationState) Scan(src interface{}) error  { return scanJSON(src, s) }

func (m AIMetadata) Value() (driver.Value, error) { return json.Marshal(m) }
func (m *AIMetadata) Scan(src interface{}) error  { return scanJSON(src, m) }

func scanJSON(src, dest interface{}) error {
	switch data := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(data, dest)
	case string:
		return json.Unmarshal([]byte(data), dest)
	default:
		return fmt.Errorf("unsupported jsonb source type %T", src)
	}
}
