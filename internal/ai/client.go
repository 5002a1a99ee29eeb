// Package ai defines the contract with the external generative capability
// used for lab content generation, action interpretation, mixing
// interpretation, and hint generation. Callers treat every error from this
// boundary identically: they fall back to deterministic local content.
package ai

import (
	"context"

	"github.com/virtulab/virtulab-api/internal/models"
)

// SafetyRating grades the safety of an interpreted action or reaction.
type SafetyRating string

const (
	SafetySafe      SafetyRating = "safe"
	SafetyCaution   SafetyRating = "caution"
	SafetyDangerous SafetyRating = "dangerous"
)

// ActionRequest describes one gamified action for interpretation.
type ActionRequest struct {
	Kind      models.ActionKind
	Equipment string
	Target    models.PlacementLocation
	GameState models.GameState
	Context   SimulationContext
}

// MixingRequest describes a chemical mix for interpretation.
type MixingRequest struct {
	ChemicalA string
	ChemicalB string
	GameState models.GameState
	Context   SimulationContext
}

// HintRequest asks for a single hint given the current game state.
type HintRequest struct {
	GameState      models.GameState
	StrugglingArea string
	Context        SimulationContext
}

// SimulationContext carries the simulation framing passed with every
// interpretation request.
type SimulationContext struct {
	Title   string
	Subject models.Subject
	Level   int
}

// ActionInterpretation is the structured result of interpreting an action.
type ActionInterpretation struct {
	Description    string       `json:"description"`
	Explanation    string       `json:"explanation"`
	Correct        bool         `json:"correct"`
	Safety         SafetyRating `json:"safety"`
	Observation    string       `json:"observation,omitempty"`
	Achievements   []string     `json:"achievements,omitempty"`
	Hints          []string     `json:"hints,omitempty"`
	NextSuggestion string       `json:"nextSuggestion,omitempty"`
}

// MixingInterpretation is the structured result of interpreting a mix.
type MixingInterpretation struct {
	Result            string       `json:"result"`
	Explanation       string       `json:"explanation"`
	VisualEffect      string       `json:"visualEffect"`
	ResultingSolution string       `json:"resultingSolution"`
	Safety            SafetyRating `json:"safety"`
	Educational       bool         `json:"educational"`
}

// HintResult is a single generated hint.
type HintResult struct {
	Text        string          `json:"text"`
	Type        models.HintType `json:"type"`
	Specificity string          `json:"specificity"`
}

// Client is the external generative capability. Implementations must honor
// the context deadline; expiry is reported as an ordinary error.
type Client interface {
	// GenerateLabContent returns the raw model output for a lab generation
	// prompt. The caller owns parsing and normalization.
	GenerateLabContent(ctx context.Context, prompt string) (string, error)
	InterpretAction(ctx context.Context, req ActionRequest) (*ActionInterpretation, error)
	InterpretMixing(ctx context.Context, req MixingRequest) (*MixingInterpretation, error)
	GenerateHint(ctx context.Context, req HintRequest) (*HintResult, error)
}
