package service

import (
	"fmt"

	"github.com/virtulab/virtulab-api/internal/ai"
	"github.com/virtulab/virtulab-api/internal/models"
)

// Deterministic interpretations substituted when the capability is
// unavailable. Always safe and never penalizing, so an outage can reduce
// feedback quality but never costs the student points.

func fallbackActionInterpretation(kind models.ActionKind, equipment string) *ai.ActionInterpretation {
	switch kind {
	case models.ActionUseEquipment:
		return &ai.ActionInterpretation{
			Description:    fmt.Sprintf("You used the %s.", equipment),
			Explanation:    "Using the right equipment at the right step keeps the experiment controlled and repeatable.",
			Correct:        true,
			Safety:         ai.SafetySafe,
			Observation:    fmt.Sprintf("The %s is set up and ready.", equipment),
			NextSuggestion: "Continue with the next procedure step.",
		}
	case models.ActionObserve:
		return &ai.ActionInterpretation{
			Description:    "You observed the experiment closely.",
			Explanation:    "Careful observation is how scientists catch changes that happen gradually.",
			Correct:        true,
			Safety:         ai.SafetySafe,
			Observation:    "You noted the current state of the experiment.",
			NextSuggestion: "Record what you saw before moving on.",
		}
	case models.ActionMeasure:
		return &ai.ActionInterpretation{
			Description:    fmt.Sprintf("You took a measurement with the %s.", equipment),
			Explanation:    "Accurate measurements make results comparable between trials.",
			Correct:        true,
			Safety:         ai.SafetySafe,
			Observation:    "The reading has been recorded.",
			NextSuggestion: "Repeat the measurement to confirm it.",
		}
	case models.ActionPlaceItem:
		return &ai.ActionInterpretation{
			Description:    fmt.Sprintf("You placed the %s in the workspace.", equipment),
			Explanation:    "A tidy workspace keeps each piece of apparatus where the procedure needs it.",
			Correct:        true,
			Safety:         ai.SafetySafe,
			NextSuggestion: "Check the procedure for what to set up next.",
		}
	case models.ActionRemoveItem:
		return &ai.ActionInterpretation{
			Description:    fmt.Sprintf("You removed the %s from the workspace.", equipment),
			Explanation:    "Clearing unused apparatus reduces the chance of accidents.",
			Correct:        true,
			Safety:         ai.SafetySafe,
			NextSuggestion: "Continue with the current procedure step.",
		}
	default:
		return &ai.ActionInterpretation{
			Description:    "You performed an action in the lab.",
			Explanation:    "Every careful step moves the experiment forward.",
			Correct:        true,
			Safety:         ai.SafetySafe,
			NextSuggestion: "Follow the next step in the procedure.",
		}
	}
}

func fallbackMixingInterpretation(chemicalA, chemicalB string) *ai.MixingInterpretation {
	return &ai.MixingInterpretation{
		Result:            fmt.Sprintf("You combined %s with %s.", chemicalA, chemicalB),
		Explanation:       "Mixing substances can produce new compounds or visible changes; watch closely and record what happens.",
		VisualEffect:      "gentle swirl",
		ResultingSolution: fmt.Sprintf("%s + %s mixture", chemicalA, chemicalB),
		Safety:            ai.SafetySafe,
		Educational:       true,
	}
}

func fallbackHint(sim *models.Simulation, strugglingArea string) *ai.HintResult {
	if strugglingArea != "" {
		return &ai.HintResult{
			Text:        fmt.Sprintf("Re-read the procedure step about %s and take it one action at a time.", strugglingArea),
			Type:        models.HintDirection,
			Specificity: "targeted",
		}
	}
	if step := sim.State.CurrentStep; step < len(sim.Lab.Procedure) {
		return &ai.HintResult{
			Text:        fmt.Sprintf("Focus on the current step: %s", sim.Lab.Procedure[step]),
			Type:        models.HintTip,
			Specificity: "step",
		}
	}
	return &ai.HintResult{
		Text:        "You're doing fine. Review your observations so far and keep going.",
		Type:        models.HintEncouragement,
		Specificity: "general",
	}
}
