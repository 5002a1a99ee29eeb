package service

import (
	"fmt"

	"github.com/virtulab/virtulab-api/internal/models"
)

// Precomputed fallback labs, one per science subject. Selected whenever the
// generative capability is unreachable or returns unusable content, then
// re-tagged with the requested prompt, subject and level.

func fallbackContent(prompt string, subject models.Subject, level int) *GeneratedContent {
	var content *GeneratedContent
	switch subject {
	case models.SubjectChemistry:
		content = chemistryTemplate()
	case models.SubjectPhysics:
		content = physicsTemplate()
	default:
		content = biologyTemplate()
	}
	content.Description = fmt.Sprintf("%s Requested experiment: %s.", content.Description, prompt)
	content.DifficultyTier = tierForLevel(level)
	return content
}

func chemistryTemplate() *GeneratedContent {
	return &GeneratedContent{
		Title:             "Acid-Base Titration Experiment",
		Description:       "Determine the concentration of an acid solution by careful titration with a standard base, watching for the indicator color change at the end point.",
		ExperimentType:    "titration",
		EstimatedDuration: "45 minutes",
		Lab: models.VirtualLab{
			Equipment: []models.Equipment{
				{ID: "burette", Name: "Burette", Description: "Graduated tube for dispensing the base dropwise", Icon: "burette", Category: models.CategoryMeasurement},
				{ID: "conical-flask", Name: "Conical Flask", Description: "Holds the acid sample during titration", Icon: "flask", Category: models.CategoryGlassware},
				{ID: "beaker", Name: "Beaker", Description: "250 ml beaker for preparing solutions", Icon: "beaker", Category: models.CategoryGlassware},
				{ID: "pipette", Name: "Volumetric Pipette", Description: "Transfers an exact 25 ml acid sample", Icon: "test-tube", Category: models.CategoryMeasurement},
				{ID: "safety-goggles", Name: "Safety Goggles", Description: "Eye protection, worn throughout", Icon: "goggles", Category: models.CategorySafety},
			},
			Chemicals: []models.Chemical{
				{ID: "hcl", Name: "Hydrochloric Acid", Formula: "HCl", Color: "colorless", Concentration: "unknown", Hazard: "corrosive"},
				{ID: "naoh", Name: "Sodium Hydroxide", Formula: "NaOH", Color: "colorless", Concentration: "0.1 M", Hazard: "corrosive"},
				{ID: "phenolphthalein", Name: "Phenolphthalein Indicator", Formula: "C20H14O4", Color: "colorless", Hazard: "irritant"},
			},
			Procedure: []string{
				"Put on safety goggles before handling any chemicals.",
				"Rinse and fill the burette with the sodium hydroxide solution.",
				"Pipette exactly 25 ml of the acid into the conical flask.",
				"Add two or three drops of phenolphthalein indicator to the flask.",
				"Add base from the burette slowly while swirling the flask.",
				"Stop at the first permanent pale pink color and read the burette.",
				"Repeat the titration until two readings agree within 0.1 ml.",
			},
			SafetyNotes: []string{
				"Wear safety goggles at all times.",
				"Both solutions are corrosive; rinse spills with plenty of water.",
				"Never pipette by mouth.",
				"Report any contact with skin or eyes immediately.",
			},
		},
		Config: models.GameConfig{
			Objectives: []string{
				"Measure the acid sample accurately",
				"Identify the titration end point",
				"Calculate the unknown concentration",
			},
		},
	}
}

func physicsTemplate() *GeneratedContent {
	return &GeneratedContent{
		Title:             "Pendulum Period Investigation",
		Description:       "Investigate how the length of a simple pendulum affects its period, and compare measured periods with the theoretical prediction.",
		ExperimentType:    "mechanics",
		EstimatedDuration: "30 minutes",
		Lab: models.VirtualLab{
			Equipment: []models.Equipment{
				{ID: "pendulum-bob", Name: "Pendulum Bob", Description: "Dense metal bob on a light string", Icon: "tool", Category: models.CategoryGeneric},
				{ID: "stand", Name: "Retort Stand", Description: "Supports the pendulum pivot", Icon: "tool", Category: models.CategoryGeneric},
				{ID: "stopwatch", Name: "Stopwatch", Description: "Times ten full swings", Icon: "stopwatch", Category: models.CategoryMeasurement},
				{ID: "ruler", Name: "Meter Ruler", Description: "Measures the string length", Icon: "ruler", Category: models.CategoryMeasurement},
			},
			Chemicals: nil,
			Procedure: []string{
				"Clamp the pendulum to the stand and measure the string length.",
				"Displace the bob by a small angle and release it gently.",
				"Time ten complete swings with the stopwatch.",
				"Divide the total time by ten to find the period.",
				"Repeat for five different string lengths.",
				"Plot period squared against length and inspect the trend.",
			},
			SafetyNotes: []string{
				"Keep the swing amplitude small to avoid striking nearby objects.",
				"Secure the stand so it cannot topple.",
				"Keep feet clear of the suspended mass.",
			},
		},
		Config: models.GameConfig{
			Objectives: []string{
				"Measure the pendulum period accurately",
				"Relate period to pendulum length",
				"Identify sources of timing error",
			},
		},
	}
}

func biologyTemplate() *GeneratedContent {
	return &GeneratedContent{
		Title:             "Observing Plant Cells Under the Microscope",
		Description:       "Prepare a wet mount of onion epidermis, stain it with iodine, and identify cell structures at increasing magnification.",
		ExperimentType:    "microscopy",
		EstimatedDuration: "40 minutes",
		Lab: models.VirtualLab{
			Equipment: []models.Equipment{
				{ID: "microscope", Name: "Microscope", Description: "Compound light microscope, up to 400x", Icon: "microscope", Category: models.CategoryOptics},
				{ID: "slide", Name: "Glass Slide", Description: "Holds the specimen", Icon: "slide", Category: models.CategoryGlassware},
				{ID: "coverslip", Name: "Coverslip", Description: "Flattens and protects the specimen", Icon: "slide", Category: models.CategoryGlassware},
				{ID: "dropper", Name: "Dropper", Description: "Applies water and iodine stain", Icon: "dropper", Category: models.CategoryGlassware},
				{ID: "forceps", Name: "Forceps", Description: "Peels the thin epidermis layer", Icon: "tool", Category: models.CategoryGeneric},
			},
			Chemicals: []models.Chemical{
				{ID: "iodine", Name: "Iodine Solution", Color: "brown", Hazard: "irritant"},
				{ID: "water", Name: "Distilled Water", Formula: "H2O", Color: "colorless"},
			},
			Procedure: []string{
				"Peel a thin layer of epidermis from an onion scale.",
				"Place the layer flat on a slide with a drop of water.",
				"Add one drop of iodine stain and lower the coverslip at an angle.",
				"Observe at the lowest magnification and centre a clear region.",
				"Increase magnification and sketch the visible cell structures.",
				"Label the cell wall, cytoplasm and nucleus in your sketch.",
			},
			SafetyNotes: []string{
				"Iodine stains skin and clothing; handle with the dropper only.",
				"Handle slides and coverslips carefully, broken glass cuts.",
				"Wash your hands after handling specimens.",
			},
		},
		Config: models.GameConfig{
			Objectives: []string{
				"Prepare a usable wet mount",
				"Focus the microscope at each magnification",
				"Identify and label the main cell structures",
			},
		},
	}
}
