package models

// Deterministic defaults used both by the content generator when the
// capability returns incomplete sections and by the repository integrity
// repair before any save. Keeping a single source guarantees the non-empty
// equipment/procedure/safety invariant produces identical content everywhere.

// DefaultEquipment returns the minimal apparatus set for a subject.
func DefaultEquipment(subject Subject) []Equipment {
	switch subject {
	case SubjectChemistry:
		return []Equipment{
			{ID: "beaker", Name: "Beaker", Description: "250 ml glass beaker for holding solutions", Icon: "beaker", Category: CategoryGlassware},
			{ID: "burette", Name: "Burette", Description: "Graduated tube for dispensing measured volumes", Icon: "burette", Category: CategoryMeasurement},
			{ID: "stirring-rod", Name: "Stirring Rod", Description: "Glass rod for mixing solutions", Icon: "rod", Category: CategoryGlassware},
			{ID: "safety-goggles", Name: "Safety Goggles", Description: "Eye protection, worn at all times", Icon: "goggles", Category: CategorySafety},
		}
	case SubjectPhysics:
		return []Equipment{
			{ID: "ruler", Name: "Meter Ruler", Description: "Measures lengths up to one meter", Icon: "ruler", Category: CategoryMeasurement},
			{ID: "stopwatch", Name: "Stopwatch", Description: "Times intervals to a hundredth of a second", Icon: "stopwatch", Category: CategoryMeasurement},
			{ID: "mass-set", Name: "Mass Set", Description: "Calibrated masses from 10 g to 500 g", Icon: "weight", Category: CategoryGeneric},
		}
	case SubjectBiology:
		return []Equipment{
			{ID: "microscope", Name: "Microscope", Description: "Compound light microscope, up to 400x", Icon: "microscope", Category: CategoryOptics},
			{ID: "slide", Name: "Glass Slide", Description: "Holds specimens for observation", Icon: "slide", Category: CategoryGlassware},
			{ID: "dropper", Name: "Dropper", Description: "Transfers small volumes of liquid", Icon: "dropper", Category: CategoryGlassware},
		}
	default:
		return []Equipment{
			{ID: "notebook", Name: "Lab Notebook", Description: "Records observations and measurements", Icon: "notebook", Category: CategoryGeneric},
			{ID: "measuring-cup", Name: "Measuring Cup", Description: "Measures liquid volumes", Icon: "cup", Category: CategoryMeasurement},
			{ID: "timer", Name: "Timer", Description: "Tracks elapsed time during the experiment", Icon: "stopwatch", Category: CategoryMeasurement},
		}
	}
}

// DefaultChemicals returns placeholder reagents for chemistry labs.
func DefaultChemicals() []Chemical {
	return []Chemical{
		{ID: "hcl", Name: "Hydrochloric Acid", Formula: "HCl", Color: "colorless", Concentration: "0.1 M", Hazard: "corrosive"},
		{ID: "naoh", Name: "Sodium Hydroxide", Formula: "NaOH", Color: "colorless", Concentration: "0.1 M", Hazard: "corrosive"},
		{ID: "phenolphthalein", Name: "Phenolphthalein Indicator", Formula: "C20H14O4", Color: "colorless", Hazard: "irritant"},
		{ID: "water", Name: "Distilled Water", Formula: "H2O", Color: "colorless"},
	}
}

// DefaultProcedure returns a generic step list for a subject.
func DefaultProcedure(subject Subject) []string {
	switch subject {
	case SubjectChemistry:
		return []string{
			"Put on safety goggles and gloves before handling any chemicals.",
			"Set up the equipment on a clean, stable workspace.",
			"Measure the required chemicals carefully using the provided instruments.",
			"Combine the reagents slowly while observing any changes.",
			"Record your observations after each step.",
			"Clean the workspace and dispose of waste as instructed.",
		}
	case SubjectPhysics:
		return []string{
			"Assemble the apparatus as shown in the setup description.",
			"Calibrate the measuring instruments before the first trial.",
			"Run the experiment and record each measurement.",
			"Repeat the trial three times for consistency.",
			"Compare the results and note any sources of error.",
		}
	case SubjectBiology:
		return []string{
			"Prepare the specimen on a clean slide.",
			"Start observations at the lowest magnification.",
			"Adjust focus gradually and sketch what you see.",
			"Increase magnification and compare structures.",
			"Record and label all observations.",
		}
	default:
		return []string{
			"Read the full procedure before starting.",
			"Set up the workspace and gather all materials.",
			"Perform each step in order, recording observations.",
			"Review your results against the objectives.",
		}
	}
}

// DefaultSafetyNotes returns the baseline safety list for a subject.
func DefaultSafetyNotes(subject Subject) []string {
	notes := []string{
		"Always follow your teacher's instructions.",
		"Never taste or directly smell any substance.",
		"Report spills, breakages, or accidents immediately.",
	}
	switch subject {
	case SubjectChemistry:
		return append([]string{
			"Wear safety goggles at all times.",
			"Handle acids and bases with care; never mix chemicals unless instructed.",
		}, notes...)
	case SubjectPhysics:
		return append([]string{
			"Keep the workspace clear of loose cables and heavy objects.",
		}, notes...)
	case SubjectBiology:
		return append([]string{
			"Wash your hands before and after handling specimens.",
			"Handle glass slides and coverslips carefully.",
		}, notes...)
	default:
		return notes
	}
}

// RepairDefaults fills any empty required section with deterministic
// content. Returns true when something had to be repaired.
func (v *VirtualLab) RepairDefaults(subject Subject) bool {
	repaired := false
	if len(v.Equipment) == 0 {
		v.Equipment = DefaultEquipment(subject)
		repaired = true
	}
	if len(v.Procedure) == 0 {
		v.Procedure = DefaultProcedure(subject)
		repaired = true
	}
	if len(v.SafetyNotes) == 0 {
		v.SafetyNotes = DefaultSafetyNotes(subject)
		repaired = true
	}
	if subject == SubjectChemistry && len(v.Chemicals) == 0 {
		v.Chemicals = DefaultChemicals()
		repaired = true
	}
	return repaired
}
