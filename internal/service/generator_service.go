package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/virtulab/virtulab-api/internal/ai"
	"github.com/virtulab/virtulab-api/internal/models"
)

// GeneratedContent is the complete output of one content generation: the lab
// description plus the derived game configuration and provenance metadata.
// Successful generations and template fallbacks share this shape; callers
// never special-case the fallback path.
type GeneratedContent struct {
	Title             string
	Description       string
	ExperimentType    string
	EstimatedDuration string
	DifficultyTier    string
	Lab               models.VirtualLab
	Config            models.GameConfig
	AI                models.AIMetadata
}

// GeneratorService turns a free-text prompt into a structured virtual lab.
// It is a pure transformation: persistence belongs to the caller, and it
// never returns an error; any capability failure selects a fallback template.
type GeneratorService struct {
	ai         ai.Client
	model      string
	apiVersion string
	logger     *zap.Logger
	now        func() time.Time
}

// NewGeneratorService constructs the content generator.
func NewGeneratorService(client ai.Client, model, apiVersion string, logger *zap.Logger) *GeneratorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeneratorService{
		ai:         client,
		model:      model,
		apiVersion: apiVersion,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Generate produces a complete lab description for the prompt. The returned
// content always satisfies the non-empty equipment/procedure/safety invariant.
func (s *GeneratorService) Generate(ctx context.Context, prompt string, subject models.Subject, level int) *GeneratedContent {
	start := s.now()

	content, err := s.generateFromCapability(ctx, prompt, subject, level)
	if err != nil {
		s.logger.Warn("lab generation fell back to template",
			zap.String("subject", string(subject)),
			zap.Int("level", level),
			zap.Error(err))
		content = fallbackContent(prompt, subject, level)
		content.AI.Fallback = true
	}

	content.Config = deriveGameConfig(subject, level, content.Config.Objectives)
	content.Lab.RepairDefaults(subject)
	if content.DifficultyTier == "" {
		content.DifficultyTier = tierForLevel(level)
	}

	content.AI.Model = s.model
	content.AI.APIVersion = s.apiVersion
	content.AI.GeneratedAt = s.now()
	content.AI.ProcessingMs = s.now().Sub(start).Milliseconds()

	return content
}

func (s *GeneratorService) generateFromCapability(ctx context.Context, prompt string, subject models.Subject, level int) (*GeneratedContent, error) {
	if s.ai == nil {
		return nil, fmt.Errorf("capability not configured")
	}

	raw, err := s.ai.GenerateLabContent(ctx, buildLabPrompt(prompt, subject, level))
	if err != nil {
		return nil, fmt.Errorf("capability call: %w", err)
	}

	payload, err := parseLabPayload(raw)
	if err != nil {
		return nil, err
	}

	return normalizeLabPayload(payload, subject), nil
}

// buildLabPrompt embeds level-appropriate framing into the generation request.
func buildLabPrompt(prompt string, subject models.Subject, level int) string {
	return fmt.Sprintf(
		"Design a virtual %s lab experiment for a student (%s) based on this request: %q.\n"+
			"Respond with a single JSON object with keys: title, description, experimentType, "+
			"estimatedDuration, equipment (array), chemicals (array), procedure (array of strings), "+
			"safetyNotes (array of strings), objectives (array of strings). Equipment and chemical "+
			"entries may be plain names or objects with id, name, description.",
		subject, levelBand(level), prompt,
	)
}

// levelBand maps the 1-5 difficulty level onto an age/complexity band.
func levelBand(level int) string {
	switch level {
	case 1:
		return "ages 8-10, very simple language, every step spelled out"
	case 2:
		return "ages 10-12, simple language, short guided steps"
	case 3:
		return "ages 12-14, introduce proper scientific terms"
	case 4:
		return "ages 14-16, quantitative reasoning expected"
	default:
		return "ages 16-18, full scientific rigor and independent work"
	}
}

// tierForLevel labels the difficulty band.
func tierForLevel(level int) string {
	switch {
	case level <= 2:
		return "beginner"
	case level == 3:
		return "intermediate"
	default:
		return "advanced"
	}
}

// labPayload mirrors the JSON object the capability is asked to return.
// Equipment and chemical entries are a tagged union: plain strings are
// promoted to structured objects during normalization.
type labPayload struct {
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	ExperimentType    string     `json:"experimentType"`
	EstimatedDuration string     `json:"estimatedDuration"`
	Equipment         []rawEntry `json:"equipment"`
	Chemicals         []rawEntry `json:"chemicals"`
	Procedure         []string   `json:"procedure"`
	SafetyNotes       []string   `json:"safetyNotes"`
	Objectives        []string   `json:"objectives"`
}

// rawEntry accepts either a plain string or a structured object.
type rawEntry struct {
	Name       string
	Structured *structuredEntry
}

type structuredEntry struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Icon          string `json:"icon"`
	Category      string `json:"category"`
	Formula       string `json:"formula"`
	Color         string `json:"color"`
	Concentration string `json:"concentration"`
	Hazard        string `json:"hazard"`
}

// UnmarshalJSON resolves the string-or-object union once at the boundary.
func (e *rawEntry) UnmarshalJSON(data []byte) error {
	var plain string
	if err := json.Unmarshal(data, &plain); err == nil {
		e.Name = plain
		return nil
	}
	var obj structuredEntry
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	e.Structured = &obj
	e.Name = obj.Name
	return nil
}

func parseLabPayload(raw string) (*labPayload, error) {
	cleaned := ai.StripCodeFences(raw)
	var payload labPayload
	if err := json.Unmarshal([]byte(cleaned), &payload); err != nil {
		return nil, fmt.Errorf("parse lab content: %w", err)
	}
	if payload.Title == "" || len(payload.Equipment) == 0 {
		return nil, fmt.Errorf("lab content missing required sections")
	}
	return &payload, nil
}

// normalizeLabPayload produces the canonical structured form; downstream code
// only ever sees structured equipment and chemicals.
func normalizeLabPayload(payload *labPayload, subject models.Subject) *GeneratedContent {
	lab := models.VirtualLab{
		Procedure:   payload.Procedure,
		SafetyNotes: payload.SafetyNotes,
	}
	for _, entry := range payload.Equipment {
		lab.Equipment = append(lab.Equipment, normalizeEquipment(entry))
	}
	for _, entry := range payload.Chemicals {
		lab.Chemicals = append(lab.Chemicals, normalizeChemical(entry))
	}
	lab.RepairDefaults(subject)

	duration := payload.EstimatedDuration
	if duration == "" {
		duration = fmt.Sprintf("%d minutes", timeLimitFor(subject))
	}

	return &GeneratedContent{
		Title:             payload.Title,
		Description:       payload.Description,
		ExperimentType:    payload.ExperimentType,
		EstimatedDuration: duration,
		Lab:               lab,
		Config:            models.GameConfig{Objectives: payload.Objectives},
	}
}

func normalizeEquipment(entry rawEntry) models.Equipment {
	eq := models.Equipment{Name: entry.Name}
	if s := entry.Structured; s != nil {
		eq.ID = s.ID
		eq.Name = s.Name
		eq.Description = s.Description
		eq.Icon = s.Icon
		eq.Category = models.EquipmentCategory(s.Category)
	}
	if eq.ID == "" {
		eq.ID = slugify(eq.Name)
	}
	if eq.Icon == "" {
		eq.Icon = iconForEquipment(eq.Name)
	}
	if eq.Category == "" {
		eq.Category = categoryForEquipment(eq.Name)
	}
	if eq.Description == "" {
		eq.Description = fmt.Sprintf("%s used during the experiment", eq.Name)
	}
	return eq
}

func normalizeChemical(entry rawEntry) models.Chemical {
	ch := models.Chemical{Name: entry.Name}
	if s := entry.Structured; s != nil {
		ch.ID = s.ID
		ch.Name = s.Name
		ch.Formula = s.Formula
		ch.Color = s.Color
		ch.Concentration = s.Concentration
		ch.Hazard = s.Hazard
	}
	if ch.ID == "" {
		ch.ID = slugify(ch.Name)
	}
	return ch
}

// iconForEquipment picks an icon by keyword match on the equipment name.
func iconForEquipment(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "beaker"):
		return "beaker"
	case strings.Contains(lower, "burette"):
		return "burette"
	case strings.Contains(lower, "flask"):
		return "flask"
	case strings.Contains(lower, "tube"):
		return "test-tube"
	case strings.Contains(lower, "microscope"):
		return "microscope"
	case strings.Contains(lower, "burner") || strings.Contains(lower, "bunsen") || strings.Contains(lower, "heat"):
		return "flame"
	case strings.Contains(lower, "thermometer"):
		return "thermometer"
	case strings.Contains(lower, "scale") || strings.Contains(lower, "balance"):
		return "scale"
	case strings.Contains(lower, "stopwatch") || strings.Contains(lower, "timer"):
		return "stopwatch"
	case strings.Contains(lower, "goggle"):
		return "goggles"
	case strings.Contains(lower, "ruler") || strings.Contains(lower, "meter"):
		return "ruler"
	default:
		return "tool"
	}
}

// categoryForEquipment buckets equipment by keyword match on the name.
func categoryForEquipment(name string) models.EquipmentCategory {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "beaker"), strings.Contains(lower, "flask"),
		strings.Contains(lower, "tube"), strings.Contains(lower, "slide"),
		strings.Contains(lower, "rod"), strings.Contains(lower, "dropper"):
		return models.CategoryGlassware
	case strings.Contains(lower, "burette"), strings.Contains(lower, "thermometer"),
		strings.Contains(lower, "scale"), strings.Contains(lower, "balance"),
		strings.Contains(lower, "stopwatch"), strings.Contains(lower, "timer"),
		strings.Contains(lower, "ruler"), strings.Contains(lower, "meter"):
		return models.CategoryMeasurement
	case strings.Contains(lower, "burner"), strings.Contains(lower, "bunsen"),
		strings.Contains(lower, "hot plate"):
		return models.CategoryHeating
	case strings.Contains(lower, "microscope"), strings.Contains(lower, "lens"),
		strings.Contains(lower, "magnif"):
		return models.CategoryOptics
	case strings.Contains(lower, "goggle"), strings.Contains(lower, "glove"),
		strings.Contains(lower, "apron"):
		return models.CategorySafety
	default:
		return models.CategoryGeneric
	}
}

func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.ReplaceAll(slug, " ", "-")
	return slug
}

// deriveGameConfig computes the gamification settings for a subject and level.
// Scoring weights are fixed; the maximum score scales with level.
func deriveGameConfig(subject models.Subject, level int, objectives []string) models.GameConfig {
	if len(objectives) == 0 {
		objectives = defaultObjectives(subject)
	}
	return models.GameConfig{
		Objectives: objectives,
		Scoring: models.ScoringCriteria{
			CorrectAction:   10,
			Observation:     5,
			CompletionBonus: 20,
		},
		MaxScore:         100 + level*20,
		TimeLimitMinutes: timeLimitFor(subject),
	}
}

func timeLimitFor(subject models.Subject) int {
	switch subject {
	case models.SubjectChemistry:
		return 45
	case models.SubjectPhysics:
		return 30
	default:
		return 40
	}
}

func defaultObjectives(subject models.Subject) []string {
	switch subject {
	case models.SubjectChemistry:
		return []string{
			"Follow the procedure safely and in order",
			"Observe and record every chemical change",
			"Explain the reaction behind each observation",
		}
	case models.SubjectPhysics:
		return []string{
			"Take accurate measurements with the provided instruments",
			"Identify the physical relationship the experiment demonstrates",
			"Record results across repeated trials",
		}
	case models.SubjectBiology:
		return []string{
			"Prepare and observe specimens correctly",
			"Identify the structures visible at each magnification",
			"Record labelled observations",
		}
	default:
		return []string{
			"Complete each procedure step in order",
			"Record observations as you go",
			"Summarise what the experiment demonstrates",
		}
	}
}
