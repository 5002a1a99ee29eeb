package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/virtulab/virtulab-api/internal/ai"
	"github.com/virtulab/virtulab-api/internal/models"
)

type capabilityStub struct {
	labContent string
	labErr     error
}

func (s capabilityStub) GenerateLabContent(ctx context.Context, prompt string) (string, error) {
	return s.labContent, s.labErr
}

func (s capabilityStub) InterpretAction(ctx context.Context, req ai.ActionRequest) (*ai.ActionInterpretation, error) {
	return nil, errors.New("not implemented")
}

func (s capabilityStub) InterpretMixing(ctx context.Context, req ai.MixingRequest) (*ai.MixingInterpretation, error) {
	return nil, errors.New("not implemented")
}

func (s capabilityStub) GenerateHint(ctx context.Context, req ai.HintRequest) (*ai.HintResult, error) {
	return nil, errors.New("not implemented")
}

func TestGenerateFallbackInvariants(t *testing.T) {
	svc := NewGeneratorService(nil, "mistral", "v1", nil)

	subjects := []models.Subject{models.SubjectChemistry, models.SubjectPhysics, models.SubjectBiology, models.SubjectGeneral}
	for _, subject := range subjects {
		for level := 1; level <= 5; level++ {
			t.Run(fmt.Sprintf("%s_level_%d", subject, level), func(t *testing.T) {
				content := svc.Generate(context.Background(), "any experiment", subject, level)

				require.True(t, content.AI.Fallback)
				require.NotEmpty(t, content.Title)
				require.NotEmpty(t, content.Lab.Equipment)
				require.NotEmpty(t, content.Lab.Procedure)
				require.NotEmpty(t, content.Lab.SafetyNotes)
				require.NotEmpty(t, content.Config.Objectives)
				require.NotEmpty(t, content.DifficultyTier)
				require.Equal(t, 100+level*20, content.Config.MaxScore)
				require.Equal(t, 10, content.Config.Scoring.CorrectAction)
				require.Equal(t, 5, content.Config.Scoring.Observation)
				require.Equal(t, 20, content.Config.Scoring.CompletionBonus)
			})
		}
	}
}

func TestGenerateChemistryFallbackTemplate(t *testing.T) {
	svc := NewGeneratorService(capabilityStub{labErr: errors.New("connection refused")}, "mistral", "v1", nil)

	content := svc.Generate(context.Background(), "erupting volcano with vinegar", models.SubjectChemistry, 3)

	require.True(t, content.AI.Fallback)
	require.Equal(t, "Acid-Base Titration Experiment", content.Title)
	require.Contains(t, content.Description, "erupting volcano with vinegar")
	require.NotEmpty(t, content.Lab.Chemicals)
	require.Equal(t, 160, content.Config.MaxScore)
	require.Equal(t, 45, content.Config.TimeLimitMinutes)
	require.Equal(t, "intermediate", content.DifficultyTier)
	require.Equal(t, "mistral", content.AI.Model)
	require.Equal(t, "v1", content.AI.APIVersion)
}

func TestGenerateParsesCapabilityPayload(t *testing.T) {
	payload := "```json\n" + `{
        "title": "Electrolysis of Water",
        "description": "Split water into hydrogen and oxygen.",
        "experimentType": "electrochemistry",
        "equipment": [
            "Power Supply",
            {"id": "beaker-large", "name": "Large Beaker", "description": "Holds the electrolyte"}
        ],
        "chemicals": ["Distilled Water"],
        "procedure": ["Fill the beaker", "Connect the electrodes"],
        "safetyNotes": ["Hydrogen is flammable"],
        "objectives": ["Identify the gases produced"]
    }` + "\n```"
	svc := NewGeneratorService(capabilityStub{labContent: payload}, "mistral", "v1", nil)

	content := svc.Generate(context.Background(), "split water", models.SubjectChemistry, 2)

	require.False(t, content.AI.Fallback)
	require.Equal(t, "Electrolysis of Water", content.Title)
	require.Len(t, content.Lab.Equipment, 2)

	plain := content.Lab.Equipment[0]
	require.Equal(t, "power-supply", plain.ID)
	require.Equal(t, "Power Supply", plain.Name)
	require.NotEmpty(t, plain.Icon)
	require.NotEmpty(t, plain.Category)

	structured := content.Lab.Equipment[1]
	require.Equal(t, "beaker-large", structured.ID)
	require.Equal(t, "Large Beaker", structured.Name)
	require.Equal(t, models.CategoryGlassware, structured.Category)

	require.Equal(t, []string{"Identify the gases produced"}, content.Config.Objectives)
	require.Equal(t, 140, content.Config.MaxScore)
	require.Equal(t, "beginner", content.DifficultyTier)
}

func TestGenerateFallsBackOnUnparseablePayload(t *testing.T) {
	svc := NewGeneratorService(capabilityStub{labContent: "I cannot help with that."}, "mistral", "v1", nil)

	content := svc.Generate(context.Background(), "pendulum swing", models.SubjectPhysics, 4)

	require.True(t, content.AI.Fallback)
	require.Equal(t, "Pendulum Period Investigation", content.Title)
	require.Equal(t, 30, content.Config.TimeLimitMinutes)
	require.Equal(t, "advanced", content.DifficultyTier)
}

func TestGenerateFallsBackOnEmptyEquipment(t *testing.T) {
	payload := `{"title": "Something", "equipment": [], "procedure": ["step"]}`
	svc := NewGeneratorService(capabilityStub{labContent: payload}, "mistral", "v1", nil)

	content := svc.Generate(context.Background(), "cells", models.SubjectBiology, 1)

	require.True(t, content.AI.Fallback)
	require.Equal(t, "Observing Plant Cells Under the Microscope", content.Title)
}

func TestGeneralSubjectUsesBiologyTemplate(t *testing.T) {
	svc := NewGeneratorService(nil, "mistral", "v1", nil)

	content := svc.Generate(context.Background(), "open experiment", models.SubjectGeneral, 2)

	require.Equal(t, "Observing Plant Cells Under the Microscope", content.Title)
	require.Equal(t, 40, content.Config.TimeLimitMinutes)
}

func TestTierForLevel(t *testing.T) {
	require.Equal(t, "beginner", tierForLevel(1))
	require.Equal(t, "beginner", tierForLevel(2))
	require.Equal(t, "intermediate", tierForLevel(3))
	require.Equal(t, "advanced", tierForLevel(4))
	require.Equal(t, "advanced", tierForLevel(5))
}
