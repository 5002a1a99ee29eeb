package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// ActionKind enumerates the discrete gamified interactions.
type ActionKind string

const (
	ActionUseEquipment ActionKind = "use_equipment"
	ActionMixChemicals ActionKind = "mix_chemicals"
	ActionObserve      ActionKind = "observe"
	ActionMeasure      ActionKind = "measure"
	ActionPlaceItem    ActionKind = "place_item"
	ActionRemoveItem   ActionKind = "remove_item"
)

// Valid reports whether the kind belongs to the fixed enumeration.
func (k ActionKind) Valid() bool {
	switch k {
	case ActionUseEquipment, ActionMixChemicals, ActionObserve, ActionMeasure, ActionPlaceItem, ActionRemoveItem:
		return true
	}
	return false
}

// JSONMap is an opaque JSONB payload column.
type JSONMap map[string]interface{}

// Value implements driver.Valuer.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return json.Marshal(map[string]interface{}{})
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *JSONMap) Scan(src interface{}) error { return scanJSON(src, m) }

// GameAction is one immutable log row per processed student interaction.
type GameAction struct {
	ID           string            `db:"id" json:"id"`
	SimulationID string            `db:"simulation_id" json:"simulation_id"`
	StudentID    string            `db:"student_id" json:"student_id"`
	Kind         ActionKind        `db:"kind" json:"kind"`
	Equipment    string            `db:"equipment" json:"equipment,omitempty"`
	Target       PlacementLocation `db:"target" json:"target,omitempty"`
	Result       JSONMap           `db:"result" json:"result,omitempty"`
	ScoreDelta   int               `db:"score_delta" json:"score_delta"`
	CreatedAt    time.Time         `db:"created_at" json:"created_at"`
}
