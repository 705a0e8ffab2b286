package models

import (
	"encoding/json"

	"github.com/tably-inc/tably-engine/pkg/jsonutil"
)

// GenerationIntent is the structured output the intent parser demands
// from the model for each user message. Parsing either yields this
// shape or fails outright.
type GenerationIntent struct {
	IsGenerationRequest bool     `json:"isGenerationRequest"`
	RowCount            int      `json:"rowCount"`
	DataDescription     string   `json:"dataDescription"`
	TargetColumns       []string `json:"targetColumns"`
	NewColumns          []Column `json:"newColumns"`
	TargetSelectedRows  bool     `json:"targetSelectedRows"`
	ClarificationNeeded string   `json:"clarificationNeeded"`
}

// UnmarshalJSON tolerates loosely typed model output: row counts that
// come back as strings and descriptions that come back as numbers.
func (in *GenerationIntent) UnmarshalJSON(data []byte) error {
	type alias GenerationIntent

	aux := struct {
		*alias
		RowCount        json.RawMessage `json:"rowCount"`
		DataDescription json.RawMessage `json:"dataDescription"`
	}{alias: (*alias)(in)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	in.RowCount = jsonutil.FlexibleIntValue(aux.RowCount)
	in.DataDescription = jsonutil.FlexibleStringValue(aux.DataDescription)
	return nil
}
