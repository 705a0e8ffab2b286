package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerationIntentUnmarshal(t *testing.T) {
	raw := `{
		"isGenerationRequest": true,
		"rowCount": 50,
		"dataDescription": "IT companies in Japan",
		"targetColumns": ["name", "email"]
	}`

	var intent GenerationIntent
	require.NoError(t, json.Unmarshal([]byte(raw), &intent))

	assert.True(t, intent.IsGenerationRequest)
	assert.Equal(t, 50, intent.RowCount)
	assert.Equal(t, "IT companies in Japan", intent.DataDescription)
	assert.Equal(t, []string{"name", "email"}, intent.TargetColumns)
}

func TestGenerationIntentUnmarshalLooseTypes(t *testing.T) {
	raw := `{
		"isGenerationRequest": true,
		"rowCount": "50",
		"dataDescription": "IT companies"
	}`

	var intent GenerationIntent
	require.NoError(t, json.Unmarshal([]byte(raw), &intent))
	assert.Equal(t, 50, intent.RowCount)

	// A row count the model left out entirely decodes to zero.
	var empty GenerationIntent
	require.NoError(t, json.Unmarshal([]byte(`{"isGenerationRequest": false}`), &empty))
	assert.Zero(t, empty.RowCount)
	assert.Empty(t, empty.DataDescription)
}
