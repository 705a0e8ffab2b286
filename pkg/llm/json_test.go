package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
		wantErr  bool
	}{
		{
			name:     "plain object",
			response: `{"rowCount": 50}`,
			want:     `{"rowCount": 50}`,
		},
		{
			name:     "markdown code fence",
			response: "Here you go:\n```json\n{\"rowCount\": 10}\n```",
			want:     `{"rowCount": 10}`,
		},
		{
			name:     "think tags stripped",
			response: "<think>the user wants 50 rows</think>\n{\"rowCount\": 50}",
			want:     `{"rowCount": 50}`,
		},
		{
			name:     "nested object with trailing prose",
			response: `{"fields": {"email": "a@b.co"}} Let me know if you need more.`,
			want:     `{"fields": {"email": "a@b.co"}}`,
		},
		{
			name:     "braces inside strings",
			response: `{"dataDescription": "companies like {Acme}"}`,
			want:     `{"dataDescription": "companies like {Acme}"}`,
		},
		{
			name:     "array response",
			response: "```json\n[{\"name\": \"Acme\"}]\n```",
			want:     `[{"name": "Acme"}]`,
		},
		{
			name:     "no JSON at all",
			response: "I could not produce structured output, sorry.",
			wantErr:  true,
		},
		{
			name:     "unbalanced braces",
			response: `{"rowCount": 50`,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.response)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseJSONResponse(t *testing.T) {
	type intentPayload struct {
		IsGenerationRequest bool   `json:"isGenerationRequest"`
		RowCount            int    `json:"rowCount"`
		DataDescription     string `json:"dataDescription"`
	}

	t.Run("valid payload", func(t *testing.T) {
		resp := "```json\n{\"isGenerationRequest\": true, \"rowCount\": 50, \"dataDescription\": \"IT companies\"}\n```"
		got, err := ParseJSONResponse[intentPayload](resp)
		require.NoError(t, err)
		assert.True(t, got.IsGenerationRequest)
		assert.Equal(t, 50, got.RowCount)
		assert.Equal(t, "IT companies", got.DataDescription)
	})

	t.Run("no JSON is a parse error", func(t *testing.T) {
		_, err := ParseJSONResponse[intentPayload]("free text only")
		require.Error(t, err)
		assert.Equal(t, ErrorTypeParse, GetErrorType(err))
	})

	t.Run("type mismatch is a parse error", func(t *testing.T) {
		_, err := ParseJSONResponse[intentPayload](`{"rowCount": "fifty"}`)
		require.Error(t, err)
		assert.Equal(t, ErrorTypeParse, GetErrorType(err))
	})
}
