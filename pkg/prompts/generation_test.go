package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tably-inc/tably-engine/pkg/models"
)

var testColumns = []models.Column{
	{Name: "name", Label: "Name", Type: "text"},
	{Name: "email", Label: "Email Address", Type: "text"},
	{Name: "industry", Label: "Industry", Type: "text"},
}

func TestBuildIntentPrompt(t *testing.T) {
	prompt := BuildIntentPrompt("50社のIT企業のデータを生成して", nil, testColumns, 0)

	assert.Contains(t, prompt, "name (text): Name")
	assert.Contains(t, prompt, "industry (text): Industry")
	assert.Contains(t, prompt, "no rows selected")
	assert.Contains(t, prompt, "50社のIT企業のデータを生成して")
	assert.NotContains(t, prompt, "Conversation So Far")
}

func TestBuildIntentPromptWithSelection(t *testing.T) {
	prompt := BuildIntentPrompt("enrich these rows", nil, testColumns, 7)

	assert.Contains(t, prompt, "7 rows selected")
	assert.Contains(t, prompt, "set targetSelectedRows to true")
	assert.NotContains(t, prompt, "no rows selected")
}

func TestBuildIntentPromptWithTranscript(t *testing.T) {
	transcript := []models.TranscriptEntry{
		{Role: "user", Content: "add some startups in Berlin"},
		{Role: "assistant", Content: "How many rows should I generate?"},
	}
	prompt := BuildIntentPrompt("20", transcript, testColumns, 0)

	assert.Contains(t, prompt, "Conversation So Far")
	assert.Contains(t, prompt, "user: add some startups in Berlin")
	assert.Contains(t, prompt, "assistant: How many rows should I generate?")
	assert.Contains(t, prompt, "A bare number answers the assistant's last question.")
}

func TestBuildGenerationRecordPrompt(t *testing.T) {
	prompt := BuildGenerationRecordPrompt("IT companies in Tokyo", testColumns, 3, 10,
		[]string{"Acme Systems", "Globex KK"})

	assert.Contains(t, prompt, "record 3 of 10")
	assert.Contains(t, prompt, "IT companies in Tokyo")
	assert.Contains(t, prompt, "email (text): Email Address")
	assert.Contains(t, prompt, "Acme Systems")
	assert.Contains(t, prompt, "Globex KK")
}

func TestBuildGenerationRecordPromptNoPriorNames(t *testing.T) {
	prompt := BuildGenerationRecordPrompt("startups", testColumns, 1, 5, nil)

	assert.NotContains(t, prompt, "Already Generated")
}

func TestBuildEnrichmentRecordPrompt(t *testing.T) {
	known := map[string]any{"name": "Acme Systems"}
	prompt := BuildEnrichmentRecordPrompt("fill missing contact info",
		[]models.Column{{Name: "email", Label: "Email Address", Type: "text"}}, known)

	assert.Contains(t, prompt, "Acme Systems")
	assert.Contains(t, prompt, "fill missing contact info")
	assert.Contains(t, prompt, "email (text): Email Address")
	assert.Contains(t, prompt, "Use null")
}

func TestBuildEnrichmentRecordPromptEmptyKnown(t *testing.T) {
	prompt := BuildEnrichmentRecordPrompt("", testColumns, nil)

	assert.Contains(t, prompt, "(none)")
}
