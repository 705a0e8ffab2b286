// Package prompts builds the model prompts used by the assistant and
// the generation worker.
package prompts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tably-inc/tably-engine/pkg/models"
)

// IntentSystemPrompt instructs the model to extract generation
// parameters from a single user message as strict JSON.
const IntentSystemPrompt = `You are an intent parser for a CRM data assistant. ` +
	`The user writes in any language; extract what they are asking for. ` +
	`Respond with a single JSON object and nothing else. Format:
{
  "isGenerationRequest": true|false,
  "rowCount": <number of rows requested, 0 if not stated>,
  "dataDescription": "<what kind of data, empty if not stated>",
  "targetColumns": ["<column names the user named, empty if not stated>"],
  "newColumns": [{"name": "<identifier>", "label": "<display label>", "type": "text"}],
  "targetSelectedRows": true|false,
  "clarificationNeeded": "<slot name that is ambiguous, empty if none>"
}
Only list targetColumns that exist in the table schema. Put columns the user ` +
	`asks for that do not exist into newColumns. Set targetSelectedRows to true ` +
	`only when the user refers to selected or checked rows.`

// BuildIntentPrompt creates the per-message intent extraction prompt.
// The transcript carries the conversation so far, so context-free
// replies like "50" are interpreted against earlier turns.
// selectedCount tells the model how many rows the user currently has
// selected in the UI, so references like "these rows" can be resolved.
func BuildIntentPrompt(message string, transcript []models.TranscriptEntry, columns []models.Column, selectedCount int) string {
	var prompt strings.Builder

	prompt.WriteString("## Table Schema\n\n")
	for _, col := range columns {
		prompt.WriteString(fmt.Sprintf("- %s (%s): %s\n", col.Name, col.Type, col.Label))
	}

	prompt.WriteString("\n## Selection Context\n\n")
	if selectedCount > 0 {
		prompt.WriteString(fmt.Sprintf("The user currently has %d rows selected. ", selectedCount))
		prompt.WriteString("If the message asks to enrich, update, fill in, or complete data ")
		prompt.WriteString("without naming other rows, it refers to this selection: set targetSelectedRows to true.\n")
	} else {
		prompt.WriteString("The user has no rows selected.\n")
	}

	if len(transcript) > 0 {
		prompt.WriteString("\n## Conversation So Far\n\n")
		for _, entry := range transcript {
			prompt.WriteString(fmt.Sprintf("%s: %s\n", entry.Role, entry.Content))
		}
		prompt.WriteString("\nInterpret the message below in the context of this conversation. ")
		prompt.WriteString("A bare number answers the assistant's last question.\n")
	}

	prompt.WriteString("\n## User Message\n\n")
	prompt.WriteString(message)
	prompt.WriteString("\n")

	return prompt.String()
}

// RecordSystemPrompt instructs the model to produce one record as
// strict JSON.
const RecordSystemPrompt = `You generate CRM record data. ` +
	`Respond with a single JSON object and nothing else. Format:
{
  "fields": {"<column name>": <value or null if no plausible data>},
  "sources": {"<column name>": "<short note on where the value could come from>"}
}
Only include the requested columns in "fields". Use null for a column ` +
	`you cannot produce a plausible value for. Never invent URLs or ` +
	`verifiable identifiers.`

// BuildGenerationRecordPrompt creates the prompt for one net-new record.
// recordNumber is 1-based; priorNames lists names already produced in
// this job so the model avoids duplicates.
func BuildGenerationRecordPrompt(description string, columns []models.Column, recordNumber, total int, priorNames []string) string {
	var prompt strings.Builder

	prompt.WriteString("## Task\n\n")
	prompt.WriteString(fmt.Sprintf("Generate record %d of %d matching this description:\n%s\n",
		recordNumber, total, description))

	prompt.WriteString("\n## Columns To Fill\n\n")
	for _, col := range columns {
		prompt.WriteString(fmt.Sprintf("- %s (%s): %s\n", col.Name, col.Type, col.Label))
	}

	if len(priorNames) > 0 {
		prompt.WriteString("\n## Already Generated (do not repeat)\n\n")
		for _, name := range priorNames {
			prompt.WriteString(fmt.Sprintf("- %s\n", name))
		}
	}

	return prompt.String()
}

// BuildEnrichmentRecordPrompt creates the prompt for enriching one
// existing record. knownValues gives the record's populated fields as
// context; columns lists the fields to fill.
func BuildEnrichmentRecordPrompt(description string, columns []models.Column, knownValues map[string]any) string {
	var prompt strings.Builder

	prompt.WriteString("## Task\n\n")
	prompt.WriteString("Fill in the missing fields of this existing record.\n")
	if description != "" {
		prompt.WriteString(fmt.Sprintf("Context: %s\n", description))
	}

	prompt.WriteString("\n## Known Values\n\n")
	if len(knownValues) == 0 {
		prompt.WriteString("(none)\n")
	} else {
		// Stable JSON rendering keeps the prompt deterministic for tests.
		encoded, err := json.Marshal(knownValues)
		if err == nil {
			prompt.WriteString(string(encoded))
			prompt.WriteString("\n")
		}
	}

	prompt.WriteString("\n## Columns To Fill\n\n")
	for _, col := range columns {
		prompt.WriteString(fmt.Sprintf("- %s (%s): %s\n", col.Name, col.Type, col.Label))
	}

	prompt.WriteString("\nUse null for any column you cannot determine from the known values.\n")

	return prompt.String()
}
