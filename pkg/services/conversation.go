package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tably-inc/tably-engine/pkg/models"
)

// maxSlotAttempts bounds how often the assistant re-asks for the same
// ambiguous slot before falling back to a default.
const maxSlotAttempts = 2

// ConversationEngine drives the assistant dialog that collects
// generation parameters. Transitions are pure: the engine never stores
// state and never mutates the state it is given. Clients echo the
// returned state back with the next message.
type ConversationEngine interface {
	// Start opens a session for a table and returns the initial state
	// plus the opening assistant message.
	Start(table *models.Table) (*models.ConversationState, string)

	// HandleMessage advances the conversation by one user message and
	// returns the new state plus the assistant reply.
	HandleMessage(ctx context.Context, state *models.ConversationState, message string, selectedCount int) (*models.ConversationState, string, error)
}

type conversationEngine struct {
	parser      IntentParser
	maxRows     int
	defaultRows int
	logger      *zap.Logger
}

var _ ConversationEngine = (*conversationEngine)(nil)

// NewConversationEngine creates a new conversation engine. maxRows caps
// the row count a conversation can settle on; defaultRows is used when
// the user never states one.
func NewConversationEngine(parser IntentParser, maxRows, defaultRows int, logger *zap.Logger) ConversationEngine {
	return &conversationEngine{
		parser:      parser,
		maxRows:     maxRows,
		defaultRows: defaultRows,
		logger:      logger.Named("conversation"),
	}
}

// Start opens a session for a table.
func (e *conversationEngine) Start(table *models.Table) (*models.ConversationState, string) {
	reply := fmt.Sprintf("What kind of data should I add to %q? Describe the rows you want, e.g. \"50 IT companies in Tokyo\".", table.Name)

	state := &models.ConversationState{
		SessionID: uuid.NewString(),
		TableID:   table.ID.String(),
		TableName: table.Name,
		Columns:   append([]models.Column(nil), table.Columns...),
		Phase:     models.PhaseAwaitingDescription,
		Transcript: []models.TranscriptEntry{
			{Role: "assistant", Content: reply},
		},
	}

	return state, reply
}

// HandleMessage advances the conversation by one user message.
func (e *conversationEngine) HandleMessage(ctx context.Context, state *models.ConversationState, message string, selectedCount int) (*models.ConversationState, string, error) {
	next := state.Clone()
	next.Transcript = append(next.Transcript, models.TranscriptEntry{Role: "user", Content: message})

	// A bare confirmation needs no model round trip.
	if next.Phase == models.PhaseAwaitingConfirmation && isAffirmative(message) {
		next.Confirmed = true
		next.Phase = models.PhaseReady
		reply := e.readyReply(next)
		next.Transcript = append(next.Transcript, models.TranscriptEntry{Role: "assistant", Content: reply})
		return next, reply, nil
	}

	// Extraction runs against the accumulated conversation, not just the
	// latest message; the current message is passed separately.
	history := next.Transcript[:len(next.Transcript)-1]
	intent, err := e.parser.Parse(ctx, message, history, next.Columns, selectedCount)
	if err != nil {
		return nil, "", err
	}

	firstTurn := next.Phase == models.PhaseAwaitingDescription && next.DataDescription == ""

	e.mergeIntent(next, intent)

	// An enrichment ask against the current selection fixes the row
	// count: it is the selection size.
	if intent.TargetSelectedRows && selectedCount > 0 {
		next.TargetSelectedRows = true
		next.SelectedCount = selectedCount
		if next.RowCount == 0 {
			next.RowCount = selectedCount
		}
	}

	// Off-topic message before anything was collected: steer back.
	if !intent.IsGenerationRequest && next.DataDescription == "" {
		reply := "I can generate or enrich rows in this table. Tell me what kind of data you need."
		next.Transcript = append(next.Transcript, models.TranscriptEntry{Role: "assistant", Content: reply})
		return next, reply, nil
	}

	// Everything arrived in the opening message: skip the slot walk and
	// the confirmation round.
	if firstTurn && next.DataDescription != "" && next.RowCount > 0 {
		next.Confirmed = true
		next.Phase = models.PhaseReady
		reply := e.readyReply(next)
		next.Transcript = append(next.Transcript, models.TranscriptEntry{Role: "assistant", Content: reply})
		return next, reply, nil
	}

	reply := e.advance(next)
	next.Transcript = append(next.Transcript, models.TranscriptEntry{Role: "assistant", Content: reply})
	return next, reply, nil
}

// mergeIntent folds extracted values into the state. Later messages can
// correct earlier values; empty extractions never erase collected ones.
func (e *conversationEngine) mergeIntent(state *models.ConversationState, intent *models.GenerationIntent) {
	if intent.DataDescription != "" {
		state.DataDescription = intent.DataDescription
	}
	if intent.RowCount > 0 {
		state.RowCount = intent.RowCount
		if state.RowCount > e.maxRows {
			state.RowCount = e.maxRows
		}
	}
	if len(intent.TargetColumns) > 0 {
		state.TargetColumns = append([]string(nil), intent.TargetColumns...)
	}
	if len(intent.NewColumns) > 0 {
		state.NewColumns = append([]models.Column(nil), intent.NewColumns...)
	}
}

// advance computes the next phase and reply from the collected slots.
func (e *conversationEngine) advance(state *models.ConversationState) string {
	if state.DataDescription == "" {
		// No default exists for the description; keep asking.
		state.Phase = models.PhaseAwaitingDescription
		return "I still need to know what kind of data to generate. Can you describe it?"
	}

	if state.RowCount == 0 {
		if state.BumpAttempt("rowCount") > maxSlotAttempts {
			state.RowCount = e.defaultRows
		} else {
			state.Phase = models.PhaseAwaitingRowCount
			return "How many rows should I generate?"
		}
	}

	if len(state.TargetColumns) == 0 {
		if state.BumpAttempt("columns") > maxSlotAttempts {
			state.TargetColumns = columnNames(state.Columns)
		} else {
			state.Phase = models.PhaseAwaitingColumns
			return fmt.Sprintf("Which columns should I fill? Available: %s. Say \"all\" for every column.",
				strings.Join(columnNames(state.Columns), ", "))
		}
	}

	state.Phase = models.PhaseAwaitingConfirmation
	return e.summaryReply(state)
}

func (e *conversationEngine) summaryReply(state *models.ConversationState) string {
	columns := state.TargetColumns
	if len(columns) == 0 {
		columns = columnNames(state.Columns)
	}

	var b strings.Builder
	if state.TargetSelectedRows {
		fmt.Fprintf(&b, "I'll enrich the %d selected rows of %q (%s), filling: %s.",
			state.SelectedCount, state.TableName, state.DataDescription, strings.Join(columns, ", "))
	} else {
		fmt.Fprintf(&b, "I'll generate %d rows of %s into %q, filling: %s.",
			state.RowCount, state.DataDescription, state.TableName, strings.Join(columns, ", "))
	}
	if len(state.NewColumns) > 0 {
		names := make([]string, len(state.NewColumns))
		for i, c := range state.NewColumns {
			names[i] = c.Name
		}
		fmt.Fprintf(&b, " New columns to add: %s.", strings.Join(names, ", "))
	}
	b.WriteString(" Shall I go ahead?")
	return b.String()
}

func (e *conversationEngine) readyReply(state *models.ConversationState) string {
	if len(state.TargetColumns) == 0 {
		state.TargetColumns = columnNames(state.Columns)
	}
	if state.TargetSelectedRows {
		return fmt.Sprintf("Enriching the %d selected rows. You'll see a preview before anything is saved.",
			state.SelectedCount)
	}
	return fmt.Sprintf("Generating %d rows of %s. You'll see a preview before anything is saved.",
		state.RowCount, state.DataDescription)
}

func columnNames(columns []models.Column) []string {
	names := make([]string, len(columns))
	for i, c := range columns {
		names[i] = c.Name
	}
	return names
}

// affirmatives covers short confirmation replies in the languages our
// users actually write in.
var affirmatives = []string{
	"yes", "y", "yes please", "ok", "okay", "sure", "confirm", "go ahead", "do it", "yep", "yeah",
	"はい", "お願いします", "おねがいします", "いいよ", "実行して", "進めて",
}

func isAffirmative(message string) bool {
	normalized := strings.ToLower(strings.TrimRight(strings.TrimSpace(message), ".!。！"))
	for _, a := range affirmatives {
		if normalized == a {
			return true
		}
	}
	return false
}
