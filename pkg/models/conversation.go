package models

// ConversationPhase tracks which parameter the assistant is collecting.
type ConversationPhase string

const (
	PhaseAwaitingDescription  ConversationPhase = "awaiting_description"
	PhaseAwaitingRowCount     ConversationPhase = "awaiting_row_count"
	PhaseAwaitingColumns      ConversationPhase = "awaiting_columns"
	PhaseAwaitingConfirmation ConversationPhase = "awaiting_confirmation"
	PhaseReady                ConversationPhase = "ready"
)

// TranscriptEntry is one exchange in the assistant conversation.
type TranscriptEntry struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// ConversationState is the full state of an assistant session. The
// server never stores it: every response carries the updated state and
// the client echoes it back with the next message.
type ConversationState struct {
	SessionID  string            `json:"sessionId"`
	TableID    string            `json:"tableId"`
	TableName  string            `json:"tableName"`
	Columns    []Column          `json:"columns"`
	Phase      ConversationPhase `json:"phase"`
	Transcript []TranscriptEntry `json:"transcript"`

	// Collected parameters. Zero values mean not yet collected.
	DataDescription string   `json:"dataDescription,omitempty"`
	RowCount        int      `json:"rowCount,omitempty"`
	TargetColumns   []string `json:"targetColumns,omitempty"`
	NewColumns      []Column `json:"newColumns,omitempty"`
	Confirmed       bool     `json:"confirmed,omitempty"`

	// TargetSelectedRows marks the conversation as an enrichment of the
	// rows the user has selected in the UI rather than net-new
	// generation. SelectedCount is the size of that selection when the
	// flag was set.
	TargetSelectedRows bool `json:"targetSelectedRows,omitempty"`
	SelectedCount      int  `json:"selectedCount,omitempty"`

	// SlotAttempts counts clarification attempts per slot so the
	// assistant can stop re-asking and fall back to defaults.
	SlotAttempts map[string]int `json:"slotAttempts,omitempty"`
}

// Clone returns a deep copy of the state. Transitions operate on the
// copy so the caller's state is never mutated.
func (s *ConversationState) Clone() *ConversationState {
	cp := *s

	cp.Columns = append([]Column(nil), s.Columns...)
	cp.Transcript = append([]TranscriptEntry(nil), s.Transcript...)
	cp.TargetColumns = append([]string(nil), s.TargetColumns...)
	cp.NewColumns = append([]Column(nil), s.NewColumns...)

	if s.SlotAttempts != nil {
		cp.SlotAttempts = make(map[string]int, len(s.SlotAttempts))
		for k, v := range s.SlotAttempts {
			cp.SlotAttempts[k] = v
		}
	}

	return &cp
}

// BumpAttempt increments and returns the clarification attempt count
// for a slot.
func (s *ConversationState) BumpAttempt(slot string) int {
	if s.SlotAttempts == nil {
		s.SlotAttempts = make(map[string]int)
	}
	s.SlotAttempts[slot]++
	return s.SlotAttempts[slot]
}
