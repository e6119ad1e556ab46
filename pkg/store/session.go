// Package store defines the session document persisted between turns. The
// persistence mechanism (Redis with a 30-minute expiry) lives in the
// repository layer; this package owns the schema and its backfill rules.
package store

import (
	"incentive-agent-be/pkg/dialog/resolve"
	"incentive-agent-be/pkg/dialog/slots"
)

// Message is one history entry. FieldName is set when the message was a
// follow-up question or answer tied to a specific field.
type Message struct {
	Role      string `json:"role"`
	Text      string `json:"text"`
	FieldName string `json:"field_name,omitempty"`
}

// AskedEntry tracks how often a field has been asked about and with what
// phrasing, so re-asks can rephrase instead of repeating.
type AskedEntry struct {
	Count        int    `json:"count"`
	LastQuestion string `json:"last_question_text"`
}

// FinalAnswer is the cached composed answer for the active intent.
type FinalAnswer struct {
	Text            string   `json:"answer_text"`
	Recommendations []string `json:"recommendations"`
}

// Session is the per-conversation state, mutated once per turn.
type Session struct {
	ID              string    `json:"session_id"`
	OriginalMessage string    `json:"original_user_message"`
	Messages        []Message `json:"messages"`

	// Active intent management
	IntentTopics []string              `json:"intent_topics"`
	CurrentTopic string                `json:"current_intent_topic"`
	PickedBranch []string              `json:"picked_set"`
	Slots        *slots.State          `json:"required_fields"`
	PendingField string                `json:"pending_field"`
	AskedLog     map[string]AskedEntry `json:"asked_log"`

	// Disambiguation options per field, scoped to the current ask.
	Candidates map[string][]resolve.Candidate `json:"candidates"`

	// Results + final answer caching
	LastResult  []map[string]any `json:"last_result"`
	FinalAnswer *FinalAnswer     `json:"final_answer"`
	LastRoute   string           `json:"last_path"`
}

// New creates a session with the default schema.
func New(id, userMessage string) *Session {
	s := &Session{
		ID:              id,
		OriginalMessage: userMessage,
	}
	s.Backfill()
	return s
}

// Backfill initializes any nil collections so sessions written by older
// schema versions keep working after load.
func (s *Session) Backfill() {
	if s.Messages == nil {
		s.Messages = []Message{}
	}
	if s.IntentTopics == nil {
		s.IntentTopics = []string{}
	}
	if s.Slots == nil {
		s.Slots = slots.NewState()
	}
	if s.AskedLog == nil {
		s.AskedLog = map[string]AskedEntry{}
	}
	if s.Candidates == nil {
		s.Candidates = map[string][]resolve.Candidate{}
	}
	if s.LastResult == nil {
		s.LastResult = []map[string]any{}
	}
}

// AddMessage appends one history entry.
func (s *Session) AddMessage(role, text, fieldName string) {
	s.Messages = append(s.Messages, Message{Role: role, Text: text, FieldName: fieldName})
}

// RecordAsk bumps the ask counter for a field and stores the phrasing.
func (s *Session) RecordAsk(field, questionText string) AskedEntry {
	entry := s.AskedLog[field]
	entry.Count++
	entry.LastQuestion = questionText
	s.AskedLog[field] = entry
	return entry
}

// ResultNames extracts up to limit engagement names from the cached rows.
func (s *Session) ResultNames(limit int) []string {
	out := []string{}
	for _, row := range s.LastResult {
		if len(out) >= limit {
			break
		}
		if name, ok := row["name"].(string); ok && name != "" {
			out = append(out, name)
		}
	}
	return out
}
