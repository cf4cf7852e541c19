package models

import "github.com/google/uuid"

// QueryRequest is one user turn: a natural-language question against a
// selected connection, with an optional bounded window of prior exchanges.
// Transient - created and discarded within a single request.
type QueryRequest struct {
	TenantID     uuid.UUID  `json:"tenant_id"`
	ConnectionID uuid.UUID  `json:"connection_id"`
	Question     string     `json:"question"`
	History      []Exchange `json:"history,omitempty"`
}

// Exchange is one prior question/SQL pair from the same session, used so
// follow-up references ("list them") can resolve to an antecedent query.
type Exchange struct {
	Question string `json:"question"`
	SQL      string `json:"sql"`
}

// GeneratedQuery is the output of synthesis.
// Invariant: if NeedsClarification is true, SQL is empty and is never executed.
type GeneratedQuery struct {
	SQL                   string   `json:"sql"`
	Explanation           string   `json:"explanation"`
	Confidence            int      `json:"confidence"` // 0-100
	Warnings              []string `json:"warnings,omitempty"`
	NeedsClarification    bool     `json:"needs_clarification"`
	ClarificationQuestion string   `json:"clarification_question,omitempty"`
	TablesUsed            []string `json:"tables_used,omitempty"`
}
