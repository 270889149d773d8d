package domain

import "time"

// EventKind classifies orchestrator events.
type EventKind string

const (
	EventPhaseChanged EventKind = "phase_changed"
	EventGenerated    EventKind = "generated"
	EventUploaded     EventKind = "uploaded"
	EventFailed       EventKind = "failed"
	EventCompleted    EventKind = "completed"
)

// Event is one orchestrator notification. Subscribers receive an Event for
// every phase transition plus kind-specific payloads along the way.
type Event struct {
	Kind      EventKind `json:"kind"`
	SessionID string    `json:"session_id"`
	Phase     Phase     `json:"phase"`
	Attempt   string    `json:"attempt,omitempty"` // attempt token of the run that produced the event
	Reason    string    `json:"reason,omitempty"`  // failure reason for EventFailed
	TxHash    string    `json:"tx_hash,omitempty"` // populated for EventCompleted
	At        time.Time `json:"at"`
}
