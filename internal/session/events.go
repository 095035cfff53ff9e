package session

import "time"

// EventType identifies the kind of session event.
type EventType string

const (
	EventSessionStart     EventType = "session_start"
	EventSessionEnd       EventType = "session_end"
	EventIterationStart   EventType = "iteration_start"
	EventBackendReply     EventType = "backend_reply"
	EventCommandsExecuted EventType = "commands_executed"
	EventCommandsRejected EventType = "commands_rejected"
	EventError            EventType = "error"
)

// Event is a single timestamped entry in a session log. Data carries the
// typed payload for the event's type.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Data      any       `json:"data,omitempty"`
}

// NewEvent stamps a payload with the current time.
func NewEvent(t EventType, data any) Event {
	return Event{
		Timestamp: time.Now().UTC(),
		Type:      t,
		Data:      data,
	}
}

// SessionStart is the payload of an EventSessionStart.
type SessionStart struct {
	SessionID     string `json:"session_id"`
	Goal          string `json:"goal"`
	Backend       string `json:"backend"`
	Model         string `json:"model,omitempty"`
	MaxIterations int    `json:"max_iterations"`
}

// SessionEnd is the payload of an EventSessionEnd.
type SessionEnd struct {
	Outcome    string `json:"outcome"`
	Iterations int    `json:"iterations"`
	DurationMs int64  `json:"duration_ms"`
}

// IterationStart is the payload of an EventIterationStart.
type IterationStart struct {
	Iteration  int    `json:"iteration"`
	Screenshot string `json:"screenshot"`
}

// BackendReply is the payload of an EventBackendReply.
type BackendReply struct {
	Iteration    int  `json:"iteration"`
	ReplyBytes   int  `json:"reply_bytes"`
	CommandCount int  `json:"command_count"`
	GoalAchieved bool `json:"goal_achieved"`
}

// CommandsExecuted is the payload of an EventCommandsExecuted.
type CommandsExecuted struct {
	Iteration    int  `json:"iteration"`
	Executed     int  `json:"executed"`
	Total        int  `json:"total"`
	AllSucceeded bool `json:"all_succeeded"`
}

// CommandsRejected is the payload of an EventCommandsRejected. Index is the
// zero-based position of the refused command within its batch.
type CommandsRejected struct {
	Iteration int    `json:"iteration"`
	Index     int    `json:"index"`
	Command   string `json:"command"`
	Reason    string `json:"reason"`
}

// Failure is the payload of an EventError.
type Failure struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}
