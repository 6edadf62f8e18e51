package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionAnswer   Action = "answer"
	ActionNavigate Action = "navigate"
	ActionSubmit   Action = "submit"
	ActionPing     Action = "ping"
)

// RequestPayload is the single client message shape. Fields beyond Action are
// read per-action: answer uses QID+Answer, navigate uses Index.
type RequestPayload struct {
	Action Action `json:"action"`
	QID    string `json:"q_id,omitempty"`
	Answer string `json:"ans,omitempty"`
	Index  int    `json:"index,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventState  Event = "state"
	EventTick   Event = "tick"
	EventSaved  Event = "saved"
	EventGraded Event = "graded"
	EventError  Event = "error"
	EventPong   Event = "pong"
)

// StateResponse is sent once after connect to sync the client clock and
// autosaved answers.
type StateResponse struct {
	Event            Event             `json:"event"`
	AttemptNumber    int               `json:"attempt_number"`
	RemainingSeconds int               `json:"remaining_seconds"`
	Answers          map[string]string `json:"answers"`
}

// TickResponse carries the authoritative countdown, sent every second.
type TickResponse struct {
	Event            Event `json:"event"`
	RemainingSeconds int   `json:"remaining_seconds"`
}

// SavedResponse acknowledges an autosaved answer.
type SavedResponse struct {
	Event Event  `json:"event"`
	QID   string `json:"q_id"`
}

// GradedResponse delivers the result after manual or timeout submission.
type GradedResponse struct {
	Event         Event       `json:"event"`
	AttemptNumber int         `json:"attempt_number"`
	AutoSubmitted bool        `json:"auto_submitted"`
	Result        interface{} `json:"result"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
