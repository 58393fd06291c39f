package models

// Event types published to Kafka.
const (
	EventSessionStarted = "interview.session.started"
	EventSessionEnded   = "interview.session.ended"
	EventSessionFailed  = "interview.session.failed"
	EventTurnCompleted  = "interview.turn.completed"
	EventTurnFailed     = "interview.turn.failed"
	EventCaptureFault   = "interview.capture.fault"
)

// SessionEvent describes a session lifecycle change.
type SessionEvent struct {
	EventType     string `json:"eventType"`
	SessionID     string `json:"sessionId"`
	JobID         string `json:"jobId"`
	CandidateID   string `json:"candidateId"`
	CandidateName string `json:"candidateName,omitempty"`
	QuestionCount int    `json:"questionCount"`
	LastIntent    string `json:"lastIntent,omitempty"`
	Reason        string `json:"reason,omitempty"`
	Timestamp     int64  `json:"timestamp"`
}

// TurnEvent describes one submitted answer and its outcome.
type TurnEvent struct {
	EventType     string `json:"eventType"`
	SessionID     string `json:"sessionId"`
	TurnID        string `json:"turnId"`
	JobID         string `json:"jobId"`
	CandidateID   string `json:"candidateId"`
	Question      string `json:"question"`
	Answer        string `json:"answer"`
	Intent        string `json:"intent,omitempty"`
	QuestionCount int    `json:"questionCount"`
	Terminal      bool   `json:"terminal"`
	Error         string `json:"error,omitempty"`
	LatencyMs     int64  `json:"latencyMs"`
	Timestamp     int64  `json:"timestamp"`
}
