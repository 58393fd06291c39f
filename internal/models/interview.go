// Package models defines the data structures shared by the interview session components.
package models

import (
	"strconv"
	"time"
)

// IntentQuit is the intent tag the dialogue service uses when the candidate asks to stop.
const IntentQuit = "Quit_interview"

// DefaultMaxQuestions is the hard cap on questions per interview.
const DefaultMaxQuestions = 10

// InterviewSession is the state of one interview as reported by the dialogue service.
// It is created on reset and mutated only by dialogue responses.
type InterviewSession struct {
	SessionID     string `json:"sessionId"`
	JobID         string `json:"jobId"`
	CandidateID   string `json:"candidateId"`
	CandidateName string `json:"candidateName"`
	JobTitle      string `json:"jobTitle"`
	QuestionCount int    `json:"questionCount"`
	LastIntent    string `json:"lastIntent"`
	Ended         bool   `json:"ended"`
}

// FrameSample is one still image sampled from the camera for proctoring.
// Samples are transmitted immediately and never retained.
type FrameSample struct {
	Image       []byte
	Timestamp   time.Time
	JobID       string
	CandidateID string
}

// TimestampISO formats the sample time the way the backend expects it
// (UTC, millisecond precision).
func (f FrameSample) TimestampISO() string {
	return f.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z")
}

// Filename is the multipart file name for the sample.
func (f FrameSample) Filename() string {
	return "frame_" + strconv.FormatInt(f.Timestamp.UnixMilli(), 10) + ".jpg"
}
