package models

// ResetRequest starts a new dialogue session for a job and candidate.
type ResetRequest struct {
	Reset         bool   `json:"reset"`
	JobID         string `json:"job_id"`
	CandidateID   string `json:"candidate_id"`
	CandidateName string `json:"candidateName"`
}

// ResetResponse carries the first question.
type ResetResponse struct {
	Reset         bool   `json:"reset"`
	Response      string `json:"response"`
	CandidateName string `json:"candidateName"`
}

// TurnRequest submits one answer.
type TurnRequest struct {
	Message       string `json:"message"`
	JobID         string `json:"job_id"`
	CandidateID   string `json:"candidate_id"`
	CandidateName string `json:"candidateName"`
}

// TurnResponse carries the next question or the closing text.
type TurnResponse struct {
	Response       string `json:"response"`
	Intent         string `json:"intent"`
	QuestionCount  int    `json:"question_count"`
	InterviewEnded bool   `json:"interview_ended"`
}

// Terminates reports whether the response ends the interview: the candidate quit,
// the service ended it, or the question cap was reached.
func (r TurnResponse) Terminates(maxQuestions int) bool {
	if maxQuestions <= 0 {
		maxQuestions = DefaultMaxQuestions
	}
	return r.Intent == IntentQuit || r.InterviewEnded || r.QuestionCount >= maxQuestions
}

// ErrorResponse is the body the backend returns on failure.
type ErrorResponse struct {
	Error string `json:"error"`
}
