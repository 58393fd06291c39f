package models

import (
	"testing"
	"time"
)

func TestTurnResponse_Terminates(t *testing.T) {
	tests := []struct {
		name string
		resp TurnResponse
		want bool
	}{
		{"continue", TurnResponse{Intent: "Continue", QuestionCount: 1}, false},
		{"quit before cap", TurnResponse{Intent: IntentQuit, QuestionCount: 3}, true},
		{"service ended", TurnResponse{Intent: "Continue", QuestionCount: 4, InterviewEnded: true}, true},
		{"cap reached", TurnResponse{Intent: "Continue", QuestionCount: 10}, true},
		{"cap exceeded", TurnResponse{QuestionCount: 12}, true},
		{"one below cap", TurnResponse{Intent: "Continue", QuestionCount: 9}, false},
		{"intent is case sensitive", TurnResponse{Intent: "quit_interview", QuestionCount: 2}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.resp.Terminates(DefaultMaxQuestions); got != tt.want {
				t.Errorf("Terminates() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTurnResponse_Terminates_DefaultCap(t *testing.T) {
	resp := TurnResponse{QuestionCount: 10}
	if !resp.Terminates(0) {
		t.Error("expected non-positive cap to fall back to the default of 10")
	}
}

func TestFrameSample_Formatting(t *testing.T) {
	ts := time.Date(2024, 3, 9, 14, 5, 7, 123456789, time.FixedZone("CET", 3600))
	f := FrameSample{Timestamp: ts}

	if got := f.TimestampISO(); got != "2024-03-09T13:05:07.123Z" {
		t.Errorf("TimestampISO() = %s", got)
	}
	want := "frame_" + "1709989507123" + ".jpg"
	if got := f.Filename(); got != want {
		t.Errorf("Filename() = %s, want %s", got, want)
	}
}
