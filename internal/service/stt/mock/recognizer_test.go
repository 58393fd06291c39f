package mock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ai-interview-session-service/internal/service/stt"
)

// testCallback implements stt.Callback for testing
type testCallback struct {
	mu       sync.Mutex
	partials []string
	finals   []string
	errors   []error
	ends     int
}

func (c *testCallback) OnPartial(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.partials = append(c.partials, text)
}

func (c *testCallback) OnFinal(text string, confidence float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.finals = append(c.finals, text)
}

func (c *testCallback) OnError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errors = append(c.errors, err)
}

func (c *testCallback) OnEnd() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ends++
}

func (c *testCallback) snapshot() (partials, finals []string, errs []error, ends int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string{}, c.partials...), append([]string{}, c.finals...), append([]error{}, c.errors...), c.ends
}

func newTestRecognizer() *Recognizer {
	r := New()
	r.Utterances = []Utterance{
		{Partials: []string{"I have", "I have five"}, Final: "I have five years", Confidence: 0.9},
		{Final: "Second answer", Confidence: 0.8},
	}
	r.Step = 5 * time.Millisecond
	return r
}

func TestRecognizer_PlaysUtteranceThenIdles(t *testing.T) {
	r := newTestRecognizer()
	cb := &testCallback{}

	if err := r.Start(context.Background(), cb); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	partials, finals, _, ends := cb.snapshot()
	if len(partials) != 2 {
		t.Errorf("expected 2 partials, got %v", partials)
	}
	if len(finals) != 1 || finals[0] != "I have five years" {
		t.Errorf("expected one final, got %v", finals)
	}
	if ends != 0 {
		t.Error("session should stay open until stopped")
	}

	r.Stop()
	time.Sleep(20 * time.Millisecond)

	if _, _, _, ends := cb.snapshot(); ends != 1 {
		t.Errorf("expected exactly one OnEnd, got %d", ends)
	}
}

func TestRecognizer_StartWhileRunning(t *testing.T) {
	r := newTestRecognizer()
	cb := &testCallback{}

	if err := r.Start(context.Background(), cb); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer r.Stop()

	if err := r.Start(context.Background(), cb); !errors.Is(err, stt.ErrBusy) {
		t.Errorf("expected ErrBusy, got %v", err)
	}
}

func TestRecognizer_CyclesUtterances(t *testing.T) {
	r := newTestRecognizer()

	for _, want := range []string{"I have five years", "Second answer", "I have five years"} {
		cb := &testCallback{}
		if err := r.Start(context.Background(), cb); err != nil {
			t.Fatalf("Start failed: %v", err)
		}
		time.Sleep(40 * time.Millisecond)
		r.Stop()
		time.Sleep(10 * time.Millisecond)

		_, finals, _, _ := cb.snapshot()
		if len(finals) != 1 || finals[0] != want {
			t.Errorf("expected final %q, got %v", want, finals)
		}
	}
	if r.Starts() != 3 {
		t.Errorf("expected 3 starts, got %d", r.Starts())
	}
}

func TestRecognizer_NoSpeechAfter(t *testing.T) {
	r := newTestRecognizer()
	r.NoSpeechAfter = 10 * time.Millisecond
	cb := &testCallback{}

	if err := r.Start(context.Background(), cb); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	time.Sleep(80 * time.Millisecond)

	_, _, errs, ends := cb.snapshot()
	if len(errs) != 1 || !errors.Is(errs[0], stt.ErrNoSpeech) {
		t.Errorf("expected ErrNoSpeech, got %v", errs)
	}
	if ends != 1 {
		t.Errorf("expected session to end, got %d ends", ends)
	}
}

func TestRecognizer_StopBeforeFinal(t *testing.T) {
	r := newTestRecognizer()
	r.Step = 50 * time.Millisecond
	cb := &testCallback{}

	if err := r.Start(context.Background(), cb); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	r.Stop()
	time.Sleep(20 * time.Millisecond)

	_, finals, _, ends := cb.snapshot()
	if len(finals) != 0 {
		t.Errorf("expected no final after early stop, got %v", finals)
	}
	if ends != 1 {
		t.Errorf("expected one OnEnd, got %d", ends)
	}
}
