package main

import (
	"context"
	"strings"
	"testing"
)

type fakeControls struct {
	submits int
	skips   int
}

func (c *fakeControls) SubmitAnswer() error {
	c.submits++
	return nil
}

func (c *fakeControls) SkipPlayback() error {
	c.skips++
	return nil
}

func TestReadControls(t *testing.T) {
	c := &fakeControls{}
	quits := 0
	in := strings.NewReader("s\n\nK\nhelp\nq\ns\n")

	readControls(context.Background(), in, c, func() { quits++ })

	if c.submits != 2 {
		t.Errorf("expected 2 submits, got %d", c.submits)
	}
	if c.skips != 1 {
		t.Errorf("expected 1 skip, got %d", c.skips)
	}
	if quits != 1 {
		t.Errorf("expected quit once, got %d", quits)
	}
}

func TestReadControls_StopsWhenCancelled(t *testing.T) {
	c := &fakeControls{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	readControls(ctx, strings.NewReader("s\ns\n"), c, func() {})
	if c.submits != 0 {
		t.Errorf("expected no submits after cancel, got %d", c.submits)
	}
}

func TestNewRootCmd_Flags(t *testing.T) {
	cmd := newRootCmd()
	for _, name := range []string{"job-id", "candidate-id", "job-title", "provider", "audio-file", "stdin-controls"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("missing flag --%s", name)
		}
	}
}
