package mock

import (
	"context"
	"errors"
	"testing"
	"time"

	"ai-interview-session-service/internal/service/camera"
)

func TestDevice_AcquireBecomesReady(t *testing.T) {
	d := New()
	d.WarmUp = 10 * time.Millisecond

	s, err := d.Acquire(context.Background(), camera.VideoOnly())
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if s.Dimensions().Usable() {
		t.Error("dimensions should not be usable before warm-up")
	}

	select {
	case <-s.Ready():
	case <-time.After(time.Second):
		t.Fatal("stream never became ready")
	}

	dims := s.Dimensions()
	if dims.Width != 320 || dims.Height != 240 {
		t.Errorf("unexpected dimensions %+v", dims)
	}

	img, err := s.Frame()
	if err != nil {
		t.Fatalf("Frame failed: %v", err)
	}
	if img.Bounds().Dx() != 320 || img.Bounds().Dy() != 240 {
		t.Errorf("unexpected frame bounds %v", img.Bounds())
	}
}

func TestDevice_StopEndsStream(t *testing.T) {
	d := New()
	d.WarmUp = 0

	s, err := d.Acquire(context.Background(), camera.VideoOnly())
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if d.Live() != 1 {
		t.Errorf("expected 1 live stream, got %d", d.Live())
	}

	s.Stop()
	s.Stop()

	if s.Active() {
		t.Error("stream should be inactive after Stop")
	}
	if _, err := s.Frame(); !errors.Is(err, camera.ErrStopped) {
		t.Errorf("expected ErrStopped, got %v", err)
	}
	if d.Live() != 0 {
		t.Errorf("expected 0 live streams, got %d", d.Live())
	}
}

func TestDevice_Unavailable(t *testing.T) {
	d := New()
	d.Unavailable = true

	if _, err := d.Acquire(context.Background(), camera.VideoOnly()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestDevice_RequiresVideo(t *testing.T) {
	d := New()
	if _, err := d.Acquire(context.Background(), camera.Constraints{Audio: true}); err == nil {
		t.Error("expected error for audio-only constraints")
	}
}
