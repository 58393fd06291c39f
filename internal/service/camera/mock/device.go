// Package mock provides a synthetic camera for running without hardware.
package mock

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"
	"time"

	"ai-interview-session-service/internal/service/camera"
)

// ErrUnavailable is returned by Acquire when the device is marked unavailable.
var ErrUnavailable = errors.New("camera unavailable")

// Device implements camera.Device with generated frames.
type Device struct {
	Width  int
	Height int
	// WarmUp delays readiness after acquisition.
	WarmUp time.Duration
	// Unavailable makes Acquire fail.
	Unavailable bool

	mu       sync.Mutex
	acquired int
	streams  []*Stream
}

// New creates a 320x240 synthetic camera.
func New() *Device {
	return &Device{Width: 320, Height: 240, WarmUp: 100 * time.Millisecond}
}

// Acquire starts a new synthetic stream.
func (d *Device) Acquire(ctx context.Context, c camera.Constraints) (camera.Stream, error) {
	if d.Unavailable {
		return nil, ErrUnavailable
	}
	if !c.Video {
		return nil, errors.New("video track required")
	}

	s := &Stream{
		dims:  camera.Dimensions{Width: d.Width, Height: d.Height},
		ready: make(chan struct{}),
		start: time.Now(),
	}
	if d.WarmUp <= 0 {
		close(s.ready)
	} else {
		time.AfterFunc(d.WarmUp, s.markReady)
	}

	d.mu.Lock()
	d.acquired++
	d.streams = append(d.streams, s)
	d.mu.Unlock()
	return s, nil
}

// Acquired returns how many streams were acquired.
func (d *Device) Acquired() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.acquired
}

// Live returns how many acquired streams are still active.
func (d *Device) Live() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, s := range d.streams {
		if s.Active() {
			n++
		}
	}
	return n
}

// Stream is a synthetic camera.Stream.
type Stream struct {
	dims  camera.Dimensions
	ready chan struct{}
	start time.Time

	mu        sync.Mutex
	readyOnce sync.Once
	stopped   bool
}

func (s *Stream) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

func (s *Stream) Ready() <-chan struct{} { return s.ready }

func (s *Stream) Dimensions() camera.Dimensions {
	select {
	case <-s.ready:
		return s.dims
	default:
		return camera.Dimensions{}
	}
}

// Frame draws a gradient shifted by elapsed time.
func (s *Stream) Frame() (image.Image, error) {
	s.mu.Lock()
	stopped := s.stopped
	s.mu.Unlock()
	if stopped {
		return nil, camera.ErrStopped
	}

	shift := uint8(time.Since(s.start) / (100 * time.Millisecond))
	img := image.NewRGBA(image.Rect(0, 0, s.dims.Width, s.dims.Height))
	for y := 0; y < s.dims.Height; y++ {
		for x := 0; x < s.dims.Width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x) + shift, G: uint8(y), B: shift, A: 255})
		}
	}
	return img, nil
}

func (s *Stream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
}

func (s *Stream) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.stopped
}
