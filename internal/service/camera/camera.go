// Package camera defines the video capture capability used for proctoring frames.
package camera

import (
	"context"
	"errors"
	"image"
)

// ErrStopped is returned by Frame after the stream was stopped.
var ErrStopped = errors.New("stream stopped")

// Constraints selects the tracks to acquire.
type Constraints struct {
	Video  bool
	Audio  bool
	Width  int
	Height int
}

// VideoOnly requests a video track with no audio.
func VideoOnly() Constraints {
	return Constraints{Video: true}
}

// Dimensions are the usable frame size of a stream.
type Dimensions struct {
	Width  int
	Height int
}

// Usable reports whether frames can be rasterized at this size.
func (d Dimensions) Usable() bool {
	return d.Width > 0 && d.Height > 0
}

// Device acquires capture streams.
type Device interface {
	Acquire(ctx context.Context, c Constraints) (Stream, error)
}

// Stream is a live capture stream owned by one consumer.
type Stream interface {
	// Ready is closed once Dimensions are usable.
	Ready() <-chan struct{}
	Dimensions() Dimensions
	// Frame rasterizes the current video frame.
	Frame() (image.Image, error)
	// Stop ends all tracks. Safe to call more than once.
	Stop()
	Active() bool
}

// Preview shows a stream to the candidate.
type Preview interface {
	Attach(s Stream)
	Detach()
}

// NopPreview discards preview attachments.
type NopPreview struct{}

func (NopPreview) Attach(Stream) {}
func (NopPreview) Detach() {}
