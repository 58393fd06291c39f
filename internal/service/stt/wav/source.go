// Package wav provides an AudioSource that replays a PCM WAV file in real time.
package wav

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// HeaderSize is the size of a canonical PCM WAV header.
const HeaderSize = 44

// DefaultChunkInterval is the audio duration carried by one chunk.
const DefaultChunkInterval = 100 * time.Millisecond

var ErrNotWAV = errors.New("not a valid WAV file")

// Format is the audio format read from a WAV header.
type Format struct {
	AudioFormat   uint16
	Channels      uint16
	SampleRate    uint32
	BitsPerSample uint16
}

// BytesPerSecond is the PCM data rate of the format.
func (f Format) BytesPerSecond() int {
	return int(f.SampleRate) * int(f.Channels) * int(f.BitsPerSample) / 8
}

// ReadHeader reads and validates a 44-byte PCM WAV header.
func ReadHeader(r io.Reader) (Format, error) {
	header := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, header); err != nil {
		return Format{}, fmt.Errorf("read WAV header: %w", err)
	}
	if string(header[0:4]) != "RIFF" || string(header[8:12]) != "WAVE" {
		return Format{}, ErrNotWAV
	}

	f := Format{
		AudioFormat:   binary.LittleEndian.Uint16(header[20:22]),
		Channels:      binary.LittleEndian.Uint16(header[22:24]),
		SampleRate:    binary.LittleEndian.Uint32(header[24:28]),
		BitsPerSample: binary.LittleEndian.Uint16(header[34:36]),
	}
	if f.AudioFormat != 1 {
		return Format{}, fmt.Errorf("only PCM supported, got format %d", f.AudioFormat)
	}
	if f.BytesPerSecond() == 0 {
		return Format{}, fmt.Errorf("%w: zero data rate", ErrNotWAV)
	}
	return f, nil
}

// Source replays a WAV file. Every Open starts from the beginning of the file.
type Source struct {
	Path string
	// Interval is the pacing between chunks and the audio duration of each chunk.
	Interval time.Duration

	logger zerolog.Logger
}

// New creates a Source for the file at path.
func New(path string, logger zerolog.Logger) *Source {
	return &Source{
		Path:     path,
		Interval: DefaultChunkInterval,
		logger:   logger,
	}
}

// Open validates the file header and starts streaming chunks.
func (s *Source) Open(ctx context.Context) (<-chan []byte, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, err
	}
	format, err := ReadHeader(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	interval := s.Interval
	if interval <= 0 {
		interval = DefaultChunkInterval
	}
	chunkSize := int(int64(format.BytesPerSecond()) * int64(interval) / int64(time.Second))
	if chunkSize <= 0 {
		chunkSize = 1
	}

	s.logger.Debug().
		Str("path", s.Path).
		Uint32("sampleRate", format.SampleRate).
		Uint16("channels", format.Channels).
		Int("chunkSize", chunkSize).
		Msg("Streaming WAV file")

	out := make(chan []byte)
	go func() {
		defer close(out)
		defer f.Close()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			buf := make([]byte, chunkSize)
			n, err := io.ReadFull(f, buf)
			if n > 0 {
				select {
				case out <- buf[:n]:
				case <-ctx.Done():
					return
				}
			}
			if err != nil {
				if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
					s.logger.Warn().Err(err).Str("path", s.Path).Msg("WAV read failed")
				}
				return
			}

			select {
			case <-ticker.C:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
