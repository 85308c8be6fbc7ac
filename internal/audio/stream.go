package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// Stream pulls PCM from m in chunk-sized blocks paced to real time and writes
// it to w, standing in for a device callback. Returns nil when ctx is done or
// the mixer is closed.
func Stream(ctx context.Context, m *Mixer, w io.Writer, chunk time.Duration) error {
	frames := int(chunk.Seconds() * float64(m.SampleRate()))
	if frames <= 0 {
		return fmt.Errorf("stream chunk %s too short for %d Hz", chunk, m.SampleRate())
	}
	buf := make([]byte, frames*BytesPerFrame)

	ticker := time.NewTicker(chunk)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := m.Read(buf)
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("render audio: %w", err)
			}
			if _, err := w.Write(buf[:n]); err != nil {
				return fmt.Errorf("write audio: %w", err)
			}
		}
	}
}
