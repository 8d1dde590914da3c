package framesource

import (
	"context"
	"io"

	"github.com/sweeney/rep-counter/internal/pose"
)

// FakeSource is a test double that returns scripted frames.
type FakeSource struct {
	// Frames are returned in order, then io.EOF.
	Frames []pose.Frame

	// Errs injects an error in place of the read at the given index.
	Errs map[int]error

	// Closed tracks if Close was called
	Closed bool

	index int
	reads int
}

// NewFakeSource creates a FakeSource with the given frames.
func NewFakeSource(frames []pose.Frame) *FakeSource {
	return &FakeSource{Frames: frames}
}

// Next returns the next scripted frame or error.
func (f *FakeSource) Next(ctx context.Context) (pose.Frame, error) {
	if err := ctx.Err(); err != nil {
		return pose.Frame{}, err
	}
	read := f.reads
	f.reads++
	if err, ok := f.Errs[read]; ok {
		return pose.Frame{}, err
	}
	if f.index >= len(f.Frames) {
		return pose.Frame{}, io.EOF
	}
	fr := f.Frames[f.index]
	f.index++
	return fr, nil
}

// Close marks the source as closed.
func (f *FakeSource) Close() error {
	f.Closed = true
	return nil
}
