package gpio

import "errors"

// Sample is one scripted reading of both buttons, true meaning pressed.
type Sample struct {
	Reset bool
	Next  bool
}

// FakeReader replays scripted button levels. After the script runs out the
// final sample is repeated, which models a button left held or released.
type FakeReader struct {
	Samples []Sample
	// ReadError, if set, is returned by every Read.
	ReadError error
	Closed    bool

	pos int
}

// NewFakeReader creates a FakeReader over samples.
func NewFakeReader(samples []Sample) *FakeReader {
	return &FakeReader{Samples: samples}
}

// Read returns the next scripted sample.
func (f *FakeReader) Read() (reset, next bool, err error) {
	if f.ReadError != nil {
		return false, false, f.ReadError
	}
	if len(f.Samples) == 0 {
		return false, false, errors.New("gpio: no samples scripted")
	}
	s := f.Samples[f.pos]
	if f.pos < len(f.Samples)-1 {
		f.pos++
	}
	return s.Reset, s.Next, nil
}

// Close marks the reader closed.
func (f *FakeReader) Close() error {
	f.Closed = true
	return nil
}
