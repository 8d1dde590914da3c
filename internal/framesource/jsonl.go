package framesource

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/sweeney/rep-counter/internal/pose"
)

const maxLineSize = 1 << 20

// JSONLReader reads one JSON object per line:
//
//	{"t":1767268800000,"landmarks":[{"x":0.5,"y":0.2,"z":0,"visibility":0.9}, ...]}
type JSONLReader struct {
	rc      io.ReadCloser
	scanner *bufio.Scanner
	seq     sequencer
	line    int
}

// NewJSONLReader reads frames from rc.
func NewJSONLReader(rc io.ReadCloser) *JSONLReader {
	sc := bufio.NewScanner(rc)
	sc.Buffer(make([]byte, 64*1024), maxLineSize)
	return &JSONLReader{rc: rc, scanner: sc}
}

// Next returns the next frame. Blank lines are skipped.
func (r *JSONLReader) Next(ctx context.Context) (pose.Frame, error) {
	for {
		if err := ctx.Err(); err != nil {
			return pose.Frame{}, err
		}
		if !r.scanner.Scan() {
			if err := r.scanner.Err(); err != nil {
				return pose.Frame{}, fmt.Errorf("read line %d: %w", r.line+1, err)
			}
			return pose.Frame{}, io.EOF
		}
		r.line++
		line := bytes.TrimSpace(r.scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var w wireFrame
		if err := json.Unmarshal(line, &w); err != nil {
			return pose.Frame{}, fmt.Errorf("%w: line %d: %v", pose.ErrMalformedFrame, r.line, err)
		}
		f, err := r.seq.frame(w)
		if err != nil {
			return pose.Frame{}, fmt.Errorf("line %d: %w", r.line, err)
		}
		return f, nil
	}
}

// Close closes the underlying stream.
func (r *JSONLReader) Close() error {
	return r.rc.Close()
}

// EncodeJSONL writes f as one line in the JSONL wire format.
func EncodeJSONL(w io.Writer, f pose.Frame) error {
	b, err := json.Marshal(toWire(f))
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}

func toWire(f pose.Frame) wireFrame {
	return wireFrame{T: f.Time.UnixMilli(), Landmarks: f.Landmarks[:]}
}
