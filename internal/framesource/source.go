// Package framesource adapts upstream pose-estimation output into pose.Frame
// values. Malformed records are rejected here, at the boundary, with an error
// wrapping pose.ErrMalformedFrame; callers skip them and keep reading.
package framesource

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sweeney/rep-counter/internal/pose"
)

// Source yields frames one at a time. Next returns io.EOF when the stream
// ends.
type Source interface {
	Next(ctx context.Context) (pose.Frame, error)
	Close() error
}

// Kinds of encoded frame streams.
const (
	KindJSONL   = "jsonl"
	KindMsgpack = "msgpack"
)

// wireFrame is the encoded form of a frame on both transports.
type wireFrame struct {
	// T is the capture time in milliseconds since the Unix epoch.
	T         int64           `json:"t" msgpack:"t"`
	Landmarks []pose.Landmark `json:"landmarks" msgpack:"landmarks"`
}

// sequencer turns wire frames into pose frames and enforces strictly
// increasing timestamps.
type sequencer struct {
	last time.Time
}

func (s *sequencer) frame(w wireFrame) (pose.Frame, error) {
	t := time.UnixMilli(w.T).UTC()
	if !s.last.IsZero() && !t.After(s.last) {
		return pose.Frame{}, fmt.Errorf("%w: timestamp %d not after %d", pose.ErrMalformedFrame, w.T, s.last.UnixMilli())
	}
	f, err := pose.NewFrame(t, w.Landmarks)
	if err != nil {
		return pose.Frame{}, err
	}
	s.last = t
	return f, nil
}

// Open opens path as a stream of the given kind. A path of "-" reads stdin.
func Open(kind, path string) (Source, error) {
	var rc io.ReadCloser
	if path == "-" {
		rc = io.NopCloser(os.Stdin)
	} else {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open frame source: %w", err)
		}
		rc = f
	}

	switch kind {
	case KindJSONL, "":
		return NewJSONLReader(rc), nil
	case KindMsgpack:
		return NewMsgpackReader(rc), nil
	}
	rc.Close()
	return nil, fmt.Errorf("unknown frame source kind %q", kind)
}
