package framesource

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/sweeney/rep-counter/internal/pose"
)

// maxMessageSize bounds a single length-prefixed message.
const maxMessageSize = 1 << 20

// MsgpackReader reads length-prefixed msgpack frames (4 bytes big-endian
// length, then the encoded wireFrame), as written by a pose worker process
// on its stdout.
type MsgpackReader struct {
	rc  io.ReadCloser
	br  *bufio.Reader
	seq sequencer
	n   int
}

// NewMsgpackReader reads frames from rc.
func NewMsgpackReader(rc io.ReadCloser) *MsgpackReader {
	return &MsgpackReader{rc: rc, br: bufio.NewReader(rc)}
}

// Next returns the next frame. A truncated message is reported as
// io.ErrUnexpectedEOF.
func (r *MsgpackReader) Next(ctx context.Context) (pose.Frame, error) {
	if err := ctx.Err(); err != nil {
		return pose.Frame{}, err
	}

	var lengthBuf [4]byte
	if _, err := io.ReadFull(r.br, lengthBuf[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return pose.Frame{}, io.EOF
		}
		return pose.Frame{}, fmt.Errorf("read length prefix: %w", err)
	}
	r.n++

	size := binary.BigEndian.Uint32(lengthBuf[:])
	if size > maxMessageSize {
		return pose.Frame{}, fmt.Errorf("message %d: %d bytes exceeds %d", r.n, size, maxMessageSize)
	}
	data := make([]byte, size)
	if _, err := io.ReadFull(r.br, data); err != nil {
		return pose.Frame{}, fmt.Errorf("read message %d: %w", r.n, err)
	}

	var w wireFrame
	if err := msgpack.Unmarshal(data, &w); err != nil {
		return pose.Frame{}, fmt.Errorf("%w: message %d: %v", pose.ErrMalformedFrame, r.n, err)
	}
	f, err := r.seq.frame(w)
	if err != nil {
		return pose.Frame{}, fmt.Errorf("message %d: %w", r.n, err)
	}
	return f, nil
}

// Close closes the underlying stream.
func (r *MsgpackReader) Close() error {
	return r.rc.Close()
}

// EncodeMsgpack writes f with its length prefix.
func EncodeMsgpack(w io.Writer, f pose.Frame) error {
	b, err := msgpack.Marshal(toWire(f))
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	var lengthBuf [4]byte
	binary.BigEndian.PutUint32(lengthBuf[:], uint32(len(b)))
	if _, err := w.Write(lengthBuf[:]); err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}
