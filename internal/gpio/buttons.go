package gpio

import (
	"time"

	"github.com/sweeney/rep-counter/internal/logic"
)

// Press reports which buttons were pressed since the previous poll.
type Press struct {
	Reset bool
	Next  bool
}

// Any reports whether either button was pressed.
func (p Press) Any() bool {
	return p.Reset || p.Next
}

// Buttons debounces a Reader into discrete presses. A press fires once, when
// a button that was seen released is held for the configured number of polls.
// A button already held at startup does not fire until released and pressed
// again.
type Buttons struct {
	r     Reader
	reset *logic.Debounce
	next  *logic.Debounce
}

// NewButtons wraps r. samples is the number of consecutive polls a level must
// hold before it is accepted.
func NewButtons(r Reader, samples int) *Buttons {
	return &Buttons{
		r:     r,
		reset: logic.NewDebounce(samples, samples),
		next:  logic.NewDebounce(samples, samples),
	}
}

// Poll reads the buttons once at time t.
func (b *Buttons) Poll(t time.Time) (Press, error) {
	reset, next, err := b.r.Read()
	if err != nil {
		return Press{}, err
	}
	return Press{
		Reset: pressed(b.reset, reset, t),
		Next:  pressed(b.next, next, t),
	}, nil
}

func pressed(d *logic.Debounce, held bool, t time.Time) bool {
	before := d.Status()
	return d.Update(held, t) && before == logic.StatusIncorrect && d.Status() == logic.StatusCorrect
}

// Close closes the underlying reader.
func (b *Buttons) Close() error {
	return b.r.Close()
}
