package logic

import "time"

// Status is a hysteresis-filtered boolean with an explicit unknown start.
type Status string

const (
	StatusUnknown   Status = "unknown"
	StatusCorrect   Status = "correct"
	StatusIncorrect Status = "incorrect"
)

// Debounce flips to correct only after Good consecutive true readings and to
// incorrect only after Bad consecutive false readings.
type Debounce struct {
	good, bad int

	status   Status
	goodRun  int
	badRun   int
	runStart time.Time
	since    time.Time
}

// NewDebounce creates a debounced boolean in the unknown state. Non-positive
// lengths are treated as 1.
func NewDebounce(good, bad int) *Debounce {
	if good <= 0 {
		good = 1
	}
	if bad <= 0 {
		bad = 1
	}
	return &Debounce{good: good, bad: bad, status: StatusUnknown}
}

// Update feeds one instant reading taken at t and reports whether the
// filtered status changed.
func (d *Debounce) Update(instant bool, t time.Time) bool {
	if instant {
		d.badRun = 0
		if d.goodRun == 0 {
			d.runStart = t
		}
		d.goodRun++
		if d.status != StatusCorrect && d.goodRun >= d.good {
			d.status = StatusCorrect
			d.since = d.runStart
			return true
		}
		return false
	}

	d.goodRun = 0
	if d.badRun == 0 {
		d.runStart = t
	}
	d.badRun++
	if d.status != StatusIncorrect && d.badRun >= d.bad {
		d.status = StatusIncorrect
		d.since = d.runStart
		return true
	}
	return false
}

// Status returns the filtered status.
func (d *Debounce) Status() Status {
	return d.status
}

// Valid reports whether the filtered status is correct.
func (d *Debounce) Valid() bool {
	return d.status == StatusCorrect
}

// Since returns when the streak that produced the current status began.
func (d *Debounce) Since() time.Time {
	return d.since
}

// Runs returns the current consecutive good and bad reading counts.
func (d *Debounce) Runs() (good, bad int) {
	return d.goodRun, d.badRun
}

// Reset returns to the unknown state.
func (d *Debounce) Reset() {
	d.status = StatusUnknown
	d.goodRun = 0
	d.badRun = 0
	d.runStart = time.Time{}
	d.since = time.Time{}
}
