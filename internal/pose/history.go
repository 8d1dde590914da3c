package pose

import "time"

// DefaultHistorySize is the number of samples kept per joint.
const DefaultHistorySize = 5

// Sample is a landmark as stored in History, with the frame time it came from.
type Sample struct {
	Landmark
	Time time.Time
}

// jointRing is a fixed-capacity FIFO; the oldest sample is overwritten once full.
type jointRing struct {
	buf   []Sample
	head  int // next write position
	count int
}

func (r *jointRing) push(s Sample) {
	r.buf[r.head] = s
	r.head = (r.head + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

func (r *jointRing) latest() (Sample, bool) {
	if r.count == 0 {
		return Sample{}, false
	}
	return r.buf[(r.head-1+len(r.buf))%len(r.buf)], true
}

// History keeps the most recent smoothed samples of every joint.
// Not safe for concurrent use; it is owned by a single pipeline.
type History struct {
	joints [NumJoints]jointRing
}

// NewHistory creates a History holding capacity samples per joint.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	h := &History{}
	for i := range h.joints {
		h.joints[i].buf = make([]Sample, capacity)
	}
	return h
}

// Push appends a sample for joint j, evicting the oldest when full.
func (h *History) Push(j Joint, s Sample) {
	h.joints[j].push(s)
}

// Latest returns the most recent sample for joint j.
func (h *History) Latest(j Joint) (Sample, bool) {
	return h.joints[j].latest()
}

// Len returns how many samples are held for joint j.
func (h *History) Len(j Joint) int {
	return h.joints[j].count
}

// Samples returns the samples for joint j, oldest first.
func (h *History) Samples(j Joint) []Sample {
	r := &h.joints[j]
	if r.count == 0 {
		return nil
	}
	out := make([]Sample, r.count)
	start := (r.head - r.count + len(r.buf)) % len(r.buf)
	for i := 0; i < r.count; i++ {
		out[i] = r.buf[(start+i)%len(r.buf)]
	}
	return out
}

// Reset drops every stored sample.
func (h *History) Reset() {
	for i := range h.joints {
		h.joints[i].head = 0
		h.joints[i].count = 0
	}
}
