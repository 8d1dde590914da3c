package mqtt

import "log"

// outboundMsg is a serialized MQTT message waiting for a connection.
type outboundMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
	// lossy marks per-frame telemetry, which is evicted before anything else.
	lossy bool
}

// outbox holds messages while the broker is unreachable. When full it evicts
// the oldest lossy message, or the oldest message if none is lossy. A retained
// message supersedes any earlier retained message on the same topic, since
// only the latest retained state is delivered to subscribers anyway.
// Not safe for concurrent use; RealPublisher guards it with its mutex.
type outbox struct {
	msgs     []outboundMsg
	capacity int
	evicted  int // messages lost since last drain
}

func newOutbox(capacity int) *outbox {
	return &outbox{
		msgs:     make([]outboundMsg, 0, capacity),
		capacity: capacity,
	}
}

func (o *outbox) push(msg outboundMsg) {
	if msg.retained {
		for i, m := range o.msgs {
			if m.retained && m.topic == msg.topic {
				o.remove(i)
				break
			}
		}
	}
	if len(o.msgs) == o.capacity {
		if o.evicted == 0 {
			log.Printf("mqtt: outbox full (%d messages), evicting", o.capacity)
		}
		o.evicted++
		o.remove(o.victim())
	}
	o.msgs = append(o.msgs, msg)
}

// victim returns the index of the message to evict.
func (o *outbox) victim() int {
	for i, m := range o.msgs {
		if m.lossy {
			return i
		}
	}
	return 0
}

func (o *outbox) remove(i int) {
	o.msgs = append(o.msgs[:i], o.msgs[i+1:]...)
}

// drain returns every held message, oldest first, and empties the outbox.
func (o *outbox) drain() []outboundMsg {
	if len(o.msgs) == 0 {
		return nil
	}
	out := make([]outboundMsg, len(o.msgs))
	copy(out, o.msgs)
	if o.evicted > 0 {
		log.Printf("mqtt: %d messages were evicted while offline", o.evicted)
	}
	o.msgs = o.msgs[:0]
	o.evicted = 0
	return out
}

func (o *outbox) len() int {
	return len(o.msgs)
}
