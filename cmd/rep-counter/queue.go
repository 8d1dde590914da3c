package main

import (
	"errors"
	"log"
	"sync"

	"github.com/sweeney/rep-counter/internal/mqtt"
	"github.com/sweeney/rep-counter/internal/session"
)

var errQueueFull = errors.New("publish queue full")

type outbound struct {
	event  *session.Event
	system *mqtt.SystemEvent
}

// publishQueue hands events from the frame loop to a single publishing
// goroutine so a slow broker never stalls frame processing. When the queue
// is full new events are dropped.
type publishQueue struct {
	ch   chan outbound
	pub  mqtt.Publisher
	done chan struct{}

	mu      sync.Mutex
	closed  bool
	dropped int
}

func newPublishQueue(pub mqtt.Publisher, size int) *publishQueue {
	q := &publishQueue{
		ch:   make(chan outbound, size),
		pub:  pub,
		done: make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *publishQueue) run() {
	defer close(q.done)
	for o := range q.ch {
		if o.system != nil {
			if err := q.pub.PublishSystem(*o.system); err != nil {
				log.Printf("failed to publish %s event: %v", o.system.Event, err)
			}
			continue
		}
		if err := q.pub.Publish(*o.event); err != nil {
			log.Printf("publish error: %v", err)
		}
	}
}

func (q *publishQueue) enqueue(o outbound) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return errQueueFull
	}
	select {
	case q.ch <- o:
		return nil
	default:
		q.dropped++
		if q.dropped == 1 || q.dropped%100 == 0 {
			log.Printf("publish queue full, %d events dropped", q.dropped)
		}
		return errQueueFull
	}
}

// Publish queues a session event.
func (q *publishQueue) Publish(e session.Event) error {
	return q.enqueue(outbound{event: &e})
}

// PublishSystem queues a system event.
func (q *publishQueue) PublishSystem(e mqtt.SystemEvent) error {
	return q.enqueue(outbound{system: &e})
}

// Close stops accepting events and waits until the queued ones are published.
// It does not close the underlying publisher.
func (q *publishQueue) Close() error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.ch)
	}
	q.mu.Unlock()
	<-q.done
	return nil
}

// Dropped returns how many events were discarded because the queue was full.
func (q *publishQueue) Dropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// nopPublisher stands in when no broker is configured.
type nopPublisher struct{}

func (nopPublisher) Publish(session.Event) error         { return nil }
func (nopPublisher) PublishSystem(mqtt.SystemEvent) error { return nil }
func (nopPublisher) Close() error                         { return nil }
func (nopPublisher) IsConnected() bool                    { return false }
