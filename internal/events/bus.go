// Package events fans the events of committed calls out to subscribers and
// keeps a bounded history for readers that poll.
package events

import (
	"sync"
	"sync/atomic"

	"diamondlottery/internal/models"

	evbus "github.com/asaskevich/EventBus"
	"github.com/google/logger"
)

// Topic is the bus topic every lottery event is published on.
const Topic = "lottery:event"

// Bus numbers events and publishes them on an EventBus topic. It satisfies
// the router's Publisher.
type Bus struct {
	bus evbus.Bus
	seq atomic.Uint64
}

func NewBus() *Bus {
	return &Bus{bus: evbus.New()}
}

// Publish stamps ev with the next sequence number and delivers it to the
// synchronous subscribers before returning.
func (b *Bus) Publish(ev models.Event) {
	ev.Seq = b.seq.Add(1)
	b.bus.Publish(Topic, ev)
}

// Subscribe registers fn for every event published after this call.
func (b *Bus) Subscribe(fn func(models.Event)) error {
	return b.bus.Subscribe(Topic, fn)
}

// SubscribeAsync registers fn to run on its own goroutine, one event at a
// time.
func (b *Bus) SubscribeAsync(fn func(models.Event)) error {
	return b.bus.SubscribeAsync(Topic, fn, true)
}

func (b *Bus) Unsubscribe(fn func(models.Event)) error {
	return b.bus.Unsubscribe(Topic, fn)
}

// WaitAsync blocks until the asynchronous subscribers have drained.
func (b *Bus) WaitAsync() {
	b.bus.WaitAsync()
}

// Recorder keeps the latest events in a ring buffer.
type Recorder struct {
	mu     sync.RWMutex
	buf    []models.Event
	next   int
	filled bool
}

func NewRecorder(capacity int) *Recorder {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Recorder{buf: make([]models.Event, capacity)}
}

// Record stores ev, evicting the oldest event once the buffer is full.
func (r *Recorder) Record(ev models.Event) {
	r.mu.Lock()
	r.buf[r.next] = ev
	r.next++
	if r.next == len(r.buf) {
		r.next = 0
		r.filled = true
	}
	r.mu.Unlock()

	logger.Infof("Event #%d %s round=%d account=%s", ev.Seq, ev.Kind, ev.Round, ev.Account)
}

// Since returns the recorded events with a sequence number above seq,
// oldest first.
func (r *Recorder) Since(seq uint64) []models.Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ordered []models.Event
	if r.filled {
		ordered = append(ordered, r.buf[r.next:]...)
	}
	ordered = append(ordered, r.buf[:r.next]...)

	out := make([]models.Event, 0, len(ordered))
	for _, ev := range ordered {
		if ev.Seq > seq {
			out = append(out, ev)
		}
	}
	return out
}

// Len is the number of events currently held.
func (r *Recorder) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.filled {
		return len(r.buf)
	}
	return r.next
}
