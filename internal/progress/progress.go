package progress

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	"github.com/npcforge/forge-installer/internal/logger"
)

// Event is a single progress notification.
type Event struct {
	// Step names the running operation, e.g. "api-download".
	Step string `json:"step"`
	// Received is the number of bytes received so far.
	Received int64 `json:"received"`
	// Total is the expected number of bytes.
	Total int64 `json:"total"`
}

// Done reports whether the event marks the end of the transfer.
func (e Event) Done() bool {
	return e.Total > 0 && e.Received >= e.Total
}

// Sink receives progress events. Implementations must not block for long.
type Sink interface {
	Report(event Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(event Event)

// Report calls f.
func (f SinkFunc) Report(event Event) {
	f(event)
}

// Discard drops every event.
//
//nolint:gochecknoglobals // Stateless sink.
var Discard Sink = SinkFunc(func(Event) {})

// Multi forwards every event to all sinks.
func Multi(sinks ...Sink) Sink {
	return SinkFunc(func(event Event) {
		for _, s := range sinks {
			if s != nil {
				s.Report(event)
			}
		}
	})
}

// throttled drops intermediate events above the limiter rate.
type throttled struct {
	next    Sink
	limiter *rate.Limiter
}

// Throttle limits intermediate events to perSecond with the given burst.
// The final event of a transfer always passes. A non-positive rate disables throttling.
func Throttle(next Sink, perSecond float64, burst int) Sink {
	if perSecond <= 0 {
		return next
	}

	if burst <= 0 {
		burst = 1
	}

	return &throttled{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// Report implements Sink.
func (t *throttled) Report(event Event) {
	if event.Done() || t.limiter.Allow() {
		t.next.Report(event)
	}
}

// LogSink writes events at debug level and the final event at info level.
func LogSink(ctx context.Context) Sink {
	return SinkFunc(func(event Event) {
		if event.Done() {
			logger.InfoKV(ctx, "Download finished", "step", event.Step, "bytes", event.Total)
			return
		}

		logger.DebugKV(ctx, "Download progress",
			"step", event.Step, "received", event.Received, "total", event.Total)
	})
}

// subscriberBuffer is the channel capacity of each subscriber.
const subscriberBuffer = 64

// Broadcaster delivers events to every current subscriber.
// Slow subscribers lose events rather than stalling the download.
type Broadcaster struct {
	// mu protects subscribers.
	mu sync.RWMutex
	// subscribers maps an id to its channel.
	subscribers map[uint64]chan Event
	// nextID is the id of the next subscriber.
	nextID uint64
}

// NewBroadcaster creates a broadcaster without subscribers.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[uint64]chan Event),
	}
}

// Subscribe returns a channel of events and a function that closes it.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++

	ch := make(chan Event, subscriberBuffer)
	b.subscribers[id] = ch

	var once sync.Once

	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()

			delete(b.subscribers, id)
			close(ch)
		})
	}
}

// Report implements Sink.
func (b *Broadcaster) Report(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}
