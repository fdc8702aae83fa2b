package progress

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// recorder collects events for assertions.
type recorder struct {
	events []Event
}

func (r *recorder) Report(event Event) {
	r.events = append(r.events, event)
}

// TestThrottle_AlwaysPassesFinalEvent checks that a saturated limiter never hides completion.
func TestThrottle_AlwaysPassesFinalEvent(t *testing.T) {
	t.Parallel()

	rec := new(recorder)
	sink := Throttle(rec, 0.001, 1)

	for i := int64(1); i <= 100; i++ {
		sink.Report(Event{Step: "api-download", Received: i, Total: 100})
	}

	require.Len(t, rec.events, 2)
	require.Equal(t, int64(1), rec.events[0].Received)
	require.True(t, rec.events[1].Done())
}

// TestThrottle_DisabledForNonPositiveRate returns the next sink unchanged.
func TestThrottle_DisabledForNonPositiveRate(t *testing.T) {
	t.Parallel()

	rec := new(recorder)
	require.Same(t, rec, Throttle(rec, 0, 1))
}

// TestMulti forwards to every sink and skips nil ones.
func TestMulti(t *testing.T) {
	t.Parallel()

	a, b := new(recorder), new(recorder)
	Multi(a, nil, b).Report(Event{Step: "game-download", Received: 1, Total: 2})

	require.Len(t, a.events, 1)
	require.Len(t, b.events, 1)
}

// TestBroadcaster_SubscribeAndUnsubscribe delivers to subscribers until they leave.
func TestBroadcaster_SubscribeAndUnsubscribe(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster()

	first, stopFirst := b.Subscribe()
	second, stopSecond := b.Subscribe()

	b.Report(Event{Step: "api-download", Received: 5, Total: 10})

	require.Equal(t, int64(5), (<-first).Received)
	require.Equal(t, int64(5), (<-second).Received)

	stopFirst()
	stopFirst()

	_, open := <-first
	require.False(t, open)

	b.Report(Event{Step: "api-download", Received: 10, Total: 10})
	require.True(t, (<-second).Done())

	stopSecond()
}

// TestBroadcaster_DropsForSlowSubscriber never blocks the producer.
func TestBroadcaster_DropsForSlowSubscriber(t *testing.T) {
	t.Parallel()

	b := NewBroadcaster()
	ch, stop := b.Subscribe()

	defer stop()

	for i := range int64(subscriberBuffer * 2) {
		b.Report(Event{Received: i, Total: 1 << 20})
	}

	require.Len(t, ch, subscriberBuffer)
}
