package hub

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeState struct{}

func (fakeState) InitFrame(ctx context.Context) (Event, error) {
	return Event{Kind: EventInit, Payload: "ok"}, nil
}

func TestBroadcastFromAnyThread_NoopBeforeRunAttaches(t *testing.T) {
	h := New(fakeState{})

	// Run hasn't started; the event must be silently dropped rather than
	// blocking or panicking on a nil loop.
	h.BroadcastFromAnyThread(Event{Kind: EventTrade})

	assert.Len(t, h.eventsCh, 0)
}

func TestBroadcastFromAnyThread_DoesNotBlockOnceAttached(t *testing.T) {
	h := New(fakeState{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go h.Run(ctx)
	for !h.attached() {
	}

	// Run's loop goroutine drains eventsCh concurrently, so this only
	// proves the call doesn't block or panic once attached.
	h.BroadcastFromAnyThread(Event{Kind: EventPortfolio})
}
