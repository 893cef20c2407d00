package editor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerRunIdle(t *testing.T) {
	s := NewScheduler()
	var order []int
	for i := range 3 {
		s.Post(func() { order = append(order, i) })
	}

	// A spent budget still makes progress.
	assert.Equal(t, 1, s.RunIdle(0))
	assert.Equal(t, []int{0}, order)
	assert.Equal(t, 2, s.Pending())

	assert.Equal(t, 2, s.Drain())
	assert.Equal(t, []int{0, 1, 2}, order)
	assert.Zero(t, s.RunIdle(0))
}

func TestSchedulerDrainRunsNestedPosts(t *testing.T) {
	s := NewScheduler()
	ran := 0
	s.Post(func() {
		ran++
		s.Post(func() { ran++ })
	})

	assert.Equal(t, 2, s.Drain())
	assert.Equal(t, 2, ran)
}

func TestForEachChunk(t *testing.T) {
	var windows [][2]int
	err := forEachChunk(context.Background(), 10, 4, func(lo, hi int) {
		windows = append(windows, [2]int{lo, hi})
	})
	require.NoError(t, err)
	assert.Equal(t, [][2]int{{0, 4}, {4, 8}, {8, 10}}, windows)

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err = forEachChunk(ctx, 10, 4, func(lo, hi int) {
		calls++
		cancel()
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDispatcher(t *testing.T) {
	d := NewDispatcher()
	var got []Event
	d.Subscribe(EventLargeScene, ListenerFunc(func(e Event) { got = append(got, e) }))

	d.Dispatch(Event{Type: EventSceneImported})
	d.Dispatch(Event{Type: EventLargeScene, Data: 1200})

	require.Len(t, got, 1)
	assert.Equal(t, 1200, got[0].Data)
}
