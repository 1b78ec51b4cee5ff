package timer_test

import (
	"bytes"
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/scrumdinger/go/internal/scrum/events"
	"github.com/mcdev12/scrumdinger/go/internal/scrum/timer"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	poll    = 5 * time.Millisecond
)

// runTimer starts the loop for tm and stops it when the test ends.
func runTimer(t *testing.T, tm *timer.TurnTimer) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tm.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})
	return ctx
}

func snapshot(t *testing.T, ctx context.Context, tm *timer.TurnTimer) timer.Snapshot {
	t.Helper()
	snap, err := tm.Snapshot(ctx)
	require.NoError(t, err)
	return snap
}

// waitUntil polls the timer until cond holds for its snapshot.
func waitUntil(t *testing.T, ctx context.Context, tm *timer.TurnTimer, cond func(timer.Snapshot) bool) timer.Snapshot {
	t.Helper()
	var last timer.Snapshot
	require.Eventually(t, func() bool {
		last = snapshot(t, ctx, tm)
		return cond(last)
	}, waitFor, poll, "last snapshot: %+v", last)
	return last
}

func TestTurnTimer_ScenarioA(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var changes atomic.Int32
	tm := timer.New(2, []string{"Alice", "Bob"},
		timer.WithClock(clock),
		timer.WithFrequency(time.Second),
		timer.WithSpeakerChangedAction(func() { changes.Add(1) }),
	)
	ctx := runTimer(t, tm)

	assert.Equal(t, 60, snapshot(t, ctx, tm).SecondsPerSpeaker)
	require.NoError(t, tm.Start(ctx))

	clock.Advance(60 * time.Second)
	snap := waitUntil(t, ctx, tm, func(s timer.Snapshot) bool { return s.ActiveSpeakerIndex == 1 })

	assert.True(t, snap.Speakers[0].IsCompleted)
	assert.False(t, snap.Speakers[1].IsCompleted)
	assert.Equal(t, 60, snap.SecondsElapsed)
	assert.Equal(t, 60, snap.SecondsRemaining)
	assert.Equal(t, "Speaker 2: Bob", snap.ActiveSpeaker)
	assert.Eventually(t, func() bool { return changes.Load() == 1 }, waitFor, poll)
}

func TestTurnTimer_ScenarioB(t *testing.T) {
	tm := timer.New(1, nil)
	ctx := runTimer(t, tm)

	snap := snapshot(t, ctx, tm)
	require.Len(t, snap.Speakers, 1)
	assert.Equal(t, "Speaker 1", snap.Speakers[0].Name)
	assert.False(t, snap.Speakers[0].IsCompleted)
	assert.Equal(t, 60, snap.SecondsPerSpeaker)
	assert.Equal(t, 60, snap.SecondsRemaining)
}

func TestTurnTimer_ScenarioC(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var changes atomic.Int32
	tm := timer.New(4, []string{"Alice", "Bob"},
		timer.WithClock(clock),
		timer.WithSpeakerChangedAction(func() { changes.Add(1) }),
	)
	ctx := runTimer(t, tm)

	require.NoError(t, tm.Start(ctx))
	require.NoError(t, tm.SkipSpeaker(ctx))

	snap := snapshot(t, ctx, tm)
	assert.Equal(t, 1, snap.ActiveSpeakerIndex)
	assert.Equal(t, snap.SecondsPerSpeaker, snap.SecondsElapsed)
	assert.Equal(t, 120, snap.SecondsElapsed)
	assert.Equal(t, 120, snap.SecondsRemaining)
	assert.True(t, snap.Speakers[0].IsCompleted)
	assert.Never(t, func() bool { return changes.Load() > 0 }, 50*time.Millisecond, poll,
		"manual skips do not fire the speaker changed action")
}

func TestTurnTimer_ScenarioD(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var changes atomic.Int32
	tm := timer.New(2, []string{"Alice", "Bob"},
		timer.WithClock(clock),
		timer.WithFrequency(time.Second),
		timer.WithSpeakerChangedAction(func() { changes.Add(1) }),
	)
	ctx := runTimer(t, tm)

	require.NoError(t, tm.Start(ctx))
	clock.Advance(30 * time.Second)
	waitUntil(t, ctx, tm, func(s timer.Snapshot) bool { return s.SecondsElapsed == 30 })

	require.NoError(t, tm.Stop(ctx))
	require.NoError(t, tm.Stop(ctx), "stop is idempotent")
	before := snapshot(t, ctx, tm)
	assert.True(t, before.Stopped)

	clock.Advance(90 * time.Second)
	assert.Never(t, func() bool {
		return changes.Load() > 0 || !assert.ObjectsAreEqual(before, snapshot(t, ctx, tm))
	}, 100*time.Millisecond, poll)
}

func TestTurnTimer_MonotonicTicks(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tm := timer.New(1, []string{"Ana", "Ben", "Cid"},
		timer.WithClock(clock),
		timer.WithFrequency(time.Second),
	)
	ctx := runTimer(t, tm)
	require.NoError(t, tm.Start(ctx))

	prev := snapshot(t, ctx, tm)
	for i := 1; i <= 60; i++ {
		clock.Advance(time.Second)
		cur := waitUntil(t, ctx, tm, func(s timer.Snapshot) bool { return s.SecondsElapsed == i })
		assert.GreaterOrEqual(t, cur.SecondsElapsed, prev.SecondsElapsed)
		assert.LessOrEqual(t, cur.SecondsRemaining, prev.SecondsRemaining)
		assert.GreaterOrEqual(t, cur.SecondsRemaining, 0)
		prev = cur
	}

	final := waitUntil(t, ctx, tm, func(s timer.Snapshot) bool { return s.Finished })
	assert.Equal(t, 2, final.ActiveSpeakerIndex)
	assert.Equal(t, 3, final.CompletedSpeakers())
	assert.Equal(t, 0, final.SecondsRemaining)
	assert.False(t, final.Running())
}

func TestTurnTimer_ZeroLengthAdvancesEveryTick(t *testing.T) {
	clock := clockwork.NewFakeClock()
	var changes atomic.Int32
	tm := timer.New(0, []string{"Ana", "Ben"},
		timer.WithClock(clock),
		timer.WithSpeakerChangedAction(func() { changes.Add(1) }),
	)
	ctx := runTimer(t, tm)
	require.NoError(t, tm.Start(ctx))

	clock.Advance(timer.DefaultFrequency)
	waitUntil(t, ctx, tm, func(s timer.Snapshot) bool { return s.ActiveSpeakerIndex == 1 })

	clock.Advance(timer.DefaultFrequency)
	waitUntil(t, ctx, tm, func(s timer.Snapshot) bool { return s.Finished })
	assert.Eventually(t, func() bool { return changes.Load() == 2 }, waitFor, poll,
		"fires for the transition past the final speaker too")
}

func TestTurnTimer_SkipAtEnd(t *testing.T) {
	tm := timer.New(2, []string{"Alice", "Bob"}, timer.WithClock(clockwork.NewFakeClock()))
	ctx := runTimer(t, tm)
	require.NoError(t, tm.Start(ctx))

	for i := 0; i < 5; i++ {
		require.NoError(t, tm.SkipSpeaker(ctx))
	}
	snap := snapshot(t, ctx, tm)
	assert.Equal(t, 1, snap.ActiveSpeakerIndex)
	assert.True(t, snap.Finished)
}

func TestTurnTimer_ResetRestoresFreshState(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tm := timer.New(3, []string{"Ana", "Ben"}, timer.WithClock(clock), timer.WithFrequency(time.Second))
	ctx := runTimer(t, tm)

	require.NoError(t, tm.Start(ctx))
	clock.Advance(10 * time.Second)
	waitUntil(t, ctx, tm, func(s timer.Snapshot) bool { return s.SecondsElapsed == 10 })
	require.NoError(t, tm.SkipSpeaker(ctx))

	require.NoError(t, tm.Reset(ctx, 5, []string{"Cid", "Dee", "Eve"}))
	got := snapshot(t, ctx, tm)

	fresh := timer.New(5, []string{"Cid", "Dee", "Eve"})
	freshCtx := runTimer(t, fresh)
	want := snapshot(t, freshCtx, fresh)

	for i := range got.Speakers {
		assert.NotEqual(t, want.Speakers[i].ID, got.Speakers[i].ID)
		got.Speakers[i].ID = want.Speakers[i].ID
	}
	assert.Equal(t, want, got)

	// The reset run is idle until started again.
	clock.Advance(30 * time.Second)
	assert.Equal(t, 0, snapshot(t, ctx, tm).SecondsElapsed)
	require.NoError(t, tm.Start(ctx))
	assert.True(t, snapshot(t, ctx, tm).Running())
}

func TestTurnTimer_SubscribeReceivesEvents(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tm := timer.New(1, []string{"Ana", "Ben"}, timer.WithClock(clock), timer.WithFrequency(time.Second))
	ctx := runTimer(t, tm)

	updates, unsubscribe, err := tm.Subscribe(ctx, 128)
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, tm.Start(ctx))
	next := func() timer.Update {
		select {
		case u := <-updates:
			return u
		case <-time.After(waitFor):
			t.Fatal("no update received")
			return timer.Update{}
		}
	}

	started := next()
	assert.Equal(t, events.TypeMeetingStarted, started.Event.Type)
	payload, ok := started.Event.Payload.(events.MeetingStartedPayload)
	require.True(t, ok)
	assert.Equal(t, 30, payload.SecondsPerSpeaker)
	assert.Equal(t, 2, payload.Speakers)

	clock.Advance(time.Second)
	tick := next()
	assert.Equal(t, events.TypeTimerTick, tick.Event.Type)
	assert.Equal(t, 1, tick.Snapshot.SecondsElapsed)

	require.NoError(t, tm.SkipSpeaker(ctx))
	changed := next()
	require.Equal(t, events.TypeSpeakerChanged, changed.Event.Type)
	cp := changed.Event.Payload.(events.SpeakerChangedPayload)
	assert.Equal(t, events.TriggerSkip, cp.Trigger)
	assert.Equal(t, 0, cp.PreviousIndex)
	assert.Equal(t, 1, cp.ActiveIndex)
	assert.Equal(t, "Speaker 2: Ben", cp.ActiveSpeaker)

	clock.Advance(30 * time.Second)
	completed := next()
	for completed.Event.Type == events.TypeTimerTick {
		completed = next()
	}
	require.Equal(t, events.TypeMeetingCompleted, completed.Event.Type)
	assert.Equal(t, events.TriggerTimeout, completed.Event.Payload.(events.MeetingCompletedPayload).Trigger)
	assert.True(t, completed.Snapshot.Finished)
}

func TestTurnTimer_LaggingSubscriberKeepsNewest(t *testing.T) {
	metrics := &timer.CountingMetrics{}
	tm := timer.New(5, []string{"a", "b", "c", "d"},
		timer.WithClock(clockwork.NewFakeClock()),
		timer.WithMetrics(metrics),
	)
	ctx := runTimer(t, tm)

	updates, unsubscribe, err := tm.Subscribe(ctx, 1)
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, tm.Start(ctx))
	require.NoError(t, tm.SkipSpeaker(ctx))
	require.NoError(t, tm.SkipSpeaker(ctx))

	u := <-updates
	assert.Equal(t, events.TypeSpeakerChanged, u.Event.Type)
	assert.Equal(t, 2, u.Snapshot.ActiveSpeakerIndex)
	assert.Equal(t, int64(2), metrics.DroppedUpdates.Load())
	assert.Equal(t, int64(2), metrics.Skips.Load())
}

func TestTurnTimer_LaggingSubscriberWarnsOncePerEpisode(t *testing.T) {
	var buf bytes.Buffer
	previous := log.Logger
	log.Logger = zerolog.New(&buf)
	t.Cleanup(func() { log.Logger = previous })

	tm := timer.New(5, []string{"a", "b", "c", "d", "e"}, timer.WithClock(clockwork.NewFakeClock()))
	ctx := runTimer(t, tm)

	updates, unsubscribe, err := tm.Subscribe(ctx, 1)
	require.NoError(t, err)
	defer unsubscribe()

	warnings := func() int { return strings.Count(buf.String(), "subscriber lagging") }

	require.NoError(t, tm.Start(ctx))
	for i := 0; i < 3; i++ {
		require.NoError(t, tm.SkipSpeaker(ctx))
	}
	assert.Equal(t, 1, warnings())

	<-updates
	require.NoError(t, tm.Reset(ctx, 5, []string{"a", "b"}))
	assert.Contains(t, buf.String(), "subscriber caught up")

	// The reset update fills the slot again, so the start begins a new episode.
	require.NoError(t, tm.Start(ctx))
	assert.Equal(t, 2, warnings())
	require.NoError(t, tm.SkipSpeaker(ctx))
	assert.Equal(t, 2, warnings())
}

func TestTurnTimer_CancelledSnapshotReturnsCompleteState(t *testing.T) {
	tm := timer.New(5, []string{"a", "b"}, timer.WithClock(clockwork.NewFakeClock()))
	ctx := runTimer(t, tm)

	for i := 0; i < 2000; i++ {
		c, cancel := context.WithCancel(ctx)
		go cancel()
		snap, err := tm.Snapshot(c)
		if err != nil {
			assert.ErrorIs(t, err, context.Canceled)
			continue
		}
		assert.Len(t, snap.Speakers, 2)
	}
}

func TestTurnTimer_CancelledSubscribeRegistersNothing(t *testing.T) {
	metrics := &timer.CountingMetrics{}
	tm := timer.New(5, []string{"a", "b", "c"},
		timer.WithClock(clockwork.NewFakeClock()),
		timer.WithMetrics(metrics),
	)
	ctx := runTimer(t, tm)

	for i := 0; i < 2000; i++ {
		c, cancel := context.WithCancel(ctx)
		go cancel()
		_, unsubscribe, err := tm.Subscribe(c, 1)
		if err != nil {
			assert.ErrorIs(t, err, context.Canceled)
			continue
		}
		unsubscribe()
	}

	// A leftover subscriber with a one-slot buffer would start dropping here.
	require.NoError(t, tm.Start(ctx))
	require.NoError(t, tm.SkipSpeaker(ctx))
	require.NoError(t, tm.SkipSpeaker(ctx))
	assert.Zero(t, metrics.DroppedUpdates.Load())
}

func TestTurnTimer_UnsubscribeClosesChannel(t *testing.T) {
	tm := timer.New(5, nil)
	ctx := runTimer(t, tm)

	updates, unsubscribe, err := tm.Subscribe(ctx, 4)
	require.NoError(t, err)
	unsubscribe()

	_, open := <-updates
	assert.False(t, open)
}

func TestTurnTimer_ClosedAfterRunExits(t *testing.T) {
	tm := timer.New(5, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tm.Run(ctx) }()

	updates, _, err := tm.Subscribe(ctx, 1)
	require.NoError(t, err)

	cancel()
	require.NoError(t, <-done)

	_, open := <-updates
	assert.False(t, open)
	assert.ErrorIs(t, tm.Start(context.Background()), timer.ErrClosed)
	_, err = tm.Snapshot(context.Background())
	assert.ErrorIs(t, err, timer.ErrClosed)
	assert.ErrorIs(t, tm.Run(context.Background()), timer.ErrAlreadyRunning)
}

func TestTurnTimer_ControlHonoursContext(t *testing.T) {
	tm := timer.New(5, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Run was never started, so only the context can release the call.
	assert.ErrorIs(t, tm.Start(ctx), context.Canceled)
}

func TestTurnTimer_PanickingActionDoesNotCorruptState(t *testing.T) {
	clock := clockwork.NewFakeClock()
	tm := timer.New(1, []string{"Ana", "Ben"},
		timer.WithClock(clock),
		timer.WithFrequency(time.Second),
		timer.WithSpeakerChangedAction(func() { panic("boom") }),
	)
	ctx := runTimer(t, tm)
	require.NoError(t, tm.Start(ctx))

	clock.Advance(30 * time.Second)
	waitUntil(t, ctx, tm, func(s timer.Snapshot) bool { return s.ActiveSpeakerIndex == 1 })

	clock.Advance(30 * time.Second)
	snap := waitUntil(t, ctx, tm, func(s timer.Snapshot) bool { return s.Finished })
	assert.Equal(t, 2, snap.CompletedSpeakers())
}

func TestTurnTimer_MetricsCountTimeouts(t *testing.T) {
	clock := clockwork.NewFakeClock()
	metrics := &timer.CountingMetrics{}
	tm := timer.New(1, []string{"Ana"},
		timer.WithClock(clock),
		timer.WithFrequency(time.Second),
		timer.WithMetrics(metrics),
	)
	ctx := runTimer(t, tm)
	require.NoError(t, tm.Start(ctx))

	clock.Advance(60 * time.Second)
	waitUntil(t, ctx, tm, func(s timer.Snapshot) bool { return s.Finished })
	assert.Equal(t, int64(1), metrics.Timeouts.Load())
	assert.Equal(t, int64(1), metrics.Completions.Load())
	assert.GreaterOrEqual(t, metrics.Ticks.Load(), int64(1))
}
