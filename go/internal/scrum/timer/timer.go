package timer

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/mcdev12/scrumdinger/go/internal/scrum/events"
	"github.com/rs/zerolog/log"
)

// DefaultFrequency is the tick interval. It is sized for a smooth progress
// bar, not for timing precision: elapsed time is always read off the clock.
const DefaultFrequency = time.Second / 60

var (
	ErrClosed         = errors.New("turn timer is closed")
	ErrAlreadyRunning = errors.New("turn timer is already running")
)

// Option configures a TurnTimer.
type Option func(*TurnTimer)

// WithClock replaces the real clock, typically with a clockwork.FakeClock.
func WithClock(clock clockwork.Clock) Option {
	return func(t *TurnTimer) {
		t.clock = clock
	}
}

// WithFrequency overrides DefaultFrequency.
func WithFrequency(d time.Duration) Option {
	return func(t *TurnTimer) {
		if d > 0 {
			t.frequency = d
		}
	}
}

// WithSpeakerChangedAction registers a hook fired whenever a speaker's time
// runs out, including the last one. It runs on its own goroutine.
func WithSpeakerChangedAction(fn func()) Option {
	return func(t *TurnTimer) {
		t.speakerChangedAction = fn
	}
}

// WithMetrics sets the collector for tick and transition metrics.
func WithMetrics(m MetricsCollector) Option {
	return func(t *TurnTimer) {
		if m != nil {
			t.metrics = m
		}
	}
}

type command struct {
	fn   func(now time.Time)
	done chan struct{}
}

// TurnTimer splits a meeting evenly between speakers and walks through
// their turns.
//
// All state is owned by the goroutine running Run. Control methods are
// sent to it through a mailbox and block until the loop has applied them,
// so every read sees a complete update.
type TurnTimer struct {
	clock                clockwork.Clock
	frequency            time.Duration
	speakerChangedAction func()
	metrics              MetricsCollector
	instanceID           string

	cmds    chan command
	done    chan struct{}
	running atomic.Bool

	// Owned by the Run goroutine.
	state      *turnState
	ticker     clockwork.Ticker
	tickerTurn int
	subs       map[int]chan Update
	lagging    map[int]bool
	nextSubID  int
	published  Snapshot
}

// New creates a timer for a meeting of lengthInMinutes shared by the given
// attendees. An empty attendee list gets a single "Speaker 1". The timer
// does nothing until Run is called and Start is sent.
func New(lengthInMinutes int, attendees []string, opts ...Option) *TurnTimer {
	t := &TurnTimer{
		clock:      clockwork.NewRealClock(),
		frequency:  DefaultFrequency,
		metrics:    NoOpMetricsCollector{},
		instanceID: uuid.New().String()[:8],
		cmds:       make(chan command),
		done:       make(chan struct{}),
		state:      newTurnState(lengthInMinutes, attendees),
		subs:       make(map[int]chan Update),
		lagging:    make(map[int]bool),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.published = t.state.snapshot()
	return t
}

// ID is a short identifier used in logs.
func (t *TurnTimer) ID() string {
	return t.instanceID
}

// Run owns the timer state until ctx is cancelled. It may only be called
// once; afterwards every method returns ErrClosed and subscriber channels
// are closed.
func (t *TurnTimer) Run(ctx context.Context) error {
	if !t.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	log.Info().
		Str("timer_id", t.instanceID).
		Dur("frequency", t.frequency).
		Msg("turn timer loop started")

	defer func() {
		t.stopTicker()
		for id, ch := range t.subs {
			close(ch)
			delete(t.subs, id)
			delete(t.lagging, id)
		}
		close(t.done)
		log.Info().Str("timer_id", t.instanceID).Msg("turn timer loop stopped")
	}()

	for {
		var tick <-chan time.Time
		if t.ticker != nil {
			tick = t.ticker.Chan()
		}

		select {
		case <-ctx.Done():
			return nil
		case cmd := <-t.cmds:
			cmd.fn(t.clock.Now())
			close(cmd.done)
		case <-tick:
			t.handleTick()
		}
	}
}

// Start begins the first speaker's turn. It is ignored if the run was
// already started or stopped; use Reset to begin a new run.
func (t *TurnTimer) Start(ctx context.Context) error {
	return t.do(ctx, func(now time.Time) {
		if !t.state.start(now) {
			log.Debug().Str("timer_id", t.instanceID).Msg("start ignored, run already begun")
			return
		}
		t.syncTicker()

		snap := t.state.snapshot()
		log.Info().
			Str("timer_id", t.instanceID).
			Int("length_minutes", snap.LengthInMinutes).
			Int("speakers", len(snap.Speakers)).
			Int("seconds_per_speaker", snap.SecondsPerSpeaker).
			Msg("meeting started")

		t.publish(events.New(events.TypeMeetingStarted, now, events.MeetingStartedPayload{
			LengthInMinutes:   snap.LengthInMinutes,
			Speakers:          len(snap.Speakers),
			SecondsPerSpeaker: snap.SecondsPerSpeaker,
			ActiveSpeaker:     snap.ActiveSpeaker,
			StartedAt:         now,
		}), snap)
	})
}

// Stop halts ticking for this run. Calling it again is a no-op.
func (t *TurnTimer) Stop(ctx context.Context) error {
	return t.do(ctx, func(now time.Time) {
		if !t.state.stop() {
			return
		}
		t.syncTicker()

		snap := t.state.snapshot()
		log.Info().
			Str("timer_id", t.instanceID).
			Int("speaker_index", snap.ActiveSpeakerIndex).
			Int("seconds_elapsed", snap.SecondsElapsed).
			Msg("meeting stopped")

		t.publish(events.New(events.TypeMeetingStopped, now, events.MeetingStoppedPayload{
			ActiveIndex:    snap.ActiveSpeakerIndex,
			SecondsElapsed: snap.SecondsElapsed,
			StoppedAt:      now,
		}), snap)
	})
}

// SkipSpeaker hands the floor to the next speaker straight away. Past the
// last speaker it ends the meeting; after that it does nothing.
func (t *TurnTimer) SkipSpeaker(ctx context.Context) error {
	return t.do(ctx, func(now time.Time) {
		tr, ok := t.state.skip(now)
		if !ok {
			log.Debug().Str("timer_id", t.instanceID).Msg("skip ignored, meeting is over")
			return
		}
		t.syncTicker()
		t.publishTransition(tr, events.TriggerSkip, now)
	})
}

// Reset replaces the meeting length and attendees and returns every field
// to its pre-start value. Ticking stops.
func (t *TurnTimer) Reset(ctx context.Context, lengthInMinutes int, attendees []string) error {
	return t.do(ctx, func(now time.Time) {
		t.state.reset(lengthInMinutes, attendees)
		t.syncTicker()

		snap := t.state.snapshot()
		log.Info().
			Str("timer_id", t.instanceID).
			Int("length_minutes", snap.LengthInMinutes).
			Int("speakers", len(snap.Speakers)).
			Msg("meeting reset")

		t.publish(events.New(events.TypeMeetingReset, now, events.MeetingResetPayload{
			LengthInMinutes: snap.LengthInMinutes,
			Speakers:        len(snap.Speakers),
			ResetAt:         now,
		}), snap)
	})
}

// Snapshot returns the current observable state.
func (t *TurnTimer) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := t.do(ctx, func(time.Time) {
		snap = t.state.snapshot()
	})
	return snap, err
}

// Subscribe returns a channel receiving an Update on every change. A
// subscriber that falls behind loses its oldest pending update, never the
// newest. The channel is closed by unsubscribe or when Run exits.
func (t *TurnTimer) Subscribe(ctx context.Context, buffer int) (<-chan Update, func(), error) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Update, buffer)

	var id int
	err := t.do(ctx, func(time.Time) {
		id = t.nextSubID
		t.nextSubID++
		t.subs[id] = ch
	})
	if err != nil {
		return nil, nil, err
	}

	unsubscribe := func() {
		_ = t.do(context.Background(), func(time.Time) {
			if c, ok := t.subs[id]; ok {
				delete(t.subs, id)
				delete(t.lagging, id)
				close(c)
			}
		})
	}
	return ch, unsubscribe, nil
}

// do runs fn on the loop goroutine and waits for it to finish.
func (t *TurnTimer) do(ctx context.Context, fn func(now time.Time)) error {
	cmd := command{fn: fn, done: make(chan struct{})}

	select {
	case t.cmds <- cmd:
	case <-t.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	// Once accepted, fn is writing caller-owned results; wait for it.
	<-cmd.done
	return nil
}

func (t *TurnTimer) handleTick() {
	began := time.Now()
	now := t.clock.Now()

	tr, changed := t.state.update(now)
	t.metrics.RecordTick(time.Since(began))

	if changed {
		t.syncTicker()
		t.publishTransition(tr, events.TriggerTimeout, now)
		t.fireSpeakerChanged()
		return
	}

	snap := t.state.snapshot()
	if snap.sameAs(t.published) {
		return
	}
	log.Trace().
		Str("timer_id", t.instanceID).
		Int("seconds_elapsed", snap.SecondsElapsed).
		Int("seconds_remaining", snap.SecondsRemaining).
		Msg("tick")
	t.publish(events.New(events.TypeTimerTick, now, nil), snap)
}

func (t *TurnTimer) publishTransition(tr transition, trigger events.Trigger, now time.Time) {
	t.metrics.RecordTransition(trigger, tr.finished)
	snap := t.state.snapshot()

	if tr.finished {
		log.Info().
			Str("timer_id", t.instanceID).
			Str("trigger", string(trigger)).
			Int("seconds_elapsed", snap.SecondsElapsed).
			Msg("meeting completed")

		t.publish(events.New(events.TypeMeetingCompleted, now, events.MeetingCompletedPayload{
			LastSpeaker:      tr.fromSpeaker,
			Trigger:          trigger,
			SecondsElapsed:   snap.SecondsElapsed,
			SecondsRemaining: snap.SecondsRemaining,
			CompletedAt:      now,
		}), snap)
		return
	}

	log.Info().
		Str("timer_id", t.instanceID).
		Str("trigger", string(trigger)).
		Int("speaker_index", tr.toIndex).
		Str("speaker", snap.ActiveSpeaker).
		Msg("speaker changed")

	t.publish(events.New(events.TypeSpeakerChanged, now, events.SpeakerChangedPayload{
		PreviousIndex:   tr.fromIndex,
		PreviousSpeaker: tr.fromSpeaker,
		ActiveIndex:     tr.toIndex,
		ActiveSpeaker:   snap.ActiveSpeaker,
		Trigger:         trigger,
		ChangedAt:       now,
	}), snap)
}

func (t *TurnTimer) publish(event events.Event, snap Snapshot) {
	t.published = snap
	u := Update{Event: event, Snapshot: snap}

	for id, ch := range t.subs {
		select {
		case ch <- u:
			if t.lagging[id] {
				delete(t.lagging, id)
				log.Debug().Str("timer_id", t.instanceID).Int("subscriber", id).Msg("subscriber caught up")
			}
			continue
		default:
		}

		// Make room by discarding the oldest pending update.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- u:
		default:
		}
		t.metrics.RecordDroppedUpdate()
		if t.lagging[id] {
			continue
		}
		t.lagging[id] = true
		log.Warn().
			Str("timer_id", t.instanceID).
			Int("subscriber", id).
			Str("event_type", string(event.Type)).
			Msg("subscriber lagging, dropping oldest updates")
	}
}

func (t *TurnTimer) fireSpeakerChanged() {
	if t.speakerChangedAction == nil {
		return
	}
	go func(action func()) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Str("timer_id", t.instanceID).
					Interface("panic", r).
					Msg("speaker changed action panicked")
			}
		}()
		action()
	}(t.speakerChangedAction)
}

// syncTicker keeps the ticker in line with the state: none while idle,
// a fresh one for every new turn.
func (t *TurnTimer) syncTicker() {
	if !t.state.ticking() {
		t.stopTicker()
		return
	}
	if t.ticker != nil && t.tickerTurn == t.state.turn {
		return
	}
	t.stopTicker()
	t.ticker = t.clock.NewTicker(t.frequency)
	t.tickerTurn = t.state.turn
}

func (t *TurnTimer) stopTicker() {
	if t.ticker != nil {
		t.ticker.Stop()
		t.ticker = nil
	}
}
