package timer

import (
	"fmt"
	"time"
)

// turnState is the bookkeeping for one meeting run. It is owned by the
// TurnTimer loop goroutine and must not be shared.
type turnState struct {
	lengthInMinutes          int
	speakers                 []Speaker
	speakerIndex             int
	activeSpeaker            string
	secondsElapsed           int
	secondsRemaining         int
	secondsElapsedForSpeaker int
	startedAt                time.Time

	// turn is bumped every time a speaker is activated; the loop uses it
	// to know when the ticker has to be restarted.
	turn     int
	started  bool
	stopped  bool
	finished bool
}

// transition describes one advanceTo call.
type transition struct {
	fromIndex   int
	fromSpeaker string
	toIndex     int
	finished    bool
}

func newTurnState(lengthInMinutes int, names []string) *turnState {
	s := &turnState{}
	s.reset(lengthInMinutes, names)
	return s
}

func (s *turnState) reset(lengthInMinutes int, names []string) {
	if lengthInMinutes < 0 {
		lengthInMinutes = 0
	}
	*s = turnState{
		lengthInMinutes: lengthInMinutes,
		speakers:        speakersFrom(names),
	}
	s.secondsRemaining = s.lengthInSeconds()
	s.activeSpeaker = s.speakerText()
}

func (s *turnState) lengthInSeconds() int {
	return s.lengthInMinutes * 60
}

// secondsPerSpeaker truncates; the remainder of an uneven split is never
// handed out. speakers is never empty.
func (s *turnState) secondsPerSpeaker() int {
	return s.lengthInSeconds() / len(s.speakers)
}

func (s *turnState) speakerText() string {
	return fmt.Sprintf("Speaker %d: %s", s.speakerIndex+1, s.speakers[s.speakerIndex].Name)
}

func (s *turnState) ticking() bool {
	return s.started && !s.stopped && !s.finished
}

// start begins the first turn. A run that was already started or stopped
// needs a reset first.
func (s *turnState) start(now time.Time) bool {
	if s.started || s.stopped {
		return false
	}
	s.advanceTo(0, now)
	return true
}

func (s *turnState) stop() bool {
	if s.stopped {
		return false
	}
	s.stopped = true
	return true
}

func (s *turnState) skip(now time.Time) (transition, bool) {
	if s.stopped || s.finished {
		return transition{}, false
	}
	return s.advanceTo(s.speakerIndex+1, now), true
}

// advanceTo is the single turn transition used by start, skip and ticks.
func (s *turnState) advanceTo(index int, now time.Time) transition {
	tr := transition{fromIndex: s.speakerIndex, fromSpeaker: s.activeSpeaker}

	if index > 0 && index-1 < len(s.speakers) {
		s.speakers[index-1].IsCompleted = true
	}
	s.secondsElapsedForSpeaker = 0

	if index >= len(s.speakers) {
		s.finished = true
		tr.toIndex = s.speakerIndex
		tr.finished = true
		return tr
	}

	s.speakerIndex = index
	s.activeSpeaker = s.speakerText()
	s.secondsElapsed = index * s.secondsPerSpeaker()
	s.secondsRemaining = max(s.lengthInSeconds()-s.secondsElapsed, 0)
	s.startedAt = now
	s.started = true
	s.turn++

	tr.toIndex = index
	return tr
}

// update handles one tick. It reports a transition when the active
// speaker's time ran out.
func (s *turnState) update(now time.Time) (transition, bool) {
	if !s.ticking() {
		return transition{}, false
	}

	elapsed := int(now.Sub(s.startedAt) / time.Second)
	perSpeaker := s.secondsPerSpeaker()

	s.secondsElapsedForSpeaker = elapsed
	s.secondsElapsed = perSpeaker*s.speakerIndex + elapsed
	if elapsed > perSpeaker {
		// The turn should already have ended on an earlier tick.
		return transition{}, false
	}
	s.secondsRemaining = max(s.lengthInSeconds()-s.secondsElapsed, 0)

	if s.secondsElapsedForSpeaker >= perSpeaker {
		return s.advanceTo(s.speakerIndex+1, now), true
	}
	return transition{}, false
}

func (s *turnState) snapshot() Snapshot {
	speakers := make([]Speaker, len(s.speakers))
	copy(speakers, s.speakers)
	return Snapshot{
		LengthInMinutes:    s.lengthInMinutes,
		ActiveSpeakerIndex: s.speakerIndex,
		ActiveSpeaker:      s.activeSpeaker,
		SecondsElapsed:     s.secondsElapsed,
		SecondsRemaining:   s.secondsRemaining,
		SecondsPerSpeaker:  s.secondsPerSpeaker(),
		Speakers:           speakers,
		Started:            s.started,
		Stopped:            s.stopped,
		Finished:           s.finished,
	}
}
