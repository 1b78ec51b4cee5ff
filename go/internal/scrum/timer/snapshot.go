package timer

import "github.com/mcdev12/scrumdinger/go/internal/scrum/events"

// Snapshot is a consistent copy of every observable timer field.
// Speakers must be treated as read-only; it may be shared between
// subscribers.
type Snapshot struct {
	LengthInMinutes    int       `json:"length_in_minutes"`
	ActiveSpeakerIndex int       `json:"active_speaker_index"`
	ActiveSpeaker      string    `json:"active_speaker"`
	SecondsElapsed     int       `json:"seconds_elapsed"`
	SecondsRemaining   int       `json:"seconds_remaining"`
	SecondsPerSpeaker  int       `json:"seconds_per_speaker"`
	Speakers           []Speaker `json:"speakers"`
	Started            bool      `json:"started"`
	Stopped            bool      `json:"stopped"`
	Finished           bool      `json:"finished"`
}

// Running reports whether the timer is still ticking.
func (s Snapshot) Running() bool {
	return s.Started && !s.Stopped && !s.Finished
}

// CompletedSpeakers counts speakers whose turn is over.
func (s Snapshot) CompletedSpeakers() int {
	n := 0
	for _, sp := range s.Speakers {
		if sp.IsCompleted {
			n++
		}
	}
	return n
}

func (s Snapshot) sameAs(o Snapshot) bool {
	if s.LengthInMinutes != o.LengthInMinutes ||
		s.ActiveSpeakerIndex != o.ActiveSpeakerIndex ||
		s.ActiveSpeaker != o.ActiveSpeaker ||
		s.SecondsElapsed != o.SecondsElapsed ||
		s.SecondsRemaining != o.SecondsRemaining ||
		s.Started != o.Started ||
		s.Stopped != o.Stopped ||
		s.Finished != o.Finished ||
		len(s.Speakers) != len(o.Speakers) {
		return false
	}
	for i := range s.Speakers {
		if s.Speakers[i] != o.Speakers[i] {
			return false
		}
	}
	return true
}

// Update is delivered to subscribers whenever observable state changes.
type Update struct {
	Event    events.Event `json:"event"`
	Snapshot Snapshot     `json:"snapshot"`
}
