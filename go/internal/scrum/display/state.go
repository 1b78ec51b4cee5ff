package display

import (
	"fmt"
	"time"

	"github.com/mcdev12/scrumdinger/go/internal/models"
	"github.com/mcdev12/scrumdinger/go/internal/scrum/events"
	"github.com/mcdev12/scrumdinger/go/internal/scrum/timer"
)

// MeetingStatus is the lifecycle stage shown to the user.
type MeetingStatus string

const (
	StatusNotStarted MeetingStatus = "NOT_STARTED"
	StatusInProgress MeetingStatus = "IN_PROGRESS"
	StatusCompleted  MeetingStatus = "COMPLETED"
	StatusStopped    MeetingStatus = "STOPPED"
)

// Turn is one finished speaking turn, for the meeting summary.
type Turn struct {
	Index     int       `json:"index"`
	Speaker   string    `json:"speaker"`
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	Seconds   int       `json:"seconds"`
	Skipped   bool      `json:"skipped"`
}

// MeetingState is everything the meeting screen renders.
type MeetingState struct {
	Title         string          `json:"title"`
	Status        MeetingStatus   `json:"status"`
	ActiveIndex   int             `json:"active_index"`
	ActiveSpeaker string          `json:"active_speaker"`
	Header        Header          `json:"header"`
	Speakers      []timer.Speaker `json:"speakers"`
	Turns         []Turn          `json:"turns"`
	StartedAt     *time.Time      `json:"started_at,omitempty"`
	EndedAt       *time.Time      `json:"ended_at,omitempty"`
}

// StateManager folds timer updates into a MeetingState. It is meant to be
// fed from a single subscriber goroutine.
type StateManager struct {
	state         MeetingState
	turnStartedAt time.Time
}

// NewStateManager creates a manager for the given scrum.
func NewStateManager(title string, theme models.Theme) *StateManager {
	return &StateManager{
		state: MeetingState{
			Title:  title,
			Status: StatusNotStarted,
			Header: Header{Theme: theme},
		},
	}
}

// State returns a copy of the current state.
func (m *StateManager) State() MeetingState {
	s := m.state
	s.Speakers = append([]timer.Speaker(nil), m.state.Speakers...)
	s.Turns = append([]Turn(nil), m.state.Turns...)
	return s
}

// ProcessUpdate updates the meeting state based on an incoming timer update
func (m *StateManager) ProcessUpdate(u timer.Update) error {
	m.applySnapshot(u.Snapshot)

	switch u.Event.Type {
	case events.TypeMeetingStarted:
		p, ok := u.Event.Payload.(events.MeetingStartedPayload)
		if !ok {
			return unexpectedPayload(u.Event)
		}
		m.state.Status = StatusInProgress
		m.state.StartedAt = &p.StartedAt
		m.state.EndedAt = nil
		m.state.Turns = nil
		m.turnStartedAt = p.StartedAt

	case events.TypeSpeakerChanged:
		p, ok := u.Event.Payload.(events.SpeakerChangedPayload)
		if !ok {
			return unexpectedPayload(u.Event)
		}
		m.beginIfNeeded(p.ChangedAt)
		m.recordTurn(u.Snapshot, p.PreviousIndex, p.ChangedAt, p.Trigger)
		m.turnStartedAt = p.ChangedAt

	case events.TypeMeetingCompleted:
		p, ok := u.Event.Payload.(events.MeetingCompletedPayload)
		if !ok {
			return unexpectedPayload(u.Event)
		}
		m.beginIfNeeded(p.CompletedAt)
		m.recordTurn(u.Snapshot, u.Snapshot.ActiveSpeakerIndex, p.CompletedAt, p.Trigger)
		m.state.Status = StatusCompleted
		m.state.EndedAt = &p.CompletedAt

	case events.TypeMeetingStopped:
		p, ok := u.Event.Payload.(events.MeetingStoppedPayload)
		if !ok {
			return unexpectedPayload(u.Event)
		}
		m.state.Status = StatusStopped
		m.state.EndedAt = &p.StoppedAt

	case events.TypeMeetingReset:
		m.state.Status = StatusNotStarted
		m.state.StartedAt = nil
		m.state.EndedAt = nil
		m.state.Turns = nil
		m.turnStartedAt = time.Time{}

	case events.TypeTimerTick:
		// snapshot already applied
	}

	return nil
}

// Done reports whether the meeting has ended one way or another.
func (m *StateManager) Done() bool {
	return m.state.Status == StatusCompleted || m.state.Status == StatusStopped
}

func (m *StateManager) applySnapshot(s timer.Snapshot) {
	m.state.ActiveIndex = s.ActiveSpeakerIndex
	m.state.ActiveSpeaker = s.ActiveSpeaker
	m.state.Header.SecondsElapsed = s.SecondsElapsed
	m.state.Header.SecondsRemaining = s.SecondsRemaining
	m.state.Speakers = s.Speakers
}

// beginIfNeeded covers a skip sent before Start.
func (m *StateManager) beginIfNeeded(at time.Time) {
	if m.state.Status == StatusNotStarted {
		m.state.Status = StatusInProgress
		m.state.StartedAt = &at
	}
	if m.turnStartedAt.IsZero() {
		m.turnStartedAt = at
	}
}

func (m *StateManager) recordTurn(s timer.Snapshot, index int, endedAt time.Time, trigger events.Trigger) {
	name := ""
	if index >= 0 && index < len(s.Speakers) {
		name = s.Speakers[index].Name
	}
	m.state.Turns = append(m.state.Turns, Turn{
		Index:     index,
		Speaker:   name,
		StartedAt: m.turnStartedAt,
		EndedAt:   endedAt,
		Seconds:   int(endedAt.Sub(m.turnStartedAt) / time.Second),
		Skipped:   trigger == events.TriggerSkip,
	})
}

func unexpectedPayload(e events.Event) error {
	return fmt.Errorf("unexpected payload %T for %s event", e.Payload, e.Type)
}
