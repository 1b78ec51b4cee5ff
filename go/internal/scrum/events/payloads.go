package events

import (
	"time"

	"github.com/google/uuid"
)

// Type identifies what happened to a meeting timer.
type Type string

const (
	TypeMeetingStarted   Type = "MeetingStarted"
	TypeSpeakerChanged   Type = "SpeakerChanged"
	TypeTimerTick        Type = "TimerTick"
	TypeMeetingCompleted Type = "MeetingCompleted"
	TypeMeetingStopped   Type = "MeetingStopped"
	TypeMeetingReset     Type = "MeetingReset"
)

// Trigger says why the active speaker changed.
type Trigger string

const (
	TriggerTimeout Trigger = "timeout"
	TriggerSkip    Trigger = "skip"
)

// Event is one notification emitted by a meeting timer.
type Event struct {
	ID        uuid.UUID   `json:"id"`
	Type      Type        `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"data,omitempty"`
}

// New stamps an event with a fresh ID.
func New(eventType Type, at time.Time, payload interface{}) Event {
	return Event{
		ID:        uuid.New(),
		Type:      eventType,
		Timestamp: at,
		Payload:   payload,
	}
}

// MeetingStartedPayload is the payload for a MeetingStarted event
type MeetingStartedPayload struct {
	LengthInMinutes   int       `json:"length_in_minutes"`
	Speakers          int       `json:"speakers"`
	SecondsPerSpeaker int       `json:"seconds_per_speaker"`
	ActiveSpeaker     string    `json:"active_speaker"`
	StartedAt         time.Time `json:"started_at"`
}

// SpeakerChangedPayload is the payload for a SpeakerChanged event
type SpeakerChangedPayload struct {
	PreviousIndex   int       `json:"previous_index"`
	PreviousSpeaker string    `json:"previous_speaker"`
	ActiveIndex     int       `json:"active_index"`
	ActiveSpeaker   string    `json:"active_speaker"`
	Trigger         Trigger   `json:"trigger"`
	ChangedAt       time.Time `json:"changed_at"`
}

// MeetingCompletedPayload is the payload for a MeetingCompleted event
type MeetingCompletedPayload struct {
	LastSpeaker      string    `json:"last_speaker"`
	Trigger          Trigger   `json:"trigger"`
	SecondsElapsed   int       `json:"seconds_elapsed"`
	SecondsRemaining int       `json:"seconds_remaining"`
	CompletedAt      time.Time `json:"completed_at"`
}

// MeetingStoppedPayload is the payload for a MeetingStopped event
type MeetingStoppedPayload struct {
	ActiveIndex    int       `json:"active_index"`
	SecondsElapsed int       `json:"seconds_elapsed"`
	StoppedAt      time.Time `json:"stopped_at"`
}

// MeetingResetPayload is the payload for a MeetingReset event
type MeetingResetPayload struct {
	LengthInMinutes int       `json:"length_in_minutes"`
	Speakers        int       `json:"speakers"`
	ResetAt         time.Time `json:"reset_at"`
}
