package timer

import "github.com/google/uuid"

// syntheticSpeaker stands in when a meeting has no attendees so there is
// always at least one turn.
const syntheticSpeaker = "Speaker 1"

// Speaker tracks one attendee during a meeting.
type Speaker struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	IsCompleted bool      `json:"is_completed"`
}

// speakersFrom builds fresh speakers in attendee order.
func speakersFrom(names []string) []Speaker {
	if len(names) == 0 {
		return []Speaker{{ID: uuid.New(), Name: syntheticSpeaker}}
	}
	speakers := make([]Speaker, 0, len(names))
	for _, name := range names {
		speakers = append(speakers, Speaker{ID: uuid.New(), Name: name})
	}
	return speakers
}
