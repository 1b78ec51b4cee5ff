package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Slider bounds for a scrum's length in the edit form.
const (
	MinLengthInMinutes = 5
	MaxLengthInMinutes = 30
)

var ErrEmptyAttendeeName = errors.New("attendee name must not be empty")

// Attendee is a person taking part in a daily scrum.
type Attendee struct {
	ID   uuid.UUID `json:"id" yaml:"-"`
	Name string    `json:"name" yaml:"name"`
}

// NewAttendee creates an attendee with a fresh ID.
func NewAttendee(name string) Attendee {
	return Attendee{ID: uuid.New(), Name: name}
}

// DailyScrum represents a recurring stand-up meeting.
type DailyScrum struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	Attendees       []Attendee `json:"attendees"`
	LengthInMinutes int        `json:"length_in_minutes"`
	Theme           Theme      `json:"theme"`
}

// NewDailyScrum builds a scrum from plain attendee names.
func NewDailyScrum(title string, attendees []string, lengthInMinutes int, theme Theme) DailyScrum {
	scrum := DailyScrum{
		ID:              uuid.New(),
		Title:           title,
		LengthInMinutes: lengthInMinutes,
		Theme:           theme,
	}
	for _, name := range attendees {
		scrum.Attendees = append(scrum.Attendees, NewAttendee(name))
	}
	return scrum
}

// AttendeeNames returns attendee names in meeting order.
func (s DailyScrum) AttendeeNames() []string {
	names := make([]string, 0, len(s.Attendees))
	for _, a := range s.Attendees {
		names = append(names, a.Name)
	}
	return names
}

// Data is the editable copy of a scrum used by the edit form.
type Data struct {
	Title           string
	Attendees       []Attendee
	LengthInMinutes float64
	Theme           Theme
}

// Data returns an edit buffer holding a copy of the scrum's fields.
func (s DailyScrum) Data() Data {
	attendees := make([]Attendee, len(s.Attendees))
	copy(attendees, s.Attendees)
	return Data{
		Title:           s.Title,
		Attendees:       attendees,
		LengthInMinutes: float64(s.LengthInMinutes),
		Theme:           s.Theme,
	}
}

// Update applies an edit buffer to the scrum. The ID is kept.
func (s *DailyScrum) Update(d Data) {
	s.Title = d.Title
	s.Attendees = make([]Attendee, len(d.Attendees))
	copy(s.Attendees, d.Attendees)
	s.LengthInMinutes = int(d.LengthInMinutes)
	s.Theme = d.Theme
}

// NewData returns an empty edit buffer with the form's defaults.
func NewData() Data {
	return Data{LengthInMinutes: MinLengthInMinutes, Theme: ThemeSeafoam}
}

// AddAttendee appends a new attendee; blank names are refused.
func (d *Data) AddAttendee(name string) (Attendee, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Attendee{}, ErrEmptyAttendeeName
	}
	a := NewAttendee(name)
	d.Attendees = append(d.Attendees, a)
	return a, nil
}

// RemoveAttendees deletes attendees at the given offsets. Out of range
// offsets are ignored.
func (d *Data) RemoveAttendees(offsets ...int) {
	if len(offsets) == 0 {
		return
	}
	drop := make(map[int]bool, len(offsets))
	for _, i := range offsets {
		drop[i] = true
	}
	kept := d.Attendees[:0]
	for i, a := range d.Attendees {
		if !drop[i] {
			kept = append(kept, a)
		}
	}
	d.Attendees = kept
}

// SetLength stores the length snapped to a whole minute inside the slider range.
func (d *Data) SetLength(minutes float64) {
	if minutes < MinLengthInMinutes {
		minutes = MinLengthInMinutes
	}
	if minutes > MaxLengthInMinutes {
		minutes = MaxLengthInMinutes
	}
	d.LengthInMinutes = float64(int(minutes + 0.5))
}

// Validate checks the buffer before it is saved.
func (d Data) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if d.LengthInMinutes < MinLengthInMinutes || d.LengthInMinutes > MaxLengthInMinutes {
		return fmt.Errorf("length must be between %d and %d minutes, got %v",
			MinLengthInMinutes, MaxLengthInMinutes, d.LengthInMinutes)
	}
	if !d.Theme.Valid() {
		return fmt.Errorf("unknown theme %q", d.Theme)
	}
	for i, a := range d.Attendees {
		if strings.TrimSpace(a.Name) == "" {
			return fmt.Errorf("attendee %d: %w", i, ErrEmptyAttendeeName)
		}
	}
	return nil
}

// SampleData is used when no scrums file is configured.
func SampleData() []DailyScrum {
	return []DailyScrum{
		NewDailyScrum("Design", []string{"Cathy", "Daisy", "Simon", "Jonathan"}, 10, ThemeYellow),
		NewDailyScrum("App Dev", []string{"Katie", "Gray", "Euna", "Luis", "Darla"}, 5, ThemeOrange),
		NewDailyScrum("Web Dev", []string{"Chella", "Chris", "Christina", "Eden", "Karla", "Lindsey", "Aga", "Chad", "Jenn", "Sarah"}, 5, ThemePoppy),
	}
}

// SortByTitle orders scrums alphabetically, case-insensitive.
func SortByTitle(scrums []DailyScrum) {
	sort.SliceStable(scrums, func(i, j int) bool {
		return strings.ToLower(scrums[i].Title) < strings.ToLower(scrums[j].Title)
	})
}
