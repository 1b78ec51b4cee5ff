package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/mcdev12/scrumdinger/go/internal/models"
	"github.com/mcdev12/scrumdinger/go/internal/scrum/display"
)

type Formatter struct {
	w io.Writer
}

func NewFormatter(w io.Writer) *Formatter {
	return &Formatter{w: w}
}

func (f *Formatter) ScrumListHeader() {
	fmt.Fprintf(f.w, "📋 Daily scrums:\n\n")
}

func (f *Formatter) ScrumListItem(s models.DailyScrum) {
	fmt.Fprintf(f.w, "  %-20s %3d min  %2d attendees  %s\n",
		s.Title, s.LengthInMinutes, len(s.Attendees), s.Theme.Name())
}

func (f *Formatter) ThemeListItem(t models.Theme) {
	fmt.Fprintf(f.w, "  🎨 %-12s on %s\n", t.Name(), t.AccentColor())
}

func (f *Formatter) MeetingStarting(s models.DailyScrum, speakers int) {
	fmt.Fprintf(f.w, "▶️  %s: %d minutes, %d speakers\n", s.Title, s.LengthInMinutes, speakers)
	fmt.Fprintf(f.w, "   Enter or 's' skips the speaker, 'q' ends the meeting\n\n")
}

// Status redraws the live status line in place.
func (f *Formatter) Status(state display.MeetingState) {
	fmt.Fprintf(f.w, "\r\033[K%s  🗣  %s", state.Header, state.ActiveSpeaker)
}

// Bell rings the terminal bell.
func (f *Formatter) Bell() {
	fmt.Fprint(f.w, "\a")
}

func (f *Formatter) MeetingSummary(state display.MeetingState) {
	fmt.Fprintln(f.w)
	switch state.Status {
	case display.StatusCompleted:
		fmt.Fprintf(f.w, "\n✅ %s finished\n", state.Title)
	case display.StatusStopped:
		fmt.Fprintf(f.w, "\n⏹️  %s ended early\n", state.Title)
	default:
		fmt.Fprintf(f.w, "\nℹ️  %s\n", state.Title)
	}
	for _, turn := range state.Turns {
		note := ""
		if turn.Skipped {
			note = " (skipped)"
		}
		fmt.Fprintf(f.w, "  %d. %-20s %s%s\n", turn.Index+1, turn.Speaker, formatSeconds(turn.Seconds), note)
	}
	fmt.Fprintf(f.w, "  %s\n", state.Header)
}

// JSON writes v as one line of JSON.
func (f *Formatter) JSON(v interface{}) error {
	return json.NewEncoder(f.w).Encode(v)
}

func (f *Formatter) Error(msg string) {
	fmt.Fprintf(f.w, "❌ %s\n", msg)
}

func formatSeconds(s int) string {
	var b strings.Builder
	if m := s / 60; m > 0 {
		fmt.Fprintf(&b, "%dm", m)
	}
	fmt.Fprintf(&b, "%02ds", s%60)
	return b.String()
}
