package display

import (
	"fmt"
	"strings"

	"github.com/mcdev12/scrumdinger/go/internal/models"
)

// Header is the meeting header: progress plus elapsed and remaining time.
type Header struct {
	SecondsElapsed   int          `json:"seconds_elapsed"`
	SecondsRemaining int          `json:"seconds_remaining"`
	Theme            models.Theme `json:"theme"`
}

func (h Header) TotalSeconds() int {
	return h.SecondsElapsed + h.SecondsRemaining
}

// Progress is the fraction of the meeting that has elapsed. An empty
// meeting counts as done.
func (h Header) Progress() float64 {
	total := h.TotalSeconds()
	if total <= 0 {
		return 1
	}
	return float64(h.SecondsElapsed) / float64(total)
}

// MinutesRemaining rounds down.
func (h Header) MinutesRemaining() int {
	return h.SecondsRemaining / 60
}

func (h Header) AccessibilityLabel() string {
	return "Time remaining"
}

func (h Header) AccessibilityValue() string {
	return fmt.Sprintf("%d minutes", h.MinutesRemaining())
}

// ProgressBar renders the progress as a fixed-width text bar.
func (h Header) ProgressBar(width int) string {
	if width <= 0 {
		return ""
	}
	filled := int(h.Progress() * float64(width))
	if filled > width {
		filled = width
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}

// String is a single status line for terminals.
func (h Header) String() string {
	return fmt.Sprintf("%s %3.0f%%  elapsed %ds  remaining %ds",
		h.ProgressBar(30), h.Progress()*100, h.SecondsElapsed, h.SecondsRemaining)
}
