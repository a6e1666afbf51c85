package scheduler

import (
	"strings"

	"github.com/pkg/errors"
)

// Event is a high level input such as a button press.
type Event int

const (
	BrightnessUp Event = iota
	BrightnessDown
	NextAnimation
	Toggle
)

var eventNames = [...]string{
	BrightnessUp:   "brightness-up",
	BrightnessDown: "brightness-down",
	NextAnimation:  "next",
	Toggle:         "toggle",
}

func (e Event) String() string {
	if e < 0 || int(e) >= len(eventNames) {
		return "unknown"
	}
	return eventNames[e]
}

func ParseEvent(s string) (Event, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for e, name := range eventNames {
		if name == s {
			return Event(e), nil
		}
	}
	return 0, errors.Errorf("unknown event %q", s)
}
