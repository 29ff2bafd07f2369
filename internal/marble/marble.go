// Package marble parses marble diagrams used to describe timed streams in tests.
//
// Each rune occupies one frame:
//
//	-   nothing happens in this frame
//	|   the stream completes
//	#   the stream errors
//	^   subscription point; frames are counted relative to it
//	( ) events inside the parentheses share the frame of the opening parenthesis
//
// Spaces are ignored and do not advance time. Any other rune is a value key.
package marble

import (
	"github.com/pkg/errors"
)

// Kind of a marble event.
type Kind int

const (
	Next Kind = iota
	Error
	Complete
)

// Event is a single notification placed on a frame.
type Event struct {
	Frame int
	Kind  Kind
	// Key is the rune naming the value, empty for terminal events.
	Key string
}

// Diagram is a parsed marble diagram.
type Diagram struct {
	Events []Event
	// Subscribed is true when the diagram has an explicit '^'.
	Subscribed bool
}

// Terminal reports the terminal event of the diagram, if any.
func (d *Diagram) Terminal() (Event, bool) {
	if n := len(d.Events); n > 0 && d.Events[n-1].Kind != Next {
		return d.Events[n-1], true
	}
	return Event{}, false
}

// Parse parses a marble diagram.
func Parse(diagram string) (*Diagram, error) {
	var (
		events     []Event
		frame      int
		group      = -1
		subscribed = -1
		terminated bool
	)

	for pos, r := range diagram {
		at := frame
		if group >= 0 {
			at = group
		}

		switch r {
		case ' ':
			continue
		case '-':
		case '(':
			if group >= 0 {
				return nil, errors.Errorf("nested group at position %d", pos)
			}
			group = frame
		case ')':
			if group < 0 {
				return nil, errors.Errorf("unopened group closed at position %d", pos)
			}
			group = -1
		case '^':
			if subscribed >= 0 {
				return nil, errors.Errorf("second subscription point at position %d", pos)
			}
			if group >= 0 {
				return nil, errors.Errorf("subscription point inside group at position %d", pos)
			}
			subscribed = frame
		case '|', '#':
			if terminated {
				return nil, errors.Errorf("second terminal event at position %d", pos)
			}
			terminated = true
			kind := Complete
			if r == '#' {
				kind = Error
			}
			events = append(events, Event{Frame: at, Kind: kind})
		default:
			if terminated {
				return nil, errors.Errorf("value %q after terminal event at position %d", r, pos)
			}
			events = append(events, Event{Frame: at, Kind: Next, Key: string(r)})
		}
		frame++
	}

	if group >= 0 {
		return nil, errors.Errorf("unterminated group in %q", diagram)
	}

	d := &Diagram{Events: events, Subscribed: subscribed >= 0}
	if subscribed > 0 {
		for i := range d.Events {
			d.Events[i].Frame -= subscribed
		}
	}
	return d, nil
}

// MustParse is like Parse but panics if the diagram is invalid.
func MustParse(diagram string) *Diagram {
	d, err := Parse(diagram)
	if err != nil {
		panic(errors.Wrapf(err, "parse marble %q", diagram))
	}
	return d
}
