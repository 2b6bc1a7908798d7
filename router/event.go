// SPDX-License-Identifier: EPL-2.0

package router

import (
	"fmt"
	"strconv"

	"gitlab.com/gomidi/midi/v2"
)

// MaxNote is the highest MIDI note and velocity value.
const MaxNote = 127

// Event is one of NoteOn, NoteOff or SampleChange.
type Event interface {
	fmt.Stringer
	event()
}

// NoteOn starts a note. A velocity of 0 releases it, as in MIDI.
type NoteOn struct {
	Note     uint8
	Velocity uint8
}

type NoteOff struct {
	Note uint8
}

// SampleChange replaces the base sample with the file at Path.
type SampleChange struct {
	Path string
}

func (NoteOn) event()       {}
func (NoteOff) event()      {}
func (SampleChange) event() {}

func (e NoteOn) String() string {
	return "note-on " + strconv.Itoa(int(e.Note)) + " vel " + strconv.Itoa(int(e.Velocity))
}

func (e NoteOff) String() string { return "note-off " + strconv.Itoa(int(e.Note)) }

func (e SampleChange) String() string { return "sample " + strconv.Quote(e.Path) }

func validate(ev Event) error {
	switch ev := ev.(type) {
	case NoteOn:
		if ev.Note > MaxNote || ev.Velocity > MaxNote {
			return fmt.Errorf("%w: %v out of range", ErrProtocol, ev)
		}
	case NoteOff:
		if ev.Note > MaxNote {
			return fmt.Errorf("%w: %v out of range", ErrProtocol, ev)
		}
	case SampleChange:
		if ev.Path == "" {
			return fmt.Errorf("%w: sample change without a path", ErrProtocol)
		}
	case nil:
		return fmt.Errorf("%w: nil event", ErrProtocol)
	default:
		return fmt.Errorf("%w: unknown event %T", ErrProtocol, ev)
	}
	return nil
}

// DecodeMIDI decodes one complete MIDI note message on any channel.
// Note-on with velocity 0 comes back as NoteOff. Anything else is an
// ErrProtocol.
func DecodeMIDI(b []byte) (Event, error) {
	if len(b) != 3 || b[1] > MaxNote || b[2] > MaxNote {
		return nil, fmt.Errorf("%w: malformed note message: % X", ErrProtocol, b)
	}
	msg := midi.Message(b)

	var ch, key, vel uint8
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		return NoteOn{Note: key, Velocity: vel}, nil
	case msg.GetNoteEnd(&ch, &key):
		return NoteOff{Note: key}, nil
	}

	return nil, fmt.Errorf("%w: not a note message: % X", ErrProtocol, b)
}
