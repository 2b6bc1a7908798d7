// SPDX-License-Identifier: EPL-2.0

package router

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultVelocity is used by "on" commands that omit one.
const DefaultVelocity = 100

// EffectOp is an effect chain edit from the text protocol.
type EffectOp struct {
	Op    string // list, clear, add or rm
	Name  string // effect name for add
	Index int    // position for rm
}

// Command is one parsed line. At most one of Event, Chord and Effect is
// set; all are empty for blank and comment lines.
type Command struct {
	Event  Event
	Chord  []Event
	Effect *EffectOp
}

func (c Command) Empty() bool { return c.Event == nil && len(c.Chord) == 0 && c.Effect == nil }

// Events returns the note and sample events the command carries, in order.
func (c Command) Events() []Event {
	if c.Event != nil {
		return []Event{c.Event}
	}
	return c.Chord
}

// ParseCommand parses one line of the text protocol:
//
//	on <note> [velocity]
//	off <note>
//	sample <path>
//	chord <names> [velocity] | chord off <names>
//	fx list | fx clear | fx add <name> | fx rm <index>
//
// Blank lines and lines starting with # yield an empty Command.
func ParseCommand(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return Command{}, nil
	}

	verb, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	args := strings.Fields(rest)

	switch strings.ToLower(verb) {
	case "on":
		if len(args) < 1 || len(args) > 2 {
			return Command{}, fmt.Errorf("%w: usage: on <note> [velocity]", ErrProtocol)
		}
		note, err := parseUint7(args[0], "note")
		if err != nil {
			return Command{}, err
		}
		vel := uint8(DefaultVelocity)
		if len(args) == 2 {
			if vel, err = parseUint7(args[1], "velocity"); err != nil {
				return Command{}, err
			}
		}
		return Command{Event: NoteOn{Note: note, Velocity: vel}}, nil

	case "off":
		if len(args) != 1 {
			return Command{}, fmt.Errorf("%w: usage: off <note>", ErrProtocol)
		}
		note, err := parseUint7(args[0], "note")
		if err != nil {
			return Command{}, err
		}
		return Command{Event: NoteOff{Note: note}}, nil

	case "sample":
		// paths may contain spaces
		if rest == "" {
			return Command{}, fmt.Errorf("%w: usage: sample <path>", ErrProtocol)
		}
		return Command{Event: SampleChange{Path: rest}}, nil

	case "chord":
		return parseChord(args)

	case "fx":
		return parseEffect(args)
	}

	return Command{}, fmt.Errorf("%w: unknown command %q", ErrProtocol, verb)
}

// parseChord reads a comma separated list of note names, such as
// "C,E,G" or "A3,C#4,E4".
func parseChord(args []string) (Command, error) {
	release := len(args) > 0 && strings.EqualFold(args[0], "off")
	if release {
		args = args[1:]
	}
	if len(args) < 1 || len(args) > 2 || (release && len(args) != 1) {
		return Command{}, fmt.Errorf("%w: usage: chord <names> [velocity] | chord off <names>", ErrProtocol)
	}

	vel := uint8(DefaultVelocity)
	if len(args) == 2 {
		var err error
		if vel, err = parseUint7(args[1], "velocity"); err != nil {
			return Command{}, err
		}
	}

	var cmd Command
	for name := range strings.SplitSeq(args[0], ",") {
		note, err := ParseNoteName(strings.TrimSpace(name))
		if err != nil {
			return Command{}, err
		}
		if release {
			cmd.Chord = append(cmd.Chord, NoteOff{Note: note})
		} else {
			cmd.Chord = append(cmd.Chord, NoteOn{Note: note, Velocity: vel})
		}
	}

	return cmd, nil
}

var pitchClasses = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}

// ParseNoteName returns the MIDI note for a name such as "C", "F#3" or
// "Bb5". A missing octave means octave 4, so "C" is middle C (60).
func ParseNoteName(name string) (uint8, error) {
	bad := fmt.Errorf("%w: bad note name %q", ErrProtocol, name)
	if name == "" {
		return 0, bad
	}

	pc, ok := pitchClasses[strings.ToUpper(name[:1])[0]]
	if !ok {
		return 0, bad
	}
	rest := name[1:]
	switch {
	case strings.HasPrefix(rest, "#"):
		pc++
		rest = rest[1:]
	case strings.HasPrefix(rest, "b"):
		pc--
		rest = rest[1:]
	}

	octave := 4
	if rest != "" {
		var err error
		if octave, err = strconv.Atoi(rest); err != nil {
			return 0, bad
		}
	}

	note := (octave+1)*12 + pc
	if note < 0 || note > MaxNote {
		return 0, bad
	}
	return uint8(note), nil
}

func parseEffect(args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, fmt.Errorf("%w: usage: fx list|clear|add <name>|rm <index>", ErrProtocol)
	}

	op := &EffectOp{Op: strings.ToLower(args[0])}
	switch {
	case (op.Op == "list" || op.Op == "clear") && len(args) == 1:
	case op.Op == "add" && len(args) == 2:
		op.Name = strings.ToLower(args[1])
	case op.Op == "rm" && len(args) == 2:
		i, err := strconv.Atoi(args[1])
		if err != nil || i < 0 {
			return Command{}, fmt.Errorf("%w: bad effect index %q", ErrProtocol, args[1])
		}
		op.Index = i
	default:
		return Command{}, fmt.Errorf("%w: bad fx command %q", ErrProtocol, strings.Join(args, " "))
	}

	return Command{Effect: op}, nil
}

func parseUint7(s, what string) (uint8, error) {
	v, err := strconv.ParseUint(s, 10, 8)
	if err != nil || v > MaxNote {
		return 0, fmt.Errorf("%w: bad %s %q", ErrProtocol, what, s)
	}
	return uint8(v), nil
}
