// SPDX-License-Identifier: EPL-2.0

package router

import (
	"bufio"
	"errors"
	"io"

	"gitlab.com/gomidi/midi/v2"
)

// MIDIReader frames a raw MIDI byte stream, such as a /dev/midi* device or
// a recorded dump, into messages. It follows running status and skips
// realtime bytes and SysEx.
type MIDIReader struct {
	br      *bufio.Reader
	status  byte
	channel int
}

// NewMIDIReader reads from r. Channel restricts note events to one MIDI
// channel (0-15); pass -1 to accept all.
func NewMIDIReader(r io.Reader, channel int) *MIDIReader {
	return &MIDIReader{br: bufio.NewReader(r), channel: channel}
}

// dataLen returns the number of data bytes following a status byte.
func dataLen(status byte) int {
	switch status & 0xF0 {
	case 0xC0, 0xD0:
		return 1
	case 0xF0:
		switch status {
		case 0xF1, 0xF3:
			return 1
		case 0xF2:
			return 2
		}
		return 0
	}
	return 2
}

// ReadMessage returns the next complete channel or system common message.
func (m *MIDIReader) ReadMessage() (midi.Message, error) {
	for {
		b, err := m.br.ReadByte()
		if err != nil {
			return nil, err
		}

		switch {
		case b >= 0xF8:
			// realtime, may appear anywhere
			continue

		case b == 0xF0:
			if err := m.skipSysEx(); err != nil {
				return nil, err
			}
			m.status = 0
			continue

		case b&0x80 != 0:
			if b >= 0xF0 {
				// system common cancels running status
				m.status = 0
				return m.readData(b)
			}
			m.status = b
			return m.readData(b)

		case m.status != 0:
			if err := m.br.UnreadByte(); err != nil {
				return nil, err
			}
			return m.readData(m.status)
		}
		// stray data byte without status
	}
}

func (m *MIDIReader) readData(status byte) (midi.Message, error) {
	n := dataLen(status)
	msg := make(midi.Message, 1, 1+n)
	msg[0] = status

	for len(msg) < 1+n {
		b, err := m.br.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		if b >= 0xF8 {
			continue
		}
		if b&0x80 != 0 {
			// truncated message; restart on the new status byte
			if err := m.br.UnreadByte(); err != nil {
				return nil, err
			}
			return m.ReadMessage()
		}
		msg = append(msg, b)
	}

	return msg, nil
}

func (m *MIDIReader) skipSysEx() error {
	for {
		b, err := m.br.ReadByte()
		if err != nil {
			return err
		}
		if b == 0xF7 {
			return nil
		}
		if b&0x80 != 0 && b < 0xF8 {
			// unterminated SysEx
			return m.br.UnreadByte()
		}
	}
}

// ReadEvent returns the next note event, skipping every other message.
// It returns io.EOF at the end of the stream.
func (m *MIDIReader) ReadEvent() (Event, error) {
	for {
		msg, err := m.ReadMessage()
		if err != nil {
			return nil, err
		}
		if m.channel >= 0 && msg[0] < 0xF0 && int(msg[0]&0x0F) != m.channel {
			continue
		}

		ev, err := DecodeMIDI(msg)
		if errors.Is(err, ErrProtocol) {
			continue
		}
		return ev, err
	}
}
