package s101

import "github.com/pkg/errors"

// Deframer turns a raw byte stream into a sequence of Events. It is fed
// incrementally via Feed and keeps all necessary state (partial frame,
// escape-pending byte, and multi-package Glow reassembly) between calls.
// One Deframer belongs to exactly one connection/session: encoders and
// decoders are never shared across sessions.
type Deframer struct {
	inFrame    bool
	inEscape   bool
	cur        []byte // unescaped bytes accumulated since the current frame's BOF
	reassembly []byte // Glow bytes accumulated across First/Last EmBER packages
	reassembling bool
}

func NewDeframer() *Deframer { return &Deframer{} }

// Feed pushes bytes into the deframer and returns every Event produced by
// complete frames found within them. Malformed bytes before a BOF are
// silently dropped.
func (d *Deframer) Feed(data []byte) []Event {
	var events []Event
	for _, b := range data {
		switch {
		case b == BOF:
			d.inFrame = true
			d.inEscape = false
			d.cur = d.cur[:0]

		case !d.inFrame:
			// garbage between frames; drop silently.

		case b == EOF:
			if ev, ok := d.finishFrame(); ok {
				events = append(events, ev)
			}
			d.inFrame = false
			d.cur = d.cur[:0]

		case b == CE:
			d.inEscape = true

		case d.inEscape:
			d.cur = append(d.cur, b^escapeXOR)
			d.inEscape = false

		default:
			d.cur = append(d.cur, b)
		}
	}
	return events
}

// finishFrame validates the CRC trailer and decodes the payload, appending
// any resulting event. A malformed/truncated/CRC-mismatched frame yields a
// single EventDecodeError and is otherwise discarded, with no state loss
// beyond the frame.
func (d *Deframer) finishFrame() (Event, bool) {
	if len(d.cur) < 2 {
		return Event{Kind: EventDecodeError, Err: errors.New("s101: truncated frame")}, true
	}
	n := len(d.cur)
	payload := d.cur[:n-2]
	gotCRC := uint16(d.cur[n-2]) | uint16(d.cur[n-1])<<8
	wantCRC := CRC16(payload)
	if gotCRC != wantCRC {
		return Event{Kind: EventDecodeError, Err: errors.Errorf("s101: CRC mismatch (got %04x want %04x)", gotCRC, wantCRC)}, true
	}
	return d.decodePayload(payload)
}

func (d *Deframer) decodePayload(payload []byte) (Event, bool) {
	if len(payload) < 4 {
		return Event{Kind: EventDecodeError, Err: errors.New("s101: payload too short")}, true
	}
	msgType := payload[1]
	command := payload[2]
	if msgType != MsgTypeEmBER {
		return Event{Kind: EventDecodeError, Err: errors.Errorf("s101: unknown messageType %#x", msgType)}, true
	}
	switch command {
	case CommandKeepAliveRequest:
		return Event{Kind: EventKeepAliveRequest}, true
	case CommandKeepAliveResponse:
		return Event{Kind: EventKeepAliveResponse}, true
	case CommandEmBER:
		return d.decodeEmberCommand(payload[4:])
	default:
		return Event{Kind: EventDecodeError, Err: errors.Errorf("s101: unknown command %#x", command)}, true
	}
}

// decodeEmberCommand parses flags|dtd|appBytesCount|appBytes|glow and
// accumulates across First/Last packages.
func (d *Deframer) decodeEmberCommand(body []byte) (Event, bool) {
	if len(body) < 3 {
		return Event{Kind: EventDecodeError, Err: errors.New("s101: ember command too short")}, true
	}
	flags := body[0]
	appCount := int(body[2])
	hdrLen := 3 + appCount
	if len(body) < hdrLen {
		return Event{Kind: EventDecodeError, Err: errors.New("s101: ember appBytes truncated")}, true
	}
	glowBytes := body[hdrLen:]

	if flags&FlagEmptyPackage != 0 {
		return Event{}, false
	}

	if flags&FlagFirstPackage != 0 {
		d.reassembly = append(d.reassembly[:0], glowBytes...)
		d.reassembling = true
	} else if d.reassembling {
		d.reassembly = append(d.reassembly, glowBytes...)
	} else {
		// a continuation package with no prior First: treat what we have
		// as the whole message rather than silently dropping data.
		d.reassembly = append(d.reassembly[:0], glowBytes...)
	}

	if flags&FlagLastPackage != 0 {
		out := append([]byte(nil), d.reassembly...)
		d.reassembly = d.reassembly[:0]
		d.reassembling = false
		return Event{Kind: EventEmberMessage, Ember: out}, true
	}
	return Event{}, false
}
