package ber

import "github.com/pkg/errors"

// EventKind discriminates what the streaming Decoder has finished parsing.
type EventKind int

const (
	EventPrimitive EventKind = iota
	EventContainerStart
	EventContainerEnd
)

// Event is emitted by Decoder.Feed as soon as a primitive value or a
// constructed container finishes decoding, so the Glow layer can mutate
// the device model element-by-element instead of waiting for an entire
// root collection to arrive.
type Event struct {
	Kind     EventKind
	Tag      Tag
	Depth    int
	Contents []byte // valid only for EventPrimitive: the raw TLV contents
}

// Decoder incrementally parses a BER byte stream. Bytes are pushed with
// Feed; each call returns the events that newly became available. A
// malformed tag or length terminates the current logical message — Feed
// returns an error and the Decoder must be discarded; it does not try to
// resynchronize mid-message.
//
// Implementation note: rather than threading partial-parse continuation
// state through Feed, the decoder keeps the full buffer received so far
// and reparses it from the top on every call, replaying only the events
// a prior call hadn't yet seen. Buffers here are bounded by one Glow
// message (already reassembled by the s101 layer), so the cost of
// reparsing is proportional to one message, not the life of the session.
type Decoder struct {
	buf     []byte
	emitted int
}

func NewDecoder() *Decoder { return &Decoder{} }

// Feed appends chunk and returns the events newly completed as a result.
func (d *Decoder) Feed(chunk []byte) ([]Event, error) {
	d.buf = append(d.buf, chunk...)
	var events []Event
	pos := 0
	for pos < len(d.buf) {
		consumed, ok, err := parseTLV(d.buf[pos:], 0, &events)
		if err != nil {
			return nil, err
		}
		if !ok {
			break // incomplete trailing TLV; wait for more bytes
		}
		pos += consumed
	}
	if d.emitted > len(events) {
		d.emitted = 0
	}
	newEvents := events[d.emitted:]
	d.emitted = len(events)
	return newEvents, nil
}

// Reset clears all buffered state (used when a decode error forces the
// caller to discard the in-progress message).
func (d *Decoder) Reset() {
	d.buf = d.buf[:0]
	d.emitted = 0
}

// parseTLV parses one tag-length-value at buf[0:], appending events (for it
// and, if constructed, for its children) to *events. Returns bytes
// consumed and ok=false if buf doesn't yet hold the whole TLV.
func parseTLV(buf []byte, depth int, events *[]Event) (consumed int, ok bool, err error) {
	if len(buf) == 0 {
		return 0, false, nil
	}
	tag := DecodeTag(buf[0])
	length, indefinite, lenBytes, lerr := DecodeLength(buf[1:])
	if lerr != nil {
		return 0, false, nil // not enough bytes yet for the length field
	}
	headerLen := 1 + lenBytes
	if indefinite {
		return 0, false, errors.New("ber: indefinite length not supported by streaming decoder")
	}
	if len(buf) < headerLen+length {
		return 0, false, nil // whole TLV not yet available
	}
	contents := buf[headerLen : headerLen+length]

	if !tag.Constructed {
		*events = append(*events, Event{Kind: EventPrimitive, Tag: tag, Depth: depth, Contents: append([]byte(nil), contents...)})
		return headerLen + length, true, nil
	}

	*events = append(*events, Event{Kind: EventContainerStart, Tag: tag, Depth: depth})
	childPos := 0
	for childPos < len(contents) {
		childConsumed, childOK, childErr := parseTLV(contents[childPos:], depth+1, events)
		if childErr != nil {
			return 0, false, childErr
		}
		if !childOK {
			return 0, false, errors.New("ber: constructed value length does not match its children")
		}
		childPos += childConsumed
	}
	*events = append(*events, Event{Kind: EventContainerEnd, Tag: tag, Depth: depth})
	return headerLen + length, true, nil
}

// DecodeOne is a convenience wrapper for callers (like glow) that already
// hold one complete message and just want its flat event sequence.
func DecodeOne(data []byte) ([]Event, error) {
	d := NewDecoder()
	return d.Feed(data)
}
