package s101_test

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/magnusoverli/ember-plus-sub000/s101"
)

func TestFrameRoundTrip(t *testing.T) {
	cases := [][]byte{
		{},
		{0x01, 0x02, 0x03},
		{s101.BOF, s101.EOF, s101.CE, 0x00},
		bytes.Repeat([]byte{0xAA}, 512),
	}
	for _, payload := range cases {
		frame := encodeRaw(payload)
		gotPayload, ok := unescapeFrame(frame)
		if !ok {
			t.Fatalf("unescapeFrame failed for payload %x", payload)
		}
		if !bytes.Equal(gotPayload, payload) {
			t.Fatalf("deframe(frame(payload)) mismatch: got %x want %x", gotPayload, payload)
		}
	}
}

// unescapeFrame strips BOF/EOF, undoes byte-stuffing, verifies the CRC
// trailer, and returns the original payload — independent of s101.Deframer
// so this test exercises only the framing/escaping/CRC contract, not Glow
// command parsing.
func unescapeFrame(frame []byte) ([]byte, bool) {
	if len(frame) < 2 || frame[0] != s101.BOF || frame[len(frame)-1] != s101.EOF {
		return nil, false
	}
	var unescaped []byte
	escapeNext := false
	for _, b := range frame[1 : len(frame)-1] {
		switch {
		case escapeNext:
			unescaped = append(unescaped, b^0x20)
			escapeNext = false
		case b == s101.CE:
			escapeNext = true
		default:
			unescaped = append(unescaped, b)
		}
	}
	if len(unescaped) < 2 {
		return nil, false
	}
	n := len(unescaped)
	payload := unescaped[:n-2]
	gotCRC := uint16(unescaped[n-2]) | uint16(unescaped[n-1])<<8
	if gotCRC != s101.CRC16(payload) {
		return nil, false
	}
	return payload, true
}

// encodeRaw exercises the same BOF/escape/CRC/EOF framing EncodeEmber uses,
// but on an arbitrary payload (not a valid ember command), to test the
// framing layer's escaping independent of message semantics.
func encodeRaw(payload []byte) []byte {
	crc := s101.CRC16(payload)
	var out []byte
	out = append(out, s101.BOF)
	out = appendEscaped(out, payload)
	out = appendEscaped(out, []byte{byte(crc), byte(crc >> 8)})
	out = append(out, s101.EOF)
	return out
}

func appendEscaped(dst, src []byte) []byte {
	for _, b := range src {
		switch b {
		case s101.BOF, s101.EOF, s101.CE:
			dst = append(dst, s101.CE, b^0x20)
		default:
			dst = append(dst, b)
		}
	}
	return dst
}

func TestEncodeEmberDecodeRoundTrip(t *testing.T) {
	payloads := [][]byte{
		{},
		{0x01},
		{s101.BOF, s101.EOF, s101.CE, 0x00, 0x7F},
		bytes.Repeat([]byte{0x55, s101.CE}, 100),
	}
	for _, p := range payloads {
		frame := s101.EncodeEmber(p)
		d := s101.NewDeframer()
		events := d.Feed(frame)
		if len(events) != 1 {
			t.Fatalf("expected 1 event, got %d", len(events))
		}
		ev := events[0]
		if ev.Kind != s101.EventEmberMessage {
			t.Fatalf("expected EventEmberMessage, got %v (err=%v)", ev.Kind, ev.Err)
		}
		if !bytes.Equal(ev.Ember, p) {
			t.Fatalf("payload mismatch: got %x want %x", ev.Ember, p)
		}
	}
}

func TestKeepAlive(t *testing.T) {
	d := s101.NewDeframer()
	evs := d.Feed(s101.EncodeKeepAliveRequest())
	if len(evs) != 1 || evs[0].Kind != s101.EventKeepAliveRequest {
		t.Fatalf("expected keep-alive request event, got %+v", evs)
	}
	evs = d.Feed(s101.EncodeKeepAliveResponse())
	if len(evs) != 1 || evs[0].Kind != s101.EventKeepAliveResponse {
		t.Fatalf("expected keep-alive response event, got %+v", evs)
	}
}

func TestCRCMismatchResyncs(t *testing.T) {
	good := s101.EncodeEmber([]byte{0x01, 0x02})
	corrupt := append([]byte(nil), good...)
	// flip a payload byte without touching BOF/EOF so the CRC no longer matches.
	corrupt[2] ^= 0xFF

	d := s101.NewDeframer()
	var allEvents []s101.Event
	allEvents = append(allEvents, d.Feed(corrupt)...)
	allEvents = append(allEvents, d.Feed(good)...)

	if len(allEvents) != 2 {
		t.Fatalf("expected 2 events (error + good), got %d", len(allEvents))
	}
	if allEvents[0].Kind != s101.EventDecodeError {
		t.Fatalf("expected first event to be a decode error, got %v", allEvents[0].Kind)
	}
	if allEvents[1].Kind != s101.EventEmberMessage {
		t.Fatalf("expected second frame to decode cleanly after resync, got %v", allEvents[1].Kind)
	}
}

func TestGarbageBetweenFramesIgnored(t *testing.T) {
	garbage := []byte{0x00, 0x01, 0x02, 0x03, 0x04}
	good := s101.EncodeEmber([]byte{0xAB, 0xCD})

	d := s101.NewDeframer()
	var combined []byte
	combined = append(combined, garbage...)
	combined = append(combined, good...)
	combined = append(combined, garbage...)

	events := d.Feed(combined)
	if len(events) != 1 || events[0].Kind != s101.EventEmberMessage {
		t.Fatalf("garbage should be dropped, got %+v", events)
	}
}

func TestMultiPackageReassembly(t *testing.T) {
	full := make([]byte, 37)
	rand.New(rand.NewSource(1)).Read(full)

	first := full[:20]
	last := full[20:]

	firstPayload := []byte{0x00, s101.MsgTypeEmBER, s101.CommandEmBER, 0x01,
		s101.FlagFirstPackage, 0x01, 0x02, 0x28, 0x02}
	firstPayload = append(firstPayload, first...)
	lastPayload := []byte{0x00, s101.MsgTypeEmBER, s101.CommandEmBER, 0x01,
		s101.FlagLastPackage, 0x01, 0x02, 0x28, 0x02}
	lastPayload = append(lastPayload, last...)

	frame1 := frameFor(firstPayload)
	frame2 := frameFor(lastPayload)

	d := s101.NewDeframer()
	events := d.Feed(frame1)
	if len(events) != 0 {
		t.Fatalf("first package alone should not yet emit a message, got %+v", events)
	}
	events = d.Feed(frame2)
	if len(events) != 1 || events[0].Kind != s101.EventEmberMessage {
		t.Fatalf("expected reassembled ember message, got %+v", events)
	}
	if !bytes.Equal(events[0].Ember, full) {
		t.Fatalf("reassembled bytes mismatch")
	}
}

func frameFor(payload []byte) []byte {
	crc := s101.CRC16(payload)
	var out []byte
	out = append(out, s101.BOF)
	out = appendEscaped(out, payload)
	out = appendEscaped(out, []byte{byte(crc), byte(crc >> 8)})
	out = append(out, s101.EOF)
	return out
}
