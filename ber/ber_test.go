package ber_test

import (
	"bytes"
	"testing"

	"github.com/magnusoverli/ember-plus-sub000/ber"
)

func TestIntegerRoundTrip(t *testing.T) {
	cases := []int64{0, 1, -1, 127, 128, -128, -129, 255, 256, 1 << 40, -(1 << 40)}
	for _, v := range cases {
		enc := ber.EncodeInteger(v)
		events, err := ber.DecodeOne(enc)
		if err != nil {
			t.Fatalf("decode %d: %v", v, err)
		}
		if len(events) != 1 || events[0].Kind != ber.EventPrimitive {
			t.Fatalf("expected one primitive event for %d", v)
		}
		got, err := ber.DecodeInteger(events[0].Contents)
		if err != nil {
			t.Fatalf("DecodeInteger: %v", err)
		}
		if got != v {
			t.Fatalf("integer round-trip: got %d want %d", got, v)
		}
	}
}

func TestBooleanRoundTrip(t *testing.T) {
	for _, v := range []bool{true, false} {
		events, err := ber.DecodeOne(ber.EncodeBoolean(v))
		if err != nil {
			t.Fatal(err)
		}
		got, err := ber.DecodeBoolean(events[0].Contents)
		if err != nil || got != v {
			t.Fatalf("boolean round-trip: got %v,%v want %v", got, err, v)
		}
	}
}

func TestStringRoundTrip(t *testing.T) {
	for _, v := range []string{"", "hello", "gain (dB)"} {
		events, err := ber.DecodeOne(ber.EncodeUTF8String(v))
		if err != nil {
			t.Fatal(err)
		}
		if got := ber.DecodeUTF8String(events[0].Contents); got != v {
			t.Fatalf("string round-trip: got %q want %q", got, v)
		}
	}
}

func TestRealRoundTrip(t *testing.T) {
	for _, v := range []float64{0, 1, -1, 3.14159, -6.0, 1e10, -1e-10} {
		events, err := ber.DecodeOne(ber.EncodeReal(v))
		if err != nil {
			t.Fatal(err)
		}
		got, err := ber.DecodeReal(events[0].Contents)
		if err != nil {
			t.Fatal(err)
		}
		if got != v {
			t.Fatalf("real round-trip: got %v want %v", got, v)
		}
	}
}

func TestObjectIdentifierRoundTrip(t *testing.T) {
	cases := [][]int{
		{},
		{1},
		{1, 2, 3},
		{0, 666999666, 1},
		{200, 128, 127, 300000},
	}
	for _, v := range cases {
		events, err := ber.DecodeOne(ber.EncodeObjectIdentifier(v))
		if err != nil {
			t.Fatal(err)
		}
		got, err := ber.DecodeObjectIdentifier(events[0].Contents)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != len(v) {
			t.Fatalf("OID length mismatch: got %v want %v", got, v)
		}
		for i := range v {
			if got[i] != v[i] {
				t.Fatalf("OID mismatch: got %v want %v", got, v)
			}
		}
	}
}

func TestConstructedNesting(t *testing.T) {
	inner := ber.EncodeInteger(42)
	outer := ber.EncodeConstructed(ber.ContextTag(0), inner, ber.EncodeUTF8String("x"))

	events, err := ber.DecodeOne(outer)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 4 {
		t.Fatalf("expected 4 events (start, int, string, end), got %d", len(events))
	}
	if events[0].Kind != ber.EventContainerStart {
		t.Fatalf("expected container start first")
	}
	if events[len(events)-1].Kind != ber.EventContainerEnd {
		t.Fatalf("expected container end last")
	}
}

func TestIncrementalFeed(t *testing.T) {
	full := ber.EncodeConstructed(ber.ContextTag(1), ber.EncodeInteger(7), ber.EncodeInteger(8))
	d := ber.NewDecoder()

	mid := len(full) / 2
	ev1, err := d.Feed(full[:mid])
	if err != nil {
		t.Fatal(err)
	}
	ev2, err := d.Feed(full[mid:])
	if err != nil {
		t.Fatal(err)
	}
	total := append(ev1, ev2...)
	if len(total) != 4 {
		t.Fatalf("expected 4 total events across incremental feeds, got %d", len(total))
	}
}

func TestMalformedLengthErrors(t *testing.T) {
	// A well-formed outer TLV whose nested primitive claims a short-form
	// length of 5 with only 1 content byte present.
	bad := ber.EncodeConstructed(ber.ContextTag(0), []byte{0x02, 0x05, 0x01}) // primitive claims len 5, has 1
	_, err := ber.DecodeOne(bad)
	if err == nil {
		t.Fatal("expected error decoding malformed nested TLV")
	}
}

func TestGarbageBytesAreEqual(t *testing.T) {
	if !bytes.Equal([]byte{1, 2}, []byte{1, 2}) {
		t.Fatal("sanity")
	}
}
