package ber

import (
	"math"

	"github.com/pkg/errors"
)

// EncodeTLV wraps contents with a tag and length, the basic BER building
// block every Encode* function below produces.
func EncodeTLV(tag Tag, contents []byte) []byte {
	out := make([]byte, 0, 2+len(contents))
	out = append(out, tag.Encode())
	out = append(out, EncodeLength(len(contents))...)
	out = append(out, contents...)
	return out
}

func EncodeBoolean(v bool) []byte {
	b := byte(0x00)
	if v {
		b = 0xFF
	}
	return EncodeTLV(Tag{Class: ClassUniversal, Number: TagBoolean}, []byte{b})
}

func DecodeBoolean(contents []byte) (bool, error) {
	if len(contents) != 1 {
		return false, errors.New("ber: boolean must be 1 byte")
	}
	return contents[0] != 0x00, nil
}

// EncodeInteger renders v as a minimal-length two's-complement big-endian
// integer (arbitrary length on decode; encode always produces the minimal
// form).
func EncodeInteger(v int64) []byte {
	return EncodeTLV(Tag{Class: ClassUniversal, Number: TagInteger}, encodeIntBytes(v))
}

func encodeIntBytes(v int64) []byte {
	if v == 0 {
		return []byte{0x00}
	}
	var out []byte
	neg := v < 0
	for {
		b := byte(v & 0xFF)
		out = append([]byte{b}, out...)
		v >>= 8
		if neg {
			if v == -1 && b&0x80 != 0 {
				break
			}
		} else if v == 0 && b&0x80 == 0 {
			break
		}
	}
	return out
}

func DecodeInteger(contents []byte) (int64, error) {
	if len(contents) == 0 {
		return 0, errors.New("ber: empty integer")
	}
	v := int64(0)
	if contents[0]&0x80 != 0 {
		v = -1
	}
	for _, b := range contents {
		v = (v << 8) | int64(b)
	}
	return v, nil
}

func EncodeOctetString(v []byte) []byte {
	return EncodeTLV(Tag{Class: ClassUniversal, Number: TagOctetString}, v)
}

func DecodeOctetString(contents []byte) []byte {
	return append([]byte(nil), contents...)
}

func EncodeUTF8String(v string) []byte {
	return EncodeTLV(Tag{Class: ClassUniversal, Number: TagUTF8String}, []byte(v))
}

func DecodeUTF8String(contents []byte) string {
	return string(contents)
}

func EncodeNull() []byte {
	return EncodeTLV(Tag{Class: ClassUniversal, Number: TagNull}, nil)
}

// EncodeObjectIdentifier renders a sequence of non-negative ints as a BER
// OID, using base-128 (high-bit-continuation) encoding per component.
// Ember+ repurposes OID as the wire form of a Path.
func EncodeObjectIdentifier(components []int) []byte {
	var body []byte
	for _, c := range components {
		body = append(body, encodeBase128(c)...)
	}
	return EncodeTLV(Tag{Class: ClassUniversal, Number: TagObjectID}, body)
}

func encodeBase128(v int) []byte {
	if v == 0 {
		return []byte{0x00}
	}
	var out []byte
	for v > 0 {
		out = append([]byte{byte(v & 0x7F)}, out...)
		v >>= 7
	}
	for i := 0; i < len(out)-1; i++ {
		out[i] |= 0x80
	}
	return out
}

func DecodeObjectIdentifier(contents []byte) ([]int, error) {
	var out []int
	cur := 0
	started := false
	for _, b := range contents {
		cur = (cur << 7) | int(b&0x7F)
		started = true
		if b&0x80 == 0 {
			out = append(out, cur)
			cur = 0
			started = false
		}
	}
	if started {
		return nil, errors.New("ber: truncated OID component")
	}
	return out, nil
}

// EncodeReal renders v per the restricted ISO-6093/ASN.1-real binary
// encoding Ember+ uses: IEEE-754 double bit pattern, big-endian, prefixed
// by the binary-encoding info octet 0x80 (base 2, no scale factor).
func EncodeReal(v float64) []byte {
	if v == 0 {
		return EncodeTLV(Tag{Class: ClassUniversal, Number: TagReal}, nil)
	}
	bits := math.Float64bits(v)
	contents := make([]byte, 9)
	contents[0] = 0x80
	for i := 0; i < 8; i++ {
		contents[1+i] = byte(bits >> (56 - 8*i))
	}
	return EncodeTLV(Tag{Class: ClassUniversal, Number: TagReal}, contents)
}

func DecodeReal(contents []byte) (float64, error) {
	if len(contents) == 0 {
		return 0, nil
	}
	if contents[0] != 0x80 || len(contents) != 9 {
		return 0, errors.Errorf("ber: unsupported REAL encoding (info octet %#x, len %d)", contents[0], len(contents))
	}
	var bits uint64
	for i := 0; i < 8; i++ {
		bits = (bits << 8) | uint64(contents[1+i])
	}
	return math.Float64frombits(bits), nil
}
