package ber

import "github.com/pkg/errors"

// EncodeLength renders n in BER short or long form.
func EncodeLength(n int) []byte {
	if n < 0x80 {
		return []byte{byte(n)}
	}
	var be []byte
	for v := n; v > 0; v >>= 8 {
		be = append([]byte{byte(v)}, be...)
	}
	out := make([]byte, 0, len(be)+1)
	out = append(out, 0x80|byte(len(be)))
	out = append(out, be...)
	return out
}

// DecodeLength reads a length field starting at buf[0], returning the
// decoded length, whether it was indefinite (0x80 alone — accepted on
// decode even though the encoder never emits it), and the number of
// bytes consumed.
func DecodeLength(buf []byte) (length int, indefinite bool, consumed int, err error) {
	if len(buf) == 0 {
		return 0, false, 0, errors.New("ber: empty length field")
	}
	first := buf[0]
	if first&0x80 == 0 {
		return int(first), false, 1, nil
	}
	n := int(first &^ 0x80)
	if n == 0 {
		return 0, true, 1, nil
	}
	if len(buf) < 1+n {
		return 0, false, 0, errors.New("ber: truncated long-form length")
	}
	length = 0
	for i := 0; i < n; i++ {
		length = (length << 8) | int(buf[1+i])
	}
	return length, false, 1 + n, nil
}
