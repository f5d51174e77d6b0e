package s101

// EncodeEmber wraps one complete BER-encoded Glow message into a single
// S101 frame with FirstPackage|LastPackage set. A logical Glow message
// spanning multiple frames is a decoder-side concept; the encoder here
// always emits it whole.
func EncodeEmber(berBytes []byte) []byte {
	payload := make([]byte, 0, 5+len(berBytes))
	payload = append(payload, defaultSlot, MsgTypeEmBER, CommandEmBER, version)
	payload = append(payload, FlagFirstPackage|FlagLastPackage, dtdGlow, appBytesN)
	payload = append(payload, appBytes[0], appBytes[1])
	payload = append(payload, berBytes...)
	return frame(payload)
}

// EncodeKeepAliveRequest emits a constant-shape keep-alive ping frame.
func EncodeKeepAliveRequest() []byte {
	payload := []byte{defaultSlot, MsgTypeEmBER, CommandKeepAliveRequest, version}
	return frame(payload)
}

// EncodeKeepAliveResponse emits a constant-shape keep-alive response frame.
func EncodeKeepAliveResponse() []byte {
	payload := []byte{defaultSlot, MsgTypeEmBER, CommandKeepAliveResponse, version}
	return frame(payload)
}

// frame wraps an unescaped payload as BOF, escaped(payload), escaped(crc
// lo, hi), EOF.
func frame(payload []byte) []byte {
	crc := CRC16(payload)
	out := make([]byte, 0, len(payload)+6)
	out = append(out, BOF)
	out = appendEscaped(out, payload)
	out = appendEscaped(out, []byte{byte(crc), byte(crc >> 8)})
	out = append(out, EOF)
	return out
}

func appendEscaped(dst []byte, src []byte) []byte {
	for _, b := range src {
		switch b {
		case BOF, EOF, CE:
			dst = append(dst, CE, b^escapeXOR)
		default:
			dst = append(dst, b)
		}
	}
	return dst
}
