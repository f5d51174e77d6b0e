package ber

// EncodeConstructed wraps the concatenation of already-encoded child TLVs
// under tag, computing the aggregate length.
func EncodeConstructed(tag Tag, children ...[]byte) []byte {
	var contents []byte
	for _, c := range children {
		contents = append(contents, c...)
	}
	return EncodeTLV(tag, contents)
}
