package snapshot

import (
	"bytes"
	"io"
	"os"

	"github.com/pierrec/lz4/v3"
	"github.com/pkg/errors"
)

// SaveCompressed writes snap as lz4-compressed JSON, for large captures
// where matrices/connection sets dominate the file size.
func SaveCompressed(path string, snap *Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return errors.Wrap(err, "snapshot: marshal")
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "snapshot: create")
	}
	defer f.Close()
	zw := lz4.NewWriter(f)
	if _, err := zw.Write(data); err != nil {
		return errors.Wrap(err, "snapshot: lz4 write")
	}
	return zw.Close()
}

// LoadCompressed reads an lz4-compressed Snapshot written by SaveCompressed.
func LoadCompressed(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "snapshot: open")
	}
	defer f.Close()
	zr := lz4.NewReader(f)
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, zr); err != nil {
		return nil, errors.Wrap(err, "snapshot: lz4 read")
	}
	var snap Snapshot
	if err := json.Unmarshal(buf.Bytes(), &snap); err != nil {
		return nil, errors.Wrap(err, "snapshot: unmarshal")
	}
	return &snap, nil
}
