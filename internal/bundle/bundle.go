// Package bundle parses and verifies a bundle file: a 32-byte little-endian
// item count, that many 64-byte (size, id) headers, then the items
// themselves concatenated back to back.
package bundle

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/bundlr-go/bundlr/internal/item"
)

// HeaderSize is the on-disk size of one (size, id) header entry.
const HeaderSize = 64

// CountSize is the on-disk size of the leading item-count field.
const CountSize = 32

// Entry is one verified item's compact record: the id the bundle header
// carried for it (conventionally its signature or a hash of it — this
// package treats it as opaque) and the signature actually found on the
// parsed item.
type Entry struct {
	ID        [32]byte
	Signature []byte
}

type header struct {
	size uint64
	id   [32]byte
}

// Verify reads the bundle at ra (sized size bytes), parses every item as a
// file-window item, and verifies each one. It aborts at the first parse,
// I/O, or signature failure — no attempt is made to skip bad items. Peak
// memory is independent of any item's payload size and only loosely
// dependent on the item count (one Entry retained per item).
func Verify(ra io.ReaderAt, size int64) ([]Entry, error) {
	headers, bodyOffset, err := readHeaders(ra, size)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(headers))
	offset := bodyOffset

	for i, h := range headers {
		if h.size > uint64(size-offset) {
			return nil, fmt.Errorf("bundle: item %d: size %d exceeds the %d bytes left at offset %d", i, h.size, size-offset, offset)
		}
		it, err := item.ParseWindow(ra, offset, int64(h.size))
		if err != nil {
			return nil, fmt.Errorf("bundle: item %d: parsing window at offset %d: %w", i, offset, err)
		}
		if err := it.Verify(); err != nil {
			return nil, fmt.Errorf("bundle: item %d: %w", i, err)
		}

		entries = append(entries, Entry{ID: h.id, Signature: append([]byte(nil), it.Signature...)})
		offset += int64(h.size)
	}

	return entries, nil
}

func readHeaders(ra io.ReaderAt, size int64) ([]header, int64, error) {
	if size < CountSize {
		return nil, 0, fmt.Errorf("bundle: file too small for item count: %d bytes", size)
	}

	var countBuf [CountSize]byte
	if _, err := ra.ReadAt(countBuf[:], 0); err != nil {
		return nil, 0, fmt.Errorf("bundle: reading item count: %w", err)
	}
	n := sizeU256LE(countBuf[:])

	if n > uint64(size-CountSize)/HeaderSize {
		return nil, 0, fmt.Errorf("bundle: declares %d items, not enough room for headers", n)
	}
	headersLen := int64(n) * HeaderSize

	headerBytes := make([]byte, headersLen)
	if headersLen > 0 {
		if _, err := ra.ReadAt(headerBytes, CountSize); err != nil {
			return nil, 0, fmt.Errorf("bundle: reading headers: %w", err)
		}
	}

	headers := make([]header, n)
	for i := uint64(0); i < n; i++ {
		row := headerBytes[i*HeaderSize : (i+1)*HeaderSize]
		headers[i] = header{
			size: sizeU256LE(row[:32]),
		}
		copy(headers[i].id[:], row[32:64])
	}

	return headers, CountSize + headersLen, nil
}

// sizeU256LE decodes a little-endian u256 field (item count or item size)
// into a uint64, assuming the high bytes are zero — true for any bundle
// that fits in memory-addressable offsets.
func sizeU256LE(b []byte) uint64 {
	var v uint64
	for i := len(b) - 1; i >= 8; i-- {
		if b[i] != 0 {
			// A value this large can't be a real offset/count on this
			// platform; clamp so callers get a bounds error instead of a
			// silently wrapped number.
			return ^uint64(0)
		}
	}
	v = binary.LittleEndian.Uint64(b[:8])
	return v
}
