// Package tag encodes and decodes the ordered (name, value) string pairs
// carried by a signed item, using the restricted Avro array<record{name,
// value}> layout shared with other ecosystem implementations: a sequence of
// blocks, each a zig-zag varint item count followed by that many records
// (name string, value string back to back), terminated by a zero-count
// block. A negative count is followed by a zig-zag varint byte-length of the
// block, per the Avro spec, so a reader that doesn't know the schema can
// still skip it; this implementation never writes negative counts.
package tag

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"github.com/bundlr-go/bundlr/internal/domain"
)

// Tag is one (name, value) pair. Order is preserved and participates in the
// deep-hash transcript, so a Tag slice must never be reordered after decode.
type Tag struct {
	Name  string
	Value string
}

// Encode serializes tags using the Avro array<record> layout. An empty slice
// encodes to a nil/zero-length byte slice, never to an empty-array marker —
// the item layout records tag count and byte length separately, so this
// codec never needs to disambiguate "zero tags" from "absent".
func Encode(tags []Tag) []byte {
	if len(tags) == 0 {
		return nil
	}

	var buf bytes.Buffer
	putZigzagVarint(&buf, int64(len(tags)))
	for _, t := range tags {
		putString(&buf, t.Name)
		putString(&buf, t.Value)
	}
	putZigzagVarint(&buf, 0) // terminating block

	return buf.Bytes()
}

// Decode parses the Avro array<record> layout produced by Encode. Decoding a
// zero-length input returns a nil slice with no error, matching Encode's
// empty-list convention.
func Decode(b []byte) ([]Tag, error) {
	if len(b) == 0 {
		return nil, nil
	}

	r := bytes.NewReader(b)
	var tags []Tag

	for {
		count, err := getZigzagVarint(r)
		if err != nil {
			return nil, fmt.Errorf("%w: reading block count: %v", domain.ErrInvalidTagEncoding, err)
		}
		if count == 0 {
			break
		}

		n := count
		if n < 0 {
			// Negative count: skip the byte-length prefix (we never emit
			// these, but a conforming decoder must still consume them).
			if _, err := getZigzagVarint(r); err != nil {
				return nil, fmt.Errorf("%w: reading block byte length: %v", domain.ErrInvalidTagEncoding, err)
			}
			n = -n
		}

		for i := int64(0); i < n; i++ {
			name, err := getString(r)
			if err != nil {
				return nil, fmt.Errorf("%w: reading tag name: %v", domain.ErrInvalidTagEncoding, err)
			}
			value, err := getString(r)
			if err != nil {
				return nil, fmt.Errorf("%w: reading tag value: %v", domain.ErrInvalidTagEncoding, err)
			}
			tags = append(tags, Tag{Name: name, Value: value})
		}
	}

	if r.Len() != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes after final block", domain.ErrInvalidTagEncoding, r.Len())
	}

	return tags, nil
}

func putString(buf *bytes.Buffer, s string) {
	putZigzagVarint(buf, int64(len(s)))
	buf.WriteString(s)
}

func getString(r *bytes.Reader) (string, error) {
	n, err := getZigzagVarint(r)
	if err != nil {
		return "", err
	}
	if n < 0 {
		return "", fmt.Errorf("negative string length %d", n)
	}
	b := make([]byte, n)
	if _, err := readFull(r, b); err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", fmt.Errorf("non-UTF-8 string")
	}
	return string(b), nil
}

func readFull(r *bytes.Reader, b []byte) (int, error) {
	total := 0
	for total < len(b) {
		n, err := r.Read(b[total:])
		total += n
		if err != nil {
			return total, fmt.Errorf("truncated input: %w", err)
		}
	}
	return total, nil
}

// putZigzagVarint writes n as an Avro zig-zag encoded varint.
func putZigzagVarint(buf *bytes.Buffer, n int64) {
	zz := uint64((n << 1) ^ (n >> 63))
	for zz >= 0x80 {
		buf.WriteByte(byte(zz) | 0x80)
		zz >>= 7
	}
	buf.WriteByte(byte(zz))
}

// getZigzagVarint reads an Avro zig-zag encoded varint.
func getZigzagVarint(r *bytes.Reader) (int64, error) {
	var zz uint64
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, fmt.Errorf("truncated varint: %w", err)
		}
		zz |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			break
		}
		shift += 7
		if shift > 63 {
			return 0, fmt.Errorf("varint too long")
		}
	}
	return int64(zz>>1) ^ -int64(zz&1), nil
}
