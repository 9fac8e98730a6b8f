package tag

import (
	"bytes"
	"errors"
	"testing"

	"github.com/bundlr-go/bundlr/internal/domain"
)

func TestEncodeS2Vector(t *testing.T) {
	tags := []Tag{{Name: "name", Value: "value"}}
	want := []byte{0x02, 0x08, 0x6e, 0x61, 0x6d, 0x65, 0x0a, 0x76, 0x61, 0x6c, 0x75, 0x65, 0x00}

	got := Encode(tags)
	if !bytes.Equal(got, want) {
		t.Fatalf("Encode(%v) = % x, want % x", tags, got, want)
	}

	decoded, err := Decode(got)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(decoded) != 1 || decoded[0] != tags[0] {
		t.Fatalf("Decode(Encode(tags)) = %v, want %v", decoded, tags)
	}
}

func TestEncodeEmptyIsZeroBytes(t *testing.T) {
	if got := Encode(nil); got != nil {
		t.Fatalf("Encode(nil) = % x, want nil", got)
	}
	if got := Encode([]Tag{}); got != nil {
		t.Fatalf("Encode([]Tag{}) = % x, want nil", got)
	}
}

func TestDecodeEmptyIsNoTags(t *testing.T) {
	tags, err := Decode(nil)
	if err != nil || tags != nil {
		t.Fatalf("Decode(nil) = %v, %v, want nil, nil", tags, err)
	}
}

func TestRoundTripPreservesOrder(t *testing.T) {
	tags := []Tag{
		{Name: "Content-Type", Value: "text/plain"},
		{Name: "App-Name", Value: "bundlr-go"},
		{Name: "", Value: ""},
		{Name: "unicode-✓", Value: "値"},
	}

	encoded := Encode(tags)
	decoded, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(decoded) != len(tags) {
		t.Fatalf("decoded %d tags, want %d", len(decoded), len(tags))
	}
	for i := range tags {
		if decoded[i] != tags[i] {
			t.Fatalf("tag %d = %+v, want %+v", i, decoded[i], tags[i])
		}
	}
}

func TestReorderingChangesEncoding(t *testing.T) {
	a := Encode([]Tag{{Name: "x", Value: "1"}, {Name: "y", Value: "2"}})
	b := Encode([]Tag{{Name: "y", Value: "2"}, {Name: "x", Value: "1"}})
	if bytes.Equal(a, b) {
		t.Fatal("reordered tags encoded identically")
	}
}

func TestDecodeTruncatedVarint(t *testing.T) {
	_, err := Decode([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80})
	if !errors.Is(err, domain.ErrInvalidTagEncoding) {
		t.Fatalf("Decode(overlong varint) err = %v, want %v", err, domain.ErrInvalidTagEncoding)
	}
}

func TestDecodeTruncatedString(t *testing.T) {
	// count=1, name length=8 but only 2 bytes follow.
	_, err := Decode([]byte{0x02, 0x10, 'a', 'b'})
	if !errors.Is(err, domain.ErrInvalidTagEncoding) {
		t.Fatalf("Decode(truncated string) err = %v, want %v", err, domain.ErrInvalidTagEncoding)
	}
}

func TestDecodeTrailingBytes(t *testing.T) {
	encoded := Encode([]Tag{{Name: "a", Value: "b"}})
	_, err := Decode(append(encoded, 0xff))
	if !errors.Is(err, domain.ErrInvalidTagEncoding) {
		t.Fatalf("Decode(trailing bytes) err = %v, want %v", err, domain.ErrInvalidTagEncoding)
	}
}

func TestDecodeNonUTF8(t *testing.T) {
	// count=1, name length=1, invalid UTF-8 byte, value length=0, terminator.
	_, err := Decode([]byte{0x02, 0x02, 0xff, 0x00, 0x00})
	if err == nil {
		t.Fatal("Decode(non-UTF-8 name) succeeded, want error")
	}
}
