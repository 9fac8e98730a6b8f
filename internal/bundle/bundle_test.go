package bundle_test

import (
	"bytes"
	cryptorand "crypto/rand"
	"encoding/binary"
	"io"
	"testing"

	"github.com/bundlr-go/bundlr/internal/bundle"
	"github.com/bundlr-go/bundlr/internal/item"
	"github.com/bundlr-go/bundlr/internal/signer"
	"github.com/bundlr-go/bundlr/internal/tag"
)

func newSignedItem(t *testing.T, data []byte, tags []tag.Tag) *item.Item {
	t.Helper()
	secret := make([]byte, 64)
	if _, err := io.ReadFull(cryptorand.Reader, secret); err != nil {
		t.Fatal(err)
	}
	s, err := signer.NewEd25519(signer.TagEd25519, secret)
	if err != nil {
		t.Fatal(err)
	}
	it, err := item.New(item.NewData(data), tags)
	if err != nil {
		t.Fatal(err)
	}
	if err := it.Sign(s); err != nil {
		t.Fatal(err)
	}
	return it
}

// buildBundle concatenates a 32-byte count, 64-byte (size,id) headers, then
// the items themselves, exactly per the wire format in spec section 4.5.
func buildBundle(t *testing.T, items []*item.Item) []byte {
	t.Helper()

	serialized := make([][]byte, len(items))
	for i, it := range items {
		b, err := it.Serialize()
		if err != nil {
			t.Fatalf("Serialize item %d: %v", i, err)
		}
		serialized[i] = b
	}

	var buf bytes.Buffer
	var countLE [32]byte
	binary.LittleEndian.PutUint64(countLE[:8], uint64(len(items)))
	buf.Write(countLE[:])

	for i, it := range items {
		var header [64]byte
		binary.LittleEndian.PutUint64(header[:8], uint64(len(serialized[i])))
		copy(header[32:], it.Signature)
		buf.Write(header[:])
	}
	for _, b := range serialized {
		buf.Write(b)
	}

	return buf.Bytes()
}

func TestVerifyBundleRoundTrip(t *testing.T) {
	items := []*item.Item{
		newSignedItem(t, []byte("first item payload"), []tag.Tag{{Name: "a", Value: "1"}}),
		newSignedItem(t, []byte("second item payload, a bit longer"), nil),
	}

	fileBytes := buildBundle(t, items)

	// S5: the file begins with the little-endian u256 item count.
	if fileBytes[0] != 2 {
		t.Fatalf("bundle header count byte = %d, want 2", fileBytes[0])
	}

	entries, err := bundle.Verify(bytes.NewReader(fileBytes), int64(len(fileBytes)))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(entries) != len(items) {
		t.Fatalf("got %d entries, want %d", len(entries), len(items))
	}
	for i, e := range entries {
		if !bytes.Equal(e.Signature, items[i].Signature) {
			t.Fatalf("entry %d signature mismatch", i)
		}
		if !bytes.Equal(e.ID[:], items[i].Signature[:32]) {
			t.Fatalf("entry %d id mismatch", i)
		}
	}
}

func TestVerifyBundleStopsAtFirstBadItem(t *testing.T) {
	items := []*item.Item{
		newSignedItem(t, []byte("ok"), nil),
		newSignedItem(t, []byte("also ok"), nil),
	}
	fileBytes := buildBundle(t, items)

	// Corrupt a byte inside the second item's signature.
	offset := 32 + 64*2
	serializedFirst, err := items[0].Serialize()
	if err != nil {
		t.Fatal(err)
	}
	corruptAt := offset + len(serializedFirst) + 2 // inside second item's signature
	fileBytes[corruptAt] ^= 0xff

	if _, err := bundle.Verify(bytes.NewReader(fileBytes), int64(len(fileBytes))); err == nil {
		t.Fatal("Verify(corrupted bundle) succeeded, want error")
	}
}

func TestVerifyBundleTooSmall(t *testing.T) {
	if _, err := bundle.Verify(bytes.NewReader([]byte{1, 2, 3}), 3); err == nil {
		t.Fatal("Verify(tiny file) succeeded, want error")
	}
}

func TestVerifyEmptyBundle(t *testing.T) {
	fileBytes := buildBundle(t, nil)
	entries, err := bundle.Verify(bytes.NewReader(fileBytes), int64(len(fileBytes)))
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("got %d entries, want 0", len(entries))
	}
}
