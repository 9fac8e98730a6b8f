// Package item implements the signed, self-describing record at the heart
// of the bundler wire format: header fields, tags, and a payload, built from
// fields, serialized to bytes, parsed from bytes, signed, and verified.
package item

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"

	"github.com/bundlr-go/bundlr/internal/deephash"
	"github.com/bundlr-go/bundlr/internal/domain"
	"github.com/bundlr-go/bundlr/internal/signer"
	"github.com/bundlr-go/bundlr/internal/tag"
)

// AnchorSize and TargetSize are the two fixed-or-empty field lengths.
const (
	AnchorSize = 32
	TargetSize = 32
)

// probeSize bounds the first read ParseWindow does to pick up an item's
// fixed-size prefix before it knows how large the tag section is.
const probeSize = 4096

// Item is the signed record. Once signed it is immutable: re-signing
// overwrites SigType, Owner, and Signature together, never individually.
type Item struct {
	SigType   uint16
	Signature []byte
	Owner     []byte
	Target    []byte // empty or exactly TargetSize bytes
	Anchor    []byte // empty or exactly AnchorSize bytes
	Tags      []tag.Tag
	Data      Data
}

// New builds an unsigned item from data and tags. Anchor defaults to 32
// bytes of crypto/rand output; Target defaults to empty. Use the With*
// functions to override either before signing.
func New(data Data, tags []tag.Tag) (*Item, error) {
	anchor := make([]byte, AnchorSize)
	if _, err := rand.Read(anchor); err != nil {
		return nil, fmt.Errorf("item: generating anchor: %w", err)
	}
	return &Item{Tags: tags, Data: data, Anchor: anchor}, nil
}

// WithTarget sets a 32-byte recipient identifier. An empty slice clears it.
func WithTarget(it *Item, target []byte) error {
	if len(target) != 0 && len(target) != TargetSize {
		return fmt.Errorf("item: target must be 0 or %d bytes, got %d", TargetSize, len(target))
	}
	it.Target = target
	return nil
}

// WithAnchor overrides the default random anchor. An empty slice clears it.
func WithAnchor(it *Item, anchor []byte) error {
	if len(anchor) != 0 && len(anchor) != AnchorSize {
		return fmt.Errorf("item: anchor must be 0 or %d bytes, got %d", AnchorSize, len(anchor))
	}
	it.Anchor = anchor
	return nil
}

// Sign computes the item's deep-hash transcript and signs it with s,
// populating SigType, Owner, and Signature. Calling Sign again overwrites
// all three.
func (it *Item) Sign(s signer.Signer) error {
	return it.SignContext(context.Background(), s)
}

// SignContext is Sign with explicit cancellation, needed when Data is a
// streamed file window so the hash pass can be interrupted.
func (it *Item) SignContext(ctx context.Context, s signer.Signer) error {
	it.SigType = s.SigType()
	it.Owner = s.PubKey()

	digest, err := it.transcriptDigest(ctx)
	if err != nil {
		return err
	}

	sig, err := s.Sign(digest[:])
	if err != nil {
		return fmt.Errorf("item: sign: %w", err)
	}
	it.Signature = sig
	return nil
}

// Verify recomputes the item's transcript and checks Signature against
// Owner under SigType. It returns domain.ErrInvalidSignature on mismatch.
func (it *Item) Verify() error {
	return it.VerifyContext(context.Background())
}

// VerifyContext is Verify with explicit cancellation.
func (it *Item) VerifyContext(ctx context.Context) error {
	digest, err := it.transcriptDigest(ctx)
	if err != nil {
		return err
	}
	return signer.Verify(it.SigType, it.Owner, digest[:], it.Signature)
}

// transcriptDigest builds the eight-child deep-hash node described in the
// wire format and reduces it to its 48-byte digest.
func (it *Item) transcriptDigest(ctx context.Context) ([deephash.DigestSize]byte, error) {
	var zero [deephash.DigestSize]byte

	dataChunk, err := it.Data.chunk()
	if err != nil {
		return zero, err
	}

	node := deephash.Node{
		deephash.Leaf("dataitem"),
		deephash.Leaf("1"),
		deephash.Leaf(strconv.Itoa(int(it.SigType))),
		deephash.Leaf(it.Owner),
		deephash.Leaf(it.Target),
		deephash.Leaf(it.Anchor),
		deephash.Leaf(tag.Encode(it.Tags)),
		dataChunk,
	}

	return deephash.HashContext(ctx, node, true)
}

// Serialize emits the fixed binary layout described in the wire format. It
// fails with domain.ErrNoSignature if the item has not been signed, and with
// domain.ErrInvalidDataType if Data is a file window or absent — callers
// with streamed data use WriteTo or Reader, which stream the window rather
// than materializing it here.
func (it *Item) Serialize() ([]byte, error) {
	header, err := it.serializeHeader()
	if err != nil {
		return nil, err
	}

	data, err := Bytes(it.Data)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(header)+len(data))
	out = append(out, header...)
	out = append(out, data...)
	return out, nil
}

// WriteTo serializes the item directly to w, streaming a file-window
// payload instead of buffering it. (The client's Upload and UploadFile use
// Reader instead, to hand the item to an HTTP request body.)
func (it *Item) WriteTo(w io.Writer) (int64, error) {
	header, err := it.serializeHeader()
	if err != nil {
		return 0, err
	}
	written, err := w.Write(header)
	total := int64(written)
	if err != nil {
		return total, fmt.Errorf("item: writing header: %w", err)
	}

	switch d := it.Data.(type) {
	case dataOwned:
		n, err := w.Write(d.b)
		total += int64(n)
		if err != nil {
			return total, fmt.Errorf("item: writing data: %w", err)
		}
		return total, nil
	case dataWindow:
		n, err := io.Copy(w, io.NewSectionReader(d.ra, d.offset, d.size))
		total += n
		if err != nil {
			return total, fmt.Errorf("item: streaming data: %w", err)
		}
		return total, nil
	default:
		return total, domain.ErrInvalidDataType
	}
}

// Reader returns a streaming view of the fully serialized item (header then
// payload, never buffered together) plus its total length, for callers that
// want to hand the item straight to an HTTP request body instead of calling
// Serialize.
func (it *Item) Reader() (io.Reader, int64, error) {
	header, err := it.serializeHeader()
	if err != nil {
		return nil, 0, err
	}

	var dataReader io.Reader
	var dataLen int64
	switch d := it.Data.(type) {
	case dataOwned:
		dataReader = bytes.NewReader(d.b)
		dataLen = int64(len(d.b))
	case dataWindow:
		dataReader = io.NewSectionReader(d.ra, d.offset, d.size)
		dataLen = d.size
	default:
		return nil, 0, domain.ErrInvalidDataType
	}

	total := int64(len(header)) + dataLen
	return io.MultiReader(bytes.NewReader(header), dataReader), total, nil
}

// serializeHeader emits every field up to (not including) the data payload.
func (it *Item) serializeHeader() ([]byte, error) {
	if it.SigType == 0 || len(it.Signature) == 0 {
		return nil, domain.ErrNoSignature
	}
	v, err := signer.Lookup(it.SigType)
	if err != nil {
		return nil, err
	}
	if len(it.Signature) != v.SigLen {
		return nil, fmt.Errorf("%w: signature length %d, want %d", domain.ErrInvalidSignature, len(it.Signature), v.SigLen)
	}
	if len(it.Owner) != v.PubLen {
		return nil, fmt.Errorf("%w: owner length %d, want %d", domain.ErrInvalidSignature, len(it.Owner), v.PubLen)
	}
	if len(it.Target) != 0 && len(it.Target) != TargetSize {
		return nil, fmt.Errorf("item: target must be 0 or %d bytes", TargetSize)
	}
	if len(it.Anchor) != 0 && len(it.Anchor) != AnchorSize {
		return nil, fmt.Errorf("item: anchor must be 0 or %d bytes", AnchorSize)
	}

	tagBytes := tag.Encode(it.Tags)

	var buf bytes.Buffer
	writeUint16(&buf, it.SigType)
	buf.Write(it.Signature)
	buf.Write(it.Owner)

	writePresence(&buf, it.Target)
	writePresence(&buf, it.Anchor)

	writeUint64(&buf, uint64(len(it.Tags)))
	writeUint64(&buf, uint64(len(tagBytes)))
	buf.Write(tagBytes)

	return buf.Bytes(), nil
}

func writePresence(buf *bytes.Buffer, field []byte) {
	if len(field) == 0 {
		buf.WriteByte(0)
		return
	}
	buf.WriteByte(1)
	buf.Write(field)
}

func writeUint16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

// Parse decodes an item held entirely in memory. The resulting item's Data
// is owned (a slice into b's trailing bytes).
func Parse(b []byte) (*Item, error) {
	cur := cursor{b: b}

	sigType, err := cur.uint16()
	if err != nil {
		return nil, err
	}
	v, err := signer.Lookup(sigType)
	if err != nil {
		return nil, err
	}

	signature, err := cur.take(v.SigLen)
	if err != nil {
		return nil, err
	}
	owner, err := cur.take(v.PubLen)
	if err != nil {
		return nil, err
	}
	target, err := cur.presenceField(TargetSize)
	if err != nil {
		return nil, err
	}
	anchor, err := cur.presenceField(AnchorSize)
	if err != nil {
		return nil, err
	}
	numTags, err := cur.uint64()
	if err != nil {
		return nil, err
	}
	numTagBytes, err := cur.uint64()
	if err != nil {
		return nil, err
	}

	tags, err := decodeTagSection(cur.b[cur.off:], numTags, numTagBytes)
	if err != nil {
		return nil, err
	}
	if _, err := cur.take(int(numTagBytes)); err != nil {
		return nil, err
	}

	data := cur.b[cur.off:]

	return &Item{
		SigType:   sigType,
		Signature: signature,
		Owner:     owner,
		Target:    target,
		Anchor:    anchor,
		Tags:      tags,
		Data:      NewData(data),
	}, nil
}

// ParseWindow decodes an item occupying the window [offset, offset+size) of
// ra, probing only enough bytes to resolve the fixed-size prefix and tag
// section; the payload is left as a lazily-read window rather than copied.
func ParseWindow(ra io.ReaderAt, offset, size int64) (*Item, error) {
	sr := io.NewSectionReader(ra, offset, size)

	want := int64(probeSize)
	if want > size {
		want = size
	}
	probe := make([]byte, want)
	if _, err := io.ReadFull(sr, probe); err != nil && err != io.ErrUnexpectedEOF {
		return nil, fmt.Errorf("item: probing header: %w", err)
	}

	// ensure grows probe (re-reading from the start of the window) until it
	// holds at least n bytes, or reports domain.ErrNoBytesLeft if the window
	// itself is shorter than that.
	ensure := func(n int64) error {
		if int64(len(probe)) >= n {
			return nil
		}
		if n > size {
			return domain.ErrNoBytesLeft
		}
		grown := make([]byte, n)
		if _, err := sr.ReadAt(grown, 0); err != nil && err != io.EOF {
			return fmt.Errorf("item: growing header probe: %w", err)
		}
		probe = grown
		return nil
	}
	// cur always reads from the current probe; every read is preceded by an
	// ensure() covering the bytes it's about to consume.
	cur := cursor{}

	if err := ensure(2); err != nil {
		return nil, err
	}
	cur.b = probe
	sigType, err := cur.uint16()
	if err != nil {
		return nil, err
	}
	v, err := signer.Lookup(sigType)
	if err != nil {
		return nil, err
	}

	if err := ensure(int64(cur.off) + int64(v.SigLen) + int64(v.PubLen)); err != nil {
		return nil, err
	}
	cur.b = probe
	signature, err := cur.take(v.SigLen)
	if err != nil {
		return nil, err
	}
	owner, err := cur.take(v.PubLen)
	if err != nil {
		return nil, err
	}

	if err := ensure(int64(cur.off) + 1); err != nil {
		return nil, err
	}
	cur.b = probe
	targetPresent, err := cur.peekPresence()
	if err != nil {
		return nil, err
	}
	if targetPresent {
		if err := ensure(int64(cur.off) + 1 + TargetSize); err != nil {
			return nil, err
		}
		cur.b = probe
	}
	target, err := cur.presenceField(TargetSize)
	if err != nil {
		return nil, err
	}

	if err := ensure(int64(cur.off) + 1); err != nil {
		return nil, err
	}
	cur.b = probe
	anchorPresent, err := cur.peekPresence()
	if err != nil {
		return nil, err
	}
	if anchorPresent {
		if err := ensure(int64(cur.off) + 1 + AnchorSize); err != nil {
			return nil, err
		}
		cur.b = probe
	}
	anchor, err := cur.presenceField(AnchorSize)
	if err != nil {
		return nil, err
	}

	if err := ensure(int64(cur.off) + 16); err != nil {
		return nil, err
	}
	cur.b = probe
	numTags, err := cur.uint64()
	if err != nil {
		return nil, err
	}
	numTagBytes, err := cur.uint64()
	if err != nil {
		return nil, err
	}

	if err := ensure(int64(cur.off) + int64(numTagBytes)); err != nil {
		return nil, err
	}
	cur.b = probe
	tags, err := decodeTagSection(cur.b[cur.off:], numTags, numTagBytes)
	if err != nil {
		return nil, err
	}

	headerLen := int64(cur.off) + int64(numTagBytes)
	dataLen := size - headerLen
	if dataLen < 0 {
		return nil, domain.ErrNoBytesLeft
	}

	return &Item{
		SigType:   sigType,
		Signature: signature,
		Owner:     owner,
		Target:    target,
		Anchor:    anchor,
		Tags:      tags,
		Data:      NewDataWindow(ra, offset+headerLen, dataLen),
	}, nil
}

func decodeTagSection(b []byte, numTags, numTagBytes uint64) ([]tag.Tag, error) {
	if numTagBytes == 0 {
		if numTags != 0 {
			return nil, fmt.Errorf("%w: num_tags=%d with zero tag bytes", domain.ErrInvalidTagEncoding, numTags)
		}
		return nil, nil
	}
	if uint64(len(b)) < numTagBytes {
		return nil, domain.ErrNoBytesLeft
	}
	tags, err := tag.Decode(b[:numTagBytes])
	if err != nil {
		return nil, err
	}
	if uint64(len(tags)) != numTags {
		return nil, fmt.Errorf("%w: decoded %d tags, counter says %d", domain.ErrInvalidTagEncoding, len(tags), numTags)
	}
	return tags, nil
}

// cursor is a small bounds-checked reader over an in-memory prefix, shared
// by Parse and ParseWindow.
type cursor struct {
	b   []byte
	off int
}

func (c *cursor) take(n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	if c.off+n > len(c.b) {
		return nil, domain.ErrNoBytesLeft
	}
	out := c.b[c.off : c.off+n]
	c.off += n
	return out, nil
}

func (c *cursor) uint16() (uint16, error) {
	b, err := c.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (c *cursor) uint64() (uint64, error) {
	b, err := c.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (c *cursor) presenceField(size int) ([]byte, error) {
	b, err := c.take(1)
	if err != nil {
		return nil, err
	}
	switch b[0] {
	case 0:
		return nil, nil
	case 1:
		return c.take(size)
	default:
		return nil, &domain.PresenceByteError{Got: b[0]}
	}
}

// peekPresence reports whether the presence byte at the current offset
// marks a present field, without consuming it — used by ParseWindow to
// decide how many more bytes to ensure before actually reading the field.
func (c *cursor) peekPresence() (bool, error) {
	if c.off >= len(c.b) {
		return false, domain.ErrNoBytesLeft
	}
	switch c.b[c.off] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, &domain.PresenceByteError{Got: c.b[c.off]}
	}
}
