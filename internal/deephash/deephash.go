// Package deephash computes the domain-separated, recursive SHA-384
// transcript signed over an item: a tree of heterogeneous chunks hashed such
// that two differently-shaped trees cannot collide even when their
// concatenated bytes match.
//
// hash_leaf(b)       = SHA384( SHA384("blob" || ascii(len(b))) || SHA384(b) )
// hash_node(children) = left-fold over children, seeded with
//
//	SHA384("list" || ascii(len(children)))
//
// A single streamed leaf is allowed inside a node and is processed in
// 256 KiB chunks without buffering the whole payload; Hash (the synchronous
// entry point) rejects streamed leaves outright.
package deephash

import (
	"context"
	"crypto/sha512"
	"fmt"
	"io"
	"strconv"

	"github.com/bundlr-go/bundlr/internal/domain"
)

// ChunkSize bounds the memory used to process a single streamed leaf.
const ChunkSize = 256 * 1024

// DigestSize is the length in bytes of a deep-hash digest.
const DigestSize = 48 // SHA-384

// Chunk is one node of the transcript tree.
type Chunk interface {
	isChunk()
}

// Leaf is an in-memory byte chunk.
type Leaf []byte

func (Leaf) isChunk() {}

// StreamLeaf is a chunk whose bytes come from a reader, read and hashed in a
// single bounded-memory pass. Size is the exact number of bytes the reader
// will yield; Hash (the synchronous variant) cannot consume a StreamLeaf.
type StreamLeaf struct {
	R    io.Reader
	Size int64
}

func (StreamLeaf) isChunk() {}

// Node is an ordered list of child chunks.
type Node []Chunk

func (Node) isChunk() {}

// Hash computes the deep-hash digest of chunk, synchronously. It returns
// domain.ErrUnsupported if chunk (or any descendant) contains a StreamLeaf —
// use HashContext for trees that may stream.
func Hash(chunk Chunk) ([DigestSize]byte, error) {
	return HashContext(context.Background(), chunk, false)
}

// HashContext computes the deep-hash digest of chunk, honoring ctx
// cancellation between streamed reads. allowStream controls whether a
// StreamLeaf anywhere in the tree is permitted; Hash calls this with false.
func HashContext(ctx context.Context, chunk Chunk, allowStream bool) ([DigestSize]byte, error) {
	var zero [DigestSize]byte

	switch c := chunk.(type) {
	case Leaf:
		d, err := hashLeafBytes(c)
		if err != nil {
			return zero, err
		}
		return d, nil

	case StreamLeaf:
		if !allowStream {
			return zero, &domain.UnsupportedError{Reason: "streamed leaf in synchronous deep-hash"}
		}
		d, err := hashLeafStream(ctx, c.R, c.Size)
		if err != nil {
			return zero, err
		}
		return d, nil

	case Node:
		seed := sha512.Sum384(append([]byte("list"), ascii(len(c))...))
		acc := seed[:]
		for _, child := range c {
			if err := ctxErr(ctx); err != nil {
				return zero, err
			}
			childDigest, err := HashContext(ctx, child, allowStream)
			if err != nil {
				return zero, err
			}
			h := sha512.New384()
			h.Write(acc)
			h.Write(childDigest[:])
			acc = h.Sum(nil)
		}
		var out [DigestSize]byte
		copy(out[:], acc)
		return out, nil

	default:
		return zero, fmt.Errorf("deephash: unknown chunk type %T", chunk)
	}
}

func hashLeafBytes(b []byte) ([DigestSize]byte, error) {
	var out [DigestSize]byte
	prefix := sha512.Sum384(append([]byte("blob"), ascii(len(b))...))
	body := sha512.Sum384(b)
	combined := sha512.Sum384(append(prefix[:], body[:]...))
	copy(out[:], combined[:])
	return out, nil
}

// hashLeafStream computes hash_leaf for a streamed payload of exactly size
// bytes, reading in ChunkSize windows without ever holding the whole payload.
func hashLeafStream(ctx context.Context, r io.Reader, size int64) ([DigestSize]byte, error) {
	var out [DigestSize]byte

	bodyHasher := sha512.New384()
	buf := make([]byte, ChunkSize)
	var remaining = size

	for remaining > 0 {
		if err := ctxErr(ctx); err != nil {
			return out, err
		}
		want := int64(len(buf))
		if remaining < want {
			want = remaining
		}
		n, err := io.ReadFull(r, buf[:want])
		if n > 0 {
			bodyHasher.Write(buf[:n])
		}
		remaining -= int64(n)
		if err != nil {
			if err == io.ErrUnexpectedEOF || err == io.EOF {
				return out, domain.ErrNoBytesLeft
			}
			return out, fmt.Errorf("deephash: reading stream leaf: %w", err)
		}
	}

	prefix := sha512.Sum384(append([]byte("blob"), asciiInt64(size)...))
	body := bodyHasher.Sum(nil)
	combined := sha512.Sum384(append(prefix[:], body...))
	copy(out[:], combined[:])
	return out, nil
}

func ascii(n int) []byte {
	return []byte(strconv.Itoa(n))
}

// asciiInt64 formats a 64-bit length the same way ascii formats an int.
func asciiInt64(n int64) []byte {
	return []byte(strconv.FormatInt(n, 10))
}

func ctxErr(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
