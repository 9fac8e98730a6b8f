package item

import (
	"io"

	"github.com/bundlr-go/bundlr/internal/deephash"
	"github.com/bundlr-go/bundlr/internal/domain"
)

// Data is the closed sum type over an item's payload: an owned in-memory
// buffer, a window onto a larger file the item was parsed from (never read
// eagerly), or absent (a parsing stub with no payload loaded). Modeling this
// as a sealed interface rather than a public one keeps every switch over it
// exhaustive at the package boundary.
type Data interface {
	isData()
	chunk() (deephash.Chunk, error)
	len() (int64, bool)
}

type dataOwned struct{ b []byte }

func (dataOwned) isData() {}
func (d dataOwned) chunk() (deephash.Chunk, error) {
	return deephash.Leaf(d.b), nil
}
func (d dataOwned) len() (int64, bool) { return int64(len(d.b)), true }

type dataWindow struct {
	ra     io.ReaderAt
	offset int64
	size   int64
}

func (dataWindow) isData() {}
func (d dataWindow) chunk() (deephash.Chunk, error) {
	return deephash.StreamLeaf{R: io.NewSectionReader(d.ra, d.offset, d.size), Size: d.size}, nil
}
func (d dataWindow) len() (int64, bool) { return d.size, true }

type dataAbsent struct{}

func (dataAbsent) isData() {}
func (dataAbsent) chunk() (deephash.Chunk, error) {
	return nil, domain.ErrInvalidDataType
}
func (dataAbsent) len() (int64, bool) { return 0, false }

// NewData wraps an in-memory byte buffer as Data.
func NewData(b []byte) Data {
	return dataOwned{b: b}
}

// NewDataWindow wraps a bounded window [offset, offset+size) of ra as Data,
// read lazily — it is never buffered by the item layer itself.
func NewDataWindow(ra io.ReaderAt, offset, size int64) Data {
	return dataWindow{ra: ra, offset: offset, size: size}
}

// NoData is an absent payload: a parsing stub, or an item that was only
// parsed down to its fixed-size prefix.
var NoData Data = dataAbsent{}

// Bytes returns the owned byte buffer, or domain.ErrInvalidDataType if data
// is a window or absent — serialization and similar "need concrete bytes"
// operations call this rather than switching on the sealed type themselves.
func Bytes(d Data) ([]byte, error) {
	owned, ok := d.(dataOwned)
	if !ok {
		return nil, domain.ErrInvalidDataType
	}
	return owned.b, nil
}

// Len reports the payload length when known (always true for owned and
// window data, false for absent).
func Len(d Data) (int64, bool) {
	return d.len()
}
