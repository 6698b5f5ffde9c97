// Package filter implements the fixed-size bloom filter persisted verbatim
// inside every SSTable file.
package filter

import (
	"encoding/binary"
	"fmt"

	"github.com/spaolacci/murmur3"

	"lsmkv/shared"
)

// Size is the filter's width in bits. It is a compile-time constant,
// required to be a power of two.
const Size = shared.BloomSizeBits

func init() {
	if Size&(Size-1) != 0 {
		panic("filter: Size must be a power of two")
	}
}

// Bloom is a fixed-size bit array addressed by four independent hash
// lanes derived from a single 128-bit hash of the key. It has no false
// negatives: Contains always returns true for a key that was Add-ed.
type Bloom struct {
	bits []byte // Size/8 bytes, bit i lives at bits[i/8], mask 1<<(i%8)
}

// New returns an empty filter of the fixed Size.
func New() *Bloom {
	return &Bloom{bits: make([]byte, Size/8)}
}

// lanes hashes key into four independent 32-bit values.
func lanes(key shared.Key) [4]uint32 {
	var keyBytes [8]byte
	binary.LittleEndian.PutUint64(keyBytes[:], key)

	h1, h2 := murmur3.Sum128(keyBytes[:])
	return [4]uint32{
		uint32(h1),
		uint32(h1 >> 32),
		uint32(h2),
		uint32(h2 >> 32),
	}
}

func (b *Bloom) setBit(pos uint32) {
	i := pos % Size
	b.bits[i/8] |= 1 << (i % 8)
}

func (b *Bloom) testBit(pos uint32) bool {
	i := pos % Size
	return b.bits[i/8]&(1<<(i%8)) != 0
}

// Add records key's presence.
func (b *Bloom) Add(key shared.Key) {
	for _, h := range lanes(key) {
		b.setBit(h)
	}
}

// Contains reports "possibly present" (true) or "definitely absent"
// (false). A true result may be a false positive; a false result never is.
func (b *Bloom) Contains(key shared.Key) bool {
	for _, h := range lanes(key) {
		if !b.testBit(h) {
			return false
		}
	}
	return true
}

// Bytes returns the raw bit array, ready to be written verbatim into an
// SSTable file's fixed header region.
func (b *Bloom) Bytes() []byte {
	return b.bits
}

// Decode reconstructs a filter from its raw on-disk bytes.
func Decode(data []byte) (*Bloom, error) {
	if len(data) != Size/8 {
		return nil, fmt.Errorf("filter: decode: want %d bytes, got %d", Size/8, len(data))
	}
	bits := make([]byte, Size/8)
	copy(bits, data)
	return &Bloom{bits: bits}, nil
}
