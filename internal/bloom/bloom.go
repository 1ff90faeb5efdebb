// Package bloom implements the fixed-size bloom filter used to deduplicate
// comment upvotes without storing per-voter identity.
package bloom

import (
	"crypto/sha256"
	"encoding/binary"
)

const (
	// filterBits is the bit-array size m. With k=4 hash functions the
	// false-positive rate stays under ~1% for a few hundred voters.
	filterBits = 1024
	// hashCount is the number of derived bit positions k.
	hashCount = 4

	// FilterSize is the serialized blob length in bytes.
	FilterSize = filterBits / 8
)

// Filter is a fixed-size bloom filter over voter fingerprints. The zero
// value is ready to use.
type Filter struct {
	bits [FilterSize]byte
}

// New returns an empty filter.
func New() *Filter {
	return &Filter{}
}

// FromBytes restores a filter from a serialized blob. A nil, empty or
// wrong-length blob yields an empty filter: a corrupt column must never make
// votes fail, only allow a rare duplicate.
func FromBytes(blob []byte) *Filter {
	f := &Filter{}
	if len(blob) == FilterSize {
		copy(f.bits[:], blob)
	}
	return f
}

// Bytes serializes the filter to a FilterSize-length blob.
func (f *Filter) Bytes() []byte {
	out := make([]byte, FilterSize)
	copy(out, f.bits[:])
	return out
}

// Add sets the k bit positions derived from member. Idempotent.
func (f *Filter) Add(member []byte) {
	for _, pos := range positions(member) {
		f.bits[pos/8] |= 1 << (pos % 8)
	}
}

// MightContain reports whether member was possibly added before. A true
// result may be a false positive; a false result is always correct.
func (f *Filter) MightContain(member []byte) bool {
	for _, pos := range positions(member) {
		if f.bits[pos/8]&(1<<(pos%8)) == 0 {
			return false
		}
	}
	return true
}

// positions derives the k bit positions from a SHA-256 digest of member.
func positions(member []byte) [hashCount]uint32 {
	digest := sha256.Sum256(member)
	var out [hashCount]uint32
	for i := 0; i < hashCount; i++ {
		out[i] = binary.BigEndian.Uint32(digest[i*4:]) % filterBits
	}
	return out
}

// Fingerprint derives a one-way voter identifier from an anonymized IP and
// the user agent. The raw fingerprint is only ever fed straight into the
// filter; it is never stored or transmitted.
func Fingerprint(anonymizedIP, userAgent string) []byte {
	digest := sha256.Sum256([]byte(anonymizedIP + "|" + userAgent))
	return digest[:]
}
