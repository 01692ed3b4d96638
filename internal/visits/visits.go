// Package visits counts how many times board states have been seen during
// training, keyed by a content-derived fingerprint. The counts feed the
// UCT-style exploration bonus of the behavior policy.
package visits

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"

	"github.com/gomlx/exceptions"
	"github.com/gridmind/deepq/internal/state"
)

const (
	// GridDim is the allocated dimension of the bucket grid.
	//
	// Notice bucketOf only ever addresses rows/columns in [0, BucketMod):
	// rows and columns from BucketMod to GridDim-1 are dead capacity.
	GridDim = 15

	// BucketMod is the modulus used to derive bucket coordinates, and so the
	// addressable dimension of the bucket grid.
	BucketMod = 10
)

// Fingerprint returns the deterministic content-derived identifier of a grid:
// the hex-encoded MD5 digest of its canonical serialization.
func Fingerprint(g *state.Grid) string {
	digest := md5.Sum([]byte(g.Canonical()))
	return hex.EncodeToString(digest[:])
}

// bucketOf maps a fingerprint to its fixed bucket coordinates: the fingerprint
// is split in half (an odd-length fingerprint gives the extra leading
// character to the first half), and each half is read as a base-16 integer
// modulo BucketMod.
func bucketOf(fingerprint string) (row, col int) {
	half := (len(fingerprint) + 1) / 2
	first, err := strconv.ParseUint(fingerprint[:half], 16, 64)
	if err != nil {
		exceptions.Panicf("visits: malformed fingerprint %q: %v", fingerprint, err)
	}
	second, err := strconv.ParseUint(fingerprint[half:], 16, 64)
	if err != nil {
		exceptions.Panicf("visits: malformed fingerprint %q: %v", fingerprint, err)
	}
	return int(first % BucketMod), int(second % BucketMod)
}

// Counter is the visit-count table: a fixed grid of buckets, each bucket
// mapping fingerprints to a positive count. A fingerprint that was never
// recorded has an implicit count of 0.
//
// Counter is not safe for concurrent mutation: callers running parallel
// self-play must serialize access externally.
type Counter struct {
	buckets [GridDim][GridDim]map[string]int
}

// NewCounter returns an empty Counter.
func NewCounter() *Counter {
	c := &Counter{}
	for row := range GridDim {
		for col := range GridDim {
			c.buckets[row][col] = make(map[string]int)
		}
	}
	return c
}

// Count returns the number of times Record has been called for a grid with
// the same fingerprint as g. It never mutates the table.
func (c *Counter) Count(g *state.Grid) int {
	fingerprint := Fingerprint(g)
	row, col := bucketOf(fingerprint)
	return c.buckets[row][col][fingerprint]
}

// Record increments the visit count of g's fingerprint by exactly one,
// inserting it with count 1 if absent.
func (c *Counter) Record(g *state.Grid) {
	fingerprint := Fingerprint(g)
	row, col := bucketOf(fingerprint)
	c.buckets[row][col][fingerprint]++
}
