// Package replay implements the experience replay buffer: a bounded,
// insertion-ordered sequence of transitions with FIFO eviction and destructive
// minibatch sampling.
package replay

import (
	"math/rand/v2"
	"slices"
	"sort"

	"github.com/gridmind/deepq/internal/state"
)

// Transition is one recorded step of experience.
//
// Once inserted into a Buffer the transition is owned by it: ValidActions is
// cloned on insertion so callers may reuse their slice.
type Transition struct {
	State     state.Grid
	Action    int
	Reward    float32
	NextState state.Grid
	Done      bool

	// ValidActions holds the legal actions at NextState. The bootstrap max of
	// the training target is restricted to these.
	ValidActions []int

	// Turn side-channel value fed to the network along with State.
	Turn float32
}

// Buffer is a bounded replay buffer.
//
// The bound is soft: eviction triggers only when the size is strictly above
// the configured maximum, and evicts a single entry per insert, so the buffer
// holds up to max+1 entries under sustained insertion. Callers depend on the
// max+1 steady state; don't tighten it.
//
// Buffer is not safe for concurrent use; see the agent package for the
// drain-based handoff used with parallel self-play.
type Buffer struct {
	max     int
	entries []Transition
}

// New returns an empty Buffer with the given soft maximum size.
func New(maxSize int) *Buffer {
	return &Buffer{max: maxSize}
}

// Len returns the number of transitions currently held.
func (b *Buffer) Len() int { return len(b.entries) }

// Insert appends t at the end of the buffer. If the buffer already holds more
// than its maximum, the oldest entry is evicted first -- one eviction per
// insert, regardless of how far over capacity the buffer is.
func (b *Buffer) Insert(t Transition) {
	if len(b.entries) > b.max {
		b.entries = slices.Delete(b.entries, 0, 1)
	}
	t.ValidActions = slices.Clone(t.ValidActions)
	b.entries = append(b.entries, t)
}

// SampleAndConsume uniformly samples batchSize distinct transitions, removes
// them from the buffer and returns them in their sampled order.
//
// If the buffer holds fewer than batchSize entries it is a no-op and returns
// nil: not enough data is not an error.
func (b *Buffer) SampleAndConsume(batchSize int) []Transition {
	if len(b.entries) < batchSize {
		return nil
	}
	indices := rand.Perm(len(b.entries))[:batchSize]
	batch := make([]Transition, batchSize)
	for ii, idx := range indices {
		batch[ii] = b.entries[idx]
	}

	// Remove sampled entries in descending index order, so the indices not yet
	// removed stay valid.
	removals := slices.Clone(indices)
	sort.Sort(sort.Reverse(sort.IntSlice(removals)))
	for _, idx := range removals {
		b.entries = slices.Delete(b.entries, idx, idx+1)
	}
	return batch
}

// Drain returns the entire current contents and leaves the buffer empty.
func (b *Buffer) Drain() []Transition {
	drained := b.entries
	b.entries = nil
	return drained
}
