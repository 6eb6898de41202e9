package block

import (
	"sync"

	"github.com/bits-and-blooms/bitset"
)

// Tracker records which blocks of a device have been written. The unit is
// one write block; offsets passed to Mark and IsMarked are block indexes,
// not byte offsets.
type Tracker struct {
	bits *bitset.BitSet
	mu   sync.RWMutex
}

func NewTracker(blocks uint) *Tracker {
	return &Tracker{
		bits: bitset.New(blocks),
	}
}

func (t *Tracker) Mark(idx int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.bits.Set(uint(idx))
}

func (t *Tracker) IsMarked(idx int64) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.bits.Test(uint(idx))
}

// Count returns the number of written blocks.
func (t *Tracker) Count() uint {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.bits.Count()
}
