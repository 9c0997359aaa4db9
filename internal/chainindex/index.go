// Package chainindex keeps accepted block records in an append-only arena.
//
// Records are addressed by position (Ref) and link to their parent by
// position, so ancestor walks never chase pointers and readers can run in
// parallel with a single appender.
package chainindex

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/goodnatureofminers/multialgo-retarget/internal/algo"
)

// MedianTimeSpan is the number of timestamps that make up the median time past.
const MedianTimeSpan = 11

// Ref is a position in the arena.
type Ref int32

// NoRef marks an absent record, e.g. the parent of genesis.
const NoRef Ref = -1

var (
	// ErrUnknownParent is returned when appending under a parent that is not in the index.
	ErrUnknownParent = errors.New("unknown parent")
	// ErrHeightMismatch is returned when a record height does not follow its parent.
	ErrHeightMismatch = errors.New("height does not follow parent")
)

// Record is a read-only view of an accepted block.
type Record struct {
	Hash       chainhash.Hash
	Height     int64
	Time       int64
	MedianTime int64
	Bits       uint32
	Algo       algo.ID
}

// View is the ancestor walk the retarget engine runs over.
type View interface {
	Record(ref Ref) Record
	Parent(ref Ref) Ref
}

type node struct {
	Record
	parent Ref
}

// Index is an arena of block records. Appends are serialized; reads may run concurrently.
type Index struct {
	mu    sync.RWMutex
	nodes []node
	tip   Ref
	base  int64
}

// New returns an empty Index rooted at genesis.
func New() *Index {
	return NewAt(0)
}

// NewAt returns an empty Index whose root records sit at height base. It
// serves replays that start mid-chain; median times of the first
// MedianTimeSpan-1 records only see the ancestors present in the index.
func NewAt(base int64) *Index {
	return &Index{tip: NoRef, base: base}
}

// Base returns the height of the index roots.
func (i *Index) Base() int64 {
	return i.base
}

// Append stores rec as a child of parent and returns its position. Use NoRef
// as parent for the first record, whose height must be the index base. The record's
// MedianTime is computed here and any caller value is ignored.
func (i *Index) Append(parent Ref, rec Record) (Ref, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	wantHeight := i.base
	if parent != NoRef {
		if !i.has(parent) {
			return NoRef, fmt.Errorf("%w: ref %d", ErrUnknownParent, parent)
		}
		wantHeight = i.nodes[parent].Height + 1
	}
	if rec.Height != wantHeight {
		return NoRef, fmt.Errorf("%w: got %d, want %d", ErrHeightMismatch, rec.Height, wantHeight)
	}

	rec.MedianTime = i.medianTime(parent, rec.Time)
	ref := Ref(len(i.nodes))
	i.nodes = append(i.nodes, node{Record: rec, parent: parent})
	if i.tip == NoRef || rec.Height > i.nodes[i.tip].Height {
		i.tip = ref
	}
	return ref, nil
}

// Record returns the record stored at ref. ref must come from this index.
func (i *Index) Record(ref Ref) Record {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.nodes[ref].Record
}

// Parent returns the parent position of ref, or NoRef for a root.
func (i *Index) Parent(ref Ref) Ref {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.nodes[ref].parent
}

// Tip returns the highest record appended so far, or NoRef for an empty index.
func (i *Index) Tip() Ref {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.tip
}

// Len returns the number of stored records.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.nodes)
}

func (i *Index) has(ref Ref) bool {
	return ref >= 0 && int(ref) < len(i.nodes)
}

// medianTime returns the median of ts and up to MedianTimeSpan-1 ancestor timestamps.
func (i *Index) medianTime(parent Ref, ts int64) int64 {
	times := make([]int64, 0, MedianTimeSpan)
	times = append(times, ts)
	for ref := parent; ref != NoRef && len(times) < MedianTimeSpan; ref = i.nodes[ref].parent {
		times = append(times, i.nodes[ref].Time)
	}
	sort.Slice(times, func(a, b int) bool { return times[a] < times[b] })
	return times[len(times)/2]
}
