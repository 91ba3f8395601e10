// ABOUTME: BTree is the public in-memory ordered key/value index
// ABOUTME: point lookups, paginated range scans, and predicate-based finds

// Package btree implements an in-memory B+ tree over an arbitrary key type
// ordered by a caller-supplied Comparator. Values live only in leaves;
// internal nodes hold separator keys and child pointers. Every leaf carries
// a left/right sibling link so range scans and predicate finds never need
// to re-descend from the root.
package btree

import (
	"time"

	"github.com/nainya/bptree/internal/logger"
	"github.com/nainya/bptree/internal/metrics"
	"github.com/nainya/bptree/pkg/sll"
)

// Comparator orders two keys. It returns <0 if a<b, 0 if equal, >0 if a>b.
type Comparator[K any] func(a, b K) int

// Mode selects how SearchKey/SearchValue resolve a key that isn't present
// exactly.
type Mode = sll.Mode

const (
	EQ = sll.EQ
	LE = sll.LE
	GE = sll.GE
)

// BTree is an in-memory B+ tree. The zero value is not usable; construct
// one with NewBTree.
type BTree[K any, V any] struct {
	root          *BNode[K, V]
	leftmostLeaf  *BNode[K, V]
	rightmostLeaf *BNode[K, V]

	size uint64

	maxNodeSize  int
	halfCapacity int
	cmp          Comparator[K]

	log     *logger.Logger
	metrics *metrics.Metrics
}

// Option configures a BTree at construction time.
type Option[K any, V any] func(*BTree[K, V])

// WithLogger attaches a logger that records rebalance events at Debug and
// invariant violations at Error before the core panics.
func WithLogger[K any, V any](l *logger.Logger) Option[K, V] {
	return func(t *BTree[K, V]) { t.log = l }
}

// WithMetrics attaches a prometheus-backed recorder for structural
// operations. A nil *Metrics (the default) is a valid no-op.
func WithMetrics[K any, V any](m *metrics.Metrics) Option[K, V] {
	return func(t *BTree[K, V]) { t.metrics = m }
}

// NewBTree constructs an empty tree. maxNodeSize must be even and >= 4;
// half_capacity is derived as maxNodeSize/2 and bounds how underfull a
// non-root node may become before the rebalance engine acts.
func NewBTree[K any, V any](maxNodeSize int, cmp Comparator[K], opts ...Option[K, V]) (*BTree[K, V], error) {
	if maxNodeSize < 4 || maxNodeSize%2 != 0 {
		return nil, ErrInvalidMaxNodeSize
	}

	t := &BTree[K, V]{
		maxNodeSize:  maxNodeSize,
		halfCapacity: maxNodeSize / 2,
		cmp:          cmp,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

func (t *BTree[K, V]) cellCmp(a, b *Cell[K, V]) int {
	return t.cmp(a.Key, b.Key)
}

func (t *BTree[K, V]) panicInvariant(op string) {
	if t.log != nil {
		t.log.TreeLogger(op).LogInvariantViolation(ErrInvariantViolation)
	}
	panic(&InvariantError{Op: op, Err: ErrInvariantViolation})
}

func (t *BTree[K, V]) recordSplit() {
	if t.metrics != nil {
		t.metrics.RecordSplit()
	}
	if t.log != nil {
		t.log.TreeLogger("split").LogRebalance(int(t.size))
	}
}

func (t *BTree[K, V]) recordMerge() {
	if t.metrics != nil {
		t.metrics.RecordMerge()
	}
	if t.log != nil {
		t.log.TreeLogger("merge").LogRebalance(int(t.size))
	}
}

func (t *BTree[K, V]) recordDistribute() {
	if t.metrics != nil {
		t.metrics.RecordDistribute()
	}
	if t.log != nil {
		t.log.TreeLogger("distribute").LogRebalance(int(t.size))
	}
}

func (t *BTree[K, V]) recordRemoveRoot() {
	if t.metrics != nil {
		t.metrics.RecordRemoveRoot()
	}
	if t.log != nil {
		t.log.TreeLogger("remove-root").LogRebalance(int(t.size))
	}
}

func (t *BTree[K, V]) recordInsert(started time.Time) {
	if t.metrics != nil {
		t.metrics.RecordInsert()
		t.metrics.SetSize(t.size)
		t.metrics.ObserveOperation("insert", time.Since(started))
	}
}

func (t *BTree[K, V]) recordDelete(started time.Time) {
	if t.metrics != nil {
		t.metrics.RecordDelete()
		t.metrics.SetSize(t.size)
		t.metrics.ObserveOperation("delete", time.Since(started))
	}
}

func (t *BTree[K, V]) recordSearch(started time.Time) {
	if t.metrics != nil {
		t.metrics.RecordSearch()
		t.metrics.ObserveOperation("search", time.Since(started))
	}
}

func (t *BTree[K, V]) recordRange(started time.Time) {
	if t.metrics != nil {
		t.metrics.RecordRangeScan()
		t.metrics.ObserveOperation("range", time.Since(started))
	}
}

func (t *BTree[K, V]) recordFind(started time.Time) {
	if t.metrics != nil {
		t.metrics.RecordFind()
		t.metrics.ObserveOperation("find", time.Since(started))
	}
}

// Size returns the logical number of entries in the tree, counting
// collapsed duplicates.
func (t *BTree[K, V]) Size() uint64 { return t.size }

// Insert adds key/value to the tree. If key already compares equal to an
// existing leaf entry, that entry's value is replaced (latest wins) and
// its duplicate count is incremented; the tree's logical size still grows
// by one either way.
func (t *BTree[K, V]) Insert(key K, value V) K {
	started := time.Now()
	if t.root == nil {
		root := newNode[K, V](t, true, nil, nil)
		t.root = root
		t.leftmostLeaf = root
		t.rightmostLeaf = root

		sll.Insert(root.cells, t.cellCmp, newLeafCell(key, value))
		t.size = 1
		t.recordInsert(started)
		return key
	}

	leaf := searchForLeaf(t, key)
	sll.Insert(leaf.cells, t.cellCmp, newLeafCell(key, value))
	t.size++
	balance(t, leaf)
	t.recordInsert(started)
	return key
}

// Delete removes the entry matching key, including all collapsed
// duplicates recorded against it. It reports the removed key, the number
// of duplicates that had collapsed into it, and whether anything was
// found.
func (t *BTree[K, V]) Delete(key K) (K, uint32, bool) {
	var zero K
	started := time.Now()
	if t.root == nil {
		return zero, 0, false
	}

	leaf := searchForLeaf(t, key)
	deleted := sll.Delete(leaf.cells, t.cellCmp, &Cell[K, V]{Key: key})
	if deleted == nil {
		return zero, 0, false
	}

	t.size -= uint64(1 + deleted.DuplicateCount)
	balance(t, leaf)
	t.recordDelete(started)
	return deleted.Value.Key, deleted.DuplicateCount, true
}

// SearchKey resolves key under mode and returns the matched key, or false
// if none matched.
func (t *BTree[K, V]) SearchKey(key K, mode Mode) (K, bool) {
	var zero K
	started := time.Now()
	leaf := searchForLeaf(t, key)
	if leaf == nil {
		return zero, false
	}
	found := sll.Search(leaf.cells, t.cellCmp, &Cell[K, V]{Key: key}, mode)
	if found == nil {
		return zero, false
	}
	t.recordSearch(started)
	return found.Value.Key, true
}

// SearchValue resolves key under mode and returns the matched value, or
// false if none matched.
func (t *BTree[K, V]) SearchValue(key K, mode Mode) (V, bool) {
	var zero V
	started := time.Now()
	leaf := searchForLeaf(t, key)
	if leaf == nil {
		return zero, false
	}
	found := sll.Search(leaf.cells, t.cellCmp, &Cell[K, V]{Key: key}, mode)
	if found == nil {
		return zero, false
	}
	t.recordSearch(started)
	return found.Value.Value, true
}

// rangeCells walks the leaf chain between startKey (or the leftmost leaf)
// and endKey (or the rightmost leaf), returning cells in [offset, offset+limit).
// A negative limit means unbounded.
func (t *BTree[K, V]) rangeCells(offset, limit int, startKey, endKey *K) []*Cell[K, V] {
	var result []*Cell[K, V]
	if t.root == nil {
		return result
	}

	var startNode *BNode[K, V]
	if startKey == nil {
		startNode = t.leftmostLeaf
	} else {
		startNode = searchForLeaf(t, *startKey)
	}
	var endNode *BNode[K, V]
	if endKey == nil {
		endNode = t.rightmostLeaf
	} else {
		endNode = searchForLeaf(t, *endKey)
	}

	var startArg, endArg **Cell[K, V]
	if startKey != nil {
		c := &Cell[K, V]{Key: *startKey}
		startArg = &c
	}
	if endKey != nil {
		c := &Cell[K, V]{Key: *endKey}
		endArg = &c
	}

	skip := 0
	cur := startNode
	for cur != nil {
		chunk := sll.SearchTillStream(cur.cells, t.cellCmp, startArg, endArg, false)
		for _, c := range chunk {
			if skip < offset {
				skip++
				continue
			}
			if limit >= 0 && len(result) >= limit {
				return result
			}
			result = append(result, c)
		}
		if cur == endNode {
			break
		}
		cur = cur.rightSibling
	}
	return result
}

// RangeKeys returns keys in [startKey, endKey] (bounds default to the
// tree's extremes when nil), skipping offset matches and returning at most
// limit (a negative limit means unbounded). Duplicates collapse to a
// single emission.
func (t *BTree[K, V]) RangeKeys(offset, limit int, startKey, endKey *K) []K {
	started := time.Now()
	cells := t.rangeCells(offset, limit, startKey, endKey)
	keys := make([]K, len(cells))
	for i, c := range cells {
		keys[i] = c.Key
	}
	t.recordRange(started)
	return keys
}

// RangeValues is RangeKeys, returning values instead of keys.
func (t *BTree[K, V]) RangeValues(offset, limit int, startKey, endKey *K) []V {
	started := time.Now()
	cells := t.rangeCells(offset, limit, startKey, endKey)
	vals := make([]V, len(cells))
	for i, c := range cells {
		vals[i] = c.Value
	}
	t.recordRange(started)
	return vals
}

// findCells scans every leaf from bookmark's position (or the leftmost leaf)
// onward, collecting cells predicate accepts; cells keyed below bookmark are
// not considered. When bookmark is non-nil the first accepted match at or
// after it is discarded once, matching the resume-after
// semantics of a cursor; every later match is returned normally, including
// further duplicates of the same key. A negative limit means unbounded.
func (t *BTree[K, V]) findCells(predicate func(K, V) bool, bookmark *K, limit int, yieldDups bool) []*Cell[K, V] {
	var result []*Cell[K, V]
	if t.root == nil {
		return result
	}

	var leaf *BNode[K, V]
	if bookmark != nil {
		leaf = searchForLeaf(t, *bookmark)
	} else {
		leaf = t.leftmostLeaf
	}

	skipFirstMatch := bookmark != nil
	for leaf != nil {
		for cur := leaf.cells.Min; cur != nil; cur = cur.Right {
			if bookmark != nil && t.cmp(cur.Value.Key, *bookmark) < 0 {
				continue
			}
			if !predicate(cur.Value.Key, cur.Value.Value) {
				continue
			}
			if skipFirstMatch {
				skipFirstMatch = false
				continue
			}
			reps := 1
			if yieldDups {
				reps = int(cur.DuplicateCount) + 1
			}
			for i := 0; i < reps; i++ {
				if limit >= 0 && len(result) >= limit {
					return result
				}
				result = append(result, cur.Value)
			}
		}
		leaf = leaf.rightSibling
	}
	return result
}

// FindKeys returns keys of every leaf entry predicate accepts, scanning
// forward from bookmark's position (or the start of the tree). When
// bookmark is set, the first match is treated as the cursor's prior
// position and skipped.
func (t *BTree[K, V]) FindKeys(predicate func(K, V) bool, bookmark *K, yieldDups bool) []K {
	started := time.Now()
	cells := t.findCells(predicate, bookmark, -1, yieldDups)
	keys := make([]K, len(cells))
	for i, c := range cells {
		keys[i] = c.Key
	}
	t.recordFind(started)
	return keys
}

// FindValues is FindKeys, returning values instead of keys, additionally
// bounded by limit (a negative limit means unbounded).
func (t *BTree[K, V]) FindValues(predicate func(K, V) bool, bookmark *K, yieldDups bool, limit int) []V {
	started := time.Now()
	cells := t.findCells(predicate, bookmark, limit, yieldDups)
	vals := make([]V, len(cells))
	for i, c := range cells {
		vals[i] = c.Value
	}
	t.recordFind(started)
	return vals
}

// MiddleKey returns the minimum key of the leaf holding the logical
// midpoint of the tree (by cumulative leaf cell count), or false if the
// tree is empty or has fewer than two entries.
func (t *BTree[K, V]) MiddleKey() (K, bool) {
	var zero K
	leaf := t.leftmostLeaf
	half := t.size / 2
	if leaf == nil {
		return zero, false
	}

	var counted uint64
	for counted < half {
		next := counted + uint64(leaf.cells.Count)
		if next < half {
			leaf = leaf.rightSibling
			if leaf == nil {
				return zero, false
			}
		} else {
			return leaf.cells.Min.Value.Key, true
		}
		counted = next
	}
	return zero, false
}
