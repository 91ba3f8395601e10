package btree

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"testing"
)

func intCmp(a, b int) int { return a - b }

func newIntTree(t *testing.T, maxNodeSize int) *BTree[int, string] {
	t.Helper()
	tree, err := NewBTree[int, string](maxNodeSize, intCmp)
	if err != nil {
		t.Fatalf("NewBTree: %v", err)
	}
	return tree
}

func TestNewBTreeRejectsBadNodeSize(t *testing.T) {
	cases := []int{0, 1, 2, 3, 5, -4}
	for _, size := range cases {
		if _, err := NewBTree[int, string](size, intCmp); !errors.Is(err, ErrInvalidMaxNodeSize) {
			t.Errorf("maxNodeSize=%d: expected ErrInvalidMaxNodeSize, got %v", size, err)
		}
	}
}

func TestInsertAndSearchKey(t *testing.T) {
	tree := newIntTree(t, 4)
	for i := 0; i < 50; i++ {
		tree.Insert(i, fmt.Sprintf("v%d", i))
	}
	if tree.Size() != 50 {
		t.Fatalf("size = %d, want 50", tree.Size())
	}
	for i := 0; i < 50; i++ {
		got, ok := tree.SearchKey(i, EQ)
		if !ok || got != i {
			t.Fatalf("SearchKey(%d) = (%d, %v), want (%d, true)", i, got, ok, i)
		}
	}
	if _, ok := tree.SearchKey(1000, EQ); ok {
		t.Fatalf("SearchKey(1000) found a key that was never inserted")
	}
}

func TestInsertDuplicateCollapsesSizeAndReplacesValue(t *testing.T) {
	tree := newIntTree(t, 4)
	tree.Insert(7, "first")
	tree.Insert(7, "second")
	tree.Insert(7, "third")

	if tree.Size() != 3 {
		t.Fatalf("size = %d, want 3 (logical count includes collapsed duplicates)", tree.Size())
	}
	val, ok := tree.SearchValue(7, EQ)
	if !ok || val != "third" {
		t.Fatalf("SearchValue(7) = (%q, %v), want (\"third\", true)", val, ok)
	}
}

func TestDeleteReportsDuplicateCount(t *testing.T) {
	tree := newIntTree(t, 4)
	tree.Insert(7, "a")
	tree.Insert(7, "b")
	tree.Insert(7, "c")

	key, dups, ok := tree.Delete(7)
	if !ok || key != 7 || dups != 2 {
		t.Fatalf("Delete(7) = (%d, %d, %v), want (7, 2, true)", key, dups, ok)
	}
	if tree.Size() != 0 {
		t.Fatalf("size after delete = %d, want 0", tree.Size())
	}
	if _, ok := tree.SearchKey(7, EQ); ok {
		t.Fatalf("key 7 still found after delete")
	}
}

func TestDeleteMissingKey(t *testing.T) {
	tree := newIntTree(t, 4)
	tree.Insert(1, "a")
	if _, _, ok := tree.Delete(999); ok {
		t.Fatalf("Delete(999) reported found on an absent key")
	}
}

// TestInsertDeleteManyPreservesOrder hammers the rebalance engine (split,
// merge, distribute, remove-root) across a range of node sizes and checks
// the tree's range scan always comes back in sorted order with the right
// membership.
func TestInsertDeleteManyPreservesOrder(t *testing.T) {
	for _, maxNodeSize := range []int{4, 6, 8, 16} {
		maxNodeSize := maxNodeSize
		t.Run(fmt.Sprintf("maxNodeSize=%d", maxNodeSize), func(t *testing.T) {
			tree := newIntTree(t, maxNodeSize)
			rng := rand.New(rand.NewSource(int64(maxNodeSize)))
			present := map[int]bool{}

			const n = 500
			keys := rng.Perm(n)
			for _, k := range keys {
				tree.Insert(k, fmt.Sprintf("v%d", k))
				present[k] = true
			}
			assertSortedRange(t, tree, present)

			toDelete := keys[:n/2]
			for _, k := range toDelete {
				if _, _, ok := tree.Delete(k); !ok {
					t.Fatalf("Delete(%d) reported not found", k)
				}
				delete(present, k)
			}
			assertSortedRange(t, tree, present)

			if int(tree.Size()) != len(present) {
				t.Fatalf("size = %d, want %d", tree.Size(), len(present))
			}
		})
	}
}

func assertSortedRange(t *testing.T, tree *BTree[int, string], present map[int]bool) {
	t.Helper()
	got := tree.RangeKeys(0, -1, nil, nil)
	want := make([]int, 0, len(present))
	for k := range present {
		want = append(want, k)
	}
	sort.Ints(want)

	if len(got) != len(want) {
		t.Fatalf("range length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("range[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestRangeKeysBoundsAndPagination(t *testing.T) {
	tree := newIntTree(t, 4)
	for i := 0; i < 20; i++ {
		tree.Insert(i, fmt.Sprintf("v%d", i))
	}

	start, end := 5, 14
	got := tree.RangeKeys(0, -1, &start, &end)
	if len(got) != 10 {
		t.Fatalf("range [5,14] length = %d, want 10", len(got))
	}
	for i, k := range got {
		if k != 5+i {
			t.Fatalf("range[%d] = %d, want %d", i, k, 5+i)
		}
	}

	page := tree.RangeKeys(2, 3, &start, &end)
	want := []int{7, 8, 9}
	for i, k := range page {
		if k != want[i] {
			t.Fatalf("paginated range[%d] = %d, want %d", i, k, want[i])
		}
	}
}

func TestRangeValuesFullTree(t *testing.T) {
	tree := newIntTree(t, 6)
	for i := 0; i < 30; i++ {
		tree.Insert(i, fmt.Sprintf("v%d", i))
	}
	got := tree.RangeValues(0, -1, nil, nil)
	if len(got) != 30 {
		t.Fatalf("len = %d, want 30", len(got))
	}
	if got[0] != "v0" || got[29] != "v29" {
		t.Fatalf("unexpected endpoints: %q .. %q", got[0], got[29])
	}
}

func TestFindKeysWithBookmarkResume(t *testing.T) {
	tree := newIntTree(t, 4)
	for i := 0; i < 20; i++ {
		tree.Insert(i, fmt.Sprintf("v%d", i))
	}

	even := func(k int, _ string) bool { return k%2 == 0 }

	first := tree.FindKeys(even, nil, false)
	if len(first) != 10 {
		t.Fatalf("FindKeys without bookmark = %d results, want 10", len(first))
	}

	bookmark := first[3]
	resumed := tree.FindKeys(even, &bookmark, false)
	if len(resumed) != len(first)-4 {
		t.Fatalf("resumed FindKeys length = %d, want %d", len(resumed), len(first)-4)
	}
	for i, k := range resumed {
		if k != first[4+i] {
			t.Fatalf("resumed[%d] = %d, want %d", i, k, first[4+i])
		}
	}
}

func TestFindKeysBookmarkOnNonMatchingLeafCarriesForward(t *testing.T) {
	tree := newIntTree(t, 4)
	for i := 0; i < 20; i++ {
		tree.Insert(i, fmt.Sprintf("v%d", i))
	}
	even := func(k int, _ string) bool { return k%2 == 0 }

	// Bookmark an odd key: its own leaf position is never a match, so the
	// pending skip must carry forward to the first even key found after it.
	bookmark := 7
	resumed := tree.FindKeys(even, &bookmark, false)
	all := tree.FindKeys(even, nil, false)

	// The first even key > 7 is 8; it must be skipped once.
	var want []int
	skipped := false
	for _, k := range all {
		if k > bookmark && !skipped {
			skipped = true
			continue
		}
		if k > bookmark {
			want = append(want, k)
		}
	}
	if len(resumed) != len(want) {
		t.Fatalf("resumed length = %d, want %d (%v vs %v)", len(resumed), len(want), resumed, want)
	}
	for i := range want {
		if resumed[i] != want[i] {
			t.Fatalf("resumed[%d] = %d, want %d", i, resumed[i], want[i])
		}
	}
}

func TestMiddleKeyEmptyAndSingleton(t *testing.T) {
	tree := newIntTree(t, 4)
	if _, ok := tree.MiddleKey(); ok {
		t.Fatalf("MiddleKey on empty tree reported found")
	}
	tree.Insert(1, "a")
	if _, ok := tree.MiddleKey(); ok {
		t.Fatalf("MiddleKey on singleton tree reported found")
	}
}

func TestMiddleKeyOnPopulatedTree(t *testing.T) {
	tree := newIntTree(t, 4)
	for i := 0; i < 21; i++ {
		tree.Insert(i, fmt.Sprintf("v%d", i))
	}
	mid, ok := tree.MiddleKey()
	if !ok {
		t.Fatalf("MiddleKey reported not found on a 21-entry tree")
	}
	// The exact key depends on leaf boundaries after rebalancing; only
	// assert it falls inside the populated range.
	if mid < 0 || mid > 20 {
		t.Fatalf("MiddleKey = %d, out of populated range [0,20]", mid)
	}
}

func TestInvariantErrorUnwraps(t *testing.T) {
	tree := newIntTree(t, 4)
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("panicInvariant did not panic")
		}
		var ierr *InvariantError
		if !errors.As(r.(error), &ierr) {
			t.Fatalf("recovered value is not *InvariantError: %v", r)
		}
		if !errors.Is(ierr, ErrInvariantViolation) {
			t.Fatalf("InvariantError does not wrap ErrInvariantViolation")
		}
	}()
	tree.panicInvariant("test")
}
