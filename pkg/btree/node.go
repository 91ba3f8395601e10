// ABOUTME: BNode is one page of the tree: a sorted cell list plus
// ABOUTME: parent/child/sibling links used by the rebalance engine

package btree

import "github.com/nainya/bptree/pkg/sll"

// BNode is one node of the tree. Leaves hold (key, value) cells and no
// children; internal nodes hold (key, rightChild) separator cells plus a
// leftMostChild that covers everything below the first separator.
//
// parentNode/parentCell are the node's back-references: parentCell is nil
// exactly when the node is its parent's left-most child (see isLeftMost).
// leftSibling/rightSibling link every node at the same depth, across
// parent boundaries, so the rebalance engine can walk sideways without
// re-descending from the root.
type BNode[K any, V any] struct {
	tree *BTree[K, V]

	isLeaf bool
	cells  *sll.SortedList[*Cell[K, V]]

	leftMostChild *BNode[K, V]
	parentNode    *BNode[K, V]
	parentCell    *Cell[K, V]

	leftSibling  *BNode[K, V]
	rightSibling *BNode[K, V]
}

func newNode[K any, V any](tree *BTree[K, V], isLeaf bool, parentNode *BNode[K, V], leftMostChild *BNode[K, V]) *BNode[K, V] {
	n := &BNode[K, V]{
		tree:       tree,
		isLeaf:     isLeaf,
		parentNode: parentNode,
		cells:      sll.New[*Cell[K, V]](),
	}
	if leftMostChild != nil {
		setLeftMostChild(n, leftMostChild)
	}
	return n
}

// setLeftMostChild installs child as n's left-most child, clearing its
// parentCell since the left-most slot carries no separator.
func setLeftMostChild[K any, V any](n, child *BNode[K, V]) {
	n.leftMostChild = child
	child.parentNode = n
	child.parentCell = nil
}

// setCells replaces n's cell list and re-establishes parentNode on every
// surviving child's right_child for an internal node. No-op bookkeeping
// for a leaf, whose cells carry no children.
func setCells[K any, V any](n *BNode[K, V], list *sll.SortedList[*Cell[K, V]]) {
	n.cells = list
	reinforceParentship(n)
}

func reinforceParentship[K any, V any](n *BNode[K, V]) {
	if n.isLeaf || n.cells == nil {
		return
	}
	for cur := n.cells.Min; cur != nil; cur = cur.Right {
		if cur.Value.RightChild != nil {
			cur.Value.RightChild.parentNode = n
		}
	}
}

func (n *BNode[K, V]) size() int { return int(n.cells.Count) }

func (n *BNode[K, V]) isRoot() bool { return n.parentNode == nil }

// isLeftMost reports whether n occupies its parent's left-most-child slot.
func (n *BNode[K, V]) isLeftMost() bool { return n.parentCell == nil }
