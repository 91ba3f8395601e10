// ABOUTME: The rebalance engine: classify, split, merge, distribute, remove-root
// ABOUTME: Every mutation funnels through balance() to restore node-size invariants

package btree

import "github.com/nainya/bptree/pkg/sll"

type balanceCase int

const (
	caseDoNothing balanceCase = iota
	caseRemoveRoot
	caseSplit
	caseDistributeRightIntoNode
	caseDistributeLeftIntoNode
	caseMergeRightIntoNode
	caseMergeNodeIntoLeft
)

// sourcePosition tells distribute which side of target the source node
// sits on.
type sourcePosition int

const (
	sourceLeftSibling sourcePosition = iota
	sourceRightSibling
)

func classify[K any, V any](tree *BTree[K, V], n *BNode[K, V]) balanceCase {
	size := n.size()

	if tree.halfCapacity <= size && size <= tree.maxNodeSize {
		return caseDoNothing
	}
	if size > tree.maxNodeSize {
		return caseSplit
	}

	var leftSize, rightSize int
	if n.leftSibling != nil {
		leftSize = n.leftSibling.size()
	}
	if n.rightSibling != nil {
		rightSize = n.rightSibling.size()
	}

	if leftSize == 0 && rightSize == 0 {
		if size == 0 {
			return caseRemoveRoot
		}
		return caseDoNothing
	}
	if rightSize > tree.halfCapacity {
		return caseDistributeRightIntoNode
	}
	if leftSize > tree.halfCapacity {
		return caseDistributeLeftIntoNode
	}
	if rightSize > 0 {
		return caseMergeRightIntoNode
	}
	if leftSize > 0 {
		return caseMergeNodeIntoLeft
	}

	tree.panicInvariant("classify: no balance case matched")
	return caseDoNothing
}

// balance restores n's size invariant, recursing upward through whatever
// new node the restoration produced (a parent after a split or merge).
func balance[K any, V any](tree *BTree[K, V], n *BNode[K, V]) {
	switch classify(tree, n) {
	case caseDoNothing:
		return
	case caseRemoveRoot:
		removeRoot(tree)
	case caseSplit:
		next := split(tree, n)
		tree.recordSplit()
		balance(tree, next)
	case caseDistributeRightIntoNode:
		distribute(tree, n.rightSibling, n, sourceRightSibling)
		tree.recordDistribute()
	case caseDistributeLeftIntoNode:
		distribute(tree, n.leftSibling, n, sourceLeftSibling)
		tree.recordDistribute()
	case caseMergeRightIntoNode:
		next := merge(tree, n.rightSibling, n)
		tree.recordMerge()
		balance(tree, next)
	case caseMergeNodeIntoLeft:
		next := merge(tree, n, n.leftSibling)
		tree.recordMerge()
		balance(tree, next)
	}
}

func removeRoot[K any, V any](tree *BTree[K, V]) {
	tree.root = tree.root.leftMostChild
	if tree.root != nil {
		tree.root.parentNode = nil
	}
	tree.recordRemoveRoot()
}

// findEffectiveParentCell walks from n up through parentNode links until it
// finds a non-nil parentCell. If no node on that path has one, it falls
// back to the first cell of n's own parent node.
func findEffectiveParentCell[K any, V any](n *BNode[K, V]) *Cell[K, V] {
	for cur := n; cur != nil; cur = cur.parentNode {
		if cur.parentCell != nil {
			return cur.parentCell
		}
	}
	if n.parentNode != nil && n.parentNode.cells.Min != nil {
		return n.parentNode.cells.Min.Value
	}
	n.tree.panicInvariant("findEffectiveParentCell: no parent cell reachable")
	return nil
}

// split breaks an overfull node n in half, promoting the left half's
// maximum key into n's parent (creating a new root first if n was the
// root). Returns the parent node, which may itself now need balancing.
func split[K any, V any](tree *BTree[K, V], n *BNode[K, V]) *BNode[K, V] {
	leftList, rightList, err := sll.SplitAt(n.cells, tree.halfCapacity)
	if err != nil {
		tree.panicInvariant("split: splitAt")
	}

	var rightLeftMostChild *BNode[K, V]
	if !n.isLeaf {
		rightLeftMostChild = leftList.Max.Value.RightChild
	}

	right := newNode(tree, n.isLeaf, n.parentNode, rightLeftMostChild)
	setCells(right, rightList)

	right.rightSibling = n.rightSibling
	if n.rightSibling != nil {
		n.rightSibling.leftSibling = right
	}
	right.leftSibling = n
	n.rightSibling = right

	if n.isRoot() {
		newRoot := newNode[K, V](tree, false, nil, n)
		tree.root = newRoot
	}

	parent := n.parentNode
	right.parentNode = parent

	promotedKey := leftList.Max.Value.Key
	promotedCell := newSeparatorCell(promotedKey, right)
	sll.Insert(parent.cells, tree.cellCmp, promotedCell)

	if n.isLeaf {
		if n == tree.rightmostLeaf {
			tree.rightmostLeaf = right
		}
	} else {
		sll.Delete(leftList, tree.cellCmp, &Cell[K, V]{Key: promotedKey})
	}

	return parent
}

// merge absorbs source's cells into target. source is always positioned to
// the right of target. Returns source's former parent node, which may
// itself now need balancing.
func merge[K any, V any](tree *BTree[K, V], source, target *BNode[K, V]) *BNode[K, V] {
	effectiveParentCell := findEffectiveParentCell(source)

	if !source.isLeaf {
		firstCellForTarget := newSeparatorCell(effectiveParentCell.Key, source.leftMostChild)
		sll.Insert(target.cells, tree.cellCmp, firstCellForTarget)
	}

	sll.MergeRightIntoLeft(target.cells, source.cells)
	reinforceParentship(target)

	target.rightSibling = source.rightSibling
	if source.rightSibling != nil {
		source.rightSibling.leftSibling = target
	}

	sourceParent := source.parentNode
	if source.isLeftMost() {
		replacementKey := sourceParent.cells.Min.Value.Key
		deleted := sll.Delete(sourceParent.cells, tree.cellCmp, &Cell[K, V]{Key: replacementKey})
		if deleted != nil && deleted.Value.RightChild != nil {
			setLeftMostChild(sourceParent, deleted.Value.RightChild)
		}
		effectiveParentCell.Key = replacementKey
	} else {
		sll.Delete(sourceParent.cells, tree.cellCmp, &Cell[K, V]{Key: source.parentCell.Key})
	}

	if source == tree.rightmostLeaf {
		tree.rightmostLeaf = target
	}

	return sourceParent
}

// distribute moves part of source's cells into target to bring both closer
// to half capacity, without merging them into one node. source always has
// more than half_capacity cells; the caller (balance) guarantees this.
func distribute[K any, V any](tree *BTree[K, V], source, target *BNode[K, V], sourceIs sourcePosition) {
	var effectiveNode *BNode[K, V]
	if sourceIs == sourceLeftSibling {
		effectiveNode = target
	} else {
		effectiveNode = source
	}
	effectiveParentCell := findEffectiveParentCell(effectiveNode)

	if !source.isLeaf {
		var rightChild *BNode[K, V]
		if sourceIs == sourceLeftSibling {
			rightChild = target.leftMostChild
		} else {
			rightChild = source.leftMostChild
		}
		firstCellForTarget := newSeparatorCell(effectiveParentCell.Key, rightChild)
		sll.Insert(target.cells, tree.cellCmp, firstCellForTarget)
	}

	count := int(source.cells.Count)
	var splitIdx int
	switch {
	case sourceIs == sourceRightSibling:
		splitIdx = count - tree.halfCapacity - 1
	case source.isLeaf:
		splitIdx = tree.halfCapacity - 1
	default:
		splitIdx = count - tree.halfCapacity + 1
	}

	leftPart, rightPart, err := sll.SplitAt(source.cells, splitIdx)
	if err != nil {
		tree.panicInvariant("distribute: splitAt")
	}

	var effectiveLMC *BNode[K, V]
	var replacementKey K

	switch sourceIs {
	case sourceLeftSibling:
		maxCell := leftPart.Max.Value
		effectiveLMC = maxCell.RightChild
		replacementKey = maxCell.Key
		if !source.isLeaf {
			sll.Delete(leftPart, tree.cellCmp, &Cell[K, V]{Key: maxCell.Key})
		}
	case sourceRightSibling:
		setCells(source, rightPart)
		if leftPart.Max != nil {
			maxLeft := leftPart.Max.Value
			effectiveLMC = maxLeft.RightChild
			replacementKey = maxLeft.Key
			if !source.isLeaf {
				sll.Delete(leftPart, tree.cellCmp, &Cell[K, V]{Key: maxLeft.Key})
			}
		}
	}

	switch sourceIs {
	case sourceLeftSibling:
		if rightPart.Count > 0 {
			sll.MergeLeftIntoRight(rightPart, target.cells)
			reinforceParentship(target)
		}
	case sourceRightSibling:
		if leftPart.Count > 0 {
			sll.MergeRightIntoLeft(target.cells, leftPart)
		}
		reinforceParentship(target)
	}

	if !source.isLeaf {
		switch sourceIs {
		case sourceLeftSibling:
			setLeftMostChild(target, effectiveLMC)
		case sourceRightSibling:
			setLeftMostChild(source, effectiveLMC)
		}
	}

	if sourceIs == sourceRightSibling && source.isLeaf {
		effectiveParentCell.Key = target.cells.Max.Value.Key
	} else {
		effectiveParentCell.Key = replacementKey
	}
}
