// ABOUTME: Root-to-leaf descent used by every read and write operation

package btree

import "github.com/nainya/bptree/pkg/sll"

// searchForLeaf descends from the root to the leaf that would hold key.
// Returns nil only when the tree is empty.
func searchForLeaf[K any, V any](tree *BTree[K, V], key K) *BNode[K, V] {
	if tree.root == nil {
		return nil
	}

	node := tree.root
	for !node.isLeaf {
		searchCell := &Cell[K, V]{Key: key}
		found := sll.Search(node.cells, tree.cellCmp, searchCell, sll.LE)
		if found == nil {
			node = node.leftMostChild
			continue
		}

		if tree.cmp(key, found.Value.Key) == 0 {
			if found.Left != nil {
				node = found.Left.Value.RightChild
			} else {
				node = node.leftMostChild
			}
		} else {
			node = found.Value.RightChild
		}
	}
	return node
}
