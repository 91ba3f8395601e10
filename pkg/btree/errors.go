// ABOUTME: Sentinel errors and the typed invariant-violation panic for pkg/btree

package btree

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidMaxNodeSize is returned by NewBTree when maxNodeSize is
	// not an even number >= 4.
	ErrInvalidMaxNodeSize = errors.New("btree: max_node_size must be even and >= 4")

	// ErrInvariantViolation is the sentinel wrapped by every InvariantError.
	// A caller can match it with errors.Is after recovering a panic.
	ErrInvariantViolation = errors.New("btree: invariant violation")
)

// InvariantError is panicked when an internal structural invariant breaks
// during rebalancing. It is never returned as a normal error value; it
// exists so a recovering caller can errors.As it out of a panic.
type InvariantError struct {
	Op  string
	Err error
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("btree: invariant violation during %s: %v", e.Op, e.Err)
}

func (e *InvariantError) Unwrap() error { return e.Err }
