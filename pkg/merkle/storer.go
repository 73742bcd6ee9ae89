package merkle

import "context"

// Storer persists and retrieves nodes. Identical content with an identical
// parent produces an identical hash, so Put is naturally idempotent.
type Storer interface {
	// Put stores a node. If the node already exists (by hash), this is a no-op.
	Put(ctx context.Context, node *Node) error

	// Ancestry returns the path from a node back to its root (node first, root last).
	// Returns ErrNotFound if the node or one of its ancestors is missing.
	Ancestry(ctx context.Context, hash string) ([]*Node, error)

	// Descendants returns the path from root to node (root first, node last).
	Descendants(ctx context.Context, hash string) ([]*Node, error)

	// Close closes the store and releases any resources.
	Close() error
}

// ErrNotFound is returned when a node doesn't exist in the store.
type ErrNotFound struct {
	Hash string
}

func (e ErrNotFound) Error() string {
	if e.Hash == "" {
		return "node not found"
	}

	return "node not found: " + e.Hash
}
