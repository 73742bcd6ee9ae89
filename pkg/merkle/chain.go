package merkle

import (
	"context"
	"fmt"
)

// Chain is an append-only, linear sequence of nodes over a Storer.
// It is not safe for concurrent use; callers serialize access.
type Chain struct {
	storer Storer
	head   *Node
}

// NewChain starts an empty chain on storer.
func NewChain(storer Storer) *Chain {
	return &Chain{storer: storer}
}

// Append stores content as the new head.
func (c *Chain) Append(ctx context.Context, content any) (*Node, error) {
	node := NewNode(content, c.head)
	if err := c.storer.Put(ctx, node); err != nil {
		return nil, fmt.Errorf("storing node: %w", err)
	}
	c.head = node
	return node, nil
}

// Head returns the latest node, or nil for an empty chain.
func (c *Chain) Head() *Node {
	return c.head
}

// Nodes returns every node, oldest first.
func (c *Chain) Nodes(ctx context.Context) ([]*Node, error) {
	if c.head == nil {
		return nil, nil
	}
	return c.storer.Descendants(ctx, c.head.Hash)
}

// Reset forgets the head so the next Append starts a new root.
func (c *Chain) Reset() {
	c.head = nil
}
