package merkle

import (
	"context"
	"errors"
	"sync"
)

// MemoryStorer is a Storer backed by a map. Nothing outlives the process.
type MemoryStorer struct {
	mu    sync.RWMutex
	nodes map[string]*Node
}

// NewMemoryStorer creates an empty MemoryStorer.
func NewMemoryStorer() *MemoryStorer {
	return &MemoryStorer{nodes: make(map[string]*Node)}
}

func (s *MemoryStorer) Put(_ context.Context, node *Node) error {
	if node == nil {
		return errors.New("cannot store nil node")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[node.Hash]; !ok {
		s.nodes[node.Hash] = node
	}
	return nil
}

func (s *MemoryStorer) Ancestry(_ context.Context, hash string) ([]*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var path []*Node
	current := hash
	for {
		node, ok := s.nodes[current]
		if !ok {
			return nil, ErrNotFound{Hash: current}
		}
		path = append(path, node)

		if node.ParentHash == nil {
			return path, nil
		}
		current = *node.ParentHash
	}
}

func (s *MemoryStorer) Descendants(ctx context.Context, hash string) ([]*Node, error) {
	ancestry, err := s.Ancestry(ctx, hash)
	if err != nil {
		return nil, err
	}

	path := make([]*Node, len(ancestry))
	for i, node := range ancestry {
		path[len(ancestry)-1-i] = node
	}
	return path, nil
}

// Close drops every node.
func (s *MemoryStorer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nodes = make(map[string]*Node)
	return nil
}
