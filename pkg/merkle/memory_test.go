package merkle_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/agrosolve/agrosolve/pkg/merkle"
)

var _ = Describe("MemoryStorer", func() {
	var (
		storer *merkle.MemoryStorer
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		storer = merkle.NewMemoryStorer()
	})

	Describe("Put", func() {
		It("stores a node that can be walked back", func() {
			node := merkle.NewNode("greeting", nil)
			Expect(storer.Put(ctx, node)).To(Succeed())

			path, err := storer.Ancestry(ctx, node.Hash)
			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(Equal([]*merkle.Node{node}))
		})

		It("returns ErrNotFound for unknown hashes", func() {
			_, err := storer.Ancestry(ctx, "nonexistent")
			Expect(err).To(BeAssignableToTypeOf(merkle.ErrNotFound{}))
			Expect(err.Error()).To(ContainSubstring("nonexistent"))
		})

		It("keeps the first copy on duplicate puts", func() {
			node := merkle.NewNode("same", nil)
			Expect(storer.Put(ctx, node)).To(Succeed())
			Expect(storer.Put(ctx, merkle.NewNode("same", nil))).To(Succeed())

			path, err := storer.Ancestry(ctx, node.Hash)
			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(HaveLen(1))
			Expect(path[0]).To(BeIdenticalTo(node))
		})

		It("rejects nil nodes", func() {
			Expect(storer.Put(ctx, nil)).To(MatchError(ContainSubstring("nil node")))
		})
	})

	Describe("traversal", func() {
		var root, child, grandchild *merkle.Node

		BeforeEach(func() {
			root = merkle.NewNode("root", nil)
			child = merkle.NewNode("child", root)
			grandchild = merkle.NewNode("grandchild", child)
			for _, n := range []*merkle.Node{root, child, grandchild} {
				Expect(storer.Put(ctx, n)).To(Succeed())
			}
		})

		It("walks ancestry newest first", func() {
			path, err := storer.Ancestry(ctx, grandchild.Hash)
			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(Equal([]*merkle.Node{grandchild, child, root}))
		})

		It("walks descendants oldest first", func() {
			path, err := storer.Descendants(ctx, grandchild.Hash)
			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(Equal([]*merkle.Node{root, child, grandchild}))
		})

		It("fails when a link is missing", func() {
			orphan := merkle.NewNode("orphan", merkle.NewNode("never stored", nil))
			Expect(storer.Put(ctx, orphan)).To(Succeed())

			_, err := storer.Ancestry(ctx, orphan.Hash)
			Expect(err).To(BeAssignableToTypeOf(merkle.ErrNotFound{}))
		})
	})

	Describe("Close", func() {
		It("drops every node", func() {
			node := merkle.NewNode("x", nil)
			Expect(storer.Put(ctx, node)).To(Succeed())
			Expect(storer.Close()).To(Succeed())

			_, err := storer.Ancestry(ctx, node.Hash)
			Expect(err).To(BeAssignableToTypeOf(merkle.ErrNotFound{}))
		})
	})
})
