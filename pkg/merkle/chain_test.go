package merkle_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/agrosolve/agrosolve/pkg/merkle"
)

var _ = Describe("Chain", func() {
	var (
		ctx   context.Context
		chain *merkle.Chain
	)

	BeforeEach(func() {
		ctx = context.Background()
		chain = merkle.NewChain(merkle.NewMemoryStorer())
	})

	It("starts empty", func() {
		Expect(chain.Head()).To(BeNil())
		Expect(chain.Nodes(ctx)).To(BeEmpty())
	})

	It("links appended nodes in order", func() {
		first, err := chain.Append(ctx, "hello")
		Expect(err).NotTo(HaveOccurred())
		second, err := chain.Append(ctx, "how do I test soil pH?")
		Expect(err).NotTo(HaveOccurred())

		Expect(first.ParentHash).To(BeNil())
		Expect(*second.ParentHash).To(Equal(first.Hash))
		Expect(chain.Head()).To(Equal(second))

		nodes, err := chain.Nodes(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(nodes).To(Equal([]*merkle.Node{first, second}))
	})

	It("starts a new root after Reset", func() {
		_, err := chain.Append(ctx, "old")
		Expect(err).NotTo(HaveOccurred())

		chain.Reset()
		fresh, err := chain.Append(ctx, "new")
		Expect(err).NotTo(HaveOccurred())

		Expect(fresh.ParentHash).To(BeNil())
		Expect(chain.Nodes(ctx)).To(HaveLen(1))
	})
})
