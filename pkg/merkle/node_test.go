package merkle_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/agrosolve/agrosolve/pkg/merkle"
)

var _ = Describe("Node", func() {
	question := map[string]any{"speaker": "user", "text": "Why are my squash leaves white?"}
	answer := map[string]any{"speaker": "assistant", "text": "That sounds like powdery mildew."}

	Describe("NewNode", func() {
		It("keeps the content and leaves roots unlinked", func() {
			node := merkle.NewNode(question, nil)

			Expect(node.Content).To(Equal(question))
			Expect(node.ParentHash).To(BeNil())
		})

		It("hashes identical content identically", func() {
			Expect(merkle.NewNode(question, nil).Hash).To(Equal(merkle.NewNode(question, nil).Hash))
		})

		It("hashes different content differently", func() {
			Expect(merkle.NewNode(question, nil).Hash).NotTo(Equal(merkle.NewNode(answer, nil).Hash))
		})

		It("links a child to its parent", func() {
			parent := merkle.NewNode(question, nil)
			child := merkle.NewNode(answer, parent)

			Expect(child.ParentHash).NotTo(BeNil())
			Expect(*child.ParentHash).To(Equal(parent.Hash))
		})

		It("does not alias the parent's hash field", func() {
			parent := merkle.NewNode(question, nil)
			child := merkle.NewNode(answer, parent)
			original := parent.Hash

			parent.Hash = "mutated"
			Expect(*child.ParentHash).To(Equal(original))
		})

		It("folds the parent into the hash", func() {
			a := merkle.NewNode(answer, merkle.NewNode(question, nil))
			b := merkle.NewNode(answer, merkle.NewNode("another question", nil))

			Expect(a.Hash).NotTo(Equal(b.Hash))
		})

		It("produces a SHA-256 hex digest", func() {
			Expect(merkle.NewNode(question, nil).Hash).To(MatchRegexp("^[a-f0-9]{64}$"))
		})
	})
})
