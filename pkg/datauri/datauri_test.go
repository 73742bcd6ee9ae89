package datauri_test

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/agrosolve/agrosolve/pkg/datauri"
)

func pngBytes() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 40, G: 120, B: 30, A: 255})
	var buf bytes.Buffer
	Expect(png.Encode(&buf, img)).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("Parse", func() {
	Context("with a well-formed URI", func() {
		It("splits the media type and payload exactly", func() {
			p, err := datauri.Parse("data:image/png;base64,AAAA")
			Expect(err).NotTo(HaveOccurred())
			Expect(p.MediaType).To(Equal("image/png"))
			Expect(p.Data).To(Equal("AAAA"))
		})

		It("round-trips encoded image bytes", func() {
			raw := pngBytes()
			p, err := datauri.Parse(datauri.Encode("image/png", raw))
			Expect(err).NotTo(HaveOccurred())
			Expect(p.MediaType).To(Equal("image/png"))

			decoded, err := p.Bytes()
			Expect(err).NotTo(HaveOccurred())
			Expect(decoded).To(Equal(raw))
		})

		It("ignores extra media type parameters", func() {
			p, err := datauri.Parse("data:image/jpeg;name=leaf.jpg;base64,AAAA")
			Expect(err).NotTo(HaveOccurred())
			Expect(p.MediaType).To(Equal("image/jpeg"))
		})

		It("drops line breaks from wrapped payloads", func() {
			raw := pngBytes()
			encoded := base64.StdEncoding.EncodeToString(raw)
			wrapped := encoded[:8] + "\r\n" + encoded[8:16] + "\n" + encoded[16:]

			p, err := datauri.Parse("data:image/png;base64," + wrapped)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Data).To(Equal(encoded))
			Expect(p.String()).To(Equal(datauri.Encode("image/png", raw)))
		})

		It("renders back into the same URI", func() {
			uri := "data:image/webp;base64,AAAA"
			p, err := datauri.Parse(uri)
			Expect(err).NotTo(HaveOccurred())
			Expect(p.String()).To(Equal(uri))
		})
	})

	DescribeTable("rejecting malformed input",
		func(uri string) {
			p, err := datauri.Parse(uri)
			Expect(err).To(MatchError(datauri.ErrInvalid))
			Expect(p).To(BeNil())
		},
		Entry("empty string", ""),
		Entry("no scheme", "image/png;base64,AAAA"),
		Entry("plain URL", "https://example.com/leaf.png"),
		Entry("no comma", "data:image/png;base64"),
		Entry("not base64", "data:image/png,AAAA"),
		Entry("missing media type", "data:;base64,AAAA"),
		Entry("missing subtype", "data:image/;base64,AAAA"),
		Entry("non-image type", "data:text/plain;base64,AAAA"),
		Entry("empty payload", "data:image/png;base64,"),
		Entry("only line breaks", "data:image/png;base64,\r\n"),
		Entry("corrupt base64", "data:image/png;base64,@@@@"),
		Entry("truncated base64", "data:image/png;base64,AAA"),
	)

	Describe("WithMaxBytes", func() {
		It("accepts payloads at the limit", func() {
			_, err := datauri.Parse(datauri.Encode("image/png", make([]byte, 9)), datauri.WithMaxBytes(9))
			Expect(err).NotTo(HaveOccurred())
		})

		It("rejects payloads over the limit", func() {
			_, err := datauri.Parse(datauri.Encode("image/png", make([]byte, 10)), datauri.WithMaxBytes(9))
			Expect(err).To(MatchError(datauri.ErrInvalid))
			Expect(err).To(MatchError(datauri.ErrTooLarge))
		})
	})

	Describe("WithContentCheck", func() {
		It("accepts bytes matching the declared type", func() {
			_, err := datauri.Parse(datauri.Encode("image/png", pngBytes()), datauri.WithContentCheck())
			Expect(err).NotTo(HaveOccurred())
		})

		It("rejects bytes that are not the declared type", func() {
			_, err := datauri.Parse(datauri.Encode("image/jpeg", pngBytes()), datauri.WithContentCheck())
			Expect(err).To(MatchError(datauri.ErrInvalid))
			Expect(err.Error()).To(ContainSubstring("image/png"))
		})

		It("rejects payloads that are not images at all", func() {
			_, err := datauri.Parse("data:image/png;base64,AAAA", datauri.WithContentCheck())
			Expect(err).To(MatchError(datauri.ErrInvalid))
		})
	})
})

var _ = Describe("Detect", func() {
	It("sniffs png bytes", func() {
		Expect(datauri.Detect(pngBytes())).To(Equal("image/png"))
	})
})
