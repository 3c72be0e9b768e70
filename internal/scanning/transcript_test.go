package scanning

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("cleanTranscript", func() {
	var (
		input string
		text  string
	)

	JustBeforeEach(func() {
		text = cleanTranscript(input)
	})

	When("the transcript is plain", func() {
		BeforeEach(func() {
			input = "  โอนเงินสำเร็จ\nยอดโอน 1,250.00 บาท \n"
		})

		It("only trims surrounding whitespace", func() {
			Expect(text).To(Equal("โอนเงินสำเร็จ\nยอดโอน 1,250.00 บาท"))
		})
	})

	When("the transcript is fenced with a language tag", func() {
		BeforeEach(func() {
			input = "```text\n15 มี.ค. 68\nTotal 45.00\n```"
		})

		It("removes the fences", func() {
			Expect(text).To(Equal("15 มี.ค. 68\nTotal 45.00"))
		})
	})

	When("the transcript is fenced without a tag", func() {
		BeforeEach(func() {
			input = "```\nGrab 186\n```\n"
		})

		It("removes the fences", func() {
			Expect(text).To(Equal("Grab 186"))
		})
	})

	When("the model returned nothing", func() {
		BeforeEach(func() {
			input = "   "
		})

		It("returns an empty transcript", func() {
			Expect(text).To(BeEmpty())
		})
	})
})
