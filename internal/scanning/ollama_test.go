package scanning

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = Describe("Ollama", func() {
	var (
		server     *ghttp.Server
		recognizer *Ollama
		image      []byte
		progress   []float64
		text       string
		err        error
	)

	BeforeEach(func() {
		server = ghttp.NewServer()
		var newErr error
		recognizer, newErr = NewOllama(server.URL()+"/", "qwen2.5vl:7b")
		Expect(newErr).NotTo(HaveOccurred())
		image = pngBytes()
		progress = nil
	})

	AfterEach(func() {
		server.Close()
	})

	JustBeforeEach(func() {
		text, err = recognizer.Recognize(context.Background(), image, "image/png", func(p float64) {
			progress = append(progress, p)
		})
	})

	When("the model answers", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest("POST", "/api/chat"),
				ghttp.VerifyContentType("application/json"),
				func(w http.ResponseWriter, r *http.Request) {
					body, readErr := io.ReadAll(r.Body)
					Expect(readErr).NotTo(HaveOccurred())
					var req ollamaChatRequest
					Expect(json.Unmarshal(body, &req)).To(Succeed())
					Expect(req.Model).To(Equal("qwen2.5vl:7b"))
					Expect(req.Stream).To(BeFalse())
					Expect(req.Messages).To(HaveLen(2))
					Expect(req.Messages[1].Images).To(HaveLen(1))
				},
				ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
					Message: ollamaMessage{Role: "assistant", Content: "```\nยอดโอน 1,250.00 บาท\n```"},
					Done:    true,
				}),
			))
		})

		It("returns the cleaned transcript", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(text).To(Equal("ยอดโอน 1,250.00 บาท"))
		})

		It("reports progress through to completion", func() {
			Expect(progress).To(Equal([]float64{ProgressStarted, ProgressPrepared, ProgressSent, ProgressDone}))
		})
	})

	When("the API fails", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusInternalServerError, "model not loaded"))
		})

		It("returns the status and body", func() {
			Expect(err).To(MatchError(ContainSubstring("status 500")))
			Expect(err).To(MatchError(ContainSubstring("model not loaded")))
		})

		It("never reports completion", func() {
			Expect(progress).NotTo(ContainElement(float64(ProgressDone)))
		})
	})

	When("the upload is not an image", func() {
		BeforeEach(func() {
			image = []byte("%PDF-1.4")
		})

		It("fails before calling the API", func() {
			Expect(errors.Is(err, ErrNotImage)).To(BeTrue())
			Expect(server.ReceivedRequests()).To(BeEmpty())
		})

		It("is still named ollama", func() {
			Expect(recognizer.Name()).To(Equal("ollama"))
		})
	})
})
