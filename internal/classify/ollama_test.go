package classify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = Describe("Ollama", func() {
	var (
		server     *ghttp.Server
		ollama     *Ollama
		prediction *Prediction
		err        error
		sent       ollamaChatRequest
	)

	captureRequest := func(w http.ResponseWriter, r *http.Request) {
		defer GinkgoRecover()
		body, readErr := io.ReadAll(r.Body)
		Expect(readErr).NotTo(HaveOccurred())
		Expect(json.Unmarshal(body, &sent)).To(Succeed())
	}

	BeforeEach(func() {
		server = ghttp.NewServer()
		var newErr error
		ollama, newErr = NewOllama(server.URL(), "llava", []string{"Armyworm", "Cutworm"})
		Expect(newErr).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	JustBeforeEach(func() {
		prediction, err = ollama.Classify(context.Background(), testJPEG(), "image/jpeg", 14.6, 121)
	})

	When("the model answers with a label", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest("POST", "/api/chat"),
				captureRequest,
				ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
					Message: ollamaMessage{Role: "assistant", Content: `{"predicted_class": "Cutworm"}`},
					Done:    true,
				}),
			))
		})

		It("should return the label", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(prediction.PredictedClass).To(Equal("Cutworm"))
		})

		It("should attach the image to the user message", func() {
			Expect(sent.Messages).To(HaveLen(2))
			Expect(sent.Messages[1].Images).To(HaveLen(1))
		})

		It("should list the labels in the prompt", func() {
			Expect(sent.Messages[1].Content).To(ContainSubstring("- Armyworm\n- Cutworm"))
		})
	})

	When("the model reports no pest", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
				Message: ollamaMessage{Content: `{"error": "no pest detected"}`},
			}))
		})

		It("should return a service error", func() {
			Expect(err).To(MatchError(ErrService))
		})
	})

	When("the model is not installed", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusNotFound, `{"error":"model not found"}`))
		})

		It("should return an http status error", func() {
			Expect(err).To(MatchError(ErrHTTPStatus))
		})
	})

	When("the chat response is not JSON", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusOK, `garbage`))
		})

		It("should return a decode error", func() {
			Expect(err).To(MatchError(ErrDecode))
		})
	})
})
