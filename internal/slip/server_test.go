package slip

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/slip-scanner/internal/extract"
)

// uploadRequest builds a multipart slip upload
func uploadRequest(url, filename, contentType string, data []byte) *http.Request {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	if contentType != "" {
		header.Set("Content-Type", contentType)
	}
	part, err := writer.CreatePart(header)
	Expect(err).NotTo(HaveOccurred())
	_, err = part.Write(data)
	Expect(err).NotTo(HaveOccurred())
	Expect(writer.Close()).To(Succeed())

	req, err := http.NewRequest("POST", url, body)
	Expect(err).NotTo(HaveOccurred())
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

var _ = Describe("Server", func() {
	var (
		recognizer  *mockRecognizer
		service     *Service
		server      *Server
		auth        BasicAuth
		ghttpServer *ghttp.Server
	)

	setupServer := func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
		server = NewServerWithMux(service, auth, http.NewServeMux())
		ghttpServer = ghttp.NewServer()
		ghttpServer.AppendHandlers(server.ServeHTTP)
	}

	BeforeEach(func() {
		recognizer = newMockRecognizer(transferSlip)
		service = newTestService(recognizer, newMockCache())
		auth = BasicAuth{}
		setupServer()
	})

	AfterEach(func() {
		if ghttpServer != nil {
			ghttpServer.Close()
			ghttpServer = nil
		}
	})

	Describe("handleScanSlip", func() {
		When("a slip image is uploaded", func() {
			It("should return the scan", func() {
				resp, err := http.DefaultClient.Do(uploadRequest(ghttpServer.URL()+"/api/slips/scan", "slip.png", "image/png", slipPNG()))
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()

				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(resp.Header.Get("Content-Type")).To(Equal("application/json"))
				Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))

				var scan Scan
				Expect(json.NewDecoder(resp.Body).Decode(&scan)).To(Succeed())
				Expect(scan.ID).To(Equal("scan-1"))
				Expect(scan.Fields.Amount.Decimal.StringFixed(2)).To(Equal("1250.00"))
				Expect(scan.Fields.Category).To(Equal(extract.CategoryFood))
			})
		})

		When("the part has no content type", func() {
			It("should infer it from the extension", func() {
				resp, err := http.DefaultClient.Do(uploadRequest(ghttpServer.URL()+"/api/slips/scan", "slip.png", "", slipPNG()))
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
			})
		})

		When("a PDF is uploaded", func() {
			It("should return Unsupported Media Type", func() {
				resp, err := http.DefaultClient.Do(uploadRequest(ghttpServer.URL()+"/api/slips/scan", "slip.pdf", "application/pdf", []byte("%PDF-1.4\n")))
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusUnsupportedMediaType))
				Expect(recognizer.callCount()).To(Equal(0))
			})
		})

		When("the recognizer fails", func() {
			BeforeEach(func() {
				recognizer.err = errors.New("model unavailable")
			})

			It("should return a generic unreadable error", func() {
				resp, err := http.DefaultClient.Do(uploadRequest(ghttpServer.URL()+"/api/slips/scan", "slip.png", "image/png", slipPNG()))
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()

				Expect(resp.StatusCode).To(Equal(http.StatusUnprocessableEntity))
				var body map[string]string
				Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
				Expect(body["error"]).To(Equal("could not read the slip"))
			})
		})

		When("no file is attached", func() {
			It("should return Bad Request", func() {
				body := &bytes.Buffer{}
				writer := multipart.NewWriter(body)
				Expect(writer.WriteField("note", "hi")).To(Succeed())
				Expect(writer.Close()).To(Succeed())
				resp, err := http.Post(ghttpServer.URL()+"/api/slips/scan", writer.FormDataContentType(), body)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			})
		})

		When("the client asks for an event stream", func() {
			It("should stream progress then the result", func() {
				req := uploadRequest(ghttpServer.URL()+"/api/slips/scan", "slip.png", "image/png", slipPNG())
				req.Header.Set("Accept", "text/event-stream")
				resp, err := http.DefaultClient.Do(req)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()

				Expect(resp.Header.Get("Content-Type")).To(Equal("text/event-stream"))
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				stream := string(body)

				Expect(stream).To(ContainSubstring("event: progress\ndata: {\"percent\":0}"))
				Expect(stream).To(ContainSubstring("event: progress\ndata: {\"percent\":100}"))
				Expect(strings.Count(stream, "event: result")).To(Equal(1))
				Expect(strings.Index(stream, "event: result")).To(BeNumerically(">", strings.LastIndex(stream, "event: progress")))
			})

			It("should stream a single error event when the slip is unreadable", func() {
				recognizer.err = errors.New("blurry")
				req := uploadRequest(ghttpServer.URL()+"/api/slips/scan", "slip.png", "image/png", slipPNG())
				req.Header.Set("Accept", "text/event-stream")
				resp, err := http.DefaultClient.Do(req)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()

				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(string(body)).To(ContainSubstring("event: error"))
				Expect(string(body)).To(ContainSubstring("could not read the slip"))
				Expect(string(body)).NotTo(ContainSubstring("event: result"))
			})
		})
	})

	Describe("handleExtractText", func() {
		It("should return the extracted fields", func() {
			resp, err := http.Post(ghttpServer.URL()+"/api/slips/extract", "application/json",
				strings.NewReader(`{"text":"วันที่ 2024-11-03 Grab 186"}`))
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var result map[string]any
			Expect(json.NewDecoder(resp.Body).Decode(&result)).To(Succeed())
			Expect(result["date"]).To(Equal("2024-11-03"))
			Expect(result["amount"]).To(Equal("186"))
			Expect(result["direction"]).To(Equal("expense"))
			Expect(result["category"]).To(Equal("transport"))
		})

		It("should apply a chosen category", func() {
			resp, err := http.Post(ghttpServer.URL()+"/api/slips/extract", "application/json",
				strings.NewReader(`{"text":"วันที่ 2024-11-03 Grab 186","category":"other"}`))
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var result map[string]any
			Expect(json.NewDecoder(resp.Body).Decode(&result)).To(Succeed())
			Expect(result["category"]).To(Equal("other"))
		})

		It("should reject an unknown category", func() {
			resp, err := http.Post(ghttpServer.URL()+"/api/slips/extract", "application/json",
				strings.NewReader(`{"text":"Grab 186","category":"groceries"}`))
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("should reject blank text", func() {
			resp, err := http.Post(ghttpServer.URL()+"/api/slips/extract", "application/json", strings.NewReader(`{"text":"   "}`))
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("should reject malformed JSON", func() {
			resp, err := http.Post(ghttpServer.URL()+"/api/slips/extract", "application/json", strings.NewReader(`{"text":`))
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("handleListCategories", func() {
		It("should return the categories with labels", func() {
			resp, err := http.Get(ghttpServer.URL() + "/api/categories")
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			var categories []extract.CategoryInfo
			Expect(json.NewDecoder(resp.Body).Decode(&categories)).To(Succeed())
			Expect(categories).To(HaveLen(5))
			Expect(categories[0]).To(Equal(extract.CategoryInfo{ID: extract.CategoryFood, Label: "อาหาร", Icon: "🍜"}))
		})
	})

	Describe("CORS preflight", func() {
		It("should answer OPTIONS without auth", func() {
			auth = BasicAuth{Username: "admin", Password: "secret"}
			setupServer()
			req, err := http.NewRequest("OPTIONS", ghttpServer.URL()+"/api/slips/scan", nil)
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
		})
	})

	Describe("basic auth", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "admin", Password: "secret"}
			setupServer()
		})

		When("credentials are missing", func() {
			It("should return Unauthorized", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/categories")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
				Expect(resp.Header.Get("WWW-Authenticate")).To(ContainSubstring("Slip Scanner"))
			})
		})

		When("credentials are correct", func() {
			It("should return OK", func() {
				req, err := http.NewRequest("GET", ghttpServer.URL()+"/api/categories", nil)
				Expect(err).NotTo(HaveOccurred())
				req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte("admin:secret")))
				resp, err := http.DefaultClient.Do(req)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
			})
		})

		When("the health check is called", func() {
			It("should not require credentials", func() {
				resp, err := http.Get(ghttpServer.URL() + "/healthz")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				var body map[string]string
				Expect(json.NewDecoder(resp.Body).Decode(&body)).To(Succeed())
				Expect(body).To(HaveKeyWithValue("recognizer", "mock"))
			})
		})
	})
})
