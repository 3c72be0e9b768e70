package slip

import (
	"encoding/json"
	"net/http"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = Describe("Integration", func() {
	var (
		cache      *BoltCache
		recognizer *mockRecognizer
		service    *Service
		server     *Server
		ghServer   *ghttp.Server
	)

	BeforeEach(func() {
		var err error
		cache, err = NewBoltCache(filepath.Join(GinkgoT().TempDir(), "test.db"))
		Expect(err).NotTo(HaveOccurred())

		recognizer = newMockRecognizer("ชำระเงินสำเร็จ 20 ธ.ค. 67 Agoda ยอดชำระ 3,480.00 บาท")
		service = newTestService(recognizer, cache)
		server = NewServer(service, BasicAuth{})

		ghServer = ghttp.NewServer()
		// two uploads of the same slip
		ghServer.AppendHandlers(server.ServeHTTP, server.ServeHTTP)
	})

	AfterEach(func() {
		ghServer.Close()
		cache.Close()
	})

	It("scans a slip and serves the second upload from the cache", func() {
		upload := func() Scan {
			resp, err := http.DefaultClient.Do(uploadRequest(ghServer.URL()+"/api/slips/scan", "agoda.png", "image/png", slipPNG()))
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var scan Scan
			Expect(json.NewDecoder(resp.Body).Decode(&scan)).To(Succeed())
			return scan
		}

		first := upload()
		Expect(first.Cached).To(BeFalse())
		Expect(first.Fields.Date.String()).To(Equal("2024-12-20"))
		Expect(first.Fields.Amount.Decimal.StringFixed(2)).To(Equal("3480.00"))
		Expect(string(first.Fields.Category)).To(Equal("hotel"))

		second := upload()
		Expect(second.Cached).To(BeTrue())
		Expect(second.Fields).To(Equal(first.Fields))
		Expect(recognizer.callCount()).To(Equal(1))

		n, err := cache.Len()
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(1))
	})
})
