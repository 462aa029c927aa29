package scan

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"net/http"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/pest-tracker/internal/classify"
	"github.com/zombor/pest-tracker/internal/pest"
)

func leafJPEG() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: 40, G: 160, B: 60, A: 255})
		}
	}
	var buf bytes.Buffer
	Expect(jpeg.Encode(&buf, img, nil)).To(Succeed())
	return buf.Bytes()
}

var _ = Describe("Integration", func() {
	var (
		tempDir     string
		dbPath      string
		kv          *BoltKV
		storage     *LocalStorage
		predictor   *ghttp.Server
		apiServer   *ghttp.Server
		newAPI      func()
		photo       []byte
		gotLatitude string
	)

	BeforeEach(func() {
		tempDir = GinkgoT().TempDir()
		dbPath = filepath.Join(tempDir, "pest-tracker.db")
		photo = leafJPEG()

		var err error
		storage, err = NewLocalStorage(filepath.Join(tempDir, "photos"))
		Expect(err).NotTo(HaveOccurred())

		predictor = ghttp.NewServer()
		predictor.AppendHandlers(ghttp.CombineHandlers(
			ghttp.VerifyRequest(http.MethodPost, "/predict"),
			func(w http.ResponseWriter, r *http.Request) {
				Expect(r.ParseMultipartForm(1 << 20)).To(Succeed())
				gotLatitude = r.FormValue("latitude")
			},
			ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]string{"predicted_class": "Cutworm"}),
		))

		newAPI = func() {
			if apiServer != nil {
				apiServer.Close()
			}
			if kv != nil {
				Expect(kv.Close()).To(Succeed())
			}
			kv, err = NewBoltKV(dbPath)
			Expect(err).NotTo(HaveOccurred())

			gateway, err := classify.NewGateway(predictor.URL(), classify.DefaultTimeout)
			Expect(err).NotTo(HaveOccurred())

			library := pest.DefaultLibrary()
			service := NewService(NewStore(kv), gateway, library, storage)
			server := NewServer(service, library, nil)

			apiServer = ghttp.NewServer()
			apiServer.RouteToHandler(http.MethodGet, `/api/scans`, server.ServeHTTP)
			apiServer.RouteToHandler(http.MethodPost, `/api/scans`, server.ServeHTTP)
			apiServer.RouteToHandler(http.MethodGet, `/api/scans/grouped`, server.ServeHTTP)
		}
		newAPI()
	})

	AfterEach(func() {
		if apiServer != nil {
			apiServer.Close()
			apiServer = nil
		}
		predictor.Close()
		if kv != nil {
			kv.Close()
			kv = nil
		}
	})

	It("should classify an upload, record it, and keep it across restarts", func() {
		// --- Step 1: upload a photo ---
		resp, err := http.DefaultClient.Do(uploadRequest(apiServer.URL()+"/api/scans", photo, "14.5995", "120.9842"))
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))

		var created ScanRecord
		decodeBody(resp, &created)
		Expect(created.Result).To(Equal("Cutworm"))
		Expect(created.Details.Species).To(Equal("Agrotis spp."))
		Expect(predictor.ReceivedRequests()).To(HaveLen(1))
		Expect(gotLatitude).To(Equal("14.5995"))

		// The photo is on disk under the record's reference
		saved, err := storage.Get(created.Image)
		Expect(err).NotTo(HaveOccurred())
		Expect(saved).To(Equal(photo))

		// --- Step 2: restart on the same database ---
		newAPI()

		resp, err = http.Get(apiServer.URL() + "/api/scans")
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		var records []ScanRecord
		Expect(json.Unmarshal(body, &records)).To(Succeed())
		Expect(records).To(HaveLen(1))
		Expect(records[0].ID).To(Equal(created.ID))
		Expect(records[0].Details).To(Equal(created.Details))
	})

	It("should not record anything when the prediction service fails", func() {
		predictor.SetHandler(0, ghttp.RespondWith(http.StatusInternalServerError, "boom"))

		resp, err := http.DefaultClient.Do(uploadRequest(apiServer.URL()+"/api/scans", photo, "14.5995", "120.9842"))
		Expect(err).NotTo(HaveOccurred())
		resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusBadGateway))

		records, err := NewStore(kv).ListAll(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(records).To(BeEmpty())
	})
})
