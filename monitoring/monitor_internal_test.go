package monitoring

import (
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	"github.com/gorilla/mux"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/umd/debugtrack"
	"github.com/sarchlab/umd/gpumem"
	"github.com/sarchlab/umd/hw"
)

var _ = Describe("Monitor", func() {
	var (
		m       *Monitor
		router  *mux.Router
		tracker *debugtrack.ContextTracker
	)

	BeforeEach(func() {
		space := gpumem.NewAddressSpace(0x10000000, 1<<26)
		allocator := gpumem.NewAllocator(space, 1<<24)
		residency := gpumem.NewResidencyTracker()

		var err error
		tracker, err = debugtrack.NewContextTracker(
			allocator, space, residency, []uint32{0, 3}, true)
		Expect(err).ToNot(HaveOccurred())

		m = NewMonitor()
		m.RegisterContextTracker(tracker)
		m.RegisterGeometry(hw.Geometry{
			MaxSlices:            1,
			MaxSubslicesPerSlice: 2,
			MaxEUPerSubslice:     4,
			ThreadsPerEU:         7,
		})

		router = mux.NewRouter()
		router.HandleFunc("/api/contexts", m.listContexts)
		router.HandleFunc("/api/context/{id}/sba", m.trackedAddresses)
		router.HandleFunc("/api/engines", m.listEngines)
		router.HandleFunc("/api/attention/{json}", m.attentionBitmask)
	})

	serve := func(url string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, url, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		return w
	}

	It("should list the registered contexts", func() {
		w := serve("/api/contexts")

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(Equal("[0,3]"))
	})

	It("should serve the tracked addresses of one context", func() {
		tracker.RecordStateChange(3, hw.SbaAddresses{
			SurfaceStateBaseAddress: 0x20000000,
		})

		w := serve("/api/context/3/sba")

		Expect(w.Code).To(Equal(http.StatusOK))

		sba := hw.SbaAddresses{}
		Expect(json.Unmarshal(w.Body.Bytes(), &sba)).To(Succeed())
		Expect(sba.SurfaceStateBaseAddress).To(Equal(uint64(0x20000000)))
	})

	It("should reject unknown contexts", func() {
		w := serve("/api/context/7/sba")

		Expect(w.Code).To(Equal(http.StatusNotFound))
	})

	It("should reject malformed context IDs", func() {
		w := serve("/api/context/banana/sba")

		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("should list engines as a JSON array", func() {
		w := serve("/api/engines")

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(Equal("[]"))
	})

	It("should build a broadcast attention mask by default", func() {
		w := serve("/api/attention/{}")

		Expect(w.Code).To(Equal(http.StatusOK))

		rsp := struct {
			Size    int    `json:"size"`
			Bitmask string `json:"bitmask"`
		}{}
		Expect(json.Unmarshal(w.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.Size).To(Equal(8))

		mask, err := hex.DecodeString(rsp.Bitmask)
		Expect(err).ToNot(HaveOccurred())
		for _, b := range mask {
			Expect(b).To(Equal(byte(0x7f)))
		}
	})

	It("should narrow the attention mask to the requested EU", func() {
		w := serve(`/api/attention/{"subslice":1,"eu":2,"thread":3}`)

		Expect(w.Code).To(Equal(http.StatusOK))

		rsp := struct {
			Size    int    `json:"size"`
			Bitmask string `json:"bitmask"`
		}{}
		Expect(json.Unmarshal(w.Body.Bytes(), &rsp)).To(Succeed())

		mask, err := hex.DecodeString(rsp.Bitmask)
		Expect(err).ToNot(HaveOccurred())
		Expect(mask[4+2]).To(Equal(byte(1 << 3)))
	})

	It("should reject malformed attention selectors", func() {
		w := serve("/api/attention/not-json")

		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("should fall back to a random port for privileged ports", func() {
		m.WithPortNumber(80)

		Expect(m.portNumber).To(Equal(0))
	})
})
