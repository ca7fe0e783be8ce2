package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/carina-io/sheepdog/pkg/metrics"
	"github.com/carina-io/sheepdog/pkg/vdi"
	"github.com/carina-io/sheepdog/utils/exec"
)

const listOutput = "= Alice 2 21474836480 0 0 1344950085 15d168\n" +
	"s Alice 1 21474836480 0 0 1344950000 15d167\n" +
	"= Hello\\ kitty 1 2199023255552 0 0 1344951085 ea5044\n"

// blockingManager holds CreateVolume until release is closed.
type blockingManager struct {
	vdi.Manager
	entered chan struct{}
	release chan struct{}
}

func (b *blockingManager) CreateVolume(name string, size vdi.Size) error {
	close(b.entered)
	<-b.release
	return b.Manager.CreateVolume(name, size)
}

func do(h http.Handler, method, target string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil && (method == http.MethodPost || method == http.MethodPut) {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		if form != nil {
			target += "?" + form.Encode()
		}
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

var _ = Describe("Server", func() {
	var (
		fake *exec.FakeExecutor
		impl *vdi.SheepdogImplement
		s    *Server
	)

	BeforeEach(func() {
		fake = exec.NewFakeExecutor()
		fake.Set(exec.FakeResult{Stdout: listOutput}, "collie", "vdi", "list", "-r")
		impl = vdi.NewSheepdogImplement(fake, "", "")
		s = NewServer(impl, metrics.NewSheepdogCollector(impl), Options{})
	})

	Context("listing", func() {
		It("returns vdis keyed by name", func() {
			rec := do(s, http.MethodGet, "/volume/list", nil)
			Expect(rec.Code).To(Equal(http.StatusOK))

			vdis := map[string]vdi.VolumeRecord{}
			Expect(json.Unmarshal(rec.Body.Bytes(), &vdis)).To(Succeed())
			Expect(vdis).To(HaveLen(2))
			Expect(vdis["Alice"].Snapshot).To(BeTrue())
			Expect(vdis["Hello kitty"].VdiID).To(Equal("ea5044"))
		})

		It("returns every record with all=true", func() {
			rec := do(s, http.MethodGet, "/volume/list?all=true", nil)
			Expect(rec.Code).To(Equal(http.StatusOK))

			var records []vdi.VolumeRecord
			Expect(json.Unmarshal(rec.Body.Bytes(), &records)).To(Succeed())
			Expect(records).To(HaveLen(3))
		})

		It("answers existence checks", func() {
			rec := do(s, http.MethodGet, "/volume/exists", url.Values{"name": {"Hello kitty"}})
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring(`"exists":true`))

			rec = do(s, http.MethodGet, "/volume/exists", url.Values{"name": {"Bob"}})
			Expect(rec.Body.String()).To(ContainSubstring(`"exists":false`))

			rec = do(s, http.MethodGet, "/volume/exists", nil)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Context("mutations", func() {
		It("runs the matching tool command", func() {
			table := []struct {
				method  string
				target  string
				form    url.Values
				command []string
			}{
				{http.MethodPost, "/volume/create", url.Values{"name": {"vol1"}, "size": {"10G"}},
					[]string{"qemu-img", "create", "sheepdog:vol1", "10G"}},
				{http.MethodPut, "/volume/resize", url.Values{"name": {"vol1"}, "size": {"21474836480"}},
					[]string{"collie", "vdi", "resize", "vol1", "21474836480"}},
				{http.MethodPost, "/volume/snapshot/create", url.Values{"name": {"vol1"}},
					[]string{"collie", "vdi", "snapshot", "vol1"}},
				{http.MethodPost, "/volume/snapshot/create", url.Values{"name": {"vol1"}, "snapshot_id": {"3"}},
					[]string{"collie", "vdi", "snapshot", "-s", "3", "vol1"}},
				{http.MethodDelete, "/volume/delete", url.Values{"name": {"vol1"}},
					[]string{"collie", "vdi", "delete", "vol1"}},
				{http.MethodDelete, "/volume/delete", url.Values{"name": {"vol1"}, "snapshot_id": {"2"}},
					[]string{"collie", "vdi", "delete", "-s", "2", "vol1"}},
				{http.MethodPost, "/volume/clone", url.Values{"source_name": {"vol1"}, "snapshot_id": {"2"}, "dest_name": {"vol2"}},
					[]string{"collie", "vdi", "clone", "-s", "2", "vol1", "vol2"}},
			}

			for _, e := range table {
				rec := do(s, e.method, e.target, e.form)
				Expect(rec.Code).To(Equal(http.StatusOK), e.target)
				Expect(fake.Last()).To(Equal(e.command))
			}
		})

		It("rejects missing parameters", func() {
			Expect(do(s, http.MethodPost, "/volume/create", url.Values{"name": {"vol1"}}).Code).To(Equal(http.StatusBadRequest))
			Expect(do(s, http.MethodPut, "/volume/resize", url.Values{"size": {"1G"}}).Code).To(Equal(http.StatusBadRequest))
			Expect(do(s, http.MethodDelete, "/volume/delete", nil).Code).To(Equal(http.StatusBadRequest))
			Expect(do(s, http.MethodPost, "/volume/clone", url.Values{"source_name": {"vol1"}, "dest_name": {"vol2"}}).Code).To(Equal(http.StatusBadRequest))
			Expect(fake.Commands).To(BeEmpty())
		})

		It("passes stderr through on failure", func() {
			fake.Set(exec.FakeResult{Err: &exec.StorageCommandError{
				Command: "collie", ExitCode: 1, Stderr: "Failed to open VDI vol9: No VDI found\n",
			}}, "collie", "vdi", "resize", "vol9", "1G")

			rec := do(s, http.MethodPut, "/volume/resize", url.Values{"name": {"vol9"}, "size": {"1G"}})
			Expect(rec.Code).To(Equal(http.StatusInternalServerError))

			body := map[string]interface{}{}
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
			Expect(body["error"]).To(Equal("Failed to open VDI vol9: No VDI found\n"))
			Expect(body["exit_code"]).To(BeNumerically("==", 1))
		})

		It("refuses a second mutation on a busy volume", func() {
			blocking := &blockingManager{Manager: impl, entered: make(chan struct{}), release: make(chan struct{})}
			s = NewServer(blocking, nil, Options{})

			done := make(chan int)
			go func() {
				defer GinkgoRecover()
				done <- do(s, http.MethodPost, "/volume/create", url.Values{"name": {"vol1"}, "size": {"1G"}}).Code
			}()
			Eventually(blocking.entered, time.Second).Should(BeClosed())

			Expect(do(s, http.MethodDelete, "/volume/delete", url.Values{"name": {"vol1"}}).Code).To(Equal(http.StatusConflict))
			Expect(do(s, http.MethodPost, "/volume/clone",
				url.Values{"source_name": {"vol0"}, "snapshot_id": {"1"}, "dest_name": {"vol1"}}).Code).To(Equal(http.StatusConflict))
			Expect(do(s, http.MethodDelete, "/volume/delete", url.Values{"name": {"vol2"}}).Code).To(Equal(http.StatusOK))

			close(blocking.release)
			Eventually(done, time.Second).Should(Receive(Equal(http.StatusOK)))
			Expect(do(s, http.MethodDelete, "/volume/delete", url.Values{"name": {"vol1"}}).Code).To(Equal(http.StatusOK))
		})
	})

	Context("metrics", func() {
		It("serves vdi stats", func() {
			rec := do(s, http.MethodGet, "/metrics", nil)
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring(`sheepdog_vdi_count{kind="snapshot"} 1`))
			Expect(rec.Body.String()).To(ContainSubstring(`sheepdog_scrape_collector_success{collector="vdi_stats"} 1`))
		})

		It("is absent without a collector", func() {
			s = NewServer(impl, nil, Options{})
			Expect(do(s, http.MethodGet, "/metrics", nil).Code).To(Equal(http.StatusNotFound))
			Expect(do(s, http.MethodGet, "/healthz", nil).Code).To(Equal(http.StatusOK))
		})
	})
})
