// Package monitoring turns a running driver instance into a small web
// server, so an external debugger or a developer can inspect tracked
// base-address state, flush-engine internals, and attention bitmasks while
// the device keeps executing.
package monitoring

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"time"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/umd/cmdstream"
	"github.com/sarchlab/umd/debugtrack"
	"github.com/sarchlab/umd/hw"
)

// Monitor exposes driver state over HTTP for external inspection.
type Monitor struct {
	tracker    *debugtrack.ContextTracker
	geometry   hw.Geometry
	engines    []*cmdstream.FlushEngine
	portNumber int
}

// NewMonitor creates a new Monitor.
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n",
			portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterContextTracker registers the debug context tracker to serve from.
func (m *Monitor) RegisterContextTracker(t *debugtrack.ContextTracker) {
	m.tracker = t
}

// RegisterGeometry registers the hardware geometry used for attention
// bitmask queries.
func (m *Monitor) RegisterGeometry(g hw.Geometry) {
	m.geometry = g
}

// RegisterEngine registers a flush engine to be monitored.
func (m *Monitor) RegisterEngine(e *cmdstream.FlushEngine) {
	m.engines = append(m.engines, e)
}

// StartServer starts the monitor as a web server.
func (m *Monitor) StartServer() {
	r := mux.NewRouter()

	r.HandleFunc("/api/contexts", m.listContexts)
	r.HandleFunc("/api/context/{id}/sba", m.trackedAddresses)
	r.HandleFunc("/api/engines", m.listEngines)
	r.HandleFunc("/api/engine/{name}", m.engineDetails)
	r.HandleFunc("/api/attention/{json}", m.attentionBitmask)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	http.Handle("/", r)

	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	fmt.Fprintf(os.Stderr,
		"Monitoring driver state with http://localhost:%d\n",
		listener.Addr().(*net.TCPAddr).Port)

	go func() {
		err = http.Serve(listener, nil)
		dieOnErr(err)
	}()
}

func (m *Monitor) listContexts(w http.ResponseWriter, _ *http.Request) {
	fmt.Fprint(w, "[")
	for i, id := range m.tracker.ContextIDs() {
		if i > 0 {
			fmt.Fprint(w, ",")
		}

		fmt.Fprintf(w, "%d", id)
	}
	fmt.Fprint(w, "]")
}

func (m *Monitor) trackedAddresses(w http.ResponseWriter, r *http.Request) {
	idStr := mux.Vars(r)["id"]

	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	registered := false
	for _, ctxID := range m.tracker.ContextIDs() {
		if ctxID == uint32(id) {
			registered = true
		}
	}
	if !registered {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	sba := m.tracker.TrackedAddresses(uint32(id))

	bytes, err := json.Marshal(sba)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) listEngines(w http.ResponseWriter, _ *http.Request) {
	fmt.Fprint(w, "[")
	for i, e := range m.engines {
		if i > 0 {
			fmt.Fprint(w, ",")
		}

		fmt.Fprintf(w, "\"%s\"", e.Name())
	}
	fmt.Fprint(w, "]")
}

func (m *Monitor) engineDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	engine := m.findEngineOr404(w, name)
	if engine == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(engine)
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

type attentionReq struct {
	Slice    *uint32 `json:"slice,omitempty"`
	Subslice *uint32 `json:"subslice,omitempty"`
	EU       *uint32 `json:"eu,omitempty"`
	Thread   *uint32 `json:"thread,omitempty"`
}

func selector(v *uint32) uint32 {
	if v == nil {
		return debugtrack.All
	}

	return *v
}

func (m *Monitor) attentionBitmask(w http.ResponseWriter, r *http.Request) {
	jsonString := mux.Vars(r)["json"]
	req := attentionReq{}

	err := json.Unmarshal([]byte(jsonString), &req)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	bitmask := debugtrack.BuildThreadAttentionBitmask(
		selector(req.Slice), selector(req.Subslice),
		selector(req.EU), selector(req.Thread),
		m.geometry)

	fmt.Fprintf(w, "{\"size\":%d,\"bitmask\":\"%s\"}",
		len(bitmask), hex.EncodeToString(bitmask))
}

func (m *Monitor) findEngineOr404(
	w http.ResponseWriter,
	name string,
) *cmdstream.FlushEngine {
	var engine *cmdstream.FlushEngine
	for _, e := range m.engines {
		if e.Name() == name {
			engine = e
		}
	}

	if engine == nil {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("Engine not found"))
		dieOnErr(err)
	}

	return engine
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	rsp := resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	}

	bytes, err := json.Marshal(rsp)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	dieOnErr(err)

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	bytes, err := json.Marshal(prof)
	dieOnErr(err)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
