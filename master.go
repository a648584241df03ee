package ethercat

import (
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

// DefaultReceiveTimeout is applied when the host never calls
// SetEtherCATReceiveTimeout, matching the original master's commented-out
// derivation resolved in favor of a fixed, documented default (spec §9
// Open Questions).
const DefaultReceiveTimeout = DefaultReceiveTimeoutMicros * time.Microsecond

// Master owns one EtherCAT bus: a single network interface, a BusDriver,
// the shared process image, and every registered Subdevice. Only one
// Master in the process may be initialized at a time, whatever its
// interface; an Init attempt while another Master is initialized fails
// with ErrAlreadyInitialized (spec §4.E step 1, mirroring the original's
// static `initialized` guard).
type Master struct {
	iface  string
	driver BusDriver
	guard  *DriverGuard

	mu         sync.RWMutex
	subdevices []*Subdevice
	bySlot     map[int]*Subdevice

	image *ProcessImage

	requireAllSlaves   bool
	enableDCRequested  bool
	dcCapable          bool
	recoveryDisabled   bool
	receiveTimeout     time.Duration
	maxExecutionJitter int64
	cycleTimeNanos     int64

	expectedWKC atomic.Int64
	actualWKC   atomic.Int64

	jitter JitterEstimator

	startDcTime atomic.Int64
	dcTime      atomic.Int64

	housekeepingStop chan struct{}
	housekeepingDone chan struct{}

	callback StatusCallback

	reportPath string

	initialized atomic.Bool
	shutdownMu  sync.Mutex
}

var masterInstanceActive atomic.Bool

// New constructs a Master bound to the given network interface and bus
// driver. Call configuration setters and RegisterSubdevice before Init.
func New(iface string, driver BusDriver) *Master {
	return &Master{
		iface:              iface,
		driver:             driver,
		guard:              NewDriverGuard(driver),
		bySlot:             make(map[int]*Subdevice),
		receiveTimeout:     DefaultReceiveTimeout,
		maxExecutionJitter: MAX_EXECUTION_JITTER_DEFAULT,
		callback:           NewLogStatusCallback(),
	}
}

// RegisterSubdevice adds sd to this Master's expected topology. Must be
// called before Init; registering after Init has no effect on the running
// bus.
func (m *Master) RegisterSubdevice(sd *Subdevice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.subdevices {
		if existing.Alias == sd.Alias && existing.Position == sd.Position {
			return &DuplicateRegistrationError{Alias: sd.Alias, Position: sd.Position}
		}
	}
	m.subdevices = append(m.subdevices, sd)
	return nil
}

// EnableDC requests distributed-clock activation with the given nominal
// cycle period, subject to the driver reporting bus-wide DC capability
// during Init (spec §4.E step 3, §6). Hosts that never call EnableDC run
// without DC; jitter tracking stays at zero.
func (m *Master) EnableDC(cycleNs int64) {
	m.enableDCRequested = true
	m.cycleTimeNanos = cycleNs
}

// SetRequireAllSlaves controls whether Init fails when the wire topology
// does not exactly match every registered Subdevice (spec §4.E step 6).
func (m *Master) SetRequireAllSlaves(require bool) {
	m.requireAllSlaves = require
}

// SetEtherCATReceiveTimeout overrides DefaultReceiveTimeout for
// ReceiveProcessData calls made by Receive.
func (m *Master) SetEtherCATReceiveTimeout(d time.Duration) {
	m.receiveTimeout = d
}

// SetMaximumExecutionJitter overrides MAX_EXECUTION_JITTER_DEFAULT, the
// jitter estimate threshold above which housekeeping withholds promotion
// to OP while DC is enabled.
func (m *Master) SetMaximumExecutionJitter(nanos int64) {
	m.maxExecutionJitter = nanos
}

// DisableRecovery prevents housekeeping from attempting to re-promote a
// subdevice that dropped out of OP back to OP; it will sit in FAULT
// instead (spec §4.G).
func (m *Master) DisableRecovery(disable bool) {
	m.recoveryDisabled = disable
}

// SetStatusCallback overrides the default logging StatusCallback. Must be
// called before Init to observe the lifecycle trace events.
func (m *Master) SetStatusCallback(cb StatusCallback) {
	m.callback = cb
}

// SetCommissioningReportPath records path on the Master. Master itself
// never reads it back: it neither renders nor writes a report; hosts
// build one with pkg/report (report.FromMaster, report.Save).
func (m *Master) SetCommissioningReportPath(path string) {
	m.reportPath = path
}

// GetState returns the lowest state, by SubdeviceState's ordinal
// progression, among the subdevices Init bound to a wire slot (spec §4.G).
// Registered subdevices never found on the wire do not count; with none
// bound it returns StateOffline.
func (m *Master) GetState() SubdeviceState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	min, bound := StateOffline, false
	for _, sd := range m.subdevices {
		if sd.slot == 0 {
			continue
		}
		if !bound || sd.State().less(min) {
			min, bound = sd.State(), true
		}
	}
	return min
}

// GetExpectedWorkingCounter returns outputsWKC*2 + inputsWKC, computed
// once at the end of Init (spec §4.E step 9).
func (m *Master) GetExpectedWorkingCounter() int {
	return int(m.expectedWKC.Load())
}

// GetActualWorkingCounter returns the working counter observed on the
// most recent successful Receive.
func (m *Master) GetActualWorkingCounter() int {
	return int(m.actualWKC.Load())
}

// GetDCTime returns the DC-master time of the most recent Receive, in
// nanoseconds since the DC epoch. Receive only records it while DC is
// enabled and the bus is DC-capable; otherwise it stays 0.
func (m *Master) GetDCTime() int64 {
	return m.dcTime.Load()
}

// GetStartDCTime returns the DC-master time captured at the end of Init,
// the reference instant for cycle scheduling (spec §4.E step 11).
func (m *Master) GetStartDCTime() int64 {
	return m.startDcTime.Load()
}

// GetJitterEstimate returns the current RFC 1889 jitter estimate in
// nanoseconds; always 0 if DC was never enabled.
func (m *Master) GetJitterEstimate() int64 {
	return m.jitter.Estimate()
}

// GetJitterSamples returns the number of cycles folded into the jitter
// estimate so far.
func (m *Master) GetJitterSamples() int64 {
	return m.jitter.Samples()
}

// GetSubdevices returns a snapshot slice of every registered subdevice.
func (m *Master) GetSubdevices() []*Subdevice {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Subdevice, len(m.subdevices))
	copy(out, m.subdevices)
	return out
}

// ProcessImage returns the shared process image, valid only after Init
// returns successfully.
func (m *Master) ProcessImage() *ProcessImage {
	return m.image
}

func (m *Master) trace(kind TraceEvent) {
	if m.callback != nil {
		m.callback.Trace(kind)
	}
	log.Debugf("[MASTER] trace %s", kind)
}

func (m *Master) notify(kind NotificationKind, payload any) {
	if m.callback != nil {
		m.callback.Notify(kind, payload)
	}
}
