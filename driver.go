package ethercat

import (
	"sync"
	"time"
)

// SMType identifies the direction a sync-manager region serves. Only
// outputs (3) and inputs (4) contribute to process-image sizing; see
// spec §4.E step 5.
type SMType uint8

const (
	SMTypeUnused  SMType = 0
	SMTypeMailbox SMType = 1
	SMTypeOutputs SMType = 3
	SMTypeInputs  SMType = 4
)

// SyncManagerInfo describes one sync-manager region of a wire-discovered
// subdevice, as reported by the driver's slave record.
type SyncManagerInfo struct {
	StartAddress uint16
	Length       uint16
	Type         SMType
}

// SlaveInfo is the wire-discovered record for one subdevice slot, as
// returned by BusDriver.Slave. Field names mirror the generated SOEM
// bindings the original master read from (Aliasadr, Eep_man, Eep_id,
// CoEdetails) translated into idiomatic Go.
type SlaveInfo struct {
	Name         string
	Alias        uint16
	VendorId     uint32
	ProductCode  uint32
	SyncManagers []SyncManagerInfo
	SupportsCA   bool
	ALStatusCode uint16
}

// GroupInfo carries the driver's process-data group totals used to
// compute expectedWorkingCounter (spec §3, "Working counters").
type GroupInfo struct {
	OutputsWKC int
	InputsWKC  int
}

// FastIRQResult is the return code of BusDriver.SetupFastIRQ, per spec §6.
type FastIRQResult int

const (
	FastIRQOK                  FastIRQResult = 1
	FastIRQNotLinux            FastIRQResult = 10
	FastIRQNoPermission        FastIRQResult = 70
	FastIRQNoDriverInfo        FastIRQResult = 73
	FastIRQCannotReadCoalesce  FastIRQResult = 76
	FastIRQCannotWriteCoalesce FastIRQResult = 81
)

// BusDriver is the opaque datagram engine this package delegates to for
// everything out of scope per spec §1: raw socket I/O, bus scanning,
// state transitions, PDO mapping and mailbox access. A host provides a
// concrete implementation (real hardware) or uses the bundled
// pkg/simdriver implementation for tests and demos.
//
// BusDriver is not safe for concurrent use; DriverGuard is responsible
// for serializing calls across the realtime and housekeeping threads
// (spec §5).
type BusDriver interface {
	// SetupFastIRQ reduces NIC interrupt-coalescing latency on iface.
	SetupFastIRQ(iface string) (FastIRQResult, error)

	// Open binds the raw socket to iface.
	Open(iface string) error

	// ScanAndEnterPreOp enumerates subdevices and requests PRE-OP,
	// returning the wire slave count.
	ScanAndEnterPreOp() (slaveCount int, err error)

	// ConfigureDC asks whether the bus is distributed-clock capable and,
	// if so, activates DC.
	ConfigureDC() (capable bool, err error)

	// SlaveCount returns the number of slaves found by the last scan.
	SlaveCount() int

	// Slave returns the wire record for 1-indexed slot i.
	Slave(i int) SlaveInfo

	// SetCoEDetailsCA clears or sets the Complete-Access bit on slot i's
	// CoE details before any mailbox startup (spec §4.E step 5).
	SetCoEDetailsCA(i int, enabled bool)

	// StateCheck blocks up to timeout waiting for slot i (0 = whole bus)
	// to reach target, returning the state actually observed.
	StateCheck(i int, target SubdeviceState, timeout time.Duration) SubdeviceState

	// RequestState commands slot i (0 = whole bus) toward target. Used by
	// housekeeping to drive promotions and by shutdown to request INIT.
	RequestState(i int, target SubdeviceState) error

	// ConfigMapGroup lays out PDOs into image, returning the number of
	// bytes actually required (which may exceed len(image)).
	ConfigMapGroup(image []byte) (requiredBytes int, err error)

	// Groups returns the process-data group totals computed by the last
	// ConfigMapGroup.
	Groups() GroupInfo

	// SendProcessData transmits the current output image. May block
	// briefly on the raw socket.
	SendProcessData() error

	// ReceiveProcessData blocks up to timeout for the cyclic datagram,
	// returning the working counter or NO_FRAME.
	ReceiveProcessData(timeout time.Duration) (wkc int, err error)

	// DCTime returns the DC-master time of the most recently received
	// datagram, in nanoseconds.
	DCTime() int64

	// Close releases the socket and any driver context.
	Close() error
}

// DriverGuard serializes all BusDriver calls behind a single mutex so
// that the realtime cyclic thread (send/receive) and the housekeeping
// thread (runOnce) never enter the driver concurrently, per spec §5 and
// §9 ("do not call housekeeping concurrently with send/receive"). This is
// the "single lightweight mutex" option named there, chosen over a bare
// host-cooperation contract so the invariant holds even when a host
// accidentally races the two threads.
type DriverGuard struct {
	mu         sync.Mutex
	driver     BusDriver
	contention int64
}

func NewDriverGuard(driver BusDriver) *DriverGuard {
	return &DriverGuard{driver: driver}
}

// With runs fn with the driver lock held. Returns whatever fn returns.
func (g *DriverGuard) With(fn func(BusDriver) error) error {
	if !g.mu.TryLock() {
		g.contention++
		g.mu.Lock()
	}
	defer g.mu.Unlock()
	return fn(g.driver)
}

// Contention returns the number of With calls that had to block on an
// already-held lock, useful for diagnosing housekeeping stalling the
// realtime thread.
func (g *DriverGuard) Contention() int64 {
	return g.contention
}

// Driver returns the wrapped driver directly, bypassing the lock. Only
// safe for read-only diagnostic access from a single thread (e.g. tests).
func (g *DriverGuard) Driver() BusDriver {
	return g.driver
}
