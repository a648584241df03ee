// Package simdriver provides an in-process BusDriver implementation with
// no real network I/O, grounded on the register-mapped AL status/control
// simulation in distributed-ecat/sim (L2Slave, ALStatusControl): each
// simulated subdevice tracks its own AL status, and a StateCheck poll moves
// it straight to the requested state; intermediate states are not
// reported. A fault injected with FailSlave is reported by the next poll.
package simdriver

import (
	"sync"
	"time"

	"github.com/Pathorse/ihmc-ethercat-master"
)

// Slave is a simulated subdevice definition supplied to New.
type Slave struct {
	Name          string
	Alias         uint16
	VendorId      uint32
	ProductCode   uint32
	OutputsLength uint16
	InputsLength  uint16
	SupportsCA    bool
}

type simSlave struct {
	def   Slave
	state ethercat.SubdeviceState
	// fault forces the next StateCheck to report StateFault once,
	// letting tests exercise the housekeeping recovery path.
	fault bool
}

// SimulatedDriver implements ethercat.BusDriver entirely in memory. Every
// method that touches simulated state holds its own mutex, so it does not
// rely on DriverGuard for its own consistency.
type SimulatedDriver struct {
	mu      sync.Mutex
	slaves  []*simSlave
	opened  bool
	dcTime  int64
	groups  ethercat.GroupInfo
	mapDone bool
}

// New constructs a SimulatedDriver with the given simulated subdevices,
// in wire order (slot 1..N).
func New(slaves ...Slave) *SimulatedDriver {
	d := &SimulatedDriver{}
	for _, s := range slaves {
		d.slaves = append(d.slaves, &simSlave{def: s, state: ethercat.StateOffline})
	}
	return d
}

// FailSlave marks slot (1-indexed) to report StateFault on its next
// StateCheck, simulating a dropout for recovery-path tests.
func (d *SimulatedDriver) FailSlave(slot int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if slot >= 1 && slot <= len(d.slaves) {
		d.slaves[slot-1].fault = true
	}
}

func (d *SimulatedDriver) SetupFastIRQ(iface string) (ethercat.FastIRQResult, error) {
	return ethercat.FastIRQOK, nil
}

func (d *SimulatedDriver) Open(iface string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opened = true
	return nil
}

func (d *SimulatedDriver) ScanAndEnterPreOp() (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range d.slaves {
		s.state = ethercat.StatePreOp
	}
	return len(d.slaves), nil
}

func (d *SimulatedDriver) ConfigureDC() (bool, error) {
	return true, nil
}

func (d *SimulatedDriver) SlaveCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.slaves)
}

func (d *SimulatedDriver) Slave(i int) ethercat.SlaveInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i < 1 || i > len(d.slaves) {
		return ethercat.SlaveInfo{}
	}
	s := d.slaves[i-1]
	sms := []ethercat.SyncManagerInfo{}
	if s.def.OutputsLength > 0 {
		sms = append(sms, ethercat.SyncManagerInfo{Length: s.def.OutputsLength, Type: ethercat.SMTypeOutputs})
	}
	if s.def.InputsLength > 0 {
		sms = append(sms, ethercat.SyncManagerInfo{Length: s.def.InputsLength, Type: ethercat.SMTypeInputs})
	}
	return ethercat.SlaveInfo{
		Name:         s.def.Name,
		Alias:        s.def.Alias,
		VendorId:     s.def.VendorId,
		ProductCode:  s.def.ProductCode,
		SyncManagers: sms,
		SupportsCA:   s.def.SupportsCA,
	}
}

func (d *SimulatedDriver) SetCoEDetailsCA(i int, enabled bool) {
	// No mailbox simulation; recorded implicitly via Slave(i).SupportsCA.
}

// StateCheck moves the targeted slot(s) directly to target and reports
// the resulting state, unless fault was requested via
// FailSlave, in which case it reports StateFault exactly once and clears
// the flag.
func (d *SimulatedDriver) StateCheck(i int, target ethercat.SubdeviceState, timeout time.Duration) ethercat.SubdeviceState {
	d.mu.Lock()
	defer d.mu.Unlock()

	if i == 0 {
		worst := ethercat.StateOp
		for idx := range d.slaves {
			s := d.advanceOneSlave(idx, target)
			if stateOrdinal(s) < stateOrdinal(worst) {
				worst = s
			}
		}
		return worst
	}

	if i < 1 || i > len(d.slaves) {
		return ethercat.StateOffline
	}
	return d.advanceOneSlave(i-1, target)
}

func (d *SimulatedDriver) advanceOneSlave(idx int, target ethercat.SubdeviceState) ethercat.SubdeviceState {
	s := d.slaves[idx]
	if s.fault {
		s.fault = false
		s.state = ethercat.StateFault
		return s.state
	}
	if s.state != target {
		s.state = target
	}
	return s.state
}

func (d *SimulatedDriver) RequestState(i int, target ethercat.SubdeviceState) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i == 0 {
		for _, s := range d.slaves {
			s.state = target
		}
		return nil
	}
	if i < 1 || i > len(d.slaves) {
		return ethercat.ErrIllegalArgument
	}
	d.slaves[i-1].state = target
	return nil
}

func (d *SimulatedDriver) ConfigMapGroup(image []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var outputs, inputs int
	for _, s := range d.slaves {
		outputs += int(s.def.OutputsLength)
		inputs += int(s.def.InputsLength)
	}
	required := outputs + inputs
	d.groups = ethercat.GroupInfo{OutputsWKC: len(d.slaves), InputsWKC: len(d.slaves)}
	if required > 0 {
		d.mapDone = true
	}
	return required, nil
}

func (d *SimulatedDriver) Groups() ethercat.GroupInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.groups
}

func (d *SimulatedDriver) SendProcessData() error {
	return nil
}

func (d *SimulatedDriver) ReceiveProcessData(timeout time.Duration) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dcTime += 1_000_000 // advance by one nominal 1ms cycle
	expected := d.groups.OutputsWKC*2 + d.groups.InputsWKC
	return expected, nil
}

func (d *SimulatedDriver) DCTime() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dcTime
}

// stateOrdinal mirrors ethercat.SubdeviceState's unexported progression
// order locally, since StateCheck(0, ...) needs to find the
// least-advanced slave without reaching into the root package's
// internals.
func stateOrdinal(s ethercat.SubdeviceState) int {
	switch s {
	case ethercat.StateInit:
		return 1
	case ethercat.StatePreOp:
		return 2
	case ethercat.StateBoot:
		return 3
	case ethercat.StateSafeOp:
		return 4
	case ethercat.StateOp:
		return 5
	default:
		return 0
	}
}

func (d *SimulatedDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.opened = false
	return nil
}
