package ethercat

import (
	"fmt"
	"sort"
	"time"
)

// stateCheckTimeout bounds how long Init waits for the bus to settle at
// each state transition, mirroring the original master's bounded
// statecheck polling loop.
const stateCheckTimeout = 3 * time.Second

// Init runs single-threaded before StartHousekeeping or the first
// Send/Receive call, so most of its driver calls go to the driver directly
// rather than through DriverGuard; DriverGuard only needs to serialize
// access once the realtime and housekeeping threads are both running.
//
// Init brings the bus from unopened to SAFE-OP, following the original
// master's eleven-step sequence:
//
//  1. reject a second concurrent Init (single-instance guard)
//  2. reduce NIC interrupt coalescing via SetupFastIRQ
//  3. open the raw socket on the configured interface
//  4. scan the bus and request PRE-OP
//  5. query distributed-clock capability and activate DC if requested
//  6. match every wire-discovered slave against a registered Subdevice,
//     clearing CoE Complete-Access on each bound slave that does not
//     support it
//  7. enforce requireAllSlaves if configured
//  8. size and allocate the process image from the driver's PDO mapping
//     requirement
//  9. map PDOs into the image and link each Subdevice's windows
//  10. wait for SAFE-OP, freeze the image
//  11. prime the first send/receive cycle, compute expectedWorkingCounter
//      and capture the DC start time
//
// Init never requests OP. Promotion past SAFE-OP is housekeeping's job,
// gated on working-counter agreement and (if DC is enabled) a settled
// jitter estimate, per runOnce.
//
// On any step failure Init closes the driver before returning the error,
// so the host can call Init again without calling Shutdown first.
func (m *Master) Init() error {
	if !masterInstanceActive.CompareAndSwap(false, true) {
		return ErrAlreadyInitialized
	}
	if m.initialized.Load() {
		masterInstanceActive.Store(false)
		return ErrAlreadyInitialized
	}

	if err := m.init(); err != nil {
		_ = m.driver.Close()
		masterInstanceActive.Store(false)
		return err
	}

	m.initialized.Store(true)
	return nil
}

func (m *Master) init() error {
	m.trace(TraceFastIRQ)
	if err := m.setupFastIRQ(); err != nil {
		return err
	}

	m.trace(TraceCreateContext)
	m.trace(TraceOpenInterface)
	if err := m.driver.Open(m.iface); err != nil {
		return fmt.Errorf("%w: %v", ErrInterfaceUnavailable, err)
	}

	m.trace(TraceInitializingSubdevices)
	wireCount, err := m.driver.ScanAndEnterPreOp()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrScanFailed, err)
	}

	if err := m.configureDC(); err != nil {
		return err
	}

	m.trace(TraceConfiguringSubdevices)
	if err := m.matchAndConfigureSubdevices(wireCount); err != nil {
		return err
	}

	m.trace(TraceWaitForPreOp)
	if state := m.driver.StateCheck(0, StatePreOp, stateCheckTimeout); state != StatePreOp {
		return &StateTransitionFailedError{Target: StatePreOp}
	}

	if err := m.allocateAndMapProcessImage(); err != nil {
		return err
	}

	m.trace(TraceLinkBuffers)
	m.linkAllBuffers()

	groups := m.driver.Groups()
	m.expectedWKC.Store(int64(groups.OutputsWKC*2 + groups.InputsWKC))
	m.notify(NotifyExpectedWorkingCounter, int(m.expectedWKC.Load()))

	if state := m.driver.StateCheck(0, StateSafeOp, stateCheckTimeout); state != StateSafeOp {
		return &StateTransitionFailedError{Target: StateSafeOp}
	}
	m.setMatchedSubdevicesState(StateSafeOp)
	m.image.Freeze()

	m.trace(TraceConfigureTxRx)
	if err := m.send(); err != nil {
		return err
	}
	if _, err := m.receiveSimple(); err != nil {
		return err
	}
	var dcTime int64
	if err := m.guard.With(func(d BusDriver) error {
		dcTime = d.DCTime()
		return nil
	}); err != nil {
		return err
	}
	m.startDcTime.Store(dcTime)

	m.trace(TraceConfigureComplete)
	return nil
}

// setMatchedSubdevicesState advances every wire-matched subdevice's
// logical state, used as Init drives the whole bus to SAFE-OP together
// (spec §4.E step 10). Housekeeping takes over per-subdevice tracking,
// including the gated push to OP, once Init returns.
func (m *Master) setMatchedSubdevicesState(state SubdeviceState) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, sd := range m.bySlot {
		sd.setState(state)
	}
}

func (m *Master) setupFastIRQ() error {
	result, _ := m.driver.SetupFastIRQ(m.iface)
	switch result {
	case FastIRQOK:
		return nil
	case FastIRQNotLinux:
		// Not running on Linux; coalescing tuning is unavailable but not fatal.
		return nil
	case FastIRQNoPermission:
		return fmt.Errorf("%w: setupFastIRQ", ErrPermissionDenied)
	case FastIRQNoDriverInfo, FastIRQCannotReadCoalesce, FastIRQCannotWriteCoalesce:
		// Driver coalescing could not be tuned; continue without it, as the
		// original master does for these codes.
		return nil
	default:
		return &InternalError{Code: int(result)}
	}
}

func (m *Master) configureDC() error {
	if !m.enableDCRequested {
		m.jitter.Reset()
		m.trace(TraceDCDisabled)
		return nil
	}
	capable, err := m.driver.ConfigureDC()
	if err != nil {
		return err
	}
	m.dcCapable = capable
	if !capable {
		m.notify(NotifyDCNotCapable, nil)
		m.jitter.Reset()
		m.trace(TraceDCDisabled)
		return nil
	}
	m.trace(TraceDCEnabled)
	return nil
}

// matchAndConfigureSubdevices binds every wire slot to its registered
// Subdevice by alias/position, clearing CoE Complete-Access on each bound
// slave that does not support it, per spec §4.E step 5. A registration at
// the computed (alias, position) whose vendor/product code differs from
// the wire record fails with IdentityMismatchError.
//
// Addressing follows the wire alias sequence, not the raw slot number: a
// device reporting alias 0, or the same alias as the previous device,
// carries the previous alias forward and bumps position; a new nonzero
// alias restarts position at 0. Grounded on Master.java's prevAlias /
// prevPosition carry loop.
func (m *Master) matchAndConfigureSubdevices(wireCount int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	matched := make(map[*Subdevice]bool, len(m.subdevices))
	var unconfigured []SubdeviceRef

	var prevWireAlias, prevAlias uint16
	prevPosition := -1

	for slot := 1; slot <= wireCount; slot++ {
		info := m.driver.Slave(slot)

		var wireAlias, wirePosition uint16
		if info.Alias != 0 && info.Alias != prevWireAlias {
			wireAlias, wirePosition = info.Alias, 0
		} else {
			wireAlias, wirePosition = prevAlias, uint16(prevPosition+1)
		}
		prevWireAlias, prevAlias, prevPosition = info.Alias, wireAlias, int(wirePosition)

		var found *Subdevice
		for _, sd := range m.subdevices {
			if matched[sd] {
				continue
			}
			if sd.matches(info, wireAlias, wirePosition) {
				found = sd
				break
			}
		}

		if found == nil {
			for _, sd := range m.subdevices {
				if !matched[sd] && sd.Alias == wireAlias && sd.Position == wirePosition {
					return &IdentityMismatchError{
						Alias: wireAlias, Position: wirePosition,
						ExpectedVendor: sd.VendorId, ExpectedProduct: sd.ProductCode,
						ActualVendor: info.VendorId, ActualProduct: info.ProductCode,
					}
				}
			}
			unconfigured = append(unconfigured, SubdeviceRef{
				Alias: wireAlias, Position: wirePosition,
				VendorId: info.VendorId, ProductCode: info.ProductCode,
			})
			m.notify(NotifyUnconfiguredSubdevice, SubdeviceRef{
				Alias: wireAlias, Position: wirePosition,
				VendorId: info.VendorId, ProductCode: info.ProductCode,
			})
			continue
		}

		matched[found] = true
		if err := found.configure(slot, info, m.guard, true); err != nil {
			return err
		}
		found.setState(StatePreOp)
		m.bySlot[slot] = found
	}

	var offline []SubdeviceRef
	for _, sd := range m.subdevices {
		if !matched[sd] {
			offline = append(offline, sd.ref())
			m.notify(NotifySubdeviceNotFound, sd.ref())
		}
	}

	if m.requireAllSlaves {
		switch {
		case len(offline) > 0:
			return &SubdevicesOfflineError{Missing: offline}
		case len(unconfigured) > 0:
			return &SubdevicesUnconfiguredError{Unconfigured: unconfigured}
		case wireCount != len(m.subdevices):
			return &SubdeviceCountMismatchError{Expected: len(m.subdevices), Actual: wireCount}
		}
	}

	return nil
}

func (m *Master) allocateAndMapProcessImage() error {
	m.trace(TraceAllocateProcessImage)
	probe := NewProcessImage(0)
	required, err := m.driver.ConfigMapGroup(probe.Bytes())
	if err != nil {
		return err
	}
	m.image = NewProcessImage(required)
	if mapped, err := m.driver.ConfigMapGroup(m.image.Bytes()); err != nil {
		return err
	} else if mapped > m.image.Size() {
		return &ProcessImageTooSmallError{Required: mapped, Allocated: m.image.Size()}
	}
	return nil
}

func (m *Master) linkAllBuffers() {
	m.mu.RLock()
	defer m.mu.RUnlock()

	slots := make([]int, 0, len(m.bySlot))
	for slot := range m.bySlot {
		slots = append(slots, slot)
	}
	sort.Ints(slots)

	cursor := newImageCursor(m.image.Size() / 2)
	for _, slot := range slots {
		sd := m.bySlot[slot]
		info := m.driver.Slave(slot)
		sd.linkBuffers(info, cursor)
	}
}
