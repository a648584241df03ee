package ethercat

import "sync/atomic"

// SDODescriptor is a single CoE object-dictionary default applied to a
// Subdevice during configuration, before the bus leaves PRE-OP. Values are
// written through the BusDriver's mailbox machinery, which is out of
// scope for this package (spec §1); Subdevice only records intent.
type SDODescriptor struct {
	Index    uint16
	SubIndex uint8
	Value    []byte
}

// Subdevice is one EtherCAT slave registered with a Master before init().
// Identity (Alias/Position/VendorId/ProductCode) is supplied by the host
// and matched against the wire-discovered SlaveInfo during scan (spec
// §4.E step 4); everything else is populated as init() and housekeeping
// progress.
//
// observedState is read by any thread (Receive and housekeeping write,
// host code and the commissioning report read) and is therefore atomic rather than
// mutex-guarded, mirroring JitterEstimator's single-writer discipline.
type Subdevice struct {
	Name        string
	Alias       uint16
	Position    uint16
	VendorId    uint32
	ProductCode uint32

	OutputWindow Window
	InputWindow  Window

	dcEnabled    bool
	supportsCA   bool
	alStatusCode uint16
	descriptors  []SDODescriptor

	observedState atomic.Uint32
	shutdownDone  atomic.Bool

	slot int // 1-indexed wire slot assigned during scan, 0 until then
}

// NewSubdevice registers a subdevice identity. Call Master.RegisterSubdevice
// with the result before calling Master.Init.
func NewSubdevice(name string, alias, position uint16, vendorId, productCode uint32) *Subdevice {
	sd := &Subdevice{
		Name:        name,
		Alias:       alias,
		Position:    position,
		VendorId:    vendorId,
		ProductCode: productCode,
	}
	sd.observedState.Store(uint32(StateOffline))
	return sd
}

// AddSDODescriptor records a CoE default on the subdevice. Nothing in this
// package writes recorded descriptors to the device; configure does not
// apply them.
func (sd *Subdevice) AddSDODescriptor(index uint16, subIndex uint8, value []byte) {
	sd.descriptors = append(sd.descriptors, SDODescriptor{Index: index, SubIndex: subIndex, Value: value})
}

// State returns the subdevice's current logical state. Safe from any thread.
func (sd *Subdevice) State() SubdeviceState {
	return SubdeviceState(sd.observedState.Load())
}

func (sd *Subdevice) setState(s SubdeviceState) {
	sd.observedState.Store(uint32(s))
}

// updateStateVariables refreshes this subdevice's observed state from
// the driver's cached state record, called once per cycle from Receive
// (spec §4.B, §4.F). Unbound subdevices (never matched on the wire) have
// nothing to refresh. runOnce reads the state stored here and also
// overwrites it when it drives a transition.
func (sd *Subdevice) updateStateVariables(guard *DriverGuard) {
	if sd.slot == 0 {
		return
	}
	_ = guard.With(func(d BusDriver) error {
		sd.setState(d.StateCheck(sd.slot, sd.State(), 0))
		return nil
	})
}

// SupportsCA reports whether the wire-discovered slave advertises
// Complete-Access support, set during configure from SlaveInfo.SupportsCA.
func (sd *Subdevice) SupportsCA() bool {
	return sd.supportsCA
}

// ALStatusCode returns the AL status code last observed for this slave,
// nonzero only when the slave reported an error.
func (sd *Subdevice) ALStatusCode() uint16 {
	return sd.alStatusCode
}

// matches reports whether a wire-discovered slave's identity matches this
// registration, per spec §4.E step 4 (alias and position addressing).
func (sd *Subdevice) matches(info SlaveInfo, wireAlias, wirePosition uint16) bool {
	if sd.Alias != wireAlias || sd.Position != wirePosition {
		return false
	}
	return sd.VendorId == info.VendorId && sd.ProductCode == info.ProductCode
}

// configure binds this subdevice to its wire slot and sets the slot's CoE
// Complete-Access bit (enabled only when enableCA is true and the slave
// supports it). It does not write the recorded SDO descriptors. Called once
// per subdevice during init(), before the bus leaves PRE-OP (spec §4.E
// step 5).
func (sd *Subdevice) configure(slot int, info SlaveInfo, guard *DriverGuard, enableCA bool) error {
	sd.slot = slot
	sd.supportsCA = info.SupportsCA
	sd.alStatusCode = info.ALStatusCode

	return guard.With(func(d BusDriver) error {
		d.SetCoEDetailsCA(slot, enableCA && info.SupportsCA)
		return nil
	})
}

// linkBuffers assigns this subdevice's output/input windows into the
// shared process image, per spec §4.E step 8. Windows are derived from
// the slave's sync-manager regions reported at scan time.
func (sd *Subdevice) linkBuffers(info SlaveInfo, cursor *imageCursor) {
	for _, sm := range info.SyncManagers {
		switch sm.Type {
		case SMTypeOutputs:
			sd.OutputWindow = cursor.allocateOutput(int(sm.Length))
		case SMTypeInputs:
			sd.InputWindow = cursor.allocateInput(int(sm.Length))
		}
	}
}

// imageCursor hands out non-overlapping windows into a ProcessImage while
// linkBuffers runs across every subdevice in wire order, then is
// discarded; the image itself tracks nothing about ownership afterward.
type imageCursor struct {
	outputOffset int
	inputOffset  int
	inputBase    int
}

func newImageCursor(inputBase int) *imageCursor {
	return &imageCursor{inputBase: inputBase, inputOffset: inputBase}
}

func (c *imageCursor) allocateOutput(length int) Window {
	w := Window{Offset: c.outputOffset, Length: length}
	c.outputOffset += length
	return w
}

func (c *imageCursor) allocateInput(length int) Window {
	w := Window{Offset: c.inputOffset, Length: length}
	c.inputOffset += length
	return w
}

// shutdown requests INIT for this subdevice's wire slot, idempotently.
// Called from Master.shutdownSubdevices; a Subdevice may be asked to shut
// down more than once (spec §4.G), so repeat calls are no-ops.
func (sd *Subdevice) shutdown(guard *DriverGuard) error {
	if sd.shutdownDone.Swap(true) {
		return nil
	}
	if sd.slot == 0 {
		return nil
	}
	err := guard.With(func(d BusDriver) error {
		return d.RequestState(sd.slot, StateInit)
	})
	if err == nil {
		sd.setState(StateShutdown)
	}
	return err
}

func (sd *Subdevice) ref() SubdeviceRef {
	return SubdeviceRef{
		Alias:       sd.Alias,
		Position:    sd.Position,
		VendorId:    sd.VendorId,
		ProductCode: sd.ProductCode,
	}
}
