package ethercat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSubdeviceMatchesRequiresAllFourFields(t *testing.T) {
	sd := NewSubdevice("io1", 1, 2, 0x10, 0x20)
	info := SlaveInfo{VendorId: 0x10, ProductCode: 0x20}

	assert.True(t, sd.matches(info, 1, 2))
	assert.False(t, sd.matches(info, 1, 3))
	assert.False(t, sd.matches(info, 9, 2))

	wrongProduct := SlaveInfo{VendorId: 0x10, ProductCode: 0x21}
	assert.False(t, sd.matches(wrongProduct, 1, 2))

	wrongVendor := SlaveInfo{VendorId: 0x11, ProductCode: 0x20}
	assert.False(t, sd.matches(wrongVendor, 1, 2))
}

func TestSubdeviceShutdownIsIdempotent(t *testing.T) {
	sd := NewSubdevice("io1", 1, 1, 0x10, 0x20)
	guard := NewDriverGuard(&noopDriver{})
	sd.slot = 1

	assert.NoError(t, sd.shutdown(guard))
	assert.Equal(t, StateShutdown, sd.State())

	// Second call is a no-op and must not error even if the driver would
	// now reject a repeat RequestState call.
	assert.NoError(t, sd.shutdown(guard))
}

func TestUpdateStateVariablesRefreshesObservedState(t *testing.T) {
	sd := NewSubdevice("io1", 1, 0, 0x10, 0x20)
	sd.slot = 1
	sd.setState(StateSafeOp)
	guard := NewDriverGuard(&stateReportingDriver{state: StateOp})

	sd.updateStateVariables(guard)
	assert.Equal(t, StateOp, sd.State())
}

func TestUpdateStateVariablesSkipsUnboundSubdevice(t *testing.T) {
	sd := NewSubdevice("io1", 1, 0, 0x10, 0x20)
	sd.setState(StateOffline)
	guard := NewDriverGuard(&stateReportingDriver{state: StateOp})

	sd.updateStateVariables(guard)
	assert.Equal(t, StateOffline, sd.State())
}

func TestImageCursorAllocatesNonOverlappingWindows(t *testing.T) {
	cursor := newImageCursor(100)
	out1 := cursor.allocateOutput(4)
	out2 := cursor.allocateOutput(2)
	in1 := cursor.allocateInput(4)

	assert.False(t, out1.overlaps(out2))
	assert.Equal(t, Window{Offset: 0, Length: 4}, out1)
	assert.Equal(t, Window{Offset: 4, Length: 2}, out2)
	assert.Equal(t, Window{Offset: 100, Length: 4}, in1)
}

// noopDriver is a minimal BusDriver stub for unit tests that only need
// RequestState/Close to succeed, without pulling in pkg/simdriver (which
// would create an import cycle from an internal _test.go file).
type noopDriver struct{}

func (noopDriver) SetupFastIRQ(iface string) (FastIRQResult, error) { return FastIRQOK, nil }
func (noopDriver) Open(iface string) error                          { return nil }
func (noopDriver) ScanAndEnterPreOp() (int, error)                   { return 0, nil }
func (noopDriver) ConfigureDC() (bool, error)                        { return false, nil }
func (noopDriver) SlaveCount() int                                   { return 0 }
func (noopDriver) Slave(i int) SlaveInfo                             { return SlaveInfo{} }
func (noopDriver) SetCoEDetailsCA(i int, enabled bool)               {}
func (noopDriver) StateCheck(i int, target SubdeviceState, timeout time.Duration) SubdeviceState {
	return target
}
func (noopDriver) RequestState(i int, target SubdeviceState) error          { return nil }
func (noopDriver) ConfigMapGroup(image []byte) (int, error)                 { return 0, nil }
func (noopDriver) Groups() GroupInfo                                       { return GroupInfo{} }
func (noopDriver) SendProcessData() error                                  { return nil }
func (noopDriver) ReceiveProcessData(timeout time.Duration) (int, error)   { return 0, nil }
func (noopDriver) DCTime() int64                                           { return 0 }
func (noopDriver) Close() error                                            { return nil }

// stateReportingDriver is a noopDriver variant whose StateCheck always
// reports a fixed state, regardless of the requested target, used to
// exercise updateStateVariables in isolation.
type stateReportingDriver struct {
	noopDriver
	state SubdeviceState
}

func (d *stateReportingDriver) StateCheck(i int, target SubdeviceState, timeout time.Duration) SubdeviceState {
	return d.state
}
