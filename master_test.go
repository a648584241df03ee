package ethercat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Pathorse/ihmc-ethercat-master"
	"github.com/Pathorse/ihmc-ethercat-master/pkg/simdriver"
)

func newTestMaster(t *testing.T, slaves ...simdriver.Slave) (*ethercat.Master, *simdriver.SimulatedDriver) {
	t.Helper()
	driver := simdriver.New(slaves...)
	m := ethercat.New("sim0", driver)
	return m, driver
}

// registerMatching registers one Subdevice per slave, computing each
// (alias, position) the same way matchAndConfigureSubdevices does: a new
// nonzero alias restarts position at 0, while alias 0 or a repeated
// alias carries the previous alias forward and bumps position.
func registerMatching(t *testing.T, m *ethercat.Master, slaves ...simdriver.Slave) {
	t.Helper()
	var prevWireAlias, prevAlias uint16
	prevPosition := -1
	for _, s := range slaves {
		var alias, position uint16
		if s.Alias != 0 && s.Alias != prevWireAlias {
			alias, position = s.Alias, 0
		} else {
			alias, position = prevAlias, uint16(prevPosition+1)
		}
		prevWireAlias, prevAlias, prevPosition = s.Alias, alias, int(position)

		sd := ethercat.NewSubdevice(s.Name, alias, position, s.VendorId, s.ProductCode)
		assert.NoError(t, m.RegisterSubdevice(sd))
	}
}

func TestInitSucceedsWhenTopologyMatches(t *testing.T) {
	slaves := []simdriver.Slave{
		{Name: "io1", Alias: 1, VendorId: 0x1, ProductCode: 0x1001, OutputsLength: 4, InputsLength: 4, SupportsCA: true},
	}
	m, _ := newTestMaster(t, slaves...)
	registerMatching(t, m, slaves...)

	err := m.Init()
	assert.NoError(t, err)
	assert.Equal(t, ethercat.StateSafeOp, m.GetState())
	assert.NoError(t, m.Shutdown())
}

// TestAliasRestartAddressing exercises the wire alias sequence [5, 5, 7, 0],
// which must compute addresses (5,0), (5,1), (7,0), (7,1): an alias repeat
// carries position forward, and a new nonzero alias restarts it at 0.
func TestAliasRestartAddressing(t *testing.T) {
	slaves := []simdriver.Slave{
		{Name: "a0", Alias: 5, VendorId: 0x1, ProductCode: 0x1001, OutputsLength: 2, InputsLength: 2},
		{Name: "a1", Alias: 5, VendorId: 0x1, ProductCode: 0x1002, OutputsLength: 2, InputsLength: 2},
		{Name: "b0", Alias: 7, VendorId: 0x1, ProductCode: 0x1003, OutputsLength: 2, InputsLength: 2},
		{Name: "b1", Alias: 0, VendorId: 0x1, ProductCode: 0x1004, OutputsLength: 2, InputsLength: 2},
	}
	m, _ := newTestMaster(t, slaves...)

	expected := []struct {
		alias, position uint16
	}{
		{5, 0}, {5, 1}, {7, 0}, {7, 1},
	}
	for i, s := range slaves {
		sd := ethercat.NewSubdevice(s.Name, expected[i].alias, expected[i].position, s.VendorId, s.ProductCode)
		assert.NoError(t, m.RegisterSubdevice(sd))
	}
	m.SetRequireAllSlaves(true)

	assert.NoError(t, m.Init())
	assert.NoError(t, m.Shutdown())
}

func TestInitFailsWhenRequiredSlaveOffline(t *testing.T) {
	slaves := []simdriver.Slave{
		{Name: "io1", Alias: 1, VendorId: 0x1, ProductCode: 0x1001, OutputsLength: 4, InputsLength: 4},
	}
	m, _ := newTestMaster(t, slaves...)
	registerMatching(t, m, slaves...)
	// Register a second subdevice never present on the wire.
	missing := ethercat.NewSubdevice("missing", 9, 0, 0x1, 0x9999)
	assert.NoError(t, m.RegisterSubdevice(missing))
	m.SetRequireAllSlaves(true)

	err := m.Init()
	assert.Error(t, err)
	var offlineErr *ethercat.SubdevicesOfflineError
	assert.ErrorAs(t, err, &offlineErr)
}

func TestInitToleratesMissingSlaveWhenNotRequired(t *testing.T) {
	slaves := []simdriver.Slave{
		{Name: "io1", Alias: 1, VendorId: 0x1, ProductCode: 0x1001, OutputsLength: 2, InputsLength: 2},
	}
	m, _ := newTestMaster(t, slaves...)
	registerMatching(t, m, slaves...)
	missing := ethercat.NewSubdevice("missing", 9, 0, 0x1, 0x9999)
	assert.NoError(t, m.RegisterSubdevice(missing))
	m.SetRequireAllSlaves(false)

	err := m.Init()
	assert.NoError(t, err)
	assert.NoError(t, m.Shutdown())
}

func TestExpectedWorkingCounterMatchesFormula(t *testing.T) {
	slaves := []simdriver.Slave{
		{Name: "io1", Alias: 1, VendorId: 0x1, ProductCode: 0x1001, OutputsLength: 2, InputsLength: 2},
		{Name: "io2", Alias: 2, VendorId: 0x1, ProductCode: 0x1002, OutputsLength: 2, InputsLength: 2},
	}
	m, driver := newTestMaster(t, slaves...)
	registerMatching(t, m, slaves...)

	assert.NoError(t, m.Init())
	groups := driver.Groups()
	assert.Equal(t, groups.OutputsWKC*2+groups.InputsWKC, m.GetExpectedWorkingCounter())
	assert.NoError(t, m.Shutdown())
}

func TestCyclicSendReceiveUpdatesActualWorkingCounter(t *testing.T) {
	slaves := []simdriver.Slave{
		{Name: "io1", Alias: 1, VendorId: 0x1, ProductCode: 0x1001, OutputsLength: 2, InputsLength: 2},
	}
	m, _ := newTestMaster(t, slaves...)
	registerMatching(t, m, slaves...)
	assert.NoError(t, m.Init())

	assert.NoError(t, m.Send())
	wkc, err := m.Receive()
	assert.NoError(t, err)
	assert.Equal(t, m.GetExpectedWorkingCounter(), wkc)
	assert.Equal(t, wkc, m.GetActualWorkingCounter())
	assert.NoError(t, m.Shutdown())
}

func TestDCDisabledKeepsJitterAtZero(t *testing.T) {
	slaves := []simdriver.Slave{
		{Name: "io1", Alias: 1, VendorId: 0x1, ProductCode: 0x1001, OutputsLength: 2, InputsLength: 2},
	}
	m, _ := newTestMaster(t, slaves...)
	registerMatching(t, m, slaves...)
	// DC left disabled: EnableDC is never called.
	assert.NoError(t, m.Init())

	assert.NoError(t, m.Send())
	_, err := m.Receive()
	assert.NoError(t, err)
	assert.EqualValues(t, 0, m.GetJitterEstimate())
	assert.EqualValues(t, 0, m.GetJitterSamples())
	assert.NoError(t, m.Shutdown())
}

func TestSecondShutdownReturnsError(t *testing.T) {
	slaves := []simdriver.Slave{
		{Name: "io1", Alias: 1, VendorId: 0x1, ProductCode: 0x1001, OutputsLength: 2, InputsLength: 2},
	}
	m, _ := newTestMaster(t, slaves...)
	registerMatching(t, m, slaves...)
	assert.NoError(t, m.Init())
	assert.NoError(t, m.Shutdown())
	assert.Error(t, m.Shutdown()) // second call: not initialized anymore
}

func TestShutdownSucceedsAfterInjectedFault(t *testing.T) {
	slaves := []simdriver.Slave{
		{Name: "io1", Alias: 1, VendorId: 0x1, ProductCode: 0x1001, OutputsLength: 2, InputsLength: 2},
	}
	m, driver := newTestMaster(t, slaves...)
	registerMatching(t, m, slaves...)
	assert.NoError(t, m.Init())

	driver.FailSlave(1)
	m.StartHousekeeping()
	// runOnce is exercised indirectly by StartHousekeeping's ticker in
	// production; here we just confirm Shutdown still tears down cleanly
	// after a fault was injected.
	assert.NoError(t, m.Shutdown())
}
