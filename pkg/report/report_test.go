package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprintIsStableForSameTopology(t *testing.T) {
	c := Commissioning{
		Subdevices: []SubdeviceSummary{
			{Name: "io1", Alias: 1, Position: 1, VendorId: 0x10, ProductCode: 0x20},
			{Name: "io2", Alias: 2, Position: 2, VendorId: 0x11, ProductCode: 0x21},
		},
	}
	assert.Equal(t, c.Fingerprint(), c.Fingerprint())
	assert.Len(t, c.Fingerprint(), 16)
}

func TestFingerprintChangesWithTopology(t *testing.T) {
	a := Commissioning{Subdevices: []SubdeviceSummary{{Name: "io1", Alias: 1}}}
	b := Commissioning{Subdevices: []SubdeviceSummary{{Name: "io2", Alias: 2}}}
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestTopologyFingerprintToQRRejectsEmpty(t *testing.T) {
	_, err := TopologyFingerprintToQR("", 0)
	assert.Error(t, err)
}

func TestTopologyFingerprintToQRProducesPNG(t *testing.T) {
	png, err := TopologyFingerprintToQR("DEADBEEF01234567", 64)
	assert.NoError(t, err)
	assert.NotEmpty(t, png)
}

func TestSaveWritesPDFFile(t *testing.T) {
	c := Commissioning{
		Interface:              "eth0",
		OverallState:           "OP",
		ExpectedWorkingCounter: 3,
		ActualWorkingCounter:   3,
		Subdevices: []SubdeviceSummary{
			{Name: "io1", Alias: 1, Position: 1, VendorId: 0x10, ProductCode: 0x20, State: "OP"},
		},
	}
	out := filepath.Join(t.TempDir(), "report.pdf")
	err := Save(c, out)
	assert.NoError(t, err)

	info, err := os.Stat(out)
	assert.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
