// Package report renders a commissioning report summarizing a completed
// Master.Init run: every registered subdevice with its state, working counters and
// jitter statistics, as a PDF with an embedded QR-coded topology
// fingerprint. Grounded on ch10gate's internal/report package
// (SaveAcceptancePDF, ManifestHashToQR); this package builds its input
// solely from the root package's public getters and is never called from
// the realtime send/receive path.
package report

import (
	"crypto/sha256"
	"fmt"
	"strings"

	"github.com/Pathorse/ihmc-ethercat-master"
)

// SubdeviceSummary is one row of the commissioned topology, independent
// of the ethercat package so this package stays a leaf in the import
// graph.
type SubdeviceSummary struct {
	Name        string
	Alias       uint16
	Position    uint16
	VendorId    uint32
	ProductCode uint32
	State       string
}

// Commissioning carries everything needed to render a report, assembled
// from a Master's public getters.
type Commissioning struct {
	Interface                string
	OverallState             string
	ExpectedWorkingCounter   int
	ActualWorkingCounter     int
	JitterEstimateNanos      int64
	JitterSamples            int64
	Subdevices               []SubdeviceSummary
}

// FromMaster builds a Commissioning snapshot from a live Master, using
// only its exported accessors.
func FromMaster(m *ethercat.Master) Commissioning {
	var subs []SubdeviceSummary
	for _, sd := range m.GetSubdevices() {
		subs = append(subs, SubdeviceSummary{
			Name:        sd.Name,
			Alias:       sd.Alias,
			Position:    sd.Position,
			VendorId:    sd.VendorId,
			ProductCode: sd.ProductCode,
			State:       sd.State().String(),
		})
	}
	return Commissioning{
		OverallState:           m.GetState().String(),
		ExpectedWorkingCounter: m.GetExpectedWorkingCounter(),
		ActualWorkingCounter:   m.GetActualWorkingCounter(),
		JitterEstimateNanos:    m.GetJitterEstimate(),
		JitterSamples:          m.GetJitterSamples(),
		Subdevices:             subs,
	}
}

// Fingerprint computes a stable hex digest of the commissioned topology,
// used both as the QR payload and as the report's identifying header.
func (c Commissioning) Fingerprint() string {
	h := sha256.New()
	for _, sd := range c.Subdevices {
		fmt.Fprintf(h, "%s|%d|%d|%x|%x;", sd.Name, sd.Alias, sd.Position, sd.VendorId, sd.ProductCode)
	}
	return strings.ToUpper(fmt.Sprintf("%x", h.Sum(nil))[:16])
}

// Save renders the commissioning report to a PDF at path, embedding a QR
// code of Fingerprint().
func Save(c Commissioning, path string) error {
	return savePDF(c, path)
}
