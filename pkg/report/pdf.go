package report

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/jung-kurt/gofpdf"
)

func savePDF(c Commissioning, out string) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("EtherCAT Commissioning Report", false)
	pdf.SetAuthor("ethercatctl", false)
	pdf.SetCreator("ethercatctl", false)
	pdf.SetMargins(15, 20, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	addTitle(pdf, "EtherCAT Commissioning Report")
	addSummarySection(pdf, c)
	addTopologySection(pdf, c.Subdevices)
	if err := addFingerprintQR(pdf, c.Fingerprint()); err != nil {
		return err
	}

	if pdf.Err() {
		return pdf.Error()
	}
	return pdf.OutputFileAndClose(out)
}

func addTitle(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, title)
	pdf.Ln(12)
}

func addSummarySection(pdf *gofpdf.Fpdf, c Commissioning) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Summary")
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 11)
	items := []struct {
		label string
		value string
	}{
		{label: "Overall State", value: c.OverallState},
		{label: "Expected Working Counter", value: strconv.Itoa(c.ExpectedWorkingCounter)},
		{label: "Actual Working Counter", value: strconv.Itoa(c.ActualWorkingCounter)},
		{label: "Jitter Estimate", value: fmt.Sprintf("%d ns", c.JitterEstimateNanos)},
		{label: "Jitter Samples", value: strconv.FormatInt(c.JitterSamples, 10)},
	}
	for _, item := range items {
		pdf.CellFormat(60, 6, item.label, "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, item.value, "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
}

func addTopologySection(pdf *gofpdf.Fpdf, subdevices []SubdeviceSummary) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Topology")
	pdf.Ln(9)

	headers := []string{"Name", "Alias", "Position", "Vendor", "Product", "State"}
	widths := []float64{50, 20, 22, 24, 24, 40}

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, sd := range subdevices {
		row := []string{
			sd.Name,
			strconv.Itoa(int(sd.Alias)),
			strconv.Itoa(int(sd.Position)),
			fmt.Sprintf("x%x", sd.VendorId),
			fmt.Sprintf("x%x", sd.ProductCode),
			sd.State,
		}
		for i, v := range row {
			pdf.CellFormat(widths[i], 6, v, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)
}

func addFingerprintQR(pdf *gofpdf.Fpdf, fingerprint string) error {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Topology Fingerprint: "+fingerprint)
	pdf.Ln(9)

	png, err := TopologyFingerprintToQR(fingerprint, 200)
	if err != nil {
		return err
	}
	imageOpts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
	pdf.RegisterImageOptionsReader("fingerprint-qr", imageOpts, bytes.NewReader(png))
	pdf.ImageOptions("fingerprint-qr", pdf.GetX(), pdf.GetY(), 30, 30, false, imageOpts, 0, "")
	pdf.Ln(34)
	return nil
}
