package export

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-pdf/fpdf"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/piwi3910/LaserCost/internal/model"
)

// LabelInfo holds the data encoded into each part label's QR code.
type LabelInfo struct {
	PartID     string  `json:"part"`
	InstanceID string  `json:"instance"`
	SheetIndex int     `json:"sheet"` // 1-based
	Quantity   int     `json:"qty"`
	Mode       string  `json:"timing"`
	UnitPriceA float64 `json:"unit_a"`
	UnitPriceB float64 `json:"unit_b"`
	Currency   string  `json:"currency,omitempty"`
}

// Label layout constants for Avery 5160-compatible labels (3 columns, 10 rows per page).
// Each label cell is approximately 66.7mm x 25.4mm on US Letter paper.
const (
	labelMarginTop  = 12.7 // mm
	labelMarginLeft = 4.8  // mm
	labelWidth      = 66.7 // mm per label
	labelHeight     = 25.4 // mm per label
	labelCols       = 3
	labelRows       = 10
	labelsPerPage   = labelCols * labelRows
	qrSize          = 20.0 // QR code size in mm
	labelPadding    = 2.0  // mm internal padding
)

// ExportCostLabels generates a PDF of QR-coded labels, one per costed part
// placement. Each label shows the part, its quantity and both unit prices; the
// QR code carries the same data as JSON.
func ExportCostLabels(path string, summary model.CostingSummary) error {
	labels := CollectLabelInfos(summary)
	if len(labels) == 0 {
		return fmt.Errorf("no costed parts to generate labels for")
	}

	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetAutoPageBreak(false, 0)

	for i, label := range labels {
		if i%labelsPerPage == 0 {
			pdf.AddPage()
		}

		posOnPage := i % labelsPerPage
		col := posOnPage % labelCols
		row := posOnPage / labelCols

		x := labelMarginLeft + float64(col)*labelWidth
		y := labelMarginTop + float64(row)*labelHeight

		if err := renderLabel(pdf, i, x, y, label); err != nil {
			return fmt.Errorf("failed to render label for %q: %w", label.PartID, err)
		}
	}

	return pdf.OutputFileAndClose(path)
}

// renderLabel draws a single label at the given position.
func renderLabel(pdf *fpdf.Fpdf, idx int, x, y float64, info LabelInfo) error {
	// Light border as cutting guide
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.1)
	pdf.Rect(x, y, labelWidth, labelHeight, "D")

	qrData, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("failed to marshal label info: %w", err)
	}

	qrPNG, err := qrcode.Encode(string(qrData), qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("failed to generate QR code: %w", err)
	}

	imgName := fmt.Sprintf("qr_%d", idx)
	pdf.RegisterImageOptionsReader(imgName, fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(qrPNG))

	qrX := x + labelWidth - qrSize - labelPadding
	qrY := y + (labelHeight-qrSize)/2
	pdf.ImageOptions(imgName, qrX, qrY, qrSize, qrSize, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")

	textX := x + labelPadding
	textW := labelWidth - qrSize - 3*labelPadding

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(textX, y+labelPadding)

	// Truncate label if too long
	partLabel := info.PartID
	if pdf.GetStringWidth(partLabel) > textW {
		for len(partLabel) > 0 && pdf.GetStringWidth(partLabel+"...") > textW {
			partLabel = partLabel[:len(partLabel)-1]
		}
		partLabel += "..."
	}
	pdf.CellFormat(textW, 4.5, partLabel, "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	pdf.SetXY(textX, y+labelPadding+5)
	pdf.CellFormat(textW, 3.5, fmt.Sprintf("Qty %d | Sheet %d", info.Quantity, info.SheetIndex), "", 1, "L", false, 0, "")

	pdf.SetXY(textX, y+labelPadding+9)
	pdf.CellFormat(textW, 3.5, "A: "+money(info.UnitPriceA, info.Currency), "", 1, "L", false, 0, "")
	pdf.SetXY(textX, y+labelPadding+12.5)
	pdf.CellFormat(textW, 3.5, "B: "+money(info.UnitPriceB, info.Currency), "", 1, "L", false, 0, "")

	if info.Mode != string(model.CostingDetailed) {
		pdf.SetXY(textX, y+labelPadding+16.5)
		pdf.SetFont("Helvetica", "I", 6)
		pdf.SetTextColor(150, 100, 0)
		pdf.CellFormat(textW, 3, "Timing: "+info.Mode, "", 0, "L", false, 0, "")
	}

	pdf.SetTextColor(0, 0, 0)
	return nil
}

// CollectLabelInfos extracts label information from a costing summary in
// sheet, then instance order.
func CollectLabelInfos(summary model.CostingSummary) []LabelInfo {
	parts := summary.Parts()
	labels := make([]LabelInfo, 0, len(parts))
	for _, p := range parts {
		labels = append(labels, LabelInfo{
			PartID:     p.PartID,
			InstanceID: p.InstanceID,
			SheetIndex: p.SheetIndex + 1,
			Quantity:   p.Quantity,
			Mode:       string(p.CostingMode),
			UnitPriceA: p.UnitPriceA,
			UnitPriceB: p.UnitPriceB,
			Currency:   summary.Currency,
		})
	}
	return labels
}
