// Package export renders costing results as quote PDFs, cost workbooks and
// QR-coded part labels.
package export

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-pdf/fpdf"

	"github.com/piwi3910/LaserCost/internal/model"
)

// ErrNothingToExport is returned when a summary has no sheets.
var ErrNothingToExport = errors.New("no sheets to export")

// partColor represents an RGB color for a part's cost share.
type partColor struct {
	R, G, B int
}

var partColors = []partColor{
	{R: 76, G: 175, B: 80},  // green
	{R: 33, G: 150, B: 243}, // blue
	{R: 255, G: 152, B: 0},  // orange
	{R: 156, G: 39, B: 176}, // purple
	{R: 0, G: 188, B: 212},  // cyan
	{R: 244, G: 67, B: 54},  // red
	{R: 255, G: 235, B: 59}, // yellow
	{R: 121, G: 85, B: 72},  // brown
}

// Page layout constants (A4 landscape in mm).
const (
	pageWidth    = 297.0
	pageHeight   = 210.0
	marginLeft   = 15.0
	marginRight  = 15.0
	marginTop    = 15.0
	marginBottom = 15.0
	headerHeight = 12.0
	contentWidth = pageWidth - marginLeft - marginRight
	diagramWidth = 80.0
	diagramTop   = marginTop + headerHeight + 8.0
	rowHeight    = 6.0
)

// ExportQuotePDF writes a quote document: one page per sheet with its costed
// area and both variant breakdowns, then a summary page with the totals and the
// per-part prices. nr supplies the sheet dimensions for the usage diagram and
// may be empty.
func ExportQuotePDF(path string, summary model.CostingSummary, nr model.NestingResult, reference string) error {
	sheets := summary.Sheets()
	if len(sheets) == 0 {
		return ErrNothingToExport
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(false, marginBottom)

	parts := summary.Parts()
	for i, sheet := range sheets {
		pdf.AddPage()
		var spec *model.NestedSheet
		if i < len(nr.Sheets) {
			spec = &nr.Sheets[i]
		}
		renderSheetPage(pdf, summary, sheet, spec, partsOnSheet(parts, i), reference)
	}

	pdf.AddPage()
	renderSummaryPage(pdf, summary, parts, reference)

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("failed to write quote PDF: %w", err)
	}
	return nil
}

func partsOnSheet(parts []model.PartCostBreakdown, sheet int) []model.PartCostBreakdown {
	var out []model.PartCostBreakdown
	for _, p := range parts {
		if p.SheetIndex == sheet {
			out = append(out, p)
		}
	}
	return out
}

// money formats an amount with the summary's currency.
func money(v float64, currency string) string {
	if currency == "" {
		return fmt.Sprintf("%.2f", v)
	}
	return fmt.Sprintf("%.2f %s", v, currency)
}

// renderSheetPage draws a single sheet's costing on the current PDF page.
func renderSheetPage(pdf *fpdf.Fpdf, summary model.CostingSummary, sheet model.SheetCostBreakdown, spec *model.NestedSheet, parts []model.PartCostBreakdown, reference string) {
	a, b := sheet.A, sheet.B
	cur := summary.Currency

	// Title
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetXY(marginLeft, marginTop)
	title := fmt.Sprintf("Sheet %d: %s %.1f mm", a.SheetIndex+1, a.Material, a.Thickness)
	if reference != "" {
		title = reference + " / " + title
	}
	pdf.CellFormat(contentWidth, headerHeight, title, "", 0, "L", false, 0, "")

	// Stats line
	pdf.SetFont("Helvetica", "", 10)
	pdf.SetXY(marginLeft, marginTop+headerHeight)
	stats := fmt.Sprintf("Parts: %d | Costed area: %.3f m² | Cut length: %.2f m | Pierces: %d | Machine time: %.0f s",
		len(parts), a.CostedArea/1e6, a.CutLength, a.PierceCount, b.BufferedTime)
	pdf.CellFormat(contentWidth, 5, stats, "", 0, "L", false, 0, "")

	diagramBottom := diagramTop
	if spec != nil {
		diagramBottom = drawSheetUsage(pdf, spec.SheetSpec, a.CostedArea, marginLeft, diagramTop)
	}

	tableX := marginLeft + diagramWidth + 10
	y := drawBreakdownTable(pdf, tableX, diagramTop, "Variant A (price list)", [][2]string{
		{"Material", money(a.MaterialCost, cur)},
		{"Cutting", money(a.CutCost, cur)},
		{"Piercing", money(a.PierceCost, cur)},
		{"Punching", money(a.PunchCost, cur)},
		{"Foil removal", money(a.FoilCost, cur)},
		{"Operational", money(a.OperationalCost, cur)},
		{"Total", money(a.Total, cur)},
	})
	drawBreakdownTable(pdf, tableX+95, diagramTop, "Variant B (machine time)", [][2]string{
		{"Material", money(b.MaterialCost, cur)},
		{"Cut / rapid time", fmt.Sprintf("%.1f / %.1f s", b.CutTime, b.RapidTime)},
		{"Pierce / punch time", fmt.Sprintf("%.1f / %.1f s", b.PierceTime, b.PunchTime)},
		{"Buffered time", fmt.Sprintf("%.1f s", b.BufferedTime)},
		{"Laser", money(b.LaserCost, cur)},
		{"Operational", money(b.OperationalCost, cur)},
		{"Total", money(b.Total, cur)},
	})

	y = math.Max(y, diagramBottom) + 8
	drawShareBar(pdf, parts, marginLeft, y, contentWidth)
	drawPartsLegend(pdf, parts, cur, y+10)
}

// drawSheetUsage draws the nominal sheet with its costed portion filled and
// returns the y coordinate below the drawing.
func drawSheetUsage(pdf *fpdf.Fpdf, spec model.SheetSpec, costedArea, x, y float64) float64 {
	if spec.Width <= 0 || spec.NominalLength <= 0 {
		return y
	}
	maxH := pageHeight - y - marginBottom - 50
	scale := math.Min(diagramWidth/spec.Width, maxH/spec.NominalLength)
	w := spec.Width * scale
	h := spec.NominalLength * scale

	// Nominal sheet
	pdf.SetFillColor(235, 235, 235)
	pdf.SetDrawColor(100, 100, 100)
	pdf.SetLineWidth(0.5)
	pdf.Rect(x, y, w, h, "FD")

	// Costed portion along the length
	costedH := math.Min(h, costedArea/spec.Width*scale)
	pdf.SetFillColor(176, 190, 197)
	pdf.SetLineWidth(0.2)
	pdf.Rect(x, y, w, costedH, "FD")

	if spec.UsedLengthY != nil && spec.Mode == model.SheetModeCutToLength {
		usedH := math.Min(h, *spec.UsedLengthY*scale)
		pdf.SetDrawColor(200, 0, 0)
		pdf.SetLineWidth(0.3)
		pdf.Line(x, y+usedH, x+w, y+usedH)
	}

	drawDimensionAnnotations(pdf, spec, x, y, w, h)
	return y + h + 6
}

// drawDimensionAnnotations adds width and length labels outside the sheet rectangle.
func drawDimensionAnnotations(pdf *fpdf.Fpdf, spec model.SheetSpec, x, y, w, h float64) {
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(80, 80, 80)

	widthLabel := fmt.Sprintf("%.0f mm", spec.Width)
	wLabelW := pdf.GetStringWidth(widthLabel)
	pdf.SetXY(x+(w-wLabelW)/2, y+h+1)
	pdf.CellFormat(wLabelW, 4, widthLabel, "", 0, "C", false, 0, "")

	lengthLabel := fmt.Sprintf("%.0f mm", spec.NominalLength)
	pdf.TransformBegin()
	pdf.TransformRotate(90, x-3, y+h/2)
	hLabelW := pdf.GetStringWidth(lengthLabel)
	pdf.SetXY(x-3-hLabelW/2, y+h/2-2)
	pdf.CellFormat(hLabelW, 4, lengthLabel, "", 0, "C", false, 0, "")
	pdf.TransformEnd()

	pdf.SetTextColor(0, 0, 0)
}

// drawBreakdownTable draws a two-column label/value table and returns the y
// coordinate below it. The last row is the total and is printed bold.
func drawBreakdownTable(pdf *fpdf.Fpdf, x, y float64, title string, rows [][2]string) float64 {
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetXY(x, y)
	pdf.CellFormat(90, 7, title, "", 0, "L", false, 0, "")
	y += 8

	for i, row := range rows {
		style := ""
		if i == len(rows)-1 {
			style = "B"
		}
		if i%2 == 0 {
			pdf.SetFillColor(245, 245, 245)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
		pdf.SetFont("Helvetica", style, 9)
		pdf.SetXY(x, y)
		pdf.CellFormat(45, rowHeight, row[0], "1", 0, "L", true, 0, "")
		pdf.CellFormat(40, rowHeight, row[1], "1", 0, "R", true, 0, "")
		y += rowHeight
	}
	return y
}

// drawShareBar draws one horizontal bar split by each part's share of the
// sheet's variant A total.
func drawShareBar(pdf *fpdf.Fpdf, parts []model.PartCostBreakdown, x, y, width float64) {
	total := 0.0
	for _, p := range parts {
		total += p.TotalA
	}
	if total <= 0 {
		return
	}

	pdf.SetDrawColor(30, 30, 30)
	pdf.SetLineWidth(0.2)
	for i, p := range parts {
		w := width * p.TotalA / total
		col := partColors[i%len(partColors)]
		pdf.SetFillColor(col.R, col.G, col.B)
		pdf.Rect(x, y, w, 6, "FD")
		x += w
	}
}

// drawPartsLegend renders a compact legend of the parts on the sheet with
// their unit prices.
func drawPartsLegend(pdf *fpdf.Fpdf, parts []model.PartCostBreakdown, currency string, startY float64) {
	if len(parts) == 0 {
		return
	}

	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetXY(marginLeft, startY)
	pdf.CellFormat(30, 4, "Parts:", "", 0, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	xPos := marginLeft + 32
	maxX := pageWidth - marginRight

	for i, p := range parts {
		col := partColors[i%len(partColors)]
		label := fmt.Sprintf("%s x%d (A %s / B %s)", p.PartID, p.Quantity, money(p.UnitPriceA, currency), money(p.UnitPriceB, currency))
		labelW := pdf.GetStringWidth(label) + 6

		// Wrap to next line if needed
		if xPos+labelW > maxX {
			startY += 5
			xPos = marginLeft
		}

		pdf.SetFillColor(col.R, col.G, col.B)
		pdf.Rect(xPos, startY+0.5, 3, 3, "F")

		pdf.SetXY(xPos+4, startY)
		pdf.CellFormat(labelW-4, 4, label, "", 0, "L", false, 0, "")

		xPos += labelW + 2
	}
}

// renderSummaryPage draws the final page with both variant totals, the job
// costs and the per-part price table.
func renderSummaryPage(pdf *fpdf.Fpdf, summary model.CostingSummary, parts []model.PartCostBreakdown, reference string) {
	cur := summary.Currency

	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetXY(marginLeft, marginTop)
	title := "Quote Summary"
	if reference != "" {
		title += ": " + reference
	}
	pdf.CellFormat(contentWidth, 10, title, "", 0, "L", false, 0, "")

	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.5)
	pdf.Line(marginLeft, marginTop+12, pageWidth-marginRight, marginTop+12)

	y := marginTop + 18

	summaryItems := []struct {
		label string
		value string
	}{
		{"Sheets", fmt.Sprintf("%d", len(summary.VariantA.Sheets))},
		{"Allocation model", string(summary.AllocationModel)},
		{"Time buffer", fmt.Sprintf("x%.2f", summary.BufferFactor)},
		{"Job costs", money(summary.JobCosts.Total, cur)},
		{"Total, variant A", money(summary.VariantA.Total, cur)},
		{"Total, variant B", money(summary.VariantB.Total, cur)},
	}

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range summaryItems {
		pdf.SetXY(marginLeft+5, y)
		pdf.CellFormat(60, 6, item.label+":", "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(40, 6, item.value, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		y += 7
	}

	y += 5

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(marginLeft, y)
	pdf.CellFormat(100, 7, "Part Prices", "", 0, "L", false, 0, "")
	y += 9

	colWidths := []float64{15, 55, 20, 25, 40, 40, 36, 36}
	headers := []string{"Sheet", "Part", "Qty", "Timing", "Total A", "Total B", "Unit A", "Unit B"}

	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	xPos := marginLeft
	for i, header := range headers {
		pdf.SetXY(xPos, y)
		pdf.CellFormat(colWidths[i], rowHeight, header, "1", 0, "C", true, 0, "")
		xPos += colWidths[i]
	}
	y += rowHeight

	pdf.SetFont("Helvetica", "", 9)
	for i, p := range parts {
		if y > pageHeight-marginBottom-10 {
			pdf.AddPage()
			y = marginTop
		}
		rowData := []string{
			fmt.Sprintf("%d", p.SheetIndex+1),
			p.PartID,
			fmt.Sprintf("%d", p.Quantity),
			string(p.CostingMode),
			money(p.TotalA, cur),
			money(p.TotalB, cur),
			money(p.UnitPriceA, cur),
			money(p.UnitPriceB, cur),
		}

		// Alternate row background
		if i%2 == 0 {
			pdf.SetFillColor(245, 245, 245)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}

		xPos = marginLeft
		for j, cell := range rowData {
			pdf.SetXY(xPos, y)
			pdf.CellFormat(colWidths[j], rowHeight, cell, "1", 0, "C", true, 0, "")
			xPos += colWidths[j]
		}
		y += rowHeight
	}

	flags := summary.Flags
	if flags.RateFallbacks > 0 || flags.MaterialFallbacks > 0 {
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(150, 100, 0)
		pdf.SetXY(marginLeft, pageHeight-marginBottom-6)
		note := fmt.Sprintf("Estimated prices: %d sheet(s) without a cutting rate entry, %d without a material entry.",
			flags.RateFallbacks, flags.MaterialFallbacks)
		pdf.CellFormat(contentWidth, 4, note, "", 0, "L", false, 0, "")
	}

	// Footer
	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.SetXY(marginLeft, pageHeight-marginBottom)
	pdf.CellFormat(contentWidth, 4, "Generated by LaserCost - Laser Cutting Quote Calculator", "", 0, "C", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
}
