package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/piwi3910/LaserCost/internal/model"
)

// Workbook sheet names.
const (
	SheetVariantA = "Variant A"
	SheetVariantB = "Variant B"
	SheetParts    = "Parts"
	SheetJob      = "Job"
)

// ExportCostWorkbook writes the costing summary to an XLSX workbook with one
// worksheet per variant, one for the per-part breakdown and one for the job
// totals.
func ExportCostWorkbook(path string, summary model.CostingSummary) error {
	if len(summary.VariantA.Sheets) == 0 {
		return ErrNothingToExport
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetVariantA); err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	for _, name := range []string{SheetVariantB, SheetParts, SheetJob} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet: %w", err)
		}
	}

	var rowsA [][]any
	for _, s := range summary.VariantA.Sheets {
		rowsA = append(rowsA, []any{
			s.SheetIndex + 1, s.Material, s.Thickness, s.CostedArea / 1e6,
			s.CutLength, s.PierceCount, s.PunchCount,
			s.MaterialCost, s.CutCost, s.PierceCost, s.PunchCost, s.FoilCost, s.OperationalCost, s.Total,
		})
	}
	if err := writeTable(f, SheetVariantA, []string{
		"Sheet", "Material", "Thickness (mm)", "Costed Area (m²)",
		"Cut Length (m)", "Pierces", "Punches",
		"Material", "Cutting", "Piercing", "Punching", "Foil", "Operational", "Total",
	}, rowsA); err != nil {
		return err
	}

	var rowsB [][]any
	for _, s := range summary.VariantB.Sheets {
		rowsB = append(rowsB, []any{
			s.SheetIndex + 1, s.Material, s.Thickness,
			s.CutTime, s.RapidTime, s.PierceTime, s.PunchTime, s.FoilTime, s.BaseTime, s.BufferedTime,
			s.MaterialCost, s.LaserCost, s.OperationalCost, s.Total,
		})
	}
	if err := writeTable(f, SheetVariantB, []string{
		"Sheet", "Material", "Thickness (mm)",
		"Cut (s)", "Rapid (s)", "Pierce (s)", "Punch (s)", "Foil (s)", "Base (s)", "Buffered (s)",
		"Material", "Laser", "Operational", "Total",
	}, rowsB); err != nil {
		return err
	}

	var rowsP [][]any
	for _, p := range summary.Parts() {
		rowsP = append(rowsP, []any{
			p.SheetIndex + 1, p.PartID, p.InstanceID, p.Quantity, string(p.CostingMode),
			p.CutLength, p.MachineTime, p.CutShare, p.AreaShare,
			p.MaterialCost, p.OperationalCost, p.CutCost, p.PierceCost, p.PunchCost, p.FoilCost,
			p.TotalA, p.UnitPriceA, p.LaserCost, p.TotalB, p.UnitPriceB,
		})
	}
	if err := writeTable(f, SheetParts, []string{
		"Sheet", "Part", "Instance", "Qty", "Timing",
		"Cut Length (mm)", "Machine Time (s)", "Cut Share", "Area Share",
		"Material", "Operational", "Cutting", "Piercing", "Punching", "Foil",
		"Total A", "Unit A", "Laser", "Total B", "Unit B",
	}, rowsP); err != nil {
		return err
	}

	job := summary.JobCosts
	if err := writeTable(f, SheetJob, []string{"Item", "Value"}, [][]any{
		{"Currency", summary.Currency},
		{"Allocation Model", string(summary.AllocationModel)},
		{"Buffer Factor", summary.BufferFactor},
		{"Technology", job.Technology},
		{"Packaging", job.Packaging},
		{"Transport", job.Transport},
		{"Job Costs", job.Total},
		{"Total A", summary.VariantA.Total},
		{"Total B", summary.VariantB.Total},
	}); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save Excel file: %w", err)
	}
	return nil
}

// writeTable writes a bold header row followed by data rows.
func writeTable(f *excelize.File, sheet string, headers []string, rows [][]any) error {
	for col, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, header); err != nil {
			return fmt.Errorf("failed to write %s header: %w", sheet, err)
		}
	}
	for row, values := range rows {
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				return fmt.Errorf("failed to write %s row %d: %w", sheet, row+1, err)
			}
		}
	}

	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	last, _ := excelize.CoordinatesToCellName(len(headers), 1)
	return f.SetCellStyle(sheet, "A1", last, style)
}
