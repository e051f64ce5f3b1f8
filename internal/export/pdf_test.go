package export

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/piwi3910/LaserCost/internal/costing"
	"github.com/piwi3910/LaserCost/internal/model"
)

// buildTestNesting creates a realistic two-sheet nesting for testing.
func buildTestNesting() model.NestingResult {
	side := model.NewPartPlacement("Side Panel", 240000, 230000, 2)
	side.ToolpathStats = &model.ToolpathStats{CutLength: 2100, PierceCount: 3, ContourCount: 3, ShortSegmentRatio: 0.05}
	top := model.NewPartPlacement("Top", 150000, 150000, 1)
	top.Segments = []model.MotionSegment{
		{Length: 500, StartAngle: model.Angle(0), EndAngle: model.Angle(0), ContourID: 1},
		{Length: 300, StartAngle: model.Angle(90), EndAngle: model.Angle(90), ContourID: 1},
		{Length: 500, StartAngle: model.Angle(180), EndAngle: model.Angle(180), ContourID: 1},
		{Length: 300, StartAngle: model.Angle(-90), EndAngle: model.Angle(-90), ContourID: 1},
	}
	spacer := model.NewPartPlacement("Spacer", 2500, 2000, 40)

	back := model.NewPartPlacement("Back Panel", 400000, 400000, 1)
	back.ToolpathStats = &model.ToolpathStats{CutLength: 2600, PierceCount: 1, ContourCount: 1, PunchCount: 4}

	return model.NestingResult{Sheets: []model.NestedSheet{
		{
			Material:  "S235",
			Thickness: 2,
			SheetSpec: model.SheetSpec{Width: 1500, NominalLength: 3000, Mode: model.SheetModeFixed},
			Parts:     []model.PartPlacement{side, top, spacer},
		},
		{
			Material:  "Unobtanium",
			Thickness: 4,
			SheetSpec: model.SheetSpec{Width: 1250, NominalLength: 2500, UsedLengthY: model.UsedLength(900), TrimMargin: 20, Mode: model.SheetModeCutToLength},
			Parts:     []model.PartPlacement{back},
		},
	}}
}

func buildTestSummary(t *testing.T) (model.CostingSummary, model.NestingResult) {
	t.Helper()
	nr := buildTestNesting()
	overrides := model.DefaultJobOverrides()
	overrides.IncludePunch = true
	overrides.PackagingCost = 40

	summary, err := costing.ComputeCosting(nr, overrides, model.DefaultPricingConfig(), model.AllocationOccupiedArea, 1.25)
	if err != nil {
		t.Fatalf("ComputeCosting returned error: %v", err)
	}
	return summary, nr
}

func TestExportQuotePDF_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quote.pdf")
	summary, nr := buildTestSummary(t)

	if err := ExportQuotePDF(path, summary, nr, "Q-2026-0042"); err != nil {
		t.Fatalf("ExportQuotePDF returned error: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("PDF file was not created: %v", err)
	}
	// 2 sheet pages + summary should be a reasonable size
	if info.Size() < 500 {
		t.Errorf("PDF file seems too small: %d bytes", info.Size())
	}
}

func TestExportQuotePDF_WithoutNesting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quote.pdf")
	summary, _ := buildTestSummary(t)

	if err := ExportQuotePDF(path, summary, model.NestingResult{}, ""); err != nil {
		t.Fatalf("ExportQuotePDF returned error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("PDF file was not created: %v", err)
	}
}

func TestExportQuotePDF_EmptySummary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.pdf")

	err := ExportQuotePDF(path, model.CostingSummary{}, model.NestingResult{}, "")
	if !errors.Is(err, ErrNothingToExport) {
		t.Fatalf("expected ErrNothingToExport, got %v", err)
	}
	if _, statErr := os.Stat(path); statErr == nil {
		t.Error("no file should be written for an empty summary")
	}
}

func TestExportQuotePDF_ManyParts(t *testing.T) {
	nr := buildTestNesting()
	for i := 0; i < 60; i++ {
		nr.Sheets[0].Parts = append(nr.Sheets[0].Parts, model.NewPartPlacement("Washer", 900, 700, 10))
	}
	summary, err := costing.ComputeCosting(nr, model.DefaultJobOverrides(), model.DefaultPricingConfig(), model.AllocationUtilizationFactor, 1)
	if err != nil {
		t.Fatalf("ComputeCosting returned error: %v", err)
	}

	path := filepath.Join(t.TempDir(), "long.pdf")
	if err := ExportQuotePDF(path, summary, nr, "long"); err != nil {
		t.Fatalf("ExportQuotePDF returned error: %v", err)
	}
}

func TestPartsOnSheet(t *testing.T) {
	summary, _ := buildTestSummary(t)
	parts := summary.Parts()

	if got := len(partsOnSheet(parts, 0)); got != 3 {
		t.Errorf("expected 3 parts on sheet 0, got %d", got)
	}
	if got := len(partsOnSheet(parts, 1)); got != 1 {
		t.Errorf("expected 1 part on sheet 1, got %d", got)
	}
	if got := len(partsOnSheet(parts, 5)); got != 0 {
		t.Errorf("expected no parts on sheet 5, got %d", got)
	}
}

func TestMoney(t *testing.T) {
	if got := money(12.5, "PLN"); got != "12.50 PLN" {
		t.Errorf("unexpected format %q", got)
	}
	if got := money(3, ""); got != "3.00" {
		t.Errorf("expected 3.00, got %q", got)
	}
}
