package costing

import (
	"context"
	"errors"
	"testing"

	"github.com/piwi3910/LaserCost/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testPricing prices a 1500x3000 sheet of TEST 1mm at exactly 500.
func testPricing() model.PricingConfig {
	return model.PricingConfig{
		Currency: "PLN",
		Rates: []model.CuttingRate{
			{Material: "TEST", Thickness: 1, CuttingPricePerMeter: 5, PierceCost: 0.3, PierceTime: 0.5, CuttingSpeed: 100, PunchCost: 0.1, PunchTime: 0.2},
		},
		Materials: []model.MaterialSpec{
			{Name: "TEST", Density: 1000, PricePerKg: 500.0 / 4.5},
		},
		FoilRemovalRate:         4,
		FoilRemovalTimePerM2:    40,
		MachineHourlyRate:       300,
		OperationalCostPerSheet: 15,
	}
}

func statsPart(id string, cutLength float64, pierces int, area float64, qty int) model.PartPlacement {
	return model.PartPlacement{
		PartID:       id,
		InstanceID:   id,
		OccupiedArea: area,
		NetArea:      area,
		Quantity:     qty,
		ToolpathStats: &model.ToolpathStats{
			CutLength:    cutLength,
			RapidLength:  1000,
			PierceCount:  pierces,
			ContourCount: pierces,
			OccupiedArea: area,
			NetArea:      area,
		},
	}
}

func testNesting() model.NestingResult {
	return model.NestingResult{Sheets: []model.NestedSheet{
		{
			Material:  "TEST",
			Thickness: 1,
			SheetSpec: model.SheetSpec{Width: 1500, NominalLength: 3000, Mode: model.SheetModeFixed},
			Parts: []model.PartPlacement{
				statsPart("bracket", 5000, 5, 200000, 1),
				statsPart("plate", 5000, 5, 400000, 1),
			},
		},
	}}
}

func testOverrides() model.JobOverrides {
	return model.JobOverrides{
		TechnologyCost:  100,
		PackagingCost:   20,
		TransportCost:   30,
		IncludePiercing: true,
	}
}

// ─── Allocation Tests ────────────────────────────────────

func allocationParts() []model.PartPlacement {
	return []model.PartPlacement{
		{PartID: "a", OccupiedArea: 100000, Quantity: 2},
		{PartID: "b", OccupiedArea: 200000, Quantity: 1},
		{PartID: "c", OccupiedArea: 50000, Quantity: 4},
	}
}

func TestAllocateOccupiedArea_WorkedExample(t *testing.T) {
	shares := AllocateOccupiedArea(500, allocationParts())
	require.Len(t, shares, 3)

	sum := 0.0
	for _, s := range shares {
		assert.InDelta(t, 166.67, s, 0.005)
		sum += s
	}
	assert.InDelta(t, 500.0, sum, 1e-9)
}

func TestAllocateOccupiedArea_ZeroArea(t *testing.T) {
	parts := []model.PartPlacement{{OccupiedArea: 0, Quantity: 3}, {OccupiedArea: 100, Quantity: 0}}
	assert.Equal(t, []float64{0, 0}, AllocateOccupiedArea(500, parts))
}

func TestAllocateOccupiedArea_SumsToSheetCost(t *testing.T) {
	parts := []model.PartPlacement{
		{OccupiedArea: 1234.5, Quantity: 3},
		{OccupiedArea: 0.1, Quantity: 97},
		{OccupiedArea: 987654.3, Quantity: 1},
		{OccupiedArea: 42, Quantity: 11},
	}
	sum := 0.0
	for _, s := range AllocateOccupiedArea(731.13, parts) {
		sum += s
	}
	assert.InDelta(t, 731.13, sum, 1e-9)
}

func TestAllocateUtilizationFactor(t *testing.T) {
	tn := DefaultTuning()

	// 600000 of 1000000 mm² used: utilization 0.6
	shares := tn.AllocateUtilizationFactor(500, 1e6, allocationParts())
	for _, s := range shares {
		assert.InDelta(t, 166.67, s, 0.005)
	}

	// Utilization 0.006 is floored at 0.01, so shares no longer add up to the sheet cost.
	shares = tn.AllocateUtilizationFactor(500, 1e8, allocationParts())
	sum := 0.0
	for _, s := range shares {
		sum += s
	}
	assert.InDelta(t, 300.0, sum, 1e-9)

	assert.Equal(t, []float64{0, 0, 0}, tn.AllocateUtilizationFactor(500, 0, allocationParts()))
}

func TestAllocate_UnknownModel(t *testing.T) {
	_, err := Allocate("by_weight", 500, 1e6, allocationParts())
	assert.True(t, errors.Is(err, model.ErrUnknownAllocationModel))
}

func TestMaterialCost(t *testing.T) {
	cost, ok := MaterialCost(testPricing(), "TEST", 1, 1500*3000)
	assert.True(t, ok)
	assert.InDelta(t, 500.0, cost, 1e-9)

	cost, ok = MaterialCost(testPricing(), "Unobtainium", 2, 1e6)
	assert.False(t, ok)
	assert.InDelta(t, 2*model.FallbackMaterialPricePerM2PerMM, cost, 1e-9)

	cost, _ = MaterialCost(testPricing(), "TEST", 1, 0)
	assert.Equal(t, 0.0, cost)
}

// ─── Compute Costing Tests ────────────────────────────────────

func TestComputeCosting_EndToEnd(t *testing.T) {
	summary, err := ComputeCosting(testNesting(), testOverrides(), testPricing(), model.AllocationOccupiedArea, 1.25)
	require.NoError(t, err)
	require.Len(t, summary.VariantA.Sheets, 1)
	require.Len(t, summary.VariantB.Sheets, 1)

	a := summary.VariantA.Sheets[0]
	assert.InDelta(t, 500.0, a.MaterialCost, 1e-9)
	assert.InDelta(t, 10.0, a.CutLength, 1e-9)
	assert.InDelta(t, 50.0, a.CutCost, 1e-9)
	assert.Equal(t, 10, a.PierceCount)
	assert.InDelta(t, 3.0, a.PierceCost, 1e-9)
	assert.InDelta(t, 500+50+3+15, a.Total, 1e-9)

	b := summary.VariantB.Sheets[0]
	assert.InDelta(t, 5.0, b.PierceTime, 1e-9)
	assert.Positive(t, b.RapidTime)
	assert.InDelta(t, b.CutTime+b.PierceTime, b.BaseTime, 1e-9)
	assert.InDelta(t, b.BaseTime*1.25/3600*300, b.LaserCost, 1e-9)
	assert.InDelta(t, 500+b.LaserCost+15, b.Total, 1e-9)

	assert.InDelta(t, 150.0, summary.JobCosts.Total, 1e-9)
	assert.InDelta(t, a.Total+150, summary.VariantA.Total, 1e-9)
	assert.InDelta(t, b.Total+150, summary.VariantB.Total, 1e-9)
	assert.Equal(t, model.AllocationOccupiedArea, summary.AllocationModel)
	assert.Equal(t, 1.25, summary.BufferFactor)
	assert.Equal(t, 2, summary.Flags.HeuristicParts)
}

func TestComputeCosting_BufferRaisesLaserCost(t *testing.T) {
	buffered, err := ComputeCosting(testNesting(), testOverrides(), testPricing(), model.AllocationOccupiedArea, 1.25)
	require.NoError(t, err)
	raw, err := ComputeCosting(testNesting(), testOverrides(), testPricing(), model.AllocationOccupiedArea, 1.0)
	require.NoError(t, err)

	bb, rb := buffered.VariantB.Sheets[0], raw.VariantB.Sheets[0]
	assert.Equal(t, rb.BaseTime, bb.BaseTime)
	assert.Greater(t, bb.LaserCost, rb.LaserCost)
	assert.InDelta(t, rb.LaserCost*1.25, bb.LaserCost, 1e-9)

	// Variant A does not depend on the buffer.
	assert.Equal(t, raw.VariantA.Total, buffered.VariantA.Total)
}

func TestComputeCosting_RapidTimeNotBilledByDefault(t *testing.T) {
	summary, err := ComputeCosting(testNesting(), model.JobOverrides{}, testPricing(), model.AllocationOccupiedArea, 1.25)
	require.NoError(t, err)

	b := summary.VariantB.Sheets[0]
	assert.Positive(t, b.RapidTime)
	assert.Zero(t, b.PierceTime)
	assert.Zero(t, b.FoilTime)
	assert.Equal(t, b.CutTime, b.BaseTime)
	assert.False(t, summary.Flags.IncludeRapidTime)

	billed, err := ComputeCosting(testNesting(), model.JobOverrides{IncludeRapidTime: true}, testPricing(), model.AllocationOccupiedArea, 1.25)
	require.NoError(t, err)
	bb := billed.VariantB.Sheets[0]
	assert.InDelta(t, b.CutTime+b.RapidTime, bb.BaseTime, 1e-9)
	assert.InDelta(t, b.RapidTime*1.25/3600*300, bb.LaserCost-b.LaserCost, 1e-9)
	assert.True(t, billed.Flags.IncludeRapidTime)
	assert.Equal(t, summary.VariantA.Total, billed.VariantA.Total)
}

func TestComputeCosting_ZeroThicknessSheetIsNotFree(t *testing.T) {
	nr := model.NestingResult{Sheets: []model.NestedSheet{{
		Material:  "X",
		SheetSpec: model.SheetSpec{Width: 1000, NominalLength: 1000, Mode: model.SheetModeFixed},
		Parts:     []model.PartPlacement{statsPart("blank", 4000, 1, 250000, 1)},
	}}}
	summary, err := ComputeCosting(nr, model.DefaultJobOverrides(), testPricing(), model.AllocationOccupiedArea, 1.25)
	require.NoError(t, err)

	a := summary.VariantA.Sheets[0]
	assert.False(t, a.MaterialFromTable)
	assert.InDelta(t, model.FallbackMinThickness*model.FallbackMaterialPricePerM2PerMM, a.MaterialCost, 1e-9)
	assert.Equal(t, 1, summary.Flags.MaterialFallbacks)
}

func TestComputeCosting_DefaultBufferFactor(t *testing.T) {
	summary, err := ComputeCosting(testNesting(), testOverrides(), testPricing(), model.AllocationOccupiedArea, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultBufferFactor, summary.BufferFactor)
}

func TestComputeCosting_Idempotent(t *testing.T) {
	nr := testNesting()
	first, err := ComputeCosting(nr, testOverrides(), testPricing(), model.AllocationOccupiedArea, 1.25)
	require.NoError(t, err)
	second, err := ComputeCosting(nr, testOverrides(), testPricing(), model.AllocationOccupiedArea, 1.25)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, testNesting(), nr, "input must not be modified")
}

func TestComputeCosting_WorkerCountDoesNotChangeResult(t *testing.T) {
	nr := testNesting()
	for i := 0; i < 6; i++ {
		sheet := testNesting().Sheets[0]
		sheet.Thickness = float64(1 + i%3)
		nr.Sheets = append(nr.Sheets, sheet)
	}

	serial, err := NewService(model.DefaultMachineProfile(), WithWorkers(1)).
		ComputeCosting(context.Background(), nr, testOverrides(), testPricing(), model.AllocationOccupiedArea, 1.25)
	require.NoError(t, err)
	parallel, err := NewService(model.DefaultMachineProfile(), WithWorkers(8)).
		ComputeCosting(context.Background(), nr, testOverrides(), testPricing(), model.AllocationOccupiedArea, 1.25)
	require.NoError(t, err)

	assert.Equal(t, serial, parallel)
	assert.Len(t, parallel.VariantA.Sheets, 7)
	for i, s := range parallel.VariantA.Sheets {
		assert.Equal(t, i, s.SheetIndex)
	}
}

func TestComputeCosting_PartsSumToSheetTotals(t *testing.T) {
	ov := testOverrides()
	ov.IncludeFoilRemoval = true
	summary, err := ComputeCosting(testNesting(), ov, testPricing(), model.AllocationOccupiedArea, 1.25)
	require.NoError(t, err)

	var sumA, sumB, sumMaterial float64
	for _, p := range summary.PerPart {
		sumA += p.TotalA
		sumB += p.TotalB
		sumMaterial += p.MaterialCost
	}
	assert.InDelta(t, summary.VariantA.Sheets[0].Total, sumA, 1e-9)
	assert.InDelta(t, summary.VariantB.Sheets[0].Total, sumB, 1e-9)
	assert.InDelta(t, 500.0, sumMaterial, 1e-9)

	// Material follows occupied area (1:2), cutting follows cut length (1:1).
	bracket := summary.PerPart["bracket"]
	plate := summary.PerPart["plate"]
	assert.InDelta(t, 500.0/3, bracket.MaterialCost, 1e-9)
	assert.InDelta(t, 1000.0/3, plate.MaterialCost, 1e-9)
	assert.InDelta(t, 25.0, bracket.CutCost, 1e-9)
	assert.InDelta(t, 25.0, plate.CutCost, 1e-9)
	assert.InDelta(t, bracket.TotalA, bracket.UnitPriceA, 1e-9)
}

func TestComputeCosting_OptionalOperations(t *testing.T) {
	nr := testNesting()
	nr.Sheets[0].Parts[0].ToolpathStats.PunchCount = 4

	ov := testOverrides()
	ov.IncludePiercing = false
	ov.IncludeFoilRemoval = true
	ov.IncludePunch = true
	ov.OperationalCostPerSheet = model.Cost(0)

	summary, err := ComputeCosting(nr, ov, testPricing(), model.AllocationOccupiedArea, 1.25)
	require.NoError(t, err)

	a := summary.VariantA.Sheets[0]
	assert.Equal(t, 0.0, a.PierceCost)
	assert.InDelta(t, 0.4, a.PunchCost, 1e-9)
	assert.InDelta(t, 4.5*4, a.FoilCost, 1e-9)
	assert.Equal(t, 0.0, a.OperationalCost)
	assert.InDelta(t, 500+50+0.4+18, a.Total, 1e-9)

	b := summary.VariantB.Sheets[0]
	assert.Equal(t, 0.0, b.PierceTime)
	assert.InDelta(t, 0.8, b.PunchTime, 1e-9)
	assert.InDelta(t, 180.0, b.FoilTime, 1e-9)
}

func TestComputeCosting_TrimmedSheet(t *testing.T) {
	nr := testNesting()
	nr.Sheets[0].Mode = model.SheetModeCutToLength
	nr.Sheets[0].UsedLengthY = model.UsedLength(2000)
	nr.Sheets[0].TrimMargin = 10

	summary, err := ComputeCosting(nr, testOverrides(), testPricing(), model.AllocationOccupiedArea, 1.25)
	require.NoError(t, err)
	assert.InDelta(t, 1500.0*2010, summary.VariantA.Sheets[0].CostedArea, 1e-6)
	assert.InDelta(t, 500.0*2010/3000, summary.VariantA.Sheets[0].MaterialCost, 1e-9)
}

func TestComputeCosting_FallbackPricing(t *testing.T) {
	nr := testNesting()
	nr.Sheets[0].Material = "Unobtainium"

	summary, err := ComputeCosting(nr, testOverrides(), testPricing(), model.AllocationOccupiedArea, 1.25)
	require.NoError(t, err)

	a := summary.VariantA.Sheets[0]
	assert.False(t, a.RateFromTable)
	assert.False(t, a.MaterialFromTable)
	assert.Greater(t, a.CutCost, 0.0)
	assert.Greater(t, a.MaterialCost, 0.0)
	assert.Equal(t, 1, summary.Flags.RateFallbacks)
	assert.Equal(t, 1, summary.Flags.MaterialFallbacks)
}

func TestComputeCosting_UniquePartKeys(t *testing.T) {
	nr := testNesting()
	nr.Sheets[0].Parts = append(nr.Sheets[0].Parts,
		statsPart("bracket", 100, 1, 1000, 1),
		model.PartPlacement{PartID: "anon", OccupiedArea: 1000, Quantity: 2},
	)

	summary, err := ComputeCosting(nr, testOverrides(), testPricing(), model.AllocationOccupiedArea, 1.25)
	require.NoError(t, err)
	require.Len(t, summary.PerPart, 4)
	assert.Contains(t, summary.PerPart, "bracket")
	assert.Contains(t, summary.PerPart, "bracket-2")
	assert.Contains(t, summary.PerPart, "s0-p3")
	assert.Equal(t, model.CostingNone, summary.PerPart["s0-p3"].CostingMode)
	assert.Equal(t, 1, summary.Flags.UntimedParts)

	parts := summary.Parts()
	require.Len(t, parts, 4)
	assert.Equal(t, "bracket", parts[0].InstanceID)
}

func TestComputeCosting_DetailedSegments(t *testing.T) {
	nr := testNesting()
	nr.Sheets[0].Parts[0].Segments = []model.MotionSegment{
		{Length: 100, StartAngle: model.Angle(0), EndAngle: model.Angle(0), ContourID: 1},
	}

	summary, err := ComputeCosting(nr, testOverrides(), testPricing(), model.AllocationOccupiedArea, 1.25)
	require.NoError(t, err)
	assert.Equal(t, model.CostingDetailed, summary.PerPart["bracket"].CostingMode)
	assert.Equal(t, 1, summary.Flags.DetailedParts)
	assert.Equal(t, 1, summary.Flags.HeuristicParts)
	assert.InDelta(t, 5.1, summary.VariantA.Sheets[0].CutLength, 1e-9)
}

func TestComputeCosting_Errors(t *testing.T) {
	_, err := ComputeCosting(testNesting(), testOverrides(), testPricing(), "by_weight", 1.25)
	assert.True(t, errors.Is(err, model.ErrUnknownAllocationModel))

	nr := testNesting()
	nr.Sheets[0].Width = -1
	_, err = ComputeCosting(nr, testOverrides(), testPricing(), model.AllocationOccupiedArea, 1.25)
	assert.True(t, errors.Is(err, model.ErrInvalidSheet))
	assert.Contains(t, err.Error(), "sheet 0")

	nr = testNesting()
	nr.Sheets[0].Mode = "coil"
	_, err = ComputeCosting(nr, testOverrides(), testPricing(), model.AllocationOccupiedArea, 1.25)
	assert.True(t, errors.Is(err, model.ErrInvalidSheet))
	assert.True(t, errors.Is(err, model.ErrUnknownSheetMode))
}

func TestComputeCosting_EmptyNesting(t *testing.T) {
	summary, err := ComputeCosting(model.NestingResult{}, testOverrides(), testPricing(), "", 1.25)
	require.NoError(t, err)
	assert.Equal(t, model.AllocationOccupiedArea, summary.AllocationModel)
	assert.InDelta(t, 150.0, summary.VariantA.Total, 1e-9)
	assert.InDelta(t, 150.0, summary.VariantB.Total, 1e-9)
	assert.Empty(t, summary.PerPart)
}

// ─── Scenario Comparison Tests ────────────────────────────────────

func TestBuildDefaultScenarios(t *testing.T) {
	scenarios := BuildDefaultScenarios(Scenario{Overrides: testOverrides()})
	require.Len(t, scenarios, 5)

	assert.Equal(t, "Current Settings", scenarios[0].Name)
	assert.Equal(t, DefaultBufferFactor, scenarios[0].BufferFactor)
	assert.Equal(t, model.AllocationUtilizationFactor, scenarios[1].Allocation)
	assert.Equal(t, 1.0, scenarios[2].BufferFactor)
	assert.True(t, scenarios[3].Overrides.IncludeFoilRemoval)
	assert.False(t, scenarios[4].Overrides.IncludePiercing)
}

func TestCompareScenarios(t *testing.T) {
	svc := NewService(model.DefaultMachineProfile())
	scenarios := BuildDefaultScenarios(Scenario{Overrides: testOverrides()})

	results, err := svc.CompareScenarios(context.Background(), scenarios, testNesting(), testPricing())
	require.NoError(t, err)
	require.Len(t, results, len(scenarios))

	base := results[0]
	assert.Equal(t, 1, base.SheetCount)
	assert.InDelta(t, base.TotalB-base.TotalA, base.Difference, 1e-9)
	assert.Less(t, results[2].TotalB, base.TotalB, "no buffer is cheaper in variant B")
	assert.InDelta(t, base.TotalA+18, results[3].TotalA, 1e-9, "foil adds 4.5 m² x 4")
	assert.InDelta(t, base.TotalA-3, results[4].TotalA, 1e-9, "piercing adds 10 x 0.3")
}

func TestCompareScenarios_Error(t *testing.T) {
	svc := NewService(model.DefaultMachineProfile())
	_, err := svc.CompareScenarios(context.Background(), []Scenario{{Name: "bad", Allocation: "nope"}}, testNesting(), testPricing())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `scenario "bad"`)
}
