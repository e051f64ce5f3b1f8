package costing

import (
	"fmt"

	"github.com/piwi3910/LaserCost/internal/model"
	"github.com/piwi3910/LaserCost/internal/motion"
)

// run carries the read-only inputs shared by every sheet of one costing run.
type run struct {
	pricing    model.PricingConfig
	overrides  model.JobOverrides
	allocation model.AllocationModel
	buffer     float64
	estimator  *motion.Estimator
	tuning     Tuning
}

// sheetResult is everything one sheet contributes to the summary.
type sheetResult struct {
	a     model.SheetPriceCost
	b     model.SheetTimeCost
	parts []model.PartCostBreakdown
}

// partTotals is one placement's toolpath figures multiplied by its quantity.
type partTotals struct {
	est       motion.Estimate
	qty       int
	cutLength float64 // mm
	pierces   int
	punches   int
	cutTime   float64 // s
	rapidTime float64 // s
}

func (r run) costSheet(index int, sheet model.NestedSheet) (sheetResult, error) {
	if err := sheet.SheetSpec.Validate(); err != nil {
		return sheetResult{}, fmt.Errorf("sheet %d (%s %.1fmm): %w", index, sheet.Material, sheet.Thickness, err)
	}

	rate, rateFound := r.pricing.Rate(sheet.Material, sheet.Thickness)
	costedArea := sheet.CostedAreaWithRatio(r.tuning.FullSheetRatio)
	areaM2 := costedArea / 1e6
	material, materialFound := MaterialCost(r.pricing, sheet.Material, sheet.Thickness, costedArea)

	basis := model.SheetBasis{
		SheetIndex:        index,
		Material:          sheet.Material,
		Thickness:         sheet.Thickness,
		CostedArea:        costedArea,
		MaterialCost:      material,
		MaterialFromTable: materialFound,
		RateFromTable:     rateFound,
		OperationalCost:   r.overrides.OperationalCost(r.pricing),
	}

	totals := make([]partTotals, len(sheet.Parts))
	var cutLength, cutTime, rapidTime float64
	var pierces, punches int
	for i, p := range sheet.Parts {
		est := r.estimator.EstimatePart(p, rate.CuttingSpeed)
		qty := max(0, p.Quantity)
		pt := partTotals{
			est:       est,
			qty:       qty,
			cutLength: est.CutLength * float64(qty),
			pierces:   est.PierceCount * qty,
			punches:   est.PunchCount * qty,
			cutTime:   est.CutTime * float64(qty),
			rapidTime: est.RapidTime * float64(qty),
		}
		totals[i] = pt
		cutLength += pt.cutLength
		cutTime += pt.cutTime
		rapidTime += pt.rapidTime
		pierces += pt.pierces
		punches += pt.punches
	}

	a := model.SheetPriceCost{
		SheetBasis:  basis,
		CutLength:   cutLength / 1000,
		PierceCount: pierces,
		PunchCount:  punches,
		CutCost:     cutLength / 1000 * rate.CuttingPricePerMeter,
	}
	b := model.SheetTimeCost{
		SheetBasis: basis,
		CutTime:    cutTime,
		RapidTime:  rapidTime,
	}
	if r.overrides.IncludePiercing {
		a.PierceCost = float64(pierces) * rate.PierceCost
		b.PierceTime = float64(pierces) * rate.PierceTime
	}
	if r.overrides.IncludePunch {
		a.PunchCost = float64(punches) * rate.PunchCost
		b.PunchTime = float64(punches) * rate.PunchTime
	}
	if r.overrides.IncludeFoilRemoval {
		a.FoilCost = areaM2 * r.pricing.FoilRemovalRate
		b.FoilTime = areaM2 * r.pricing.FoilRemovalTimePerM2
	}
	a.Total = material + a.CutCost + a.PierceCost + a.PunchCost + a.FoilCost + basis.OperationalCost

	// Rapid travel is always reported but only billed on request.
	b.BaseTime = b.CutTime + b.PierceTime + b.PunchTime + b.FoilTime
	if r.overrides.IncludeRapidTime {
		b.BaseTime += b.RapidTime
	}
	b.BufferedTime = b.BaseTime * r.buffer
	b.LaserCost = b.BufferedTime / 3600 * r.pricing.MachineHourlyRate
	b.Total = material + b.LaserCost + basis.OperationalCost

	parts, err := r.allocateParts(index, sheet, basis, a, b, totals)
	if err != nil {
		return sheetResult{}, err
	}
	return sheetResult{a: a, b: b, parts: parts}, nil
}

// allocateParts distributes the sheet totals over its placements. Material
// follows the allocation model, process costs follow cut length, and foil and
// operational costs follow occupied area.
func (r run) allocateParts(index int, sheet model.NestedSheet, basis model.SheetBasis, a model.SheetPriceCost, b model.SheetTimeCost, totals []partTotals) ([]model.PartCostBreakdown, error) {
	materialShares, err := r.tuning.Allocate(r.allocation, basis.MaterialCost, basis.CostedArea, sheet.Parts)
	if err != nil {
		return nil, err
	}

	qtyWeights := make([]float64, len(totals))
	cutWeights := make([]float64, len(totals))
	areaWeights := make([]float64, len(totals))
	for i, pt := range totals {
		qtyWeights[i] = float64(pt.qty)
		cutWeights[i] = pt.cutLength
		areaWeights[i] = sheet.Parts[i].EffectiveArea()
	}
	cutShares := normalize(cutWeights, qtyWeights)
	areaShares := normalize(areaWeights, qtyWeights)

	parts := make([]model.PartCostBreakdown, len(sheet.Parts))
	for i, p := range sheet.Parts {
		pt := totals[i]
		pc := model.PartCostBreakdown{
			PartID:      p.PartID,
			InstanceID:  p.InstanceID,
			SheetIndex:  index,
			Quantity:    pt.qty,
			CostingMode: pt.est.Mode,
			CutLength:   pt.cutLength,
			MachineTime: pt.cutTime + pt.rapidTime,
			CutShare:    cutShares[i],
			AreaShare:   areaShares[i],

			MaterialCost:    materialShares[i],
			OperationalCost: basis.OperationalCost * areaShares[i],

			CutCost:    a.CutCost * cutShares[i],
			PierceCost: a.PierceCost * cutShares[i],
			PunchCost:  a.PunchCost * cutShares[i],
			FoilCost:   a.FoilCost * areaShares[i],

			LaserCost: b.LaserCost * cutShares[i],
		}
		pc.TotalA = pc.MaterialCost + pc.CutCost + pc.PierceCost + pc.PunchCost + pc.FoilCost + pc.OperationalCost
		pc.TotalB = pc.MaterialCost + pc.LaserCost + pc.OperationalCost
		if pt.qty > 0 {
			pc.UnitPriceA = pc.TotalA / float64(pt.qty)
			pc.UnitPriceB = pc.TotalB / float64(pt.qty)
		}
		parts[i] = pc
	}
	return parts, nil
}
