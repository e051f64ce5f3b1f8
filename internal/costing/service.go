package costing

import (
	"context"
	"fmt"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/piwi3910/LaserCost/internal/model"
	"github.com/piwi3910/LaserCost/internal/motion"
)

// Service computes costing summaries for one machine. It holds no per-run
// state and may be used from several goroutines.
type Service struct {
	estimator *motion.Estimator
	tuning    Tuning
	workers   int
	logger    *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithTuning overrides the material costing constants.
func WithTuning(t Tuning) Option {
	return func(s *Service) { s.tuning = t }
}

// WithMotionTuning overrides the corner and heuristic constants.
func WithMotionTuning(t motion.Tuning) Option {
	return func(s *Service) { s.estimator.Tuning = t }
}

// WithWorkers bounds how many sheets are costed concurrently.
func WithWorkers(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a costing service for the given machine.
func NewService(machine model.MachineProfile, opts ...Option) *Service {
	s := &Service{
		estimator: motion.NewEstimator(machine),
		tuning:    DefaultTuning(),
		workers:   runtime.GOMAXPROCS(0),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Machine returns the machine profile the service plans against.
func (s *Service) Machine() model.MachineProfile {
	return s.estimator.Machine
}

// ComputeCosting costs a nesting result on the default machine profile.
func ComputeCosting(nr model.NestingResult, overrides model.JobOverrides, pricing model.PricingConfig, allocation model.AllocationModel, bufferFactor float64) (model.CostingSummary, error) {
	return NewService(model.DefaultMachineProfile()).ComputeCosting(context.Background(), nr, overrides, pricing, allocation, bufferFactor)
}

// ComputeCosting builds the full variant A / variant B breakdown for a
// nesting result. The inputs are only read; repeated calls with equal inputs
// return equal summaries. An empty allocation selects the occupied-area model
// and a non-positive buffer factor selects DefaultBufferFactor.
func (s *Service) ComputeCosting(ctx context.Context, nr model.NestingResult, overrides model.JobOverrides, pricing model.PricingConfig, allocation model.AllocationModel, bufferFactor float64) (model.CostingSummary, error) {
	if allocation == "" {
		allocation = model.AllocationOccupiedArea
	}
	if err := allocation.Validate(); err != nil {
		return model.CostingSummary{}, err
	}
	if bufferFactor <= 0 {
		bufferFactor = DefaultBufferFactor
	}

	r := run{
		pricing:    pricing,
		overrides:  overrides,
		allocation: allocation,
		buffer:     bufferFactor,
		estimator:  s.estimator,
		tuning:     s.tuning,
	}

	results := make([]sheetResult, len(nr.Sheets))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range nr.Sheets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := r.costSheet(i, nr.Sheets[i])
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Warn("Costing failed", zap.Error(err))
		return model.CostingSummary{}, err
	}

	summary := s.assemble(results, r)
	s.logger.Info("Costing complete",
		zap.Int("sheets", len(results)),
		zap.Int("parts", len(summary.PerPart)),
		zap.String("allocation", string(allocation)),
		zap.Float64("buffer_factor", bufferFactor),
		zap.Float64("total_a", summary.VariantA.Total),
		zap.Float64("total_b", summary.VariantB.Total))
	return summary, nil
}

// assemble rolls sheet results up in sheet order.
func (s *Service) assemble(results []sheetResult, r run) model.CostingSummary {
	job := model.JobCosts{
		Technology: r.overrides.TechnologyCost,
		Packaging:  r.overrides.PackagingCost,
		Transport:  r.overrides.TransportCost,
		Total:      r.overrides.AdditionalCosts(),
	}

	summary := model.CostingSummary{
		AllocationModel: r.allocation,
		BufferFactor:    r.buffer,
		Currency:        r.pricing.Currency,
		VariantA:        model.PriceVariant{Sheets: make([]model.SheetPriceCost, 0, len(results))},
		VariantB:        model.TimeVariant{Sheets: make([]model.SheetTimeCost, 0, len(results))},
		JobCosts:        job,
		PerPart:         make(map[string]model.PartCostBreakdown),
		Flags: model.CostingFlags{
			IncludePiercing:         r.overrides.IncludePiercing,
			IncludeFoilRemoval:      r.overrides.IncludeFoilRemoval,
			IncludePunch:            r.overrides.IncludePunch,
			IncludeRapidTime:        r.overrides.IncludeRapidTime,
			OperationalCostPerSheet: r.overrides.OperationalCost(r.pricing),
		},
	}

	keys := newKeySet()
	for _, res := range results {
		summary.VariantA.Sheets = append(summary.VariantA.Sheets, res.a)
		summary.VariantB.Sheets = append(summary.VariantB.Sheets, res.b)
		summary.VariantA.Total += res.a.Total
		summary.VariantB.Total += res.b.Total

		if !res.a.RateFromTable {
			summary.Flags.RateFallbacks++
			s.logger.Debug("Cutting rate not in table, using fallback",
				zap.Int("sheet", res.a.SheetIndex),
				zap.String("material", res.a.Material),
				zap.Float64("thickness", res.a.Thickness))
		}
		if !res.a.MaterialFromTable {
			summary.Flags.MaterialFallbacks++
			s.logger.Debug("Material price not in table, using fallback",
				zap.Int("sheet", res.a.SheetIndex),
				zap.String("material", res.a.Material))
		}

		for i, pc := range res.parts {
			key := keys.claim(pc.InstanceID, pc.SheetIndex, i)
			pc.InstanceID = key
			summary.PerPart[key] = pc
			switch pc.CostingMode {
			case model.CostingDetailed:
				summary.Flags.DetailedParts++
			case model.CostingHeuristic:
				summary.Flags.HeuristicParts++
			default:
				summary.Flags.UntimedParts++
			}
		}
	}

	summary.VariantA.Total += job.Total
	summary.VariantB.Total += job.Total
	return summary
}

// keySet hands out unique per-part keys. Placements without an instance ID
// get one derived from their position; repeated IDs get a numeric suffix.
type keySet map[string]struct{}

func newKeySet() keySet {
	return make(keySet)
}

func (k keySet) claim(id string, sheet, part int) string {
	if id == "" {
		id = fmt.Sprintf("s%d-p%d", sheet, part)
	}
	key := id
	for n := 2; ; n++ {
		if _, taken := k[key]; !taken {
			break
		}
		key = fmt.Sprintf("%s-%d", id, n)
	}
	k[key] = struct{}{}
	return key
}
