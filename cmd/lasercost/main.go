// LaserCost - Laser Cutting Quote Calculator
//
// Costs a nesting result for a laser cutter two ways: from the price list
// (variant A) and from simulated machine time (variant B). Results are
// written as JSON and optionally as a quote PDF, an XLSX workbook and
// QR-coded part labels. With -serve the same engine is offered over HTTP.
//
// Build:
//   go build -o lasercost ./cmd/lasercost
//
// Usage:
//   lasercost [flags] NESTING.json
//   lasercost -serve [-addr :8080]

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/piwi3910/LaserCost/internal/config"
	"github.com/piwi3910/LaserCost/internal/costing"
	"github.com/piwi3910/LaserCost/internal/export"
	"github.com/piwi3910/LaserCost/internal/logger"
	"github.com/piwi3910/LaserCost/internal/model"
	"github.com/piwi3910/LaserCost/internal/project"
	"github.com/piwi3910/LaserCost/internal/server"
	"github.com/piwi3910/LaserCost/internal/toolpath"
)

// options are the resolved command-line settings.
type options struct {
	pricingPath   string
	machinePath   string
	overridesPath string
	scenariosPath string
	baseDir       string
	allocation    model.AllocationModel
	buffer        float64
	workers       int
	logLevel      string
	dev           bool

	outPath    string
	pdfPath    string
	xlsxPath   string
	labelsPath string
	quotePath  string
	reference  string
	compare    bool

	serve bool
	addr  string

	nestingPath string
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// parseOptions reads flags on top of the environment configuration.
func parseOptions(args []string, cfg *config.Config) (*options, error) {
	fs := flag.NewFlagSet("lasercost", flag.ContinueOnError)

	pricingPath := fs.String("pricing", orDefault(cfg.PricingPath, project.DefaultPricingPath()), "Price table JSON. A missing file uses the built-in table.")
	machinePath := fs.String("machine", orDefault(cfg.MachinePath, project.DefaultMachinePath()), "Machine profile JSON. A missing file uses the built-in profile.")
	overridesPath := fs.String("overrides", "", "Job overrides JSON (technology, packaging, transport, optional operations).")
	scenariosPath := fs.String("scenarios", "", "Scenario list JSON for -compare. Without it the default what-if set is used.")
	baseDir := fs.String("base-dir", "", "Directory for relative part sources. Defaults to the nesting file's directory.")
	allocation := fs.String("allocation", cfg.AllocationModel, "Material allocation model: occupied_area or utilization_factor.")
	buffer := fs.Float64("buffer", cfg.BufferFactor, "Time buffer factor applied to machine time in variant B.")
	workers := fs.Int("workers", cfg.Workers, "Number of sheets costed concurrently.")
	logLevel := fs.String("log-level", cfg.LogLevel, "Log level: debug, info, warn or error.")
	dev := fs.Bool("dev", cfg.Development, "Human-readable development logging.")

	outPath := fs.String("out", "", "Write the JSON result to this file instead of stdout.")
	pdfPath := fs.String("pdf", "", "Write a quote PDF.")
	xlsxPath := fs.String("xlsx", "", "Write a cost workbook.")
	labelsPath := fs.String("labels", "", "Write QR-coded part cost labels as PDF.")
	quotePath := fs.String("quote", "", "Write a quote bundle with all inputs and the result.")
	reference := fs.String("ref", "", "Quote reference printed on the PDF.")
	compare := fs.Bool("compare", false, "Compare scenarios instead of costing once.")

	serve := fs.Bool("serve", false, "Serve the HTTP API instead of costing a file.")
	addr := fs.String("addr", cfg.ListenAddr, "Listen address for -serve.")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage:\n  lasercost [flags] NESTING.json\n  lasercost -serve\n\nFlags:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	alloc, err := model.ParseAllocationModel(*allocation)
	if err != nil {
		return nil, err
	}
	if *buffer <= 0 {
		return nil, fmt.Errorf("buffer factor must be positive, got %g", *buffer)
	}
	if *workers < 1 {
		return nil, fmt.Errorf("workers must be at least 1, got %d", *workers)
	}

	opt := &options{
		pricingPath:   *pricingPath,
		machinePath:   *machinePath,
		overridesPath: *overridesPath,
		scenariosPath: *scenariosPath,
		baseDir:       *baseDir,
		allocation:    alloc,
		buffer:        *buffer,
		workers:       *workers,
		logLevel:      *logLevel,
		dev:           *dev,
		outPath:       *outPath,
		pdfPath:       *pdfPath,
		xlsxPath:      *xlsxPath,
		labelsPath:    *labelsPath,
		quotePath:     *quotePath,
		reference:     *reference,
		compare:       *compare,
		serve:         *serve,
		addr:          *addr,
	}

	if !opt.serve {
		if fs.NArg() != 1 {
			fs.Usage()
			return nil, fmt.Errorf("expected exactly one nesting file, got %d", fs.NArg())
		}
		opt.nestingPath = fs.Arg(0)
		if opt.baseDir == "" {
			opt.baseDir = filepath.Dir(opt.nestingPath)
		}
	}
	return opt, nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	opt, err := parseOptions(args, cfg)
	if err != nil {
		return err
	}

	log, err := logger.New(opt.logLevel, opt.dev)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	pricing, err := project.LoadPricing(opt.pricingPath)
	if err != nil {
		return fmt.Errorf("failed to load pricing: %w", err)
	}
	machine, err := project.LoadMachine(opt.machinePath)
	if err != nil {
		return fmt.Errorf("failed to load machine profile: %w", err)
	}
	log.Debug("Loaded configuration",
		zap.String("machine", machine.Name),
		zap.Stringer("corner_policy", machine.CornerPolicy()),
		zap.Int("rates", len(pricing.Rates)))

	svc := costing.NewService(machine, costing.WithWorkers(opt.workers), costing.WithLogger(log))

	if opt.serve {
		return serve(ctx, opt.addr, server.NewRouter(svc, pricing, log), log)
	}

	nr, err := project.LoadNesting(opt.nestingPath)
	if err != nil {
		return fmt.Errorf("failed to load nesting: %w", err)
	}
	overrides := model.DefaultJobOverrides()
	if opt.overridesPath != "" {
		if overrides, err = project.LoadOverrides(opt.overridesPath); err != nil {
			return fmt.Errorf("failed to load overrides: %w", err)
		}
	}

	resolver := toolpath.NewResolver(toolpath.NewCache(nil), opt.baseDir, opt.workers, log)
	if nr, err = resolver.Resolve(ctx, nr); err != nil {
		return err
	}

	if opt.compare {
		return compare(ctx, svc, opt, nr, pricing, overrides, stdout)
	}

	summary, err := svc.ComputeCosting(ctx, nr, overrides, pricing, opt.allocation, opt.buffer)
	if err != nil {
		return err
	}

	if err := writeResult(opt.outPath, summary, stdout); err != nil {
		return err
	}
	if opt.pdfPath != "" {
		if err := export.ExportQuotePDF(opt.pdfPath, summary, nr, opt.reference); err != nil {
			return err
		}
	}
	if opt.xlsxPath != "" {
		if err := export.ExportCostWorkbook(opt.xlsxPath, summary); err != nil {
			return err
		}
	}
	if opt.labelsPath != "" {
		if err := export.ExportCostLabels(opt.labelsPath, summary); err != nil {
			return err
		}
	}
	if opt.quotePath != "" {
		bundle := project.QuoteBundle{
			Machine:   machine,
			Pricing:   pricing,
			Overrides: overrides,
			Nesting:   nr,
			Summary:   &summary,
		}
		if err := project.ExportQuote(opt.quotePath, bundle); err != nil {
			return err
		}
	}
	return nil
}

func compare(ctx context.Context, svc *costing.Service, opt *options, nr model.NestingResult, pricing model.PricingConfig, overrides model.JobOverrides, stdout io.Writer) error {
	var scenarios []costing.Scenario
	if opt.scenariosPath != "" {
		var err error
		if scenarios, err = project.LoadScenarios(opt.scenariosPath); err != nil {
			return fmt.Errorf("failed to load scenarios: %w", err)
		}
	}
	if len(scenarios) == 0 {
		scenarios = costing.BuildDefaultScenarios(costing.Scenario{
			Allocation:   opt.allocation,
			BufferFactor: opt.buffer,
			Overrides:    overrides,
		})
	}

	results, err := svc.CompareScenarios(ctx, scenarios, nr, pricing)
	if err != nil {
		return err
	}
	return writeResult(opt.outPath, results, stdout)
}

// writeResult writes v as indented JSON to path, or to stdout when path is empty.
func writeResult(path string, v any, stdout io.Writer) error {
	if path != "" {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal result: %w", err)
		}
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed to write result: %w", err)
		}
		return nil
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// serve runs the API until ctx is cancelled.
func serve(ctx context.Context, addr string, handler http.Handler, log *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	log.Info("Server shutdown gracefully")
	return nil
}
