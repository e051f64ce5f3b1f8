package project

import (
	"fmt"
	"time"

	"github.com/piwi3910/LaserCost/internal/model"
)

// QuoteVersion is written into every exported quote bundle.
const QuoteVersion = "1.0.0"

// QuoteBundle is the top-level structure for archiving one quote: every input
// of the costing run together with its result.
type QuoteBundle struct {
	Version   string                `json:"version"`
	CreatedAt string                `json:"created_at"`
	Machine   model.MachineProfile  `json:"machine"`
	Pricing   model.PricingConfig   `json:"pricing"`
	Overrides model.JobOverrides    `json:"overrides"`
	Nesting   model.NestingResult   `json:"nesting"`
	Summary   *model.CostingSummary `json:"summary,omitempty"`
}

// ExportQuote writes the bundle to exportPath, stamping version and creation time.
func ExportQuote(exportPath string, bundle QuoteBundle) error {
	bundle.Version = QuoteVersion
	bundle.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	if err := writeJSON(exportPath, bundle); err != nil {
		return fmt.Errorf("failed to export quote: %w", err)
	}
	return nil
}

// ImportQuote reads a quote bundle. The caller decides whether to reuse the
// stored summary or recompute it from the inputs.
func ImportQuote(importPath string) (QuoteBundle, error) {
	var bundle QuoteBundle
	if err := readJSON(importPath, &bundle); err != nil {
		return QuoteBundle{}, err
	}
	if bundle.Version == "" {
		return QuoteBundle{}, fmt.Errorf("invalid quote file: missing version field")
	}
	return bundle, nil
}
