package toolpath

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/piwi3910/LaserCost/internal/model"
)

// Resolver attaches extracted toolpaths to the placements of a nesting result
// that name a source file but carry no segments yet.
type Resolver struct {
	Cache   *Cache
	BaseDir string // Relative sources resolve against this directory
	Workers int
	Logger  *zap.Logger
}

// NewResolver creates a resolver over cache. A nil cache gets a fresh one.
func NewResolver(cache *Cache, baseDir string, workers int, logger *zap.Logger) *Resolver {
	if cache == nil {
		cache = NewCache(nil)
	}
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{Cache: cache, BaseDir: baseDir, Workers: workers, Logger: logger}
}

// Resolve returns a copy of nr with segments and statistics filled in from
// each placement's source. Placements that already carry segments are left
// alone; occupied and net areas are only filled when missing.
//
// A source that cannot be extracted is an error unless every placement naming
// it already carries toolpath statistics. Those placements keep their
// statistics and are costed heuristically; the failure is logged.
func (r *Resolver) Resolve(ctx context.Context, nr model.NestingResult) (model.NestingResult, error) {
	out := model.NestingResult{Sheets: make([]model.NestedSheet, len(nr.Sheets))}
	var sources []string
	seen := make(map[string]bool)
	hasStats := make(map[string]bool)

	for i, sheet := range nr.Sheets {
		sheet.Parts = append([]model.PartPlacement(nil), sheet.Parts...)
		out.Sheets[i] = sheet
		for _, p := range sheet.Parts {
			if p.Source == "" || len(p.Segments) > 0 {
				continue
			}
			path := r.path(p.Source)
			if !seen[path] {
				seen[path] = true
				hasStats[path] = true
				sources = append(sources, path)
			}
			hasStats[path] = hasStats[path] && p.ToolpathStats != nil
		}
	}
	if len(sources) == 0 {
		return out, nil
	}

	extracted := make([]Extraction, len(sources))
	failed := make([]bool, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.Workers)
	for i, path := range sources {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ext, err := r.Cache.Get(path)
			if err != nil {
				if !hasStats[path] {
					return fmt.Errorf("failed to extract toolpath from %s: %w", path, err)
				}
				r.Logger.Warn("Toolpath extraction failed, keeping given statistics",
					zap.String("source", path),
					zap.Error(err))
				failed[i] = true
				return nil
			}
			extracted[i] = ext
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model.NestingResult{}, err
	}

	byPath := make(map[string]Extraction, len(sources))
	for i, path := range sources {
		if !failed[i] {
			byPath[path] = extracted[i]
		}
	}

	for i := range out.Sheets {
		for j := range out.Sheets[i].Parts {
			p := &out.Sheets[i].Parts[j]
			if p.Source == "" || len(p.Segments) > 0 {
				continue
			}
			ext, ok := byPath[r.path(p.Source)]
			if !ok {
				continue
			}
			stats := ext.Stats
			p.Segments = ext.Segments
			p.ToolpathStats = &stats
			if p.OccupiedArea <= 0 {
				p.OccupiedArea = stats.OccupiedArea
			}
			if p.NetArea <= 0 {
				p.NetArea = stats.NetArea
			}
		}
	}

	r.Logger.Debug("Resolved toolpath sources",
		zap.Int("sources", len(sources)),
		zap.Int("cached", r.Cache.Len()))
	return out, nil
}

func (r *Resolver) path(source string) string {
	if r.BaseDir != "" && !filepath.IsAbs(source) {
		source = filepath.Join(r.BaseDir, source)
	}
	return filepath.Clean(source)
}
