package usecase

import (
	"context"
	"fmt"
	"log"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/naka-gawa/weekly-report/internal/config"
	"github.com/naka-gawa/weekly-report/internal/domain"
	"github.com/naka-gawa/weekly-report/internal/render"
)

// Report is the outcome of one generate run.
type Report struct {
	Path     string
	Text     string
	Period   Period
	Results  domain.AdapterResults
	Warnings []domain.Warning
}

// Generator runs the whole pipeline: collect, build, render, write.
type Generator struct {
	collector *Collector
	builder   *Builder
	template  *render.Template
	outputDir string
	logger    *log.Logger
}

func NewGenerator(collector *Collector, builder *Builder, tmpl *render.Template, outputDir string, logger *log.Logger) *Generator {
	return &Generator{collector: collector, builder: builder, template: tmpl, outputDir: outputDir, logger: logger}
}

// Generate renders the report of period and writes it to the output directory.
// Nothing is written when any step fails.
func (g *Generator) Generate(ctx context.Context, period Period, static config.UserData) (*Report, error) {
	known := append(slices.Clone(BuiltinFields), slices.Collect(maps.Keys(static.Extra))...)
	if err := g.template.Validate(known); err != nil {
		return nil, fmt.Errorf("failed to validate template: %w", err)
	}

	results, warnings, err := g.collector.Collect(ctx, period)
	if err != nil {
		return nil, err
	}
	data, buildWarnings, err := g.builder.Build(ctx, results, static, period)
	if err != nil {
		return nil, err
	}
	warnings = mergeWarnings(warnings, buildWarnings)

	text, err := render.Render(g.template, data)
	if err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}

	if err := os.MkdirAll(g.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(g.outputDir, period.ArtifactName())
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write report: %w", err)
	}
	g.logger.Printf("Usecase: report written to %s", path)

	return &Report{Path: path, Text: text, Period: period, Results: results, Warnings: warnings}, nil
}

// mergeWarnings appends built to collected, skipping any warning whose kind and
// subject were already reported while collecting.
func mergeWarnings(collected, built []domain.Warning) []domain.Warning {
	type key struct {
		kind    domain.WarningKind
		subject string
	}
	seen := make(map[key]bool, len(collected))
	for _, w := range collected {
		seen[key{w.Kind, w.Subject}] = true
	}
	for _, w := range built {
		if k := (key{w.Kind, w.Subject}); !seen[k] {
			seen[k] = true
			collected = append(collected, w)
		}
	}
	return collected
}
