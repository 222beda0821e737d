package filesystem

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ZanzyTHEbar/repo-parser/rp/classifier"
	"github.com/ZanzyTHEbar/repo-parser/rp/filesystem/common"
	"github.com/ZanzyTHEbar/repo-parser/rp/filesystem/interfaces"
	"github.com/ZanzyTHEbar/repo-parser/rp/filesystem/options"
	"github.com/ZanzyTHEbar/repo-parser/rp/filesystem/services"
	"github.com/ZanzyTHEbar/repo-parser/rp/history"
	"github.com/ZanzyTHEbar/repo-parser/rp/telemetry"
	"github.com/ZanzyTHEbar/repo-parser/rp/trees"

	"github.com/ZanzyTHEbar/assert-lib"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

// Result is the outcome of one pipeline run
type Result struct {
	RunID    string
	Root     *trees.Resource
	ScanRoot string
	RepoRoot string
	Index    *trees.ResourceIndex
	Metrics  trees.TreeMetrics
	Duration time.Duration
}

// Parser runs scan, build, history lookup and metadata augmentation over a
// repository and returns the finished resource tree.
type Parser struct {
	gitService  interfaces.GitService
	scanner     *Scanner
	classifiers classifier.List
	opts        options.ParseOptions
	now         func() time.Time

	assertHandler *assert.AssertHandler

	runs     metric.Int64Counter
	demoted  metric.Int64Counter
	duration metric.Float64Histogram
}

// ParserOption customizes a Parser
type ParserOption func(*Parser)

// WithGitService replaces the git backend
func WithGitService(git interfaces.GitService) ParserOption {
	return func(p *Parser) {
		if git != nil {
			p.gitService = git
		}
	}
}

// WithClock replaces the wall clock used for placeholder timestamps
func WithClock(now func() time.Time) ParserOption {
	return func(p *Parser) {
		if now != nil {
			p.now = now
		}
	}
}

// WithAssertHandler replaces the handler that reports broken tree invariants
func WithAssertHandler(handler *assert.AssertHandler) ParserOption {
	return func(p *Parser) {
		if handler != nil {
			p.assertHandler = handler
		}
	}
}

// New creates a parser using the given classifiers
func New(classifiers classifier.List, opts options.ParseOptions, parserOpts ...ParserOption) *Parser {
	p := &Parser{
		gitService:  services.NewGitService(
			services.WithTimeout(opts.History.Timeout),
			services.WithBinary(opts.History.GitBinary),
		),
		classifiers: classifiers,
		opts:        opts,
		now:         time.Now,

		assertHandler: assert.NewAssertHandler(),
	}
	for _, opt := range parserOpts {
		opt(p)
	}
	p.scanner = NewScanner(p.gitService)

	m := telemetry.Meter(scanScope)
	p.runs, _ = m.Int64Counter("rp.parse.runs",
		metric.WithDescription("Pipeline runs"),
	)
	p.demoted, _ = m.Int64Counter("rp.classify.demoted",
		metric.WithDescription("Files whose extractor failed and were kept as plain files"),
	)
	p.duration, _ = m.Float64Histogram("rp.parse.duration",
		metric.WithDescription("Pipeline run duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	return p
}

// Parse runs the whole pipeline for root
func (p *Parser) Parse(ctx context.Context, root string) (*Result, error) {
	runID := uuid.New().String()
	start := time.Now()

	ctx, span := telemetry.Tracer(scanScope).Start(ctx, "parse")
	span.SetAttributes(attribute.String("rp.run_id", runID))
	defer span.End()

	fail := func(err error) (*Result, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		slog.Error("Parse failed", "run", runID, "root", root, "error", err)
		return nil, err
	}

	slog.Info("Starting parse", "run", runID, "root", root)

	scan, err := p.scanner.Scan(ctx, root, p.classifiers, p.opts.Scan)
	if err != nil {
		return fail(err)
	}

	_, buildSpan := telemetry.Tracer(scanScope).Start(ctx, "build")
	counting := p.countingClassifiers(ctx)
	tree, filePaths := trees.Build(scan.Root, counting, p.now())
	buildSpan.End()

	stamps := map[string]time.Time{}
	if p.opts.History.Enabled {
		resolver := history.NewResolver(p.gitService, scan.RepoRoot,
			history.WithChunkSize(p.opts.History.ChunkSize),
			history.WithClock(p.now),
		)
		stamps, err = resolver.Resolve(ctx, filePaths, scan.ScanRoot)
		if err != nil {
			return fail(err)
		}
	}

	_, propagateSpan := telemetry.Tracer(scanScope).Start(ctx, "propagate")
	trees.ApplyLastModified(tree, stamps)
	trees.AugmentMetadata(tree)
	p.assertTree(ctx, tree)
	propagateSpan.End()

	result := &Result{
		RunID:    runID,
		Root:     tree,
		ScanRoot: scan.ScanRoot,
		RepoRoot: scan.RepoRoot,
		Index:    trees.NewResourceIndex(tree),
		Metrics:  trees.ComputeMetrics(tree),
		Duration: time.Since(start),
	}

	p.runs.Add(ctx, 1)
	p.duration.Record(ctx, float64(result.Duration.Milliseconds()))

	slog.Info("Parse completed",
		"run", runID,
		"root", scan.ScanRoot,
		"resources", result.Metrics.Resources(),
		"files", result.Metrics.Files,
		"duration", result.Duration)

	return result, nil
}

// countingClassifiers wraps each extractor so demotions are counted.
func (p *Parser) countingClassifiers(ctx context.Context) classifier.List {
	wrapped := make(classifier.List, len(p.classifiers))
	for i, c := range p.classifiers {
		extract := c.Extract
		name := c.Name
		c.Extract = func(content string) (kind string, md map[string]any, err error) {
			returned := false
			defer func() {
				// a panic skips the assignment below and is counted too
				if !returned || err != nil {
					p.demoted.Add(ctx, 1, metric.WithAttributes(attribute.String("rp.classifier", name)))
				}
			}()
			kind, md, err = extract(content)
			returned = true
			return kind, md, err
		}
		wrapped[i] = c
	}
	return wrapped
}

// Owner returns the resource that owns path in a finished run
func (r *Result) Owner(path string) (*trees.Resource, error) {
	owner, ok := r.Index.Owner(path)
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, common.ErrOutsideRepository)
	}
	return owner, nil
}
