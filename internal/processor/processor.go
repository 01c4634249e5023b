// Package processor turns raw calendar events into an ordered list of
// prioritized meetings: filter, deduplicate, enrich, classify, score, sort.
//
// Everything here is pure: no I/O and no shared mutable state, so a Processor
// can be reused across runs and goroutines.
package processor

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"meetprep/internal/config"
	"meetprep/internal/models"
)

// Stats counts events at each stage of one Process call.
type Stats struct {
	Raw      int
	Filtered int
	Deduped  int
	High     int
	Medium   int
	Low      int
}

// Processor runs the event pipeline for one filter configuration.
type Processor struct {
	cfg     config.FilterConfig
	matcher *Matcher
	logger  *slog.Logger
	workers int
}

// Option applies a configuration option to the Processor.
type Option func(*Processor)

// WithWorkers enriches events on n goroutines. Values below 2 keep it sequential.
func WithWorkers(n int) Option {
	return func(p *Processor) {
		p.workers = n
	}
}

// New creates a Processor, compiling the exclusion patterns once.
func New(logger *slog.Logger, cfg config.FilterConfig, opts ...Option) (*Processor, error) {
	matcher, err := NewMatcher(cfg.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to compile exclude patterns: %w", err)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	p := &Processor{
		cfg:     cfg,
		matcher: matcher,
		logger:  logger,
		workers: cfg.Workers,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Process runs the full pipeline and returns events sorted by priority score,
// highest first. Events with equal scores keep their deduplicated order.
func (p *Processor) Process(events []models.RawEvent) []models.EnrichedEvent {
	out, _ := p.ProcessWithStats(events)
	return out
}

// ProcessWithStats is Process that also reports per-stage counts.
func (p *Processor) ProcessWithStats(events []models.RawEvent) ([]models.EnrichedEvent, Stats) {
	stats := Stats{Raw: len(events)}
	p.logger.Info("Processing raw events.", "count", len(events))

	filtered := p.Filter(events)
	stats.Filtered = len(filtered)
	p.logger.Info("Filtered events.", "count", len(filtered))

	deduped := p.Deduplicate(filtered)
	stats.Deduped = len(deduped)
	p.logger.Info("Deduplicated events.", "count", len(deduped))

	processed := p.annotateAll(deduped)
	slices.SortStableFunc(processed, func(a, b models.EnrichedEvent) int {
		return cmp.Compare(b.PriorityScore, a.PriorityScore)
	})

	for _, e := range processed {
		switch e.Priority {
		case models.PriorityHigh:
			stats.High++
		case models.PriorityMedium:
			stats.Medium++
		default:
			stats.Low++
		}
	}
	p.logger.Info("Processed events.",
		"count", len(processed),
		"high", stats.High,
		"medium", stats.Medium,
		"low", stats.Low,
	)
	return processed, stats
}

// Annotate enriches, classifies and scores a single event.
func Annotate(event models.RawEvent) models.EnrichedEvent {
	e := Enrich(event)
	e.Category = Classify(e)
	e.PriorityScore, e.Priority = Score(e)
	return e
}

// annotateAll writes each result into its input slot, so the output order
// does not depend on how the work was split.
func (p *Processor) annotateAll(events []models.RawEvent) []models.EnrichedEvent {
	out := make([]models.EnrichedEvent, len(events))
	workers := min(p.workers, len(events))
	if workers < 2 {
		for i, event := range events {
			out[i] = Annotate(event)
		}
		return out
	}

	var wg sync.WaitGroup
	next := make(chan int)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range next {
				out[i] = Annotate(events[i])
			}
		}()
	}
	for i := range events {
		next <- i
	}
	close(next)
	wg.Wait()
	return out
}
