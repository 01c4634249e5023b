// Package syncer runs one prep cycle: fetch every calendar source, process the
// events, build the digest, then publish it or write a preview.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"meetprep/internal/metrics"
	"meetprep/internal/models"
	"meetprep/internal/processor"
)

var (
	// ErrNoSources is returned when a Syncer is built without sources.
	ErrNoSources = errors.New("no calendar sources configured")

	// ErrAllSourcesFailed is returned when no source could be read.
	ErrAllSourcesFailed = errors.New("all calendar sources failed")
)

// Source is a calendar that can list events in a time window.
type Source interface {
	Name() string
	FetchEvents(ctx context.Context, from, to time.Time) ([]models.RawEvent, error)
}

// Publisher delivers a finished digest.
type Publisher interface {
	Publish(ctx context.Context, digest *models.Digest) error
}

// Syncer orchestrates a prep cycle.
type Syncer struct {
	logger      *slog.Logger
	sources     []Source
	processor   *processor.Processor
	publisher   Publisher
	recorder    *metrics.Recorder
	loc         *time.Location
	lookahead   time.Duration
	dryRun      bool
	previewPath string
	now         func() time.Time
}

// Option applies a configuration option to the Syncer.
type Option func(*Syncer)

// WithPublisher sets where digests go outside dry runs.
func WithPublisher(p Publisher) Option {
	return func(s *Syncer) {
		s.publisher = p
	}
}

// WithRecorder records cycle metrics.
func WithRecorder(r *metrics.Recorder) Option {
	return func(s *Syncer) {
		s.recorder = r
	}
}

// WithDryRun writes the digest to previewPath instead of publishing it.
func WithDryRun(previewPath string) Option {
	return func(s *Syncer) {
		s.dryRun = true
		s.previewPath = previewPath
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Syncer) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSyncer creates a new Syncer.
func NewSyncer(logger *slog.Logger, proc *processor.Processor, sources []Source, lookahead time.Duration, loc *time.Location, opts ...Option) (*Syncer, error) {
	if len(sources) == 0 {
		return nil, ErrNoSources
	}
	if loc == nil {
		loc = time.UTC
	}
	s := &Syncer{
		logger:    logger,
		sources:   sources,
		processor: proc,
		loc:       loc,
		lookahead: lookahead,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Run performs a full prep cycle and returns the digest it built.
func (s *Syncer) Run(ctx context.Context) (*models.Digest, error) {
	started := s.now()
	digest, err := s.run(ctx, started)
	s.recorder.RecordCycle(err, s.now().Sub(started))
	if err != nil {
		return digest, err
	}
	s.logger.Info("Prep cycle finished.", "meetings", digest.TotalMeetings, "high", digest.HighPriorityCount)
	return digest, nil
}

func (s *Syncer) run(ctx context.Context, now time.Time) (*models.Digest, error) {
	s.logger.Info("Starting prep cycle.")

	from := now.In(s.loc)
	to := from.Add(s.lookahead)
	events, err := s.fetchAll(ctx, from, to)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Fetched all calendar events.", "count", len(events))

	processed, stats := s.processor.ProcessWithStats(events)
	s.recorder.RecordPipeline(stats.Raw-stats.Filtered, stats.Filtered-stats.Deduped, stats.High, stats.Medium, stats.Low)

	y, m, d := from.Date()
	digest := models.NewDigest(time.Date(y, m, d, 0, 0, 0, 0, s.loc), now, processed)

	if s.dryRun {
		s.logger.Info("[DRY RUN] Writing digest preview instead of publishing.", "path", s.previewPath)
		if err := WritePreview(s.previewPath, digest); err != nil {
			return digest, err
		}
		return digest, nil
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, digest); err != nil {
			return digest, fmt.Errorf("failed to publish digest: %w", err)
		}
	}
	return digest, nil
}

// fetchAll reads every source in order. A failing source is logged and
// skipped; only when every source fails is an error returned.
func (s *Syncer) fetchAll(ctx context.Context, from, to time.Time) ([]models.RawEvent, error) {
	var all []models.RawEvent
	var errs []error
	for _, src := range s.sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		events, err := src.FetchEvents(ctx, from, to)
		if err != nil {
			s.logger.Error("Could not fetch events from a calendar source", "source", src.Name(), "error", err)
			s.recorder.RecordSourceError(src.Name())
			errs = append(errs, fmt.Errorf("%s: %w", src.Name(), err))
			continue
		}
		s.logger.Debug("Fetched events from source.", "source", src.Name(), "count", len(events))
		s.recorder.RecordFetched(src.Name(), len(events))
		for _, event := range events {
			all = append(all, s.inLocation(event))
		}
	}
	if len(errs) == len(s.sources) {
		return nil, fmt.Errorf("%w: %w", ErrAllSourcesFailed, errors.Join(errs...))
	}
	return all, nil
}

// inLocation moves timed events into the configured zone so the same meeting
// reported with different UTC offsets yields one dedup key. All-day events
// keep their provider dates.
func (s *Syncer) inLocation(event models.RawEvent) models.RawEvent {
	if event.IsAllDay {
		return event
	}
	event.StartTime = event.StartTime.In(s.loc)
	event.EndTime = event.EndTime.In(s.loc)
	return event
}
