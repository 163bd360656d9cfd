package syncer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bookmarksync/internal/bookmark"
	"bookmarksync/internal/clock"
	"bookmarksync/internal/config"
	"bookmarksync/internal/hatena"
	"bookmarksync/internal/history"
	"bookmarksync/internal/httpclient"
	"bookmarksync/internal/raindrop"
)

// FeedSource yields the origin bookmarks for the run.
type FeedSource interface {
	FetchYesterday(ctx context.Context) ([]bookmark.Record, error)
}

type RaindropAPI interface {
	Create(ctx context.Context, nr raindrop.NewRaindrop) (raindrop.Raindrop, error)
	Search(ctx context.Context, page int) ([]raindrop.Raindrop, error)
}

type HatenaAPI interface {
	Post(ctx context.Context, bookmarkURL, comment string) (int, error)
}

// Recorder receives every publish result. history.Store implements it.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) error
}

type Deps struct {
	Feed     FeedSource
	Raindrop RaindropAPI
	Hatena   HatenaAPI
	Clock    clock.Clock
	Location *time.Location
	MaxPages int
	Logger   *zap.SugaredLogger
}

type Options struct {
	DryRun   bool
	Recorder Recorder
	// NewRunID overrides the uuid run identifier, for tests.
	NewRunID func() string
}

type DirectionReport struct {
	Fetched int
	Posted  int
	Skipped int
	Failed  int
}

type Report struct {
	RunID      string
	DryRun     bool
	Forward    DirectionReport
	Reverse    DirectionReport
	StartedAt  time.Time
	FinishedAt time.Time
}

// Syncer runs the four sync steps in order: fetch Hatena, post to
// Raindrop.io, fetch Raindrop.io, post to Hatena.
type Syncer struct {
	feed     FeedSource
	forward  *ForwardPublisher
	fetcher  *ReverseFetcher
	reverse  *ReversePublisher
	clock    clock.Clock
	recorder Recorder
	dryRun   bool
	newRunID func() string
	log      *zap.SugaredLogger
}

func New(d Deps, opts Options) *Syncer {
	if d.Clock == nil {
		d.Clock = clock.System{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop().Sugar()
	}
	newRunID := opts.NewRunID
	if newRunID == nil {
		newRunID = uuid.NewString
	}
	return &Syncer{
		feed:     d.Feed,
		forward:  NewForwardPublisher(d.Raindrop, d.Logger, opts.DryRun),
		fetcher:  NewReverseFetcher(d.Raindrop, d.Clock, d.Location, d.MaxPages, d.Logger),
		reverse:  NewReversePublisher(d.Hatena, d.Logger, opts.DryRun),
		clock:    d.Clock,
		recorder: opts.Recorder,
		dryRun:   opts.DryRun,
		newRunID: newRunID,
		log:      d.Logger,
	}
}

// NewFromConfig wires the real Hatena and Raindrop.io clients. cfg must
// already be validated.
func NewFromConfig(cfg config.AppConfig, clk clock.Clock, log *zap.SugaredLogger, opts Options) *Syncer {
	timeout := cfg.HTTPTimeout()
	client := httpclient.New(timeout)
	return New(Deps{
		Feed:     hatena.NewFeedFetcher(cfg.Hatena, cfg.Location, clk, client, log),
		Raindrop: raindrop.NewClient(cfg.Raindrop, client),
		Hatena:   hatena.NewPoster(cfg.Hatena, timeout),
		Clock:    clk,
		Location: cfg.Location,
		MaxPages: cfg.Raindrop.MaxPages,
		Logger:   log,
	}, opts)
}

// Run performs one sync. A fetch failure or a post that fails outright
// aborts the run and is returned. A Hatena post answered with a non-200
// status is logged, recorded and counted without stopping the run.
func (s *Syncer) Run(ctx context.Context) (report Report, err error) {
	report = Report{RunID: s.newRunID(), DryRun: s.dryRun, StartedAt: s.clock.Now()}
	log := s.log.With("run_id", report.RunID)
	defer func() { report.FinishedAt = s.clock.Now() }()

	log.Infow("sync started", "dry_run", s.dryRun)

	records, err := s.feed.FetchYesterday(ctx)
	if err != nil {
		log.Errorw("hatena fetch failed", "error", err)
		return report, fmt.Errorf("fetch hatena bookmarks: %w", err)
	}
	report.Forward.Fetched = len(records)

	results, err := s.forward.Publish(ctx, records)
	tally(&report.Forward, results)
	s.record(ctx, report.RunID, history.DirectionForward, results)
	if err != nil {
		log.Errorw("raindrop publish aborted", "error", err)
		return report, err
	}

	records, err = s.fetcher.Fetch(ctx)
	if err != nil {
		log.Errorw("raindrop fetch failed", "error", err)
		return report, fmt.Errorf("fetch raindrop bookmarks: %w", err)
	}
	report.Reverse.Fetched = len(records)

	results, err = s.reverse.Publish(ctx, records)
	tally(&report.Reverse, results)
	s.record(ctx, report.RunID, history.DirectionReverse, results)
	if err != nil {
		log.Errorw("hatena publish aborted", "error", err)
		return report, err
	}

	log.Infow("sync finished",
		"forward_fetched", report.Forward.Fetched,
		"forward_posted", report.Forward.Posted,
		"forward_skipped", report.Forward.Skipped,
		"forward_failed", report.Forward.Failed,
		"reverse_fetched", report.Reverse.Fetched,
		"reverse_posted", report.Reverse.Posted,
		"reverse_skipped", report.Reverse.Skipped,
		"reverse_failed", report.Reverse.Failed,
	)
	return report, nil
}

func tally(d *DirectionReport, results []Result) {
	for _, r := range results {
		switch r.Outcome {
		case history.OutcomePosted:
			d.Posted++
		case history.OutcomeSkipped:
			d.Skipped++
		case history.OutcomeFailed:
			d.Failed++
		}
	}
}

func (s *Syncer) record(ctx context.Context, runID string, dir history.Direction, results []Result) {
	if s.recorder == nil || s.dryRun {
		return
	}
	for _, r := range results {
		e := history.Entry{
			RunID:      runID,
			Direction:  dir,
			URL:        r.Record.URL,
			Title:      r.Record.Title,
			Outcome:    r.Outcome,
			StatusCode: r.StatusCode,
			CreatedAt:  s.clock.Now(),
		}
		if r.Err != nil {
			e.Error = r.Err.Error()
		}
		if err := s.recorder.Record(ctx, e); err != nil {
			s.log.Warnw("history record failed", "url", r.Record.URL, "error", err)
		}
	}
}
