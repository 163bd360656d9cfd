package syncer

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"bookmarksync/internal/bookmark"
	"bookmarksync/internal/clock"
	"bookmarksync/internal/history"
)

// ReverseFetcher collects the Raindrop.io bookmarks created today or yesterday.
type ReverseFetcher struct {
	api      RaindropAPI
	clock    clock.Clock
	loc      *time.Location
	maxPages int
	log      *zap.SugaredLogger
}

func NewReverseFetcher(api RaindropAPI, clk clock.Clock, loc *time.Location, maxPages int, log *zap.SugaredLogger) *ReverseFetcher {
	if clk == nil {
		clk = clock.System{}
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &ReverseFetcher{api: api, clock: clk, loc: loc, maxPages: maxPages, log: log}
}

// Fetch walks the search pages from page 0. The service lists newest
// first, so the first item dated before yesterday ends the walk; an empty
// page ends it too. Items dated after today are ignored.
func (f *ReverseFetcher) Fetch(ctx context.Context) ([]bookmark.Record, error) {
	today := clock.Today(f.clock, f.loc)
	yesterday := today.AddDate(0, 0, -1)

	result := []bookmark.Record{}
	var prev time.Time
	for page := 0; ; page++ {
		if f.maxPages > 0 && page >= f.maxPages {
			f.log.Warnw("raindrop page limit reached, stopping", "pages", f.maxPages, "collected", len(result))
			return result, nil
		}

		items, err := f.api.Search(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("search raindrop page %d: %w", page, err)
		}
		if len(items) == 0 {
			return result, nil
		}

		for _, it := range items {
			if !prev.IsZero() && it.Created.After(prev) {
				f.log.Warnw("raindrop results are not newest first", "page", page, "id", it.ID, "created", it.Created, "previous", prev)
			}
			prev = it.Created

			day := clock.DayOf(it.Created, f.loc)
			switch {
			case day.Equal(today) || day.Equal(yesterday):
				result = append(result, bookmark.Record{
					Title:       it.Title,
					URL:         it.Link,
					Date:        bookmark.FormatDate(day),
					Subjects:    append([]string(nil), it.Tags...),
					Description: it.Note,
				})
			case day.Before(yesterday):
				return result, nil
			}
		}
	}
}

// ReversePublisher copies Raindrop.io bookmarks back to Hatena.
type ReversePublisher struct {
	api    HatenaAPI
	log    *zap.SugaredLogger
	dryRun bool
}

func NewReversePublisher(api HatenaAPI, log *zap.SugaredLogger, dryRun bool) *ReversePublisher {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &ReversePublisher{api: api, log: log, dryRun: dryRun}
}

// Publish posts every record that is not already a copy. A non-200 answer
// is logged and the loop moves on without retrying; a request that gets no
// answer stops the loop and is returned along with the results so far.
func (p *ReversePublisher) Publish(ctx context.Context, records []bookmark.Record) ([]Result, error) {
	results := make([]Result, 0, len(records))
	for _, rec := range records {
		if rec.IsCopy() {
			p.log.Infow("Skipped", "title", rec.Title, "url", rec.URL)
			results = append(results, Result{Record: rec, Outcome: history.OutcomeSkipped})
			continue
		}

		comment := bookmark.Comment(rec)
		if p.dryRun {
			p.log.Infow("Would post", "title", rec.Title, "url", rec.URL, "comment", comment)
			results = append(results, Result{Record: rec, Outcome: history.OutcomeDryRun})
			continue
		}

		status, err := p.api.Post(ctx, rec.URL, comment)
		switch {
		case err != nil:
			p.log.Warnw("Failed to post", "title", rec.Title, "url", rec.URL, "error", err)
			results = append(results, Result{Record: rec, Outcome: history.OutcomeFailed, Err: err})
			return results, fmt.Errorf("post %s to hatena: %w", rec.URL, err)
		case status == http.StatusOK:
			p.log.Infow("Successfully posted", "title", rec.Title, "url", rec.URL)
			results = append(results, Result{Record: rec, Outcome: history.OutcomePosted, StatusCode: status})
		default:
			p.log.Warnw("Failed to post", "title", rec.Title, "url", rec.URL, "status", status)
			results = append(results, Result{
				Record:     rec,
				Outcome:    history.OutcomeFailed,
				StatusCode: status,
				Err:        fmt.Errorf("hatena responded %d", status),
			})
		}
	}
	return results, nil
}
