package syncer

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"bookmarksync/internal/bookmark"
	"bookmarksync/internal/history"
	"bookmarksync/internal/raindrop"
)

// Result is the outcome of publishing one record.
type Result struct {
	Record     bookmark.Record
	Outcome    history.Outcome
	StatusCode int
	Err        error
}

// ForwardPublisher copies Hatena bookmarks into Raindrop.io.
type ForwardPublisher struct {
	api    RaindropAPI
	log    *zap.SugaredLogger
	dryRun bool
}

func NewForwardPublisher(api RaindropAPI, log *zap.SugaredLogger, dryRun bool) *ForwardPublisher {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &ForwardPublisher{api: api, log: log, dryRun: dryRun}
}

// Publish posts every record that is not already a copy. Records that get
// posted have CopyTag appended in place, so records reflects what was sent.
// The first failed post, rejected or not delivered, stops the loop and is
// returned along with the results so far.
func (p *ForwardPublisher) Publish(ctx context.Context, records []bookmark.Record) ([]Result, error) {
	results := make([]Result, 0, len(records))
	for i := range records {
		if records[i].IsCopy() {
			p.log.Infow("Skipped", "title", records[i].Title, "url", records[i].URL)
			results = append(results, Result{Record: records[i], Outcome: history.OutcomeSkipped})
			continue
		}

		records[i] = records[i].WithCopyTag()
		rec := records[i]

		if p.dryRun {
			p.log.Infow("Would post", "title", rec.Title, "url", rec.URL, "tags", rec.Subjects)
			results = append(results, Result{Record: rec, Outcome: history.OutcomeDryRun})
			continue
		}

		created, err := p.api.Create(ctx, raindrop.NewRaindrop{
			Link:    rec.URL,
			Title:   rec.Title,
			Tags:    rec.Subjects,
			Excerpt: rec.Description,
		})
		if err != nil {
			res := Result{Record: rec, Outcome: history.OutcomeFailed, Err: err}
			var apiErr *raindrop.APIError
			if errors.As(err, &apiErr) {
				res.StatusCode = apiErr.StatusCode
			}
			p.log.Warnw("Failed to post", "title", rec.Title, "url", rec.URL, "status", res.StatusCode, "error", err)
			results = append(results, res)
			return results, fmt.Errorf("post %s to raindrop: %w", rec.URL, err)
		}

		p.log.Infow("Posted", "title", created.Title, "url", rec.URL, "id", created.ID)
		results = append(results, Result{Record: rec, Outcome: history.OutcomePosted, StatusCode: http.StatusOK})
	}
	return results, nil
}
