package hatena

import (
	"context"
	"fmt"
	neturl "net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"go.uber.org/zap"

	"bookmarksync/internal/bookmark"
	"bookmarksync/internal/clock"
	"bookmarksync/internal/config"
	"bookmarksync/internal/httpclient"
)

const feedSource = "hatena feed"

// FeedFetcher reads a user's public Hatena Bookmark RSS feed for one day.
type FeedFetcher struct {
	baseURL  string
	username string
	clock    clock.Clock
	loc      *time.Location
	client   *httpclient.Client
	parser   *gofeed.Parser
	log      *zap.SugaredLogger
}

func NewFeedFetcher(cfg config.HatenaConfig, loc *time.Location, clk clock.Clock, client *httpclient.Client, log *zap.SugaredLogger) *FeedFetcher {
	base := strings.TrimRight(cfg.FeedBaseURL, "/")
	if base == "" {
		base = config.DefaultHatenaFeedBaseURL
	}
	if client == nil {
		client = httpclient.New(0)
	}
	if clk == nil {
		clk = clock.System{}
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &FeedFetcher{
		baseURL:  base,
		username: cfg.Username,
		clock:    clk,
		loc:      loc,
		client:   client,
		parser:   gofeed.NewParser(),
		log:      log,
	}
}

// FeedURL returns the feed address for a YYYYMMDD date.
func (f *FeedFetcher) FeedURL(date string) string {
	return fmt.Sprintf("%s/%s/rss?date=%s", f.baseURL, neturl.PathEscape(f.username), neturl.QueryEscape(date))
}

// FetchYesterday returns the bookmarks the user made yesterday, in feed order.
func (f *FeedFetcher) FetchYesterday(ctx context.Context) ([]bookmark.Record, error) {
	return f.FetchDate(ctx, clock.Yesterday(f.clock, f.loc))
}

// FetchDate returns the bookmarks made on day. The feed is assumed complete
// for the date, so there is no pagination.
func (f *FeedFetcher) FetchDate(ctx context.Context, day time.Time) ([]bookmark.Record, error) {
	date := bookmark.FormatDate(day)
	feedURL := f.FeedURL(date)

	resp, err := f.client.Get(ctx, feedURL, map[string]string{"Accept": "application/rss+xml, application/xml"})
	if err != nil {
		return nil, bookmark.NetworkError(feedSource, err)
	}
	defer httpclient.Drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, bookmark.StatusError(feedSource, resp.StatusCode)
	}

	feed, err := f.parser.Parse(resp.Body)
	if err != nil {
		return nil, bookmark.ParseError(feedSource, err)
	}

	records := make([]bookmark.Record, 0, len(feed.Items))
	for _, it := range feed.Items {
		if it == nil {
			continue
		}
		records = append(records, recordFromItem(it, date))
	}

	f.log.Infow("hatena feed parsed", "url", feedURL, "date", date, "items", len(records))
	return records, nil
}

// recordFromItem maps a feed entry to a record. Tags are the entry's
// dc:subject values (gofeed categories), copied as they are.
func recordFromItem(it *gofeed.Item, date string) bookmark.Record {
	return bookmark.Record{
		Title:       it.Title,
		URL:         it.Link,
		Date:        date,
		Subjects:    append([]string(nil), it.Categories...),
		Description: it.Description,
	}
}
