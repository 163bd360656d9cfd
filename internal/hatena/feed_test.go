package hatena

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookmarksync/internal/bookmark"
	"bookmarksync/internal/clock"
	"bookmarksync/internal/config"
	"bookmarksync/internal/fakeapi"
	"bookmarksync/internal/httpclient"
)

// 2024-01-02 09:00 UTC, so "yesterday" is 20240101.
var now = clock.Fixed(time.Date(2024, time.January, 2, 9, 0, 0, 0, time.UTC))

func newFetcher(baseURL string) *FeedFetcher {
	cfg := config.HatenaConfig{Username: "alice", FeedBaseURL: baseURL}
	return NewFeedFetcher(cfg, time.UTC, now, httpclient.New(2*time.Second), nil)
}

func TestFeedURL(t *testing.T) {
	f := NewFeedFetcher(config.HatenaConfig{Username: "alice"}, time.UTC, now, nil, nil)
	assert.Equal(t, "https://b.hatena.ne.jp/alice/rss?date=20240101", f.FeedURL("20240101"))

	f = newFetcher("http://example.test/")
	assert.Equal(t, "http://example.test/alice/rss?date=20231231", f.FeedURL("20231231"))
}

func TestFetchYesterday(t *testing.T) {
	fake := fakeapi.New("alice")
	fake.AddFeedItem("20240101", fakeapi.FeedItem{
		Title:       "Go 1.22 release notes",
		Link:        "https://go.dev/doc/go1.22",
		Description: "range over int",
		Subjects:    []string{"tech"},
		Date:        time.Date(2024, time.January, 1, 10, 0, 0, 0, time.UTC),
	})
	fake.AddFeedItem("20240101", fakeapi.FeedItem{
		Title:    "Tokyo & Kyoto <travel>",
		Link:     "https://example.com/travel?a=1&b=2",
		Subjects: []string{"travel", "*copy"},
	})
	fake.AddFeedItem("20231231", fakeapi.FeedItem{Title: "older", Link: "https://example.com/old"})

	server := httptest.NewServer(fake.Handler())
	defer server.Close()

	records, err := newFetcher(server.URL).FetchYesterday(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, bookmark.Record{
		Title:       "Go 1.22 release notes",
		URL:         "https://go.dev/doc/go1.22",
		Date:        "20240101",
		Subjects:    []string{"tech"},
		Description: "range over int",
	}, records[0])

	assert.Equal(t, "Tokyo & Kyoto <travel>", records[1].Title)
	assert.Equal(t, "https://example.com/travel?a=1&b=2", records[1].URL)
	assert.Equal(t, []string{"travel", "*copy"}, records[1].Subjects)
	assert.Equal(t, "", records[1].Description, "missing description defaults to empty")
	assert.True(t, records[1].IsCopy())
}

func TestRecordFromItemKeepsTags(t *testing.T) {
	it := &gofeed.Item{
		Title:      "t",
		Link:       "https://example.com",
		Categories: []string{" padded ", "", "tech"},
	}

	rec := recordFromItem(it, "20240101")
	assert.Equal(t, []string{" padded ", "", "tech"}, rec.Subjects)
	assert.Equal(t, "20240101", rec.Date)

	it.Categories[0] = "changed"
	assert.Equal(t, " padded ", rec.Subjects[0], "subjects do not alias the feed item")

	assert.Nil(t, recordFromItem(&gofeed.Item{}, "20240101").Subjects)
}

func TestFetchYesterdayEmptyFeed(t *testing.T) {
	fake := fakeapi.New("alice")
	server := httptest.NewServer(fake.Handler())
	defer server.Close()

	records, err := newFetcher(server.URL).FetchYesterday(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestFetchYesterdayUsesLocation(t *testing.T) {
	jst := time.FixedZone("JST", 9*60*60)
	var gotDate string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotDate = r.URL.Query().Get("date")
		w.Write([]byte(`<?xml version="1.0"?><rss version="2.0"><channel><title>t</title></channel></rss>`))
	}))
	defer server.Close()

	// 2024-01-02 20:00 UTC is 2024-01-03 in JST.
	clk := clock.Fixed(time.Date(2024, time.January, 2, 20, 0, 0, 0, time.UTC))
	f := NewFeedFetcher(config.HatenaConfig{Username: "alice", FeedBaseURL: server.URL}, jst, clk, nil, nil)

	_, err := f.FetchYesterday(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "20240102", gotDate)
}

func TestFetchErrors(t *testing.T) {
	t.Run("Status", func(t *testing.T) {
		fake := fakeapi.New("someone-else")
		server := httptest.NewServer(fake.Handler())
		defer server.Close()

		_, err := newFetcher(server.URL).FetchYesterday(context.Background())
		require.Error(t, err)
		assert.ErrorIs(t, err, bookmark.ErrStatus)

		var fe *bookmark.FetchError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, http.StatusNotFound, fe.StatusCode)
	})

	t.Run("Parse", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("this is not a feed"))
		}))
		defer server.Close()

		_, err := newFetcher(server.URL).FetchYesterday(context.Background())
		assert.ErrorIs(t, err, bookmark.ErrParse)
	})

	t.Run("Network", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		_, err := newFetcher(url).FetchYesterday(context.Background())
		assert.ErrorIs(t, err, bookmark.ErrNetwork)
	})
}
