package raindrop

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookmarksync/internal/bookmark"
	"bookmarksync/internal/config"
	"bookmarksync/internal/fakeapi"
	"bookmarksync/internal/httpclient"
)

func newClient(baseURL string, perPage int) *Client {
	return NewClient(config.RaindropConfig{
		Token:   "secret-token",
		BaseURL: baseURL,
		PerPage: perPage,
	}, httpclient.New(2*time.Second))
}

func TestCreate(t *testing.T) {
	fake := fakeapi.New("alice")
	created := time.Date(2024, time.January, 2, 3, 4, 5, 0, time.UTC)
	fake.SetNow(func() time.Time { return created })
	server := httptest.NewServer(fake.Handler())
	defer server.Close()

	got, err := newClient(server.URL, 25).Create(context.Background(), NewRaindrop{
		Link:    "https://go.dev/doc/go1.22",
		Title:   "Go 1.22",
		Tags:    []string{"tech", bookmark.CopyTag},
		Excerpt: "range over int",
	})
	require.NoError(t, err)

	assert.NotZero(t, got.ID)
	assert.Equal(t, "Go 1.22", got.Title)
	assert.Equal(t, "https://go.dev/doc/go1.22", got.Link)
	assert.Equal(t, []string{"tech", "*copy"}, got.Tags)
	assert.Equal(t, "range over int", got.Excerpt)
	assert.True(t, created.Equal(got.Created))

	stored := fake.Raindrops()
	require.Len(t, stored, 1)
	assert.Equal(t, []string{"tech", "*copy"}, stored[0].Tags)
}

func TestCreateRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/v1/raindrop", r.URL.Path)
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "https://example.com", body["link"])
		assert.Equal(t, []any{"a"}, body["tags"])
		assert.NotContains(t, body, "excerpt", "empty excerpt is omitted")

		w.Write([]byte(`{"result":true,"item":{"_id":7,"link":"https://example.com","title":"","tags":["a"],"created":"2024-01-01T00:00:00.000Z"}}`))
	}))
	defer server.Close()

	got, err := newClient(server.URL, 25).Create(context.Background(), NewRaindrop{Link: "https://example.com", Tags: []string{"a"}})
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.ID)
}

func TestCreateAPIError(t *testing.T) {
	fake := fakeapi.New("alice")
	fake.SetRaindropCreateStatus(http.StatusTooManyRequests)
	server := httptest.NewServer(fake.Handler())
	defer server.Close()

	_, err := newClient(server.URL, 25).Create(context.Background(), NewRaindrop{Link: "https://example.com"})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, "Too Many Requests", apiErr.Message)
}

func TestCreateResultFalse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":false,"errorMessage":"link is invalid"}`))
	}))
	defer server.Close()

	_, err := newClient(server.URL, 25).Create(context.Background(), NewRaindrop{Link: "nope"})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "link is invalid", apiErr.Message)
}

func TestCreateTransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := newClient(url, 25).Create(context.Background(), NewRaindrop{Link: "https://example.com"})
	require.Error(t, err)

	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr))
}

func TestSearchPagination(t *testing.T) {
	fake := fakeapi.New("alice")
	base := time.Date(2024, time.January, 2, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		fake.AddRaindrop(fakeapi.Raindrop{
			Title:   string(rune('a' + i)),
			Link:    "https://example.com/" + string(rune('a'+i)),
			Created: base.Add(-time.Duration(i) * time.Hour),
			Tags:    []string{"t"},
			Note:    "n",
		})
	}
	server := httptest.NewServer(fake.Handler())
	defer server.Close()

	c := newClient(server.URL, 2)
	ctx := context.Background()

	page0, err := c.Search(ctx, 0)
	require.NoError(t, err)
	require.Len(t, page0, 2)
	assert.Equal(t, "a", page0[0].Title)
	assert.Equal(t, "b", page0[1].Title)
	assert.Equal(t, []string{"t"}, page0[0].Tags)
	assert.Equal(t, "n", page0[0].Note)
	assert.True(t, base.Equal(page0[0].Created))

	page2, err := c.Search(ctx, 2)
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Equal(t, "e", page2[0].Title)

	page3, err := c.Search(ctx, 3)
	require.NoError(t, err)
	assert.Empty(t, page3)
}

func TestSearchRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/raindrops/42", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "3", q.Get("page"))
		assert.Equal(t, "50", q.Get("perpage"), "page size is clamped to the API maximum")
		assert.Equal(t, "-created", q.Get("sort"))
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		w.Write([]byte(`{"result":true,"items":[]}`))
	}))
	defer server.Close()

	c := NewClient(config.RaindropConfig{Token: "secret-token", BaseURL: server.URL, CollectionID: 42, PerPage: 500}, nil)
	items, err := c.Search(context.Background(), 3)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestNewClientPerPage(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 25},
		{-3, 25},
		{10, 10},
		{50, 50},
		{51, 50},
		{500, 50},
	}
	for _, tt := range tests {
		c := NewClient(config.RaindropConfig{PerPage: tt.in}, nil)
		assert.Equal(t, tt.want, c.perPage, "per_page %d", tt.in)
	}
}

func TestSearchErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		expected error
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"result":false}`, expected: bookmark.ErrStatus},
		{name: "invalid json", status: http.StatusOK, body: `{"items":[`, expected: bookmark.ErrParse},
		{name: "missing items", status: http.StatusOK, body: `{"result":true}`, expected: bookmark.ErrParse},
		{name: "bad created", status: http.StatusOK, body: `{"items":[{"_id":1,"created":"yesterday"}]}`, expected: bookmark.ErrParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := newClient(server.URL, 25).Search(context.Background(), 0)
			assert.ErrorIs(t, err, tt.expected)
		})
	}

	t.Run("network", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		_, err := newClient(url, 25).Search(context.Background(), 0)
		assert.ErrorIs(t, err, bookmark.ErrNetwork)
	})
}
