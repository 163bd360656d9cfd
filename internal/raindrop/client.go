package raindrop

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"bookmarksync/internal/bookmark"
	"bookmarksync/internal/config"
	"bookmarksync/internal/httpclient"
)

const searchSource = "raindrop search"

// Raindrop is a bookmark as returned by the Raindrop.io API.
type Raindrop struct {
	ID      int64
	Title   string
	Link    string
	Tags    []string
	Note    string
	Excerpt string
	Created time.Time
}

// NewRaindrop is the payload for creating a bookmark.
type NewRaindrop struct {
	Link    string   `json:"link"`
	Title   string   `json:"title,omitempty"`
	Tags    []string `json:"tags,omitempty"`
	Excerpt string   `json:"excerpt,omitempty"`
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("raindrop api: status %d", e.StatusCode)
	}
	return fmt.Sprintf("raindrop api: status %d: %s", e.StatusCode, e.Message)
}

// Client talks to the Raindrop.io REST API using a bearer token.
type Client struct {
	baseURL    string
	token      string
	collection int
	perPage    int
	http       *httpclient.Client
}

const (
	defaultPerPage = 25
	// the API rejects larger pages
	maxPerPage = 50
)

func NewClient(cfg config.RaindropConfig, client *httpclient.Client) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = config.DefaultRaindropBaseURL
	}
	perPage := cfg.PerPage
	switch {
	case perPage <= 0:
		perPage = defaultPerPage
	case perPage > maxPerPage:
		perPage = maxPerPage
	}
	if client == nil {
		client = httpclient.New(0)
	}
	return &Client{
		baseURL:    base,
		token:      cfg.Token,
		collection: cfg.CollectionID,
		perPage:    perPage,
		http:       client,
	}
}

func (c *Client) headers() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + c.token,
		"Accept":        "application/json",
	}
}

// Create stores a new bookmark and returns it as saved by the service.
// A rejected request yields *APIError; transport failures are returned as is.
func (c *Client) Create(ctx context.Context, nr NewRaindrop) (Raindrop, error) {
	body, err := json.Marshal(nr)
	if err != nil {
		return Raindrop{}, err
	}
	headers := c.headers()
	headers["Content-Type"] = "application/json"

	resp, err := c.http.Post(ctx, c.baseURL+"/rest/v1/raindrop", bytes.NewReader(body), headers)
	if err != nil {
		return Raindrop{}, fmt.Errorf("create raindrop: %w", err)
	}
	defer httpclient.Drain(resp)

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Raindrop{}, fmt.Errorf("read create response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Raindrop{}, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(data)}
	}
	if !gjson.ValidBytes(data) {
		return Raindrop{}, fmt.Errorf("create raindrop: invalid json response")
	}
	res := gjson.ParseBytes(data)
	if !res.Get("result").Bool() {
		return Raindrop{}, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(data)}
	}
	item, err := parseItem(res.Get("item"))
	if err != nil {
		return Raindrop{}, fmt.Errorf("create raindrop: %w", err)
	}
	return item, nil
}

// Search returns one page of the configured collection, newest first.
// An empty slice means there are no more pages.
func (c *Client) Search(ctx context.Context, page int) ([]Raindrop, error) {
	u := fmt.Sprintf("%s/rest/v1/raindrops/%d?page=%d&perpage=%d&sort=-created", c.baseURL, c.collection, page, c.perPage)

	resp, err := c.http.Get(ctx, u, c.headers())
	if err != nil {
		return nil, bookmark.NetworkError(searchSource, err)
	}
	defer httpclient.Drain(resp)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, bookmark.StatusError(searchSource, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, bookmark.NetworkError(searchSource, err)
	}
	if !gjson.ValidBytes(data) {
		return nil, bookmark.ParseError(searchSource, fmt.Errorf("invalid json on page %d", page))
	}

	items := gjson.GetBytes(data, "items")
	if !items.IsArray() {
		return nil, bookmark.ParseError(searchSource, fmt.Errorf("missing items on page %d", page))
	}
	out := make([]Raindrop, 0, len(items.Array()))
	for _, it := range items.Array() {
		r, err := parseItem(it)
		if err != nil {
			return nil, bookmark.ParseError(searchSource, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func parseItem(it gjson.Result) (Raindrop, error) {
	if !it.IsObject() {
		return Raindrop{}, fmt.Errorf("item is not an object")
	}
	r := Raindrop{
		ID:      it.Get("_id").Int(),
		Title:   it.Get("title").String(),
		Link:    it.Get("link").String(),
		Note:    it.Get("note").String(),
		Excerpt: it.Get("excerpt").String(),
		Tags:    []string{},
	}
	for _, tag := range it.Get("tags").Array() {
		r.Tags = append(r.Tags, tag.String())
	}
	created := it.Get("created").String()
	if created == "" {
		return Raindrop{}, fmt.Errorf("item %d has no created time", r.ID)
	}
	t, err := time.Parse(time.RFC3339, created)
	if err != nil {
		return Raindrop{}, fmt.Errorf("item %d created %q: %w", r.ID, created, err)
	}
	r.Created = t
	return r, nil
}

func errorMessage(data []byte) string {
	if gjson.ValidBytes(data) {
		for _, key := range []string{"errorMessage", "error"} {
			if v := gjson.GetBytes(data, key); v.Exists() && v.String() != "" {
				return v.String()
			}
		}
	}
	msg := strings.TrimSpace(string(data))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}
