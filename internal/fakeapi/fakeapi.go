// Package fakeapi serves in-memory stand-ins for the Hatena Bookmark feed,
// the Hatena Bookmark REST API and the Raindrop.io REST API. It backs the
// package tests and cmd/demo-server.
package fakeapi

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

const createdLayout = "2006-01-02T15:04:05.000Z"

type FeedItem struct {
	Title       string
	Link        string
	Description string
	Subjects    []string
	Date        time.Time
}

type Raindrop struct {
	ID      int64     `json:"_id"`
	Title   string    `json:"title"`
	Link    string    `json:"link"`
	Tags    []string  `json:"tags"`
	Note    string    `json:"note"`
	Excerpt string    `json:"excerpt"`
	Created time.Time `json:"-"`
}

type HatenaPost struct {
	URL           string
	Comment       string
	Authorization string
}

type Server struct {
	Username string

	mu             sync.Mutex
	now            func() time.Time
	feeds          map[string][]FeedItem
	raindrops      []Raindrop
	posts          []HatenaPost
	hatenaStatus   int
	raindropStatus int
	nextID         int64
	requests       map[string]int
}

func New(username string) *Server {
	return &Server{
		Username: username,
		now:      time.Now,
		feeds:    map[string][]FeedItem{},
		nextID:   1000,
		requests: map[string]int{},
	}
}

// SetNow sets the clock used for the creation time of posted raindrops.
func (s *Server) SetNow(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// AddFeedItem publishes it in the feed for date (YYYYMMDD).
func (s *Server) AddFeedItem(date string, it FeedItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feeds[date] = append(s.feeds[date], it)
}

// AddRaindrop stores r, assigning an ID when it has none.
func (s *Server) AddRaindrop(r Raindrop) Raindrop {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == 0 {
		s.nextID++
		r.ID = s.nextID
	}
	s.raindrops = append(s.raindrops, r)
	return r
}

func (s *Server) Raindrops() []Raindrop {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Raindrop(nil), s.raindrops...)
}

func (s *Server) HatenaPosts() []HatenaPost {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]HatenaPost(nil), s.posts...)
}

// SetHatenaStatus makes the bookmark endpoint answer with code. Zero restores 200.
func (s *Server) SetHatenaStatus(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hatenaStatus = code
}

// SetRaindropCreateStatus makes raindrop creation fail with code. Zero restores success.
func (s *Server) SetRaindropCreateStatus(code int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raindropStatus = code
}

// Requests returns how many requests hit a route: "feed", "hatena",
// "raindrop.create" or "raindrop.search".
func (s *Server) Requests(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[route]
}

func (s *Server) count(route string) {
	s.mu.Lock()
	s.requests[route]++
	s.mu.Unlock()
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{user}/rss", s.feedHandler)
	mux.HandleFunc("POST /rest/1/my/bookmark", s.hatenaBookmarkHandler)
	mux.HandleFunc("POST /rest/v1/raindrop", s.raindropCreateHandler)
	mux.HandleFunc("GET /rest/v1/raindrops/{collection}", s.raindropSearchHandler)
	return mux
}

func (s *Server) feedHandler(w http.ResponseWriter, r *http.Request) {
	s.count("feed")
	if r.PathValue("user") != s.Username {
		http.NotFound(w, r)
		return
	}
	date := r.URL.Query().Get("date")

	s.mu.Lock()
	items := append([]FeedItem(nil), s.feeds[date]...)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.Write(renderFeed(s.Username, items))
}

// renderFeed writes the RSS 1.0 (RDF) document Hatena serves, tags as dc:subject.
func renderFeed(user string, items []FeedItem) []byte {
	escape := func(s string) string {
		var b bytes.Buffer
		xml.EscapeText(&b, []byte(s))
		return b.String()
	}
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString(`<rdf:RDF xmlns="http://purl.org/rss/1.0/" xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#" xmlns:dc="http://purl.org/dc/elements/1.1/">` + "\n")
	buf.WriteString("  <channel>\n")
	buf.WriteString("    <title>" + escape(user) + "のブックマーク</title>\n")
	buf.WriteString("    <link>https://b.hatena.ne.jp/" + escape(user) + "/bookmark</link>\n")
	buf.WriteString("    <description>" + escape(user) + "</description>\n")
	buf.WriteString("  </channel>\n")
	for _, it := range items {
		buf.WriteString(`  <item rdf:about="` + escape(it.Link) + `">` + "\n")
		buf.WriteString("    <title>" + escape(it.Title) + "</title>\n")
		buf.WriteString("    <link>" + escape(it.Link) + "</link>\n")
		if it.Description != "" {
			buf.WriteString("    <description>" + escape(it.Description) + "</description>\n")
		}
		if !it.Date.IsZero() {
			buf.WriteString("    <dc:date>" + it.Date.Format(time.RFC3339) + "</dc:date>\n")
		}
		for _, tag := range it.Subjects {
			buf.WriteString("    <dc:subject>" + escape(tag) + "</dc:subject>\n")
		}
		buf.WriteString("  </item>\n")
	}
	buf.WriteString("</rdf:RDF>\n")
	return buf.Bytes()
}

func (s *Server) hatenaBookmarkHandler(w http.ResponseWriter, r *http.Request) {
	s.count("hatena")
	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "OAuth ") {
		http.Error(w, "oauth required", http.StatusUnauthorized)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	bookmarkURL := r.URL.Query().Get("url")
	if bookmarkURL == "" {
		http.Error(w, "url required", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	status := s.hatenaStatus
	if status == 0 || status == http.StatusOK {
		status = http.StatusOK
		s.posts = append(s.posts, HatenaPost{URL: bookmarkURL, Comment: r.PostForm.Get("comment"), Authorization: auth})
	}
	s.mu.Unlock()

	if status != http.StatusOK {
		http.Error(w, http.StatusText(status), status)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"url":     bookmarkURL,
		"comment": r.PostForm.Get("comment"),
	})
}

func (s *Server) authorized(r *http.Request) bool {
	token := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	return strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") && token != ""
}

func (s *Server) raindropCreateHandler(w http.ResponseWriter, r *http.Request) {
	s.count("raindrop.create")
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"result": false, "errorMessage": "Unauthorized"})
		return
	}
	var in Raindrop
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"result": false, "errorMessage": err.Error()})
		return
	}

	s.mu.Lock()
	status := s.raindropStatus
	now := s.now
	s.mu.Unlock()
	if status != 0 {
		writeJSON(w, status, map[string]any{"result": false, "errorMessage": http.StatusText(status)})
		return
	}

	in.ID = 0
	in.Created = now().UTC()
	if in.Tags == nil {
		in.Tags = []string{}
	}
	stored := s.AddRaindrop(in)
	writeJSON(w, http.StatusOK, map[string]any{"result": true, "item": itemJSON(stored)})
}

func (s *Server) raindropSearchHandler(w http.ResponseWriter, r *http.Request) {
	s.count("raindrop.search")
	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"result": false, "errorMessage": "Unauthorized"})
		return
	}
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("perpage"))
	if perPage <= 0 {
		perPage = 25
	}

	all := s.Raindrops()
	sort.SliceStable(all, func(i, j int) bool { return all[i].Created.After(all[j].Created) })

	items := []map[string]any{}
	start := page * perPage
	for i := start; i >= 0 && i < len(all) && i < start+perPage; i++ {
		items = append(items, itemJSON(all[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": true, "items": items, "count": len(all)})
}

func itemJSON(r Raindrop) map[string]any {
	tags := r.Tags
	if tags == nil {
		tags = []string{}
	}
	return map[string]any{
		"_id":     r.ID,
		"title":   r.Title,
		"link":    r.Link,
		"tags":    tags,
		"note":    r.Note,
		"excerpt": r.Excerpt,
		"created": r.Created.UTC().Format(createdLayout),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
