package syncer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"bookmarksync/internal/bookmark"
	"bookmarksync/internal/history"
	"bookmarksync/internal/raindrop"
)

type stubFeed struct {
	records []bookmark.Record
	err     error
}

func (f *stubFeed) FetchYesterday(ctx context.Context) ([]bookmark.Record, error) {
	return f.records, f.err
}

type stubRaindrop struct {
	created    []raindrop.NewRaindrop
	createErrs map[string]error
	pages      [][]raindrop.Raindrop
	searchErr  error
	searched   []int
}

func (s *stubRaindrop) Create(ctx context.Context, nr raindrop.NewRaindrop) (raindrop.Raindrop, error) {
	if err := s.createErrs[nr.Link]; err != nil {
		return raindrop.Raindrop{}, err
	}
	s.created = append(s.created, nr)
	return raindrop.Raindrop{ID: int64(len(s.created)), Title: nr.Title, Link: nr.Link, Tags: nr.Tags}, nil
}

func (s *stubRaindrop) Search(ctx context.Context, page int) ([]raindrop.Raindrop, error) {
	s.searched = append(s.searched, page)
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	if page < len(s.pages) {
		return s.pages[page], nil
	}
	return nil, nil
}

type hatenaCall struct {
	url     string
	comment string
}

type stubHatena struct {
	calls    []hatenaCall
	statuses map[string]int
	errs     map[string]error
}

func (h *stubHatena) Post(ctx context.Context, bookmarkURL, comment string) (int, error) {
	h.calls = append(h.calls, hatenaCall{url: bookmarkURL, comment: comment})
	if err := h.errs[bookmarkURL]; err != nil {
		return 0, err
	}
	if code, ok := h.statuses[bookmarkURL]; ok {
		return code, nil
	}
	return 200, nil
}

type memRecorder struct {
	entries []history.Entry
	err     error
}

func (m *memRecorder) Record(ctx context.Context, e history.Entry) error {
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, e)
	return nil
}

func observed() (*zap.SugaredLogger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core).Sugar(), logs
}

func item(id int64, created time.Time, tags ...string) raindrop.Raindrop {
	return raindrop.Raindrop{
		ID:      id,
		Title:   fmt.Sprintf("item %d", id),
		Link:    fmt.Sprintf("https://example.com/%d", id),
		Tags:    tags,
		Created: created,
	}
}
