package hatena

import (
	"context"
	"fmt"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	"github.com/dghubble/oauth1"

	"bookmarksync/internal/config"
	"bookmarksync/internal/httpclient"
)

const bookmarkPath = "/rest/1/my/bookmark"

// Poster adds bookmarks through the Hatena Bookmark REST API. Every
// request is OAuth1-signed with the user's access token.
type Poster struct {
	endpoint string
	client   *httpclient.Client
}

func NewPoster(cfg config.HatenaConfig, timeout time.Duration) *Poster {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	base := strings.TrimRight(cfg.APIBaseURL, "/")
	if base == "" {
		base = config.DefaultHatenaAPIBaseURL
	}

	// oauth1 wraps the transport of the client found in the context
	ctx := context.WithValue(context.Background(), oauth1.HTTPClient, &http.Client{Timeout: timeout})
	signed := oauth1.NewConfig(cfg.ConsumerKey, cfg.ConsumerSecret).
		Client(ctx, oauth1.NewToken(cfg.AccessToken, cfg.AccessTokenSecret))
	signed.Timeout = timeout

	return &Poster{
		endpoint: base + bookmarkPath,
		client:   httpclient.NewWithHTTPClient(signed),
	}
}

// Post stores bookmarkURL with the given comment and returns the HTTP
// status. Only 200 means the bookmark was saved; callers decide what to do
// with any other status. err is set only when no response was received.
func (p *Poster) Post(ctx context.Context, bookmarkURL, comment string) (int, error) {
	u := p.endpoint + "?" + neturl.Values{"url": {bookmarkURL}}.Encode()
	form := neturl.Values{"comment": {comment}}.Encode()

	resp, err := p.client.Post(ctx, u, strings.NewReader(form), map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
	})
	if err != nil {
		return 0, fmt.Errorf("post hatena bookmark: %w", err)
	}
	defer httpclient.Drain(resp)
	return resp.StatusCode, nil
}
