package hatena

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookmarksync/internal/config"
	"bookmarksync/internal/fakeapi"
)

func newPoster(baseURL string) *Poster {
	return NewPoster(config.HatenaConfig{
		ConsumerKey:       "consumer-key",
		ConsumerSecret:    "consumer-secret",
		AccessToken:       "access-token",
		AccessTokenSecret: "access-secret",
		APIBaseURL:        baseURL,
	}, 2*time.Second)
}

func TestPost(t *testing.T) {
	fake := fakeapi.New("alice")
	server := httptest.NewServer(fake.Handler())
	defer server.Close()

	status, err := newPoster(server.URL).Post(context.Background(), "https://example.com/a?b=c&d=e", "[tech][*copy]note & more")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)

	posts := fake.HatenaPosts()
	require.Len(t, posts, 1)
	assert.Equal(t, "https://example.com/a?b=c&d=e", posts[0].URL)
	assert.Equal(t, "[tech][*copy]note & more", posts[0].Comment)
	assert.Contains(t, posts[0].Authorization, `oauth_consumer_key="consumer-key"`)
	assert.Contains(t, posts[0].Authorization, `oauth_token="access-token"`)
	assert.Contains(t, posts[0].Authorization, `oauth_signature_method="HMAC-SHA1"`)
	assert.Contains(t, posts[0].Authorization, "oauth_signature=")
}

func TestPostRequestShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/1/my/bookmark", r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "https://go.dev/", r.URL.Query().Get("url"))
		assert.Equal(t, "[*copy]", r.PostForm.Get("comment"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	status, err := newPoster(server.URL+"/").Post(context.Background(), "https://go.dev/", "[*copy]")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
}

func TestPostReturnsFailureStatus(t *testing.T) {
	fake := fakeapi.New("alice")
	fake.SetHatenaStatus(http.StatusForbidden)
	server := httptest.NewServer(fake.Handler())
	defer server.Close()

	status, err := newPoster(server.URL).Post(context.Background(), "https://example.com", "[*copy]")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Empty(t, fake.HatenaPosts())
}

func TestPostTransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	status, err := newPoster(url).Post(context.Background(), "https://example.com", "[*copy]")
	assert.Error(t, err)
	assert.Zero(t, status)
}
