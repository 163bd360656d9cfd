package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"bookmarksync/internal/bookmark"
	"bookmarksync/internal/clock"
	"bookmarksync/internal/fakeapi"
	"bookmarksync/internal/logger"
)

func main() {
	app := &cli.Command{
		Name:  "demo-server",
		Usage: "Serve fake Hatena and Raindrop.io APIs for trying bookmarksync locally",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "port", Value: 8080, Usage: "Port to run the demo server on"},
			&cli.StringFlag{Name: "host", Value: "localhost", Usage: "Host to bind the demo server to"},
			&cli.StringFlag{Name: "user", Value: "demo", Usage: "Hatena username served by the feed"},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			zl, err := logger.New("info")
			if err != nil {
				return err
			}
			defer zl.Sync()
			return serve(c.String("host"), c.Int("port"), c.String("user"), zl.Sugar())
		},
	}
	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func serve(host string, port int, user string, log *zap.SugaredLogger) error {
	fake := fakeapi.New(user)
	seed(fake, time.Now().UTC())

	base := fmt.Sprintf("http://%s:%d", host, port)
	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", host, port),
		Handler: fake.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("Demo server starting", "url", base)
		log.Infow("Point bookmarksync at it with",
			"HATENA_USERNAME", user,
			"HATENA_FEED_BASE_URL", base,
			"HATENA_API_BASE_URL", base,
			"RAINDROP_BASE_URL", base,
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server failed to start: %w", err)
	case <-quit:
	}

	log.Infow("Shutting down demo server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Infow("Demo server stopped",
		"raindrops", len(fake.Raindrops()),
		"hatena_posts", len(fake.HatenaPosts()),
	)
	return nil
}

// seed publishes yesterday's Hatena feed and a few raindrops around now.
func seed(fake *fakeapi.Server, now time.Time) {
	yesterday := clock.Yesterday(clock.Fixed(now), time.UTC)
	date := bookmark.FormatDate(yesterday)

	fake.AddFeedItem(date, fakeapi.FeedItem{
		Title:       "The Go Programming Language",
		Link:        "https://go.dev/",
		Description: "Build simple, secure, scalable systems",
		Subjects:    []string{"go", "lang"},
		Date:        yesterday.Add(9 * time.Hour),
	})
	fake.AddFeedItem(date, fakeapi.FeedItem{
		Title:    "Raindrop.io",
		Link:     "https://raindrop.io/",
		Subjects: []string{"tools", bookmark.CopyTag},
		Date:     yesterday.Add(10 * time.Hour),
	})

	fake.AddRaindrop(fakeapi.Raindrop{
		Title:   "Effective Go",
		Link:    "https://go.dev/doc/effective_go",
		Tags:    []string{"go"},
		Note:    "read again",
		Created: now.Add(-2 * time.Hour),
	})
	fake.AddRaindrop(fakeapi.Raindrop{
		Title:   "Hatena Bookmark REST API",
		Link:    "https://developer.hatena.ne.jp/ja/documents/bookmark/apis/rest",
		Tags:    []string{"api", bookmark.CopyTag},
		Created: now.Add(-20 * time.Hour),
	})
	fake.AddRaindrop(fakeapi.Raindrop{
		Title:   "Old news",
		Link:    "https://example.com/old",
		Created: now.Add(-96 * time.Hour),
	})
}
