package ics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	appLog "dailymanifest/internal/log"
)

// maxFeedBytes caps a single calendar download.
const maxFeedBytes = 32 << 20

// Feed is one subscribed booking calendar.
type Feed struct {
	ID   string
	Name string
	URL  string
}

// Payload is the body of a feed, fresh or served from the disk cache.
type Payload struct {
	Feed      Feed
	Body      []byte
	FromCache bool
}

type cacheMeta struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Fetcher downloads feeds with conditional requests and keeps the last
// good body on disk so a flaky upstream does not empty the manifest.
type Fetcher struct {
	client   *http.Client
	cacheDir string
}

// NewFetcher returns a Fetcher caching under cacheDir. A nil client gets a
// client with a 15 second timeout.
func NewFetcher(cacheDir string, client *http.Client) *Fetcher {
	if cacheDir == "" {
		cacheDir = "./var/ics-cache"
	}
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Fetcher{client: client, cacheDir: cacheDir}
}

// FetchAll fetches every feed in order. Failed feeds are logged and left
// out of the result; their errors are joined into the returned error.
func (f *Fetcher) FetchAll(ctx context.Context, feeds []Feed) ([]Payload, error) {
	out := make([]Payload, 0, len(feeds))
	var errs []error

	for _, feed := range feeds {
		p, err := f.Fetch(ctx, feed)
		if err != nil {
			appLog.Error("ics fetch failed", err, "feed", feed.ID, "url", redactURL(feed.URL))
			errs = append(errs, fmt.Errorf("feed %s: %w", feed.ID, err))
			continue
		}
		out = append(out, p)
	}

	return out, errors.Join(errs...)
}

// Fetch downloads a single feed honoring ETag and Last-Modified. On a
// network error or a non-OK status the cached body is served if present.
func (f *Fetcher) Fetch(ctx context.Context, feed Feed) (Payload, error) {
	if feed.URL == "" {
		return Payload{}, errors.New("feed url is empty")
	}

	dir := f.cachePath(feed.URL)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return Payload{}, fmt.Errorf("create cache dir: %w", err)
	}

	meta, _ := loadMeta(dir)
	cached, _ := os.ReadFile(filepath.Join(dir, "body.ics"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return Payload{}, fmt.Errorf("build request: %w", err)
	}
	if meta.URL == feed.URL && len(cached) > 0 {
		if meta.ETag != "" {
			req.Header.Set("If-None-Match", meta.ETag)
		}
		if meta.LastModified != "" {
			req.Header.Set("If-Modified-Since", meta.LastModified)
		}
	}

	appLog.Debug("ics fetch start", "feed", feed.ID, "url", redactURL(feed.URL))

	resp, err := f.client.Do(req)
	if err != nil {
		if len(cached) > 0 && ctx.Err() == nil {
			appLog.Warn("ics fetch failed, serving cache", "feed", feed.ID, "err", err)
			return Payload{Feed: feed, Body: cached, FromCache: true}, nil
		}
		return Payload{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
		if err != nil {
			return Payload{}, fmt.Errorf("read body: %w", err)
		}

		next := cacheMeta{
			URL:          feed.URL,
			ETag:         resp.Header.Get("ETag"),
			LastModified: resp.Header.Get("Last-Modified"),
		}
		if err := saveCache(dir, next, body); err != nil {
			appLog.Error("ics cache save failed", err, "feed", feed.ID)
		}

		appLog.Info("ics fetched", "feed", feed.ID, "bytes", len(body))
		return Payload{Feed: feed, Body: body}, nil

	case http.StatusNotModified:
		if len(cached) == 0 {
			return Payload{}, errors.New("304 not modified without a cached body")
		}
		appLog.Debug("ics not modified", "feed", feed.ID)
		return Payload{Feed: feed, Body: cached, FromCache: true}, nil

	default:
		if len(cached) > 0 {
			appLog.Warn("ics upstream error, serving cache", "feed", feed.ID, "status", resp.StatusCode)
			return Payload{Feed: feed, Body: cached, FromCache: true}, nil
		}
		return Payload{}, fmt.Errorf("unexpected status %s", resp.Status)
	}
}

func (f *Fetcher) cachePath(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
}

func loadMeta(dir string) (cacheMeta, error) {
	var meta cacheMeta
	data, err := os.ReadFile(filepath.Join(dir, "meta.json"))
	if err != nil {
		return meta, err
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return cacheMeta{}, err
	}
	return meta, nil
}

// saveCache writes the body before the metadata so meta never points at a
// missing body.
func saveCache(dir string, meta cacheMeta, body []byte) error {
	if err := os.WriteFile(filepath.Join(dir, "body.ics"), body, 0o600); err != nil {
		return err
	}

	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "meta.json"), data, 0o600)
}

// redactURL keeps only scheme and host; calendar URLs usually embed a
// private token in the path or query.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "ics://...(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}
