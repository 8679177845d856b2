// Package hub downloads dataset files from the Hugging Face Hub and keeps
// them in a local cache laid out like a dataset root.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
)

const (
	DefaultEndpoint = "https://huggingface.co"
	DefaultRevision = "main"
)

// Client fetches files of Hub dataset repos.
type Client struct {
	http       *http.Client
	endpoint   string
	token      string
	revision   string
	cacheDir   string
	maxRetries int
	retryDelay time.Duration
	offline    bool
	progress   io.Writer
	log        *zap.Logger
}

// NewClient creates a client. Without options it talks to huggingface.co,
// reads the main revision and caches under DefaultCacheDir.
func NewClient(opts ...Option) *Client {
	c := &Client{
		http:       &http.Client{Timeout: 5 * time.Minute},
		endpoint:   DefaultEndpoint,
		revision:   DefaultRevision,
		cacheDir:   DefaultCacheDir(),
		maxRetries: 3,
		retryDelay: 500 * time.Millisecond,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.endpoint = strings.TrimSuffix(c.endpoint, "/")
	return c
}

// DefaultCacheDir returns $HF_LEROBOT_HOME, $HF_HOME/lerobot or
// ~/.cache/huggingface/lerobot, in that order.
func DefaultCacheDir() string {
	if dir := os.Getenv("HF_LEROBOT_HOME"); dir != "" {
		return dir
	}
	if dir := os.Getenv("HF_HOME"); dir != "" {
		return filepath.Join(dir, "lerobot")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".cache", "huggingface", "lerobot")
	}
	return filepath.Join(home, ".cache", "huggingface", "lerobot")
}

// Revision returns the revision files are read from.
func (c *Client) Revision() string { return c.revision }

// DatasetDir returns the cache directory of a dataset.
func (c *Client) DatasetDir(repoID string) string {
	return filepath.Join(c.cacheDir, filepath.FromSlash(repoID))
}

// LocalPath returns where a dataset file is cached.
func (c *Client) LocalPath(repoID, filename string) string {
	return filepath.Join(c.DatasetDir(repoID), filepath.FromSlash(filename))
}

// missingSuffix marks a cached file the Hub answered 404 for, so offline
// runs can tell "not on the Hub" from "not downloaded yet".
const missingSuffix = ".missing"

// ValidateRepoID accepts ids of the form owner/name.
func ValidateRepoID(repoID string) error {
	parts := strings.Split(repoID, "/")
	if len(parts) != 2 {
		return fmt.Errorf("%q: %w", repoID, ErrInvalidRepoID)
	}
	for _, p := range parts {
		if p == "" || p == "." || p == ".." || strings.ContainsAny(p, `\:`) {
			return fmt.Errorf("%q: %w", repoID, ErrInvalidRepoID)
		}
	}
	return nil
}

// Download returns the local path of a dataset file, fetching it first when
// it is not cached yet.
func (c *Client) Download(ctx context.Context, repoID, filename string) (string, error) {
	if err := ValidateRepoID(repoID); err != nil {
		return "", err
	}
	if !filepath.IsLocal(filepath.FromSlash(filename)) {
		return "", fmt.Errorf("file name %q escapes the dataset", filename)
	}

	local := c.LocalPath(repoID, filename)
	if _, err := os.Stat(local); err == nil {
		c.log.Debug("cache hit", zap.String("repo", repoID), zap.String("file", filename))
		return local, nil
	}
	if c.offline {
		if _, err := os.Stat(local + missingSuffix); err == nil {
			return "", fmt.Errorf("%s/%s: %w", repoID, filename, ErrNotFound)
		}
		return "", fmt.Errorf("%s/%s: %w", repoID, filename, ErrOffline)
	}

	u := fmt.Sprintf("%s/datasets/%s/resolve/%s/%s",
		c.endpoint, repoID, url.PathEscape(c.revision), filename)
	err := c.withRetry(ctx, func() error {
		return c.fetch(ctx, u, local, filename)
	})
	if errors.Is(err, ErrNotFound) {
		c.markMissing(local)
	}
	if err != nil {
		return "", fmt.Errorf("download %s/%s: %w", repoID, filename, err)
	}
	os.Remove(local + missingSuffix)
	return local, nil
}

func (c *Client) markMissing(local string) {
	if err := os.MkdirAll(filepath.Dir(local), 0o755); err != nil {
		return
	}
	if err := os.WriteFile(local+missingSuffix, nil, 0o644); err != nil {
		c.log.Debug("cannot mark missing file", zap.String("path", local), zap.Error(err))
	}
}

// ListDatasets returns the ids of datasets published by author, at most limit.
func (c *Client) ListDatasets(ctx context.Context, author string, limit int) ([]string, error) {
	q := url.Values{}
	if author != "" {
		q.Set("author", author)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	u := c.endpoint + "/api/datasets?" + q.Encode()

	var entries []struct {
		ID string `json:"id"`
	}
	err := c.withRetry(ctx, func() error {
		resp, err := c.get(ctx, u)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		return json.NewDecoder(resp.Body).Decode(&entries)
	})
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	return ids, nil
}

// get performs an authenticated GET and turns non-2xx responses into *HTTPError.
func (c *Client) get(ctx context.Context, u string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("User-Agent", "lerobot-inspect")

	c.log.Debug("GET", zap.String("url", u))
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, &HTTPError{URL: u, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return resp, nil
}

func (c *Client) fetch(ctx context.Context, u, local, name string) error {
	resp, err := c.get(ctx, u)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	dir := filepath.Dir(local)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	var dst io.Writer = tmp
	if c.progress != nil {
		bar := progressbar.NewOptions64(resp.ContentLength,
			progressbar.OptionSetWriter(c.progress),
			progressbar.OptionSetDescription(name),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(30),
			progressbar.OptionClearOnFinish(),
		)
		defer bar.Finish()
		dst = io.MultiWriter(tmp, bar)
	}

	n, err := io.Copy(dst, resp.Body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), local); err != nil {
		return fmt.Errorf("move %s into cache: %w", name, err)
	}

	c.log.Debug("downloaded", zap.String("file", name), zap.Int64("bytes", n))
	return nil
}

// withRetry runs fn until it succeeds, fails permanently, or retries run out.
// The delay doubles after every attempt.
func (c *Client) withRetry(ctx context.Context, fn func() error) error {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay * time.Duration(1<<uint(attempt-1))
			c.log.Debug("retrying", zap.Int("attempt", attempt), zap.Duration("delay", delay), zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		lastErr = fn()
		if lastErr == nil || !retryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.IsRetryable()
	}
	// Transport errors (reset connections, DNS hiccups) are worth another try.
	return true
}
