package hub

import (
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Option configures a Client.
type Option func(*Client)

// WithEndpoint sets the Hub base URL.
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithRevision sets the git revision (branch, tag or commit) files are read from.
func WithRevision(revision string) Option {
	return func(c *Client) {
		if revision != "" {
			c.revision = revision
		}
	}
}

// WithCacheDir sets the directory datasets are cached in. Each dataset lives
// under <dir>/<repo_id>.
func WithCacheDir(dir string) Option {
	return func(c *Client) {
		if dir != "" {
			c.cacheDir = dir
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithRetries sets the retry count and base backoff for retryable failures.
func WithRetries(n int, delay time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = n
		c.retryDelay = delay
	}
}

// WithOffline serves only cached files.
func WithOffline(offline bool) Option {
	return func(c *Client) { c.offline = offline }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// WithProgress renders a progress bar on w for downloads.
func WithProgress(w io.Writer) Option {
	return func(c *Client) { c.progress = w }
}
