package cmr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/sony/gobreaker"

	"github.com/rkm/swathpoint/internal/config"
	"github.com/rkm/swathpoint/internal/observability"
	"github.com/rkm/swathpoint/internal/resilience"
)

const downloadService = "earthdata"

// Downloader fetches granule files from Earthdata with a bearer token.
type Downloader struct {
	httpClient *http.Client
	token      string
	breaker    *gobreaker.CircuitBreaker
	backoff    resilience.Backoff
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewDownloader creates a Downloader from the Earthdata configuration.
func NewDownloader(cfg config.EarthdataConfig) *Downloader {
	backoff := resilience.DefaultBackoff
	backoff.MaxRetries = cfg.MaxRetries

	return &Downloader{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		token:      cfg.Token,
		breaker:    resilience.NewBreaker(downloadService, 5, 30*time.Second),
		backoff:    backoff,
		logger:     slog.Default(),
	}
}

// WithLogger sets a custom logger for the downloader.
func (d *Downloader) WithLogger(logger *slog.Logger) *Downloader {
	d.logger = logger
	return d
}

// WithMetrics records download counts and latency on m.
func (d *Downloader) WithMetrics(m *observability.Metrics) *Downloader {
	d.metrics = m
	return d
}

// WithHTTPClient replaces the HTTP client, mainly for tests.
func (d *Downloader) WithHTTPClient(c *http.Client) *Downloader {
	d.httpClient = c
	return d
}

// Fetch streams the body at link into w.
func (d *Downloader) Fetch(ctx context.Context, link string, w io.Writer) (n int64, err error) {
	started := time.Now()
	defer func() {
		if d.metrics != nil {
			d.metrics.UpstreamRequests.WithLabelValues(downloadService, resilience.Outcome(err)).Inc()
			d.metrics.UpstreamDuration.WithLabelValues(downloadService).Observe(time.Since(started).Seconds())
		}
	}()

	resp, err := resilience.Do(ctx, d.httpClient, d.breaker, d.backoff, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
		if err != nil {
			return nil, err
		}
		if d.token != "" {
			req.Header.Set("Authorization", "Bearer "+d.token)
		}
		return req, nil
	})
	if err != nil {
		return 0, fmt.Errorf("download %s: %w", link, err)
	}
	defer resp.Body.Close()

	n, err = io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("download %s: %w", link, err)
	}
	return n, nil
}

// Download saves the file at link into dir and returns its path. A file
// already present under the same name is reused.
func (d *Downloader) Download(ctx context.Context, link, dir string) (string, error) {
	name, err := fileName(link)
	if err != nil {
		return "", err
	}
	dest := filepath.Join(dir, name)

	if _, err := os.Stat(dest); err == nil {
		d.logger.DebugContext(ctx, "granule already downloaded", slog.String("path", dest))
		return dest, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, name+".*.part")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := d.Fetch(ctx, link, tmp)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return "", err
	}

	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("save %s: %w", dest, err)
	}

	d.logger.InfoContext(ctx, "granule downloaded",
		slog.String("path", dest),
		slog.Int64("bytes", n),
	)
	return dest, nil
}

func fileName(link string) (string, error) {
	u, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("invalid granule link %q: %w", link, err)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "", fmt.Errorf("granule link %q has no file name", link)
	}
	return name, nil
}
