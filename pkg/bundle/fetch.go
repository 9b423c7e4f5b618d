package bundle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/systemstart/formio-install/pkg/api"
)

const (
	DefaultRetries    = 3
	DefaultRetryDelay = 200 * time.Millisecond

	partSuffix = ".part"
)

// ErrInvalidResponse means no attempt produced a response that looks like a file transfer.
var ErrInvalidResponse = errors.New("invalid download response")

// Doer issues HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ProgressFunc receives the number of bytes written so far and the announced total.
type ProgressFunc func(written, total int64)

// Fetcher downloads bundle archives to local storage.
type Fetcher struct {
	Client     Doer
	Retries    uint64
	RetryDelay time.Duration
	OnProgress ProgressFunc
}

// NewFetcher returns a Fetcher with the default retry policy.
func NewFetcher() *Fetcher {
	return &Fetcher{
		Client:     &http.Client{},
		Retries:    DefaultRetries,
		RetryDelay: DefaultRetryDelay,
	}
}

// Fetched reports whether the bundle archive is already on disk.
func Fetched(b api.BundleSpec) bool {
	_, err := os.Stat(b.ArchivePath)
	return err == nil
}

// Fetch downloads the bundle archive unless it already exists.
func (f *Fetcher) Fetch(ctx context.Context, b api.BundleSpec) error {
	if Fetched(b) {
		slog.Info("archive already exists, skipping download", "bundle", b.Name, "path", b.ArchivePath)
		return nil
	}

	slog.Info("downloading bundle", "bundle", b.Name, "url", b.SourceURL)

	resp, err := f.open(ctx, b.SourceURL)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", b.Name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := f.save(resp, b); err != nil {
		return fmt.Errorf("downloading %s: %w", b.Name, err)
	}

	slog.Info("bundle downloaded", "bundle", b.Name, "path", b.ArchivePath, "bytes", resp.ContentLength)
	return nil
}

func (f *Fetcher) open(ctx context.Context, url string) (*http.Response, error) {
	delay := f.RetryDelay
	if delay <= 0 {
		delay = DefaultRetryDelay
	}
	backoff := retry.WithMaxRetries(f.Retries, retry.NewConstant(delay))

	var (
		resp    *http.Response
		attempt int
	)
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("building request: %w", err)
		}

		r, err := f.Client.Do(req)
		if err != nil {
			slog.Warn("download request failed", "url", url, "attempt", attempt, "error", err)
			return retry.RetryableError(fmt.Errorf("requesting %s: %w", url, err))
		}

		if err := validateResponse(r); err != nil {
			_ = r.Body.Close()
			slog.Warn("download response rejected", "url", url, "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}

		resp = r
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("after %d attempt(s): %w", attempt, err)
	}
	return resp, nil
}

// validateResponse rejects error pages and redirects served as plain 200s.
func validateResponse(r *http.Response) error {
	if r.StatusCode < 200 || r.StatusCode > 299 {
		return fmt.Errorf("%w: unexpected status %s", ErrInvalidResponse, r.Status)
	}
	if r.Header.Get("Content-Disposition") == "" {
		return fmt.Errorf("%w: missing Content-Disposition header", ErrInvalidResponse)
	}
	if r.ContentLength <= 0 {
		return fmt.Errorf("%w: missing or empty Content-Length", ErrInvalidResponse)
	}
	return nil
}

// save streams the body into a sibling .part file and renames it into place,
// so an existing archive path always means a complete download.
func (f *Fetcher) save(resp *http.Response, b api.BundleSpec) error {
	if err := os.MkdirAll(filepath.Dir(b.ArchivePath), 0o750); err != nil {
		return fmt.Errorf("creating archive directory: %w", err)
	}

	part := b.ArchivePath + partSuffix
	out, err := os.Create(part)
	if err != nil {
		return fmt.Errorf("creating archive file: %w", err)
	}

	report := f.OnProgress
	if report == nil {
		report = logProgress(b.Name)
	}
	counter := &progressWriter{total: resp.ContentLength, report: report}

	_, copyErr := io.Copy(io.MultiWriter(out, counter), resp.Body)
	closeErr := out.Close()

	if copyErr != nil {
		removePart(part)
		return fmt.Errorf("streaming archive: %w", copyErr)
	}
	if closeErr != nil {
		removePart(part)
		return fmt.Errorf("closing archive file: %w", closeErr)
	}

	if err := os.Rename(part, b.ArchivePath); err != nil {
		removePart(part)
		return fmt.Errorf("finalizing archive file: %w", err)
	}
	return nil
}

func removePart(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to remove partial download", "path", path, "error", err)
	}
}

type progressWriter struct {
	written int64
	total   int64
	report  ProgressFunc
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.written += int64(len(p))
	w.report(w.written, w.total)
	return len(p), nil
}

// logProgress logs once per completed tenth of the download.
func logProgress(bundle string) ProgressFunc {
	lastDecile := int64(-1)
	return func(written, total int64) {
		if total <= 0 {
			return
		}
		decile := written * 10 / total
		if decile == lastDecile {
			return
		}
		lastDecile = decile
		slog.Info("downloading", "bundle", bundle, "percent", decile*10, "bytes", written, "total", total)
	}
}
