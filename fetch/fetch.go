// Package fetch downloads remote files to local paths, skipping the download when the file is already there.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/giygas/pronto-utils/logging"
	"github.com/giygas/pronto-utils/metrics"
	"github.com/juju/ratelimit"
)

// ErrInvalidSource is returned when the URL or destination path cannot be used
var ErrInvalidSource = errors.New("invalid source")

// StatusError reports a response outside the 2xx range
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("failed to download %s: unexpected status %s", e.URL, e.Status)
}

// Source is one remote file and where it should live locally
type Source struct {
	URL  string
	Path string
}

// ParseSource parses the URL=PATH form used on the command line.
// The last '=' splits the pair so query strings survive.
func ParseSource(s string) (Source, error) {
	i := strings.LastIndex(s, "=")
	if i <= 0 || i == len(s)-1 {
		return Source{}, fmt.Errorf("%w: %q is not URL=PATH", ErrInvalidSource, s)
	}
	src := Source{URL: s[:i], Path: s[i+1:]}
	if err := validateSource(src.URL, src.Path); err != nil {
		return Source{}, err
	}
	return src, nil
}

// Result describes what a fetch call did
type Result struct {
	URL        string
	Path       string
	Downloaded bool // false when the existing file was kept
	Bytes      int64
	Duration   time.Duration
}

// Fetcher retrieves remote files. A Fetcher is safe for concurrent use.
type Fetcher struct {
	client    *http.Client
	timeout   time.Duration
	rateLimit int64
	userAgent string
}

type Option func(*Fetcher)

// WithHTTPClient replaces the default client; WithTimeout is then ignored
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = timeout
	}
}

// WithRateLimit caps the download bandwidth in bytes per second, 0 disables the cap
func WithRateLimit(bytesPerSecond int64) Option {
	return func(f *Fetcher) {
		f.rateLimit = bytesPerSecond
	}
}

func WithUserAgent(userAgent string) Option {
	return func(f *Fetcher) {
		f.userAgent = userAgent
	}
}

// New creates a Fetcher, by default with a 5 minute timeout and no bandwidth cap
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		timeout:   5 * time.Minute,
		userAgent: "pronto-utils",
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = &http.Client{
			Timeout: f.timeout,
		}
	}
	return f
}

var defaultFetcher = New()

// EnsureDownloaded downloads url to path with the default Fetcher
func EnsureDownloaded(ctx context.Context, rawURL, path string, force bool) (Result, error) {
	return defaultFetcher.EnsureDownloaded(ctx, rawURL, path, force)
}

// EnsureDownloaded makes sure path holds the content of rawURL.
// Without force an existing file is kept and nothing is requested or written.
// A download lands in a temporary file that replaces path only once complete,
// so a failed call leaves any previous file untouched.
func (f *Fetcher) EnsureDownloaded(ctx context.Context, rawURL, path string, force bool) (Result, error) {
	result := Result{URL: rawURL, Path: path}

	if err := validateSource(rawURL, path); err != nil {
		metrics.ObserveFetch(metrics.OutcomeFailed, 0, 0)
		return result, err
	}

	if !force {
		exists, err := fileExists(path)
		if err != nil {
			metrics.ObserveFetch(metrics.OutcomeFailed, 0, 0)
			return result, err
		}
		if exists {
			logging.Info("File already exists; not downloading", "path", path)
			metrics.ObserveFetch(metrics.OutcomeSkipped, 0, 0)
			return result, nil
		}
	}

	logging.Info("Downloading file", "url", rawURL, "path", path)

	start := time.Now()
	written, err := f.download(ctx, rawURL, path)
	result.Duration = time.Since(start)
	if err != nil {
		metrics.ObserveFetch(metrics.OutcomeFailed, 0, result.Duration)
		return result, err
	}

	result.Downloaded = true
	result.Bytes = written
	metrics.ObserveFetch(metrics.OutcomeDownloaded, written, result.Duration)

	logging.Debug(fmt.Sprintf("%s downloaded without errors", path), "bytes", written, "duration", result.Duration.String())
	return result, nil
}

// DownloadAll fetches every source concurrently. Results keep the order of sources
// and the returned error joins every failure.
func (f *Fetcher) DownloadAll(ctx context.Context, sources []Source, force bool) ([]Result, error) {
	results := make([]Result, len(sources))
	errs := make([]error, len(sources))

	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)

		go func(i int, src Source) {
			defer wg.Done()
			results[i], errs[i] = f.EnsureDownloaded(ctx, src.URL, src.Path, force)
		}(i, src)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		logging.Error("Download errors occurred", "errors", err)
		return results, fmt.Errorf("download errors: %w", err)
	}

	return results, nil
}

func (f *Fetcher) download(ctx context.Context, rawURL, path string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build request for %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	response, err := f.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to download %s: %w", rawURL, err)
	}
	defer func() {
		if err := response.Body.Close(); err != nil {
			logging.Warn("Failed to close response body", "error", err)
		}
	}()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return 0, &StatusError{URL: rawURL, StatusCode: response.StatusCode, Status: response.Status}
	}

	var body io.Reader = response.Body
	if f.rateLimit > 0 {
		body = ratelimit.Reader(body, ratelimit.NewBucketWithRate(float64(f.rateLimit), f.rateLimit))
	}

	return writeAtomic(path, body)
}

// writeAtomic streams r into a temporary sibling of path and renames it into place on success
func writeAtomic(path string, r io.Reader) (int64, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return 0, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.part")
	if err != nil {
		return 0, fmt.Errorf("failed to create temporary file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	committed := false
	defer func() {
		if committed {
			return
		}
		_ = tmp.Close()
		if err := os.Remove(tmpName); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logging.Warn("Failed to remove temporary file", "path", tmpName, "error", err)
		}
	}()

	written, err := io.Copy(tmp, r)
	if err != nil {
		return written, fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		return written, fmt.Errorf("failed to sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return written, fmt.Errorf("failed to close %s: %w", tmpName, err)
	}
	// CreateTemp uses 0600
	if err := os.Chmod(tmpName, 0644); err != nil {
		return written, fmt.Errorf("failed to set permissions on %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return written, fmt.Errorf("failed to move download into %s: %w", path, err)
	}

	committed = true
	return written, nil
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check %s: %w", path, err)
}

func validateSource(rawURL, path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("%w: empty destination path", ErrInvalidSource)
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSource, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported URL scheme %q in %q", ErrInvalidSource, u.Scheme, rawURL)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: missing host in %q", ErrInvalidSource, rawURL)
	}

	return nil
}
