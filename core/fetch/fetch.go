// Package fetch retrieves image bytes from HTTP origins and local paths.
//
// Each origin gets its own in-flight cap and token bucket so that one slow or
// strict host never starves the others. Concurrent requests for the same
// reference share one transfer, and references that answered 404/410 are
// remembered for a while and not requested again.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"cardsync/core/metrics"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

var (
	// ErrNotFound means the origin answered 404 or 410.
	ErrNotFound = errors.New("image not found")
	// ErrStatus means the origin answered another non-success status.
	ErrStatus = errors.New("unexpected status")
	// ErrEmpty means the response carried no bytes.
	ErrEmpty = errors.New("empty response")
)

// Config holds fetcher configuration.
type Config struct {
	// PerOrigin caps in-flight requests per host.
	PerOrigin int
	// RequestsPerSecond limits request starts per host. Zero disables it.
	RequestsPerSecond float64
	// Timeout bounds one request.
	Timeout time.Duration
	// Retries is the number of extra attempts on transient failures.
	Retries int
	// Referer and UserAgent are sent with every HTTP request.
	Referer   string
	UserAgent string
	// FailureTTL is how long a 404/410 is remembered.
	FailureTTL time.Duration
	// MaxBytes caps the response size. Zero disables the cap.
	MaxBytes int64
}

// Result is a fetched image.
type Result struct {
	Data         []byte
	ContentType  string
	LastModified string
}

type origin struct {
	sem     *semaphore.Weighted
	limiter *rate.Limiter
}

// Fetcher retrieves references concurrently under per-origin limits.
type Fetcher struct {
	cfg    Config
	client *http.Client

	mu      sync.Mutex
	origins map[string]*origin

	sf       singleflight.Group
	failures *cache.Cache
}

// New creates a Fetcher. A nil client gets a default one with cfg.Timeout.
func New(cfg Config, client *http.Client) *Fetcher {
	if cfg.PerOrigin <= 0 {
		cfg.PerOrigin = 4
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.FailureTTL <= 0 {
		cfg.FailureTTL = 10 * time.Minute
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &Fetcher{
		cfg:      cfg,
		client:   client,
		origins:  make(map[string]*origin),
		failures: cache.New(cfg.FailureTTL, cfg.FailureTTL*2),
	}
}

// Client returns the underlying HTTP client.
func (f *Fetcher) Client() *http.Client {
	return f.client
}

// IsRemote reports whether ref is fetched over HTTP.
func IsRemote(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

// Fetch returns the bytes behind ref, which is either an http(s) URL or a
// local file path.
func (f *Fetcher) Fetch(ctx context.Context, ref string) (*Result, error) {
	if !IsRemote(ref) {
		return readLocal(strings.TrimPrefix(ref, "file://"))
	}

	if v, found := f.failures.Get(ref); found {
		return nil, v.(error)
	}

	v, err, _ := f.sf.Do(ref, func() (any, error) {
		return f.fetchRemote(ctx, ref)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

// Forget drops ref from the failure cache.
func (f *Fetcher) Forget(ref string) {
	f.failures.Delete(ref)
}

func readLocal(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmpty, path)
	}
	res := &Result{Data: data}
	if info, err := os.Stat(path); err == nil {
		res.LastModified = info.ModTime().UTC().Format(http.TimeFormat)
	}
	return res, nil
}

func (f *Fetcher) originFor(host string) *origin {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.origins[host]
	if !ok {
		limit := rate.Inf
		if f.cfg.RequestsPerSecond > 0 {
			limit = rate.Limit(f.cfg.RequestsPerSecond)
		}
		o = &origin{
			sem:     semaphore.NewWeighted(int64(f.cfg.PerOrigin)),
			limiter: rate.NewLimiter(limit, 1),
		}
		f.origins[host] = o
	}
	return o
}

func (f *Fetcher) fetchRemote(ctx context.Context, ref string) (*Result, error) {
	host := metrics.Origin(ref)
	o := f.originFor(host)

	if err := o.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer o.sem.Release(1)

	var lastErr error
	for attempt := 0; attempt <= f.cfg.Retries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt*attempt) * 250 * time.Millisecond
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		start := time.Now()
		if err := o.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
		if waited := time.Since(start); waited > time.Millisecond {
			metrics.ObserveRateLimitDelay(host, waited)
		}

		res, retry, err := f.do(ctx, ref)
		metrics.ObserveFetch(host, resultSize(res), time.Since(start))
		if err == nil {
			return res, nil
		}
		lastErr = err
		if errors.Is(err, ErrNotFound) {
			f.failures.Set(ref, err, cache.DefaultExpiration)
			return nil, err
		}
		if !retry || ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func resultSize(res *Result) int {
	if res == nil {
		return 0
	}
	return len(res.Data)
}

// do performs one request. retry reports whether the failure is transient.
func (f *Fetcher) do(ctx context.Context, ref string) (res *Result, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to build request for %s: %w", ref, err)
	}
	if f.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", f.cfg.UserAgent)
	}
	if f.cfg.Referer != "" {
		req.Header.Set("Referer", f.cfg.Referer)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("failed to fetch %s: %w", ref, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return nil, false, fmt.Errorf("%w: %s (%d)", ErrNotFound, ref, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("%w: %s (%d)", ErrStatus, ref, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, false, fmt.Errorf("%w: %s (%d)", ErrStatus, ref, resp.StatusCode)
	}

	var body io.Reader = resp.Body
	if f.cfg.MaxBytes > 0 {
		body = io.LimitReader(resp.Body, f.cfg.MaxBytes+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, true, fmt.Errorf("failed to read %s: %w", ref, err)
	}
	if f.cfg.MaxBytes > 0 && int64(len(data)) > f.cfg.MaxBytes {
		return nil, false, fmt.Errorf("response of %s exceeds %d bytes", ref, f.cfg.MaxBytes)
	}
	if len(data) == 0 {
		return nil, true, fmt.Errorf("%w: %s", ErrEmpty, ref)
	}

	return &Result{
		Data:         data,
		ContentType:  resp.Header.Get("Content-Type"),
		LastModified: resp.Header.Get("Last-Modified"),
	}, false, nil
}
