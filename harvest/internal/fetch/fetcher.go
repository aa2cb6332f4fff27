// Package fetch retrieves pages from the reference site. It is the
// network boundary: politeness (a shared token-bucket limiter), retries on
// transient statuses, and timeouts all live here, and every ordinary failure
// comes back as a classified *Error rather than a bare transport error so
// the orchestrator can decide what stays pending.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

// Kind classifies a fetch failure.
type Kind int

const (
	KindNetwork    Kind = iota // connection, DNS, transport
	KindHTTPStatus             // terminal non-2xx response
	KindTimeout                // request or context deadline
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindHTTPStatus:
		return "http_status"
	case KindTimeout:
		return "timeout"
	}
	return "unknown"
}

// Error is a classified fetch failure. All Kinds are transient from the
// harvest's point of view: the entry stays pending and the next run retries.
type Error struct {
	Kind       Kind
	StatusCode int // set for KindHTTPStatus
	Link       string
	Err        error
}

func (e *Error) Error() string {
	if e.Kind == KindHTTPStatus {
		return fmt.Sprintf("fetch %s: status %d", e.Link, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %s: %v", e.Link, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Page is a successfully fetched page.
type Page struct {
	Body       []byte
	StatusCode int
	Duration   time.Duration
	FetchedAt  time.Time
}

// Config controls the client. Defaults are the harvest config layer's
// job; here a non-positive rate means unpaced, which only tests want.
type Config struct {
	BaseURL       string
	UserAgent     string
	RatePerMinute int
	Burst         int
	Timeout       time.Duration
	RetryMax      int
	RetryBackoff  time.Duration
}

// Client fetches pages. One client is shared by a whole run so the limiter
// paces every request, retries included.
type Client struct {
	http    *resty.Client
	limiter *rate.Limiter
}

// Statuses worth retrying: the site rate-limits with 429 and its CDN throws
// intermittent 5xx under load.
func retryable(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	switch r.StatusCode() {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

// New builds a client for the given site.
func New(cfg Config) *Client {
	limit := rate.Inf
	if cfg.RatePerMinute > 0 {
		limit = rate.Limit(float64(cfg.RatePerMinute) / 60.0)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(limit, burst)

	r := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", cfg.UserAgent).
		SetRetryCount(cfg.RetryMax).
		SetRetryWaitTime(cfg.RetryBackoff).
		SetRetryMaxWaitTime(6 * cfg.RetryBackoff).
		AddRetryCondition(retryable)

	// The limiter gates every attempt, so retries are paced like first
	// tries and a retry storm cannot exceed the politeness budget.
	r.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return limiter.Wait(req.Context())
	})

	return &Client{http: r, limiter: limiter}
}

// Fetch retrieves one page by its site-relative link. Ordinary failures
// return *Error; the body is only returned for 2xx responses.
func (c *Client) Fetch(ctx context.Context, link string) (*Page, error) {
	start := time.Now()
	resp, err := c.http.R().SetContext(ctx).Get(link)
	if err != nil {
		return nil, &Error{Kind: classify(err), Link: link, Err: err}
	}
	if code := resp.StatusCode(); code < 200 || code > 299 {
		return nil, &Error{Kind: KindHTTPStatus, StatusCode: code, Link: link}
	}
	return &Page{
		Body:       resp.Body(),
		StatusCode: resp.StatusCode(),
		Duration:   time.Since(start),
		FetchedAt:  start,
	}, nil
}

func classify(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return KindTimeout
	}
	return KindNetwork
}
