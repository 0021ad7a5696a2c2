package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"mangadome/internal/logging"
	"mangadome/internal/ratelimit"
)

// limiterKey is the single shared bucket for all upstream calls. The catalog
// API enforces a global per-client rate, so every request competes for the
// same permits regardless of endpoint.
const limiterKey = "jikan"

// Client talks to the Jikan v4 catalog API. Every request passes through the
// rate limiter before it goes out, and denied or throttled requests are
// retried on a bounded budget.
type Client struct {
	baseURL     string
	limiter     ratelimit.Limiter
	httpClient  *http.Client
	retries     int
	backoff     BackoffPolicy
	cacheMaxAge int

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// Options configures a Client. Zero values fall back to defaults.
type Options struct {
	BaseURL     string
	Limiter     ratelimit.Limiter
	HTTPClient  *http.Client
	Retries     int           // extra attempts after the first, -1 for none
	Backoff     BackoffPolicy // delay between attempts, default constant 1s
	CacheMaxAge int           // Cache-Control max-age hint in seconds
}

// New builds a catalog client. A limiter is required.
func New(opts Options) (*Client, error) {
	if opts.Limiter == nil {
		return nil, fmt.Errorf("catalog: limiter is required")
	}
	c := &Client{
		baseURL:     opts.BaseURL,
		limiter:     opts.Limiter,
		httpClient:  opts.HTTPClient,
		retries:     opts.Retries,
		backoff:     opts.Backoff,
		cacheMaxAge: opts.CacheMaxAge,
		sleep:       sleepCtx,
	}
	if c.baseURL == "" {
		c.baseURL = "https://api.jikan.moe/v4"
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	if c.retries == 0 {
		c.retries = 3
	} else if c.retries < 0 {
		c.retries = 0
	}
	if c.backoff == nil {
		c.backoff = ConstantBackoff{}
	}
	if c.cacheMaxAge <= 0 {
		c.cacheMaxAge = 3600
	}
	return c, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// fetch performs one rate-limited GET against path (already including any
// query string) and returns the response body of a 2xx response. Local
// limiter denials and upstream 429s draw from the same retry budget: the
// call makes at most retries+1 attempts before giving up with ErrRateLimited.
func (c *Client) fetch(ctx context.Context, path string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			if err := c.sleep(ctx, c.backoff.Delay(attempt-1)); err != nil {
				return nil, err
			}
		}

		decision, err := c.limiter.Allow(ctx, limiterKey)
		if err != nil {
			return nil, fmt.Errorf("catalog: rate limiter: %w", err)
		}
		if !decision.Allowed {
			logging.CatalogDebug("local rate limit hit for %s, attempt %d/%d", path, attempt+1, c.retries+1)
			lastErr = ErrRateLimited
			continue
		}

		body, retryable, err := c.doRequest(ctx, path)
		if err == nil {
			return body, nil
		}
		if !retryable {
			return nil, err
		}
		logging.CatalogWarn("upstream throttled %s, attempt %d/%d", path, attempt+1, c.retries+1)
		lastErr = err
	}
	if lastErr == nil {
		lastErr = ErrRateLimited
	}
	return nil, lastErr
}

// doRequest issues the HTTP call. The second return reports whether the
// failure is retryable (only upstream 429s are).
func (c *Client) doRequest(ctx context.Context, path string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, false, fmt.Errorf("catalog: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", fmt.Sprintf("max-age=%d", c.cacheMaxAge))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("catalog: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("catalog: read response: %w", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return body, false, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		// Retried like a local deny, but if the budget runs out the failure
		// keeps its upstream identity.
		return nil, true, parseUpstreamError(resp.StatusCode, body)
	default:
		return nil, false, parseUpstreamError(resp.StatusCode, body)
	}
}

// parseUpstreamError translates a non-2xx body into an UpstreamError,
// preferring the API's own message over the HTTP status text.
func parseUpstreamError(status int, body []byte) *UpstreamError {
	var env errorEnvelope
	msg := ""
	if err := json.Unmarshal(body, &env); err == nil {
		msg = env.message()
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &UpstreamError{Status: status, Message: msg}
}

// get fetches path and decodes the 2xx body into T. A body that does not
// parse as T's envelope is reported as ErrInvalidPayload.
func get[T any](ctx context.Context, c *Client, path string) (T, error) {
	var out T
	body, err := c.fetch(ctx, path)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return out, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return out, nil
}

// SearchQuery holds the supported manga search filters.
type SearchQuery struct {
	Query   string
	Genres  string // comma-separated genre IDs
	OrderBy string
	Sort    string
	Page    int
	Limit   int
	SFW     bool
}

func (q SearchQuery) encode() string {
	v := url.Values{}
	if q.Query != "" {
		v.Set("q", q.Query)
	}
	if q.Genres != "" {
		v.Set("genres", q.Genres)
	}
	if q.OrderBy != "" {
		v.Set("order_by", q.OrderBy)
	}
	if q.Sort != "" {
		v.Set("sort", q.Sort)
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.SFW {
		v.Set("sfw", "true")
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

// SearchManga searches the catalog with the given filters.
func (c *Client) SearchManga(ctx context.Context, q SearchQuery) (*MangaPage, error) {
	page, err := get[MangaPage](ctx, c, "/manga"+q.encode())
	if err != nil {
		return nil, err
	}
	return &page, nil
}

// GetManga fetches a single entry by its MAL id.
func (c *Client) GetManga(ctx context.Context, id int) (*Manga, error) {
	res, err := get[single[Manga]](ctx, c, "/manga/"+strconv.Itoa(id))
	if err != nil {
		return nil, err
	}
	return &res.Data, nil
}

// TopManga fetches the top-ranked page.
func (c *Client) TopManga(ctx context.Context, page, limit int) (*MangaPage, error) {
	v := url.Values{}
	if page > 0 {
		v.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		v.Set("limit", strconv.Itoa(limit))
	}
	path := "/top/manga"
	if len(v) > 0 {
		path += "?" + v.Encode()
	}
	res, err := get[MangaPage](ctx, c, path)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// MangaRecommendations fetches related-title suggestions for an entry.
func (c *Client) MangaRecommendations(ctx context.Context, id int) ([]Recommendation, error) {
	res, err := get[list[Recommendation]](ctx, c, "/manga/"+strconv.Itoa(id)+"/recommendations")
	if err != nil {
		return nil, err
	}
	return res.Data, nil
}

// Genres fetches the manga genre catalog.
func (c *Client) Genres(ctx context.Context) ([]Genre, error) {
	res, err := get[list[Genre]](ctx, c, "/genres/manga")
	if err != nil {
		return nil, err
	}
	return res.Data, nil
}
