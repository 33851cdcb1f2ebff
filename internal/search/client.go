package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/forestlens/mspo-maps/internal/metrics"
	"github.com/redis/go-redis/v9"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/time/rate"
)

const (
	userAgent   = "MSPO Deforestation Maps"
	resultLimit = 5
)

// ErrRemoteUnavailable covers every failure of the upstream geocoder. The
// detail is logged, never returned to API callers.
var ErrRemoteUnavailable = errors.New("search service unavailable")

// Result is one geocoder match.
type Result struct {
	DisplayName string  `json:"display_name"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Type        string  `json:"type"`
	Importance  float64 `json:"importance"`
}

// Client queries a Nominatim-compatible /search endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *redis.Client
	cacheTTL   time.Duration
}

type Option func(*Client)

// WithRate caps outbound requests per second. Zero or less disables the cap.
func WithRate(perSec float64) Option {
	return func(c *Client) {
		if perSec <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSec), 1)
	}
}

// WithCache stores results in redis for ttl. A nil client leaves caching off.
func WithCache(rc *redis.Client, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = rc
		c.cacheTTL = ttl
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(1), 1),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// cacheKey folds case and Unicode normalisation so equivalent spellings share
// an entry.
func cacheKey(query string) string {
	q := strings.Join(strings.Fields(query), " ")
	return "search:location:" + cases.Fold().String(norm.NFC.String(q))
}

// Search returns up to five matches for a free-form place query.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	key := cacheKey(query)
	if c.cache != nil {
		if s, _ := c.cache.Get(ctx, key).Result(); s != "" {
			var cached []Result
			if err := json.Unmarshal([]byte(s), &cached); err == nil {
				metrics.SearchRequestsTotal.WithLabelValues("cache_hit").Inc()
				return cached, nil
			}
		}
	}

	start := time.Now()
	results, err := c.fetch(ctx, query)
	metrics.SearchDurationMs.Observe(float64(time.Since(start).Milliseconds()))
	if err != nil {
		log.Printf("[search] %q: %v", query, err)
		metrics.SearchRequestsTotal.WithLabelValues("unavailable").Inc()
		return nil, fmt.Errorf("%w: %v", ErrRemoteUnavailable, err)
	}
	metrics.SearchRequestsTotal.WithLabelValues("ok").Inc()

	if c.cache != nil {
		if b, err := json.Marshal(results); err == nil {
			_ = c.cache.Set(ctx, key, string(b), c.cacheTTL).Err()
		}
	}
	return results, nil
}

type place struct {
	DisplayName string   `json:"display_name"`
	Lat         string   `json:"lat"`
	Lon         string   `json:"lon"`
	Type        *string  `json:"type"`
	Importance  *float64 `json:"importance"`
}

func (c *Client) fetch(ctx context.Context, query string) ([]Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	params := url.Values{}
	params.Set("format", "json")
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(resultLimit))
	params.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoder returned HTTP %d", resp.StatusCode)
	}

	var places []place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	out := make([]Result, 0, len(places))
	for _, p := range places {
		r := Result{DisplayName: p.DisplayName, Type: "unknown"}
		r.Lat, _ = strconv.ParseFloat(p.Lat, 64)
		r.Lon, _ = strconv.ParseFloat(p.Lon, 64)
		if p.Type != nil {
			r.Type = *p.Type
		}
		if p.Importance != nil {
			r.Importance = *p.Importance
		}
		out = append(out, r)
	}
	return out, nil
}
