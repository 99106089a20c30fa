package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/metno-forecast/norwegianweather/internal/common"
	"github.com/metno-forecast/norwegianweather/internal/weather"
)

const (
	// DefaultMetNoURL is the locationforecast 2.0 "complete" endpoint.
	DefaultMetNoURL = "https://api.met.no/weatherapi/locationforecast/2.0/complete"

	// DefaultTimeout bounds a whole Fetch call.
	DefaultTimeout = 20 * time.Second
)

// MetNoOptions configures a MetNoProvider.
type MetNoOptions struct {
	BaseURL string
	// UserAgent identifies the deployment. met.no blocks requests with a
	// missing or generic agent, so it is required.
	UserAgent string
	Timeout   time.Duration
	// RatePerSecond limits outbound requests; <= 0 disables the limit.
	RatePerSecond float64
	Clock         common.Clock
}

// MetNoProvider is the conditional fetcher for the MET Norway
// locationforecast API. It implements weather.Fetcher.
type MetNoProvider struct {
	name      string
	url       string
	userAgent string
	clock     common.Clock
	httpCfg   HTTPClientConfig
	circuit   *gobreaker.CircuitBreaker
	log       *slog.Logger
}

func NewMetNoProvider(client *http.Client, loc weather.Location, opts MetNoOptions, log *slog.Logger) (*MetNoProvider, error) {
	if opts.UserAgent == "" {
		return nil, fmt.Errorf("metno: user agent must be defined")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultMetNoURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Clock == nil {
		opts.Clock = common.RealClock{}
	}
	u, err := BuildMetNoURL(opts.BaseURL, loc)
	if err != nil {
		return nil, err
	}

	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}

	return &MetNoProvider{
		name:      "metno",
		url:       u,
		userAgent: opts.UserAgent,
		clock:     opts.Clock,
		httpCfg: HTTPClientConfig{
			Client:  client,
			Timeout: opts.Timeout,
			Limiter: rate.NewLimiter(limit, 1),
		},
		circuit: newCircuitBreaker("metno"),
		log:     log.With("provider", "metno"),
	}, nil
}

// BuildMetNoURL appends the location query to base. Coordinates are
// formatted with four decimals, the maximum precision the API accepts.
func BuildMetNoURL(base string, loc weather.Location) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("metno: invalid base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("metno: base url %q must be absolute", base)
	}
	q := fmt.Sprintf("lat=%.4f&lon=%.4f", common.Round(loc.Latitude, 4), common.Round(loc.Longitude, 4))
	if loc.Altitude != nil {
		q += fmt.Sprintf("&altitude=%d", *loc.Altitude)
	}
	if u.RawQuery != "" {
		q = u.RawQuery + "&" + q
	}
	u.RawQuery = q
	return u.String(), nil
}

func (p *MetNoProvider) Name() string {
	return p.name
}

// URL is the request URL used for every fetch.
func (p *MetNoProvider) URL() string {
	return p.url
}

// Fetch requests a new forecast when prior has expired. When the prior pair
// has a Last-Modified time the request is conditional and a 304 answer keeps
// the prior payload. Failures are logged and reported as StatusFailed.
func (p *MetNoProvider) Fetch(ctx context.Context, prior weather.Freshness) weather.FetchResult {
	now := p.clock.Now()
	if !prior.Expired(now) {
		p.log.Debug("data still valid, skipping request", "expires", prior.Expires, "now", now)
		return weather.FetchResult{Status: weather.StatusFresh, Freshness: prior}
	}

	res, err := p.fetch(ctx, prior)
	if err != nil {
		err = classify(err)
		p.log.Error("fetching forecast failed", "url", p.url, "error", err)
		return weather.FetchResult{Status: weather.StatusFailed, Freshness: prior, Err: err}
	}
	return res
}

func (p *MetNoProvider) fetch(ctx context.Context, prior weather.Freshness) (weather.FetchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, p.httpCfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return weather.FetchResult{}, err
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "application/json")
	if !prior.LastModified.IsZero() {
		req.Header.Set("If-Modified-Since", prior.LastModified.UTC().Format(http.TimeFormat))
	}

	resp, err := doRequest(ctx, p.httpCfg, p.circuit, req, func(status int) bool {
		return status == http.StatusNotModified || (status >= 200 && status < 300)
	})
	if err != nil {
		return weather.FetchResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		p.log.Debug("forecast not modified, keeping existing data",
			"expires", prior.Expires, "last_modified", prior.LastModified)
		return weather.FetchResult{Status: weather.StatusNotModified, Freshness: prior}, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return weather.FetchResult{}, err
	}
	var payload weather.RawPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return weather.FetchResult{}, fmt.Errorf("%w: %v", weather.ErrMalformedResponse, err)
	}

	fresh := weather.Freshness{
		Expires:      p.headerTime(resp.Header, "Expires"),
		LastModified: p.headerTime(resp.Header, "Last-Modified"),
	}
	p.log.Debug("forecast received", "status", resp.StatusCode,
		"expires", fresh.Expires, "last_modified", fresh.LastModified, "bytes", len(body))

	return weather.FetchResult{
		Status:    weather.StatusUpdated,
		Body:      body,
		Payload:   &payload,
		Freshness: fresh,
	}, nil
}

// headerTime parses an HTTP-date header. A missing or malformed value is
// logged and yields the zero time.
func (p *MetNoProvider) headerTime(h http.Header, key string) time.Time {
	ts, err := ParseHTTPDate(h.Get(key))
	if err != nil {
		p.log.Warn("could not parse response header", "header", key, "error", err)
		return time.Time{}
	}
	return ts
}

var errEmptyDate = errors.New("empty date")

// ParseHTTPDate parses the HTTP date formats plus RFC 1123 with a numeric
// zone, returning UTC.
func ParseHTTPDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errEmptyDate
	}
	if ts, err := http.ParseTime(s); err == nil {
		return ts.UTC(), nil
	}
	ts, err := time.Parse(time.RFC1123Z, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse http date %q: %w", s, err)
	}
	return ts.UTC(), nil
}

var _ weather.Fetcher = (*MetNoProvider)(nil)
