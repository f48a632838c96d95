// Package aviationweather fetches METAR observations from the Aviation
// Weather Center data API and normalizes them into domain observations.
package aviationweather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/flight-fuel-etl/internal/domain"
	"github.com/couchcryptid/flight-fuel-etl/internal/observability"
)

const (
	DefaultBaseURL     = "https://aviationweather.gov/api/data/metar"
	DefaultBatchSize   = 20
	DefaultBatchDelay  = 2 * time.Second
	DefaultHoursBack   = 6
	DefaultMaxAirports = 100
)

// Options configures a Client. Zero values take the package defaults.
type Options struct {
	BaseURL     string
	Timeout     time.Duration
	BatchSize   int
	BatchDelay  time.Duration
	HoursBack   int
	MaxAirports int

	// ICAOPrefix is prepended to three-letter codes before querying, so
	// "ATL" is requested as "KATL". Empty disables the mapping.
	ICAOPrefix string
}

// Client fetches observations in batches with a fixed delay between batches.
// A failed batch is logged and skipped; it never fails the whole fetch.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	batchSize   int
	hoursBack   int
	maxAirports int
	icaoPrefix  string
	clock       clockwork.Clock
	limiter     *rateLimiter
	metrics     *observability.Metrics
	logger      *slog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithClock replaces the time source used for inter-batch delays.
func WithClock(c clockwork.Clock) Option {
	return func(cl *Client) { cl.clock = c }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(cl *Client) { cl.httpClient = hc }
}

// NewClient creates an Aviation Weather Center client.
func NewClient(opts Options, metrics *observability.Metrics, logger *slog.Logger, options ...Option) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.BatchDelay < 0 {
		opts.BatchDelay = DefaultBatchDelay
	}
	if opts.HoursBack <= 0 {
		opts.HoursBack = DefaultHoursBack
	}
	if opts.MaxAirports <= 0 {
		opts.MaxAirports = DefaultMaxAirports
	}

	c := &Client{
		httpClient:  &http.Client{Timeout: opts.Timeout},
		baseURL:     opts.BaseURL,
		batchSize:   opts.BatchSize,
		hoursBack:   opts.HoursBack,
		maxAirports: opts.MaxAirports,
		icaoPrefix:  strings.ToUpper(opts.ICAOPrefix),
		clock:       clockwork.NewRealClock(),
		metrics:     metrics,
		logger:      logger,
	}
	for _, o := range options {
		o(c)
	}
	c.limiter = newRateLimiter(opts.BatchDelay, c.clock)
	return c
}

// Observations fetches recent METARs for the given airport codes. Codes are
// de-duplicated and capped at MaxAirports in first-seen order. The returned
// observations carry the caller's code, not the ICAO identifier. The only
// error is context cancellation, returned with whatever was fetched so far.
func (c *Client) Observations(ctx context.Context, codes []string) ([]domain.WeatherObservation, error) {
	requested := c.selectCodes(codes)
	if len(requested) == 0 {
		return nil, nil
	}

	var all []domain.WeatherObservation
	for start := 0; start < len(requested); start += c.batchSize {
		end := min(start+c.batchSize, len(requested))
		batch := requested[start:end]

		if err := c.limiter.Wait(ctx); err != nil {
			return all, err
		}

		obs, err := c.fetchBatch(ctx, batch)
		if err != nil {
			if ctx.Err() != nil {
				return all, ctx.Err()
			}
			c.metrics.WeatherBatches.WithLabelValues("error").Inc()
			c.logger.Warn("weather batch failed, skipping",
				"first", start+1, "last", end, "error", err)
			continue
		}
		if len(obs) == 0 {
			c.metrics.WeatherBatches.WithLabelValues("empty").Inc()
			c.logger.Info("weather batch returned no observations", "first", start+1, "last", end)
			continue
		}

		c.metrics.WeatherBatches.WithLabelValues("success").Inc()
		c.metrics.Observations.WithLabelValues("live").Add(float64(len(obs)))
		c.logger.Debug("weather batch fetched", "first", start+1, "last", end, "observations", len(obs))
		all = append(all, obs...)
	}
	return all, nil
}

func (c *Client) selectCodes(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, min(len(codes), c.maxAirports))
	for _, code := range codes {
		code = strings.ToUpper(strings.TrimSpace(code))
		if code == "" {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
		if len(out) == c.maxAirports {
			break
		}
	}
	return out
}

// icaoID maps a requested code to the identifier the provider expects.
func (c *Client) icaoID(code string) string {
	if c.icaoPrefix != "" && len(code) == 3 {
		return c.icaoPrefix + code
	}
	return code
}

func (c *Client) fetchBatch(ctx context.Context, codes []string) ([]domain.WeatherObservation, error) {
	byICAO := make(map[string]string, len(codes))
	ids := make([]string, len(codes))
	for i, code := range codes {
		ids[i] = c.icaoID(code)
		byICAO[ids[i]] = code
	}

	params := url.Values{
		"ids":    {strings.Join(ids, ",")},
		"format": {"json"},
		"hours":  {strconv.Itoa(c.hoursBack)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	start := c.clock.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.WeatherAPIDuration.Observe(c.clock.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("metar request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("metar API error: status %d: %s", resp.StatusCode, body)
	}

	var elements []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&elements); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("decode response: %w", err)
	}

	out := make([]domain.WeatherObservation, 0, len(elements))
	for i, raw := range elements {
		obs, err := decodeObservation(raw)
		if err != nil {
			c.metrics.ObservationsSkipped.Inc()
			c.logger.Debug("skipping malformed observation", "index", i, "error", err)
			continue
		}
		if code, ok := byICAO[obs.AirportCode]; ok {
			obs.AirportCode = code
		}
		out = append(out, obs)
	}
	return out, nil
}
