package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"

	"esports_v1/ingestion/internal/apperr"
	"esports_v1/ingestion/internal/metrics"
	"esports_v1/ingestion/internal/models"
)

// Window selects which match listing to fetch
type Window string

const (
	WindowUpcoming Window = "upcoming"
	WindowRunning  Window = "running"
	WindowPast     Window = "past"
)

// MaxPageSize is the largest page the upstream API serves
const MaxPageSize = 100

// ParseWindow converts a string into a Window
func ParseWindow(s string) (Window, error) {
	switch w := Window(strings.ToLower(strings.TrimSpace(s))); w {
	case WindowUpcoming, WindowRunning, WindowPast:
		return w, nil
	default:
		return "", apperr.Validation(errors.Newf("unknown window %q", s))
	}
}

// sortParam returns the ordering for a window: soonest first for live and
// upcoming listings, most recent first for past results.
func (w Window) sortParam() string {
	if w == WindowPast {
		return "-begin_at"
	}
	return "begin_at"
}

// StatusError is returned when the API answers with a non-2xx status
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("API returned status %d: %s", e.StatusCode, e.Body)
}

// Client is the PandaScore API client
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
}

// Option customises a Client
type Option func(*Client)

// WithRetryDelay sets the base delay of the exponential backoff
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) { c.retryDelay = d }
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a new PandaScore API client
func NewClient(baseURL, token string, timeout time.Duration, maxRetries int, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		maxRetries: maxRetries,
		retryDelay: 1 * time.Second,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchMatches fetches one page of matches for a game and window.
// On any failure it returns an empty, non-nil slice together with a
// transport-marked error, so callers can treat the round as "no data".
func (c *Client) FetchMatches(ctx context.Context, gameSlug string, window Window, pageSize, page int) ([]*models.MatchInput, error) {
	empty := []*models.MatchInput{}

	if _, err := ParseWindow(string(window)); err != nil {
		return empty, err
	}
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	if page < 1 {
		page = 1
	}

	path := fmt.Sprintf("%s/matches/%s", gameSlug, window)
	params := map[string]string{
		"per_page": strconv.Itoa(pageSize),
		"page":     strconv.Itoa(page),
		"sort":     window.sortParam(),
	}

	body, err := c.get(ctx, path, params)
	if err != nil {
		return empty, apperr.Transport(errors.Wrapf(err, "fetch %s matches for %s", window, gameSlug))
	}

	var matches []*models.MatchInput
	if err := sonic.Unmarshal(body, &matches); err != nil {
		return empty, apperr.Transport(errors.Wrapf(err, "decode %s matches for %s", window, gameSlug))
	}
	if matches == nil {
		matches = empty
	}

	log.Debug().
		Str("game", gameSlug).
		Str("window", string(window)).
		Int("page", page).
		Int("count", len(matches)).
		Msg("Matches fetched")

	return matches, nil
}

// FetchTeamRoster fetches a team and its players.
// A 404 is reported as a roster without players.
func (c *Client) FetchTeamRoster(ctx context.Context, teamID int64) (*models.TeamRosterInput, error) {
	body, err := c.get(ctx, fmt.Sprintf("teams/%d", teamID), nil)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
			return &models.TeamRosterInput{ID: teamID}, nil
		}
		return nil, apperr.Transport(errors.Wrapf(err, "fetch roster for team %d", teamID))
	}

	var roster models.TeamRosterInput
	if err := sonic.Unmarshal(body, &roster); err != nil {
		return nil, apperr.Transport(errors.Wrapf(err, "decode roster for team %d", teamID))
	}
	if roster.ID == 0 {
		roster.ID = teamID
	}

	return &roster, nil
}

// get performs a GET request with retry and exponential backoff
func (c *Client) get(ctx context.Context, path string, params map[string]string) ([]byte, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, path)
	endpoint := endpointLabel(path)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: 1s, 2s, 4s
			backoff := c.retryDelay * time.Duration(1<<uint(attempt-1))
			log.Info().
				Str("url", url).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("Retrying API request after backoff")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		body, retry, err := c.do(ctx, url, endpoint, params, attempt)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retry || ctx.Err() != nil {
			return nil, err
		}
	}

	return nil, lastErr
}

// do performs a single attempt; retry reports whether the failure is transient
func (c *Client) do(ctx context.Context, url, endpoint string, params map[string]string, attempt int) (body []byte, retry bool, err error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to create request")
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "esports-ingestion/1.0")

	if len(params) > 0 {
		q := req.URL.Query()
		for key, value := range params {
			q.Add(key, value)
		}
		req.URL.RawQuery = q.Encode()
	}

	log.Debug().
		Str("url", url).
		Int("attempt", attempt+1).
		Msg("Making API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordAPICall(endpoint, "network_error", time.Since(start).Seconds())
		return nil, true, errors.Wrap(err, "API request failed")
	}
	defer resp.Body.Close()

	body, err = io.ReadAll(resp.Body)
	metrics.RecordAPICall(endpoint, strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())
	if err != nil {
		return nil, true, errors.Wrap(err, "failed to read response body")
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		log.Debug().
			Str("url", url).
			Int("status", resp.StatusCode).
			Int("size", len(body)).
			Msg("API request successful")
		return body, false, nil

	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		log.Warn().
			Str("url", url).
			Int("status", resp.StatusCode).
			Int("attempt", attempt+1).
			Msg("Received retryable error")
		return nil, true, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 256)}

	default:
		// 401/403 and other client errors are not retried
		return nil, false, &StatusError{StatusCode: resp.StatusCode, Body: truncate(string(body), 256)}
	}
}

// endpointLabel collapses ids out of the path to keep metric cardinality low
func endpointLabel(path string) string {
	if strings.HasPrefix(path, "teams/") {
		return "teams"
	}
	return path
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
