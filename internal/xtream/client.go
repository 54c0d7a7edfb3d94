package xtream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/tonimelisma/iptv-sync/internal/catalog"
)

const (
	apiPath          = "/player_api.php"
	defaultUserAgent = "iptv-sync/0.1"

	// errBodyLimit caps how much of an error response is kept for messages.
	errBodyLimit = 512
)

// Xtream action names per content kind.
var (
	categoryActions = map[catalog.Kind]string{
		catalog.KindLive:   "get_live_categories",
		catalog.KindMovie:  "get_vod_categories",
		catalog.KindSeries: "get_series_categories",
	}
	catalogActions = map[catalog.Kind]string{
		catalog.KindLive:   "get_live_streams",
		catalog.KindMovie:  "get_vod_streams",
		catalog.KindSeries: "get_series",
	}
)

// ClientConfig holds the inputs for NewClient.
type ClientConfig struct {
	BaseURL    string // panel root, e.g. "http://panel.example:8080"
	Username   string
	Password   string
	HTTPClient *http.Client

	// RequestsPerSecond paces requests to the panel. Zero disables pacing.
	RequestsPerSecond float64
	UserAgent         string
	Logger            *slog.Logger
}

// Client talks to one panel with one set of credentials. It performs a
// single attempt per call; callers decide whether to retry using IsRetryable.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
	logger     *slog.Logger
}

// NewClient creates a panel client.
func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		username:   cfg.Username,
		password:   cfg.Password,
		httpClient: httpClient,
		limiter:    limiter,
		userAgent:  ua,
		logger:     logger,
	}
}

// Authenticate checks the credentials against the panel and returns the
// account block. A panel answering auth=0 yields ErrUnauthorized.
func (c *Client) Authenticate(ctx context.Context) (*AccountInfo, error) {
	resp, err := c.get(ctx, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var ar authResponse
	if err := json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return nil, fmt.Errorf("xtream: decoding account info: %w", err)
	}

	if !ar.UserInfo.Auth {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Action:     "authenticate",
			Message:    "panel rejected credentials",
			Err:        ErrUnauthorized,
		}
	}

	return &ar.UserInfo, nil
}

// ListCategories downloads the full category list for kind. Category lists
// are small, so the whole response is decoded at once. A null body (some
// panels send it for an empty list) yields an empty slice.
func (c *Client) ListCategories(ctx context.Context, kind catalog.Kind) ([]Category, error) {
	action, ok := categoryActions[kind]
	if !ok {
		return nil, fmt.Errorf("xtream: no category action for kind %s", kind)
	}

	resp, err := c.get(ctx, action)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var cats []Category
	if err := json.NewDecoder(resp.Body).Decode(&cats); err != nil {
		return nil, fmt.Errorf("xtream: decoding %s: %w", action, err)
	}

	c.logger.Debug("categories fetched",
		slog.String("kind", kind.String()),
		slog.Int("count", len(cats)),
	)

	return cats, nil
}

// OpenCatalog starts the catalog download for kind and returns the response
// body unread. The caller must close it.
func (c *Client) OpenCatalog(ctx context.Context, kind catalog.Kind) (io.ReadCloser, error) {
	action, ok := catalogActions[kind]
	if !ok {
		return nil, fmt.Errorf("xtream: no catalog action for kind %s", kind)
	}

	resp, err := c.get(ctx, action)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("catalog stream opened",
		slog.String("kind", kind.String()),
		slog.Int64("content_length", resp.ContentLength),
	)

	return &catalogBody{ReadCloser: resp.Body, ctx: ctx, action: action, password: c.password}, nil
}

// catalogBody classifies read failures of a streaming catalog body the same
// way get classifies request failures.
type catalogBody struct {
	io.ReadCloser

	ctx      context.Context
	action   string
	password string
}

func (b *catalogBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	if err == nil || errors.Is(err, io.EOF) {
		return n, err
	}

	if ctxErr := b.ctx.Err(); ctxErr != nil {
		return n, fmt.Errorf("xtream: reading %s canceled: %w", b.action, ctxErr)
	}

	return n, fmt.Errorf("%w: reading %s: %s", ErrNetwork, b.action, redact(err.Error(), b.password))
}

// get issues one GET against player_api.php. On a non-2xx status the body
// is drained and closed and an *APIError is returned.
func (c *Client) get(ctx context.Context, action string) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("xtream: waiting for rate limiter: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(action), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("xtream: creating request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("xtream: request canceled: %w", ctx.Err())
		}

		// The URL carries credentials; log and wrap the action only.
		c.logger.Warn("request failed",
			slog.String("action", actionLabel(action)),
			slog.String("error", redact(err.Error(), c.password)),
		)

		return nil, fmt.Errorf("%w: %s: %s", ErrNetwork, actionLabel(action), redact(err.Error(), c.password))
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		c.logger.Debug("request succeeded",
			slog.String("action", actionLabel(action)),
			slog.Int("status", resp.StatusCode),
		)

		return resp, nil
	}

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, errBodyLimit))
	resp.Body.Close()

	if readErr != nil {
		body = []byte("(failed to read response body)")
	}

	return nil, &APIError{
		StatusCode: resp.StatusCode,
		Action:     actionLabel(action),
		Message:    strings.TrimSpace(string(body)),
		Err:        classifyStatus(resp.StatusCode),
	}
}

func (c *Client) requestURL(action string) string {
	q := url.Values{}
	q.Set("username", c.username)
	q.Set("password", c.password)

	if action != "" {
		q.Set("action", action)
	}

	return c.baseURL + apiPath + "?" + q.Encode()
}

func actionLabel(action string) string {
	if action == "" {
		return "authenticate"
	}

	return action
}

// redact removes the password (raw and query-escaped) from s.
func redact(s, password string) string {
	if password == "" {
		return s
	}

	s = strings.ReplaceAll(s, url.QueryEscape(password), "REDACTED")

	return strings.ReplaceAll(s, password, "REDACTED")
}
