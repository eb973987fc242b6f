// Package hub resolves named model checkpoints to local snapshot
// directories, downloading missing files from a HuggingFace-style hub.
// The generation client never touches the network; callers resolve a
// snapshot first and hand the directory to a serving backend.
package hub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/samcharles93/ember/internal/logger"
)

const (
	// DefaultEndpoint is the public hub.
	DefaultEndpoint = "https://huggingface.co"

	// EnvToken names the access-token environment variable.
	EnvToken = "EMBER_HUB_TOKEN"

	defaultTimeout = 30 * time.Minute
	userAgent      = "ember/1.0"
)

var (
	// ErrModelNotFound reports an unknown model id.
	ErrModelNotFound = errors.New("model not found")
	// ErrUnauthorized reports a missing or rejected access token.
	ErrUnauthorized = errors.New("unauthorized")
)

// ModelInfo is the subset of hub metadata the snapshot logic needs.
type ModelInfo struct {
	ID       string    `json:"id"`
	SHA      string    `json:"sha"`
	Siblings []Sibling `json:"siblings"`
}

// Sibling is one file in a model repository.
type Sibling struct {
	Filename string `json:"rfilename"`
	Size     int64  `json:"size"`
}

// Client talks to the hub API. Requests are rate limited so snapshot
// resolution with many files stays polite.
type Client struct {
	http     *http.Client
	endpoint string
	token    string
	limiter  *rate.Limiter
	log      logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithEndpoint overrides the hub base URL (mirrors, test servers).
func WithEndpoint(url string) Option {
	return func(c *Client) { c.endpoint = strings.TrimSuffix(url, "/") }
}

// WithToken sets the access token for gated models.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRateLimit caps outgoing requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), 1) }
}

// WithLogger sets the client's logger.
func WithLogger(log logger.Logger) Option {
	return func(c *Client) { c.log = log }
}

// NewClient builds a hub client. The token defaults to $EMBER_HUB_TOKEN.
func NewClient(opts ...Option) *Client {
	c := &Client{
		http:     &http.Client{Timeout: defaultTimeout},
		endpoint: DefaultEndpoint,
		token:    os.Getenv(EnvToken),
		limiter:  rate.NewLimiter(rate.Limit(8), 4),
		log:      logger.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ModelInfo fetches repository metadata for a model id.
func (c *Client) ModelInfo(ctx context.Context, modelID string) (*ModelInfo, error) {
	if err := validateModelID(modelID); err != nil {
		return nil, err
	}
	body, err := c.get(ctx, fmt.Sprintf("%s/api/models/%s", c.endpoint, modelID))
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var info ModelInfo
	if err := json.NewDecoder(body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode model info: %w", err)
	}
	return &info, nil
}

// get issues a rate-limited GET and maps common status codes.
func (c *Client) get(ctx context.Context, url string) (io.ReadCloser, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	switch resp.StatusCode {
	case http.StatusOK:
		return resp.Body, nil
	case http.StatusNotFound:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, url)
	case http.StatusUnauthorized, http.StatusForbidden:
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s", ErrUnauthorized, url)
	default:
		resp.Body.Close()
		return nil, fmt.Errorf("hub returned %s for %s", resp.Status, url)
	}
}

func validateModelID(id string) error {
	if id == "" || strings.Contains(id, "..") || strings.HasPrefix(id, "/") {
		return fmt.Errorf("invalid model id %q", id)
	}
	return nil
}
