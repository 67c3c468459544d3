/**
 * @description
 * This package is the typed access layer over the SplitUp REST API.
 * It groups operations by resource, translates each one into an HTTP
 * method/path/body, attaches request context (bearer credential, request id,
 * locale) and decodes the JSON response into domain types.
 *
 * There are no retries, no caching and no deduplication: every failure is
 * returned to the caller as a domain.TransportError, domain.HTTPError or
 * domain.ValidationError.
 *
 * @dependencies
 * - github.com/google/uuid: per-request X-Request-ID values.
 * - github.com/go-playground/validator/v10 (via domain.Validate): payload checks.
 */
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nsa09-nsa09/splitup-frontend/internal/domain"
)

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "http://localhost:8080/api"

// ActorHeader carries the caller-asserted user id on wallet requests.
const ActorHeader = "User-Id"

// CredentialSource supplies the bearer credential for outgoing requests.
// It is read on every request and never mutated by the client.
type CredentialSource interface {
	Token() string
}

// LocaleSource supplies the Accept-Language value for outgoing requests.
type LocaleSource interface {
	Locale() string
}

// Client is the facade over every resource family.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	paths      Paths
	creds      CredentialSource
	locale     LocaleSource
	logger     *slog.Logger

	ServiceTypes  *ServiceTypesAPI
	Categories    *CategoriesAPI
	Services      *ServicesAPI
	Plans         *PlansAPI
	CategoryPlans *CategoryPlansAPI
	Wallet        *WalletAPI
	Users         *UsersAPI
	SpeedTest     *SpeedTestAPI
	Auth          *AuthAPI
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets a per-request timeout. Zero keeps the transport default.
// It applies to a copy of the *http.Client, whatever the option order.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithCredentials attaches a bearer credential source.
func WithCredentials(src CredentialSource) Option {
	return func(c *Client) { c.creds = src }
}

// WithLocale attaches an Accept-Language source.
func WithLocale(src LocaleSource) Option {
	return func(c *Client) { c.locale = src }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithPaths replaces the resource path scheme.
func WithPaths(p Paths) Option {
	return func(c *Client) { c.paths = p }
}

// New creates a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) *Client {
	normalized := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if normalized == "" {
		normalized = DefaultBaseURL
	}

	c := &Client{
		baseURL:    normalized,
		httpClient: &http.Client{},
		paths:      DefaultPaths(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 {
		hc := *c.httpClient
		hc.Timeout = c.timeout
		c.httpClient = &hc
	}

	p := c.paths
	c.ServiceTypes = &ServiceTypesAPI{newResource[domain.ServiceType, domain.ServiceTypeInput](c, "service_types", p.ServiceTypes)}
	c.Categories = &CategoriesAPI{
		resource: newResource[domain.ServiceCategory, domain.ServiceCategoryInput](c, "categories", p.Categories),
		byType:   p.CategoriesByType,
	}
	c.Services = &ServicesAPI{
		resource:   newResource[domain.Service, domain.ServiceInput](c, "services", p.Services),
		byType:     p.ServicesByType,
		byCategory: p.ServicesByCategory,
	}
	c.Plans = &PlansAPI{
		resource:  newResource[domain.SubscriptionPlan, domain.SubscriptionPlanInput](c, "plans", p.Plans),
		byService: p.PlansByService,
	}
	c.CategoryPlans = &CategoryPlansAPI{
		resource:   newResource[domain.CategoryPlan, domain.CategoryPlanInput](c, "category_plans", p.CategoryPlans),
		byCategory: p.CategoryPlansByCategory,
	}
	c.Wallet = &WalletAPI{client: c, paths: p}
	c.Users = &UsersAPI{
		users:         newResource[domain.User, domain.UserInput](c, "users", p.Users),
		subscriptions: p.UserSubscriptions,
	}
	c.SpeedTest = &SpeedTestAPI{client: c, paths: p}
	c.Auth = &AuthAPI{client: c, paths: p}
	return c
}

// BaseURL returns the normalized API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// request describes one call before it is turned into an *http.Request.
type request struct {
	op      string
	method  string
	path    string
	query   url.Values
	body    any
	headers map[string]string
	anon    bool
}

// do executes req and decodes a 2xx body into out (when out is non-nil).
func (c *Client) do(ctx context.Context, req request, out any) error {
	var body io.Reader
	if req.body != nil {
		raw, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("%s: failed to marshal request: %w", req.op, err)
		}
		body = bytes.NewReader(raw)
	}

	target := c.baseURL + req.path
	if len(req.query) > 0 {
		target += "?" + req.query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target, body)
	if err != nil {
		return fmt.Errorf("%s: failed to create request: %w", req.op, err)
	}

	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if !req.anon && c.creds != nil {
		if token := strings.TrimSpace(c.creds.Token()); token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}
	if c.locale != nil {
		if lang := c.locale.Locale(); lang != "" {
			httpReq.Header.Set("Accept-Language", lang)
		}
	}
	for k, v := range req.headers {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Warn("api request failed", "component", "apiclient", "op", req.op, "method", req.method, "path", req.path, "request_id", requestID, "error", err)
		return &domain.TransportError{Op: req.op, Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.TransportError{Op: req.op, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		httpErr := domain.NewHTTPError(req.op, resp.StatusCode, payload)
		c.logger.Warn("api non-2xx response", "component", "apiclient", "op", req.op, "method", req.method, "path", req.path, "status", resp.StatusCode, "request_id", requestID, "detail", httpErr.Message)
		return httpErr
	}

	c.logger.Debug("api request", "component", "apiclient", "op", req.op, "method", req.method, "path", req.path, "status", resp.StatusCode, "request_id", requestID, "duration", time.Since(start))

	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", req.op, err)
	}
	return nil
}

// list runs a GET expected to return a JSON array. A null or empty body is an
// empty, non-nil slice.
func list[T any](ctx context.Context, c *Client, req request) ([]T, error) {
	req.method = http.MethodGet
	var out []T
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}
