package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/yildizm/ContractSum/internal/logger"
)

// Messages shown to the user when the backend gives no detail
const (
	MsgLoginFailed       = "Login failed. Please try again."
	MsgRegisterFailed    = "Registration failed. Please try again."
	MsgUploadFailed      = "Failed to upload file."
	MsgNoFilesSelected   = "Please select at least one file to upload."
	MsgNoAnalysisData    = "No analysis data returned from server."
	MsgFetchStatusFailed = "Failed to fetch analysis status."
	MsgUserFailed        = "Failed to fetch current user."
	MsgHealthFailed      = "Backend is not reachable."
)

const maxErrorBody = 64 * 1024

// Client talks to the contracts backend
type Client struct {
	config  *Config
	client  *http.Client
	baseURL *url.URL
	limiter *rate.Limiter
	log     *logger.Logger

	mu    sync.RWMutex
	token string
}

// New creates a client from config. A nil config uses DefaultConfig.
func New(config *Config) (*Client, error) {
	if config == nil {
		config = DefaultConfig()
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	baseURL, err := url.Parse(strings.TrimRight(config.BaseURL, "/"))
	if err != nil {
		return nil, NewAPIErrorWithCause(ErrTypeConfiguration, "config", "invalid base URL", err)
	}

	if config.RetryBaseDelay <= 0 {
		config.RetryBaseDelay = DefaultRetryBaseDelay
	}
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}

	c := &Client{
		config:  config,
		client:  &http.Client{Timeout: config.Timeout},
		baseURL: baseURL,
		log:     logger.NewWithCallback("api", func() bool { return false }),
	}

	if config.RequestsPerSecond > 0 {
		burst := config.Burst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), burst)
	}

	return c, nil
}

// SetLogger replaces the client's logger
func (c *Client) SetLogger(l *logger.Logger) {
	if l != nil {
		c.log = l.WithComponent("api")
	}
}

// SetToken sets the bearer token sent with every request. An empty token
// removes the Authorization header.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// Token returns the current bearer token
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// BaseURL returns the backend root URL
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Config returns the client configuration
func (c *Client) Config() *Config {
	return c.config
}

// Login exchanges credentials for a bearer token. The token is not stored
// on the client; callers decide whether to keep it.
func (c *Client) Login(ctx context.Context, username, password string) (*Token, error) {
	const op = "login"

	if strings.TrimSpace(username) == "" {
		return nil, NewValidationError("username", username, "Username is required.")
	}
	if password == "" {
		return nil, NewValidationError("password", "", "Password is required.")
	}

	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req, err := c.newRequest(ctx, http.MethodPost, c.endpoint("auth", "token"), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var token Token
	if err := c.doJSON(req, op, MsgLoginFailed, &token); err != nil {
		return nil, err
	}

	if token.AccessToken == "" {
		return nil, NewAPIError(ErrTypeAuthentication, op, MsgLoginFailed)
	}
	if token.TokenType == "" {
		token.TokenType = "bearer"
	}

	return &token, nil
}

// Register creates an account. It never logs the user in.
func (c *Client) Register(ctx context.Context, reg *RegisterRequest) (*User, error) {
	const op = "register"

	if reg == nil {
		return nil, NewValidationError("request", "", "Registration details are required.")
	}
	if err := reg.Validate(); err != nil {
		return nil, err
	}

	body, err := json.Marshal(reg)
	if err != nil {
		return nil, NewAPIErrorWithCause(ErrTypeInternal, op, MsgRegisterFailed, err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.endpoint("auth", "register"), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var user User
	if err := c.doJSON(req, op, MsgRegisterFailed, &user); err != nil {
		return nil, err
	}

	return &user, nil
}

// CurrentUser returns the account behind the current token
func (c *Client) CurrentUser(ctx context.Context) (*User, error) {
	const op = "current_user"

	if c.Token() == "" {
		return nil, NewAPIError(ErrTypeAuthentication, op, "Not logged in.")
	}

	req, err := c.newRequest(ctx, http.MethodGet, c.endpoint("users", "me"), nil)
	if err != nil {
		return nil, err
	}

	var user User
	if err := c.doJSON(req, op, MsgUserFailed, &user); err != nil {
		return nil, err
	}

	return &user, nil
}

// GetAnalysis fetches a single analysis record
func (c *Client) GetAnalysis(ctx context.Context, id string) (*Analysis, error) {
	const op = "get_analysis"

	id = strings.TrimSpace(id)
	if id == "" {
		return nil, NewValidationError("id", "", "Analysis id is required.")
	}

	req, err := c.newRequest(ctx, http.MethodGet, c.endpoint("analyses", url.PathEscape(id)), nil)
	if err != nil {
		return nil, err
	}

	var analysis Analysis
	if err := c.doJSON(req, op, MsgFetchStatusFailed, &analysis); err != nil {
		return nil, err
	}

	return &analysis, nil
}

// HealthCheck calls the backend's welcome route
func (c *Client) HealthCheck(ctx context.Context) error {
	const op = "health"

	req, err := c.newRequest(ctx, http.MethodGet, c.baseURL.JoinPath("/").String(), nil)
	if err != nil {
		return err
	}

	resp, err := c.do(req, op, MsgHealthFailed)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	return nil
}

func (c *Client) endpoint(parts ...string) string {
	return c.baseURL.JoinPath(append([]string{apiPrefix}, parts...)...).String()
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, NewAPIErrorWithCause(ErrTypeInternal, "request", "failed to create request", err)
	}
	c.setHeaders(req)
	return req, nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())

	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}

// doJSON performs the request and decodes a successful JSON body into out
func (c *Client) doJSON(req *http.Request, op, fallback string, out any) error {
	resp, err := c.do(req, op, fallback)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return NewAPIErrorWithCause(ErrTypeServer, op, fallback, fmt.Errorf("failed to decode response: %w", err))
	}
	return nil
}

// do sends the request and maps non-2xx responses to *APIError. The caller
// owns the returned body.
func (c *Client) do(req *http.Request, op, fallback string) (*http.Response, error) {
	start := time.Now()

	var (
		resp *http.Response
		err  error
	)
	if isIdempotent(req.Method) {
		resp, err = c.doRequestWithRetry(req, op, fallback)
	} else {
		resp, err = c.send(req, op, fallback)
	}
	if err != nil {
		c.log.DebugWithFields("%s %s failed", []logger.Field{
			logger.F("request_id", req.Header.Get("X-Request-ID")),
			logger.Duration(time.Since(start)),
			logger.Error(err),
		}, req.Method, req.URL.Path)
		return nil, err
	}

	c.log.DebugWithFields("%s %s", []logger.Field{
		logger.F("request_id", req.Header.Get("X-Request-ID")),
		logger.F("status", resp.StatusCode),
		logger.Duration(time.Since(start)),
	}, req.Method, req.URL.Path)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer func() { _ = resp.Body.Close() }()
		return nil, handleErrorResponse(resp, op, fallback)
	}

	return resp, nil
}

// send performs a single attempt
func (c *Client) send(req *http.Request, op, fallback string) (*http.Response, error) {
	if err := c.wait(req.Context(), op, fallback); err != nil {
		if req.Body != nil {
			_ = req.Body.Close()
		}
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, transportError(op, fallback, err)
	}
	return resp, nil
}

// doRequestWithRetry retries bodiless requests on network errors, 429 and
// 5xx with exponential backoff. Retry-After is honored on 429.
func (c *Client) doRequestWithRetry(originalReq *http.Request, op, fallback string) (*http.Response, error) {
	ctx := originalReq.Context()
	maxAttempts := c.config.MaxRetries + 1

	for attempt := 0; attempt < maxAttempts; attempt++ {
		last := attempt == maxAttempts-1

		req := originalReq
		if attempt > 0 {
			req = originalReq.Clone(ctx)
			req.Header.Set("X-Request-ID", uuid.NewString())
		}

		resp, err := c.send(req, op, fallback)
		if err != nil {
			if last || ctx.Err() != nil || !IsRetryableError(err) {
				return nil, err
			}
			c.log.Debug("%s %s: retrying after network error (attempt %d/%d)", req.Method, req.URL.Path, attempt+1, maxAttempts)
			if werr := sleepCtx(ctx, c.backoff(attempt)); werr != nil {
				return nil, transportError(op, fallback, werr)
			}
			continue
		}

		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError
		if !retryable || last {
			return resp, nil
		}

		delay := c.backoff(attempt)
		if resp.StatusCode == http.StatusTooManyRequests {
			if seconds := parseRetryAfter(resp.Header.Get("Retry-After")); seconds > 0 {
				delay = time.Duration(seconds) * time.Second
			}
		}
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		_ = resp.Body.Close()

		c.log.Debug("%s %s: retrying after status %d in %v", req.Method, req.URL.Path, resp.StatusCode, delay)
		if werr := sleepCtx(ctx, delay); werr != nil {
			return nil, transportError(op, fallback, werr)
		}
	}

	return nil, NewAPIError(ErrTypeNetwork, op, fallback)
}

func (c *Client) backoff(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt))) * c.config.RetryBaseDelay
}

func (c *Client) wait(ctx context.Context, op, fallback string) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return transportError(op, fallback, err)
	}
	return nil
}

// handleErrorResponse maps a non-2xx response to a typed error carrying the
// backend's detail, or fallback when there is none.
func handleErrorResponse(resp *http.Response, op, fallback string) error {
	message := fallback

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err == nil && len(body) > 0 {
		var errorResp ErrorResponse
		if json.Unmarshal(body, &errorResp) == nil {
			if detail := errorResp.Message(); detail != "" {
				message = detail
			}
		}
	}

	var errType ErrorType
	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		errType = ErrTypeAuthentication
	case resp.StatusCode == http.StatusNotFound:
		errType = ErrTypeNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		errType = ErrTypeRateLimit
	case resp.StatusCode >= http.StatusInternalServerError:
		errType = ErrTypeServer
	default:
		errType = ErrTypeValidation
	}

	apiErr := NewAPIError(errType, op, message)
	apiErr.StatusCode = resp.StatusCode
	if errType == ErrTypeRateLimit {
		apiErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"))
	}
	return apiErr
}

// transportError classifies errors returned by http.Client.Do
func transportError(op, fallback string, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		apiErr := NewAPIErrorWithCause(ErrTypeNetwork, op, fallback, err)
		apiErr.Retryable = false
		return apiErr
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return NewAPIErrorWithCause(ErrTypeTimeout, op, fallback, err)
	default:
		return NewAPIErrorWithCause(ErrTypeNetwork, op, fallback, err)
	}
}

func parseRetryAfter(v string) int {
	if v == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && seconds > 0 {
		return seconds
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return int(math.Ceil(d.Seconds()))
		}
	}
	return 0
}

func isIdempotent(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
