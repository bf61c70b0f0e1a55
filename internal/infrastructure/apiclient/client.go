package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	domainErrors "github.com/mercadotiendas/storefront/internal/domain/errors"
	"github.com/mercadotiendas/storefront/internal/domain/session"
	"github.com/mercadotiendas/storefront/internal/infrastructure/monitoring"
	"github.com/mercadotiendas/storefront/internal/pkg/logger"
)

const DefaultRefreshPath = "/auth/refresh"

// TokenStore yields the tokens of the session carried by ctx.
type TokenStore interface {
	Tokens(ctx context.Context) (session.Tokens, error)
	SaveTokens(ctx context.Context, tokens session.Tokens) error
	ClearTokens(ctx context.Context) error
}

// RetryPolicy controls the refresh call made after a 401. Only transport
// failures and 5xx answers from the refresh endpoint are retried.
type RetryPolicy struct {
	MaxRefreshAttempts int
	Backoff            time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRefreshAttempts: 1}
}

type Client struct {
	baseURL     string
	refreshPath string
	http        *http.Client
	tokens      TokenStore
	policy      RetryPolicy
	onExpired   func(ctx context.Context)
	logger      *logger.Logger
	refreshes   singleflight.Group
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.policy = p }
}

func WithRefreshPath(path string) Option {
	return func(c *Client) {
		if path != "" {
			c.refreshPath = path
		}
	}
}

// OnSessionExpired registers the hook run after a failed refresh, once the
// stored tokens are gone.
func OnSessionExpired(fn func(ctx context.Context)) Option {
	return func(c *Client) { c.onExpired = fn }
}

func WithLogger(log *logger.Logger) Option {
	return func(c *Client) { c.logger = log }
}

func NewClient(baseURL string, tokens TokenStore, opts ...Option) (*Client, error) {
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		refreshPath: DefaultRefreshPath,
		http:        &http.Client{Timeout: 15 * time.Second},
		tokens:      tokens,
		policy:      DefaultRetryPolicy(),
		logger:      logger.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.policy.MaxRefreshAttempts < 1 {
		c.policy.MaxRefreshAttempts = 1
	}

	return c, nil
}

// FilePart is one file of a multipart body.
type FilePart struct {
	Field       string
	Filename    string
	ContentType string
	Body        io.Reader
}

type Multipart struct {
	Fields map[string]string
	Files  []FilePart
}

type Request struct {
	Method string
	Path   string
	Query  url.Values
	// Endpoint names the call in metrics, e.g. "campaigns.get".
	Endpoint  string
	JSON      interface{}
	Multipart *Multipart
	Headers   map[string]string
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Decode unmarshals the payload, unwrapping a {"data": ...} envelope when
// the backend sends one.
func (r *Response) Decode(out interface{}) error {
	if out == nil || len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}

	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(r.Body, &envelope); err == nil && len(envelope.Data) > 0 && string(envelope.Data) != "null" {
		return json.Unmarshal(envelope.Data, out)
	}
	return json.Unmarshal(r.Body, out)
}

type encodedBody struct {
	data        []byte
	contentType string
}

func encode(req Request) (*encodedBody, error) {
	switch {
	case req.Multipart != nil:
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		for name, value := range req.Multipart.Fields {
			if err := w.WriteField(name, value); err != nil {
				return nil, err
			}
		}
		for _, f := range req.Multipart.Files {
			part, err := createFilePart(w, f)
			if err != nil {
				return nil, err
			}
			if _, err := io.Copy(part, f.Body); err != nil {
				return nil, fmt.Errorf("copying %s: %w", f.Field, err)
			}
		}
		if err := w.Close(); err != nil {
			return nil, err
		}
		// The boundary lives in this content type; it must not be
		// replaced by a JSON header.
		return &encodedBody{data: buf.Bytes(), contentType: w.FormDataContentType()}, nil
	case req.JSON != nil:
		data, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		return &encodedBody{data: data, contentType: "application/json"}, nil
	default:
		return nil, nil
	}
}

func createFilePart(w *multipart.Writer, f FilePart) (io.Writer, error) {
	if f.ContentType == "" {
		return w.CreateFormFile(f.Field, f.Filename)
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, f.Field, f.Filename))
	h.Set("Content-Type", f.ContentType)
	return w.CreatePart(h)
}

// Do sends req with the session's bearer token. A 401 with a stored refresh
// token triggers one refresh and one replay. If the refresh endpoint rejects
// the token the session's tokens are cleared, the expiry hook runs and
// ErrSessionExpired is returned. Other refresh failures are returned as is.
// An access token whose exp claim has passed is refreshed before sending.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	body, err := encode(req)
	if err != nil {
		return nil, err
	}

	tokens, err := c.tokens.Tokens(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading tokens: %w", err)
	}

	renewed := false
	if tokens.RefreshToken != "" && accessExpired(tokens.AccessToken, time.Now()) {
		if tokens, err = c.renew(ctx, req, tokens.RefreshToken); err != nil {
			return nil, err
		}
		renewed = true
	}

	resp, err := c.send(ctx, req, body, tokens.AccessToken)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized || tokens.RefreshToken == "" || renewed {
		return checkStatus(resp)
	}

	fresh, err := c.renew(ctx, req, tokens.RefreshToken)
	if err != nil {
		return nil, err
	}

	resp, err = c.send(ctx, req, body, fresh.AccessToken)
	if err != nil {
		return nil, err
	}
	return checkStatus(resp)
}

// renew exchanges the refresh token and stores the result. Only a refusal
// from the refresh endpoint ends the session.
func (c *Client) renew(ctx context.Context, req Request, refreshToken string) (session.Tokens, error) {
	fresh, err := c.refresh(ctx, refreshToken)
	if err != nil {
		if !refreshRejected(err) {
			c.logger.Warn("Token refresh did not complete", "endpoint", req.Endpoint, "error", err)
			return session.Tokens{}, err
		}
		c.logger.Warn("Token refresh rejected, ending session", "endpoint", req.Endpoint, "error", err)
		c.expire(ctx)
		return session.Tokens{}, fmt.Errorf("%w: %v", domainErrors.ErrSessionExpired, err)
	}

	if err := c.tokens.SaveTokens(ctx, fresh); err != nil {
		return session.Tokens{}, fmt.Errorf("storing refreshed tokens: %w", err)
	}
	return fresh, nil
}

// accessExpired reads the token's exp claim. Tokens that are not JWTs are
// never treated as expired; the 401 path covers them.
func accessExpired(accessToken string, now time.Time) bool {
	if accessToken == "" {
		return false
	}
	claims, err := session.ParseClaims(accessToken)
	if err != nil {
		return false
	}
	return claims.ExpiredAt(now)
}

// DoJSON runs Do and decodes a successful payload into out.
func (c *Client) DoJSON(ctx context.Context, req Request, out interface{}) error {
	resp, err := c.Do(ctx, req)
	if err != nil {
		return err
	}
	if err := resp.Decode(out); err != nil {
		return fmt.Errorf("decoding %s response: %w", req.Endpoint, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, req Request, body *encodedBody, accessToken string) (*Response, error) {
	u := c.baseURL + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body.data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", body.contentType)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}
	if accessToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+accessToken)
	}

	start := time.Now()
	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		monitoring.RecordUpstreamRequest(endpointLabel(req), "error", time.Since(start))
		return nil, fmt.Errorf("%w: %v", domainErrors.ErrUpstreamUnavailable, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	monitoring.RecordUpstreamRequest(endpointLabel(req), fmt.Sprintf("%d", httpResp.StatusCode), time.Since(start))

	return &Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header, Body: data}, nil
}

func endpointLabel(req Request) string {
	if req.Endpoint != "" {
		return req.Endpoint
	}
	return req.Method
}

// refresh is shared by concurrent callers holding the same refresh token.
// The shared call runs detached from any one caller's context so a
// disconnecting caller does not fail the others; each caller still stops
// waiting when its own context ends.
func (c *Client) refresh(ctx context.Context, refreshToken string) (session.Tokens, error) {
	ch := c.refreshes.DoChan(refreshToken, func() (interface{}, error) {
		shared, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.refreshTimeout())
		defer cancel()
		return c.refreshWithPolicy(shared, refreshToken)
	})

	select {
	case <-ctx.Done():
		return session.Tokens{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return session.Tokens{}, res.Err
		}
		return res.Val.(session.Tokens), nil
	}
}

func (c *Client) refreshTimeout() time.Duration {
	if c.http.Timeout > 0 {
		return c.http.Timeout
	}
	return 15 * time.Second
}

// refreshRejected reports whether the refresh endpoint itself refused the
// token. Cancellations, transport failures and 5xx answers leave the
// session in place.
func refreshRejected(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode >= http.StatusBadRequest && apiErr.StatusCode < http.StatusInternalServerError
}

func (c *Client) refreshWithPolicy(ctx context.Context, refreshToken string) (session.Tokens, error) {
	body, err := encode(Request{JSON: map[string]string{"refreshToken": refreshToken}})
	if err != nil {
		return session.Tokens{}, err
	}
	req := Request{Method: http.MethodPost, Path: c.refreshPath, Endpoint: "auth.refresh"}

	var lastErr error
	for attempt := 0; attempt < c.policy.MaxRefreshAttempts; attempt++ {
		if attempt > 0 && c.policy.Backoff > 0 {
			select {
			case <-ctx.Done():
				return session.Tokens{}, ctx.Err()
			case <-time.After(c.policy.Backoff * time.Duration(attempt)):
			}
		}

		resp, err := c.send(ctx, req, body, "")
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			lastErr = parseAPIError(resp)
			continue
		}
		if resp.StatusCode >= http.StatusBadRequest {
			return session.Tokens{}, parseAPIError(resp)
		}

		var tokens session.Tokens
		if err := resp.Decode(&tokens); err != nil {
			return session.Tokens{}, fmt.Errorf("decoding refresh response: %w", err)
		}
		if tokens.AccessToken == "" {
			return session.Tokens{}, errors.New("refresh response carried no access token")
		}
		if tokens.RefreshToken == "" {
			tokens.RefreshToken = refreshToken
		}
		return tokens, nil
	}

	return session.Tokens{}, lastErr
}

func (c *Client) expire(ctx context.Context) {
	if err := c.tokens.ClearTokens(ctx); err != nil {
		c.logger.Error("Failed to clear tokens", "error", err)
	}
	if c.onExpired != nil {
		c.onExpired(ctx)
	}
}

func checkStatus(resp *Response) (*Response, error) {
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, parseAPIError(resp)
	}
	return resp, nil
}
