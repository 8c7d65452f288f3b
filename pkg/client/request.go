package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/apigate-dev/apigate/pkg/errors"
	"github.com/apigate-dev/apigate/pkg/logging"
	"github.com/apigate-dev/apigate/pkg/types"
)

// RequestOption defines a function for configuring a single call.
type RequestOption func(*requestOptions)

type requestOptions struct {
	query    url.Values
	jsonBody interface{}
	hasJSON  bool
	formBody url.Values
	headers  http.Header
	timeout  time.Duration
}

// WithQuery adds query parameters to the request URL.
func WithQuery(params map[string]string) RequestOption {
	return func(o *requestOptions) {
		if o.query == nil {
			o.query = url.Values{}
		}
		for k, v := range params {
			o.query.Set(k, v)
		}
	}
}

// WithQueryValues adds pre-built query values to the request URL.
func WithQueryValues(values url.Values) RequestOption {
	return func(o *requestOptions) {
		if o.query == nil {
			o.query = url.Values{}
		}
		for k, vs := range values {
			for _, v := range vs {
				o.query.Add(k, v)
			}
		}
	}
}

// WithJSON sets a JSON request body. When both a JSON and a form body
// are supplied, the JSON body wins.
func WithJSON(v interface{}) RequestOption {
	return func(o *requestOptions) {
		o.jsonBody = v
		o.hasJSON = true
	}
}

// WithForm sets a form-encoded request body.
func WithForm(values url.Values) RequestOption {
	return func(o *requestOptions) {
		o.formBody = values
	}
}

// WithRequestHeader sets a header for this call only, overriding the
// gateway default of the same name.
func WithRequestHeader(key, value string) RequestOption {
	return func(o *requestOptions) {
		if o.headers == nil {
			o.headers = http.Header{}
		}
		o.headers.Set(key, value)
	}
}

// WithRequestTimeout overrides the gateway timeout for this call only.
func WithRequestTimeout(d time.Duration) RequestOption {
	return func(o *requestOptions) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// Get sends a GET request to the API.
func (c *Client) Get(ctx context.Context, endpoint string, opts ...RequestOption) (*types.Response, error) {
	return c.do(ctx, http.MethodGet, endpoint, opts)
}

// Post sends a POST request to the API.
func (c *Client) Post(ctx context.Context, endpoint string, opts ...RequestOption) (*types.Response, error) {
	return c.do(ctx, http.MethodPost, endpoint, opts)
}

// Put sends a PUT request to the API.
func (c *Client) Put(ctx context.Context, endpoint string, opts ...RequestOption) (*types.Response, error) {
	return c.do(ctx, http.MethodPut, endpoint, opts)
}

// Patch sends a PATCH request to the API.
func (c *Client) Patch(ctx context.Context, endpoint string, opts ...RequestOption) (*types.Response, error) {
	return c.do(ctx, http.MethodPatch, endpoint, opts)
}

// Delete sends a DELETE request to the API.
func (c *Client) Delete(ctx context.Context, endpoint string, opts ...RequestOption) (*types.Response, error) {
	return c.do(ctx, http.MethodDelete, endpoint, opts)
}

// JoinURL builds the full URL for an endpoint: exactly one slash
// between the slash-stripped base and the slash-stripped endpoint.
// This is a simple join, not a security boundary.
func JoinURL(baseURL, endpoint string) string {
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(endpoint, "/")
}

// do dispatches one request and normalizes the result. A single attempt
// is made; the caller owns any retry policy.
func (c *Client) do(ctx context.Context, method, endpoint string, opts []RequestOption) (*types.Response, error) {
	if c.closed.Load() {
		return nil, errors.ErrClientClosed
	}

	o := &requestOptions{}
	for _, opt := range opts {
		opt(o)
	}

	timeout := c.cfg.Timeout
	if o.timeout > 0 {
		timeout = o.timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	fullURL := JoinURL(c.cfg.BaseURL, endpoint)
	if len(o.query) > 0 {
		sep := "?"
		if strings.Contains(fullURL, "?") {
			sep = "&"
		}
		fullURL += sep + o.query.Encode()
	}

	req, err := c.buildRequest(ctx, method, fullURL, o)
	if err != nil {
		return nil, err
	}

	requestID := uuid.NewString()
	req.Header.Set("X-Request-ID", requestID)
	ctx = logging.ContextWithRequestID(ctx, requestID)

	logger := c.logger.WithContext(ctx)
	logger.Info("making %s request to %s", method, fullURL)

	if c.monitor != nil {
		spanCtx, span := c.monitor.StartSpan(ctx, method, fullURL)
		defer span.End()
		c.monitor.Inject(spanCtx, req.Header)
		req = req.WithContext(spanCtx)
		c.monitor.RequestStarted()
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		if c.monitor != nil {
			c.monitor.RequestFailed(method, duration)
		}
		apiErr := errors.NewTransportError(method, fullURL, err)
		logger.WithError(apiErr).Error("%s request to %s failed", method, fullURL)
		return nil, apiErr
	}

	resp, err := c.handleResponse(httpResp)
	if c.monitor != nil {
		size := 0
		if resp != nil {
			size = len(resp.Body)
		}
		c.monitor.RequestCompleted(method, httpResp.StatusCode, duration, size)
	}
	if err != nil {
		logger.WithError(err).Error("%s request to %s returned an error", method, fullURL)
		return nil, err
	}

	return resp, nil
}

// buildRequest creates the outgoing request with merged headers and the
// encoded body. The JSON body wins when both body kinds are supplied.
func (c *Client) buildRequest(ctx context.Context, method, fullURL string, o *requestOptions) (*http.Request, error) {
	var body io.Reader
	contentType := ""

	switch {
	case o.hasJSON:
		data, err := json.Marshal(o.jsonBody)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	case o.formBody != nil:
		body = strings.NewReader(o.formBody.Encode())
		contentType = "application/x-www-form-urlencoded"
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for k, vs := range c.headers {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for k, vs := range o.headers {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	if c.tokenSource != nil {
		token, err := c.tokenSource.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to obtain credential: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req, nil
}

// handleResponse normalizes the transport response: non-2xx statuses
// and JSON decode failures become APIErrors, JSON bodies are decoded,
// and everything else is returned as raw text.
func (c *Client) handleResponse(httpResp *http.Response) (*types.Response, error) {
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, errors.NewTransportError(httpResp.Request.Method, httpResp.Request.URL.String(),
			fmt.Errorf("failed to read response body: %w", err))
	}

	resp := &types.Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       body,
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, errors.NewHTTPError(resp)
	}

	if types.IsJSONContentType(httpResp.Header.Get("Content-Type")) {
		var data interface{}
		if err := json.Unmarshal(body, &data); err != nil {
			return nil, errors.NewDecodeError(resp, err)
		}
		resp.Data = data
		resp.JSON = true
	}

	return resp, nil
}
