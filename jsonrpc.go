// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"bytes"
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	gorpc "github.com/gorilla/rpc/v2"
	rpc "github.com/gorilla/rpc/v2/json2"
	"go.uber.org/zap"
)

// JSONRPCInvokeMethod is the JSON-RPC method served by the debug endpoint.
const JSONRPCInvokeMethod = "Bridge.Invoke"

const (
	maxRetries    = 3
	retryBaseWait = 500 * time.Millisecond
)

// InvokeArgs carries one invocation over JSON-RPC. Payload is base64 on
// the wire.
type InvokeArgs struct {
	Method  string `json:"method"`
	Payload []byte `json:"payload"`
}

// InvokeReply is the result of Bridge.Invoke.
type InvokeReply struct {
	Payload []byte `json:"payload"`
}

// BridgeService exposes a Handler as the JSON-RPC service "Bridge".
type BridgeService struct {
	handler Handler
}

// Invoke forwards one call to the handler.
func (s *BridgeService) Invoke(r *http.Request, args *InvokeArgs, reply *InvokeReply) error {
	resp, err := s.handler.Handle(r.Context(), args.Method, args.Payload)
	if err != nil {
		return err
	}
	reply.Payload = resp
	return nil
}

// NewJSONRPCHandler serves h as JSON-RPC 2.0 over HTTP. A non-empty token
// is required as "Authorization: Bearer <token>".
func NewJSONRPCHandler(h Handler, token string) (http.Handler, error) {
	srv := gorpc.NewServer()
	srv.RegisterCodec(rpc.NewCodec(), "application/json")
	if err := srv.RegisterService(&BridgeService{handler: h}, "Bridge"); err != nil {
		return nil, fmt.Errorf("register json-rpc service: %w", err)
	}
	if token == "" {
		return srv, nil
	}
	want := []byte("Bearer " + token)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if subtle.ConstantTimeCompare([]byte(r.Header.Get("Authorization")), want) != 1 {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		srv.ServeHTTP(w, r)
	}), nil
}

// RequestOption configures SendJSONRequest
type RequestOption func(*requestOptions)

type requestOptions struct {
	headers     http.Header
	queryParams url.Values
}

func newRequestOptions(opts []RequestOption) *requestOptions {
	o := &requestOptions{
		headers:     http.Header{},
		queryParams: url.Values{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithHeader adds a request header
func WithHeader(key, value string) RequestOption {
	return func(o *requestOptions) { o.headers.Add(key, value) }
}

// WithQueryParam adds a URL query parameter
func WithQueryParam(key, value string) RequestOption {
	return func(o *requestOptions) { o.queryParams.Add(key, value) }
}

// WithBearerToken authenticates against a token-protected endpoint
func WithBearerToken(token string) RequestOption {
	return WithHeader("Authorization", "Bearer "+token)
}

// newHTTPClient creates a fresh HTTP client with disabled connection reuse.
func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			DisableKeepAlives: true,
		},
	}
}

// CleanlyCloseBody drains and closes an HTTP response body to prevent
// HTTP/2 GOAWAY errors caused by closing bodies with unread data.
func CleanlyCloseBody(body io.ReadCloser) error {
	if body == nil {
		return nil
	}
	_, _ = io.Copy(io.Discard, body)
	return body.Close()
}

// isRetryableError checks if an error is transient and worth retrying
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	if errors.Is(err, io.EOF) || strings.Contains(errStr, "EOF") {
		return true
	}
	if strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "broken pipe") {
		return true
	}
	return false
}

// SendJSONRequest posts a JSON-RPC 2.0 request and decodes the reply.
// Transport-level failures are retried with exponential backoff; the
// server's answer, error or not, is never retried.
func SendJSONRequest(
	ctx context.Context,
	uri *url.URL,
	method string,
	params interface{},
	reply interface{},
	options ...RequestOption,
) error {
	log := Logger()
	requestBodyBytes, err := rpc.EncodeClientRequest(method, params)
	if err != nil {
		return fmt.Errorf("failed to encode client params: %w", err)
	}

	ops := newRequestOptions(options)
	target := *uri
	target.RawQuery = ops.queryParams.Encode()

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			waitTime := retryBaseWait * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(waitTime):
			}
		}

		// Create fresh request for each attempt (body buffer is consumed)
		request, err := http.NewRequestWithContext(
			ctx,
			http.MethodPost,
			target.String(),
			bytes.NewBuffer(requestBodyBytes),
		)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		request.Header = ops.headers.Clone()
		request.Header.Set("Content-Type", "application/json")

		resp, err := newHTTPClient().Do(request)
		if err != nil {
			lastErr = err
			log.Debug("json-rpc attempt failed",
				zap.Int("attempt", attempt+1),
				zap.Bool("retryable", isRetryableError(err)),
				zap.Error(err))
			if isRetryableError(err) {
				continue
			}
			return fmt.Errorf("failed to issue request: %w", err)
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			CleanlyCloseBody(resp.Body)
			return fmt.Errorf("received status code: %d", resp.StatusCode)
		}

		if err := rpc.DecodeClientResponse(resp.Body, reply); err != nil {
			CleanlyCloseBody(resp.Body)
			return fmt.Errorf("failed to decode client response: %w", err)
		}
		CleanlyCloseBody(resp.Body)
		return nil
	}

	return fmt.Errorf("failed to issue request after %d retries: %w", maxRetries, lastErr)
}

// InvokeJSON calls Bridge.Invoke on a JSON-RPC endpoint.
func InvokeJSON(ctx context.Context, uri *url.URL, method string, payload []byte, options ...RequestOption) ([]byte, error) {
	var reply InvokeReply
	err := SendJSONRequest(ctx, uri, JSONRPCInvokeMethod, &InvokeArgs{Method: method, Payload: payload}, &reply, options...)
	if err != nil {
		return nil, err
	}
	return reply.Payload, nil
}
