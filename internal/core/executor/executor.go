// Package executor sends the HTTP probes of a conformance run to the service
// under test.
package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/mohammed-shakir/ogcapi-features-ets/internal/core/observability"
)

const maxBodyBytes = 32 << 20

// StatusError is returned by GetDocument for non-2xx responses.
type StatusError struct {
	URI  string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d: %s", e.URI, e.Code, e.Body)
}

// IsNotFound reports whether err is a 404 StatusError.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// Response is a probe response with its body fully read.
type Response struct {
	URI         string
	Status      int
	Header      http.Header
	ContentType string
	Body        []byte
}

type Executor struct {
	logger   *slog.Logger
	client   *http.Client
	memo     *docMemo
	startNow func() time.Time // for tests
}

type Option func(*Executor)

// WithDocMemo keeps up to size fetched documents in memory; size <= 0 disables it.
func WithDocMemo(size int) Option {
	return func(e *Executor) {
		if size > 0 {
			e.memo = newDocMemo(size)
		}
	}
}

func New(logger *slog.Logger, client *http.Client, opts ...Option) *Executor {
	if client == nil {
		client = http.DefaultClient
	}
	e := &Executor{
		logger:   logger,
		client:   client,
		startNow: time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Get probes uri. Non-2xx statuses are returned as responses; only transport
// failures are errors.
func (e *Executor) Get(ctx context.Context, category, uri, accept string, query url.Values) (*Response, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, fmt.Errorf("parse probe uri %q: %w", uri, err)
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			q[k] = append([]string(nil), vs...)
		}
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	start := e.startNow()
	resp, err := e.client.Do(req)
	dur := time.Since(start)
	if err != nil {
		observability.ObserveProbe(category, 0, dur.Seconds())
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	observability.ObserveProbe(category, resp.StatusCode, dur.Seconds())

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	e.logger.DebugContext(ctx, "probe done",
		"category", category,
		"uri", u.String(),
		"status", resp.StatusCode,
		"duration", dur.String())

	return &Response{
		URI:         u.String(),
		Status:      resp.StatusCode,
		Header:      resp.Header.Clone(),
		ContentType: resp.Header.Get("Content-Type"),
		Body:        b,
	}, nil
}

// GetDocument fetches a document that must answer 2xx, served from the memo
// when one is configured.
func (e *Executor) GetDocument(ctx context.Context, category, uri, accept string) ([]byte, error) {
	if e.memo != nil {
		if b, ok := e.memo.get(uri, accept); ok {
			observability.IncDocCacheHit()
			return b, nil
		}
		observability.IncDocCacheMiss()
	}

	resp, err := e.Get(ctx, category, uri, accept, nil)
	if err != nil {
		return nil, err
	}
	if resp.Status < 200 || resp.Status >= 300 {
		body := resp.Body
		if len(body) > 8<<10 {
			body = body[:8<<10]
		}
		return nil, &StatusError{URI: resp.URI, Code: resp.Status, Body: string(body)}
	}
	if e.memo != nil {
		e.memo.add(uri, accept, resp.Body)
	}
	return resp.Body, nil
}
