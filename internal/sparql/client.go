// Package sparql provides a SPARQL 1.1 protocol client for mu-semtech style triplestores.
package sparql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lblod/entity-linker/internal/metrics"
)

// ErrRequestFailed indicates the store answered with a non-2xx status.
var ErrRequestFailed = errors.New("sparql request failed")

// sudoHeader grants trusted access across graphs in mu-authorization.
const sudoHeader = "mu-auth-sudo"

// maxErrorBody bounds how much of an error response ends up in the error text.
const maxErrorBody = 512

// Config holds SPARQL client configuration.
type Config struct {
	QueryURL   string
	UpdateURL  string // defaults to QueryURL
	Timeout    time.Duration
	LogQueries bool
	LogUpdates bool
}

// Client executes SPARQL queries and updates over HTTP.
// Clients are immutable; Sudo and WithEndpoint return modified copies.
type Client struct {
	http       *http.Client
	queryURL   string
	updateURL  string
	sudo       bool
	logQueries bool
	logUpdates bool
	logger     *slog.Logger
	metrics    *metrics.Collector
}

// NewClient creates a SPARQL client. A nil logger uses slog.Default().
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.UpdateURL == "" {
		cfg.UpdateURL = cfg.QueryURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	return &Client{
		http:       &http.Client{Timeout: cfg.Timeout},
		queryURL:   cfg.QueryURL,
		updateURL:  cfg.UpdateURL,
		logQueries: cfg.LogQueries,
		logUpdates: cfg.LogUpdates,
		logger:     logger,
	}
}

// Sudo returns a copy of the client that runs every request in trusted mode.
func (c *Client) Sudo() *Client {
	cp := *c
	cp.sudo = true
	return &cp
}

// WithEndpoint returns a plain (non-sudo) copy that queries a different endpoint.
func (c *Client) WithEndpoint(endpointURL string) *Client {
	cp := *c
	cp.queryURL = endpointURL
	cp.updateURL = endpointURL
	cp.sudo = false
	return &cp
}

// WithMetrics returns a copy that records request timings in m.
func (c *Client) WithMetrics(m *metrics.Collector) *Client {
	cp := *c
	cp.metrics = m
	return &cp
}

// Endpoint returns the query endpoint URL.
func (c *Client) Endpoint() string {
	return c.queryURL
}

// Query runs a SELECT or ASK query and decodes the JSON results.
func (c *Client) Query(ctx context.Context, query string) (*Results, error) {
	if c.logQueries {
		c.logger.Debug("sparql query", "endpoint", c.queryURL, "sudo", c.sudo, "query", query)
	}

	start := time.Now()
	body, err := c.post(ctx, c.queryURL, "query", query)
	c.record(metrics.OpSPARQLQuery, start)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer body.Close()

	var res Results
	if err := json.NewDecoder(body).Decode(&res); err != nil {
		return nil, fmt.Errorf("decode results: %w", err)
	}
	return &res, nil
}

// Update runs a SPARQL update.
func (c *Client) Update(ctx context.Context, update string) error {
	if c.logUpdates {
		c.logger.Debug("sparql update", "endpoint", c.updateURL, "sudo", c.sudo, "update", update)
	}

	start := time.Now()
	body, err := c.post(ctx, c.updateURL, "update", update)
	c.record(metrics.OpSPARQLUpdate, start)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}
	_, _ = io.Copy(io.Discard, body)
	return body.Close()
}

func (c *Client) post(ctx context.Context, endpoint, field, text string) (io.ReadCloser, error) {
	form := url.Values{field: {text}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/sparql-results+json")
	if c.sudo {
		req.Header.Set(sudoHeader, "true")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		resp.Body.Close()
		return nil, fmt.Errorf("%w: %s returned %d: %s", ErrRequestFailed, endpoint, resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return resp.Body, nil
}

func (c *Client) record(op string, start time.Time) {
	if c.metrics != nil {
		c.metrics.RecordTiming(op, time.Since(start))
	}
}
