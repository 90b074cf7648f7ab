// Package epicor is a client for the Epicor REST API v1. It drives the
// business objects that record labor, process kanban receipts, and
// adjust job quantities. Read paths go to the database directly.
package epicor

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	cerr "github.com/cockroachdb/errors"
	"github.com/sony/gobreaker"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// Client calls the Epicor REST API with basic auth plus an API key.
// A circuit breaker sits in front of the transport: when the host stops
// answering, calls fail fast instead of each waiting out the 30s timeout.
type Client struct {
	baseURL  string
	apiKey   string
	username string
	password string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker
}

// Config is everything needed to reach the Epicor instance.
type Config struct {
	BaseURL     string
	APIKey      string
	Username    string
	Password    string
	InsecureTLS bool
}

// New builds a client. InsecureTLS accepts the self-signed certificate
// most on-prem Epicor installs ship with.
func New(cfg Config) *Client {
	return &Client{
		baseURL:  cfg.BaseURL,
		apiKey:   cfg.APIKey,
		username: cfg.Username,
		password: cfg.Password,
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: cfg.InsecureTLS},
			},
		},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "epicor",
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

// Dataset is the mutable "ds" payload Epicor business objects pass
// through their call chains.
type Dataset map[string]interface{}

// Rows returns the named table's rows, nil when absent.
func (ds Dataset) Rows(table string) []map[string]interface{} {
	raw, ok := ds[table].([]interface{})
	if !ok {
		return nil
	}
	rows := make([]map[string]interface{}, 0, len(raw))
	for _, r := range raw {
		if m, ok := r.(map[string]interface{}); ok {
			rows = append(rows, m)
		}
	}
	return rows
}

// FirstRow returns the first row of a table, nil when empty.
func (ds Dataset) FirstRow(table string) map[string]interface{} {
	rows := ds.Rows(table)
	if len(rows) == 0 {
		return nil
	}
	return rows[0]
}

// SetRows replaces a table's rows.
func (ds Dataset) SetRows(table string, rows []map[string]interface{}) {
	converted := make([]interface{}, len(rows))
	for i, r := range rows {
		converted[i] = r
	}
	ds[table] = converted
}

func (c *Client) do(ctx context.Context, method, endpoint string, body interface{}) (map[string]interface{}, error) {
	url := fmt.Sprintf("%s/%s", c.baseURL, endpoint)

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, cerr.Wrap(err, "encode request body")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, cerr.Wrap(err, "build request")
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	// Transport failures count against the breaker; HTTP-level errors
	// from a reachable host do not.
	res, err := c.breaker.Execute(func() (interface{}, error) {
		return c.http.Do(req)
	})
	if err != nil {
		return nil, cerr.Wrapf(err, "call %s", endpoint)
	}
	resp := res.(*http.Response)
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, cerr.Wrapf(err, "read %s response", endpoint)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		otelzap.Ctx(ctx).Warn("Epicor call failed",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", truncate(payload, 500)))
		return nil, cerr.Newf("%s: status %d: %s", endpoint, resp.StatusCode, truncate(payload, 300))
	}

	result := map[string]interface{}{}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &result); err != nil {
			return nil, cerr.Wrapf(err, "decode %s response", endpoint)
		}
	}
	return result, nil
}

func (c *Client) get(ctx context.Context, endpoint string) (map[string]interface{}, error) {
	return c.do(ctx, http.MethodGet, endpoint, nil)
}

func (c *Client) post(ctx context.Context, endpoint string, body interface{}) (map[string]interface{}, error) {
	if body == nil {
		body = map[string]interface{}{}
	}
	return c.do(ctx, http.MethodPost, endpoint, body)
}

// paramsDS extracts the "ds" dataset that business object methods hand
// back inside "parameters". Falls back to the previous dataset.
func paramsDS(result map[string]interface{}, previous Dataset) Dataset {
	params, ok := result["parameters"].(map[string]interface{})
	if !ok {
		return previous
	}
	ds, ok := params["ds"].(map[string]interface{})
	if !ok {
		return previous
	}
	return Dataset(ds)
}

// returnDS extracts the "returnObj" dataset from GetByID-style calls.
func returnDS(result map[string]interface{}) Dataset {
	ds, ok := result["returnObj"].(map[string]interface{})
	if !ok {
		return Dataset{}
	}
	return Dataset(ds)
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
