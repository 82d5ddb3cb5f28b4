package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
)

// ExecutionResult captures what the remediation executor returned for a
// single action invocation.
type ExecutionResult struct {
	HTTPStatus int
	Body       string
}

// executorBodyLimit bounds how much of the executor response is retained for
// the audit trail.
const executorBodyLimit = 300

// ExecutorClient invokes the separately-authorized remediation executor.
// Calls are at-most-once: timeouts and failures are reported, never retried,
// since remediation actions are not assumed idempotent.
type ExecutorClient struct {
	baseURL    string
	key        string
	httpClient *http.Client
}

// NewExecutorClient constructs a client for the configured executor endpoint.
func NewExecutorClient(baseURL, key string, timeout time.Duration) *ExecutorClient {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &ExecutorClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		key:        key,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Execute POSTs {action, params} to the executor path. A received response is
// returned with a nil error regardless of status code; the error is non-nil
// only for transport-level failures.
func (c *ExecutorClient) Execute(ctx context.Context, actionPath, action string, params map[string]string) (ExecutionResult, error) {
	if c == nil || c.baseURL == "" {
		return ExecutionResult{}, fmt.Errorf("remediation executor not configured")
	}

	payload := map[string]any{
		"action": action,
		"params": params,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return ExecutionResult{}, fmt.Errorf("marshal action payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolvePath(actionPath), bytes.NewReader(body))
	if err != nil {
		return ExecutionResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.key != "" {
		req.Header.Set("x-functions-key", c.key)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ExecutionResult{}, err
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, executorBodyLimit))
	return ExecutionResult{
		HTTPStatus: resp.StatusCode,
		Body:       strings.TrimSpace(string(data)),
	}, nil
}

func (c *ExecutorClient) resolvePath(p string) string {
	if p == "" {
		return c.baseURL
	}
	cleaned := "/" + strings.TrimLeft(p, "/")
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + cleaned
	}
	u.Path = path.Join(u.Path, cleaned)
	return u.String()
}
