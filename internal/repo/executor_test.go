package repo

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestExecuteSendsActionPayload(t *testing.T) {
	client := NewExecutorClient("https://remediate.example.com", "func-key", time.Second)
	client.httpClient = newTestClient(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/api/remediate" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		if got := req.Header.Get("x-functions-key"); got != "func-key" {
			t.Fatalf("x-functions-key = %q", got)
		}
		var body struct {
			Action string            `json:"action"`
			Params map[string]string `json:"params"`
		}
		data, _ := io.ReadAll(req.Body)
		if err := json.Unmarshal(data, &body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body.Action != "restart_service" || body.Params["service"] != "checkout-api" {
			t.Fatalf("payload = %+v", body)
		}
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(`{"status":"restarted"}`)),
			Header:     make(http.Header),
		}, nil
	})

	result, err := client.Execute(context.Background(), "/api/remediate", "restart_service", map[string]string{"service": "checkout-api"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.HTTPStatus != http.StatusOK {
		t.Fatalf("status = %d", result.HTTPStatus)
	}
	if result.Body != `{"status":"restarted"}` {
		t.Fatalf("body = %q", result.Body)
	}
}

func TestExecuteReceivedErrorStatusIsNotAnError(t *testing.T) {
	client := NewExecutorClient("https://remediate.example.com", "", time.Second)
	client.httpClient = newTestClient(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusInternalServerError,
			Body:       io.NopCloser(strings.NewReader("executor crashed")),
			Header:     make(http.Header),
		}, nil
	})

	result, err := client.Execute(context.Background(), "/api/remediate", "restart_service", nil)
	if err != nil {
		t.Fatalf("received response must not be an error: %v", err)
	}
	if result.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("status = %d", result.HTTPStatus)
	}
	if result.Body != "executor crashed" {
		t.Fatalf("body = %q", result.Body)
	}
}

func TestExecuteTransportFailure(t *testing.T) {
	client := NewExecutorClient("https://remediate.example.com", "", time.Second)
	client.httpClient = newTestClient(func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("dial timeout")
	})

	_, err := client.Execute(context.Background(), "/api/remediate", "restart_service", nil)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestExecuteTruncatesLongResponses(t *testing.T) {
	client := NewExecutorClient("https://remediate.example.com", "", time.Second)
	client.httpClient = newTestClient(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(strings.Repeat("x", 2000))),
			Header:     make(http.Header),
		}, nil
	})

	result, err := client.Execute(context.Background(), "/api/remediate", "restart_service", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Body) != executorBodyLimit {
		t.Fatalf("body length = %d, want %d", len(result.Body), executorBodyLimit)
	}
}

func TestExecuteUnconfigured(t *testing.T) {
	client := NewExecutorClient("", "", time.Second)
	if _, err := client.Execute(context.Background(), "/api/remediate", "restart_service", nil); err == nil {
		t.Fatal("expected error for unconfigured executor")
	}
}
