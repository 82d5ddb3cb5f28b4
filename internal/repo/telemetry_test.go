package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/Huzefaaa2/AIOps/internal/models"
)

func logStoreReply(t *testing.T, columns []string, rows [][]any) *http.Response {
	t.Helper()
	cols := make([]map[string]string, 0, len(columns))
	for _, name := range columns {
		cols = append(cols, map[string]string{"name": name})
	}
	payload := map[string]any{
		"tables": []map[string]any{
			{"columns": cols, "rows": rows},
		},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(bytes.NewReader(data)),
		Header:     make(http.Header),
	}
}

func TestSampleParsesTable(t *testing.T) {
	client := NewLogStoreClient("https://logs.example.com", "ws-123", "AppRequests | take 100", 100, time.Second)
	client.httpClient = newTestClient(func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/v1/workspaces/ws-123/query" {
			t.Fatalf("unexpected path: %s", req.URL.Path)
		}
		var body struct {
			Query    string `json:"query"`
			Timespan string `json:"timespan"`
		}
		data, _ := io.ReadAll(req.Body)
		if err := json.Unmarshal(data, &body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body.Query != "AppRequests | take 100" {
			t.Fatalf("query = %q", body.Query)
		}
		if !strings.Contains(body.Timespan, "/") {
			t.Fatalf("timespan = %q", body.Timespan)
		}
		return logStoreReply(t,
			[]string{"TimeGenerated", "DurationMs"},
			[][]any{
				{"2026-08-30T10:05:00Z", 4200.0},
				{"2026-08-30T10:01:00Z", 150.0},
			}), nil
	})

	window := models.TimeWindow{
		Start: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
		End:   time.Date(2026, 8, 30, 10, 30, 0, 0, time.UTC),
	}
	sample := client.Sample(context.Background(), window)
	if sample.Degraded {
		t.Fatalf("unexpected degradation: %s", sample.FailureReason)
	}
	if len(sample.Records) != 2 {
		t.Fatalf("records = %d, want 2", len(sample.Records))
	}
	// Rows come back unordered; records must be ascending by time.
	if !sample.Records[0].Timestamp.Before(sample.Records[1].Timestamp) {
		t.Fatalf("records not sorted: %v then %v", sample.Records[0].Timestamp, sample.Records[1].Timestamp)
	}
	if sample.Records[1].Fields["DurationMs"] != 4200.0 {
		t.Fatalf("fields = %+v", sample.Records[1].Fields)
	}
}

func TestSampleCapsToMostRecent(t *testing.T) {
	rows := make([][]any, 0, 10)
	base := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		rows = append(rows, []any{base.Add(time.Duration(i) * time.Minute).Format(time.RFC3339), float64(i)})
	}

	client := NewLogStoreClient("https://logs.example.com", "ws-123", "AppRequests", 3, time.Second)
	client.httpClient = newTestClient(func(req *http.Request) (*http.Response, error) {
		return logStoreReply(t, []string{"TimeGenerated", "seq"}, rows), nil
	})

	sample := client.Sample(context.Background(), models.TimeWindow{Start: base, End: base.Add(time.Hour)})
	if len(sample.Records) != 3 {
		t.Fatalf("records = %d, want 3", len(sample.Records))
	}
	if sample.Records[0].Fields["seq"] != 7.0 || sample.Records[2].Fields["seq"] != 9.0 {
		t.Fatalf("kept wrong rows: %+v", sample.Records)
	}
}

func TestSampleUnconfiguredIsHealthy(t *testing.T) {
	client := NewLogStoreClient("", "", "AppRequests", 100, time.Second)
	sample := client.Sample(context.Background(), models.TimeWindow{})
	if sample.Degraded {
		t.Fatal("unconfigured workspace must not degrade")
	}
	if len(sample.Records) != 0 {
		t.Fatalf("records = %d, want 0", len(sample.Records))
	}
}

func TestSampleDegradesOnFailure(t *testing.T) {
	t.Run("transport error", func(t *testing.T) {
		client := NewLogStoreClient("https://logs.example.com", "ws-123", "AppRequests", 100, time.Second)
		client.httpClient = newTestClient(func(req *http.Request) (*http.Response, error) {
			return nil, errors.New("dial timeout")
		})
		sample := client.Sample(context.Background(), models.TimeWindow{})
		if !sample.Degraded || sample.FailureReason == "" {
			t.Fatalf("sample = %+v", sample)
		}
	})

	t.Run("non-200 status", func(t *testing.T) {
		client := NewLogStoreClient("https://logs.example.com", "ws-123", "AppRequests", 100, time.Second)
		client.httpClient = newTestClient(func(req *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusForbidden,
				Status:     "403 Forbidden",
				Body:       io.NopCloser(strings.NewReader("denied")),
				Header:     make(http.Header),
			}, nil
		})
		sample := client.Sample(context.Background(), models.TimeWindow{})
		if !sample.Degraded {
			t.Fatal("expected degraded sample")
		}
		if !strings.Contains(sample.FailureReason, "403") {
			t.Fatalf("reason = %q", sample.FailureReason)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		client := NewLogStoreClient("https://logs.example.com", "ws-123", "AppRequests", 100, time.Second)
		client.httpClient = newTestClient(func(req *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(strings.NewReader("<html>not json</html>")),
				Header:     make(http.Header),
			}, nil
		})
		sample := client.Sample(context.Background(), models.TimeWindow{})
		if !sample.Degraded {
			t.Fatal("expected degraded sample")
		}
	})
}

func TestSampleEmptyTables(t *testing.T) {
	client := NewLogStoreClient("https://logs.example.com", "ws-123", "AppRequests", 100, time.Second)
	client.httpClient = newTestClient(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(`{"tables":[]}`)),
			Header:     make(http.Header),
		}, nil
	})
	sample := client.Sample(context.Background(), models.TimeWindow{})
	if sample.Degraded || len(sample.Records) != 0 {
		t.Fatalf("sample = %+v", sample)
	}
}
