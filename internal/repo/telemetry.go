package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/Huzefaaa2/AIOps/internal/models"
)

// LogStoreClient samples recent telemetry from a Log-Analytics-style query
// API. Telemetry is advisory context for the analysis, so every failure mode
// degrades to an empty sample instead of an error.
type LogStoreClient struct {
	endpoint    string
	workspaceID string
	query       string
	maxRecords  int
	httpClient  *http.Client
}

// NewLogStoreClient constructs a client for the configured workspace.
func NewLogStoreClient(endpoint, workspaceID, query string, maxRecords int, timeout time.Duration) *LogStoreClient {
	if maxRecords <= 0 {
		maxRecords = 100
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &LogStoreClient{
		endpoint:    strings.TrimRight(endpoint, "/"),
		workspaceID: workspaceID,
		query:       query,
		maxRecords:  maxRecords,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// Sample runs the configured query scoped to the window and returns a bounded
// record set. The returned sample carries a Degraded flag on timeout, non-2xx
// or malformed responses; an unconfigured workspace yields an empty, healthy
// sample.
func (c *LogStoreClient) Sample(ctx context.Context, window models.TimeWindow) models.TelemetrySample {
	if c == nil || c.workspaceID == "" || c.endpoint == "" {
		return models.TelemetrySample{}
	}

	payload := map[string]any{
		"query":    c.query,
		"timespan": fmt.Sprintf("%s/%s", window.Start.UTC().Format(time.RFC3339), window.End.UTC().Format(time.RFC3339)),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return degradedSample(fmt.Sprintf("marshal query: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.queryURL(), bytes.NewReader(body))
	if err != nil {
		return degradedSample(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return degradedSample(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return degradedSample(fmt.Sprintf("log store returned %s", resp.Status))
	}

	var response struct {
		Tables []struct {
			Columns []struct {
				Name string `json:"name"`
			} `json:"columns"`
			Rows [][]any `json:"rows"`
		} `json:"tables"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return degradedSample(fmt.Sprintf("decode response: %v", err))
	}
	if len(response.Tables) == 0 {
		return models.TelemetrySample{}
	}

	table := response.Tables[0]
	records := make([]models.TelemetryRecord, 0, len(table.Rows))
	for _, row := range table.Rows {
		fields := make(map[string]any, len(table.Columns))
		for i, col := range table.Columns {
			if i < len(row) {
				fields[col.Name] = row[i]
			}
		}
		records = append(records, models.TelemetryRecord{
			Timestamp: rowTimestamp(fields),
			Fields:    fields,
		})
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Timestamp.Before(records[j].Timestamp)
	})
	// Cap at the most recent maxRecords, keeping ascending order.
	if len(records) > c.maxRecords {
		records = records[len(records)-c.maxRecords:]
	}

	return models.TelemetrySample{Records: records}
}

func (c *LogStoreClient) queryURL() string {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return c.endpoint + "/v1/workspaces/" + c.workspaceID + "/query"
	}
	u.Path = path.Join(u.Path, "v1", "workspaces", c.workspaceID, "query")
	return u.String()
}

func rowTimestamp(fields map[string]any) time.Time {
	for _, key := range []string{"TimeGenerated", "Timestamp", "timestamp"} {
		if raw, ok := fields[key]; ok {
			if s, ok := raw.(string); ok {
				if t, err := time.Parse(time.RFC3339, s); err == nil {
					return t
				}
			}
		}
	}
	return time.Time{}
}

func degradedSample(reason string) models.TelemetrySample {
	return models.TelemetrySample{Degraded: true, FailureReason: reason}
}
