// Command mock-stack serves fake versions of every external collaborator the
// agent talks to (log store, document index, model endpoint, remediation
// executor, Teams webhook) so the full pipeline can be exercised locally.
package main

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"time"
)

func main() {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Log-Analytics-style query endpoint.
	mux.HandleFunc("/v1/workspaces/", func(w http.ResponseWriter, r *http.Request) {
		if !enforcePost(w, r) {
			return
		}
		now := time.Now().UTC()
		writeJSON(w, map[string]any{
			"tables": []map[string]any{
				{
					"columns": []map[string]string{
						{"name": "TimeGenerated"}, {"name": "Message"}, {"name": "SeverityLevel"},
					},
					"rows": [][]any{
						{now.Add(-9 * time.Minute).Format(time.RFC3339), "payments-api p99 latency 2.4s", 3},
						{now.Add(-6 * time.Minute).Format(time.RFC3339), "connection pool exhausted", 4},
						{now.Add(-2 * time.Minute).Format(time.RFC3339), "upstream timeout to payments-db", 4},
					},
				},
			},
		})
	})

	// Search-index endpoint.
	mux.HandleFunc("/indexes/", func(w http.ResponseWriter, r *http.Request) {
		if !enforcePost(w, r) {
			return
		}
		writeJSON(w, map[string]any{
			"value": []map[string]any{
				{
					"@search.score": 3.1,
					"id":            "runbook-payments-latency",
					"title":         "Payments latency runbook",
					"content":       "If connection pool exhaustion is observed, restart the service and review the last deployment.",
					"url":           "https://wiki.example.com/runbooks/payments-latency",
				},
				{
					"@search.score": 1.7,
					"id":            "postmortem-2023-11",
					"title":         "2023-11 payments outage postmortem",
					"content":       "Root cause was a misconfigured pool size after a config push.",
					"url":           "https://wiki.example.com/postmortems/2023-11",
				},
			},
		})
	})

	// Chat-completion endpoint (both public and Azure-deployment paths).
	completion := func(w http.ResponseWriter, r *http.Request) {
		if !enforcePost(w, r) {
			return
		}
		plan := `{"rca_summary":"Connection pool exhaustion on payments-api after the last config push.",` +
			`"confidence":0.82,` +
			`"actions":[{"name":"restart_service","params":{"service":"payments-api"},"risk":"low","rationale":"clears exhausted pool"}],` +
			`"citations":["runbook-payments-latency"]}`
		writeJSON(w, map[string]any{
			"id":      "chatcmpl-mock",
			"object":  "chat.completion",
			"created": time.Now().Unix(),
			"model":   "gpt-4o-mini",
			"choices": []map[string]any{
				{
					"index":         0,
					"finish_reason": "stop",
					"message":       map[string]any{"role": "assistant", "content": plan},
				},
			},
		})
	}
	mux.HandleFunc("/v1/chat/completions", completion)
	mux.HandleFunc("/openai/deployments/", completion)

	// Remediation executor.
	mux.HandleFunc("/api/remediate", func(w http.ResponseWriter, r *http.Request) {
		if !enforcePost(w, r) {
			return
		}
		body, _ := io.ReadAll(r.Body)
		var payload struct {
			Action string            `json:"action"`
			Params map[string]string `json:"params"`
		}
		if err := json.Unmarshal(body, &payload); err != nil || payload.Action == "" {
			w.WriteHeader(http.StatusBadRequest)
			writeJSON(w, map[string]any{"status": "error", "message": "invalid JSON"})
			return
		}
		writeJSON(w, map[string]any{
			"status":  "ok",
			"action":  payload.Action,
			"params":  payload.Params,
			"message": "Action executed (simulation).",
		})
	})

	// Teams incoming webhook.
	mux.HandleFunc("/webhook/teams", func(w http.ResponseWriter, r *http.Request) {
		if !enforcePost(w, r) {
			return
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), "AdaptiveCard") {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("1"))
	})

	logger := log.New(log.Writer(), "mock-stack ", log.LstdFlags|log.Lmicroseconds)
	srv := &http.Server{
		Addr:    ":9090",
		Handler: logRequests(logger, mux),
	}

	logger.Println("listening on :9090")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("server error: %v", err)
	}
}

func enforcePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode error: %v", err)
	}
}

func logRequests(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Printf("%s %s %d %s", r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
