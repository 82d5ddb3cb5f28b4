package repo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/Huzefaaa2/AIOps/internal/cache"
	"github.com/Huzefaaa2/AIOps/internal/models"
	"github.com/Huzefaaa2/AIOps/internal/utils"
)

// SearchIndexClient retrieves grounding documents from a search index.
// When a vector field is configured the query runs in hybrid mode (lexical
// plus server-side text vectorisation); otherwise it is lexical-only. The
// fallback is transparent to callers.
type SearchIndexClient struct {
	endpoint    string
	index       string
	apiKey      string
	apiVersion  string
	topK        int
	vectorField string
	httpClient  *http.Client
	cache       cache.Provider
	cacheTTL    time.Duration
}

// NewSearchIndexClient constructs a client for the configured index.
func NewSearchIndexClient(endpoint, index, apiKey, apiVersion string, topK int, vectorField string, timeout time.Duration, cacheProvider cache.Provider, cacheTTL time.Duration) *SearchIndexClient {
	if topK <= 0 {
		topK = 5
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if apiVersion == "" {
		apiVersion = "2024-07-01"
	}
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	if cacheTTL < 0 {
		cacheTTL = 0
	}
	return &SearchIndexClient{
		endpoint:    strings.TrimRight(endpoint, "/"),
		index:       index,
		apiKey:      apiKey,
		apiVersion:  apiVersion,
		topK:        topK,
		vectorField: vectorField,
		httpClient:  &http.Client{Timeout: timeout},
		cache:       cacheProvider,
		cacheTTL:    cacheTTL,
	}
}

// Retrieve returns up to topK grounding documents ordered by descending
// relevance. Zero hits is a valid, non-error outcome; transport-level
// failures surface as retrieval-unavailable.
func (c *SearchIndexClient) Retrieve(ctx context.Context, query string) ([]models.GroundingDocument, error) {
	if c == nil || c.endpoint == "" || c.index == "" {
		return nil, nil
	}

	cacheKey := ""
	if c.cacheTTL > 0 {
		cacheKey = fmt.Sprintf("search:%s:%d:%s", c.index, c.topK, query)
		if data, err := c.cache.Get(ctx, cacheKey); err == nil {
			var cached []models.GroundingDocument
			if err := json.Unmarshal(data, &cached); err == nil {
				return cached, nil
			}
		}
	}

	payload := map[string]any{
		"search": query,
		"top":    c.topK,
	}
	if c.vectorField != "" {
		payload["vectorQueries"] = []map[string]any{
			{
				"kind":   "text",
				"text":   query,
				"fields": c.vectorField,
				"k":      c.topK,
			},
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, utils.NewAppError("search.retrieve", utils.KindRetrievalUnavailable, "marshal query", err)
	}

	endpoint := fmt.Sprintf("%s/indexes/%s/docs/search?api-version=%s", c.endpoint, c.index, c.apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, utils.NewAppError("search.retrieve", utils.KindRetrievalUnavailable, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, utils.NewAppError("search.retrieve", utils.KindRetrievalUnavailable, "document index unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, utils.NewAppError("search.retrieve", utils.KindRetrievalUnavailable, fmt.Sprintf("document index returned %s", resp.Status), nil)
	}

	var response struct {
		Value []struct {
			Score   float64 `json:"@search.score"`
			ID      string  `json:"id"`
			DocID   string  `json:"doc_id"`
			Title   string  `json:"title"`
			Content string  `json:"content"`
			Chunk   string  `json:"chunk"`
			URL     string  `json:"url"`
		} `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, utils.NewAppError("search.retrieve", utils.KindRetrievalUnavailable, "decode response", err)
	}

	docs := make([]models.GroundingDocument, 0, len(response.Value))
	for _, hit := range response.Value {
		id := hit.ID
		if id == "" {
			id = hit.DocID
		}
		content := hit.Content
		if content == "" {
			content = hit.Chunk
		}
		docs = append(docs, models.GroundingDocument{
			ID:      id,
			Title:   hit.Title,
			Content: content,
			URL:     hit.URL,
			Score:   hit.Score,
		})
	}

	// The index returns hits ranked already; enforce the ordering contract
	// anyway since prompt assembly depends on it.
	sort.SliceStable(docs, func(i, j int) bool { return docs[i].Score > docs[j].Score })
	if len(docs) > c.topK {
		docs = docs[:c.topK]
	}

	if cacheKey != "" && len(docs) > 0 {
		if data, err := json.Marshal(docs); err == nil {
			_ = c.cache.Set(ctx, cacheKey, data, c.cacheTTL)
		}
	}

	return docs, nil
}
