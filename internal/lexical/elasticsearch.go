// Package lexical implements keyword search over document pages using a
// minimal Elasticsearch REST client.
package lexical

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"ragchat/internal/domain"
	"ragchat/internal/logger"
)

const (
	// DefaultIndexName is the index holding one record per document page.
	DefaultIndexName = "pdf_documents"

	maxAttempts    = 3
	snippetLength  = 200
	resultPageSize = 20
)

type Config struct {
	URL             string
	IndexName       string
	Timeout         time.Duration
	RetryDelay      time.Duration
	DocumentBaseURL string
}

// Index is a REST client to a single Elasticsearch index. Write operations
// fail loudly; read operations degrade to empty results so the caller can
// keep serving answers without keyword search.
type Index struct {
	url        string
	index      string
	baseURL    string
	retryDelay time.Duration
	client     *http.Client
}

func New(cfg Config) *Index {
	if cfg.URL == "" {
		cfg.URL = "http://localhost:9200"
	}
	if cfg.IndexName == "" {
		cfg.IndexName = DefaultIndexName
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	return &Index{
		url:        strings.TrimRight(cfg.URL, "/"),
		index:      cfg.IndexName,
		baseURL:    cfg.DocumentBaseURL,
		retryDelay: cfg.RetryDelay,
		client:     &http.Client{Timeout: cfg.Timeout},
	}
}

// EnsureIndex creates the index with its mapping if it does not exist.
// The filename field carries a raw keyword sub-field for exact deletes.
func (ix *Index) EnsureIndex(ctx context.Context) error {
	status, _, err := ix.do(ctx, http.MethodHead, "/"+ix.index, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	if status == http.StatusOK {
		return nil
	}
	mapping := map[string]any{
		"mappings": map[string]any{
			"properties": map[string]any{
				"filename": map[string]any{
					"type": "text",
					"fields": map[string]any{
						"raw": map[string]any{"type": "keyword"},
					},
				},
				"page_num": map[string]any{"type": "integer"},
				"content":  map[string]any{"type": "text"},
			},
		},
	}
	status, _, err = ix.do(ctx, http.MethodPut, "/"+ix.index, mapping)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	if status >= 300 {
		return fmt.Errorf("%w: create index returned %d", domain.ErrIndexUnavailable, status)
	}
	return nil
}

// Index stores one page of a document.
func (ix *Index) Index(ctx context.Context, document string, page int, content string) error {
	body := map[string]any{
		"filename": document,
		"page_num": page,
		"content":  content,
	}
	status, _, err := ix.do(ctx, http.MethodPost, "/"+ix.index+"/_doc", body)
	if err != nil {
		return fmt.Errorf("%w: index page %s:%d: %v", domain.ErrIndexUnavailable, document, page, err)
	}
	if status >= 300 {
		return fmt.Errorf("%w: index page %s:%d returned %d", domain.ErrIndexUnavailable, document, page, status)
	}
	return nil
}

// Exists reports whether any page of the document is indexed. Failures
// degrade to false so ingestion can proceed.
func (ix *Index) Exists(ctx context.Context, document string) bool {
	query := map[string]any{
		"size":  0,
		"query": termFilename(document),
	}
	var resp struct {
		Hits struct {
			Total struct {
				Value int `json:"value"`
			} `json:"total"`
		} `json:"hits"`
	}
	status, raw, err := ix.do(ctx, http.MethodPost, "/"+ix.index+"/_search", query)
	if err != nil || status >= 300 {
		logger.Warn("exists check for %q failed, assuming absent", document)
		return false
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return false
	}
	return resp.Hits.Total.Value > 0
}

// Delete removes every page of the document and reports whether any were
// removed. Failures degrade to false.
func (ix *Index) Delete(ctx context.Context, document string) bool {
	body := map[string]any{"query": termFilename(document)}
	var resp struct {
		Deleted int `json:"deleted"`
	}
	status, raw, err := ix.do(ctx, http.MethodPost, "/"+ix.index+"/_delete_by_query?refresh=true", body)
	if err != nil || status >= 300 {
		logger.Warn("delete of %q failed", document)
		return false
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return false
	}
	return resp.Deleted > 0
}

func termFilename(document string) map[string]any {
	return map[string]any{
		"term": map[string]any{"filename.raw": document},
	}
}

// Search runs a phrase-boosted fuzzy query and returns results whose
// normalized score reaches minRelevance. Failures degrade to no results.
func (ix *Index) Search(ctx context.Context, query string, minRelevance float64) []domain.SearchResult {
	query = CleanQuery(query)
	if query == "" {
		return nil
	}
	body := map[string]any{
		"size": resultPageSize,
		"query": map[string]any{
			"bool": map[string]any{
				"should": []any{
					map[string]any{
						"match_phrase": map[string]any{
							"content": map[string]any{
								"query": query,
								"slop":  1,
								"boost": 10,
							},
						},
					},
					map[string]any{
						"multi_match": map[string]any{
							"query":                query,
							"fields":               []string{"content^2", "filename"},
							"fuzziness":            "AUTO",
							"minimum_should_match": "75%",
							"boost":                1,
						},
					},
				},
			},
		},
		"highlight": map[string]any{
			"fields": map[string]any{
				"content": map[string]any{
					"fragment_size":       25,
					"number_of_fragments": 3,
					"pre_tags":            []string{"<mark>"},
					"post_tags":           []string{"</mark>"},
				},
			},
		},
	}

	var resp struct {
		Hits struct {
			MaxScore float64 `json:"max_score"`
			Hits     []struct {
				Score  float64 `json:"_score"`
				Source struct {
					Filename string `json:"filename"`
					PageNum  int    `json:"page_num"`
					Content  string `json:"content"`
				} `json:"_source"`
				Highlight struct {
					Content []string `json:"content"`
				} `json:"highlight"`
			} `json:"hits"`
		} `json:"hits"`
	}
	status, raw, err := ix.do(ctx, http.MethodPost, "/"+ix.index+"/_search", body)
	if err != nil || status >= 300 {
		logger.Warn("search for %q failed, returning no results", query)
		return nil
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		logger.Warn("search response for %q was malformed", query)
		return nil
	}
	if resp.Hits.MaxScore <= 0 {
		return nil
	}

	results := make([]domain.SearchResult, 0, len(resp.Hits.Hits))
	for _, hit := range resp.Hits.Hits {
		score := math.Round(hit.Score/resp.Hits.MaxScore*100) / 100
		if score < minRelevance {
			continue
		}
		snippet := strings.Join(hit.Highlight.Content, "...")
		if snippet == "" {
			snippet = clip(hit.Source.Content, snippetLength) + "..."
		}
		results = append(results, domain.SearchResult{
			Filename: hit.Source.Filename,
			Page:     hit.Source.PageNum,
			Snippet:  snippet,
			Score:    score,
			URL:      ix.documentURL(hit.Source.Filename),
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].Filename != results[j].Filename {
			return results[i].Filename < results[j].Filename
		}
		return results[i].Page < results[j].Page
	})
	return results
}

func (ix *Index) documentURL(filename string) string {
	if ix.baseURL == "" {
		return ""
	}
	return strings.TrimRight(ix.baseURL, "/") + "/" + url.PathEscape(filename)
}

func clip(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

var (
	hyphenRuns = regexp.MustCompile(`-+`)
	whitespace = regexp.MustCompile(`\s+`)
)

// CleanQuery lowercases the query, turns hyphen runs into spaces and
// collapses whitespace, so "state-of-the-art" matches prose text.
func CleanQuery(q string) string {
	q = strings.ToLower(q)
	q = hyphenRuns.ReplaceAllString(q, " ")
	q = whitespace.ReplaceAllString(q, " ")
	return strings.TrimSpace(q)
}

// do sends one request with retries on transport errors and 5xx responses.
func (ix *Index) do(ctx context.Context, method, path string, body any) (int, []byte, error) {
	var data []byte
	if body != nil {
		var err error
		data, err = json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
	}
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		var reader *bytes.Reader
		if data != nil {
			reader = bytes.NewReader(data)
		} else {
			reader = bytes.NewReader(nil)
		}
		req, err := http.NewRequestWithContext(ctx, method, ix.url+path, reader)
		if err != nil {
			return 0, nil, err
		}
		if data != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := ix.client.Do(req)
		if err != nil {
			lastErr = err
		} else {
			var buf bytes.Buffer
			_, readErr := buf.ReadFrom(resp.Body)
			resp.Body.Close()
			if readErr != nil {
				lastErr = readErr
			} else if resp.StatusCode >= 500 {
				lastErr = fmt.Errorf("%s %s returned %s", method, path, resp.Status)
			} else {
				return resp.StatusCode, buf.Bytes(), nil
			}
		}
		if attempt < maxAttempts {
			logger.Debug("elasticsearch %s %s attempt %d/%d failed: %v",
				method, path, attempt, maxAttempts, lastErr)
			select {
			case <-ctx.Done():
				return 0, nil, ctx.Err()
			case <-time.After(ix.retryDelay):
			}
		}
	}
	return 0, nil, lastErr
}
