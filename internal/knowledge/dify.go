package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// difyTimeout bounds a single Dify API call.
const difyTimeout = 30 * time.Second

// DifyConfig holds the cloud backend's settings. APIKey, DatasetID, and
// DocumentID are all required; this backend cannot run partially
// configured.
type DifyConfig struct {
	BaseURL    string
	APIKey     string
	DatasetID  string
	DocumentID string
}

// DifyStore is the cloud knowledge backend, built on Dify's dataset API.
// Methodologies are stored as segments of a pre-existing document and
// retrieved with semantic search against the dataset.
type DifyStore struct {
	cfg    DifyConfig
	client *http.Client
	logger *slog.Logger
}

// NewDify creates the cloud backend. It fails immediately with
// ErrMissingConfig when any required setting is absent; no network call is
// made before construction succeeds.
func NewDify(cfg DifyConfig, logger *slog.Logger) (*DifyStore, error) {
	var missing []string
	if cfg.APIKey == "" {
		missing = append(missing, "DIFY_API_KEY")
	}
	if cfg.DatasetID == "" {
		missing = append(missing, "DIFY_DATASET_ID")
	}
	if cfg.DocumentID == "" {
		missing = append(missing, "DIFY_DOCUMENT_ID")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &DifyStore{
		cfg:    cfg,
		client: &http.Client{Timeout: difyTimeout},
		logger: logger,
	}, nil
}

// difySegment is a stored unit in a Dify document: the methodology content
// plus its title as the single keyword.
type difySegment struct {
	Content  string   `json:"content"`
	Keywords []string `json:"keywords"`
}

// Store decodes the raw payload and submits all methodologies as document
// segments in one request.
func (s *DifyStore) Store(ctx context.Context, raw []byte) (StoreResult, error) {
	records, err := DecodeMethodologies(raw)
	if err != nil {
		return StoreResult{}, err
	}

	segments := make([]difySegment, 0, len(records))
	for _, r := range records {
		segments = append(segments, difySegment{
			Content:  r.Content,
			Keywords: []string{r.Title},
		})
	}

	url := fmt.Sprintf("%s/datasets/%s/documents/%s/segments",
		s.cfg.BaseURL, s.cfg.DatasetID, s.cfg.DocumentID)

	var resp struct {
		Data []struct {
			ID       string   `json:"id"`
			Keywords []string `json:"keywords"`
		} `json:"data"`
	}
	if err := s.post(ctx, url, map[string]any{"segments": segments}, &resp); err != nil {
		return StoreResult{}, fmt.Errorf("storing to Dify: %w", err)
	}

	result := StoreResult{StoredCount: len(resp.Data)}
	for _, d := range resp.Data {
		result.Items = append(result.Items, ItemStatus{
			Title:  strings.Join(d.Keywords, ", "),
			ID:     d.ID,
			Status: "success",
		})
	}

	s.logger.Debug("stored methodologies", "count", result.StoredCount)
	return result, nil
}

// Search issues a semantic-search retrieval request against the dataset.
func (s *DifyStore) Search(ctx context.Context, query string, topK int) ([]Methodology, error) {
	if topK < 1 {
		topK = 1
	}

	url := fmt.Sprintf("%s/datasets/%s/retrieve", s.cfg.BaseURL, s.cfg.DatasetID)
	body := map[string]any{
		"query": query,
		"retrieval_model": map[string]any{
			"search_method": "semantic_search",
			"top_k":         topK,
		},
	}

	var resp struct {
		Records []struct {
			Segment struct {
				Content  string   `json:"content"`
				Keywords []string `json:"keywords"`
			} `json:"segment"`
			Score float32 `json:"score"`
		} `json:"records"`
	}
	if err := s.post(ctx, url, body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}

	results := make([]Methodology, 0, len(resp.Records))
	for _, r := range resp.Records {
		results = append(results, Methodology{
			Title:   strings.Join(r.Segment.Keywords, ", "),
			Content: r.Segment.Content,
			Score:   r.Score,
		})
	}

	return results, nil
}

// post sends an authenticated JSON request and decodes the response into out.
func (s *DifyStore) post(ctx context.Context, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("calling Dify: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("Dify returned status %d: %s", resp.StatusCode, snippet)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Backend identifies this store in result bundles.
func (*DifyStore) Backend() string {
	return "cloud (Dify)"
}

// Close implements Store; the cloud backend holds no long-lived resources.
func (*DifyStore) Close() error {
	return nil
}
