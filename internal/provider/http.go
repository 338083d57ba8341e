package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/docarena/docarena/internal/extract"
)

// maxResponseBytes bounds how much of a provider response is read.
const maxResponseBytes = 32 << 20

// httpExtractor is a generic JSON-over-HTTP extraction client. Provider
// backends that speak this shape need no dedicated SDK binding.
type httpExtractor struct {
	name     string
	model    string
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewHTTP creates an extractor that POSTs extraction requests to endpoint.
func NewHTTP(name string, opts Options) (extract.Extractor, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("provider %q: endpoint is required", name)
	}

	return &httpExtractor{
		name:     name,
		model:    opts.Model,
		endpoint: opts.Endpoint,
		apiKey:   opts.APIKey,
		client:   &http.Client{},
	}, nil
}

// Name implements extract.Extractor.
func (e *httpExtractor) Name() string {
	return e.name
}

// wireDocument is one document in the request payload.
type wireDocument struct {
	Path    string `json:"path"`
	Content string `json:"content_b64"`
}

// wireRequest is the request payload.
type wireRequest struct {
	Model     string         `json:"model"`
	Prompt    string         `json:"prompt"`
	Mode      string         `json:"mode"`
	GroupID   string         `json:"group_id"`
	Documents []wireDocument `json:"documents"`
}

// wireUsage mirrors the provider's token accounting.
type wireUsage struct {
	PromptTokens    int `json:"prompt_tokens"`
	CandidateTokens int `json:"candidates_tokens"`
	TotalTokens     int `json:"total_tokens"`
}

// wireResult is one per-document answer.
type wireResult struct {
	Identifier string         `json:"identifier"`
	Fields     map[string]any `json:"fields"`
	Usage      wireUsage      `json:"usage"`
	Error      string         `json:"error"`
}

// wireResponse is the response payload.
type wireResponse struct {
	Results []wireResult `json:"results"`
}

// Call implements extract.Extractor.
func (e *httpExtractor) Call(ctx context.Context, req extract.Request) ([]extract.Record, error) {
	payload := wireRequest{
		Model:     e.model,
		Prompt:    req.Prompt,
		Mode:      req.Mode,
		GroupID:   req.GroupID,
		Documents: make([]wireDocument, 0, len(req.Files)),
	}

	for _, file := range req.Files {
		content, readErr := os.ReadFile(file.Path)
		if readErr != nil {
			return nil, fmt.Errorf("read document %s: %w", file.Path, readErr)
		}

		payload.Documents = append(payload.Documents, wireDocument{
			Path:    file.Path,
			Content: base64.StdEncoding.EncodeToString(content),
		})
	}

	body, marshalErr := json.Marshal(payload)
	if marshalErr != nil {
		return nil, fmt.Errorf("marshal request: %w", marshalErr)
	}

	httpReq, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if reqErr != nil {
		return nil, fmt.Errorf("build request: %w", reqErr)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, callErr := e.client.Do(httpReq)
	if callErr != nil {
		return nil, fmt.Errorf("call provider %s: %w", e.name, callErr)
	}
	defer resp.Body.Close()

	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if readErr != nil {
		return nil, fmt.Errorf("read provider response: %w", readErr)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("provider %s returned status %d", e.name, resp.StatusCode)
	}

	var decoded wireResponse

	unmarshalErr := json.Unmarshal(respBody, &decoded)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("decode provider response: %w", unmarshalErr)
	}

	records := make([]extract.Record, 0, len(decoded.Results))
	for _, result := range decoded.Results {
		records = append(records, extract.Record{
			Identifier: result.Identifier,
			Fields:     result.Fields,
			Usage: extract.TokenUsage{
				PromptTokens:    result.Usage.PromptTokens,
				CandidateTokens: result.Usage.CandidateTokens,
				TotalTokens:     result.Usage.TotalTokens,
			},
			Err: result.Error,
		})
	}

	return records, nil
}
