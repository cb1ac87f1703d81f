package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const defaultSerpBaseURL = "https://serpapi.com/search"

// SerpSearcher queries the SerpAPI Google search endpoint for
// troubleshooting guidance.
type SerpSearcher struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewSerpSearcher creates a SerpAPI-backed web searcher. baseURL is
// optional and exists for tests.
func NewSerpSearcher(apiKey, baseURL string) (*SerpSearcher, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: serpapi key is required", ErrNoSearcher)
	}
	if baseURL == "" {
		baseURL = defaultSerpBaseURL
	}
	return &SerpSearcher{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

type serpResponse struct {
	OrganicResults []struct {
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
		Link    string `json:"link"`
	} `json:"organic_results"`
}

// Search runs a "how to fix" query and returns up to limit organic results.
func (s *SerpSearcher) Search(ctx context.Context, query string, limit int) ([]WebSource, error) {
	if limit <= 0 {
		limit = 5
	}

	params := url.Values{}
	params.Set("q", "how to fix "+query)
	params.Set("api_key", s.apiKey)
	params.Set("engine", "google")
	params.Set("num", strconv.Itoa(limit))
	params.Set("gl", "us")
	params.Set("hl", "en")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("building search request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("search request failed: status %d", resp.StatusCode)
	}

	var body serpResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}

	sources := make([]WebSource, 0, limit)
	for _, result := range body.OrganicResults {
		if len(sources) == limit {
			break
		}
		sources = append(sources, WebSource{
			Title:   result.Title,
			Snippet: result.Snippet,
			URL:     result.Link,
		})
	}
	return sources, nil
}
