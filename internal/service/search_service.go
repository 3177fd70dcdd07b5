package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"mesgbairai/pkg/config"

	"go.uber.org/zap"
)

// SearchService queries the SerpAPI endpoint and extracts a best-effort short
// answer from its layered response document.
type SearchService struct {
	config     *config.SerpAPIConfig
	httpClient *http.Client
	logger     *zap.Logger
}

func NewSearchService(cfg *config.SerpAPIConfig, logger *zap.Logger) *SearchService {
	return &SearchService{
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

type searchResponse struct {
	AnswerBox struct {
		Answer  string `json:"answer"`
		Snippet string `json:"snippet"`
	} `json:"answer_box"`
	OrganicResults []struct {
		Snippet string `json:"snippet"`
	} `json:"organic_results"`
}

// Search sends the query with the configured locale parameters and returns the
// first usable text in order: answer box answer, answer box snippet, first
// organic result snippet. An empty string with nil error means the search
// succeeded but found nothing quotable.
func (s *SearchService) Search(ctx context.Context, query string) (string, error) {
	s.logger.Info("SerpAPI request", zap.String("query", query))

	params := url.Values{}
	params.Set("q", query)
	params.Set("hl", s.config.Locale)
	params.Set("gl", s.config.Country)
	params.Set("api_key", s.config.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create search request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("search failed with status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var data searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", fmt.Errorf("failed to decode search response: %w", err)
	}

	result := data.AnswerBox.Answer
	if result == "" {
		result = data.AnswerBox.Snippet
	}
	if result == "" && len(data.OrganicResults) > 0 {
		result = data.OrganicResults[0].Snippet
	}

	s.logger.Info("SerpAPI result", zap.String("result", result))
	return result, nil
}
