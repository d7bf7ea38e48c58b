// Package search runs natural-language queries against the index.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/hyperjump/docsearch/internal/httpclient"
	"github.com/hyperjump/docsearch/internal/models"
)

const (
	MsgSearchFailed = "Search failed"
	DefaultTopK     = 10
)

// Service sends queries to /search.
type Service struct {
	client httpclient.Doer
	logger *zap.Logger
}

func NewService(client httpclient.Doer, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{client: client, logger: logger}
}

type request struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

// Search returns the ranked results for query in the order the server sent
// them. The query is passed through untouched and topK is not clamped.
func (s *Service) Search(ctx context.Context, query string, topK int) ([]models.SearchResult, error) {
	body, err := httpclient.JSON(request{Query: query, TopK: topK})
	if err != nil {
		return nil, httpclient.Wrap("search", err, MsgSearchFailed)
	}
	resp, err := s.client.Do(ctx, httpclient.Request{Method: http.MethodPost, Path: "/search", Body: body})
	if err != nil {
		return nil, httpclient.Wrap("search", err, MsgSearchFailed)
	}
	results, err := decodeResults(resp.Body)
	if err != nil {
		return nil, httpclient.Wrap("search", err, MsgSearchFailed)
	}
	s.logger.Debug("search", zap.String("query", query), zap.Int("top_k", topK), zap.Int("results", len(results)))
	return results, nil
}

// The server answers either with a bare array or with {"results": [...]}.
type payload interface {
	isPayload()
}

type resultList []models.SearchResult

type wrappedResults struct {
	Results []models.SearchResult `json:"results"`
}

func (resultList) isPayload()     {}
func (wrappedResults) isPayload() {}

var errUnexpectedShape = errors.New("unexpected search response")

func parsePayload(data []byte) (payload, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return resultList(nil), nil
	}
	switch trimmed[0] {
	case '[':
		var list resultList
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return nil, fmt.Errorf("decode result list: %w", err)
		}
		return list, nil
	case '{':
		var w wrappedResults
		if err := json.Unmarshal(trimmed, &w); err != nil {
			return nil, fmt.Errorf("decode wrapped results: %w", err)
		}
		return w, nil
	default:
		return nil, errUnexpectedShape
	}
}

func decodeResults(data []byte) ([]models.SearchResult, error) {
	p, err := parsePayload(data)
	if err != nil {
		return nil, err
	}
	var results []models.SearchResult
	switch v := p.(type) {
	case resultList:
		results = v
	case wrappedResults:
		results = v.Results
	}
	if results == nil {
		results = []models.SearchResult{}
	}
	return results, nil
}
