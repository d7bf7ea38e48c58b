package models

import "strconv"

// SearchResult is one ranked snippet returned for a query.
// Score is descriptive; the order of a result list is decided by the server.
type SearchResult struct {
	DocumentID    string  `json:"document_id"`
	DocumentTitle string  `json:"document_title"`
	Content       string  `json:"content"`
	Score         float64 `json:"score"`
}

// DisplayTitle returns the document title, or the document ID when the title is empty.
func (r SearchResult) DisplayTitle() string {
	if r.DocumentTitle != "" {
		return r.DocumentTitle
	}
	return r.DocumentID
}

// FormatScore renders the score with three decimals.
func (r SearchResult) FormatScore() string {
	return strconv.FormatFloat(r.Score, 'f', 3, 64)
}
