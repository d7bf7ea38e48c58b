package documents

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/docsearch/internal/models"
)

type filterEntry struct {
	Title      string `json:"title"`
	SourceType string `json:"source_type"`
	Status     string `json:"status"`
	URL        string `json:"url"`
}

// Filter narrows a snapshot to the documents whose title, source type,
// status or URL contain a word starting with every query term. The result
// keeps snapshot order. An empty query returns docs unchanged.
func Filter(docs []models.Document, query string) ([]models.Document, error) {
	terms := filterTerms(query)
	if len(terms) == 0 || len(docs) == 0 {
		return docs, nil
	}

	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = standard.Name
	index, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("failed to create filter index: %w", err)
	}
	defer index.Close()

	batch := index.NewBatch()
	for i, d := range docs {
		entry := filterEntry{Title: d.Title, SourceType: d.SourceType, Status: string(d.Status), URL: d.URL}
		if err := batch.Index(strconv.Itoa(i), entry); err != nil {
			return nil, fmt.Errorf("failed to index document %s: %w", d.ID, err)
		}
	}
	if err := index.Batch(batch); err != nil {
		return nil, fmt.Errorf("failed to index documents: %w", err)
	}

	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		queries = append(queries, bleve.NewPrefixQuery(term))
	}
	req := bleve.NewSearchRequest(bleve.NewConjunctionQuery(queries...))
	req.Size = len(docs)
	res, err := index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("filter search failed: %w", err)
	}

	hit := make(map[int]bool, len(res.Hits))
	for _, h := range res.Hits {
		if i, err := strconv.Atoi(h.ID); err == nil {
			hit[i] = true
		}
	}
	out := make([]models.Document, 0, len(hit))
	for i, d := range docs {
		if hit[i] {
			out = append(out, d)
		}
	}
	return out, nil
}

// filterTerms splits the query the way the standard analyzer tokenizes
// indexed text: lowercase runs of letters and digits.
func filterTerms(query string) []string {
	return strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
