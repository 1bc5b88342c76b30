package search

import (
	"fmt"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
)

// Index wraps a Bleve full-text index over extracted document text
type Index struct {
	index bleve.Index
}

// IndexedText is the document shape stored in the search index
type IndexedText struct {
	Filename string
	Text     string
}

// Hit represents a single search match
type Hit struct {
	DocumentID uint                `json:"document_id"`
	Filename   string              `json:"filename"`
	Score      float64             `json:"score"`
	Fragments  map[string][]string `json:"fragments,omitempty"`
}

// Open opens or creates a Bleve index at path
func Open(path string) (*Index, error) {
	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		idx, err = bleve.New(path, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	return &Index{index: idx}, nil
}

// OpenInMemory creates a transient index, used in tests
func OpenInMemory() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create in-memory index: %w", err)
	}
	return &Index{index: idx}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	textFieldMapping := bleve.NewTextFieldMapping()

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("Filename", bleve.NewTextFieldMapping())
	docMapping.AddFieldMappingsAt("Text", textFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}

// Close closes the index
func (i *Index) Close() error {
	return i.index.Close()
}

// IndexText adds or replaces the extracted text for a document
func (i *Index) IndexText(documentID uint, filename, text string) error {
	return i.index.Index(key(documentID), &IndexedText{
		Filename: filename,
		Text:     text,
	})
}

// Delete removes a document's text from the index
func (i *Index) Delete(documentID uint) error {
	return i.index.Delete(key(documentID))
}

// Search runs a query string search with highlighted fragments
func (i *Index) Search(queryStr string, limit int) ([]Hit, error) {
	query := bleve.NewQueryStringQuery(queryStr)

	request := bleve.NewSearchRequestOptions(query, limit, 0, false)
	request.Highlight = bleve.NewHighlight()
	request.Fields = []string{"Filename"}

	results, err := i.index.Search(request)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	hits := make([]Hit, 0, len(results.Hits))
	for _, match := range results.Hits {
		id, err := strconv.ParseUint(match.ID, 10, 64)
		if err != nil {
			continue
		}

		hit := Hit{
			DocumentID: uint(id),
			Score:      match.Score,
			Fragments:  match.Fragments,
		}
		if filename, ok := match.Fields["Filename"].(string); ok {
			hit.Filename = filename
		}
		hits = append(hits, hit)
	}

	return hits, nil
}

func key(documentID uint) string {
	return strconv.FormatUint(uint64(documentID), 10)
}
