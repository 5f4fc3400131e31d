package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping maps the book fields: free text for title, author and
// publisher, exact keywords for category slug and ISBN.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = standard.Name

	doc := bleve.NewDocumentMapping()

	title := bleve.NewTextFieldMapping()
	title.Analyzer = standard.Name
	doc.AddFieldMappingsAt("title", title)

	author := bleve.NewTextFieldMapping()
	author.Analyzer = standard.Name
	doc.AddFieldMappingsAt("author", author)

	publisher := bleve.NewTextFieldMapping()
	publisher.Analyzer = standard.Name
	doc.AddFieldMappingsAt("publisher", publisher)

	category := bleve.NewTextFieldMapping()
	category.Analyzer = keyword.Name
	doc.AddFieldMappingsAt("category", category)

	isbn := bleve.NewTextFieldMapping()
	isbn.Analyzer = keyword.Name
	doc.AddFieldMappingsAt("isbn", isbn)

	indexMapping.AddDocumentMapping("_default", doc)
	return indexMapping
}
