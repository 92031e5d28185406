// Package extract turns fetched reference-site pages into crawl work or school
// records. Region pages (root, province, regency, district) enumerate child
// pages; school pages carry the detail tables and the embedded map.
package extract

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/PuerkitoBio/goquery"

	"github.com/benangmerah/sekolah/internal/crawler"
)

// ErrSchemaMismatch reports markup that does not have the expected structure.
// It is not retried.
var ErrSchemaMismatch = errors.New("page structure mismatch")

// Result is the outcome of extracting one page. Region pages fill Children,
// school pages fill School.
type Result struct {
	Children []crawler.PageDescriptor
	School   *crawler.SchoolRecord
}

// Extractor is implemented by Region and School.
type Extractor interface {
	Extract(doc *goquery.Document, page crawler.PageDescriptor) (Result, error)
}

// For returns the extractor for pages at level.
func For(level crawler.Level) Extractor {
	if level.IsLeaf() {
		return School{}
	}
	return Region{}
}

// Parse builds a queryable document from a page body.
func Parse(body []byte) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}
