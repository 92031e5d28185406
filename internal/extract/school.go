package extract

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/benangmerah/sekolah/internal/crawler"
)

const (
	detailTableSelector = "#tabs table"
	mapFrameSelector    = "#tabs-8 iframe"

	labelCell = 1
	valueCell = 3

	emptyValue = "-"
)

// School extracts the field map and coordinates of a school detail page.
// The descriptor name is the school's NPSN.
type School struct{}

// Extract reads every detail table row and the embedded map reference.
func (School) Extract(doc *goquery.Document, page crawler.PageDescriptor) (Result, error) {
	tables := doc.Find(detailTableSelector)
	if tables.Length() == 0 {
		return Result{}, fmt.Errorf("school %s: no detail tables: %w", page.Name, ErrSchemaMismatch)
	}

	fields := make(crawler.RawFieldMap)
	tables.Each(func(_ int, table *goquery.Selection) {
		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			cells := row.Find("td")
			if cells.Length() == 0 {
				return
			}
			label := strings.TrimSpace(cells.Eq(labelCell).Text())
			value := strings.TrimSpace(cells.Eq(valueCell).Text())
			if value == emptyValue {
				value = ""
			}
			if label != "" {
				fields[label] = value
			}
		})
	})

	coords, err := coordinates(doc)
	if err != nil {
		return Result{}, fmt.Errorf("school %s: %w", page.Name, err)
	}
	fields[crawler.FieldLatitude] = coords.Latitude
	fields[crawler.FieldLongitude] = coords.Longitude
	if fields[crawler.FieldNPSN] == "" {
		fields[crawler.FieldNPSN] = page.Name
	}

	return Result{School: &crawler.SchoolRecord{
		NPSN:        fields[crawler.FieldNPSN],
		Fields:      fields,
		Coordinates: coords,
		SourceURL:   page.URL,
	}}, nil
}

func coordinates(doc *goquery.Document) (crawler.Coordinates, error) {
	src, ok := doc.Find(mapFrameSelector).First().Attr("src")
	if !ok {
		return crawler.Coordinates{}, fmt.Errorf("no map reference: %w", ErrSchemaMismatch)
	}
	ref, err := url.Parse(src)
	if err != nil {
		return crawler.Coordinates{}, fmt.Errorf("map reference %q: %v: %w", src, err, ErrSchemaMismatch)
	}
	query := ref.Query()
	return crawler.Coordinates{
		Latitude:  query.Get("x"),
		Longitude: query.Get("y"),
	}, nil
}
