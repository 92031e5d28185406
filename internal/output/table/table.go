// Package table writes school records as CSV rows and as a JSON document.
// Both writers take the complete record set because the CSV column set is
// the union of every label seen during the crawl.
package table

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"sort"

	"github.com/benangmerah/sekolah/internal/crawler"
)

// Columns are written in this order: NPSN, the sorted union of the other
// scraped labels, then the derived columns.
const (
	ColumnPlaceURI  = "place_uri"
	ColumnSourceURL = "source_url"
)

// CSV writes one header row and one row per record.
type CSV struct {
	w io.Writer
}

// NewCSV creates a CSV writer over w.
func NewCSV(w io.Writer) *CSV {
	return &CSV{w: w}
}

// WriteRows writes records ordered by NPSN. Labels a record lacks are empty cells.
func (c *CSV) WriteRows(records []crawler.SchoolRecord) error {
	records = sortedByNPSN(records)
	labels := Labels(records)
	header := append(slices.Clone(labels), ColumnPlaceURI, ColumnSourceURL)

	cw := csv.NewWriter(c.w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, rec := range records {
		row := make([]string, 0, len(header))
		for _, label := range labels {
			row = append(row, rec.Fields[label])
		}
		row = append(row, rec.PlaceURI, rec.SourceURL)
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row %s: %w", rec.NPSN, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// JSON writes the records as an indented array.
type JSON struct {
	w io.Writer
}

// NewJSON creates a JSON writer over w.
func NewJSON(w io.Writer) *JSON {
	return &JSON{w: w}
}

// WriteRows encodes records ordered by NPSN. An empty set is written as [].
func (j *JSON) WriteRows(records []crawler.SchoolRecord) error {
	records = sortedByNPSN(records)
	if records == nil {
		records = []crawler.SchoolRecord{}
	}
	enc := json.NewEncoder(j.w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("encode json records: %w", err)
	}
	return nil
}

// Labels returns the union of field labels across records, NPSN first and
// the rest sorted.
func Labels(records []crawler.SchoolRecord) []string {
	seen := make(map[string]struct{})
	for _, rec := range records {
		for label := range rec.Fields {
			seen[label] = struct{}{}
		}
	}
	labels := make([]string, 0, len(seen))
	_, hasNPSN := seen[crawler.FieldNPSN]
	delete(seen, crawler.FieldNPSN)
	for label := range seen {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	if hasNPSN {
		labels = append([]string{crawler.FieldNPSN}, labels...)
	}
	return labels
}

func sortedByNPSN(records []crawler.SchoolRecord) []crawler.SchoolRecord {
	if len(records) == 0 {
		return nil
	}
	out := slices.Clone(records)
	sort.SliceStable(out, func(i, k int) bool { return out[i].NPSN < out[k].NPSN })
	return out
}
