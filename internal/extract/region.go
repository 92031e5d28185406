package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/benangmerah/sekolah/internal/crawler"
)

// Selector profiles for region listings. District pages list schools in a
// different table than the upper levels.
const (
	districtLinkSelector = "#example td a"
	regionLinkSelector   = "#box-table-a tbody a"
)

// Region extracts child page descriptors from a region listing.
type Region struct{}

// Extract returns one descriptor per listed child. An empty listing is not an error.
func (Region) Extract(doc *goquery.Document, page crawler.PageDescriptor) (Result, error) {
	next, ok := page.Level.Next()
	if !ok {
		return Result{}, fmt.Errorf("region extract %s: no level below %q", page.URL, page.Level)
	}

	selector := regionLinkSelector
	if page.Level == crawler.LevelDistrict {
		selector = districtLinkSelector
	}

	parent := page
	var children []crawler.PageDescriptor
	doc.Find(selector).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		children = append(children, crawler.PageDescriptor{
			URL:    href,
			Name:   strings.TrimSpace(a.Text()),
			Level:  next,
			Parent: &parent,
		})
	})
	return Result{Children: children}, nil
}
