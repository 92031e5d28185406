package crawler

import (
	"net/http"
	"time"
)

// Level identifies a tier in the administrative hierarchy of the reference site.
type Level string

// Hierarchy levels, from the site root down to individual schools.
const (
	LevelUnset    Level = ""
	LevelProvince Level = "province"
	LevelRegency  Level = "regency"
	LevelDistrict Level = "district"
	LevelSchool   Level = "school"
)

// Next returns the level of the pages linked from a page at l.
// Schools are leaves and report false.
func (l Level) Next() (Level, bool) {
	switch l {
	case LevelUnset:
		return LevelProvince, true
	case LevelProvince:
		return LevelRegency, true
	case LevelRegency:
		return LevelDistrict, true
	case LevelDistrict:
		return LevelSchool, true
	default:
		return "", false
	}
}

// IsLeaf reports whether pages at l are school detail pages.
func (l Level) IsLeaf() bool {
	return l == LevelSchool
}

// String returns a printable label; the unset level reads as "root".
func (l Level) String() string {
	if l == LevelUnset {
		return "root"
	}
	return string(l)
}

// PageDescriptor is one unit of crawl work. Parent is kept for diagnostics only.
type PageDescriptor struct {
	URL        string
	Name       string
	Level      Level
	Parent     *PageDescriptor
	RetryCount int
}

// Path renders the chain of names from the root to d, e.g. "INDONESIA/Prop. Aceh".
func (d PageDescriptor) Path() string {
	if d.Parent == nil {
		return d.Name
	}
	return d.Parent.Path() + "/" + d.Name
}

// Retry returns a copy of d with the retry counter advanced.
func (d PageDescriptor) Retry() PageDescriptor {
	d.RetryCount++
	return d
}

// FetchRequest captures everything needed to fetch one page.
type FetchRequest struct {
	URL     string
	Headers http.Header
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// Reserved RawFieldMap keys carrying the coordinates of the embedded map.
const (
	FieldLatitude  = "latitude"
	FieldLongitude = "longitude"
)

// Well-known labels scraped from school detail pages.
const (
	FieldNPSN     = "NPSN"
	FieldProvince = "Propinsi"
	FieldRegency  = "Kabupaten/Kota"
	FieldDistrict = "Kecamatan"
)

// RawFieldMap maps scraped field labels to their values for one school.
type RawFieldMap map[string]string

// Clone returns an independent copy of m.
func (m RawFieldMap) Clone() RawFieldMap {
	out := make(RawFieldMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Coordinates are taken from the query string of the school's embedded map.
type Coordinates struct {
	Latitude  string `json:"latitude"`
	Longitude string `json:"longitude"`
}

// SchoolRecord is the tabular output for one school detail page.
type SchoolRecord struct {
	NPSN        string      `json:"npsn"`
	Fields      RawFieldMap `json:"fields"`
	Coordinates Coordinates `json:"coordinates"`
	PlaceURI    string      `json:"place_uri"`
	SourceURL   string      `json:"source_url"`
	FetchedAt   time.Time   `json:"fetched_at"`
}
