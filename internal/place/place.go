// Package place turns the province, regency and district labels scraped from a
// school page into a canonical hierarchical place URI.
//
// The source data prefixes administrative names with fixed-width type markers
// ("Prop. ", "Kab. ", "Kota ", "Kec. "). Those markers are removed by offset,
// not by matching, so a label that does not follow the convention produces a
// truncated name rather than an error.
package place

import (
	"regexp"
	"strings"

	"github.com/benangmerah/sekolah/internal/crawler"
)

// Namespace is the root of every canonical place URI.
const Namespace = "http://sw.benangmerah.net/place/idn/"

// Canonical province names for the two special provinces.
const (
	ProvinceDKI = "DKI JAKARTA"
	ProvinceDIY = "DAERAH ISTIMEWA YOGYAKARTA"
)

const (
	regencyPrefixWidth  = 4 // "Kab."
	cityPrefixWidth     = 5 // "Kota "
	districtPrefixWidth = 4 // "Kec."
)

var (
	jakartaSuffix    = regexp.MustCompile(`(?i)Jakarta$`)
	yogyakartaSuffix = regexp.MustCompile(`(?i)Yogyakarta$`)
	regencyPrefix    = regexp.MustCompile(`(?i)^Kab\. `)
)

// Place holds normalized, not yet slugified, administrative names.
type Place struct {
	Province string
	Regency  string
	District string
}

// Canonicalize applies the naming exceptions for DKI Jakarta and DI Yogyakarta
// and strips the type markers from regency and district labels.
func Canonicalize(fields crawler.RawFieldMap) Place {
	province := fields[crawler.FieldProvince]
	regency := fields[crawler.FieldRegency]
	district := fields[crawler.FieldDistrict]

	isDKI := false
	switch {
	case jakartaSuffix.MatchString(province):
		province = ProvinceDKI
		isDKI = true
	case yogyakartaSuffix.MatchString(province):
		province = ProvinceDIY
	}

	switch {
	case regencyPrefix.MatchString(regency):
		name := strings.TrimSpace(dropRunes(regency, regencyPrefixWidth))
		if isDKI {
			regency = "Kabupaten Administrasi " + name
		} else {
			regency = strings.TrimSpace("Kabupaten " + name)
		}
	case isDKI:
		regency = strings.TrimSpace("Kota Administrasi " + strings.TrimSpace(dropRunes(regency, cityPrefixWidth)))
	}

	district = strings.TrimSpace(dropRunes(district, districtPrefixWidth))

	return Place{
		Province: province,
		Regency:  regency,
		District: district,
	}
}

// URI renders p under Namespace as province/regency/district slugs.
func (p Place) URI() string {
	return Namespace + Slugify(p.Province) + "/" + Slugify(p.Regency) + "/" + Slugify(p.District)
}

// URI canonicalizes fields and returns the resulting place URI.
func URI(fields crawler.RawFieldMap) string {
	return Canonicalize(fields).URI()
}

// dropRunes removes the first n characters of s. Shorter inputs yield "".
func dropRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return ""
	}
	return string(runes[n:])
}
