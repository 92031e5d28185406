package rdf

import (
	"regexp"
	"sort"
	"strings"

	"github.com/benangmerah/sekolah/internal/crawler"
	"github.com/benangmerah/sekolah/internal/place"
)

// Encoding selects how a field value becomes a triple object.
type Encoding int

// Field value encodings.
const (
	EncodeLiteral Encoding = iota
	EncodeVocabulary
	EncodeMailto
	EncodeHTTP
)

// Encodings lists the labels whose values are not plain literals, keyed by
// cleaned label.
var Encodings = map[string]Encoding{
	"Waktu Penyelenggaraan": EncodeVocabulary,
	"Jenjang Pendidikan":    EncodeVocabulary,
	"Status Sekolah":        EncodeVocabulary,
	"Email":                 EncodeMailto,
	"Website":               EncodeHTTP,
}

// Encode turns raw into a triple object under enc.
func (enc Encoding) Encode(raw string) Term {
	switch enc {
	case EncodeVocabulary:
		return IRI(DapodikNamespace + raw)
	case EncodeMailto:
		return IRI("mailto:" + raw)
	case EncodeHTTP:
		return IRI("http://" + raw)
	default:
		return Literal(raw)
	}
}

var (
	labelPunctuation = regexp.MustCompile(`[./()]`)
	camelSeparators  = regexp.MustCompile(`[-_\s]+(.)?`)
)

// CleanLabel removes the characters . / ( ) from a scraped label.
func CleanLabel(label string) string {
	return labelPunctuation.ReplaceAllString(label, "")
}

// Camelize joins words, upper-casing the first letter after each separator.
// The first letter keeps its case: "Status Sekolah" becomes "StatusSekolah".
func Camelize(s string) string {
	return camelSeparators.ReplaceAllStringFunc(strings.TrimSpace(s), func(m string) string {
		sub := camelSeparators.FindStringSubmatch(m)
		return strings.ToUpper(sub[1])
	})
}

// PredicateFor returns the vocabulary predicate for a cleaned label.
func PredicateFor(cleanLabel string) string {
	return DapodikNamespace + Camelize(cleanLabel)
}

// Mapper converts a school's field map into triples.
type Mapper struct {
	placeURI func(crawler.RawFieldMap) string
}

// NewMapper returns a Mapper that resolves places with place.URI.
func NewMapper() Mapper {
	return Mapper{placeURI: place.URI}
}

// Map produces every triple for one school. The result depends only on fields.
func (m Mapper) Map(fields crawler.RawFieldMap) []Triple {
	npsn := fields[crawler.FieldNPSN]
	subject := SchoolSubject(npsn)

	triples := []Triple{
		{Subject: subject, Predicate: PredicateSameAs, Object: IRI(SchoolReference(npsn))},
		{Subject: subject, Predicate: PredicateSeeAlso, Object: IRI(SchoolReference(npsn))},
	}

	labels := make([]string, 0, len(fields))
	for label := range fields {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	for _, label := range labels {
		value := fields[label]
		if skipField(label, value) {
			continue
		}
		clean := CleanLabel(label)
		triples = append(triples, Triple{
			Subject:   subject,
			Predicate: PredicateFor(clean),
			Object:    Encodings[clean].Encode(value),
		})
	}

	placeURI := m.placeURI
	if placeURI == nil {
		placeURI = place.URI
	}
	return append(triples,
		Triple{Subject: subject, Predicate: PredicateLatitude, Object: Literal(fields[crawler.FieldLatitude])},
		Triple{Subject: subject, Predicate: PredicateLongitude, Object: Literal(fields[crawler.FieldLongitude])},
		Triple{Subject: subject, Predicate: PredicateInsideRegion, Object: IRI(placeURI(fields))},
	)
}

func skipField(label, value string) bool {
	if value == "" || value == "0" {
		return true
	}
	return label == crawler.FieldLatitude || label == crawler.FieldLongitude
}
