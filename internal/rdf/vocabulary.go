package rdf

import "strings"

// Namespaces used by the school triples.
const (
	RDFNamespace     = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RDFSNamespace    = "http://www.w3.org/2000/01/rdf-schema#"
	OWLNamespace     = "http://www.w3.org/2002/07/owl#"
	GeoNamespace     = "http://www.w3.org/2003/01/geo/wgs84_pos#"
	BMNamespace      = "http://sw.benangmerah.net/ontology#"
	NPSNNamespace    = "urn:npsn:"
	AltNPSNNamespace = "http://referensi.data.kemdikbud.go.id/tabs.php?npsn="
	DapodikNamespace = "http://referensi.data.kemdikbud.go.id/#"
)

// Fixed predicates.
const (
	PredicateSameAs       = OWLNamespace + "sameAs"
	PredicateSeeAlso      = RDFSNamespace + "seeAlso"
	PredicateLatitude     = GeoNamespace + "latitude"
	PredicateLongitude    = GeoNamespace + "longitude"
	PredicateInsideRegion = BMNamespace + "isInsideAdministrativeDivision"
)

// Prefix binds a short name to a namespace for serializers.
type Prefix struct {
	Name      string
	Namespace string
}

// Prefixes is the prefix table written at the top of Turtle output.
var Prefixes = []Prefix{
	{Name: "rdf", Namespace: RDFNamespace},
	{Name: "rdfs", Namespace: RDFSNamespace},
	{Name: "owl", Namespace: OWLNamespace},
	{Name: "npsn", Namespace: NPSNNamespace},
	{Name: "wgs84_pos", Namespace: GeoNamespace},
	{Name: "bm", Namespace: BMNamespace},
	{Name: "", Namespace: DapodikNamespace},
}

// SchoolSubject returns the subject URI for the school with the given NPSN.
func SchoolSubject(npsn string) string {
	return NPSNNamespace + npsn
}

// SchoolReference returns the alternate reference URI on the source site.
func SchoolReference(npsn string) string {
	return AltNPSNNamespace + npsn
}

// NPSNFromSubject extracts the NPSN from a subject built by SchoolSubject.
func NPSNFromSubject(uri string) (string, bool) {
	return cutNonEmptyPrefix(uri, NPSNNamespace)
}

// NPSNFromReference extracts the NPSN from a URI built by SchoolReference.
func NPSNFromReference(uri string) (string, bool) {
	return cutNonEmptyPrefix(uri, AltNPSNNamespace)
}

func cutNonEmptyPrefix(s, prefix string) (string, bool) {
	rest, ok := strings.CutPrefix(s, prefix)
	if !ok || rest == "" {
		return "", false
	}
	return rest, true
}
