// Package rdf models the semantic triples produced for each school and maps
// scraped school fields onto them.
package rdf

import "fmt"

// TermKind distinguishes IRIs from literals in object position.
type TermKind int

// Supported object kinds.
const (
	KindIRI TermKind = iota
	KindLiteral
)

// Term is a triple object.
type Term struct {
	Kind  TermKind
	Value string
}

// IRI builds an IRI term.
func IRI(value string) Term {
	return Term{Kind: KindIRI, Value: value}
}

// Literal builds a plain string literal term.
func Literal(value string) Term {
	return Term{Kind: KindLiteral, Value: value}
}

// IsIRI reports whether t references a resource.
func (t Term) IsIRI() bool {
	return t.Kind == KindIRI
}

// String renders t the way N3 tooling prints terms: IRIs bare, literals quoted.
func (t Term) String() string {
	if t.Kind == KindLiteral {
		return fmt.Sprintf("%q", t.Value)
	}
	return t.Value
}

// Triple is one subject-predicate-object fact.
type Triple struct {
	Subject   string
	Predicate string
	Object    Term
}

// String renders the triple on one line for logs and test failures.
func (t Triple) String() string {
	return t.Subject + " " + t.Predicate + " " + t.Object.String()
}
