// Package turtle streams triples to an io.Writer in Turtle syntax.
package turtle

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"

	"github.com/benangmerah/sekolah/internal/rdf"
)

var localNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]([A-Za-z0-9_.-]*[A-Za-z0-9_-])?$`)

// Writer serializes triples incrementally. The prefix table is emitted before
// the first statement. Writer is safe for concurrent use.
type Writer struct {
	mu       sync.Mutex
	out      *bufio.Writer
	prefixes []rdf.Prefix
	started  bool
	closed   bool
	count    int
}

// NewWriter creates a Writer over w using prefixes for compact names.
func NewWriter(w io.Writer, prefixes []rdf.Prefix) *Writer {
	return &Writer{
		out:      bufio.NewWriter(w),
		prefixes: prefixes,
	}
}

// WriteTriples appends triples as one contiguous block. Consecutive triples
// sharing a subject are grouped into a single statement.
func (w *Writer) WriteTriples(triples []rdf.Triple) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return fmt.Errorf("write triples: writer closed")
	}
	if len(triples) == 0 {
		return nil
	}
	if err := w.writeHeader(); err != nil {
		return err
	}

	var sb strings.Builder
	for i, t := range triples {
		if i == 0 || triples[i-1].Subject != t.Subject {
			if i > 0 {
				sb.WriteString(" .\n\n")
			}
			sb.WriteString(w.name(t.Subject))
			sb.WriteString("\n    ")
		} else {
			sb.WriteString(" ;\n    ")
		}
		sb.WriteString(w.name(t.Predicate))
		sb.WriteString(" ")
		sb.WriteString(w.object(t.Object))
	}
	sb.WriteString(" .\n\n")

	if _, err := w.out.WriteString(sb.String()); err != nil {
		return fmt.Errorf("write triples: %w", err)
	}
	w.count += len(triples)
	return nil
}

// Count returns the number of triples written so far.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Close writes the header if nothing was written yet and flushes buffered
// output. It does not close the underlying writer. Close is idempotent.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.writeHeader(); err != nil {
		return err
	}
	if err := w.out.Flush(); err != nil {
		return fmt.Errorf("flush turtle: %w", err)
	}
	return nil
}

func (w *Writer) writeHeader() error {
	if w.started {
		return nil
	}
	w.started = true
	var sb strings.Builder
	for _, p := range w.prefixes {
		fmt.Fprintf(&sb, "@prefix %s: <%s> .\n", p.Name, escapeIRI(p.Namespace))
	}
	sb.WriteString("\n")
	if _, err := w.out.WriteString(sb.String()); err != nil {
		return fmt.Errorf("write prefixes: %w", err)
	}
	return nil
}

// name renders iri as a prefixed name when a namespace matches and the
// remainder is a plain local name, and as <iri> otherwise.
func (w *Writer) name(iri string) string {
	best := -1
	for i, p := range w.prefixes {
		local, ok := strings.CutPrefix(iri, p.Namespace)
		if !ok || !localNamePattern.MatchString(local) {
			continue
		}
		if best < 0 || len(p.Namespace) > len(w.prefixes[best].Namespace) {
			best = i
		}
	}
	if best < 0 {
		return "<" + escapeIRI(iri) + ">"
	}
	p := w.prefixes[best]
	return p.Name + ":" + strings.TrimPrefix(iri, p.Namespace)
}

func (w *Writer) object(term rdf.Term) string {
	if term.IsIRI() {
		return w.name(term.Value)
	}
	return `"` + escapeString(term.Value) + `"`
}

func escapeString(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	s = strings.ReplaceAll(s, "\t", "\\t")
	return s
}

// escapeIRI percent-encodes the characters Turtle forbids inside <...>, so
// the parsed IRI stays valid. All of them are ASCII.
func escapeIRI(s string) string {
	var sb strings.Builder
	for _, r := range s {
		if r <= 0x20 || strings.ContainsRune("<>\"{}|^`\\", r) {
			fmt.Fprintf(&sb, "%%%02X", r)
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
