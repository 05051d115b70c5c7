// Package loc provides the abstract-location machinery the store's typed
// parse records carry as an opaque "aloc-table" blob: a compact encoding of
// per-AST-node source spans, and the lazy conversion from an ALoc back to a
// concrete Loc. The encoder/packer itself is named as an external
// collaborator; this package is the concrete stand-in for it, adapted from
// the span/NodePath sidecar approach used for caret positioning.
package loc

import "strconv"

// Span is a half-open byte interval [Start, End) in a file's source text.
type Span struct {
	Start int
	End   int
}

// Loc is the concrete, resolved location a caller wants: a byte span plus
// the 1-based line/column of its start, computed on demand from source
// text rather than stored per-node.
type Loc struct {
	Span Span
	Line int
	Col  int
}

// ALoc is an abstract location: an index into a file's AlocTable, stable
// for the lifetime of the Parse record it was produced alongside. It
// carries no source-text dependency itself, which is what lets it be
// embedded in the AST blob and resolved lazily, possibly long after the
// worker that produced it has exited.
type ALoc int

// NoALoc is the ALoc equivalent of "no location recorded".
const NoALoc ALoc = -1

// AlocTable is the compact, deduplicated table of spans an ALoc indexes
// into. Spans are deduplicated because many AST nodes in practice share an
// identical span (a single-token node and its sole child, for instance),
// and a parser generating one entry per visited node would otherwise
// repeat the same span many times over in the table.
type AlocTable struct {
	spans []Span
}

// Compactify builds an AlocTable from a stream of per-node spans (recorded
// in the order the caller likes — this package imposes no ordering
// requirement) and returns, for each input span, the ALoc a caller
// should embed in place of it. Identical spans are assigned the same ALoc.
func Compactify(spans []Span) (*AlocTable, []ALoc) {
	table := &AlocTable{spans: make([]Span, 0, len(spans))}
	seen := make(map[Span]ALoc, len(spans))
	out := make([]ALoc, len(spans))
	for i, sp := range spans {
		if a, ok := seen[sp]; ok {
			out[i] = a
			continue
		}
		a := ALoc(len(table.spans))
		table.spans = append(table.spans, sp)
		seen[sp] = a
		out[i] = a
	}
	return table, out
}

// Decompactify is the inverse of Compactify: given the table and the ALoc
// stream Compactify returned, it reconstructs the original span sequence.
// Decompactify(table, alocs) == spans, for the table and alocs that
// Compactify(spans) returned, is the round-trip
// identity the store relies on — recorded spans survive a blob
// round-trip unchanged regardless of how the bytes were packed in between.
func Decompactify(table *AlocTable, alocs []ALoc) []Span {
	out := make([]Span, len(alocs))
	for i, a := range alocs {
		out[i] = table.spanAt(a)
	}
	return out
}

func (t *AlocTable) spanAt(a ALoc) Span {
	if t == nil || a == NoALoc || int(a) < 0 || int(a) >= len(t.spans) {
		return Span{}
	}
	return t.spans[a]
}

// Len reports how many distinct spans the table holds.
func (t *AlocTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.spans)
}

// LocOf resolves a into a concrete Loc against src, computing line/column
// from scratch. This is the "lazy lookup" the per-file aloc-table
// supports: nothing about line/column is precomputed or cached in the
// table itself, only the byte span is.
func (t *AlocTable) LocOf(src string, a ALoc) Loc {
	sp := t.spanAt(a)
	line, col := offsetToLineCol(src, sp.Start)
	return Loc{Span: sp, Line: line, Col: col}
}

func offsetToLineCol(src string, offset int) (line, col int) {
	if offset > len(src) {
		offset = len(src)
	}
	line, col = 1, 1
	for i := 0; i < offset; i++ {
		if src[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return line, col
}

// String renders a for logs; it carries no source-text context so it can
// only show the raw index.
func (a ALoc) String() string {
	if a == NoALoc {
		return "<no-loc>"
	}
	return "aloc#" + strconv.Itoa(int(a))
}
