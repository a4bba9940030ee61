package schema

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

// printVisitor renders a schema tree as indented text. It implements
// Visitor so Print reuses Walk instead of hand-rolling its own recursion.
type printVisitor struct {
	b      *strings.Builder
	indent int
}

func (p *printVisitor) VisitField(path string, f *Field) error {
	fmt.Fprintf(p.b, "%s%s: %s\n", strings.Repeat("  ", p.indent), f.Name, f.Kind)
	return nil
}

func (p *printVisitor) EnterScope(path, label string) { p.indent++ }
func (p *printVisitor) ExitScope(path string)          { p.indent-- }

// SPrint renders s as an indented tree, one line per field, the way
// glint's SPrint renders a decoded document. Grounded on glint's
// printer.go Print/SPrint pair, which recovers from a walk panic and
// reports it as part of the string; here the recover guards SPrint's own
// walk with its printVisitor, so an unexpected panic becomes part of the
// returned string instead of reaching the caller.
func SPrint(s *Schema) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = fmt.Sprintf("<schema print panic: %v>", r)
		}
	}()
	var b strings.Builder
	fmt.Fprintf(&b, "schema %s v%d\n", s.Name, s.Version)
	if err := Walk(s, &printVisitor{b: &b}); err != nil {
		fmt.Fprintf(&b, "<walk error: %v>\n", err)
	}
	for _, name := range sortedDefinitionNames(s.Definitions) {
		fmt.Fprintf(&b, "definition %s:\n", name)
		pv := &printVisitor{b: &b, indent: 1}
		if err := walkFields(s.Definitions[name].Fields, "", pv); err != nil {
			fmt.Fprintf(&b, "  <walk error: %v>\n", err)
		}
	}
	return b.String()
}

// sortedDefinitionNames orders s.Definitions for stable SPrint output —
// map iteration order is otherwise unspecified.
func sortedDefinitionNames(defs map[string]ObjectSpec) []string {
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Print writes SPrint's output to w.
func Print(w io.Writer, s *Schema) {
	fmt.Fprint(w, SPrint(s))
}

// SPrintResult renders a DecodeResult's record, in declaration order, one
// line per field.
func SPrintResult(res *DecodeResult) string {
	var b strings.Builder
	if res.Err != nil {
		fmt.Fprintf(&b, "error (%s): %v\n", res.Kind, res.Err)
	}
	if res.Record != nil {
		for _, k := range res.Record.Keys() {
			v, _ := res.Record.Get(k)
			line := fmt.Sprintf("%s: %s", k, v.String_())
			if q, ok := res.Quality[k]; ok {
				line += fmt.Sprintf(" (%s)", q)
			}
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	for _, w := range res.Warnings {
		fmt.Fprintf(&b, "warning: %s\n", w.String())
	}
	return b.String()
}
