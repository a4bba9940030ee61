package schema

// NewPortSchema builds a port-dispatching Schema (spec §4.9, C10): Decode
// and Encode pick the sub-schema keyed by md["port"] rather than walking a
// flat Fields list directly.
func NewPortSchema(name string, ports map[int]*Schema) *Schema {
	return &Schema{Name: name, Ports: ports}
}

// DeclaredMetadata reports the metadata names s declares across itself and,
// if it dispatches on port, every port's sub-schema — the full set of
// names a caller may usefully populate in a MetadataInput (spec §3.1
// "metadata declaration").
func DeclaredMetadata(s *Schema) []string {
	seen := map[string]bool{}
	var names []string
	collect := func(decls []Metadata) {
		for _, d := range decls {
			if !seen[d.Name] {
				seen[d.Name] = true
				names = append(names, d.Name)
			}
		}
	}
	collect(s.Metadata)
	for _, sub := range s.Ports {
		collect(sub.Metadata)
	}
	return names
}
