package main

import (
	"encoding/json"
	"os"
	"strings"

	ps "github.com/kungfusheep/payloadschema"
)

// loadSchema accepts either a compact binary schema file (spec §4.10,
// detected by a ".bin"/".psb" extension) or a JSON-encoded schema tree
// (spec §6.2 build_schema's "language-neutral schema tree", here produced
// by plain encoding/json rather than the YAML front-end spec §1 keeps out
// of scope).
func loadSchema(path string) (*ps.Schema, error) {
	if strings.HasSuffix(path, ".bin") || strings.HasSuffix(path, ".psb") {
		return ps.LoadBinaryFile(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tree map[string]any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, err
	}
	return ps.Build(tree)
}
