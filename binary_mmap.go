package schema

import (
	"os"

	mmap "github.com/edsrzf/mmap-go"
)

// LoadBinaryFile parses a compact binary schema (spec §4.10) straight from
// disk via a read-only mmap, the way a fleet-provisioning service would
// load many device schema files without copying each one into the Go heap
// (grounded on saferwall-pe's use of github.com/edsrzf/mmap-go for bounded
// -working-set file access). The mapping is unmapped before returning, so
// the returned *Schema owns its own copy of any bytes it keeps (BinaryField
// values are plain structs, not slices into the mapping).
func LoadBinaryFile(path string) (*Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if fi.Size() == 0 {
		return nil, errFieldf(ErrParseError, "binary schema file %q is empty", path)
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, err
	}
	defer m.Unmap()

	data := make([]byte, len(m))
	copy(data, m)
	return ParseBinarySchema(data)
}
