package schema

import "encoding/binary"

// The compact binary schema format (spec §4.10/§6.2): a fixed 5-byte header
// followed by one 4-byte record per field. Grounded directly on the
// MultiTechSystems device-payload-schema binary codec (go-schema-binary.go
// in the reference pack) — same magic, same per-field record shape, same
// powers-of-ten modifier-exponent trick — re-expressed against this
// package's Field/Modifiers model instead of that package's flat Field
// struct.
const (
	binaryMagic   = "PS"
	BinaryVersion = 1
)

// Binary field type codes (high nibble of the type/size byte).
const (
	binTypeUnsigned  byte = 0x00
	binTypeSigned    byte = 0x10
	binTypeFloat     byte = 0x20
	binTypeBytes     byte = 0x30
	binTypeBool      byte = 0x40
	binTypeEnum      byte = 0x50
	binTypeBitfield  byte = 0x60
	binTypeStructural byte = 0x70
)

const binExpHalf int8 = -127 // sentinel: ×0.5, out of range for a power-of-ten exponent

// BinaryField is one decoded 4-byte record (spec §4.10).
type BinaryField struct {
	TypeSize   byte
	ModExp     int8
	SemanticID uint16
}

// BinarySchema is the raw parsed form of the compact binary format.
// ParseBinarySchema builds one internally; it is neither returned nor
// attached to the *Schema it produces.
type BinarySchema struct {
	Version    byte
	LittleEndian bool
	Fields     []BinaryField
	Raw        []byte
}

// ParseBinarySchema validates and decodes the fixed-width wire format into
// a *Schema. Fields in this format carry no name, only a semantic ID, so
// decoded fields are named by position, "field_a" through "field_z" for
// the first 26 and "field_<n>" after that; callers that need
// stable names should prefer the textual loader (Build) and reserve this
// format for constrained-bandwidth provisioning of devices that only know
// their own wire layout.
func ParseBinarySchema(data []byte) (*Schema, error) {
	if len(data) < 5 {
		return nil, errFieldf(ErrParseError, "binary schema: too short (%d bytes)", len(data))
	}
	if string(data[0:2]) != binaryMagic {
		return nil, errFieldf(ErrParseError, "binary schema: bad magic")
	}
	version := data[2]
	if version != BinaryVersion {
		return nil, errFieldf(ErrParseError, "binary schema: unsupported version %d", version)
	}
	flags := data[3]
	little := flags&0x01 != 0
	count := int(data[4])

	need := 5 + count*4
	if len(data) < need {
		return nil, errFieldf(ErrParseError, "binary schema: need %d bytes for %d fields, have %d", need, count, len(data))
	}

	bs := &BinarySchema{Version: version, LittleEndian: little, Raw: data}
	fields := make([]Field, 0, count)
	for i := 0; i < count; i++ {
		off := 5 + i*4
		bf := BinaryField{
			TypeSize:   data[off],
			ModExp:     int8(data[off+1]),
			SemanticID: binary.LittleEndian.Uint16(data[off+2 : off+4]),
		}
		bs.Fields = append(bs.Fields, bf)
		f, err := binaryFieldToField(bf, i)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}

	order := BigEndian
	if little {
		order = LittleEndian
	}
	return &Schema{Name: "binary", Version: int(version), Endian: order, Fields: fields}, nil
}

// EncodeBinarySchema is the inverse of ParseBinarySchema: a flat,
// top-level-only Field list (no structural constructs — the compact format
// has no room to express them) becomes the fixed-width wire bytes.
func EncodeBinarySchema(s *Schema) ([]byte, error) {
	if len(s.Fields) > 255 {
		return nil, errFieldf(ErrUnsupported, "binary schema: %d fields exceeds the 255-field limit", len(s.Fields))
	}
	out := make([]byte, 5, 5+len(s.Fields)*4)
	copy(out, binaryMagic)
	out[2] = BinaryVersion
	if s.Endian == LittleEndian {
		out[3] = 0x01
	}
	out[4] = byte(len(s.Fields))

	for i := range s.Fields {
		bf, err := fieldToBinaryField(&s.Fields[i], uint16(i))
		if err != nil {
			return nil, err
		}
		rec := make([]byte, 4)
		rec[0] = bf.TypeSize
		rec[1] = byte(bf.ModExp)
		binary.LittleEndian.PutUint16(rec[2:4], bf.SemanticID)
		out = append(out, rec...)
	}
	return out, nil
}

func binaryFieldToField(bf BinaryField, index int) (Field, error) {
	typeCode := bf.TypeSize & 0xF0
	size := int(bf.TypeSize & 0x0F)

	f := Field{Name: binaryFieldName(index)}
	if mult := expToMult(bf.ModExp); mult != 1 {
		m := mult
		f.Mods.Mult = &m
	}

	switch typeCode {
	case binTypeUnsigned:
		f.Kind = FieldInteger
		f.IntWidth = IntWidth(size)
	case binTypeSigned:
		f.Kind = FieldInteger
		f.Signed = true
		f.IntWidth = IntWidth(size)
	case binTypeFloat:
		f.Kind = FieldFloat
		f.FloatWidth = FloatWidth(size)
	case binTypeBytes:
		f.Kind = FieldBytes
		f.Length = size
	case binTypeBool:
		f.Kind = FieldBool
	case binTypeEnum:
		f.Kind = FieldEnum
		f.Length = size
		f.Enum = map[int64]string{}
	case binTypeBitfield:
		f.Kind = FieldBitfield
		f.Bit = &BitSpec{Notation: BitSequential, HostBits: size * 8, Width: size * 8}
	default:
		return Field{}, errFieldf(ErrParseError, "binary schema: unsupported type code 0x%02x", typeCode)
	}
	return f, nil
}

func fieldToBinaryField(f *Field, semanticID uint16) (BinaryField, error) {
	var typeCode byte
	var size int

	switch f.Kind {
	case FieldInteger:
		if f.Signed {
			typeCode = binTypeSigned
		} else {
			typeCode = binTypeUnsigned
		}
		size = int(f.IntWidth)
	case FieldFloat:
		typeCode = binTypeFloat
		size = int(f.FloatWidth)
	case FieldBytes:
		typeCode = binTypeBytes
		size = f.Length
	case FieldBool:
		typeCode = binTypeBool
		size = 1
	case FieldEnum:
		typeCode = binTypeEnum
		size = f.Length
	case FieldBitfield:
		typeCode = binTypeBitfield
		size = f.Bit.HostBytes()
	default:
		return BinaryField{}, errFieldf(ErrUnsupported, "binary schema: field kind %s has no compact encoding", f.Kind)
	}
	if size > 0x0F {
		return BinaryField{}, errFieldf(ErrUnsupported, "binary schema: size %d exceeds 4-bit field", size)
	}

	var mult float64 = 1
	if f.Mods.Mult != nil {
		mult = *f.Mods.Mult
	}

	return BinaryField{
		TypeSize:   typeCode | byte(size),
		ModExp:     multToExp(mult),
		SemanticID: semanticID,
	}, nil
}

func binaryFieldName(i int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz"
	if i < len(letters) {
		return "field_" + string(letters[i])
	}
	return "field_" + itoa(i)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var b []byte
	for n > 0 {
		b = append([]byte{byte('0' + n%10)}, b...)
		n /= 10
	}
	return string(b)
}

// expToMult turns a modifier-exponent byte into its multiplier, a signed
// power of ten with one sentinel value (0x81) standing in for ×0.5 — the
// one non-power-of-ten scale factor common enough in real device schemas to
// earn a dedicated code (grounded on the reference implementation's
// expToMult/multToExp pair).
func expToMult(exp int8) float64 {
	if exp == binExpHalf {
		return 0.5
	}
	mult := 1.0
	for i := int8(0); i < exp; i++ {
		mult *= 10
	}
	for i := int8(0); i > exp; i-- {
		mult /= 10
	}
	return mult
}

// multToExp is the inverse of expToMult.
func multToExp(mult float64) int8 {
	if mult == 0.5 {
		return binExpHalf
	}
	var exp int8
	v := 1.0
	for v < mult && exp < 127 {
		v *= 10
		exp++
	}
	for v > mult && exp > -127 {
		v /= 10
		exp--
	}
	return exp
}
