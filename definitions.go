package schema

import "fmt"

// Build turns a language-neutral schema tree — the generic map/slice value
// an external YAML/JSON front-end would hand the core (spec §1 "deliberately
// out of scope: YAML/JSON front-end parsing", §6.2 `build_schema(tree)`) —
// into a compiled, read-only *Schema. tree is exactly what
// encoding/json.Unmarshal into `any` would produce: nested
// map[string]any/[]any/float64/string/bool.
func Build(tree map[string]any) (*Schema, error) {
	rawDefs := map[string][]any{}
	if rd, ok := tree["definitions"].(map[string]any); ok {
		for name, raw := range rd {
			if m, ok := raw.(map[string]any); ok {
				rawDefs[name] = getSlice(m, "fields")
			}
		}
	}

	defs := map[string]ObjectSpec{}
	for name, fields := range rawDefs {
		built, err := buildFieldList(fields, rawDefs, map[string]bool{})
		if err != nil {
			return nil, fmt.Errorf("definition %q: %w", name, err)
		}
		defs[name] = ObjectSpec{Fields: built}
	}

	s := &Schema{
		Name:        getStr(tree, "name"),
		Version:     int(getFloat(tree, "version", 0)),
		Endian:      parseEndian(getStr(tree, "endian")),
		Strict:      getBool(tree, "strict"),
		Definitions: defs,
	}

	if rawPorts, ok := tree["ports"].(map[string]any); ok {
		s.Ports = map[int]*Schema{}
		for k, raw := range rawPorts {
			m, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			sub, err := Build(m)
			if err != nil {
				return nil, fmt.Errorf("port %q: %w", k, err)
			}
			var port int
			fmt.Sscanf(k, "%d", &port)
			s.Ports[port] = sub
		}
	} else {
		fields, err := buildFieldList(getSlice(tree, "fields"), rawDefs, map[string]bool{})
		if err != nil {
			return nil, err
		}
		s.Fields = fields
	}

	for _, raw := range getSlice(tree, "metadata") {
		if name, ok := raw.(string); ok {
			s.Metadata = append(s.Metadata, Metadata{Name: name})
		}
	}

	return s, nil
}

// buildFieldList walks one ordered fields array, inlining `use:` references
// lexically against the schema's raw (not-yet-built) definitions so
// definitions may reference each other regardless of map iteration order
// (spec §3.1, invariant 1 "schema tree is acyclic"). inUse tracks the chain
// of definition names currently being inlined so a cycle is rejected rather
// than looping forever.
func buildFieldList(raw []any, rawDefs map[string][]any, inUse map[string]bool) ([]Field, error) {
	var out []Field
	for _, r := range raw {
		m, ok := r.(map[string]any)
		if !ok {
			continue
		}
		if use, ok := m["use"].(string); ok {
			if inUse[use] {
				return nil, errFieldf(ErrParseError, "cyclic use: %s", use)
			}
			defFields, ok := rawDefs[use]
			if !ok {
				return nil, errFieldf(ErrParseError, "use: %s not found among definitions", use)
			}
			nextUse := map[string]bool{}
			for k := range inUse {
				nextUse[k] = true
			}
			nextUse[use] = true
			inlined, err := buildFieldList(defFields, rawDefs, nextUse)
			if err != nil {
				return nil, err
			}
			if prefix, ok := m["prefix"].(string); ok {
				for i := range inlined {
					inlined[i].Name = prefix + inlined[i].Name
				}
			}
			out = append(out, inlined...)
			continue
		}
		f, err := buildField(m, rawDefs, inUse)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func buildField(m map[string]any, defs map[string][]any, inUse map[string]bool) (Field, error) {
	f := Field{
		Name: getStr(m, "name"),
		Var:  getStr(m, "var"),
	}
	if e := getStr(m, "endian"); e != "" {
		order := parseEndian(e)
		f.Endian = &order
	}
	f.Tags = SemanticTags{
		Unit:       getStr(m, "unit"),
		IPSO:       int(getFloat(m, "ipso", 0)),
		SenML:      getStr(m, "senml"),
		UNECE:      getStr(m, "unece"),
		Resolution: getFloat(m, "resolution", 0),
	}
	f.Mods = buildModifiers(m)

	switch getStr(m, "type") {
	case "u8", "u16", "u24", "u32", "u64", "i8", "i16", "i24", "i32", "i64":
		f.Kind = FieldInteger
		t := getStr(m, "type")
		f.Signed = t[0] == 'i'
		f.IntWidth = parseIntWidth(t[1:])
	case "float16", "float32", "float64":
		f.Kind = FieldFloat
		switch getStr(m, "type") {
		case "float16":
			f.FloatWidth = FloatWidth16
		case "float32":
			f.FloatWidth = FloatWidth32
		default:
			f.FloatWidth = FloatWidth64
		}
	case "bool":
		f.Kind = FieldBool
		if bit, ok := m["bit"]; ok {
			bs := parseBitSpec(bit, 8)
			f.Bit = &bs
		}
	case "bitfield":
		f.Kind = FieldBitfield
		f.Signed = getBool(m, "signed")
		host := int(getFloat(m, "host_bits", 8))
		bs := parseBitSpec(m["bits"], host)
		f.Bit = &bs
		f.Consume = getBool(m, "consume")
	case "udec", "sdec":
		f.Kind = FieldNibbleDecimal
		f.Signed = getStr(m, "type") == "sdec"
		f.Length = int(getFloat(m, "length", 1))
		if f.Length != 1 {
			return Field{}, errFieldf(ErrUnsupported, "%s wider than one byte is not supported", getStr(m, "type"))
		}
	case "ascii":
		f.Kind = FieldString
		f.Length = int(getFloat(m, "length", 0))
		f.LengthRef = getStr(m, "length_field")
	case "bytes":
		f.Kind = FieldBytes
		f.Length = int(getFloat(m, "length", 0))
		f.LengthRef = getStr(m, "length_field")
		f.BytesFmt = parseBytesFormat(getStr(m, "format"))
		if sep := getStr(m, "separator"); sep != "" {
			f.HexSep = sep[0]
		}
	case "skip":
		f.Kind = FieldSkip
		f.Length = int(getFloat(m, "length", 0))
	case "enum":
		f.Kind = FieldEnum
		f.Length = int(getFloat(m, "length", 1))
		f.Enum = map[int64]string{}
		if vals, ok := m["values"].(map[string]any); ok {
			for k, v := range vals {
				var key int64
				fmt.Sscanf(k, "%d", &key)
				if s, ok := v.(string); ok {
					f.Enum[key] = s
				}
			}
		}
	case "bitfield_string":
		f.Kind = FieldBitfieldString
		f.Length = int(getFloat(m, "length", 0))
	case "number":
		f.Kind = FieldComputed
		if _, ok := m["formula"]; ok {
			return Field{}, errFieldf(ErrUnsupported, "formula is not supported")
		}
		f.Computed = buildComputed(m)
	case "literal":
		f.Kind = FieldLiteral
		f.Literal = getStr(m, "value")
	case "object":
		f.Kind = FieldObject
		fields, err := buildFieldList(getSlice(m, "fields"), defs, inUse)
		if err != nil {
			return Field{}, err
		}
		f.Object = &ObjectSpec{Fields: fields}
	case "byte_group":
		f.Kind = FieldByteGroup
		fields, err := buildFieldList(getSlice(m, "fields"), defs, inUse)
		if err != nil {
			return Field{}, err
		}
		f.ByteGroup = &ByteGroupSpec{Size: int(getFloat(m, "size", 0)), Fields: fields}
	case "match":
		spec, err := buildMatch(m, defs, inUse)
		if err != nil {
			return Field{}, err
		}
		f.Kind = FieldMatch
		f.Match = spec
	case "flagged":
		spec, err := buildFlagged(m, defs, inUse)
		if err != nil {
			return Field{}, err
		}
		f.Kind = FieldFlagged
		f.Flagged = spec
	case "tlv":
		spec, err := buildTLV(m, defs, inUse)
		if err != nil {
			return Field{}, err
		}
		f.Kind = FieldTLV
		f.TLV = spec
	case "repeat":
		spec, err := buildRepeat(m, defs, inUse)
		if err != nil {
			return Field{}, err
		}
		f.Kind = FieldRepeat
		f.Repeat = spec
	default:
		return Field{}, errFieldf(ErrParseError, "unknown field type %q", getStr(m, "type"))
	}
	return f, nil
}

func buildModifiers(m map[string]any) Modifiers {
	var mods Modifiers
	mods.Encoding = parseEncoding(getStr(m, "encoding"))
	if v, ok := m["mult"]; ok {
		f := toFloat(v)
		mods.Mult = &f
	}
	if v, ok := m["div"]; ok {
		f := toFloat(v)
		mods.Div = &f
	}
	if v, ok := m["add"]; ok {
		f := toFloat(v)
		mods.Add = &f
	}
	if lookup, ok := m["lookup"].(map[string]any); ok {
		for k, v := range lookup {
			var key int64
			fmt.Sscanf(k, "%d", &key)
			mods.Lookup = append(mods.Lookup, LookupEntry{Key: key, Value: toValue(v)})
		}
	}
	if vr, ok := m["valid_range"].([]any); ok && len(vr) == 2 {
		mods.ValidRange = &Range{Min: toFloat(vr[0]), Max: toFloat(vr[1])}
	}
	for _, raw := range getSlice(m, "transform") {
		if tm, ok := raw.(map[string]any); ok {
			mods.Transform = append(mods.Transform, buildTransform(tm))
		}
	}
	return mods
}

func buildTransform(m map[string]any) TransformOp {
	op := TransformOp{}
	switch getStr(m, "op") {
	case "sqrt":
		op.Kind = TransformSqrt
	case "abs":
		op.Kind = TransformAbs
	case "pow":
		op.Kind = TransformPow
		op.Arg = getFloat(m, "k", 0)
	case "log":
		op.Kind = TransformLog
	case "log10":
		op.Kind = TransformLog10
	case "floor":
		op.Kind = TransformFloor
		op.Arg = getFloat(m, "k", 0)
	case "ceiling":
		op.Kind = TransformCeiling
		op.Arg = getFloat(m, "k", 0)
	case "clamp":
		op.Kind = TransformClamp
		if bounds, ok := m["range"].([]any); ok && len(bounds) == 2 {
			op.Lo, op.Hi = toFloat(bounds[0]), toFloat(bounds[1])
		}
	case "round":
		op.Kind = TransformRound
		op.Arg = getFloat(m, "decimals", 0)
	case "pow10":
		op.Kind = TransformPow10
	case "sub":
		op.Kind = TransformSub
		op.Arg = getFloat(m, "k", 0)
	case "add":
		op.Kind = TransformAdd
		op.Arg = getFloat(m, "k", 0)
	case "mul":
		op.Kind = TransformMul
		op.Arg = getFloat(m, "k", 0)
	case "div":
		op.Kind = TransformDiv
		op.Arg = getFloat(m, "k", 0)
	}
	return op
}

func buildComputed(m map[string]any) *ComputedSpec {
	c := &ComputedSpec{Ref: getStr(m, "ref")}
	for _, v := range getSlice(m, "polynomial") {
		c.Polynomial = append(c.Polynomial, toFloat(v))
	}
	if cm, ok := m["compute"].(map[string]any); ok {
		c.Compute = buildComputeExpr(cm)
	}
	if gm, ok := m["guard"].(map[string]any); ok {
		c.Guard = buildGuard(gm)
	}
	return c
}

func buildComputeExpr(m map[string]any) *ComputeExpr {
	return &ComputeExpr{
		Op: parseComputeOp(getStr(m, "op")),
		A:  buildOperand(m["a"]),
		B:  buildOperand(m["b"]),
	}
}

func buildOperand(v any) Operand {
	switch x := v.(type) {
	case map[string]any:
		return Operand{Nested: buildComputeExpr(x)}
	case string:
		if len(x) > 0 && x[0] == '$' {
			return Operand{Ref: x[1:]}
		}
		return Operand{}
	default:
		return Operand{Literal: toFloat(v), IsLiteral: true}
	}
}

func buildGuard(m map[string]any) *Guard {
	g := &Guard{Else: toValue(m["else"])}
	for _, raw := range getSlice(m, "when") {
		if pm, ok := raw.(map[string]any); ok {
			g.Predicates = append(g.Predicates, GuardPredicate{
				Ref:   getStr(pm, "ref"),
				Op:    parseGuardOp(getStr(pm, "op")),
				Value: getFloat(pm, "value", 0),
			})
		}
	}
	return g
}

func buildMatch(m map[string]any, defs map[string][]any, inUse map[string]bool) (*MatchSpec, error) {
	spec := &MatchSpec{SelectorRef: getStr(m, "selector")}
	for _, raw := range getSlice(m, "cases") {
		cm, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		fields, err := buildFieldList(getSlice(cm, "fields"), defs, inUse)
		if err != nil {
			return nil, err
		}
		spec.Cases = append(spec.Cases, MatchCase{Pattern: buildMatchPattern(cm), Fields: fields})
	}
	switch getStr(m, "default") {
	case "skip":
		spec.DefaultPolicy = MatchDefaultSkip
	case "fields":
		spec.DefaultPolicy = MatchDefaultFields
		fields, err := buildFieldList(getSlice(m, "default_fields"), defs, inUse)
		if err != nil {
			return nil, err
		}
		spec.DefaultFields = fields
	default:
		spec.DefaultPolicy = MatchDefaultError
	}
	return spec, nil
}

func buildMatchPattern(m map[string]any) MatchPattern {
	var p MatchPattern
	if v, ok := m["value"]; ok {
		f := toFloat(v)
		p.Literal = &f
		return p
	}
	if vals, ok := m["values"].([]any); ok {
		for _, v := range vals {
			p.Set = append(p.Set, toFloat(v))
		}
		return p
	}
	if rng, ok := m["range"].([]any); ok && len(rng) == 2 {
		lo, hi := toFloat(rng[0]), toFloat(rng[1])
		p.RangeLo, p.RangeHi = &lo, &hi
		return p
	}
	p.Default = true
	return p
}

func buildFlagged(m map[string]any, defs map[string][]any, inUse map[string]bool) (*FlaggedSpec, error) {
	spec := &FlaggedSpec{Ref: getStr(m, "ref")}
	for _, raw := range getSlice(m, "groups") {
		gm, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		fields, err := buildFieldList(getSlice(gm, "fields"), defs, inUse)
		if err != nil {
			return nil, err
		}
		spec.Groups = append(spec.Groups, FlaggedGroup{Bit: int(getFloat(gm, "bit", 0)), Fields: fields})
	}
	return spec, nil
}

func buildTLV(m map[string]any, defs map[string][]any, inUse map[string]bool) (*TLVSpec, error) {
	spec := &TLVSpec{
		TagSize:    int(getFloat(m, "tag_size", 1)),
		LengthSize: int(getFloat(m, "length_size", 0)),
		Merge:      true,
		Once:       getBool(m, "once"),
	}
	if _, ok := m["merge"]; ok {
		spec.Merge = getBool(m, "merge")
	}
	if tf, ok := m["tag_fields"].([]any); ok {
		fields, err := buildFieldList(tf, defs, inUse)
		if err != nil {
			return nil, err
		}
		spec.TagFields = fields
	}
	switch getStr(m, "unknown") {
	case "error":
		spec.Unknown = TLVUnknownError
	case "raw":
		spec.Unknown = TLVUnknownRaw
	default:
		spec.Unknown = TLVUnknownSkip
	}
	for _, raw := range getSlice(m, "cases") {
		cm, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		var tag []int64
		if tv, ok := cm["tag"].([]any); ok {
			for _, v := range tv {
				tag = append(tag, int64(toFloat(v)))
			}
		} else if _, ok := cm["tag"]; ok {
			tag = []int64{int64(getFloat(cm, "tag", 0))}
		}
		fields, err := buildFieldList(getSlice(cm, "fields"), defs, inUse)
		if err != nil {
			return nil, err
		}
		spec.Cases = append(spec.Cases, TLVCase{Tag: tag, Fields: fields})
	}
	return spec, nil
}

func buildRepeat(m map[string]any, defs map[string][]any, inUse map[string]bool) (*RepeatSpec, error) {
	spec := &RepeatSpec{}
	switch {
	case getStr(m, "count_field") != "":
		spec.Bound = RepeatCountField
		spec.CountFieldRef = getStr(m, "count_field")
	case getStr(m, "byte_length_field") != "":
		spec.Bound = RepeatByteLength
		spec.ByteLengthRef = getStr(m, "byte_length_field")
	case getStr(m, "until") == "end":
		spec.Bound = RepeatUntilEnd
	default:
		spec.Bound = RepeatCount
		spec.Count = int(getFloat(m, "count", 0))
	}
	if v, ok := m["min"]; ok {
		n := int(toFloat(v))
		spec.Min = &n
	}
	if v, ok := m["max"]; ok {
		n := int(toFloat(v))
		spec.Max = &n
	}
	fields, err := buildFieldList(getSlice(m, "fields"), defs, inUse)
	if err != nil {
		return nil, err
	}
	spec.Fields = fields
	return spec, nil
}

// --- small generic-tree accessors ---

func getStr(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func getBool(m map[string]any, key string) bool {
	v, _ := m[key].(bool)
	return v
}

func getFloat(m map[string]any, key string, def float64) float64 {
	if v, ok := m[key]; ok {
		return toFloat(v)
	}
	return def
}

func getSlice(m map[string]any, key string) []any {
	v, _ := m[key].([]any)
	return v
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int:
		return float64(x)
	case int64:
		return float64(x)
	default:
		return 0
	}
}

func parseEndian(s string) ByteOrder {
	if s == "little" {
		return LittleEndian
	}
	return BigEndian
}

func parseIntWidth(s string) IntWidth {
	switch s {
	case "16":
		return Width2
	case "24":
		return Width3
	case "32":
		return Width4
	case "64":
		return Width8
	default:
		return Width1
	}
}

func parseBytesFormat(s string) BytesFormat {
	switch s {
	case "hex":
		return BytesHex
	case "hex_upper":
		return BytesHexUpper
	case "base64":
		return BytesBase64
	default:
		return BytesRaw
	}
}

func parseEncoding(s string) EncodingKind {
	switch s {
	case "sign_magnitude":
		return EncodingSignMagnitude
	case "bcd":
		return EncodingBCD
	case "gray":
		return EncodingGray
	default:
		return EncodingNone
	}
}

func parseComputeOp(s string) ComputeOp {
	switch s {
	case "sub":
		return ComputeSub
	case "mul":
		return ComputeMul
	case "div":
		return ComputeDiv
	case "mod":
		return ComputeMod
	case "idiv":
		return ComputeIDiv
	default:
		return ComputeAdd
	}
}

func parseGuardOp(s string) GuardOp {
	switch s {
	case "gte":
		return GuardGte
	case "lt":
		return GuardLt
	case "lte":
		return GuardLte
	case "eq":
		return GuardEq
	case "ne":
		return GuardNe
	default:
		return GuardGt
	}
}

// parseBitSpec interprets the `bits`/`bit` value under any of the five
// equivalent notations (spec §4.3):
//   - "a:b"    -> BitRange
//   - "a+:w"   -> BitStartWidth
//   - [a, w]   -> BitStartWidth (bits<a,w> / bits:w@a already normalized by the front-end)
//   - a bare width number -> BitSequential
func parseBitSpec(v any, hostBits int) BitSpec {
	switch x := v.(type) {
	case string:
		return parseBitSpecString(x, hostBits)
	case []any:
		if len(x) == 2 {
			return BitSpec{Notation: BitStartWidth, HostBits: hostBits, Start: int(toFloat(x[0])), Width: int(toFloat(x[1]))}
		}
	case float64:
		return BitSpec{Notation: BitSequential, HostBits: hostBits, Width: int(x)}
	}
	return BitSpec{Notation: BitSequential, HostBits: hostBits, Width: hostBits}
}

func parseBitSpecString(s string, hostBits int) BitSpec {
	for i := 0; i < len(s); i++ {
		if s[i] != ':' {
			continue
		}
		left, right := s[:i], s[i+1:]
		if len(left) > 0 && left[len(left)-1] == '+' {
			// "a+:w" -> BitStartWidth
			var a, w int
			fmt.Sscanf(left[:len(left)-1], "%d", &a)
			fmt.Sscanf(right, "%d", &w)
			return BitSpec{Notation: BitStartWidth, HostBits: hostBits, Start: a, Width: w}
		}
		// "a:b" -> BitRange, inclusive on both ends
		var a, b int
		fmt.Sscanf(left, "%d", &a)
		fmt.Sscanf(right, "%d", &b)
		return BitSpec{Notation: BitRange, HostBits: hostBits, Start: a, Width: b - a + 1}
	}
	var w int
	fmt.Sscanf(s, "%d", &w)
	return BitSpec{Notation: BitSequential, HostBits: hostBits, Width: w}
}
