// Package schema implements a bidirectional binary payload codec driven by
// a declarative schema tree.
//
// A Schema describes how an opaque byte string encodes a tree of named
// values: primitive numeric fields, bit-packed sub-byte groups, tag
// dispatched variants, flag-conditional groups, length/until-bounded
// repetitions, and derived (computed) fields. Given a Schema and a buffer,
// Decode produces a structured record; given a Schema and a record, Encode
// produces the exact byte sequence Decode would consume to reproduce it.
//
// Decode and Encode perform no I/O, spawn no goroutines and keep no state
// beyond a compiled *Schema, which is immutable once built and safe to use
// concurrently from any number of callers. LoadBinaryFile reads a file, and
// DecodeAll runs one goroutine per buffer.
package schema
