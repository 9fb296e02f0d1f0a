// Package typemodel derives the structural TypeModel graph of declared types.
//
// A Registry owns the graph. Derive classifies a declared type as scalar,
// enum, struct, table, vector or union, resolves field order, validates the
// structural rules of the FlatBuffers format and caches the result. Models are
// immutable once returned and may be shared freely between goroutines.
//
// Self-referential and mutually recursive types resolve through placeholders:
// a type's model is registered before its fields are resolved, so a field that
// points back at an enclosing type gets the same instance.
package typemodel
