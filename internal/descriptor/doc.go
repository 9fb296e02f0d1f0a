// Package descriptor holds the declarative input of the schema generator.
//
// Front-ends (Go source analysis, YAML manifests, hand-built sets in tests)
// produce a fixed Set of TypeDescriptors ahead of time. Everything downstream
// works from that Set only, so ordering and validation rules never depend on
// how the declarations were discovered.
//
// Key types:
//   - TypeID: package path + type name
//   - TypeRef: a declared field type (basic, named, sequence, any, opaque)
//   - TypeDescriptor: a table, struct, enum or union declaration
//   - FieldDescriptor: order, required/deprecated flags, union reference, metadata
//   - Metadata: a schema attribute with an optional int, bool or string value
//   - Report: errors, warnings and notes found by Set.Diagnose and manifest validation
package descriptor
