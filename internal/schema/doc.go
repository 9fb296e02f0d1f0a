// Package schema renders derived type models as FlatBuffers IDL text.
//
// Writer renders one top-level declaration (enum, struct, table or union).
// File assembles a complete schema: includes, namespace, attribute
// declarations, every declaration reachable from the requested types in
// dependency order, and the root type.
package schema
