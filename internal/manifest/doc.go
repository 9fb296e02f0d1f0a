// Package manifest reads type descriptors from a YAML file, for schemas whose
// types are not declared in Go.
//
// Example:
//
//	version: "1"
//	package: game/sample
//	types:
//	  - name: Color
//	    kind: enum
//	    underlying: uint8
//	    values: [Red, Green, {Blue: 8}]
//	  - name: Monster
//	    kind: table
//	    metadata: priority=1
//	    fields:
//	      - {name: hp, type: int16, order: 1}
//	      - {name: name, type: string, required: true, metadata: key}
//	      - {name: weapons, type: "[Weapon]"}
//	      - {name: equipped, type: any, union: Equipment}
//	  - name: Equipment
//	    kind: union
//	    members: [Weapon]
//
// Type expressions are Go basic type names ("int32", "string"), "any" for
// union fields, "[T]" for vectors, a bare name for a type of the same
// manifest, or "pkg/path.Name" for a type declared elsewhere.
package manifest
