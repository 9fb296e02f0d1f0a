// Package analyze turns annotated Go declarations into a descriptor set.
//
// It loads packages with golang.org/x/tools/go/packages and reads go/types
// information together with the syntax of each file:
//   - //fbs:table and //fbs:struct doc directives mark struct types;
//   - //fbs:union A B on a named interface marks a union of tables;
//   - a named integral type with typed constants is an enum;
//   - //fbs:meta key=value adds type-level metadata;
//   - fbs and fbsmeta struct tags configure fields.
package analyze
