package analyze

import (
	"go/ast"
	"strings"

	"github.com/cockroachdb/errors"

	"fbsgen/internal/descriptor"
)

const directivePrefix = "//fbs:"

// directives are the //fbs: lines found in a type's doc comment.
type directives struct {
	kind     descriptor.Kind
	members  []string // for unions
	metadata []descriptor.Metadata
}

// parseDirectives reads the //fbs: lines of the doc comments in order.
// Directive lines are dropped by ast.CommentGroup.Text, so the raw comment
// list is scanned.
func parseDirectives(docs ...*ast.CommentGroup) (directives, error) {
	var d directives

	for _, doc := range docs {
		if doc == nil {
			continue
		}

		for _, c := range doc.List {
			line, ok := strings.CutPrefix(c.Text, directivePrefix)
			if !ok {
				continue
			}

			name, args, _ := strings.Cut(strings.TrimSpace(line), " ")
			args = strings.TrimSpace(args)

			switch name {
			case "table", "struct":
				kind, _ := descriptor.ParseKind(name)
				if err := d.setKind(kind); err != nil {
					return d, err
				}

			case "union":
				if err := d.setKind(descriptor.KindUnion); err != nil {
					return d, err
				}

				d.members = append(d.members, strings.Fields(args)...)

			case "meta":
				md, err := descriptor.ParseMetadataList(args)
				if err != nil {
					return d, errors.Wrapf(err, "directive %q", c.Text)
				}

				d.metadata = append(d.metadata, md...)

			default:
				return d, errors.WithHint(
					errors.Wrapf(descriptor.ErrInvalidDescriptor, "unknown directive %q", c.Text),
					"known directives are //fbs:table, //fbs:struct, //fbs:union and //fbs:meta")
			}
		}
	}

	return d, nil
}

func (d *directives) setKind(k descriptor.Kind) error {
	if d.kind != descriptor.KindUnknown && d.kind != k {
		return errors.Wrapf(descriptor.ErrInvalidDescriptor, "conflicting directives %s and %s", d.kind, k)
	}

	d.kind = k

	return nil
}

// typeDocs maps each type name declared in files to its doc comments: the
// comment on the type itself and, for ungrouped declarations, the comment
// on the enclosing decl.
func typeDocs(files []*ast.File) map[string][]*ast.CommentGroup {
	out := make(map[string][]*ast.CommentGroup)

	for _, file := range files {
		for _, decl := range file.Decls {
			gen, ok := decl.(*ast.GenDecl)
			if !ok {
				continue
			}

			for _, spec := range gen.Specs {
				ts, ok := spec.(*ast.TypeSpec)
				if !ok {
					continue
				}

				docs := []*ast.CommentGroup{ts.Doc}
				if len(gen.Specs) == 1 {
					docs = append(docs, gen.Doc)
				}

				out[ts.Name.Name] = docs
			}
		}
	}

	return out
}
