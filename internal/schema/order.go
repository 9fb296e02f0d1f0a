package schema

import (
	"slices"
	"strings"

	"github.com/cockroachdb/errors"

	"fbsgen/internal/typemodel"
)

// orderDeclarations arranges decls, which arrive sorted by name, so that
// every enum and fixed struct precedes the declarations that hold it. Of the
// declarations free to go next, the one earliest in name order goes first.
func orderDeclarations(decls []*typemodel.TypeModel) ([]*typemodel.TypeModel, error) {
	pos := make(map[*typemodel.TypeModel]int, len(decls))
	for i, m := range decls {
		pos[m] = i
	}

	// pending[i] counts the dependencies of decls[i] not yet emitted;
	// dependents[j] lists who waits on decls[j].
	pending := make([]int, len(decls))
	dependents := make([][]int, len(decls))

	for i, m := range decls {
		for _, dep := range hardDependencies(m) {
			if j, ok := pos[dep]; ok {
				pending[i]++
				dependents[j] = append(dependents[j], i)
			}
		}
	}

	out := make([]*typemodel.TypeModel, 0, len(decls))
	emitted := make([]bool, len(decls))

	for len(out) < len(decls) {
		next := -1

		for i := range decls {
			if !emitted[i] && pending[i] == 0 {
				next = i
				break
			}
		}

		if next < 0 {
			return nil, cycleError(decls, emitted)
		}

		emitted[next] = true
		out = append(out, decls[next])

		for _, d := range dependents[next] {
			pending[d]--
		}
	}

	return out, nil
}

func cycleError(decls []*typemodel.TypeModel, emitted []bool) error {
	var names []string

	for i, m := range decls {
		if !emitted[i] {
			names = append(names, m.ID.String())
		}
	}

	return errors.WithHint(
		errors.Wrapf(typemodel.ErrInvalidConfiguration,
			"declarations %s hold each other inline", strings.Join(names, ", ")),
		"a fixed struct cannot contain itself, directly or through another struct")
}

// hardDependencies lists the enums and fixed structs m holds; those must be
// declared before m.
func hardDependencies(m *typemodel.TypeModel) []*typemodel.TypeModel {
	if m.StructDef == nil {
		return nil
	}

	var deps []*typemodel.TypeModel

	for _, f := range m.StructDef.Fields {
		t := f.TypeModel
		for t.IsVector() {
			t = t.ElementType
		}

		if t == m || !(t.IsEnum || t.IsFixedStruct()) {
			continue
		}

		if !slices.Contains(deps, t) {
			deps = append(deps, t)
		}
	}

	return deps
}
