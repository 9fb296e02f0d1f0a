package descriptor

import (
	"github.com/cockroachdb/errors"
)

// ErrInvalidDescriptor marks descriptors rejected at ingestion time.
var ErrInvalidDescriptor = errors.New("invalid descriptor")

// FieldDescriptor is the declarative input for one table or struct field.
type FieldDescriptor struct {
	Name string
	Type TypeRef

	// Order is the explicit position; meaningful only when OrderSet is true.
	Order    int
	OrderSet bool

	Required   bool
	Deprecated bool

	// Union references the union type this field serializes as.
	Union *TypeID

	Metadata []Metadata
}

// IsUnionField reports whether the field holds a union.
func (f *FieldDescriptor) IsUnionField() bool {
	return f.Union != nil
}

// FieldOption configures a FieldDescriptor built by NewField.
type FieldOption func(*FieldDescriptor) error

// NewField builds a field descriptor, failing on the first invalid option.
func NewField(name string, typ TypeRef, opts ...FieldOption) (FieldDescriptor, error) {
	f := FieldDescriptor{Name: name, Type: typ}
	if name == "" {
		return f, errors.Wrap(ErrInvalidDescriptor, "field name is empty")
	}

	for _, opt := range opts {
		if err := opt(&f); err != nil {
			return FieldDescriptor{}, errors.Wrapf(err, "field %q", name)
		}
	}

	return f, nil
}

// WithOrder sets an explicit order.
func WithOrder(order int) FieldOption {
	return func(f *FieldDescriptor) error {
		if order < 0 {
			return errors.Wrapf(ErrInvalidDescriptor, "negative order %d", order)
		}

		f.Order = order
		f.OrderSet = true

		return nil
	}
}

// Required marks the field as required.
func Required() FieldOption {
	return func(f *FieldDescriptor) error {
		f.Required = true
		return nil
	}
}

// Deprecated marks the field as deprecated.
func Deprecated() FieldOption {
	return func(f *FieldDescriptor) error {
		f.Deprecated = true
		return nil
	}
}

// UnionOf makes the field a union field of u. The union marker is checked
// here, so an invalid reference never reaches a descriptor set.
func UnionOf(u *TypeDescriptor) FieldOption {
	return func(f *FieldDescriptor) error {
		if u == nil {
			return errors.Wrap(ErrInvalidDescriptor, "union type is nil")
		}

		if !u.IsUnion() {
			return errors.WithHint(
				errors.Wrapf(ErrInvalidDescriptor, "union type %s is a %s, not a union", u.ID, u.Kind),
				"mark the referenced type with //fbs:union")
		}

		id := u.ID
		f.Union = &id

		return nil
	}
}

// WithUnionRef references a union by ID. Used by front-ends that see the
// reference before the union itself; Set.Validate checks the marker.
func WithUnionRef(id TypeID) FieldOption {
	return func(f *FieldDescriptor) error {
		if id.Name == "" {
			return errors.Wrap(ErrInvalidDescriptor, "union reference has no name")
		}

		f.Union = &id

		return nil
	}
}

// WithMetadata appends metadata entries, preserving order.
func WithMetadata(md ...Metadata) FieldOption {
	return func(f *FieldDescriptor) error {
		for _, m := range md {
			if err := m.validate(); err != nil {
				return err
			}
		}

		f.Metadata = append(f.Metadata, md...)

		return nil
	}
}
