package analyze

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"fbsgen/internal/descriptor"
)

const (
	tagKey     = "fbs"
	metaTagKey = "fbsmeta"
)

// fieldTag is the parsed form of `fbs:"name,order=N,required,deprecated,union=Shape"`.
type fieldTag struct {
	skip       bool
	name       string
	order      int
	orderSet   bool
	required   bool
	deprecated bool
	union      string
	metadata   []descriptor.Metadata
}

func parseFieldTag(tag reflect.StructTag) (fieldTag, error) {
	var ft fieldTag

	raw, ok := tag.Lookup(tagKey)
	if ok && raw == "-" {
		ft.skip = true
		return ft, nil
	}

	if ok {
		parts := strings.Split(raw, ",")
		ft.name = strings.TrimSpace(parts[0])

		for _, opt := range parts[1:] {
			key, value, _ := strings.Cut(strings.TrimSpace(opt), "=")

			switch key {
			case "":
			case "required":
				ft.required = true
			case "deprecated":
				ft.deprecated = true
			case "order":
				n, err := strconv.Atoi(value)
				if err != nil {
					return ft, errors.Wrapf(descriptor.ErrInvalidDescriptor, "order %q is not an integer", value)
				}

				ft.order = n
				ft.orderSet = true
			case "union":
				if value == "" {
					return ft, errors.Wrap(descriptor.ErrInvalidDescriptor, "union option needs a type name")
				}

				ft.union = value
			default:
				return ft, errors.WithHint(
					errors.Wrapf(descriptor.ErrInvalidDescriptor, "unknown %s tag option %q", tagKey, key),
					"valid options are order=N, required, deprecated and union=Type")
			}
		}
	}

	if raw, ok := tag.Lookup(metaTagKey); ok {
		md, err := descriptor.ParseMetadataList(raw)
		if err != nil {
			return ft, err
		}

		ft.metadata = md
	}

	return ft, nil
}

// options converts the tag into field options. The union option is added
// by the caller once the reference is resolved.
func (ft fieldTag) options() []descriptor.FieldOption {
	var opts []descriptor.FieldOption

	if ft.orderSet {
		opts = append(opts, descriptor.WithOrder(ft.order))
	}

	if ft.required {
		opts = append(opts, descriptor.Required())
	}

	if ft.deprecated {
		opts = append(opts, descriptor.Deprecated())
	}

	if len(ft.metadata) > 0 {
		opts = append(opts, descriptor.WithMetadata(ft.metadata...))
	}

	return opts
}
