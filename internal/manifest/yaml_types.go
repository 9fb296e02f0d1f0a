package manifest

import (
	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"fbsgen/internal/common"
	"fbsgen/internal/descriptor"
)

// --- StringOrArray YAML methods ---

// UnmarshalYAML implements custom YAML unmarshaling for StringOrArray.
// Accepts either a single string or an array of strings.
func (s *StringOrArray) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var str string

		if err := node.Decode(&str); err != nil {
			return err
		}

		if str != "" {
			*s = StringOrArray{str}
		} else {
			*s = StringOrArray{}
		}

		return nil

	case yaml.SequenceNode:
		var arr []string

		if err := node.Decode(&arr); err != nil {
			return err
		}

		*s = arr

		return nil

	default:
		return errors.Newf("line %d: expected string or array", node.Line)
	}
}

// MarshalYAML outputs a single string if length is 1, otherwise an array.
func (s StringOrArray) MarshalYAML() (any, error) {
	if common.IsSingle(s) {
		return s[0], nil
	}

	return []string(s), nil
}

// --- EnumValues YAML methods ---

// UnmarshalYAML implements custom YAML unmarshaling for EnumValues.
// Accepts:
//   - Mapping: {Red: 1, Green: 2}
//   - List: [Red, Green, {Blue: 8}, Black]
func (e *EnumValues) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.MappingNode:
		values := make(EnumValues, 0, len(node.Content)/2)

		for i := 0; i+1 < len(node.Content); i += 2 {
			v, err := decodeEnumValue(node.Content[i], node.Content[i+1])
			if err != nil {
				return err
			}

			values = append(values, v)
		}

		*e = values

		return nil

	case yaml.SequenceNode:
		values := make(EnumValues, 0, len(node.Content))
		next := int64(0)

		for _, item := range node.Content {
			switch item.Kind {
			case yaml.ScalarNode:
				values = append(values, EnumValue{Name: item.Value, Value: next})

			case yaml.MappingNode:
				if len(item.Content) != 2 {
					return errors.Newf("line %d: enum value mapping must have exactly one entry", item.Line)
				}

				v, err := decodeEnumValue(item.Content[0], item.Content[1])
				if err != nil {
					return err
				}

				values = append(values, v)

			default:
				return errors.Newf("line %d: expected enum name or {name: value}", item.Line)
			}

			next = values[len(values)-1].Value + 1
		}

		*e = values

		return nil

	default:
		return errors.Newf("line %d: expected mapping or list of enum values", node.Line)
	}
}

func decodeEnumValue(key, value *yaml.Node) (EnumValue, error) {
	var n int64
	if err := value.Decode(&n); err != nil {
		var u uint64
		if uerr := value.Decode(&u); uerr != nil {
			return EnumValue{}, errors.Wrapf(err, "line %d: enum value %s", value.Line, key.Value)
		}

		n = int64(u)
	}

	return EnumValue{Name: key.Value, Value: n}, nil
}

// --- MetadataList YAML methods ---

// UnmarshalYAML implements custom YAML unmarshaling for MetadataList.
// Accepts:
//   - String: "key;priority=1;doc='text'"
//   - Mapping: {key: null, priority: 1, doc: text}
//   - List of strings and single-entry mappings: [key, {priority: 1}]
func (m *MetadataList) UnmarshalYAML(node *yaml.Node) error {
	var out MetadataList

	if err := appendMetadata(&out, node); err != nil {
		return err
	}

	*m = out

	return nil
}

func appendMetadata(out *MetadataList, node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		md, err := descriptor.ParseMetadataList(node.Value)
		if err != nil {
			return errors.Wrapf(err, "line %d", node.Line)
		}

		for _, e := range md {
			*out = append(*out, MetadataEntry{Name: e.Name, Value: e.Value})
		}

		return nil

	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			value, err := scalarValue(node.Content[i+1])
			if err != nil {
				return err
			}

			*out = append(*out, MetadataEntry{Name: node.Content[i].Value, Value: value})
		}

		return nil

	case yaml.SequenceNode:
		for _, item := range node.Content {
			if err := appendMetadata(out, item); err != nil {
				return err
			}
		}

		return nil

	default:
		return errors.Newf("line %d: expected metadata string, mapping or list", node.Line)
	}
}

// scalarValue types a YAML scalar as int64, bool or string; null is a flag.
func scalarValue(node *yaml.Node) (any, error) {
	if node.Kind != yaml.ScalarNode {
		return nil, errors.Newf("line %d: metadata value must be a scalar", node.Line)
	}

	switch node.Tag {
	case "!!null":
		return nil, nil
	case "!!int":
		var n int64
		if err := node.Decode(&n); err != nil {
			return nil, errors.Wrapf(err, "line %d", node.Line)
		}

		return n, nil
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return nil, errors.Wrapf(err, "line %d", node.Line)
		}

		return b, nil
	default:
		return node.Value, nil
	}
}

// MarshalYAML outputs the mapping form.
func (m MetadataList) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}

	for _, e := range m {
		var value yaml.Node
		if err := value.Encode(e.Value); err != nil {
			return nil, err
		}

		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: e.Name}, &value)
	}

	return node, nil
}

// Descriptors converts the entries to descriptor metadata.
func (m MetadataList) Descriptors() []descriptor.Metadata {
	if len(m) == 0 {
		return nil
	}

	out := make([]descriptor.Metadata, 0, len(m))
	for _, e := range m {
		out = append(out, descriptor.Metadata{Name: e.Name, Value: e.Value, HasValue: e.Value != nil})
	}

	return out
}

// MarshalYAML outputs the mapping form.
func (e EnumValues) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}

	for _, v := range e {
		var value yaml.Node
		if err := value.Encode(v.Value); err != nil {
			return nil, err
		}

		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: v.Name}, &value)
	}

	return node, nil
}
