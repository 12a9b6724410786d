package extract

import (
	"fmt"

	"github.com/born-ml/graphir/internal/tensor"
	"github.com/born-ml/graphir/internal/tfgraph"
)

// MissingAttrError is returned when a required attribute is absent or has the wrong kind.
type MissingAttrError struct {
	Name string
	Want tfgraph.AttrKind
	Got  tfgraph.AttrKind // AttrUnset when absent
}

// Error implements the error interface.
func (e *MissingAttrError) Error() string {
	if e.Got == tfgraph.AttrUnset {
		return fmt.Sprintf("missing attribute %q", e.Name)
	}
	return fmt.Sprintf("attribute %q is %s, want %s", e.Name, e.Got, e.Want)
}

func lookup(node *tfgraph.NodeDef, name string, kind tfgraph.AttrKind) (*tfgraph.AttrValue, error) {
	v, ok := node.Attrs[name]
	if !ok || v == nil {
		return nil, &MissingAttrError{Name: name, Want: kind}
	}
	if v.Kind != kind {
		return nil, &MissingAttrError{Name: name, Want: kind, Got: v.Kind}
	}
	return v, nil
}

func has(node *tfgraph.NodeDef, name string) bool {
	v, ok := node.Attrs[name]
	return ok && v != nil && v.Kind != tfgraph.AttrUnset
}

// AttrTensor decodes a required tensor attribute.
func AttrTensor(node *tfgraph.NodeDef, name string) (*tensor.Descriptor, error) {
	v, err := lookup(node, name, tfgraph.AttrTensor)
	if err != nil {
		return nil, err
	}
	return tfgraph.DecodeTensor(v.Tensor)
}

// AttrType maps a required element-type attribute.
func AttrType(node *tfgraph.NodeDef, name string) (tensor.DataType, error) {
	v, err := lookup(node, name, tfgraph.AttrType)
	if err != nil {
		return tensor.Invalid, err
	}
	return tfgraph.ToDataType(v.Type)
}

// AttrShape decodes a shape attribute. A missing attribute reports an unknown rank.
func AttrShape(node *tfgraph.NodeDef, name string) (shape tensor.Shape, unknownRank bool, err error) {
	if !has(node, name) {
		return nil, true, nil
	}
	v, err := lookup(node, name, tfgraph.AttrShape)
	if err != nil {
		return nil, false, err
	}
	shape, unknownRank = tfgraph.DecodeShape(v.Shape)
	return shape, unknownRank, nil
}

// AttrInt returns an int attribute or def when absent.
func AttrInt(node *tfgraph.NodeDef, name string, def int64) (int64, error) {
	if !has(node, name) {
		return def, nil
	}
	v, err := lookup(node, name, tfgraph.AttrInt)
	if err != nil {
		return 0, err
	}
	return v.I, nil
}

// AttrInts returns a list-of-int attribute or def when absent.
func AttrInts(node *tfgraph.NodeDef, name string, def []int64) ([]int64, error) {
	if !has(node, name) {
		return def, nil
	}
	v, err := lookup(node, name, tfgraph.AttrList)
	if err != nil {
		return nil, err
	}
	return append([]int64(nil), v.List.I...), nil
}

// AttrFloat returns a float attribute or def when absent.
func AttrFloat(node *tfgraph.NodeDef, name string, def float32) (float32, error) {
	if !has(node, name) {
		return def, nil
	}
	v, err := lookup(node, name, tfgraph.AttrFloat)
	if err != nil {
		return 0, err
	}
	return v.F, nil
}

// AttrBool returns a bool attribute or def when absent.
func AttrBool(node *tfgraph.NodeDef, name string, def bool) (bool, error) {
	if !has(node, name) {
		return def, nil
	}
	v, err := lookup(node, name, tfgraph.AttrBool)
	if err != nil {
		return false, err
	}
	return v.B, nil
}

// AttrString returns a string attribute or def when absent.
func AttrString(node *tfgraph.NodeDef, name, def string) (string, error) {
	if !has(node, name) {
		return def, nil
	}
	v, err := lookup(node, name, tfgraph.AttrString)
	if err != nil {
		return "", err
	}
	return string(v.S), nil
}

// AttrStrings returns a list-of-string attribute or def when absent.
func AttrStrings(node *tfgraph.NodeDef, name string, def []string) ([]string, error) {
	if !has(node, name) {
		return def, nil
	}
	v, err := lookup(node, name, tfgraph.AttrList)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(v.List.S))
	for i, s := range v.List.S {
		out[i] = string(s)
	}
	return out, nil
}

// ConvertAttr converts a raw attribute into an IR value without op-specific normalization.
// Tensors become descriptors, types become tensor.DataType and shapes become tensor.Shape
// (nil for unknown rank). Unsupported element types are kept as their raw tag.
//
//nolint:gocyclo,cyclop // One case per attribute kind.
func ConvertAttr(v *tfgraph.AttrValue) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch v.Kind {
	case tfgraph.AttrString:
		return string(v.S), nil
	case tfgraph.AttrInt:
		return v.I, nil
	case tfgraph.AttrFloat:
		return v.F, nil
	case tfgraph.AttrBool:
		return v.B, nil
	case tfgraph.AttrType:
		return convertType(v.Type), nil
	case tfgraph.AttrShape:
		shape, _ := tfgraph.DecodeShape(v.Shape)
		return shape, nil
	case tfgraph.AttrTensor:
		return tfgraph.DecodeTensor(v.Tensor)
	case tfgraph.AttrPlaceholder:
		return "$" + v.Placeholder, nil
	case tfgraph.AttrFunc:
		return v.Func, nil
	case tfgraph.AttrList:
		return convertList(v.List)
	default:
		return nil, nil
	}
}

func convertType(tag int32) any {
	dt, err := tfgraph.ToDataType(tag)
	if err != nil {
		return tag
	}
	return dt
}

// convertList returns the first non-empty list member, or an empty []any.
//
//nolint:gocyclo,cyclop // One case per list member.
func convertList(l *tfgraph.ListValue) (any, error) {
	switch {
	case l == nil:
		return []any{}, nil
	case len(l.S) > 0:
		out := make([]string, len(l.S))
		for i, s := range l.S {
			out[i] = string(s)
		}
		return out, nil
	case len(l.I) > 0:
		return append([]int64(nil), l.I...), nil
	case len(l.F) > 0:
		return append([]float32(nil), l.F...), nil
	case len(l.B) > 0:
		return append([]bool(nil), l.B...), nil
	case len(l.Type) > 0:
		out := make([]any, len(l.Type))
		for i, tag := range l.Type {
			out[i] = convertType(tag)
		}
		return out, nil
	case len(l.Shape) > 0:
		out := make([]tensor.Shape, len(l.Shape))
		for i, s := range l.Shape {
			out[i], _ = tfgraph.DecodeShape(s)
		}
		return out, nil
	case len(l.Tensor) > 0:
		out := make([]*tensor.Descriptor, len(l.Tensor))
		for i, t := range l.Tensor {
			d, err := tfgraph.DecodeTensor(t)
			if err != nil {
				return nil, err
			}
			out[i] = d
		}
		return out, nil
	case len(l.Func) > 0:
		return append([]string(nil), l.Func...), nil
	default:
		return []any{}, nil
	}
}
