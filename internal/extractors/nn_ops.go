package extractors

import (
	"fmt"

	"github.com/born-ml/graphir/internal/extract"
	"github.com/born-ml/graphir/internal/tfgraph"
)

// nnOps are convolution and pooling ops.
func nnOps() []entry {
	return []entry{
		{"Conv2D", extractConv2D, true},
		{"MaxPool", pool("MaxPool"), true},
		{"AvgPool", pool("AvgPool"), true},
	}
}

// window reads a 4-element per-dimension attribute.
func window(node *tfgraph.NodeDef, name string, def []int64) ([]int64, error) {
	v, err := extract.AttrInts(node, name, def)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, &extract.MissingAttrError{Name: name, Want: tfgraph.AttrList}
	}
	if len(v) != 4 {
		return nil, fmt.Errorf("%s requires 4 %s, got %d", node.Op, name, len(v))
	}
	return v, nil
}

// layout reads padding and data_format, the attributes shared by convolutions and pools.
func layout(node *tfgraph.NodeDef, u *extract.Update) error {
	padding, err := extract.AttrString(node, "padding", "")
	if err != nil {
		return err
	}
	if err := validPadding(padding); err != nil {
		return err
	}
	format, err := extract.AttrString(node, "data_format", "NHWC")
	if err != nil {
		return err
	}
	if err := validDataFormat(format); err != nil {
		return err
	}
	u.Set("padding", padding).Set("data_format", format)
	return nil
}

func extractConv2D(node *tfgraph.NodeDef) (*extract.Update, error) {
	u, err := binary("Conv2D")(node)
	if err != nil {
		return nil, err
	}
	strides, err := window(node, "strides", nil)
	if err != nil {
		return nil, err
	}
	dilations, err := window(node, "dilations", []int64{1, 1, 1, 1})
	if err != nil {
		return nil, err
	}
	if err := layout(node, u); err != nil {
		return nil, err
	}
	u.Set("strides", strides).Set("dilations", dilations)

	if u.Attrs["padding"] == "EXPLICIT" {
		pads, err := extract.AttrInts(node, "explicit_paddings", nil)
		if err != nil {
			return nil, err
		}
		if len(pads) != 8 {
			return nil, fmt.Errorf("Conv2D EXPLICIT padding requires 8 explicit_paddings, got %d", len(pads))
		}
		u.Set("explicit_paddings", pads)
	}
	return u, nil
}

func pool(op string) extract.Func {
	return func(node *tfgraph.NodeDef) (*extract.Update, error) {
		u, err := unary(op)(node)
		if err != nil {
			return nil, err
		}
		ksize, err := window(node, "ksize", nil)
		if err != nil {
			return nil, err
		}
		strides, err := window(node, "strides", nil)
		if err != nil {
			return nil, err
		}
		if err := layout(node, u); err != nil {
			return nil, err
		}
		if u.Attrs["padding"] == "EXPLICIT" {
			return nil, fmt.Errorf("%s does not support EXPLICIT padding", node.Op)
		}
		return u.Set("ksize", ksize).Set("strides", strides), nil
	}
}
