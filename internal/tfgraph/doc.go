// Package tfgraph decodes TensorFlow GraphDef protocol buffers into raw nodes.
//
// The decoder is hand-structured over google.golang.org/protobuf/encoding/protowire, so no generated
// TensorFlow protos are required. Only the fields needed for graph extraction are retained:
//   - GraphDef: node list and versions
//   - NodeDef: name, op, inputs, device and attributes
//   - AttrValue: scalars, types, shapes, tensors, lists and function names
//   - TensorProto: dtype, shape, packed content and every typed value list
//
// The package also owns the element-type enumeration table (see DataTypeTable) and the conversion of
// TensorProto payloads into tensor.Descriptor values (see DecodeTensor).
//
// Example usage:
//
//	g, err := tfgraph.ParseFile("frozen_graph.pb")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, node := range g.Nodes {
//	    fmt.Printf("%s (%s) <- %v\n", node.Name, node.Op, node.Inputs)
//	}
package tfgraph
