package tfgraph

// TensorFlow GraphDef protobuf data structures (hand-written, decoded field by field).

// GraphDef is a serialized TensorFlow computation graph.
type GraphDef struct {
	Nodes    []NodeDef  // Nodes in declaration order
	Versions VersionDef // Producer / consumer versions
}

// VersionDef records the GraphDef versions.
type VersionDef struct {
	Producer    int32
	MinConsumer int32
}

// NodeDef is a single raw node of the graph.
type NodeDef struct {
	Name   string                // Unique node name
	Op     string                // Operator type (e.g. "Const", "MatMul")
	Inputs []string              // Input references: "name", "name:idx" or "^name"
	Device string                // Requested device, may be empty
	Attrs  map[string]*AttrValue // Operator attributes
}

// AttrKind identifies which AttrValue field is set.
type AttrKind int

// Attribute kinds, in AttrValue oneof order.
const (
	AttrUnset AttrKind = iota
	AttrList
	AttrString
	AttrInt
	AttrFloat
	AttrBool
	AttrType
	AttrShape
	AttrTensor
	AttrPlaceholder
	AttrFunc
)

// String returns the oneof field name for the kind.
func (k AttrKind) String() string {
	switch k {
	case AttrList:
		return "list"
	case AttrString:
		return "s"
	case AttrInt:
		return "i"
	case AttrFloat:
		return "f"
	case AttrBool:
		return "b"
	case AttrType:
		return "type"
	case AttrShape:
		return "shape"
	case AttrTensor:
		return "tensor"
	case AttrPlaceholder:
		return "placeholder"
	case AttrFunc:
		return "func"
	default:
		return "unset"
	}
}

// AttrValue is a node attribute. Only the field selected by Kind is meaningful.
type AttrValue struct {
	Kind        AttrKind
	S           []byte            // STRING value
	I           int64             // INT value
	F           float32           // FLOAT value
	B           bool              // BOOL value
	Type        int32             // DataType enum value
	Shape       *TensorShapeProto // SHAPE value
	Tensor      *TensorProto      // TENSOR value
	Placeholder string            // Function attribute placeholder
	Func        string            // Function name
	List        *ListValue        // LIST value
}

// ListValue holds list-valued attributes.
type ListValue struct {
	S      [][]byte
	I      []int64
	F      []float32
	B      []bool
	Type   []int32
	Shape  []*TensorShapeProto
	Tensor []*TensorProto
	Func   []string
}

// TensorProto is a serialized tensor payload.
type TensorProto struct {
	DType         int32             // DataType enum value
	Shape         *TensorShapeProto // Tensor shape
	VersionNumber int32             // Payload version
	TensorContent []byte            // Packed little-endian content
	HalfVal       []int32           // float16 / bfloat16 bit patterns
	FloatVal      []float32         // DT_FLOAT values
	DoubleVal     []float64         // DT_DOUBLE values
	IntVal        []int32           // DT_INT32, DT_INT16, DT_INT8, DT_UINT8, DT_UINT16 values
	StringVal     [][]byte          // DT_STRING values
	Int64Val      []int64           // DT_INT64 values
	BoolVal       []bool            // DT_BOOL values
	Uint32Val     []uint32          // DT_UINT32 values
	Uint64Val     []uint64          // DT_UINT64 values
}

// TensorShapeProto describes tensor dimensions.
type TensorShapeProto struct {
	Dims        []Dim
	UnknownRank bool
}

// Dim is a single dimension; Size is -1 when unknown.
type Dim struct {
	Size int64
	Name string
}
