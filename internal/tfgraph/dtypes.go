package tfgraph

import (
	"sort"

	"github.com/born-ml/graphir/internal/tensor"
)

// DataTypeTableVersion identifies the revision of the element-type table.
// Bump it whenever a TensorFlow tag is added, removed or remapped.
const DataTypeTableVersion = 1

// TensorFlow DataType enum values (types.proto).
const (
	DTInvalid    = 0
	DTFloat      = 1
	DTDouble     = 2
	DTInt32      = 3
	DTUint8      = 4
	DTInt16      = 5
	DTInt8       = 6
	DTString     = 7
	DTComplex64  = 8
	DTInt64      = 9
	DTBool       = 10
	DTQint8      = 11
	DTQuint8     = 12
	DTQint32     = 13
	DTBfloat16   = 14
	DTQint16     = 15
	DTQuint16    = 16
	DTUint16     = 17
	DTComplex128 = 18
	DTHalf       = 19
	DTResource   = 20
	DTVariant    = 21
	DTUint32     = 22
	DTUint64     = 23

	// dtRefOffset is added to a DataType for reference ("_ref") types.
	dtRefOffset = 100
)

// DataTypeEntry is one row of the element-type table.
type DataTypeEntry struct {
	Tag      int32
	Name     string
	Internal tensor.DataType
}

// dataTypeTable maps TensorFlow tags to internal element types.
// Tags absent from the table are unsupported.
var dataTypeTable = map[int32]DataTypeEntry{
	DTFloat:    {DTFloat, "DT_FLOAT", tensor.Float32},
	DTDouble:   {DTDouble, "DT_DOUBLE", tensor.Float64},
	DTInt32:    {DTInt32, "DT_INT32", tensor.Int32},
	DTUint8:    {DTUint8, "DT_UINT8", tensor.Uint8},
	DTInt16:    {DTInt16, "DT_INT16", tensor.Int16},
	DTInt8:     {DTInt8, "DT_INT8", tensor.Int8},
	DTString:   {DTString, "DT_STRING", tensor.String},
	DTInt64:    {DTInt64, "DT_INT64", tensor.Int64},
	DTBool:     {DTBool, "DT_BOOL", tensor.Bool},
	DTBfloat16: {DTBfloat16, "DT_BFLOAT16", tensor.BFloat16},
	DTUint16:   {DTUint16, "DT_UINT16", tensor.Uint16},
	DTHalf:     {DTHalf, "DT_HALF", tensor.Float16},
	DTUint32:   {DTUint32, "DT_UINT32", tensor.Uint32},
	DTUint64:   {DTUint64, "DT_UINT64", tensor.Uint64},
}

// unsupportedNames names known tags that have no internal type, for error messages.
var unsupportedNames = map[int32]string{
	DTInvalid:    "DT_INVALID",
	DTComplex64:  "DT_COMPLEX64",
	DTQint8:      "DT_QINT8",
	DTQuint8:     "DT_QUINT8",
	DTQint32:     "DT_QINT32",
	DTQint16:     "DT_QINT16",
	DTQuint16:    "DT_QUINT16",
	DTComplex128: "DT_COMPLEX128",
	DTResource:   "DT_RESOURCE",
	DTVariant:    "DT_VARIANT",
}

// ToDataType maps a TensorFlow tag to the internal element type.
// Reference types ("_ref") resolve to their base type.
func ToDataType(tag int32) (tensor.DataType, error) {
	base := tag
	if base > dtRefOffset {
		base -= dtRefOffset
	}
	if entry, ok := dataTypeTable[base]; ok {
		return entry.Internal, nil
	}
	return tensor.Invalid, &tensor.UnsupportedTypeError{Tag: tag, Name: DataTypeName(tag)}
}

// DataTypeName returns the TensorFlow name of a tag, or "" if unknown.
func DataTypeName(tag int32) string {
	suffix := ""
	if tag > dtRefOffset {
		tag -= dtRefOffset
		suffix = "_REF"
	}
	if entry, ok := dataTypeTable[tag]; ok {
		return entry.Name + suffix
	}
	if name, ok := unsupportedNames[tag]; ok {
		return name + suffix
	}
	return ""
}

// SupportedDataTypes returns the table rows sorted by tag.
func SupportedDataTypes() []DataTypeEntry {
	rows := make([]DataTypeEntry, 0, len(dataTypeTable))
	for _, e := range dataTypeTable {
		rows = append(rows, e)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Tag < rows[j].Tag })
	return rows
}
