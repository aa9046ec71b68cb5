package profile

import (
	"fmt"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
)

// Column profiles every value of an arrow column. Nulls are skipped.
func Column(arr arrow.Array) (Field, error) {
	var f Field = &EmptyField{}
	for i := 0; i < arr.Len(); i++ {
		if arr.IsNull(i) {
			continue
		}

		var obj any
		switch a := arr.(type) {
		case *array.String:
			obj = a.Value(i)
		case *array.Int64:
			obj = float64(a.Value(i))
		case *array.Float64:
			obj = a.Value(i)
		case *array.Timestamp:
			unit := a.DataType().(*arrow.TimestampType).Unit
			obj = a.Value(i).ToTime(unit)
		default:
			return nil, fmt.Errorf("unsupported column type %s", arr.DataType())
		}

		var err error
		f, err = f.Add(obj)
		if err != nil {
			return nil, err
		}
	}
	return f, nil
}
