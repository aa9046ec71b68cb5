package olist

import (
	"fmt"
	"time"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"
)

// identity returns the row mapping 0..n-1.
func identity(n int) []int {
	rows := make([]int, n)
	for i := range rows {
		rows[i] = i
	}
	return rows
}

// convertColumn gathers src at rows into a column of the given type. A row of
// -1, a null, or a value that does not parse becomes null.
func convertColumn(mem memory.Allocator, typ arrow.DataType, src *array.String, rows []int) (arrow.Array, error) {
	switch t := typ.(type) {
	case *arrow.StringType:
		b := array.NewStringBuilder(mem)
		defer b.Release()
		b.Reserve(len(rows))
		for _, row := range rows {
			if s, ok := value(src, row); ok {
				b.Append(s)
			} else {
				b.AppendNull()
			}
		}
		return b.NewArray(), nil
	case *arrow.Int64Type:
		b := array.NewInt64Builder(mem)
		defer b.Release()
		b.Reserve(len(rows))
		for _, row := range rows {
			s, _ := value(src, row)
			if n, ok := parseInt(s); ok {
				b.Append(n)
			} else {
				b.AppendNull()
			}
		}
		return b.NewArray(), nil
	case *arrow.Float64Type:
		b := array.NewFloat64Builder(mem)
		defer b.Release()
		b.Reserve(len(rows))
		for _, row := range rows {
			s, _ := value(src, row)
			if f, ok := parseFloat(s); ok {
				b.Append(f)
			} else {
				b.AppendNull()
			}
		}
		return b.NewArray(), nil
	case *arrow.TimestampType:
		b := array.NewTimestampBuilder(mem, t)
		defer b.Release()
		b.Reserve(len(rows))
		for _, row := range rows {
			s, _ := value(src, row)
			if ts, ok := parseTimestamp(s); ok {
				b.Append(toTimestamp(ts, t.Unit))
			} else {
				b.AppendNull()
			}
		}
		return b.NewArray(), nil
	default:
		return nil, fmt.Errorf("unsupported column type %s", typ)
	}
}

func toTimestamp(t time.Time, unit arrow.TimeUnit) arrow.Timestamp {
	switch unit {
	case arrow.Second:
		return arrow.Timestamp(t.Unix())
	case arrow.Millisecond:
		return arrow.Timestamp(t.UnixMilli())
	case arrow.Microsecond:
		return arrow.Timestamp(t.UnixMicro())
	default:
		return arrow.Timestamp(t.UnixNano())
	}
}

func stringColumn(mem memory.Allocator, values []string, valid []bool) arrow.Array {
	b := array.NewStringBuilder(mem)
	defer b.Release()
	b.AppendValues(values, valid)
	return b.NewArray()
}

func int64Column(mem memory.Allocator, values []int64, valid []bool) arrow.Array {
	b := array.NewInt64Builder(mem)
	defer b.Release()
	b.AppendValues(values, valid)
	return b.NewArray()
}

func float64Column(mem memory.Allocator, values []float64, valid []bool) arrow.Array {
	b := array.NewFloat64Builder(mem)
	defer b.Release()
	b.AppendValues(values, valid)
	return b.NewArray()
}

// fillNulls returns a copy of arr with nulls replaced by the zero value of its
// type: "" for strings, 0 for numbers. Other types are returned retained and
// unchanged.
func fillNulls(mem memory.Allocator, arr arrow.Array) arrow.Array {
	if arr.NullN() == 0 {
		arr.Retain()
		return arr
	}
	switch a := arr.(type) {
	case *array.String:
		values := make([]string, a.Len())
		for i := range values {
			if a.IsValid(i) {
				values[i] = a.Value(i)
			}
		}
		return stringColumn(mem, values, nil)
	case *array.Int64:
		values := make([]int64, a.Len())
		for i := range values {
			if a.IsValid(i) {
				values[i] = a.Value(i)
			}
		}
		return int64Column(mem, values, nil)
	case *array.Float64:
		values := make([]float64, a.Len())
		for i := range values {
			if a.IsValid(i) {
				values[i] = a.Value(i)
			}
		}
		return float64Column(mem, values, nil)
	default:
		arr.Retain()
		return arr
	}
}
