package olist

import (
	"fmt"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/willbeason/review-risk/pkg/tables"
)

// Frame is a table under assembly: equal-length arrow columns that are
// appended to and replaced as joins proceed. Column names may repeat until
// Record is called.
type Frame struct {
	mem    memory.Allocator
	rows   int
	fields []arrow.Field
	cols   []arrow.Array
}

func NewFrame(mem memory.Allocator, rows int) *Frame {
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	return &Frame{mem: mem, rows: rows}
}

func (f *Frame) NumRows() int {
	return f.rows
}

func (f *Frame) NumCols() int {
	return len(f.cols)
}

func (f *Frame) Names() []string {
	names := make([]string, len(f.fields))
	for i, field := range f.fields {
		names[i] = field.Name
	}
	return names
}

func (f *Frame) find(name string) int {
	for i, field := range f.fields {
		if field.Name == name {
			return i
		}
	}
	return -1
}

// Column returns the first column with the given name.
func (f *Frame) Column(name string) (arrow.Array, bool) {
	i := f.find(name)
	if i < 0 {
		return nil, false
	}
	return f.cols[i], true
}

// Strings returns the first column with the given name if it holds strings.
func (f *Frame) Strings(name string) (*array.String, bool) {
	col, ok := f.Column(name)
	if !ok {
		return nil, false
	}
	values, ok := col.(*array.String)
	return values, ok
}

// Int64s returns the first column with the given name if it holds int64s.
func (f *Frame) Int64s(name string) (*array.Int64, bool) {
	col, ok := f.Column(name)
	if !ok {
		return nil, false
	}
	values, ok := col.(*array.Int64)
	return values, ok
}

func (f *Frame) field(name string, arr arrow.Array) arrow.Field {
	field := tables.ModelingField(name)
	if !arrow.TypeEqual(field.Type, arr.DataType()) {
		field = arrow.Field{Name: name, Type: arr.DataType(), Nullable: true}
	}
	if arr.NullN() > 0 {
		field.Nullable = true
	}
	return field
}

// Add appends a column. The Frame takes ownership of arr.
func (f *Frame) Add(name string, arr arrow.Array) {
	if arr.Len() != f.rows {
		panic(fmt.Sprintf("column %s has %d rows, frame has %d", name, arr.Len(), f.rows))
	}
	f.fields = append(f.fields, f.field(name, arr))
	f.cols = append(f.cols, arr)
}

// Replace swaps the first column named name for arr, or adds it if there is
// no such column. The Frame takes ownership of arr.
func (f *Frame) Replace(name string, arr arrow.Array) {
	i := f.find(name)
	if i < 0 {
		f.Add(name, arr)
		return
	}
	if arr.Len() != f.rows {
		panic(fmt.Sprintf("column %s has %d rows, frame has %d", name, arr.Len(), f.rows))
	}
	f.cols[i].Release()
	f.fields[i] = f.field(name, arr)
	f.cols[i] = arr
}

// Record builds the finished table. Only the first of any columns sharing a
// name is kept.
func (f *Frame) Record(metadata *arrow.Metadata) arrow.Record {
	seen := make(map[string]bool, len(f.fields))
	fields := make([]arrow.Field, 0, len(f.fields))
	cols := make([]arrow.Array, 0, len(f.cols))
	for i, field := range f.fields {
		if seen[field.Name] {
			continue
		}
		seen[field.Name] = true
		fields = append(fields, field)
		cols = append(cols, f.cols[i])
	}
	return array.NewRecord(arrow.NewSchema(fields, metadata), cols, int64(f.rows))
}

func (f *Frame) Release() {
	for _, col := range f.cols {
		col.Release()
	}
	f.cols = nil
	f.fields = nil
}
