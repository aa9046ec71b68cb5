// Package olist assembles the Olist e-commerce extracts into an order-level
// modeling table labelled with low-review risk.
package olist

import (
	"fmt"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
)

// Table is one raw extract. Every column of the source file is kept, in file
// order, as a nullable string column.
type Table struct {
	Name   string
	record arrow.Record
	index  map[string]int
}

func newTable(name string, record arrow.Record) *Table {
	index := make(map[string]int, record.NumCols())
	for i, field := range record.Schema().Fields() {
		if _, seen := index[field.Name]; !seen {
			index[field.Name] = i
		}
	}
	return &Table{Name: name, record: record, index: index}
}

func (t *Table) NumRows() int {
	return int(t.record.NumRows())
}

// Columns returns the column names in file order.
func (t *Table) Columns() []string {
	fields := t.record.Schema().Fields()
	names := make([]string, len(fields))
	for i, field := range fields {
		names[i] = field.Name
	}
	return names
}

func (t *Table) Has(column string) bool {
	_, ok := t.index[column]
	return ok
}

// Column returns the first column with the given name.
func (t *Table) Column(column string) (*array.String, bool) {
	i, ok := t.index[column]
	if !ok {
		return nil, false
	}
	values, ok := t.record.Column(i).(*array.String)
	return values, ok
}

// Require returns the named column or an ErrMissingColumn error.
func (t *Table) Require(column string) (*array.String, error) {
	values, ok := t.Column(column)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrMissingColumn, t.Name, column)
	}
	return values, nil
}

// Record exposes the underlying arrow record. It remains owned by the Table.
func (t *Table) Record() arrow.Record {
	return t.record
}

func (t *Table) Release() {
	if t.record != nil {
		t.record.Release()
		t.record = nil
	}
}

// RawTables maps logical table names to loaded extracts.
type RawTables map[string]*Table

func (rt RawTables) Release() {
	for _, t := range rt {
		t.Release()
	}
}

// value returns the string at row i, and false if it is null.
func value(values *array.String, i int) (string, bool) {
	if values == nil || i < 0 || values.IsNull(i) {
		return "", false
	}
	return values.Value(i), true
}
