// Package profile describes the values held by a table column: the narrowest
// type that fits them, their range, and whether they look like an enum.
package profile

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// MaxEnum is the largest number of unique values to track before not trying to
// interpret the field as an enum.
const MaxEnum = 20

// Field accumulates the non-null values of one column. Adding a value may
// return a different Field when the first value reveals the column's kind.
type Field interface {
	Add(obj any) (Field, error)
	String() string
}

// EmptyField represents a column which has only held nulls so far.
type EmptyField struct{}

// Add turns the EmptyField into an appropriate field based on the passed type.
func (nf *EmptyField) Add(obj any) (Field, error) {
	var f Field
	switch obj.(type) {
	case nil:
		return nf, nil
	case float64:
		f = &NumberField{Seen: make(map[float64]int)}
	case string:
		f = &StringField{Seen: make(map[string]int)}
	case time.Time:
		f = &TimeField{}
	default:
		return nil, fmt.Errorf("unknown type %T added to %T", obj, nf)
	}
	return f.Add(obj)
}

func (nf *EmptyField) String() string {
	return "empty"
}

// A NumberField only holds numbers. Keeps track of the properties of the
// numbers passed in to determine the types of numbers used.
type NumberField struct {
	// Integral tracks if all instances of this field are integers.
	Integral bool

	Min, Max float64

	// Seen tracks the unique numbers passed to this field.
	// Stops collecting values after it contains more than MaxEnum entries.
	Seen map[float64]int
}

func (f *NumberField) Add(obj any) (Field, error) {
	switch o := obj.(type) {
	case nil:
		return f, nil
	case float64:
		if len(f.Seen) > 0 {
			f.Integral = f.Integral && isIntegral(o)
			f.Min = math.Min(f.Min, o)
			f.Max = math.Max(f.Max, o)
		} else {
			f.Integral = isIntegral(o)
			f.Min = o
			f.Max = o
		}

		if len(f.Seen) <= MaxEnum {
			f.Seen[o]++
		}
		return f, nil
	default:
		return nil, fmt.Errorf("unknown type %T added to %T", o, f)
	}
}

func isIntegral(f float64) bool {
	return math.Round(f) == f
}

// Type names the narrowest Go numeric type holding every value seen.
func (f *NumberField) Type() string {
	if !f.Integral {
		return "float64"
	}
	if f.Min < 0 {
		switch {
		case f.Min >= math.MinInt8 && f.Max <= math.MaxInt8:
			return "int8"
		case f.Min >= math.MinInt16 && f.Max <= math.MaxInt16:
			return "int16"
		case f.Min >= math.MinInt32 && f.Max <= math.MaxInt32:
			return "int32"
		default:
			return "int64"
		}
	}
	switch {
	case f.Max <= math.MaxUint8:
		return "uint8"
	case f.Max <= math.MaxUint16:
		return "uint16"
	case f.Max <= math.MaxUint32:
		return "uint32"
	default:
		return "uint64"
	}
}

func (f *NumberField) String() string {
	result := strings.Builder{}
	result.WriteString(f.Type())
	result.WriteString(";")
	if f.Integral {
		result.WriteString(fmt.Sprintf("%d;%d", int64(f.Min), int64(f.Max)))
	} else {
		result.WriteString(fmt.Sprintf("%f;%f", f.Min, f.Max))
	}

	if len(f.Seen) <= MaxEnum {
		keys := make([]float64, 0, len(f.Seen))
		for k := range f.Seen {
			keys = append(keys, k)
		}
		sort.Float64s(keys)
		for _, k := range keys {
			if f.Integral {
				result.WriteString(fmt.Sprintf(";%d:%d", int64(k), f.Seen[k]))
			} else {
				result.WriteString(fmt.Sprintf(";%f:%d", k, f.Seen[k]))
			}
		}
	}

	return result.String()
}

// A StringField only holds strings.
type StringField struct {
	// Seen attempts to determine if the field is actually an enum with a small
	// number of unique values.
	Seen map[string]int
}

func (f *StringField) Add(obj any) (Field, error) {
	switch o := obj.(type) {
	case nil:
		return f, nil
	case string:
		if len(f.Seen) <= MaxEnum {
			f.Seen[o]++
		}
		return f, nil
	default:
		return nil, fmt.Errorf("unknown type %T added to %T", o, f)
	}
}

// IsEnum reports whether few enough distinct values were seen to treat the
// column as categorical.
func (f *StringField) IsEnum() bool {
	return len(f.Seen) <= MaxEnum
}

func (f *StringField) String() string {
	if !f.IsEnum() {
		return "string"
	}

	keys := make([]string, 0, len(f.Seen))
	for k := range f.Seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := strings.Builder{}
	result.WriteString(fmt.Sprintf("enum;%d", len(f.Seen)))
	for _, k := range keys {
		result.WriteString(fmt.Sprintf(";%s:%d", k, f.Seen[k]))
	}
	return result.String()
}

// TimeField holds instants and tracks their range.
type TimeField struct {
	Min, Max time.Time
	Count    int
}

func (f *TimeField) Add(obj any) (Field, error) {
	switch o := obj.(type) {
	case nil:
		return f, nil
	case time.Time:
		if f.Count == 0 || o.Before(f.Min) {
			f.Min = o
		}
		if f.Count == 0 || o.After(f.Max) {
			f.Max = o
		}
		f.Count++
		return f, nil
	default:
		return nil, fmt.Errorf("unknown type %T added to %T", o, f)
	}
}

func (f *TimeField) String() string {
	return fmt.Sprintf("timestamp;%s;%s", f.Min.Format(time.RFC3339), f.Max.Format(time.RFC3339))
}
