package olist

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/willbeason/review-risk/pkg/profile"
	"github.com/willbeason/review-risk/pkg/tables"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

type TableCount struct {
	Name string
	Rows int
}

type ColumnCount struct {
	Name  string
	Count int
}

type ColumnProfile struct {
	Name  string
	Field profile.Field
}

// Summary describes one assembly run. It is advisory; nothing reads it back.
type Summary struct {
	RawCounts      []TableCount
	ReviewedOrders int
	Rows           int
	Columns        int
	// Targets counts rows per target value.
	Targets map[int64]int
	// Missing lists, in column order, the columns holding nulls.
	Missing  []ColumnCount
	Profiles []ColumnProfile
}

// Summarize computes the statistics of a finished modeling table.
func Summarize(raw RawTables, files tables.Files, record arrow.Record, withProfiles bool) (*Summary, error) {
	s := &Summary{
		ReviewedOrders: int(record.NumRows()),
		Rows:           int(record.NumRows()),
		Columns:        int(record.NumCols()),
		Targets:        make(map[int64]int),
	}

	for _, f := range files {
		if t, ok := raw[f.Table]; ok {
			s.RawCounts = append(s.RawCounts, TableCount{Name: f.Table, Rows: t.NumRows()})
		}
	}

	for i, field := range record.Schema().Fields() {
		col := record.Column(i)
		if n := col.NullN(); n > 0 {
			s.Missing = append(s.Missing, ColumnCount{Name: field.Name, Count: n})
		}

		if field.Name == tables.Target {
			targets, ok := col.(*array.Int64)
			if !ok {
				return nil, fmt.Errorf("target column is %s, not int64", col.DataType())
			}
			for j := 0; j < targets.Len(); j++ {
				if targets.IsValid(j) {
					s.Targets[targets.Value(j)]++
				}
			}
		}

		if withProfiles {
			f, err := profile.Column(col)
			if err != nil {
				return nil, fmt.Errorf("profiling %s: %w", field.Name, err)
			}
			s.Profiles = append(s.Profiles, ColumnProfile{Name: field.Name, Field: f})
		}
	}

	return s, nil
}

// Write prints the summary for a person reading the console.
func (s *Summary) Write(w io.Writer) error {
	p := message.NewPrinter(language.English)

	var b strings.Builder
	b.WriteString("Raw table row counts:\n")
	for _, c := range s.RawCounts {
		b.WriteString(p.Sprintf("  %s: %d\n", c.Name, c.Rows))
	}
	b.WriteString(p.Sprintf("\nOrders with review (target defined): %d\n", s.ReviewedOrders))
	b.WriteString(p.Sprintf("\nFinal modeling dataframe: %d rows, %d columns\n", s.Rows, s.Columns))

	keys := make([]int64, 0, len(s.Targets))
	for k := range s.Targets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	targets := make([]string, len(keys))
	for i, k := range keys {
		targets[i] = fmt.Sprintf("%d: %d", k, s.Targets[k])
	}
	b.WriteString(fmt.Sprintf("Target distribution: {%s}\n", strings.Join(targets, ", ")))

	missing := make([]string, len(s.Missing))
	for i, c := range s.Missing {
		missing[i] = fmt.Sprintf("%s: %d", c.Name, c.Count)
	}
	b.WriteString(fmt.Sprintf("Missing key cols: {%s}\n", strings.Join(missing, ", ")))

	if len(s.Profiles) > 0 {
		b.WriteString("\nColumn profiles:\n")
		for _, c := range s.Profiles {
			b.WriteString(fmt.Sprintf("  %s;%s\n", c.Name, c.Field))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
