package olist

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	arrowcsv "github.com/apache/arrow/go/v18/arrow/csv"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/apache/arrow/go/v18/parquet"
	"github.com/apache/arrow/go/v18/parquet/compress"
	"github.com/apache/arrow/go/v18/parquet/file"
	"github.com/apache/arrow/go/v18/parquet/pqarrow"
	"github.com/willbeason/review-risk/pkg/tables"
)

const batchSize = 1 << 20

var ErrMissingModelingData = errors.New("modeling data not found")

// SaveModelingData writes record to path, creating parent directories. A
// .parquet extension writes Parquet; anything else writes CSV with a header
// row and nulls as empty cells.
func SaveModelingData(path string, record arrow.Record) error {
	err := os.MkdirAll(filepath.Dir(path), os.ModePerm)
	if err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	if filepath.Ext(path) == tables.ParquetExt {
		return writeParquet(path, record)
	}
	return writeCSV(path, record)
}

func writeParquet(path string, record arrow.Record) error {
	outFile, err := os.Create(path)
	if err != nil {
		return err
	}
	// Don't close outFile; parquet handles closing it.
	writer, err := pqarrow.NewFileWriter(
		record.Schema(),
		outFile,
		parquet.NewWriterProperties(parquet.WithCompression(compress.Codecs.Gzip),
			parquet.WithCompressionLevel(gzip.BestCompression)),
		pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema()),
	)
	if err != nil {
		_ = outFile.Close()
		return fmt.Errorf("creating parquet writer: %w", err)
	}

	err = writer.Write(record)
	if err != nil {
		_ = writer.Close()
		return fmt.Errorf("writing records: %w", err)
	}
	return writer.Close()
}

func writeCSV(path string, record arrow.Record) (err error) {
	outFile, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		closeErr := outFile.Close()
		if err == nil {
			err = closeErr
		}
	}()

	writer := arrowcsv.NewWriter(outFile, record.Schema(),
		arrowcsv.WithHeader(true),
		arrowcsv.WithNullWriter(""),
	)
	err = writer.Write(record)
	if err != nil {
		return fmt.Errorf("writing records: %w", err)
	}
	err = writer.Flush()
	if err != nil {
		return err
	}
	return writer.Error()
}

// LoadModelingData reads a table written by SaveModelingData, choosing the
// format from the extension the same way.
func LoadModelingData(ctx context.Context, path string) (arrow.Record, error) {
	_, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrMissingModelingData, path)
	} else if err != nil {
		return nil, err
	}

	allocator := memory.NewGoAllocator()
	if filepath.Ext(path) == tables.ParquetExt {
		return readParquet(ctx, path, allocator)
	}
	return readModelingCSV(path, allocator)
}

func readParquet(ctx context.Context, path string, allocator memory.Allocator) (arrow.Record, error) {
	inFileReader, err := file.OpenParquetFile(path, false)
	if err != nil {
		return nil, fmt.Errorf("opening parquet file %q: %w", path, err)
	}
	defer func() {
		_ = inFileReader.Close()
	}()

	inReader, err := pqarrow.NewFileReader(inFileReader,
		pqarrow.ArrowReadProperties{BatchSize: batchSize},
		allocator,
	)
	if err != nil {
		return nil, fmt.Errorf("creating pqarrow FileReader: %w", err)
	}

	schema, err := inReader.Schema()
	if err != nil {
		return nil, fmt.Errorf("getting schema: %w", err)
	}

	recordReader, err := inReader.GetRecordReader(ctx, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("getting record reader: %w", err)
	}
	defer recordReader.Release()

	var batches []arrow.Record
	defer func() {
		for _, batch := range batches {
			batch.Release()
		}
	}()

	var record arrow.Record
	for record, err = recordReader.Read(); err == nil; record, err = recordReader.Read() {
		record.Retain()
		batches = append(batches, record)
	}
	if !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading records: %w", err)
	}

	record, err = concatRecords(allocator, schema, batches)
	if err != nil {
		return nil, err
	}
	return withMetadata(record, fileMetadata(inFileReader)), nil
}

// arrowSchemaKey is where pqarrow serializes the arrow schema; it is not
// table metadata.
const arrowSchemaKey = "ARROW:schema"

// fileMetadata returns the key-value metadata the writer stored with the
// schema, such as the run id.
func fileMetadata(reader *file.Reader) arrow.Metadata {
	kv := reader.MetaData().KeyValueMetadata()
	builder := tables.NewMetadataBuilder()
	keys, values := kv.Keys(), kv.Values()
	for i, key := range keys {
		if key == arrowSchemaKey {
			continue
		}
		builder.Add(key, values[i])
	}
	return builder.Build()
}

// withMetadata returns record under a schema carrying md, releasing record.
func withMetadata(record arrow.Record, md arrow.Metadata) arrow.Record {
	defer record.Release()
	schema := arrow.NewSchema(record.Schema().Fields(), &md)
	return array.NewRecord(schema, record.Columns(), record.NumRows())
}

// concatRecords joins record batches into one record. The batches are not
// released.
func concatRecords(allocator memory.Allocator, schema *arrow.Schema, batches []arrow.Record) (arrow.Record, error) {
	switch len(batches) {
	case 0:
		builder := array.NewRecordBuilder(allocator, schema)
		defer builder.Release()
		return builder.NewRecord(), nil
	case 1:
		batches[0].Retain()
		return batches[0], nil
	}

	var rows int64
	for _, batch := range batches {
		rows += batch.NumRows()
	}

	cols := make([]arrow.Array, len(schema.Fields()))
	defer func() {
		for _, col := range cols {
			if col != nil {
				col.Release()
			}
		}
	}()
	for i := range cols {
		parts := make([]arrow.Array, len(batches))
		for j, batch := range batches {
			parts[j] = batch.Column(i)
		}
		col, err := array.Concatenate(parts, allocator)
		if err != nil {
			return nil, fmt.Errorf("concatenating %s: %w", schema.Field(i).Name, err)
		}
		cols[i] = col
	}
	return array.NewRecord(schema, cols, rows), nil
}

// readModelingCSV decodes a CSV modeling table back to its column types.
// Columns that are never null in the modeling schema have their empty cells
// restored to "" or 0.
func readModelingCSV(path string, allocator memory.Allocator) (arrow.Record, error) {
	inFile, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = inFile.Close()
	}()

	table, err := readCSV(tables.ModelingName, inFile, allocator)
	if err != nil {
		return nil, err
	}
	defer table.Release()

	rows := identity(table.NumRows())
	frame := NewFrame(allocator, table.NumRows())
	defer frame.Release()

	record := table.Record()
	for i, field := range record.Schema().Fields() {
		values, _ := record.Column(i).(*array.String)
		target := tables.ModelingField(field.Name)
		col, err := convertColumn(allocator, target.Type, values, rows)
		if err != nil {
			return nil, fmt.Errorf("converting %s: %w", field.Name, err)
		}
		if !target.Nullable {
			filled := fillNulls(allocator, col)
			col.Release()
			col = filled
		}
		frame.Add(field.Name, col)
	}

	return frame.Record(nil), nil
}
