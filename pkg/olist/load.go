package olist

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	arrowcsv "github.com/apache/arrow/go/v18/arrow/csv"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/vbauerster/mpb"
	"github.com/vbauerster/mpb/decor"
	"github.com/willbeason/bondsmith"
	"github.com/willbeason/review-risk/pkg/tables"
)

var (
	ErrMissingDirectory = errors.New("data directory not found")
	ErrMissingFile      = errors.New("expected CSV not found")
	ErrMissingColumn    = errors.New("required column not found")
)

// Loader reads the raw extracts of a data directory.
type Loader struct {
	// Files is the directory layout. Defaults to tables.DefaultFiles().
	Files     tables.Files
	Allocator memory.Allocator
	// Progress, if set, shows one bar per file while it is decoded.
	Progress *mpb.Progress
}

// LoadRawTables loads every file of the layout from dir.
func LoadRawTables(dir string, files tables.Files) (RawTables, error) {
	loader := Loader{Files: files}
	return loader.Load(dir)
}

// Load checks that dir and every file of the layout exist before reading any
// of them, so a missing input never leaves a partial result.
func (l *Loader) Load(dir string) (RawTables, error) {
	stat, err := os.Stat(dir)
	if err != nil || !stat.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrMissingDirectory, dir)
	}

	files := l.Files
	if files == nil {
		files = tables.DefaultFiles()
	}
	mem := l.Allocator
	if mem == nil {
		mem = memory.DefaultAllocator
	}

	paths := make([]string, len(files))
	for i, f := range files {
		path := filepath.Join(dir, f.Name)
		stat, err := os.Stat(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return nil, fmt.Errorf("%w: %s", ErrMissingFile, path)
		case err != nil:
			return nil, fmt.Errorf("stat %q: %w", path, err)
		case stat.IsDir():
			return nil, fmt.Errorf("%w: %s is a directory", ErrMissingFile, path)
		}
		paths[i] = path
	}

	result := make(RawTables, len(files))
	for i, f := range files {
		table, err := l.loadFile(f.Table, paths[i], mem)
		if err != nil {
			result.Release()
			return nil, fmt.Errorf("loading %s from %q: %w", f.Table, paths[i], err)
		}
		result[f.Table] = table
	}
	return result, nil
}

func (l *Loader) loadFile(name, path string, mem memory.Allocator) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = file.Close()
	}()

	if l.Progress == nil {
		return readCSV(name, file, mem)
	}

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}
	bar := l.Progress.AddBar(stat.Size(),
		mpb.AppendDecorators(decor.AverageETA(decor.ET_STYLE_GO)),
		mpb.PrependDecorators(decor.Name(name)),
		mpb.PrependDecorators(decor.CountersNoUnit("%d/%d", decor.WCSyncSpace)),
		mpb.BarRemoveOnComplete())

	countReader := bondsmith.NewCountReader(file)
	reader := &progressReader{
		Reader: countReader,
		count:  func() int { return int(countReader.Count()) },
		bar:    bar,
		start:  time.Now(),
	}
	return readCSV(name, reader, mem)
}

// progressReader advances bar by the bytes counted so far after every read,
// so the bar moves while the CSV is decoded.
type progressReader struct {
	io.Reader
	count    func() int
	bar      *mpb.Bar
	lastSeen int
	start    time.Time
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.Reader.Read(p)
	if current := r.count(); current > r.lastSeen {
		r.bar.IncrBy(current-r.lastSeen, time.Since(r.start))
		r.lastSeen = current
	}
	return n, err
}

// readCSV decodes a headed CSV into a Table of nullable string columns.
// Empty cells are null.
func readCSV(name string, r io.Reader, mem memory.Allocator) (*Table, error) {
	buffered := bufio.NewReader(r)

	headerLine, err := buffered.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if strings.TrimSpace(headerLine) == "" {
		return nil, fmt.Errorf("reading header: empty file")
	}
	header, err := csv.NewReader(strings.NewReader(headerLine)).Read()
	if err != nil {
		return nil, fmt.Errorf("parsing header: %w", err)
	}
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	fields := make([]arrow.Field, len(header))
	for i, column := range header {
		fields[i] = arrow.Field{Name: column, Type: arrow.BinaryTypes.String, Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)

	reader := arrowcsv.NewReader(buffered, schema,
		arrowcsv.WithAllocator(mem),
		arrowcsv.WithChunk(-1),
		arrowcsv.WithNullReader(true, ""),
	)
	defer reader.Release()

	var record arrow.Record
	if reader.Next() {
		record = reader.Record()
		record.Retain()
	}
	if err := reader.Err(); err != nil {
		if record != nil {
			record.Release()
		}
		return nil, fmt.Errorf("decoding rows: %w", err)
	}

	if record == nil {
		builder := array.NewRecordBuilder(mem, schema)
		defer builder.Release()
		record = builder.NewRecord()
	}

	return newTable(name, record), nil
}
