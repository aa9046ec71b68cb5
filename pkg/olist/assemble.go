package olist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/google/uuid"
	"github.com/vbauerster/mpb"
	"github.com/willbeason/review-risk/pkg/tables"
)

// UnknownPaymentType fills payment_type for orders without a payment.
const UnknownPaymentType = "unknown"

var ErrMissingTable = errors.New("required table not loaded")

// Options configure BuildModelingTable. The zero value loads the default
// layout, reports nothing and saves nothing.
type Options struct {
	Files     tables.Files
	Allocator memory.Allocator
	Logger    *slog.Logger
	Progress  *mpb.Progress

	// Report receives the summary statistics of the run. Nil disables them.
	Report io.Writer
	// Profile adds a per-column value profile to the report.
	Profile bool

	// StrictZipJoin stops orders without a zip code prefix from matching the
	// geolocation of prefix 0. Their coordinates stay null and the prefix is
	// still stored as 0.
	StrictZipJoin bool

	// SavePath, if set, is where the table is written. A .parquet extension
	// selects Parquet, anything else CSV.
	SavePath string
}

func (o *Options) allocator() memory.Allocator {
	if o.Allocator == nil {
		return memory.DefaultAllocator
	}
	return o.Allocator
}

func (o *Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o.Logger
}

// BuildModelingTable loads the extracts in dataDir and assembles, reports and
// optionally saves the modeling table. Any missing input aborts the run
// before a join happens.
func BuildModelingTable(ctx context.Context, dataDir string, opts Options) (arrow.Record, error) {
	logger := opts.logger()

	loader := Loader{
		Files:     opts.Files,
		Allocator: opts.allocator(),
		Progress:  opts.Progress,
	}
	raw, err := loader.Load(dataDir)
	if err != nil {
		return nil, err
	}
	defer raw.Release()
	logger.Debug("loaded raw tables", "dir", dataDir, "tables", len(raw))

	record, err := Assemble(ctx, raw, opts)
	if err != nil {
		return nil, err
	}

	if opts.Report != nil {
		files := opts.Files
		if files == nil {
			files = tables.DefaultFiles()
		}
		summary, err := Summarize(raw, files, record, opts.Profile)
		if err != nil {
			record.Release()
			return nil, fmt.Errorf("summarizing: %w", err)
		}
		if err := summary.Write(opts.Report); err != nil {
			record.Release()
			return nil, fmt.Errorf("writing summary: %w", err)
		}
	}

	if opts.SavePath != "" {
		if err := SaveModelingData(opts.SavePath, record); err != nil {
			record.Release()
			return nil, fmt.Errorf("saving to %q: %w", opts.SavePath, err)
		}
		logger.Info("saved modeling table", "path", opts.SavePath, "rows", record.NumRows())
		if opts.Report != nil {
			_, _ = fmt.Fprintf(opts.Report, "Saved to %s\n", opts.SavePath)
		}
	}

	return record, nil
}

// Assemble joins already loaded extracts into the modeling table. The
// category translation is optional; every other table is required.
func Assemble(ctx context.Context, raw RawTables, opts Options) (arrow.Record, error) {
	required := []string{
		tables.OrdersName,
		tables.ReviewsName,
		tables.OrderItemsName,
		tables.OrderPaymentsName,
		tables.CustomersName,
		tables.SellersName,
		tables.ProductsName,
		tables.GeolocationName,
	}
	for _, name := range required {
		if raw[name] == nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingTable, name)
		}
	}

	logger := opts.logger()

	frame, err := BuildOrdersWithTarget(opts.allocator(), raw[tables.OrdersName], raw[tables.ReviewsName])
	if err != nil {
		return nil, fmt.Errorf("building target: %w", err)
	}
	defer frame.Release()

	steps := []struct {
		name string
		run  func() error
	}{
		{"parsing order timestamps", func() error {
			return parseTimestamps(frame, tables.OrderTimestamps)
		}},
		{"joining order items", func() error {
			return joinItems(frame, raw[tables.OrderItemsName])
		}},
		{"joining payments", func() error {
			return joinPayments(frame, raw[tables.OrderPaymentsName])
		}},
		{"joining customers", func() error {
			return joinColumns(frame, logger, tables.CustomerIdFieldName, raw[tables.CustomersName], tables.CustomerColumns)
		}},
		{"joining sellers", func() error {
			return joinColumns(frame, logger, tables.SellerIdFieldName, raw[tables.SellersName], tables.SellerColumns)
		}},
		{"joining products", func() error {
			return joinColumns(frame, logger, tables.ProductIdFieldName, raw[tables.ProductsName], tables.ProductColumns)
		}},
		{"translating categories", func() error {
			return joinTranslation(frame, raw[tables.CategoryTranslationName])
		}},
		{"joining geolocation", func() error {
			return joinLocations(frame, logger, raw[tables.GeolocationName], opts.StrictZipJoin)
		}},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := step.run(); err != nil {
			return nil, fmt.Errorf("%s: %w", step.name, err)
		}
	}

	metadata := tables.NewMetadataBuilder().
		Merge(tables.Modeling.Metadata()).
		Add(tables.RunIdKey, uuid.NewString()).
		Add(tables.CreatedAtKey, time.Now().UTC().Format(time.RFC3339)).
		BuildReference()
	return frame.Record(metadata), nil
}

// parseTimestamps converts the named string columns to timestamps.
// Unparseable values become null.
func parseTimestamps(frame *Frame, columns []string) error {
	for _, column := range columns {
		values, ok := frame.Strings(column)
		if !ok {
			continue
		}
		parsed, err := convertColumn(frame.mem, tables.Timestamp, values, identity(frame.NumRows()))
		if err != nil {
			return err
		}
		frame.Replace(column, parsed)
	}
	return nil
}

func joinItems(frame *Frame, items *Table) error {
	aggs, err := aggregateItems(items)
	if err != nil {
		return err
	}
	orderIds, _ := frame.Strings(tables.OrderIdFieldName)

	n := frame.NumRows()
	values := make([]float64, n)
	freights := make([]float64, n)
	counts := make([]int64, n)
	productIds := make([]string, n)
	sellerIds := make([]string, n)
	for i := 0; i < n; i++ {
		orderId, _ := value(orderIds, i)
		agg, found := aggs[orderId]
		if !found {
			continue
		}
		values[i], _ = agg.value.Float64()
		freights[i], _ = agg.freight.Float64()
		counts[i] = agg.count
		productIds[i] = agg.productId
		sellerIds[i] = agg.sellerId
	}

	frame.Add(tables.OrderValue, float64Column(frame.mem, values, nil))
	frame.Add(tables.FreightValue, float64Column(frame.mem, freights, nil))
	frame.Add(tables.NumItems, int64Column(frame.mem, counts, nil))
	frame.Add(tables.ProductIdFieldName, stringColumn(frame.mem, productIds, nil))
	frame.Add(tables.SellerIdFieldName, stringColumn(frame.mem, sellerIds, nil))
	return nil
}

func joinPayments(frame *Frame, payments *Table) error {
	picks, err := firstPayments(payments)
	if err != nil {
		return err
	}
	orderIds, _ := frame.Strings(tables.OrderIdFieldName)
	paymentTypes, _ := payments.Column(tables.PaymentType)
	installments, _ := payments.Column(tables.PaymentInstallments)

	n := frame.NumRows()
	rows := make([]int, n)
	types := make([]string, n)
	counts := make([]int64, n)
	for i := 0; i < n; i++ {
		rows[i] = -1
		types[i] = UnknownPaymentType
		orderId, ok := value(orderIds, i)
		if !ok {
			continue
		}
		row, found := picks[orderId]
		if !found {
			continue
		}
		rows[i] = row
		if s, ok := value(paymentTypes, row); ok {
			types[i] = s
		}
		s, _ := value(installments, row)
		counts[i], _ = parseInt(s)
	}

	frame.Add(tables.PaymentType, stringColumn(frame.mem, types, nil))
	frame.Add(tables.PaymentInstallments, int64Column(frame.mem, counts, nil))

	if paymentValues, ok := payments.Column(tables.PaymentValue); ok {
		col, err := convertColumn(frame.mem, arrow.PrimitiveTypes.Float64, paymentValues, rows)
		if err != nil {
			return err
		}
		frame.Add(tables.PaymentValue, col)
	}
	return nil
}

// joinColumns left-joins the listed columns of right onto frame where the
// frame's key column equals right's column of the same name. Right-hand
// columns that do not exist are skipped. Only the first right row of a key
// is used, so the join never adds rows.
func joinColumns(frame *Frame, logger *slog.Logger, key string, right *Table, columns []string) error {
	keys, ok := frame.Strings(key)
	if !ok {
		logger.Debug("frame has no join key, skipping", "key", key, "table", right.Name)
		return nil
	}
	rightKeys, err := right.Require(key)
	if err != nil {
		return err
	}

	index := make(map[string]int, right.NumRows())
	for row := 0; row < right.NumRows(); row++ {
		k, ok := value(rightKeys, row)
		if !ok {
			continue
		}
		if _, seen := index[k]; !seen {
			index[k] = row
		}
	}

	rows := make([]int, frame.NumRows())
	for i := range rows {
		rows[i] = -1
		if k, ok := value(keys, i); ok {
			if row, found := index[k]; found {
				rows[i] = row
			}
		}
	}

	for _, column := range columns {
		values, ok := right.Column(column)
		if !ok {
			logger.Debug("column not found, skipping", "table", right.Name, "column", column)
			continue
		}
		col, err := convertColumn(frame.mem, tables.ModelingField(column).Type, values, rows)
		if err != nil {
			return err
		}
		frame.Add(column, col)
	}
	return nil
}

// joinTranslation adds the English category name. The translation is read
// from product_category_name_english, or from the table's second column when
// that is absent. Untranslated categories keep their original name, and
// orders without a category get "".
func joinTranslation(frame *Frame, translation *Table) error {
	translations := make(map[string]string)
	if translation != nil && translation.Has(tables.ProductCategoryName) {
		englishColumn := tables.ProductCategoryNameEnglish
		if !translation.Has(englishColumn) {
			englishColumn = ""
			if columns := translation.Columns(); len(columns) > 1 {
				englishColumn = columns[1]
			}
		}

		if englishColumn != "" {
			names, _ := translation.Column(tables.ProductCategoryName)
			english, _ := translation.Column(englishColumn)
			for row := 0; row < translation.NumRows(); row++ {
				name, ok := value(names, row)
				if !ok {
					continue
				}
				if _, seen := translations[name]; seen {
					continue
				}
				if en, ok := value(english, row); ok {
					translations[name] = en
				}
			}
		}
	}

	categories, _ := frame.Strings(tables.ProductCategoryName)
	result := make([]string, frame.NumRows())
	for i := range result {
		category, ok := value(categories, i)
		if !ok {
			continue
		}
		if en, found := translations[category]; found {
			result[i] = en
		} else {
			result[i] = category
		}
	}
	frame.Add(tables.ProductCategoryEnglish, stringColumn(frame.mem, result, nil))
	return nil
}

// joinLocations adds mean coordinates for the customer and seller zip code
// prefixes. Missing prefixes are stored as 0. Unless strict, they are
// coerced to 0 before the lookup and so match a real prefix-0 location.
func joinLocations(frame *Frame, logger *slog.Logger, geolocation *Table, strict bool) error {
	locations, ok := meanLocations(geolocation)
	if !ok {
		logger.Debug("geolocation has no zip code prefix column, skipping coordinates")
		return nil
	}

	sides := []struct {
		prefix, lat, lng string
	}{
		{tables.CustomerZipCodePrefix, tables.CustomerLat, tables.CustomerLng},
		{tables.SellerZipCodePrefix, tables.SellerLat, tables.SellerLng},
	}

	n := frame.NumRows()
	for _, side := range sides {
		var prefixes *array.Int64
		if col, ok := frame.Column(side.prefix); ok {
			if prefixes, ok = col.(*array.Int64); !ok {
				return fmt.Errorf("column %s is %s, not int64", side.prefix, col.DataType())
			}
		}

		filled := make([]int64, n)
		lats := make([]float64, n)
		lngs := make([]float64, n)
		valid := make([]bool, n)
		for i := 0; i < n; i++ {
			present := prefixes != nil && prefixes.IsValid(i)
			if present {
				filled[i] = prefixes.Value(i)
			}
			if !present && strict {
				continue
			}
			if point, found := locations[filled[i]]; found {
				lngs[i], lats[i] = point[0], point[1]
				valid[i] = true
			}
		}

		frame.Replace(side.prefix, int64Column(frame.mem, filled, nil))
		frame.Add(side.lat, float64Column(frame.mem, lats, valid))
		frame.Add(side.lng, float64Column(frame.mem, lngs, valid))
	}
	return nil
}
