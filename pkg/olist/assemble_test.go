package olist

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/willbeason/review-risk/pkg/tables"
)

func assemble(t *testing.T, files map[string]string, opts Options) arrow.Record {
	t.Helper()
	record, err := Assemble(context.Background(), loadFixture(t, files), opts)
	require.NoError(t, err)
	t.Cleanup(record.Release)
	return record
}

func modelingNames() []string {
	fields := tables.Modeling.Fields()
	names := make([]string, len(fields))
	for i, field := range fields {
		names[i] = field.Name
	}
	return names
}

func TestAssemble(t *testing.T) {
	record := assemble(t, fixture, Options{})

	assert.Equal(t, modelingNames(), columnNames(record))
	assert.Equal(t, int64(3), record.NumRows())

	ts := func(s string) time.Time {
		parsed, err := time.Parse(time.DateTime, s)
		require.NoError(t, err)
		return parsed
	}

	tcs := []struct {
		column string
		want   []any
	}{
		{column: tables.OrderIdFieldName, want: []any{"A1", "A2", "A3"}},
		{column: tables.OrderPurchaseTimestamp, want: []any{
			ts("2017-10-02 10:56:33"), ts("2018-07-24 20:41:37"), ts("2018-08-08 08:38:49"),
		}},
		{column: tables.OrderApprovedAt, want: []any{ts("2017-10-02 11:07:15"), nil, nil}},
		{column: tables.ReviewScore, want: []any{int64(5), int64(2), int64(1)}},
		{column: tables.Target, want: []any{int64(0), int64(1), int64(1)}},
		{column: tables.OrderValue, want: []any{30.0, 118.70, 0.0}},
		{column: tables.FreightValue, want: []any{3.0, 22.76, 0.0}},
		{column: tables.NumItems, want: []any{int64(2), int64(1), int64(0)}},
		{column: tables.ProductIdFieldName, want: []any{"P1", "P2", ""}},
		{column: tables.SellerIdFieldName, want: []any{"S1", "S2", ""}},
		{column: tables.PaymentType, want: []any{"credit_card", "boleto", UnknownPaymentType}},
		{column: tables.PaymentInstallments, want: []any{int64(3), int64(1), int64(0)}},
		{column: tables.PaymentValue, want: []any{30.0, 141.46, nil}},
		{column: tables.CustomerZipCodePrefix, want: []any{int64(1037), int64(0), int64(0)}},
		{column: tables.CustomerCity, want: []any{"sao paulo", "rio de janeiro", nil}},
		{column: tables.SellerZipCodePrefix, want: []any{int64(13023), int64(99999), int64(0)}},
		{column: tables.SellerState, want: []any{"SP", "RS", nil}},
		{column: tables.ProductCategoryName, want: []any{"beleza_saude", "sem_traducao", nil}},
		{column: tables.ProductWeightG, want: []any{225.0, 1000.0, nil}},
		{column: tables.ProductCategoryEnglish, want: []any{"health_beauty", "sem_traducao", ""}},
		{column: tables.CustomerLat, want: []any{-23.55, -10.0, -10.0}},
		{column: tables.CustomerLng, want: []any{-46.64, -50.0, -50.0}},
		{column: tables.SellerLat, want: []any{-22.90, nil, -10.0}},
		{column: tables.SellerLng, want: []any{-47.06, nil, -50.0}},
	}
	for _, tc := range tcs {
		if diff := cmp.Diff(tc.want, column(t, record, tc.column), cmpopts.EquateApprox(0, 1e-9)); diff != "" {
			t.Errorf("%s (-want +got):\n%s", tc.column, diff)
		}
	}
}

func TestAssemble_Metadata(t *testing.T) {
	record := assemble(t, fixture, Options{})
	metadata := record.Schema().Metadata()

	i := metadata.FindKey(tables.RunIdKey)
	require.GreaterOrEqual(t, i, 0)
	_, err := uuid.Parse(metadata.Values()[i])
	assert.NoError(t, err)

	i = metadata.FindKey(tables.CreatedAtKey)
	require.GreaterOrEqual(t, i, 0)
	_, err = time.Parse(time.RFC3339, metadata.Values()[i])
	assert.NoError(t, err)

	field, ok := record.Schema().FieldsByName(tables.Target)
	require.True(t, ok)
	assert.NotEmpty(t, tables.Comment(field[0]))
}

func TestAssemble_TargetMatchesScore(t *testing.T) {
	record := assemble(t, fixture, Options{})

	scores := column(t, record, tables.ReviewScore)
	for i, target := range column(t, record, tables.Target) {
		score, hasScore := scores[i].(int64)
		want := int64(0)
		if hasScore && score <= LowScore {
			want = 1
		}
		assert.Equal(t, want, target, "row %d", i)
	}
}

func TestAssemble_NonNullableColumns(t *testing.T) {
	record := assemble(t, fixture, Options{})

	for _, want := range tables.Modeling.Fields() {
		if want.Nullable {
			continue
		}
		indices := record.Schema().FieldIndices(want.Name)
		require.Len(t, indices, 1, want.Name)
		assert.False(t, record.Schema().Field(indices[0]).Nullable, want.Name)
		assert.Zero(t, record.Column(indices[0]).NullN(), want.Name)
	}
}

func TestAssemble_StrictZipJoin(t *testing.T) {
	record := assemble(t, fixture, Options{StrictZipJoin: true})

	tcs := []struct {
		column string
		want   []any
	}{
		{column: tables.CustomerZipCodePrefix, want: []any{int64(1037), int64(0), int64(0)}},
		{column: tables.CustomerLat, want: []any{-23.55, nil, nil}},
		{column: tables.SellerLat, want: []any{-22.90, nil, nil}},
	}
	for _, tc := range tcs {
		if diff := cmp.Diff(tc.want, column(t, record, tc.column), cmpopts.EquateApprox(0, 1e-9)); diff != "" {
			t.Errorf("%s (-want +got):\n%s", tc.column, diff)
		}
	}
}

func TestAssemble_TranslationFallback(t *testing.T) {
	tcs := []struct {
		name        string
		translation string
		want        []any
	}{
		{
			name:        "renamed english column",
			translation: "product_category_name,english\nbeleza_saude,health_beauty\n",
			want:        []any{"health_beauty", "sem_traducao", ""},
		},
		{
			name:        "no english column",
			translation: "product_category_name\nbeleza_saude\n",
			want:        []any{"beleza_saude", "sem_traducao", ""},
		},
		{
			name:        "no category column",
			translation: "category,english\nbeleza_saude,health_beauty\n",
			want:        []any{"beleza_saude", "sem_traducao", ""},
		},
	}

	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			files := withFile(fixture, "product_category_name_translation.csv", tc.translation)
			record := assemble(t, files, Options{})

			assert.Equal(t, tc.want, column(t, record, tables.ProductCategoryEnglish))
		})
	}
}

func TestAssemble_WithoutTranslation(t *testing.T) {
	raw := loadFixture(t, fixture)
	raw[tables.CategoryTranslationName].Release()
	delete(raw, tables.CategoryTranslationName)

	record, err := Assemble(context.Background(), raw, Options{})
	require.NoError(t, err)
	defer record.Release()

	assert.Equal(t, []any{"beleza_saude", "sem_traducao", ""}, column(t, record, tables.ProductCategoryEnglish))
}

func TestAssemble_MissingTable(t *testing.T) {
	raw := loadFixture(t, fixture)
	raw[tables.SellersName].Release()
	delete(raw, tables.SellersName)

	_, err := Assemble(context.Background(), raw, Options{})

	require.ErrorIs(t, err, ErrMissingTable)
	assert.Contains(t, err.Error(), tables.SellersName)
}

func TestAssemble_GeolocationWithoutPrefix(t *testing.T) {
	files := withFile(fixture, "olist_geolocation_dataset.csv", "zip,geolocation_lat,geolocation_lng\n01037,-23.54,-46.63\n")
	record := assemble(t, files, Options{})

	names := columnNames(record)
	assert.NotContains(t, names, tables.CustomerLat)
	assert.NotContains(t, names, tables.SellerLng)
	assert.Equal(t, []any{int64(1037), nil, nil}, column(t, record, tables.CustomerZipCodePrefix),
		"prefixes are only filled when coordinates are joined")
}

func TestAssemble_OptionalColumns(t *testing.T) {
	files := withFile(fixture, "olist_order_payments_dataset.csv",
		"order_id,payment_sequential,payment_type,payment_installments\nA1,1,credit_card,3\n")
	files = withFile(files, "olist_products_dataset.csv",
		"product_id,product_category_name\nP1,beleza_saude\n")
	record := assemble(t, files, Options{})

	names := columnNames(record)
	assert.NotContains(t, names, tables.PaymentValue)
	assert.NotContains(t, names, tables.ProductWeightG)
	assert.Equal(t, []any{"credit_card", UnknownPaymentType, UnknownPaymentType}, column(t, record, tables.PaymentType))
}

func TestAssemble_DuplicateColumns(t *testing.T) {
	orders := "order_id,customer_id,product_id\nA1,C1,P9\nA2,C2,\nA3,C3,\n"
	files := withFile(fixture, "olist_orders_dataset.csv", orders)
	record := assemble(t, files, Options{})

	names := columnNames(record)
	count := 0
	for _, name := range names {
		if name == tables.ProductIdFieldName {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.Equal(t, []any{"P9", nil, nil}, column(t, record, tables.ProductIdFieldName),
		"the first column of a name is kept")
}

func TestAssemble_UnknownOrderColumns(t *testing.T) {
	orders := "order_id,customer_id,channel\nA1,C1,web\nA2,C2,\nA3,C3,app\n"
	files := withFile(fixture, "olist_orders_dataset.csv", orders)
	record := assemble(t, files, Options{})

	assert.Equal(t, []any{"web", nil, "app"}, column(t, record, "channel"))
}

func TestAssemble_Cancelled(t *testing.T) {
	raw := loadFixture(t, fixture)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Assemble(ctx, raw, Options{})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestAssemble_ReleasesMemory(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	loader := Loader{Allocator: mem}
	raw, err := loader.Load(writeDir(t, fixture))
	require.NoError(t, err)
	defer raw.Release()

	record, err := Assemble(context.Background(), raw, Options{Allocator: mem})
	require.NoError(t, err)
	record.Release()
}

func TestBuildModelingTable(t *testing.T) {
	dir := writeDir(t, fixture)
	savePath := filepath.Join(dir, "out", "modeling.parquet")
	var report strings.Builder

	record, err := BuildModelingTable(context.Background(), dir, Options{
		Report:   &report,
		SavePath: savePath,
	})
	require.NoError(t, err)
	defer record.Release()

	assert.Equal(t, int64(3), record.NumRows())
	assert.Contains(t, report.String(), "Orders with review (target defined): 3\n")
	assert.Contains(t, report.String(), "Saved to "+savePath+"\n")
	assert.FileExists(t, savePath)
}

func TestBuildModelingTable_MissingFile(t *testing.T) {
	files := make(map[string]string, len(fixture))
	for name, content := range fixture {
		if name != "olist_geolocation_dataset.csv" {
			files[name] = content
		}
	}
	dir := writeDir(t, files)
	savePath := filepath.Join(dir, "modeling.parquet")

	_, err := BuildModelingTable(context.Background(), dir, Options{SavePath: savePath})

	require.ErrorIs(t, err, ErrMissingFile)
	assert.NoFileExists(t, savePath)
}
