package olist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/stretchr/testify/require"
)

// fixture is a small Olist directory exercising every fill rule.
//
//   - A1 has two reviews (the later one scores 5), two items, two payments,
//     and fully known customer, seller, product and locations.
//   - A2 scores 2, has a customer without a zip code prefix, a seller whose
//     prefix has no geolocation and an untranslated category.
//   - A3 scores 1 and has no items, payments or customer row.
//   - A4 has no review.
var fixture = map[string]string{
	"olist_orders_dataset.csv": `order_id,customer_id,order_status,order_purchase_timestamp,order_approved_at,order_delivered_carrier_date,order_delivered_customer_date,order_estimated_delivery_date
A1,C1,delivered,2017-10-02 10:56:33,2017-10-02 11:07:15,2017-10-04 19:55:00,2017-10-10 21:25:13,2017-10-18 00:00:00
A2,C2,delivered,2018-07-24 20:41:37,not-a-date,,,2018-08-13 00:00:00
A3,C3,shipped,2018-08-08 08:38:49,,,,2018-09-04 00:00:00
A4,C1,canceled,2018-02-13 21:18:39,,,,2018-03-01 00:00:00
`,
	"olist_customers_dataset.csv": `customer_id,customer_unique_id,customer_zip_code_prefix,customer_city,customer_state
C1,U1,01037,sao paulo,SP
C2,U2,,rio de janeiro,RJ
`,
	"olist_order_items_dataset.csv": `order_id,order_item_id,product_id,seller_id,shipping_limit_date,price,freight_value
A1,1,P1,S1,2017-10-06 11:07:15,10.00,1.00
A1,2,P2,S2,2017-10-06 11:07:15,20.00,2.00
A2,1,P2,S2,2018-07-30 03:24:27,118.70,22.76
A4,1,P1,S1,2018-02-19 20:31:37,5.00,1.00
`,
	"olist_order_payments_dataset.csv": `order_id,payment_sequential,payment_type,payment_installments,payment_value
A1,2,voucher,1,3.00
A1,1,credit_card,3,30.00
A2,1,boleto,1,141.46
`,
	"olist_order_reviews_dataset.csv": `review_id,order_id,review_score,review_comment_message,review_creation_date
R1,A1,5,"Great, fast
thanks",2017-10-12 00:00:00
R2,A1,1,,2017-10-11 00:00:00
R3,A2,2,,2018-08-10 00:00:00
R4,A3,1,"late",2018-09-01 00:00:00
`,
	"olist_products_dataset.csv": `product_id,product_category_name,product_name_lenght,product_description_lenght,product_photos_qty,product_weight_g,product_length_cm,product_height_cm,product_width_cm
P1,beleza_saude,40,287,1,225,16,10,14
P2,sem_traducao,44,276,1,1000,30,18,20
`,
	"olist_sellers_dataset.csv": `seller_id,seller_zip_code_prefix,seller_city,seller_state
S1,13023,campinas,SP
S2,99999,porto alegre,RS
`,
	"olist_geolocation_dataset.csv": `geolocation_zip_code_prefix,geolocation_lat,geolocation_lng,geolocation_city,geolocation_state
01037,-23.54,-46.63,sao paulo,SP
01037,-23.56,-46.65,sao paulo,SP
13023,-22.90,-47.06,campinas,SP
0,-10.0,-50.0,nowhere,XX
`,
	"product_category_name_translation.csv": `product_category_name,product_category_name_english
beleza_saude,health_beauty
`,
}

// withFile returns a copy of files with name replaced by content.
func withFile(files map[string]string, name, content string) map[string]string {
	result := make(map[string]string, len(files))
	for k, v := range files {
		result[k] = v
	}
	result[name] = content
	return result
}

func writeDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

// goValue converts one cell to a comparable Go value; nulls are nil.
func goValue(t *testing.T, arr arrow.Array, i int) any {
	t.Helper()
	if arr.IsNull(i) {
		return nil
	}
	switch a := arr.(type) {
	case *array.String:
		return a.Value(i)
	case *array.Int64:
		return a.Value(i)
	case *array.Float64:
		return a.Value(i)
	case *array.Timestamp:
		return a.Value(i).ToTime(a.DataType().(*arrow.TimestampType).Unit)
	default:
		t.Fatalf("unexpected column type %s", arr.DataType())
		return nil
	}
}

// column returns every cell of the first column named name.
func column(t *testing.T, record arrow.Record, name string) []any {
	t.Helper()
	indices := record.Schema().FieldIndices(name)
	require.NotEmpty(t, indices, "column %s", name)
	arr := record.Column(indices[0])
	values := make([]any, arr.Len())
	for i := range values {
		values[i] = goValue(t, arr, i)
	}
	return values
}

func columnNames(record arrow.Record) []string {
	fields := record.Schema().Fields()
	names := make([]string, len(fields))
	for i, field := range fields {
		names[i] = field.Name
	}
	return names
}

func loadFixture(t *testing.T, files map[string]string) RawTables {
	t.Helper()
	raw, err := LoadRawTables(writeDir(t, files), nil)
	require.NoError(t, err)
	t.Cleanup(raw.Release)
	return raw
}
