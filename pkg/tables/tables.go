package tables

const (
	ParquetExt = ".parquet"
	CSVExt     = ".csv"
)

// Logical names of the raw Olist extracts.
const (
	OrdersName              = "orders"
	CustomersName           = "customers"
	OrderItemsName          = "order_items"
	OrderPaymentsName       = "order_payments"
	ReviewsName             = "reviews"
	ProductsName            = "products"
	SellersName             = "sellers"
	GeolocationName         = "geolocation"
	CategoryTranslationName = "category_translation"
)

// File binds a logical table name to the file it is read from.
type File struct {
	Table string
	Name  string
}

// Files is the on-disk layout of a raw data directory. Order is the order
// tables are checked, loaded and reported in.
type Files []File

// DefaultFiles returns the layout of the Kaggle Olist e-commerce dataset.
func DefaultFiles() Files {
	return Files{
		{Table: OrdersName, Name: "olist_orders_dataset.csv"},
		{Table: CustomersName, Name: "olist_customers_dataset.csv"},
		{Table: OrderItemsName, Name: "olist_order_items_dataset.csv"},
		{Table: OrderPaymentsName, Name: "olist_order_payments_dataset.csv"},
		{Table: ReviewsName, Name: "olist_order_reviews_dataset.csv"},
		{Table: ProductsName, Name: "olist_products_dataset.csv"},
		{Table: SellersName, Name: "olist_sellers_dataset.csv"},
		{Table: GeolocationName, Name: "olist_geolocation_dataset.csv"},
		{Table: CategoryTranslationName, Name: "product_category_name_translation.csv"},
	}
}

func (fs Files) Lookup(table string) (string, bool) {
	for _, f := range fs {
		if f.Table == table {
			return f.Name, true
		}
	}
	return "", false
}

// With returns a copy of fs where table is read from name.
func (fs Files) With(table, name string) Files {
	result := make(Files, 0, len(fs)+1)
	replaced := false
	for _, f := range fs {
		if f.Table == table {
			f.Name = name
			replaced = true
		}
		result = append(result, f)
	}
	if !replaced {
		result = append(result, File{Table: table, Name: name})
	}
	return result
}

// Without returns a copy of fs with table removed.
func (fs Files) Without(table string) Files {
	result := make(Files, 0, len(fs))
	for _, f := range fs {
		if f.Table != table {
			result = append(result, f)
		}
	}
	return result
}

// Raw column names read from the extracts.
const (
	OrderIdFieldName    = "order_id"
	CustomerIdFieldName = "customer_id"
	OrderStatus         = "order_status"

	OrderPurchaseTimestamp     = "order_purchase_timestamp"
	OrderApprovedAt            = "order_approved_at"
	OrderDeliveredCarrierDate  = "order_delivered_carrier_date"
	OrderDeliveredCustomerDate = "order_delivered_customer_date"
	OrderEstimatedDeliveryDate = "order_estimated_delivery_date"

	ReviewScore        = "review_score"
	ReviewCreationDate = "review_creation_date"

	OrderItemId        = "order_item_id"
	ProductIdFieldName = "product_id"
	SellerIdFieldName  = "seller_id"
	Price              = "price"
	FreightValue       = "freight_value"

	PaymentSequential   = "payment_sequential"
	PaymentType         = "payment_type"
	PaymentInstallments = "payment_installments"
	PaymentValue        = "payment_value"

	CustomerZipCodePrefix = "customer_zip_code_prefix"
	CustomerCity          = "customer_city"
	CustomerState         = "customer_state"

	SellerZipCodePrefix = "seller_zip_code_prefix"
	SellerCity          = "seller_city"
	SellerState         = "seller_state"

	ProductCategoryName = "product_category_name"
	ProductWeightG      = "product_weight_g"
	ProductLengthCm     = "product_length_cm"
	ProductHeightCm     = "product_height_cm"
	ProductWidthCm      = "product_width_cm"

	ProductCategoryNameEnglish = "product_category_name_english"

	GeolocationZipCodePrefix = "geolocation_zip_code_prefix"
	GeolocationLat           = "geolocation_lat"
	GeolocationLng           = "geolocation_lng"
)

// Columns derived while assembling the modeling table.
const (
	Target                 = "target"
	OrderValue             = "order_value"
	NumItems               = "num_items"
	ProductCategoryEnglish = "product_category_english"
	CustomerLat            = "customer_lat"
	CustomerLng            = "customer_lng"
	SellerLat              = "seller_lat"
	SellerLng              = "seller_lng"
)

// OrderTimestamps are the order columns parsed to timestamps.
var OrderTimestamps = []string{
	OrderPurchaseTimestamp,
	OrderApprovedAt,
	OrderDeliveredCarrierDate,
	OrderDeliveredCustomerDate,
	OrderEstimatedDeliveryDate,
}

var (
	CustomerColumns = []string{CustomerZipCodePrefix, CustomerCity, CustomerState}
	SellerColumns   = []string{SellerZipCodePrefix, SellerCity, SellerState}
	ProductColumns  = []string{
		ProductCategoryName,
		ProductWeightG,
		ProductLengthCm,
		ProductHeightCm,
		ProductWidthCm,
	}
)
