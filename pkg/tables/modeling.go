package tables

import "github.com/apache/arrow/go/v18/arrow"

const ModelingName = "modeling"

const (
	orderIdComment    = "The Olist identifier of the order"
	zipPrefixComment  = "The first five digits of the postal code. Missing prefixes are stored as 0"
	latitudeComment   = "Mean latitude of every geolocation row sharing the zip code prefix"
	longitudeComment  = "Mean longitude of every geolocation row sharing the zip code prefix"
	dimensionsComment = "As listed in the product catalog"
)

// Timestamp is the type order timestamps are parsed to. Olist timestamps
// carry no zone and are read as UTC.
var Timestamp = arrow.FixedWidthTypes.Timestamp_ms

// Modeling is the order-level table used to train the low-review risk model.
// Orders columns absent from this schema are carried through as nullable
// strings.
var Modeling = arrow.NewSchema([]arrow.Field{
	{Name: OrderIdFieldName,
		Type:     arrow.BinaryTypes.String,
		Metadata: NewMetadataBuilder().Comment(orderIdComment).Build()},
	{Name: CustomerIdFieldName,
		Type: arrow.BinaryTypes.String,
		Metadata: NewMetadataBuilder().Comment(
			"The per-order customer key. Joins to customers",
		).Build()},
	{Name: OrderStatus,
		Type:     arrow.BinaryTypes.String,
		Metadata: NewMetadataBuilder().Comment("The order's delivery status").Build(),
		Nullable: true},
	{Name: OrderPurchaseTimestamp,
		Type:     Timestamp,
		Metadata: NewMetadataBuilder().Comment("When the order was placed").Build(),
		Nullable: true},
	{Name: OrderApprovedAt,
		Type:     Timestamp,
		Metadata: NewMetadataBuilder().Comment("When payment was approved").Build(),
		Nullable: true},
	{Name: OrderDeliveredCarrierDate,
		Type:     Timestamp,
		Metadata: NewMetadataBuilder().Comment("When the order was handed to the carrier").Build(),
		Nullable: true},
	{Name: OrderDeliveredCustomerDate,
		Type:     Timestamp,
		Metadata: NewMetadataBuilder().Comment("When the customer received the order").Build(),
		Nullable: true},
	{Name: OrderEstimatedDeliveryDate,
		Type:     Timestamp,
		Metadata: NewMetadataBuilder().Comment("The delivery date promised at purchase").Build(),
		Nullable: true},
	{Name: ReviewScore,
		Type: arrow.PrimitiveTypes.Int64,
		Metadata: NewMetadataBuilder().Comment(
			"Score from 1 to 5 of the latest review of the order",
		).Build(),
		Nullable: true},
	{Name: Target,
		Type: arrow.PrimitiveTypes.Int64,
		Metadata: NewMetadataBuilder().Comment(
			"1 if the review score is 2 or lower, otherwise 0",
		).Build()},
	{Name: OrderValue,
		Type:     arrow.PrimitiveTypes.Float64,
		Metadata: NewMetadataBuilder().Comment("Sum of item prices").Build()},
	{Name: FreightValue,
		Type:     arrow.PrimitiveTypes.Float64,
		Metadata: NewMetadataBuilder().Comment("Sum of item freight").Build()},
	{Name: NumItems,
		Type:     arrow.PrimitiveTypes.Int64,
		Metadata: NewMetadataBuilder().Comment("Number of items in the order").Build()},
	{Name: ProductIdFieldName,
		Type: arrow.BinaryTypes.String,
		Metadata: NewMetadataBuilder().Comment(
			"The first product of the order, or empty if the order has no items",
		).Build()},
	{Name: SellerIdFieldName,
		Type: arrow.BinaryTypes.String,
		Metadata: NewMetadataBuilder().Comment(
			"The seller of the first item, or empty if the order has no items",
		).Build()},
	{Name: PaymentType,
		Type: arrow.BinaryTypes.String,
		Metadata: NewMetadataBuilder().Comment(
			"Method of the first payment, or \"unknown\"",
		).Build()},
	{Name: PaymentInstallments,
		Type:     arrow.PrimitiveTypes.Int64,
		Metadata: NewMetadataBuilder().Comment("Installments of the first payment").Build()},
	{Name: PaymentValue,
		Type:     arrow.PrimitiveTypes.Float64,
		Metadata: NewMetadataBuilder().Comment("Value of the first payment").Build(),
		Nullable: true},
	{Name: CustomerZipCodePrefix,
		Type:     arrow.PrimitiveTypes.Int64,
		Metadata: NewMetadataBuilder().Comment(zipPrefixComment).Build(),
		Nullable: true},
	{Name: CustomerCity,
		Type:     arrow.BinaryTypes.String,
		Metadata: NewMetadataBuilder().Comment("City the customer ordered from").Build(),
		Nullable: true},
	{Name: CustomerState,
		Type:     arrow.BinaryTypes.String,
		Metadata: NewMetadataBuilder().Comment("State the customer ordered from").Build(),
		Nullable: true},
	{Name: SellerZipCodePrefix,
		Type:     arrow.PrimitiveTypes.Int64,
		Metadata: NewMetadataBuilder().Comment(zipPrefixComment).Build(),
		Nullable: true},
	{Name: SellerCity,
		Type:     arrow.BinaryTypes.String,
		Metadata: NewMetadataBuilder().Comment("City of the first item's seller").Build(),
		Nullable: true},
	{Name: SellerState,
		Type:     arrow.BinaryTypes.String,
		Metadata: NewMetadataBuilder().Comment("State of the first item's seller").Build(),
		Nullable: true},
	{Name: ProductCategoryName,
		Type:     arrow.BinaryTypes.String,
		Metadata: NewMetadataBuilder().Comment("Category of the first product, in Portuguese").Build(),
		Nullable: true},
	{Name: ProductWeightG,
		Type:     arrow.PrimitiveTypes.Float64,
		Metadata: NewMetadataBuilder().Comment(dimensionsComment).Build(),
		Nullable: true},
	{Name: ProductLengthCm,
		Type:     arrow.PrimitiveTypes.Float64,
		Metadata: NewMetadataBuilder().Comment(dimensionsComment).Build(),
		Nullable: true},
	{Name: ProductHeightCm,
		Type:     arrow.PrimitiveTypes.Float64,
		Metadata: NewMetadataBuilder().Comment(dimensionsComment).Build(),
		Nullable: true},
	{Name: ProductWidthCm,
		Type:     arrow.PrimitiveTypes.Float64,
		Metadata: NewMetadataBuilder().Comment(dimensionsComment).Build(),
		Nullable: true},
	{Name: ProductCategoryEnglish,
		Type: arrow.BinaryTypes.String,
		Metadata: NewMetadataBuilder().Comment(
			"Category of the first product in English, falling back to the Portuguese name",
		).Build()},
	{Name: CustomerLat,
		Type:     arrow.PrimitiveTypes.Float64,
		Metadata: NewMetadataBuilder().Comment(latitudeComment).Build(),
		Nullable: true},
	{Name: CustomerLng,
		Type:     arrow.PrimitiveTypes.Float64,
		Metadata: NewMetadataBuilder().Comment(longitudeComment).Build(),
		Nullable: true},
	{Name: SellerLat,
		Type:     arrow.PrimitiveTypes.Float64,
		Metadata: NewMetadataBuilder().Comment(latitudeComment).Build(),
		Nullable: true},
	{Name: SellerLng,
		Type:     arrow.PrimitiveTypes.Float64,
		Metadata: NewMetadataBuilder().Comment(longitudeComment).Build(),
		Nullable: true},
}, NewMetadataBuilder().Comment(
	"One row per reviewed Olist order, labelled with low-review risk",
).BuildReference())

// ModelingField returns the field a modeling column is stored as. Columns the
// schema does not know are nullable strings.
func ModelingField(name string) arrow.Field {
	if indices := Modeling.FieldIndices(name); len(indices) > 0 {
		return Modeling.Field(indices[0])
	}
	return arrow.Field{Name: name, Type: arrow.BinaryTypes.String, Nullable: true}
}
