package olist

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/shopspring/decimal"
	"github.com/willbeason/review-risk/pkg/tables"
)

// orderItems summarizes the items of one order.
type orderItems struct {
	value   decimal.Decimal
	freight decimal.Decimal
	count   int64

	productId  string
	hasProduct bool
	sellerId   string
	hasSeller  bool
}

// aggregateItems groups order_items by order. Prices and freight are summed
// exactly; unparseable amounts are skipped. Items without an order_item_id are
// not counted unless the column is absent, in which case every row counts.
// The product and seller are the first non-null ones in input order.
func aggregateItems(items *Table) (map[string]*orderItems, error) {
	orderIds, err := items.Require(tables.OrderIdFieldName)
	if err != nil {
		return nil, err
	}
	itemIds, hasItemIds := items.Column(tables.OrderItemId)
	prices, _ := items.Column(tables.Price)
	freights, _ := items.Column(tables.FreightValue)
	productIds, _ := items.Column(tables.ProductIdFieldName)
	sellerIds, _ := items.Column(tables.SellerIdFieldName)

	result := make(map[string]*orderItems)
	for row := 0; row < items.NumRows(); row++ {
		orderId, ok := value(orderIds, row)
		if !ok {
			continue
		}
		agg := result[orderId]
		if agg == nil {
			agg = &orderItems{}
			result[orderId] = agg
		}

		if s, ok := value(prices, row); ok {
			if price, err := decimal.NewFromString(s); err == nil {
				agg.value = agg.value.Add(price)
			}
		}
		if s, ok := value(freights, row); ok {
			if freight, err := decimal.NewFromString(s); err == nil {
				agg.freight = agg.freight.Add(freight)
			}
		}

		if !hasItemIds {
			agg.count++
		} else if _, ok := value(itemIds, row); ok {
			agg.count++
		}

		if !agg.hasProduct {
			agg.productId, agg.hasProduct = value(productIds, row)
		}
		if !agg.hasSeller {
			agg.sellerId, agg.hasSeller = value(sellerIds, row)
		}
	}
	return result, nil
}

// firstPayments picks the payment with the lowest payment_sequential for each
// order. Ties go to the earlier row and payments without a sequence lose to
// any sequenced one. Without a payment_sequential column the first row wins.
func firstPayments(payments *Table) (map[string]int, error) {
	orderIds, err := payments.Require(tables.OrderIdFieldName)
	if err != nil {
		return nil, err
	}
	sequences, _ := payments.Column(tables.PaymentSequential)

	type pick struct {
		row       int
		sequence  int64
		sequenced bool
	}
	picks := make(map[string]pick)

	for row := 0; row < payments.NumRows(); row++ {
		orderId, ok := value(orderIds, row)
		if !ok {
			continue
		}
		s, _ := value(sequences, row)
		sequence, sequenced := parseInt(s)
		candidate := pick{row: row, sequence: sequence, sequenced: sequenced}

		current, seen := picks[orderId]
		switch {
		case !seen:
			picks[orderId] = candidate
		case candidate.sequenced && !current.sequenced:
			picks[orderId] = candidate
		case candidate.sequenced && candidate.sequence < current.sequence:
			picks[orderId] = candidate
		}
	}

	result := make(map[string]int, len(picks))
	for orderId, p := range picks {
		result[orderId] = p.row
	}
	return result, nil
}

// meanLocations averages the geolocation rows of each zip code prefix. Rows
// without a prefix or without both coordinates are ignored; a row with only a
// latitude counts toward neither mean, so both axes average the same rows.
// Reports false when the table has no prefix column.
func meanLocations(geolocation *Table) (map[int64]orb.Point, bool) {
	prefixes, ok := geolocation.Column(tables.GeolocationZipCodePrefix)
	if !ok {
		return nil, false
	}
	lats, _ := geolocation.Column(tables.GeolocationLat)
	lngs, _ := geolocation.Column(tables.GeolocationLng)

	groups := make(map[int64]orb.MultiPoint)
	for row := 0; row < geolocation.NumRows(); row++ {
		s, _ := value(prefixes, row)
		prefix, ok := parseInt(s)
		if !ok {
			continue
		}
		s, _ = value(lats, row)
		lat, latOk := parseFloat(s)
		s, _ = value(lngs, row)
		lng, lngOk := parseFloat(s)
		if !latOk || !lngOk {
			continue
		}
		groups[prefix] = append(groups[prefix], orb.Point{lng, lat})
	}

	result := make(map[int64]orb.Point, len(groups))
	for prefix, points := range groups {
		centroid, _ := planar.CentroidArea(points)
		result[prefix] = centroid
	}
	return result, true
}
