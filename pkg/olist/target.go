package olist

import (
	"time"

	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/willbeason/review-risk/pkg/tables"
)

// LowScore is the highest review score labelled as a low review.
const LowScore = 2

// latestReviews picks one review row per order. The latest review_creation_date
// wins and ties go to the later row. Reviews without a parseable date lose to
// any dated review, even when the undated one comes later in the file.
// Without a review_creation_date column the last row seen for an order wins,
// which depends only on input order.
func latestReviews(reviews *Table) (map[string]int, error) {
	orderIds, err := reviews.Require(tables.OrderIdFieldName)
	if err != nil {
		return nil, err
	}
	created, hasCreated := reviews.Column(tables.ReviewCreationDate)

	type pick struct {
		row   int
		at    time.Time
		dated bool
	}
	picks := make(map[string]pick)

	for row := 0; row < reviews.NumRows(); row++ {
		orderId, ok := value(orderIds, row)
		if !ok {
			continue
		}

		var candidate pick
		candidate.row = row
		if hasCreated {
			s, _ := value(created, row)
			candidate.at, candidate.dated = parseTimestamp(s)
		}

		current, seen := picks[orderId]
		switch {
		case !seen, !hasCreated:
			picks[orderId] = candidate
		case candidate.dated && !current.dated:
			picks[orderId] = candidate
		case candidate.dated && !candidate.at.Before(current.at):
			picks[orderId] = candidate
		case !candidate.dated && !current.dated:
			picks[orderId] = candidate
		}
	}

	result := make(map[string]int, len(picks))
	for orderId, p := range picks {
		result[orderId] = p.row
	}
	return result, nil
}

// BuildOrdersWithTarget inner-joins orders with one review per order and
// labels each row. Every orders column is kept as read, followed by
// review_score and target. Orders keep their input order; orders without a
// review are dropped. A missing or unparseable score leaves review_score null
// and target 0.
//
// Neither input is modified.
func BuildOrdersWithTarget(mem memory.Allocator, orders, reviews *Table) (*Frame, error) {
	orderIds, err := orders.Require(tables.OrderIdFieldName)
	if err != nil {
		return nil, err
	}
	scores, err := reviews.Require(tables.ReviewScore)
	if err != nil {
		return nil, err
	}
	reviewRows, err := latestReviews(reviews)
	if err != nil {
		return nil, err
	}

	var rows []int
	var scoreValues, targets []int64
	var scoreValid []bool
	for row := 0; row < orders.NumRows(); row++ {
		orderId, ok := value(orderIds, row)
		if !ok {
			continue
		}
		reviewRow, found := reviewRows[orderId]
		if !found {
			continue
		}
		rows = append(rows, row)

		s, _ := value(scores, reviewRow)
		score, valid := parseInt(s)
		scoreValues = append(scoreValues, score)
		scoreValid = append(scoreValid, valid)
		if valid && score <= LowScore {
			targets = append(targets, 1)
		} else {
			targets = append(targets, 0)
		}
	}

	frame := NewFrame(mem, len(rows))
	record := orders.Record()
	for i, field := range record.Schema().Fields() {
		values, _ := record.Column(i).(*array.String)
		col, err := convertColumn(frame.mem, field.Type, values, rows)
		if err != nil {
			frame.Release()
			return nil, err
		}
		frame.Add(field.Name, col)
	}

	frame.Add(tables.ReviewScore, int64Column(frame.mem, scoreValues, scoreValid))
	frame.Add(tables.Target, int64Column(frame.mem, targets, nil))
	return frame, nil
}
