package chart

import "github.com/hpungsan/libreplot/internal/record"

// AmountPolicy picks the single value to annotate from a record's
// alternative encodings of one event. Zero means nothing is drawn.
type AmountPolicy func(record.Record) int

// Policy selects the annotated amount for each event row.
type Policy struct {
	FastInsulin AmountPolicy
	Food        AmountPolicy
	SlowInsulin AmountPolicy
}

// DefaultPolicy matches the charts produced by earlier releases, including
// the carbohydrate fallback on the slow insulin row.
func DefaultPolicy() Policy {
	return Policy{
		FastInsulin: record.FastInsulinAmount,
		Food:        record.FoodAmount,
		SlowInsulin: SlowInsulinOrCarbohydrate,
	}
}

// SlowInsulinOrCarbohydrate returns the slow insulin dose, or the
// carbohydrate amount when no dose is recorded. The two quantities share the
// slow insulin row on the chart.
func SlowInsulinOrCarbohydrate(r record.Record) int {
	if v := record.SlowInsulinDose(r); v != 0 {
		return v
	}
	return r.Carbohydrate
}
