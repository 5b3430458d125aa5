package record

import "time"

// TimestampLayout is the layout of the timestamp column in an export (YYYY.MM.DD HH:MM).
const TimestampLayout = "2006.01.02 15:04"

// DayLayout formats the calendar day used for chart titles and file names.
const DayLayout = "2006-01-02"

// Record is one time-stamped observation from a glucose monitor export.
// Zero in any numeric field means the value is absent.
type Record struct {
	// ID is the source identifier, kept for provenance only
	ID string `json:"id,omitempty"`

	// Timestamp is naive local time with minute resolution
	Timestamp time.Time `json:"timestamp"`

	// Kind is the record type discriminator from the source format
	Kind int `json:"kind"`

	GlucoseHistory int `json:"glucose_history,omitempty"`
	GlucoseScanned int `json:"glucose_scanned,omitempty"`

	FastInsulin           int `json:"fast_insulin,omitempty"`
	FastInsulinNonNumeric int `json:"fast_insulin_nonnumeric,omitempty"`
	FastInsulinUnits      int `json:"fast_insulin_units,omitempty"`

	Food           int `json:"food,omitempty"`
	FoodNonNumeric int `json:"food_nonnumeric,omitempty"`

	// Carbohydrate doubles as the slow-insulin display fallback in charts
	Carbohydrate int `json:"carbohydrate,omitempty"`

	SlowInsulin           int `json:"slow_insulin,omitempty"`
	SlowInsulinNonNumeric int `json:"slow_insulin_nonnumeric,omitempty"`
	SlowInsulinUnits      int `json:"slow_insulin_units,omitempty"`
}

// Field identifies one mergeable numeric column of a Record.
type Field int

// Fields in export column order.
const (
	GlucoseHistory Field = iota
	GlucoseScanned
	FastInsulin
	FastInsulinNonNumeric
	FastInsulinUnits
	Food
	FoodNonNumeric
	Carbohydrate
	SlowInsulin
	SlowInsulinNonNumeric
	SlowInsulinUnits
)

// Fields lists every mergeable field in export column order.
var Fields = []Field{
	GlucoseHistory, GlucoseScanned,
	FastInsulin, FastInsulinNonNumeric, FastInsulinUnits,
	Food, FoodNonNumeric, Carbohydrate,
	SlowInsulin, SlowInsulinNonNumeric, SlowInsulinUnits,
}

var fieldNames = [...]string{
	"glucose_history", "glucose_scanned",
	"fast_insulin", "fast_insulin_nonnumeric", "fast_insulin_units",
	"food", "food_nonnumeric", "carbohydrate",
	"slow_insulin", "slow_insulin_nonnumeric", "slow_insulin_units",
}

// String returns the snake_case column name.
func (f Field) String() string {
	if f < 0 || int(f) >= len(fieldNames) {
		return "unknown"
	}
	return fieldNames[f]
}

// Ptr returns a pointer to the field's storage in r.
func (r *Record) Ptr(f Field) *int {
	switch f {
	case GlucoseHistory:
		return &r.GlucoseHistory
	case GlucoseScanned:
		return &r.GlucoseScanned
	case FastInsulin:
		return &r.FastInsulin
	case FastInsulinNonNumeric:
		return &r.FastInsulinNonNumeric
	case FastInsulinUnits:
		return &r.FastInsulinUnits
	case Food:
		return &r.Food
	case FoodNonNumeric:
		return &r.FoodNonNumeric
	case Carbohydrate:
		return &r.Carbohydrate
	case SlowInsulin:
		return &r.SlowInsulin
	case SlowInsulinNonNumeric:
		return &r.SlowInsulinNonNumeric
	case SlowInsulinUnits:
		return &r.SlowInsulinUnits
	}
	return nil
}

// Get returns the value of field f.
func (r Record) Get(f Field) int {
	if p := r.Ptr(f); p != nil {
		return *p
	}
	return 0
}

// Glucose returns the effective reading: scanned if present, else history.
func (r Record) Glucose() int {
	if r.GlucoseScanned != 0 {
		return r.GlucoseScanned
	}
	return r.GlucoseHistory
}

// Day returns the calendar day of the record formatted as YYYY-MM-DD.
func (r Record) Day() string {
	return r.Timestamp.Format(DayLayout)
}

// SinceMidnight returns the elapsed time since midnight of the record's own day.
func (r Record) SinceMidnight() time.Duration {
	h, m, s := r.Timestamp.Clock()
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second
}
