package record

// FastInsulinAmount picks the fast insulin dose: units, then amount, then the
// non-numeric marker.
func FastInsulinAmount(r Record) int {
	switch {
	case r.FastInsulinUnits != 0:
		return r.FastInsulinUnits
	case r.FastInsulin != 0:
		return r.FastInsulin
	}
	return r.FastInsulinNonNumeric
}

// SlowInsulinDose picks the slow insulin dose: units, then amount, then the
// non-numeric marker.
func SlowInsulinDose(r Record) int {
	switch {
	case r.SlowInsulinUnits != 0:
		return r.SlowInsulinUnits
	case r.SlowInsulin != 0:
		return r.SlowInsulin
	}
	return r.SlowInsulinNonNumeric
}

// FoodAmount picks the food amount: food, then the non-numeric marker.
func FoodAmount(r Record) int {
	if r.Food != 0 {
		return r.Food
	}
	return r.FoodNonNumeric
}

// HasEvent reports whether r carries any insulin, food or carbohydrate value.
func HasEvent(r Record) bool {
	return FastInsulinAmount(r) != 0 || SlowInsulinDose(r) != 0 || FoodAmount(r) != 0 || r.Carbohydrate != 0
}
