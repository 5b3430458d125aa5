package timeline

import (
	"math"

	"github.com/hpungsan/libreplot/internal/record"
)

// Summary contains per-day statistics for listings and reports.
type Summary struct {
	Day          string  `json:"day"`
	Records      int     `json:"records"`
	Readings     int     `json:"readings"`
	Min          int     `json:"min,omitempty"`
	Max          int     `json:"max,omitempty"`
	Mean         float64 `json:"mean,omitempty"`
	InRangePct   float64 `json:"in_range_pct"`
	Low          int     `json:"low"`
	High         int     `json:"high"`
	FastInsulin  int     `json:"fast_insulin"`
	SlowInsulin  int     `json:"slow_insulin"`
	Food         int     `json:"food"`
	Carbohydrate int     `json:"carbohydrate"`
	Events       int     `json:"events"`
}

// Summarize computes statistics for g. Readings below targetLow count as
// low, readings at or above targetHigh as high.
func Summarize(g DayGroup, targetLow, targetHigh int) Summary {
	s := Summary{Day: g.Title(), Records: len(g.Records)}

	sum := 0
	inRange := 0
	for _, r := range g.Records {
		if v := r.Glucose(); v != 0 {
			if s.Readings == 0 || v < s.Min {
				s.Min = v
			}
			if v > s.Max {
				s.Max = v
			}
			s.Readings++
			sum += v
			switch {
			case v < targetLow:
				s.Low++
			case v >= targetHigh:
				s.High++
			default:
				inRange++
			}
		}

		s.FastInsulin += record.FastInsulinAmount(r)
		s.SlowInsulin += record.SlowInsulinDose(r)
		s.Food += record.FoodAmount(r)
		s.Carbohydrate += r.Carbohydrate
		if record.HasEvent(r) {
			s.Events++
		}
	}

	if s.Readings > 0 {
		s.Mean = round1(float64(sum) / float64(s.Readings))
		s.InRangePct = round1(100 * float64(inRange) / float64(s.Readings))
	}
	return s
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
