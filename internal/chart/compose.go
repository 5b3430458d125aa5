// Package chart draws one day of glucose readings and events onto a fixed
// 24-hour chart.
package chart

import (
	"fmt"
	"image"
	"io"
	"strconv"
	"time"

	"github.com/hpungsan/libreplot/internal/errors"
	"github.com/hpungsan/libreplot/internal/record"
	"github.com/hpungsan/libreplot/internal/timeline"
)

// Composer lays out day groups as charts.
type Composer struct {
	layout Layout
	icons  IconSet
	policy Policy
}

// Option configures a Composer.
type Option func(*Composer)

// WithPolicy replaces the amount policies. Nil entries keep the default.
func WithPolicy(p Policy) Option {
	return func(c *Composer) {
		if p.FastInsulin != nil {
			c.policy.FastInsulin = p.FastInsulin
		}
		if p.Food != nil {
			c.policy.Food = p.Food
		}
		if p.SlowInsulin != nil {
			c.policy.SlowInsulin = p.SlowInsulin
		}
	}
}

// New creates a Composer. icons must hold all three images.
func New(layout Layout, icons IconSet, opts ...Option) *Composer {
	c := &Composer{layout: layout, icons: icons, policy: DefaultPolicy()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Layout returns the composer's geometry.
func (c *Composer) Layout() Layout { return c.layout }

// Compose draws the chart for g onto s.
func (c *Composer) Compose(s Surface, g timeline.DayGroup) error {
	if len(g.Records) == 0 {
		return fmt.Errorf("day group is empty")
	}
	if c.icons.FastInsulin == nil || c.icons.Food == nil || c.icons.SlowInsulin == nil {
		return fmt.Errorf("annotation icons are not loaded")
	}

	l := c.layout
	area := newPlotArea(l)

	c.drawFrame(s, area, g.Title())

	plot := s.Clip(area.rect)
	plot.FillRect(area.band(l.YMin, l.TargetLow), lowBand)
	plot.FillRect(area.band(l.TargetLow, l.TargetHigh), inRange)

	c.drawTrace(plot, area, g.Records)
	c.drawLegend(plot, area)
	c.drawAnnotations(plot, area, g.Records)
	return nil
}

// Encode composes g and writes it as PNG to w.
func (c *Composer) Encode(w io.Writer, g timeline.DayGroup) error {
	raster, err := NewRaster(c.layout.Width, c.layout.Height)
	if err != nil {
		return errors.NewChartRender(g.Title(), err)
	}
	if err := c.Compose(raster, g); err != nil {
		return errors.NewChartRender(g.Title(), err)
	}
	if err := raster.Encode(w); err != nil {
		return errors.NewChartRender(g.Title(), err)
	}
	return nil
}

func (c *Composer) drawFrame(s Surface, area plotArea, title string) {
	l := c.layout
	s.FillRect(s.Bounds(), white)

	size := s.TextSize(title, 2)
	s.Text(image.Pt((l.Width-size.X)/2, l.Margin+(l.CaptionHeight-size.Y)/2), title, black, 2)

	right := area.rect.Max.X - 1
	bottom := area.rect.Max.Y - 1

	for h := 0; h <= int(l.Span/time.Hour); h += l.GridHours {
		x := min(area.x(time.Duration(h)*time.Hour), right)
		s.Line(image.Pt(x, area.rect.Min.Y), image.Pt(x, bottom), gridGray)

		label := fmt.Sprintf("%d:00", h)
		ls := s.TextSize(label, 1)
		s.Text(image.Pt(x-ls.X/2, area.rect.Max.Y+6), label, labelGray, 1)
	}

	for v := firstGridValue(l.YMin, l.GridGlucose); v <= l.YMax; v += l.GridGlucose {
		y := min(area.y(v), bottom)
		s.Line(image.Pt(area.rect.Min.X, y), image.Pt(right, y), gridGray)

		label := strconv.Itoa(v)
		ls := s.TextSize(label, 1)
		s.Text(image.Pt(area.rect.Min.X-6-ls.X, y-ls.Y/2), label, labelGray, 1)
	}

	s.Line(image.Pt(area.rect.Min.X, area.rect.Min.Y), image.Pt(area.rect.Min.X, bottom), black)
	s.Line(image.Pt(area.rect.Min.X, bottom), image.Pt(right, bottom), black)
}

// firstGridValue returns the smallest multiple of step that is >= v.
func firstGridValue(v, step int) int {
	q := v / step * step
	if q < v {
		q += step
	}
	return q
}

func (c *Composer) drawTrace(s Surface, area plotArea, records []record.Record) {
	l := c.layout
	var points []image.Point
	for _, r := range records {
		v := r.Glucose()
		if v == 0 {
			continue
		}
		col := black
		if v <= l.TargetLow {
			col = red
		}
		p := area.pt(r.SinceMidnight(), v)
		s.Point(p, l.PointRadius, col)
		points = append(points, p)
	}
	for i := 1; i < len(points); i++ {
		s.Line(points[i-1], points[i], black)
	}
}

func (c *Composer) drawLegend(s Surface, area plotArea) {
	l := c.layout
	thin := max(l.RuleThickness/2, 1)

	s.FillRect(area.band(l.LegendTop-l.RuleThickness, l.LegendTop), black)
	s.FillRect(area.band(l.ruleAbove(l.foodRow())-thin, l.ruleAbove(l.foodRow())), black)
	s.FillRect(area.band(l.ruleAbove(l.slowRow())-thin, l.ruleAbove(l.slowRow())), black)

	s.Blit(area.pt(0, l.fastRow()), c.icons.FastInsulin)
	s.Blit(area.pt(0, l.foodRow()), c.icons.Food)
	s.Blit(area.pt(0, l.slowRow()), c.icons.SlowInsulin)
}

func (c *Composer) drawAnnotations(s Surface, area plotArea, records []record.Record) {
	l := c.layout
	for _, r := range records {
		x := r.SinceMidnight()
		fast := c.policy.FastInsulin(r)
		food := c.policy.Food(r)
		slow := c.policy.SlowInsulin(r)

		if fast != 0 {
			s.Blit(area.pt(x, l.fastIconRow()), c.icons.FastInsulin)
			s.Text(area.pt(x, l.fastRow()), strconv.Itoa(fast), black, 1)
		}
		if food != 0 {
			s.Blit(area.pt(x, l.foodIconRow()), c.icons.Food)
			s.Text(area.pt(x, l.foodRow()), strconv.Itoa(food), black, 1)
		}
		if slow != 0 {
			s.Text(area.pt(x, l.slowRow()), strconv.Itoa(slow), black, 1)
			s.Blit(area.pt(x, l.slowIconRow()), c.icons.SlowInsulin)
		}
		if fast != 0 || food != 0 || slow != 0 {
			// Events in the first minutes keep their marker just inside the y axis.
			mx := max(area.x(x-l.MarkerOffset), area.rect.Min.X+1)
			s.Line(image.Pt(mx, area.y(l.markerBottom())), image.Pt(mx, area.y(l.YMax)), black)
		}
	}
}
