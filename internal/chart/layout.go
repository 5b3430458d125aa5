package chart

import (
	"image"
	"image/color"
	"math"
	"time"

	"github.com/hpungsan/libreplot/internal/config"
)

// Layout holds the chart geometry. Vertical positions of the legend and the
// annotation rows are in glucose units (mg/dL), not pixels.
type Layout struct {
	Width, Height int

	Margin        int // pixels around the whole chart
	CaptionHeight int // pixels reserved for the title
	XLabelArea    int // pixels below the plot for hour labels
	YLabelArea    int // pixels left of the plot for glucose labels

	Span       time.Duration // x domain is [0, Span)
	YMin, YMax int

	TargetLow, TargetHigh int

	PointRadius int
	IconSize    int

	LegendTop        int // top of the first divider rule
	RuleThickness    int
	LegendRowHeight  int
	LegendRuleOffset int // distance from a row to the rule above it

	AnnotationTop int           // top of the fast insulin icon row
	MarkerOffset  time.Duration // markers sit this far left of the event

	GridHours   int
	GridGlucose int
}

// DefaultLayout returns the standard 800x600 day chart.
func DefaultLayout() Layout {
	return Layout{
		Width:            800,
		Height:           600,
		Margin:           10,
		CaptionHeight:    40,
		XLabelArea:       40,
		YLabelArea:       50,
		Span:             24 * time.Hour,
		YMin:             -100,
		YMax:             350,
		TargetLow:        60,
		TargetHigh:       180,
		PointRadius:      5,
		IconSize:         12,
		LegendTop:        -10,
		RuleThickness:    2,
		LegendRowHeight:  20,
		LegendRuleOffset: 6,
		AnnotationTop:    340,
		MarkerOffset:     5 * time.Minute,
		GridHours:        2,
		GridGlucose:      50,
	}
}

// LayoutFromConfig applies the configurable chart settings to DefaultLayout.
func LayoutFromConfig(cfg config.ChartConfig) Layout {
	l := DefaultLayout()
	if cfg.Width > 0 {
		l.Width = cfg.Width
	}
	if cfg.Height > 0 {
		l.Height = cfg.Height
	}
	if cfg.TargetLow > 0 {
		l.TargetLow = cfg.TargetLow
	}
	if cfg.TargetHigh > 0 {
		l.TargetHigh = cfg.TargetHigh
	}
	if cfg.IconSize > 0 {
		l.IconSize = cfg.IconSize
	}
	return l
}

// Legend and annotation rows, in glucose units.
func (l Layout) fastRow() int { return l.LegendTop - l.RuleThickness - 3 }
func (l Layout) foodRow() int { return l.fastRow() - l.LegendRowHeight }
func (l Layout) slowRow() int { return l.foodRow() - l.LegendRowHeight }
func (l Layout) markerBottom() int { return l.slowRow() - l.LegendRowHeight }
func (l Layout) fastIconRow() int { return l.AnnotationTop }
func (l Layout) foodIconRow() int { return l.AnnotationTop - l.IconSize }
func (l Layout) slowIconRow() int { return l.AnnotationTop - 2*l.IconSize }
func (l Layout) ruleAbove(row int) int { return row + l.LegendRuleOffset }

// Colors used by the chart.
var (
	white     = color.RGBA{255, 255, 255, 255}
	black     = color.RGBA{0, 0, 0, 255}
	red       = color.RGBA{255, 0, 0, 255}
	gridGray  = color.RGBA{220, 220, 220, 255}
	lowBand   = color.RGBA{255, 179, 179, 255}
	inRange   = color.RGBA{173, 216, 230, 255}
	labelGray = color.RGBA{60, 60, 60, 255}
)

// plotArea maps data coordinates onto the pixel rectangle of the plot.
type plotArea struct {
	rect       image.Rectangle
	span       time.Duration
	yMin, yMax int
}

func newPlotArea(l Layout) plotArea {
	return plotArea{
		rect: image.Rect(
			l.Margin+l.YLabelArea,
			l.Margin+l.CaptionHeight,
			l.Width-l.Margin,
			l.Height-l.Margin-l.XLabelArea,
		),
		span: l.Span,
		yMin: l.YMin,
		yMax: l.YMax,
	}
}

func (a plotArea) x(d time.Duration) int {
	frac := float64(d) / float64(a.span)
	return a.rect.Min.X + int(math.Round(frac*float64(a.rect.Dx())))
}

func (a plotArea) y(v int) int {
	frac := float64(v-a.yMin) / float64(a.yMax-a.yMin)
	return a.rect.Max.Y - int(math.Round(frac*float64(a.rect.Dy())))
}

func (a plotArea) pt(d time.Duration, v int) image.Point {
	return image.Pt(a.x(d), a.y(v))
}

// band returns the pixel rectangle spanning the whole x domain between the
// glucose values lo and hi. It is at least one pixel tall.
func (a plotArea) band(lo, hi int) image.Rectangle {
	r := image.Rect(a.x(0), a.y(hi), a.x(a.span), a.y(lo))
	if r.Dy() == 0 {
		r.Max.Y++
	}
	return r
}
