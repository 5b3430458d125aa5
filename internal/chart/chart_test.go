package chart

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/libreplot/internal/config"
	"github.com/hpungsan/libreplot/internal/errors"
	"github.com/hpungsan/libreplot/internal/record"
	"github.com/hpungsan/libreplot/internal/timeline"
)

var (
	fastColor = color.RGBA{0, 200, 0, 255}
	foodColor = color.RGBA{255, 140, 0, 255}
	slowColor = color.RGBA{0, 0, 200, 255}
)

func solid(c color.Color, size int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func testIcons() IconSet {
	return IconSet{
		FastInsulin: solid(fastColor, 12),
		Food:        solid(foodColor, 12),
		SlowInsulin: solid(slowColor, 12),
	}
}

func at(hour, minute int) time.Time {
	return time.Date(2024, 1, 5, hour, minute, 0, 0, time.UTC)
}

// recorder is a Surface that records calls instead of drawing.
type recorder struct {
	points []image.Point
	colors []color.Color
	lines  int
	fills  int
	texts  []string
	blits  []image.Point
}

func (r *recorder) Bounds() image.Rectangle { return image.Rect(0, 0, 800, 600) }
func (r *recorder) Clip(image.Rectangle) Surface { return r }
func (r *recorder) FillRect(image.Rectangle, color.Color) { r.fills++ }
func (r *recorder) Line(image.Point, image.Point, color.Color) { r.lines++ }
func (r *recorder) Point(p image.Point, _ int, c color.Color) {
	r.points = append(r.points, p)
	r.colors = append(r.colors, c)
}
func (r *recorder) Text(_ image.Point, s string, _ color.Color, _ int) { r.texts = append(r.texts, s) }
func (r *recorder) TextSize(s string, scale int) image.Point { return image.Pt(7*len(s)*scale, 13*scale) }
func (r *recorder) Blit(p image.Point, _ image.Image) { r.blits = append(r.blits, p) }
func (r *recorder) Encode(io.Writer) error { return nil }

func TestCompose_TraceColorsAndOrder(t *testing.T) {
	c := New(DefaultLayout(), testIcons())
	g := timeline.DayGroup{Records: []record.Record{
		{Timestamp: at(6, 0), GlucoseHistory: 140},
		{Timestamp: at(7, 0)},
		{Timestamp: at(8, 0), GlucoseHistory: 90, GlucoseScanned: 60},
		{Timestamp: at(9, 0), GlucoseScanned: 61},
	}}

	rec := &recorder{}
	require.NoError(t, c.Compose(rec, g))

	require.Len(t, rec.points, 3)
	assert.Equal(t, black, rec.colors[0])
	assert.Equal(t, red, rec.colors[1], "a reading of exactly 60 is low")
	assert.Equal(t, black, rec.colors[2])
	assert.Less(t, rec.points[0].X, rec.points[1].X)
	assert.Less(t, rec.points[1].X, rec.points[2].X)
	assert.Greater(t, rec.points[1].Y, rec.points[0].Y, "lower readings sit lower on the chart")
}

func TestCompose_NoReadingsStillDrawsFrame(t *testing.T) {
	c := New(DefaultLayout(), testIcons())
	g := timeline.DayGroup{Records: []record.Record{{Timestamp: at(10, 0), Kind: 6}}}

	rec := &recorder{}
	require.NoError(t, c.Compose(rec, g))

	assert.Empty(t, rec.points)
	// background, two bands, three legend rules
	assert.Equal(t, 6, rec.fills)
	assert.Contains(t, rec.texts, "2024-01-05")
	assert.Contains(t, rec.texts, "12:00")
	assert.Len(t, rec.blits, 3, "only the legend icons")
}

func TestCompose_Annotations(t *testing.T) {
	c := New(DefaultLayout(), testIcons())
	g := timeline.DayGroup{Records: []record.Record{
		{Timestamp: at(7, 30), FastInsulin: 2, FastInsulinUnits: 6},
		{Timestamp: at(8, 0), FoodNonNumeric: 1},
		{Timestamp: at(22, 0), Carbohydrate: 30},
	}}

	rec := &recorder{}
	require.NoError(t, c.Compose(rec, g))

	assert.Contains(t, rec.texts, "6")
	assert.NotContains(t, rec.texts, "2")
	assert.Contains(t, rec.texts, "1")
	assert.Contains(t, rec.texts, "30")
	assert.Len(t, rec.blits, 3+3)
}

func TestCompose_SlowInsulinPolicyOverride(t *testing.T) {
	g := timeline.DayGroup{Records: []record.Record{{Timestamp: at(22, 0), Carbohydrate: 30}}}

	withFallback := &recorder{}
	require.NoError(t, New(DefaultLayout(), testIcons()).Compose(withFallback, g))

	doseOnly := &recorder{}
	c := New(DefaultLayout(), testIcons(), WithPolicy(Policy{SlowInsulin: record.SlowInsulinDose}))
	require.NoError(t, c.Compose(doseOnly, g))

	assert.Contains(t, withFallback.texts, "30")
	assert.NotContains(t, doseOnly.texts, "30")
	assert.Equal(t, withFallback.lines-1, doseOnly.lines, "no event marker without an amount")
	assert.Len(t, doseOnly.blits, 3)
}

func TestSlowInsulinOrCarbohydrate(t *testing.T) {
	assert.Equal(t, 8, SlowInsulinOrCarbohydrate(record.Record{SlowInsulinUnits: 8, Carbohydrate: 30}))
	assert.Equal(t, 5, SlowInsulinOrCarbohydrate(record.Record{SlowInsulin: 5, SlowInsulinNonNumeric: 1}))
	assert.Equal(t, 1, SlowInsulinOrCarbohydrate(record.Record{SlowInsulinNonNumeric: 1, Carbohydrate: 30}))
	assert.Equal(t, 30, SlowInsulinOrCarbohydrate(record.Record{Carbohydrate: 30}))
	assert.Equal(t, 0, SlowInsulinOrCarbohydrate(record.Record{}))
}

func TestCompose_Pixels(t *testing.T) {
	l := DefaultLayout()
	c := New(l, testIcons())
	g := timeline.DayGroup{Records: []record.Record{
		{Timestamp: at(8, 0), GlucoseScanned: 120},
		{Timestamp: at(9, 0), FastInsulinUnits: 4},
		{Timestamp: at(12, 0), GlucoseHistory: 50},
	}}

	raster, err := NewRaster(l.Width, l.Height)
	require.NoError(t, err)
	require.NoError(t, c.Compose(raster, g))
	img := raster.Image()
	area := newPlotArea(l)

	assert.Equal(t, white, img.RGBAAt(0, 0))
	assert.Equal(t, lowBand, img.RGBAAt(area.x(22*time.Hour), area.y(-90)))
	assert.Equal(t, inRange, img.RGBAAt(area.x(22*time.Hour), area.y(120)))

	high := area.pt(8*time.Hour, 120)
	assert.Equal(t, black, img.RGBAAt(high.X-4, high.Y))
	low := area.pt(12*time.Hour, 50)
	assert.Equal(t, red, img.RGBAAt(low.X+4, low.Y))

	icon := area.pt(9*time.Hour, l.AnnotationTop)
	assert.Equal(t, fastColor, img.RGBAAt(icon.X+6, icon.Y+6))

	legend := area.pt(0, l.fastRow())
	assert.Equal(t, fastColor, img.RGBAAt(legend.X+6, legend.Y+6))

	marker := area.pt(9*time.Hour-l.MarkerOffset, 250)
	assert.Equal(t, black, img.RGBAAt(marker.X, marker.Y))
}

func TestCompose_Errors(t *testing.T) {
	c := New(DefaultLayout(), testIcons())
	assert.Error(t, c.Compose(&recorder{}, timeline.DayGroup{}))

	noIcons := New(DefaultLayout(), IconSet{})
	g := timeline.DayGroup{Records: []record.Record{{Timestamp: at(1, 0)}}}
	assert.Error(t, noIcons.Compose(&recorder{}, g))
}

func TestCompose_MarkerNearMidnight(t *testing.T) {
	l := DefaultLayout()
	area := newPlotArea(l)
	edge := image.Pt(area.rect.Min.X+1, area.y(250))

	draw := func(records ...record.Record) *image.RGBA {
		raster, err := NewRaster(l.Width, l.Height)
		require.NoError(t, err)
		require.NoError(t, New(l, testIcons()).Compose(raster, timeline.DayGroup{Records: records}))
		return raster.Image()
	}

	quiet := draw(record.Record{Timestamp: at(0, 2)})
	assert.NotEqual(t, black, quiet.RGBAAt(edge.X, edge.Y))

	early := draw(record.Record{Timestamp: at(0, 2), FastInsulinUnits: 4})
	assert.Equal(t, black, early.RGBAAt(edge.X, edge.Y), "the marker stays inside the plot")
}

func TestEncode_WritesPNG(t *testing.T) {
	c := New(DefaultLayout(), testIcons())
	g := timeline.DayGroup{Records: []record.Record{{Timestamp: at(8, 0), GlucoseScanned: 110}}}

	var buf bytes.Buffer
	require.NoError(t, c.Encode(&buf, g))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 800, 600), img.Bounds())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }

func TestEncode_Failures(t *testing.T) {
	c := New(DefaultLayout(), testIcons())
	g := timeline.DayGroup{Records: []record.Record{{Timestamp: at(8, 0), GlucoseScanned: 110}}}

	err := c.Encode(failingWriter{}, g)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrChartRender))

	err = New(DefaultLayout(), IconSet{}).Encode(io.Discard, g)
	assert.True(t, errors.Is(err, errors.ErrChartRender))
}

func TestLoadIcons(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{FastInsulinIcon, FoodIcon, SlowInsulinIcon} {
		f, err := os.Create(filepath.Join(dir, name))
		require.NoError(t, err)
		require.NoError(t, png.Encode(f, solid(fastColor, 64)))
		require.NoError(t, f.Close())
	}

	icons, err := LoadIcons(dir, 12)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 12, 12), icons.FastInsulin.Bounds())
	assert.Equal(t, image.Rect(0, 0, 12, 12), icons.Food.Bounds())
	assert.Equal(t, image.Rect(0, 0, 12, 12), icons.SlowInsulin.Bounds())

	require.NoError(t, os.Remove(filepath.Join(dir, FoodIcon)))
	_, err = LoadIcons(dir, 12)
	assert.Error(t, err)
}

func TestLayoutFromConfig(t *testing.T) {
	l := LayoutFromConfig(config.ChartConfig{Width: 1000, TargetHigh: 200})
	assert.Equal(t, 1000, l.Width)
	assert.Equal(t, 600, l.Height)
	assert.Equal(t, 60, l.TargetLow)
	assert.Equal(t, 200, l.TargetHigh)
}

func TestRaster_ClipAndText(t *testing.T) {
	r, err := NewRaster(50, 50)
	require.NoError(t, err)
	clipped := r.Clip(image.Rect(10, 10, 20, 20))
	clipped.FillRect(image.Rect(0, 0, 50, 50), black)
	clipped.Line(image.Pt(0, 30), image.Pt(49, 30), black)

	assert.Equal(t, black, r.Image().RGBAAt(15, 15))
	assert.Equal(t, color.RGBA{}, r.Image().RGBAAt(5, 5))
	assert.Equal(t, color.RGBA{}, r.Image().RGBAAt(25, 30), "lines are clipped too")

	size := r.TextSize("12", 1)
	assert.Positive(t, size.X)
	assert.Positive(t, size.Y)
	assert.Greater(t, r.TextSize("1200", 1).X, size.X)
	assert.Greater(t, r.TextSize("12", 2).Y, size.Y)
	assert.Equal(t, image.Point{}, r.TextSize("", 1))
}

func TestRaster_Primitives(t *testing.T) {
	r, err := NewRaster(40, 40)
	require.NoError(t, err)
	r.FillRect(r.Bounds(), white)
	r.Line(image.Pt(5, 2), image.Pt(5, 30), black)
	r.Point(image.Pt(25, 25), 5, red)
	r.Text(image.Pt(2, 32), "8", black, 1)

	img := r.Image()
	assert.Equal(t, black, img.RGBAAt(5, 10))
	assert.Equal(t, white, img.RGBAAt(6, 10))
	assert.Equal(t, red, img.RGBAAt(25, 25))
	assert.Equal(t, red, img.RGBAAt(21, 25))
	assert.Equal(t, white, img.RGBAAt(25, 35))

	inked := false
	for y := 32; y < 40 && !inked; y++ {
		for x := 2; x < 12; x++ {
			if img.RGBAAt(x, y) != white {
				inked = true
				break
			}
		}
	}
	assert.True(t, inked, "text draws glyph pixels below its top-left corner")

	var buf bytes.Buffer
	require.NoError(t, r.Encode(&buf))
}
