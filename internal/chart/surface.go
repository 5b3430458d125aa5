package chart

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"github.com/golang/freetype/raster"
	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/image/draw"
)

// Surface is the set of drawing primitives the composer needs. Coordinates
// are pixels with the origin at the top-left corner.
type Surface interface {
	Bounds() image.Rectangle
	// Clip returns a view of the surface that only draws inside r.
	Clip(r image.Rectangle) Surface
	FillRect(r image.Rectangle, c color.Color)
	Line(p0, p1 image.Point, c color.Color)
	// Point draws a filled disc.
	Point(center image.Point, radius int, c color.Color)
	// Text draws s with its top-left corner at p, magnified by scale.
	Text(p image.Point, s string, c color.Color, scale int)
	TextSize(s string, scale int) image.Point
	// Blit copies img with its top-left corner at p.
	Blit(p image.Point, img image.Image)
	Encode(w io.Writer) error
}

// textPoints is the font size for scale 1.
const textPoints = 8.0

// canvas is the state shared by a Raster and its clipped views.
type canvas struct {
	img     *image.RGBA
	gc      *drawing.RasterGraphicContext
	painter *clipPainter
	err     error
}

// Raster is a Surface backed by an in-memory RGBA image and go-chart's
// raster graphic context, encoded as PNG.
type Raster struct {
	*canvas
	clip image.Rectangle
}

// NewRaster creates a width x height raster drawing text in go-chart's
// default font.
func NewRaster(width, height int) (*Raster, error) {
	font, err := gochart.GetDefaultFont()
	if err != nil {
		return nil, err
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	painter := &clipPainter{RGBAPainter: raster.NewRGBAPainter(img), clip: img.Bounds()}
	gc := drawing.NewRasterGraphicContextWithPainter(img, painter)
	gc.SetFont(font)
	gc.SetLineWidth(1)
	gc.SetLineCap(drawing.SquareCap)
	return &Raster{canvas: &canvas{img: img, gc: gc, painter: painter}, clip: img.Bounds()}, nil
}

// Image exposes the underlying image.
func (r *Raster) Image() *image.RGBA { return r.img }

func (r *Raster) Bounds() image.Rectangle { return r.img.Bounds() }

func (r *Raster) Clip(rect image.Rectangle) Surface {
	return &Raster{canvas: r.canvas, clip: r.clip.Intersect(rect)}
}

// begin points the painter at this view's clip rectangle.
func (r *Raster) begin() *drawing.RasterGraphicContext {
	r.painter.clip = r.clip
	r.gc.BeginPath()
	return r.gc
}

func (r *Raster) FillRect(rect image.Rectangle, c color.Color) {
	rect = rect.Canon().Intersect(r.clip)
	if rect.Empty() {
		return
	}
	gc := r.begin()
	gc.SetFillColor(c)
	gc.MoveTo(float64(rect.Min.X), float64(rect.Min.Y))
	gc.LineTo(float64(rect.Max.X), float64(rect.Min.Y))
	gc.LineTo(float64(rect.Max.X), float64(rect.Max.Y))
	gc.LineTo(float64(rect.Min.X), float64(rect.Max.Y))
	gc.Close()
	gc.Fill()
}

// Line strokes a 1-pixel line through the centers of the end pixels.
func (r *Raster) Line(p0, p1 image.Point, c color.Color) {
	gc := r.begin()
	gc.SetStrokeColor(c)
	gc.MoveTo(float64(p0.X)+0.5, float64(p0.Y)+0.5)
	gc.LineTo(float64(p1.X)+0.5, float64(p1.Y)+0.5)
	gc.Stroke()
}

func (r *Raster) Point(center image.Point, radius int, c color.Color) {
	gc := r.begin()
	gc.SetFillColor(c)
	gc.ArcTo(float64(center.X)+0.5, float64(center.Y)+0.5, float64(radius), float64(radius), 0, 2*math.Pi)
	gc.Close()
	gc.Fill()
}

func (r *Raster) Text(p image.Point, s string, c color.Color, scale int) {
	if s == "" {
		return
	}
	gc := r.begin()
	gc.SetFontSize(fontSize(scale))
	gc.SetFillColor(c)
	left, top, _, _, err := gc.GetStringBounds(s)
	if err != nil {
		r.fail(err)
		return
	}
	if _, err := gc.FillStringAt(s, float64(p.X)-left, float64(p.Y)-top); err != nil {
		r.fail(err)
	}
}

func (r *Raster) TextSize(s string, scale int) image.Point {
	if s == "" {
		return image.Point{}
	}
	r.gc.SetFontSize(fontSize(scale))
	left, top, right, bottom, err := r.gc.GetStringBounds(s)
	if err != nil {
		r.fail(err)
		return image.Point{}
	}
	return image.Pt(int(math.Ceil(right-left)), int(math.Ceil(bottom-top)))
}

func (r *Raster) Blit(p image.Point, img image.Image) {
	b := img.Bounds()
	dst := image.Rectangle{Min: p, Max: p.Add(b.Size())}
	clipped := dst.Intersect(r.clip)
	if clipped.Empty() {
		return
	}
	draw.Draw(r.img, clipped, img, b.Min.Add(clipped.Min.Sub(p)), draw.Over)
}

// Encode writes the image as PNG, or reports the first drawing error.
func (r *Raster) Encode(w io.Writer) error {
	if r.err != nil {
		return r.err
	}
	return png.Encode(w, r.img)
}

func (r *Raster) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func fontSize(scale int) float64 {
	return textPoints * float64(max(scale, 1))
}

// clipPainter drops the parts of rasterized spans outside clip before
// handing them to the RGBA painter.
type clipPainter struct {
	*raster.RGBAPainter
	clip image.Rectangle
}

func (p *clipPainter) Paint(ss []raster.Span, done bool) {
	kept := ss[:0]
	for _, s := range ss {
		if s.Y < p.clip.Min.Y || s.Y >= p.clip.Max.Y {
			continue
		}
		s.X0 = max(s.X0, p.clip.Min.X)
		s.X1 = min(s.X1, p.clip.Max.X)
		if s.X0 >= s.X1 {
			continue
		}
		kept = append(kept, s)
	}
	p.RGBAPainter.Paint(kept, done)
}
