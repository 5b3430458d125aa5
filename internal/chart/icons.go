package chart

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"
)

// Icon file names inside the resource directory.
const (
	FastInsulinIcon = "syringe.png"
	FoodIcon        = "apple.png"
	SlowInsulinIcon = "syringe_slow.png"
)

// IconSet holds the three annotation icons, already scaled to their drawn size.
type IconSet struct {
	FastInsulin image.Image
	Food        image.Image
	SlowInsulin image.Image
}

// LoadIcons reads the icons from dir and scales them to size x size.
func LoadIcons(dir string, size int) (IconSet, error) {
	var set IconSet
	for _, icon := range []struct {
		name string
		dst  *image.Image
	}{
		{FastInsulinIcon, &set.FastInsulin},
		{FoodIcon, &set.Food},
		{SlowInsulinIcon, &set.SlowInsulin},
	} {
		img, err := loadPNG(filepath.Join(dir, icon.name))
		if err != nil {
			return IconSet{}, err
		}
		*icon.dst = ScaleIcon(img, size)
	}
	return set, nil
}

func loadPNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open icon: %w", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode icon %s: %w", path, err)
	}
	return img, nil
}

// ScaleIcon resizes img to exactly size x size with nearest-neighbour sampling.
func ScaleIcon(img image.Image, size int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst
}
