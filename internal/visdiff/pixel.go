package visdiff

import (
	"fmt"
	"image"
	"image/png"
	"math"
	"os"

	"github.com/orisano/pixelmatch"
)

// perChannelThreshold is the fixed sensitivity of the anti-aliasing
// aware comparison (pixelmatch's native scale, 0..1).
const perChannelThreshold = 0.1

// DefaultSignificantPercent flags a capture as visually changed when
// exceeded. Configurable at the service level; this is the default.
const DefaultSignificantPercent = 0.5

// Pixels compares two screenshots. When dimensions differ no aligned
// comparison is possible: the result is a maximal 100% difference with
// no visualization. When they match, a visualization highlighting the
// differing pixels is written to diffPath.
func Pixels(beforePath, afterPath, diffPath string, significantPercent float64) (*PixelStats, error) {
	before, err := readPNG(beforePath)
	if err != nil {
		return nil, err
	}
	after, err := readPNG(afterPath)
	if err != nil {
		return nil, err
	}

	bb, ab := before.Bounds(), after.Bounds()
	total := ab.Dx() * ab.Dy()

	if bb.Dx() != ab.Dx() || bb.Dy() != ab.Dy() {
		return &PixelStats{
			DiffPixels:  total,
			TotalPixels: total,
			DiffPercent: 100,
			Significant: true,
		}, nil
	}

	var vis image.Image
	count, err := pixelmatch.MatchPixel(before, after,
		pixelmatch.Threshold(perChannelThreshold),
		pixelmatch.WriteTo(&vis),
	)
	if err != nil {
		return nil, fmt.Errorf("visdiff: pixel match: %w", err)
	}

	percent := 0.0
	if total > 0 {
		percent = math.Round(float64(count)/float64(total)*100*100) / 100
	}

	stats := &PixelStats{
		DiffPixels:  count,
		TotalPixels: total,
		DiffPercent: percent,
		Significant: percent > significantPercent,
	}

	if diffPath != "" && vis != nil {
		if err := writePNG(diffPath, vis); err != nil {
			return nil, err
		}
		stats.DiffImage = diffPath
	}
	return stats, nil
}

func readPNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("visdiff: open %s: %w", path, err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("visdiff: decode %s: %w", path, err)
	}
	return img, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("visdiff: create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("visdiff: encode %s: %w", path, err)
	}
	return f.Close()
}
