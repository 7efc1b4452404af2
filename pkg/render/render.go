package render

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/fogleman/gg"

	"github.com/vishalmakwana111/everyonedraw/pkg/pixel"
)

const (
	Background = "#FDF6E3"
	GridColor  = "#CCCCCC"
	// MaxDimension caps either side of a rendered image in image pixels.
	MaxDimension = 4096
)

var ErrTooLarge = errors.New("image too large")

type Options struct {
	// Scale is the edge length of one cell in image pixels.
	Scale int
	// Grid draws cell borders.
	Grid bool
}

// Draw paints the cells of r into a new context. Pixels outside r are ignored.
func Draw(pixels []pixel.Pixel, r pixel.Rect, opts Options) (*gg.Context, error) {
	if opts.Scale <= 0 {
		opts.Scale = 1
	}
	if r.Empty() {
		return nil, fmt.Errorf("nothing to render: empty rectangle %+v", r)
	}
	if r.Width() > MaxDimension/opts.Scale || r.Height() > MaxDimension/opts.Scale {
		return nil, fmt.Errorf("%w: %dx%d cells at scale %d", ErrTooLarge, r.Width(), r.Height(), opts.Scale)
	}
	scale := float64(opts.Scale)
	dc := gg.NewContext(r.Width()*opts.Scale, r.Height()*opts.Scale)
	dc.SetHexColor(Background)
	dc.Clear()

	for _, p := range pixels {
		if !r.Contains(p.Coord()) {
			continue
		}
		dc.SetHexColor(p.Color)
		dc.DrawRectangle(float64(p.X-r.XMin)*scale, float64(p.Y-r.YMin)*scale, scale, scale)
		dc.Fill()
	}

	if opts.Grid {
		dc.SetHexColor(GridColor)
		dc.SetLineWidth(1)
		for x := 0; x <= r.Width(); x++ {
			dc.DrawLine(float64(x)*scale, 0, float64(x)*scale, float64(dc.Height()))
		}
		for y := 0; y <= r.Height(); y++ {
			dc.DrawLine(0, float64(y)*scale, float64(dc.Width()), float64(y)*scale)
		}
		dc.Stroke()
	}
	return dc, nil
}

// PNG renders r and encodes it to w.
func PNG(w io.Writer, pixels []pixel.Pixel, r pixel.Rect, opts Options) error {
	dc, err := Draw(pixels, r, opts)
	if err != nil {
		return err
	}
	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

// ToTemp renders r into a fresh file in the temp directory and returns its path.
func ToTemp(pixels []pixel.Pixel, r pixel.Rect, opts Options) (string, error) {
	tf := filepath.Join(os.TempDir(), fmt.Sprintf("%d%d.png", time.Now().UnixNano(), rand.Int()))
	dc, err := Draw(pixels, r, opts)
	if err != nil {
		return "", err
	}
	if err := dc.SavePNG(tf); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", tf, err)
	}
	return tf, nil
}
