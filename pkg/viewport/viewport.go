package viewport

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/vishalmakwana111/everyonedraw/pkg/pixel"
)

// Viewport is the screen-to-world mapping in effect: world = (screen - Offset) / Zoom.
type Viewport struct {
	Offset Point
	Zoom   float64
}

// Default is the view a client starts with when nothing else is known.
var Default = Viewport{Zoom: 1}

func New(offset Point, zoom float64) Viewport {
	return Viewport{Offset: offset, Zoom: ClampZoom(zoom)}
}

func (v Viewport) ScreenToWorld(p Point) Point {
	return ScreenToWorld(p, v.Offset, v.Zoom)
}

func (v Viewport) WorldToScreen(p Point) Point {
	return WorldToScreen(p, v.Offset, v.Zoom)
}

func (v Viewport) ScreenToCell(p Point) pixel.Coord {
	return WorldToCell(v.ScreenToWorld(p), CellSize)
}

func (v Viewport) Pan(dx, dy float64) Viewport {
	v.Offset = v.Offset.Add(Point{X: dx, Y: dy})
	return v
}

// Wheel applies one wheel tick around pivot. It reports false and leaves the viewport untouched when the clamped
// zoom would not change, so the offset never jitters at the zoom limits.
func (v Viewport) Wheel(pivot Point, deltaY float64) (Viewport, bool) {
	factor := 1 - deltaY*ZoomSensitivity
	newZoom := ClampZoom(v.Zoom * factor)
	if newZoom == v.Zoom {
		return v, false
	}
	return Viewport{
		Offset: ZoomAt(pivot, v.Zoom, newZoom, v.Offset),
		Zoom:   newZoom,
	}, true
}

// VisibleCells returns the cells covered by a width x height screen.
func (v Viewport) VisibleCells(width, height float64) pixel.Rect {
	lo := v.ScreenToCell(Point{})
	hi := v.ScreenToCell(Point{X: width, Y: height})
	return pixel.Rect{XMin: lo.X, YMin: lo.Y, XMax: hi.X, YMax: hi.Y}
}

func (v Viewport) ShowGrid() bool {
	return v.Zoom > GridZoomThreshold
}

// Path encodes the viewport as "/x/y/zoom" for shareable links. Offsets are rounded to whole screen pixels.
func (v Viewport) Path() string {
	return fmt.Sprintf("/%d/%d/%s",
		int(math.Round(v.Offset.X)),
		int(math.Round(v.Offset.Y)),
		strconv.FormatFloat(v.Zoom, 'f', -1, 64),
	)
}

// ParsePath reads a viewport from "/x/y/zoom". Missing or unparseable segments keep their defaults.
func ParsePath(path string) Viewport {
	v := Default
	segments := strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
	parse := func(i int) (float64, bool) {
		if i >= len(segments) {
			return 0, false
		}
		f, err := strconv.ParseFloat(segments[i], 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	if x, ok := parse(0); ok {
		v.Offset.X = x
	}
	if y, ok := parse(1); ok {
		v.Offset.Y = y
	}
	if z, ok := parse(2); ok && z > 0 {
		v.Zoom = ClampZoom(z)
	}
	return v
}
