package viewport

import (
	"math"

	"github.com/vishalmakwana111/everyonedraw/pkg/pixel"
)

const (
	// CellSize is the world-space edge length of one grid cell.
	CellSize = 32
	// ZoomSensitivity scales wheel deltas into zoom factors.
	ZoomSensitivity = 0.001
	MinZoom         = 0.1
	MaxZoom         = 30
	// GridZoomThreshold is the zoom above which grid lines are drawn.
	GridZoomThreshold = 5
)

type Point struct {
	X, Y float64
}

func (p Point) Add(o Point) Point {
	return Point{X: p.X + o.X, Y: p.Y + o.Y}
}

func (p Point) Sub(o Point) Point {
	return Point{X: p.X - o.X, Y: p.Y - o.Y}
}

func (p Point) Scale(f float64) Point {
	return Point{X: p.X * f, Y: p.Y * f}
}

func ScreenToWorld(screen, offset Point, zoom float64) Point {
	return screen.Sub(offset).Scale(1 / zoom)
}

func WorldToScreen(world, offset Point, zoom float64) Point {
	return world.Scale(zoom).Add(offset)
}

// WorldToCell floors each component so negative world coordinates land in the cell that contains them.
func WorldToCell(world Point, cellSize float64) pixel.Coord {
	return pixel.Coord{
		X: int(math.Floor(world.X / cellSize)),
		Y: int(math.Floor(world.Y / cellSize)),
	}
}

// ZoomAt returns the offset that keeps pivot over the same world point when zooming from oldZoom to newZoom.
func ZoomAt(pivot Point, oldZoom, newZoom float64, oldOffset Point) Point {
	return pivot.Sub(pivot.Sub(oldOffset).Scale(newZoom / oldZoom))
}

func ClampZoom(zoom float64) float64 {
	if math.IsNaN(zoom) {
		return 1
	}
	return math.Max(MinZoom, math.Min(zoom, MaxZoom))
}
