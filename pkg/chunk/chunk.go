package chunk

import (
	"github.com/vishalmakwana111/everyonedraw/pkg/pixel"
)

// Size is the edge length of a chunk in cells.
const Size = 16

// Key identifies a chunk. It is derived from cell coordinates and never stored on the server.
type Key struct {
	X, Y int
}

func KeyOf(c pixel.Coord) Key {
	return Key{X: floorDiv(c.X, Size), Y: floorDiv(c.Y, Size)}
}

// Bounds returns the cells belonging to the chunk.
func (k Key) Bounds() pixel.Rect {
	return pixel.Rect{
		XMin: k.X * Size,
		YMin: k.Y * Size,
		XMax: k.X*Size + Size - 1,
		YMax: k.Y*Size + Size - 1,
	}
}

// Cover lists every chunk intersecting r, row by row.
func Cover(r pixel.Rect) []Key {
	if r.Empty() {
		return nil
	}
	lo := KeyOf(pixel.Coord{X: r.XMin, Y: r.YMin})
	hi := KeyOf(pixel.Coord{X: r.XMax, Y: r.YMax})
	keys := make([]Key, 0, (hi.X-lo.X+1)*(hi.Y-lo.Y+1))
	for y := lo.Y; y <= hi.Y; y++ {
		for x := lo.X; x <= hi.X; x++ {
			keys = append(keys, Key{X: x, Y: y})
		}
	}
	return keys
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
