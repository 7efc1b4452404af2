package pixel

// Pixel is a single coloured cell. At most one pixel exists per coordinate; an empty cell has no Pixel at all.
type Pixel struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Color string `json:"color"`
}

func (p Pixel) Coord() Coord {
	return Coord{X: p.X, Y: p.Y}
}

// Coord identifies a cell of the infinite grid.
type Coord struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Rect is a cell rectangle with inclusive bounds on all four sides.
type Rect struct {
	XMin int `json:"xMin"`
	YMin int `json:"yMin"`
	XMax int `json:"xMax"`
	YMax int `json:"yMax"`
}

// Empty reports whether the bounds are inverted, in which case the rectangle contains nothing.
func (r Rect) Empty() bool {
	return r.XMin > r.XMax || r.YMin > r.YMax
}

func (r Rect) Contains(c Coord) bool {
	return c.X >= r.XMin && c.X <= r.XMax && c.Y >= r.YMin && c.Y <= r.YMax
}

// Width and Height count cells, so a single-cell rectangle is 1x1.
func (r Rect) Width() int {
	if r.Empty() {
		return 0
	}
	return r.XMax - r.XMin + 1
}

func (r Rect) Height() int {
	if r.Empty() {
		return 0
	}
	return r.YMax - r.YMin + 1
}

// Union returns the smallest rectangle holding both r and o. Empty rectangles are ignored.
func (r Rect) Union(o Rect) Rect {
	if r.Empty() {
		return o
	}
	if o.Empty() {
		return r
	}
	return Rect{
		XMin: min(r.XMin, o.XMin),
		YMin: min(r.YMin, o.YMin),
		XMax: max(r.XMax, o.XMax),
		YMax: max(r.YMax, o.YMax),
	}
}
