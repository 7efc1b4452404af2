// Package grid holds a client's sparse view of the canvas: the pixels it has loaded, been told about or painted.
package grid

import (
	"sort"
	"sync"

	"github.com/vishalmakwana111/everyonedraw/pkg/pixel"
)

type ChangeKind int

const (
	Upserted ChangeKind = iota
	Deleted
	Merged
)

func (k ChangeKind) String() string {
	switch k {
	case Upserted:
		return "upserted"
	case Deleted:
		return "deleted"
	case Merged:
		return "merged"
	}
	return "unknown"
}

// Change describes one effective mutation. Deleted changes carry the removed pixels with their last colour.
type Change struct {
	Kind   ChangeKind
	Pixels []pixel.Pixel
}

// Grid maps coordinates to colours. Subscribers are notified after every effective change, outside the lock.
type Grid struct {
	mu     sync.RWMutex
	pixels map[pixel.Coord]string

	subMu   sync.Mutex
	subs    map[int]func(Change)
	nextSub int
}

func New() *Grid {
	return &Grid{
		pixels: make(map[pixel.Coord]string),
		subs:   make(map[int]func(Change)),
	}
}

// Upsert replaces whatever is at (x, y).
func (g *Grid) Upsert(x, y int, color string) {
	c := pixel.Coord{X: x, Y: y}
	g.mu.Lock()
	if old, ok := g.pixels[c]; ok && old == color {
		g.mu.Unlock()
		return
	}
	g.pixels[c] = color
	g.mu.Unlock()
	g.notify(Change{Kind: Upserted, Pixels: []pixel.Pixel{{X: x, Y: y, Color: color}}})
}

// Delete removes (x, y) and reports whether anything was there.
func (g *Grid) Delete(x, y int) bool {
	c := pixel.Coord{X: x, Y: y}
	g.mu.Lock()
	old, ok := g.pixels[c]
	if ok {
		delete(g.pixels, c)
	}
	g.mu.Unlock()
	if ok {
		g.notify(Change{Kind: Deleted, Pixels: []pixel.Pixel{{X: x, Y: y, Color: old}}})
	}
	return ok
}

// Merge upserts every pixel in ps. Cells not mentioned are left alone, so local edits outside a loaded range survive.
func (g *Grid) Merge(ps []pixel.Pixel) {
	changed := make([]pixel.Pixel, 0, len(ps))
	g.mu.Lock()
	for _, p := range ps {
		c := p.Coord()
		if old, ok := g.pixels[c]; ok && old == p.Color {
			continue
		}
		g.pixels[c] = p.Color
		changed = append(changed, p)
	}
	g.mu.Unlock()
	if len(changed) > 0 {
		g.notify(Change{Kind: Merged, Pixels: changed})
	}
}

func (g *Grid) Get(x, y int) (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	color, ok := g.pixels[pixel.Coord{X: x, Y: y}]
	return color, ok
}

func (g *Grid) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.pixels)
}

// Range returns the known pixels inside r ordered by x then y.
func (g *Grid) Range(r pixel.Rect) []pixel.Pixel {
	out := make([]pixel.Pixel, 0)
	if r.Empty() {
		return out
	}
	g.mu.RLock()
	for c, color := range g.pixels {
		if r.Contains(c) {
			out = append(out, pixel.Pixel{X: c.X, Y: c.Y, Color: color})
		}
	}
	g.mu.RUnlock()
	sortPixels(out)
	return out
}

// Snapshot returns every known pixel ordered by x then y.
func (g *Grid) Snapshot() []pixel.Pixel {
	g.mu.RLock()
	out := make([]pixel.Pixel, 0, len(g.pixels))
	for c, color := range g.pixels {
		out = append(out, pixel.Pixel{X: c.X, Y: c.Y, Color: color})
	}
	g.mu.RUnlock()
	sortPixels(out)
	return out
}

// Bounds returns the smallest rectangle holding every known pixel, and false when the grid is empty.
func (g *Grid) Bounds() (pixel.Rect, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	r := pixel.Rect{XMin: 1, XMax: 0}
	for c := range g.pixels {
		r = r.Union(pixel.Rect{XMin: c.X, YMin: c.Y, XMax: c.X, YMax: c.Y})
	}
	return r, !r.Empty()
}

// Subscribe registers fn for future changes. Calling the returned func removes it.
func (g *Grid) Subscribe(fn func(Change)) func() {
	g.subMu.Lock()
	defer g.subMu.Unlock()
	id := g.nextSub
	g.nextSub++
	g.subs[id] = fn
	return func() {
		g.subMu.Lock()
		defer g.subMu.Unlock()
		delete(g.subs, id)
	}
}

func (g *Grid) notify(c Change) {
	g.subMu.Lock()
	fns := make([]func(Change), 0, len(g.subs))
	for _, fn := range g.subs {
		fns = append(fns, fn)
	}
	g.subMu.Unlock()
	for _, fn := range fns {
		fn(c)
	}
}

func sortPixels(ps []pixel.Pixel) {
	sort.Slice(ps, func(i, j int) bool {
		if ps[i].X != ps[j].X {
			return ps[i].X < ps[j].X
		}
		return ps[i].Y < ps[j].Y
	})
}
