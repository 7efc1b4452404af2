package client

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vishalmakwana111/everyonedraw/pkg/chunk"
	"github.com/vishalmakwana111/everyonedraw/pkg/grid"
	"github.com/vishalmakwana111/everyonedraw/pkg/pixel"
	"github.com/vishalmakwana111/everyonedraw/pkg/protocol"
	"github.com/vishalmakwana111/everyonedraw/pkg/viewport"
)

// Outbound is where a session sends its proposals and queries. *Channel satisfies it.
type Outbound interface {
	ProposeSet(pixel.Pixel)
	ProposeDelete(pixel.Coord)
	QueryRange(pixel.Rect)
}

// Session is one user's view of the canvas. Viewport changes are debounced: once they settle the session loads any
// chunks that became visible and reports the new viewport to the settle callback.
type Session struct {
	grid     *grid.Grid
	loader   *chunk.Loader
	debounce *chunk.Debouncer
	out      Outbound

	mu       sync.Mutex
	view     viewport.Viewport
	width    float64
	height   float64
	selected string
	hover    pixel.Coord
	hovering bool
	onSettle func(viewport.Viewport)
}

// NewSession returns a session for a width x height screen showing the default viewport with the first palette
// colour selected. Nothing is loaded until Refresh or the first viewport change.
func NewSession(out Outbound, width, height float64, debounce time.Duration) *Session {
	return &Session{
		grid:     grid.New(),
		loader:   chunk.NewLoader(out.QueryRange),
		debounce: chunk.NewDebouncer(debounce),
		out:      out,
		view:     viewport.Default,
		width:    width,
		height:   height,
		selected: pixel.Palette[0],
	}
}

func (s *Session) Grid() *grid.Grid {
	return s.grid
}

func (s *Session) Viewport() viewport.Viewport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view
}

// Visible returns the cells currently on screen.
func (s *Session) Visible() pixel.Rect {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.VisibleCells(s.width, s.height)
}

// OnSettle sets the callback run after each debounced viewport change.
func (s *Session) OnSettle(fn func(viewport.Viewport)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSettle = fn
}

// Refresh loads the visible chunks immediately.
func (s *Session) Refresh() {
	s.loader.Load(s.Visible())
}

func (s *Session) SetViewport(v viewport.Viewport) {
	s.change(func() { s.view = v })
}

func (s *Session) Pan(dx, dy float64) {
	s.change(func() { s.view = s.view.Pan(dx, dy) })
}

// Wheel zooms around pivot and reports whether the zoom changed.
func (s *Session) Wheel(pivot viewport.Point, deltaY float64) bool {
	var changed bool
	s.mu.Lock()
	s.view, changed = s.view.Wheel(pivot, deltaY)
	s.mu.Unlock()
	if changed {
		s.debounce.Trigger(s.settle)
	}
	return changed
}

func (s *Session) Resize(width, height float64) {
	s.change(func() {
		s.width = width
		s.height = height
	})
}

func (s *Session) change(fn func()) {
	s.mu.Lock()
	fn()
	s.mu.Unlock()
	s.debounce.Trigger(s.settle)
}

func (s *Session) settle() {
	s.mu.Lock()
	v := s.view
	visible := v.VisibleCells(s.width, s.height)
	onSettle := s.onSettle
	s.mu.Unlock()

	s.loader.Load(visible)
	if onSettle != nil {
		onSettle(v)
	}
}

// SelectColor picks the colour used by Click. pixel.Eraser makes clicks delete.
func (s *Session) SelectColor(c string) error {
	if c != pixel.Eraser {
		if err := protocol.ValidateColor(c); err != nil {
			return fmt.Errorf("failed to select color: %w", err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = c
	return nil
}

func (s *Session) Selected() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Click applies the selected colour to the cell under p locally and then proposes the change. It returns the cell.
// Cells beyond the coordinate range the server accepts are left alone and reported as an error.
func (s *Session) Click(p viewport.Point) (pixel.Coord, error) {
	s.mu.Lock()
	cell := s.view.ScreenToCell(p)
	intent := pixel.IntentFor(s.selected)
	s.mu.Unlock()

	if err := validateCell(cell); err != nil {
		slog.Warn("ignoring click outside the canvas", "x", cell.X, "y", cell.Y, "err", err)
		return cell, err
	}

	switch in := intent.(type) {
	case pixel.SetIntent:
		s.grid.Upsert(cell.X, cell.Y, in.Color)
		s.out.ProposeSet(pixel.Pixel{X: cell.X, Y: cell.Y, Color: in.Color})
	case pixel.DeleteIntent:
		s.grid.Delete(cell.X, cell.Y)
		s.out.ProposeDelete(cell)
	}
	slog.Debug("clicked", "x", cell.X, "y", cell.Y, "intent", fmt.Sprintf("%T", intent))
	return cell, nil
}

func validateCell(c pixel.Coord) error {
	if err := protocol.ValidateCoordinate(c.X); err != nil {
		return fmt.Errorf("x: %w", err)
	}
	if err := protocol.ValidateCoordinate(c.Y); err != nil {
		return fmt.Errorf("y: %w", err)
	}
	return nil
}

// Preview moves the hover cursor to the cell under p and returns that cell.
func (s *Session) Preview(p viewport.Point) pixel.Coord {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hover = s.view.ScreenToCell(p)
	s.hovering = true
	return s.hover
}

func (s *Session) ClearPreview() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hovering = false
}

// Hover returns the previewed cell, if any.
func (s *Session) Hover() (pixel.Coord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hover, s.hovering
}

func (s *Session) RangeResult(ps []pixel.Pixel) {
	s.grid.Merge(ps)
}

func (s *Session) SetApplied(p pixel.Pixel) {
	s.grid.Upsert(p.X, p.Y, p.Color)
}

func (s *Session) DeleteApplied(c pixel.Coord) {
	s.grid.Delete(c.X, c.Y)
}

// Close drops any pending viewport settle.
func (s *Session) Close() {
	s.debounce.Stop()
}
