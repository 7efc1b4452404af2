package chunk

import (
	"log/slog"
	"sync"

	"github.com/vishalmakwana111/everyonedraw/pkg/pixel"
)

// Loader remembers which chunks this session has asked for and only queries the ones it has never requested.
// The requested set is never evicted, so a region is fetched at most once per session and afterwards kept fresh
// only by broadcast events.
type Loader struct {
	mu        sync.Mutex
	requested map[Key]struct{}
	query     func(pixel.Rect)
}

// NewLoader returns a Loader that issues range queries through query.
func NewLoader(query func(pixel.Rect)) *Loader {
	return &Loader{
		requested: make(map[Key]struct{}),
		query:     query,
	}
}

// Load checks every chunk intersecting visible. When some have never been requested it issues one query covering
// the chunk-aligned bounding box of those chunks, marks them requested and returns them.
func (l *Loader) Load(visible pixel.Rect) []Key {
	l.mu.Lock()
	var fresh []Key
	area := pixel.Rect{XMin: 1, XMax: 0}
	for _, k := range Cover(visible) {
		if _, ok := l.requested[k]; ok {
			continue
		}
		l.requested[k] = struct{}{}
		fresh = append(fresh, k)
		area = area.Union(k.Bounds())
	}
	l.mu.Unlock()

	if len(fresh) == 0 {
		return nil
	}
	slog.Debug("loading chunks", "chunks", len(fresh), "area", area)
	l.query(area)
	return fresh
}

func (l *Loader) Requested(k Key) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.requested[k]
	return ok
}

func (l *Loader) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.requested)
}
