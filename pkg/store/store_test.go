package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/vishalmakwana111/everyonedraw/pkg/pixel"
	"github.com/vishalmakwana111/everyonedraw/pkg/protocol"
)

type opener func(t *testing.T) Store

func backends() map[string]opener {
	return map[string]opener{
		"sqlite": func(t *testing.T) Store {
			s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "pixels.sqlite3"))
			if err != nil {
				t.Fatalf("open sqlite: %v", err)
			}
			return s
		},
		"bolt": func(t *testing.T) Store {
			s, err := OpenBolt(filepath.Join(t.TempDir(), "pixels.db"))
			if err != nil {
				t.Fatalf("open bolt: %v", err)
			}
			return s
		},
		"postgres": func(t *testing.T) Store {
			url := os.Getenv("EVERYONEDRAW_TEST_POSTGRES")
			if url == "" {
				t.Skip("EVERYONEDRAW_TEST_POSTGRES not set")
			}
			s, err := OpenPostgres(context.Background(), url)
			if err != nil {
				t.Fatalf("open postgres: %v", err)
			}
			if _, err := s.pool.Exec(context.Background(), `TRUNCATE pixels`); err != nil {
				t.Fatalf("truncate: %v", err)
			}
			return s
		},
	}
}

func forEachBackend(t *testing.T, fn func(t *testing.T, s Store)) {
	for name, open := range backends() {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			defer s.Close()
			fn(t, s)
		})
	}
}

func mustQuery(t *testing.T, s Store, r pixel.Rect) []pixel.Pixel {
	t.Helper()
	out, err := s.QueryRange(context.Background(), r)
	if err != nil {
		t.Fatalf("query %+v: %v", r, err)
	}
	return out
}

var everything = pixel.Rect{
	XMin: protocol.MinCoordinate, YMin: protocol.MinCoordinate,
	XMax: protocol.MaxCoordinate, YMax: protocol.MaxCoordinate,
}

func TestUpsertOverwrite(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		if err := s.Upsert(ctx, pixel.Pixel{X: 5, Y: 5, Color: "#FF0000"}); err != nil {
			t.Fatalf("upsert: %v", err)
		}
		if err := s.Upsert(ctx, pixel.Pixel{X: 5, Y: 5, Color: "#00FF00"}); err != nil {
			t.Fatalf("upsert: %v", err)
		}
		got := mustQuery(t, s, everything)
		want := []pixel.Pixel{{X: 5, Y: 5, Color: "#00FF00"}}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("got %+v, want %+v", got, want)
		}
	})
}

func TestDeleteIdempotent(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		_ = s.Upsert(ctx, pixel.Pixel{X: 1, Y: 1, Color: "#000000"})
		for i := 0; i < 2; i++ {
			if err := s.Delete(ctx, pixel.Coord{X: 2, Y: 2}); err != nil {
				t.Fatalf("delete absent #%d: %v", i, err)
			}
		}
		if err := s.Delete(ctx, pixel.Coord{X: 1, Y: 1}); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if err := s.Delete(ctx, pixel.Coord{X: 1, Y: 1}); err != nil {
			t.Fatalf("second delete: %v", err)
		}
		if got := mustQuery(t, s, everything); len(got) != 0 {
			t.Fatalf("expected empty store, got %+v", got)
		}
	})
}

func TestQueryRangeInclusive(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		for _, p := range []pixel.Pixel{
			{X: 0, Y: 0, Color: "a"},
			{X: 10, Y: 10, Color: "b"},
			{X: -1, Y: -1, Color: "c"},
			{X: 5, Y: 11, Color: "d"},
			{X: 11, Y: 5, Color: "e"},
			{X: 0, Y: 10, Color: "f"},
		} {
			if err := s.Upsert(ctx, p); err != nil {
				t.Fatalf("upsert %+v: %v", p, err)
			}
		}
		got := mustQuery(t, s, pixel.Rect{XMin: 0, YMin: 0, XMax: 10, YMax: 10})
		want := []pixel.Pixel{{X: 0, Y: 0, Color: "a"}, {X: 0, Y: 10, Color: "f"}, {X: 10, Y: 10, Color: "b"}}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("got %+v, want %+v", got, want)
		}

		got = mustQuery(t, s, pixel.Rect{XMin: -1, YMin: -1, XMax: -1, YMax: -1})
		if !reflect.DeepEqual(got, []pixel.Pixel{{X: -1, Y: -1, Color: "c"}}) {
			t.Fatalf("single cell query got %+v", got)
		}

		if got := mustQuery(t, s, pixel.Rect{XMin: 10, YMin: 0, XMax: 0, YMax: 10}); len(got) != 0 {
			t.Fatalf("inverted rect should be empty, got %+v", got)
		}
	})
}

func TestQueryRangeExtremes(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		corners := []pixel.Pixel{
			{X: protocol.MinCoordinate, Y: protocol.MinCoordinate, Color: "lo"},
			{X: protocol.MaxCoordinate, Y: protocol.MaxCoordinate, Color: "hi"},
		}
		for _, p := range corners {
			if err := s.Upsert(ctx, p); err != nil {
				t.Fatalf("upsert %+v: %v", p, err)
			}
		}
		if got := mustQuery(t, s, everything); !reflect.DeepEqual(got, corners) {
			t.Fatalf("got %+v, want %+v", got, corners)
		}
	})
}

func TestConcurrentUpsertsKeepOneRecord(t *testing.T) {
	forEachBackend(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		var wg sync.WaitGroup
		errs := make(chan error, 64)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				for j := 0; j < 8; j++ {
					if err := s.Upsert(ctx, pixel.Pixel{X: 3, Y: 4, Color: fmt.Sprintf("#%06d", i)}); err != nil {
						errs <- err
					}
				}
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Fatalf("concurrent upsert: %v", err)
		}
		got := mustQuery(t, s, pixel.Rect{XMin: 3, YMin: 4, XMax: 3, YMax: 4})
		if len(got) != 1 {
			t.Fatalf("expected one record, got %+v", got)
		}
	})
}

func TestBoltRejectsOutOfRangeUpsert(t *testing.T) {
	s, err := OpenBolt(filepath.Join(t.TempDir(), "pixels.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	err = s.Upsert(context.Background(), pixel.Pixel{X: protocol.MaxCoordinate + 1, Color: "#000000"})
	if !errors.Is(err, protocol.ErrOutOfRange) {
		t.Fatalf("err = %v, want ErrOutOfRange", err)
	}
}

func TestBoltKeyOrder(t *testing.T) {
	coords := [][2]int{{-5, 3}, {-5, 4}, {-1, -100}, {0, -1}, {0, 0}, {2, -7}}
	var prev []byte
	for _, c := range coords {
		k, err := boltKey(c[0], c[1])
		if err != nil {
			t.Fatalf("key %v: %v", c, err)
		}
		if x, y := decodeBoltKey(k); x != c[0] || y != c[1] {
			t.Fatalf("decode %v = %d,%d", c, x, y)
		}
		if prev != nil && string(prev) >= string(k) {
			t.Fatalf("keys out of order at %v", c)
		}
		prev = k
	}
}

func TestOpenScheme(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(context.Background(), "bolt://"+filepath.Join(dir, "a.db"))
	if err != nil {
		t.Fatalf("open bolt: %v", err)
	}
	if _, ok := s.(*Bolt); !ok {
		t.Fatalf("expected *Bolt, got %T", s)
	}
	_ = s.Close()

	s, err = Open(context.Background(), filepath.Join(dir, "b.sqlite3"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if _, ok := s.(*SQLite); !ok {
		t.Fatalf("expected *SQLite, got %T", s)
	}
	_ = s.Close()

	if _, err := Open(context.Background(), "mongo://x"); !errors.Is(err, ErrUnknownScheme) {
		t.Fatalf("err = %v, want ErrUnknownScheme", err)
	}
}
