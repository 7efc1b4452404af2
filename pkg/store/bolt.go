package store

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/vishalmakwana111/everyonedraw/pkg/pixel"
	"github.com/vishalmakwana111/everyonedraw/pkg/protocol"
)

var pixelsBucket = []byte("pixels")

// Bolt keeps one key per cell in a single bucket. Keys sort by x then y, so a rectangle is a cursor walk over the
// x columns it spans.
type Bolt struct {
	db *bolt.DB
}

func OpenBolt(path string) (*Bolt, error) {
	slog.Info("Opening database", "driver", "bbolt", "path", path)
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(pixelsBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}
	return &Bolt{db: db}, nil
}

// boltKey flips the sign bit of each 32-bit coordinate so big-endian byte order matches numeric order.
func boltKey(x, y int) ([]byte, error) {
	if err := protocol.ValidateCoordinate(x); err != nil {
		return nil, err
	}
	if err := protocol.ValidateCoordinate(y); err != nil {
		return nil, err
	}
	k := make([]byte, 8)
	binary.BigEndian.PutUint32(k[:4], uint32(int32(x))^(1<<31))
	binary.BigEndian.PutUint32(k[4:], uint32(int32(y))^(1<<31))
	return k, nil
}

func decodeBoltKey(k []byte) (int, int) {
	x := int32(binary.BigEndian.Uint32(k[:4]) ^ (1 << 31))
	y := int32(binary.BigEndian.Uint32(k[4:]) ^ (1 << 31))
	return int(x), int(y)
}

func (b *Bolt) Upsert(_ context.Context, p pixel.Pixel) error {
	k, err := boltKey(p.X, p.Y)
	if err != nil {
		return fmt.Errorf("failed to upsert pixel: %w", err)
	}
	if err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(pixelsBucket).Put(k, []byte(p.Color))
	}); err != nil {
		return fmt.Errorf("failed to upsert pixel: %w", err)
	}
	return nil
}

func (b *Bolt) Delete(_ context.Context, c pixel.Coord) error {
	k, err := boltKey(c.X, c.Y)
	if err != nil {
		// Nothing can be stored outside the key space.
		return nil
	}
	if err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(pixelsBucket).Delete(k)
	}); err != nil {
		return fmt.Errorf("failed to delete pixel: %w", err)
	}
	return nil
}

func (b *Bolt) QueryRange(ctx context.Context, r pixel.Rect) ([]pixel.Pixel, error) {
	out := make([]pixel.Pixel, 0)
	r = clampRect(r)
	if r.Empty() {
		return out, nil
	}
	err := b.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(pixelsBucket).Cursor()
		upper, _ := boltKey(r.XMax, r.YMax)
		for x := r.XMin; x <= r.XMax; {
			if err := ctx.Err(); err != nil {
				return err
			}
			seek, _ := boltKey(x, r.YMin)
			k, v := c.Seek(seek)
			if k == nil || bytes.Compare(k, upper) > 0 {
				return nil
			}
			kx, ky := decodeBoltKey(k)
			if kx != x || ky < r.YMin {
				// Jumped to a later column; restart there at yMin.
				x = kx
				continue
			}
			for ; k != nil; k, v = c.Next() {
				kx, ky = decodeBoltKey(k)
				if kx != x || ky > r.YMax {
					break
				}
				out = append(out, pixel.Pixel{X: kx, Y: ky, Color: string(v)})
			}
			x++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	return out, nil
}

func clampRect(r pixel.Rect) pixel.Rect {
	return pixel.Rect{
		XMin: max(r.XMin, protocol.MinCoordinate),
		YMin: max(r.YMin, protocol.MinCoordinate),
		XMax: min(r.XMax, protocol.MaxCoordinate),
		YMax: min(r.YMax, protocol.MaxCoordinate),
	}
}

func (b *Bolt) Close() error {
	return b.db.Close()
}
