package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vishalmakwana111/everyonedraw/pkg/pixel"
)

var (
	ErrMalformed    = errors.New("malformed message")
	ErrMissingField = errors.New("missing field")
	ErrOutOfRange   = errors.New("coordinate out of range")
	ErrBadColor     = errors.New("bad color")
)

func Encode(t string, payload any) ([]byte, error) {
	if t == "" {
		return nil, fmt.Errorf("trying to encode envelope with empty type")
	}
	if payload == nil {
		return nil, fmt.Errorf("trying to encode nil payload for %q", t)
	}
	pb, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{T: t, P: pb})
}

func DecodeEnvelope(b []byte) (Envelope, error) {
	if len(b) == 0 {
		return Envelope{}, fmt.Errorf("%w: empty envelope", ErrMalformed)
	}
	var e Envelope
	if err := json.Unmarshal(b, &e); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if e.T == "" {
		return Envelope{}, fmt.Errorf("%w: envelope without type", ErrMalformed)
	}
	return e, nil
}

// DecodePayload unmarshals the payload without validating it.
func DecodePayload[T any](env Envelope) (T, error) {
	var out T
	if len(env.P) == 0 {
		return out, fmt.Errorf("%w: empty payload for type %q", ErrMalformed, env.T)
	}
	if err := json.Unmarshal(env.P, &out); err != nil {
		return out, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return out, nil
}

// The wire* types use pointers so that a missing field can be told apart from a zero.
type wireCoord struct {
	X *int `json:"x"`
	Y *int `json:"y"`
}

type wirePixel struct {
	wireCoord
	Color *string `json:"color"`
}

type wireRect struct {
	XMin *int `json:"xMin"`
	YMin *int `json:"yMin"`
	XMax *int `json:"xMax"`
	YMax *int `json:"yMax"`
}

func DecodeProposeSet(env Envelope) (pixel.Pixel, error) {
	w, err := DecodePayload[wirePixel](env)
	if err != nil {
		return pixel.Pixel{}, err
	}
	return w.pixel()
}

// DecodeRangeResult validates every element like a proposed set. One bad element rejects the whole result.
func DecodeRangeResult(env Envelope) ([]pixel.Pixel, error) {
	ws, err := DecodePayload[[]wirePixel](env)
	if err != nil {
		return nil, err
	}
	out := make([]pixel.Pixel, 0, len(ws))
	for i, w := range ws {
		p, err := w.pixel()
		if err != nil {
			return nil, fmt.Errorf("%w: element %d: %w", ErrMalformed, i, err)
		}
		out = append(out, p)
	}
	return out, nil
}

func DecodeProposeDelete(env Envelope) (pixel.Coord, error) {
	w, err := DecodePayload[wireCoord](env)
	if err != nil {
		return pixel.Coord{}, err
	}
	return w.coord()
}

func DecodeQueryRange(env Envelope) (pixel.Rect, error) {
	w, err := DecodePayload[wireRect](env)
	if err != nil {
		return pixel.Rect{}, err
	}
	fields := []struct {
		name string
		v    *int
	}{{"xMin", w.XMin}, {"yMin", w.YMin}, {"xMax", w.XMax}, {"yMax", w.YMax}}
	for _, f := range fields {
		if f.v == nil {
			return pixel.Rect{}, fmt.Errorf("%w: %s", ErrMissingField, f.name)
		}
		if err := ValidateCoordinate(*f.v); err != nil {
			return pixel.Rect{}, fmt.Errorf("%s: %w", f.name, err)
		}
	}
	return pixel.Rect{XMin: *w.XMin, YMin: *w.YMin, XMax: *w.XMax, YMax: *w.YMax}, nil
}

func (w wirePixel) pixel() (pixel.Pixel, error) {
	c, err := w.wireCoord.coord()
	if err != nil {
		return pixel.Pixel{}, err
	}
	if w.Color == nil {
		return pixel.Pixel{}, fmt.Errorf("%w: color", ErrMissingField)
	}
	if err := ValidateColor(*w.Color); err != nil {
		return pixel.Pixel{}, err
	}
	return pixel.Pixel{X: c.X, Y: c.Y, Color: *w.Color}, nil
}

func (w wireCoord) coord() (pixel.Coord, error) {
	if w.X == nil {
		return pixel.Coord{}, fmt.Errorf("%w: x", ErrMissingField)
	}
	if w.Y == nil {
		return pixel.Coord{}, fmt.Errorf("%w: y", ErrMissingField)
	}
	if err := ValidateCoordinate(*w.X); err != nil {
		return pixel.Coord{}, fmt.Errorf("x: %w", err)
	}
	if err := ValidateCoordinate(*w.Y); err != nil {
		return pixel.Coord{}, fmt.Errorf("y: %w", err)
	}
	return pixel.Coord{X: *w.X, Y: *w.Y}, nil
}

func ValidateCoordinate(v int) error {
	if v < MinCoordinate || v > MaxCoordinate {
		return fmt.Errorf("%w: %d", ErrOutOfRange, v)
	}
	return nil
}

// ValidateColor accepts any short non-empty token except the eraser, which must travel as a delete instead.
func ValidateColor(c string) error {
	switch {
	case c == "":
		return fmt.Errorf("%w: empty", ErrBadColor)
	case len(c) > MaxColorLen:
		return fmt.Errorf("%w: longer than %d bytes", ErrBadColor, MaxColorLen)
	case c == pixel.Eraser:
		return fmt.Errorf("%w: eraser is not a color", ErrBadColor)
	}
	return nil
}
