package protocol

import (
	"errors"
	"reflect"
	"testing"

	"github.com/vishalmakwana111/everyonedraw/pkg/pixel"
)

func TestMessageConstants(t *testing.T) {
	verbs := map[string]string{
		MsgProposeSet:    "propose-set",
		MsgProposeDelete: "propose-delete",
		MsgQueryRange:    "query-range",
		MsgRangeResult:   "range-result",
		MsgSetApplied:    "set-applied",
		MsgDeleteApplied: "delete-applied",
	}
	for got, want := range verbs {
		if got != want {
			t.Fatalf("verb = %q, want %q", got, want)
		}
	}
}

func TestEncodeDecodeEnvelope(t *testing.T) {
	b, err := Encode(MsgSetApplied, pixel.Pixel{X: 3, Y: 4, Color: "#0000FF"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if string(b) != `{"t":"set-applied","p":{"x":3,"y":4,"color":"#0000FF"}}` {
		t.Fatalf("unexpected wire form %s", b)
	}
	env, err := DecodeEnvelope(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	p, err := DecodePayload[pixel.Pixel](env)
	if err != nil || p != (pixel.Pixel{X: 3, Y: 4, Color: "#0000FF"}) {
		t.Fatalf("payload = %+v, err %v", p, err)
	}
}

func TestEncodeRejectsEmpty(t *testing.T) {
	if _, err := Encode("", pixel.Coord{}); err == nil {
		t.Fatalf("expected error for empty type")
	}
	if _, err := Encode(MsgProposeDelete, nil); err == nil {
		t.Fatalf("expected error for nil payload")
	}
}

func TestDecodeEnvelopeErrors(t *testing.T) {
	for _, in := range []string{"", "not json", `{"p":{}}`, `[1,2]`} {
		if _, err := DecodeEnvelope([]byte(in)); !errors.Is(err, ErrMalformed) {
			t.Fatalf("DecodeEnvelope(%q) err = %v, want ErrMalformed", in, err)
		}
	}
}

func mustEnvelope(t *testing.T, raw string) Envelope {
	t.Helper()
	env, err := DecodeEnvelope([]byte(raw))
	if err != nil {
		t.Fatalf("decode envelope %s: %v", raw, err)
	}
	return env
}

func TestDecodeProposeSet(t *testing.T) {
	p, err := DecodeProposeSet(mustEnvelope(t, `{"t":"propose-set","p":{"x":-5,"y":0,"color":"#FF0000"}}`))
	if err != nil || p != (pixel.Pixel{X: -5, Y: 0, Color: "#FF0000"}) {
		t.Fatalf("got %+v, %v", p, err)
	}

	cases := map[string]error{
		`{"t":"propose-set","p":{"y":0,"color":"#FF0000"}}`:           ErrMissingField,
		`{"t":"propose-set","p":{"x":0,"color":"#FF0000"}}`:           ErrMissingField,
		`{"t":"propose-set","p":{"x":0,"y":0}}`:                       ErrMissingField,
		`{"t":"propose-set","p":{"x":0,"y":0,"color":""}}`:            ErrBadColor,
		`{"t":"propose-set","p":{"x":0,"y":0,"color":"ERASER"}}`:      ErrBadColor,
		`{"t":"propose-set","p":{"x":1.5,"y":0,"color":"#FF0000"}}`:   ErrMalformed,
		`{"t":"propose-set","p":{"x":"1","y":0,"color":"#FF0000"}}`:   ErrMalformed,
		`{"t":"propose-set","p":{"x":3000000000,"y":0,"color":"#F"}}`: ErrOutOfRange,
		`{"t":"propose-set"}`:                                         ErrMalformed,
	}
	for raw, want := range cases {
		if _, err := DecodeProposeSet(mustEnvelope(t, raw)); !errors.Is(err, want) {
			t.Fatalf("DecodeProposeSet(%s) err = %v, want %v", raw, err, want)
		}
	}
}

func TestDecodeProposeDelete(t *testing.T) {
	c, err := DecodeProposeDelete(mustEnvelope(t, `{"t":"propose-delete","p":{"x":7,"y":-8}}`))
	if err != nil || c != (pixel.Coord{X: 7, Y: -8}) {
		t.Fatalf("got %+v, %v", c, err)
	}
	if _, err := DecodeProposeDelete(mustEnvelope(t, `{"t":"propose-delete","p":{"x":7}}`)); !errors.Is(err, ErrMissingField) {
		t.Fatalf("err = %v, want ErrMissingField", err)
	}
}

func TestDecodeQueryRange(t *testing.T) {
	r, err := DecodeQueryRange(mustEnvelope(t, `{"t":"query-range","p":{"xMin":0,"yMin":0,"xMax":10,"yMax":10}}`))
	if err != nil || r != (pixel.Rect{XMax: 10, YMax: 10}) {
		t.Fatalf("got %+v, %v", r, err)
	}
	if _, err := DecodeQueryRange(mustEnvelope(t, `{"t":"query-range","p":{"xMin":0,"yMin":0,"xMax":10}}`)); !errors.Is(err, ErrMissingField) {
		t.Fatalf("err = %v, want ErrMissingField", err)
	}
	if _, err := DecodeQueryRange(mustEnvelope(t, `{"t":"query-range","p":{"xMin":-3000000000,"yMin":0,"xMax":10,"yMax":1}}`)); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("err = %v, want ErrOutOfRange", err)
	}
}

func TestDecodeRangeResult(t *testing.T) {
	ps, err := DecodeRangeResult(mustEnvelope(t, `{"t":"range-result","p":[{"x":1,"y":2,"color":"#000000"},{"x":-1,"y":0,"color":"#FFFFFF"}]}`))
	want := []pixel.Pixel{{X: 1, Y: 2, Color: "#000000"}, {X: -1, Y: 0, Color: "#FFFFFF"}}
	if err != nil || !reflect.DeepEqual(ps, want) {
		t.Fatalf("got %+v, %v", ps, err)
	}
	if ps, err := DecodeRangeResult(mustEnvelope(t, `{"t":"range-result","p":[]}`)); err != nil || len(ps) != 0 {
		t.Fatalf("empty result: %+v, %v", ps, err)
	}

	cases := []struct {
		raw  string
		want error
	}{
		{`{"t":"range-result","p":[{"x":7}]}`, ErrMissingField},
		{`{"t":"range-result","p":[{"x":1,"y":1,"color":"#000000"},{"x":1,"y":2}]}`, ErrMissingField},
		{`{"t":"range-result","p":[{"x":1,"y":2,"color":"ERASER"}]}`, ErrBadColor},
		{`{"t":"range-result","p":[{"x":3,"y":3,"color":""}]}`, ErrBadColor},
		{`{"t":"range-result","p":[{"x":3000000000,"y":3,"color":"#000000"}]}`, ErrOutOfRange},
		{`{"t":"range-result","p":{"x":1,"y":1,"color":"#000000"}}`, ErrMalformed},
	}
	for _, c := range cases {
		_, err := DecodeRangeResult(mustEnvelope(t, c.raw))
		if !errors.Is(err, c.want) || !errors.Is(err, ErrMalformed) {
			t.Fatalf("DecodeRangeResult(%s) err = %v, want %v", c.raw, err, c.want)
		}
	}
}
