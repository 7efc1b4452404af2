package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/vishalmakwana111/everyonedraw/pkg/config"
	"github.com/vishalmakwana111/everyonedraw/pkg/pixel"
	"github.com/vishalmakwana111/everyonedraw/pkg/protocol"
	"github.com/vishalmakwana111/everyonedraw/pkg/render"
	"github.com/vishalmakwana111/everyonedraw/pkg/store"
)

func main() {
	if err := mainInner(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func mainInner() error {
	if err := config.Load(); err != nil {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	storeVar := flag.String("store", config.String(config.EnvStore, "sqlite://everyonedraw.sqlite3"), "the pixel store to read")
	scaleVar := flag.Int("scale", 8, "image pixels per cell")
	gridVar := flag.Bool("grid", false, "draw cell borders")
	outVar := flag.String("out", "", "write the png here instead of a temp file")
	jsonVar := flag.Bool("json", false, "print the pixels as json instead of rendering")
	logJSONVar := flag.Bool("log-json", false, "log as json")
	flag.Parse()
	config.SetupLogging(*logJSONVar, slog.LevelInfo)

	if flag.NArg() != 4 {
		return fmt.Errorf("expected four position arguments: xMin yMin xMax yMax")
	}
	rect, err := parseRect(flag.Args())
	if err != nil {
		return err
	}

	ctx := context.Background()
	st, err := store.Open(ctx, *storeVar)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	pixels, err := st.QueryRange(ctx, rect)
	if err != nil {
		return fmt.Errorf("failed to query: %w", err)
	}
	slog.Info("loaded pixels", "rect", rect, "count", len(pixels))

	if *jsonVar {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(pixels)
	}

	opts := render.Options{Scale: *scaleVar, Grid: *gridVar}
	if *outVar == "" {
		tf, err := render.ToTemp(pixels, rect, opts)
		if err != nil {
			return fmt.Errorf("failed to render: %w", err)
		}
		slog.Info("rendered", "path", "file://"+tf)
		return nil
	}
	f, err := os.Create(*outVar)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()
	if err := render.PNG(f, pixels, rect, opts); err != nil {
		return fmt.Errorf("failed to render: %w", err)
	}
	slog.Info("rendered", "path", *outVar)
	return nil
}

func parseRect(args []string) (pixel.Rect, error) {
	var vals [4]int
	for i, a := range args {
		v, err := strconv.Atoi(a)
		if err != nil {
			return pixel.Rect{}, fmt.Errorf("failed to parse bound %q: %w", a, err)
		}
		if err := protocol.ValidateCoordinate(v); err != nil {
			return pixel.Rect{}, err
		}
		vals[i] = v
	}
	return pixel.Rect{XMin: vals[0], YMin: vals[1], XMax: vals[2], YMax: vals[3]}, nil
}
