package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/vishalmakwana111/everyonedraw/pkg/chunk"
	"github.com/vishalmakwana111/everyonedraw/pkg/client"
	"github.com/vishalmakwana111/everyonedraw/pkg/config"
	"github.com/vishalmakwana111/everyonedraw/pkg/pixel"
	"github.com/vishalmakwana111/everyonedraw/pkg/render"
	"github.com/vishalmakwana111/everyonedraw/pkg/viewport"
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
	serverVar := flag.String("server", config.String(config.EnvServer, "127.0.0.1:8080"), "the server to connect to")
	viewVar := flag.String("view", "/0/0/1", "the starting viewport as /x/y/zoom")
	widthVar := flag.Float64("width", 1280, "screen width in pixels")
	heightVar := flag.Float64("height", 720, "screen height in pixels")
	debounceVar := flag.Duration("debounce", config.Duration(config.EnvDebounce, chunk.DefaultDebounce), "how long viewport changes settle before loading")
	intervalVar := flag.Duration("interval", time.Second, "the base delay between actions")
	logJSONVar := flag.Bool("log-json", false, "log as json")
	flag.Parse()
	config.SetupLogging(*logJSONVar, slog.LevelInfo)

	ch, err := client.NewChannel(*serverVar)
	if err != nil {
		return err
	}
	session := client.NewSession(ch, *widthVar, *heightVar, *debounceVar)
	defer session.Close()
	session.OnSettle(func(v viewport.Viewport) {
		slog.Info("viewport settled", "path", v.Path(), "grid", v.ShowGrid(), "known", session.Grid().Len())
	})
	session.SetViewport(viewport.ParsePath(*viewVar))
	session.Refresh()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wg := new(sync.WaitGroup)

	wg.Add(1)
	go func() {
		defer wg.Done()
		ch.Run(ctx, session)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		actRandomlyContinuously(ctx, session, *widthVar, *heightVar, *intervalVar)
	}()

	exit := make(chan os.Signal, 1) // we need to reserve to buffer size 1, so the notifier are not blocked
	signal.Notify(exit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-exit
	slog.Info("Signal caught", "sig", sig)
	cancel()

	wg.Wait()

	visible := session.Visible()
	opts := render.Options{Scale: 4, Grid: session.Viewport().ShowGrid()}
	if tf, err := render.ToTemp(session.Grid().Range(visible), visible, opts); err != nil {
		slog.Error("failed to render", "err", err)
	} else {
		slog.Info("rendered", "path", "file://"+tf)
	}
	return nil
}

// actRandomlyContinuously paints, erases, pans and zooms like a restless user until ctx is done.
func actRandomlyContinuously(ctx context.Context, s *client.Session, width, height float64, interval time.Duration) {
	for {
		t := time.NewTimer(interval + interval*time.Duration(rand.Intn(3)))
		select {
		case <-t.C:
			at := viewport.Point{X: rand.Float64() * width, Y: rand.Float64() * height}
			switch n := rand.Intn(10); {
			case n < 6:
				color := pixel.Palette[rand.Intn(len(pixel.Palette))]
				if n == 0 {
					color = pixel.Eraser
				}
				if err := s.SelectColor(color); err != nil {
					slog.Error("failed to select color", "err", err)
					continue
				}
				s.Preview(at)
				cell, err := s.Click(at)
				if err != nil {
					continue
				}
				slog.Info("painted", "x", cell.X, "y", cell.Y, "color", color)
			case n < 9:
				dx, dy := (rand.Float64()-0.5)*width, (rand.Float64()-0.5)*height
				s.Pan(dx, dy)
				slog.Info("panned", "dx", dx, "dy", dy)
			default:
				if s.Wheel(at, (rand.Float64()-0.5)*400) {
					slog.Info("zoomed", "zoom", s.Viewport().Zoom)
				}
			}
		case <-ctx.Done():
			t.Stop()
			slog.Info("stopping scheduled actions")
			return
		}
	}
}
