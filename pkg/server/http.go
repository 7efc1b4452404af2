package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"

	"github.com/vishalmakwana111/everyonedraw/pkg/pixel"
	"github.com/vishalmakwana111/everyonedraw/pkg/protocol"
	"github.com/vishalmakwana111/everyonedraw/pkg/render"
)

const (
	defaultSnapshotScale = 4
	maxSnapshotScale     = 64
)

// Router serves the websocket endpoint plus read-only HTTP views of the canvas.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(func(handler http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			m := httpsnoop.CaptureMetrics(handler, writer, request)
			slog.Info("handled", "method", request.Method, "url", request.URL, "duration", m.Duration, "status", m.Code)
		})
	})

	r.Methods(http.MethodGet).Path("/ws").HandlerFunc(s.ServeWS)
	r.Methods(http.MethodGet).Path("/pixels").HandlerFunc(s.getPixels)
	r.Methods(http.MethodGet).Path("/snapshot.png").HandlerFunc(s.getSnapshot)
	r.Methods(http.MethodGet).Path("/healthz").HandlerFunc(s.getHealth)
	return r
}

func (s *Server) getPixels(writer http.ResponseWriter, request *http.Request) {
	rect, err := parseRect(request.URL.Query())
	if err != nil {
		http.Error(writer, err.Error(), http.StatusBadRequest)
		return
	}
	ctx, cancel := context.WithTimeout(request.Context(), s.StoreTimeout)
	defer cancel()
	pixels, err := s.store.QueryRange(ctx, rect)
	if err != nil {
		slog.Error("failed to query", "rect", rect, "err", err)
		writer.WriteHeader(http.StatusInternalServerError)
		return
	}
	writer.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(writer).Encode(pixels); err != nil {
		slog.Error("failed to write out", "err", err)
	}
}

func (s *Server) getSnapshot(writer http.ResponseWriter, request *http.Request) {
	q := request.URL.Query()
	rect, err := parseRect(q)
	if err != nil {
		http.Error(writer, err.Error(), http.StatusBadRequest)
		return
	}
	opts := render.Options{Scale: defaultSnapshotScale, Grid: q.Get("grid") == "true"}
	if raw := q.Get("scale"); raw != "" {
		scale, err := strconv.Atoi(raw)
		if err != nil || scale < 1 || scale > maxSnapshotScale {
			http.Error(writer, fmt.Sprintf("scale must be between 1 and %d", maxSnapshotScale), http.StatusBadRequest)
			return
		}
		opts.Scale = scale
	}

	ctx, cancel := context.WithTimeout(request.Context(), s.StoreTimeout)
	defer cancel()
	pixels, err := s.store.QueryRange(ctx, rect)
	if err != nil {
		slog.Error("failed to query", "rect", rect, "err", err)
		writer.WriteHeader(http.StatusInternalServerError)
		return
	}

	var buff bytes.Buffer
	if err := render.PNG(&buff, pixels, rect, opts); err != nil {
		if errors.Is(err, render.ErrTooLarge) {
			http.Error(writer, err.Error(), http.StatusBadRequest)
			return
		}
		slog.Error("failed to render", "err", err)
		writer.WriteHeader(http.StatusInternalServerError)
		return
	}
	writer.Header().Set("Content-Type", "image/png")
	if _, err := writer.Write(buff.Bytes()); err != nil {
		slog.Error("failed to write out", "err", err)
	}
}

func (s *Server) getHealth(writer http.ResponseWriter, _ *http.Request) {
	writer.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(writer).Encode(map[string]interface{}{
		"status":   "ok",
		"clients":  s.hub.NumClients(),
		"instance": s.hub.Instance(),
	}); err != nil {
		slog.Error("failed to write out", "err", err)
	}
}

func parseRect(q url.Values) (pixel.Rect, error) {
	var vals [4]int
	for i, name := range []string{"xMin", "yMin", "xMax", "yMax"} {
		raw := q.Get(name)
		if raw == "" {
			return pixel.Rect{}, fmt.Errorf("%w: %s", protocol.ErrMissingField, name)
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			return pixel.Rect{}, fmt.Errorf("%w: %s is not an integer", protocol.ErrMalformed, name)
		}
		if err := protocol.ValidateCoordinate(v); err != nil {
			return pixel.Rect{}, fmt.Errorf("%s: %w", name, err)
		}
		vals[i] = v
	}
	return pixel.Rect{XMin: vals[0], YMin: vals[1], XMax: vals[2], YMax: vals[3]}, nil
}
