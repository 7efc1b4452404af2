package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/vishalmakwana111/everyonedraw/pkg/config"
	"github.com/vishalmakwana111/everyonedraw/pkg/fanout"
	"github.com/vishalmakwana111/everyonedraw/pkg/server"
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
	addrVar := flag.String("addr", config.String(config.EnvAddr, "localhost:8080"), "the address to listen on")
	storeVar := flag.String("store", config.String(config.EnvStore, "sqlite://everyonedraw.sqlite3"), "the pixel store: sqlite://path, postgres://url or bolt://path")
	redisAddrVar := flag.String("redis-addr", config.String(config.EnvRedisAddr, ""), "redis address for fanout across instances, empty for a single instance")
	redisChannelVar := flag.String("redis-channel", config.String(config.EnvRedisChannel, "everyonedraw"), "redis pub/sub channel")
	storeTimeoutVar := flag.Duration("store-timeout", server.DefaultStoreTimeout, "the limit on each store call")
	logJSONVar := flag.Bool("log-json", false, "log as json")
	flag.Parse()
	config.SetupLogging(*logJSONVar, slog.LevelInfo)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slog.Info("Opening store", "store", *storeVar)
	st, err := store.Open(ctx, *storeVar)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	var relay fanout.Relay
	if *redisAddrVar != "" {
		r, err := fanout.NewRedisRelay(ctx, *redisAddrVar, *redisChannelVar)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer r.Close()
		relay = r
		slog.Info("Relaying through redis", "addr", *redisAddrVar, "channel", *redisChannelVar)
	}
	hub := fanout.New(relay)

	s := server.New(st, hub)
	s.StoreTimeout = *storeTimeoutVar

	wg := new(sync.WaitGroup)

	wg.Add(1)
	go func() {
		defer wg.Done()
		hub.Run(ctx)
	}()

	httpServer := &http.Server{Addr: *addrVar, Handler: s.Router()}

	wg.Add(1)
	go func() {
		defer wg.Done()
		slog.Info("Listening", "addr", *addrVar, "instance", hub.Instance())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server listen failed", "err", err)
			cancel()
		}
	}()

	exit := make(chan os.Signal, 1) // we need to reserve to buffer size 1, so the notifier are not blocked
	signal.Notify(exit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-exit:
		slog.Info("Signal caught", "sig", sig)
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	// Websocket connections are hijacked so Shutdown does not wait for them; stopping the hub closes them.
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("failed to shut down cleanly", "err", err)
	}
	cancel()
	wg.Wait()
	return nil
}
