// Package client is the browser-side half of the canvas: a reconnecting sync channel to the server and the session
// state that a renderer or headless bot drives.
package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/gorilla/websocket"

	"github.com/vishalmakwana111/everyonedraw/pkg/pixel"
	"github.com/vishalmakwana111/everyonedraw/pkg/protocol"
)

const (
	writeWait     = 10 * time.Second
	pongWait      = 60 * time.Second
	pingPeriod    = 25 * time.Second
	outboundQueue = 256
)

// Inbound receives server events. Calls are made one at a time from the channel's reader goroutine in the order
// the events arrived.
type Inbound interface {
	RangeResult([]pixel.Pixel)
	SetApplied(pixel.Pixel)
	DeleteApplied(pixel.Coord)
}

// Channel is a persistent websocket to the server. Outbound calls never block: messages are queued and sent by
// whichever connection is live, and dropped when the queue is full.
type Channel struct {
	url    string
	dialer *websocket.Dialer
	out    chan []byte

	// InitialBackoff and MaxBackoff bound the wait between reconnect attempts.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// OnConnect, when set, is called from Run after every successful dial.
	OnConnect func()
}

// NewChannel returns a channel to the server at addr. addr is either host:port or a full ws:// or wss:// URL.
func NewChannel(addr string) (*Channel, error) {
	u, err := wsURL(addr)
	if err != nil {
		return nil, err
	}
	return &Channel{
		url:            u,
		dialer:         websocket.DefaultDialer,
		out:            make(chan []byte, outboundQueue),
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     30 * time.Second,
	}, nil
}

func wsURL(addr string) (string, error) {
	if !strings.Contains(addr, "://") {
		addr = "ws://" + addr
	}
	u, err := url.Parse(addr)
	if err != nil {
		return "", fmt.Errorf("failed to parse server address: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws"
	}
	return u.String(), nil
}

func (c *Channel) URL() string {
	return c.url
}

func (c *Channel) ProposeSet(p pixel.Pixel) {
	c.enqueue(protocol.MsgProposeSet, p)
}

func (c *Channel) ProposeDelete(co pixel.Coord) {
	c.enqueue(protocol.MsgProposeDelete, co)
}

func (c *Channel) QueryRange(r pixel.Rect) {
	c.enqueue(protocol.MsgQueryRange, r)
}

func (c *Channel) enqueue(verb string, payload any) {
	b, err := protocol.Encode(verb, payload)
	if err != nil {
		slog.Error("failed to encode outbound message", "verb", verb, "err", err)
		return
	}
	select {
	case c.out <- b:
	default:
		slog.Warn("dropping outbound message, queue is full", "verb", verb)
	}
}

// Run keeps a connection open until ctx is done, redialling with exponential backoff whenever it drops. Every
// connection dispatches to the same in. Queries issued before a drop are not re-sent.
func (c *Channel) Run(ctx context.Context, in Inbound) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.InitialBackoff
	b.MaxInterval = c.MaxBackoff
	b.MaxElapsedTime = 0
	b.Reset()

	for {
		connected, err := c.connectAndServe(ctx, in)
		if ctx.Err() != nil {
			slog.Info("stopping sync channel")
			return
		}
		if connected {
			b.Reset()
		}
		wait := b.NextBackOff()
		slog.Error("sync channel down", "err", err, "retry_in", wait)
		t := time.NewTimer(wait)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			slog.Info("stopping sync channel")
			return
		}
	}
}

// connectAndServe runs one connection until it fails or ctx is done. It reports whether the dial succeeded.
func (c *Channel) connectAndServe(ctx context.Context, in Inbound) (bool, error) {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return false, fmt.Errorf("failed to dial: %w", err)
	}
	defer conn.Close()
	slog.Info("connected", "url", c.url)
	if c.OnConnect != nil {
		c.OnConnect()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	wg := new(sync.WaitGroup)
	wg.Add(1)
	go func() {
		defer wg.Done()
		c.writeLoop(ctx, conn)
	}()

	err = readLoop(conn, in)
	cancel()
	wg.Wait()
	return true, err
}

// writeLoop owns all data writes on conn. It closes conn on exit, which also ends the read loop.
func (c *Channel) writeLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = conn.Close()
	}()
	for {
		select {
		case msg := <-c.out:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				slog.Error("failed to write message", "err", err)
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				slog.Error("failed to write ping", "err", err)
				return
			}
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

func readLoop(conn *websocket.Conn, in Inbound) error {
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("failed to read message: %w", err)
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		if err := dispatch(raw, in); err != nil {
			slog.Warn("dropping malformed event", "err", err)
		}
	}
}

// dispatch decodes one server event and hands it to in. The applied events carry the same payloads as the
// proposals, so they are validated by the same decoders.
func dispatch(raw []byte, in Inbound) error {
	env, err := protocol.DecodeEnvelope(raw)
	if err != nil {
		return err
	}
	switch env.T {
	case protocol.MsgRangeResult:
		ps, err := protocol.DecodeRangeResult(env)
		if err != nil {
			return err
		}
		in.RangeResult(ps)
	case protocol.MsgSetApplied:
		p, err := protocol.DecodeProposeSet(env)
		if err != nil {
			return err
		}
		in.SetApplied(p)
	case protocol.MsgDeleteApplied:
		co, err := protocol.DecodeProposeDelete(env)
		if err != nil {
			return err
		}
		in.DeleteApplied(co)
	default:
		return fmt.Errorf("%w: unknown event %q", protocol.ErrMalformed, env.T)
	}
	return nil
}
