package fanout

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// ErrSlowConsumer is returned by Conn.Send when the connection's queue is full. The hub skips the message for that
// connection and keeps it joined.
var ErrSlowConsumer = errors.New("slow consumer")

// Conn is the hub's view of a connected client. Send must not block.
type Conn interface {
	Send([]byte) error
	Close() error
}

type join struct {
	id    string
	conn  Conn
	reply chan<- struct{}
}

type leave struct {
	id string
}

type broadcast struct {
	origin  string
	payload []byte
}

type count struct {
	reply chan<- int
}

// publishQueueSize bounds broadcasts waiting for the relay.
const publishQueueSize = 256

// Hub owns the set of connected clients. All access goes through its inbox so one goroutine sees the set.
type Hub struct {
	inbox    chan any
	clients  map[string]Conn
	relay    Relay
	outbound chan RelayMessage
	instance string
	quit     chan struct{}
	stopOnce sync.Once
}

// New returns a hub. relay may be nil for a single-instance deployment.
func New(relay Relay) *Hub {
	return &Hub{
		inbox:    make(chan any, 256),
		clients:  make(map[string]Conn),
		relay:    relay,
		outbound: make(chan RelayMessage, publishQueueSize),
		instance: uuid.NewString(),
		quit:     make(chan struct{}),
	}
}

func (h *Hub) Instance() string {
	return h.instance
}

// Run processes commands until ctx is done or Stop is called. With a relay it also publishes this instance's
// broadcasts and fans out messages published by other instances.
func (h *Hub) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer h.closeAll()
	if h.relay != nil {
		go func() {
			err := h.relay.Subscribe(ctx, func(m RelayMessage) {
				if m.Instance == h.instance {
					return
				}
				h.enqueue(broadcast{origin: m.Origin, payload: m.Payload})
			})
			if err != nil && ctx.Err() == nil {
				slog.Error("relay subscription ended", "err", err)
			}
		}()
		go h.publishContinuously(ctx)
	}
	for {
		select {
		case <-ctx.Done():
			h.Stop()
			return
		case <-h.quit:
			return
		case cmd := <-h.inbox:
			h.handleCommand(cmd)
		}
	}
}

func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
}

// Join registers conn under id and returns once the hub has accepted it, so broadcasts made afterwards reach it.
func (h *Hub) Join(id string, conn Conn) {
	reply := make(chan struct{})
	if !h.enqueue(join{id: id, conn: conn, reply: reply}) {
		return
	}
	select {
	case <-reply:
	case <-h.quit:
	}
}

func (h *Hub) Leave(id string) {
	h.enqueue(leave{id: id})
}

// Broadcast sends payload to every client except origin, on this instance and, through the relay, on every other
// one. It waits for neither: relay publishing happens on its own goroutine, and a full publish queue drops the
// relay copy.
func (h *Hub) Broadcast(origin string, payload []byte) {
	h.enqueue(broadcast{origin: origin, payload: payload})
	if h.relay == nil {
		return
	}
	select {
	case h.outbound <- RelayMessage{Instance: h.instance, Origin: origin, Payload: payload}:
	default:
		slog.Warn("dropping relay publish, queue is full", "origin", origin)
	}
}

func (h *Hub) publishContinuously(ctx context.Context) {
	for {
		select {
		case m := <-h.outbound:
			if err := h.relay.Publish(ctx, m); err != nil && ctx.Err() == nil {
				slog.Error("failed to publish to relay", "err", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// NumClients returns the number of joined clients. Since it is answered by the hub goroutine, every command
// enqueued before it has been handled when it returns.
func (h *Hub) NumClients() int {
	reply := make(chan int, 1)
	if !h.enqueue(count{reply: reply}) {
		return 0
	}
	select {
	case n := <-reply:
		return n
	case <-h.quit:
		return 0
	}
}

func (h *Hub) enqueue(cmd any) bool {
	select {
	case h.inbox <- cmd:
		return true
	case <-h.quit:
		return false
	}
}

func (h *Hub) handleCommand(cmd any) {
	switch c := cmd.(type) {
	case join:
		h.clients[c.id] = c.conn
		slog.Info("client joined", "conn", c.id, "clients", len(h.clients))
		close(c.reply)
	case leave:
		if _, ok := h.clients[c.id]; ok {
			delete(h.clients, c.id)
			slog.Info("client left", "conn", c.id, "clients", len(h.clients))
		}
	case broadcast:
		h.deliver(c)
	case count:
		c.reply <- len(h.clients)
	}
}

func (h *Hub) deliver(b broadcast) {
	var failed []string
	for id, c := range h.clients {
		if id == b.origin {
			continue
		}
		if err := c.Send(b.payload); err != nil {
			if errors.Is(err, ErrSlowConsumer) {
				slog.Warn("dropped broadcast for slow client", "conn", id)
				continue
			}
			failed = append(failed, id)
		}
	}
	for _, id := range failed {
		slog.Info("removing client after failed send", "conn", id)
		_ = h.clients[id].Close()
		delete(h.clients, id)
	}
}

func (h *Hub) closeAll() {
	for id, c := range h.clients {
		_ = c.Close()
		delete(h.clients, id)
	}
}
