// Package realtime implements ports.Feed over the hosted backend's Phoenix
// websocket protocol.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/net/websocket"

	"github.com/bft-labs/folio/internal/domain"
	"github.com/bft-labs/folio/internal/ports"
)

// DefaultHeartbeat is how often the socket is pinged.
const DefaultHeartbeat = 30 * time.Second

// Config configures the feed.
type Config struct {
	// URL is the project URL (https://<ref>.supabase.co).
	URL string

	// APIKey is sent as the apikey query parameter and join access token.
	APIKey string

	// Heartbeat is the ping interval. Default: 30s.
	Heartbeat time.Duration

	// BackoffInitial and BackoffMax bound the reconnect delay.
	BackoffInitial time.Duration
	BackoffMax     time.Duration
}

// Feed is a reconnecting realtime client. Subscriptions survive
// reconnects: every open channel is joined again on the new socket.
type Feed struct {
	cfg    Config
	logger ports.Logger
	ref    atomic.Int64

	mu       sync.Mutex
	channels map[string]*channel
	nextSub  int
	conn     *websocket.Conn
	cancel   context.CancelFunc
	done     chan struct{}

	writeMu sync.Mutex
}

type channel struct {
	topic    ports.Topic
	handlers map[int]ports.ChangeHandler
}

// New creates a feed. Call Start to connect.
func New(cfg Config, logger ports.Logger) *Feed {
	if cfg.Heartbeat <= 0 {
		cfg.Heartbeat = DefaultHeartbeat
	}
	if cfg.BackoffInitial <= 0 {
		cfg.BackoffInitial = DefaultBackoffInitial
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = DefaultBackoffMax
	}
	return &Feed{
		cfg:      cfg,
		logger:   logger.With(ports.Component("realtime")),
		channels: make(map[string]*channel),
	}
}

// Start connects in the background and keeps the socket alive until Close.
func (f *Feed) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cancel != nil {
		return domain.ErrAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.done = make(chan struct{})
	go f.run(runCtx, f.done)
	return nil
}

// Close disconnects and stops reconnecting.
func (f *Feed) Close() error {
	f.mu.Lock()
	cancel, done, conn := f.cancel, f.done, f.conn
	f.cancel = nil
	f.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	if conn != nil {
		_ = conn.Close()
	}
	<-done
	return nil
}

// Connected reports whether a socket is currently open.
func (f *Feed) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.conn != nil
}

// Subscribe implements ports.Feed. The join is sent immediately when the
// socket is up, otherwise on the next connect.
func (f *Feed) Subscribe(ctx context.Context, topic ports.Topic, handler ports.ChangeHandler) (ports.Subscription, error) {
	if topic.Table == "" {
		return nil, errors.New("realtime: topic table is required")
	}
	name := phoenixTopic(topic)

	f.mu.Lock()
	ch, exists := f.channels[name]
	if !exists {
		ch = &channel{topic: topic, handlers: make(map[int]ports.ChangeHandler)}
		f.channels[name] = ch
	}
	f.nextSub++
	id := f.nextSub
	ch.handlers[id] = handler
	conn := f.conn
	f.mu.Unlock()

	if !exists && conn != nil {
		if err := f.join(conn, name, topic); err != nil {
			f.logger.Warn("realtime join failed, will retry on reconnect",
				ports.String("topic", name), ports.Err(err))
		}
	}
	return &subscription{feed: f, name: name, id: id}, nil
}

type subscription struct {
	feed *Feed
	name string
	id   int
	once sync.Once
}

func (s *subscription) Unsubscribe() error {
	var err error
	s.once.Do(func() {
		err = s.feed.unsubscribe(s.name, s.id)
	})
	return err
}

func (f *Feed) unsubscribe(name string, id int) error {
	f.mu.Lock()
	ch, ok := f.channels[name]
	if !ok {
		f.mu.Unlock()
		return nil
	}
	delete(ch.handlers, id)
	if len(ch.handlers) > 0 {
		f.mu.Unlock()
		return nil
	}
	delete(f.channels, name)
	conn := f.conn
	f.mu.Unlock()

	if conn == nil {
		return nil
	}
	return f.send(conn, message{Topic: name, Event: eventLeave, Payload: json.RawMessage(`{}`), Ref: f.nextRef()})
}

func (f *Feed) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	retry := &retryPolicy{initial: f.cfg.BackoffInitial, max: f.cfg.BackoffMax}

	for {
		conn, err := f.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			f.logger.Warn("realtime connect failed",
				ports.Err(err),
				ports.Duration("retry_in", retry.delay()))
			if !retry.sleep(ctx) {
				return
			}
			continue
		}
		retry.connected()

		f.logger.Info("realtime connected")
		err = f.serve(ctx, conn)

		f.mu.Lock()
		f.conn = nil
		f.mu.Unlock()
		_ = conn.Close()

		if ctx.Err() != nil {
			return
		}
		f.logger.Warn("realtime disconnected, reconnecting",
			ports.Err(err),
			ports.Duration("retry_in", retry.delay()))
		if !retry.sleep(ctx) {
			return
		}
	}
}

func (f *Feed) dial(ctx context.Context) (*websocket.Conn, error) {
	cfg, err := websocket.NewConfig(socketURL(f.cfg.URL, f.cfg.APIKey), f.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("websocket config: %w", err)
	}
	return cfg.DialContext(ctx)
}

// serve joins every channel on conn, then reads until the socket fails.
func (f *Feed) serve(ctx context.Context, conn *websocket.Conn) error {
	f.mu.Lock()
	f.conn = conn
	joins := make(map[string]ports.Topic, len(f.channels))
	for name, ch := range f.channels {
		joins[name] = ch.topic
	}
	f.mu.Unlock()

	for name, topic := range joins {
		if err := f.join(conn, name, topic); err != nil {
			return fmt.Errorf("join %s: %w", name, err)
		}
	}

	var pending atomic.Value
	pending.Store("")
	hbDone := make(chan struct{})
	defer close(hbDone)
	go f.heartbeat(ctx, conn, &pending, hbDone)

	for {
		var msg message
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			return err
		}
		f.dispatch(msg, &pending)
	}
}

// heartbeat pings on an interval. A ping that is still unanswered at the
// next tick closes the socket so the run loop reconnects.
func (f *Feed) heartbeat(ctx context.Context, conn *websocket.Conn, pending *atomic.Value, done <-chan struct{}) {
	t := time.NewTicker(f.cfg.Heartbeat)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = conn.Close()
			return
		case <-done:
			return
		case <-t.C:
			if ref := pending.Load().(string); ref != "" {
				f.logger.Warn("realtime heartbeat timed out", ports.String("ref", ref))
				_ = conn.Close()
				return
			}
			ref := f.nextRef()
			pending.Store(ref)
			if err := f.send(conn, message{Topic: heartbeatTopic, Event: eventHeartbeat, Payload: json.RawMessage(`{}`), Ref: ref}); err != nil {
				_ = conn.Close()
				return
			}
		}
	}
}

func (f *Feed) dispatch(msg message, pending *atomic.Value) {
	switch msg.Event {
	case eventReply:
		if msg.Topic == heartbeatTopic {
			if msg.Ref == pending.Load().(string) {
				pending.Store("")
			}
			return
		}
		var reply replyPayload
		if err := json.Unmarshal(msg.Payload, &reply); err == nil && reply.Status != "ok" {
			f.logger.Warn("realtime channel reply",
				ports.String("topic", msg.Topic),
				ports.String("status", reply.Status),
				ports.String("response", string(reply.Response)))
		}

	case eventChanges:
		var p changesPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			f.logger.Warn("realtime: undecodable change", ports.String("topic", msg.Topic), ports.Err(err))
			return
		}
		typ, ok := domain.ParseChangeType(p.Data.Type)
		if !ok {
			return
		}
		change := ports.Change{Table: p.Data.Table, Type: typ, New: p.Data.Record, Old: p.Data.OldRecord}
		for _, h := range f.handlers(msg.Topic) {
			h(change)
		}

	case eventError, eventClose:
		f.logger.Warn("realtime channel closed by server", ports.String("topic", msg.Topic), ports.String("event", msg.Event))
	}
}

func (f *Feed) handlers(name string) []ports.ChangeHandler {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.channels[name]
	if !ok {
		return nil
	}
	ids := make([]int, 0, len(ch.handlers))
	for id := range ch.handlers {
		ids = append(ids, id)
	}
	// Deliver in subscription order.
	slices.Sort(ids)
	out := make([]ports.ChangeHandler, 0, len(ids))
	for _, id := range ids {
		out = append(out, ch.handlers[id])
	}
	return out
}

func (f *Feed) join(conn *websocket.Conn, name string, topic ports.Topic) error {
	payload, err := json.Marshal(newJoinPayload(topic, f.cfg.APIKey))
	if err != nil {
		return err
	}
	f.logger.Debug("realtime join", ports.String("topic", name), ports.String("table", topic.Table))
	return f.send(conn, message{Topic: name, Event: eventJoin, Payload: payload, Ref: f.nextRef()})
}

func (f *Feed) send(conn *websocket.Conn, msg message) error {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	return websocket.JSON.Send(conn, msg)
}

func (f *Feed) nextRef() string {
	return strconv.FormatInt(f.ref.Add(1), 10)
}
