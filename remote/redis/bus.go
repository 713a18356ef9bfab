package redis

import (
	"context"
	"encoding/json"

	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/IvanBrykalov/hybridcache/hybrid"
)

// DefaultChannel is the pub/sub channel invalidations travel on when no
// other channel is configured.
const DefaultChannel = "hybridcache:invalidations"

// Bus implements hybrid.Bus over Redis pub/sub. Messages are JSON; each
// subscription drains its own connection, so handler delivery is
// single-threaded per subscription as the contract requires.
type Bus struct {
	rdb     goredis.UniversalClient
	channel string
	log     *zap.Logger
}

var _ hybrid.Bus = (*Bus)(nil)

// BusOption configures a Bus.
type BusOption func(*Bus)

// WithChannel overrides the pub/sub channel name.
func WithChannel(channel string) BusOption {
	return func(b *Bus) { b.channel = channel }
}

// WithBusLogger routes subscription warnings to log.
func WithBusLogger(log *zap.Logger) BusOption {
	return func(b *Bus) { b.log = log }
}

// NewBus wraps an established go-redis client.
func NewBus(rdb goredis.UniversalClient, opts ...BusOption) *Bus {
	b := &Bus{rdb: rdb, channel: DefaultChannel, log: zap.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish implements hybrid.Bus.
func (b *Bus) Publish(ctx context.Context, msg hybrid.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, payload).Err()
}

// Subscribe implements hybrid.Bus. The handler runs on a dedicated
// goroutine until the returned cancel func closes the subscription.
func (b *Bus) Subscribe(ctx context.Context, handler func(hybrid.Message)) (func(), error) {
	ps := b.rdb.Subscribe(ctx, b.channel)
	// Force the subscription to be established before returning, so a
	// publish issued right after New is not lost.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for m := range ps.Channel() {
			var msg hybrid.Message
			if err := json.Unmarshal([]byte(m.Payload), &msg); err != nil {
				b.log.Warn("redis bus: undecodable message dropped", zap.Error(err))
				continue
			}
			handler(msg)
		}
	}()

	cancel := func() {
		_ = ps.Close()
		<-done
	}
	return cancel, nil
}
