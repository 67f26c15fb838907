package bus

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/mohammad-safakhou/prizm/config"
	"github.com/mohammad-safakhou/prizm/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis fans messages out over a Redis pub/sub channel.
type Redis struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
	wg      sync.WaitGroup

	mu   sync.Mutex
	subs []*redis.PubSub
}

// NewRedis connects to Redis and verifies the connection with PING.
func NewRedis(ctx context.Context, cfg config.RedisConfig, channel string, logger *zap.Logger) (*Redis, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := redis.NewClient(&redis.Options{
		Addr:        net.JoinHostPort(cfg.Host, cfg.Port),
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: timeout,
	})
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisFromClient(client, channel, logger), nil
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client *redis.Client, channel string, logger *zap.Logger) *Redis {
	return &Redis{client: client, channel: channel, logger: logger.Named("bus.redis")}
}

func (r *Redis) Name() string { return "redis" }

func (r *Redis) Publish(ctx context.Context, msg models.Message) error {
	data, err := encode(ctx, msg)
	if err != nil {
		return err
	}
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func (r *Redis) Subscribe(ctx context.Context, h Handler) (func(), error) {
	ps := r.client.Subscribe(ctx, r.channel)
	// wait for the subscription confirmation so no publish is missed afterwards
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}
	r.mu.Lock()
	r.subs = append(r.subs, ps)
	r.mu.Unlock()
	ch := ps.Channel()
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for m := range ch {
			mctx, msg, err := decode([]byte(m.Payload))
			if err != nil {
				r.logger.Warn("dropping malformed message", zap.Error(err))
				continue
			}
			h(mctx, msg)
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { _ = ps.Close() }) }, nil
}

func (r *Redis) Close() error {
	r.mu.Lock()
	for _, ps := range r.subs {
		_ = ps.Close()
	}
	r.subs = nil
	r.mu.Unlock()
	err := r.client.Close()
	r.wg.Wait()
	return err
}
