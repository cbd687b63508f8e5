package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/miyahealth/miya-backend/internal/logger"
)

// AlertEvent is the message published for every enqueued notification.
// Delivery workers (push/SMS/email, all outside this service) subscribe to the
// channel and render from the payload snapshot.
type AlertEvent struct {
	NotificationID string          `json:"notification_id"`
	RecipientID    string          `json:"recipient_id"`
	MemberUserID   string          `json:"member_user_id"`
	EpisodeID      string          `json:"episode_id"`
	Severity       string          `json:"severity"`
	Payload        json.RawMessage `json:"payload"`
}

type AlertBus interface {
	Publish(ctx context.Context, ev AlertEvent) error
	StartForwarder(ctx context.Context, onMsg func(ev AlertEvent)) error
	Close() error
}

type alertBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

func NewAlertBus(log *logger.Logger) (AlertBus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}

	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	ch := strings.TrimSpace(os.Getenv("ALERT_CHANNEL"))
	if ch == "" {
		ch = "alerts"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &alertBus{
		log:     log.With("service", "RedisAlertBus"),
		rdb:     rdb,
		channel: ch,
	}, nil
}

func (b *alertBus) Publish(ctx context.Context, ev AlertEvent) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("alert bus not initialized")
	}
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

func (b *alertBus) StartForwarder(ctx context.Context, onMsg func(ev AlertEvent)) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("alert bus not initialized")
	}
	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}
	go func() {
		defer func() { _ = sub.Close() }()
		chMsgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-chMsgs:
				if !ok {
					return
				}
				var ev AlertEvent
				if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
					b.log.Warn("Dropping malformed alert event", "error", err)
					continue
				}
				onMsg(ev)
			}
		}
	}()
	return nil
}

func (b *alertBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}
