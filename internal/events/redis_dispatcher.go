package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	eventField      = "event"
	defaultBatch    = 10
	pollErrorPause  = time.Second
	idlePause       = 100 * time.Millisecond
	cursorStreamTop = "0-0"
)

// StreamConfig names the stream and consumer group a RedisDispatcher uses.
type StreamConfig struct {
	Stream   string
	Group    string
	Consumer string
	// Block is how long XREADGROUP waits for new entries. Negative means
	// return immediately.
	Block time.Duration
	// ReclaimIdle is the pending time after which another consumer's
	// unacknowledged entries are claimed. Zero disables reclaiming.
	ReclaimIdle time.Duration
	BatchSize   int64
	// MaxDeliveries caps how often a failing entry is delivered before it
	// is moved to DeadLetter and acknowledged. Zero means no cap.
	MaxDeliveries int64
	// DeadLetter is the stream that receives given-up entries. Empty only
	// logs them.
	DeadLetter string
}

// RedisDispatcher delivers events through a Redis stream consumer group.
// Entries are acknowledged only after every handler succeeds, so delivery
// is at-least-once.
type RedisDispatcher struct {
	registry
	client redis.UniversalClient
	cfg    StreamConfig
	logger *zap.Logger
	cursor string
}

// NewRedisDispatcher builds a dispatcher over client.
func NewRedisDispatcher(client redis.UniversalClient, cfg StreamConfig, logger *zap.Logger) *RedisDispatcher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatch
	}
	return &RedisDispatcher{client: client, cfg: cfg, logger: logger, cursor: cursorStreamTop}
}

// Publish appends the event to the stream.
func (d *RedisDispatcher) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	err = d.client.XAdd(ctx, &redis.XAddArgs{
		Stream: d.cfg.Stream,
		Values: map[string]any{eventField: data},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", d.cfg.Stream, err)
	}
	return nil
}

// EnsureGroup creates the consumer group and stream if missing.
func (d *RedisDispatcher) EnsureGroup(ctx context.Context) error {
	err := d.client.XGroupCreateMkStream(ctx, d.cfg.Stream, d.cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group: %w", err)
	}
	return nil
}

// Run polls the stream until ctx is cancelled.
func (d *RedisDispatcher) Run(ctx context.Context) error {
	if err := d.EnsureGroup(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	d.logger.Info("event consumer started",
		zap.String("stream", d.cfg.Stream),
		zap.String("group", d.cfg.Group),
		zap.String("consumer", d.cfg.Consumer),
	)
	for ctx.Err() == nil {
		n, err := d.Poll(ctx)
		switch {
		case err != nil && ctx.Err() != nil:
			return nil
		case err != nil:
			d.logger.Warn("event poll failed", zap.Error(err))
			sleepCtx(ctx, pollErrorPause)
		case n == 0 && d.cfg.Block < 0:
			sleepCtx(ctx, idlePause)
		}
	}
	return nil
}

// Poll reclaims stale entries, reads one batch of new entries and delivers
// them. It returns the number of entries handled.
func (d *RedisDispatcher) Poll(ctx context.Context) (int, error) {
	handled := 0
	if d.cfg.ReclaimIdle > 0 {
		claimed, err := d.reclaim(ctx)
		if err != nil {
			return 0, err
		}
		handled += d.handleAll(ctx, claimed)
	}

	streams, err := d.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    d.cfg.Group,
		Consumer: d.cfg.Consumer,
		Streams:  []string{d.cfg.Stream, ">"},
		Count:    d.cfg.BatchSize,
		Block:    d.cfg.Block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return handled, nil
	}
	if err != nil {
		return handled, fmt.Errorf("xreadgroup: %w", err)
	}
	for _, stream := range streams {
		handled += d.handleAll(ctx, stream.Messages)
	}
	return handled, nil
}

func (d *RedisDispatcher) reclaim(ctx context.Context) ([]redis.XMessage, error) {
	messages, next, err := d.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   d.cfg.Stream,
		Group:    d.cfg.Group,
		Consumer: d.cfg.Consumer,
		MinIdle:  d.cfg.ReclaimIdle,
		Start:    d.cursor,
		Count:    d.cfg.BatchSize,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("xautoclaim: %w", err)
	}
	if next == "" {
		next = cursorStreamTop
	}
	d.cursor = next
	return messages, nil
}

func (d *RedisDispatcher) handleAll(ctx context.Context, messages []redis.XMessage) int {
	for _, msg := range messages {
		d.handle(ctx, msg)
	}
	return len(messages)
}

func (d *RedisDispatcher) handle(ctx context.Context, msg redis.XMessage) {
	logger := d.logger.With(zap.String("entry_id", msg.ID))

	event, err := decodeEntry(msg)
	if err != nil {
		// unreadable entries would be redelivered forever
		logger.Error("dropping malformed event", zap.Error(err))
		d.ack(ctx, msg.ID, logger)
		return
	}

	logger = logger.With(zap.String("event_id", event.ID), zap.String("event_type", string(event.Type)))
	if err := d.deliver(ctx, event); err != nil {
		deliveries := d.deliveries(ctx, msg.ID, logger)
		if d.cfg.MaxDeliveries > 0 && deliveries >= d.cfg.MaxDeliveries {
			d.giveUp(ctx, msg, deliveries, err, logger)
			return
		}
		logger.Warn("event left pending for redelivery", zap.Int64("deliveries", deliveries), zap.Error(err))
		return
	}
	d.ack(ctx, msg.ID, logger)
}

// deliveries returns how often the entry has been handed to a consumer, or
// zero when the count cannot be read.
func (d *RedisDispatcher) deliveries(ctx context.Context, id string, logger *zap.Logger) int64 {
	res, err := d.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: d.cfg.Stream,
		Group:  d.cfg.Group,
		Start:  id,
		End:    id,
		Count:  1,
	}).Result()
	if err != nil {
		logger.Warn("xpending failed", zap.Error(err))
		return 0
	}
	if len(res) == 0 {
		return 0
	}
	return res[0].RetryCount
}

// giveUp copies the entry to the dead-letter stream and acknowledges it.
// If the copy fails the entry stays pending and is tried again later.
func (d *RedisDispatcher) giveUp(ctx context.Context, msg redis.XMessage, deliveries int64, cause error, logger *zap.Logger) {
	if d.cfg.DeadLetter != "" {
		err := d.client.XAdd(ctx, &redis.XAddArgs{
			Stream: d.cfg.DeadLetter,
			Values: map[string]any{
				eventField:   msg.Values[eventField],
				"entry_id":   msg.ID,
				"deliveries": deliveries,
				"error":      cause.Error(),
			},
		}).Err()
		if err != nil {
			logger.Error("dead-letter write failed", zap.String("stream", d.cfg.DeadLetter), zap.Error(err))
			return
		}
	}
	logger.Error("event given up after max deliveries",
		zap.Int64("deliveries", deliveries),
		zap.String("dead_letter", d.cfg.DeadLetter),
		zap.Error(cause),
	)
	d.ack(ctx, msg.ID, logger)
}

func (d *RedisDispatcher) ack(ctx context.Context, id string, logger *zap.Logger) {
	if err := d.client.XAck(ctx, d.cfg.Stream, d.cfg.Group, id).Err(); err != nil {
		logger.Warn("xack failed", zap.Error(err))
	}
}

func decodeEntry(msg redis.XMessage) (Event, error) {
	raw, ok := msg.Values[eventField]
	if !ok {
		return Event{}, fmt.Errorf("entry has no %q field", eventField)
	}
	var data []byte
	switch v := raw.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return Event{}, fmt.Errorf("unexpected %q field type %T", eventField, raw)
	}
	var event Event
	if err := json.Unmarshal(data, &event); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	return event, nil
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
