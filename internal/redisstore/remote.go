// Package redisstore keeps session records in Redis. Each record is a JSON
// value with a TTL; every write is published on the record's change channel.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"agility-scorer/internal/config"
	"agility-scorer/internal/domain"
	"agility-scorer/internal/session"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

const keyPrefix = "agility:session:"

func NewClient(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
}

type Remote struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

func NewRemote(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *Remote {
	return &Remote{client: client, ttl: ttl, logger: logger}
}

func recordKey(code string) string { return keyPrefix + code }

func changesChannel(code string) string { return keyPrefix + code + ":changes" }

func (r *Remote) Create(ctx context.Context, rec domain.SessionRecord) error {
	rec.UpdatedAt = time.Now().UTC()
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode session record: %w", err)
	}
	ok, err := r.client.SetNX(ctx, recordKey(rec.Code), payload, r.ttl).Result()
	if err != nil {
		r.logger.Error().Err(err).Str("code", rec.Code).Msg("failed to create session record")
		return fmt.Errorf("failed to create session record: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrSessionExists, rec.Code)
	}
	return nil
}

func (r *Remote) Fetch(ctx context.Context, code string) (domain.SessionRecord, error) {
	payload, err := r.client.Get(ctx, recordKey(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.SessionRecord{}, fmt.Errorf("%w: %s", domain.ErrSessionNotFound, code)
	}
	if err != nil {
		r.logger.Error().Err(err).Str("code", code).Msg("failed to fetch session record")
		return domain.SessionRecord{}, fmt.Errorf("failed to fetch session record: %w", err)
	}
	var rec domain.SessionRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return domain.SessionRecord{}, fmt.Errorf("failed to decode session record: %w", err)
	}
	return rec, nil
}

// Push overwrites the record, refreshes its TTL and publishes it in one
// MULTI block.
func (r *Remote) Push(ctx context.Context, rec domain.SessionRecord) error {
	n, err := r.client.Exists(ctx, recordKey(rec.Code)).Result()
	if err != nil {
		return fmt.Errorf("failed to check session record: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrSessionNotFound, rec.Code)
	}

	rec.UpdatedAt = time.Now().UTC()
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode session record: %w", err)
	}
	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, recordKey(rec.Code), payload, r.ttl)
		pipe.Publish(ctx, changesChannel(rec.Code), payload)
		return nil
	})
	if err != nil {
		r.logger.Error().Err(err).Str("code", rec.Code).Msg("failed to push session record")
		return fmt.Errorf("failed to push session record: %w", err)
	}
	return nil
}

// Subscribe returns once the channel subscription is confirmed, so no
// publish after it is missed.
func (r *Remote) Subscribe(ctx context.Context, code string, h session.Handler) (session.Subscription, error) {
	pubsub := r.client.Subscribe(ctx, changesChannel(code))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		r.logger.Error().Err(err).Str("code", code).Msg("failed to subscribe to session")
		return nil, fmt.Errorf("failed to subscribe to session: %w", err)
	}

	sub := &subscription{pubsub: pubsub, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		for msg := range pubsub.Channel() {
			var rec domain.SessionRecord
			if err := json.Unmarshal([]byte(msg.Payload), &rec); err != nil {
				r.logger.Warn().Err(err).Str("code", code).Msg("dropping malformed session update")
				continue
			}
			h(rec)
		}
	}()
	return sub, nil
}

type subscription struct {
	pubsub *redis.PubSub
	done   chan struct{}
}

func (s *subscription) Close() error {
	err := s.pubsub.Close()
	<-s.done
	return err
}
