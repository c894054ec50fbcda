package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vibast-solutions/ms-go-payments-reconciler/app/entity"
)

// RedisPendingPaymentRepository stores one JSON document per key. Abandoned
// records expire through the configured TTL.
type RedisPendingPaymentRepository struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisPendingPaymentRepository(client *redis.Client, ttl time.Duration) *RedisPendingPaymentRepository {
	return &RedisPendingPaymentRepository{client: client, ttl: ttl}
}

func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func (r *RedisPendingPaymentRepository) Find(ctx context.Context, key string) (*entity.PendingPayment, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrInvalidKey
	}

	val, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var record entity.PendingPayment
	if err := json.Unmarshal(val, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *RedisPendingPaymentRepository) Save(ctx context.Context, key string, record *entity.PendingPayment) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrInvalidKey
	}

	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, data, r.ttl).Err()
}

func (r *RedisPendingPaymentRepository) Delete(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrInvalidKey
	}
	return r.client.Del(ctx, key).Err()
}

// PurgeStale is a no-op: Redis expires records on its own.
func (r *RedisPendingPaymentRepository) PurgeStale(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (r *RedisPendingPaymentRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
