package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/vibast-solutions/ms-go-payments-reconciler/app/entity"
)

type memoryItem struct {
	record    *entity.PendingPayment
	updatedAt time.Time
}

// MemoryPendingPaymentRepository keeps records for the lifetime of the process.
type MemoryPendingPaymentRepository struct {
	mu    sync.RWMutex
	items map[string]memoryItem
	now   func() time.Time
}

func NewMemoryPendingPaymentRepository() *MemoryPendingPaymentRepository {
	return &MemoryPendingPaymentRepository{
		items: make(map[string]memoryItem),
		now:   time.Now,
	}
}

func (r *MemoryPendingPaymentRepository) Find(_ context.Context, key string) (*entity.PendingPayment, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, ErrInvalidKey
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[key]
	if !ok {
		return nil, nil
	}
	return item.record.Clone(), nil
}

func (r *MemoryPendingPaymentRepository) Save(_ context.Context, key string, record *entity.PendingPayment) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrInvalidKey
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[key] = memoryItem{record: record.Clone(), updatedAt: r.now().UTC()}
	return nil
}

func (r *MemoryPendingPaymentRepository) Delete(_ context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrInvalidKey
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, key)
	return nil
}

func (r *MemoryPendingPaymentRepository) PurgeStale(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var purged int64
	for key, item := range r.items {
		if item.updatedAt.Before(cutoff) {
			delete(r.items, key)
			purged++
		}
	}
	return purged, nil
}

func (r *MemoryPendingPaymentRepository) Ping(context.Context) error {
	return nil
}
