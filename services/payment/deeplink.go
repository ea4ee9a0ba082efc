package payment

import (
	"context"
	"sync"
	"time"

	"snapfix/models"

	"github.com/go-redis/redis/v8"
)

// ProcessedSet is the dedup structure behind at-most-once capture: a
// membership set of gateway order ids that have already been acted on.
// MarkProcessed must be an atomic test-and-insert.
type ProcessedSet interface {
	HasProcessed(ctx context.Context, orderID string) (bool, error)
	// MarkProcessed returns true when this call newly claimed the id,
	// false when it had been claimed before.
	MarkProcessed(ctx context.Context, orderID string) (bool, error)
}

// MemoryProcessedSet is the in-process implementation.
type MemoryProcessedSet struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func NewMemoryProcessedSet() *MemoryProcessedSet {
	return &MemoryProcessedSet{ids: make(map[string]struct{})}
}

func (s *MemoryProcessedSet) HasProcessed(_ context.Context, orderID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[orderID]
	return ok, nil
}

func (s *MemoryProcessedSet) MarkProcessed(_ context.Context, orderID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[orderID]; ok {
		return false, nil
	}
	s.ids[orderID] = struct{}{}
	return true, nil
}

// RedisProcessedSet backs the dedup set with Redis SETNX so claims
// survive process recreation, which is exactly when the OS is prone to
// redelivering the same return event.
type RedisProcessedSet struct {
	Client *redis.Client
	TTL    time.Duration
}

const processedKeyPrefix = "payment:processed:"

func NewRedisProcessedSet(client *redis.Client) *RedisProcessedSet {
	return &RedisProcessedSet{Client: client, TTL: 24 * time.Hour}
}

func (s *RedisProcessedSet) HasProcessed(ctx context.Context, orderID string) (bool, error) {
	n, err := s.Client.Exists(ctx, processedKeyPrefix+orderID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisProcessedSet) MarkProcessed(ctx context.Context, orderID string) (bool, error) {
	return s.Client.SetNX(ctx, processedKeyPrefix+orderID, 1, s.TTL).Result()
}

// DeepLinkRouter owns the two genuinely shared, mutable, process-wide
// pieces of payment state: the single-slot mailbox holding the most
// recent unprocessed payment-return event, and the processed-order-id
// set. It is an injectable component, not a package singleton, so tests
// can feed it synthetic events.
type DeepLinkRouter struct {
	mu   sync.Mutex
	slot *models.DeepLinkResult

	processed ProcessedSet
}

func NewDeepLinkRouter(processed ProcessedSet) *DeepLinkRouter {
	return &DeepLinkRouter{processed: processed}
}

// Publish stores the result. A later arrival overwrites an unconsumed
// earlier one: a live checkout only cares about its own outstanding
// order.
func (r *DeepLinkRouter) Publish(res models.DeepLinkResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slot = &res
}

// Consume atomically takes and clears the slot. With two logical
// consumers the second sees nil.
func (r *DeepLinkRouter) Consume() *models.DeepLinkResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := r.slot
	r.slot = nil
	return res
}

// HasProcessed reports whether a capture has already been attempted for
// the order id.
func (r *DeepLinkRouter) HasProcessed(ctx context.Context, orderID string) (bool, error) {
	return r.processed.HasProcessed(ctx, orderID)
}

// MarkProcessed claims the order id. Callers must claim before invoking
// capture and must skip the capture entirely when the claim fails.
func (r *DeepLinkRouter) MarkProcessed(ctx context.Context, orderID string) (bool, error) {
	return r.processed.MarkProcessed(ctx, orderID)
}
