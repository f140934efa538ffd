package cache

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/cosmic-backend/internal/domain"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BreakerCache guards the read path of a CartCache with a circuit breaker.
// While the circuit is open reads fail fast with gobreaker.ErrOpenState and
// callers fall back to the store. Delete is never short-circuited: an
// invalidation skipped while the circuit is open would leave a stale cart
// behind once it closes.
type BreakerCache struct {
	next CartCache
	cb   *gobreaker.CircuitBreaker[*domain.Cart]
}

func NewBreakerCache(next CartCache, log logrus.FieldLogger) *BreakerCache {
	st := gobreaker.Settings{
		Name:        "cart-cache",
		MaxRequests: 1,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.5
		},
		// a miss or a dropped stale write is a healthy answer
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrCacheMiss) || errors.Is(err, ErrStaleGeneration)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.WithField("breaker", name).Warnf("circuit breaker state changed from %s to %s", from, to)
		},
	}

	return &BreakerCache{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[*domain.Cart](st),
	}
}

func (b *BreakerCache) Get(ctx context.Context, userID primitive.ObjectID) (*domain.Cart, error) {
	return b.cb.Execute(func() (*domain.Cart, error) {
		return b.next.Get(ctx, userID)
	})
}

func (b *BreakerCache) Generation(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	var gen int64
	_, err := b.cb.Execute(func() (*domain.Cart, error) {
		var err error
		gen, err = b.next.Generation(ctx, userID)
		return nil, err
	})
	return gen, err
}

func (b *BreakerCache) Set(ctx context.Context, userID primitive.ObjectID, generation int64, cart *domain.Cart) error {
	_, err := b.cb.Execute(func() (*domain.Cart, error) {
		return nil, b.next.Set(ctx, userID, generation, cart)
	})
	return err
}

func (b *BreakerCache) Delete(ctx context.Context, userID primitive.ObjectID) error {
	return b.next.Delete(ctx, userID)
}

// State reports the breaker state for logs and health.
func (b *BreakerCache) State() gobreaker.State {
	return b.cb.State()
}
