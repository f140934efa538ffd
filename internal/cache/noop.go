package cache

import (
	"context"

	"github.com/fjod/cosmic-backend/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Noop is used when no cache is configured. Every Get misses.
type Noop struct{}

func (Noop) Get(context.Context, primitive.ObjectID) (*domain.Cart, error) {
	return nil, ErrCacheMiss
}

func (Noop) Generation(context.Context, primitive.ObjectID) (int64, error) { return 0, nil }

func (Noop) Set(context.Context, primitive.ObjectID, int64, *domain.Cart) error { return nil }

func (Noop) Delete(context.Context, primitive.ObjectID) error { return nil }
