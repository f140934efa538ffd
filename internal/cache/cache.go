package cache

import (
	"context"
	"errors"

	"github.com/fjod/cosmic-backend/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CartCache holds raw carts keyed by owner. Populated views are never
// cached, so product edits show up on the next read.
//
// Every Delete advances the owner's generation. A reader takes the
// generation before it reads the store and hands it back to Set, which
// drops the write if a Delete happened in between.
type CartCache interface {
	Get(ctx context.Context, userID primitive.ObjectID) (*domain.Cart, error)
	Generation(ctx context.Context, userID primitive.ObjectID) (int64, error)
	Set(ctx context.Context, userID primitive.ObjectID, generation int64, cart *domain.Cart) error
	Delete(ctx context.Context, userID primitive.ObjectID) error
}

var (
	ErrCacheMiss = errors.New("cache miss")
	// ErrStaleGeneration reports a Set dropped because the cart was
	// invalidated after it was read.
	ErrStaleGeneration = errors.New("cart invalidated since it was read")
)
