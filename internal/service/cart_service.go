package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fjod/cosmic-backend/internal/cache"
	"github.com/fjod/cosmic-backend/internal/domain"
	"github.com/fjod/cosmic-backend/internal/repository"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/singleflight"
)

// CartService applies cart mutations as single store-side updates and
// serves populated carts through a read-through cache. Cache failures are
// logged and never fail a request.
type CartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	cache    cache.CartCache
	log      logrus.FieldLogger
	sfg      singleflight.Group // Prevents cache stampede

	// unflushed marks users whose last cache invalidation failed. Their
	// cached entry is not trusted until a Delete goes through.
	mu        sync.Mutex
	failSeq   uint64
	unflushed map[primitive.ObjectID]uint64
}

const (
	loadTimeout       = 5 * time.Second
	invalidateTimeout = time.Second
)

func NewCartService(carts repository.CartRepository, products repository.ProductRepository, cartCache cache.CartCache, log logrus.FieldLogger) *CartService {
	return &CartService{
		carts:     carts,
		products:  products,
		cache:     cartCache,
		log:       log,
		unflushed: make(map[primitive.ObjectID]uint64),
	}
}

// GetCart returns the user's cart with products populated, or nil when the
// user has no cart.
func (s *CartService) GetCart(ctx context.Context, userID string) (*domain.PopulatedCart, error) {
	uid, err := domain.ParseRef(userID)
	if err != nil {
		return nil, err
	}

	// Use singleflight to prevent multiple concurrent cache misses for same key.
	// The load is detached from the leader's context so a cancelled leader
	// does not fail the callers that joined it; each caller waits on its own.
	ch := s.sfg.DoChan(uid.Hex(), func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		return s.loadCart(loadCtx, uid)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}

	cart := res.Val.(*domain.Cart)
	if cart == nil {
		return nil, nil
	}
	return s.populate(ctx, cart)
}

func (s *CartService) loadCart(ctx context.Context, userID primitive.ObjectID) (*domain.Cart, error) {
	useCache := s.flushPending(ctx, userID)

	var gen int64
	if useCache {
		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.WithError(err).WithField("user_id", userID.Hex()).Warn("cache get failed")
		}

		// taken before the store read; a mutation landing after this point
		// makes the Set below a no-op
		if gen, err = s.cache.Generation(ctx, userID); err != nil {
			s.log.WithError(err).WithField("user_id", userID.Hex()).Warn("cache generation failed")
			useCache = false
		}
	}

	cart, err := s.carts.GetCart(ctx, userID)
	if errors.Is(err, repository.ErrCartNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if useCache {
		err := s.cache.Set(ctx, userID, gen, cart)
		switch {
		case errors.Is(err, cache.ErrStaleGeneration):
			s.log.WithField("user_id", userID.Hex()).Debug("cart changed during load, not cached")
		case err != nil:
			s.log.WithError(err).WithField("user_id", userID.Hex()).Warn("cache set failed")
		}
	}
	return cart, nil
}

// flushPending retries a failed invalidation for userID and reports whether
// the cache may be used for this load.
func (s *CartService) flushPending(ctx context.Context, userID primitive.ObjectID) bool {
	s.mu.Lock()
	mark, pending := s.unflushed[userID]
	s.mu.Unlock()
	if !pending {
		return true
	}

	if err := s.cache.Delete(ctx, userID); err != nil {
		s.log.WithError(err).WithField("user_id", userID.Hex()).Warn("cache invalidate retry failed, bypassing cache")
		return false
	}

	s.mu.Lock()
	// a newer failure recorded meanwhile stays pending
	if s.unflushed[userID] == mark {
		delete(s.unflushed, userID)
	}
	s.mu.Unlock()
	return true
}

// populate replaces every line item reference with its product. Products
// that no longer exist populate as nil.
func (s *CartService) populate(ctx context.Context, cart *domain.Cart) (*domain.PopulatedCart, error) {
	ids := make([]primitive.ObjectID, 0, len(cart.Products))
	for _, item := range cart.Products {
		ids = append(ids, item.ProductID)
	}

	products, err := s.products.GetProductsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to populate cart: %w", err)
	}
	byRef := make(map[string]*domain.Product, len(products))
	for i := range products {
		byRef[domain.RefString(products[i])] = &products[i]
	}

	populated := &domain.PopulatedCart{
		ID:        cart.ID,
		UserID:    cart.UserID,
		Products:  make([]domain.PopulatedItem, 0, len(cart.Products)),
		CreatedAt: cart.CreatedAt,
		UpdatedAt: cart.UpdatedAt,
	}
	for _, item := range cart.Products {
		product := byRef[domain.RefString(item)]
		if product == nil {
			s.log.WithFields(logrus.Fields{
				"user_id":    cart.UserID.Hex(),
				"product_id": item.ProductID.Hex(),
			}).Debug("cart references a missing product")
		}
		populated.Products = append(populated.Products, domain.PopulatedItem{
			ProductID: item.ProductID,
			Product:   product,
			Quantity:  item.Quantity,
		})
	}
	return populated, nil
}

// AddItem adds quantity units of the product, merging into an existing
// line item.
func (s *CartService) AddItem(ctx context.Context, userID, productID string, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	uid, pid, err := parseRefs(userID, productID)
	if err != nil {
		return err
	}

	if _, err := s.products.GetProduct(ctx, pid); err != nil {
		return err
	}

	if err := s.carts.AddItem(ctx, uid, pid, quantity); err != nil {
		return err
	}

	s.invalidateCache(uid)
	return nil
}

// UpdateQuantity sets the quantity of a line item already in the cart.
func (s *CartService) UpdateQuantity(ctx context.Context, userID, productID string, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	uid, pid, err := parseRefs(userID, productID)
	if err != nil {
		return err
	}

	if err := s.carts.UpdateItemQuantity(ctx, uid, pid, quantity); err != nil {
		return err
	}

	s.invalidateCache(uid)
	return nil
}

// RemoveItem drops the line item for productID. Removing a product that is
// not in the cart succeeds.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID string) error {
	uid, pid, err := parseRefs(userID, productID)
	if err != nil {
		return err
	}

	if err := s.carts.RemoveItem(ctx, uid, pid); err != nil {
		return err
	}

	s.invalidateCache(uid)
	return nil
}

// ClearCart deletes the user's cart. Clearing a missing cart succeeds.
func (s *CartService) ClearCart(ctx context.Context, userID string) error {
	uid, err := domain.ParseRef(userID)
	if err != nil {
		return err
	}

	if err := s.carts.DeleteCart(ctx, uid); err != nil && !errors.Is(err, repository.ErrCartNotFound) {
		return err
	}

	s.invalidateCache(uid)
	return nil
}

// invalidateCache drops the cached cart after a mutation. Loads already in
// flight keep their callers, but later GetCart calls start a fresh load.
func (s *CartService) invalidateCache(userID primitive.ObjectID) {
	defer s.sfg.Forget(userID.Hex())

	ctx, cancel := context.WithTimeout(context.Background(), invalidateTimeout)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.log.WithError(err).WithField("user_id", userID.Hex()).Warn("cache invalidate failed")
		s.mu.Lock()
		s.failSeq++
		s.unflushed[userID] = s.failSeq
		s.mu.Unlock()
	}
}

func parseRefs(userID, productID string) (primitive.ObjectID, primitive.ObjectID, error) {
	uid, err := domain.ParseRef(userID)
	if err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, fmt.Errorf("user id: %w", err)
	}
	pid, err := domain.ParseRef(productID)
	if err != nil {
		return primitive.NilObjectID, primitive.NilObjectID, fmt.Errorf("product id: %w", err)
	}
	return uid, pid, nil
}
