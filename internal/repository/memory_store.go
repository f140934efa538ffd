package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/fjod/cosmic-backend/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore implements CartRepository, ProductRepository and
// UserRepository in process memory. Every method holds the lock for its
// whole read-modify-write, so cart mutations are atomic per call.
type MemoryStore struct {
	mu       sync.RWMutex
	carts    map[primitive.ObjectID]*domain.Cart    // userID -> cart
	products map[primitive.ObjectID]*domain.Product // productID -> product
	users    map[string]*domain.User                // lower-cased email -> user
	order    []primitive.ObjectID                   // product insertion order
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		carts:    make(map[primitive.ObjectID]*domain.Cart),
		products: make(map[primitive.ObjectID]*domain.Product),
		users:    make(map[string]*domain.User),
	}
}

func (s *MemoryStore) GetCart(_ context.Context, userID primitive.ObjectID) (*domain.Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cart, exists := s.carts[userID]
	if !exists {
		return nil, ErrCartNotFound
	}
	return copyCart(cart), nil
}

func (s *MemoryStore) AddItem(_ context.Context, userID, productID primitive.ObjectID, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	cart, exists := s.carts[userID]
	if !exists {
		cart = &domain.Cart{
			ID:        primitive.NewObjectID(),
			UserID:    userID,
			Products:  []domain.LineItem{},
			CreatedAt: now,
		}
		s.carts[userID] = cart
	}

	if i := cart.IndexOf(productID); i >= 0 {
		cart.Products[i].Quantity += quantity
	} else {
		cart.Products = append(cart.Products, domain.LineItem{ProductID: productID, Quantity: quantity})
	}
	cart.UpdatedAt = now
	return nil
}

func (s *MemoryStore) UpdateItemQuantity(_ context.Context, userID, productID primitive.ObjectID, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, exists := s.carts[userID]
	if !exists {
		return ErrCartNotFound
	}
	i := cart.IndexOf(productID)
	if i < 0 {
		return ErrItemNotFound
	}
	cart.Products[i].Quantity = quantity
	cart.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) RemoveItem(_ context.Context, userID, productID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, exists := s.carts[userID]
	if !exists {
		return ErrCartNotFound
	}
	kept := cart.Products[:0]
	for _, item := range cart.Products {
		if item.ProductID != productID {
			kept = append(kept, item)
		}
	}
	cart.Products = kept
	cart.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryStore) DeleteCart(_ context.Context, userID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.carts[userID]; !exists {
		return ErrCartNotFound
	}
	delete(s.carts, userID)
	return nil
}

func (s *MemoryStore) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.filterProducts(func(*domain.Product) bool { return true }), nil
}

func (s *MemoryStore) GetProduct(_ context.Context, id primitive.ObjectID) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.products[id]
	if !exists {
		return nil, ErrProductNotFound
	}
	p := *product
	return &p, nil
}

func (s *MemoryStore) GetProductsByIDs(_ context.Context, ids []primitive.ObjectID) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Product, 0, len(ids))
	seen := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		if product, exists := s.products[id]; exists && !seen[id] {
			seen[id] = true
			result = append(result, *product)
		}
	}
	return result, nil
}

func (s *MemoryStore) SearchProducts(_ context.Context, query string) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := strings.ToLower(query)
	return s.filterProducts(func(p *domain.Product) bool {
		return strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.Description), q)
	}), nil
}

func (s *MemoryStore) CreateProduct(_ context.Context, product *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if product.ID.IsZero() {
		product.ID = primitive.NewObjectID()
	}
	p := *product
	if _, exists := s.products[p.ID]; !exists {
		s.order = append(s.order, p.ID)
	}
	s.products[p.ID] = &p
	return nil
}

func (s *MemoryStore) UpdateProduct(_ context.Context, product *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[product.ID]; !exists {
		return ErrProductNotFound
	}
	p := *product
	s.products[p.ID] = &p
	return nil
}

func (s *MemoryStore) DeleteProduct(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[id]; !exists {
		return ErrProductNotFound
	}
	delete(s.products, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStore) CreateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user.Email = strings.ToLower(user.Email)
	if _, exists := s.users[user.Email]; exists {
		return ErrDuplicateEmail
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	u := *user
	s.users[u.Email] = &u
	return nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[strings.ToLower(email)]
	if !exists {
		return nil, ErrUserNotFound
	}
	u := *user
	return &u, nil
}

// Ping always succeeds; it lets the memory store stand in for the database
// health check.
func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

// filterProducts must be called with the lock held
func (s *MemoryStore) filterProducts(keep func(*domain.Product) bool) []domain.Product {
	result := []domain.Product{}
	for _, id := range s.order {
		if p := s.products[id]; keep(p) {
			result = append(result, *p)
		}
	}
	return result
}

func copyCart(c *domain.Cart) *domain.Cart {
	cp := *c
	cp.Products = make([]domain.LineItem, len(c.Products))
	copy(cp.Products, c.Products)
	return &cp
}
