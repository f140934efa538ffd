package repository

import (
	"context"
	"errors"

	"github.com/fjod/cosmic-backend/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrCartNotFound    = errors.New("cart not found")
	ErrItemNotFound    = errors.New("item not found in cart")
	ErrCartConflict    = errors.New("cart changed concurrently, giving up")
	ErrProductNotFound = errors.New("product not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrDuplicateEmail  = errors.New("email already registered")
)

const (
	cartsCollection    = "carts"
	productsCollection = "products"
	usersCollection    = "users"
)

// CartRepository defines the interface for cart data operations.
// Every mutation is applied by the store in a single conditional update.
type CartRepository interface {
	GetCart(ctx context.Context, userID primitive.ObjectID) (*domain.Cart, error)
	// AddItem adds quantity to the line item for productID, creating the
	// line item and the cart when they do not exist yet.
	AddItem(ctx context.Context, userID, productID primitive.ObjectID, quantity int) error
	UpdateItemQuantity(ctx context.Context, userID, productID primitive.ObjectID, quantity int) error
	RemoveItem(ctx context.Context, userID, productID primitive.ObjectID) error
	DeleteCart(ctx context.Context, userID primitive.ObjectID) error
}

type ProductRepository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id primitive.ObjectID) (*domain.Product, error)
	GetProductsByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.Product, error)
	// SearchProducts matches query literally and case-insensitively against
	// name and description.
	SearchProducts(ctx context.Context, query string) ([]domain.Product, error)
	CreateProduct(ctx context.Context, product *domain.Product) error
	UpdateProduct(ctx context.Context, product *domain.Product) error
	DeleteProduct(ctx context.Context, id primitive.ObjectID) error
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
}
