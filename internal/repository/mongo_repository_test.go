package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fjod/cosmic-backend/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

func setupTestDB(t *testing.T) *mongo.Database {
	if testing.Short() {
		t.Skip("skipping MongoDB container test in short mode")
	}
	ctx := context.Background()

	// Start MongoDB container
	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := ConnectMongoDB(ctx, uri, "testdb")
	require.NoError(t, err)
	require.NoError(t, EnsureIndexes(ctx, db))

	return db
}

func TestMongoCart_GetCart_NotFound(t *testing.T) {
	repo := NewMongoCartRepository(setupTestDB(t))

	cart, err := repo.GetCart(context.Background(), primitive.NewObjectID())

	assert.ErrorIs(t, err, ErrCartNotFound)
	assert.Nil(t, cart)
}

func TestMongoCart_AddItem_NewCart(t *testing.T) {
	repo := NewMongoCartRepository(setupTestDB(t))
	ctx := context.Background()
	userID, productID := primitive.NewObjectID(), primitive.NewObjectID()

	require.NoError(t, repo.AddItem(ctx, userID, productID, 3))

	cart, err := repo.GetCart(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, userID, cart.UserID)
	assert.False(t, cart.ID.IsZero())
	assert.False(t, cart.CreatedAt.IsZero())
	require.Len(t, cart.Products, 1)
	assert.Equal(t, productID, cart.Products[0].ProductID)
	assert.Equal(t, 3, cart.Products[0].Quantity)
}

func TestMongoCart_AddItem_ExistingItem_AddsQuantity(t *testing.T) {
	repo := NewMongoCartRepository(setupTestDB(t))
	ctx := context.Background()
	userID, productID := primitive.NewObjectID(), primitive.NewObjectID()

	require.NoError(t, repo.AddItem(ctx, userID, productID, 2))
	require.NoError(t, repo.AddItem(ctx, userID, productID, 5))

	cart, err := repo.GetCart(ctx, userID)
	require.NoError(t, err)
	require.Len(t, cart.Products, 1)
	assert.Equal(t, 7, cart.Products[0].Quantity)
}

func TestMongoCart_AddItem_Concurrent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewMongoCartRepository(db)
	ctx := context.Background()
	userID, productID := primitive.NewObjectID(), primitive.NewObjectID()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, repo.AddItem(ctx, userID, productID, 1))
		}()
	}
	wg.Wait()

	n, err := db.Collection(cartsCollection).CountDocuments(ctx, bson.M{"userId": userID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	cart, err := repo.GetCart(ctx, userID)
	require.NoError(t, err)
	require.Len(t, cart.Products, 1)
	assert.Equal(t, 10, cart.Products[0].Quantity)
}

func TestMongoCart_UpdateItemQuantity(t *testing.T) {
	repo := NewMongoCartRepository(setupTestDB(t))
	ctx := context.Background()
	userID, productID := primitive.NewObjectID(), primitive.NewObjectID()

	assert.ErrorIs(t, repo.UpdateItemQuantity(ctx, userID, productID, 10), ErrCartNotFound)

	require.NoError(t, repo.AddItem(ctx, userID, productID, 2))
	assert.ErrorIs(t, repo.UpdateItemQuantity(ctx, userID, primitive.NewObjectID(), 10), ErrItemNotFound)

	require.NoError(t, repo.UpdateItemQuantity(ctx, userID, productID, 10))

	cart, err := repo.GetCart(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 10, cart.Products[0].Quantity)
}

func TestMongoCart_RemoveItem(t *testing.T) {
	repo := NewMongoCartRepository(setupTestDB(t))
	ctx := context.Background()
	userID := primitive.NewObjectID()
	p1, p2 := primitive.NewObjectID(), primitive.NewObjectID()

	assert.ErrorIs(t, repo.RemoveItem(ctx, userID, p1), ErrCartNotFound)

	require.NoError(t, repo.AddItem(ctx, userID, p1, 2))
	require.NoError(t, repo.AddItem(ctx, userID, p2, 3))

	require.NoError(t, repo.RemoveItem(ctx, userID, p1))
	// removing an absent item is not an error
	require.NoError(t, repo.RemoveItem(ctx, userID, p1))

	cart, err := repo.GetCart(ctx, userID)
	require.NoError(t, err)
	require.Len(t, cart.Products, 1)
	assert.Equal(t, p2, cart.Products[0].ProductID)
}

func TestMongoCart_DeleteCart(t *testing.T) {
	repo := NewMongoCartRepository(setupTestDB(t))
	ctx := context.Background()
	userID := primitive.NewObjectID()

	require.NoError(t, repo.AddItem(ctx, userID, primitive.NewObjectID(), 2))
	require.NoError(t, repo.DeleteCart(ctx, userID))

	_, err := repo.GetCart(ctx, userID)
	assert.ErrorIs(t, err, ErrCartNotFound)
	assert.ErrorIs(t, repo.DeleteCart(ctx, userID), ErrCartNotFound)
}

func TestMongoProduct_CRUD_And_Search(t *testing.T) {
	repo := NewMongoProductRepository(setupTestDB(t))
	ctx := context.Background()

	rocket := &domain.Product{Name: "Rocket", Description: "Goes up", Price: 10.5, Stock: 3, Image: "rocket.png"}
	comet := &domain.Product{Name: "Comet", Description: "Icy (and fast)", Price: 5}
	require.NoError(t, repo.CreateProduct(ctx, rocket))
	require.NoError(t, repo.CreateProduct(ctx, comet))
	assert.False(t, rocket.ID.IsZero())

	all, err := repo.ListProducts(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	found, err := repo.SearchProducts(ctx, "(and")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, comet.ID, found[0].ID)

	found, err = repo.SearchProducts(ctx, "ROCK")
	require.NoError(t, err)
	require.Len(t, found, 1)

	byIDs, err := repo.GetProductsByIDs(ctx, []primitive.ObjectID{rocket.ID, primitive.NewObjectID()})
	require.NoError(t, err)
	assert.Len(t, byIDs, 1)

	rocket.Stock = 7
	require.NoError(t, repo.UpdateProduct(ctx, rocket))
	got, err := repo.GetProduct(ctx, rocket.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, got.Stock)

	require.NoError(t, repo.DeleteProduct(ctx, rocket.ID))
	_, err = repo.GetProduct(ctx, rocket.ID)
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.ErrorIs(t, repo.DeleteProduct(ctx, rocket.ID), ErrProductNotFound)
}

func TestMongoUser_DuplicateEmail(t *testing.T) {
	repo := NewMongoUserRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.CreateUser(ctx, &domain.User{FullName: "Ada", Email: "ada@example.com", PasswordHash: "x"}))
	err := repo.CreateUser(ctx, &domain.User{FullName: "Ada", Email: "ADA@example.com", PasswordHash: "y"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	user, err := repo.GetUserByEmail(ctx, "Ada@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "x", user.PasswordHash)

	_, err = repo.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestContextCancellation(t *testing.T) {
	repo := NewMongoCartRepository(setupTestDB(t))

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Nanosecond)
	defer cancel()

	time.Sleep(10 * time.Millisecond) // Ensure context is cancelled

	_, err := repo.GetCart(ctx, primitive.NewObjectID())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "context")
}
