package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/cosmic-backend/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// maxUpsertAttempts bounds how often AddItem re-runs after losing an upsert
// race on the unique userId index.
const maxUpsertAttempts = 3

type mongoCartRepository struct {
	collection *mongo.Collection
}

func NewMongoCartRepository(db *mongo.Database) CartRepository {
	return &mongoCartRepository{
		collection: db.Collection(cartsCollection),
	}
}

func (m mongoCartRepository) GetCart(ctx context.Context, userID primitive.ObjectID) (*domain.Cart, error) {
	var cart domain.Cart

	filter := bson.M{"userId": userID}
	err := m.collection.FindOne(ctx, filter).Decode(&cart)

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	if cart.Products == nil {
		cart.Products = []domain.LineItem{}
	}
	return &cart, nil
}

func (m mongoCartRepository) AddItem(ctx context.Context, userID, productID primitive.ObjectID, quantity int) error {
	for attempt := 0; attempt < maxUpsertAttempts; attempt++ {
		now := time.Now().UTC()

		// Merge into an existing line item
		merge := bson.M{
			"$inc": bson.M{"products.$.quantity": quantity},
			"$set": bson.M{"updatedAt": now},
		}
		result, err := m.collection.UpdateOne(ctx,
			bson.M{"userId": userID, "products.productId": productID},
			merge,
		)
		if err != nil {
			return fmt.Errorf("failed to merge cart item: %w", err)
		}
		if result.MatchedCount > 0 {
			return nil
		}

		// Append a new line item, creating the cart on first use. The $ne
		// guard keeps a concurrent append of the same product from producing
		// a second line item: the filter stops matching and the upsert trips
		// the unique index instead.
		appendItem := bson.M{
			"$push":        bson.M{"products": domain.LineItem{ProductID: productID, Quantity: quantity}},
			"$set":         bson.M{"updatedAt": now},
			"$setOnInsert": bson.M{"createdAt": now},
		}
		_, err = m.collection.UpdateOne(ctx,
			bson.M{"userId": userID, "products.productId": bson.M{"$ne": productID}},
			appendItem,
			options.Update().SetUpsert(true),
		)
		if err == nil {
			return nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("failed to add cart item: %w", err)
		}
	}

	return ErrCartConflict
}

func (m mongoCartRepository) UpdateItemQuantity(ctx context.Context, userID, productID primitive.ObjectID, quantity int) error {
	filter := bson.M{
		"userId":             userID,
		"products.productId": productID,
	}

	update := bson.M{
		"$set": bson.M{
			"products.$.quantity": quantity,
			"updatedAt":           time.Now().UTC(),
		},
	}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update item quantity: %w", err)
	}

	if result.MatchedCount == 0 {
		return m.missing(ctx, userID)
	}
	return nil
}

func (m mongoCartRepository) RemoveItem(ctx context.Context, userID, productID primitive.ObjectID) error {
	filter := bson.M{"userId": userID}
	update := bson.M{
		"$pull": bson.M{
			"products": bson.M{"productId": productID},
		},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
	}

	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to remove item: %w", err)
	}

	if result.MatchedCount == 0 {
		return ErrCartNotFound
	}

	return nil
}

func (m mongoCartRepository) DeleteCart(ctx context.Context, userID primitive.ObjectID) error {
	filter := bson.M{"userId": userID}

	result, err := m.collection.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}

	if result.DeletedCount == 0 {
		return ErrCartNotFound
	}

	return nil
}

// missing tells a missing cart apart from a missing line item after a
// conditional update matched nothing.
func (m mongoCartRepository) missing(ctx context.Context, userID primitive.ObjectID) error {
	n, err := m.collection.CountDocuments(ctx, bson.M{"userId": userID}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("failed to check cart: %w", err)
	}
	if n == 0 {
		return ErrCartNotFound
	}
	return ErrItemNotFound
}
