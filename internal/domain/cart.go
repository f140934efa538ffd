package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Cart is the stored form of a user's cart. Products holds at most one
// LineItem per product reference.
type Cart struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Products  []LineItem         `bson:"products" json:"products"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}

type LineItem struct {
	ProductID primitive.ObjectID `bson:"productId" json:"productId"`
	Quantity  int                `bson:"quantity" json:"quantity"`
}

// IndexOf returns the position of the line item referencing ref, or -1.
// ref may be any representation accepted by RefString.
func (c *Cart) IndexOf(ref any) int {
	want := RefString(ref)
	if want == "" {
		return -1
	}
	for i, item := range c.Products {
		if RefString(item) == want {
			return i
		}
	}
	return -1
}

// PopulatedCart is the read model of a cart: every line item carries the
// referenced product instead of the bare id.
type PopulatedCart struct {
	ID        primitive.ObjectID `json:"_id"`
	UserID    primitive.ObjectID `json:"userId"`
	Products  []PopulatedItem    `json:"products"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
}

// PopulatedItem serialises the product under "productId". Product is nil
// when the referenced product no longer exists.
type PopulatedItem struct {
	ProductID primitive.ObjectID `json:"-"`
	Product   *Product           `json:"productId"`
	Quantity  int                `json:"quantity"`
}
