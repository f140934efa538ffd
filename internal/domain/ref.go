package domain

import (
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrInvalidRef = errors.New("invalid object reference")

// ParseRef parses a hex object id, tolerating surrounding whitespace and
// upper-case digits.
func ParseRef(s string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidRef, s)
	}
	return id, nil
}

// RefString returns the canonical lower-case hex form of a product
// reference, whatever shape it arrives in. Unknown shapes yield "".
//
// References reach the cart code as raw ids from the wire, as ObjectIDs from
// the store and as whole products after population, so every comparison
// goes through this function.
func RefString(ref any) string {
	switch r := ref.(type) {
	case string:
		return strings.ToLower(strings.TrimSpace(r))
	case primitive.ObjectID:
		return r.Hex()
	case *primitive.ObjectID:
		if r == nil {
			return ""
		}
		return r.Hex()
	case Product:
		return r.ID.Hex()
	case *Product:
		if r == nil {
			return ""
		}
		return r.ID.Hex()
	case LineItem:
		return r.ProductID.Hex()
	case PopulatedItem:
		return r.ProductID.Hex()
	default:
		return ""
	}
}

// SameRef reports whether a and b name the same object.
func SameRef(a, b any) bool {
	sa := RefString(a)
	return sa != "" && sa == RefString(b)
}
