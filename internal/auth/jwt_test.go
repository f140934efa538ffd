package auth

import (
	"testing"
	"time"

	"github.com/fjod/cosmic-backend/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func testUser(admin bool) *domain.User {
	return &domain.User{ID: primitive.NewObjectID(), Email: "test@example.com", Admin: admin}
}

func TestJWTManager_GenerateAndValidate(t *testing.T) {
	manager := NewJWTManager("test-secret-key", 15*time.Minute, "test-issuer")
	user := testUser(false)

	token, err := manager.GenerateToken(user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := manager.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID.Hex(), claims.UserID)
	assert.Equal(t, user.ID.Hex(), claims.Subject)
	assert.Equal(t, "test@example.com", claims.Email)
	assert.False(t, claims.Admin)
	assert.Equal(t, "test-issuer", claims.Issuer)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpiresAt.Time, 5*time.Second)
}

func TestJWTManager_CarriesAdmin(t *testing.T) {
	manager := NewJWTManager("test-secret-key", time.Hour, "test-issuer")

	token, err := manager.GenerateToken(testUser(true))
	require.NoError(t, err)

	claims, err := manager.ValidateToken(token)
	require.NoError(t, err)
	assert.True(t, claims.Admin)
}

func TestJWTManager_UnsavedUser(t *testing.T) {
	manager := NewJWTManager("test-secret-key", time.Hour, "test-issuer")

	_, err := manager.GenerateToken(&domain.User{Email: "a@example.com"})
	assert.Error(t, err)
	_, err = manager.GenerateToken(nil)
	assert.Error(t, err)
}

func TestJWTManager_WrongSecret(t *testing.T) {
	token, err := NewJWTManager("secret-a", time.Hour, "test-issuer").GenerateToken(testUser(false))
	require.NoError(t, err)

	_, err = NewJWTManager("secret-b", time.Hour, "test-issuer").ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTManager_WrongIssuer(t *testing.T) {
	token, err := NewJWTManager("shared", time.Hour, "other-service").GenerateToken(testUser(false))
	require.NoError(t, err)

	_, err = NewJWTManager("shared", time.Hour, "test-issuer").ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTManager_Expired(t *testing.T) {
	manager := NewJWTManager("test-secret-key", -time.Minute, "test-issuer")

	token, err := manager.GenerateToken(testUser(false))
	require.NoError(t, err)

	_, err = manager.ValidateToken(token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestJWTManager_RejectsForgedClaims(t *testing.T) {
	manager := NewJWTManager("test-secret-key", time.Hour, "test-issuer")
	uid := primitive.NewObjectID().Hex()
	exp := jwt.NewNumericDate(time.Now().Add(time.Hour))

	tests := []struct {
		name   string
		method jwt.SigningMethod
		key    any
		claims Claims
	}{
		{
			name:   "none algorithm",
			method: jwt.SigningMethodNone,
			key:    jwt.UnsafeAllowNoneSignatureType,
			claims: Claims{UserID: uid, Admin: true, RegisteredClaims: jwt.RegisteredClaims{Issuer: "test-issuer", Subject: uid, ExpiresAt: exp}},
		},
		{
			name:   "HS512",
			method: jwt.SigningMethodHS512,
			key:    []byte("test-secret-key"),
			claims: Claims{UserID: uid, RegisteredClaims: jwt.RegisteredClaims{Issuer: "test-issuer", Subject: uid, ExpiresAt: exp}},
		},
		{
			name:   "no expiry",
			method: jwt.SigningMethodHS256,
			key:    []byte("test-secret-key"),
			claims: Claims{UserID: uid, RegisteredClaims: jwt.RegisteredClaims{Issuer: "test-issuer", Subject: uid}},
		},
		{
			name:   "subject mismatch",
			method: jwt.SigningMethodHS256,
			key:    []byte("test-secret-key"),
			claims: Claims{UserID: uid, RegisteredClaims: jwt.RegisteredClaims{Issuer: "test-issuer", Subject: "someone-else", ExpiresAt: exp}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := jwt.NewWithClaims(tt.method, tt.claims).SignedString(tt.key)
			require.NoError(t, err)

			_, err = manager.ValidateToken(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestJWTManager_Garbage(t *testing.T) {
	manager := NewJWTManager("test-secret-key", time.Hour, "test-issuer")

	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		_, err := manager.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken, token)
	}
}
