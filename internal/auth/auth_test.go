package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/ecommerce-storefront/internal/auth"
	"github.com/vasiliy-maslov/ecommerce-storefront/internal/session"
)

func TestStoreTokenSource_EmptyMeansGuest(t *testing.T) {
	source := auth.NewStoreTokenSource(session.NewMemoryStore())

	token, err := source.Token(context.Background())
	require.NoError(t, err)
	assert.Empty(t, token, "a missing credential is not an error, it is guest mode")
}

func TestStoreTokenSource_RoundTrip(t *testing.T) {
	source := auth.NewStoreTokenSource(session.NewMemoryStore())
	ctx := context.Background()

	require.NoError(t, source.SetToken(ctx, "bearer-123"))

	token, err := source.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "bearer-123", token)

	require.NoError(t, source.ClearToken(ctx))
	token, err = source.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestJWTManager_GenerateAndVerify(t *testing.T) {
	manager := auth.NewJWTManager("test-secret", time.Hour)

	token, err := manager.Generate("user-42")
	require.NoError(t, err)

	userID, err := manager.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-42", userID)
}

func TestJWTManager_VerifyErrors(t *testing.T) {
	manager := auth.NewJWTManager("test-secret", time.Hour)

	token, err := manager.Generate("user-42")
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		manager *auth.JWTManager
		wantErr error
	}{
		{
			name:    "garbage_token",
			token:   "not.a.jwt",
			manager: manager,
			wantErr: auth.ErrInvalidToken,
		},
		{
			name:    "wrong_secret",
			token:   token,
			manager: auth.NewJWTManager("other-secret", time.Hour),
			wantErr: auth.ErrInvalidToken,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.manager.Verify(tt.token)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestJWTManager_ExpiredToken(t *testing.T) {
	manager := auth.NewJWTManager("test-secret", time.Millisecond)

	token, err := manager.Generate("user-42")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	_, err = manager.Verify(token)
	assert.ErrorIs(t, err, auth.ErrExpiredToken)
}
