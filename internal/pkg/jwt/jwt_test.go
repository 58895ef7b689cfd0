package jwt

import (
	"context"
	"testing"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func verify(t *testing.T, svc Service, token string) context.Context {
	t.Helper()
	decoded, err := svc.JWTAuth().Decode(token)
	require.NoError(t, err)
	return jwtauth.NewContext(context.Background(), decoded, nil)
}

func TestClaimsFromContext(t *testing.T) {
	svc := NewJWTService("secret", time.Hour)
	employeeID := "emp-1"

	token, expiresAt, err := svc.GenerateAccessToken("user-1", &employeeID, RoleEmployee)
	require.NoError(t, err)
	assert.Greater(t, expiresAt, time.Now().Unix())

	claims, err := ClaimsFromContext(verify(t, svc, token))
	require.NoError(t, err)
	assert.Equal(t, Claims{UserID: "user-1", EmployeeID: "emp-1", Role: RoleEmployee}, claims)
	assert.False(t, claims.Role.CanManage())
}

func TestClaimsFromContext_ManagerWithoutEmployee(t *testing.T) {
	svc := NewJWTService("secret", time.Hour)

	token, _, err := svc.GenerateAccessToken("user-2", nil, RoleManager)
	require.NoError(t, err)

	claims, err := ClaimsFromContext(verify(t, svc, token))
	require.NoError(t, err)
	assert.Empty(t, claims.EmployeeID)
	assert.True(t, claims.Role.CanManage())
}

func TestClaimsFromContext_WrongTokenType(t *testing.T) {
	svc := NewJWTService("secret", time.Hour)

	_, token, err := svc.JWTAuth().Encode(map[string]interface{}{
		"user_id": "user-1",
		"type":    "refresh",
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	require.NoError(t, err)

	_, err = ClaimsFromContext(verify(t, svc, token))
	assert.ErrorIs(t, err, ErrMissingClaims)
}

func TestDecode_WrongSecret(t *testing.T) {
	token, _, err := NewJWTService("secret", time.Hour).GenerateAccessToken("user-1", nil, RoleOwner)
	require.NoError(t, err)

	_, err = NewJWTService("other", time.Hour).JWTAuth().Decode(token)
	assert.Error(t, err)
}
