package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Pointage/pkg/errors"
)

func TestGenerateAndValidateRefresh(t *testing.T) {
	require.NoError(t, InitWith("test-secret", time.Hour, 24*time.Hour))
	require.NotNil(t, GetGenerator())

	access, refresh, expiresIn, err := GenerateTokenPair("42")
	require.NoError(t, err)
	assert.NotEmpty(t, access)
	assert.NotEmpty(t, refresh)
	assert.InDelta(t, 3600, expiresIn, 2)

	workerID, err := ValidateRefreshToken(refresh)
	require.NoError(t, err)
	assert.Equal(t, "42", workerID)

	// access token 不能当作 refresh token 使用
	_, err = ValidateRefreshToken(access)
	assert.ErrorIs(t, err, errors.ErrInvalidTokenClaims)
}

func TestValidateRefreshToken_WrongSecret(t *testing.T) {
	require.NoError(t, InitWith("secret-a", time.Hour, time.Hour))
	_, refresh, _, err := GenerateTokenPair("7")
	require.NoError(t, err)

	require.NoError(t, InitWith("secret-b", time.Hour, time.Hour))
	_, err = ValidateRefreshToken(refresh)
	assert.Error(t, err)
}

func TestInitWith_EmptySecret(t *testing.T) {
	assert.Error(t, InitWith("", time.Hour, time.Hour))
}

func TestWorkerIDFromClaims(t *testing.T) {
	id, err := WorkerIDFromClaims(map[string]interface{}{IdentityKey: "12"})
	require.NoError(t, err)
	assert.Equal(t, "12", id)

	id, err = WorkerIDFromClaims(map[string]interface{}{IdentityKey: float64(99)})
	require.NoError(t, err)
	assert.Equal(t, "99", id)

	_, err = WorkerIDFromClaims(map[string]interface{}{})
	assert.ErrorIs(t, err, errors.ErrUserIDNotFound)
}
