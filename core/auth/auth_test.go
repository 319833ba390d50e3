package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSecretHashRoundtrip(t *testing.T) {
	hash, err := HashSecret("s3cret")
	require.NoError(t, err)
	require.NotEqual(t, "s3cret", hash)

	require.True(t, CheckSecretHash("s3cret", hash))
	require.False(t, CheckSecretHash("wrong", hash))
	require.False(t, CheckSecretHash("s3cret", "not-a-hash"))
}

func TestTokenRoundtrip(t *testing.T) {
	token, err := GenerateToken("admin", "signing-key", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token, "signing-key")
	require.NoError(t, err)
	require.Equal(t, "admin", claims.Username)
	require.Equal(t, "greetfm", claims.Issuer)
}

func TestTokenWrongKeyRejected(t *testing.T) {
	token, err := GenerateToken("admin", "signing-key", time.Hour)
	require.NoError(t, err)

	_, err = ParseToken(token, "other-key")
	require.Error(t, err)
}

func TestTokenExpiryRejected(t *testing.T) {
	token, err := GenerateToken("admin", "signing-key", -time.Minute)
	require.NoError(t, err)

	_, err = ParseToken(token, "signing-key")
	require.Error(t, err)
}
