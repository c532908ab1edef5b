package keymanager

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/pilacorp/go-did-sdk/did/common/crypto"
)

func TestGenerateAndUseKey(t *testing.T) {
	km := NewInMemoryKeyManager()

	alias, err := km.GeneratePrivateKey(crypto.AlgorithmEd25519)
	require.NoError(t, err)
	require.NotEmpty(t, alias)

	pub, err := km.GetPublicKey(alias)
	require.NoError(t, err)
	assert.False(t, pub.IsPrivate())

	// The alias is the deterministic thumbprint of the public key.
	deterministic, err := km.GetDeterministicAlias(pub)
	require.NoError(t, err)
	assert.Equal(t, alias, deterministic)

	message := []byte("payload")
	sig, err := km.Sign(alias, message)
	require.NoError(t, err)

	valid, err := crypto.Verify(pub, message, sig)
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestAliasNotFound(t *testing.T) {
	km := NewInMemoryKeyManager()

	_, err := km.GetPublicKey("no-such-alias")
	assert.ErrorIs(t, err, ErrAliasNotFound)

	_, err = km.Sign("no-such-alias", []byte("payload"))
	assert.ErrorIs(t, err, ErrAliasNotFound)
}

func TestImportIsIdempotent(t *testing.T) {
	km := NewInMemoryKeyManager()

	priv, err := crypto.GeneratePrivateKey(crypto.AlgorithmSecp256k1)
	require.NoError(t, err)

	first, err := km.Import(priv)
	require.NoError(t, err)
	second, err := km.Import(priv)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	pub, err := km.GetPublicKey(first)
	require.NoError(t, err)
	assert.Equal(t, priv.X, pub.X)
}

func TestImportRejectsPublicKey(t *testing.T) {
	km := NewInMemoryKeyManager()

	priv, err := crypto.GeneratePrivateKey(crypto.AlgorithmEd25519)
	require.NoError(t, err)

	_, err = km.Import(priv.Public())
	assert.Error(t, err)
}

func TestConcurrentGeneration(t *testing.T) {
	km := NewInMemoryKeyManager()

	const workers = 16
	aliases := make([]string, workers)

	var g errgroup.Group
	for i := 0; i < workers; i++ {
		i := i
		g.Go(func() error {
			alg := crypto.AlgorithmEd25519
			if i%2 == 0 {
				alg = crypto.AlgorithmSecp256k1
			}
			alias, err := km.GeneratePrivateKey(alg)
			if err != nil {
				return err
			}
			aliases[i] = alias
			return nil
		})
	}
	require.NoError(t, g.Wait())

	seen := make(map[string]bool, workers)
	for _, alias := range aliases {
		require.NotEmpty(t, alias)
		assert.False(t, seen[alias], "alias %q generated twice", alias)
		seen[alias] = true

		_, err := km.GetPublicKey(alias)
		assert.NoError(t, err)
	}
}
