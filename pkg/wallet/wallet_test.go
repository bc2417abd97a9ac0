package wallet

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMnemonic(t *testing.T) {
	tests := []struct {
		entropySize int
		words       int
	}{
		{0, 24},
		{128, 12},
		{256, 24},
	}
	for _, tt := range tests {
		mnemonic, err := NewMnemonic(NewMnemonicOpts{EntropySize: tt.entropySize})
		require.NoError(t, err)
		assert.Len(t, mnemonic, tt.words)
		assert.Equal(t, true, isMnemonicValid(mnemonic))
	}
}

func TestFailingNewMnemonic(t *testing.T) {
	tests := []int{-1, 127, 257, 130}
	for _, tt := range tests {
		opts := NewMnemonicOpts{
			EntropySize: tt,
		}
		_, err := NewMnemonic(opts)
		assert.NotNil(t, err)
	}
}

func TestNewEd25519SeedFromMnemonic(t *testing.T) {
	mnemonic, err := NewMnemonic(NewMnemonicOpts{})
	require.NoError(t, err)

	seed, err := NewEd25519SeedFromMnemonic(mnemonic)
	require.NoError(t, err)
	other, err := NewEd25519SeedFromMnemonic(mnemonic)
	require.NoError(t, err)
	assert.Equal(t, *seed, *other)
	assert.Len(t, seed.key, 64)
	assert.Equal(t, SeedSchemeEd25519, seed.Scheme())
}

func TestFailingNewEd25519SeedFromMnemonic(t *testing.T) {
	tests := []struct {
		mnemonic []string
		err      error
	}{
		{
			mnemonic: nil,
			err:      ErrNullSigningMnemonic,
		},
		{
			mnemonic: strings.Split("legal winner thank year wave sausage worth useful legal winner thank yellow yellow", " "),
			err:      ErrInvalidSigningMnemonic,
		},
	}
	for _, tt := range tests {
		_, err := NewEd25519SeedFromMnemonic(tt.mnemonic)
		assert.Equal(t, tt.err, err)
	}
}

func TestMustSeed(t *testing.T) {
	ed25519Seed, err := NewEd25519Seed(make([]byte, 32))
	require.NoError(t, err)
	ternarySeed := NewRandomTernarySeed()

	assert.Equal(t, ed25519Seed, MustEd25519Seed(ed25519Seed))
	assert.Equal(t, ternarySeed, MustTernarySeed(ternarySeed))

	assert.Panics(t, func() { MustEd25519Seed(ternarySeed) })
	assert.Panics(t, func() { MustTernarySeed(ed25519Seed) })
	assert.Panics(t, func() { MustTernarySeed(nil) })
}
