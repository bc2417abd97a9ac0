package wallet

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/binary"

	"github.com/pkg/errors"
)

const ed25519CurveKey = "ed25519 seed"

// DeriveSigningKeyPairOpts is the struct given to DeriveSigningKeyPair method
type DeriveSigningKeyPairOpts struct {
	Seed           *Ed25519Seed
	DerivationPath DerivationPath
}

func (o DeriveSigningKeyPairOpts) validate() error {
	if o.Seed == nil || len(o.Seed.key) <= 0 {
		return ErrNullSeed
	}
	if len(o.DerivationPath) <= 0 {
		return ErrNullDerivationPath
	}
	for _, component := range o.DerivationPath {
		if !IsHardened(component) {
			return ErrNonHardenedDerivation
		}
	}
	return nil
}

// DeriveSigningKeyPair derives the ed25519 key pair of the provided
// derivation path following SLIP-10.
func DeriveSigningKeyPair(opts DeriveSigningKeyPairOpts) (
	ed25519.PrivateKey,
	ed25519.PublicKey,
	error,
) {
	if err := opts.validate(); err != nil {
		return nil, nil, err
	}

	key, chainCode := slip10Master(opts.Seed.key)
	for i, step := range opts.DerivationPath {
		var err error
		key, chainCode, err = slip10Child(key, chainCode, step)
		if err != nil {
			return nil, nil, errors.Wrapf(
				err, "failed to derive at index %d (%s)", i, opts.DerivationPath,
			)
		}
	}

	privateKey := ed25519.NewKeyFromSeed(key)
	publicKey, ok := privateKey.Public().(ed25519.PublicKey)
	if !ok {
		return nil, nil, errors.New("failed to derive ed25519 public key")
	}
	return privateKey, publicKey, nil
}

func slip10Master(seed []byte) ([]byte, []byte) {
	mac := hmac.New(sha512.New, []byte(ed25519CurveKey))
	mac.Write(seed)
	sum := mac.Sum(nil)
	return sum[:32], sum[32:]
}

func slip10Child(key, chainCode []byte, index uint32) ([]byte, []byte, error) {
	if !IsHardened(index) {
		return nil, nil, ErrNonHardenedDerivation
	}

	data := make([]byte, 0, 1+len(key)+4)
	data = append(data, 0x00)
	data = append(data, key...)
	data = binary.BigEndian.AppendUint32(data, index)

	mac := hmac.New(sha512.New, chainCode)
	if _, err := mac.Write(data); err != nil {
		return nil, nil, errors.Wrap(err, "failed to compute child key")
	}
	sum := mac.Sum(nil)
	return sum[:32], sum[32:], nil
}
