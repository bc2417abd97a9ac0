package wallet

import (
	"bytes"
	"encoding/hex"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/lightningnetwork/lnd/fn/v2"
	"golang.org/x/crypto/blake2b"
)

const (
	// Ed25519AddressSize is the length in bytes of an ed25519 address
	Ed25519AddressSize = blake2b.Size256
	// Ed25519AddressType is the type byte prepended to bech32 encoded
	// ed25519 addresses
	Ed25519AddressType byte = 0x00
	// DefaultAddressRangeEnd is the exclusive end of the range used when
	// deriving addresses without an explicit one
	DefaultAddressRangeEnd = 20
)

// Ed25519Address is the BLAKE2b-256 hash of an ed25519 public key.
type Ed25519Address [Ed25519AddressSize]byte

// NewEd25519Address hashes the given public key into an address.
func NewEd25519Address(publicKey []byte) Ed25519Address {
	return Ed25519Address(blake2b.Sum256(publicKey))
}

// String returns the hex encoding of the address.
func (a Ed25519Address) String() string {
	return hex.EncodeToString(a[:])
}

// Equal ...
func (a Ed25519Address) Equal(other Ed25519Address) bool {
	return bytes.Equal(a[:], other[:])
}

// Bech32 encodes the address with the given human readable part, ie. "iota"
// for mainnet or "atoi" for testnet.
func (a Ed25519Address) Bech32(hrp string) (string, error) {
	data := append([]byte{Ed25519AddressType}, a[:]...)
	converted, err := bech32.ConvertBits(data, 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.Encode(hrp, converted)
}

// ParseBech32Address decodes a bech32 ed25519 address and returns its human
// readable part along with the address.
func ParseBech32Address(str string) (string, Ed25519Address, error) {
	hrp, data, err := bech32.Decode(str)
	if err != nil {
		return "", Ed25519Address{}, ErrInvalidBech32Address
	}
	converted, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", Ed25519Address{}, ErrInvalidBech32Address
	}
	if len(converted) != 1+Ed25519AddressSize || converted[0] != Ed25519AddressType {
		return "", Ed25519Address{}, ErrInvalidBech32Address
	}

	var addr Ed25519Address
	copy(addr[:], converted[1:])
	return hrp, addr, nil
}

// Range is the half-open interval [Start, End) of address indexes.
type Range struct {
	Start uint32
	End   uint32
}

// Len returns the number of indexes in the range.
func (r Range) Len() int {
	if r.End <= r.Start {
		return 0
	}
	return int(r.End - r.Start)
}

// GeneratedAddress is an address derived by GetAddresses, with the chain it
// belongs to.
type GeneratedAddress struct {
	Address  Ed25519Address
	Internal bool
}

// GetAddressesOpts is the struct given to GetAddresses method
type GetAddressesOpts struct {
	// Seed must be an *Ed25519Seed.
	Seed         Seed
	AccountIndex fn.Option[uint32]
	Range        fn.Option[Range]
	// BasePath defaults to m/44'/4218'. It must be made of hardened
	// components only.
	BasePath fn.Option[DerivationPath]
}

func (o GetAddressesOpts) validate() (DerivationPath, Range, error) {
	account, err := o.AccountIndex.UnwrapOrErr(ErrMissingAccountIndex)
	if err != nil {
		return nil, Range{}, err
	}
	basePath := o.BasePath.UnwrapOr(DefaultBaseDerivationPath)
	if len(basePath) <= 0 {
		return nil, Range{}, ErrNullDerivationPath
	}
	if !basePath.AllHardened() {
		return nil, Range{}, ErrNonHardenedDerivation
	}
	accountPath, err := basePath.Account(account)
	if err != nil {
		return nil, Range{}, err
	}

	r := o.Range.UnwrapOr(Range{Start: 0, End: DefaultAddressRangeEnd})
	if r.Start > r.End {
		return nil, Range{}, ErrInvalidRange
	}
	if r.End > MaxHardenedValue+1 {
		return nil, Range{}, ErrInvalidRange
	}
	return accountPath, r, nil
}

// GetAddresses derives, for every index of the range, the external and then
// the internal address of the given account.
//
// It returns ErrMissingAccountIndex if no account index is set. A seed other
// than an *Ed25519Seed is a programming error and makes it panic.
func GetAddresses(opts GetAddressesOpts) ([]GeneratedAddress, error) {
	accountPath, r, err := opts.validate()
	if err != nil {
		return nil, err
	}
	seed := MustEd25519Seed(opts.Seed)

	addresses := make([]GeneratedAddress, 0, 2*r.Len())
	for i := r.Start; i < r.End; i++ {
		external, err := generateAddress(seed, accountPath, i, false)
		if err != nil {
			return nil, err
		}
		internal, err := generateAddress(seed, accountPath, i, true)
		if err != nil {
			return nil, err
		}
		addresses = append(
			addresses,
			GeneratedAddress{Address: external, Internal: false},
			GeneratedAddress{Address: internal, Internal: true},
		)
	}

	return addresses, nil
}

func generateAddress(
	seed *Ed25519Seed, accountPath DerivationPath, index uint32, internal bool,
) (Ed25519Address, error) {
	var chain uint32
	if internal {
		chain = 1
	}

	_, publicKey, err := DeriveSigningKeyPair(DeriveSigningKeyPairOpts{
		Seed:           seed,
		DerivationPath: accountPath.Child(Hardened(chain), Hardened(index)),
	})
	if err != nil {
		return Ed25519Address{}, err
	}

	return NewEd25519Address(publicKey), nil
}
