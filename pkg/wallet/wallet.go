package wallet

import (
	"errors"
	"fmt"

	"github.com/iotaledger/iota.go/trinary"
	"github.com/thanhpk/randstr"
)

var (
	// ErrMissingAccountIndex is returned when deriving addresses without an
	// account index
	ErrMissingAccountIndex = errors.New("missing parameter: account index")
	// ErrNullSeed ...
	ErrNullSeed = errors.New("seed must not be null")
	// ErrNullSigningMnemonic ...
	ErrNullSigningMnemonic = errors.New("signing mnemonic is null")
	// ErrNullDerivationPath ...
	ErrNullDerivationPath = errors.New("derivation path must not be null")

	// ErrInvalidSeedLength ...
	ErrInvalidSeedLength = errors.New("seed must be between 16 and 64 bytes long")
	// ErrInvalidTernarySeed ...
	ErrInvalidTernarySeed = errors.New("ternary seed must be 81 valid trytes")
	// ErrInvalidSigningMnemonic ...
	ErrInvalidSigningMnemonic = errors.New("signing mnemonic is invalid")
	// ErrInvalidEntropySize ...
	ErrInvalidEntropySize = errors.New(
		"entropy size must be a multiple of 32 in the range [128,256]",
	)
	// ErrInvalidDerivationPath ...
	ErrInvalidDerivationPath = errors.New("invalid derivation path")
	// ErrInvalidRange ...
	ErrInvalidRange = errors.New("range start must not be greater than range end")
	// ErrInvalidSecurityLevel ...
	ErrInvalidSecurityLevel = errors.New("security level must be in range [1, 3]")
	// ErrNonHardenedDerivation is returned by ed25519 derivation, which only
	// supports hardened path components
	ErrNonHardenedDerivation = errors.New(
		"ed25519 derivation supports hardened path components only",
	)
	// ErrOutOfRangeDerivationPathAccount ...
	ErrOutOfRangeDerivationPathAccount = fmt.Errorf(
		"account index must be in range [0, %d]", MaxHardenedValue,
	)
	// ErrMalformedDerivationPath ...
	ErrMalformedDerivationPath = errors.New(
		"derivation path must be absolute, ie. m/44'/4218', " +
			"with no empty component",
	)

	// ErrInvalidMigrationAddress ...
	ErrInvalidMigrationAddress = errors.New(
		"migration address must be 81 trytes starting with TRANSFER",
	)
	// ErrInvalidMigrationAddressChecksum ...
	ErrInvalidMigrationAddressChecksum = errors.New(
		"migration address checksum does not match",
	)
	// ErrInvalidBech32Address ...
	ErrInvalidBech32Address = errors.New("address must be a bech32 ed25519 address")
)

const (
	// TernarySeedTrytesSize is the number of trytes of a legacy seed
	TernarySeedTrytesSize = 81

	tryteAlphabet = "9ABCDEFGHIJKLMNOPQRSTUVWXYZ"

	minSeedSize = 16
	maxSeedSize = 64
)

// SeedScheme identifies the signature scheme a seed can be used with.
type SeedScheme int

const (
	// SeedSchemeEd25519 seeds derive keys for digital-signature addresses
	SeedSchemeEd25519 SeedScheme = iota
	// SeedSchemeTernary seeds derive one-time-signature keys of the legacy
	// ledger
	SeedSchemeTernary
)

func (s SeedScheme) String() string {
	switch s {
	case SeedSchemeEd25519:
		return "ed25519"
	case SeedSchemeTernary:
		return "ternary"
	default:
		return "unknown"
	}
}

// Seed is the key material addresses are derived from. It is implemented by
// *Ed25519Seed and *TernarySeed only.
type Seed interface {
	Scheme() SeedScheme
}

// Ed25519Seed is a binary seed usable for SLIP-10 ed25519 derivation.
type Ed25519Seed struct {
	key []byte
}

// NewEd25519Seed returns a seed holding a copy of the given bytes.
func NewEd25519Seed(key []byte) (*Ed25519Seed, error) {
	if len(key) <= 0 {
		return nil, ErrNullSeed
	}
	if len(key) < minSeedSize || len(key) > maxSeedSize {
		return nil, ErrInvalidSeedLength
	}
	return &Ed25519Seed{key: append([]byte{}, key...)}, nil
}

// NewEd25519SeedFromMnemonic generates the seed from the provided BIP-39
// mnemonic.
func NewEd25519SeedFromMnemonic(mnemonic []string) (*Ed25519Seed, error) {
	if len(mnemonic) <= 0 {
		return nil, ErrNullSigningMnemonic
	}
	if !isMnemonicValid(mnemonic) {
		return nil, ErrInvalidSigningMnemonic
	}
	return &Ed25519Seed{key: generateSeedFromMnemonic(mnemonic)}, nil
}

// Scheme ...
func (s *Ed25519Seed) Scheme() SeedScheme {
	return SeedSchemeEd25519
}

// TernarySeed is a legacy seed of 81 trytes.
type TernarySeed struct {
	trytes trinary.Trytes
}

// NewTernarySeed validates the given trytes and returns the legacy seed.
func NewTernarySeed(trytes trinary.Trytes) (*TernarySeed, error) {
	if len(trytes) != TernarySeedTrytesSize {
		return nil, ErrInvalidTernarySeed
	}
	if err := trinary.ValidTrytes(trytes); err != nil {
		return nil, ErrInvalidTernarySeed
	}
	return &TernarySeed{trytes: trytes}, nil
}

// NewRandomTernarySeed returns a legacy seed made of random trytes. It holds
// no spendable funds and is meant for throwaway signing.
func NewRandomTernarySeed() *TernarySeed {
	return &TernarySeed{
		trytes: randstr.String(TernarySeedTrytesSize, tryteAlphabet),
	}
}

// Scheme ...
func (s *TernarySeed) Scheme() SeedScheme {
	return SeedSchemeTernary
}

// Trytes returns the seed in its tryte representation.
func (s *TernarySeed) Trytes() trinary.Trytes {
	return s.trytes
}

// MustEd25519Seed asserts the given seed is an ed25519 one. Any other seed
// scheme is a programming error and makes it panic.
func MustEd25519Seed(seed Seed) *Ed25519Seed {
	s, ok := seed.(*Ed25519Seed)
	if !ok || s == nil {
		panic(fmt.Sprintf("seed scheme %s is not supported, ed25519 seed expected", schemeOf(seed)))
	}
	return s
}

// MustTernarySeed asserts the given seed is a legacy ternary one. Any other
// seed scheme is a programming error and makes it panic.
func MustTernarySeed(seed Seed) *TernarySeed {
	s, ok := seed.(*TernarySeed)
	if !ok || s == nil {
		panic(fmt.Sprintf("seed scheme %s is not supported, ternary seed expected", schemeOf(seed)))
	}
	return s
}

func schemeOf(seed Seed) string {
	if seed == nil {
		return "<nil>"
	}
	return seed.Scheme().String()
}
