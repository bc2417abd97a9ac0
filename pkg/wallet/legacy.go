package wallet

import (
	"github.com/iotaledger/iota.go/consts"
	"github.com/iotaledger/iota.go/kerl"
	"github.com/iotaledger/iota.go/signing"
	wotskey "github.com/iotaledger/iota.go/signing/key"
	"github.com/iotaledger/iota.go/trinary"
)

// LegacyAddress is an address of the legacy ternary ledger, 81 trytes
// without checksum.
type LegacyAddress trinary.Trytes

// String ...
func (a LegacyAddress) String() string {
	return string(a)
}

// ValidSecurityLevel returns whether the given value is a valid
// one-time-signature security level.
func ValidSecurityLevel(level int) bool {
	return level >= int(consts.SecurityLevelLow) && level <= int(consts.SecurityLevelHigh)
}

// GenerateLegacyAddress derives the one-time-signature address of the given
// index and security level.
func GenerateLegacyAddress(
	seed *TernarySeed, index uint64, securityLevel int,
) (LegacyAddress, error) {
	if seed == nil {
		return "", ErrNullSeed
	}
	if !ValidSecurityLevel(securityLevel) {
		return "", ErrInvalidSecurityLevel
	}

	subseed, err := signing.Subseed(seed.trytes, index)
	if err != nil {
		return "", err
	}
	key, err := wotskey.Sponge(subseed, consts.SecurityLevel(securityLevel), kerl.NewKerl())
	if err != nil {
		return "", err
	}
	digests, err := signing.Digests(key)
	if err != nil {
		return "", err
	}
	addressTrits, err := signing.Address(digests)
	if err != nil {
		return "", err
	}
	address, err := trinary.TritsToTrytes(addressTrits)
	if err != nil {
		return "", err
	}
	return LegacyAddress(address), nil
}

// GetLegacyAddressesOpts is the struct given to GetLegacyAddresses method
type GetLegacyAddressesOpts struct {
	// Seed must be a *TernarySeed.
	Seed          Seed
	SecurityLevel int
	Start         uint64
	End           uint64
}

func (o GetLegacyAddressesOpts) validate() error {
	if !ValidSecurityLevel(o.SecurityLevel) {
		return ErrInvalidSecurityLevel
	}
	if o.Start > o.End {
		return ErrInvalidRange
	}
	return nil
}

// GetLegacyAddresses derives the legacy addresses of the indexes in
// [Start, End). A seed other than a *TernarySeed makes it panic.
func GetLegacyAddresses(opts GetLegacyAddressesOpts) ([]LegacyAddress, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	seed := MustTernarySeed(opts.Seed)

	addresses := make([]LegacyAddress, 0, opts.End-opts.Start)
	for i := opts.Start; i < opts.End; i++ {
		address, err := GenerateLegacyAddress(seed, i, opts.SecurityLevel)
		if err != nil {
			return nil, err
		}
		addresses = append(addresses, address)
	}
	return addresses, nil
}
