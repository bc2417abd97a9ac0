package wallet

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
)

const (
	// CoinType is the SLIP-44 registered coin type of the IOTA network
	CoinType = 4218
	// MaxHardenedValue is the max value for hardened indexes of BIP32
	// derivation paths
	MaxHardenedValue = math.MaxUint32 - hdkeychain.HardenedKeyStart
)

// DerivationPath is the internal representation of a hierarchical
// deterministic wallet account
type DerivationPath []uint32

var (
	// DefaultBaseDerivationPath m/44'/4218'
	DefaultBaseDerivationPath = DerivationPath{
		hdkeychain.HardenedKeyStart + 44,
		hdkeychain.HardenedKeyStart + CoinType,
	}
)

// Hardened returns the hardened form of the given index.
func Hardened(index uint32) uint32 {
	return hdkeychain.HardenedKeyStart + index
}

// IsHardened returns whether the given path component is hardened.
func IsHardened(component uint32) bool {
	return component >= hdkeychain.HardenedKeyStart
}

// Account returns the path of the given account under the current one, ie.
// m/44'/4218'/account' for the default base path.
func (path DerivationPath) Account(account uint32) (DerivationPath, error) {
	if account > MaxHardenedValue {
		return nil, ErrOutOfRangeDerivationPathAccount
	}
	return path.Child(Hardened(account)), nil
}

// Child returns a new path made of the current one followed by the given
// components. The receiver is left untouched, so a base path can be shared
// by every iteration of a derivation loop.
func (path DerivationPath) Child(components ...uint32) DerivationPath {
	child := make(DerivationPath, 0, len(path)+len(components))
	child = append(child, path...)
	return append(child, components...)
}

// AllHardened returns whether every component of the path is hardened, as
// required by ed25519 derivation.
func (path DerivationPath) AllHardened() bool {
	for _, component := range path {
		if !IsHardened(component) {
			return false
		}
	}
	return true
}

// ParseDerivationPath parses an absolute path like m/44'/4218'. Hardened
// components are suffixed by either ' or h.
func ParseDerivationPath(strPath string) (DerivationPath, error) {
	strPath = strings.TrimSpace(strPath)
	if strPath == "" {
		return nil, ErrNullDerivationPath
	}

	elems := strings.Split(strPath, "/")
	if len(elems) < 2 || strings.TrimSpace(elems[0]) != "m" {
		return nil, ErrMalformedDerivationPath
	}

	path := make(DerivationPath, 0, len(elems)-1)
	for _, elem := range elems[1:] {
		component, err := parsePathComponent(strings.TrimSpace(elem))
		if err != nil {
			return nil, err
		}
		path = append(path, component)
	}
	return path, nil
}

// ParseBaseDerivationPath parses a path and makes sure it can be used as
// base path for ed25519 derivation.
func ParseBaseDerivationPath(strPath string) (DerivationPath, error) {
	path, err := ParseDerivationPath(strPath)
	if err != nil {
		return nil, err
	}
	if !path.AllHardened() {
		return nil, ErrNonHardenedDerivation
	}
	return path, nil
}

func parsePathComponent(elem string) (uint32, error) {
	hardened := strings.HasSuffix(elem, "'") || strings.HasSuffix(elem, "h")
	if hardened {
		elem = strings.TrimSpace(elem[:len(elem)-1])
	}
	if elem == "" {
		return 0, ErrMalformedDerivationPath
	}

	value, err := strconv.ParseUint(elem, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: component %q", ErrInvalidDerivationPath, elem)
	}
	if !hardened {
		return uint32(value), nil
	}
	if value > MaxHardenedValue {
		return 0, fmt.Errorf(
			"%w: hardened component %d out of range [0, %d]",
			ErrInvalidDerivationPath, value, uint32(MaxHardenedValue),
		)
	}
	return Hardened(uint32(value)), nil
}

// String converts a binary derivation path to its canonical representation
func (path DerivationPath) String() string {
	if len(path) <= 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("m")
	for _, component := range path {
		if IsHardened(component) {
			fmt.Fprintf(&b, "/%d'", component-hdkeychain.HardenedKeyStart)
			continue
		}
		fmt.Fprintf(&b, "/%d", component)
	}
	return b.String()
}
