package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is the kind of every error due to invalid caller input
	ErrValidation = errors.New("validation error")
	// ErrConsistency is the kind of every error due to a signed bundle not
	// matching the inputs it was built for
	ErrConsistency = errors.New("consistency error")
)

var (
	// ErrNoInputs ...
	ErrNoInputs = fmt.Errorf("%w: no inputs provided", ErrValidation)
	// ErrMixedSecurityLevels ...
	ErrMixedSecurityLevels = fmt.Errorf(
		"%w: all inputs must share the same security level", ErrValidation,
	)
	// ErrInvalidInputAddress ...
	ErrInvalidInputAddress = fmt.Errorf(
		"%w: input address must be 81 valid trytes", ErrValidation,
	)
	// ErrNoUsedBundleHashes is returned when mining without any bundle hash
	// already signed with the inputs
	ErrNoUsedBundleHashes = fmt.Errorf(
		"%w: at least one used bundle hash is required", ErrValidation,
	)
	// ErrInvalidUsedBundleHash ...
	ErrInvalidUsedBundleHash = fmt.Errorf(
		"%w: used bundle hash must be 81 valid trytes", ErrValidation,
	)
	// ErrMalformedEssence is returned when the essence of the bundle to mine
	// cannot be split into address and tail parts
	ErrMalformedEssence = fmt.Errorf("%w: malformed bundle essence", ErrValidation)
	// ErrBelowDustThreshold is returned when dust protection is enabled and
	// the total migrated balance is below the threshold
	ErrBelowDustThreshold = fmt.Errorf(
		"%w: total balance is below the dust threshold", ErrValidation,
	)
	// ErrInvalidMinedPart ...
	ErrInvalidMinedPart = fmt.Errorf(
		"%w: mined essence part must be 243 trits long", ErrValidation,
	)
	// ErrInvalidTransfer ...
	ErrInvalidTransfer = fmt.Errorf("%w: invalid transfer", ErrValidation)
)

var (
	// ErrInputAddressCountMismatch is returned when the signed bundle does
	// not spend from exactly the inputs plus the migration address
	ErrInputAddressCountMismatch = fmt.Errorf(
		"%w: signed bundle address count does not match inputs", ErrConsistency,
	)
	// ErrInputAddressMissing is returned when an input address is not part
	// of the signed bundle
	ErrInputAddressMissing = fmt.Errorf(
		"%w: input address missing from signed bundle", ErrConsistency,
	)
)
