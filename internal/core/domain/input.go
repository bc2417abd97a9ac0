package domain

import (
	"fmt"

	"github.com/iotaledger/iota.go/trinary"
	"github.com/shopspring/decimal"
)

const legacyAddressTrytesSize = 81

// Input is a legacy address holding funds to migrate.
type Input struct {
	Address       trinary.Trytes
	Balance       uint64
	Index         uint64
	SecurityLevel int
}

// Key identifies an input for deduplication.
func (i Input) Key() string {
	return fmt.Sprintf("%s:%d:%d", i.Address, i.Index, i.Balance)
}

// Transfer is an output of a migration bundle.
type Transfer struct {
	Address trinary.Trytes
	Value   uint64
	// Message and Tag are optional.
	Message trinary.Trytes
	Tag     trinary.Trytes
}

// DedupInputs removes duplicate inputs keeping the first occurrence of each
// one, in the original order.
func DedupInputs(inputs []Input) []Input {
	seen := make(map[string]struct{}, len(inputs))
	deduped := make([]Input, 0, len(inputs))
	for _, in := range inputs {
		key := in.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		deduped = append(deduped, in)
	}
	return deduped
}

// ValidateInputs checks that the batch is not empty, that every address is
// well formed and that all inputs share the same security level.
func ValidateInputs(inputs []Input) error {
	if len(inputs) <= 0 {
		return ErrNoInputs
	}

	level := inputs[0].SecurityLevel
	for _, in := range inputs {
		if len(in.Address) != legacyAddressTrytesSize {
			return ErrInvalidInputAddress
		}
		if err := trinary.ValidTrytes(in.Address); err != nil {
			return ErrInvalidInputAddress
		}
		if in.SecurityLevel != level {
			return ErrMixedSecurityLevels
		}
	}
	return nil
}

// TotalBalance ...
func TotalBalance(inputs []Input) uint64 {
	var total uint64
	for _, in := range inputs {
		total += in.Balance
	}
	return total
}

// DustPolicy rejects migrations whose total balance is too small to be
// spent on the new ledger.
type DustPolicy struct {
	Enabled   bool
	Threshold uint64
}

// Check returns ErrBelowDustThreshold if the policy is enabled and amount
// is lower than the threshold.
func (p DustPolicy) Check(amount uint64) error {
	if !p.Enabled {
		return nil
	}
	threshold := p.Threshold
	if threshold == 0 {
		threshold = DefaultDustThreshold
	}
	if amount < threshold {
		return fmt.Errorf(
			"%w: %s < %s", ErrBelowDustThreshold, FormatMi(amount), FormatMi(threshold),
		)
	}
	return nil
}

// FormatMi renders an amount of iotas in Mi, ie. 3500000 -> "3.5 Mi".
func FormatMi(amount uint64) string {
	mi := decimal.NewFromInt(int64(amount)).Shift(-MiDecimals)
	return mi.String() + " Mi"
}
