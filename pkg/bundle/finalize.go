package bundle

import (
	"errors"
	"fmt"
	"sort"

	"github.com/iotaledger/iota.go/trinary"
)

var (
	// ErrInvalidMinedPart ...
	ErrInvalidMinedPart = fmt.Errorf(
		"mined essence part must be %d trits long", EssencePartSize,
	)
	// ErrMissingLastTransaction ...
	ErrMissingLastTransaction = errors.New(
		"no transaction has current index equal to last index",
	)
)

// EssenceParts returns, for every transaction, the address and the tail
// halves of its essence.
func EssenceParts(txs Transactions) ([]trinary.Trits, error) {
	parts := make([]trinary.Trits, 0, 2*len(txs))
	for i := range txs {
		essence, err := txs[i].Essence()
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		parts = append(
			parts,
			essence[:EssencePartSize],
			essence[EssencePartSize:],
		)
	}
	return parts, nil
}

// FromMinedEssence rebuilds an unsigned bundle out of the given transactions
// after replacing the value, obsolete tag, timestamp and index span of the
// last one with the mined essence part.
//
// Every transaction keeps address, value, obsolete tag, timestamp, indexes,
// tag and attachment timestamp. Signature, bundle hash, trunk, branch and
// nonce are zeroed, the lower attachment bound is 0 and the upper one the
// maximum timestamp value. Transactions are returned in index order.
func FromMinedEssence(
	txs Transactions, mined trinary.Trits, securityLevel int,
) (*Bundle, error) {
	if len(mined) != EssencePartSize {
		return nil, ErrInvalidMinedPart
	}
	if len(txs) == 0 {
		return nil, ErrEmptyBundle
	}

	sorted := append(Transactions{}, txs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CurrentIndex < sorted[j].CurrentIndex
	})

	last := -1
	for i := range sorted {
		if sorted[i].CurrentIndex == sorted[i].LastIndex {
			last = i
			break
		}
	}
	if last < 0 {
		return nil, ErrMissingLastTransaction
	}

	rebuilt := make(Transactions, 0, len(sorted))
	for i := range sorted {
		raw, err := sorted[i].Trits()
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		if i == last {
			copy(raw[MinedSpanOffset:MinedSpanOffset+MinedSpanSize], mined)
		}

		tx, err := ParseTrits(raw)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		rebuilt = append(rebuilt, Transaction{
			SignatureMessageFragment:      NullSignatureMessageFragment,
			Address:                       tx.Address,
			Value:                         tx.Value,
			ObsoleteTag:                   tx.ObsoleteTag,
			Timestamp:                     tx.Timestamp,
			CurrentIndex:                  tx.CurrentIndex,
			LastIndex:                     tx.LastIndex,
			Bundle:                        NullHash,
			TrunkTransaction:              NullHash,
			BranchTransaction:             NullHash,
			Tag:                           tx.Tag,
			AttachmentTimestamp:           tx.AttachmentTimestamp,
			AttachmentTimestampLowerBound: 0,
			AttachmentTimestampUpperBound: MaxTimestampValue,
			Nonce:                         NullTag,
		})
	}

	return FromTransactions(rebuilt, securityLevel), nil
}

// InferSecurityLevel returns the number of consecutive transactions sharing
// the address of the first spending transaction, 0 if none spends.
func InferSecurityLevel(txs Transactions) int {
	for i := range txs {
		if txs[i].Value >= 0 {
			continue
		}
		level := 1
		for j := i + 1; j < len(txs) && txs[j].Address == txs[i].Address; j++ {
			if txs[j].Value != 0 {
				break
			}
			level++
		}
		return level
	}
	return 0
}
