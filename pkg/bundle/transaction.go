package bundle

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/iotaledger/iota.go/trinary"
)

// Trit offsets and sizes of the legacy transaction layout.
const (
	SignatureMessageFragmentOffset = 0
	SignatureMessageFragmentSize   = 6561
	AddressOffset                  = 6561
	AddressSize                    = 243
	ValueOffset                    = 6804
	ValueSize                      = 81
	ObsoleteTagOffset              = 6885
	ObsoleteTagSize                = 81
	TimestampOffset                = 6966
	TimestampSize                  = 27
	CurrentIndexOffset             = 6993
	CurrentIndexSize               = 27
	LastIndexOffset                = 7020
	LastIndexSize                  = 27
	BundleHashOffset               = 7047
	BundleHashSize                 = 243
	TrunkOffset                    = 7290
	TrunkSize                      = 243
	BranchOffset                   = 7533
	BranchSize                     = 243
	TagOffset                      = 7776
	TagSize                        = 81
	AttachmentTimestampOffset      = 7857
	AttachmentTimestampSize        = 27
	AttachmentLowerBoundOffset     = 7884
	AttachmentLowerBoundSize       = 27
	AttachmentUpperBoundOffset     = 7911
	AttachmentUpperBoundSize       = 27
	NonceOffset                    = 7938
	NonceSize                      = 81

	// TransactionTritsSize is the width of a raw transaction
	TransactionTritsSize = 8019
	// TransactionTrytesSize is the width of a serialized transaction
	TransactionTrytesSize = TransactionTritsSize / 3

	// EssenceOffset is where the essence starts in the raw transaction
	EssenceOffset = AddressOffset
	// EssenceSize is the width of address, value, obsolete tag, timestamp,
	// current index and last index
	EssenceSize = BundleHashOffset - EssenceOffset
	// EssencePartSize is the width of each of the two halves of the
	// essence: the address and the remaining value/meta fields
	EssencePartSize = AddressSize
	// MinedSpanOffset is the start of the raw span replaced with a mined
	// essence part. It covers value, obsolete tag, timestamp, current index
	// and last index.
	MinedSpanOffset = ValueOffset
	// MinedSpanSize ...
	MinedSpanSize = BundleHashOffset - ValueOffset

	// MaxTimestampValue is the largest value representable with 27 trits
	MaxTimestampValue int64 = 3812798742493
)

var (
	// NullHash is the all-zero 81 trytes hash
	NullHash = Hash(strings.Repeat("9", AddressSize/3))
	// NullTag is the all-zero 27 trytes tag
	NullTag = trinary.Trytes(strings.Repeat("9", TagSize/3))
	// NullSignatureMessageFragment is the all-zero fragment
	NullSignatureMessageFragment = trinary.Trytes(
		strings.Repeat("9", SignatureMessageFragmentSize/3),
	)
)

var (
	// ErrInvalidTransactionTrits ...
	ErrInvalidTransactionTrits = fmt.Errorf(
		"transaction must be %d trits long", TransactionTritsSize,
	)
	// ErrInvalidTransactionTrytes ...
	ErrInvalidTransactionTrytes = fmt.Errorf(
		"transaction must be %d valid trytes", TransactionTrytesSize,
	)
	// ErrValueOutOfRange ...
	ErrValueOutOfRange = errors.New("value does not fit in its transaction field")
)

// Hash is an 81 trytes hash or address.
type Hash = trinary.Trytes

// Transaction is a legacy ternary transaction. Tryte fields left empty are
// encoded as all zero trits.
type Transaction struct {
	SignatureMessageFragment      trinary.Trytes
	Address                       Hash
	Value                         int64
	ObsoleteTag                   trinary.Trytes
	Timestamp                     uint64
	CurrentIndex                  uint64
	LastIndex                     uint64
	Bundle                        Hash
	TrunkTransaction              Hash
	BranchTransaction             Hash
	Tag                           trinary.Trytes
	AttachmentTimestamp           int64
	AttachmentTimestampLowerBound int64
	AttachmentTimestampUpperBound int64
	Nonce                         trinary.Trytes
}

// Transactions ...
type Transactions []Transaction

// Trits returns the raw representation of the transaction.
func (tx *Transaction) Trits() (trinary.Trits, error) {
	raw := make(trinary.Trits, TransactionTritsSize)

	fields := []struct {
		name   string
		trytes trinary.Trytes
		offset int
		size   int
	}{
		{"signature message fragment", tx.SignatureMessageFragment, SignatureMessageFragmentOffset, SignatureMessageFragmentSize},
		{"address", tx.Address, AddressOffset, AddressSize},
		{"obsolete tag", tx.ObsoleteTag, ObsoleteTagOffset, ObsoleteTagSize},
		{"bundle", tx.Bundle, BundleHashOffset, BundleHashSize},
		{"trunk", tx.TrunkTransaction, TrunkOffset, TrunkSize},
		{"branch", tx.BranchTransaction, BranchOffset, BranchSize},
		{"tag", tx.Tag, TagOffset, TagSize},
		{"nonce", tx.Nonce, NonceOffset, NonceSize},
	}
	for _, f := range fields {
		if err := putTrytes(raw[f.offset:f.offset+f.size], f.trytes); err != nil {
			return nil, fmt.Errorf("%s: %w", f.name, err)
		}
	}

	ints := []struct {
		name   string
		value  int64
		offset int
		size   int
	}{
		{"value", tx.Value, ValueOffset, ValueSize},
		{"timestamp", int64(tx.Timestamp), TimestampOffset, TimestampSize},
		{"current index", int64(tx.CurrentIndex), CurrentIndexOffset, CurrentIndexSize},
		{"last index", int64(tx.LastIndex), LastIndexOffset, LastIndexSize},
		{"attachment timestamp", tx.AttachmentTimestamp, AttachmentTimestampOffset, AttachmentTimestampSize},
		{"attachment lower bound", tx.AttachmentTimestampLowerBound, AttachmentLowerBoundOffset, AttachmentLowerBoundSize},
		{"attachment upper bound", tx.AttachmentTimestampUpperBound, AttachmentUpperBoundOffset, AttachmentUpperBoundSize},
	}
	for _, f := range ints {
		if err := EncodeInt(raw[f.offset:f.offset+f.size], f.value); err != nil {
			return nil, fmt.Errorf("%s: %w", f.name, err)
		}
	}

	return raw, nil
}

// Essence returns the address, value, obsolete tag, timestamp, current
// index and last index trits of the transaction.
func (tx *Transaction) Essence() (trinary.Trits, error) {
	raw, err := tx.Trits()
	if err != nil {
		return nil, err
	}
	return raw[EssenceOffset : EssenceOffset+EssenceSize], nil
}

// Trytes returns the wire representation of the transaction.
func (tx *Transaction) Trytes() (trinary.Trytes, error) {
	raw, err := tx.Trits()
	if err != nil {
		return "", err
	}
	return trinary.TritsToTrytes(raw)
}

// ParseTrits decodes a raw transaction.
func ParseTrits(raw trinary.Trits) (*Transaction, error) {
	if len(raw) != TransactionTritsSize {
		return nil, ErrInvalidTransactionTrits
	}

	trytesOf := func(offset, size int) (trinary.Trytes, error) {
		return trinary.TritsToTrytes(raw[offset : offset+size])
	}

	tx := &Transaction{}

	ints := []struct {
		name   string
		dst    *int64
		offset int
		size   int
	}{
		{"value", &tx.Value, ValueOffset, ValueSize},
		{"attachment timestamp", &tx.AttachmentTimestamp, AttachmentTimestampOffset, AttachmentTimestampSize},
		{"attachment lower bound", &tx.AttachmentTimestampLowerBound, AttachmentLowerBoundOffset, AttachmentLowerBoundSize},
		{"attachment upper bound", &tx.AttachmentTimestampUpperBound, AttachmentUpperBoundOffset, AttachmentUpperBoundSize},
	}
	for _, f := range ints {
		v, err := DecodeInt(raw[f.offset : f.offset+f.size])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = v
	}

	uints := []struct {
		name   string
		dst    *uint64
		offset int
		size   int
	}{
		{"timestamp", &tx.Timestamp, TimestampOffset, TimestampSize},
		{"current index", &tx.CurrentIndex, CurrentIndexOffset, CurrentIndexSize},
		{"last index", &tx.LastIndex, LastIndexOffset, LastIndexSize},
	}
	for _, f := range uints {
		v, err := DecodeInt(raw[f.offset : f.offset+f.size])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.name, err)
		}
		if v < 0 {
			return nil, fmt.Errorf("%s: %w", f.name, ErrValueOutOfRange)
		}
		*f.dst = uint64(v)
	}

	fields := []struct {
		dst    *trinary.Trytes
		offset int
		size   int
	}{
		{&tx.SignatureMessageFragment, SignatureMessageFragmentOffset, SignatureMessageFragmentSize},
		{&tx.Address, AddressOffset, AddressSize},
		{&tx.ObsoleteTag, ObsoleteTagOffset, ObsoleteTagSize},
		{&tx.Bundle, BundleHashOffset, BundleHashSize},
		{&tx.TrunkTransaction, TrunkOffset, TrunkSize},
		{&tx.BranchTransaction, BranchOffset, BranchSize},
		{&tx.Tag, TagOffset, TagSize},
		{&tx.Nonce, NonceOffset, NonceSize},
	}
	for _, f := range fields {
		trytes, err := trytesOf(f.offset, f.size)
		if err != nil {
			return nil, err
		}
		*f.dst = trytes
	}

	return tx, nil
}

// ParseTrytes decodes a transaction from its wire representation.
func ParseTrytes(trytes trinary.Trytes) (*Transaction, error) {
	if len(trytes) != TransactionTrytesSize {
		return nil, ErrInvalidTransactionTrytes
	}
	raw, err := trinary.TrytesToTrits(trytes)
	if err != nil {
		return nil, ErrInvalidTransactionTrytes
	}
	return ParseTrits(raw)
}

// putTrytes writes the given trytes into dst; empty trytes leave dst zeroed.
func putTrytes(dst trinary.Trits, trytes trinary.Trytes) error {
	if len(trytes) == 0 {
		return nil
	}
	if len(trytes)*3 != len(dst) {
		return fmt.Errorf("must be %d trytes long, got %d", len(dst)/3, len(trytes))
	}
	trits, err := trinary.TrytesToTrits(trytes)
	if err != nil {
		return err
	}
	copy(dst, trits)
	return nil
}

// EncodeInt writes value into dst in balanced ternary, least significant
// trit first. dst is expected to be zeroed.
func EncodeInt(dst trinary.Trits, value int64) error {
	v := value
	if v < 0 {
		v = -v
	}
	for i := range dst {
		if v == 0 {
			break
		}
		r := int8(v % 3)
		v /= 3
		if r == 2 {
			r = -1
			v++
		}
		dst[i] = r
	}
	if v != 0 {
		return ErrValueOutOfRange
	}
	if value < 0 {
		for i := range dst {
			dst[i] = -dst[i]
		}
	}
	return nil
}

// DecodeInt reads a balanced ternary integer, least significant trit first.
// It fails if the value does not fit in an int64.
func DecodeInt(src trinary.Trits) (int64, error) {
	const limit = math.MaxInt64 / 3

	var v int64
	for i := len(src) - 1; i >= 0; i-- {
		if v > limit || v < -limit {
			return 0, ErrValueOutOfRange
		}
		v = v*3 + int64(src[i])
	}
	return v, nil
}

// padTrytes right-pads the given trytes with 9s to size trytes.
func padTrytes(trytes trinary.Trytes, size int) (trinary.Trytes, error) {
	if len(trytes) > size {
		return "", fmt.Errorf("must be at most %d trytes long, got %d", size, len(trytes))
	}
	if err := validTrytes(trytes); err != nil {
		return "", err
	}
	return trytes + strings.Repeat("9", size-len(trytes)), nil
}

func validTrytes(trytes trinary.Trytes) error {
	if len(trytes) == 0 {
		return nil
	}
	return trinary.ValidTrytes(trytes)
}

// incrementTrits adds one to the balanced ternary number held by trits.
func incrementTrits(trits trinary.Trits) {
	for i := range trits {
		trits[i]++
		if trits[i] <= 1 {
			return
		}
		trits[i] = -1
	}
}
