package bundle

import (
	"errors"
	"fmt"

	"github.com/iotaledger/iota.go/consts"
	"github.com/iotaledger/iota.go/kerl"
	"github.com/iotaledger/iota.go/signing"
	wotskey "github.com/iotaledger/iota.go/signing/key"
	"github.com/iotaledger/iota.go/trinary"
	"github.com/tdex-network/chrysalis-migration/pkg/wallet"
)

const (
	// NormalizedFragmentTrytes is the number of normalized bundle hash
	// trytes signed by one signature fragment.
	NormalizedFragmentTrytes = 27

	// unsecureTryte is the normalized value whose signature fragment
	// reveals the private key fragment unhashed.
	unsecureTryte int8 = 13
	maxSecurityLevel   = 3
	maxSealAttempts    = 1 << 16
)

var (
	// ErrInvalidStatus ...
	ErrInvalidStatus = errors.New("bundle status does not allow the operation")
	// ErrEmptyBundle ...
	ErrEmptyBundle = errors.New("bundle has no transactions")
	// ErrInvalidEntry ...
	ErrInvalidEntry = errors.New("invalid bundle entry")
	// ErrSealAttemptsExhausted ...
	ErrSealAttemptsExhausted = errors.New(
		"failed to find a secure bundle hash by incrementing the obsolete tag",
	)
	// ErrInputNotFound ...
	ErrInputNotFound = errors.New("input address not found in bundle")
	// ErrInputSecurityMismatch ...
	ErrInputSecurityMismatch = errors.New(
		"input does not span as many transactions as its security level",
	)
	// ErrInputKeyMismatch ...
	ErrInputKeyMismatch = errors.New(
		"address derived from seed does not match input address",
	)
	// ErrInvalidSignature ...
	ErrInvalidSignature = errors.New("invalid input signature")
)

// Status is the stage a bundle reached in the seal, sign, attach, build
// pipeline.
type Status int

const (
	StatusUnsigned Status = iota
	StatusSealed
	StatusSigned
	StatusAttached
	StatusBuilt
)

var statusNames = map[Status]string{
	StatusUnsigned: "unsigned",
	StatusSealed:   "sealed",
	StatusSigned:   "signed",
	StatusAttached: "attached",
	StatusBuilt:    "built",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Entry is a group of transactions sharing the same address added at once
// to a bundle. The first transaction carries the value, the others are zero
// valued and only carry signature or message fragments.
type Entry struct {
	Address   Hash
	Value     int64
	Tag       trinary.Trytes
	Timestamp uint64
	Length    int
	// Fragments are optional and right padded with 9s.
	Fragments []trinary.Trytes
}

func (e Entry) validate() error {
	if len(e.Address) != AddressSize/3 {
		return fmt.Errorf("%w: address must be %d trytes", ErrInvalidEntry, AddressSize/3)
	}
	if err := trinary.ValidTrytes(e.Address); err != nil {
		return fmt.Errorf("%w: address: %s", ErrInvalidEntry, err)
	}
	if e.Length <= 0 {
		return fmt.Errorf("%w: length must be positive", ErrInvalidEntry)
	}
	if len(e.Fragments) > e.Length {
		return fmt.Errorf("%w: more fragments than transactions", ErrInvalidEntry)
	}
	if len(e.Tag) > TagSize/3 {
		return fmt.Errorf("%w: tag must be at most %d trytes", ErrInvalidEntry, TagSize/3)
	}
	return nil
}

// SigningInput identifies an input of the bundle to be signed with the
// one-time-signature key of the given index.
type SigningInput struct {
	Index         uint64
	Address       Hash
	SecurityLevel int
}

// Bundle is an ordered list of transactions tagged with the stage of the
// pipeline it reached. Stage methods never mutate the receiver, they return
// a new bundle instead, so that the same unsigned bundle can be sealed and
// signed more than once.
type Bundle struct {
	status        Status
	securityLevel int
	txs           Transactions
	hash          Hash
}

// New returns an empty unsigned bundle whose inputs use the given security
// level. The level is used by Seal to keep the signed normalized hash
// fragments free of unsecure trytes.
func New(securityLevel int) *Bundle {
	return &Bundle{
		status:        StatusUnsigned,
		securityLevel: securityLevel,
	}
}

// FromTransactions returns an unsigned bundle made of the given
// transactions.
func FromTransactions(txs Transactions, securityLevel int) *Bundle {
	b := New(securityLevel)
	b.txs = append(Transactions{}, txs...)
	return b
}

func (b *Bundle) Status() Status {
	return b.status
}

func (b *Bundle) SecurityLevel() int {
	return b.securityLevel
}

func (b *Bundle) Len() int {
	return len(b.txs)
}

// Hash returns the bundle hash, empty until the bundle is sealed.
func (b *Bundle) Hash() Hash {
	return b.hash
}

// Transactions returns a copy of the bundle transactions.
func (b *Bundle) Transactions() Transactions {
	return append(Transactions{}, b.txs...)
}

// AddEntry appends the transactions of the given entry. Only unsigned
// bundles accept new entries.
func (b *Bundle) AddEntry(entry Entry) error {
	if b.status != StatusUnsigned {
		return ErrInvalidStatus
	}
	if err := entry.validate(); err != nil {
		return err
	}

	tag, err := padTrytes(entry.Tag, TagSize/3)
	if err != nil {
		return fmt.Errorf("%w: tag: %s", ErrInvalidEntry, err)
	}

	txs := make(Transactions, 0, entry.Length)
	for i := 0; i < entry.Length; i++ {
		fragment := NullSignatureMessageFragment
		if i < len(entry.Fragments) {
			fragment, err = padTrytes(
				entry.Fragments[i], SignatureMessageFragmentSize/3,
			)
			if err != nil {
				return fmt.Errorf("%w: fragment %d: %s", ErrInvalidEntry, i, err)
			}
		}

		var value int64
		if i == 0 {
			value = entry.Value
		}

		txs = append(txs, Transaction{
			SignatureMessageFragment: fragment,
			Address:                  entry.Address,
			Value:                    value,
			ObsoleteTag:              tag,
			Timestamp:                entry.Timestamp,
			Tag:                      tag,
		})
	}

	b.txs = append(b.txs, txs...)
	return nil
}

// Seal finalizes the indexes of the transactions and computes the bundle
// hash. If the normalized hash contains an unsecure tryte within the
// fragments signed by the inputs, the obsolete tag of the first transaction
// is incremented and the hash computed again.
func (b *Bundle) Seal() (*Bundle, error) {
	if b.status != StatusUnsigned {
		return nil, ErrInvalidStatus
	}
	if len(b.txs) == 0 {
		return nil, ErrEmptyBundle
	}

	sealed := b.clone()
	lastIndex := uint64(len(sealed.txs) - 1)
	for i := range sealed.txs {
		sealed.txs[i].CurrentIndex = uint64(i)
		sealed.txs[i].LastIndex = lastIndex
	}

	signedTrytes := sealed.securityLevel * NormalizedFragmentTrytes
	for attempt := 0; ; attempt++ {
		if attempt >= maxSealAttempts {
			return nil, ErrSealAttemptsExhausted
		}

		hash, err := EssenceHash(sealed.txs)
		if err != nil {
			return nil, err
		}
		if !HasUnsecureTryte(signing.NormalizedBundleHash(hash), signedTrytes) {
			sealed.hash = hash
			break
		}

		if err := incrementObsoleteTag(&sealed.txs[0]); err != nil {
			return nil, err
		}
	}

	for i := range sealed.txs {
		sealed.txs[i].Bundle = sealed.hash
	}
	sealed.status = StatusSealed
	return sealed, nil
}

// Sign writes the one-time signature of every given input into the
// signature fragments of its transactions. Signing with no inputs only
// advances the status. A nil seed is an error.
func (b *Bundle) Sign(
	seed *wallet.TernarySeed, inputs []SigningInput,
) (*Bundle, error) {
	if b.status != StatusSealed {
		return nil, ErrInvalidStatus
	}
	if seed == nil {
		return nil, wallet.ErrNullSeed
	}

	signed := b.clone()
	normalized := signing.NormalizedBundleHash(signed.hash)

	for _, in := range inputs {
		if !wallet.ValidSecurityLevel(in.SecurityLevel) {
			return nil, wallet.ErrInvalidSecurityLevel
		}
		pos, err := signed.inputPosition(in.Address, in.SecurityLevel)
		if err != nil {
			return nil, err
		}

		subseed, err := signing.Subseed(seed.Trytes(), in.Index)
		if err != nil {
			return nil, err
		}
		key, err := wotskey.Sponge(
			subseed, consts.SecurityLevel(in.SecurityLevel), kerl.NewKerl(),
		)
		if err != nil {
			return nil, err
		}
		if err := checkKeyAddress(append(trinary.Trits{}, key...), in.Address); err != nil {
			return nil, err
		}

		for j := 0; j < in.SecurityLevel; j++ {
			fragment, err := signing.SignatureFragment(
				normalizedFragment(normalized, j),
				key[j*SignatureMessageFragmentSize:(j+1)*SignatureMessageFragmentSize],
			)
			if err != nil {
				return nil, err
			}
			trytes, err := trinary.TritsToTrytes(fragment)
			if err != nil {
				return nil, err
			}
			signed.txs[pos+j].SignatureMessageFragment = trytes
		}
	}

	signed.status = StatusSigned
	return signed, nil
}

// AttachLocal sets trunk and branch of every transaction and resets the
// attachment fields, without performing any proof of work.
func (b *Bundle) AttachLocal(trunk, branch Hash) (*Bundle, error) {
	if b.status != StatusSigned {
		return nil, ErrInvalidStatus
	}

	attached := b.clone()
	for i := range attached.txs {
		tx := &attached.txs[i]
		tx.TrunkTransaction = trunk
		tx.BranchTransaction = branch
		tx.AttachmentTimestamp = 0
		tx.AttachmentTimestampLowerBound = 0
		tx.AttachmentTimestampUpperBound = MaxTimestampValue
		tx.Nonce = NullTag
	}
	attached.status = StatusAttached
	return attached, nil
}

// Build marks an attached bundle as complete.
func (b *Bundle) Build() (*Bundle, error) {
	if b.status != StatusAttached {
		return nil, ErrInvalidStatus
	}
	built := b.clone()
	built.status = StatusBuilt
	return built, nil
}

// Trytes serializes every transaction of the bundle.
func (b *Bundle) Trytes() ([]trinary.Trytes, error) {
	out := make([]trinary.Trytes, 0, len(b.txs))
	for i := range b.txs {
		trytes, err := b.txs[i].Trytes()
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		out = append(out, trytes)
	}
	return out, nil
}

// VerifySignatures recomputes, for every input of a signed bundle, the
// address from its signature fragments and checks it matches the spent one.
func (b *Bundle) VerifySignatures() error {
	if b.status < StatusSigned {
		return ErrInvalidStatus
	}
	normalized := signing.NormalizedBundleHash(b.hash)

	for i := 0; i < len(b.txs); i++ {
		if b.txs[i].Value >= 0 {
			continue
		}
		address := b.txs[i].Address

		digests := make(trinary.Trits, 0)
		j := 0
		for ; i+j < len(b.txs) && b.txs[i+j].Address == address; j++ {
			if j > 0 && b.txs[i+j].Value != 0 {
				break
			}
			fragment, err := trinary.TrytesToTrits(b.txs[i+j].SignatureMessageFragment)
			if err != nil {
				return err
			}
			digest, err := signing.Digest(normalizedFragment(normalized, j), fragment)
			if err != nil {
				return err
			}
			digests = append(digests, digest...)
		}

		addressTrits, err := signing.Address(digests)
		if err != nil {
			return err
		}
		derived, err := trinary.TritsToTrytes(addressTrits)
		if err != nil {
			return err
		}
		if derived != address {
			return fmt.Errorf("%w: transaction %d", ErrInvalidSignature, i)
		}
		i += j - 1
	}
	return nil
}

// EssenceHash absorbs the essence of every transaction into Kerl and
// returns the squeezed hash.
func EssenceHash(txs Transactions) (Hash, error) {
	k := kerl.NewKerl()
	for i := range txs {
		essence, err := txs[i].Essence()
		if err != nil {
			return "", fmt.Errorf("transaction %d: %w", i, err)
		}
		if err := k.Absorb(essence); err != nil {
			return "", err
		}
	}
	hash, err := k.Squeeze(BundleHashSize)
	if err != nil {
		return "", err
	}
	return trinary.TritsToTrytes(hash)
}

// HasUnsecureTryte returns whether any of the first n normalized trytes
// equals 13.
func HasUnsecureTryte(normalized []int8, n int) bool {
	for i := 0; i < n && i < len(normalized); i++ {
		if normalized[i] == unsecureTryte {
			return true
		}
	}
	return false
}

func (b *Bundle) clone() *Bundle {
	return &Bundle{
		status:        b.status,
		securityLevel: b.securityLevel,
		txs:           append(Transactions{}, b.txs...),
		hash:          b.hash,
	}
}

// inputPosition returns the position of the first spending transaction of
// the given address, which must be followed by securityLevel-1 transactions
// of the same address.
func (b *Bundle) inputPosition(address Hash, securityLevel int) (int, error) {
	for i := range b.txs {
		if b.txs[i].Address != address || b.txs[i].Value >= 0 {
			continue
		}
		if i+securityLevel > len(b.txs) {
			return 0, ErrInputSecurityMismatch
		}
		for j := 1; j < securityLevel; j++ {
			if b.txs[i+j].Address != address {
				return 0, ErrInputSecurityMismatch
			}
		}
		return i, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrInputNotFound, address)
}

// checkKeyAddress hashes the given key in place.
func checkKeyAddress(key trinary.Trits, address Hash) error {
	digests, err := signing.Digests(key)
	if err != nil {
		return err
	}
	addressTrits, err := signing.Address(digests)
	if err != nil {
		return err
	}
	derived, err := trinary.TritsToTrytes(addressTrits)
	if err != nil {
		return err
	}
	if derived != address {
		return ErrInputKeyMismatch
	}
	return nil
}

// normalizedFragment returns the normalized hash trytes signed by the i-th
// signature fragment of an input.
func normalizedFragment(normalized []int8, i int) []int8 {
	start := (i % maxSecurityLevel) * NormalizedFragmentTrytes
	return normalized[start : start+NormalizedFragmentTrytes]
}

func incrementObsoleteTag(tx *Transaction) error {
	tag := tx.ObsoleteTag
	if len(tag) == 0 {
		tag = NullTag
	}
	trits, err := trinary.TrytesToTrits(tag)
	if err != nil {
		return err
	}
	incrementTrits(trits)
	incremented, err := trinary.TritsToTrytes(trits)
	if err != nil {
		return err
	}
	tx.ObsoleteTag = incremented
	return nil
}
