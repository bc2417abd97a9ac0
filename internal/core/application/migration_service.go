package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iotaledger/iota.go/trinary"
	"github.com/lightningnetwork/lnd/clock"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/chrysalis-migration/internal/core/domain"
	"github.com/tdex-network/chrysalis-migration/internal/core/ports"
	"github.com/tdex-network/chrysalis-migration/pkg/bundle"
	"github.com/tdex-network/chrysalis-migration/pkg/wallet"
)

// MiningConfig holds the defaults of every mining job.
type MiningConfig struct {
	Timeout          time.Duration
	Offset           uint64
	Workers          int
	ProgressInterval time.Duration
}

type MigrationService interface {
	CreateMigrationBundle(
		ctx context.Context,
		target wallet.Ed25519Address,
		inputs []domain.Input,
	) (*bundle.Bundle, error)
	SignMigrationBundle(
		ctx context.Context,
		seed wallet.Seed,
		unsigned *bundle.Bundle,
		inputs []domain.Input,
	) (bundle.Transactions, error)
	Mine(ctx context.Context, opts MineOpts) (*MiningSession, error)
	FinalizeWithMinedTag(
		ctx context.Context,
		txs bundle.Transactions,
		minedPart trinary.Trits,
	) (*bundle.Bundle, error)
	SerializeToTrytes(
		ctx context.Context,
		b *bundle.Bundle,
	) ([]trinary.Trytes, error)
}

type migrationService struct {
	preparer ports.TransferPreparer
	results  domain.MiningResultRepository
	clock    clock.Clock
	dust     domain.DustPolicy
	mining   MiningConfig
}

// NewMigrationService returns the service building, mining and signing
// migration bundles. The results repository is optional, without it mining
// jobs never resume from previous ones.
func NewMigrationService(
	preparer ports.TransferPreparer,
	results domain.MiningResultRepository,
	clk clock.Clock,
	dust domain.DustPolicy,
	mining MiningConfig,
) MigrationService {
	if mining.Timeout <= 0 {
		mining.Timeout = DefaultMiningTimeout
	}
	return &migrationService{preparer, results, clk, dust, mining}
}

// CreateMigrationBundle builds the unsigned bundle moving the whole balance
// of the inputs to the migration address of target.
func (s *migrationService) CreateMigrationBundle(
	ctx context.Context,
	target wallet.Ed25519Address,
	inputs []domain.Input,
) (*bundle.Bundle, error) {
	if err := domain.ValidateInputs(inputs); err != nil {
		return nil, err
	}
	inputs = domain.DedupInputs(inputs)

	total := domain.TotalBalance(inputs)
	if err := s.dust.Check(total); err != nil {
		return nil, err
	}

	migrationAddress := wallet.EncodeMigrationAddress(target)
	log.Debugf(
		"creating migration bundle of %s from %d inputs to %s",
		domain.FormatMi(total), len(inputs), migrationAddress,
	)

	return s.preparer.PrepareTransfers(
		ctx,
		[]domain.Transfer{{
			Address: trinary.Trytes(migrationAddress),
			Value:   total,
		}},
		inputs,
		inputs[0].SecurityLevel,
	)
}

// SignMigrationBundle seals and signs the given unsigned bundle with the
// ternary seed, then checks that the signed bundle spends exactly from the
// inputs to a single migration address. Transactions are returned from the
// last to the first one.
//
// A seed other than a *wallet.TernarySeed or an input security level
// outside 1..3 are programming errors and make it panic.
func (s *migrationService) SignMigrationBundle(
	ctx context.Context,
	seed wallet.Seed,
	unsigned *bundle.Bundle,
	inputs []domain.Input,
) (bundle.Transactions, error) {
	if unsigned == nil {
		return nil, ErrNilBundle
	}
	if err := domain.ValidateInputs(inputs); err != nil {
		return nil, err
	}
	inputs = domain.DedupInputs(inputs)
	securityLevel := mustSecurityLevel(inputs[0].SecurityLevel)
	ternarySeed := wallet.MustTernarySeed(seed)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	signingInputs := make([]bundle.SigningInput, 0, len(inputs))
	for _, in := range inputs {
		signingInputs = append(signingInputs, bundle.SigningInput{
			Index:         in.Index,
			Address:       in.Address,
			SecurityLevel: securityLevel,
		})
	}

	built, err := signBundle(unsigned, ternarySeed, signingInputs)
	if err != nil {
		if errors.Is(err, bundle.ErrInputNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrInputAddressMissing, err)
		}
		return nil, err
	}

	txs := built.Transactions()
	if err := validateAddressSet(txs, inputs); err != nil {
		return nil, err
	}

	log.Debugf("signed migration bundle %s of %d txs", built.Hash(), len(txs))
	return reverse(txs), nil
}

// FinalizeWithMinedTag patches the mined essence part into the last
// transaction and returns the unsigned bundle to be signed again.
func (s *migrationService) FinalizeWithMinedTag(
	ctx context.Context,
	txs bundle.Transactions,
	minedPart trinary.Trits,
) (*bundle.Bundle, error) {
	if len(minedPart) != bundle.EssencePartSize {
		return nil, domain.ErrInvalidMinedPart
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return bundle.FromMinedEssence(txs, minedPart, bundle.InferSecurityLevel(txs))
}

// SerializeToTrytes returns the wire representation of a built bundle. An
// unsigned bundle is first sealed, signed without inputs and attached.
func (s *migrationService) SerializeToTrytes(
	ctx context.Context,
	b *bundle.Bundle,
) ([]trinary.Trytes, error) {
	if b == nil {
		return nil, ErrNilBundle
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	switch b.Status() {
	case bundle.StatusBuilt:
		return b.Trytes()
	case bundle.StatusUnsigned:
		built, err := decoyBundle(b)
		if err != nil {
			return nil, err
		}
		return built.Trytes()
	default:
		return nil, bundle.ErrInvalidStatus
	}
}

func signBundle(
	unsigned *bundle.Bundle,
	seed *wallet.TernarySeed,
	inputs []bundle.SigningInput,
) (*bundle.Bundle, error) {
	sealed, err := unsigned.Seal()
	if err != nil {
		return nil, err
	}
	signed, err := sealed.Sign(seed, inputs)
	if err != nil {
		return nil, err
	}
	attached, err := signed.AttachLocal(bundle.NullHash, bundle.NullHash)
	if err != nil {
		return nil, err
	}
	return attached.Build()
}

// decoyBundle runs the signing pipeline with a random seed and no inputs,
// so that no signature is ever produced.
func decoyBundle(unsigned *bundle.Bundle) (*bundle.Bundle, error) {
	return signBundle(unsigned, wallet.NewRandomTernarySeed(), nil)
}

// validateAddressSet checks that the addresses of the signed bundle are the
// inputs ones plus the migration address.
func validateAddressSet(txs bundle.Transactions, inputs []domain.Input) error {
	addresses := make(map[bundle.Hash]struct{})
	for _, tx := range txs {
		addresses[tx.Address] = struct{}{}
	}
	inputAddresses := make(map[bundle.Hash]struct{})
	for _, in := range inputs {
		inputAddresses[in.Address] = struct{}{}
	}

	if len(addresses) != len(inputAddresses)+1 {
		return fmt.Errorf(
			"%w: got %d, expected %d",
			domain.ErrInputAddressCountMismatch, len(addresses), len(inputAddresses)+1,
		)
	}
	for address := range inputAddresses {
		if _, ok := addresses[address]; !ok {
			return fmt.Errorf("%w: %s", domain.ErrInputAddressMissing, address)
		}
	}
	return nil
}

func reverse(txs bundle.Transactions) bundle.Transactions {
	reversed := make(bundle.Transactions, 0, len(txs))
	for i := len(txs) - 1; i >= 0; i-- {
		reversed = append(reversed, txs[i])
	}
	return reversed
}

func mustSecurityLevel(level int) int {
	if !wallet.ValidSecurityLevel(level) {
		panic(fmt.Sprintf("invalid security level %d", level))
	}
	return level
}
