package application_test

import (
	"context"
	"crypto/ed25519"
	"strings"
	"testing"
	"time"

	"github.com/iotaledger/iota.go/trinary"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"
	"github.com/tdex-network/chrysalis-migration/internal/core/application"
	"github.com/tdex-network/chrysalis-migration/internal/core/domain"
	"github.com/tdex-network/chrysalis-migration/internal/infrastructure/storage/miningstore"
	"github.com/tdex-network/chrysalis-migration/pkg/bundle"
	"github.com/tdex-network/chrysalis-migration/pkg/miner"
	"github.com/tdex-network/chrysalis-migration/pkg/wallet"
)

var (
	testStartTime   = time.Unix(1600000000, 0)
	testTernarySeed = strings.Repeat("SEED", 20) + "9"
	testUsedHash    = trinary.Trytes(strings.Repeat("USEDHASH", 10) + "9")
)

func TestCreateMigrationBundle(t *testing.T) {
	svc := newTestConfig(false).MigrationService()
	_, inputs := newTestInputs(t, 2, 1500000, 2000000)
	target := newTestTarget()

	// duplicated inputs are counted once
	b, err := svc.CreateMigrationBundle(
		context.Background(), target, append(inputs, inputs[0]),
	)
	require.NoError(t, err)
	require.NotNil(t, b)
	require.Equal(t, bundle.StatusUnsigned, b.Status())
	require.Equal(t, 2, b.SecurityLevel())

	txs := b.Transactions()
	require.Len(t, txs, 5)
	require.Equal(t, wallet.EncodeMigrationAddress(target).String(), txs[0].Address)
	require.Equal(t, int64(3500000), txs[0].Value)

	var sum int64
	for _, tx := range txs {
		sum += tx.Value
	}
	require.Zero(t, sum)

	decoded, err := wallet.DecodeMigrationAddress(wallet.LegacyAddress(txs[0].Address))
	require.NoError(t, err)
	require.True(t, target.Equal(decoded))
}

func TestFailingCreateMigrationBundle(t *testing.T) {
	_, inputs := newTestInputs(t, 2, 1500000, 2000000)
	mixed := append([]domain.Input{}, inputs...)
	mixed[1].SecurityLevel = 3
	invalid := append([]domain.Input{}, inputs...)
	invalid[0].Address = "INVALID"
	_, dust := newTestInputs(t, 2, 500)

	tests := []struct {
		name        string
		dust        bool
		inputs      []domain.Input
		expectedErr error
	}{
		{
			name:        "no_inputs",
			inputs:      nil,
			expectedErr: domain.ErrNoInputs,
		},
		{
			name:        "mixed_security_levels",
			inputs:      mixed,
			expectedErr: domain.ErrMixedSecurityLevels,
		},
		{
			name:        "invalid_address",
			inputs:      invalid,
			expectedErr: domain.ErrInvalidInputAddress,
		},
		{
			name:        "below_dust_threshold",
			dust:        true,
			inputs:      dust,
			expectedErr: domain.ErrBelowDustThreshold,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestConfig(tt.dust).MigrationService()
			b, err := svc.CreateMigrationBundle(
				context.Background(), newTestTarget(), tt.inputs,
			)
			require.ErrorIs(t, err, tt.expectedErr)
			require.ErrorIs(t, err, domain.ErrValidation)
			require.Nil(t, b)
		})
	}

	t.Run("dust_protection_disabled", func(t *testing.T) {
		svc := newTestConfig(false).MigrationService()
		b, err := svc.CreateMigrationBundle(context.Background(), newTestTarget(), dust)
		require.NoError(t, err)
		require.NotNil(t, b)
	})
}

func TestSignMigrationBundle(t *testing.T) {
	svc := newTestConfig(false).MigrationService()
	seed, inputs := newTestInputs(t, 2, 1500000, 2000000)
	target := newTestTarget()

	unsigned, err := svc.CreateMigrationBundle(context.Background(), target, inputs)
	require.NoError(t, err)

	txs, err := svc.SignMigrationBundle(context.Background(), seed, unsigned, inputs)
	require.NoError(t, err)
	require.Len(t, txs, 5)

	// returned from the last to the first transaction
	for i, tx := range txs {
		require.Equal(t, uint64(len(txs)-1-i), tx.CurrentIndex)
		require.Equal(t, txs[0].Bundle, tx.Bundle)
	}
	require.Equal(t, wallet.EncodeMigrationAddress(target).String(), txs[4].Address)

	addresses := make(map[string]struct{})
	for _, tx := range txs {
		addresses[tx.Address] = struct{}{}
	}
	require.Len(t, addresses, len(inputs)+1)

	// the unsigned bundle can be signed again with the same result
	again, err := svc.SignMigrationBundle(context.Background(), seed, unsigned, inputs)
	require.NoError(t, err)
	require.Equal(t, txs, again)

	verifySignatures(t, txs, 2)
}

func TestFailingSignMigrationBundle(t *testing.T) {
	svc := newTestConfig(false).MigrationService()
	seed, inputs := newTestInputs(t, 1, 1500000, 2000000, 500000)

	unsigned, err := svc.CreateMigrationBundle(
		context.Background(), newTestTarget(), inputs,
	)
	require.NoError(t, err)

	sealed, err := unsigned.Seal()
	require.NoError(t, err)

	tests := []struct {
		name        string
		bundle      *bundle.Bundle
		inputs      []domain.Input
		expectedErr error
	}{
		{
			name:        "missing_input",
			bundle:      unsigned,
			inputs:      inputs[:2],
			expectedErr: domain.ErrInputAddressCountMismatch,
		},
		{
			name:        "foreign_input",
			bundle:      unsigned,
			inputs:      []domain.Input{inputs[0], inputs[1], newForeignInput(t, 1)},
			expectedErr: domain.ErrInputAddressMissing,
		},
		{
			name:        "no_inputs",
			bundle:      unsigned,
			inputs:      nil,
			expectedErr: domain.ErrNoInputs,
		},
		{
			name:        "mixed_security_levels",
			bundle:      unsigned,
			inputs:      []domain.Input{inputs[0], inputs[1], newForeignInput(t, 2)},
			expectedErr: domain.ErrMixedSecurityLevels,
		},
		{
			name:        "already_sealed",
			bundle:      sealed,
			inputs:      inputs,
			expectedErr: bundle.ErrInvalidStatus,
		},
		{
			name:        "nil_bundle",
			bundle:      nil,
			inputs:      inputs,
			expectedErr: application.ErrNilBundle,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			txs, err := svc.SignMigrationBundle(
				context.Background(), seed, tt.bundle, tt.inputs,
			)
			require.ErrorIs(t, err, tt.expectedErr)
			require.Nil(t, txs)
		})
	}
}

func TestSignMigrationBundlePanics(t *testing.T) {
	svc := newTestConfig(false).MigrationService()
	seed, inputs := newTestInputs(t, 1, 1500000)

	unsigned, err := svc.CreateMigrationBundle(
		context.Background(), newTestTarget(), inputs,
	)
	require.NoError(t, err)

	t.Run("ed25519_seed", func(t *testing.T) {
		ed25519Seed, err := wallet.NewEd25519Seed(make([]byte, 32))
		require.NoError(t, err)

		require.Panics(t, func() {
			//nolint
			svc.SignMigrationBundle(context.Background(), ed25519Seed, unsigned, inputs)
		})
	})

	t.Run("invalid_security_level", func(t *testing.T) {
		invalid := append([]domain.Input{}, inputs...)
		invalid[0].SecurityLevel = 4

		require.Panics(t, func() {
			//nolint
			svc.SignMigrationBundle(context.Background(), seed, unsigned, invalid)
		})
	})
}

func TestMine(t *testing.T) {
	svc := newTestConfig(false).MigrationService()
	seed, inputs := newTestInputs(t, 1, 3500000)

	unsigned, err := svc.CreateMigrationBundle(
		context.Background(), newTestTarget(), inputs,
	)
	require.NoError(t, err)

	session, err := svc.Mine(context.Background(), application.MineOpts{
		Bundle:           unsigned,
		SecurityLevel:    1,
		UsedBundleHashes: []trinary.Trytes{testUsedHash},
	})
	require.NoError(t, err)
	require.NotNil(t, session)
	require.Len(t, session.Transactions, unsigned.Len())

	waitImproved(t, session.Events)
	session.Stop()

	mined := drain(t, session.Events)
	require.NotNil(t, mined)
	require.Len(t, mined.Tail, bundle.EssencePartSize)
	require.Len(t, mined.BundleHash, bundle.BundleHashSize/3)
	<-session.Done()

	finalized, err := svc.FinalizeWithMinedTag(
		context.Background(), session.Transactions, mined.Tail,
	)
	require.NoError(t, err)
	require.Equal(t, bundle.StatusUnsigned, finalized.Status())

	txs, err := svc.SignMigrationBundle(context.Background(), seed, finalized, inputs)
	require.NoError(t, err)
	for _, tx := range txs {
		require.Equal(t, mined.BundleHash, tx.Bundle)
	}
	verifySignatures(t, txs, 1)

	// stopping an ended session is a no-op
	session.Stop()
}

func TestMineResume(t *testing.T) {
	results, err := miningstore.NewMiningResultStore("", nil)
	require.NoError(t, err)
	t.Cleanup(results.Close)

	cfg := newTestConfig(false)
	cfg.MiningResults = results
	svc := cfg.MigrationService()
	_, inputs := newTestInputs(t, 1, 3500000)

	unsigned, err := svc.CreateMigrationBundle(
		context.Background(), newTestTarget(), inputs,
	)
	require.NoError(t, err)
	opts := application.MineOpts{
		Bundle:           unsigned,
		SecurityLevel:    1,
		UsedBundleHashes: []trinary.Trytes{testUsedHash},
	}

	first, err := svc.Mine(context.Background(), opts)
	require.NoError(t, err)
	require.Zero(t, first.Offset)

	waitImproved(t, first.Events)
	first.Stop()
	mined := drain(t, first.Events)
	require.NotNil(t, mined)
	<-first.Done()

	stored, err := results.GetResult(context.Background(), first.ID.String())
	require.NoError(t, err)
	require.Equal(t, string(miner.OutcomeStopped), stored.Outcome)
	require.Equal(t, first.Transactions[0].Bundle, stored.JobKey)
	require.Greater(t, stored.NextOffset, uint64(0))
	require.True(t, stored.HasCandidate())
	require.Equal(t, mined.BundleHash, stored.BundleHash)
	tail, err := trinary.TrytesToTrits(stored.Tail)
	require.NoError(t, err)
	require.Equal(t, mined.Tail, tail)

	// same bundle, same decoy, the job resumes
	second, err := svc.Mine(context.Background(), opts)
	require.NoError(t, err)
	require.Equal(t, stored.JobKey, second.Transactions[0].Bundle)
	require.Equal(t, stored.NextOffset, second.Offset)
	second.Cancel()

	opts.Offset = fn.Some(uint64(5))
	third, err := svc.Mine(context.Background(), opts)
	require.NoError(t, err)
	require.Equal(t, uint64(5), third.Offset)
	third.Cancel()

	all, err := results.ListResults(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestMineCancel(t *testing.T) {
	svc := newTestConfig(false).MigrationService()
	_, inputs := newTestInputs(t, 2, 3500000)

	unsigned, err := svc.CreateMigrationBundle(
		context.Background(), newTestTarget(), inputs,
	)
	require.NoError(t, err)

	session, err := svc.Mine(context.Background(), application.MineOpts{
		Bundle:           unsigned,
		SecurityLevel:    2,
		UsedBundleHashes: []trinary.Trytes{testUsedHash},
		Timeout:          fn.Some(time.Hour),
	})
	require.NoError(t, err)

	session.Cancel()
	<-session.Done()

	for ev := range session.Events {
		require.NotEqual(t, miner.Mined, ev.EventType)
	}
}

func TestFailingMine(t *testing.T) {
	svc := newTestConfig(false).MigrationService()
	_, inputs := newTestInputs(t, 1, 3500000)

	unsigned, err := svc.CreateMigrationBundle(
		context.Background(), newTestTarget(), inputs,
	)
	require.NoError(t, err)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name        string
		ctx         context.Context
		opts        application.MineOpts
		expectedErr error
	}{
		{
			name: "nil_bundle",
			ctx:  context.Background(),
			opts: application.MineOpts{
				SecurityLevel:    1,
				UsedBundleHashes: []trinary.Trytes{testUsedHash},
			},
			expectedErr: application.ErrNilBundle,
		},
		{
			name: "no_used_hashes",
			ctx:  context.Background(),
			opts: application.MineOpts{
				Bundle:        unsigned,
				SecurityLevel: 1,
			},
			expectedErr: domain.ErrNoUsedBundleHashes,
		},
		{
			name: "invalid_used_hash",
			ctx:  context.Background(),
			opts: application.MineOpts{
				Bundle:           unsigned,
				SecurityLevel:    1,
				UsedBundleHashes: []trinary.Trytes{"INVALID"},
			},
			expectedErr: domain.ErrInvalidUsedBundleHash,
		},
		{
			name: "context_done",
			ctx:  cancelled,
			opts: application.MineOpts{
				Bundle:           unsigned,
				SecurityLevel:    1,
				UsedBundleHashes: []trinary.Trytes{testUsedHash},
			},
			expectedErr: application.ErrMiningNotStarted,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			session, err := svc.Mine(tt.ctx, tt.opts)
			require.ErrorIs(t, err, tt.expectedErr)
			require.Nil(t, session)
		})
	}

	t.Run("invalid_security_level", func(t *testing.T) {
		require.Panics(t, func() {
			//nolint
			svc.Mine(context.Background(), application.MineOpts{
				Bundle:           unsigned,
				SecurityLevel:    4,
				UsedBundleHashes: []trinary.Trytes{testUsedHash},
			})
		})
	})
}

func TestFailingFinalizeWithMinedTag(t *testing.T) {
	svc := newTestConfig(false).MigrationService()
	_, inputs := newTestInputs(t, 1, 3500000)

	unsigned, err := svc.CreateMigrationBundle(
		context.Background(), newTestTarget(), inputs,
	)
	require.NoError(t, err)

	b, err := svc.FinalizeWithMinedTag(
		context.Background(), unsigned.Transactions(), make(trinary.Trits, 27),
	)
	require.ErrorIs(t, err, domain.ErrInvalidMinedPart)
	require.Nil(t, b)
}

func TestSerializeToTrytes(t *testing.T) {
	svc := newTestConfig(false).MigrationService()
	_, inputs := newTestInputs(t, 2, 3500000)

	unsigned, err := svc.CreateMigrationBundle(
		context.Background(), newTestTarget(), inputs,
	)
	require.NoError(t, err)

	trytes, err := svc.SerializeToTrytes(context.Background(), unsigned)
	require.NoError(t, err)
	require.Len(t, trytes, unsigned.Len())

	for i, raw := range trytes {
		require.Len(t, raw, bundle.TransactionTrytesSize)

		tx, err := bundle.ParseTrytes(raw)
		require.NoError(t, err)
		require.Equal(t, uint64(i), tx.CurrentIndex)
		require.Equal(t, bundle.NullSignatureMessageFragment, tx.SignatureMessageFragment)
	}

	t.Run("sealed_bundle", func(t *testing.T) {
		sealed, err := unsigned.Seal()
		require.NoError(t, err)

		trytes, err := svc.SerializeToTrytes(context.Background(), sealed)
		require.ErrorIs(t, err, bundle.ErrInvalidStatus)
		require.Nil(t, trytes)
	})
}

func newTestConfig(dustProtection bool) *application.Config {
	return &application.Config{
		Clock:          clock.NewTestClock(testStartTime),
		DustProtection: dustProtection,
		MiningTimeout:  time.Minute,
		MiningWorkers:  2,
	}
}

// newTestInputs derives an input for every given balance, from consecutive
// indexes of the test seed.
func newTestInputs(
	t *testing.T, level int, balances ...uint64,
) (*wallet.TernarySeed, []domain.Input) {
	t.Helper()

	seed, err := wallet.NewTernarySeed(testTernarySeed)
	require.NoError(t, err)

	inputs := make([]domain.Input, 0, len(balances))
	for i, balance := range balances {
		address, err := wallet.GenerateLegacyAddress(seed, uint64(i), level)
		require.NoError(t, err)
		inputs = append(inputs, domain.Input{
			Address:       address.String(),
			Balance:       balance,
			Index:         uint64(i),
			SecurityLevel: level,
		})
	}
	return seed, inputs
}

func newForeignInput(t *testing.T, level int) domain.Input {
	t.Helper()

	address, err := wallet.GenerateLegacyAddress(wallet.NewRandomTernarySeed(), 0, level)
	require.NoError(t, err)
	return domain.Input{
		Address:       address.String(),
		Balance:       1000000,
		SecurityLevel: level,
	}
}

func newTestTarget() wallet.Ed25519Address {
	key := ed25519.NewKeyFromSeed(make([]byte, ed25519.SeedSize))
	return wallet.NewEd25519Address(key.Public().(ed25519.PublicKey))
}

// verifySignatures rebuilds the signed bundle from the returned transactions
// and checks its signatures.
func verifySignatures(t *testing.T, reversed bundle.Transactions, level int) {
	t.Helper()

	txs := make(bundle.Transactions, 0, len(reversed))
	for i := len(reversed) - 1; i >= 0; i-- {
		txs = append(txs, reversed[i])
	}

	raw := make([]trinary.Trytes, 0, len(txs))
	for _, tx := range txs {
		trytes, err := tx.Trytes()
		require.NoError(t, err)
		raw = append(raw, trytes)
	}
	parsed := make(bundle.Transactions, 0, len(raw))
	for _, trytes := range raw {
		tx, err := bundle.ParseTrytes(trytes)
		require.NoError(t, err)
		parsed = append(parsed, *tx)
	}
	require.Equal(t, txs, parsed)

	sealed, err := bundle.FromTransactions(parsed, level).Seal()
	require.NoError(t, err)
	require.Equal(t, txs[0].Bundle, sealed.Hash())

	signed, err := sealed.Sign(wallet.NewRandomTernarySeed(), nil)
	require.NoError(t, err)
	require.NoError(t, signed.VerifySignatures())
}

func waitImproved(t *testing.T, events <-chan miner.CrackabilityEvent) {
	t.Helper()

	for ev := range events {
		require.NotEqual(t, miner.Mined, ev.EventType)
		if ev.EventType == miner.Improved {
			return
		}
	}
	t.Fatal("events closed before any improvement")
}

func drain(t *testing.T, events <-chan miner.CrackabilityEvent) *miner.CrackabilityEvent {
	t.Helper()

	var mined *miner.CrackabilityEvent
	for ev := range events {
		if ev.EventType == miner.Mined {
			ev := ev
			mined = &ev
		}
	}
	return mined
}
