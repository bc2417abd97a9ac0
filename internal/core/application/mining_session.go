package application

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/iotaledger/iota.go/trinary"
	"github.com/lightningnetwork/lnd/fn/v2"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/chrysalis-migration/internal/core/domain"
	"github.com/tdex-network/chrysalis-migration/pkg/bundle"
	"github.com/tdex-network/chrysalis-migration/pkg/miner"
)

// MineOpts is the struct given to Mine method
type MineOpts struct {
	// Bundle is the unsigned migration bundle.
	Bundle        *bundle.Bundle
	SecurityLevel int
	// HardwareWallet makes the whole normalized hash free of 13s instead of
	// only the fragments signed with SecurityLevel.
	HardwareWallet bool
	// UsedBundleHashes were already signed with the inputs' keys.
	UsedBundleHashes []trinary.Trytes
	// Timeout overrides the configured one. Offset overrides both the
	// configured one and the one a previous job over the same bundle
	// stopped at.
	Timeout fn.Option[time.Duration]
	Offset  fn.Option[uint64]
}

// MiningSession is a running mining job. Events is closed once the job
// ends, after a Mined event if any candidate was found.
type MiningSession struct {
	ID uuid.UUID
	// Transactions is the decoy bundle whose last transaction is mined.
	Transactions bundle.Transactions
	// Offset is the first obsolete tag value tried.
	Offset   uint64
	Commands chan<- miner.Event
	Events   <-chan miner.CrackabilityEvent

	gm   *fn.GoroutineManager
	done chan struct{}
}

// Stop asks the job to end emitting the best candidate found so far. It
// does nothing if the job already ended.
func (s *MiningSession) Stop() {
	select {
	case s.Commands <- miner.StopEvent{}:
	case <-s.done:
	}
}

// Cancel ends the job without emitting any result and blocks until every
// worker exited and Events is closed.
func (s *MiningSession) Cancel() {
	s.gm.Stop()
}

// Done is closed when the job ended.
func (s *MiningSession) Done() <-chan struct{} {
	return s.done
}

// Mine searches, in background, an obsolete tag for the last transaction of
// the bundle minimizing the key material exposed by signing it, given the
// used bundle hashes.
//
// The bundle is first run through the signing pipeline with a random seed
// and no inputs, the resulting decoy transactions are the ones mined.
func (s *migrationService) Mine(
	ctx context.Context, opts MineOpts,
) (*MiningSession, error) {
	if opts.Bundle == nil {
		return nil, ErrNilBundle
	}
	if len(opts.UsedBundleHashes) <= 0 {
		return nil, domain.ErrNoUsedBundleHashes
	}
	for _, hash := range opts.UsedBundleHashes {
		if len(hash) != bundle.BundleHashSize/3 {
			return nil, domain.ErrInvalidUsedBundleHash
		}
		if err := trinary.ValidTrytes(hash); err != nil {
			return nil, domain.ErrInvalidUsedBundleHash
		}
	}
	securityLevel := mustSecurityLevel(opts.SecurityLevel)

	decoy, err := decoyBundle(opts.Bundle)
	if err != nil {
		return nil, err
	}
	txs := decoy.Transactions()

	parts, err := essenceParts(txs)
	if err != nil {
		return nil, err
	}

	num13Free := securityLevel * domain.NormalizedFragmentTrytes
	if opts.HardwareWallet {
		num13Free = domain.HardwareWalletNum13Free
	}

	jobKey := txs[0].Bundle
	offset, err := s.miningOffset(ctx, jobKey, opts.Offset)
	if err != nil {
		return nil, err
	}

	m, err := miner.NewMiner(miner.Opts{
		EssenceParts:      parts,
		SecurityLevel:     securityLevel,
		Num13Free:         num13Free,
		KnownBundleHashes: opts.UsedBundleHashes,
		Workers:           s.mining.Workers,
		Timeout:           opts.Timeout.UnwrapOr(s.mining.Timeout),
		Offset:            offset,
		ProgressInterval:  s.mining.ProgressInterval,
		Clock:             s.clock,
	})
	if err != nil {
		return nil, err
	}

	commands := make(chan miner.Event, m.Workers()+miningCommandsExtraBuffer)
	events := make(chan miner.CrackabilityEvent, miningEventsBuffer)

	session := &MiningSession{
		ID:           uuid.New(),
		Transactions: txs,
		Offset:       offset,
		Commands:     commands,
		Events:       events,
		gm:           fn.NewGoroutineManager(),
		done:         make(chan struct{}),
	}
	logger := log.WithFields(log.Fields{
		"session":   session.ID.String(),
		"workers":   m.Workers(),
		"num13Free": num13Free,
		"offset":    offset,
	})

	started := session.gm.Go(ctx, func(ctx context.Context) {
		defer close(session.done)
		result := m.Run(ctx, commands, events)
		logger.WithField("outcome", result.Outcome).Info("mining session ended")

		if err := s.saveMiningResult(session, jobKey, result); err != nil {
			logger.WithError(err).Warn("failed to store mining result")
		}
	})
	if !started {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrMiningNotStarted, err)
		}
		return nil, ErrMiningNotStarted
	}

	logger.Info("mining session started")
	return session, nil
}

// miningOffset returns the given offset if any, otherwise the one the
// furthest stored job over the same bundle stopped at, otherwise the
// configured one.
func (s *migrationService) miningOffset(
	ctx context.Context, jobKey bundle.Hash, offset fn.Option[uint64],
) (uint64, error) {
	if offset.IsSome() || s.results == nil {
		return offset.UnwrapOr(s.mining.Offset), nil
	}

	latest, err := s.results.GetLatestResultForJob(ctx, jobKey)
	if err != nil {
		return 0, err
	}
	if latest == nil || latest.NextOffset < s.mining.Offset {
		return s.mining.Offset, nil
	}
	return latest.NextOffset, nil
}

func (s *migrationService) saveMiningResult(
	session *MiningSession, jobKey bundle.Hash, result miner.Result,
) error {
	if s.results == nil {
		return nil
	}

	r := domain.MiningResult{
		SessionID:  session.ID.String(),
		JobKey:     jobKey,
		Outcome:    string(result.Outcome),
		Offset:     session.Offset,
		NextOffset: result.NextOffset,
		Evaluated:  result.Evaluated,
		Timestamp:  s.clock.Now().Unix(),
	}
	if best := result.Best; best != nil {
		tail, err := trinary.TritsToTrytes(best.Tail)
		if err != nil {
			return err
		}
		r.BundleHash = best.BundleHash
		r.Tail = tail
		r.Crackability = best.Crackability
	}

	// the job context may be already done at this point
	return s.results.AddResult(context.Background(), r)
}

// essenceParts splits the essence of every transaction into its address and
// tail parts, round tripping them through trytes.
func essenceParts(txs bundle.Transactions) ([]trinary.Trits, error) {
	parts, err := bundle.EssenceParts(txs)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrMalformedEssence, err)
	}

	out := make([]trinary.Trits, 0, len(parts))
	for i, part := range parts {
		trytes, err := trinary.TritsToTrytes(part)
		if err != nil {
			return nil, fmt.Errorf("%w: part %d: %s", domain.ErrMalformedEssence, i, err)
		}
		trits, err := trinary.TrytesToTrits(trytes)
		if err != nil {
			return nil, fmt.Errorf("%w: part %d: %s", domain.ErrMalformedEssence, i, err)
		}
		out = append(out, trits)
	}
	return out, nil
}
