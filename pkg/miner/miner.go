package miner

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"time"

	"github.com/iotaledger/iota.go/trinary"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/tdex-network/chrysalis-migration/pkg/bundle"
	"github.com/tdex-network/chrysalis-migration/pkg/wallet"
	"golang.org/x/sync/errgroup"

	log "github.com/sirupsen/logrus"
)

const (
	// DefaultBatchSize is the number of consecutive iterations a worker
	// reserves at once from the shared counter.
	DefaultBatchSize = 1000
	// DefaultProgressInterval ...
	DefaultProgressInterval = time.Second
	// MaxHardwareWalletNum13Free is the number of normalized trytes kept
	// free of 13s when signing with a hardware wallet, which always signs
	// with the whole hash.
	MaxHardwareWalletNum13Free = 81

	obsoleteTagStart = bundle.ObsoleteTagOffset - bundle.MinedSpanOffset
	obsoleteTagEnd   = obsoleteTagStart + bundle.ObsoleteTagSize
)

var (
	// ErrMissingEssenceParts ...
	ErrMissingEssenceParts = errors.New("missing essence parts")
	// ErrInvalidEssenceParts ...
	ErrInvalidEssenceParts = errors.New(
		"essence parts must be an even number of 243 trits long parts",
	)
	// ErrMissingKnownHashes ...
	ErrMissingKnownHashes = errors.New("missing known bundle hashes")
	// ErrInvalidKnownHash ...
	ErrInvalidKnownHash = errors.New("known bundle hash must be 81 valid trytes")
	// ErrInvalidNum13Free ...
	ErrInvalidNum13Free = errors.New("number of 13-free trytes out of range")
	// ErrInvalidTimeout ...
	ErrInvalidTimeout = errors.New("timeout must be positive")
	// ErrInvalidOffset ...
	ErrInvalidOffset = errors.New("offset out of range")
)

// Opts defines the parameters needed for creating a miner with NewMiner
// method.
type Opts struct {
	// EssenceParts are the address and tail halves of every transaction
	// essence, in bundle order. The tail of the last transaction is the
	// one being mined.
	EssenceParts []trinary.Trits
	// SecurityLevel of the signing inputs.
	SecurityLevel int
	// Num13Free is the number of leading normalized trytes that must not
	// be 13.
	Num13Free         int
	KnownBundleHashes []trinary.Trytes
	// Workers defaults to the number of logical CPUs minus one.
	Workers int
	Timeout time.Duration
	// Offset is the first obsolete tag value tried.
	Offset           uint64
	BatchSize        uint64
	ProgressInterval time.Duration
	// Clock defaults to the system clock.
	Clock clock.Clock
}

func (o Opts) validate() error {
	if len(o.EssenceParts) <= 0 {
		return ErrMissingEssenceParts
	}
	if len(o.EssenceParts)%2 != 0 {
		return ErrInvalidEssenceParts
	}
	for _, part := range o.EssenceParts {
		if len(part) != bundle.EssencePartSize {
			return ErrInvalidEssenceParts
		}
	}
	if !wallet.ValidSecurityLevel(o.SecurityLevel) {
		return wallet.ErrInvalidSecurityLevel
	}
	if o.Num13Free < o.SecurityLevel*NormalizedFragmentTrytes ||
		o.Num13Free > MaxHardwareWalletNum13Free {
		return ErrInvalidNum13Free
	}
	if len(o.KnownBundleHashes) <= 0 {
		return ErrMissingKnownHashes
	}
	for _, hash := range o.KnownBundleHashes {
		if len(hash) != bundle.BundleHashSize/3 {
			return ErrInvalidKnownHash
		}
		if err := trinary.ValidTrytes(hash); err != nil {
			return ErrInvalidKnownHash
		}
	}
	if o.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if o.Offset > math.MaxInt64/2 {
		return ErrInvalidOffset
	}
	return nil
}

// Outcome is the reason a job ended.
type Outcome string

const (
	OutcomeFound     Outcome = "found"
	OutcomeTimeout   Outcome = "timeout"
	OutcomeStopped   Outcome = "stopped"
	OutcomeCancelled Outcome = "cancelled"
)

// Result summarizes an ended job.
type Result struct {
	Outcome Outcome
	// Evaluated is the number of candidates evaluated by all workers.
	Evaluated uint64
	// Best is nil if no candidate was found.
	Best *CandidateEvent
	// NextOffset is the first obsolete tag value no worker reserved, where
	// a later job over the same bundle can resume from.
	NextOffset uint64
}

// Miner searches an obsolete tag for the last transaction of a bundle such
// that signing the resulting bundle hash reveals as little additional key
// material as possible, given the signatures already exposed for the known
// bundle hashes.
type Miner struct {
	opts        Opts
	known       map[trinary.Trytes]struct{}
	maxKnown    []int8
	baseline    float64
	workers     int
	batchSize   uint64
	progressInt time.Duration
	clock       clock.Clock
}

// NewMiner returns a miner ready to Run.
func NewMiner(opts Opts) (*Miner, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	known := make(map[trinary.Trytes]struct{}, len(opts.KnownBundleHashes))
	for _, hash := range opts.KnownBundleHashes {
		known[hash] = struct{}{}
	}
	maxKnown := MaxNormalized(opts.KnownBundleHashes)

	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers()
	}
	batchSize := opts.BatchSize
	if batchSize == 0 {
		batchSize = DefaultBatchSize
	}
	progressInt := opts.ProgressInterval
	if progressInt <= 0 {
		progressInt = DefaultProgressInterval
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.NewDefaultClock()
	}

	return &Miner{
		opts:        opts,
		known:       known,
		maxKnown:    maxKnown,
		baseline:    Crackability(maxKnown, nil, opts.SecurityLevel),
		workers:     workers,
		batchSize:   batchSize,
		progressInt: progressInt,
		clock:       clk,
	}, nil
}

// Workers returns the number of workers the miner runs.
func (m *Miner) Workers() int {
	return m.workers
}

// Baseline returns the crackability of the known bundle hashes alone.
func (m *Miner) Baseline() float64 {
	return m.baseline
}

// Run starts the workers and the recoverer and blocks until the job ends.
// Workers send their candidates over the commands channel, on which the
// caller may send a StopEvent too. Crackability events are sent over out,
// which is closed when Run returns.
func (m *Miner) Run(
	ctx context.Context, commands chan Event, out chan<- CrackabilityEvent,
) Result {
	defer close(out)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := log.WithFields(log.Fields{
		"workers":  m.workers,
		"security": m.opts.SecurityLevel,
		"offset":   m.opts.Offset,
	})
	logger.Debug("start mining")

	deadline := m.clock.Now().Add(m.opts.Timeout)
	timeout := m.clock.TickAfter(m.opts.Timeout)

	var counter atomic.Uint64
	eg, egCtx := errgroup.WithContext(ctx)
	for i := 0; i < m.workers; i++ {
		id := i
		eg.Go(func() error {
			return m.work(egCtx, id, &counter, deadline, commands)
		})
	}

	result := m.recover(ctx, commands, out, timeout)

	cancel()
	if err := eg.Wait(); err != nil {
		logger.WithError(err).Warn("mining worker failed")
	}
	result.NextOffset = m.opts.Offset + counter.Load()*m.batchSize

	jobOutcomes.WithLabelValues(string(result.Outcome)).Inc()
	logger.WithFields(log.Fields{
		"outcome":   result.Outcome,
		"evaluated": result.Evaluated,
	}).Debug("mining ended")
	return result
}

// recover collects the workers' candidates and alone decides when the job
// ends.
func (m *Miner) recover(
	ctx context.Context,
	commands <-chan Event,
	out chan<- CrackabilityEvent,
	timeout <-chan time.Time,
) Result {
	limiter := newProgressLimiter(m.progressInt)

	var (
		best      *CandidateEvent
		evaluated uint64
	)

	event := func(eventType CrackabilityEventType) CrackabilityEvent {
		ev := CrackabilityEvent{
			EventType: eventType,
			Baseline:  m.baseline,
			Evaluated: evaluated,
		}
		if best != nil {
			ev.Crackability = best.Crackability
			ev.Tail = best.Tail
			ev.BundleHash = best.BundleHash
		}
		return ev
	}

	result := func(outcome Outcome) Result {
		return Result{Outcome: outcome, Evaluated: evaluated, Best: best}
	}
	finish := func(outcome Outcome) Result {
		// select picks at random among ready cases, a cancellation must win
		// over any other one
		if ctx.Err() != nil {
			return result(OutcomeCancelled)
		}
		if best != nil {
			m.emit(ctx, out, event(Mined))
		}
		return result(outcome)
	}

	for {
		select {
		case <-ctx.Done():
			return result(OutcomeCancelled)

		case <-timeout:
			return finish(OutcomeTimeout)

		case cmd := <-commands:
			switch e := cmd.(type) {
			case StopEvent:
				return finish(OutcomeStopped)

			case ProgressEvent:
				evaluated += e.Evaluated
				if limiter.Allow(m.clock.Now()) {
					m.notify(ctx, out, event(Progress))
				}

			case CandidateEvent:
				if best != nil && e.Crackability >= best.Crackability {
					continue
				}
				candidate := e
				best = &candidate
				if best.Crackability <= m.baseline {
					return finish(OutcomeFound)
				}
				m.notify(ctx, out, event(Improved))
			}
		}
	}
}

// emit sends the event unless the job is cancelled first.
func (m *Miner) emit(
	ctx context.Context, out chan<- CrackabilityEvent, ev CrackabilityEvent,
) {
	if ctx.Err() != nil {
		return
	}
	select {
	case out <- ev:
	case <-ctx.Done():
	}
}

// notify sends the event only if out has room for it, so that the recoverer
// keeps draining commands while the caller is not reading. Nothing is sent
// once the job is cancelled.
func (m *Miner) notify(
	ctx context.Context, out chan<- CrackabilityEvent, ev CrackabilityEvent,
) {
	if ctx.Err() != nil {
		return
	}
	select {
	case out <- ev:
	default:
	}
}
