package miner

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/iotaledger/iota.go/kerl"
	"github.com/iotaledger/iota.go/signing"
	"github.com/iotaledger/iota.go/trinary"
	"github.com/shirou/gopsutil/cpu"
	"github.com/tdex-network/chrysalis-migration/pkg/bundle"
	"golang.org/x/time/rate"
)

// DefaultWorkers returns the number of logical CPUs minus one, at least 1.
func DefaultWorkers() int {
	n, err := cpu.Counts(true)
	if err != nil || n <= 1 {
		return 1
	}
	return n - 1
}

// work evaluates batches of candidates reserved from the shared counter
// until the context is done or the deadline passes.
func (m *Miner) work(
	ctx context.Context,
	id int,
	counter *atomic.Uint64,
	deadline time.Time,
	commands chan<- Event,
) error {
	parts := m.opts.EssenceParts
	tail := append(trinary.Trits{}, parts[len(parts)-1]...)
	best := 2.0

	send := func(ev Event) bool {
		select {
		case commands <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	for {
		batch := counter.Add(1) - 1
		start := batch * m.batchSize

		var evaluated uint64
		for i := start; i < start+m.batchSize; i++ {
			if ctx.Err() != nil || !m.clock.Now().Before(deadline) {
				candidatesEvaluated.Add(float64(evaluated))
				return nil
			}

			hash, normalized, err := m.evaluate(tail, m.opts.Offset+i)
			if err != nil {
				return err
			}
			evaluated++

			if _, ok := m.known[hash]; ok {
				continue
			}
			if bundle.HasUnsecureTryte(normalized, m.opts.Num13Free) {
				continue
			}

			crackability := Crackability(m.maxKnown, normalized, m.opts.SecurityLevel)
			if crackability >= best {
				continue
			}
			best = crackability

			if !send(CandidateEvent{
				Worker:       id,
				Iteration:    i,
				Crackability: crackability,
				Tail:         append(trinary.Trits{}, tail...),
				BundleHash:   hash,
			}) {
				candidatesEvaluated.Add(float64(evaluated))
				return nil
			}
		}

		candidatesEvaluated.Add(float64(evaluated))
		if !send(ProgressEvent{Worker: id, Evaluated: evaluated}) {
			return nil
		}
	}
}

// evaluate writes the given obsolete tag value into tail and returns the
// resulting bundle hash along with its normalized form.
func (m *Miner) evaluate(
	tail trinary.Trits, tag uint64,
) (trinary.Trytes, []int8, error) {
	obsoleteTag := tail[obsoleteTagStart:obsoleteTagEnd]
	for i := range obsoleteTag {
		obsoleteTag[i] = 0
	}
	if err := bundle.EncodeInt(obsoleteTag, int64(tag)); err != nil {
		return "", nil, err
	}

	k := kerl.NewKerl()
	parts := m.opts.EssenceParts
	for _, part := range parts[:len(parts)-1] {
		if err := k.Absorb(part); err != nil {
			return "", nil, err
		}
	}
	if err := k.Absorb(tail); err != nil {
		return "", nil, err
	}
	hashTrits, err := k.Squeeze(bundle.BundleHashSize)
	if err != nil {
		return "", nil, err
	}
	hash, err := trinary.TritsToTrytes(hashTrits)
	if err != nil {
		return "", nil, err
	}
	return hash, signing.NormalizedBundleHash(hash), nil
}

// progressLimiter throttles progress events against the miner clock.
type progressLimiter struct {
	limiter *rate.Limiter
}

func newProgressLimiter(interval time.Duration) *progressLimiter {
	return &progressLimiter{
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

func (l *progressLimiter) Allow(now time.Time) bool {
	return l.limiter.AllowN(now, 1)
}
