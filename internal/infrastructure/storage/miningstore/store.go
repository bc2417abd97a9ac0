package miningstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/badger/v3/options"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/chrysalis-migration/internal/core/domain"
	"github.com/timshannon/badgerhold/v4"
)

const storeLocation = "mining"

var (
	// ErrResultExists ...
	ErrResultExists = errors.New("mining result already exists")
	// ErrResultNotFound ...
	ErrResultNotFound = errors.New("mining result not found")
)

type miningResultStore struct {
	store *badgerhold.Store
	quit  chan struct{}
}

// NewMiningResultStore opens the store under baseDbDir, or an in-memory
// one if baseDbDir is empty.
func NewMiningResultStore(
	baseDbDir string, logger badger.Logger,
) (domain.MiningResultRepository, error) {
	var dbDir string
	if len(baseDbDir) > 0 {
		dbDir = filepath.Join(baseDbDir, storeLocation)
	}

	quit := make(chan struct{})
	store, err := createDb(dbDir, logger, quit)
	if err != nil {
		return nil, fmt.Errorf("opening mining db: %w", err)
	}
	return &miningResultStore{store, quit}, nil
}

func (s *miningResultStore) AddResult(
	ctx context.Context, result domain.MiningResult,
) error {
	if err := s.store.Insert(result.SessionID, &result); err != nil {
		if err == badgerhold.ErrKeyExists {
			return ErrResultExists
		}
		return err
	}
	return nil
}

func (s *miningResultStore) GetResult(
	ctx context.Context, sessionID string,
) (*domain.MiningResult, error) {
	var result domain.MiningResult
	if err := s.store.Get(sessionID, &result); err != nil {
		if err == badgerhold.ErrNotFound {
			return nil, ErrResultNotFound
		}
		return nil, err
	}
	return &result, nil
}

func (s *miningResultStore) GetLatestResultForJob(
	ctx context.Context, jobKey string,
) (*domain.MiningResult, error) {
	var results []domain.MiningResult
	query := badgerhold.Where("JobKey").Eq(jobKey)
	if err := s.store.Find(&results, query); err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}

	// the furthest job wins over the most recent one, they differ only if
	// a job was started again from a lower offset
	latest := results[0]
	for _, r := range results[1:] {
		if r.NextOffset > latest.NextOffset {
			latest = r
		}
	}
	return &latest, nil
}

func (s *miningResultStore) ListResults(
	ctx context.Context,
) ([]domain.MiningResult, error) {
	var results []domain.MiningResult
	if err := s.store.Find(&results, nil); err != nil {
		return nil, err
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Timestamp < results[j].Timestamp
	})
	return results, nil
}

func (s *miningResultStore) Close() {
	close(s.quit)
	s.store.Close()
}

func createDb(
	dbDir string, logger badger.Logger, quit <-chan struct{},
) (*badgerhold.Store, error) {
	isInMemory := len(dbDir) <= 0

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = logger

	if isInMemory {
		opts.InMemory = true
	} else {
		opts.Compression = options.ZSTD
	}

	db, err := badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
	if err != nil {
		return nil, err
	}

	if !isInMemory {
		ticker := time.NewTicker(30 * time.Minute)

		go func() {
			defer ticker.Stop()
			for {
				select {
				case <-quit:
					return
				case <-ticker.C:
				}
				if err := db.Badger().RunValueLogGC(0.5); err != nil &&
					err != badger.ErrNoRewrite {
					log.Error(err)
				}
			}
		}()
	}

	return db, nil
}
