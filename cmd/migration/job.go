package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/iotaledger/iota.go/trinary"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/chrysalis-migration/internal/config"
	"github.com/tdex-network/chrysalis-migration/internal/core/application"
	"github.com/tdex-network/chrysalis-migration/internal/core/domain"
	"github.com/tdex-network/chrysalis-migration/internal/infrastructure/storage/miningstore"
	"github.com/tdex-network/chrysalis-migration/pkg/bundle"
	"github.com/tdex-network/chrysalis-migration/pkg/miner"
	"github.com/tdex-network/chrysalis-migration/pkg/wallet"
)

type jobInput struct {
	Index   uint64 `json:"index"`
	Balance uint64 `json:"balance"`
}

type job struct {
	Seed             string           `json:"seed"`
	SecurityLevel    int              `json:"securityLevel"`
	Inputs           []jobInput       `json:"inputs"`
	Target           string           `json:"target"`
	UsedBundleHashes []trinary.Trytes `json:"usedBundleHashes"`
	HardwareWallet   bool             `json:"hardwareWallet"`
}

type jobResult struct {
	BundleHash   string   `json:"bundleHash"`
	Mined        bool     `json:"mined"`
	SecurityBits float64  `json:"securityBits,omitempty"`
	Trytes       []string `json:"trytes"`
}

func readJob(path string) (*job, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	j := &job{}
	if err := json.Unmarshal(buf, j); err != nil {
		return nil, fmt.Errorf("malformed job file: %s", err)
	}
	if !wallet.ValidSecurityLevel(j.SecurityLevel) {
		return nil, wallet.ErrInvalidSecurityLevel
	}
	return j, nil
}

func runJob(j *job) error {
	seed, err := wallet.NewTernarySeed(j.Seed)
	if err != nil {
		return err
	}
	_, target, err := wallet.ParseBech32Address(j.Target)
	if err != nil {
		return err
	}
	inputs := make([]domain.Input, 0, len(j.Inputs))
	for _, in := range j.Inputs {
		address, err := wallet.GenerateLegacyAddress(seed, in.Index, j.SecurityLevel)
		if err != nil {
			return err
		}
		inputs = append(inputs, domain.Input{
			Address:       address.String(),
			Balance:       in.Balance,
			Index:         in.Index,
			SecurityLevel: j.SecurityLevel,
		})
	}

	store, err := miningstore.NewMiningResultStore(config.GetDatadir(), nil)
	if err != nil {
		return err
	}
	defer store.Close()

	cfg := config.ApplicationConfig()
	cfg.MiningResults = store
	if err := cfg.Validate(); err != nil {
		return err
	}
	svc := cfg.MigrationService()

	ctx := context.Background()
	unsigned, err := svc.CreateMigrationBundle(ctx, target, inputs)
	if err != nil {
		return err
	}

	result := jobResult{}
	if len(j.UsedBundleHashes) > 0 {
		mined, err := mine(ctx, svc, unsigned, j)
		if err != nil {
			return err
		}
		if mined != nil {
			unsigned = mined.bundle
			result.Mined = true
			result.SecurityBits = miner.SecurityBits(mined.crackability)
		}
	}

	txs, err := svc.SignMigrationBundle(ctx, seed, unsigned, inputs)
	if err != nil {
		return err
	}
	for _, tx := range txs {
		trytes, err := tx.Trytes()
		if err != nil {
			return err
		}
		result.Trytes = append(result.Trytes, trytes)
	}
	result.BundleHash = txs[0].Bundle

	return writeResult(result)
}

type minedBundle struct {
	bundle       *bundle.Bundle
	crackability float64
}

// mine runs a mining session until it ends on its own or the user
// interrupts it, and returns the finalized bundle if any candidate was
// found.
func mine(
	ctx context.Context,
	svc application.MigrationService,
	unsigned *bundle.Bundle,
	j *job,
) (*minedBundle, error) {
	session, err := svc.Mine(ctx, application.MineOpts{
		Bundle:           unsigned,
		SecurityLevel:    j.SecurityLevel,
		HardwareWallet:   j.HardwareWallet,
		UsedBundleHashes: j.UsedBundleHashes,
	})
	if err != nil {
		return nil, err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case <-sigChan:
			log.Info("stopping mining, waiting for the best candidate...")
			session.Stop()
		case <-session.Done():
		}
	}()

	var mined *miner.CrackabilityEvent
	for ev := range session.Events {
		switch ev.EventType {
		case miner.Progress:
			log.Infof("evaluated %d candidates", ev.Evaluated)
		case miner.Improved:
			log.Infof(
				"best candidate improved: %.2f security bits, %.2f at most",
				ev.SecurityBits(), miner.SecurityBits(ev.Baseline),
			)
		case miner.Mined:
			ev := ev
			mined = &ev
		}
	}
	<-session.Done()

	if mined == nil {
		log.Warn("no candidate found, signing the bundle as it is")
		return nil, nil
	}

	finalized, err := svc.FinalizeWithMinedTag(ctx, session.Transactions, mined.Tail)
	if err != nil {
		return nil, err
	}
	return &minedBundle{finalized, mined.Crackability}, nil
}

func writeResult(result jobResult) error {
	buf, err := json.MarshalIndent(result, "", "\t")
	if err != nil {
		return err
	}

	path := filepath.Join(
		config.GetDatadir(), config.BundlesLocation, result.BundleHash+".json",
	)
	if err := os.WriteFile(path, buf, 0644); err != nil {
		return err
	}
	log.Infof("signed bundle written to %s", path)

	fmt.Println(string(buf))
	return nil
}
