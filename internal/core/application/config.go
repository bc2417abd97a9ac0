package application

import (
	"fmt"
	"time"

	"github.com/lightningnetwork/lnd/clock"
	"github.com/tdex-network/chrysalis-migration/internal/core/domain"
	"github.com/tdex-network/chrysalis-migration/internal/core/ports"
	"github.com/tdex-network/chrysalis-migration/internal/infrastructure/preparer"
	"github.com/tdex-network/chrysalis-migration/pkg/wallet"
)

type Config struct {
	// Preparer defaults to the local one.
	Preparer ports.TransferPreparer
	// MiningResults is optional.
	MiningResults domain.MiningResultRepository
	// Clock defaults to the system clock.
	Clock clock.Clock

	DustProtection bool
	DustThreshold  uint64

	MiningTimeout          time.Duration
	MiningOffset           uint64
	MiningWorkers          int
	MiningProgressInterval time.Duration

	AddressRange uint32
	Bech32HRP    string
	// BasePath defaults to m/44'/4218'.
	BasePath wallet.DerivationPath

	address   AddressService
	migration MigrationService
}

func (c *Config) Validate() error {
	if c.MiningTimeout < 0 {
		return fmt.Errorf("mining timeout must not be negative")
	}
	if c.MiningWorkers < 0 {
		return fmt.Errorf("mining workers must not be negative")
	}
	if c.MiningProgressInterval < 0 {
		return fmt.Errorf("mining progress interval must not be negative")
	}
	if len(c.BasePath) > 0 && !c.BasePath.AllHardened() {
		return wallet.ErrNonHardenedDerivation
	}
	return nil
}

func (c *Config) AddressService() AddressService {
	if c.address == nil {
		c.address = NewAddressService(c.addressRange(), c.bech32HRP(), c.BasePath)
	}
	return c.address
}

func (c *Config) MigrationService() MigrationService {
	if c.migration == nil {
		c.migration = NewMigrationService(
			c.preparer(),
			c.MiningResults,
			c.clock(),
			c.dustPolicy(),
			MiningConfig{
				Timeout:          c.miningTimeout(),
				Offset:           c.MiningOffset,
				Workers:          c.MiningWorkers,
				ProgressInterval: c.MiningProgressInterval,
			},
		)
	}
	return c.migration
}

func (c *Config) clock() clock.Clock {
	if c.Clock == nil {
		c.Clock = clock.NewDefaultClock()
	}
	return c.Clock
}

func (c *Config) preparer() ports.TransferPreparer {
	if c.Preparer == nil {
		c.Preparer = preparer.NewLocalPreparer(c.clock())
	}
	return c.Preparer
}

func (c *Config) dustPolicy() domain.DustPolicy {
	threshold := c.DustThreshold
	if threshold == 0 {
		threshold = domain.DefaultDustThreshold
	}
	return domain.DustPolicy{Enabled: c.DustProtection, Threshold: threshold}
}

func (c *Config) miningTimeout() time.Duration {
	if c.MiningTimeout == 0 {
		return DefaultMiningTimeout
	}
	return c.MiningTimeout
}

func (c *Config) addressRange() uint32 {
	if c.AddressRange == 0 {
		return DefaultAddressRange
	}
	return c.AddressRange
}

func (c *Config) bech32HRP() string {
	if c.Bech32HRP == "" {
		return DefaultBech32HRP
	}
	return c.Bech32HRP
}
