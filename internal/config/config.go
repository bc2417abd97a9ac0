package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/tdex-network/chrysalis-migration/internal/core/application"
	"github.com/tdex-network/chrysalis-migration/pkg/miner"
	"github.com/tdex-network/chrysalis-migration/pkg/wallet"

	"github.com/spf13/viper"
)

const (
	// DatadirKey is the local data directory where serialized bundles are stored
	DatadirKey = "DATADIR"
	// LogLevelKey are the different logging levels. For reference on the values https://godoc.org/github.com/sirupsen/logrus#Level
	LogLevelKey = "LOG_LEVEL"
	// MiningTimeoutKey is the maximum duration of a mining job, ie. 10m
	MiningTimeoutKey = "MINING_TIMEOUT"
	// MiningOffsetKey is the first obsolete tag value tried by a mining job
	MiningOffsetKey = "MINING_OFFSET"
	// MiningWorkersKey is the number of mining workers. 0 means the number of
	// logical CPUs minus one
	MiningWorkersKey = "MINING_WORKERS"
	// MiningProgressIntervalKey is the minimum interval between two progress
	// notifications of a mining job
	MiningProgressIntervalKey = "MINING_PROGRESS_INTERVAL"
	// DustProtectionKey enables refusing migrations of a total balance below
	// the dust threshold
	DustProtectionKey = "DUST_PROTECTION"
	// DustThresholdKey is the minimum total balance, in iotas, of a migration
	// bundle when dust protection is enabled
	DustThresholdKey = "DUST_THRESHOLD"
	// AddressRangeKey is the number of address indexes derived when no range
	// is given
	AddressRangeKey = "ADDRESS_RANGE"
	// Bech32HRPKey is the human readable part of bech32 addresses, either
	// "iota" or "atoi"
	Bech32HRPKey = "BECH32_HRP"
	// BaseDerivationPathKey is the hardened path ed25519 accounts are derived
	// under, ie. m/44'/4218'
	BaseDerivationPathKey = "BASE_DERIVATION_PATH"

	BundlesLocation = "bundles"

	maxMiningOffset = math.MaxInt64 / 2
)

var vip *viper.Viper
var defaultDatadir = btcutil.AppDataDir("chrysalis-migration", false)

func InitConfig() error {
	vip = viper.New()
	vip.SetEnvPrefix("MIGRATION")
	vip.AutomaticEnv()

	vip.SetDefault(DatadirKey, defaultDatadir)
	vip.SetDefault(LogLevelKey, 4)
	vip.SetDefault(MiningTimeoutKey, application.DefaultMiningTimeout)
	vip.SetDefault(MiningOffsetKey, 0)
	vip.SetDefault(MiningWorkersKey, 0)
	vip.SetDefault(MiningProgressIntervalKey, miner.DefaultProgressInterval)
	vip.SetDefault(DustProtectionKey, false)
	vip.SetDefault(DustThresholdKey, 1000000)
	vip.SetDefault(AddressRangeKey, application.DefaultAddressRange)
	vip.SetDefault(Bech32HRPKey, application.DefaultBech32HRP)
	vip.SetDefault(BaseDerivationPathKey, wallet.DefaultBaseDerivationPath.String())

	if err := validate(); err != nil {
		return fmt.Errorf("error while validating config: %s", err)
	}

	if err := initDatadir(); err != nil {
		return fmt.Errorf("error while creating datadir: %s", err)
	}

	return nil
}

func GetString(key string) string {
	return vip.GetString(key)
}

func GetInt(key string) int {
	return vip.GetInt(key)
}

func GetUint64(key string) uint64 {
	return vip.GetUint64(key)
}

func GetDuration(key string) time.Duration {
	return vip.GetDuration(key)
}

func GetBool(key string) bool {
	return vip.GetBool(key)
}

// Set a value for the given key
func Set(key string, value interface{}) {
	vip.Set(key, value)
}

func GetDatadir() string {
	return GetString(DatadirKey)
}

// ApplicationConfig returns the application config made of the current
// values.
func ApplicationConfig() *application.Config {
	return &application.Config{
		DustProtection:         GetBool(DustProtectionKey),
		DustThreshold:          GetUint64(DustThresholdKey),
		MiningTimeout:          GetDuration(MiningTimeoutKey),
		MiningOffset:           GetUint64(MiningOffsetKey),
		MiningWorkers:          GetInt(MiningWorkersKey),
		MiningProgressInterval: GetDuration(MiningProgressIntervalKey),
		AddressRange:           uint32(GetInt(AddressRangeKey)),
		Bech32HRP:              GetString(Bech32HRPKey),
		BasePath:               GetBaseDerivationPath(),
	}
}

// GetBaseDerivationPath returns the configured base path, already validated
// by InitConfig.
func GetBaseDerivationPath() wallet.DerivationPath {
	path, _ := wallet.ParseBaseDerivationPath(GetString(BaseDerivationPathKey))
	return path
}

func validate() error {
	datadir := GetString(DatadirKey)
	if len(datadir) <= 0 {
		return fmt.Errorf("missing datadir")
	}

	if level := GetInt(LogLevelKey); level < 0 || level > 6 {
		return fmt.Errorf("%s must be in range [0, 6]", LogLevelKey)
	}

	if GetDuration(MiningTimeoutKey) <= 0 {
		return fmt.Errorf("%s must be a positive duration", MiningTimeoutKey)
	}
	if GetDuration(MiningProgressIntervalKey) <= 0 {
		return fmt.Errorf("%s must be a positive duration", MiningProgressIntervalKey)
	}
	if GetInt(MiningWorkersKey) < 0 {
		return fmt.Errorf("%s must not be negative", MiningWorkersKey)
	}
	if GetUint64(MiningOffsetKey) > maxMiningOffset {
		return fmt.Errorf("%s must not be greater than %d", MiningOffsetKey, maxMiningOffset)
	}

	if GetBool(DustProtectionKey) && GetUint64(DustThresholdKey) == 0 {
		return fmt.Errorf("%s must be positive when dust protection is enabled", DustThresholdKey)
	}

	if r := GetInt(AddressRangeKey); r <= 0 || r > math.MaxInt32 {
		return fmt.Errorf("%s must be in range [1, %d]", AddressRangeKey, math.MaxInt32)
	}

	hrp := GetString(Bech32HRPKey)
	if hrp != "iota" && hrp != "atoi" {
		return fmt.Errorf("%s must be either 'iota' or 'atoi'", Bech32HRPKey)
	}

	if _, err := wallet.ParseBaseDerivationPath(GetString(BaseDerivationPathKey)); err != nil {
		return fmt.Errorf("%s: %s", BaseDerivationPathKey, err)
	}

	return nil
}

func initDatadir() error {
	datadir := GetDatadir()
	return makeDirectoryIfNotExists(filepath.Join(datadir, BundlesLocation))
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}
