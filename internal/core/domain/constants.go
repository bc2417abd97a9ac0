package domain

const (
	ExternalChain = 0
	InternalChain = 1

	// MiDecimals is the number of decimals of 1 Mi expressed in iotas
	MiDecimals = 6
	// DefaultDustThreshold is the minimum migrated balance in iotas when
	// dust protection is enabled
	DefaultDustThreshold = 1000000

	// HardwareWalletNum13Free is the number of leading normalized trytes
	// kept free of 13s when the bundle is signed by a hardware wallet
	HardwareWalletNum13Free = 81
	// NormalizedFragmentTrytes ...
	NormalizedFragmentTrytes = 27
)
