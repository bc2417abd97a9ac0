package application

import (
	"context"

	"github.com/lightningnetwork/lnd/fn/v2"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/chrysalis-migration/pkg/wallet"
)

// AddressInfo is an address of the new ledger along with its bech32
// rendering.
type AddressInfo struct {
	Address  wallet.Ed25519Address
	Bech32   string
	Internal bool
}

type AddressService interface {
	GetAddresses(
		ctx context.Context,
		seed wallet.Seed,
		accountIndex fn.Option[uint32],
		addressRange fn.Option[wallet.Range],
	) ([]AddressInfo, error)
	GetLegacyAddresses(
		ctx context.Context,
		seed wallet.Seed,
		securityLevel int,
		start, end uint64,
	) ([]wallet.LegacyAddress, error)
	GetMigrationAddress(
		ctx context.Context,
		address wallet.Ed25519Address,
	) (wallet.LegacyAddress, error)
}

type addressService struct {
	defaultRange uint32
	hrp          string
	basePath     wallet.DerivationPath
}

// NewAddressService returns an address service deriving the accounts under
// the given base path, m/44'/4218' if empty.
func NewAddressService(
	defaultRange uint32, hrp string, basePath wallet.DerivationPath,
) AddressService {
	if len(basePath) <= 0 {
		basePath = wallet.DefaultBaseDerivationPath
	}
	return &addressService{defaultRange, hrp, basePath}
}

// GetAddresses derives the external and internal addresses of the given
// account for every index of the range, defaulting to the configured one.
// A seed other than an *wallet.Ed25519Seed makes it panic.
func (s *addressService) GetAddresses(
	ctx context.Context,
	seed wallet.Seed,
	accountIndex fn.Option[uint32],
	addressRange fn.Option[wallet.Range],
) ([]AddressInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r := addressRange.UnwrapOr(wallet.Range{Start: 0, End: s.defaultRange})
	addresses, err := wallet.GetAddresses(wallet.GetAddressesOpts{
		Seed:         seed,
		AccountIndex: accountIndex,
		Range:        fn.Some(r),
		BasePath:     fn.Some(s.basePath),
	})
	if err != nil {
		return nil, err
	}

	infos := make([]AddressInfo, 0, len(addresses))
	for _, addr := range addresses {
		bech32, err := addr.Address.Bech32(s.hrp)
		if err != nil {
			return nil, err
		}
		infos = append(infos, AddressInfo{
			Address:  addr.Address,
			Bech32:   bech32,
			Internal: addr.Internal,
		})
	}

	log.Debugf(
		"derived %d addresses of %s in range [%d, %d)",
		len(infos), s.basePath, r.Start, r.End,
	)
	return infos, nil
}

func (s *addressService) GetLegacyAddresses(
	ctx context.Context,
	seed wallet.Seed,
	securityLevel int,
	start, end uint64,
) ([]wallet.LegacyAddress, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return wallet.GetLegacyAddresses(wallet.GetLegacyAddressesOpts{
		Seed:          seed,
		SecurityLevel: securityLevel,
		Start:         start,
		End:           end,
	})
}

func (s *addressService) GetMigrationAddress(
	ctx context.Context,
	address wallet.Ed25519Address,
) (wallet.LegacyAddress, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return wallet.EncodeMigrationAddress(address), nil
}
