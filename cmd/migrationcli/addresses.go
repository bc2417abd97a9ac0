package main

import (
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/tdex-network/chrysalis-migration/pkg/wallet"
	"github.com/urfave/cli/v2"
)

var addresses = cli.Command{
	Name:  "addresses",
	Usage: "derive the ed25519 addresses of an account",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "mnemonic",
			Usage: "the space separated mnemonic of the ed25519 seed",
		},
		&cli.UintFlag{
			Name:  "account",
			Usage: "the account index",
			Value: 0,
		},
		&cli.StringFlag{
			Name:  "path",
			Usage: "the hardened base derivation path, defaults to BASE_DERIVATION_PATH",
		},
		&cli.UintFlag{
			Name:  "start",
			Usage: "the first address index",
		},
		&cli.UintFlag{
			Name:  "end",
			Usage: "the address index after the last one, defaults to start + ADDRESS_RANGE",
		},
	},
	Action: addressesAction,
}

type addressInfo struct {
	Index    uint32 `json:"index"`
	Address  string `json:"address"`
	Bech32   string `json:"bech32"`
	Internal bool   `json:"internal"`
}

func addressesAction(ctx *cli.Context) error {
	seed, err := getEd25519Seed(ctx)
	if err != nil {
		return err
	}
	cfg, cleanup, err := getAppConfig()
	if err != nil {
		return err
	}
	defer cleanup()

	if ctx.IsSet("path") {
		basePath, err := wallet.ParseBaseDerivationPath(ctx.String("path"))
		if err != nil {
			return err
		}
		cfg.BasePath = basePath
	}

	addressRange := fn.None[wallet.Range]()
	start := uint32(ctx.Uint("start"))
	if ctx.IsSet("start") || ctx.IsSet("end") {
		end := start + cfg.AddressRange
		if ctx.IsSet("end") {
			end = uint32(ctx.Uint("end"))
		}
		addressRange = fn.Some(wallet.Range{Start: start, End: end})
	}

	infos, err := cfg.AddressService().GetAddresses(
		background(), seed, fn.Some(uint32(ctx.Uint("account"))), addressRange,
	)
	if err != nil {
		return err
	}

	resp := make([]addressInfo, 0, len(infos))
	for i, info := range infos {
		resp = append(resp, addressInfo{
			Index:    start + uint32(i/2),
			Address:  info.Address.String(),
			Bech32:   info.Bech32,
			Internal: info.Internal,
		})
	}
	printJSON(resp)
	return nil
}
