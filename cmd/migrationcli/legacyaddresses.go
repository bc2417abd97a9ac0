package main

import (
	"github.com/urfave/cli/v2"
)

var legacyaddresses = cli.Command{
	Name:  "legacyaddresses",
	Usage: "derive the legacy addresses of a ternary seed",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "seed",
			Usage: "the legacy seed of 81 trytes",
		},
		&cli.IntFlag{
			Name:  "security",
			Usage: "the security level of the addresses, in range [1, 3]",
			Value: 2,
		},
		&cli.Uint64Flag{
			Name:  "start",
			Usage: "the first address index",
		},
		&cli.Uint64Flag{
			Name:  "end",
			Usage: "the address index after the last one",
			Value: 10,
		},
	},
	Action: legacyAddressesAction,
}

func legacyAddressesAction(ctx *cli.Context) error {
	seed, err := getTernarySeed(ctx)
	if err != nil {
		return err
	}
	cfg, cleanup, err := getAppConfig()
	if err != nil {
		return err
	}
	defer cleanup()

	addresses, err := cfg.AddressService().GetLegacyAddresses(
		background(), seed, ctx.Int("security"),
		ctx.Uint64("start"), ctx.Uint64("end"),
	)
	if err != nil {
		return err
	}

	printJSON(addresses)
	return nil
}
