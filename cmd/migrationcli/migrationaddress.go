package main

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

var migrationaddress = cli.Command{
	Name:  "migrationaddress",
	Usage: "encode a bech32 ed25519 address into its legacy migration address",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "target",
			Usage: "the bech32 ed25519 address receiving the migrated funds",
		},
	},
	Action: migrationAddressAction,
}

func migrationAddressAction(ctx *cli.Context) error {
	target, err := getTarget(ctx)
	if err != nil {
		return err
	}
	cfg, cleanup, err := getAppConfig()
	if err != nil {
		return err
	}
	defer cleanup()

	address, err := cfg.AddressService().GetMigrationAddress(background(), target)
	if err != nil {
		return err
	}

	fmt.Println(address)
	return nil
}
