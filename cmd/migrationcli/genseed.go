package main

import (
	"fmt"
	"strings"

	"github.com/tdex-network/chrysalis-migration/pkg/wallet"
	"github.com/urfave/cli/v2"
)

var genseed = cli.Command{
	Name:  "genseed",
	Usage: "generate a mnemonic for ed25519 addresses or a random legacy seed",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "legacy",
			Usage: "generate a ternary seed of 81 trytes instead of a mnemonic",
		},
	},
	Action: genSeedAction,
}

func genSeedAction(ctx *cli.Context) error {
	if ctx.Bool("legacy") {
		fmt.Println(wallet.NewRandomTernarySeed().Trytes())
		return nil
	}

	mnemonic, err := wallet.NewMnemonic(wallet.NewMnemonicOpts{})
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(strings.Join(mnemonic, " "))

	return nil
}
