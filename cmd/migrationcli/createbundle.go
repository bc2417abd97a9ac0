package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tdex-network/chrysalis-migration/internal/core/domain"
	"github.com/tdex-network/chrysalis-migration/pkg/wallet"
	"github.com/urfave/cli/v2"
)

var createbundle = cli.Command{
	Name:  "createbundle",
	Usage: "create the unsigned migration bundle of the given inputs",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "seed",
			Usage: "the legacy seed of 81 trytes owning the inputs",
		},
		&cli.IntFlag{
			Name:  "security",
			Usage: "the security level of the inputs, in range [1, 3]",
			Value: 2,
		},
		&cli.StringSliceFlag{
			Name:  "input",
			Usage: "an input in the form <index>:<balance>, can be repeated",
		},
		&cli.StringFlag{
			Name:  "target",
			Usage: "the bech32 ed25519 address receiving the migrated funds",
		},
	},
	Action: createBundleAction,
}

type bundleInfo struct {
	Total   string   `json:"total"`
	Address string   `json:"migrationAddress"`
	Trytes  []string `json:"trytes"`
}

func createBundleAction(ctx *cli.Context) error {
	seed, err := getTernarySeed(ctx)
	if err != nil {
		return err
	}
	target, err := getTarget(ctx)
	if err != nil {
		return err
	}
	inputs, err := parseInputs(seed, ctx.Int("security"), ctx.StringSlice("input"))
	if err != nil {
		return err
	}
	cfg, cleanup, err := getAppConfig()
	if err != nil {
		return err
	}
	defer cleanup()

	svc := cfg.MigrationService()
	unsigned, err := svc.CreateMigrationBundle(background(), target, inputs)
	if err != nil {
		return err
	}
	trytes, err := svc.SerializeToTrytes(background(), unsigned)
	if err != nil {
		return err
	}

	printJSON(bundleInfo{
		Total:   domain.FormatMi(domain.TotalBalance(domain.DedupInputs(inputs))),
		Address: wallet.EncodeMigrationAddress(target).String(),
		Trytes:  trytes,
	})
	return nil
}

// parseInputs derives the address of every <index>:<balance> input.
func parseInputs(
	seed *wallet.TernarySeed, securityLevel int, args []string,
) ([]domain.Input, error) {
	inputs := make([]domain.Input, 0, len(args))
	for _, arg := range args {
		parts := strings.Split(arg, ":")
		if len(parts) != 2 {
			return nil, fmt.Errorf("malformed input %q, must be <index>:<balance>", arg)
		}
		index, err := strconv.ParseUint(parts[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed input index %q: %s", parts[0], err)
		}
		balance, err := strconv.ParseUint(parts[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed input balance %q: %s", parts[1], err)
		}

		address, err := wallet.GenerateLegacyAddress(seed, index, securityLevel)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, domain.Input{
			Address:       address.String(),
			Balance:       balance,
			Index:         index,
			SecurityLevel: securityLevel,
		})
	}
	return inputs, nil
}
