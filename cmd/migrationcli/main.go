package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/chrysalis-migration/internal/config"
	"github.com/tdex-network/chrysalis-migration/internal/core/application"
	"github.com/tdex-network/chrysalis-migration/internal/infrastructure/storage/miningstore"
	"github.com/tdex-network/chrysalis-migration/pkg/wallet"
	"github.com/urfave/cli/v2"
)

var (
	version = "dev"
)

func main() {
	app := cli.NewApp()

	app.Version = version
	app.Name = "migration CLI"
	app.Usage = "Command line interface for migrating legacy funds to ed25519 addresses"
	app.Before = func(*cli.Context) error {
		if err := config.InitConfig(); err != nil {
			return err
		}
		log.SetLevel(log.Level(config.GetInt(config.LogLevelKey)))
		return nil
	}
	app.Commands = append(
		app.Commands,
		&genseed,
		&addresses,
		&legacyaddresses,
		&migrationaddress,
		&createbundle,
		&results,
	)

	err := app.Run(os.Args)
	if err != nil {
		fatal(err)
	}
}

// getAppConfig returns the application config along with a cleanup func
// closing the mining results store.
func getAppConfig() (*application.Config, func(), error) {
	store, err := miningstore.NewMiningResultStore(config.GetDatadir(), nil)
	if err != nil {
		return nil, nil, err
	}

	cfg := config.ApplicationConfig()
	cfg.MiningResults = store
	if err := cfg.Validate(); err != nil {
		store.Close()
		return nil, nil, err
	}
	return cfg, store.Close, nil
}

func getEd25519Seed(ctx *cli.Context) (*wallet.Ed25519Seed, error) {
	mnemonic := strings.Fields(ctx.String("mnemonic"))
	if len(mnemonic) <= 0 {
		return nil, &invalidUsageError{ctx, ctx.Command.Name}
	}
	return wallet.NewEd25519SeedFromMnemonic(mnemonic)
}

func getTernarySeed(ctx *cli.Context) (*wallet.TernarySeed, error) {
	seed := ctx.String("seed")
	if len(seed) <= 0 {
		return nil, &invalidUsageError{ctx, ctx.Command.Name}
	}
	return wallet.NewTernarySeed(seed)
}

func getTarget(ctx *cli.Context) (wallet.Ed25519Address, error) {
	target := ctx.String("target")
	if len(target) <= 0 {
		return wallet.Ed25519Address{}, &invalidUsageError{ctx, ctx.Command.Name}
	}
	_, address, err := wallet.ParseBech32Address(target)
	return address, err
}

func printJSON(resp interface{}) {
	jsonBytes, err := json.MarshalIndent(resp, "", "\t")
	if err != nil {
		fmt.Println("unable to decode response: ", err)
		return
	}
	fmt.Println(string(jsonBytes))
}

func background() context.Context {
	return context.Background()
}

type invalidUsageError struct {
	ctx     *cli.Context
	command string
}

func (e *invalidUsageError) Error() string {
	return fmt.Sprintf("invalid usage of command %s", e.command)
}

func fatal(err error) {
	var e *invalidUsageError
	if errors.As(err, &e) {
		_ = cli.ShowCommandHelp(e.ctx, e.command)
	} else {
		_, _ = fmt.Fprintf(os.Stderr, "[migration] %v\n", err)
	}
	os.Exit(1)
}
