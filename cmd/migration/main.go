package main

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tdex-network/chrysalis-migration/internal/config"
)

var (
	jobFlag = "job"

	version = "dev"
	commit  = "none"
	date    = "unknown"

	app = &cobra.Command{
		Use:           "migration",
		Short:         "migration job runner",
		Long:          "this tool moves the funds of legacy addresses to an ed25519 address, mining the migration bundle against the bundle hashes already signed by its inputs",
		Version:       formatVersion(),
		RunE:          action,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	jobPath string
)

func init() {
	app.Flags().StringVarP(&jobPath, jobFlag, "j", "", "path of the JSON file describing the migration job")
}

func main() {
	if err := app.Execute(); err != nil {
		log.Fatal(err)
	}
}

func action(cmd *cobra.Command, args []string) (err error) {
	if len(jobPath) <= 0 {
		return fmt.Errorf("missing --%s flag", jobFlag)
	}
	if err = config.InitConfig(); err != nil {
		return
	}
	log.SetLevel(log.Level(config.GetInt(config.LogLevelKey)))

	j, err := readJob(jobPath)
	if err != nil {
		return
	}

	start := time.Now()
	log.Info("starting migration...")

	defer func(start time.Time) {
		if err == nil {
			elapsedTime := time.Since(start).Seconds()
			log.Infof("migration ended in %fs", elapsedTime)
		}
	}(start)

	return runJob(j)
}

func formatVersion() string {
	return fmt.Sprintf(
		"Version: %s\nCommit: %s\nDate: %s",
		version, commit, date,
	)
}
