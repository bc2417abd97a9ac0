package main

import (
	"time"

	"github.com/tdex-network/chrysalis-migration/pkg/miner"
	"github.com/urfave/cli/v2"
)

var results = cli.Command{
	Name:   "results",
	Usage:  "list the results of the mining jobs run so far",
	Action: resultsAction,
}

type miningResultInfo struct {
	Session      string  `json:"session"`
	Job          string  `json:"job"`
	Outcome      string  `json:"outcome"`
	Offset       uint64  `json:"offset"`
	NextOffset   uint64  `json:"nextOffset"`
	Evaluated    uint64  `json:"evaluated"`
	BundleHash   string  `json:"bundleHash,omitempty"`
	SecurityBits float64 `json:"securityBits,omitempty"`
	EndedAt      string  `json:"endedAt"`
}

func resultsAction(ctx *cli.Context) error {
	cfg, cleanup, err := getAppConfig()
	if err != nil {
		return err
	}
	defer cleanup()

	list, err := cfg.MiningResults.ListResults(background())
	if err != nil {
		return err
	}

	resp := make([]miningResultInfo, 0, len(list))
	for _, r := range list {
		info := miningResultInfo{
			Session:    r.SessionID,
			Job:        r.JobKey,
			Outcome:    r.Outcome,
			Offset:     r.Offset,
			NextOffset: r.NextOffset,
			Evaluated:  r.Evaluated,
			EndedAt:    time.Unix(r.Timestamp, 0).UTC().Format(time.RFC3339),
		}
		if r.HasCandidate() {
			info.BundleHash = r.BundleHash
			info.SecurityBits = miner.SecurityBits(r.Crackability)
		}
		resp = append(resp, info)
	}
	printJSON(resp)
	return nil
}
