package application

import "time"

const (
	DefaultMiningTimeout = 10 * time.Minute
	DefaultAddressRange  = 20
	DefaultBech32HRP     = "iota"

	// capacity of the events channel of a mining session
	miningEventsBuffer = 2
	// extra capacity of the commands channel besides one slot per worker
	miningCommandsExtraBuffer = 2
)
