package domain

import "context"

// MiningResult is the summary of an ended mining job, stored so that a
// later job over the same bundle resumes where the previous one stopped.
type MiningResult struct {
	SessionID string
	// JobKey identifies the mined bundle, ie. the hash of its decoy before
	// mining.
	JobKey  string
	Outcome string
	// Offset is the first obsolete tag value tried, NextOffset the one a
	// later job resumes from.
	Offset     uint64
	NextOffset uint64
	Evaluated  uint64
	// BundleHash, Tail and Crackability are empty if no candidate was found.
	BundleHash   string
	Tail         string
	Crackability float64
	Timestamp    int64
}

// HasCandidate ...
func (r MiningResult) HasCandidate() bool {
	return len(r.Tail) > 0
}

type MiningResultRepository interface {
	AddResult(ctx context.Context, result MiningResult) error
	GetResult(ctx context.Context, sessionID string) (*MiningResult, error)
	// GetLatestResultForJob returns nil if no job over the given bundle
	// ever ended.
	GetLatestResultForJob(ctx context.Context, jobKey string) (*MiningResult, error)
	ListResults(ctx context.Context) ([]MiningResult, error)
	Close()
}
