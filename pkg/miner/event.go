package miner

import "github.com/iotaledger/iota.go/trinary"

const (
	StopSignal EventType = iota
	CandidateFound
	WorkerProgress
)

// EventType ...
type EventType int

func (et EventType) String() string {
	switch et {
	case StopSignal:
		return "StopSignal"
	case CandidateFound:
		return "CandidateFound"
	case WorkerProgress:
		return "WorkerProgress"
	default:
		return "Unknown"
	}
}

// Event is sent to the recoverer, either by workers or by the caller to stop
// the job.
type Event interface {
	Type() EventType
}

// StopEvent asks to end the job, emitting the best candidate found so far.
type StopEvent struct{}

func (StopEvent) Type() EventType {
	return StopSignal
}

// CandidateEvent reports a candidate improving the crackability of the
// worker's previous best.
type CandidateEvent struct {
	Worker       int
	Iteration    uint64
	Crackability float64
	// Tail is the mined value, obsolete tag, timestamp and indexes part of
	// the last transaction essence.
	Tail       trinary.Trits
	BundleHash trinary.Trytes
}

func (CandidateEvent) Type() EventType {
	return CandidateFound
}

// ProgressEvent reports the number of candidates a worker evaluated since
// its previous report.
type ProgressEvent struct {
	Worker    int
	Evaluated uint64
}

func (ProgressEvent) Type() EventType {
	return WorkerProgress
}

const (
	Progress CrackabilityEventType = iota
	Improved
	Mined
)

// CrackabilityEventType ...
type CrackabilityEventType int

func (et CrackabilityEventType) String() string {
	switch et {
	case Progress:
		return "Progress"
	case Improved:
		return "Improved"
	case Mined:
		return "Mined"
	default:
		return "Unknown"
	}
}

// CrackabilityEvent is emitted by the recoverer to the caller.
type CrackabilityEvent struct {
	EventType CrackabilityEventType
	// Crackability of the best candidate so far, 0 if none.
	Crackability float64
	// Baseline is the crackability of the known bundle hashes alone.
	Baseline  float64
	Evaluated uint64
	// Tail and BundleHash are set for Improved and Mined events.
	Tail       trinary.Trits
	BundleHash trinary.Trytes
}

// SecurityBits returns the crackability of the event as bits of security.
func (e CrackabilityEvent) SecurityBits() float64 {
	return SecurityBits(e.Crackability)
}
