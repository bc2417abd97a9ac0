package preparer

import (
	"context"
	"errors"
	"fmt"

	"github.com/iotaledger/iota.go/trinary"
	"github.com/lightningnetwork/lnd/clock"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/chrysalis-migration/internal/core/domain"
	"github.com/tdex-network/chrysalis-migration/internal/core/ports"
	"github.com/tdex-network/chrysalis-migration/pkg/bundle"
	"github.com/tdex-network/chrysalis-migration/pkg/wallet"
)

const (
	messageFragmentTrytes = bundle.SignatureMessageFragmentSize / 3
	addressTrytes         = bundle.AddressSize / 3
	tagTrytes             = bundle.TagSize / 3
)

var (
	// ErrNoTransfers ...
	ErrNoTransfers = errors.New("at least one transfer is required")
	// ErrInsufficientBalance ...
	ErrInsufficientBalance = errors.New("inputs balance is lower than transfers value")
	// ErrUnbalancedTransfers is returned when inputs exceed the transfers
	// value, since no remainder address is ever used
	ErrUnbalancedTransfers = errors.New("inputs balance exceeds transfers value")
	// ErrInputSecurityMismatch ...
	ErrInputSecurityMismatch = errors.New(
		"input security level does not match the bundle one",
	)
)

type localPreparer struct {
	clock clock.Clock
}

// NewLocalPreparer returns a TransferPreparer building bundles without any
// network access. Transaction timestamps are taken from the given clock.
func NewLocalPreparer(clk clock.Clock) ports.TransferPreparer {
	if clk == nil {
		clk = clock.NewDefaultClock()
	}
	return &localPreparer{clk}
}

// PrepareTransfers adds the transfers first, one transaction per message
// fragment, then security level transactions for every input, the first
// one spending its whole balance.
func (p *localPreparer) PrepareTransfers(
	ctx context.Context,
	transfers []domain.Transfer,
	inputs []domain.Input,
	securityLevel int,
) (*bundle.Bundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(transfers) <= 0 {
		return nil, ErrNoTransfers
	}
	if !wallet.ValidSecurityLevel(securityLevel) {
		return nil, wallet.ErrInvalidSecurityLevel
	}

	timestamp := uint64(p.clock.Now().Unix())
	b := bundle.New(securityLevel)

	var totalOut uint64
	for i, t := range transfers {
		if err := validateTransfer(t); err != nil {
			return nil, fmt.Errorf("transfer %d: %w", i, err)
		}
		fragments := splitMessage(t.Message)
		length := len(fragments)
		if length == 0 {
			length = 1
		}

		if err := b.AddEntry(bundle.Entry{
			Address:   t.Address,
			Value:     int64(t.Value),
			Tag:       t.Tag,
			Timestamp: timestamp,
			Length:    length,
			Fragments: fragments,
		}); err != nil {
			return nil, fmt.Errorf("transfer %d: %w", i, err)
		}
		totalOut += t.Value
	}

	var totalIn uint64
	for i, in := range inputs {
		if in.SecurityLevel != securityLevel {
			return nil, fmt.Errorf("input %d: %w", i, ErrInputSecurityMismatch)
		}
		if err := b.AddEntry(bundle.Entry{
			Address:   in.Address,
			Value:     -int64(in.Balance),
			Tag:       transfers[0].Tag,
			Timestamp: timestamp,
			Length:    securityLevel,
		}); err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		totalIn += in.Balance
	}

	if totalIn < totalOut {
		return nil, ErrInsufficientBalance
	}
	if totalIn > totalOut {
		return nil, ErrUnbalancedTransfers
	}

	log.Debugf(
		"prepared bundle of %d txs moving %s from %d inputs",
		b.Len(), domain.FormatMi(totalOut), len(inputs),
	)
	return b, nil
}

func validateTransfer(t domain.Transfer) error {
	if len(t.Address) != addressTrytes {
		return fmt.Errorf("%w: address must be %d trytes", domain.ErrInvalidTransfer, addressTrytes)
	}
	if err := trinary.ValidTrytes(t.Address); err != nil {
		return fmt.Errorf("%w: address: %s", domain.ErrInvalidTransfer, err)
	}
	if len(t.Tag) > tagTrytes {
		return fmt.Errorf("%w: tag must be at most %d trytes", domain.ErrInvalidTransfer, tagTrytes)
	}
	if len(t.Tag) > 0 {
		if err := trinary.ValidTrytes(t.Tag); err != nil {
			return fmt.Errorf("%w: tag: %s", domain.ErrInvalidTransfer, err)
		}
	}
	if len(t.Message) > 0 {
		if err := trinary.ValidTrytes(t.Message); err != nil {
			return fmt.Errorf("%w: message: %s", domain.ErrInvalidTransfer, err)
		}
	}
	return nil
}

// splitMessage splits the message into signature message fragments, the
// last one left unpadded.
func splitMessage(message trinary.Trytes) []trinary.Trytes {
	if len(message) == 0 {
		return nil
	}
	fragments := make([]trinary.Trytes, 0, len(message)/messageFragmentTrytes+1)
	for start := 0; start < len(message); start += messageFragmentTrytes {
		end := start + messageFragmentTrytes
		if end > len(message) {
			end = len(message)
		}
		fragments = append(fragments, message[start:end])
	}
	return fragments
}
