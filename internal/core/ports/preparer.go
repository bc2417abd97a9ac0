package ports

import (
	"context"

	"github.com/tdex-network/chrysalis-migration/internal/core/domain"
	"github.com/tdex-network/chrysalis-migration/pkg/bundle"
)

// TransferPreparer builds the unsigned bundle moving the balance of the
// given inputs to the given transfers.
type TransferPreparer interface {
	PrepareTransfers(
		ctx context.Context,
		transfers []domain.Transfer,
		inputs []domain.Input,
		securityLevel int,
	) (*bundle.Bundle, error)
}
