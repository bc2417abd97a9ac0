package domain_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tdex-network/chrysalis-migration/internal/core/domain"
)

var (
	addressA = strings.Repeat("A", 81)
	addressB = strings.Repeat("B", 81)
)

func TestDedupInputs(t *testing.T) {
	t.Parallel()

	inputs := []domain.Input{
		{Address: addressA, Balance: 10, Index: 0, SecurityLevel: 2},
		{Address: addressB, Balance: 20, Index: 1, SecurityLevel: 2},
		{Address: addressA, Balance: 10, Index: 0, SecurityLevel: 2},
		// same address but different index is a different input
		{Address: addressA, Balance: 10, Index: 3, SecurityLevel: 2},
		{Address: addressB, Balance: 20, Index: 1, SecurityLevel: 2},
	}

	deduped := domain.DedupInputs(inputs)
	require.Equal(t, []domain.Input{inputs[0], inputs[1], inputs[3]}, deduped)
	require.Equal(t, uint64(40), domain.TotalBalance(deduped))
	require.Empty(t, domain.DedupInputs(nil))
}

func TestFailingValidateInputs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		inputs        []domain.Input
		expectedError error
	}{
		{
			name:          "no_inputs",
			inputs:        nil,
			expectedError: domain.ErrNoInputs,
		},
		{
			name: "mixed_security_levels",
			inputs: []domain.Input{
				{Address: addressA, Balance: 10, SecurityLevel: 2},
				{Address: addressB, Balance: 10, SecurityLevel: 3},
			},
			expectedError: domain.ErrMixedSecurityLevels,
		},
		{
			name: "short_address",
			inputs: []domain.Input{
				{Address: "ABC", Balance: 10, SecurityLevel: 2},
			},
			expectedError: domain.ErrInvalidInputAddress,
		},
		{
			name: "invalid_address",
			inputs: []domain.Input{
				{Address: strings.Repeat("a", 81), Balance: 10, SecurityLevel: 2},
			},
			expectedError: domain.ErrInvalidInputAddress,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := domain.ValidateInputs(tt.inputs)
			require.ErrorIs(t, err, tt.expectedError)
			require.ErrorIs(t, err, domain.ErrValidation)
		})
	}

	require.NoError(t, domain.ValidateInputs([]domain.Input{
		{Address: addressA, Balance: 10, SecurityLevel: 2},
		{Address: addressB, Balance: 10, SecurityLevel: 2},
	}))
}

func TestDustPolicy(t *testing.T) {
	t.Parallel()

	require.NoError(t, domain.DustPolicy{}.Check(1))

	policy := domain.DustPolicy{Enabled: true}
	require.NoError(t, policy.Check(domain.DefaultDustThreshold))
	err := policy.Check(domain.DefaultDustThreshold - 1)
	require.ErrorIs(t, err, domain.ErrBelowDustThreshold)
	require.ErrorIs(t, err, domain.ErrValidation)

	policy.Threshold = 10
	require.NoError(t, policy.Check(10))
}

func TestFormatMi(t *testing.T) {
	t.Parallel()

	require.Equal(t, "3.5 Mi", domain.FormatMi(3500000))
	require.Equal(t, "0 Mi", domain.FormatMi(0))
	require.Equal(t, "0.000001 Mi", domain.FormatMi(1))
}

func TestErrorKinds(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, domain.ErrInputAddressCountMismatch, domain.ErrConsistency)
	require.ErrorIs(t, domain.ErrInputAddressMissing, domain.ErrConsistency)
	require.NotErrorIs(t, domain.ErrInputAddressMissing, domain.ErrValidation)
	require.ErrorIs(t, domain.ErrNoUsedBundleHashes, domain.ErrValidation)
}
