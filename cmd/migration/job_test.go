package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tdex-network/chrysalis-migration/internal/config"
	"github.com/tdex-network/chrysalis-migration/pkg/wallet"
)

func TestReadJob(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		wantErr bool
	}{
		{
			name: "valid",
			content: `{"seed":"` + strings.Repeat("SEED", 20) + `9","securityLevel":2,` +
				`"inputs":[{"index":0,"balance":1000000}],"target":"iota1q",` +
				`"usedBundleHashes":["` + strings.Repeat("A", 81) + `"]}`,
		},
		{
			name:    "malformed",
			content: `{"seed":`,
			wantErr: true,
		},
		{
			name:    "invalid_security_level",
			content: `{"securityLevel":4}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			j, err := readJob(path)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, 2, j.SecurityLevel)
			require.Len(t, j.Inputs, 1)
			require.Len(t, j.UsedBundleHashes, 1)
		})
	}

	_, err := readJob(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
}

func TestRunJob(t *testing.T) {
	t.Setenv("MIGRATION_DATADIR", t.TempDir())
	t.Setenv("MIGRATION_MINING_WORKERS", "1")
	t.Setenv("MIGRATION_LOG_LEVEL", "0")
	require.NoError(t, config.InitConfig())

	target, err := targetAddress()
	require.NoError(t, err)

	// without used bundle hashes the bundle is signed without mining
	err = runJob(&job{
		Seed:          strings.Repeat("SEED", 20) + "9",
		SecurityLevel: 1,
		Inputs:        []jobInput{{Index: 0, Balance: 1000000}},
		Target:        target,
	})
	require.NoError(t, err)

	matches, err := filepath.Glob(filepath.Join(os.Getenv("MIGRATION_DATADIR"), "bundles", "*.json"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
}

func targetAddress() (string, error) {
	return wallet.NewEd25519Address(make([]byte, 32)).Bech32("iota")
}
