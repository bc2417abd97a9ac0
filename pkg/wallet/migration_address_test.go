package wallet

import (
	"strings"
	"testing"

	"github.com/iotaledger/iota.go/trinary"
	"github.com/stretchr/testify/require"
)

func TestMigrationAddress(t *testing.T) {
	var addr Ed25519Address
	for i := range addr {
		addr[i] = byte(i * 7)
	}

	migrationAddress := EncodeMigrationAddress(addr)
	require.Len(t, migrationAddress, TernarySeedTrytesSize)
	require.True(t, strings.HasPrefix(string(migrationAddress), MigrationAddressPrefix))
	require.True(t, strings.HasSuffix(string(migrationAddress), "9"))
	require.NoError(t, trinary.ValidTrytes(string(migrationAddress)))

	decoded, err := DecodeMigrationAddress(migrationAddress)
	require.NoError(t, err)
	require.Equal(t, addr, decoded)

	require.Equal(t, migrationAddress, EncodeMigrationAddress(addr))
}

func TestFailingDecodeMigrationAddress(t *testing.T) {
	var addr Ed25519Address
	addr[0] = 0xff
	valid := string(EncodeMigrationAddress(addr))

	data := append(append([]byte{}, addr[:]...), 0x01, 0x02, 0x03, 0x04)
	tamperedChecksum := MigrationAddressPrefix + string(encodeB1T6(data)) + "9"

	tests := []struct {
		name    string
		address LegacyAddress
		err     error
	}{
		{"too_short", LegacyAddress(valid[:80]), ErrInvalidMigrationAddress},
		{"wrong_prefix", LegacyAddress("TRANSFEX" + valid[8:]), ErrInvalidMigrationAddress},
		{"wrong_checksum", LegacyAddress(tamperedChecksum), ErrInvalidMigrationAddressChecksum},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeMigrationAddress(tt.address)
			require.ErrorIs(t, err, tt.err)
		})
	}
}

func TestB1T6(t *testing.T) {
	data := []byte{0x00, 0x01, 0x7f, 0x80, 0xff}
	encoded := encodeB1T6(data)
	require.Len(t, encoded, 2*len(data))

	decoded, err := decodeB1T6(encoded)
	require.NoError(t, err)
	require.Equal(t, data, decoded)
}
