package wallet

import (
	"bytes"
	"strings"

	"github.com/iotaledger/iota.go/trinary"
	"golang.org/x/crypto/blake2b"
)

const (
	// MigrationAddressPrefix is the tryte prefix of every migration address
	MigrationAddressPrefix = "TRANSFER"

	migrationChecksumSize = 4
	migrationPadding      = "9"
	b1t6TritsPerByte      = 6
)

// EncodeMigrationAddress maps an ed25519 address of the new ledger into the
// legacy address the migration funds must be sent to:
// "TRANSFER" || b1t6(address || blake2b(address)[:4]) || "9".
func EncodeMigrationAddress(address Ed25519Address) LegacyAddress {
	checksum := blake2b.Sum256(address[:])

	data := make([]byte, 0, Ed25519AddressSize+migrationChecksumSize)
	data = append(data, address[:]...)
	data = append(data, checksum[:migrationChecksumSize]...)

	var sb strings.Builder
	sb.Grow(TernarySeedTrytesSize)
	sb.WriteString(MigrationAddressPrefix)
	sb.WriteString(string(encodeB1T6(data)))
	sb.WriteString(migrationPadding)
	return LegacyAddress(sb.String())
}

// DecodeMigrationAddress extracts the ed25519 address encoded in the given
// migration address after verifying its checksum.
func DecodeMigrationAddress(address LegacyAddress) (Ed25519Address, error) {
	str := string(address)
	if len(str) != TernarySeedTrytesSize ||
		!strings.HasPrefix(str, MigrationAddressPrefix) ||
		!strings.HasSuffix(str, migrationPadding) {
		return Ed25519Address{}, ErrInvalidMigrationAddress
	}
	if err := trinary.ValidTrytes(str); err != nil {
		return Ed25519Address{}, ErrInvalidMigrationAddress
	}

	encoded := str[len(MigrationAddressPrefix) : len(str)-len(migrationPadding)]
	data, err := decodeB1T6(trinary.Trytes(encoded))
	if err != nil {
		return Ed25519Address{}, err
	}
	if len(data) != Ed25519AddressSize+migrationChecksumSize {
		return Ed25519Address{}, ErrInvalidMigrationAddress
	}

	var addr Ed25519Address
	copy(addr[:], data[:Ed25519AddressSize])

	checksum := blake2b.Sum256(addr[:])
	if !bytes.Equal(checksum[:migrationChecksumSize], data[Ed25519AddressSize:]) {
		return Ed25519Address{}, ErrInvalidMigrationAddressChecksum
	}
	return addr, nil
}

// encodeB1T6 encodes every byte, read as a signed 8-bit value, into 6
// balanced trits (2 trytes).
func encodeB1T6(data []byte) trinary.Trytes {
	trits := make(trinary.Trits, 0, len(data)*b1t6TritsPerByte)
	for _, b := range data {
		group := make(trinary.Trits, b1t6TritsPerByte)
		copy(group, trinary.IntToTrits(int64(int8(b))))
		trits = append(trits, group...)
	}
	return trinary.MustTritsToTrytes(trits)
}

func decodeB1T6(trytes trinary.Trytes) ([]byte, error) {
	trits, err := trinary.TrytesToTrits(trytes)
	if err != nil {
		return nil, ErrInvalidMigrationAddress
	}
	if len(trits)%b1t6TritsPerByte != 0 {
		return nil, ErrInvalidMigrationAddress
	}

	data := make([]byte, 0, len(trits)/b1t6TritsPerByte)
	for i := 0; i < len(trits); i += b1t6TritsPerByte {
		v := trinary.TritsToInt(trits[i : i+b1t6TritsPerByte])
		if v < -128 || v > 127 {
			return nil, ErrInvalidMigrationAddress
		}
		data = append(data, byte(int8(v)))
	}
	return data, nil
}
