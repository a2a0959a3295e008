package domain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// IsValidAddress reports whether address is a 0x-prefixed 20 byte hex string.
func IsValidAddress(address string) bool {
	return strings.HasPrefix(address, "0x") && common.IsHexAddress(address)
}

// IsValidTxHash reports whether hash is a 0x-prefixed 32 byte hex string.
func IsValidTxHash(hash string) bool {
	if !strings.HasPrefix(hash, "0x") {
		return false
	}
	raw, err := hexutil.Decode(hash)
	return err == nil && len(raw) == common.HashLength
}

// ValidateAddress returns the normalized address or an ErrValidation error.
func ValidateAddress(address string) (string, error) {
	trimmed := strings.TrimSpace(address)
	if !IsValidAddress(trimmed) {
		return "", fmt.Errorf("%w: invalid ethereum address %q", ErrValidation, address)
	}
	return NormalizeAddress(trimmed), nil
}

// NormalizeAddress lowercases an address. This stands in for checksum
// encoding; values that are not hex addresses are only lowercased.
func NormalizeAddress(address string) string {
	if IsValidAddress(address) {
		return strings.ToLower(common.HexToAddress(address).Hex())
	}
	return strings.ToLower(address)
}
